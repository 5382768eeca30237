package abacus

import "errors"

// Engine errors. Returned errors wrap these sentinels with call context, so
// match them with errors.Is.
var (
	// ErrOutOfRange indicates a rod index, bead index or rod count outside its valid range.
	ErrOutOfRange = errors.New("out of range")

	// ErrInvalidArgument indicates a bead class other than Heaven or Earth.
	ErrInvalidArgument = errors.New("invalid argument")
)
