// Package gesture parses bead gestures written as text.
//
// A gesture names one bead as rod:class:bead, for example "12:earth:4" or
// "0:h:1". A script holds any number of gestures separated by whitespace or
// newlines; everything after a '#' on a line is a comment.
package gesture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zjrosen/suanpan/internal/abacus"
)

// ErrMalformed indicates a token that is not of the form rod:class:bead.
var ErrMalformed = errors.New("malformed gesture")

// Gesture is one bead toggle requested by a user.
type Gesture struct {
	Rod   int              `json:"rod" yaml:"rod"`
	Class abacus.BeadClass `json:"class" yaml:"class"`
	Index int              `json:"index" yaml:"index"`
}

func (g Gesture) String() string {
	return fmt.Sprintf("%d:%s:%d", g.Rod, g.Class, g.Index)
}

// ParseError reports a gesture that could not be parsed, with its position in a script.
type ParseError struct {
	Line  int
	Token string
	Err   error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: gesture %q: %v", e.Line, e.Token, e.Err)
	}
	return fmt.Sprintf("gesture %q: %v", e.Token, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads a single rod:class:bead token. Class names go through
// abacus.ParseBeadClass. Ranges are not checked here; the engine owns them.
func Parse(token string) (Gesture, error) {
	parts := strings.Split(strings.TrimSpace(token), ":")
	if len(parts) != 3 {
		return Gesture{}, &ParseError{Token: token, Err: ErrMalformed}
	}

	rod, err := strconv.Atoi(parts[0])
	if err != nil {
		return Gesture{}, &ParseError{Token: token, Err: fmt.Errorf("%w: rod %q is not a number", ErrMalformed, parts[0])}
	}
	class, err := abacus.ParseBeadClass(parts[1])
	if err != nil {
		return Gesture{}, &ParseError{Token: token, Err: err}
	}
	index, err := strconv.Atoi(parts[2])
	if err != nil {
		return Gesture{}, &ParseError{Token: token, Err: fmt.Errorf("%w: bead %q is not a number", ErrMalformed, parts[2])}
	}

	return Gesture{Rod: rod, Class: class, Index: index}, nil
}

// ParseAll parses each argument as a gesture.
func ParseAll(tokens []string) ([]Gesture, error) {
	out := make([]Gesture, 0, len(tokens))
	for _, tok := range tokens {
		g, err := Parse(tok)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, nil
}

// ReadScript parses every gesture in r. Errors name the offending line.
func ReadScript(r io.Reader) ([]Gesture, error) {
	var out []Gesture
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		for _, tok := range strings.Fields(text) {
			g, err := Parse(tok)
			if err != nil {
				var pe *ParseError
				if errors.As(err, &pe) {
					pe.Line = line
				}
				return nil, err
			}
			out = append(out, g)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	return out, nil
}
