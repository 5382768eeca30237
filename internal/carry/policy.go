package carry

import (
	"errors"
	"fmt"
	"strings"
)

// Policy decides what happens to a carry that falls off the leftmost rod.
type Policy string

const (
	// PolicyIgnore drops the carry; the abacus wraps around to a smaller value.
	PolicyIgnore Policy = "ignore"
	// PolicySaturate drives every rod to nine, pinning the abacus at its maximum.
	PolicySaturate Policy = "saturate"
	// PolicyError leaves the abacus wrapped and reports ErrOverflow.
	PolicyError Policy = "error"
)

// Policies lists every supported policy, default first.
func Policies() []Policy {
	return []Policy{PolicyIgnore, PolicySaturate, PolicyError}
}

var (
	// ErrOverflow is returned under PolicyError when a carry leaves the leftmost rod.
	ErrOverflow = errors.New("abacus overflow")

	// ErrUnknownPolicy indicates a policy name that is not one of Policies.
	ErrUnknownPolicy = errors.New("unknown overflow policy")
)

// ParsePolicy converts a policy name into a Policy. An empty name selects PolicyIgnore.
func ParsePolicy(s string) (Policy, error) {
	name := Policy(strings.ToLower(strings.TrimSpace(s)))
	if name == "" {
		return PolicyIgnore, nil
	}
	for _, p := range Policies() {
		if p == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}
