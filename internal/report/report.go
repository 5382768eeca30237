// Package report turns abacus state and replay results into text, JSON or YAML.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/zjrosen/suanpan/internal/abacus"
	"github.com/zjrosen/suanpan/internal/carry"
)

// Format selects an output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ParseFormat converts a format name into a Format. An empty name selects FormatText.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatText, nil
	case FormatText, FormatJSON, FormatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// State is the part of *abacus.Engine a snapshot reads.
type State interface {
	Value() int64
	States() []abacus.RodState
}

// Rod is one rod in a snapshot.
type Rod struct {
	Index           int `json:"index" yaml:"index"`
	Digit           int `json:"digit" yaml:"digit"`
	abacus.RodState `yaml:",inline"`
}

// Snapshot is everything a report prints.
type Snapshot struct {
	Session    string       `json:"session,omitempty" yaml:"session,omitempty"`
	Value      int64        `json:"value" yaml:"value"`
	Rods       []Rod        `json:"rods" yaml:"rods"`
	Gestures   int          `json:"gestures" yaml:"gestures"`
	Carries    int          `json:"carries" yaml:"carries"`
	Overflowed bool         `json:"overflowed" yaml:"overflowed"`
	Policy     carry.Policy `json:"policy,omitempty" yaml:"policy,omitempty"`
	Steps      []carry.Step `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Capture reads the current state of s.
func Capture(s State) Snapshot {
	states := s.States()
	rods := make([]Rod, len(states))
	for i, r := range states {
		rods[i] = Rod{Index: i, Digit: r.Value(), RodState: r}
	}
	return Snapshot{Value: s.Value(), Rods: rods}
}

// Record folds one propagator result into the snapshot. Steps are kept only
// when keepSteps is set.
func (s *Snapshot) Record(res carry.Result, keepSteps bool) {
	s.Gestures++
	s.Carries += res.Carries()
	s.Overflowed = s.Overflowed || res.Overflowed
	s.Value = res.Value
	if keepSteps {
		s.Steps = append(s.Steps, res.Steps...)
	}
}

// Options tunes text output.
type Options struct {
	Color bool
}

// Write encodes s to w in format f.
func Write(w io.Writer, f Format, s Snapshot, opts Options) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encoding json report: %w", err)
		}
		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(s); err != nil {
			return fmt.Errorf("encoding yaml report: %w", err)
		}
		return enc.Close()
	case FormatText, "":
		_, err := io.WriteString(w, renderText(w, s, opts))
		return err
	default:
		return fmt.Errorf("unknown output format %q", f)
	}
}
