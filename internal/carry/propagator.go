// Package carry chains tens-carries across the rods of an abacus.
//
// The bead engine settles one rod per toggle and hands back at most one
// CarryInstruction. A Propagator is the caller the engine expects: it turns
// every instruction into one more unit on the rod to the left, repeats until
// nothing is owed, and applies an overflow Policy when a carry leaves the
// leftmost rod. Each step is reported to an optional Observer, which is where a
// presentation layer inserts its animation delay.
package carry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/suanpan/internal/abacus"
	"github.com/zjrosen/suanpan/internal/log"
)

const tracerName = "github.com/zjrosen/suanpan/internal/carry"

// Engine is the part of *abacus.Engine a Propagator drives.
type Engine interface {
	Rods() int
	Rod(i int) (abacus.RodState, error)
	Value() int64
	Toggle(rod int, class abacus.BeadClass, index int) ([]abacus.Change, *abacus.CarryInstruction, error)
}

// StepKind says why a step toggled a bead.
type StepKind string

const (
	KindGesture  StepKind = "gesture"
	KindCarry    StepKind = "carry"
	KindSaturate StepKind = "saturate"
)

// Step is one engine toggle performed by the propagator.
type Step struct {
	Kind    StepKind                 `json:"kind" yaml:"kind"`
	Rod     int                      `json:"rod" yaml:"rod"`
	Class   abacus.BeadClass         `json:"class" yaml:"class"`
	Index   int                      `json:"index" yaml:"index"`
	Changes []abacus.Change          `json:"changes" yaml:"changes"`
	Carry   *abacus.CarryInstruction `json:"carry,omitempty" yaml:"carry,omitempty"`
	// Value is the abacus value right after this step.
	Value int64 `json:"value" yaml:"value"`
}

// Observer is called after every step, in order. Returning an error stops the
// chain; the step it was called with has already been applied.
type Observer func(ctx context.Context, step Step) error

// Result describes everything one gesture set in motion.
type Result struct {
	Steps []Step `json:"steps" yaml:"steps"`
	// Overflowed is set when a carry left the leftmost rod, whatever the policy did about it.
	Overflowed bool  `json:"overflowed" yaml:"overflowed"`
	Value      int64 `json:"value" yaml:"value"`
}

// Carries counts the carry steps in r.
func (r Result) Carries() int {
	n := 0
	for _, s := range r.Steps {
		if s.Kind == KindCarry {
			n++
		}
	}
	return n
}

// Propagator applies gestures to an Engine and settles the carries they cause.
type Propagator struct {
	engine   Engine
	policy   Policy
	observer Observer
	tracer   trace.Tracer
	log      *log.Logger
}

// Option configures a Propagator.
type Option func(*Propagator)

// WithPolicy sets the overflow policy. The default is PolicyIgnore.
func WithPolicy(p Policy) Option {
	return func(pr *Propagator) { pr.policy = p }
}

// WithObserver registers fn to be called after every step.
func WithObserver(fn Observer) Option {
	return func(pr *Propagator) { pr.observer = fn }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(pr *Propagator) { pr.tracer = t }
}

// WithLogger attaches a logger carrying correlation attributes.
func WithLogger(l *log.Logger) Option {
	return func(pr *Propagator) { pr.log = l }
}

// New returns a Propagator driving engine.
func New(engine Engine, opts ...Option) *Propagator {
	p := &Propagator{
		engine: engine,
		policy: PolicyIgnore,
		tracer: otel.Tracer(tracerName),
		log:    log.With(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Policy returns the overflow policy in effect.
func (p *Propagator) Policy() Policy {
	return p.policy
}

// Toggle flips one bead and follows every carry it produces.
//
// Invalid gestures are rejected before anything moves, with the engine's
// ErrOutOfRange or ErrInvalidArgument wrapped in the error. Context
// cancellation is checked between carry steps; a cancelled chain leaves the
// rods already visited settled and the carry unpaid.
func (p *Propagator) Toggle(ctx context.Context, rod int, class abacus.BeadClass, index int) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "abacus.toggle", trace.WithAttributes(
		attribute.Int("abacus.rod", rod),
		attribute.String("abacus.class", string(class)),
		attribute.Int("abacus.index", index),
	))
	defer span.End()

	var res Result
	carry, err := p.step(ctx, &res, KindGesture, rod, class, index)
	if err == nil {
		err = p.chain(ctx, &res, carry)
	}
	return p.finish(span, res, err)
}

// Carry pays one carry instruction obtained directly from the engine, and any
// carries that follow from it.
func (p *Propagator) Carry(ctx context.Context, ci abacus.CarryInstruction) (Result, error) {
	ctx, span := p.tracer.Start(ctx, "abacus.carry", trace.WithAttributes(
		attribute.Int("abacus.rod", ci.TargetRod),
	))
	defer span.End()

	var res Result
	return p.finish(span, res, p.chain(ctx, &res, &ci))
}

func (p *Propagator) finish(span trace.Span, res Result, err error) (Result, error) {
	res.Value = p.engine.Value()
	span.SetAttributes(
		attribute.Int64("abacus.value", res.Value),
		attribute.Int("abacus.carries", res.Carries()),
		attribute.Bool("abacus.overflow", res.Overflowed),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return res, err
}

func (p *Propagator) chain(ctx context.Context, res *Result, carry *abacus.CarryInstruction) error {
	for carry != nil {
		if carry.Overflow() {
			res.Overflowed = true
			return p.overflow(ctx, res)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("carry to rod %d: %w", carry.TargetRod, err)
		}
		state, err := p.engine.Rod(carry.TargetRod)
		if err != nil {
			return fmt.Errorf("carry to rod %d: %w", carry.TargetRod, err)
		}
		carry, err = p.step(ctx, res, KindCarry, carry.TargetRod, abacus.Earth, nextUnitBead(state))
		if err != nil {
			return err
		}
	}
	return nil
}

// nextUnitBead is the earth bead whose push adds exactly one to a settled rod:
// the first inactive one, or the fifth when four are up so the rod converts to
// heaven or carries again.
func nextUnitBead(r abacus.RodState) int {
	return min(r.EarthCount(), abacus.EarthBeads-1)
}

func (p *Propagator) overflow(ctx context.Context, res *Result) error {
	switch p.policy {
	case PolicySaturate:
		p.log.Warn(log.CatCarry, "carry left the leftmost rod, saturating", "policy", p.policy)
		return p.saturate(ctx, res)
	case PolicyError:
		p.log.Warn(log.CatCarry, "carry left the leftmost rod", "policy", p.policy)
		return ErrOverflow
	default:
		p.log.Info(log.CatCarry, "carry dropped off the leftmost rod", "policy", p.policy)
		return nil
	}
}

// saturate pushes every rod to nine using ordinary toggles.
func (p *Propagator) saturate(ctx context.Context, res *Result) error {
	for rod := range p.engine.Rods() {
		state, err := p.engine.Rod(rod)
		if err != nil {
			return err
		}
		if state.Heaven[abacus.UpperHeaven] == abacus.Active {
			if _, err := p.step(ctx, res, KindSaturate, rod, abacus.Heaven, abacus.UpperHeaven); err != nil {
				return err
			}
		}
		if state, err = p.engine.Rod(rod); err != nil {
			return err
		}
		if state.Heaven[abacus.LowerHeaven] == abacus.Inactive {
			if _, err := p.step(ctx, res, KindSaturate, rod, abacus.Heaven, abacus.LowerHeaven); err != nil {
				return err
			}
		}
		if state, err = p.engine.Rod(rod); err != nil {
			return err
		}
		if state.EarthCount() < abacus.EarthBeads-1 {
			if _, err := p.step(ctx, res, KindSaturate, rod, abacus.Earth, abacus.EarthBeads-2); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Propagator) step(ctx context.Context, res *Result, kind StepKind, rod int, class abacus.BeadClass, index int) (*abacus.CarryInstruction, error) {
	ctx, span := p.tracer.Start(ctx, "abacus.step", trace.WithAttributes(
		attribute.String("abacus.kind", string(kind)),
		attribute.Int("abacus.rod", rod),
		attribute.String("abacus.class", string(class)),
		attribute.Int("abacus.index", index),
	))
	defer span.End()

	changes, carry, err := p.engine.Toggle(rod, class, index)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%s on rod %d: %w", kind, rod, err)
	}

	s := Step{
		Kind:    kind,
		Rod:     rod,
		Class:   class,
		Index:   index,
		Changes: changes,
		Carry:   carry,
		Value:   p.engine.Value(),
	}
	res.Steps = append(res.Steps, s)
	span.SetAttributes(attribute.Int("abacus.changes", len(changes)))
	p.log.Debug(log.CatCarry, "bead toggled",
		"kind", kind, "rod", rod, "class", class, "index", index, "changes", len(changes), "value", s.Value)
	if carry != nil {
		span.SetAttributes(attribute.Int("abacus.carry_target", carry.TargetRod))
		p.log.Debug(log.CatCarry, "tens carry", "from", rod, "to", carry.TargetRod)
	}

	if p.observer != nil {
		if err := p.observer(ctx, s); err != nil {
			return nil, fmt.Errorf("observing %s on rod %d: %w", kind, rod, err)
		}
	}
	return carry, nil
}
