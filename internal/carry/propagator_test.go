package carry

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"pgregory.net/rapid"

	"github.com/zjrosen/suanpan/internal/abacus"
)

// newAbacus builds an engine showing digits, leftmost rod first.
func newAbacus(t *testing.T, digits ...int) *abacus.Engine {
	t.Helper()
	e, err := abacus.New(len(digits))
	require.NoError(t, err)
	for rod, d := range digits {
		require.True(t, d >= 0 && d <= 9, "digit %d", d)
		if d >= 5 {
			_, _, err := e.Toggle(rod, abacus.Heaven, abacus.LowerHeaven)
			require.NoError(t, err)
		}
		if d%5 > 0 {
			_, _, err := e.Toggle(rod, abacus.Earth, d%5-1)
			require.NoError(t, err)
		}
	}
	require.Equal(t, digitsValue(digits), e.Value())
	return e
}

func digitsValue(digits []int) int64 {
	var v int64
	for _, d := range digits {
		v = v*10 + int64(d)
	}
	return v
}

func TestToggle_NoCarry(t *testing.T) {
	e := newAbacus(t, 0, 4, 2)
	p := New(e)

	res, err := p.Toggle(context.Background(), 2, abacus.Earth, 2)
	require.NoError(t, err)

	require.Len(t, res.Steps, 1)
	assert.Equal(t, KindGesture, res.Steps[0].Kind)
	assert.Nil(t, res.Steps[0].Carry)
	assert.Equal(t, int64(43), res.Value)
	assert.Equal(t, 0, res.Carries())
	assert.False(t, res.Overflowed)
}

func TestToggle_CascadingCarry(t *testing.T) {
	e := newAbacus(t, 0, 9, 9)
	p := New(e)

	res, err := p.Toggle(context.Background(), 2, abacus.Earth, 4)
	require.NoError(t, err)

	assert.Equal(t, int64(100), res.Value)
	assert.Equal(t, int64(100), e.Value())
	assert.Equal(t, 2, res.Carries())
	require.Len(t, res.Steps, 3)

	assert.Equal(t, KindGesture, res.Steps[0].Kind)
	require.NotNil(t, res.Steps[0].Carry)
	assert.Equal(t, 1, res.Steps[0].Carry.TargetRod)

	assert.Equal(t, KindCarry, res.Steps[1].Kind)
	assert.Equal(t, 1, res.Steps[1].Rod)
	assert.Equal(t, abacus.Earth, res.Steps[1].Class)
	assert.Equal(t, 4, res.Steps[1].Index, "a rod showing nine takes its unit on the fifth earth bead")

	assert.Equal(t, KindCarry, res.Steps[2].Kind)
	assert.Equal(t, 0, res.Steps[2].Rod)
	assert.Equal(t, 0, res.Steps[2].Index)
	assert.Nil(t, res.Steps[2].Carry)

	// Intermediate values show the carry walking left.
	assert.Equal(t, []int64{90, 0, 100}, []int64{res.Steps[0].Value, res.Steps[1].Value, res.Steps[2].Value})
}

func TestToggle_CarryLandsOnFour(t *testing.T) {
	e := newAbacus(t, 4, 9)
	p := New(e)

	res, err := p.Toggle(context.Background(), 1, abacus.Earth, 4)
	require.NoError(t, err)

	assert.Equal(t, int64(50), res.Value)
	rod, err := e.Rod(0)
	require.NoError(t, err)
	assert.Equal(t, abacus.RodState{Heaven: [2]abacus.Position{abacus.Inactive, abacus.Active}}, rod)
}

func TestToggle_UpperHeavenAddsTen(t *testing.T) {
	e := newAbacus(t, 0, 1, 3)
	p := New(e)

	res, err := p.Toggle(context.Background(), 2, abacus.Heaven, abacus.UpperHeaven)
	require.NoError(t, err)

	assert.Equal(t, int64(23), res.Value)
	assert.Equal(t, 1, res.Carries())
}

func TestToggle_Overflow(t *testing.T) {
	tests := []struct {
		name      string
		policy    Policy
		wantErr   error
		wantValue int64
		wantKinds []StepKind
	}{
		{
			name:      "ignore drops the carry",
			policy:    PolicyIgnore,
			wantValue: 0,
			wantKinds: []StepKind{KindGesture, KindCarry},
		},
		{
			name:      "error reports overflow",
			policy:    PolicyError,
			wantErr:   ErrOverflow,
			wantValue: 0,
			wantKinds: []StepKind{KindGesture, KindCarry},
		},
		{
			name:      "saturate pins at the maximum",
			policy:    PolicySaturate,
			wantValue: 99,
			wantKinds: []StepKind{
				KindGesture, KindCarry,
				KindSaturate, KindSaturate,
				KindSaturate, KindSaturate,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newAbacus(t, 9, 9)
			p := New(e, WithPolicy(tt.policy))
			assert.Equal(t, tt.policy, p.Policy())

			res, err := p.Toggle(context.Background(), 1, abacus.Earth, 4)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}

			assert.True(t, res.Overflowed)
			assert.Equal(t, tt.wantValue, res.Value)
			assert.Equal(t, tt.wantValue, e.Value())

			kinds := make([]StepKind, 0, len(res.Steps))
			for _, s := range res.Steps {
				kinds = append(kinds, s.Kind)
			}
			assert.Equal(t, tt.wantKinds, kinds)

			for i, rod := range e.States() {
				assert.True(t, rod.Settled(), "rod %d", i)
			}
		})
	}
}

func TestToggle_InvalidGesture(t *testing.T) {
	e := newAbacus(t, 1, 2)
	p := New(e)

	tests := []struct {
		name  string
		rod   int
		class abacus.BeadClass
		index int
		want  error
	}{
		{name: "rod", rod: 2, class: abacus.Heaven, index: 0, want: abacus.ErrOutOfRange},
		{name: "class", rod: 0, class: "diagonal", index: 0, want: abacus.ErrInvalidArgument},
		{name: "bead", rod: 0, class: abacus.Earth, index: 7, want: abacus.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := p.Toggle(context.Background(), tt.rod, tt.class, tt.index)
			require.ErrorIs(t, err, tt.want)
			assert.Empty(t, res.Steps)
			assert.Equal(t, int64(12), res.Value)
		})
	}
}

func TestToggle_ObserverSeesEveryStep(t *testing.T) {
	e := newAbacus(t, 0, 9, 9)

	var seen []Step
	p := New(e, WithObserver(func(_ context.Context, s Step) error {
		seen = append(seen, s)
		return nil
	}))

	res, err := p.Toggle(context.Background(), 2, abacus.Earth, 4)
	require.NoError(t, err)
	assert.Equal(t, res.Steps, seen)
}

func TestToggle_ObserverErrorStopsChain(t *testing.T) {
	e := newAbacus(t, 0, 9, 9)
	stop := errors.New("window closed")

	p := New(e, WithObserver(func(_ context.Context, s Step) error {
		if s.Kind == KindCarry {
			return stop
		}
		return nil
	}))

	res, err := p.Toggle(context.Background(), 2, abacus.Earth, 4)
	require.ErrorIs(t, err, stop)
	require.Len(t, res.Steps, 2)
	// Rods 1 and 2 reset, the carry into rod 0 never happened.
	assert.Equal(t, int64(0), res.Value)
}

func TestToggle_CancelledContextStopsBetweenCarries(t *testing.T) {
	e := newAbacus(t, 3, 9)
	p := New(e)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Toggle(ctx, 1, abacus.Earth, 4)
	require.ErrorIs(t, err, context.Canceled)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, int64(30), res.Value)
	for _, rod := range e.States() {
		assert.True(t, rod.Settled())
	}
}

func TestCarry_PaysEngineInstruction(t *testing.T) {
	e := newAbacus(t, 0, 9, 9)
	_, ci, err := e.Toggle(2, abacus.Earth, 4)
	require.NoError(t, err)
	require.NotNil(t, ci)

	p := New(e)
	res, err := p.Carry(context.Background(), *ci)
	require.NoError(t, err)
	assert.Equal(t, int64(100), res.Value)
	assert.Equal(t, 2, res.Carries())
}

func TestCarry_OverflowInstruction(t *testing.T) {
	e := newAbacus(t, 9)
	_, ci, err := e.Toggle(0, abacus.Earth, 4)
	require.NoError(t, err)
	require.NotNil(t, ci)
	require.True(t, ci.Overflow())

	res, err := New(e, WithPolicy(PolicyError)).Carry(context.Background(), *ci)
	require.ErrorIs(t, err, ErrOverflow)
	assert.True(t, res.Overflowed)
	assert.Empty(t, res.Steps)
}

func TestToggle_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	e := newAbacus(t, 9, 9)
	p := New(e, WithTracer(provider.Tracer("carry-test")), WithPolicy(PolicyError))

	_, err := p.Toggle(context.Background(), 1, abacus.Earth, 4)
	require.ErrorIs(t, err, ErrOverflow)

	spans := recorder.Ended()
	require.Len(t, spans, 3)

	var root sdktrace.ReadOnlySpan
	steps := 0
	for _, s := range spans {
		switch s.Name() {
		case "abacus.toggle":
			root = s
		case "abacus.step":
			steps++
		}
	}
	require.NotNil(t, root)
	assert.Equal(t, 2, steps)
	assert.Equal(t, "Error", root.Status().Code.String())
	for _, s := range spans {
		if s.Name() == "abacus.step" {
			assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID())
		}
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		input   string
		want    Policy
		wantErr bool
	}{
		{input: "", want: PolicyIgnore},
		{input: "ignore", want: PolicyIgnore},
		{input: "Saturate", want: PolicySaturate},
		{input: " error ", want: PolicyError},
		{input: "wrap", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePolicy(tt.input)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownPolicy)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestProperty_SettledAfterEveryGesture verifies that under every policy all
// rods are settled once a gesture and its carries are done.
func TestProperty_SettledAfterEveryGesture(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		rods := rapid.IntRange(1, 5).Draw(t, "rods")
		e, err := abacus.New(rods)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		policy := rapid.SampledFrom(Policies()).Draw(t, "policy")
		p := New(e, WithPolicy(policy))

		for range rapid.IntRange(1, 40).Draw(t, "steps") {
			class := rapid.SampledFrom([]abacus.BeadClass{abacus.Heaven, abacus.Earth}).Draw(t, "class")
			rod := rapid.IntRange(0, rods-1).Draw(t, "rod")
			index := rapid.IntRange(0, class.Beads()-1).Draw(t, "index")

			res, err := p.Toggle(context.Background(), rod, class, index)
			if err != nil && !errors.Is(err, ErrOverflow) {
				t.Fatalf("Toggle: %v", err)
			}
			if errors.Is(err, ErrOverflow) && !res.Overflowed {
				t.Fatalf("overflow error without Overflowed flag")
			}
			for i, r := range e.States() {
				if !r.Settled() {
					t.Fatalf("rod %d not settled: %s", i, r)
				}
			}
			if res.Value != e.Value() {
				t.Fatalf("result value %d, engine %d", res.Value, e.Value())
			}
		}
	})
}
