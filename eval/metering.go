package eval

import (
	"context"

	sberrors "github.com/kestrel-run/kestrel/errors"
)

const (
	maxOperations = 100_000_000
	maxCallDepth  = 512
	checkInterval = 1024
)

// Meter tracks the operation counter, call-depth counter, and
// cancellation signal shared by every node evaluation (spec §4.6
// "Metering").
type Meter struct {
	ctx           context.Context
	capsChecker   func() error
	ops           uint64
	callDepth     int
	maxOperations uint64
	maxCallDepth  int
}

// NewMeter builds a Meter observing ctx's cancellation, using the
// default operation-count and call-depth caps.
func NewMeter(ctx context.Context) *Meter {
	return NewMeterWithLimits(ctx, maxOperations, maxCallDepth)
}

// NewMeterWithLimits builds a Meter with host-supplied caps, letting an
// embedder tighten or loosen the defaults via runtime.Config.
func NewMeterWithLimits(ctx context.Context, maxOps uint64, maxDepth int) *Meter {
	if ctx == nil {
		ctx = context.Background()
	}
	if maxOps == 0 {
		maxOps = maxOperations
	}
	if maxDepth == 0 {
		maxDepth = maxCallDepth
	}
	return &Meter{ctx: ctx, maxOperations: maxOps, maxCallDepth: maxDepth}
}

// SetCapsChecker registers the callback Check uses to periodically
// re-validate scope and variable caps (spec §4.6 clause (c)). The
// runtime wires this to the Sandbox's scope stack; Meters built without
// one (e.g. in package-local tests) simply skip the periodic recheck.
func (m *Meter) SetCapsChecker(fn func() error) {
	m.capsChecker = fn
}

// Check is called at every node evaluation, loop iteration, and
// composite-data inner loop: tests cancellation, increments the
// operation counter, and every checkInterval operations re-validates
// scope and variable caps (spec §4.6).
func (m *Meter) Check() error {
	select {
	case <-m.ctx.Done():
		return sberrors.Cancelled(sberrors.PhaseEval)
	default:
	}

	m.ops++
	if m.ops > m.maxOperations {
		return sberrors.ResourceExhausted(sberrors.PhaseEval, "operation count", int(m.maxOperations))
	}

	if m.capsChecker != nil && m.ops%checkInterval == 0 {
		if err := m.capsChecker(); err != nil {
			return err
		}
	}
	return nil
}

// EnterCall increments the call-depth counter; exceeding the cap
// raises StackOverflow (spec §4.6).
func (m *Meter) EnterCall() error {
	m.callDepth++
	if m.callDepth > m.maxCallDepth {
		return sberrors.StackOverflow(sberrors.PhaseEval, "call depth exceeded %d", m.maxCallDepth)
	}
	return nil
}

// ExitCall decrements the call-depth counter.
func (m *Meter) ExitCall() {
	if m.callDepth > 0 {
		m.callDepth--
	}
}

// Operations returns the cumulative operation count, for diagnostics.
func (m *Meter) Operations() uint64 { return m.ops }
