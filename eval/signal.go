// Package eval implements the tree-walking evaluator: dispatch over
// the closed AST node set, metered execution, and the three-state
// execution model (spec §4.8 "Evaluator", §4.10 "State Machine").
package eval

import "github.com/kestrel-run/kestrel/values"

// SignalKind distinguishes the non-local control-flow values the
// evaluator threads through node results instead of using host
// exceptions (spec §4.8 "Signals", §9 "Exceptions for control flow").
type SignalKind uint8

const (
	SigNone SignalKind = iota
	SigReturn
	SigBreak
	SigContinue
	SigGotoCase
	SigGoto
)

// Signal carries a non-local control-flow result alongside a node's
// evaluated Value. A controlling node (loop, switch, function body)
// intercepts the signal kinds it owns and clears them back to SigNone
// before continuing; unrecognized signals propagate to the caller.
type Signal struct {
	Kind    SignalKind
	Value   values.Value
	PinKey  uint32 // set for SigReturn when Value is a pinned reference-kind
	HasPin  bool
	Label   string // Goto/Label target, or GotoCase's case label
}
