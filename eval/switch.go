package eval

import (
	"github.com/kestrel-run/kestrel/ast"
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/values"
)

// evalSwitch implements the statement form: arms fall through into the
// next arm unless a Break signal is raised, and GotoCase jumps directly
// to the arm carrying the matching label (spec §4.8 "Switch").
func (e *Evaluator) evalSwitch(n *ast.Node) (values.Value, Signal, error) {
	subject, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}

	start, defaultIdx := -1, -1
	for i, c := range n.Cases {
		if c.Pattern == nil {
			defaultIdx = i
			continue
		}
		ok, err := e.matchPattern(subject, c.Pattern)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		if ok {
			start = i
			break
		}
	}
	if start < 0 {
		start = defaultIdx
	}
	if start < 0 {
		return values.Value{}, Signal{}, nil
	}

	i := start
	for i >= 0 && i < len(n.Cases) {
		v, sig, err := e.Eval(n.Cases[i].Body)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		switch sig.Kind {
		case SigBreak:
			return values.Value{}, Signal{}, nil
		case SigReturn, SigContinue:
			return v, sig, nil
		case SigGotoCase:
			target := findCaseLabel(n.Cases, sig.Label, defaultIdx)
			if target < 0 {
				return v, sig, nil
			}
			i = target
			continue
		}
		i++ // no terminating signal: fall through to the next arm
	}
	return values.Value{}, Signal{}, nil
}

func findCaseLabel(cases []*ast.SwitchCase, label string, defaultIdx int) int {
	if label == "default" {
		return defaultIdx
	}
	for i, c := range cases {
		if c.Label == label {
			return i
		}
	}
	return -1
}

// evalSwitchExpr implements the expression form: the first matching
// arm's body is evaluated and returned directly, no fallthrough (spec
// §4.8 "SwitchExpr").
func (e *Evaluator) evalSwitchExpr(n *ast.Node) (values.Value, Signal, error) {
	subject, _, err := e.Eval(n.Children[0])
	if err != nil {
		return values.Value{}, Signal{}, err
	}

	var defaultCase *ast.SwitchCase
	for _, c := range n.Cases {
		if c.Pattern == nil {
			defaultCase = c
			continue
		}
		ok, err := e.matchPattern(subject, c.Pattern)
		if err != nil {
			return values.Value{}, Signal{}, err
		}
		if ok {
			return e.Eval(c.Body)
		}
	}
	if defaultCase != nil {
		return e.Eval(defaultCase.Body)
	}
	return values.Value{}, Signal{}, sberrors.NoMatch(sberrors.PhaseEval, "switch expression matched no arm")
}
