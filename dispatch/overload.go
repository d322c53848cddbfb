package dispatch

import (
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/values"
)

// Arg is one call-site argument: positional (Name == "") or named.
type Arg struct {
	Name  string
	Value values.Value
}

// Resolve picks the best-matching candidate from an overload set for
// the given arguments, per spec §4.9 "Overload resolution".
func Resolve(candidates []*Candidate, args []Arg) (*Candidate, []values.Value, error) {
	type scored struct {
		cand   *Candidate
		bound  []values.Value
		score  int
		nObj   int
	}

	var best *scored
	var tied []*scored

	for _, c := range candidates {
		bound, objCount, ok := bindAndScore(c, args)
		if !ok {
			continue
		}
		s := &scored{cand: c, bound: bound.values, score: bound.score, nObj: objCount}
		if best == nil || s.score > best.score {
			best = s
			tied = []*scored{s}
		} else if s.score == best.score {
			tied = append(tied, s)
		}
	}

	if best == nil {
		return nil, nil, sberrors.NoMatch(sberrors.PhaseDispatch, "no overload matches the supplied arguments")
	}

	// Ties broken by preferring fewer Object parameters.
	winner := tied[0]
	for _, t := range tied[1:] {
		if t.nObj < winner.nObj {
			winner = t
		}
	}
	return winner.cand, winner.bound, nil
}

type boundArgs struct {
	values []values.Value
	score  int
}

// bindAndScore maps positional+named arguments to c's parameters,
// packs any params-tail, and scores the binding. Returns ok=false if
// the candidate is not viable (missing required argument, named arg
// misuse, or a kind that cannot convert).
func bindAndScore(c *Candidate, args []Arg) (boundArgs, int, bool) {
	n := len(c.Params)
	slots := make([]*values.Value, n)
	slotSet := make([]bool, n)

	seenNamed := false
	var positional []Arg
	for _, a := range args {
		if a.Name != "" {
			seenNamed = true
		} else if seenNamed {
			// Named arguments cannot be followed by positional.
			return boundArgs{}, 0, false
		} else {
			positional = append(positional, a)
		}
	}

	// Named arguments first: cannot target the params tail, cannot repeat.
	for _, a := range args {
		if a.Name == "" {
			continue
		}
		idx := -1
		for i, p := range c.Params {
			if p.Name == a.Name {
				idx = i
				break
			}
		}
		if idx < 0 || idx == c.ParamsIndex || slotSet[idx] {
			return boundArgs{}, 0, false
		}
		v := a.Value
		slots[idx] = &v
		slotSet[idx] = true
	}

	// Positional arguments, collecting any residual into the params tail.
	var tail []values.Value
	pi := 0
	for i := 0; i < n; i++ {
		if i == c.ParamsIndex {
			continue
		}
		if slotSet[i] {
			continue
		}
		if pi < len(positional) {
			v := positional[pi].Value
			slots[i] = &v
			slotSet[i] = true
			pi++
		}
	}
	for ; pi < len(positional); pi++ {
		tail = append(tail, positional[pi].Value)
	}

	// Every parameter without a default must have a bound argument.
	for i, p := range c.Params {
		if i == c.ParamsIndex {
			continue
		}
		if !slotSet[i] && !p.HasDefault {
			return boundArgs{}, 0, false
		}
	}

	score := 0
	objCount := 0
	bound := make([]values.Value, n)
	for i, p := range c.Params {
		if i == c.ParamsIndex {
			continue
		}
		var v values.Value
		if slotSet[i] {
			v = *slots[i]
		} else {
			v = p.Default
		}
		s, ok := scoreParam(v, p.Kind)
		if !ok {
			return boundArgs{}, 0, false
		}
		score += s
		if p.Kind == values.Object {
			objCount++
		}
		bound[i] = v
	}

	if c.ParamsIndex >= 0 {
		elemKind := commonUpperBound(tail)
		bound[c.ParamsIndex] = values.Value{Kind: values.Array, I: int64(len(tail))} // placeholder; heap allocation happens in the caller
		score += 1
		_ = elemKind
	}

	return boundArgs{values: bound, score: score}, objCount, true
}

// scoreParam implements spec §4.9 step 3: exact=3, Object target=1,
// null-to-Object=2, convertible via cast=0, otherwise reject.
func scoreParam(v values.Value, target values.Kind) (int, bool) {
	if v.Kind == target {
		return 3, true
	}
	if target == values.Object {
		if values.IsReferenceKind(v.Kind) && v.IsNull() {
			return 2, true
		}
		return 1, true
	}
	if values.IsNumericKind(v.Kind) && values.IsNumericKind(target) {
		return 0, true
	}
	if v.Kind == values.String || target == values.String {
		return 0, true
	}
	return 0, false
}

// commonUpperBound finds the params-tail element kind: Double if
// numerics mix, else Object for a heterogeneous residual (spec §4.9
// "Params tail").
func commonUpperBound(vals []values.Value) values.Kind {
	if len(vals) == 0 {
		return values.Object
	}
	first := vals[0].Kind
	allSame := true
	allNumeric := true
	for _, v := range vals {
		if v.Kind != first {
			allSame = false
		}
		if !values.IsNumericKind(v.Kind) {
			allNumeric = false
		}
	}
	if allSame {
		return first
	}
	if allNumeric {
		return values.Double
	}
	return values.Object
}
