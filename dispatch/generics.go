package dispatch

import (
	sberrors "github.com/kestrel-run/kestrel/errors"
	"github.com/kestrel-run/kestrel/values"
)

// BindGenerics resolves each of cand's generic type parameters to a
// concrete Kind: explicit type arguments are used positionally when
// supplied; otherwise a parameter is inferred from the argument kind
// at any formal parameter declared Object (spec §4.9 "Generics").
// Constraints are checked once a kind is chosen.
func BindGenerics(cand *Candidate, explicit []values.Kind, bound []values.Value) (map[string]values.Kind, error) {
	result := make(map[string]values.Kind, len(cand.Generics))

	for i, gp := range cand.Generics {
		var kind values.Kind
		if i < len(explicit) {
			kind = explicit[i]
		} else {
			inferred, ok := inferGenericKind(cand, gp.Name, bound)
			if !ok {
				return nil, sberrors.NameError(sberrors.PhaseDispatch, gp.Name, "could not infer generic type parameter")
			}
			kind = inferred
		}
		if !satisfiesConstraint(kind, gp.Constraint) {
			return nil, sberrors.TypeMismatch(sberrors.PhaseDispatch, nil,
				"type argument %s does not satisfy constraint %q for %s", kind, gp.Constraint, gp.Name)
		}
		result[gp.Name] = kind
	}
	return result, nil
}

func inferGenericKind(cand *Candidate, name string, bound []values.Value) (values.Kind, bool) {
	for i, p := range cand.Params {
		if p.Kind == values.Object && i < len(bound) {
			return bound[i].Kind, true
		}
	}
	return 0, false
}

func satisfiesConstraint(k values.Kind, constraint string) bool {
	switch constraint {
	case "":
		return true
	case "numeric":
		return values.IsNumericKind(k)
	case "struct":
		return k == values.Struct
	case "class":
		return k == values.Class
	case "unmanaged":
		return !values.IsReferenceKind(k)
	case "notnull":
		return true // every kind passes; no value is checked for null
	default:
		return k.String() == constraint
	}
}
