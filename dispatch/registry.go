package dispatch

import (
	"strings"

	sberrors "github.com/kestrel-run/kestrel/errors"
)

// Registry is the dispatcher's function/variable registry: a root
// Namespace plus the ambient-namespace and import stacks used for
// name resolution (spec §4.9 "Name resolution").
type Registry struct {
	Root *Namespace

	ambient []string // stack of namespace segments prepended by enclosing Namespace nodes
	imports []string // namespaces brought into scope by `using`
}

// NewRegistry builds an empty Registry.
func NewRegistry() *Registry {
	return &Registry{Root: NewNamespace()}
}

// PushAmbient prepends name to the ambient namespace for the duration
// of evaluating a Namespace node's members (spec §4.8 "Namespaces").
func (r *Registry) PushAmbient(name string) { r.ambient = append(r.ambient, name) }

// PopAmbient undoes the most recent PushAmbient.
func (r *Registry) PopAmbient() {
	if len(r.ambient) > 0 {
		r.ambient = r.ambient[:len(r.ambient)-1]
	}
}

// AmbientPath returns the current dotted ambient-namespace path, used
// by the evaluator to register a FunctionDecl under its enclosing
// Namespace node (spec §4.8 "Namespaces").
func (r *Registry) AmbientPath() string { return strings.Join(r.ambient, ".") }

// AddImport adds a namespace prefix to the resolution set (spec §4.8
// "Using ... adds a namespace import to the resolution set").
func (r *Registry) AddImport(ns string) { r.imports = append(r.imports, ns) }

// Define registers c under the given dotted namespace path (e.g.
// "app.math"), at the root.
func (r *Registry) Define(namespacePath string, c *Candidate) {
	ns := r.Root
	if namespacePath != "" {
		for _, seg := range strings.Split(namespacePath, ".") {
			ns = ns.Instance(seg)
		}
	}
	ns.Define(c)
}

// LookupBinding resolves name to its overload set using spec §4.9's
// order: fully qualified name, then each ancestor of the ambient
// namespace, then each imported namespace prefix. The first match wins.
func (r *Registry) LookupBinding(name string) (*Binding, error) {
	if b := r.Root.Func(name); b != nil {
		return b, nil
	}
	if i := strings.LastIndex(name, "."); i > 0 {
		if ns := r.navigate(name[:i]); ns != nil {
			if b := ns.Func(name[i+1:]); b != nil {
				return b, nil
			}
		}
	}

	for i := len(r.ambient); i > 0; i-- {
		prefix := strings.Join(r.ambient[:i], ".")
		if ns := r.navigate(prefix); ns != nil {
			if b := ns.Func(name); b != nil {
				return b, nil
			}
		}
	}

	for _, imp := range r.imports {
		if ns := r.navigate(imp); ns != nil {
			if b := ns.Func(name); b != nil {
				return b, nil
			}
		}
	}

	return nil, sberrors.NameError(sberrors.PhaseDispatch, name, "undeclared function or native callback")
}

func (r *Registry) navigate(path string) *Namespace {
	ns := r.Root
	for _, seg := range strings.Split(path, ".") {
		ns = ns.Child(seg)
		if ns == nil {
			return nil
		}
	}
	return ns
}

// InvokeByAttribute implements spec §4.9: pick the first user function
// whose attribute list contains an entry matching (name, attrArgs) and
// whose signature accepts callArgs after parameter mapping and casting.
func (r *Registry) InvokeByAttribute(attrName string, attrArgs []string, callArgs []Arg) (*Candidate, []any) {
	var found []*Candidate
	r.walkAll(r.Root, &found)

	for _, c := range found {
		for _, a := range c.Attributes {
			if a.Name != attrName {
				continue
			}
			if !attrArgsMatch(a.Args, attrArgs) {
				continue
			}
			if _, _, err := Resolve([]*Candidate{c}, callArgs); err == nil {
				return c, a.Args
			}
		}
	}
	return nil, nil
}

func (r *Registry) walkAll(ns *Namespace, out *[]*Candidate) {
	for _, b := range ns.AllFuncs() {
		*out = append(*out, b.Candidates...)
	}
	for _, child := range ns.AllChildren() {
		r.walkAll(child, out)
	}
}

func attrArgsMatch(attrArgs []any, want []string) bool {
	if len(attrArgs) != len(want) {
		return false
	}
	for i, a := range attrArgs {
		s, ok := a.(string)
		if !ok || s != want[i] {
			return false
		}
	}
	return true
}
