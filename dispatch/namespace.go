package dispatch

import (
	"sync"
)

// Binding is the overload set registered under one name in a namespace
// (spec §3 "Function": "multiple callbacks under one name form an
// overload set").
type Binding struct {
	Name       string
	Candidates []*Candidate
}

// Namespace is a node in the hierarchical name tree that backs `using`
// imports and namespace-qualified calls (spec §4.9). Each node may hold
// both callable bindings and child namespaces.
type Namespace struct {
	funcs    map[string]*Binding
	children map[string]*Namespace
	parent   *Namespace
	name     string
	mu       sync.RWMutex
}

// NewNamespace creates a root namespace.
func NewNamespace() *Namespace {
	return &Namespace{
		funcs:    make(map[string]*Binding),
		children: make(map[string]*Namespace),
	}
}

func (ns *Namespace) Name() string { return ns.name }

// FullPath renders the namespace's dotted path, e.g. "app.math".
func (ns *Namespace) FullPath() string {
	if ns.parent == nil {
		return ns.name
	}
	parentPath := ns.parent.FullPath()
	if parentPath == "" {
		return ns.name
	}
	return parentPath + "." + ns.name
}

// Instance returns or creates the child namespace named name.
func (ns *Namespace) Instance(name string) *Namespace {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if child, ok := ns.children[name]; ok {
		return child
	}

	child := &Namespace{
		name:     name,
		funcs:    make(map[string]*Binding),
		children: make(map[string]*Namespace),
		parent:   ns,
	}
	ns.children[name] = child
	return child
}

// Define adds a candidate to the overload set registered under its
// name in this namespace, creating the Binding on first use.
func (ns *Namespace) Define(c *Candidate) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	b, ok := ns.funcs[c.Name]
	if !ok {
		b = &Binding{Name: c.Name}
		ns.funcs[c.Name] = b
	}
	b.Candidates = append(b.Candidates, c)
}

// Func returns the binding for name, or nil if undefined locally.
func (ns *Namespace) Func(name string) *Binding {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.funcs[name]
}

// Child returns a child namespace by name, or nil.
func (ns *Namespace) Child(name string) *Namespace {
	ns.mu.RLock()
	defer ns.mu.RUnlock()
	return ns.children[name]
}

// AllFuncs returns a snapshot of all bindings defined directly in ns.
func (ns *Namespace) AllFuncs() map[string]*Binding {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	result := make(map[string]*Binding, len(ns.funcs))
	for k, v := range ns.funcs {
		result[k] = v
	}
	return result
}

// AllChildren returns a snapshot of ns's child namespaces.
func (ns *Namespace) AllChildren() map[string]*Namespace {
	ns.mu.RLock()
	defer ns.mu.RUnlock()

	result := make(map[string]*Namespace, len(ns.children))
	for k, v := range ns.children {
		result[k] = v
	}
	return result
}
