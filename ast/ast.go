// Package ast defines the closed set of syntax-tree node types the
// evaluator dispatches over (spec §4.8 "Evaluator"). The lexer and
// parser that produce trees of these nodes are out-of-core
// collaborators (spec §1); this package only carries their shape.
package ast

import "github.com/kestrel-run/kestrel/values"

// NodeKind tags every node variant in the closed evaluator dispatch set.
type NodeKind uint8

const (
	Literal NodeKind = iota
	VariableRef
	VariableDecl
	UnaryOp
	BinOp
	Conditional
	ArrayIndex
	ArrayLiteral
	CollectionExpr
	TupleLiteral
	NewArray
	NewStruct
	NewDictionary
	Cast
	As
	If
	While
	DoWhile
	For
	Foreach
	Switch
	SwitchExpr
	TryCatchFinally
	Throw
	Return
	Break
	Continue
	Goto
	GotoCase
	Label
	Block
	StatementList
	FunctionDecl
	Call
	Lambda
	EnumDecl
	StructDecl
	ClassDecl
	InterfaceDecl
	NamespaceDecl
	Using
	FieldAccess
	Assign
	CompoundAssign
	PatternMatch
)

// Node is a single syntax-tree node. Only the fields relevant to Kind
// are populated; the evaluator's dispatch switch knows which.
type Node struct {
	// Scalar/general fields
	Kind     NodeKind
	Name     string
	Op       string
	Children []*Node

	// Literal
	LitKind  values.Kind
	LitValue any

	// VariableDecl / function parameters / struct fields
	DeclKind values.Kind

	// Cast / As / NewArray element kind
	TargetKind values.Kind

	// Call
	Args      []*Node
	NamedArgs map[string]*Node
	TypeArgs  []values.Kind

	// TupleLiteral: parallel to Children, "" marks a positional entry
	Names []string

	// NewDictionary: key/value expression pairs
	DictKeys   []*Node
	DictValues []*Node
	KeyKind    values.Kind

	// FunctionDecl
	Func *FunctionDecl

	// Attributes (spec §4.9 "Attribute invocation")
	Attributes []Attribute

	// Label/Goto/GotoCase target
	Label string

	// Name-lookup cache, invalidated when scope.Version() changes
	// (spec §3 "Scope version").
	cacheVersion uint64
	cacheHit     any
	cacheValid   bool

	// Pattern nodes
	Pattern *Pattern

	// Switch / SwitchExpr: subject is Children[0]; Cases holds the arms
	// in source order, nil Pattern marking the default arm.
	Cases []*SwitchCase
}

// SwitchCase is one arm of a Switch or SwitchExpr node.
type SwitchCase struct {
	Pattern *Pattern
	Label   string // case label target for GotoCase, "" if unlabeled
	Body    *Node
}

// Attribute is a single `[Name(args...)]` annotation on a declaration,
// used by the dispatcher's attribute-indexed invocation (spec §4.9).
type Attribute struct {
	Name string
	Args []any
}

// FunctionDecl carries everything the dispatcher needs to register and
// invoke a declared function (spec §3 "Function").
type FunctionDecl struct {
	Body          *Node
	Name          string
	ReturnKind    values.Kind
	ParamNames    []string
	ParamKinds    []values.Kind
	DefaultValues []*Node // nil entries mean "no default"
	Attributes    []Attribute
	GenericParams []GenericParam
	ParamsIndex   int // -1 when there is no variadic tail parameter
	IsPublic      bool
}

// GenericParam is a single `<T>`-style type parameter with its optional
// constraint (spec §4.9 "Generics").
type GenericParam struct {
	Name       string
	Constraint string // "", "numeric", "struct", "class", "unmanaged", "notnull", or a specific kind name
}

// Pattern is the closed set of pattern-matching node variants (spec
// §4.8 "Pattern matching").
type Pattern struct {
	Inner     *Pattern
	Left      *Pattern
	Right     *Pattern
	Guard     *Node
	BindName  string
	ConstNode *Node
	TypeKind  values.Kind
	RelOp     string
	RelValue  *Node
	PatKind   PatternKind
}

// PatternKind tags a Pattern variant.
type PatternKind uint8

const (
	PatternConstant PatternKind = iota
	PatternAny
	PatternType
	PatternDeclaration
	PatternRelational
	PatternNull
	PatternNot
	PatternAnd
	PatternOr
	PatternWhen
)

// InvalidateCache forces the next CachedLookup to miss, called by
// nodes whose name resolution must never be cached (rare).
func (n *Node) InvalidateCache() { n.cacheValid = false }

// CachedLookup returns a previously cached resolution if the scope
// version is unchanged since it was stored, else reports a miss (spec
// §3 "Scope version": "name-lookup caches on AST nodes are invalidated
// when the version changes").
func (n *Node) CachedLookup(currentVersion uint64) (any, bool) {
	if n.cacheValid && n.cacheVersion == currentVersion {
		return n.cacheHit, true
	}
	return nil, false
}

// StoreCache records a resolution against the scope version it was
// computed under.
func (n *Node) StoreCache(currentVersion uint64, hit any) {
	n.cacheVersion = currentVersion
	n.cacheHit = hit
	n.cacheValid = true
}
