package frontend

import (
	"fmt"

	"github.com/kestrel-run/kestrel/ast"
	"github.com/kestrel-run/kestrel/values"
)

// Parse lexes and parses src into a single *ast.Node tree rooted at a
// Block, ready for runtime.Sandbox.Interpret.
func Parse(src string) (*ast.Node, error) {
	p := &parser{lex: newLexer(src)}
	if err := p.advance(); err != nil {
		return nil, err
	}

	var stmts []*ast.Node
	for p.tok.kind != tokEOF {
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return &ast.Node{Kind: ast.Block, Children: stmts}, nil
}

type parser struct {
	lex *lexer
	tok token
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) errf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", p.tok.line, fmt.Sprintf(format, args...))
}

func (p *parser) atPunct(s string) bool {
	return p.tok.kind == tokPunct && p.tok.text == s
}

func (p *parser) atKeyword(s string) bool {
	return p.tok.kind == tokKeyword && p.tok.text == s
}

func (p *parser) expectPunct(s string) error {
	if !p.atPunct(s) {
		return p.errf("expected %q, found %q", s, p.tok.text)
	}
	return p.advance()
}

func (p *parser) expectIdent() (string, error) {
	if p.tok.kind != tokIdent {
		return "", p.errf("expected identifier, found %q", p.tok.text)
	}
	name := p.tok.text
	return name, p.advance()
}

var typeKinds = map[string]values.Kind{
	"int": values.Int, "long": values.Long, "double": values.Double,
	"bool": values.Bool, "string": values.String, "object": values.Object,
}

func (p *parser) atTypeKeyword() bool {
	if p.tok.kind != tokKeyword {
		return false
	}
	_, ok := typeKinds[p.tok.text]
	return ok
}

func (p *parser) parseType() (values.Kind, error) {
	if !p.atTypeKeyword() {
		return 0, p.errf("expected a type keyword, found %q", p.tok.text)
	}
	k := typeKinds[p.tok.text]
	return k, p.advance()
}

// parseStatement parses one of the statement forms (spec §4.8):
// variable declarations, if/while, return/break/continue, blocks,
// function declarations, and expression statements.
func (p *parser) parseStatement() (*ast.Node, error) {
	switch {
	case p.atKeyword("var"):
		return p.parseVarDecl()
	case p.atKeyword("func"):
		return p.parseFuncDecl()
	case p.atKeyword("if"):
		return p.parseIf()
	case p.atKeyword("while"):
		return p.parseWhile()
	case p.atKeyword("return"):
		return p.parseReturn()
	case p.atKeyword("break"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Break}, p.expectPunct(";")
	case p.atKeyword("continue"):
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Continue}, p.expectPunct(";")
	case p.atPunct("{"):
		return p.parseBlock()
	default:
		expr, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return expr, p.expectPunct(";")
	}
}

func (p *parser) parseBlock() (*ast.Node, error) {
	if err := p.expectPunct("{"); err != nil {
		return nil, err
	}
	var stmts []*ast.Node
	for !p.atPunct("}") {
		if p.tok.kind == tokEOF {
			return nil, p.errf("unexpected end of input inside block")
		}
		s, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, s)
	}
	return &ast.Node{Kind: ast.Block, Children: stmts}, p.advance()
}

func (p *parser) parseVarDecl() (*ast.Node, error) {
	if err := p.advance(); err != nil { // consume "var"
		return nil, err
	}
	declKind, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}

	n := &ast.Node{Kind: ast.VariableDecl, Name: name, DeclKind: declKind}
	if p.atPunct("=") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		init, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		n.Children = []*ast.Node{init}
	}
	return n, p.expectPunct(";")
}

func (p *parser) parseFuncDecl() (*ast.Node, error) {
	if err := p.advance(); err != nil { // consume "func"
		return nil, err
	}
	retKind, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}

	var paramNames []string
	var paramKinds []values.Kind
	for !p.atPunct(")") {
		if len(paramNames) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		k, err := p.parseType()
		if err != nil {
			return nil, err
		}
		pname, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		paramNames = append(paramNames, pname)
		paramKinds = append(paramKinds, k)
	}
	if err := p.advance(); err != nil { // consume ")"
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	fd := &ast.FunctionDecl{
		Body:          body,
		Name:          name,
		ReturnKind:    retKind,
		ParamNames:    paramNames,
		ParamKinds:    paramKinds,
		DefaultValues: make([]*ast.Node, len(paramNames)),
		ParamsIndex:   -1,
		IsPublic:      true,
	}
	return &ast.Node{Kind: ast.FunctionDecl, Name: name, Func: fd}, nil
}

func (p *parser) parseIf() (*ast.Node, error) {
	if err := p.advance(); err != nil { // consume "if"
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	then, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	children := []*ast.Node{cond, then}
	if p.atKeyword("else") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		els, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		children = append(children, els)
	}
	return &ast.Node{Kind: ast.If, Children: children}, nil
}

func (p *parser) parseWhile() (*ast.Node, error) {
	if err := p.advance(); err != nil { // consume "while"
		return nil, err
	}
	if err := p.expectPunct("("); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectPunct(")"); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.While, Children: []*ast.Node{cond, body}}, nil
}

func (p *parser) parseReturn() (*ast.Node, error) {
	if err := p.advance(); err != nil { // consume "return"
		return nil, err
	}
	if p.atPunct(";") {
		return &ast.Node{Kind: ast.Return}, p.advance()
	}
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Node{Kind: ast.Return, Children: []*ast.Node{expr}}, p.expectPunct(";")
}

// parseExpr is the lowest expression precedence: assignment.
func (p *parser) parseExpr() (*ast.Node, error) {
	lhs, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.atPunct("=") {
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.Assign, Children: []*ast.Node{lhs, rhs}}, nil
	}
	for _, op := range []string{"+=", "-=", "*=", "/="} {
		if p.atPunct(op) {
			if err := p.advance(); err != nil {
				return nil, err
			}
			rhs, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			return &ast.Node{Kind: ast.CompoundAssign, Op: op, Children: []*ast.Node{lhs, rhs}}, nil
		}
	}
	return lhs, nil
}

func (p *parser) parseLogicalOr() (*ast.Node, error) {
	return p.parseBinaryLevel([]string{"||"}, (*parser).parseLogicalAnd)
}

func (p *parser) parseLogicalAnd() (*ast.Node, error) {
	return p.parseBinaryLevel([]string{"&&"}, (*parser).parseEquality)
}

func (p *parser) parseEquality() (*ast.Node, error) {
	return p.parseBinaryLevel([]string{"==", "!="}, (*parser).parseRelational)
}

func (p *parser) parseRelational() (*ast.Node, error) {
	return p.parseBinaryLevel([]string{"<", ">", "<=", ">="}, (*parser).parseAdditive)
}

func (p *parser) parseAdditive() (*ast.Node, error) {
	return p.parseBinaryLevel([]string{"+", "-"}, (*parser).parseMultiplicative)
}

func (p *parser) parseMultiplicative() (*ast.Node, error) {
	return p.parseBinaryLevel([]string{"*", "/", "%"}, (*parser).parseUnary)
}

// parseBinaryLevel implements one left-associative precedence level,
// parameterized over the operator set and the next-tighter level.
func (p *parser) parseBinaryLevel(ops []string, next func(*parser) (*ast.Node, error)) (*ast.Node, error) {
	lhs, err := next(p)
	if err != nil {
		return nil, err
	}
	for {
		matched := ""
		for _, op := range ops {
			if p.atPunct(op) {
				matched = op
				break
			}
		}
		if matched == "" {
			return lhs, nil
		}
		if err := p.advance(); err != nil {
			return nil, err
		}
		rhs, err := next(p)
		if err != nil {
			return nil, err
		}
		lhs = &ast.Node{Kind: ast.BinOp, Op: matched, Children: []*ast.Node{lhs, rhs}}
	}
}

func (p *parser) parseUnary() (*ast.Node, error) {
	if p.atPunct("-") || p.atPunct("!") || p.atPunct("+") {
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.Node{Kind: ast.UnaryOp, Op: op, Children: []*ast.Node{operand}}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (*ast.Node, error) {
	switch {
	case p.tok.kind == tokInt:
		v := mustParseInt(p.tok.text)
		n := &ast.Node{Kind: ast.Literal, LitValue: v, LitKind: values.Long}
		return n, p.advance()
	case p.tok.kind == tokFloat:
		v := mustParseFloat(p.tok.text)
		n := &ast.Node{Kind: ast.Literal, LitValue: v, LitKind: values.Double}
		return n, p.advance()
	case p.tok.kind == tokString:
		n := &ast.Node{Kind: ast.Literal, LitValue: p.tok.text, LitKind: values.String}
		return n, p.advance()
	case p.tok.kind == tokChar:
		n := &ast.Node{Kind: ast.Literal, LitValue: rune(p.tok.text[0]), LitKind: values.Char}
		return n, p.advance()
	case p.atKeyword("true"):
		return &ast.Node{Kind: ast.Literal, LitValue: true, LitKind: values.Bool}, p.advance()
	case p.atKeyword("false"):
		return &ast.Node{Kind: ast.Literal, LitValue: false, LitKind: values.Bool}, p.advance()
	case p.atPunct("("):
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		return inner, p.expectPunct(")")
	case p.tok.kind == tokIdent:
		name := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.atPunct("(") {
			return p.parseCallArgs(name)
		}
		return &ast.Node{Kind: ast.VariableRef, Name: name}, nil
	default:
		return nil, p.errf("unexpected token %q", p.tok.text)
	}
}

func (p *parser) parseCallArgs(name string) (*ast.Node, error) {
	if err := p.advance(); err != nil { // consume "("
		return nil, err
	}
	var args []*ast.Node
	for !p.atPunct(")") {
		if len(args) > 0 {
			if err := p.expectPunct(","); err != nil {
				return nil, err
			}
		}
		a, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	if err := p.advance(); err != nil { // consume ")"
		return nil, err
	}
	return &ast.Node{Kind: ast.Call, Name: name, Args: args}, nil
}
