// Package frontend is a small recursive-descent front end that turns
// literal source text into an *ast.Node tree, so the CLI and the
// end-to-end scenarios can be driven from text instead of hand-built
// trees. It is deliberately minimal: expressions, typed variable and
// function declarations, if/while, return/break/continue and blocks (a
// subset of the statement forms the evaluator dispatches over), and no
// more operator-precedence exhaustiveness than a short program needs.
package frontend

import (
	"fmt"
	"strconv"
	"strings"
)

type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokFloat
	tokString
	tokChar
	tokKeyword
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	line int
}

var keywords = map[string]bool{
	"var": true, "if": true, "else": true, "while": true, "do": true,
	"for": true, "return": true, "break": true, "continue": true,
	"true": true, "false": true, "func": true, "null": true,
	"int": true, "long": true, "double": true, "bool": true,
	"string": true, "object": true,
}

// lexer turns source text into a flat token stream. It has no
// lookahead of its own; the parser drives it one token at a time.
type lexer struct {
	src  string
	pos  int
	line int
}

func newLexer(src string) *lexer {
	return &lexer{src: src, line: 1}
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) byteAt(off int) byte {
	if l.pos+off >= len(l.src) {
		return 0
	}
	return l.src[l.pos+off]
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n':
			l.line++
			l.pos++
		case c == ' ' || c == '\t' || c == '\r':
			l.pos++
		case c == '/' && l.byteAt(1) == '/':
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.pos++
			}
		case c == '/' && l.byteAt(1) == '*':
			l.pos += 2
			for l.pos < len(l.src) && !(l.src[l.pos] == '*' && l.byteAt(1) == '/') {
				if l.src[l.pos] == '\n' {
					l.line++
				}
				l.pos++
			}
			l.pos += 2
		default:
			return
		}
	}
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
func isIdentCont(c byte) bool { return isIdentStart(c) || isDigit(c) }

// next consumes and returns the next token.
func (l *lexer) next() (token, error) {
	l.skipSpaceAndComments()
	line := l.line
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, line: line}, nil
	}

	c := l.src[l.pos]

	if isIdentStart(c) {
		start := l.pos
		for l.pos < len(l.src) && isIdentCont(l.src[l.pos]) {
			l.pos++
		}
		text := l.src[start:l.pos]
		if keywords[text] {
			return token{kind: tokKeyword, text: text, line: line}, nil
		}
		return token{kind: tokIdent, text: text, line: line}, nil
	}

	if isDigit(c) {
		start := l.pos
		isFloat := false
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
		if l.peekByte() == '.' && isDigit(l.byteAt(1)) {
			isFloat = true
			l.pos++
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
		text := l.src[start:l.pos]
		if isFloat {
			return token{kind: tokFloat, text: text, line: line}, nil
		}
		return token{kind: tokInt, text: text, line: line}, nil
	}

	if c == '"' {
		l.pos++
		var sb strings.Builder
		for l.pos < len(l.src) && l.src[l.pos] != '"' {
			ch := l.src[l.pos]
			if ch == '\\' && l.pos+1 < len(l.src) {
				l.pos++
				switch l.src[l.pos] {
				case 'n':
					sb.WriteByte('\n')
				case 't':
					sb.WriteByte('\t')
				case '"':
					sb.WriteByte('"')
				case '\\':
					sb.WriteByte('\\')
				default:
					sb.WriteByte(l.src[l.pos])
				}
				l.pos++
				continue
			}
			sb.WriteByte(ch)
			l.pos++
		}
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("line %d: unterminated string literal", line)
		}
		l.pos++ // closing quote
		return token{kind: tokString, text: sb.String(), line: line}, nil
	}

	if c == '\'' {
		l.pos++
		if l.pos >= len(l.src) {
			return token{}, fmt.Errorf("line %d: unterminated char literal", line)
		}
		ch := l.src[l.pos]
		l.pos++
		if l.peekByte() != '\'' {
			return token{}, fmt.Errorf("line %d: unterminated char literal", line)
		}
		l.pos++
		return token{kind: tokChar, text: string(ch), line: line}, nil
	}

	// Two-byte operators before their one-byte prefixes.
	for _, p := range []string{"==", "!=", "<=", ">=", "&&", "||", "+=", "-=", "*=", "/="} {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += 2
			return token{kind: tokPunct, text: p, line: line}, nil
		}
	}

	switch c {
	case '+', '-', '*', '/', '%', '(', ')', '{', '}', ';', ',', '=', '<', '>', '!', '.':
		l.pos++
		return token{kind: tokPunct, text: string(c), line: line}, nil
	}

	return token{}, fmt.Errorf("line %d: unexpected character %q", line, c)
}

func mustParseInt(s string) int64 {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func mustParseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
