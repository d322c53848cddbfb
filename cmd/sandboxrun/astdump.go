package main

import (
	"fmt"
	"strings"

	"github.com/kestrel-run/kestrel/ast"
)

var nodeKindNames = map[ast.NodeKind]string{
	ast.Literal: "Literal", ast.VariableRef: "VariableRef", ast.VariableDecl: "VariableDecl",
	ast.UnaryOp: "UnaryOp", ast.BinOp: "BinOp", ast.Conditional: "Conditional",
	ast.ArrayIndex: "ArrayIndex", ast.ArrayLiteral: "ArrayLiteral", ast.CollectionExpr: "CollectionExpr",
	ast.TupleLiteral: "TupleLiteral", ast.NewArray: "NewArray", ast.NewStruct: "NewStruct",
	ast.NewDictionary: "NewDictionary", ast.Cast: "Cast", ast.As: "As",
	ast.If: "If", ast.While: "While", ast.DoWhile: "DoWhile", ast.For: "For",
	ast.Foreach: "Foreach", ast.Switch: "Switch", ast.SwitchExpr: "SwitchExpr",
	ast.TryCatchFinally: "TryCatchFinally", ast.Throw: "Throw", ast.Return: "Return",
	ast.Break: "Break", ast.Continue: "Continue", ast.Goto: "Goto", ast.GotoCase: "GotoCase",
	ast.Label: "Label", ast.Block: "Block", ast.StatementList: "StatementList",
	ast.FunctionDecl: "FunctionDecl", ast.Call: "Call", ast.Lambda: "Lambda",
	ast.EnumDecl: "EnumDecl", ast.StructDecl: "StructDecl", ast.ClassDecl: "ClassDecl",
	ast.InterfaceDecl: "InterfaceDecl", ast.NamespaceDecl: "NamespaceDecl", ast.Using: "Using",
	ast.FieldAccess: "FieldAccess", ast.Assign: "Assign", ast.CompoundAssign: "CompoundAssign",
	ast.PatternMatch: "PatternMatch",
}

// dumpTree renders n and its children as an indented outline, naming
// each node's kind plus whatever of Name/Op/LitValue it carries.
func dumpTree(n *ast.Node, depth int) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	indent := strings.Repeat("  ", depth)

	label := nodeKindNames[n.Kind]
	if label == "" {
		label = fmt.Sprintf("Kind(%d)", n.Kind)
	}

	extra := ""
	switch {
	case n.Kind == ast.Literal:
		extra = fmt.Sprintf(" = %v", n.LitValue)
	case n.Name != "":
		extra = " " + n.Name
	case n.Op != "":
		extra = " " + n.Op
	}

	sb.WriteString(indent + label + extra + "\n")

	if n.Func != nil {
		sb.WriteString(dumpTree(n.Func.Body, depth+1))
	}
	for _, c := range n.Args {
		sb.WriteString(dumpTree(c, depth+1))
	}
	for _, c := range n.Children {
		sb.WriteString(dumpTree(c, depth+1))
	}
	return sb.String()
}
