// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import (
	"fmt"

	"github.com/probechain/probe-lang/lang/ast"
	"github.com/probechain/probe-lang/lang/types"
)

// CheckLinearity runs types.LinearChecker over every function body in prog
// as a best-effort diagnostic pass, independent of Generate: it flags
// resource bindings that are never consumed or used twice, the way
// SPEC_FULL.md's move/drop discipline requires, even though the bytecode
// compiler itself has no type checker and will happily emit code for a
// program that violates it. A binding is treated as a linear resource when
// its let declares an explicit type annotation ending in "Resource" — the
// one naming convention this front end uses to mark linear types, since
// there is no general type-inference pass to derive it structurally.
//
// Violations are returned as human-readable strings, not errors: callers
// (cmd/probec's build subcommand) report them as warnings and continue,
// matching the "independent of the compiler" framing in linear.go's
// package doc.
func CheckLinearity(prog *ast.Program) []string {
	var msgs []string
	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.FnDecl:
			msgs = append(msgs, checkFnLinearity(decl.Name, decl)...)
		case *ast.ClassDecl:
			for i := range decl.Methods {
				name := decl.Name + "::" + decl.Methods[i].Name
				msgs = append(msgs, checkFnLinearity(name, &decl.Methods[i])...)
			}
		case *ast.ImplDecl:
			for i := range decl.Methods {
				name := decl.TypeName + "::" + decl.Methods[i].Name
				msgs = append(msgs, checkFnLinearity(name, &decl.Methods[i])...)
			}
		}
	}
	return msgs
}

func checkFnLinearity(fnName string, decl *ast.FnDecl) []string {
	scope := types.NewFnScope(fnName)
	lc := scope.Checker
	var msgs []string

	for _, p := range decl.Params {
		if isResourceType(p.Type) {
			lc.Bind(p.Name, &types.ResourceType{Name: typeName(p.Type)})
		}
	}
	if decl.Body != nil {
		walkLinearStmts(lc, decl.Body.Statements, &msgs)
		if decl.Body.Tail != nil {
			walkLinearExpr(lc, decl.Body.Tail, &msgs)
		}
	}

	for _, e := range lc.CheckAllConsumed() {
		msgs = append(msgs, e.Error())
	}
	for i, m := range msgs {
		msgs[i] = fmt.Sprintf("%s: %s", fnName, m)
	}
	return msgs
}

func walkLinearStmts(lc *types.LinearChecker, stmts []ast.Statement, msgs *[]string) {
	for _, s := range stmts {
		switch st := s.(type) {
		case *ast.LetStmt:
			if st.Value != nil {
				walkLinearExpr(lc, st.Value, msgs)
			}
			if isResourceType(st.Type) {
				lc.Bind(st.Name.Value, &types.ResourceType{Name: typeName(st.Type)})
			}
		case *ast.ExprStmt:
			walkLinearExpr(lc, st.Expression, msgs)
		case *ast.AssignStmt:
			walkLinearExpr(lc, st.Value, msgs)
		case *ast.ReturnStmt:
			if st.Value != nil {
				walkLinearExpr(lc, st.Value, msgs)
			}
		case *ast.DropStmt:
			if err := lc.Drop(st.Value.Value); err != nil {
				*msgs = append(*msgs, err.Error())
			}
		case *ast.RequireStmt:
			walkLinearExpr(lc, st.Condition, msgs)
		case *ast.WhileStmt:
			walkLinearExpr(lc, st.Condition, msgs)
			walkLinearStmts(lc, st.Body.Statements, msgs)
		case *ast.ForStmt:
			walkLinearExpr(lc, st.Iterable, msgs)
			walkLinearStmts(lc, st.Body.Statements, msgs)
		case *ast.TryStmt:
			walkLinearStmts(lc, st.Body.Statements, msgs)
			for _, ex := range st.Excepts {
				walkLinearStmts(lc, ex.Body.Statements, msgs)
			}
			if st.Finally != nil {
				walkLinearStmts(lc, st.Finally.Statements, msgs)
			}
		case *ast.RaiseStmt:
			walkLinearExpr(lc, st.Value, msgs)
		}
	}
}

// walkLinearExpr only descends into the handful of expression shapes that
// can contain a move/use of a resource binding; it is not a full
// expression-tree walk since arithmetic/comparison subexpressions never
// touch linear bindings in this language.
func walkLinearExpr(lc *types.LinearChecker, e ast.Expression, msgs *[]string) {
	switch ex := e.(type) {
	case *ast.MoveExpr:
		if id, ok := ex.Value.(*ast.Ident); ok {
			if err := lc.Use(id.Value); err != nil {
				*msgs = append(*msgs, err.Error())
			}
		}
	case *ast.CallExpr:
		for _, a := range ex.Arguments {
			walkLinearExpr(lc, a, msgs)
		}
	case *ast.MethodCallExpr:
		walkLinearExpr(lc, ex.Receiver, msgs)
		for _, a := range ex.Arguments {
			walkLinearExpr(lc, a, msgs)
		}
	case *ast.BlockExpr:
		walkLinearStmts(lc, ex.Statements, msgs)
		if ex.Tail != nil {
			walkLinearExpr(lc, ex.Tail, msgs)
		}
	case *ast.IfExpr:
		walkLinearExpr(lc, ex.Condition, msgs)
		walkLinearStmts(lc, ex.Consequence.Statements, msgs)
		if ex.Consequence.Tail != nil {
			walkLinearExpr(lc, ex.Consequence.Tail, msgs)
		}
		if ex.Alternative != nil {
			walkLinearExpr(lc, ex.Alternative, msgs)
		}
	}
}

func isResourceType(t ast.TypeExpr) bool {
	nt, ok := t.(*ast.NamedType)
	if !ok {
		return false
	}
	return len(nt.Name) > len("Resource") && nt.Name[len(nt.Name)-len("Resource"):] == "Resource"
}

func typeName(t ast.TypeExpr) string {
	if nt, ok := t.(*ast.NamedType); ok {
		return nt.Name
	}
	return ""
}
