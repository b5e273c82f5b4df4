// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import (
	"math"

	"github.com/probechain/probe-lang/lang/ast"
	"github.com/probechain/probe-lang/vm"
)

// compileExpr lowers e and returns the register holding its value.
func (fg *funcGen) compileExpr(e ast.Expression) int {
	switch ex := e.(type) {
	case *ast.IntLiteral:
		return fg.intConst(ex.Value)
	case *ast.FloatLiteral:
		return fg.constReg(vm.NewDouble(ex.Value))
	case *ast.BoolLiteral:
		dst := fg.alloc()
		v := uint16(0)
		if ex.Value {
			v = 1
		}
		fg.emit(vm.OpGetBoolean, uint16(dst), v)
		return dst
	case *ast.StringLiteral:
		return fg.stringConst(ex.Value)
	case *ast.NilLiteral:
		return fg.alloc() // fresh register defaults to Unit
	case *ast.Ident:
		return fg.compileIdent(ex)
	case *ast.PrefixExpr:
		return fg.compilePrefix(ex)
	case *ast.InfixExpr:
		return fg.compileInfix(ex)
	case *ast.IndexExpr:
		left := fg.compileExpr(ex.Left)
		idx := fg.compileExpr(ex.Index)
		dst := fg.alloc()
		fg.emit(vm.OpGetItem, uint16(dst), uint16(left), uint16(idx))
		return dst
	case *ast.FieldExpr:
		return fg.compileFieldRead(ex)
	case *ast.CallExpr:
		return fg.compileCall(ex)
	case *ast.MethodCallExpr:
		return fg.compileMethodCall(ex)
	case *ast.BlockExpr:
		return fg.compileBlock(ex)
	case *ast.IfExpr:
		return fg.compileIf(ex)
	case *ast.MatchExpr:
		return fg.compileMatch(ex)
	case *ast.ArrayExpr:
		return fg.compileArray(ex)
	case *ast.MoveExpr:
		return fg.compileExpr(ex.Value)
	case *ast.CopyExpr:
		return fg.compileExpr(ex.Value)
	case *ast.RangeExpr, *ast.SpawnExpr, *ast.SendExpr, *ast.RecvExpr:
		fg.g.errorf("%s: not supported outside of a for-loop/agent context", e.TokenLiteral())
		return fg.alloc()
	default:
		fg.g.errorf("unsupported expression: %T", e)
		return fg.alloc()
	}
}

// intConst loads a small literal with GET_INTEGER's inline immediate, or
// falls back to the readonly pool when it doesn't fit the 16-bit operand.
func (fg *funcGen) intConst(v int64) int {
	dst := fg.alloc()
	if v >= math.MinInt16 && v <= math.MaxInt16 {
		fg.emit(vm.OpGetInteger, uint16(dst), uint16(int16(v)))
		return dst
	}
	idx := len(fg.g.constants)
	fg.g.constants = append(fg.g.constants, vm.NewInteger(v))
	fg.emit(vm.OpGetReadonly, uint16(dst), uint16(idx))
	return dst
}

func (fg *funcGen) constReg(v vm.Value) int {
	idx := len(fg.g.constants)
	fg.g.constants = append(fg.g.constants, v)
	dst := fg.alloc()
	fg.emit(vm.OpGetReadonly, uint16(dst), uint16(idx))
	return dst
}

func (fg *funcGen) compileIdent(id *ast.Ident) int {
	if r, ok := fg.locals[id.Value]; ok {
		return r
	}
	if idx, ok := fg.g.functions[id.Value]; ok {
		dst := fg.alloc()
		fg.emit(vm.OpGetReadonly, uint16(dst), uint16(idx))
		return dst
	}
	if arm, ok := fg.g.enumArm[id.Value]; ok {
		classID, ok := fg.g.enums[fg.g.enumOf[id.Value]]
		if !ok {
			fg.g.errorf("variant %s: owning enum not found", id.Value)
			classID = vm.ClassDynamic
		}
		dst := fg.alloc()
		fg.emit(vm.OpBuildEnum, uint16(dst), classID, uint16(arm))
		return dst
	}
	fg.g.errorf("undefined name %s", id.Value)
	return fg.alloc()
}

// compilePrefix supports the negation/not/bitwise-not family the VM's
// arithmetic opcodes can express. `#` (length), `*` (deref) and `&`
// (address-of) have no corresponding opcode in this execution core and
// are rejected rather than silently miscompiled.
func (fg *funcGen) compilePrefix(ex *ast.PrefixExpr) int {
	switch ex.Operator {
	case "-":
		zero := fg.intConst(0)
		r := fg.compileExpr(ex.Right)
		dst := fg.alloc()
		fg.emit(vm.OpIntegerMinus, uint16(dst), uint16(zero), uint16(r))
		return dst
	case "!":
		r := fg.compileExpr(ex.Right)
		return fg.emitBinary("==", r, fg.boolConst(false))
	case "~":
		allOnes := fg.intConst(-1)
		r := fg.compileExpr(ex.Right)
		dst := fg.alloc()
		fg.emit(vm.OpIntegerXor, uint16(dst), uint16(r), uint16(allOnes))
		return dst
	default:
		fg.g.errorf("operator %s is not supported by the bytecode compiler", ex.Operator)
		return fg.compileExpr(ex.Right)
	}
}

func (fg *funcGen) boolConst(b bool) int {
	dst := fg.alloc()
	v := uint16(0)
	if b {
		v = 1
	}
	fg.emit(vm.OpGetBoolean, uint16(dst), v)
	return dst
}

func (fg *funcGen) compileInfix(ex *ast.InfixExpr) int {
	switch ex.Operator {
	case "&&":
		return fg.compileShortCircuit(ex, false)
	case "||":
		return fg.compileShortCircuit(ex, true)
	}
	l := fg.compileExpr(ex.Left)
	r := fg.compileExpr(ex.Right)
	return fg.emitBinary(ex.Operator, l, r)
}

// compileShortCircuit handles && and || without evaluating the right
// operand unless needed. shortOn is the left-hand truth value that skips
// evaluating Right: false for &&, true for ||.
func (fg *funcGen) compileShortCircuit(ex *ast.InfixExpr, shortOn bool) int {
	l := fg.compileExpr(ex.Left)
	result := fg.alloc()
	fg.emit(vm.OpAssign, uint16(result), uint16(l))

	var branch int
	if shortOn {
		branch = fg.emitJumpIfTrue(l)
	} else {
		branch = fg.emitJumpIfFalse(l)
	}
	r := fg.compileExpr(ex.Right)
	fg.emit(vm.OpAssign, uint16(result), uint16(r))
	fg.patchJumpIf(branch, fg.pc())
	return result
}

func (fg *funcGen) emitJumpIfTrue(condReg int) int {
	pos := fg.pc()
	fg.emit(vm.OpJumpIf, uint16(condReg), 0)
	return pos
}

// emitBinary picks the opcode family for op. Absent a full type-checking
// pass over expressions, arithmetic always lowers to the Integer opcode
// family; Double values only ever arise from float literals and are
// combined through the same registers, which the VM's arithmetic opcodes
// do not themselves type-check.
func (fg *funcGen) emitBinary(op string, l, r int) int {
	dst := fg.alloc()
	switch op {
	case "+":
		fg.emit(vm.OpIntegerAdd, uint16(dst), uint16(l), uint16(r))
	case "-":
		fg.emit(vm.OpIntegerMinus, uint16(dst), uint16(l), uint16(r))
	case "*":
		fg.emit(vm.OpIntegerMul, uint16(dst), uint16(l), uint16(r))
	case "/":
		fg.emit(vm.OpIntegerDiv, uint16(dst), uint16(l), uint16(r))
	case "%":
		fg.emit(vm.OpIntegerModulo, uint16(dst), uint16(l), uint16(r))
	case "<<":
		fg.emit(vm.OpIntegerShl, uint16(dst), uint16(l), uint16(r))
	case ">>":
		fg.emit(vm.OpIntegerShr, uint16(dst), uint16(l), uint16(r))
	case "&":
		fg.emit(vm.OpIntegerAnd, uint16(dst), uint16(l), uint16(r))
	case "|":
		fg.emit(vm.OpIntegerOr, uint16(dst), uint16(l), uint16(r))
	case "^":
		fg.emit(vm.OpIntegerXor, uint16(dst), uint16(l), uint16(r))
	case "<":
		fg.emit(vm.OpLess, uint16(dst), uint16(l), uint16(r))
	case "<=":
		fg.emit(vm.OpLessEq, uint16(dst), uint16(l), uint16(r))
	case ">":
		fg.emit(vm.OpGreater, uint16(dst), uint16(l), uint16(r))
	case ">=":
		fg.emit(vm.OpGreaterEq, uint16(dst), uint16(l), uint16(r))
	case "==":
		fg.emit(vm.OpIsEqual, uint16(dst), uint16(l), uint16(r))
	case "!=":
		fg.emit(vm.OpNotEq, uint16(dst), uint16(l), uint16(r))
	default:
		fg.g.errorf("operator %s is not supported by the bytecode compiler", op)
	}
	return dst
}

// compileArray lowers a list literal via allocBlock so elements land in
// the contiguous window BUILD_LIST expects right after dst.
func (fg *funcGen) compileArray(ex *ast.ArrayExpr) int {
	n := len(ex.Elements)
	dst := fg.allocBlock(1 + n)
	for i, el := range ex.Elements {
		v := fg.compileExpr(el)
		fg.emit(vm.OpAssign, uint16(dst+1+i), uint16(v))
	}
	fg.emit(vm.OpBuildList, uint16(dst), uint16(n))
	return dst
}

// staticClass reports the statically-known class name of e, when codegen
// can determine it without a full type checker: identifiers bound to a
// `let x: ClassName = ...` or to a constructor call, and `self` inside a
// method.
func (fg *funcGen) staticClass(e ast.Expression) (string, bool) {
	switch v := e.(type) {
	case *ast.Ident:
		c, ok := fg.varClass[v.Value]
		return c, ok
	case *ast.CallExpr:
		if id, ok := v.Function.(*ast.Ident); ok {
			if _, ok := fg.g.classes[id.Value]; ok {
				return id.Value, true
			}
		}
	case *ast.FieldExpr:
		if objCls, ok := fg.staticClass(v.Object); ok {
			if ci, ok := fg.g.classes[objCls]; ok {
				if t, ok := ci.fieldType[v.Field]; ok {
					return t, true
				}
			}
		}
	}
	return "", false
}

func (fg *funcGen) fieldIndex(fe *ast.FieldExpr) (int, bool) {
	cls, ok := fg.staticClass(fe.Object)
	if !ok {
		return 0, false
	}
	ci, ok := fg.g.classes[cls]
	if !ok {
		return 0, false
	}
	idx, ok := ci.fieldIndex[fe.Field]
	return idx, ok
}

func (fg *funcGen) compileFieldRead(fe *ast.FieldExpr) int {
	objReg := fg.compileExpr(fe.Object)
	idx, ok := fg.fieldIndex(fe)
	if !ok {
		fg.g.errorf("cannot resolve field %s (object's class is not statically known)", fe.Field)
		idx = 0
	}
	dst := fg.alloc()
	fg.emit(vm.OpGetProperty, uint16(dst), uint16(objReg), uint16(idx))
	return dst
}

// compileCall handles a bare call expression: either a class constructor
// (`Point(1, 2)`) or a free function call (`f(x, y)`), the latter always
// through FUNCTION_CALL — the VM's uniform dispatcher that internally
// branches on fn.IsForeign, so codegen never needs to know which.
func (fg *funcGen) compileCall(ex *ast.CallExpr) int {
	name, isIdent := ex.Function.(*ast.Ident)
	if isIdent {
		if classID, ok := fg.resolveExceptionClass(name.Value); ok {
			return fg.compileExceptionConstruction(classID, name.Value, ex.Arguments)
		}
		if ci, ok := fg.g.classes[name.Value]; ok {
			return fg.compilePlainConstruction(ci, ex.Arguments)
		}
	}
	return fg.compileFunctionCall(ex.Function, ex.Arguments)
}

// compilePlainConstruction builds a non-exception declared class: no
// implicit message, fields bound positionally in declaration order.
func (fg *funcGen) compilePlainConstruction(ci *classInfo, args []ast.Expression) int {
	dst := fg.alloc()
	fg.emit(vm.OpNewInstanceBasic, uint16(dst), uint16(ci.id))
	for i, a := range args {
		if i >= len(ci.fieldOrder) {
			fg.g.errorf("too many constructor arguments")
			break
		}
		v := fg.compileExpr(a)
		fg.emit(vm.OpSetProperty, uint16(dst), uint16(ci.fieldIndex[ci.fieldOrder[i]]), uint16(v))
	}
	return dst
}

func (fg *funcGen) compileFunctionCall(callee ast.Expression, args []ast.Expression) int {
	fnBase := fg.allocBlock(1 + len(args))
	fnReg := fnBase
	cv := fg.compileExpr(callee)
	fg.emit(vm.OpAssign, uint16(fnReg), uint16(cv))
	for i, a := range args {
		v := fg.compileExpr(a)
		fg.emit(vm.OpAssign, uint16(fnBase+1+i), uint16(v))
	}
	dst := fg.alloc()
	fg.emit(vm.OpFunctionCall, uint16(dst), uint16(fnReg), uint16(len(args)))
	return dst
}

// compileMethodCall resolves receiver.method(args) against the
// receiver's statically-known class and compiles it as an ordinary
// function call with self prepended, matching how queueFn mangles
// method names (ClassName::method) into the function table.
func (fg *funcGen) compileMethodCall(ex *ast.MethodCallExpr) int {
	cls, ok := fg.staticClass(ex.Receiver)
	if !ok {
		fg.g.errorf("cannot resolve method %s (receiver's class is not statically known)", ex.Method)
		return fg.alloc()
	}
	ci, ok := fg.g.classes[cls]
	if !ok {
		fg.g.errorf("unknown class %s", cls)
		return fg.alloc()
	}
	mangled, ok := ci.methods[ex.Method]
	if !ok {
		fg.g.errorf("%s has no method %s", cls, ex.Method)
		return fg.alloc()
	}
	idx, ok := fg.g.functions[mangled]
	if !ok {
		fg.g.errorf("method %s not yet compiled", mangled)
		return fg.alloc()
	}

	fnBase := fg.allocBlock(2 + len(ex.Arguments))
	fg.emit(vm.OpGetReadonly, uint16(fnBase), uint16(idx))
	self := fg.compileExpr(ex.Receiver)
	fg.emit(vm.OpAssign, uint16(fnBase+1), uint16(self))
	for i, a := range ex.Arguments {
		v := fg.compileExpr(a)
		fg.emit(vm.OpAssign, uint16(fnBase+2+i), uint16(v))
	}
	dst := fg.alloc()
	fg.emit(vm.OpFunctionCall, uint16(dst), uint16(fnBase), uint16(1+len(ex.Arguments)))
	return dst
}

// compileMatch supports enum-variant patterns (`Some(x) => ...`) and a
// trailing wildcard/bare-identifier arm as the catch-all; patterns
// combining guards with variant decomposition, or matching on literals,
// are not implemented since this VM's MATCH_DISPATCH only yields a variant
// arm index, not an arbitrary equality test.
func (fg *funcGen) compileMatch(ex *ast.MatchExpr) int {
	subj := fg.compileExpr(ex.Subject)
	armReg := fg.alloc()
	fg.emit(vm.OpMatchDispatch, uint16(armReg), uint16(subj))

	result := fg.alloc()
	var endJumps []int
	var prevSkip = -1

	for _, arm := range ex.Arms {
		if prevSkip >= 0 {
			fg.patchJumpIf(prevSkip, fg.pc())
			prevSkip = -1
		}

		switch pat := arm.Pattern.(type) {
		case *ast.CallExpr:
			variant, ok := pat.Function.(*ast.Ident)
			if !ok {
				fg.g.errorf("unsupported match pattern")
				continue
			}
			wantArm, ok := fg.g.enumArm[variant.Value]
			if !ok {
				fg.g.errorf("unknown enum variant %s", variant.Value)
				continue
			}
			want := fg.intConst(int64(wantArm))
			eq := fg.emitBinary("==", armReg, want)
			prevSkip = fg.emitJumpIfFalse(eq)

			if len(pat.Arguments) > 0 {
				base := fg.allocBlock(len(pat.Arguments))
				fg.emit(vm.OpVariantDecompose, uint16(base), uint16(subj))
				for i, a := range pat.Arguments {
					if id, ok := a.(*ast.Ident); ok && id.Value != "_" {
						fg.locals[id.Value] = base + i
					}
				}
			}
			v := fg.compileExpr(arm.Body)
			fg.emit(vm.OpAssign, uint16(result), uint16(v))
			endJumps = append(endJumps, fg.emitJump())

		case *ast.Ident:
			if pat.Value != "_" {
				fg.locals[pat.Value] = subj
			}
			v := fg.compileExpr(arm.Body)
			fg.emit(vm.OpAssign, uint16(result), uint16(v))
			endJumps = append(endJumps, fg.emitJump())

		default:
			fg.g.errorf("unsupported match pattern %T", arm.Pattern)
		}
	}

	end := fg.pc()
	if prevSkip >= 0 {
		fg.patchJumpIf(prevSkip, end)
	}
	for _, p := range endJumps {
		fg.patchJump(p, end)
	}
	return result
}
