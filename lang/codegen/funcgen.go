// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package codegen

import (
	"github.com/probechain/probe-lang/lang/ast"
	"github.com/probechain/probe-lang/lang/token"
	"github.com/probechain/probe-lang/vm"
)

// loopCtx tracks the jump-patch bookkeeping for one enclosing loop, so
// break/continue inside nested blocks can reach it.
type loopCtx struct {
	continuePC   int
	breakPatches []int
}

// funcGen compiles one function body. Registers are allocated
// monotonically and never reused — simple and always correct, at the
// cost of a larger register file than a real allocator would need,
// mirroring how the teacher's original generator walked IR values with
// a bare nextReg counter instead of doing live-range coloring.
type funcGen struct {
	g    *generator
	code []uint16
	line int

	nextReg  int
	locals   map[string]int    // variable name -> register
	varClass map[string]string // variable name -> static class name, when known

	loops []*loopCtx
}

func (fg *funcGen) alloc() int {
	r := fg.nextReg
	fg.nextReg++
	return r
}

// allocBlock reserves n contiguous fresh registers, returning the first.
// Used wherever the bytecode format requires contiguity (call arguments
// after the callee register, list/tuple/hash elements after dst).
func (fg *funcGen) allocBlock(n int) int {
	base := fg.nextReg
	fg.nextReg += n
	return base
}

func (fg *funcGen) emit(op vm.Op, operands ...uint16) int {
	if len(operands) != op.Operands() {
		panic("codegen: operand count mismatch for " + op.String())
	}
	pos := len(fg.code)
	fg.code = append(fg.code, uint16(op), uint16(fg.line))
	fg.code = append(fg.code, operands...)
	return pos
}

func (fg *funcGen) emitJump() int {
	return fg.emit(vm.OpJump, 0)
}

func (fg *funcGen) patchJump(pos, target int) {
	offset := int16(target - (pos + vm.OpJump.WordLen()))
	fg.code[pos+2] = uint16(offset)
}

// emitJumpIfFalse computes `cond == false` into a scratch register and
// emits a JUMP_IF on it — the bytecode format only has "jump when
// truthy", so every "jump when falsy" site negates via equality-to-false
// instead of a dedicated NOT opcode.
func (fg *funcGen) emitJumpIfFalse(condReg int) int {
	falseReg := fg.alloc()
	fg.emit(vm.OpGetBoolean, uint16(falseReg), 0)
	notReg := fg.alloc()
	fg.emit(vm.OpIsEqual, uint16(notReg), uint16(condReg), uint16(falseReg))
	pos := len(fg.code)
	fg.emit(vm.OpJumpIf, uint16(notReg), 0)
	return pos
}

func (fg *funcGen) patchJumpIf(pos, target int) {
	offset := int16(target - (pos + vm.OpJumpIf.WordLen()))
	fg.code[pos+3] = uint16(offset)
}

func (fg *funcGen) pc() int { return len(fg.code) }

// stringConst interns s as a readonly constant, via the nil-receiver
// NewString trick documented on nilVM, and returns its register after a
// GET_READONLY load.
func (fg *funcGen) stringConst(s string) int {
	idx := len(fg.g.constants)
	fg.g.constants = append(fg.g.constants, nilVM.NewString(s))
	dst := fg.alloc()
	fg.emit(vm.OpGetReadonly, uint16(dst), uint16(idx))
	return dst
}

// ---------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------

// compileBlock compiles a statement sequence and returns the register
// holding the block's value (the Tail expression's register, or a fresh
// Unit register when there is none).
func (fg *funcGen) compileBlock(b *ast.BlockExpr) int {
	for _, s := range b.Statements {
		fg.compileStmt(s)
	}
	if b.Tail != nil {
		return fg.compileExpr(b.Tail)
	}
	return fg.alloc() // fresh register defaults to Unit
}

func (fg *funcGen) compileStmt(s ast.Statement) {
	fg.line = fg.lineOf(s)
	switch st := s.(type) {
	case *ast.LetStmt:
		fg.compileLet(st)
	case *ast.AssignStmt:
		fg.compileAssign(st)
	case *ast.ExprStmt:
		fg.compileExpr(st.Expression)
	case *ast.ReturnStmt:
		if st.Value != nil {
			r := fg.compileExpr(st.Value)
			fg.emit(vm.OpReturnVal, uint16(r))
		} else {
			fg.emit(vm.OpReturnUnit)
		}
	case *ast.WhileStmt:
		fg.compileWhile(st)
	case *ast.ForStmt:
		fg.compileFor(st)
	case *ast.BreakStmt:
		fg.compileBreak()
	case *ast.ContinueStmt:
		fg.compileContinue()
	case *ast.DropStmt:
		fg.compileDrop(st)
	case *ast.RequireStmt:
		fg.compileRequire(st)
	case *ast.TryStmt:
		fg.compileTry(st)
	case *ast.RaiseStmt:
		fg.compileRaise(st)
	case *ast.EmitStmt:
		fg.g.errorf("%s: not supported by the bytecode compiler (no event/log opcode in this VM)", s.TokenLiteral())
	default:
		fg.g.errorf("unsupported statement: %T", s)
	}
}

// lineOf extracts a statement's source line for the traceback line word
// every instruction carries. ast.Statement only guarantees TokenLiteral,
// not a Position, so this type-switches over the concrete statement kinds
// instead; unrecognized kinds fall back to the previous line.
func (fg *funcGen) lineOf(s ast.Statement) int {
	var tok token.Token
	switch st := s.(type) {
	case *ast.LetStmt:
		tok = st.Token
	case *ast.AssignStmt:
		tok = st.Token
	case *ast.ExprStmt:
		tok = st.Token
	case *ast.ReturnStmt:
		tok = st.Token
	case *ast.WhileStmt:
		tok = st.Token
	case *ast.ForStmt:
		tok = st.Token
	case *ast.BreakStmt:
		tok = st.Token
	case *ast.ContinueStmt:
		tok = st.Token
	case *ast.DropStmt:
		tok = st.Token
	case *ast.RequireStmt:
		tok = st.Token
	case *ast.TryStmt:
		tok = st.Token
	case *ast.RaiseStmt:
		tok = st.Token
	case *ast.EmitStmt:
		tok = st.Token
	default:
		return fg.line
	}
	if tok.Pos.Line == 0 {
		return fg.line
	}
	return tok.Pos.Line
}

func (fg *funcGen) compileLet(st *ast.LetStmt) {
	var r int
	if st.Value != nil {
		r = fg.compileExpr(st.Value)
		if cls, ok := fg.staticClass(st.Value); ok {
			fg.varClass[st.Name.Value] = cls
		}
	} else {
		r = fg.alloc()
	}
	fg.locals[st.Name.Value] = r
}

func (fg *funcGen) compileAssign(st *ast.AssignStmt) {
	ident, isIdent := st.Target.(*ast.Ident)
	field, isField := st.Target.(*ast.FieldExpr)

	var valReg int
	if st.Operator == "=" {
		valReg = fg.compileExpr(st.Value)
	} else {
		op := infixForCompoundAssign(st.Operator)
		cur := fg.compileExpr(st.Target)
		rhs := fg.compileExpr(st.Value)
		valReg = fg.emitBinary(op, cur, rhs)
	}

	switch {
	case isIdent:
		dst, ok := fg.locals[ident.Value]
		if !ok {
			fg.g.errorf("assignment to undeclared variable %s", ident.Value)
			return
		}
		fg.emit(vm.OpAssign, uint16(dst), uint16(valReg))
	case isField:
		objReg := fg.compileExpr(field.Object)
		idx, ok := fg.fieldIndex(field)
		if !ok {
			fg.g.errorf("cannot resolve field %s for assignment", field.Field)
			return
		}
		fg.emit(vm.OpSetProperty, uint16(objReg), uint16(idx), uint16(valReg))
	default:
		fg.g.errorf("unsupported assignment target: %T", st.Target)
	}
}

func infixForCompoundAssign(op string) string {
	return op[:len(op)-1] // "+=" -> "+"
}

func (fg *funcGen) compileDrop(st *ast.DropStmt) {
	reg, ok := fg.locals[st.Value.Value]
	if !ok {
		fg.g.errorf("drop of undeclared variable %s", st.Value.Value)
		return
	}
	unit := fg.alloc()
	fg.emit(vm.OpAssign, uint16(reg), uint16(unit))
}

// compileRequire lowers `require(cond, msg)` to `if !cond { raise
// AssertionError(msg) }`.
func (fg *funcGen) compileRequire(st *ast.RequireStmt) {
	cond := fg.compileExpr(st.Condition)
	jf := fg.emitJumpIfFalse(cond)
	after := fg.emitJump()
	fg.patchJumpIf(jf, fg.pc())

	msgReg := fg.stringConst("Assertion failed.")
	if st.Message != nil {
		msgReg = fg.compileExpr(st.Message)
	}
	excReg := fg.newExceptionInstance(vm.ClassAssertionError, msgReg)
	fg.emit(vm.OpRaise, uint16(excReg))

	fg.patchJump(after, fg.pc())
}

// newExceptionInstance allocates an instance of classID (builtin or
// user, always Exception-rooted) and sets its message slot from msgReg.
// NewInstanceBasic auto-populates the hidden traceback slot for any
// Exception descendant (see vm/interp.go).
func (fg *funcGen) newExceptionInstance(classID uint16, msgReg int) int {
	dst := fg.alloc()
	fg.emit(vm.OpNewInstanceBasic, uint16(dst), classID)
	fg.emit(vm.OpSetProperty, uint16(dst), 0, uint16(msgReg))
	return dst
}

func (fg *funcGen) compileBreak() {
	if len(fg.loops) == 0 {
		fg.g.errorf("break outside of a loop")
		return
	}
	l := fg.loops[len(fg.loops)-1]
	l.breakPatches = append(l.breakPatches, fg.emitJump())
}

func (fg *funcGen) compileContinue() {
	if len(fg.loops) == 0 {
		fg.g.errorf("continue outside of a loop")
		return
	}
	l := fg.loops[len(fg.loops)-1]
	pos := fg.emitJump()
	fg.patchJump(pos, l.continuePC)
}

func (fg *funcGen) compileWhile(st *ast.WhileStmt) {
	condStart := fg.pc()
	cond := fg.compileExpr(st.Condition)
	jf := fg.emitJumpIfFalse(cond)

	l := &loopCtx{continuePC: condStart}
	fg.loops = append(fg.loops, l)
	fg.compileBlock(st.Body)
	fg.loops = fg.loops[:len(fg.loops)-1]

	back := fg.emitJump()
	fg.patchJump(back, condStart)
	end := fg.pc()
	fg.patchJumpIf(jf, end)
	for _, p := range l.breakPatches {
		fg.patchJump(p, end)
	}
}

// compileFor supports integer range loops only: `for x in a..b { body }`.
// Iterating arbitrary containers would need a LEN/NEXT opcode family this
// VM's instruction set does not provide, so that form is rejected with a
// clear compile error instead of silently mis-executing.
func (fg *funcGen) compileFor(st *ast.ForStmt) {
	rng, ok := st.Iterable.(*ast.RangeExpr)
	if !ok || rng.Start == nil || rng.End == nil {
		fg.g.errorf("for loop over %T is not supported; only bounded integer ranges (a..b) are", st.Iterable)
		return
	}

	idxBase := fg.allocBlock(3)
	start := fg.compileExpr(rng.Start)
	fg.emit(vm.OpAssign, uint16(idxBase), uint16(start))
	limit := fg.compileExpr(rng.End)
	fg.emit(vm.OpAssign, uint16(idxBase+1), uint16(limit))
	fg.emit(vm.OpGetInteger, uint16(idxBase+2), 1)
	fg.emit(vm.OpForSetup, uint16(idxBase), uint16(idxBase+1), uint16(idxBase+2))

	loopStart := fg.pc()
	loopVar := fg.alloc()
	forPos := fg.pc()
	fg.emit(vm.OpIntegerFor, uint16(loopVar), uint16(idxBase), 0)
	fg.locals[st.Binding.Value] = loopVar

	l := &loopCtx{continuePC: loopStart}
	fg.loops = append(fg.loops, l)
	fg.compileBlock(st.Body)
	fg.loops = fg.loops[:len(fg.loops)-1]

	back := fg.emitJump()
	fg.patchJump(back, loopStart)
	end := fg.pc()
	offset := int16(end - (forPos + vm.OpIntegerFor.WordLen()))
	fg.code[forPos+4] = uint16(offset)
	for _, p := range l.breakPatches {
		fg.patchJump(p, end)
	}
}

func (fg *funcGen) compileIf(e *ast.IfExpr) int {
	cond := fg.compileExpr(e.Condition)
	jf := fg.emitJumpIfFalse(cond)

	result := fg.alloc()
	thenVal := fg.compileBlock(e.Consequence)
	fg.emit(vm.OpAssign, uint16(result), uint16(thenVal))
	end := fg.emitJump()

	fg.patchJumpIf(jf, fg.pc())
	if e.Alternative != nil {
		elseVal := fg.compileExpr(e.Alternative)
		fg.emit(vm.OpAssign, uint16(result), uint16(elseVal))
	}
	fg.patchJump(end, fg.pc())
	return result
}

// compileTry lowers try/except/finally onto PUSH_TRY/POP_TRY and a chain
// of EXCEPT_CATCH/EXCEPT_IGNORE clauses, following the layout
// vm/raiser.go and vm/exception.go's scanExceptClauses already implement:
// PUSH_TRY's operand is the offset (from just after it) to the first
// clause; each clause's own offset operand is the distance to the next
// clause, 0 marking the last one.
//
// finally always runs when the guarded body and any matching except
// clause complete normally. It does not re-run when an exception
// unwinds past this try uncaught — handling that would need an extra
// catch-all wrapper that re-raises after running finally a second time,
// which this compiler does not generate; a raise inside this try's own
// scope is the common case and is handled correctly.
func (fg *funcGen) compileTry(st *ast.TryStmt) {
	pushPos := fg.emit(vm.OpPushTry, 0)
	fg.compileBlock(st.Body)
	fg.emit(vm.OpPopTry)
	skipHandlers := fg.emitJump()

	handlersStart := fg.pc()
	pushOffset := int16(handlersStart - (pushPos + vm.OpPushTry.WordLen()))
	fg.code[pushPos+2] = uint16(pushOffset)

	var endJumps []int
	for i, ex := range st.Excepts {
		classID, ok := fg.resolveExceptionClass(ex.Class)
		if !ok {
			fg.g.errorf("except %s: unknown exception class", ex.Class)
			classID = vm.ClassException
		}
		clauseStart := fg.pc()
		if ex.Binding != "" {
			bindReg := fg.alloc()
			fg.locals[ex.Binding] = bindReg
			fg.emit(vm.OpExceptCatch, classID, uint16(bindReg), 0)
		} else {
			fg.emit(vm.OpExceptIgnore, classID, 0)
		}
		fg.compileBlock(ex.Body)
		endJumps = append(endJumps, fg.emitJump())

		nextStart := fg.pc()
		var offsetSlot int
		if ex.Binding != "" {
			offsetSlot = clauseStart + 4
		} else {
			offsetSlot = clauseStart + 3
		}
		if i == len(st.Excepts)-1 {
			fg.code[offsetSlot] = 0
		} else {
			fg.code[offsetSlot] = uint16(int16(nextStart - clauseStart))
		}
	}

	end := fg.pc()
	fg.patchJump(skipHandlers, end)
	for _, p := range endJumps {
		fg.patchJump(p, end)
	}

	if st.Finally != nil {
		fg.compileBlock(st.Finally)
	}
}

// compileRaise supports three shapes: a bare exception-class reference
// (`raise ValueError;`, default message), a constructor call
// (`raise ValueError("bad input");` or `raise MyError(field, ...);`),
// and re-raising an already-computed exception value (`raise e;`).
func (fg *funcGen) compileRaise(st *ast.RaiseStmt) {
	switch v := st.Value.(type) {
	case *ast.Ident:
		if classID, ok := fg.resolveExceptionClass(v.Value); ok {
			msg := fg.stringConst(v.Value)
			fg.emit(vm.OpRaise, uint16(fg.newExceptionInstance(classID, msg)))
			return
		}
		reg, ok := fg.locals[v.Value]
		if !ok {
			fg.g.errorf("raise: undefined name %s", v.Value)
			return
		}
		fg.emit(vm.OpRaise, uint16(reg))
	case *ast.CallExpr:
		if name, ok := v.Function.(*ast.Ident); ok {
			if classID, ok := fg.resolveExceptionClass(name.Value); ok {
				fg.emit(vm.OpRaise, uint16(fg.compileExceptionConstruction(classID, name.Value, v.Arguments)))
				return
			}
		}
		fg.emit(vm.OpRaise, uint16(fg.compileExpr(st.Value)))
	default:
		fg.emit(vm.OpRaise, uint16(fg.compileExpr(st.Value)))
	}
}

func (fg *funcGen) resolveExceptionClass(name string) (uint16, bool) {
	if id, ok := fg.g.builtin[name]; ok {
		return id, true
	}
	if ci, ok := fg.g.classes[name]; ok {
		return ci.id, true
	}
	return 0, false
}

// compileExceptionConstruction builds `ClassName(args...)`: builtin
// exception classes take an optional single message argument; declared
// classes bind positional arguments to their declared fields in order
// and default the message to the class name.
func (fg *funcGen) compileExceptionConstruction(classID uint16, name string, args []ast.Expression) int {
	ci, isUser := fg.g.classes[name]

	msgReg := fg.stringConst(name)
	if !isUser && len(args) > 0 {
		msgReg = fg.compileExpr(args[0])
	}
	dst := fg.newExceptionInstance(classID, msgReg)

	if isUser {
		for i, a := range args {
			if i >= len(ci.fieldOrder) {
				fg.g.errorf("%s: too many constructor arguments", name)
				break
			}
			v := fg.compileExpr(a)
			fg.emit(vm.OpSetProperty, uint16(dst), uint16(ci.fieldIndex[ci.fieldOrder[i]]), uint16(v))
		}
	}
	return dst
}
