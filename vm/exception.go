// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

import "fmt"

// NewException constructs an instance of the given exception class with
// the given message and an empty traceback slot (slot 1).
func (vm *VM) NewException(classID uint16, message string) Value {
	msg := vm.NewString(message)
	tb := vm.NewList(ClassList, nil)
	return vm.NewInstance(classID, []Value{msg, tb})
}

// Message returns an exception instance's message field.
func (v Value) Message() string {
	return v.At(0).StringData()
}

// RaiseClass raises a fresh exception of classID with the given
// printf-style message, building its traceback from the current frame
// chain, and panics with a *vmUnwind to begin unwinding.
func (vm *VM) RaiseClass(classID uint16, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	exc := vm.NewException(classID, msg)
	vm.raiseValue(exc)
}

// Raise re-raises an existing exception instance (the `raise` statement),
// augmenting its traceback before unwinding.
func (vm *VM) Raise(exc Value) {
	vm.raiseValue(exc)
}

func (vm *VM) raiseValue(exc Value) {
	tb := vm.buildTraceback(true)
	listVal := exc.At(1)
	for _, line := range tb {
		listVal.Push(vm.NewString(line))
	}
	panic(&vmUnwind{exc: exc})
}

// buildTraceback walks the frame chain from the top down, formatting each
// native frame as "path:line: from Class.method" and each foreign frame
// as "[C]". includeTop controls whether the innermost frame (the one
// performing the raise) is included. Callers in this package pass true;
// corelib's Calltrace leaves out its own activation by dropping the first
// line of Traceback's result.
func (vm *VM) buildTraceback(includeTop bool) []string {
	var lines []string
	f := vm.regs.top
	if f != nil && !includeTop {
		f = f.prev
	}
	for ; f != nil; f = f.prev {
		if f.fn == nil {
			continue
		}
		if f.fn.IsForeign {
			lines = append(lines, "[C] "+f.fn.TraceName)
			continue
		}
		lines = append(lines, fmt.Sprintf("%s:%d: from %s", f.fn.ModulePath, f.line, f.fn.TraceName))
	}
	return lines
}

// Traceback exposes buildTraceback to embedders (runtime package) for a
// just-caught exception, including the raising frame.
func (vm *VM) Traceback() []string {
	return vm.buildTraceback(true)
}

// exceptClause is one decoded except_catch/except_ignore clause: the class
// it matches, its handler program counter, and the register the exception
// binds to (catch) or -1 when it is discarded (ignore).
type exceptClause struct {
	ClassID     uint16
	HandlerPC   int
	BindReg     int // -1 for except_ignore
}

// MatchExcept returns the first of clauses whose class is an
// ancestor-or-equal of excClassID. The interpreter's raise path does not
// call it; catchInFrame matches through scanExceptClauses.
func (vm *VM) MatchExcept(excClassID uint16, clauses []exceptClause) (exceptClause, bool) {
	for _, c := range clauses {
		if vm.classes.IsAncestorOf(c.ClassID, excClassID) {
			return c, true
		}
	}
	return exceptClause{}, false
}

// catchInFrame looks for a pending try block owned by exactly f, at the
// current top jump link, whose except-clause chain (decoded starting at
// its recorded code position) matches exc's class. On a match it unwinds
// any registers/frames pushed by calls f made after entering the try
// (f itself is never torn down — only its transient children are), pops
// every catch entry from the chain down through the match, binds exc into
// the handler's register (for except_catch; except_ignore discards it),
// and leaves f.pc at the handler body so the caller's loop can resume.
func (vm *VM) catchInFrame(f *frame, exc Value) bool {
	for i := len(vm.raiser.chain) - 1; i >= 0; i-- {
		entry := vm.raiser.chain[i]
		if entry.frame != f || entry.jump != vm.raiser.topJump {
			continue
		}
		clause, handlerPC, ok := vm.scanExceptClauses(f, entry.exceptPC, exc.ClassID())
		if !ok {
			continue
		}
		// Unwind any child frames/registers pushed after the try was
		// entered; f's own window is untouched.
		vm.regs.top = f
		vm.regs.depth = f.depth
		if len(vm.regs.regsFromMain) > f.locals+f.totalRegs {
			for i := f.locals + f.totalRegs; i < len(vm.regs.regsFromMain); i++ {
				vm.regs.regsFromMain[i].Release()
			}
			vm.regs.regsFromMain = vm.regs.regsFromMain[:f.locals+f.totalRegs]
		}
		vm.raiser.chain = vm.raiser.chain[:i]
		if clause.BindReg >= 0 {
			vm.assign(f, clause.BindReg, exc)
		} else {
			exc.Release()
		}
		f.pc = handlerPC
		return true
	}
	return false
}

// scanExceptClauses walks a chain of EXCEPT_CATCH/EXCEPT_IGNORE
// instructions starting at pc, each naming a class id and an offset to
// the next clause (0 meaning "no more clauses"), looking for the first
// ancestor-or-equal match of excClassID. Operand layout: EXCEPT_CATCH
// [classID, bindReg, nextOffset], EXCEPT_IGNORE [classID, nextOffset].
func (vm *VM) scanExceptClauses(f *frame, pc int, excClassID uint16) (exceptClause, int, bool) {
	for {
		if pc < 0 || pc >= len(f.code) {
			return exceptClause{}, 0, false
		}
		op := Op(f.code[pc])
		ops := f.code[pc+2:]
		switch op {
		case OpExceptCatch:
			classID, bindReg, nextOffset := ops[0], int(ops[1]), int(int16(ops[2]))
			if vm.classes.IsAncestorOf(classID, excClassID) {
				return exceptClause{ClassID: classID, BindReg: bindReg}, pc + op.WordLen(), true
			}
			if nextOffset == 0 {
				return exceptClause{}, 0, false
			}
			pc += nextOffset
		case OpExceptIgnore:
			classID, nextOffset := ops[0], int(int16(ops[1]))
			if vm.classes.IsAncestorOf(classID, excClassID) {
				return exceptClause{ClassID: classID, BindReg: -1}, pc + op.WordLen(), true
			}
			if nextOffset == 0 {
				return exceptClause{}, 0, false
			}
			pc += nextOffset
		default:
			return exceptClause{}, 0, false
		}
	}
}

// RaiseDivisionByZero, RaiseIndexError, RaiseKeyError, RaiseValueError,
// RaiseAssertion, RaiseRuntimeError, RaiseIOError are narrow convenience
// wrappers used throughout interp.go and the stdlib packages.
func (vm *VM) RaiseDivisionByZero() { vm.RaiseClass(ClassDivisionByZeroError, "Attempt to divide by zero.") }

func (vm *VM) RaiseIndexError(index, size int) {
	vm.RaiseClass(ClassIndexError, "Index %d is out of range (size is %d).", index, size)
}

func (vm *VM) RaiseKeyError(key Value) {
	vm.RaiseClass(ClassKeyError, "Key %v not found in hash.", vm.Repr(key))
}

func (vm *VM) RaiseValueError(format string, args ...interface{}) {
	vm.RaiseClass(ClassValueError, format, args...)
}

func (vm *VM) RaiseAssertion(format string, args ...interface{}) {
	vm.RaiseClass(ClassAssertionError, format, args...)
}

func (vm *VM) RaiseRuntimeError(format string, args ...interface{}) {
	vm.RaiseClass(ClassRuntimeError, format, args...)
}

func (vm *VM) RaiseIOError(format string, args ...interface{}) {
	vm.RaiseClass(ClassIOError, format, args...)
}
