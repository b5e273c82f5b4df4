// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package codegen includes bytecode verification.
//
// The verifier is a lightweight, Move-inspired safety pass over a
// compiled vm.Program's instruction stream: it catches a miscompile
// before the VM ever sees it, rather than trusting Generate to always be
// correct.
package codegen

import (
	"fmt"

	"github.com/probechain/probe-lang/vm"
)

// VerifyError describes a bytecode verification failure.
type VerifyError struct {
	PC      int
	Message string
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verify error at pc %d: %s", e.PC, e.Message)
}

// Verify checks prog's entry function for structural safety violations:
//  1. every instruction decodes to a known opcode with its full operand
//     word count in bounds
//  2. GET_READONLY/CREATE_FUNCTION constant indices fall within the
//     readonly pool
//  3. JUMP/JUMP_IF/PUSH_TRY/EXCEPT_CATCH/EXCEPT_IGNORE/INTEGER_FOR
//     relative offsets land on an instruction boundary inside the code
//  4. the function body ends on a terminator (RETURN_VAL, RETURN_UNIT,
//     RETURN_FROM_VM, RAISE, or an unconditional JUMP)
//
// It does not attempt register-liveness or type checking — those are
// the concerns of whatever produced the bytecode, not of this pass.
func Verify(prog *vm.Program) []VerifyError {
	if prog == nil || prog.EntryFunction == nil {
		return nil
	}
	return verifyCode(vm.DisassembleProgram(prog), prog)
}

func verifyCode(lines []vm.DisasmLine, prog *vm.Program) []VerifyError {
	var errs []VerifyError
	if len(lines) == 0 {
		return errs
	}

	boundaries := map[int]bool{}
	codeLen := 0
	for _, l := range lines {
		boundaries[l.PC] = true
		codeLen = l.PC + 2 + len(l.Operands)
	}

	for _, l := range lines {
		if l.Mnemonic == "UNKNOWN" {
			errs = append(errs, VerifyError{PC: l.PC, Message: "unknown opcode"})
			continue
		}

		switch l.Mnemonic {
		case "GET_READONLY", "CREATE_FUNCTION":
			idx := int(l.Operands[1])
			if idx < 0 || idx >= len(prog.Readonly) {
				errs = append(errs, VerifyError{PC: l.PC, Message: fmt.Sprintf("constant index %d out of bounds (pool size %d)", idx, len(prog.Readonly))})
			}

		case "JUMP":
			checkJumpTarget(&errs, l.PC, l.PC+2+len(l.Operands), int(int16(l.Operands[0])), codeLen, boundaries)

		case "JUMP_IF":
			checkJumpTarget(&errs, l.PC, l.PC+2+len(l.Operands), int(int16(l.Operands[1])), codeLen, boundaries)

		case "PUSH_TRY":
			checkJumpTarget(&errs, l.PC, l.PC+2+len(l.Operands), int(int16(l.Operands[0])), codeLen, boundaries)

		case "EXCEPT_CATCH":
			checkClauseOffset(&errs, l.PC, int(int16(l.Operands[2])), codeLen, boundaries)

		case "EXCEPT_IGNORE":
			checkClauseOffset(&errs, l.PC, int(int16(l.Operands[1])), codeLen, boundaries)

		case "INTEGER_FOR":
			checkJumpTarget(&errs, l.PC, l.PC+2+len(l.Operands), int(int16(l.Operands[2])), codeLen, boundaries)

		case "NEW_INSTANCE_BASIC", "NEW_INSTANCE_SPECULATIVE", "NEW_INSTANCE_TAGGED":
			classID := l.Operands[1]
			if !hasClass(prog, classID) {
				errs = append(errs, VerifyError{PC: l.PC, Message: fmt.Sprintf("unknown class id %d", classID)})
			}
		}
	}

	last := lines[len(lines)-1]
	switch last.Mnemonic {
	case "RETURN_VAL", "RETURN_UNIT", "RETURN_FROM_VM", "JUMP", "RAISE":
	default:
		errs = append(errs, VerifyError{PC: last.PC, Message: "function body does not end with a terminator"})
	}

	return errs
}

// checkJumpTarget validates an offset relative to the word position right
// after the jumping instruction (this VM's universal jump convention).
func checkJumpTarget(errs *[]VerifyError, pc, afterPC, offset, codeLen int, boundaries map[int]bool) {
	target := afterPC + offset
	if target < 0 || target > codeLen || (target < codeLen && !boundaries[target]) {
		*errs = append(*errs, VerifyError{PC: pc, Message: fmt.Sprintf("jump target %d is not a valid instruction boundary", target)})
	}
}

// hasClass reports whether id names a builtin class (always present in
// vm.NewClassTable) or a user class codegen itself registered in
// prog.Classes.
func hasClass(prog *vm.Program, id uint16) bool {
	if id < vm.FirstUserClassID {
		return true
	}
	for _, c := range prog.Classes {
		if c.ID == id {
			return true
		}
	}
	return false
}

// checkClauseOffset validates an EXCEPT_CATCH/EXCEPT_IGNORE chain link,
// which (per vm/exception.go's scanExceptClauses) is relative to the
// clause's own start, not to the word after it; 0 means end of chain.
func checkClauseOffset(errs *[]VerifyError, clausePC, offset, codeLen int, boundaries map[int]bool) {
	if offset == 0 {
		return
	}
	target := clausePC + offset
	if target < 0 || target >= codeLen || !boundaries[target] {
		*errs = append(*errs, VerifyError{PC: clausePC, Message: fmt.Sprintf("except-clause chain target %d is not a valid instruction boundary", target)})
	}
}
