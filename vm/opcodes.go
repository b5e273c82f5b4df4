// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// Op is the bytecode opcode space. Every instruction occupies at least
// two 16-bit words: [opcode, line, operand...], per SPEC_FULL.md §6.
// The family grouping and naming mirror the teacher's lang/vm/opcodes.go
// opcodeTable technique (a name+operand-count table indexed by the
// opcode), generalized to this much larger opcode surface.
type Op uint16

const (
	OpNoop Op = iota

	// Loads
	OpGetReadonly
	OpGetInteger
	OpGetBoolean
	OpGetByte
	OpGetEmptyVariant
	OpGetGlobal
	OpSetGlobal
	OpAssign
	OpFastAssign

	// Arithmetic
	OpIntegerAdd
	OpIntegerMinus
	OpIntegerMul
	OpIntegerDiv
	OpIntegerModulo
	OpIntegerShl
	OpIntegerShr
	OpIntegerAnd
	OpIntegerOr
	OpIntegerXor
	OpDoubleAdd
	OpDoubleMinus
	OpDoubleMul
	OpDoubleDiv

	// Comparison
	OpLess
	OpLessEq
	OpGreater
	OpGreaterEq
	OpIsEqual
	OpNotEq

	// Control flow
	OpJump
	OpJumpIf

	// Indexing
	OpGetItem
	OpSetItem

	// Property
	OpGetProperty
	OpSetProperty

	// Builders
	OpBuildList
	OpBuildTuple
	OpBuildHash
	OpBuildEnum

	// Calls
	OpNativeCall
	OpForeignCall
	OpFunctionCall

	// Returns
	OpReturnUnit
	OpReturnVal
	OpReturnFromVM

	// Closures
	OpCreateClosure
	OpLoadClosure
	OpLoadClassClosure
	OpCreateFunction
	OpGetUpvalue
	OpSetUpvalue

	// Iteration
	OpForSetup
	OpIntegerFor

	// Exceptions
	OpPushTry
	OpPopTry
	OpExceptCatch
	OpExceptIgnore
	OpRaise

	// Pattern matching
	OpMatchDispatch
	OpVariantDecompose
	OpOptArgDispatch

	// Interpolation
	OpInterpolation

	// Dynamic cast
	OpDynamicCast

	// Instance construction
	OpNewInstanceBasic
	OpNewInstanceSpeculative
	OpNewInstanceTagged

	opcodeCount
)

// opcodeInfo records an opcode's mnemonic and operand count (excluding
// the leading opcode and line words), mirroring lang/vm/opcodes.go's
// opcodeInfo{name, operands}.
type opcodeInfo struct {
	name     string
	operands int
}

var opcodeTable = [opcodeCount]opcodeInfo{
	OpNoop: {"NOOP", 0},

	OpGetReadonly:     {"GET_READONLY", 2},
	OpGetInteger:      {"GET_INTEGER", 2},
	OpGetBoolean:      {"GET_BOOLEAN", 2},
	OpGetByte:         {"GET_BYTE", 2},
	OpGetEmptyVariant: {"GET_EMPTY_VARIANT", 2},
	OpGetGlobal:       {"GET_GLOBAL", 2},
	OpSetGlobal:       {"SET_GLOBAL", 2},
	OpAssign:          {"ASSIGN", 2},
	OpFastAssign:      {"FAST_ASSIGN", 2},

	OpIntegerAdd:    {"INTEGER_ADD", 3},
	OpIntegerMinus:  {"INTEGER_MINUS", 3},
	OpIntegerMul:    {"INTEGER_MUL", 3},
	OpIntegerDiv:    {"INTEGER_DIV", 3},
	OpIntegerModulo: {"INTEGER_MODULO", 3},
	OpIntegerShl:    {"INTEGER_SHL", 3},
	OpIntegerShr:    {"INTEGER_SHR", 3},
	OpIntegerAnd:    {"INTEGER_AND", 3},
	OpIntegerOr:     {"INTEGER_OR", 3},
	OpIntegerXor:    {"INTEGER_XOR", 3},
	OpDoubleAdd:     {"DOUBLE_ADD", 3},
	OpDoubleMinus:   {"DOUBLE_MINUS", 3},
	OpDoubleMul:     {"DOUBLE_MUL", 3},
	OpDoubleDiv:     {"DOUBLE_DIV", 3},

	OpLess:       {"LESS", 3},
	OpLessEq:     {"LESS_EQ", 3},
	OpGreater:    {"GREATER", 3},
	OpGreaterEq:  {"GREATER_EQ", 3},
	OpIsEqual:    {"IS_EQUAL", 3},
	OpNotEq:      {"NOT_EQ", 3},

	OpJump:   {"JUMP", 1},
	OpJumpIf: {"JUMP_IF", 2},

	OpGetItem: {"GET_ITEM", 3},
	OpSetItem: {"SET_ITEM", 3},

	OpGetProperty: {"GET_PROPERTY", 3},
	OpSetProperty: {"SET_PROPERTY", 3},

	OpBuildList:  {"BUILD_LIST", 2},
	OpBuildTuple: {"BUILD_TUPLE", 2},
	OpBuildHash:  {"BUILD_HASH", 2},
	OpBuildEnum:  {"BUILD_ENUM", 3},

	OpNativeCall:  {"NATIVE_CALL", 3},
	OpForeignCall: {"FOREIGN_CALL", 3},
	OpFunctionCall: {"FUNCTION_CALL", 3},

	OpReturnUnit:   {"RETURN_UNIT", 0},
	OpReturnVal:    {"RETURN_VAL", 1},
	OpReturnFromVM: {"RETURN_FROM_VM", 0},

	OpCreateClosure:    {"CREATE_CLOSURE", 2},
	OpLoadClosure:       {"LOAD_CLOSURE", 2},
	OpLoadClassClosure: {"LOAD_CLASS_CLOSURE", 2},
	OpCreateFunction:   {"CREATE_FUNCTION", 2},
	OpGetUpvalue:       {"GET_UPVALUE", 2},
	OpSetUpvalue:       {"SET_UPVALUE", 2},

	OpForSetup:   {"FOR_SETUP", 3},
	OpIntegerFor: {"INTEGER_FOR", 3},

	OpPushTry:      {"PUSH_TRY", 1},
	OpPopTry:       {"POP_TRY", 0},
	OpExceptCatch:  {"EXCEPT_CATCH", 3},
	OpExceptIgnore: {"EXCEPT_IGNORE", 2},
	OpRaise:        {"RAISE", 1},

	OpMatchDispatch:     {"MATCH_DISPATCH", 2},
	OpVariantDecompose: {"VARIANT_DECOMPOSE", 2},
	OpOptArgDispatch:   {"OPT_ARG_DISPATCH", 2},

	OpInterpolation: {"INTERPOLATION", 2},

	OpDynamicCast: {"DYNAMIC_CAST", 3},

	OpNewInstanceBasic:       {"NEW_INSTANCE_BASIC", 2},
	OpNewInstanceSpeculative: {"NEW_INSTANCE_SPECULATIVE", 2},
	OpNewInstanceTagged:      {"NEW_INSTANCE_TAGGED", 2},
}

// String returns the opcode's mnemonic.
func (o Op) String() string {
	if int(o) < len(opcodeTable) && opcodeTable[o].name != "" {
		return opcodeTable[o].name
	}
	return "UNKNOWN"
}

// Operands returns the opcode's fixed operand-word count.
func (o Op) Operands() int {
	if int(o) < len(opcodeTable) {
		return opcodeTable[o].operands
	}
	return 0
}

// WordLen returns the total instruction length in 16-bit words: opcode +
// line + operands.
func (o Op) WordLen() int { return 2 + o.Operands() }

// DisasmLine is one decoded instruction, as printed by probec's disasm
// subcommand.
type DisasmLine struct {
	PC       int
	Line     int
	Mnemonic string
	Operands []uint16
}

// DisassembleProgram decodes a program's entry function body into a flat
// instruction listing.
func DisassembleProgram(prog *Program) []DisasmLine {
	if prog == nil || prog.EntryFunction == nil {
		return nil
	}
	return disassembleCode(prog.EntryFunction.Code)
}

func disassembleCode(code []uint16) []DisasmLine {
	var lines []DisasmLine
	pc := 0
	for pc < len(code) {
		op := Op(code[pc])
		line := int(code[pc+1])
		n := op.Operands()
		operands := append([]uint16(nil), code[pc+2:pc+2+n]...)
		lines = append(lines, DisasmLine{PC: pc, Line: line, Mnemonic: op.String(), Operands: operands})
		pc += op.WordLen()
	}
	return lines
}
