// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// Program is the unit produced by lang/codegen and consumed by Boot: a
// readonly table of literals and function prototypes, a class table, and
// the designated entry function ("__main__").
type Program struct {
	Readonly      []Value
	Classes       []Class
	EntryFunction *funcBody
}

// NewFuncBody constructs a native function prototype ready for
// installation into a Program's readonly table.
func NewFuncBody(code []uint16, regCount int, cidTable []uint16, traceName, modulePath, doc string) *funcBody {
	return &funcBody{
		Code:       code,
		RegCount:   regCount,
		CidTable:   cidTable,
		TraceName:  traceName,
		ModulePath: modulePath,
		Doc:        doc,
	}
}
