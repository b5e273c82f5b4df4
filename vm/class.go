// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// Reserved builtin class ids, in the fixed order spec.md §6 requires.
const (
	ClassUnit uint16 = iota
	ClassInteger
	ClassDouble
	ClassByte
	ClassByteString
	ClassBoolean
	ClassString
	ClassFunction
	ClassDynamic
	ClassList
	ClassHash
	ClassTuple
	ClassFile

	ClassSelf
	ClassQuestion
	ClassStar
	ClassScoop1
	ClassScoop2

	ClassException
	ClassIOError
	ClassKeyError
	ClassRuntimeError
	ClassValueError
	ClassIndexError
	ClassDivisionByZeroError
	ClassAssertionError

	// FirstUserClassID is the first id available to front-end-declared
	// and dynaloaded classes.
	FirstUserClassID
)

// Class describes one row of the class table: its name, superclass chain,
// and whether instances of it are cyclic-suspect (tracked by the GC).
type Class struct {
	ID         uint16
	Name       string
	Super      uint16 // ID of the parent class; 0 for roots (HasSuper false)
	HasSuper   bool
	Cyclic     bool // containers, instances, closures: true
	Properties []string
}

// ClassTable is the full set of classes known to a VM: builtins plus
// whatever the front end emitted plus whatever vm/dynaload.go lazily adds.
type ClassTable struct {
	rows []Class
}

// NewClassTable builds a class table pre-populated with every builtin
// class id in the order class.go reserves them.
func NewClassTable() *ClassTable {
	t := &ClassTable{rows: make([]Class, FirstUserClassID)}
	set := func(id uint16, name string, super uint16, hasSuper, cyclic bool) {
		t.rows[id] = Class{ID: id, Name: name, Super: super, HasSuper: hasSuper, Cyclic: cyclic}
	}
	set(ClassUnit, "Unit", 0, false, false)
	set(ClassInteger, "Integer", 0, false, false)
	set(ClassDouble, "Double", 0, false, false)
	set(ClassByte, "Byte", 0, false, false)
	set(ClassByteString, "ByteString", 0, false, false)
	set(ClassBoolean, "Boolean", 0, false, false)
	set(ClassString, "String", 0, false, false)
	set(ClassFunction, "Function", 0, false, true)
	set(ClassDynamic, "Dynamic", 0, false, true)
	set(ClassList, "List", 0, false, true)
	set(ClassHash, "Hash", 0, false, true)
	set(ClassTuple, "Tuple", 0, false, true)
	set(ClassFile, "File", 0, false, false)
	set(ClassSelf, "Self", 0, false, false)
	set(ClassQuestion, "?", 0, false, false)
	set(ClassStar, "*", 0, false, false)
	set(ClassScoop1, "$1", 0, false, false)
	set(ClassScoop2, "$2", 0, false, false)

	set(ClassException, "Exception", 0, false, false)
	set(ClassIOError, "IOError", ClassException, true, false)
	set(ClassKeyError, "KeyError", ClassException, true, false)
	set(ClassRuntimeError, "RuntimeError", ClassException, true, false)
	set(ClassValueError, "ValueError", ClassException, true, false)
	set(ClassIndexError, "IndexError", ClassException, true, false)
	set(ClassDivisionByZeroError, "DivisionByZeroError", ClassException, true, false)
	set(ClassAssertionError, "AssertionError", ClassException, true, false)

	// Exception and every builtin subclass carry the hidden [message,
	// traceback] property pair exception.go's NewException/buildTraceback
	// assume; NewInstanceBasic sizes an instance from this slice, so a
	// bytecode-constructed raise (bypassing NewException) needs it too.
	for _, id := range []uint16{
		ClassException, ClassIOError, ClassKeyError, ClassRuntimeError,
		ClassValueError, ClassIndexError, ClassDivisionByZeroError, ClassAssertionError,
	} {
		t.rows[id].Properties = []string{"message", "traceback"}
	}
	return t
}

// Add registers a new class, assigning it the next available id.
func (t *ClassTable) Add(name string, super uint16, hasSuper, cyclic bool, properties []string) uint16 {
	id := uint16(len(t.rows))
	t.rows = append(t.rows, Class{ID: id, Name: name, Super: super, HasSuper: hasSuper, Cyclic: cyclic, Properties: properties})
	return id
}

// Get returns the class row for id.
func (t *ClassTable) Get(id uint16) (Class, bool) {
	if int(id) >= len(t.rows) {
		return Class{}, false
	}
	return t.rows[id], true
}

// IsAncestorOf reports whether ancestor appears in id's superclass chain
// (or equals id), used by exception matching.
func (t *ClassTable) IsAncestorOf(ancestor, id uint16) bool {
	for {
		cls, ok := t.Get(id)
		if !ok {
			return false
		}
		if cls.ID == ancestor {
			return true
		}
		if !cls.HasSuper {
			return false
		}
		id = cls.Super
	}
}

// IsCyclic reports whether values of class id are tracked by the GC.
func (t *ClassTable) IsCyclic(id uint16) bool {
	cls, ok := t.Get(id)
	return ok && cls.Cyclic
}
