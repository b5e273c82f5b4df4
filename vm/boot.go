// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// VM is one execution core instance: register file, class table, GC,
// raiser, dynaload cache, and the program it is executing. Per spec.md
// §5, a VM is never shared across goroutines.
type VM struct {
	regs    registerFile
	classes *ClassTable
	gc      *gc
	raiser  *raiser
	dyn     *dynaloader
	program *Program

	stdout Value
	stderr Value

	pendingCall *foreignCall
}

// Boot constructs a VM around prog and adds prog's classes to its class
// table; prog's readonly table is used in place. No call frame exists
// until Execute enters the entry function.
func Boot(prog *Program) *VM {
	vm := &VM{
		classes: NewClassTable(),
		gc:      newGC(),
		raiser:  newRaiser(),
		dyn:     newDynaloader(),
		program: prog,
	}
	for _, c := range prog.Classes {
		id := vm.classes.Add(c.Name, c.Super, c.HasSuper, c.Cyclic, c.Properties)
		_ = id
	}
	return vm
}

// Execute runs the program's entry function ("__main__") to completion.
// An uncaught exception is recovered, its traceback preserved, and
// re-reported as a Go error; any other panic (a genuine Go bug, not a
// raised exception) is re-panicked.
func (vm *VM) Execute() (result Value, exc Value, err error) {
	j := vm.raiser.pushJump()
	defer vm.raiser.popJump(j)
	defer func() {
		if r := recover(); r != nil {
			if u, ok := r.(*vmUnwind); ok {
				exc = u.exc
				err = ErrUncaught
				return
			}
			panic(r)
		}
	}()

	f, ferr := vm.regs.enterNative(vm.program.EntryFunction, -1)
	if ferr != nil {
		return Value{}, Value{}, ferr
	}
	result = vm.run(f)
	return result, Value{}, nil
}
