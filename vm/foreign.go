// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// foreignCall is the scratch state a ForeignFn sees via the VM's
// Arg*/Return* helpers while it runs: the arguments it was invoked with
// and the result it is expected to leave behind.
type foreignCall struct {
	args   []Value
	result Value
}

// ArgCount returns the number of arguments passed to the current foreign
// call.
func (vm *VM) ArgCount() int {
	if vm.pendingCall == nil {
		return 0
	}
	return len(vm.pendingCall.args)
}

// Arg returns argument i of the current foreign call without transferring
// ownership (the foreign function must Retain it if it wants to keep a
// copy beyond the call).
func (vm *VM) Arg(i int) Value {
	return vm.pendingCall.args[i]
}

// ArgInt, ArgDouble, ArgString, ArgBool are typed convenience accessors.
func (vm *VM) ArgInt(i int) int64      { return vm.Arg(i).Int() }
func (vm *VM) ArgDouble(i int) float64  { return vm.Arg(i).Double() }
func (vm *VM) ArgString(i int) string  { return vm.Arg(i).StringData() }
func (vm *VM) ArgBool(i int) bool      { return vm.Arg(i).Bool() }

// Return sets the current foreign call's result, retaining v on the
// caller's behalf (the standard, refcount-balanced return).
func (vm *VM) Return(v Value) {
	v.Retain()
	vm.pendingCall.result = v
}

// ReturnValueNoRef sets the result without bumping its refcount, for
// transferring a freshly-constructed value's sole ownership directly to
// the caller (spec.md §4.6's return_value_noref).
func (vm *VM) ReturnValueNoRef(v Value) {
	vm.pendingCall.result = v
}

// ReturnVariant is a convenience for returning an enum variant result
// (e.g. Option.Some/Option.None-style stdlib helpers).
func (vm *VM) ReturnVariant(classID uint16, arm int16, args []Value) {
	vm.ReturnValueNoRef(vm.NewVariant(classID, arm, args))
}

// PreparedCall is a bound, ready-to-invoke native function together with
// a pre-populated argument list, as constructed by CallPrepare.
type PreparedCall struct {
	fn   *funcBody
	args []Value
}

// CallPrepare binds fn and reserves room for argc arguments, returning a
// PreparedCall the caller fills in with Push before invoking
// CallExecPrepared. Mirrors spec.md §4.6's call_prepare.
func (vm *VM) CallPrepare(fn *funcBody, argc int) *PreparedCall {
	return &PreparedCall{fn: fn, args: make([]Value, 0, argc)}
}

// Push appends an argument (taking ownership) to a PreparedCall.
func (pc *PreparedCall) Push(v Value) {
	pc.args = append(pc.args, v)
}

// CallExecPrepared invokes a prepared native or foreign call, installing
// a fresh jumpLink so a raise inside it cannot be caught by a try block
// belonging to the activation that initiated the call.
func (vm *VM) CallExecPrepared(pc *PreparedCall) (result Value, exc Value, err error) {
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

	if pc.fn.IsForeign {
		call := &foreignCall{args: pc.args}
		prevCall := vm.pendingCall
		vm.pendingCall = call
		ff := vm.regs.enterForeign(pc.fn.TraceName)
		ff.fn = pc.fn
		if ferr := pc.fn.Foreign(vm); ferr != nil {
			vm.pendingCall = prevCall
			return Value{}, Value{}, ferr
		}
		result = call.result
		vm.pendingCall = prevCall
		vm.regs.top = ff.prev
		vm.regs.depth--
		return result, Value{}, nil
	}

	f, ferr := vm.regs.enterNative(pc.fn, -1)
	if ferr != nil {
		return Value{}, Value{}, ferr
	}
	f.upvalues = pc.fn.Upvalues
	for i, a := range pc.args {
		if i < f.totalRegs {
			*f.reg(&vm.regs, i) = a
		}
	}
	result = vm.run(f)
	vm.regs.ret()
	return result, Value{}, nil
}

// CallSimple is the one-shot convenience wrapping CallPrepare/Push/
// CallExecPrepared for the common case of calling with a fixed argument
// list, per spec.md §4.6's call_simple.
func (vm *VM) CallSimple(fn *funcBody, args []Value) (Value, Value, error) {
	pc := vm.CallPrepare(fn, len(args))
	for _, a := range args {
		pc.Push(a)
	}
	return vm.CallExecPrepared(pc)
}

// CallValue is CallSimple for callers outside this package, which cannot
// name funcBody directly: fn must be a Value of Kind Function (e.g. one
// returned by NewFunction or a global/property lookup). It raises
// ErrBadArgument if fn is not callable.
func (vm *VM) CallValue(fn Value, args []Value) (Value, Value, error) {
	body, ok := fn.ptr.(*funcBody)
	if !ok {
		return Value{}, Value{}, ErrBadArgument
	}
	return vm.CallSimple(body, args)
}

// CallNamed resolves name through the dynaloader (see dynaload.go) and
// calls it with args, for embedders that want to invoke a stdlib entry
// point by name without first materializing a Value for it.
func (vm *VM) CallNamed(name string, args []Value) (Value, Value, error) {
	fn, ok := vm.ResolveFunction(name)
	if !ok {
		return Value{}, Value{}, ErrNoSuchFunction
	}
	return vm.CallSimple(fn, args)
}
