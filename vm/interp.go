// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

package vm

// run executes f (and any frames it calls into) until it returns,
// yielding the value left in its designated result register. A raise
// unwinds via panic(*vmUnwind); run installs its own recover so a try
// block belonging to f can catch an exception raised by f's own body or
// by any native call f makes, without needing every caller up to
// Execute/CallExecPrepared to understand frame-local catching. If no
// catch entry in f's own chain matches, the panic is re-raised so an
// enclosing run() (or Execute/CallExecPrepared at the very top) gets a
// chance instead.
func (vm *VM) run(f *frame) (result Value) {
	for {
		caught, v := vm.runOnce(f)
		if !caught {
			return v
		}
	}
}

// runOnce executes f's dispatch loop until it returns normally or an
// exception raised within it is caught by one of its own try blocks. It
// reports caught=true (with the loop needing to resume from f.pc, which
// the handler dispatch already updated) rather than returning, so the
// caller's for-loop re-enters runOnce instead of unwinding further.
func (vm *VM) runOnce(f *frame) (caught bool, result Value) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		u, ok := r.(*vmUnwind)
		if !ok {
			panic(r)
		}
		if !vm.catchInFrame(f, u.exc) {
			panic(r)
		}
		caught = true
	}()
	return false, vm.runLoop(f)
}

func (vm *VM) runLoop(f *frame) Value {
	for {
		op := Op(f.code[f.pc])
		f.line = int(f.code[f.pc+1])
		ops := f.code[f.pc+2:]

		switch op {
		case OpNoop:

		case OpGetReadonly:
			dst, idx := int(ops[0]), int(ops[1])
			v := vm.program.Readonly[idx]
			v.Retain()
			vm.assign(f, dst, v)

		case OpGetInteger:
			dst := int(ops[0])
			vm.assign(f, dst, NewInteger(int64(int16(ops[1]))))

		case OpGetBoolean:
			dst := int(ops[0])
			vm.assign(f, dst, NewBoolean(ops[1] != 0))

		case OpGetByte:
			dst := int(ops[0])
			vm.assign(f, dst, NewByte(byte(ops[1])))

		case OpGetEmptyVariant:
			dst, classID := int(ops[0]), ops[1]
			vm.assign(f, dst, NewEmptyVariant(classID))

		case OpAssign, OpGetGlobal, OpSetGlobal:
			dst, src := int(ops[0]), int(ops[1])
			v := *f.reg(&vm.regs, src)
			v.Retain()
			vm.assign(f, dst, v)

		case OpFastAssign:
			dst, src := int(ops[0]), int(ops[1])
			v := *f.reg(&vm.regs, src)
			*f.reg(&vm.regs, src) = Value{}
			vm.assign(f, dst, v)

		case OpIntegerAdd, OpIntegerMinus, OpIntegerMul, OpIntegerDiv, OpIntegerModulo,
			OpIntegerShl, OpIntegerShr, OpIntegerAnd, OpIntegerOr, OpIntegerXor:
			vm.execIntegerArith(f, op, ops)

		case OpDoubleAdd, OpDoubleMinus, OpDoubleMul, OpDoubleDiv:
			vm.execDoubleArith(f, op, ops)

		case OpLess, OpLessEq, OpGreater, OpGreaterEq, OpIsEqual, OpNotEq:
			vm.execCompare(f, op, ops)

		case OpJump:
			f.pc += op.WordLen()
			f.pc += int(int16(ops[0]))
			continue

		case OpJumpIf:
			cond := *f.reg(&vm.regs, int(ops[0]))
			offset := int(int16(ops[1]))
			f.pc += op.WordLen()
			if cond.Truthy() {
				f.pc += offset
			}
			continue

		case OpGetItem:
			vm.execGetItem(f, ops)

		case OpSetItem:
			vm.execSetItem(f, ops)

		case OpGetProperty:
			dst, objReg, idx := int(ops[0]), int(ops[1]), int(ops[2])
			obj := *f.reg(&vm.regs, objReg)
			v := obj.At(idx)
			v.Retain()
			vm.assign(f, dst, v)

		case OpSetProperty:
			objReg, idx, srcReg := int(ops[0]), int(ops[1]), int(ops[2])
			obj := *f.reg(&vm.regs, objReg)
			v := *f.reg(&vm.regs, srcReg)
			v.Retain()
			obj.SetAt(idx, v)

		case OpBuildList, OpBuildTuple:
			vm.execBuild(f, op, ops)

		case OpBuildHash:
			dst, count := int(ops[0]), int(ops[1])
			h := vm.NewHash()
			base := dst + 1
			for i := 0; i < count; i++ {
				k := *f.reg(&vm.regs, base+2*i)
				val := *f.reg(&vm.regs, base+2*i+1)
				k.Retain()
				val.Retain()
				h.Set(k, val)
			}
			vm.assign(f, dst, h)

		case OpBuildEnum:
			dst, classID, arm := int(ops[0]), ops[1], int16(ops[2])
			v := vm.NewVariant(classID, arm, nil)
			vm.assign(f, dst, v)

		case OpNativeCall:
			vm.execNativeCall(f, ops)
			continue

		case OpForeignCall:
			vm.execForeignCall(f, ops)

		case OpFunctionCall:
			vm.execFunctionCall(f, ops)
			continue

		case OpReturnUnit:
			return Value{}

		case OpReturnVal:
			v := *f.reg(&vm.regs, int(ops[0]))
			return v

		case OpReturnFromVM:
			return Value{}

		case OpCreateClosure:
			dst, nCells := int(ops[0]), int(ops[1])
			proto := f.fn
			vm.assign(f, dst, vm.CreateClosure(proto, nCells))

		case OpLoadClosure:
			dst, protoReg := int(ops[0]), int(ops[1])
			proto := f.reg(&vm.regs, protoReg).Payload().(*funcBody)
			vm.assign(f, dst, vm.LoadClosure(proto, nil))

		case OpLoadClassClosure:
			dst, srcReg := int(ops[0]), int(ops[1])
			stored := *f.reg(&vm.regs, srcReg)
			vm.assign(f, dst, vm.LoadClassClosure(stored))

		case OpGetUpvalue:
			dst, idx := int(ops[0]), int(ops[1])
			vm.assign(f, dst, f.fn.GetUpvalue(idx))

		case OpSetUpvalue:
			idx, srcReg := int(ops[0]), int(ops[1])
			v := *f.reg(&vm.regs, srcReg)
			v.Retain()
			f.fn.SetUpvalue(idx, v)

		case OpForSetup:
			vm.execForSetup(f, ops)

		case OpIntegerFor:
			vm.execIntegerFor(f, op, ops)
			continue

		case OpPushTry:
			exceptPC := f.pc + op.WordLen() + int(int16(ops[0]))
			vm.raiser.pushTry(f, exceptPC)

		case OpPopTry:
			vm.raiser.popTry()

		case OpExceptCatch, OpExceptIgnore:
			// Not reached from codegen output: the try body's POP_TRY is
			// followed by a JUMP past every clause, and a raise jumps
			// directly to the handler PC instead of here.

		case OpRaise:
			exc := *f.reg(&vm.regs, int(ops[0]))
			vm.Raise(exc)

		case OpMatchDispatch:
			dst, subjReg := int(ops[0]), int(ops[1])
			subj := *f.reg(&vm.regs, subjReg)
			vm.assign(f, dst, NewInteger(int64(subj.VariantArm())))

		case OpVariantDecompose:
			dst, srcReg := int(ops[0]), int(ops[1])
			src := *f.reg(&vm.regs, srcReg)
			n := src.Len()
			for i := 0; i < n; i++ {
				v := src.At(i)
				v.Retain()
				vm.assign(f, dst+i, v)
			}

		case OpInterpolation:
			dst, count := int(ops[0]), int(ops[1])
			var b []byte
			base := dst + 1
			for i := 0; i < count; i++ {
				part := *f.reg(&vm.regs, base+i)
				b = append(b, part.StringData()...)
			}
			vm.assign(f, dst, vm.NewString(string(b)))

		case OpCreateFunction:
			dst, idx := int(ops[0]), int(ops[1])
			v := vm.program.Readonly[idx]
			v.Retain()
			vm.assign(f, dst, v)

		case OpDynamicCast:
			vm.execDynamicCast(f, ops)

		case OpNewInstanceBasic, OpNewInstanceSpeculative, OpNewInstanceTagged:
			dst, classID := int(ops[0]), ops[1]
			cls, _ := vm.classes.Get(classID)
			props := make([]Value, len(cls.Properties))
			v := vm.NewInstance(classID, props)
			if len(cls.Properties) >= 2 && vm.classes.IsAncestorOf(ClassException, classID) {
				v.SetAt(1, vm.NewList(ClassList, nil))
			}
			vm.assign(f, dst, v)

		default:
			vm.RaiseRuntimeError("Invalid opcode %d.", uint16(op))
		}

		f.pc += op.WordLen()
	}
}

// assign stores v into register dst, releasing whatever was there.
func (vm *VM) assign(f *frame, dst int, v Value) {
	r := f.reg(&vm.regs, dst)
	r.Release()
	*r = v
}

func (vm *VM) execIntegerArith(f *frame, op Op, ops []uint16) {
	dst, aReg, bReg := int(ops[0]), int(ops[1]), int(ops[2])
	a := f.reg(&vm.regs, aReg).Int()
	b := f.reg(&vm.regs, bReg).Int()
	var result int64
	switch op {
	case OpIntegerAdd:
		result = a + b
	case OpIntegerMinus:
		result = a - b
	case OpIntegerMul:
		result = a * b
	case OpIntegerDiv:
		if b == 0 {
			vm.RaiseDivisionByZero()
		}
		result = a / b
	case OpIntegerModulo:
		if b == 0 {
			vm.RaiseDivisionByZero()
		}
		result = a % b
	case OpIntegerShl:
		result = a << uint(b)
	case OpIntegerShr:
		result = a >> uint(b)
	case OpIntegerAnd:
		result = a & b
	case OpIntegerOr:
		result = a | b
	case OpIntegerXor:
		result = a ^ b
	}
	vm.assign(f, dst, NewInteger(result))
}

func (vm *VM) execDoubleArith(f *frame, op Op, ops []uint16) {
	dst, aReg, bReg := int(ops[0]), int(ops[1]), int(ops[2])
	a := f.reg(&vm.regs, aReg).Double()
	b := f.reg(&vm.regs, bReg).Double()
	var result float64
	switch op {
	case OpDoubleAdd:
		result = a + b
	case OpDoubleMinus:
		result = a - b
	case OpDoubleMul:
		result = a * b
	case OpDoubleDiv:
		if b == 0 {
			vm.RaiseDivisionByZero()
		}
		result = a / b
	}
	vm.assign(f, dst, NewDouble(result))
}

func (vm *VM) execCompare(f *frame, op Op, ops []uint16) {
	dst, aReg, bReg := int(ops[0]), int(ops[1]), int(ops[2])
	a := *f.reg(&vm.regs, aReg)
	b := *f.reg(&vm.regs, bReg)
	var result bool
	switch op {
	case OpLess:
		result = compareNumeric(a, b) < 0
	case OpLessEq:
		result = compareNumeric(a, b) <= 0
	case OpGreater:
		result = compareNumeric(a, b) > 0
	case OpGreaterEq:
		result = compareNumeric(a, b) >= 0
	case OpIsEqual:
		result = valuesEqual(a, b)
	case OpNotEq:
		result = !valuesEqual(a, b)
	}
	vm.assign(f, dst, NewBoolean(result))
}

func compareNumeric(a, b Value) int {
	var af, bf float64
	if a.Kind == KindDouble {
		af = a.Double()
	} else {
		af = float64(a.Int())
	}
	if b.Kind == KindDouble {
		bf = b.Double()
	} else {
		bf = float64(b.Int())
	}
	switch {
	case af < bf:
		return -1
	case af > bf:
		return 1
	default:
		return 0
	}
}

func valuesEqual(a, b Value) bool {
	if a.Kind == KindString && b.Kind == KindString {
		return a.StringData() == b.StringData()
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInteger, KindByte, KindBoolean:
		return a.Int() == b.Int()
	case KindDouble:
		return a.Double() == b.Double()
	case KindUnit:
		return true
	default:
		return a.ptr == b.ptr
	}
}

func (vm *VM) execGetItem(f *frame, ops []uint16) {
	dst, objReg, idxReg := int(ops[0]), int(ops[1]), int(ops[2])
	obj := *f.reg(&vm.regs, objReg)
	idxVal := *f.reg(&vm.regs, idxReg)
	switch obj.Kind {
	case KindList, KindTuple:
		i := int(idxVal.Int())
		size := obj.Len()
		if i < 0 {
			i += size
		}
		if i < 0 || i >= size {
			vm.RaiseIndexError(int(idxVal.Int()), size)
		}
		v := obj.At(i)
		v.Retain()
		vm.assign(f, dst, v)
	case KindString, KindByteString:
		i := int(idxVal.Int())
		v := vm.SliceString(obj, i, i+1)
		vm.assign(f, dst, v)
	case KindHash:
		v, ok := obj.Get(idxVal)
		if !ok {
			vm.RaiseKeyError(idxVal)
		}
		v.Retain()
		vm.assign(f, dst, v)
	default:
		vm.RaiseRuntimeError("Value is not indexable.")
	}
}

func (vm *VM) execSetItem(f *frame, ops []uint16) {
	objReg, idxReg, srcReg := int(ops[0]), int(ops[1]), int(ops[2])
	obj := *f.reg(&vm.regs, objReg)
	idxVal := *f.reg(&vm.regs, idxReg)
	src := *f.reg(&vm.regs, srcReg)
	src.Retain()
	switch obj.Kind {
	case KindList, KindTuple:
		i := int(idxVal.Int())
		size := obj.Len()
		if i < 0 {
			i += size
		}
		if i < 0 || i >= size {
			vm.RaiseIndexError(int(idxVal.Int()), size)
		}
		obj.SetAt(i, src)
	case KindHash:
		idxVal.Retain()
		obj.Set(idxVal, src)
	default:
		vm.RaiseRuntimeError("Value does not support item assignment.")
	}
}

func (vm *VM) execBuild(f *frame, op Op, ops []uint16) {
	dst, count := int(ops[0]), int(ops[1])
	elems := make([]Value, count)
	base := dst + 1
	for i := 0; i < count; i++ {
		v := *f.reg(&vm.regs, base+i)
		v.Retain()
		elems[i] = v
	}
	var built Value
	if op == OpBuildList {
		built = vm.NewList(ClassList, elems)
	} else {
		built = vm.NewTuple(ClassTuple, elems)
	}
	vm.assign(f, dst, built)
}

func (vm *VM) execForSetup(f *frame, ops []uint16) {
	stepReg := int(ops[2])
	step := f.reg(&vm.regs, stepReg).Int()
	if step == 0 {
		vm.RaiseValueError("for loop step cannot be 0.")
	}
}

// execIntegerFor drives one step of a numeric for loop. Codegen allocates
// three adjacent registers per loop, set up once by OpForSetup: idxReg
// (mutated in place each iteration), idxReg+1 (the exclusive limit), and
// idxReg+2 (the step). When the loop is done, pc jumps forward by the
// instruction's offset operand (out of the loop); otherwise the current
// index is copied into dst (the loop variable) and idxReg is bumped.
func (vm *VM) execIntegerFor(f *frame, op Op, ops []uint16) {
	dst, idxReg, offset := int(ops[0]), int(ops[1]), int(int16(ops[2]))
	idx := f.reg(&vm.regs, idxReg).Int()
	limit := f.reg(&vm.regs, idxReg+1).Int()
	step := f.reg(&vm.regs, idxReg+2).Int()

	var done bool
	if step > 0 {
		done = idx >= limit
	} else {
		done = idx <= limit
	}

	f.pc += op.WordLen()
	if done {
		f.pc += offset
		return
	}
	vm.assign(f, dst, NewInteger(idx))
	vm.assign(f, idxReg, NewInteger(idx+step))
}

func (vm *VM) execDynamicCast(f *frame, ops []uint16) {
	dst, srcReg, classID := int(ops[0]), int(ops[1]), ops[2]
	src := *f.reg(&vm.regs, srcReg)
	if src.ClassID() != classID && !vm.classes.IsAncestorOf(classID, src.ClassID()) {
		vm.RaiseRuntimeError("Cannot cast value to the requested class.")
	}
	src.Retain()
	vm.assign(f, dst, src)
}

// execNativeCall invokes an interpreted function already sitting in a
// register. Calling convention: operands are [dst, fnReg, argc]; the
// arguments occupy the argc registers immediately following fnReg in the
// caller's window, and are copied (moved) into the callee's fresh window
// by enterNative's caller once the frame exists.
func (vm *VM) execNativeCall(f *frame, ops []uint16) {
	dst, fnReg, argc := int(ops[0]), int(ops[1]), int(ops[2])
	fnVal := *f.reg(&vm.regs, fnReg)
	fn := fnVal.Payload().(*funcBody)

	callerArgBase := fnReg + 1
	args := make([]Value, argc)
	for i := 0; i < argc; i++ {
		v := *f.reg(&vm.regs, callerArgBase+i)
		v.Retain()
		args[i] = v
	}

	returnHere := f.pc + OpNativeCall.WordLen()
	f.pc = returnHere

	newFrame, err := vm.regs.enterNative(fn, dst)
	if err != nil {
		vm.RaiseRuntimeError("%s", err.Error())
		return
	}
	newFrame.upvalues = fn.Upvalues
	for i, a := range args {
		if i < newFrame.totalRegs {
			*newFrame.reg(&vm.regs, i) = a
		}
	}

	result := vm.run(newFrame)
	vm.regs.ret()
	vm.assign(f, dst, result)
}

// execForeignCall invokes a Go stdlib function via the funcBody.Foreign
// field, pushing a lightweight traceback-only frame around the call.
func (vm *VM) execForeignCall(f *frame, ops []uint16) {
	dst, fnReg, argc := int(ops[0]), int(ops[1]), int(ops[2])
	fnVal := *f.reg(&vm.regs, fnReg)
	fn := fnVal.Payload().(*funcBody)

	callerArgBase := fnReg + 1
	args := make([]Value, argc)
	for i := 0; i < argc; i++ {
		args[i] = *f.reg(&vm.regs, callerArgBase+i)
	}

	ff := vm.regs.enterForeign(fn.TraceName)
	ff.fn = fn
	call := &foreignCall{args: args}
	vm.pendingCall = call
	if err := fn.Foreign(vm); err != nil {
		vm.RaiseRuntimeError("%s", err.Error())
	}
	res := call.result
	vm.pendingCall = nil
	vm.regs.top = ff.prev
	vm.regs.depth--

	vm.assign(f, dst, res)
}

// execFunctionCall dispatches to either execNativeCall or
// execForeignCall depending on the callee's kind, advancing pc
// afterward (OpNativeCall manages its own pc because it recurses into
// run(); this wrapper keeps OpFunctionCall uniform for codegen that
// doesn't know ahead of time which kind a callee is).
func (vm *VM) execFunctionCall(f *frame, ops []uint16) {
	fnReg := int(ops[1])
	fn := f.reg(&vm.regs, fnReg).Payload().(*funcBody)
	if fn.IsForeign {
		vm.execForeignCall(f, ops)
		f.pc += OpFunctionCall.WordLen()
		return
	}
	vm.execNativeCall(f, ops)
}
