// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package codegen lowers a parsed PROBE program directly into a
// vm.Program: a readonly constant pool, a class table, and an entry
// function body encoded as vm.Op 16-bit-word bytecode. There is no
// intermediate IR stage — the AST is compiled straight to registers and
// jumps, the way a small one-pass bytecode compiler works.
package codegen

import (
	"fmt"

	"github.com/probechain/probe-lang/lang/ast"
	"github.com/probechain/probe-lang/vm"
)

// nilVM reaches vm.(*VM).NewString at compile time. NewString validates
// UTF-8 and wraps the bytes in a non-cyclic ClassString payload; it never
// touches the VM receiver, so calling it against nil here is safe and
// lets codegen build string constants before any VM instance exists.
var nilVM *vm.VM

// Generate compiles prog into a runnable vm.Program. Compile errors are
// collected and returned rather than stopping at the first one, mirroring
// lang/parser.Parse's (result, errs) convention.
func Generate(prog *ast.Program) (*vm.Program, []string) {
	g := newGenerator()
	g.registerDeclarations(prog)

	out := &vm.Program{}
	g.compilePending(out)
	out.Readonly = g.constants
	out.Classes = g.classTab

	if out.EntryFunction == nil {
		g.errorf("no 'fn main' declaration found")
	}
	return out, g.errs
}

// classInfo records everything codegen needs about a declared class: its
// runtime id, the field layout NewInstanceBasic relies on, and (to let
// a.b.c field chains resolve without a type checker) each field's
// declared type name.
type classInfo struct {
	id         uint16
	fieldIndex map[string]int
	fieldType  map[string]string
	fieldOrder []string // declared (non-hidden) fields, in source order
	methods    map[string]string
}

type pendingFn struct {
	decl      *ast.FnDecl
	ownerType string // enclosing class name for a method; "" for free functions
}

// generator owns whole-program compilation state: class/function
// registries built in pass 1, and the readonly pool filled in pass 2.
type generator struct {
	classes map[string]*classInfo
	builtin map[string]uint16 // builtin exception class name -> id

	enumArm  map[string]int16  // variant name -> arm index (program-wide)
	enumOf   map[string]string // variant name -> owning enum name
	enums    map[string]uint16

	classTab []vm.Class

	pendingFns map[string]*pendingFn
	functions  map[string]int // function name -> readonly index

	constants []vm.Value
	errs      []string
}

func newGenerator() *generator {
	return &generator{
		classes:    map[string]*classInfo{},
		enumArm:    map[string]int16{},
		enumOf:     map[string]string{},
		enums:      map[string]uint16{},
		pendingFns: map[string]*pendingFn{},
		functions:  map[string]int{},
		builtin: map[string]uint16{
			"Exception":           vm.ClassException,
			"IOError":             vm.ClassIOError,
			"KeyError":            vm.ClassKeyError,
			"RuntimeError":        vm.ClassRuntimeError,
			"ValueError":          vm.ClassValueError,
			"IndexError":          vm.ClassIndexError,
			"DivisionByZeroError": vm.ClassDivisionByZeroError,
			"AssertionError":      vm.ClassAssertionError,
		},
	}
}

func (g *generator) errorf(format string, args ...interface{}) {
	g.errs = append(g.errs, fmt.Sprintf(format, args...))
}

// registerDeclarations is pass 1: every class gets a stable id (so
// mutual/forward calls and field chains resolve) and every function body
// is queued for pass 2. Declarations with no representation in this
// execution core — structs used only as data shapes with no literal
// syntax, traits, agents, resources, type aliases, use/mod — are left
// alone; the parser still accepts them, codegen just doesn't lower them.
func (g *generator) registerDeclarations(prog *ast.Program) {
	for _, d := range prog.Declarations {
		if cd, ok := d.(*ast.ClassDecl); ok {
			g.registerClass(cd)
		}
	}
	for _, d := range prog.Declarations {
		if ed, ok := d.(*ast.EnumDecl); ok {
			g.registerEnum(ed)
		}
	}
	for _, d := range prog.Declarations {
		switch decl := d.(type) {
		case *ast.FnDecl:
			g.queueFn(decl, "")
		case *ast.ClassDecl:
			for i := range decl.Methods {
				g.queueFn(&decl.Methods[i], decl.Name)
			}
		case *ast.ImplDecl:
			if _, ok := g.classes[decl.TypeName]; !ok {
				g.errorf("impl %s: no such class", decl.TypeName)
				continue
			}
			for i := range decl.Methods {
				g.queueFn(&decl.Methods[i], decl.TypeName)
			}
		}
	}
}

func mangle(typeName, method string) string { return typeName + "::" + method }

func (g *generator) queueFn(decl *ast.FnDecl, owner string) {
	name := decl.Name
	if owner != "" {
		name = mangle(owner, decl.Name)
		g.classes[owner].methods[decl.Name] = name
	}
	if _, exists := g.pendingFns[name]; exists {
		g.errorf("function %s redeclared", name)
		return
	}
	g.pendingFns[name] = &pendingFn{decl: decl, ownerType: owner}
}

// registerClass assigns cd a class id and a Properties layout: the hidden
// [message, traceback] pair every Exception descendant needs (see
// vm/class.go's builtin rows), followed by its declared fields in order.
// Every ClassDecl is exception-rooted — directly at ClassException when
// Super is empty, otherwise at the named superclass — so any declared
// class can be raised and caught by name. A named superclass must
// already be registered; mutual class inheritance is not supported.
func (g *generator) registerClass(cd *ast.ClassDecl) {
	if _, exists := g.classes[cd.Name]; exists {
		g.errorf("class %s redeclared", cd.Name)
		return
	}
	super := vm.ClassException
	if cd.Super != "" {
		if id, ok := g.builtin[cd.Super]; ok {
			super = id
		} else if ci, ok := g.classes[cd.Super]; ok {
			super = ci.id
		} else {
			g.errorf("class %s: unknown superclass %s", cd.Name, cd.Super)
		}
	}

	props := []string{"message", "traceback"}
	fieldIndex := map[string]int{"message": 0, "traceback": 1}
	fieldType := map[string]string{}
	var order []string
	for i, f := range cd.Fields {
		props = append(props, f.Name)
		fieldIndex[f.Name] = 2 + i
		order = append(order, f.Name)
		if nt, ok := f.Type.(*ast.NamedType); ok {
			fieldType[f.Name] = nt.Name
		}
	}

	id := uint16(len(g.classTab)) + vm.FirstUserClassID
	g.classTab = append(g.classTab, vm.Class{
		ID: id, Name: cd.Name, Super: super, HasSuper: true, Cyclic: true, Properties: props,
	})
	g.classes[cd.Name] = &classInfo{
		id: id, fieldIndex: fieldIndex, fieldType: fieldType, fieldOrder: order, methods: map[string]string{},
	}
}

// registerEnum gives ed a class id purely so BUILD_ENUM/MATCH_DISPATCH
// have something to tag, and records each variant's arm index. Variant
// names are assumed unique program-wide, since a match arm references a
// variant by bare name with no enum-type qualifier — a known, disclosed
// simplification rather than a silent miscompile.
func (g *generator) registerEnum(ed *ast.EnumDecl) {
	id := uint16(len(g.classTab)) + vm.FirstUserClassID
	g.classTab = append(g.classTab, vm.Class{ID: id, Name: ed.Name, Cyclic: true})
	g.enums[ed.Name] = id
	for i, v := range ed.Variants {
		g.enumArm[v.Name] = int16(i)
		g.enumOf[v.Name] = ed.Name
	}
}

// compilePending is pass 2, split in two so mutually-referencing
// functions resolve regardless of map-iteration order: first every
// queued function gets its readonly-pool slot and an (as yet empty)
// funcBody reserved, so any call site compiled afterward can already
// look itself up in g.functions; then each body is actually lowered and
// its funcBody is filled in through a closure capturing it.
//
// fn's type is the unexported *funcBody that vm.NewFuncBody returns, so
// it can never be named as a variable/field/slice-element type in this
// package — but a closure that captures it needs no such type name, so
// that is how its Code/RegCount get installed once pass 2b compiles it.
func (g *generator) compilePending(out *vm.Program) {
	finish := map[string]func(code []uint16, regCount int){}
	for name := range g.pendingFns {
		fn := vm.NewFuncBody(nil, 0, nil, name, "", "")
		idx := len(g.constants)
		g.constants = append(g.constants, vm.NewFunction(fn))
		g.functions[name] = idx
		finish[name] = func(code []uint16, regCount int) {
			fn.Code = code
			fn.RegCount = regCount
		}
		if name == "main" {
			out.EntryFunction = fn
		}
	}

	for name, pf := range g.pendingFns {
		fg := &funcGen{g: g, locals: map[string]int{}, varClass: map[string]string{}}
		for _, p := range pf.decl.Params {
			r := fg.alloc()
			fg.locals[p.Name] = r
			if p.Name == "self" && pf.ownerType != "" {
				fg.varClass[p.Name] = pf.ownerType
			}
		}

		result := fg.compileBlock(pf.decl.Body)
		// A mid-body 'return'/'raise' already exited; this trailing
		// instruction only fires when the block falls through normally,
		// and is harmless dead code otherwise.
		fg.emit(vm.OpReturnVal, uint16(result))

		finish[name](fg.code, fg.nextReg)
	}
}
