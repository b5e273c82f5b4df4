// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.

package codegen

import (
	"testing"

	"github.com/probechain/probe-lang/lang/parser"
	"github.com/probechain/probe-lang/vm"
)

func mustGenerate(t *testing.T, src string) *vm.Program {
	t.Helper()
	prog, errs := parser.Parse("test.probe", src)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	out, genErrs := Generate(prog)
	if len(genErrs) > 0 {
		t.Fatalf("unexpected codegen errors: %v", genErrs)
	}
	return out
}

func mnemonics(prog *vm.Program) []string {
	var names []string
	for _, l := range vm.DisassembleProgram(prog) {
		names = append(names, l.Mnemonic)
	}
	return names
}

func contains(names []string, want string) bool {
	for _, n := range names {
		if n == want {
			return true
		}
	}
	return false
}

func TestGenerateSimpleAdd(t *testing.T) {
	src := `
fn main() -> u64 {
    let a = 1;
    let b = 2;
    a + b
}
`
	out := mustGenerate(t, src)
	if out.EntryFunction == nil {
		t.Fatal("expected an entry function")
	}
	names := mnemonics(out)
	if !contains(names, "INTEGER_ADD") {
		t.Errorf("expected an INTEGER_ADD instruction, got %v", names)
	}
	if names[len(names)-1] != "RETURN_VAL" {
		t.Errorf("expected body to end in RETURN_VAL, got %s", names[len(names)-1])
	}
	if errs := Verify(out); len(errs) > 0 {
		t.Errorf("unexpected verify errors: %v", errs)
	}
}

func TestGenerateWithConstant(t *testing.T) {
	src := `
fn main() -> u64 {
    let big = 1000000;
    big
}
`
	out := mustGenerate(t, src)
	if len(out.Readonly) == 0 {
		t.Fatal("expected a readonly constant for a value outside GET_INTEGER's immediate range")
	}
	names := mnemonics(out)
	if !contains(names, "GET_READONLY") {
		t.Errorf("expected a GET_READONLY instruction for the large integer literal, got %v", names)
	}
}

func TestGenerateIfElseBranch(t *testing.T) {
	src := `
fn main(x: bool) -> u64 {
    if x {
        1
    } else {
        0
    }
}
`
	out := mustGenerate(t, src)
	names := mnemonics(out)
	if !contains(names, "JUMP") || !contains(names, "JUMP_IF") {
		t.Errorf("expected JUMP/JUMP_IF instructions for an if/else, got %v", names)
	}
	if errs := Verify(out); len(errs) > 0 {
		t.Errorf("unexpected verify errors: %v", errs)
	}
}

func TestGenerateForLoop(t *testing.T) {
	src := `
fn main() -> u64 {
    let total = 0;
    for i in 0..10 {
        total = total + i;
    }
    total
}
`
	out := mustGenerate(t, src)
	names := mnemonics(out)
	if !contains(names, "FOR_SETUP") || !contains(names, "INTEGER_FOR") {
		t.Errorf("expected FOR_SETUP/INTEGER_FOR instructions for a ranged for-loop, got %v", names)
	}
	if errs := Verify(out); len(errs) > 0 {
		t.Errorf("unexpected verify errors: %v", errs)
	}
}

func TestGenerateClassDecl(t *testing.T) {
	src := `
pub class InsufficientFunds extends Exception {
    amount: u64
}

fn main() {
    raise InsufficientFunds(5);
}
`
	out := mustGenerate(t, src)
	if len(out.Classes) != 1 {
		t.Fatalf("expected 1 user class registered, got %d", len(out.Classes))
	}
	cls := out.Classes[0]
	if cls.Name != "InsufficientFunds" {
		t.Errorf("class name = %q, want InsufficientFunds", cls.Name)
	}
	wantProps := []string{"message", "traceback", "amount"}
	if len(cls.Properties) != len(wantProps) {
		t.Fatalf("Properties = %v, want %v", cls.Properties, wantProps)
	}
	for i, p := range wantProps {
		if cls.Properties[i] != p {
			t.Errorf("Properties[%d] = %q, want %q", i, cls.Properties[i], p)
		}
	}
	names := mnemonics(out)
	if !contains(names, "NEW_INSTANCE_BASIC") || !contains(names, "RAISE") {
		t.Errorf("expected NEW_INSTANCE_BASIC + RAISE for raising a user exception, got %v", names)
	}
}

func TestGenerateTryExcept(t *testing.T) {
	src := `
fn main() {
    try {
        raise ValueError;
    } except ValueError as err {
        return;
    } except RuntimeError {
        return;
    }
}
`
	out := mustGenerate(t, src)
	names := mnemonics(out)
	for _, want := range []string{"PUSH_TRY", "POP_TRY", "EXCEPT_CATCH", "EXCEPT_IGNORE", "RAISE"} {
		if !contains(names, want) {
			t.Errorf("expected %s in try/except bytecode, got %v", want, names)
		}
	}
	if errs := Verify(out); len(errs) > 0 {
		t.Errorf("unexpected verify errors: %v", errs)
	}
}

func TestGenerateTryFinally(t *testing.T) {
	src := `
fn main() {
    try {
        return;
    } finally {
        return;
    }
}
`
	out := mustGenerate(t, src)
	names := mnemonics(out)
	if !contains(names, "PUSH_TRY") || !contains(names, "POP_TRY") {
		t.Errorf("expected PUSH_TRY/POP_TRY for a try/finally, got %v", names)
	}
}

func TestGenerateNoMainIsError(t *testing.T) {
	src := `fn helper() -> u64 { 1 }`
	prog, errs := parser.Parse("test.probe", src)
	if len(errs) > 0 {
		t.Fatalf("unexpected parse errors: %v", errs)
	}
	_, genErrs := Generate(prog)
	if len(genErrs) == 0 {
		t.Fatal("expected a codegen error for a program with no fn main")
	}
}

func TestVerifyDetectsOutOfBoundsConstant(t *testing.T) {
	out := mustGenerate(t, `fn main() -> u64 { let big = 1000000; big }`)

	fn := out.EntryFunction
	lines := vm.DisassembleProgram(out)
	corrupted := false
	for _, l := range lines {
		if l.Mnemonic == "GET_READONLY" {
			fn.Code[l.PC+3] = 0xFFFF
			corrupted = true
			break
		}
	}
	if !corrupted {
		t.Fatal("expected the generated program to contain a GET_READONLY instruction to corrupt")
	}

	errs := Verify(out)
	if len(errs) == 0 {
		t.Error("expected a verify error for an out-of-bounds constant index")
	}
}

func TestVerifyDetectsBadJumpTarget(t *testing.T) {
	out := mustGenerate(t, `
fn main(x: bool) -> u64 {
    if x { 1 } else { 0 }
}
`)

	fn := out.EntryFunction
	lines := vm.DisassembleProgram(out)
	corrupted := false
	for _, l := range lines {
		if l.Mnemonic == "JUMP" {
			fn.Code[l.PC+2] = 0x7FFF
			corrupted = true
			break
		}
	}
	if !corrupted {
		t.Fatal("expected the generated program to contain a JUMP instruction to corrupt")
	}

	errs := Verify(out)
	if len(errs) == 0 {
		t.Error("expected a verify error for an out-of-bounds jump target")
	}
}
