// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Command probec is the PROBE language compiler and interpreter front end.
//
// Usage:
//
//	probec tokens  <source.probe>
//	probec ast     <source.probe>
//	probec build   <source.probe> [-o out.pvmc]
//	probec run     <bytecode.pvmc>
//	probec disasm  <bytecode.pvmc>
//	probec repl
package main

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/olekukonko/tablewriter"
	"github.com/peterh/liner"
	"gopkg.in/urfave/cli.v1"

	"github.com/probechain/probe-lang/lang/codegen"
	"github.com/probechain/probe-lang/lang/lexer"
	"github.com/probechain/probe-lang/lang/parser"
	"github.com/probechain/probe-lang/runtime"
	"github.com/probechain/probe-lang/vm"
)

const version = "0.1.0"

func main() {
	app := cli.NewApp()
	app.Name = "probec"
	app.Usage = "PROBE language compiler and interpreter"
	app.Version = version
	app.Commands = []cli.Command{
		{
			Name:      "tokens",
			Usage:     "lex a source file and print its token stream",
			ArgsUsage: "<source.probe>",
			Action:    cmdTokens,
		},
		{
			Name:      "ast",
			Usage:     "parse a source file and print its syntax tree",
			ArgsUsage: "<source.probe>",
			Action:    cmdAST,
		},
		{
			Name:      "build",
			Usage:     "compile a source file to bytecode",
			ArgsUsage: "<source.probe>",
			Flags: []cli.Flag{
				cli.StringFlag{Name: "o", Usage: "output path (default: <source>.pvmc)"},
				cli.BoolFlag{Name: "skip-verify", Usage: "skip the bytecode verifier"},
				cli.BoolFlag{Name: "skip-linear", Usage: "skip the linear-resource diagnostic pass"},
			},
			Action: cmdBuild,
		},
		{
			Name:      "run",
			Usage:     "execute a compiled bytecode file",
			ArgsUsage: "<bytecode.pvmc>",
			Action:    cmdRun,
		},
		{
			Name:      "disasm",
			Usage:     "disassemble a compiled bytecode file",
			ArgsUsage: "<bytecode.pvmc>",
			Action:    cmdDisasm,
		},
		{
			Name:   "repl",
			Usage:  "lex/parse source interactively, one declaration at a time",
			Action: cmdRepl,
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "probec: %v\n", err)
		os.Exit(1)
	}
}

func cmdTokens(c *cli.Context) error {
	filename, source, err := readSource(c)
	if err != nil {
		return err
	}
	l := lexer.New(filename, source)
	for _, tok := range l.Tokenize() {
		fmt.Printf("%s\t%s\t%q\n", tok.Pos, tok.Type, tok.Literal)
	}
	return nil
}

func cmdAST(c *cli.Context) error {
	filename, source, err := readSource(c)
	if err != nil {
		return err
	}
	prog, errs := parser.Parse(filename, source)
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e)
	}
	if len(errs) > 0 {
		return cli.NewExitError("parse failed", 1)
	}
	fmt.Println(prog.String())
	return nil
}

// cmdBuild compiles a source file straight to a gob-encoded vm.Program:
// lexer.New -> parser.Parse -> codegen.Generate, the same pipeline cmdRun's
// companion cmdDisasm consumes. A failed parse or a codegen error list
// aborts the build; the linear-resource pass (run on the parsed AST before
// Generate) and the bytecode verifier (run after a successful compile) only
// print warnings, since neither one is load-bearing for producing runnable
// bytecode.
func cmdBuild(c *cli.Context) error {
	filename, source, err := readSource(c)
	if err != nil {
		return err
	}

	prog, errs := parser.Parse(filename, source)
	for _, e := range errs {
		fmt.Fprintln(os.Stderr, e)
	}
	if len(errs) > 0 {
		return cli.NewExitError("parse failed", 1)
	}

	if !c.Bool("skip-linear") {
		warn := color.New(color.FgYellow)
		for _, m := range codegen.CheckLinearity(prog) {
			warn.Fprintf(os.Stderr, "warning: %s\n", m)
		}
	}

	vmProg, genErrs := codegen.Generate(prog)
	for _, e := range genErrs {
		fmt.Fprintln(os.Stderr, e)
	}
	if len(genErrs) > 0 {
		return cli.NewExitError("codegen failed", 1)
	}

	if !c.Bool("skip-verify") {
		for _, v := range codegen.Verify(vmProg) {
			fmt.Fprintf(os.Stderr, "warning: %s\n", v.Error())
		}
	}

	out := c.String("o")
	if out == "" {
		out = outputPath(filename)
	}
	if err := saveProgram(out, vmProg); err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Fprintf(os.Stderr, "wrote %s\n", out)
	return nil
}

// outputPath derives foo.pvmc from foo.probe, or foo.probe.pvmc when the
// source has no recognized extension.
func outputPath(source string) string {
	if strings.HasSuffix(source, ".probe") {
		return strings.TrimSuffix(source, ".probe") + ".pvmc"
	}
	return source + ".pvmc"
}

func cmdRun(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("usage: probec run <bytecode.pvmc>", 1)
	}
	prog, err := loadProgram(c.Args().Get(0))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	eng, err := runtime.New(prog, runtime.DefaultEngineOptions)
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}
	defer eng.Close()

	result, err := eng.Run()
	if err != nil {
		for _, line := range eng.Traceback() {
			fmt.Fprintln(os.Stderr, "  "+line)
		}
		return cli.NewExitError(err.Error(), 1)
	}
	fmt.Println(eng.VM().Repr(result))
	return nil
}

func cmdDisasm(c *cli.Context) error {
	if c.NArg() < 1 {
		return cli.NewExitError("usage: probec disasm <bytecode.pvmc>", 1)
	}
	prog, err := loadProgram(c.Args().Get(0))
	if err != nil {
		return cli.NewExitError(err.Error(), 1)
	}

	table := tablewriter.NewWriter(colorableStdout())
	table.SetHeader([]string{"pc", "line", "op", "operands"})
	for _, l := range vm.DisassembleProgram(prog) {
		table.Append([]string{
			fmt.Sprintf("%d", l.PC),
			fmt.Sprintf("%d", l.Line),
			l.Mnemonic,
			fmt.Sprintf("%v", l.Operands),
		})
	}
	table.Render()
	return nil
}

func cmdRepl(c *cli.Context) error {
	out := colorableStdout()
	warn := color.New(color.FgYellow)
	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)

	fmt.Fprintf(out, "probec %s — type a PROBE declaration, Ctrl-D to quit\n", version)
	for {
		text, err := line.Prompt("probe> ")
		if err != nil {
			break
		}
		if text == "" {
			continue
		}
		line.AppendHistory(text)

		prog, errs := parser.Parse("<repl>", text)
		if len(errs) > 0 {
			for _, e := range errs {
				warn.Fprintln(out, e)
			}
			continue
		}
		fmt.Fprintln(out, prog.String())
	}
	return nil
}

func readSource(c *cli.Context) (string, string, error) {
	if c.NArg() < 1 {
		return "", "", cli.NewExitError("usage: probec "+c.Command.Name+" <source.probe>", 1)
	}
	filename := c.Args().Get(0)
	data, err := os.ReadFile(filename)
	if err != nil {
		return "", "", cli.NewExitError(err.Error(), 1)
	}
	return filename, string(data), nil
}

// loadProgram reads a gob-encoded vm.Program, the format runtime/cache.go
// also uses for its bytecode cache entries. A standalone .pvmc file is
// just one such blob written directly to disk instead of leveldb.
func loadProgram(path string) (*vm.Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var prog vm.Program
	if err := gob.NewDecoder(f).Decode(&prog); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &prog, nil
}

// saveProgram gob-encodes prog to path, the write side of loadProgram.
func saveProgram(path string, prog *vm.Program) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := gob.NewEncoder(f).Encode(prog); err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return nil
}

func colorableStdout() io.Writer {
	if isatty.IsTerminal(os.Stdout.Fd()) {
		return colorable.NewColorable(os.Stdout)
	}
	return os.Stdout
}
