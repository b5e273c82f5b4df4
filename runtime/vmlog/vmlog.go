// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package vmlog is a small leveled logger in the same plain, colorized
// style the wider ProbeChain node uses for its own console output.
package vmlog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/go-stack/stack"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Level is a log severity.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelColor = map[Level]*color.Color{
	LevelDebug: color.New(color.FgHiBlack),
	LevelInfo:  color.New(color.FgCyan),
	LevelWarn:  color.New(color.FgYellow),
	LevelError: color.New(color.FgRed),
	LevelFatal: color.New(color.FgHiRed, color.Bold),
}

var levelName = map[Level]string{
	LevelDebug: "DEBG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "EROR",
	LevelFatal: "FATL",
}

// Logger writes leveled lines to an output stream, colorizing when that
// stream is a terminal.
type Logger struct {
	out   io.Writer
	level Level
	color bool
}

// New builds a Logger writing to w (os.Stdout/os.Stderr typically),
// auto-detecting terminal color support the same way the node's console
// output does (mattn/go-isatty + mattn/go-colorable).
func New(w io.Writer, level Level) *Logger {
	useColor := false
	if f, ok := w.(*os.File); ok {
		useColor = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
		if useColor {
			w = colorable.NewColorable(f)
		}
	}
	return &Logger{out: w, level: level, color: useColor}
}

func (l *Logger) log(lvl Level, format string, args ...interface{}) {
	if lvl < l.level {
		return
	}
	ts := time.Now().Format("15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	if l.color {
		levelColor[lvl].Fprintf(l.out, "[%s] %-4s %s\n", ts, levelName[lvl], msg)
		return
	}
	fmt.Fprintf(l.out, "[%s] %-4s %s\n", ts, levelName[lvl], msg)
}

func (l *Logger) Debug(format string, args ...interface{}) { l.log(LevelDebug, format, args...) }
func (l *Logger) Info(format string, args ...interface{})  { l.log(LevelInfo, format, args...) }
func (l *Logger) Warn(format string, args ...interface{})  { l.log(LevelWarn, format, args...) }
func (l *Logger) Error(format string, args ...interface{}) { l.log(LevelError, format, args...) }

// Fatal logs at LevelFatal, appends the Go-level call stack (distinct
// from a VM traceback: this is where in the host binary the fault was
// raised, not where in interpreted code), and terminates the process.
// Reserved for unrecoverable engine faults, never for ordinary
// interpreted-program exceptions.
func (l *Logger) Fatal(format string, args ...interface{}) {
	l.log(LevelFatal, format, args...)
	l.log(LevelFatal, "at %+v", stack.Caller(1))
	os.Exit(1)
}

// Default is the package-level logger cmd/probec and runtime.Engine use
// unless a caller supplies its own.
var Default = New(os.Stderr, LevelInfo)
