// Copyright 2024 The ProbeChain Authors
// This file is part of the ProbeChain.
//
// The ProbeChain is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.

// Package integration exposes a debug/introspection HTTP+WebSocket
// server over an Engine: lex and parse PROBE source, run compiled
// bytecode, disassemble it, and stream a REPL-style session over a
// websocket.
package integration

import (
	"context"
	"encoding/gob"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/probechain/probe-lang/lang/lexer"
	"github.com/probechain/probe-lang/lang/parser"
	"github.com/probechain/probe-lang/runtime"
	"github.com/probechain/probe-lang/runtime/vmlog"
	"github.com/probechain/probe-lang/vm"
)

// Server is the debug/introspection HTTP+WS front end around an Engine.
type Server struct {
	opts     runtime.EngineOptions
	upgrader websocket.Upgrader
	log      *vmlog.Logger
}

// NewServer builds a Server that boots a fresh Engine per request/session
// using opts.
func NewServer(opts runtime.EngineOptions) *Server {
	return &Server{
		opts: opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: vmlog.Default,
	}
}

// ListenAndServe starts the HTTP+WS server on addr and blocks until ctx
// is canceled or the server errors. It shuts down gracefully on
// cancellation, coordinated via golang.org/x/sync/errgroup the same way
// the wider node coordinates its own listener goroutines.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	router := httprouter.New()
	router.POST("/tokens", s.handleTokens)
	router.POST("/ast", s.handleAST)
	router.POST("/run", s.handleRun)
	router.POST("/disasm", s.handleDisasm)
	router.GET("/session", s.handleSession)

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
	}).Handler(router)

	srv := &http.Server{Addr: addr, Handler: handler}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("integration server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type sourceRequest struct {
	Filename string `json:"filename"`
	Source   string `json:"source"`
}

type tokenOut struct {
	Pos     string `json:"pos"`
	Type    string `json:"type"`
	Literal string `json:"literal"`
}

func (s *Server) handleTokens(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req sourceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	l := lexer.New(req.Filename, req.Source)
	out := make([]tokenOut, 0, 64)
	for _, tok := range l.Tokenize() {
		out = append(out, tokenOut{Pos: tok.Pos.String(), Type: tok.Type.String(), Literal: tok.Literal})
	}
	writeJSON(w, http.StatusOK, out)
}

type astResult struct {
	Tree   string   `json:"tree,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

func (s *Server) handleAST(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req sourceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	prog, errs := parser.Parse(req.Filename, req.Source)
	if len(errs) > 0 {
		strs := make([]string, len(errs))
		for i, e := range errs {
			strs[i] = e.Error()
		}
		writeJSON(w, http.StatusOK, astResult{Errors: strs})
		return
	}
	writeJSON(w, http.StatusOK, astResult{Tree: prog.String()})
}

type runResult struct {
	Result     string   `json:"result,omitempty"`
	Error      string   `json:"error,omitempty"`
	Traceback  []string `json:"traceback,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	prog, err := decodeProgram(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, runResult{Error: err.Error()})
		return
	}
	eng, err := runtime.New(prog, s.opts)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, runResult{Error: err.Error()})
		return
	}
	defer eng.Close()

	result, err := eng.Run()
	if err != nil {
		writeJSON(w, http.StatusOK, runResult{Error: err.Error(), Traceback: eng.Traceback()})
		return
	}
	writeJSON(w, http.StatusOK, runResult{Result: eng.VM().Repr(result)})
}

type disasmLine struct {
	PC       int      `json:"pc"`
	Line     int      `json:"line"`
	Mnemonic string   `json:"mnemonic"`
	Operands []uint16 `json:"operands"`
}

func (s *Server) handleDisasm(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	prog, err := decodeProgram(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	lines := vm.DisassembleProgram(prog)
	out := make([]disasmLine, len(lines))
	for i, l := range lines {
		out[i] = disasmLine{PC: l.PC, Line: l.Line, Mnemonic: l.Mnemonic, Operands: l.Operands}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleSession upgrades to a websocket and echoes a parse-tree per line
// of PROBE source sent by the client, for an editor's live-preview pane.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed: %s", err.Error())
		return
	}
	defer conn.Close()

	sessionID := uuid.New()
	s.log.Debug("session %s opened from %s", sessionID, r.RemoteAddr)
	defer s.log.Debug("session %s closed", sessionID)

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		prog, errs := parser.Parse("<session>", string(msg))
		if len(errs) > 0 {
			strs := make([]string, len(errs))
			for i, e := range errs {
				strs[i] = e.Error()
			}
			_ = conn.WriteJSON(astResult{Errors: strs})
			continue
		}
		_ = conn.WriteJSON(astResult{Tree: prog.String()})
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return false
	}
	return true
}

func decodeProgram(r *http.Request) (*vm.Program, error) {
	var prog vm.Program
	if err := gob.NewDecoder(r.Body).Decode(&prog); err != nil {
		return nil, err
	}
	return &prog, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
