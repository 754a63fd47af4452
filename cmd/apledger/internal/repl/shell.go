// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package repl drives the interactive shell: it reads lines, resolves and
// runs commands against the session context, and keeps the history.
package repl

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/chzyer/readline"

	"github.com/aplane-algo/apledger/internal/command"
	"github.com/aplane-algo/apledger/internal/console"
	"github.com/aplane-algo/apledger/internal/history"
)

// LineEditor is the terminal side of the shell.
type LineEditor interface {
	Readline() (string, error)
	SetPrompt(prompt string)
	AddHistory(line string) error
	Close() error
}

// SecretReader reads a masked value for a deferred parameter.
type SecretReader interface {
	ReadSecret(prompt string) (string, error)
}

// ErrNoTerminal is returned by a SecretReader that cannot mask input.
var ErrNoTerminal = errors.New("input is not a terminal")

// Shell runs commands from a LineEditor until exit is requested or input
// ends.
type Shell struct {
	registry *command.Registry
	ctx      *command.Context
	printer  *console.Printer
	history  *history.History
	secrets  SecretReader
}

// NewShell returns a shell over registry and ctx. hist may be nil (no
// history). secrets may be nil, in which case deferred parameters must be
// given inline.
func NewShell(registry *command.Registry, ctx *command.Context, printer *console.Printer, hist *history.History, secrets SecretReader) *Shell {
	return &Shell{
		registry: registry,
		ctx:      ctx,
		printer:  printer,
		history:  hist,
		secrets:  secrets,
	}
}

// Context returns the session context.
func (s *Shell) Context() *command.Context { return s.ctx }

// Run reads and executes lines until exit is requested or the editor
// reports io.EOF.
func (s *Shell) Run(editor LineEditor) error {
	if s.history != nil {
		for _, line := range s.history.Lines() {
			_ = editor.AddHistory(line)
		}
	}

	for !s.ctx.ExitRequested() {
		editor.SetPrompt(s.ctx.PromptLine())

		line, err := editor.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) {
				if len(line) == 0 {
					s.printer.Println("Use 'exit' to exit")
				}
				continue
			}
			if errors.Is(err, io.EOF) {
				break
			}
			return fmt.Errorf("failed to read input: %w", err)
		}

		if s.execute(line) {
			_ = editor.AddHistory(line)
		}
	}
	return nil
}

// Execute runs one input line. Failures are reported on the error stream
// and also returned.
func (s *Shell) Execute(line string) error {
	_, err := s.run(line)
	return err
}

// execute runs line and reports whether it was recorded in the history.
func (s *Shell) execute(line string) bool {
	out, _ := s.run(line)
	return out.reached && !out.secret && s.record(line)
}

// outcome describes how far a line got. secret is set when the line itself
// carries a value for a deferred parameter.
type outcome struct {
	reached bool
	secret  bool
}

func (s *Shell) run(line string) (out outcome, err error) {
	if strings.HasPrefix(strings.TrimSpace(line), "#") {
		return out, nil
	}
	tokens := command.HelpTokens(command.Tokenize(line))
	if len(tokens) == 0 {
		return out, nil
	}

	res, err := s.registry.Resolve(tokens)
	if err != nil {
		s.report(err)
		return out, err
	}
	meta := res.Command.Metadata

	raw, err := command.SplitArgs(res.Args(tokens), meta)
	if err != nil {
		s.report(err)
		return out, err
	}
	for name := range raw.Named {
		if meta.IsSecret(name) {
			out.secret = true
		}
	}
	if err := s.promptDeferred(&raw); err != nil {
		s.report(err)
		return out, err
	}
	params, err := command.ParseParams(raw, meta)
	if err != nil {
		s.report(err)
		return out, err
	}

	slog.Debug("execute >>", "command", res.Command.Name(), "group", res.Group, "params", params)
	err = res.Command.Handler.Execute(s.ctx, params)
	slog.Debug("execute <<", "command", res.Command.Name(), "ok", err == nil)
	if err != nil {
		s.report(err)
	}
	out.reached = true
	return out, err
}

// promptDeferred asks for each deferred parameter named without a value.
// Without a terminal the parameter stays unset and parsing reports it.
func (s *Shell) promptDeferred(raw *command.RawArgs) error {
	if s.secrets == nil {
		return nil
	}
	for _, name := range raw.Prompted {
		if _, given := raw.Named[name]; given {
			continue
		}
		value, err := s.secrets.ReadSecret(fmt.Sprintf("Enter value for %s: ", name))
		if errors.Is(err, ErrNoTerminal) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to read %q: %w", name, err)
		}
		raw.Named[name] = value
	}
	return nil
}

func (s *Shell) record(line string) bool {
	if s.history != nil {
		return s.history.Add(line)
	}
	return true
}

func (s *Shell) report(err error) {
	if errors.Is(err, command.ErrReported) {
		return
	}
	s.printer.Error("%v", err)
}

// Shutdown persists the history and closes any open store or pool. Failures
// are logged.
func (s *Shell) Shutdown() {
	if s.history != nil {
		if err := s.history.Save(); err != nil {
			slog.Warn("failed to save history", "error", err)
		}
	}
	if err := s.ctx.Close(); err != nil {
		slog.Warn("failed to close session", "error", err)
	}
}
