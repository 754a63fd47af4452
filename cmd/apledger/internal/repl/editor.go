// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package repl

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/chzyer/readline"
	"golang.org/x/term"
)

// ReadlineEditor is the interactive editor: line editing, in-memory history
// and tab completion. History is persisted by the shell, not by readline,
// so secret lines never reach the file.
type ReadlineEditor struct {
	rl *readline.Instance
}

// NewReadlineEditor creates an editor completing with completer.
func NewReadlineEditor(completer readline.AutoCompleter, historyLimit int) (*ReadlineEditor, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 "> ",
		HistoryLimit:           historyLimit,
		DisableAutoSaveHistory: true,
		AutoComplete:           completer,
		InterruptPrompt:        "^C",
		EOFPrompt:              "exit",
		HistorySearchFold:      true,
	})
	if err != nil {
		return nil, err
	}
	return &ReadlineEditor{rl: rl}, nil
}

func (e *ReadlineEditor) Readline() (string, error)    { return e.rl.Readline() }
func (e *ReadlineEditor) SetPrompt(prompt string)      { e.rl.SetPrompt(prompt) }
func (e *ReadlineEditor) AddHistory(line string) error { return e.rl.SaveHistory(line) }
func (e *ReadlineEditor) Close() error                 { return e.rl.Close() }

// ReadSecret reads a masked value through readline, which owns the
// terminal while the editor is open.
func (e *ReadlineEditor) ReadSecret(prompt string) (string, error) {
	b, err := e.rl.ReadPassword(prompt)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ScannerEditor reads lines from a plain stream. It is used for scripts and
// when readline cannot be initialised.
type ScannerEditor struct {
	scanner *bufio.Scanner
	out     io.Writer
	prompt  string
}

// NewScannerEditor reads from in. When out is non-nil the prompt is written
// to it before each line.
func NewScannerEditor(in io.Reader, out io.Writer) *ScannerEditor {
	return &ScannerEditor{scanner: bufio.NewScanner(in), out: out}
}

func (e *ScannerEditor) Readline() (string, error) {
	if e.out != nil {
		_, _ = fmt.Fprint(e.out, e.prompt)
	}
	if !e.scanner.Scan() {
		if err := e.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return e.scanner.Text(), nil
}

func (e *ScannerEditor) SetPrompt(prompt string)  { e.prompt = prompt }
func (e *ScannerEditor) AddHistory(string) error { return nil }
func (e *ScannerEditor) Close() error            { return nil }

// TerminalSecretReader reads masked input directly from a terminal.
type TerminalSecretReader struct {
	In  *os.File
	Out io.Writer
}

// ReadSecret returns ErrNoTerminal when In is not a terminal.
func (r TerminalSecretReader) ReadSecret(prompt string) (string, error) {
	fd := int(r.In.Fd()) // #nosec G115 - file descriptors are small integers
	if !term.IsTerminal(fd) {
		return "", ErrNoTerminal
	}
	_, _ = fmt.Fprint(r.Out, prompt)
	b, err := term.ReadPassword(fd)
	_, _ = fmt.Fprintln(r.Out)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
