// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package console renders shell output: plain lines, status lines in colour
// and tables for list commands.
package console

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

// Printer writes command output. Errors go to the error stream.
type Printer struct {
	out    io.Writer
	errOut io.Writer

	success lipgloss.Style
	warn    lipgloss.Style
	failure lipgloss.Style
	header  lipgloss.Style
	cell    lipgloss.Style
}

// New returns a Printer for out and errOut. Colour is used only when the
// stream is a terminal.
func New(out, errOut io.Writer) *Printer {
	outR := newRenderer(out)
	errR := newRenderer(errOut)
	return &Printer{
		out:     out,
		errOut:  errOut,
		success: outR.NewStyle().Foreground(lipgloss.Color("2")),
		warn:    outR.NewStyle().Foreground(lipgloss.Color("3")),
		failure: errR.NewStyle().Foreground(lipgloss.Color("1")),
		header:  outR.NewStyle().Bold(true).Padding(0, 1),
		cell:    outR.NewStyle().Padding(0, 1),
	}
}

// Stdio returns a Printer on os.Stdout and os.Stderr.
func Stdio() *Printer { return New(os.Stdout, os.Stderr) }

func newRenderer(w io.Writer) *lipgloss.Renderer {
	r := lipgloss.NewRenderer(w)
	if !IsTerminal(w) {
		r.SetColorProfile(termenv.Ascii)
	}
	return r
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd())) // #nosec G115 - file descriptors are small integers
}

// Out is the standard output stream.
func (p *Printer) Out() io.Writer { return p.out }

// Println writes a plain line.
func (p *Printer) Println(a ...any) { _, _ = fmt.Fprintln(p.out, a...) }

// Printf writes plain formatted output.
func (p *Printer) Printf(format string, a ...any) { _, _ = fmt.Fprintf(p.out, format, a...) }

// Success writes a green line.
func (p *Printer) Success(format string, a ...any) {
	_, _ = fmt.Fprintln(p.out, p.success.Render(fmt.Sprintf(format, a...)))
}

// Warn writes a yellow line.
func (p *Printer) Warn(format string, a ...any) {
	_, _ = fmt.Fprintln(p.out, p.warn.Render(fmt.Sprintf(format, a...)))
}

// Error writes a red line to the error stream.
func (p *Printer) Error(format string, a ...any) {
	_, _ = fmt.Fprintln(p.errOut, p.failure.Render(fmt.Sprintf(format, a...)))
}

// Table writes rows under headers with a normal border.
func (p *Printer) Table(headers []string, rows [][]string) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return p.header
			}
			return p.cell
		})
	_, _ = fmt.Fprintln(p.out, t.String())
}
