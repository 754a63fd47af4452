// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import "github.com/aplane-algo/apledger/internal/cmdspec"

// Command is a (metadata, executor) pair registered under a group.
type Command struct {
	Metadata *cmdspec.Metadata
	Aliases  []string // Alternative names within the same group (e.g., "quit" for "exit")
	Handler  Handler
}

// Name returns the command name declared by its metadata.
func (c *Command) Name() string {
	return c.Metadata.Name()
}

// Handler is the interface all command executors implement.
//
// A returned error is printed once by the shell. Handlers that print their
// own diagnostic return ErrReported instead.
type Handler interface {
	Execute(ctx *Context, params *Params) error
}

// HandlerFunc adapts a plain function to the Handler interface.
type HandlerFunc func(ctx *Context, params *Params) error

// Execute implements Handler.
func (f HandlerFunc) Execute(ctx *Context, params *Params) error {
	return f(ctx, params)
}

// Group is a named namespace of commands.
type Group struct {
	Name string
	Help string
}

// RootGroup holds ungrouped commands such as exit and about.
const RootGroup = ""
