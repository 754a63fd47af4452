// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/aplane-algo/apledger/internal/command"
	"github.com/aplane-algo/apledger/internal/util"
	"github.com/aplane-algo/apledger/internal/version"
)

func (a *App) cmdAbout(_ *command.Context, _ *command.Params) error {
	a.printer.Printf("apledger %s\n\n", version.String())
	util.DisplayConfig(a.printer.Out(), a.dataDir, a.config)
	return nil
}

func (a *App) cmdShow(_ *command.Context, params *command.Params) error {
	path, err := params.GetString("file")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Can't read file %q: %w", path, err)
	}
	a.printer.Println(strings.TrimRight(string(data), "\n"))
	return nil
}

func (a *App) cmdPrompt(ctx *command.Context, params *command.Params) error {
	prompt, err := params.GetString("prompt")
	if err != nil {
		return err
	}
	ctx.SetPrompt(prompt)
	a.printer.Success("Command prompt has been set to %q", prompt)
	return nil
}

func (a *App) cmdLogLevel(_ *command.Context, params *command.Params) error {
	value, ok, err := params.GetOptString("level")
	if err != nil {
		return err
	}
	if !ok {
		a.printer.Printf("Log level: %s\n", strings.ToLower(util.LogLevel().String()))
		return nil
	}
	level, err := util.ParseLogLevel(value)
	if err != nil {
		return err
	}
	util.SetLogLevel(level)
	a.printer.Success("Log level has been set to %s", strings.ToLower(level.String()))
	return nil
}

func (a *App) cmdHelp(_ *command.Context, params *command.Params) error {
	w := a.printer.Out()
	topic, ok := params.GetOptEmptyString("topic")
	if !ok || topic == "" {
		command.ShowHelp(w, a.registry)
		return nil
	}
	name, hasCommand := params.GetOptEmptyString("command")

	if group, ok := a.registry.Group(topic); ok {
		if !hasCommand || name == "" {
			command.ShowGroupHelp(w, a.registry, group)
			return nil
		}
		cmd, ok := a.registry.Lookup(topic, name)
		if !ok {
			return &command.ResolutionError{Input: topic + " " + name}
		}
		command.ShowCommandHelp(w, topic, cmd)
		return nil
	}

	if hasCommand {
		return &command.ResolutionError{Input: topic + " " + name}
	}
	cmd, ok := a.registry.Lookup(command.RootGroup, topic)
	if !ok {
		return &command.ResolutionError{Input: topic}
	}
	command.ShowCommandHelp(w, command.RootGroup, cmd)
	return nil
}

func (a *App) cmdExit(ctx *command.Context, _ *command.Params) error {
	ctx.SetExit()
	a.printer.Println("Goodbye...")
	return nil
}
