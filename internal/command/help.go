// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"fmt"
	"io"
	"strings"
)

// HelpCommand is the name of the ungrouped help command. The shell also
// accepts it after a group or command: "wallet help", "wallet open help".
const HelpCommand = "help"

// HelpTokens rewrites a trailing help request into the ungrouped form
// (help <topic> [command=<name>]). Other input is returned unchanged.
func HelpTokens(tokens []string) []string {
	n := len(tokens)
	switch {
	case n == 3 && tokens[0] == HelpCommand:
		return []string{HelpCommand, tokens[1], "command=" + tokens[2]}
	case n == 2 && tokens[1] == HelpCommand && tokens[0] != HelpCommand:
		return []string{HelpCommand, tokens[0]}
	case n == 3 && tokens[2] == HelpCommand && tokens[0] != HelpCommand:
		return []string{HelpCommand, tokens[0], "command=" + tokens[1]}
	}
	return tokens
}

// ShowHelp prints the groups and ungrouped commands.
func ShowHelp(w io.Writer, registry *Registry) {
	fmt.Fprintln(w, "\nCommand groups:")
	for _, g := range registry.Groups() {
		fmt.Fprintf(w, "  %-20s - %s\n", g.Name, g.Help)
	}

	fmt.Fprintln(w, "\nTop level commands:")
	for _, cmd := range registry.Commands(RootGroup) {
		writeCommandLine(w, cmd)
	}

	fmt.Fprintln(w, "\nFor help on a group, type: help <group>")
	fmt.Fprintln(w, "For help on a command, type: help <group> <command>")
}

// ShowGroupHelp prints the commands of one group.
func ShowGroupHelp(w io.Writer, registry *Registry, group Group) {
	fmt.Fprintf(w, "\nGroup: %s\n%s\n\nCommands:\n", group.Name, group.Help)
	for _, cmd := range registry.Commands(group.Name) {
		writeCommandLine(w, cmd)
	}
}

func writeCommandLine(w io.Writer, cmd *Command) {
	aliasStr := ""
	if len(cmd.Aliases) > 0 {
		aliasStr = fmt.Sprintf(" (aliases: %s)", strings.Join(cmd.Aliases, ", "))
	}
	fmt.Fprintf(w, "  %-20s - %s%s\n", cmd.Name(), cmd.Metadata.Help(), aliasStr)
}

// ShowCommandHelp prints usage, parameters and examples of one command.
func ShowCommandHelp(w io.Writer, group string, cmd *Command) {
	prefix := cmd.Name()
	if group != RootGroup {
		prefix = group + " " + prefix
	}
	meta := cmd.Metadata

	fmt.Fprintf(w, "\nCommand: %s\n", prefix)
	if len(cmd.Aliases) > 0 {
		fmt.Fprintf(w, "Aliases: %s\n", strings.Join(cmd.Aliases, ", "))
	}
	fmt.Fprintf(w, "\n%s\n", meta.Help())

	usage := meta.Usage()
	if group != RootGroup {
		usage = group + " " + usage
	}
	fmt.Fprintf(w, "\nUsage:\n  %s\n", usage)

	if params := meta.Params(); len(params) > 0 {
		fmt.Fprintln(w, "\nParameters:")
		for _, p := range params {
			req := "optional"
			if p.IsRequired() {
				req = "required"
			}
			if p.Kind.IsSecret() {
				req += ", secret"
			}
			fmt.Fprintf(w, "  %-28s - (%s) %s\n", p.Name, req, p.Help)
		}
	}

	if examples := meta.Examples(); len(examples) > 0 {
		fmt.Fprintln(w, "\nExamples:")
		for _, ex := range examples {
			fmt.Fprintf(w, "  %s\n", ex)
		}
	}
}
