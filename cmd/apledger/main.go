// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/pflag"

	"github.com/aplane-algo/apledger/cmd/apledger/internal/repl"
	"github.com/aplane-algo/apledger/internal/console"
	"github.com/aplane-algo/apledger/internal/history"
	"github.com/aplane-algo/apledger/internal/util"
	"github.com/aplane-algo/apledger/internal/version"
)

func main() {
	dataDir := pflag.StringP("data-dir", "d", "", "Data directory (default: ~/.apledger or "+util.DataDirEnv+")")
	printVersion := pflag.Bool("version", false, "Print version and exit")
	scriptFile := pflag.String("script", "", "Execute commands from a file and exit")
	pflag.Parse()

	if *printVersion {
		fmt.Printf("apledger %s\n", version.String())
		os.Exit(0)
	}

	// Resolve data directory: -d flag > APLEDGER_HOME env var > ~/.apledger
	resolvedDataDir := util.GetDataDir(*dataDir)

	config, err := util.LoadConfig(resolvedDataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	level, err := util.ParseLogLevel(config.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: Invalid configuration: %v\n", err)
		os.Exit(1)
	}
	util.InitLogger(os.Stderr, level)

	app := NewApp(resolvedDataDir, config, console.Stdio())

	watchCtx, stopWatch := context.WithCancel(context.Background())
	defer stopWatch()
	app.Watch(watchCtx)

	if *scriptFile != "" {
		os.Exit(runScript(app, *scriptFile))
	}
	if err := runInteractive(app); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runScript executes each line of path through the shell loop. History is
// not touched and deferred parameters must be given inline.
func runScript(app *App, path string) int {
	f, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() { _ = f.Close() }()

	shell := repl.NewShell(app.registry, app.ctx, app.printer, nil, nil)
	defer shell.Shutdown()
	if err := shell.Run(repl.NewScannerEditor(f, nil)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func runInteractive(app *App) error {
	hist := history.New(util.HistoryPath(app.dataDir), app.config.HistoryLimit, app.registry.SecretMarkers())
	if err := hist.Load(); err != nil {
		app.printer.Warn("History is unavailable: %v", err)
	}

	var (
		editor  repl.LineEditor
		secrets repl.SecretReader
	)
	rl, err := repl.NewReadlineEditor(repl.NewAutoCompleter(app.completer, app.ctx), app.config.HistoryLimit)
	if err != nil {
		slog.Debug("readline unavailable, using plain input", "error", err)
		editor = repl.NewScannerEditor(os.Stdin, os.Stdout)
		secrets = repl.TerminalSecretReader{In: os.Stdin, Out: os.Stdout}
	} else {
		editor = rl
		secrets = rl
	}
	defer func() { _ = editor.Close() }()

	if !app.config.PromptDeferred {
		secrets = nil
	}

	shell := repl.NewShell(app.registry, app.ctx, app.printer, hist, secrets)
	defer shell.Shutdown()

	app.printer.Printf("apledger %s. Type 'help' for commands, 'exit' to quit.\n", version.Short())
	return shell.Run(editor)
}
