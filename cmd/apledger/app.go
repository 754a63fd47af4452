// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"fmt"

	"github.com/aplane-algo/apledger/internal/command"
	"github.com/aplane-algo/apledger/internal/completion"
	"github.com/aplane-algo/apledger/internal/console"
	"github.com/aplane-algo/apledger/internal/network"
	"github.com/aplane-algo/apledger/internal/store"
	"github.com/aplane-algo/apledger/internal/util"
)

// App holds everything the command handlers share: the session context,
// the wallet and pool directories and the collaborators behind them.
type App struct {
	dataDir string
	config  util.Config
	printer *console.Printer

	ctx      *command.Context
	registry *command.Registry

	wallets   *store.Directory
	openers   map[string]store.Opener
	pools     *network.Directory
	connector network.Connector

	completer *completion.Provider
}

// NewApp wires an App rooted at dataDir. Nothing is created on disk until a
// command writes.
func NewApp(dataDir string, config util.Config, printer *console.Printer) *App {
	a := &App{
		dataDir:   dataDir,
		config:    config,
		printer:   printer,
		ctx:       command.NewContext(config.Prompt),
		wallets:   store.NewDirectory(util.WalletsDir(dataDir)),
		pools:     network.NewDirectory(util.PoolsDir(dataDir)),
		connector: network.AlgodConnector{},
	}
	a.openers = map[string]store.Opener{
		store.DefaultStorageType: store.NewFileStore(util.WalletsDir(dataDir)),
	}
	a.ctx.SetProtocolVersion(config.ProtocolVersion)
	a.registry = a.initCommandRegistry()
	a.completer = completion.NewProvider(a.registry, a.wallets, a.pools)
	return a
}

// Watch keeps the wallet and pool name caches current until ctx ends.
func (a *App) Watch(ctx context.Context) {
	if err := a.wallets.Watch(ctx); err != nil {
		util.Debug("wallet directory watch unavailable", "error", err)
	}
	if err := a.pools.Watch(ctx); err != nil {
		util.Debug("pool directory watch unavailable", "error", err)
	}
}

func (a *App) opener(storageType string) (store.Opener, error) {
	if storageType == "" {
		storageType = store.DefaultStorageType
	}
	o, ok := a.openers[storageType]
	if !ok {
		return nil, fmt.Errorf("Unsupported storage type %q", storageType)
	}
	return o, nil
}

// networkContext bounds a pool request by the configured timeout.
func (a *App) networkContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.config.NetworkTimeout())
}
