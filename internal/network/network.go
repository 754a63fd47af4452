// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package network connects the shell to Algorand node pools through algod.
package network

import (
	"context"
	"errors"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

var (
	ErrNotFound      = errors.New("pool not found")
	ErrAlreadyExists = errors.New("pool already exists")
)

// Agreement is the terms-of-use text a pool operator requires users to accept
// before submitting transactions.
type Agreement struct {
	Text    string `yaml:"text"`
	Version string `yaml:"version"`
}

// Config is the persisted record of a pool.
type Config struct {
	Name        string     `yaml:"name"`
	AlgodServer string     `yaml:"algod_server"`
	AlgodToken  string     `yaml:"algod_token,omitempty"`
	GenesisID   string     `yaml:"genesis_id,omitempty"`
	Agreement   *Agreement `yaml:"agreement,omitempty"`
}

// Options tune a single connection.
type Options struct {
	ProtocolVersion int
	Timeout         time.Duration
}

// Status is a snapshot of the node's view of the ledger.
type Status struct {
	LastRound          uint64
	LastVersion        string
	TimeSinceLastRound time.Duration
	CatchupTime        time.Duration
}

// Response is the result of submitting a signed transaction.
type Response struct {
	TxID           string
	ConfirmedRound uint64
	PoolError      string
}

// Handle is a connected pool.
type Handle interface {
	Name() string
	LastRound() uint64
	ProtocolVersion() int
	// Refresh catches up with the ledger. It returns a replacement handle when
	// the ledger advanced and nil when nothing changed.
	Refresh(ctx context.Context) (Handle, error)
	SuggestedParams(ctx context.Context) (types.SuggestedParams, error)
	Submit(ctx context.Context, signed []byte) (Response, error)
	Status(ctx context.Context) (Status, error)
	Agreement() *Agreement
	Close() error
}

// Connector opens handles for pool configurations.
type Connector interface {
	Connect(ctx context.Context, cfg Config, opts Options) (Handle, error)
}
