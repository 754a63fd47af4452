// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package network

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/algorand/go-algorand-sdk/v2/client/v2/algod"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// DefaultTimeout bounds connection and submission when none is configured.
const DefaultTimeout = 20 * time.Second

// confirmationRounds is how many rounds Submit waits for confirmation.
const confirmationRounds = 4

var errClosed = errors.New("pool is disconnected")

// AlgodConnector connects to pools through the algod REST API.
type AlgodConnector struct{}

// Connect makes an algod client for cfg and verifies the node answers. When
// cfg.GenesisID is set the node must report the same genesis.
func (AlgodConnector) Connect(ctx context.Context, cfg Config, opts Options) (Handle, error) {
	if cfg.AlgodServer == "" {
		return nil, fmt.Errorf("pool %q has no algod server configured", cfg.Name)
	}
	client, err := algod.MakeClient(cfg.AlgodServer, cfg.AlgodToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create algod client: %w", err)
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	status, err := client.Status().Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to reach algod at %s: %w", cfg.AlgodServer, err)
	}

	if cfg.GenesisID != "" {
		sp, err := client.SuggestedParams().Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get suggested params: %w", err)
		}
		if sp.GenesisID != cfg.GenesisID {
			return nil, fmt.Errorf("pool %q expects genesis %q but node reports %q", cfg.Name, cfg.GenesisID, sp.GenesisID)
		}
	}

	slog.Debug("connected to pool", "pool", cfg.Name, "server", cfg.AlgodServer, "round", status.LastRound)
	return &algodHandle{
		cfg:       cfg,
		opts:      opts,
		client:    client,
		lastRound: status.LastRound,
		timeout:   timeout,
	}, nil
}

type algodHandle struct {
	cfg       Config
	opts      Options
	client    *algod.Client
	lastRound uint64
	timeout   time.Duration
	closed    bool
}

func (h *algodHandle) Name() string         { return h.cfg.Name }
func (h *algodHandle) LastRound() uint64    { return h.lastRound }
func (h *algodHandle) ProtocolVersion() int { return h.opts.ProtocolVersion }
func (h *algodHandle) Agreement() *Agreement {
	return h.cfg.Agreement
}

func (h *algodHandle) Refresh(ctx context.Context) (Handle, error) {
	status, err := h.Status(ctx)
	if err != nil {
		return nil, err
	}
	if status.LastRound <= h.lastRound {
		return nil, nil
	}
	next := *h
	next.lastRound = status.LastRound
	return &next, nil
}

func (h *algodHandle) SuggestedParams(ctx context.Context) (types.SuggestedParams, error) {
	if h.closed {
		return types.SuggestedParams{}, errClosed
	}
	sp, err := h.client.SuggestedParams().Do(ctx)
	if err != nil {
		return types.SuggestedParams{}, fmt.Errorf("failed to get suggested params: %w", err)
	}
	return sp, nil
}

func (h *algodHandle) Status(ctx context.Context) (Status, error) {
	if h.closed {
		return Status{}, errClosed
	}
	s, err := h.client.Status().Do(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("failed to get status: %w", err)
	}
	return Status{
		LastRound:          s.LastRound,
		LastVersion:        s.LastVersion,
		TimeSinceLastRound: time.Duration(s.TimeSinceLastRound),
		CatchupTime:        time.Duration(s.CatchupTime),
	}, nil
}

// Submit sends a signed transaction and waits a few rounds for it to be
// confirmed. An unconfirmed transaction is not an error; ConfirmedRound is 0.
func (h *algodHandle) Submit(ctx context.Context, signed []byte) (Response, error) {
	if h.closed {
		return Response{}, errClosed
	}
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	txid, err := h.client.SendRawTransaction(signed).Do(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("failed to submit transaction: %w", err)
	}
	resp := Response{TxID: txid}

	status, err := h.client.Status().Do(ctx)
	if err != nil {
		return resp, fmt.Errorf("failed to get status: %w", err)
	}
	startRound := status.LastRound
	currentRound := startRound

	for currentRound < startRound+confirmationRounds {
		info, _, err := h.client.PendingTransactionInformation(txid).Do(ctx)
		if err != nil {
			return resp, fmt.Errorf("failed to get transaction info: %w", err)
		}
		if info.PoolError != "" {
			resp.PoolError = info.PoolError
			return resp, nil
		}
		if info.ConfirmedRound > 0 {
			resp.ConfirmedRound = info.ConfirmedRound
			h.lastRound = max(h.lastRound, info.ConfirmedRound)
			return resp, nil
		}
		status, err = h.client.StatusAfterBlock(currentRound).Do(ctx)
		if err != nil {
			return resp, fmt.Errorf("failed to wait for round: %w", err)
		}
		currentRound = status.LastRound
	}
	return resp, nil
}

func (h *algodHandle) Close() error {
	if h.closed {
		return errClosed
	}
	h.closed = true
	return nil
}
