// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/aplane-algo/apledger/internal/command"
	"github.com/aplane-algo/apledger/internal/ledger"
	"github.com/aplane-algo/apledger/internal/store"
)

// didImportVersion is the only supported version of the did import file.
const didImportVersion = 1

type didImportFile struct {
	Version int `json:"version"`
	DIDs    []struct {
		DID  string `json:"did"`
		Seed string `json:"seed"`
	} `json:"dids"`
}

func (a *App) cmdDIDNew(ctx *command.Context, params *command.Params) error {
	h, err := ctx.EnsureOpenedStore()
	if err != nil {
		return err
	}
	var req store.NewIdentity
	if id, ok, err := params.GetOptIdentity("did"); err != nil {
		return err
	} else if ok {
		req.ID = id.String()
	}
	req.Seed, _ = params.GetOptEmptyString("seed")
	req.Method, _ = params.GetOptEmptyString("method")
	req.Metadata, _ = params.GetOptEmptyString("metadata")

	info, err := h.CreateIdentity(req)
	if err != nil {
		return fmt.Errorf("Did could not be created: %w", err)
	}
	a.printer.Success("Did %q has been created with %q verkey", info.ID, info.Address)
	return nil
}

func (a *App) cmdDIDImport(ctx *command.Context, params *command.Params) error {
	h, err := ctx.EnsureOpenedStore()
	if err != nil {
		return err
	}
	path, err := params.GetString("file")
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("Can't read the file %q: %w", path, err)
	}
	var file didImportFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("Can't parse the file %q: %w", path, err)
	}
	if file.Version != didImportVersion {
		return fmt.Errorf("Unsupported did import file version %d", file.Version)
	}

	failed := 0
	for _, entry := range file.DIDs {
		info, err := h.CreateIdentity(store.NewIdentity{ID: entry.DID, Seed: entry.Seed})
		if err != nil {
			failed++
			a.printer.Error("Did %q could not be imported: %v", entry.DID, err)
			continue
		}
		a.printer.Success("Did %q has been imported", info.ID)
	}
	if failed > 0 {
		a.printer.Error("%d of %d dids could not be imported", failed, len(file.DIDs))
		return command.ErrReported
	}
	a.printer.Println("All dids have been imported")
	return nil
}

func (a *App) cmdDIDUse(ctx *command.Context, params *command.Params) error {
	h, err := ctx.EnsureOpenedStore()
	if err != nil {
		return err
	}
	id, err := params.GetIdentity("did")
	if err != nil {
		return err
	}
	info, err := h.GetIdentity(id.String())
	if err != nil {
		return fmt.Errorf("Did %q isn't in the opened wallet: %w", id, err)
	}
	ctx.SetActiveIdentity(command.Identity(info.ID))
	a.printer.Success("Did %q has been set as active", info.ID)
	return nil
}

func (a *App) cmdDIDList(ctx *command.Context, _ *command.Params) error {
	h, err := ctx.EnsureOpenedStore()
	if err != nil {
		return err
	}
	identities, err := h.ListIdentities()
	if err != nil {
		return err
	}
	if len(identities) == 0 {
		a.printer.Println("There are no dids")
		return nil
	}
	active := ctx.ActiveIdentity()
	rows := make([][]string, 0, len(identities))
	for _, info := range identities {
		mark := ""
		if command.Identity(info.ID).Address() == active.Address() {
			mark = "*"
		}
		rows = append(rows, []string{info.ID, info.SigningAddress(), info.Metadata, mark})
	}
	a.printer.Table([]string{"Did", "Signing address", "Metadata", "Active"}, rows)
	return nil
}

func (a *App) cmdDIDQualify(ctx *command.Context, params *command.Params) error {
	h, err := ctx.EnsureOpenedStore()
	if err != nil {
		return err
	}
	id, err := params.GetIdentity("did")
	if err != nil {
		return err
	}
	method, err := params.GetString("method")
	if err != nil {
		return err
	}
	info, err := h.QualifyIdentity(id.String(), method)
	if err != nil {
		return fmt.Errorf("Did %q could not be qualified: %w", id, err)
	}
	if active := ctx.ActiveIdentity(); active != "" && active.Address() == info.Address {
		ctx.SetActiveIdentity(command.Identity(info.ID))
	}
	a.printer.Success("Fully qualified did %q", info.ID)
	return nil
}

func (a *App) cmdDIDRotateKey(ctx *command.Context, params *command.Params) error {
	id, err := ctx.EnsureActiveIdentity()
	if err != nil {
		return err
	}
	pool, err := ctx.EnsureConnectedNetwork()
	if err != nil {
		return err
	}
	if err := requireAgreement(ctx, pool); err != nil {
		return err
	}
	h := ctx.OpenedStore()
	seed, _ := params.GetOptEmptyString("seed")

	info, err := h.GetIdentity(id.String())
	if err != nil {
		return err
	}
	newAuth, err := h.RotateKeyStart(id.String(), seed)
	if err != nil {
		return fmt.Errorf("Key rotation could not be started: %w", err)
	}

	reqCtx, cancel := a.networkContext()
	defer cancel()
	sp, err := pool.SuggestedParams(reqCtx)
	if err != nil {
		return err
	}
	txn, err := ledger.MakeRekey(sp, info.Address, newAuth)
	if err != nil {
		return err
	}
	signed, err := h.SignTransaction(id.String(), txn)
	if err != nil {
		return fmt.Errorf("Rekey transaction could not be signed: %w", err)
	}
	resp, err := pool.Submit(reqCtx, signed)
	if err != nil {
		return err
	}
	if resp.PoolError != "" {
		return fmt.Errorf("Rekey transaction %s was rejected: %s", resp.TxID, resp.PoolError)
	}
	if resp.ConfirmedRound == 0 {
		return fmt.Errorf("Rekey transaction %s was not confirmed; the new key has not been applied", resp.TxID)
	}

	if _, err := h.RotateKeyApply(id.String()); err != nil {
		return fmt.Errorf("Rekey confirmed in round %d but the new key could not be applied: %w", resp.ConfirmedRound, err)
	}
	a.printer.Success("Verkey for did %q has been updated to %q (round %d)", id, newAuth, resp.ConfirmedRound)
	return nil
}

func (a *App) cmdDIDSetMetadata(ctx *command.Context, params *command.Params) error {
	id, err := ctx.EnsureActiveIdentity()
	if err != nil {
		return err
	}
	metadata, _ := params.GetOptEmptyString("metadata")
	if err := ctx.OpenedStore().SetMetadata(id.String(), metadata); err != nil {
		return fmt.Errorf("Metadata could not be set: %w", err)
	}
	a.printer.Success("Metadata has been saved for did %q", id)
	return nil
}
