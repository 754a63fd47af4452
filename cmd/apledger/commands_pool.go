// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aplane-algo/apledger/internal/command"
	"github.com/aplane-algo/apledger/internal/network"
)

// requireAgreement fails when the connected pool has an agreement the
// session has not accepted.
func requireAgreement(ctx *command.Context, pool network.Handle) error {
	if pool.Agreement() == nil {
		return nil
	}
	if accepted, _ := ctx.AgreementAcknowledged(); !accepted {
		return &command.PreconditionError{
			Msg: fmt.Sprintf("Pool %q requires a transaction author agreement. Review it with 'pool show-taa' and reconnect with accept-agreement=true", pool.Name()),
		}
	}
	return nil
}

func (a *App) cmdPoolCreate(_ *command.Context, params *command.Params) error {
	name, err := params.GetString("name")
	if err != nil {
		return err
	}
	server, err := params.GetString("algod_server")
	if err != nil {
		return err
	}
	cfg := network.Config{Name: name, AlgodServer: server}
	cfg.AlgodToken, _ = params.GetOptEmptyString("algod_token")
	cfg.GenesisID, _ = params.GetOptEmptyString("genesis_id")

	text, hasText := params.GetOptEmptyString("agreement_text")
	ver, hasVersion := params.GetOptEmptyString("agreement_version")
	if hasText != hasVersion {
		return fmt.Errorf("agreement_text and agreement_version must be given together")
	}
	if hasText {
		cfg.Agreement = &network.Agreement{Text: text, Version: ver}
	}

	if err := a.pools.Create(cfg); err != nil {
		if errors.Is(err, network.ErrAlreadyExists) {
			return fmt.Errorf("Pool %q already exists", name)
		}
		return fmt.Errorf("Pool %q could not be created: %w", name, err)
	}
	a.printer.Success("Pool config %q has been created", name)
	return nil
}

func (a *App) cmdPoolConnect(ctx *command.Context, params *command.Params) error {
	name, err := params.GetString("name")
	if err != nil {
		return err
	}
	opts := network.Options{ProtocolVersion: ctx.ProtocolVersion(), Timeout: a.config.NetworkTimeout()}
	if v, ok, err := params.GetOptInt("protocol-version"); err != nil {
		return err
	} else if ok {
		if err := checkProtocolVersion(v); err != nil {
			return err
		}
		opts.ProtocolVersion = int(v)
	}
	if t, ok, err := params.GetOptUint("timeout"); err != nil {
		return err
	} else if ok {
		opts.Timeout = time.Duration(t) * time.Second
	}
	accept, acceptGiven, err := params.GetOptBool("accept-agreement")
	if err != nil {
		return err
	}

	cfg, err := a.pools.Read(name)
	if errors.Is(err, network.ErrNotFound) {
		return fmt.Errorf("Pool %q does not exist", name)
	}
	if err != nil {
		return err
	}

	h, err := a.connector.Connect(context.Background(), cfg, opts)
	if err != nil {
		return fmt.Errorf("Pool %q has not been connected: %w", name, err)
	}

	if prev := ctx.TakeConnectedNetwork(); prev != nil {
		if err := prev.Close(); err != nil {
			a.printer.Warn("Pool %q could not be disconnected: %v", prev.Name(), err)
		} else {
			a.printer.Printf("Pool %q has been disconnected\n", prev.Name())
		}
	}
	ctx.SetConnectedNetwork(h)
	a.printer.Success("Pool %q has been connected", name)

	if taa := h.Agreement(); taa != nil {
		ctx.SetAgreementAcknowledged(acceptGiven && accept)
		if !acceptGiven {
			a.printer.Warn("Pool %q requires a transaction author agreement (version %s). Review it with 'pool show-taa' and reconnect with accept-agreement=true", name, taa.Version)
		}
	}
	return nil
}

func (a *App) cmdPoolDisconnect(ctx *command.Context, _ *command.Params) error {
	if _, err := ctx.EnsureConnectedNetwork(); err != nil {
		return err
	}
	h := ctx.TakeConnectedNetwork()
	if err := h.Close(); err != nil {
		return fmt.Errorf("Pool %q could not be disconnected: %w", h.Name(), err)
	}
	a.printer.Success("Pool %q has been disconnected", h.Name())
	return nil
}

func (a *App) cmdPoolRefresh(ctx *command.Context, _ *command.Params) error {
	h, err := ctx.EnsureConnectedNetwork()
	if err != nil {
		return err
	}
	reqCtx, cancel := a.networkContext()
	defer cancel()
	next, err := h.Refresh(reqCtx)
	if err != nil {
		return fmt.Errorf("Pool %q could not be refreshed: %w", h.Name(), err)
	}
	if next == nil {
		a.printer.Printf("Pool %q is already up to date (round %d)\n", h.Name(), h.LastRound())
		return nil
	}
	ctx.SetConnectedNetwork(next)
	_ = h.Close()
	a.printer.Success("Pool %q has been refreshed (round %d)", next.Name(), next.LastRound())
	return nil
}

func (a *App) cmdPoolList(ctx *command.Context, _ *command.Params) error {
	configs, err := a.pools.List()
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		a.printer.Println("There are no pools defined")
		return nil
	}
	connected := ""
	if h := ctx.ConnectedNetwork(); h != nil {
		connected = h.Name()
	}
	rows := make([][]string, 0, len(configs))
	for _, cfg := range configs {
		mark := ""
		if cfg.Name == connected {
			mark = "*"
		}
		taa := "-"
		if cfg.Agreement != nil {
			taa = cfg.Agreement.Version
		}
		rows = append(rows, []string{cfg.Name, cfg.AlgodServer, taa, mark})
	}
	a.printer.Table([]string{"Pool", "Algod server", "TAA", "Connected"}, rows)
	return nil
}

func (a *App) cmdPoolDelete(ctx *command.Context, params *command.Params) error {
	name, err := params.GetString("name")
	if err != nil {
		return err
	}
	if h := ctx.ConnectedNetwork(); h != nil && h.Name() == name {
		return fmt.Errorf("Pool %q is connected. Disconnect it first", name)
	}
	if err := a.pools.Delete(name); err != nil {
		if errors.Is(err, network.ErrNotFound) {
			return fmt.Errorf("Pool %q does not exist", name)
		}
		return err
	}
	a.printer.Success("Pool %q has been deleted", name)
	return nil
}

func checkProtocolVersion(v int64) error {
	if v != 1 && v != 2 {
		return fmt.Errorf("Unsupported protocol version %d. Use 1 or 2", v)
	}
	return nil
}

func (a *App) cmdPoolSetProtocolVersion(ctx *command.Context, params *command.Params) error {
	v, err := params.GetInt("version")
	if err != nil {
		return err
	}
	if err := checkProtocolVersion(v); err != nil {
		return err
	}
	ctx.SetProtocolVersion(int(v))
	a.printer.Success("Protocol version has been set to %d", v)
	return nil
}

func (a *App) cmdPoolShowTAA(ctx *command.Context, _ *command.Params) error {
	h, err := ctx.EnsureConnectedNetwork()
	if err != nil {
		return err
	}
	taa := h.Agreement()
	if taa == nil {
		a.printer.Printf("Pool %q does not require a transaction author agreement\n", h.Name())
		return nil
	}
	a.printer.Printf("Transaction author agreement (version %s):\n\n%s\n\n", taa.Version, taa.Text)
	if accepted, _ := ctx.AgreementAcknowledged(); accepted {
		a.printer.Success("The agreement has been accepted for this session")
	} else {
		a.printer.Warn("The agreement has not been accepted. Reconnect with accept-agreement=true")
	}
	return nil
}
