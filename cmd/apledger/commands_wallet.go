// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"errors"
	"fmt"

	"github.com/aplane-algo/apledger/internal/command"
	"github.com/aplane-algo/apledger/internal/store"
)

// walletCredentials collects the key, its derivation method and optional
// storage credentials from params.
func walletCredentials(params *command.Params, keyParam, methodParam string) (store.Credentials, error) {
	var creds store.Credentials
	key, err := params.GetString(keyParam)
	if err != nil {
		return creds, err
	}
	creds.Key = key
	creds.KeyDerivationMethod, _ = params.GetOptEmptyString(methodParam)

	if storageCreds, ok, err := params.GetOptObject("storage_credentials"); err != nil {
		return creds, err
	} else if ok {
		creds.StorageCredentials = storageCreds
	}
	return creds, nil
}

// walletConfig reads the attached record for name.
func (a *App) walletConfig(name string) (store.Config, error) {
	cfg, err := a.wallets.Read(name)
	if errors.Is(err, store.ErrNotFound) {
		return cfg, fmt.Errorf("Wallet %q isn't attached to CLI", name)
	}
	return cfg, err
}

func newWalletConfig(name string, params *command.Params) (store.Config, error) {
	cfg := store.Config{ID: name, StorageType: store.DefaultStorageType}
	if t, ok, err := params.GetOptString("storage_type"); err != nil {
		return cfg, err
	} else if ok {
		cfg.StorageType = t
	}
	if sc, ok, err := params.GetOptObject("storage_config"); err != nil {
		return cfg, err
	} else if ok {
		cfg.StorageConfig = sc
	}
	return cfg, nil
}

func (a *App) cmdWalletCreate(_ *command.Context, params *command.Params) error {
	name, err := params.GetString("name")
	if err != nil {
		return err
	}
	cfg, err := newWalletConfig(name, params)
	if err != nil {
		return err
	}
	creds, err := walletCredentials(params, "key", "key_derivation_method")
	if err != nil {
		return err
	}
	if a.wallets.Exists(name) {
		return fmt.Errorf("Wallet %q already exists", name)
	}
	opener, err := a.opener(cfg.StorageType)
	if err != nil {
		return err
	}

	if err := opener.Create(cfg, creds); err != nil {
		return fmt.Errorf("Wallet %q could not be created: %w", name, err)
	}
	if err := a.wallets.Attach(cfg); err != nil {
		return fmt.Errorf("Wallet %q was created but could not be attached: %w", name, err)
	}
	a.printer.Success("Wallet %q has been created", name)
	return nil
}

func (a *App) cmdWalletAttach(_ *command.Context, params *command.Params) error {
	name, err := params.GetString("name")
	if err != nil {
		return err
	}
	cfg, err := newWalletConfig(name, params)
	if err != nil {
		return err
	}
	if _, err := a.opener(cfg.StorageType); err != nil {
		return err
	}
	if err := a.wallets.Attach(cfg); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return fmt.Errorf("Wallet %q is already attached", name)
		}
		return err
	}
	a.printer.Success("Wallet %q has been attached", name)
	return nil
}

func (a *App) cmdWalletDetach(ctx *command.Context, params *command.Params) error {
	name, err := params.GetString("name")
	if err != nil {
		return err
	}
	if h := ctx.OpenedStore(); h != nil && h.Name() == name {
		return fmt.Errorf("Wallet %q is opened. Close it first", name)
	}
	if err := a.wallets.Detach(name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("Wallet %q isn't attached to CLI", name)
		}
		return err
	}
	a.printer.Success("Wallet %q has been detached", name)
	return nil
}

func (a *App) cmdWalletOpen(ctx *command.Context, params *command.Params) error {
	name, err := params.GetString("name")
	if err != nil {
		return err
	}
	creds, err := walletCredentials(params, "key", "key_derivation_method")
	if err != nil {
		return err
	}
	if rekey, ok, err := params.GetOptString("rekey"); err != nil {
		return err
	} else if ok {
		creds.Rekey = rekey
		creds.RekeyDerivationMethod, _ = params.GetOptEmptyString("rekey_derivation_method")
	}

	if h := ctx.OpenedStore(); h != nil && h.Name() == name {
		return fmt.Errorf("Wallet %q already opened.", name)
	}
	cfg, err := a.walletConfig(name)
	if err != nil {
		return err
	}
	opener, err := a.opener(cfg.StorageType)
	if err != nil {
		return err
	}
	h, err := opener.Open(cfg, creds)
	if err != nil {
		return fmt.Errorf("Wallet %q could not be opened: %w", name, err)
	}

	if prev := ctx.TakeOpenedStore(); prev != nil {
		if err := prev.Close(); err != nil {
			a.printer.Warn("Wallet %q could not be closed: %v", prev.Name(), err)
		} else {
			a.printer.Printf("Wallet %q has been closed\n", prev.Name())
		}
	}
	ctx.SetOpenedStore(h)
	a.printer.Success("Wallet %q has been opened", name)
	return nil
}

func (a *App) cmdWalletClose(ctx *command.Context, _ *command.Params) error {
	if _, err := ctx.EnsureOpenedStore(); err != nil {
		return err
	}
	h := ctx.TakeOpenedStore()
	if err := h.Close(); err != nil {
		return fmt.Errorf("Wallet %q could not be closed: %w", h.Name(), err)
	}
	a.printer.Success("Wallet %q has been closed", h.Name())
	return nil
}

func (a *App) cmdWalletDelete(ctx *command.Context, params *command.Params) error {
	name, err := params.GetString("name")
	if err != nil {
		return err
	}
	creds, err := walletCredentials(params, "key", "key_derivation_method")
	if err != nil {
		return err
	}
	if h := ctx.OpenedStore(); h != nil && h.Name() == name {
		return fmt.Errorf("Wallet %q is opened. Close it first", name)
	}
	cfg, err := a.walletConfig(name)
	if err != nil {
		return err
	}
	opener, err := a.opener(cfg.StorageType)
	if err != nil {
		return err
	}
	if err := opener.Delete(cfg, creds); err != nil {
		return fmt.Errorf("Wallet %q could not be deleted: %w", name, err)
	}
	if err := a.wallets.Detach(name); err != nil {
		return err
	}
	a.printer.Success("Wallet %q has been deleted", name)
	return nil
}

func (a *App) cmdWalletList(ctx *command.Context, _ *command.Params) error {
	configs, err := a.wallets.List()
	if err != nil {
		return err
	}
	if len(configs) == 0 {
		a.printer.Println("There are no wallets")
		return nil
	}
	opened := ""
	if h := ctx.OpenedStore(); h != nil {
		opened = h.Name()
	}
	rows := make([][]string, 0, len(configs))
	for _, cfg := range configs {
		mark := ""
		if cfg.ID == opened {
			mark = "*"
		}
		location := "-"
		if p, ok := cfg.StorageConfig["path"].(string); ok {
			location = p
		}
		rows = append(rows, []string{cfg.ID, cfg.StorageType, location, mark})
	}
	a.printer.Table([]string{"Name", "Storage", "Location", "Opened"}, rows)
	return nil
}

func (a *App) cmdWalletExport(ctx *command.Context, params *command.Params) error {
	h, err := ctx.EnsureOpenedStore()
	if err != nil {
		return err
	}
	path, err := params.GetString("export_path")
	if err != nil {
		return err
	}
	exportCreds, err := walletCredentials(params, "export_key", "export_key_derivation_method")
	if err != nil {
		return err
	}
	cfg, err := a.walletConfig(h.Name())
	if err != nil {
		return err
	}
	opener, err := a.opener(cfg.StorageType)
	if err != nil {
		return err
	}
	if err := opener.Export(h, path, exportCreds); err != nil {
		return fmt.Errorf("Wallet %q could not be exported: %w", h.Name(), err)
	}
	a.printer.Success("Wallet %q has been exported to %s", h.Name(), path)
	return nil
}

func (a *App) cmdWalletImport(_ *command.Context, params *command.Params) error {
	name, err := params.GetString("name")
	if err != nil {
		return err
	}
	path, err := params.GetString("export_path")
	if err != nil {
		return err
	}
	creds, err := walletCredentials(params, "key", "key_derivation_method")
	if err != nil {
		return err
	}
	importKey, err := params.GetString("export_key")
	if err != nil {
		return err
	}
	if a.wallets.Exists(name) {
		return fmt.Errorf("Wallet %q already exists", name)
	}

	cfg := store.Config{ID: name, StorageType: store.DefaultStorageType}
	opener, err := a.opener(cfg.StorageType)
	if err != nil {
		return err
	}
	if err := opener.Import(cfg, creds, path, store.Credentials{Key: importKey}); err != nil {
		return fmt.Errorf("Wallet %q could not be imported: %w", name, err)
	}
	if err := a.wallets.Attach(cfg); err != nil {
		return err
	}
	a.printer.Success("Wallet %q has been imported from %s", name, path)
	return nil
}
