// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/aplane-algo/apledger/internal/configdir"
)

// Directory holds the attached wallet records (<data>/wallets/<id>.yaml).
type Directory struct {
	records *configdir.Directory
}

// NewDirectory returns the wallet directory rooted at dir.
func NewDirectory(dir string) *Directory {
	return &Directory{records: configdir.New(dir)}
}

// Path returns the directory path.
func (d *Directory) Path() string { return d.records.Dir() }

// Attach records cfg. It fails if a wallet with the same id is attached.
func (d *Directory) Attach(cfg Config) error {
	if err := configdir.ValidateName(cfg.ID); err != nil {
		return fmt.Errorf("invalid wallet name: %w", err)
	}
	if d.records.Exists(cfg.ID) {
		return fmt.Errorf("%q: %w", cfg.ID, ErrAlreadyExists)
	}
	if cfg.StorageType == "" {
		cfg.StorageType = DefaultStorageType
	}
	return d.records.Write(cfg.ID, cfg)
}

// Detach forgets the record for id. Wallet content is left in place.
func (d *Directory) Detach(id string) error {
	err := d.records.Remove(id)
	if errors.Is(err, configdir.ErrNotFound) {
		return fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	return err
}

// Read returns the record for id.
func (d *Directory) Read(id string) (Config, error) {
	var cfg Config
	err := d.records.Read(id, &cfg)
	if errors.Is(err, configdir.ErrNotFound) {
		return cfg, fmt.Errorf("%q: %w", id, ErrNotFound)
	}
	if err != nil {
		return cfg, err
	}
	if cfg.ID == "" {
		cfg.ID = id
	}
	return cfg, nil
}

func (d *Directory) Exists(id string) bool { return d.records.Exists(id) }

// Names lists attached wallet ids in sorted order.
func (d *Directory) Names() ([]string, error) { return d.records.Names() }

// List returns every attached wallet record. Unreadable records are skipped.
func (d *Directory) List() ([]Config, error) {
	names, err := d.records.Names()
	if err != nil {
		return nil, err
	}
	out := make([]Config, 0, len(names))
	for _, name := range names {
		cfg, err := d.Read(name)
		if err != nil {
			continue
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Watch keeps Names current when other processes attach or detach wallets.
func (d *Directory) Watch(ctx context.Context) error { return d.records.Watch(ctx) }
