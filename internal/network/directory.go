// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package network

import (
	"context"
	"errors"
	"fmt"

	"github.com/aplane-algo/apledger/internal/configdir"
)

// Directory holds pool configurations (<data>/pools/<name>.yaml).
type Directory struct {
	records *configdir.Directory
}

// NewDirectory returns the pool directory rooted at dir.
func NewDirectory(dir string) *Directory {
	return &Directory{records: configdir.New(dir)}
}

// Create records cfg. It fails if the pool already exists.
func (d *Directory) Create(cfg Config) error {
	if err := configdir.ValidateName(cfg.Name); err != nil {
		return fmt.Errorf("invalid pool name: %w", err)
	}
	if d.records.Exists(cfg.Name) {
		return fmt.Errorf("%q: %w", cfg.Name, ErrAlreadyExists)
	}
	return d.records.Write(cfg.Name, cfg)
}

// Read returns the configuration of pool name.
func (d *Directory) Read(name string) (Config, error) {
	var cfg Config
	err := d.records.Read(name, &cfg)
	if errors.Is(err, configdir.ErrNotFound) {
		return cfg, fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return cfg, err
	}
	if cfg.Name == "" {
		cfg.Name = name
	}
	return cfg, nil
}

// Delete removes the configuration of pool name.
func (d *Directory) Delete(name string) error {
	err := d.records.Remove(name)
	if errors.Is(err, configdir.ErrNotFound) {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return err
}

// Names lists pool names in sorted order.
func (d *Directory) Names() ([]string, error) { return d.records.Names() }

// List returns every pool configuration. Unreadable records are skipped.
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

// Watch keeps Names current when other processes change pool records.
func (d *Directory) Watch(ctx context.Context) error { return d.records.Watch(ctx) }
