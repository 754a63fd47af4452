// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package configdir stores named yaml records, one file per name, in a
// directory under the apledger data directory. The directory is created on
// first write.
package configdir

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/aplane-algo/apledger/internal/fsutil"
)

const recordExt = ".yaml"

// ErrNotFound is returned when no record exists for a name.
var ErrNotFound = errors.New("record not found")

// Directory is a set of yaml records keyed by name. While a watcher is
// running, name listings are cached until a write through the Directory or a
// filesystem event invalidates them. Without one every listing reads the
// directory.
type Directory struct {
	dir string

	mu       sync.Mutex
	names    []string
	valid    bool
	watching bool
}

// New returns a Directory rooted at dir. Nothing is created on disk.
func New(dir string) *Directory {
	return &Directory{dir: dir}
}

// Dir returns the directory path.
func (d *Directory) Dir() string { return d.dir }

// ValidateName rejects names that cannot be used as a record file name.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name must not be empty")
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("name %q must not start with '.'", name)
	case strings.ContainsAny(name, `/\`+"\x00"):
		return fmt.Errorf("name %q contains a path separator", name)
	}
	return nil
}

// Path returns the record file path for name.
func (d *Directory) Path(name string) string {
	return filepath.Join(d.dir, name+recordExt)
}

func (d *Directory) invalidate() {
	d.mu.Lock()
	d.valid = false
	d.mu.Unlock()
}

func (d *Directory) setWatching(on bool) {
	d.mu.Lock()
	d.watching = on
	d.valid = false
	d.mu.Unlock()
}

// Names lists record names in sorted order. A missing directory has no records.
func (d *Directory) Names() ([]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.valid && d.watching {
		out := make([]string, len(d.names))
		copy(out, d.names)
		return out, nil
	}

	entries, err := os.ReadDir(d.dir)
	if errors.Is(err, os.ErrNotExist) {
		entries = nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", d.dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, recordExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(name, recordExt))
	}
	sort.Strings(names)

	d.names = names
	d.valid = true
	out := make([]string, len(names))
	copy(out, names)
	return out, nil
}

// Exists reports whether a record exists for name.
func (d *Directory) Exists(name string) bool {
	if ValidateName(name) != nil {
		return false
	}
	return fsutil.Exists(d.Path(name))
}

// Read decodes the record for name into v.
func (d *Directory) Read(name string, v any) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, err := os.ReadFile(d.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", name, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %q: %w", name, err)
	}
	return nil
}

// Write encodes v as the record for name, replacing any existing one.
func (d *Directory) Write(name string, v any) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %q: %w", name, err)
	}
	defer d.invalidate()
	if err := fsutil.WriteFile(d.Path(name), data); err != nil {
		return fmt.Errorf("failed to write %q: %w", name, err)
	}
	return nil
}

// Remove deletes the record for name.
func (d *Directory) Remove(name string) error {
	if err := ValidateName(name); err != nil {
		return err
	}
	defer d.invalidate()
	err := os.Remove(d.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("%q: %w", name, ErrNotFound)
	}
	return err
}

// Watch enables the name cache and invalidates it when records are changed
// by other processes. It returns without watching if the directory does not
// exist yet, leaving the cache off.
func (d *Directory) Watch(ctx context.Context) error {
	if !fsutil.Exists(d.dir) {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := watcher.Add(d.dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", d.dir, err)
	}
	d.setWatching(true)

	go func() {
		defer func() {
			d.setWatching(false)
			_ = watcher.Close()
		}()
		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !strings.HasSuffix(event.Name, recordExt) {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					d.invalidate()
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Warn("file watcher error", "dir", d.dir, "error", err)
			}
		}
	}()

	return nil
}
