// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package fsutil provides filesystem helpers for the apledger data directory.
// Everything under it is private to the owning user (0600 files, 0700 dirs).
package fsutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DirPerm is the permission mode for data directories.
const DirPerm os.FileMode = 0700

// FilePerm is the permission mode for data files.
const FilePerm os.FileMode = 0600

// MkdirAll creates a directory and any missing parents with private
// permissions. Directories that already exist keep their mode.
func MkdirAll(path string) error {
	var created []string
	for dir := filepath.Clean(path); ; {
		if _, err := os.Stat(dir); err == nil || !errors.Is(err, os.ErrNotExist) {
			break
		}
		created = append(created, dir)
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	if err := os.MkdirAll(path, DirPerm); err != nil {
		return err
	}
	// The umask may have narrowed DirPerm.
	for _, dir := range created {
		if err := os.Chmod(dir, DirPerm); err != nil {
			return err
		}
	}
	return nil
}

// WriteFile writes data atomically: a temp file in the same directory is
// renamed over path. Parent directories are created on demand.
func WriteFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := MkdirAll(dir); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Chmod(FilePerm); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("failed to set permissions on %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// Exists reports whether path exists.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
