// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package history keeps the shell's command history and persists it to a
// file. Lines that carry a secret value are never recorded.
package history

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/aplane-algo/apledger/internal/fsutil"
)

// DefaultLimit is the number of lines kept when no limit is configured.
const DefaultLimit = 100

// History is a bounded list of accepted input lines.
type History struct {
	mu      sync.Mutex
	path    string
	limit   int
	markers []string
	lines   []string
}

// New returns an empty history persisted at path. Lines containing any of
// markers (e.g. " key=") are rejected. A limit <= 0 uses DefaultLimit.
func New(path string, limit int, markers []string) *History {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &History{path: path, limit: limit, markers: markers}
}

// IsSecret reports whether line contains a secret marker. A marker's
// leading space matches any token boundary the tokenizer accepts, so
// "\tkey=" and "\"key=" count as well.
func (h *History) IsSecret(line string) bool {
	for _, m := range h.markers {
		name := strings.TrimLeft(m, " ")
		for i := 0; i < len(line); {
			j := strings.Index(line[i:], name)
			if j < 0 {
				break
			}
			j += i
			if j > 0 && strings.IndexByte(" \t\"", line[j-1]) >= 0 {
				return true
			}
			i = j + 1
		}
	}
	return false
}

// Load reads the history file. A missing file is an empty history.
func (h *History) Load() error {
	data, err := os.ReadFile(h.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.lines = h.lines[:0]
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		h.addLocked(scanner.Text())
	}
	return scanner.Err()
}

// Add records line and reports whether it was kept. Blank lines, secret
// lines and repeats of the previous line are dropped.
func (h *History) Add(line string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.addLocked(line)
}

func (h *History) addLocked(line string) bool {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" || h.IsSecret(line) {
		return false
	}
	if n := len(h.lines); n > 0 && h.lines[n-1] == line {
		return false
	}
	h.lines = append(h.lines, line)
	if over := len(h.lines) - h.limit; over > 0 {
		h.lines = append(h.lines[:0], h.lines[over:]...)
	}
	return true
}

// Lines returns a copy of the recorded lines, oldest first.
func (h *History) Lines() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.lines...)
}

// Save writes the history file, creating its directory on first use.
func (h *History) Save() error {
	h.mu.Lock()
	var buf bytes.Buffer
	for _, line := range h.lines {
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	h.mu.Unlock()

	if err := fsutil.WriteFile(h.path, buf.Bytes()); err != nil {
		return fmt.Errorf("can't store history into %s: %w", h.path, err)
	}
	return nil
}
