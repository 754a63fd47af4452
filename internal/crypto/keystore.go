// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// MetadataFile is the per-wallet file holding the salt and check value.
const MetadataFile = ".keystore"

// ErrWrongKey is returned when a key fails the metadata check.
var ErrWrongKey = errors.New("incorrect wallet key")

// checkPlaintext is the known value sealed in the Check field
const checkPlaintext = "APLEDGER_OK"

// Metadata holds wallet-wide encryption parameters.
type Metadata struct {
	Version int    `json:"version"`
	Method  Method `json:"method"`
	Salt    string `json:"salt,omitempty"`
	Check   string `json:"check"`
	Created string `json:"created"`
}

// NewMetadata creates metadata for a fresh wallet key and returns the derived
// key. Nothing is written to disk.
func NewMetadata(method Method, userKey []byte) (*Metadata, []byte, error) {
	var salt []byte
	if method.NeedsSalt() {
		salt = make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, nil, fmt.Errorf("failed to generate salt: %w", err)
		}
	}

	key, err := DeriveKey(method, userKey, salt)
	if err != nil {
		return nil, nil, err
	}

	nonce, ciphertext, err := seal([]byte(checkPlaintext), key)
	if err != nil {
		ZeroBytes(key)
		return nil, nil, fmt.Errorf("failed to create check value: %w", err)
	}

	meta := &Metadata{
		Version: 1,
		Method:  method,
		Salt:    base64.StdEncoding.EncodeToString(salt),
		Check:   base64.StdEncoding.EncodeToString(append(nonce, ciphertext...)),
		Created: time.Now().UTC().Format(time.RFC3339),
	}
	return meta, key, nil
}

// Save writes the metadata file into dir, creating dir if needed.
func (m *Metadata) Save(dir string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal wallet metadata: %w", err)
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create wallet directory: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), data, 0600); err != nil {
		return fmt.Errorf("failed to write wallet metadata: %w", err)
	}
	return nil
}

// LoadMetadata reads the metadata file of dir. It returns os.ErrNotExist
// (wrapped) when the wallet has none.
func LoadMetadata(dir string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read wallet metadata: %w", err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("failed to parse wallet metadata: %w", err)
	}
	return &meta, nil
}

// Unlock derives the wallet key from userKey and verifies it against the
// check value. method overrides the stored method when non-empty; a mismatch
// simply fails the check.
func (m *Metadata) Unlock(userKey []byte, method Method) ([]byte, error) {
	if method == "" {
		method = m.Method
	}
	salt, err := base64.StdEncoding.DecodeString(m.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	key, err := DeriveKey(method, userKey, salt)
	if err != nil {
		return nil, err
	}

	check, err := base64.StdEncoding.DecodeString(m.Check)
	if err != nil {
		ZeroBytes(key)
		return nil, fmt.Errorf("failed to decode check value: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		ZeroBytes(key)
		return nil, err
	}
	if len(check) < gcm.NonceSize() {
		ZeroBytes(key)
		return nil, fmt.Errorf("check data too short")
	}
	plaintext, err := gcm.Open(nil, check[:gcm.NonceSize()], check[gcm.NonceSize():], nil)
	if err != nil || string(plaintext) != checkPlaintext {
		ZeroBytes(key)
		return nil, ErrWrongKey
	}
	return key, nil
}
