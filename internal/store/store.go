// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package store manages encrypted identity wallets: their persisted
// configuration records, key derivation and the per-identity key files.
package store

import (
	"errors"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// DefaultStorageType is the only storage backend shipped with apledger.
const DefaultStorageType = "default"

var (
	ErrNotFound         = errors.New("wallet not found")
	ErrAlreadyExists    = errors.New("wallet already exists")
	ErrAccessFailed     = errors.New("invalid wallet key or wallet is corrupted")
	ErrIdentityNotFound = errors.New("identity not found in wallet")
	ErrIdentityExists   = errors.New("identity already exists in wallet")
	ErrNoPendingKey     = errors.New("no key rotation in progress for identity")
)

// Config is the persisted record of an attached wallet.
type Config struct {
	ID            string         `yaml:"id"`
	StorageType   string         `yaml:"storage_type"`
	StorageConfig map[string]any `yaml:"storage_config,omitempty"`
}

// Credentials unlock a wallet. Key and Rekey are never persisted.
type Credentials struct {
	Key                   string
	KeyDerivationMethod   string
	Rekey                 string
	RekeyDerivationMethod string
	StorageCredentials    map[string]any
}

// IdentityInfo describes one identity held by a wallet.
type IdentityInfo struct {
	// ID is the Algorand address, optionally qualified as did:<method>:<ADDRESS>.
	ID       string `json:"id"`
	Address  string `json:"address"`
	AuthAddr string `json:"auth_address,omitempty"`
	// PendingAuthAddr is set between RotateKeyStart and RotateKeyApply.
	PendingAuthAddr string `json:"pending_auth_address,omitempty"`
	Metadata        string `json:"metadata,omitempty"`
}

// SigningAddress returns the address whose key currently signs for the identity.
func (i IdentityInfo) SigningAddress() string {
	if i.AuthAddr != "" {
		return i.AuthAddr
	}
	return i.Address
}

// NewIdentity carries the optional inputs of CreateIdentity.
type NewIdentity struct {
	// ID, when set, must decode to the address derived from Seed.
	ID       string
	Seed     string
	Method   string
	Metadata string
}

// Handle is an opened wallet.
type Handle interface {
	Name() string
	ListIdentities() ([]IdentityInfo, error)
	CreateIdentity(req NewIdentity) (IdentityInfo, error)
	GetIdentity(id string) (IdentityInfo, error)
	SetMetadata(id, metadata string) error
	QualifyIdentity(id, method string) (IdentityInfo, error)
	// RotateKeyStart stores a new key for id without activating it and
	// returns the new signing address.
	RotateKeyStart(id, seed string) (string, error)
	RotateKeyApply(id string) (IdentityInfo, error)
	Sign(id string, msg []byte) ([]byte, error)
	SignTransaction(id string, txn types.Transaction) ([]byte, error)
	Close() error
}

// Opener creates, opens and deletes wallets of one storage type.
type Opener interface {
	Create(cfg Config, creds Credentials) error
	Open(cfg Config, creds Credentials) (Handle, error)
	Delete(cfg Config, creds Credentials) error
	Export(h Handle, path string, exportCreds Credentials) error
	Import(cfg Config, creds Credentials, path string, importCreds Credentials) error
}
