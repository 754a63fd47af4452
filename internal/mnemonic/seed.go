// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package mnemonic converts user-supplied seed text into Ed25519 seeds.
package mnemonic

import (
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	algomnemonic "github.com/algorand/go-algorand-sdk/v2/mnemonic"
)

const mnemonicWords = 25

// ParseSeed accepts a 25-word Algorand mnemonic, 64 hex characters, or a
// 32-byte string, and returns the 32-byte Ed25519 seed.
func ParseSeed(s string) ([]byte, error) {
	s = strings.TrimSpace(s)

	if words := strings.Fields(s); len(words) == mnemonicWords {
		sk, err := algomnemonic.ToPrivateKey(strings.Join(words, " "))
		if err != nil {
			return nil, fmt.Errorf("failed to derive private key from mnemonic: %w", err)
		}
		return ed25519.PrivateKey(sk).Seed(), nil
	}

	if len(s) == 2*ed25519.SeedSize {
		if seed, err := hex.DecodeString(s); err == nil {
			return seed, nil
		}
	}

	if len(s) == ed25519.SeedSize {
		return []byte(s), nil
	}

	return nil, fmt.Errorf("seed must be a %d-word mnemonic, %d hex characters or a %d-byte string",
		mnemonicWords, 2*ed25519.SeedSize, ed25519.SeedSize)
}

// Account builds the Algorand account for seed.
func Account(seed []byte) (crypto.Account, error) {
	if len(seed) != ed25519.SeedSize {
		return crypto.Account{}, fmt.Errorf("invalid seed length: expected %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return crypto.AccountFromPrivateKey(ed25519.NewKeyFromSeed(seed))
}

// NewSeed returns a fresh random seed.
func NewSeed() []byte {
	return crypto.GenerateAccount().PrivateKey.Seed()
}

// FromSeed renders seed as a 25-word mnemonic.
func FromSeed(seed []byte) (string, error) {
	if len(seed) != ed25519.SeedSize {
		return "", fmt.Errorf("invalid seed length: expected %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	return algomnemonic.FromPrivateKey(ed25519.NewKeyFromSeed(seed))
}
