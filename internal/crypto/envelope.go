// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrDecrypt is returned when ciphertext does not open under the given key.
var ErrDecrypt = errors.New("failed to decrypt data")

const (
	envelopeSealed   = 1 // key held by the wallet metadata
	envelopeExported = 2 // salt and method embedded, for export files
	saltLen          = 32
)

// Envelope is the JSON form of sealed content.
type Envelope struct {
	EnvelopeVersion int    `json:"envelope_version"`
	Method          Method `json:"method,omitempty"`
	Salt            string `json:"salt,omitempty"`
	Nonce           string `json:"nonce"`
	Ciphertext      string `json:"ciphertext"`
}

// IsSealed checks if data appears to be a sealed envelope.
func IsSealed(data []byte) bool {
	var env Envelope
	return json.Unmarshal(data, &env) == nil && env.EnvelopeVersion > 0
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

func seal(plaintext, key []byte) (nonce, ciphertext []byte, err error) {
	gcm, err := newGCM(key)
	if err != nil {
		return nil, nil, err
	}
	nonce = make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, gcm.Seal(nil, nonce, plaintext, nil), nil
}

func open(env *Envelope, key []byte) ([]byte, error) {
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, ErrDecrypt
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}

func parseEnvelope(data []byte, version int) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to parse encrypted data: %w", err)
	}
	if env.EnvelopeVersion != version {
		return nil, fmt.Errorf("envelope_version %d not supported (expected %d)", env.EnvelopeVersion, version)
	}
	return &env, nil
}

// Seal encrypts plaintext with an already derived wallet key.
func Seal(plaintext, key []byte) ([]byte, error) {
	nonce, ciphertext, err := seal(plaintext, key)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(Envelope{
		EnvelopeVersion: envelopeSealed,
		Nonce:           base64.StdEncoding.EncodeToString(nonce),
		Ciphertext:      base64.StdEncoding.EncodeToString(ciphertext),
	}, "", "  ")
}

// Open decrypts data produced by Seal.
func Open(data, key []byte) ([]byte, error) {
	env, err := parseEnvelope(data, envelopeSealed)
	if err != nil {
		return nil, err
	}
	return open(env, key)
}

// SealWithKey encrypts plaintext under a user key, embedding the salt and
// derivation method so the result opens with only the key.
func SealWithKey(plaintext, userKey []byte, method Method) ([]byte, error) {
	var salt []byte
	if method.NeedsSalt() {
		salt = make([]byte, saltLen)
		if _, err := rand.Read(salt); err != nil {
			return nil, fmt.Errorf("failed to generate salt: %w", err)
		}
	}
	key, err := DeriveKey(method, userKey, salt)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(key)

	nonce, ciphertext, err := seal(plaintext, key)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(Envelope{
		EnvelopeVersion: envelopeExported,
		Method:          method,
		Salt:            base64.StdEncoding.EncodeToString(salt),
		Nonce:           base64.StdEncoding.EncodeToString(nonce),
		Ciphertext:      base64.StdEncoding.EncodeToString(ciphertext),
	}, "", "  ")
}

// OpenWithKey decrypts data produced by SealWithKey.
func OpenWithKey(data, userKey []byte) ([]byte, error) {
	env, err := parseEnvelope(data, envelopeExported)
	if err != nil {
		return nil, err
	}
	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("failed to decode salt: %w", err)
	}
	key, err := DeriveKey(env.Method, userKey, salt)
	if err != nil {
		return nil, err
	}
	defer ZeroBytes(key)
	return open(env, key)
}
