// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package crypto derives wallet keys from user credentials and seals wallet
// content with AES-256-GCM.
package crypto

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"runtime"

	"golang.org/x/crypto/argon2"
)

// Method selects how a wallet key is derived from the user-supplied key.
type Method string

const (
	// MethodArgon2m is Argon2id with moderate memory cost (the default).
	MethodArgon2m Method = "argon2m"
	// MethodArgon2i is the faster Argon2i variant.
	MethodArgon2i Method = "argon2i"
	// MethodRaw takes the key as 64 hex characters, without derivation.
	MethodRaw Method = "raw"
)

const keyLen = 32 // AES-256

// Argon2id parameters for argon2m
const (
	argon2mTime    = 1
	argon2mMemory  = 64 * 1024
	argon2mThreads = 4
)

// Argon2i parameters for argon2i
const (
	argon2iTime    = 3
	argon2iMemory  = 32 * 1024
	argon2iThreads = 4
)

// ParseMethod validates a derivation method name. Empty selects argon2m.
func ParseMethod(s string) (Method, error) {
	switch Method(s) {
	case "":
		return MethodArgon2m, nil
	case MethodArgon2m, MethodArgon2i, MethodRaw:
		return Method(s), nil
	default:
		return "", fmt.Errorf("unsupported key derivation method %q (expected argon2m, argon2i or raw)", s)
	}
}

// NeedsSalt reports whether the method uses a salt.
func (m Method) NeedsSalt() bool {
	return m != MethodRaw
}

// DeriveKey turns a user-supplied key into a 32-byte encryption key.
// Caller is responsible for zeroing the returned key when done.
func DeriveKey(method Method, key []byte, salt []byte) ([]byte, error) {
	switch method {
	case MethodArgon2m, "":
		return argon2.IDKey(key, salt, argon2mTime, argon2mMemory, argon2mThreads, keyLen), nil
	case MethodArgon2i:
		return argon2.Key(key, salt, argon2iTime, argon2iMemory, argon2iThreads, keyLen), nil
	case MethodRaw:
		raw, err := hex.DecodeString(string(key))
		if err != nil || len(raw) != keyLen {
			return nil, fmt.Errorf("raw key must be %d hex-encoded bytes", keyLen)
		}
		return raw, nil
	default:
		return nil, fmt.Errorf("unsupported key derivation method %q", method)
	}
}

// ZeroBytes clears derived keys and decrypted payloads once they are no
// longer needed.
func ZeroBytes(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
	runtime.KeepAlive(b)
}
