// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/types"
)

// Identity is a session-selected actor: an Algorand account address, either
// bare or qualified as did:<method>:<address>.
type Identity string

// ParseIdentity validates the textual shape of an identity.
func ParseIdentity(s string) (Identity, error) {
	if s == "" {
		return "", fmt.Errorf("empty identity")
	}
	addr := s
	if strings.HasPrefix(s, "did:") {
		parts := strings.SplitN(s, ":", 3)
		if len(parts) != 3 || parts[1] == "" {
			return "", fmt.Errorf("malformed qualified identity %q", s)
		}
		addr = parts[2]
	}
	if _, err := types.DecodeAddress(addr); err != nil {
		return "", fmt.Errorf("invalid address: %w", err)
	}
	return Identity(s), nil
}

// Address returns the unqualified account address.
func (i Identity) Address() string {
	s := string(i)
	if strings.HasPrefix(s, "did:") {
		if parts := strings.SplitN(s, ":", 3); len(parts) == 3 {
			return parts[2]
		}
	}
	return s
}

// Method returns the qualification method, or "" for a bare address.
func (i Identity) Method() string {
	s := string(i)
	if strings.HasPrefix(s, "did:") {
		if parts := strings.SplitN(s, ":", 3); len(parts) == 3 {
			return parts[1]
		}
	}
	return ""
}

// Qualify returns the identity qualified with method.
func (i Identity) Qualify(method string) Identity {
	return Identity("did:" + method + ":" + i.Address())
}

// Short abbreviates the identity for prompts.
func (i Identity) Short() string {
	addr := i.Address()
	if len(addr) <= 10 {
		return string(i)
	}
	return addr[:4] + "..." + addr[len(addr)-4:]
}

func (i Identity) String() string { return string(i) }
