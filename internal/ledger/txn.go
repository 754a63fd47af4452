// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

// Package ledger builds Algorand transactions and converts them to and from
// the text form kept in the session's pending-transaction buffer.
package ledger

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/crypto"
	sdkjson "github.com/algorand/go-algorand-sdk/v2/encoding/json"
	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// ErrEmpty is returned when there is no transaction text to decode.
var ErrEmpty = errors.New("empty transaction")

// Decoded is a parsed transaction in either signed or unsigned form.
type Decoded struct {
	Txn    types.Transaction
	Signed bool
	// Raw is the msgpack encoding (of the SignedTxn when Signed).
	Raw []byte
}

// TxID returns the transaction ID.
func (d Decoded) TxID() string { return crypto.GetTxID(d.Txn) }

// Text returns the base64 form stored in the pending buffer.
func (d Decoded) Text() string { return base64.StdEncoding.EncodeToString(d.Raw) }

// EncodeUnsigned returns the text form of an unsigned transaction.
func EncodeUnsigned(txn types.Transaction) string {
	return base64.StdEncoding.EncodeToString(msgpack.Encode(txn))
}

// EncodeSigned returns the text form of msgpack-encoded signed bytes.
func EncodeSigned(signed []byte) string {
	return base64.StdEncoding.EncodeToString(signed)
}

// Decode auto-detects the format: SDK JSON of a transaction, or base64
// msgpack of a signed or unsigned transaction.
func Decode(text string) (Decoded, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Decoded{}, ErrEmpty
	}

	if text[0] == '{' {
		var txn types.Transaction
		if err := sdkjson.Decode([]byte(text), &txn); err != nil {
			return Decoded{}, fmt.Errorf("failed to parse JSON: not a valid transaction: %w", err)
		}
		if txn.Type == "" {
			return Decoded{}, fmt.Errorf("failed to parse JSON: transaction has no type")
		}
		return Decoded{Txn: txn, Raw: msgpack.Encode(txn)}, nil
	}

	raw, err := base64.StdEncoding.DecodeString(text)
	if err != nil {
		return Decoded{}, fmt.Errorf("failed to decode base64: %w", err)
	}
	return DecodeMsgpack(raw)
}

// DecodeMsgpack parses a msgpack SignedTxn or Transaction.
func DecodeMsgpack(raw []byte) (Decoded, error) {
	var stxn types.SignedTxn
	if err := msgpack.Decode(raw, &stxn); err == nil && stxn.Txn.Type != "" && isSigned(stxn) {
		return Decoded{Txn: stxn.Txn, Signed: true, Raw: raw}, nil
	}

	var txn types.Transaction
	if err := msgpack.Decode(raw, &txn); err != nil {
		return Decoded{}, fmt.Errorf("failed to parse msgpack: not a valid transaction: %w", err)
	}
	if txn.Type == "" {
		return Decoded{}, fmt.Errorf("failed to parse msgpack: transaction has no type")
	}
	return Decoded{Txn: txn, Raw: raw}, nil
}

func isSigned(stxn types.SignedTxn) bool {
	return stxn.Sig != (types.Signature{}) || !stxn.Msig.Blank() || !stxn.Lsig.Blank()
}

// FormatJSON renders txn as indented JSON with base32 addresses.
func FormatJSON(txn types.Transaction) (string, error) {
	// SDK's JSON encoder uses msgpack field names; addresses come out base64
	var formatted map[string]any
	if err := json.Unmarshal(sdkjson.Encode(txn), &formatted); err != nil {
		return "", fmt.Errorf("failed to unmarshal for formatting: %w", err)
	}
	convertAddressFields(formatted)

	indented, err := json.MarshalIndent(formatted, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal with indentation: %w", err)
	}
	return string(indented), nil
}

var addressFields = map[string]bool{
	"snd":   true,
	"rcv":   true,
	"close": true,
	"rekey": true,
}

func convertAddressFields(m map[string]any) {
	for key, value := range m {
		if !addressFields[key] {
			continue
		}
		s, ok := value.(string)
		if !ok {
			continue
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil || len(b) != len(types.Address{}) {
			continue
		}
		var addr types.Address
		copy(addr[:], b)
		m[key] = addr.String()
	}
}
