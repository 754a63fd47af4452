// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/algorand/go-algorand-sdk/v2/transaction"
	"github.com/algorand/go-algorand-sdk/v2/types"
)

// AlgoDecimals is the number of decimal places of one ALGO in microAlgos.
const AlgoDecimals = 6

// PaymentParams describes a payment to build.
type PaymentParams struct {
	From   string
	To     string
	Amount uint64 // microAlgos
	Note   []byte
	// Fee is a flat fee in microAlgos; 0 uses the suggested fee.
	Fee uint64
}

// MakePayment builds an ALGO payment from p.From to p.To.
func MakePayment(sp types.SuggestedParams, p PaymentParams) (types.Transaction, error) {
	if p.Fee > 0 {
		sp.FlatFee = true
		sp.Fee = types.MicroAlgos(p.Fee)
	}
	txn, err := transaction.MakePaymentTxn(p.From, p.To, p.Amount, p.Note, "", sp)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to create payment transaction: %w", err)
	}
	return txn, nil
}

// MakeRekey builds a zero payment to self that moves signing authority of
// addr to authAddr.
func MakeRekey(sp types.SuggestedParams, addr, authAddr string) (types.Transaction, error) {
	txn, err := transaction.MakePaymentTxn(addr, addr, 0, nil, "", sp)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("failed to create rekey transaction: %w", err)
	}
	rekeyAddr, err := types.DecodeAddress(authAddr)
	if err != nil {
		return types.Transaction{}, fmt.Errorf("invalid rekey address: %w", err)
	}
	txn.RekeyTo = rekeyAddr
	return txn, nil
}

// ParseAlgos converts a decimal ALGO amount ("1.5") to microAlgos.
func ParseAlgos(amount string) (uint64, error) {
	if amount == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(amount, "-") {
		return 0, fmt.Errorf("amount cannot be negative")
	}

	integerPart, fractionalPart, _ := strings.Cut(amount, ".")
	if strings.Contains(fractionalPart, ".") {
		return 0, fmt.Errorf("invalid amount format: multiple decimal points")
	}
	if integerPart == "" {
		integerPart = "0"
	}
	if len(fractionalPart) > AlgoDecimals {
		return 0, fmt.Errorf("amount has too many decimal places (max %d)", AlgoDecimals)
	}

	// "1.5" -> "1" + "500000"
	digits := integerPart + fractionalPart + strings.Repeat("0", AlgoDecimals-len(fractionalPart))
	digits = strings.TrimLeft(digits, "0")
	if digits == "" {
		return 0, nil
	}

	micro, err := strconv.ParseUint(digits, 10, 64)
	if err != nil {
		if numErr, ok := err.(*strconv.NumError); ok && numErr.Err == strconv.ErrRange {
			return 0, fmt.Errorf("amount too large (exceeds uint64 capacity)")
		}
		return 0, fmt.Errorf("invalid amount format: %s", amount)
	}
	return micro, nil
}

// FormatAlgos renders microAlgos as a decimal ALGO amount.
func FormatAlgos(micro uint64) string {
	return fmt.Sprintf("%d.%06d", micro/1_000_000, micro%1_000_000)
}
