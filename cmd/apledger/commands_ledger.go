// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"fmt"
	"time"

	"github.com/aplane-algo/apledger/internal/command"
	"github.com/aplane-algo/apledger/internal/ledger"
	"github.com/aplane-algo/apledger/internal/network"
)

// transactionText returns the txn parameter or, when it is absent, the
// pending transaction. fromPending reports which one was used.
func transactionText(ctx *command.Context, params *command.Params) (text string, fromPending bool, err error) {
	if v, ok, err := params.GetOptString("txn"); err != nil {
		return "", false, err
	} else if ok {
		return v, false, nil
	}
	pt := ctx.PendingTransaction()
	if pt == nil {
		return "", false, &command.PreconditionError{Msg: "There is no pending transaction. Use 'ledger load-transaction' or pass txn="}
	}
	return pt.Text, true, nil
}

func (a *App) cmdLedgerPayment(ctx *command.Context, params *command.Params) error {
	id, err := ctx.EnsureActiveIdentity()
	if err != nil {
		return err
	}
	pool, err := ctx.EnsureConnectedNetwork()
	if err != nil {
		return err
	}
	to, err := params.GetIdentity("to")
	if err != nil {
		return err
	}
	amountText, err := params.GetString("amount")
	if err != nil {
		return err
	}
	amount, err := ledger.ParseAlgos(amountText)
	if err != nil {
		return fmt.Errorf("Invalid amount %q: %w", amountText, err)
	}
	fee, _, err := params.GetOptUint("fee")
	if err != nil {
		return err
	}
	send, sendGiven, err := params.GetOptBool("send")
	if err != nil {
		return err
	}
	if !sendGiven {
		send = true
	}
	var note []byte
	if n, ok := params.GetOptEmptyString("note"); ok {
		note = []byte(n)
	}
	if send {
		if err := requireAgreement(ctx, pool); err != nil {
			return err
		}
	}

	h := ctx.OpenedStore()
	info, err := h.GetIdentity(id.String())
	if err != nil {
		return err
	}

	reqCtx, cancel := a.networkContext()
	defer cancel()
	sp, err := pool.SuggestedParams(reqCtx)
	if err != nil {
		return err
	}
	txn, err := ledger.MakePayment(sp, ledger.PaymentParams{
		From:   info.Address,
		To:     to.Address(),
		Amount: amount,
		Note:   note,
		Fee:    fee,
	})
	if err != nil {
		return err
	}

	if !send {
		ctx.SetPendingTransaction(ledger.EncodeUnsigned(txn), false)
		a.printer.Success("Payment of %s Algos to %s has been built and is pending", ledger.FormatAlgos(amount), to.Address())
		return nil
	}

	signed, err := h.SignTransaction(id.String(), txn)
	if err != nil {
		return fmt.Errorf("Transaction could not be signed: %w", err)
	}
	resp, err := pool.Submit(reqCtx, signed)
	if err != nil {
		return err
	}
	return a.reportSubmission(resp)
}

func (a *App) reportSubmission(resp network.Response) error {
	if resp.PoolError != "" {
		return fmt.Errorf("Transaction %s was rejected: %s", resp.TxID, resp.PoolError)
	}
	if resp.ConfirmedRound == 0 {
		a.printer.Warn("Transaction %s has been submitted but is not confirmed yet", resp.TxID)
		return nil
	}
	a.printer.Success("Transaction %s has been confirmed in round %d", resp.TxID, resp.ConfirmedRound)
	return nil
}

func (a *App) cmdLedgerSign(ctx *command.Context, params *command.Params) error {
	id, err := ctx.EnsureActiveIdentity()
	if err != nil {
		return err
	}
	text, _, err := transactionText(ctx, params)
	if err != nil {
		return err
	}
	decoded, err := ledger.Decode(text)
	if err != nil {
		return fmt.Errorf("Invalid transaction: %w", err)
	}
	if decoded.Signed {
		return fmt.Errorf("Transaction %s is already signed", decoded.TxID())
	}
	if sender := decoded.Txn.Sender.String(); sender != id.Address() {
		return fmt.Errorf("Transaction sender %s is not the active did %s", sender, id)
	}

	signed, err := ctx.OpenedStore().SignTransaction(id.String(), decoded.Txn)
	if err != nil {
		return fmt.Errorf("Transaction could not be signed: %w", err)
	}
	ctx.SetPendingTransaction(ledger.EncodeSigned(signed), true)
	a.printer.Success("Transaction %s has been signed", decoded.TxID())
	a.printer.Println(ledger.EncodeSigned(signed))
	return nil
}

func (a *App) cmdLedgerSubmit(ctx *command.Context, params *command.Params) error {
	pool, err := ctx.EnsureConnectedNetwork()
	if err != nil {
		return err
	}
	if err := requireAgreement(ctx, pool); err != nil {
		return err
	}
	text, fromPending, err := transactionText(ctx, params)
	if err != nil {
		return err
	}
	if fromPending {
		if pt := ctx.PendingTransaction(); pt.Network != "" && pt.Network != pool.Name() {
			return fmt.Errorf("Pending transaction was built for pool %q, not %q", pt.Network, pool.Name())
		}
	}
	decoded, err := ledger.Decode(text)
	if err != nil {
		return fmt.Errorf("Invalid transaction: %w", err)
	}
	if !decoded.Signed {
		return fmt.Errorf("Transaction %s is not signed. Use 'ledger sign' first", decoded.TxID())
	}

	reqCtx, cancel := a.networkContext()
	defer cancel()
	resp, err := pool.Submit(reqCtx, decoded.Raw)
	if err != nil {
		return err
	}
	if fromPending && resp.PoolError == "" {
		ctx.TakePendingTransaction()
	}
	return a.reportSubmission(resp)
}

func (a *App) cmdLedgerLoadTransaction(ctx *command.Context, params *command.Params) error {
	text, err := params.GetString("txn")
	if err != nil {
		return err
	}
	decoded, err := ledger.Decode(text)
	if err != nil {
		return fmt.Errorf("Invalid transaction: %w", err)
	}
	ctx.SetPendingTransaction(decoded.Text(), decoded.Signed)
	state := "unsigned"
	if decoded.Signed {
		state = "signed"
	}
	a.printer.Success("Transaction %s (%s) is now pending", decoded.TxID(), state)
	return nil
}

func (a *App) cmdLedgerGetPending(ctx *command.Context, _ *command.Params) error {
	pt := ctx.PendingTransaction()
	if pt == nil {
		a.printer.Println("There is no pending transaction")
		return nil
	}
	decoded, err := ledger.Decode(pt.Text)
	if err != nil {
		return fmt.Errorf("Pending transaction is corrupted: %w", err)
	}
	out, err := ledger.FormatJSON(decoded.Txn)
	if err != nil {
		return err
	}
	pool := pt.Network
	if pool == "" {
		pool = "-"
	}
	a.printer.Printf("Transaction %s (signed: %t, pool: %s)\n%s\n", decoded.TxID(), pt.Signed, pool, out)
	a.printer.Println(pt.Text)
	return nil
}

func (a *App) cmdLedgerStatus(ctx *command.Context, _ *command.Params) error {
	pool, err := ctx.EnsureConnectedNetwork()
	if err != nil {
		return err
	}
	reqCtx, cancel := a.networkContext()
	defer cancel()
	status, err := pool.Status(reqCtx)
	if err != nil {
		return err
	}
	a.printer.Table([]string{"Pool", "Last round", "Protocol", "Since last round", "Catchup"}, [][]string{{
		pool.Name(),
		fmt.Sprintf("%d", status.LastRound),
		status.LastVersion,
		status.TimeSinceLastRound.Round(time.Millisecond).String(),
		status.CatchupTime.Round(time.Millisecond).String(),
	}})
	return nil
}
