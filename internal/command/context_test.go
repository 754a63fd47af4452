// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package command

import (
	"errors"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/crypto"

	"github.com/aplane-algo/apledger/internal/network"
	"github.com/aplane-algo/apledger/internal/store"
)

// fakeStore satisfies store.Handle; unimplemented methods panic via the nil
// embedded interface.
type fakeStore struct {
	store.Handle
	name     string
	closed   bool
	closeErr error
}

func (f *fakeStore) Name() string { return f.name }
func (f *fakeStore) Close() error {
	f.closed = true
	return f.closeErr
}

type fakeNetwork struct {
	network.Handle
	name   string
	closed bool
}

func (f *fakeNetwork) Name() string { return f.name }
func (f *fakeNetwork) Close() error {
	f.closed = true
	return nil
}

func testIdentity(t *testing.T) Identity {
	t.Helper()
	id, err := ParseIdentity(crypto.GenerateAccount().Address.String())
	if err != nil {
		t.Fatalf("ParseIdentity() error = %v", err)
	}
	return id
}

func isPrecondition(err error) bool {
	var perr *PreconditionError
	return errors.As(err, &perr)
}

func TestContext_EnsureConnectedNetwork(t *testing.T) {
	ctx := NewContext("")

	if _, err := ctx.EnsureConnectedNetwork(); !isPrecondition(err) {
		t.Fatalf("EnsureConnectedNetwork() on fresh context error = %v, want PreconditionError", err)
	}

	h := &fakeNetwork{name: "sandbox"}
	ctx.SetConnectedNetwork(h)

	got, err := ctx.EnsureConnectedNetwork()
	if err != nil {
		t.Fatalf("EnsureConnectedNetwork() error = %v", err)
	}
	if got != h {
		t.Error("EnsureConnectedNetwork() returned a different handle")
	}
}

func TestContext_ResetOpenedStoreClearsIdentity(t *testing.T) {
	ctx := NewContext("")
	ctx.SetOpenedStore(&fakeStore{name: "w1"})
	id := testIdentity(t)
	ctx.SetActiveIdentity(id)

	if got, err := ctx.EnsureActiveIdentity(); err != nil || got != id {
		t.Fatalf("EnsureActiveIdentity() = %v, %v", got, err)
	}

	ctx.ResetOpenedStore()

	if _, err := ctx.EnsureOpenedStore(); !isPrecondition(err) {
		t.Errorf("EnsureOpenedStore() after reset error = %v", err)
	}
	if _, err := ctx.EnsureActiveIdentity(); !isPrecondition(err) {
		t.Errorf("EnsureActiveIdentity() after reset error = %v", err)
	}
	if ctx.ActiveIdentity() != "" {
		t.Error("ActiveIdentity() should be empty after reset")
	}
}

func TestContext_TakeOpenedStore(t *testing.T) {
	ctx := NewContext("")
	h := &fakeStore{name: "w1"}
	ctx.SetOpenedStore(h)
	ctx.SetActiveIdentity(testIdentity(t))

	if got := ctx.TakeOpenedStore(); got != h {
		t.Error("TakeOpenedStore() returned a different handle")
	}
	if ctx.OpenedStore() != nil {
		t.Error("OpenedStore() should be nil after take")
	}
	if _, err := ctx.EnsureActiveIdentity(); !isPrecondition(err) {
		t.Errorf("EnsureActiveIdentity() after take error = %v", err)
	}
	if ctx.TakeOpenedStore() != nil {
		t.Error("second TakeOpenedStore() should return nil")
	}
}

func TestContext_EnsureActiveIdentityNeedsSelection(t *testing.T) {
	ctx := NewContext("")
	if _, err := ctx.EnsureActiveIdentity(); !isPrecondition(err) {
		t.Errorf("no store: error = %v", err)
	}
	ctx.SetOpenedStore(&fakeStore{name: "w1"})
	if _, err := ctx.EnsureActiveIdentity(); !isPrecondition(err) {
		t.Errorf("store without identity: error = %v", err)
	}
}

func TestContext_DisconnectDetachesPendingTransaction(t *testing.T) {
	ctx := NewContext("")
	ctx.SetConnectedNetwork(&fakeNetwork{name: "sandbox"})
	ctx.SetAgreementAcknowledged(true)
	ctx.SetPendingTransaction("gqNzaWfEQA==", false)

	if pt := ctx.PendingTransaction(); pt == nil || pt.Network != "sandbox" {
		t.Fatalf("PendingTransaction() = %+v, want network sandbox", pt)
	}

	ctx.ResetConnectedNetwork()

	pt := ctx.PendingTransaction()
	if pt == nil {
		t.Fatal("pending transaction text should survive disconnect")
	}
	if pt.Network != "" {
		t.Errorf("pending network = %q, want empty", pt.Network)
	}
	if _, known := ctx.AgreementAcknowledged(); known {
		t.Error("agreement acknowledgement should be cleared on disconnect")
	}

	if got := ctx.TakePendingTransaction(); got == nil || got.Text != "gqNzaWfEQA==" {
		t.Errorf("TakePendingTransaction() = %+v", got)
	}
	if ctx.PendingTransaction() != nil {
		t.Error("PendingTransaction() should be nil after take")
	}
}

func TestContext_RefreshKeepsNetworkState(t *testing.T) {
	ctx := NewContext("")
	ctx.SetConnectedNetwork(&fakeNetwork{name: "sandbox"})
	ctx.SetAgreementAcknowledged(true)
	ctx.SetPendingTransaction("txn", false)

	// A refreshed handle for the same pool replaces the old one.
	ctx.SetConnectedNetwork(&fakeNetwork{name: "sandbox"})

	if accepted, known := ctx.AgreementAcknowledged(); !known || !accepted {
		t.Error("agreement acknowledgement should survive refresh")
	}
	if pt := ctx.PendingTransaction(); pt.Network != "sandbox" {
		t.Errorf("pending network = %q, want sandbox", pt.Network)
	}
}

func TestContext_PromptLine(t *testing.T) {
	ctx := NewContext("ledger")
	if got := ctx.PromptLine(); got != "ledger> " {
		t.Errorf("PromptLine() = %q", got)
	}

	ctx.SetOpenedStore(&fakeStore{name: "w1"})
	ctx.SetConnectedNetwork(&fakeNetwork{name: "sandbox"})
	id := testIdentity(t)
	ctx.SetActiveIdentity(id)

	want := "ledger:w1:sandbox:" + id.Short() + "> "
	if got := ctx.PromptLine(); got != want {
		t.Errorf("PromptLine() = %q, want %q", got, want)
	}

	ctx.SetPrompt("")
	if ctx.Prompt() != DefaultPrompt {
		t.Errorf("SetPrompt(\"\") = %q, want default", ctx.Prompt())
	}
}

func TestContext_Exit(t *testing.T) {
	ctx := NewContext("")
	if ctx.ExitRequested() {
		t.Error("fresh context should not request exit")
	}
	ctx.SetExit()
	if !ctx.ExitRequested() {
		t.Error("SetExit() should request exit")
	}
}

func TestContext_Close(t *testing.T) {
	ctx := NewContext("")
	s := &fakeStore{name: "w1", closeErr: errors.New("disk full")}
	n := &fakeNetwork{name: "sandbox"}
	ctx.SetOpenedStore(s)
	ctx.SetConnectedNetwork(n)

	err := ctx.Close()
	if err == nil {
		t.Error("Close() should report the store failure")
	}
	if !s.closed || !n.closed {
		t.Errorf("Close() closed store=%v network=%v, want both", s.closed, n.closed)
	}
	if ctx.OpenedStore() != nil || ctx.ConnectedNetwork() != nil {
		t.Error("Close() should release both handles")
	}
}
