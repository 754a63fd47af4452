// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/aplane-algo/apledger/cmd/apledger/internal/repl"
	"github.com/aplane-algo/apledger/internal/command"
	"github.com/aplane-algo/apledger/internal/console"
	"github.com/aplane-algo/apledger/internal/history"
	"github.com/aplane-algo/apledger/internal/mnemonic"
	"github.com/aplane-algo/apledger/internal/network"
	"github.com/aplane-algo/apledger/internal/util"
)

// fakePool is an in-memory pool that confirms everything it receives.
type fakePool struct {
	name      string
	agreement *network.Agreement
	round     uint64
	submitted []types.SignedTxn
	closed    bool
}

func (p *fakePool) Name() string                  { return p.name }
func (p *fakePool) LastRound() uint64             { return p.round }
func (p *fakePool) ProtocolVersion() int          { return 2 }
func (p *fakePool) Agreement() *network.Agreement { return p.agreement }

func (p *fakePool) Refresh(context.Context) (network.Handle, error) {
	next := *p
	next.round++
	return &next, nil
}

func (p *fakePool) SuggestedParams(context.Context) (types.SuggestedParams, error) {
	return types.SuggestedParams{
		MinFee:          1000,
		FirstRoundValid: types.Round(p.round),
		LastRoundValid:  types.Round(p.round + 1000),
		GenesisID:       "sandnet-v1",
		GenesisHash:     make([]byte, 32),
	}, nil
}

func (p *fakePool) Submit(_ context.Context, signed []byte) (network.Response, error) {
	var stxn types.SignedTxn
	if err := msgpack.Decode(signed, &stxn); err != nil {
		return network.Response{}, err
	}
	p.submitted = append(p.submitted, stxn)
	p.round++
	return network.Response{TxID: fmt.Sprintf("TX%d", len(p.submitted)), ConfirmedRound: p.round}, nil
}

func (p *fakePool) Status(context.Context) (network.Status, error) {
	return network.Status{LastRound: p.round, LastVersion: "future"}, nil
}

func (p *fakePool) Close() error {
	if p.closed {
		return errors.New("already closed")
	}
	p.closed = true
	return nil
}

type fakeConnector struct {
	pools map[string]*fakePool
}

func (c *fakeConnector) Connect(_ context.Context, cfg network.Config, _ network.Options) (network.Handle, error) {
	p := &fakePool{name: cfg.Name, agreement: cfg.Agreement, round: 10}
	c.pools[cfg.Name] = p
	return p, nil
}

type testApp struct {
	*App
	shell     *repl.Shell
	out       *bytes.Buffer
	errOut    *bytes.Buffer
	connector *fakeConnector
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	app := NewApp(t.TempDir(), util.DefaultConfig(), console.New(out, errOut))
	connector := &fakeConnector{pools: make(map[string]*fakePool)}
	app.connector = connector
	return &testApp{
		App:       app,
		shell:     repl.NewShell(app.registry, app.ctx, app.printer, nil, nil),
		out:       out,
		errOut:    errOut,
		connector: connector,
	}
}

func (a *testApp) run(t *testing.T, line string) error {
	t.Helper()
	a.out.Reset()
	a.errOut.Reset()
	return a.shell.Execute(line)
}

func (a *testApp) mustRun(t *testing.T, line string) string {
	t.Helper()
	if err := a.run(t, line); err != nil {
		t.Fatalf("%q failed: %v", line, err)
	}
	return a.out.String()
}

func testSeed(b byte) (string, string) {
	seed := bytes.Repeat([]byte{b}, 32)
	acct, err := mnemonic.Account(seed)
	if err != nil {
		panic(err)
	}
	return hex.EncodeToString(seed), acct.Address.String()
}

const createW1 = "wallet create w1 key=k1 key_derivation_method=argon2i"

func TestWalletLifecycle(t *testing.T) {
	a := newTestApp(t)

	if out := a.mustRun(t, createW1); !strings.Contains(out, `Wallet "w1" has been created`) {
		t.Errorf("create output = %q", out)
	}
	if err := a.run(t, createW1); err == nil {
		t.Error("creating an existing wallet should fail")
	}

	a.mustRun(t, "wallet open w1 key=k1")
	if h := a.ctx.OpenedStore(); h == nil || h.Name() != "w1" {
		t.Fatalf("opened store = %v", h)
	}
	if err := a.run(t, "wallet open w1 key=k1"); err == nil || !strings.Contains(err.Error(), "already opened") {
		t.Errorf("second open error = %v", err)
	}
	if out := a.mustRun(t, "wallet list"); !strings.Contains(out, "w1") || !strings.Contains(out, "*") {
		t.Errorf("list output = %q", out)
	}
	if err := a.run(t, "wallet delete w1 key=k1"); err == nil {
		t.Error("deleting the opened wallet should fail")
	}

	a.mustRun(t, "wallet close")
	var perr *command.PreconditionError
	if err := a.run(t, "wallet close"); !errors.As(err, &perr) {
		t.Errorf("close without wallet error = %v, want PreconditionError", err)
	}

	if err := a.run(t, "wallet open w1 key=wrong"); err == nil {
		t.Error("opening with a wrong key should fail")
	}
	if strings.Contains(a.errOut.String(), "wrong") {
		t.Errorf("error output leaks the key: %q", a.errOut.String())
	}

	if err := a.run(t, "wallet delete w1 key=wrong"); err == nil {
		t.Error("delete with a wrong key should fail")
	}
	a.mustRun(t, "wallet delete w1 key=k1")
	if err := a.run(t, "wallet open w1 key=k1"); err == nil || !strings.Contains(err.Error(), "isn't attached") {
		t.Errorf("open after delete error = %v", err)
	}
}

func TestWalletAttachDetach(t *testing.T) {
	a := newTestApp(t)
	a.mustRun(t, createW1)

	a.mustRun(t, "wallet detach w1")
	if err := a.run(t, "wallet open w1 key=k1"); err == nil {
		t.Error("open after detach should fail")
	}
	a.mustRun(t, "wallet attach w1")
	a.mustRun(t, "wallet open w1 key=k1")
	if err := a.run(t, "wallet detach w1"); err == nil {
		t.Error("detaching the opened wallet should fail")
	}
	if err := a.run(t, `wallet attach w2 storage_type=cloud`); err == nil {
		t.Error("attaching an unknown storage type should fail")
	}
}

func TestWalletExportImport(t *testing.T) {
	a := newTestApp(t)
	seed, addr := testSeed(1)
	exportPath := filepath.Join(t.TempDir(), "w1.export")

	a.mustRun(t, createW1)
	a.mustRun(t, "wallet open w1 key=k1")
	a.mustRun(t, "did new seed="+seed)
	a.mustRun(t, fmt.Sprintf("wallet export export_path=%s export_key=ek export_key_derivation_method=argon2i", exportPath))
	a.mustRun(t, "wallet close")

	if err := a.run(t, fmt.Sprintf("wallet import w2 key=k2 key_derivation_method=argon2i export_path=%s export_key=bad", exportPath)); err == nil {
		t.Error("import with a wrong export key should fail")
	}
	a.mustRun(t, fmt.Sprintf("wallet import w2 key=k2 key_derivation_method=argon2i export_path=%s export_key=ek", exportPath))
	a.mustRun(t, "wallet open w2 key=k2")
	if _, err := a.ctx.OpenedStore().GetIdentity(addr); err != nil {
		t.Errorf("imported wallet lacks %s: %v", addr, err)
	}
}

func TestDIDCommands(t *testing.T) {
	a := newTestApp(t)
	seed, addr := testSeed(2)

	var perr *command.PreconditionError
	if err := a.run(t, "did new"); !errors.As(err, &perr) {
		t.Fatalf("did new without wallet error = %v", err)
	}

	a.mustRun(t, createW1)
	a.mustRun(t, "wallet open w1 key=k1")
	a.mustRun(t, "did new seed="+seed+" metadata=alice")
	a.mustRun(t, "did use "+addr)
	if got := a.ctx.ActiveIdentity(); got.String() != addr {
		t.Fatalf("active identity = %q, want %q", got, addr)
	}

	a.mustRun(t, "did qualify "+addr+" method=sov")
	if got := a.ctx.ActiveIdentity(); got.String() != "did:sov:"+addr {
		t.Errorf("active identity after qualify = %q", got)
	}

	a.mustRun(t, "did set-metadata metadata=bob")
	info, err := a.ctx.OpenedStore().GetIdentity(addr)
	if err != nil {
		t.Fatal(err)
	}
	if info.Metadata != "bob" {
		t.Errorf("metadata = %q, want bob", info.Metadata)
	}

	if out := a.mustRun(t, "did list"); !strings.Contains(out, "did:sov:"+addr) {
		t.Errorf("did list output = %q", out)
	}
	if err := a.run(t, "did use not-an-address"); !command.IsValidationKind(err, command.InvalidIdentity) {
		t.Errorf("did use error = %v, want InvalidIdentity", err)
	}

	a.mustRun(t, "wallet close")
	if err := a.run(t, "did set-metadata metadata=x"); !errors.As(err, &perr) {
		t.Errorf("set-metadata after close error = %v, want PreconditionError", err)
	}
}

func TestDIDImport(t *testing.T) {
	a := newTestApp(t)
	seed3, addr3 := testSeed(3)
	seed4, _ := testSeed(4)
	_, addr5 := testSeed(5)

	file := filepath.Join(t.TempDir(), "dids.json")
	content := fmt.Sprintf(`{"version":1,"dids":[{"did":"%s","seed":"%s"},{"did":"%s","seed":"%s"}]}`, addr3, seed3, addr5, seed4)
	if err := os.WriteFile(file, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	a.mustRun(t, createW1)
	a.mustRun(t, "wallet open w1 key=k1")

	err := a.run(t, "did import "+file)
	if !errors.Is(err, command.ErrReported) {
		t.Fatalf("did import error = %v, want ErrReported", err)
	}
	if !strings.Contains(a.errOut.String(), "could not be imported") {
		t.Errorf("stderr = %q", a.errOut.String())
	}
	if strings.Count(a.errOut.String(), "1 of 2") != 1 {
		t.Errorf("summary should be printed once: %q", a.errOut.String())
	}
	if _, err := a.ctx.OpenedStore().GetIdentity(addr3); err != nil {
		t.Errorf("valid entry was not imported: %v", err)
	}
}

func TestPoolCommands(t *testing.T) {
	a := newTestApp(t)

	a.mustRun(t, "pool create sandbox algod_server=http://localhost:4001 agreement_text=Terms agreement_version=1.0")
	if err := a.run(t, "pool create sandbox algod_server=http://localhost:4001"); err == nil {
		t.Error("creating an existing pool should fail")
	}
	if err := a.run(t, "pool create p2 algod_server=http://x agreement_text=Terms"); err == nil {
		t.Error("agreement text without version should fail")
	}

	out := a.mustRun(t, "pool connect sandbox")
	if !strings.Contains(out, "requires a transaction author agreement") {
		t.Errorf("connect output = %q", out)
	}
	if accepted, known := a.ctx.AgreementAcknowledged(); accepted || !known {
		t.Errorf("agreement = %v, %v; want declined", accepted, known)
	}

	a.mustRun(t, "pool connect sandbox accept-agreement=true")
	if accepted, _ := a.ctx.AgreementAcknowledged(); !accepted {
		t.Error("agreement should be accepted")
	}
	if out := a.mustRun(t, "pool show-taa"); !strings.Contains(out, "Terms") {
		t.Errorf("show-taa output = %q", out)
	}

	a.mustRun(t, "pool refresh")
	if got := a.ctx.ConnectedNetwork().LastRound(); got != 11 {
		t.Errorf("round after refresh = %d, want 11", got)
	}
	if out := a.mustRun(t, "ledger status"); !strings.Contains(out, "sandbox") {
		t.Errorf("status output = %q", out)
	}

	if err := a.run(t, "pool set-protocol-version 3"); err == nil {
		t.Error("protocol version 3 should be rejected")
	}
	a.mustRun(t, "pool set-protocol-version 1")
	if a.ctx.ProtocolVersion() != 1 {
		t.Errorf("protocol version = %d", a.ctx.ProtocolVersion())
	}

	if err := a.run(t, "pool delete sandbox"); err == nil {
		t.Error("deleting the connected pool should fail")
	}
	a.mustRun(t, "pool disconnect")
	if a.ctx.ConnectedNetwork() != nil {
		t.Error("pool still connected")
	}
	a.mustRun(t, "pool delete sandbox")
	if out := a.mustRun(t, "pool list"); !strings.Contains(out, "no pools") {
		t.Errorf("list output = %q", out)
	}
}

// setupLedger opens a wallet with one active identity and connects a pool.
func setupLedger(t *testing.T, a *testApp) (seed, addr string) {
	t.Helper()
	seed, addr = testSeed(6)
	a.mustRun(t, createW1)
	a.mustRun(t, "wallet open w1 key=k1")
	a.mustRun(t, "did new seed="+seed)
	a.mustRun(t, "did use "+addr)
	a.mustRun(t, "pool create sandbox algod_server=http://localhost:4001")
	a.mustRun(t, "pool connect sandbox")
	return seed, addr
}

func TestLedgerPaymentFlow(t *testing.T) {
	a := newTestApp(t)
	_, addr := setupLedger(t, a)
	_, receiver := testSeed(7)
	pool := a.connector.pools["sandbox"]

	a.mustRun(t, "ledger payment to="+receiver+" amount=1.5 note=rent send=false")
	pt := a.ctx.PendingTransaction()
	if pt == nil || pt.Signed || pt.Network != "sandbox" {
		t.Fatalf("pending = %+v", pt)
	}
	if out := a.mustRun(t, "ledger get-pending"); !strings.Contains(out, `"pay"`) || !strings.Contains(out, addr) {
		t.Errorf("get-pending output = %q", out)
	}

	if err := a.run(t, "ledger submit"); err == nil || !strings.Contains(err.Error(), "not signed") {
		t.Errorf("submit unsigned error = %v", err)
	}

	a.mustRun(t, "ledger sign")
	if pt := a.ctx.PendingTransaction(); pt == nil || !pt.Signed {
		t.Fatalf("pending after sign = %+v", pt)
	}
	if err := a.run(t, "ledger sign"); err == nil {
		t.Error("signing twice should fail")
	}

	out := a.mustRun(t, "ledger submit")
	if !strings.Contains(out, "confirmed in round") {
		t.Errorf("submit output = %q", out)
	}
	if a.ctx.PendingTransaction() != nil {
		t.Error("pending transaction should be consumed")
	}
	if len(pool.submitted) != 1 {
		t.Fatalf("submitted = %d", len(pool.submitted))
	}
	txn := pool.submitted[0].Txn
	if txn.Amount != 1_500_000 || txn.Receiver.String() != receiver || string(txn.Note) != "rent" {
		t.Errorf("submitted txn = amount %d receiver %s note %q", txn.Amount, txn.Receiver, txn.Note)
	}

	a.mustRun(t, "ledger payment to="+receiver+" amount=0.000001 fee=2000")
	if len(pool.submitted) != 2 || pool.submitted[1].Txn.Fee != 2000 {
		t.Errorf("direct payment not submitted with flat fee: %+v", pool.submitted)
	}
}

func TestLedgerLoadTransaction(t *testing.T) {
	a := newTestApp(t)
	setupLedger(t, a)
	_, receiver := testSeed(8)

	a.mustRun(t, "ledger payment to="+receiver+" amount=2 send=false")
	text := a.ctx.PendingTransaction().Text
	a.ctx.TakePendingTransaction()

	if err := a.run(t, "ledger load-transaction not-base64!"); err == nil {
		t.Error("loading garbage should fail")
	}
	a.mustRun(t, "ledger load-transaction "+text)
	if pt := a.ctx.PendingTransaction(); pt == nil || pt.Text != text || pt.Signed {
		t.Errorf("pending = %+v", pt)
	}
}

func TestLedgerRequiresAgreement(t *testing.T) {
	a := newTestApp(t)
	setupLedger(t, a)
	_, receiver := testSeed(9)

	a.mustRun(t, "pool create taa algod_server=http://localhost:4001 agreement_text=Terms agreement_version=2")
	a.mustRun(t, "pool connect taa")

	var perr *command.PreconditionError
	if err := a.run(t, "ledger payment to="+receiver+" amount=1"); !errors.As(err, &perr) {
		t.Errorf("payment without accepted agreement error = %v", err)
	}
	a.mustRun(t, "ledger payment to="+receiver+" amount=1 send=false")

	a.mustRun(t, "pool connect taa accept-agreement=true")
	a.mustRun(t, "ledger payment to="+receiver+" amount=1")
}

func TestDIDRotateKey(t *testing.T) {
	a := newTestApp(t)
	_, addr := setupLedger(t, a)
	newSeed, newAddr := testSeed(10)
	pool := a.connector.pools["sandbox"]

	a.mustRun(t, "did rotate-key seed="+newSeed)

	if len(pool.submitted) != 1 {
		t.Fatalf("submitted = %d", len(pool.submitted))
	}
	rekey := pool.submitted[0].Txn
	if rekey.Sender.String() != addr || rekey.RekeyTo.String() != newAddr {
		t.Errorf("rekey txn sender %s rekey-to %s", rekey.Sender, rekey.RekeyTo)
	}
	info, err := a.ctx.OpenedStore().GetIdentity(addr)
	if err != nil {
		t.Fatal(err)
	}
	if info.AuthAddr != newAddr || info.PendingAuthAddr != "" {
		t.Errorf("identity after rotation = %+v", info)
	}

	_, receiver := testSeed(11)
	a.mustRun(t, "ledger payment to="+receiver+" amount=1")
	if got := pool.submitted[1].AuthAddr.String(); got != newAddr {
		t.Errorf("payment auth addr = %s, want %s", got, newAddr)
	}
}

func TestCommonCommands(t *testing.T) {
	a := newTestApp(t)

	if out := a.mustRun(t, "about"); !strings.Contains(out, "apledger") {
		t.Errorf("about output = %q", out)
	}

	a.mustRun(t, "prompt ledger")
	if a.ctx.Prompt() != "ledger" {
		t.Errorf("prompt = %q", a.ctx.Prompt())
	}

	file := filepath.Join(t.TempDir(), "note.txt")
	if err := os.WriteFile(file, []byte("hello\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if out := a.mustRun(t, "show "+file); out != "hello\n" {
		t.Errorf("show output = %q", out)
	}

	prev := util.LogLevel()
	t.Cleanup(func() { util.SetLogLevel(prev) })
	a.mustRun(t, "log-level debug")
	if util.LogLevel() != slog.LevelDebug {
		t.Errorf("log level = %v", util.LogLevel())
	}
	if err := a.run(t, "log-level loud"); err == nil {
		t.Error("unknown log level should fail")
	}

	a.mustRun(t, "quit")
	if !a.ctx.ExitRequested() {
		t.Error("quit should request exit")
	}
}

func TestHelp(t *testing.T) {
	a := newTestApp(t)

	tests := []struct {
		line string
		want string
	}{
		{"help", "Command groups:"},
		{"help wallet", "Group: wallet"},
		{"wallet help", "Group: wallet"},
		{"help wallet open", "Command: wallet open"},
		{"wallet open help", "Command: wallet open"},
		{"help exit", "Aliases: quit"},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if out := a.mustRun(t, tt.line); !strings.Contains(out, tt.want) {
				t.Errorf("output = %q, want %q", out, tt.want)
			}
		})
	}

	var rerr *command.ResolutionError
	if err := a.run(t, "help nope"); !errors.As(err, &rerr) {
		t.Errorf("help nope error = %v", err)
	}
	if err := a.run(t, "help wallet nope"); !errors.As(err, &rerr) {
		t.Errorf("help wallet nope error = %v", err)
	}
}

func TestRegistry_SecretMarkers(t *testing.T) {
	a := newTestApp(t)
	hist := history.New(filepath.Join(t.TempDir(), "history"), 0, a.registry.SecretMarkers())
	for _, line := range []string{
		"wallet open w1 key=k1",
		"wallet export export_path=x export_key=ek",
		"did new seed=abc",
		`wallet open w1 "key=k 1"`,
	} {
		if !hist.IsSecret(line) {
			t.Errorf("%q should be a secret line", line)
		}
	}
	if hist.IsSecret("wallet open w1 key") {
		t.Error("a bare deferred name carries no secret")
	}
}
