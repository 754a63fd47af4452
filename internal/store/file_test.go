// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package store

import (
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"
	"github.com/google/go-cmp/cmp"

	"github.com/aplane-algo/apledger/internal/mnemonic"
)

const testSeed = "00000000000000000000000000000My1"

func testCreds(key string) Credentials {
	return Credentials{Key: key, KeyDerivationMethod: "argon2i"}
}

func openTestWallet(t *testing.T) (*FileStore, Config, Handle) {
	t.Helper()
	fs := NewFileStore(t.TempDir())
	cfg := Config{ID: "w1", StorageType: DefaultStorageType}
	if err := fs.Create(cfg, testCreds("k1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	h, err := fs.Open(cfg, testCreds("k1"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return fs, cfg, h
}

func TestFileStore_CreateOpenDelete(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	cfg := Config{ID: "w1"}

	if err := fs.Create(cfg, testCreds("k1")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := fs.Create(cfg, testCreds("k1")); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("second Create() error = %v, want ErrAlreadyExists", err)
	}

	if _, err := fs.Open(cfg, testCreds("wrong")); !errors.Is(err, ErrAccessFailed) {
		t.Errorf("Open() wrong key error = %v, want ErrAccessFailed", err)
	}
	// The method is recorded at creation and need not be repeated.
	h, err := fs.Open(cfg, Credentials{Key: "k1"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if h.Name() != "w1" {
		t.Errorf("Name() = %q", h.Name())
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
	if _, err := h.ListIdentities(); err == nil {
		t.Error("ListIdentities() after Close() should fail")
	}

	if err := fs.Delete(cfg, testCreds("wrong")); !errors.Is(err, ErrAccessFailed) {
		t.Errorf("Delete() wrong key error = %v", err)
	}
	if err := fs.Delete(cfg, testCreds("k1")); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := fs.Open(cfg, testCreds("k1")); !errors.Is(err, ErrNotFound) {
		t.Errorf("Open() after Delete() error = %v, want ErrNotFound", err)
	}
}

func TestFileStore_UnknownStorageType(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	err := fs.Create(Config{ID: "w1", StorageType: "postgres"}, testCreds("k"))
	if err == nil || !strings.Contains(err.Error(), "postgres") {
		t.Errorf("Create() error = %v", err)
	}
}

func TestFileStore_StorageConfigPath(t *testing.T) {
	fs := NewFileStore(t.TempDir())
	custom := t.TempDir()
	cfg := Config{ID: "w1", StorageConfig: map[string]any{"path": custom}}
	if err := fs.Create(cfg, testCreds("k")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(custom, "w1", ".keystore")); err != nil {
		t.Errorf("wallet not created under storage_config path: %v", err)
	}
}

func TestHandle_Identities(t *testing.T) {
	_, _, h := openTestWallet(t)

	info, err := h.CreateIdentity(NewIdentity{Seed: testSeed, Metadata: "alice"})
	if err != nil {
		t.Fatalf("CreateIdentity() error = %v", err)
	}
	seed, _ := mnemonic.ParseSeed(testSeed)
	acct, _ := mnemonic.Account(seed)
	if info.Address != acct.Address.String() || info.ID != info.Address {
		t.Errorf("CreateIdentity() = %+v", info)
	}

	if _, err := h.CreateIdentity(NewIdentity{Seed: testSeed}); !errors.Is(err, ErrIdentityExists) {
		t.Errorf("duplicate CreateIdentity() error = %v", err)
	}

	random, err := h.CreateIdentity(NewIdentity{Method: "algo"})
	if err != nil {
		t.Fatalf("CreateIdentity(random) error = %v", err)
	}
	if !strings.HasPrefix(random.ID, "did:algo:") {
		t.Errorf("qualified ID = %q", random.ID)
	}

	list, err := h.ListIdentities()
	if err != nil {
		t.Fatalf("ListIdentities() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("ListIdentities() = %d identities, want 2", len(list))
	}

	if err := h.SetMetadata(info.Address, "bob"); err != nil {
		t.Fatalf("SetMetadata() error = %v", err)
	}
	qualified, err := h.QualifyIdentity(info.Address, "sov")
	if err != nil {
		t.Fatalf("QualifyIdentity() error = %v", err)
	}
	got, err := h.GetIdentity(qualified.ID)
	if err != nil {
		t.Fatalf("GetIdentity(qualified) error = %v", err)
	}
	want := IdentityInfo{ID: "did:sov:" + info.Address, Address: info.Address, Metadata: "bob"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("GetIdentity() mismatch (-want +got):\n%s", diff)
	}

	if _, err := h.GetIdentity("not-an-address"); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("GetIdentity(bad) error = %v", err)
	}
}

func TestHandle_CreateIdentityExplicitID(t *testing.T) {
	_, _, h := openTestWallet(t)

	other := mnemonic.NewSeed()
	otherAcct, _ := mnemonic.Account(other)
	if _, err := h.CreateIdentity(NewIdentity{ID: otherAcct.Address.String(), Seed: testSeed}); err == nil {
		t.Error("CreateIdentity() should reject an id not derived from the seed")
	}
	if _, err := h.CreateIdentity(NewIdentity{ID: otherAcct.Address.String()}); err == nil {
		t.Error("CreateIdentity() should require a seed with an explicit id")
	}
}

func TestHandle_SignTransactionAfterRotation(t *testing.T) {
	_, _, h := openTestWallet(t)

	info, err := h.CreateIdentity(NewIdentity{Seed: testSeed})
	if err != nil {
		t.Fatal(err)
	}
	sender, _ := types.DecodeAddress(info.Address)
	txn := types.Transaction{
		Type:   types.PaymentTx,
		Header: types.Header{Sender: sender, FirstValid: 1, LastValid: 1000},
		PaymentTxnFields: types.PaymentTxnFields{
			Receiver: sender,
			Amount:   1,
		},
	}

	raw, err := h.SignTransaction(info.ID, txn)
	if err != nil {
		t.Fatalf("SignTransaction() error = %v", err)
	}
	var stxn types.SignedTxn
	if err := msgpack.Decode(raw, &stxn); err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if !stxn.AuthAddr.IsZero() {
		t.Error("AuthAddr should be empty before rotation")
	}
	message := append([]byte("TX"), msgpack.Encode(txn)...)
	if !ed25519.Verify(sender[:], message, stxn.Sig[:]) {
		t.Error("signature does not verify against the identity key")
	}

	newAddr, err := h.RotateKeyStart(info.ID, "")
	if err != nil {
		t.Fatalf("RotateKeyStart() error = %v", err)
	}
	pending, _ := h.GetIdentity(info.ID)
	if pending.PendingAuthAddr != newAddr || pending.AuthAddr != "" {
		t.Errorf("after RotateKeyStart() = %+v", pending)
	}

	applied, err := h.RotateKeyApply(info.ID)
	if err != nil {
		t.Fatalf("RotateKeyApply() error = %v", err)
	}
	if applied.AuthAddr != newAddr || applied.SigningAddress() != newAddr {
		t.Errorf("after RotateKeyApply() = %+v", applied)
	}
	if _, err := h.RotateKeyApply(info.ID); !errors.Is(err, ErrNoPendingKey) {
		t.Errorf("second RotateKeyApply() error = %v", err)
	}

	raw, err = h.SignTransaction(info.ID, txn)
	if err != nil {
		t.Fatal(err)
	}
	stxn = types.SignedTxn{}
	if err := msgpack.Decode(raw, &stxn); err != nil {
		t.Fatal(err)
	}
	if stxn.AuthAddr.String() != newAddr {
		t.Errorf("AuthAddr = %s, want %s", stxn.AuthAddr, newAddr)
	}
	if !ed25519.Verify(stxn.AuthAddr[:], message, stxn.Sig[:]) {
		t.Error("signature does not verify against the rotated key")
	}

	other, _ := mnemonic.Account(mnemonic.NewSeed())
	txn.Sender = other.Address
	if _, err := h.SignTransaction(info.ID, txn); err == nil {
		t.Error("SignTransaction() should reject a foreign sender")
	}
}

func TestFileStore_Rekey(t *testing.T) {
	fs, cfg, h := openTestWallet(t)
	info, err := h.CreateIdentity(NewIdentity{Seed: testSeed})
	if err != nil {
		t.Fatal(err)
	}
	_ = h.Close()

	rekeyed, err := fs.Open(cfg, Credentials{Key: "k1", Rekey: "k2", RekeyDerivationMethod: "argon2i"})
	if err != nil {
		t.Fatalf("Open() with rekey error = %v", err)
	}
	_ = rekeyed.Close()

	if _, err := fs.Open(cfg, testCreds("k1")); !errors.Is(err, ErrAccessFailed) {
		t.Errorf("Open() with old key error = %v, want ErrAccessFailed", err)
	}
	h2, err := fs.Open(cfg, testCreds("k2"))
	if err != nil {
		t.Fatalf("Open() with new key error = %v", err)
	}
	defer h2.Close()
	if _, err := h2.GetIdentity(info.ID); err != nil {
		t.Errorf("identity unreadable after rekey: %v", err)
	}
}

func TestFileStore_RekeyFailureKeepsOldKey(t *testing.T) {
	fs, cfg, h := openTestWallet(t)
	first, err := h.CreateIdentity(NewIdentity{Seed: testSeed})
	if err != nil {
		t.Fatal(err)
	}
	second, err := h.CreateIdentity(NewIdentity{})
	if err != nil {
		t.Fatal(err)
	}
	_ = h.Close()

	last := first.Address
	if second.Address > last {
		last = second.Address
	}
	orig := writeFile
	t.Cleanup(func() { writeFile = orig })
	writeFile = func(path string, data []byte) error {
		if filepath.Base(path) == last+identityExt {
			return errors.New("disk full")
		}
		return orig(path, data)
	}

	if _, err := fs.Open(cfg, Credentials{Key: "k1", Rekey: "k2", RekeyDerivationMethod: "argon2i"}); err == nil {
		t.Fatal("Open() with failing rekey should fail")
	}
	writeFile = orig

	if _, err := fs.Open(cfg, testCreds("k2")); !errors.Is(err, ErrAccessFailed) {
		t.Errorf("Open() with new key error = %v, want ErrAccessFailed", err)
	}
	h2, err := fs.Open(cfg, testCreds("k1"))
	if err != nil {
		t.Fatalf("Open() with old key error = %v", err)
	}
	defer h2.Close()
	list, err := h2.ListIdentities()
	if err != nil {
		t.Fatalf("ListIdentities() after failed rekey error = %v", err)
	}
	if len(list) != 2 {
		t.Errorf("ListIdentities() = %d identities, want 2", len(list))
	}
}

func TestFileStore_ExportImport(t *testing.T) {
	fs, _, h := openTestWallet(t)
	info, err := h.CreateIdentity(NewIdentity{Seed: testSeed, Metadata: "alice"})
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "backup")
	exportCreds := Credentials{Key: "export-key", KeyDerivationMethod: "argon2i"}
	if err := fs.Export(h, path, exportCreds); err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if err := fs.Export(h, path, exportCreds); err == nil {
		t.Error("Export() must not overwrite an existing file")
	}

	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), info.Address) {
		t.Error("export file is not encrypted")
	}

	imported := Config{ID: "w2"}
	if err := fs.Import(imported, testCreds("k2"), path, Credentials{Key: "wrong"}); err == nil {
		t.Error("Import() with wrong export key should fail")
	}
	if err := fs.Import(imported, testCreds("k2"), path, Credentials{Key: "export-key"}); err != nil {
		t.Fatalf("Import() error = %v", err)
	}

	h2, err := fs.Open(imported, testCreds("k2"))
	if err != nil {
		t.Fatalf("Open(imported) error = %v", err)
	}
	defer h2.Close()
	got, err := h2.GetIdentity(info.ID)
	if err != nil {
		t.Fatalf("GetIdentity() error = %v", err)
	}
	if diff := cmp.Diff(info, got); diff != "" {
		t.Errorf("imported identity mismatch (-want +got):\n%s", diff)
	}
}
