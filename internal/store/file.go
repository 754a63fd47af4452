// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 aPlane Authors

package store

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/algorand/go-algorand-sdk/v2/encoding/msgpack"
	"github.com/algorand/go-algorand-sdk/v2/types"

	"github.com/aplane-algo/apledger/internal/crypto"
	"github.com/aplane-algo/apledger/internal/fsutil"
	"github.com/aplane-algo/apledger/internal/mnemonic"
)

const identityExt = ".json"

// writeFile stores sealed identity files.
var writeFile = fsutil.WriteFile

// exportVersion is the version of the export file payload.
const exportVersion = 1

// FileStore keeps each wallet in its own directory: a .keystore metadata file
// plus one sealed JSON file per identity. storage_config may set "path" to
// place wallet directories outside the default root.
type FileStore struct {
	root string
}

// NewFileStore returns a FileStore placing wallets under root.
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root}
}

func (s *FileStore) walletDir(cfg Config) string {
	if p, ok := cfg.StorageConfig["path"].(string); ok && p != "" {
		return filepath.Join(p, cfg.ID)
	}
	return filepath.Join(s.root, cfg.ID)
}

func checkStorageType(cfg Config) error {
	if cfg.StorageType != "" && cfg.StorageType != DefaultStorageType {
		return fmt.Errorf("unknown wallet storage type %q", cfg.StorageType)
	}
	return nil
}

// Create initialises an empty wallet protected by creds.Key.
func (s *FileStore) Create(cfg Config, creds Credentials) error {
	if err := checkStorageType(cfg); err != nil {
		return err
	}
	method, err := crypto.ParseMethod(creds.KeyDerivationMethod)
	if err != nil {
		return err
	}
	dir := s.walletDir(cfg)
	if fsutil.Exists(filepath.Join(dir, crypto.MetadataFile)) {
		return fmt.Errorf("%q: %w", cfg.ID, ErrAlreadyExists)
	}

	meta, key, err := crypto.NewMetadata(method, []byte(creds.Key))
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(key)

	if err := fsutil.MkdirAll(dir); err != nil {
		return fmt.Errorf("failed to create wallet directory: %w", err)
	}
	return meta.Save(dir)
}

func (s *FileStore) unlock(cfg Config, key, method string) (string, []byte, error) {
	if err := checkStorageType(cfg); err != nil {
		return "", nil, err
	}
	// An empty method unlocks with the one recorded at creation.
	var m crypto.Method
	if method != "" {
		parsed, err := crypto.ParseMethod(method)
		if err != nil {
			return "", nil, err
		}
		m = parsed
	}
	dir := s.walletDir(cfg)
	meta, err := crypto.LoadMetadata(dir)
	if errors.Is(err, os.ErrNotExist) {
		return "", nil, fmt.Errorf("%q: %w", cfg.ID, ErrNotFound)
	}
	if err != nil {
		return "", nil, err
	}
	walletKey, err := meta.Unlock([]byte(key), m)
	if errors.Is(err, crypto.ErrWrongKey) {
		return "", nil, ErrAccessFailed
	}
	if err != nil {
		return "", nil, err
	}
	return dir, walletKey, nil
}

// Open unlocks a wallet. When creds.Rekey is set every identity file is
// re-sealed under the new key before the handle is returned.
func (s *FileStore) Open(cfg Config, creds Credentials) (Handle, error) {
	dir, key, err := s.unlock(cfg, creds.Key, creds.KeyDerivationMethod)
	if err != nil {
		return nil, err
	}
	h := &fileHandle{name: cfg.ID, dir: dir, key: key}

	if creds.Rekey != "" {
		if err := h.rekey(creds.Rekey, creds.RekeyDerivationMethod); err != nil {
			_ = h.Close()
			return nil, fmt.Errorf("failed to rekey wallet: %w", err)
		}
	}
	return h, nil
}

// Delete removes a wallet's content after verifying its key.
func (s *FileStore) Delete(cfg Config, creds Credentials) error {
	dir, key, err := s.unlock(cfg, creds.Key, creds.KeyDerivationMethod)
	if err != nil {
		return err
	}
	crypto.ZeroBytes(key)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to delete wallet: %w", err)
	}
	return nil
}

type exportFile struct {
	Version    int              `json:"version"`
	Wallet     string           `json:"wallet"`
	Identities []identityRecord `json:"identities"`
}

// Export writes every identity of h, sealed under exportCreds.Key, to path.
// An existing file is never overwritten.
func (s *FileStore) Export(h Handle, path string, exportCreds Credentials) error {
	fh, ok := h.(*fileHandle)
	if !ok {
		return fmt.Errorf("wallet %q does not support export", h.Name())
	}
	if fsutil.Exists(path) {
		return fmt.Errorf("export file %s already exists", path)
	}
	method, err := crypto.ParseMethod(exportCreds.KeyDerivationMethod)
	if err != nil {
		return err
	}

	records, err := fh.records()
	if err != nil {
		return err
	}
	payload, err := json.Marshal(exportFile{Version: exportVersion, Wallet: fh.name, Identities: records})
	if err != nil {
		return fmt.Errorf("failed to encode export: %w", err)
	}
	sealed, err := crypto.SealWithKey(payload, []byte(exportCreds.Key), method)
	crypto.ZeroBytes(payload)
	if err != nil {
		return err
	}
	return fsutil.WriteFile(path, sealed)
}

// Import creates a new wallet from an export file.
func (s *FileStore) Import(cfg Config, creds Credentials, path string, importCreds Credentials) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read export file: %w", err)
	}
	payload, err := crypto.OpenWithKey(data, []byte(importCreds.Key))
	if errors.Is(err, crypto.ErrDecrypt) {
		return fmt.Errorf("invalid export key or export file is corrupted")
	}
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(payload)

	var exp exportFile
	if err := json.Unmarshal(payload, &exp); err != nil {
		return fmt.Errorf("failed to parse export file: %w", err)
	}
	if exp.Version != exportVersion {
		return fmt.Errorf("unsupported export version %d", exp.Version)
	}

	if err := s.Create(cfg, creds); err != nil {
		return err
	}
	h, err := s.Open(cfg, creds)
	if err != nil {
		return err
	}
	defer func() { _ = h.Close() }()

	fh := h.(*fileHandle)
	for _, rec := range exp.Identities {
		if err := fh.write(rec); err != nil {
			return err
		}
	}
	return nil
}

// identityRecord is the plaintext of one identity file.
type identityRecord struct {
	IdentityInfo
	Seed        string `json:"seed"`
	PendingSeed string `json:"pending_seed,omitempty"`
}

type fileHandle struct {
	name string
	dir  string

	mu  sync.Mutex
	key []byte
}

var errClosed = errors.New("wallet is closed")

func (h *fileHandle) Name() string { return h.name }

func addressOf(id string) string {
	if strings.HasPrefix(id, "did:") {
		if parts := strings.SplitN(id, ":", 3); len(parts) == 3 {
			return parts[2]
		}
	}
	return id
}

func (h *fileHandle) path(address string) string {
	return filepath.Join(h.dir, address+identityExt)
}

func (h *fileHandle) read(id string) (identityRecord, error) {
	var rec identityRecord
	if h.key == nil {
		return rec, errClosed
	}
	addr := addressOf(id)
	if _, err := types.DecodeAddress(addr); err != nil {
		return rec, fmt.Errorf("%q: %w", id, ErrIdentityNotFound)
	}
	data, err := os.ReadFile(h.path(addr))
	if errors.Is(err, os.ErrNotExist) {
		return rec, fmt.Errorf("%q: %w", id, ErrIdentityNotFound)
	}
	if err != nil {
		return rec, err
	}
	plain, err := crypto.Open(data, h.key)
	if err != nil {
		return rec, fmt.Errorf("failed to open identity %s: %w", addr, err)
	}
	defer crypto.ZeroBytes(plain)
	if err := json.Unmarshal(plain, &rec); err != nil {
		return rec, fmt.Errorf("failed to parse identity %s: %w", addr, err)
	}
	return rec, nil
}

func (h *fileHandle) write(rec identityRecord) error {
	if h.key == nil {
		return errClosed
	}
	if _, err := types.DecodeAddress(rec.Address); err != nil {
		return fmt.Errorf("invalid identity address %q: %w", rec.Address, err)
	}
	plain, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	defer crypto.ZeroBytes(plain)
	sealed, err := crypto.Seal(plain, h.key)
	if err != nil {
		return err
	}
	return writeFile(h.path(rec.Address), sealed)
}

func (h *fileHandle) records() ([]identityRecord, error) {
	if h.key == nil {
		return nil, errClosed
	}
	entries, err := os.ReadDir(h.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list wallet: %w", err)
	}
	var out []identityRecord
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, identityExt) {
			continue
		}
		rec, err := h.read(strings.TrimSuffix(name, identityExt))
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out, nil
}

// rekey re-seals every identity under newKey and then replaces the wallet
// metadata. On failure the files already re-sealed are restored under the
// old key, so the wallet keeps opening with it.
func (h *fileHandle) rekey(newKey, method string) error {
	m, err := crypto.ParseMethod(method)
	if err != nil {
		return err
	}
	records, err := h.records()
	if err != nil {
		return err
	}
	meta, key, err := crypto.NewMetadata(m, []byte(newKey))
	if err != nil {
		return err
	}

	old := h.key
	h.key = key
	written := 0
	for _, rec := range records {
		if err = h.write(rec); err != nil {
			break
		}
		written++
	}
	if err == nil {
		err = meta.Save(h.dir)
	}
	if err == nil {
		crypto.ZeroBytes(old)
		return nil
	}

	h.key = old
	crypto.ZeroBytes(key)
	for _, rec := range records[:written] {
		if rerr := h.write(rec); rerr != nil {
			return errors.Join(err, fmt.Errorf("failed to restore identity %s: %w", rec.Address, rerr))
		}
	}
	return err
}

func (h *fileHandle) ListIdentities() ([]IdentityInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	records, err := h.records()
	if err != nil {
		return nil, err
	}
	out := make([]IdentityInfo, len(records))
	for i, rec := range records {
		out[i] = rec.IdentityInfo
	}
	return out, nil
}

func seedFor(text string) ([]byte, error) {
	if text == "" {
		return mnemonic.NewSeed(), nil
	}
	return mnemonic.ParseSeed(text)
}

func (h *fileHandle) CreateIdentity(req NewIdentity) (IdentityInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.key == nil {
		return IdentityInfo{}, errClosed
	}
	if req.ID != "" && req.Seed == "" {
		return IdentityInfo{}, fmt.Errorf("an explicit did requires the seed it was derived from")
	}
	seed, err := seedFor(req.Seed)
	if err != nil {
		return IdentityInfo{}, err
	}
	acct, err := mnemonic.Account(seed)
	if err != nil {
		return IdentityInfo{}, err
	}
	addr := acct.Address.String()
	if req.ID != "" && addressOf(req.ID) != addr {
		return IdentityInfo{}, fmt.Errorf("did %q does not match the address derived from seed", req.ID)
	}
	if fsutil.Exists(h.path(addr)) {
		return IdentityInfo{}, fmt.Errorf("%q: %w", addr, ErrIdentityExists)
	}

	id := addr
	if req.ID != "" {
		id = req.ID
	}
	if req.Method != "" {
		id = "did:" + req.Method + ":" + addr
	}
	rec := identityRecord{
		IdentityInfo: IdentityInfo{ID: id, Address: addr, Metadata: req.Metadata},
		Seed:         hex.EncodeToString(seed),
	}
	if err := h.write(rec); err != nil {
		return IdentityInfo{}, err
	}
	return rec.IdentityInfo, nil
}

func (h *fileHandle) GetIdentity(id string) (IdentityInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, err := h.read(id)
	return rec.IdentityInfo, err
}

func (h *fileHandle) SetMetadata(id, metadata string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, err := h.read(id)
	if err != nil {
		return err
	}
	rec.Metadata = metadata
	return h.write(rec)
}

func (h *fileHandle) QualifyIdentity(id, method string) (IdentityInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if method == "" {
		return IdentityInfo{}, fmt.Errorf("method must not be empty")
	}
	rec, err := h.read(id)
	if err != nil {
		return IdentityInfo{}, err
	}
	rec.ID = "did:" + method + ":" + rec.Address
	if err := h.write(rec); err != nil {
		return IdentityInfo{}, err
	}
	return rec.IdentityInfo, nil
}

func (h *fileHandle) RotateKeyStart(id, seedText string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, err := h.read(id)
	if err != nil {
		return "", err
	}
	seed, err := seedFor(seedText)
	if err != nil {
		return "", err
	}
	acct, err := mnemonic.Account(seed)
	if err != nil {
		return "", err
	}
	rec.PendingSeed = hex.EncodeToString(seed)
	rec.PendingAuthAddr = acct.Address.String()
	if err := h.write(rec); err != nil {
		return "", err
	}
	return rec.PendingAuthAddr, nil
}

func (h *fileHandle) RotateKeyApply(id string) (IdentityInfo, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, err := h.read(id)
	if err != nil {
		return IdentityInfo{}, err
	}
	if rec.PendingSeed == "" {
		return IdentityInfo{}, fmt.Errorf("%q: %w", id, ErrNoPendingKey)
	}
	rec.Seed = rec.PendingSeed
	rec.AuthAddr = rec.PendingAuthAddr
	if rec.AuthAddr == rec.Address {
		rec.AuthAddr = ""
	}
	rec.PendingSeed = ""
	rec.PendingAuthAddr = ""
	if err := h.write(rec); err != nil {
		return IdentityInfo{}, err
	}
	return rec.IdentityInfo, nil
}

func (h *fileHandle) signingKey(rec identityRecord) (ed25519.PrivateKey, error) {
	seed, err := hex.DecodeString(rec.Seed)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("identity %s has a corrupted key", rec.Address)
	}
	defer crypto.ZeroBytes(seed)
	return ed25519.NewKeyFromSeed(seed), nil
}

func (h *fileHandle) Sign(id string, msg []byte) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, err := h.read(id)
	if err != nil {
		return nil, err
	}
	sk, err := h.signingKey(rec)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(sk)
	return ed25519.Sign(sk, msg), nil
}

// SignTransaction signs txn with the identity's current key and returns the
// msgpack-encoded SignedTxn. AuthAddr is set once the key has been rotated.
func (h *fileHandle) SignTransaction(id string, txn types.Transaction) ([]byte, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	rec, err := h.read(id)
	if err != nil {
		return nil, err
	}
	if txn.Sender.String() != rec.Address {
		return nil, fmt.Errorf("transaction sender %s is not identity %s", txn.Sender, rec.Address)
	}
	sk, err := h.signingKey(rec)
	if err != nil {
		return nil, err
	}
	defer crypto.ZeroBytes(sk)

	message := append([]byte("TX"), msgpack.Encode(txn)...)
	var sig types.Signature
	copy(sig[:], ed25519.Sign(sk, message))

	stxn := types.SignedTxn{Txn: txn, Sig: sig}
	if rec.AuthAddr != "" {
		authAddr, err := types.DecodeAddress(rec.AuthAddr)
		if err != nil {
			return nil, fmt.Errorf("invalid auth address %s: %w", rec.AuthAddr, err)
		}
		stxn.AuthAddr = authAddr
	}
	return msgpack.Encode(stxn), nil
}

func (h *fileHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.key == nil {
		return errClosed
	}
	crypto.ZeroBytes(h.key)
	h.key = nil
	return nil
}
