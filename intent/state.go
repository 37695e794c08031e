// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"encoding"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Storage prefixes
var (
	recordPrefix   = []byte("zapin/record")
	registryPrefix = []byte("zapin/registry")
	configPrefix   = []byte("zapin/config")
)

// TokenAccount is the view of an SPL token account the executor validates.
type TokenAccount struct {
	Address solana.PublicKey
	Mint    solana.PublicKey
	Owner   solana.PublicKey
	Amount  uint64
}

// Ledger is the token ledger the executor moves funds on. Snapshot and
// RevertToSnapshot bracket one operation so a failure leaves no balance
// change behind.
type Ledger interface {
	TokenAccount(addr solana.PublicKey) (*TokenAccount, error)
	Transfer(from, to, authority solana.PublicKey, amount uint64) error
	MintExists(mint solana.PublicKey) bool
	CreateMint(mint, authority solana.PublicKey, decimals uint8) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// makeStorageKey creates a storage key from prefix and identifier
func makeStorageKey(prefix []byte, id []byte) common.Hash {
	h := blake3.New()
	h.Write(prefix)
	h.Write(id)
	var key common.Hash
	h.Digest().Read(key[:])
	return key
}

// txn buffers the account writes and events of one operation. Nothing
// reaches the database or the event sink until commit.
type txn struct {
	db       database.Database
	pending  map[common.Hash][]byte
	order    []common.Hash
	events   []Event
	registry *Registry
}

func newTxn(db database.Database) *txn {
	return &txn{
		db:      db,
		pending: make(map[common.Hash][]byte),
	}
}

func (tx *txn) get(key common.Hash) ([]byte, error) {
	if v, ok := tx.pending[key]; ok {
		return v, nil
	}
	return tx.db.Get(key[:])
}

func (tx *txn) has(key common.Hash) (bool, error) {
	if _, ok := tx.pending[key]; ok {
		return true, nil
	}
	return tx.db.Has(key[:])
}

func (tx *txn) put(key common.Hash, v encoding.BinaryMarshaler) error {
	data, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	if _, ok := tx.pending[key]; !ok {
		tx.order = append(tx.order, key)
	}
	tx.pending[key] = data
	return nil
}

func (tx *txn) emit(ev Event) {
	tx.events = append(tx.events, ev)
}

func (tx *txn) commit() error {
	if len(tx.order) == 0 {
		return nil
	}
	batch := tx.db.NewBatch()
	for _, key := range tx.order {
		if err := batch.Put(key[:], tx.pending[key]); err != nil {
			return err
		}
	}
	return batch.Write()
}

// loadRecord reads the record at addr. A missing account yields an
// uninitialized record.
func (tx *txn) loadRecord(addr solana.PublicKey) (*OperationRecord, error) {
	data, err := tx.get(makeStorageKey(recordPrefix, addr[:]))
	if errors.Is(err, database.ErrNotFound) {
		return &OperationRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	rec := new(OperationRecord)
	if err := rec.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decode record %s: %w", addr, err)
	}
	return rec, nil
}

func (tx *txn) recordExists(addr solana.PublicKey) (bool, error) {
	return tx.has(makeStorageKey(recordPrefix, addr[:]))
}

func (tx *txn) storeRecord(addr solana.PublicKey, rec *OperationRecord) error {
	return tx.put(makeStorageKey(recordPrefix, addr[:]), rec)
}

func (tx *txn) loadConfig(addr solana.PublicKey) (*GlobalConfig, error) {
	data, err := tx.get(makeStorageKey(configPrefix, addr[:]))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: global config", ErrNotInitialized)
	}
	if err != nil {
		return nil, err
	}
	cfg := new(GlobalConfig)
	if err := cfg.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (tx *txn) configExists(addr solana.PublicKey) (bool, error) {
	return tx.has(makeStorageKey(configPrefix, addr[:]))
}

func (tx *txn) storeConfig(addr solana.PublicKey, cfg *GlobalConfig) error {
	return tx.put(makeStorageKey(configPrefix, addr[:]), cfg)
}

func (tx *txn) loadRegistry(addr solana.PublicKey) (*Registry, error) {
	data, err := tx.get(makeStorageKey(registryPrefix, addr[:]))
	if errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("%w: registry", ErrNotInitialized)
	}
	if err != nil {
		return nil, err
	}
	reg := NewRegistry()
	if err := reg.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return reg, nil
}

// storeRegistry stages reg and keeps it for the executor cache on commit.
func (tx *txn) storeRegistry(addr solana.PublicKey, reg *Registry) error {
	if err := tx.put(makeStorageKey(registryPrefix, addr[:]), reg); err != nil {
		return err
	}
	tx.registry = reg
	return nil
}
