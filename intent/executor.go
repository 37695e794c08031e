// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/luxfi/database"
	log "github.com/luxfi/log"

	"github.com/luxfi/zapin/clmm"
	"github.com/luxfi/zapin/registry"
)

// Options configures an Executor. Zero values select the registry defaults.
type Options struct {
	ProgramID     solana.PublicKey
	CLMMProgramID solana.PublicKey
	Sink          EventSink
	Log           log.Logger

	// DefaultSlippageBps applies to payout swaps when the caller passes zero.
	DefaultSlippageBps uint16
	// MaxActionSize caps deposited action payloads. Zero selects the
	// package limit.
	MaxActionSize int
}

// Executor runs intents against a token ledger and a CLMM. Every operation is
// atomic: account writes, balance moves and events are applied together or
// not at all.
type Executor struct {
	mu sync.Mutex

	programID     solana.PublicKey
	clmmProgramID solana.PublicKey
	defaultSlip   uint16
	maxAction     int

	db     database.Database
	ledger Ledger
	clmm   clmm.Client
	sink   EventSink
	log    log.Logger

	configAddr   solana.PublicKey
	configBump   uint8
	registryAddr solana.PublicKey

	// registry caches the committed registry account.
	registry *Registry
}

// NewExecutor creates an executor persisting its accounts in db.
func NewExecutor(db database.Database, ledger Ledger, client clmm.Client, opts Options) (*Executor, error) {
	if opts.ProgramID.IsZero() {
		opts.ProgramID = registry.ExecutorProgramID
	}
	if opts.CLMMProgramID.IsZero() {
		opts.CLMMProgramID = registry.CLMMProgramID
	}
	if opts.Log == nil {
		opts.Log = log.NewTestLogger(log.InfoLevel)
	}
	if opts.Sink == nil {
		opts.Sink = logSink{log: opts.Log}
	}
	if opts.MaxActionSize <= 0 || opts.MaxActionSize > MaxActionSize {
		opts.MaxActionSize = MaxActionSize
	}

	configAddr, configBump, err := GlobalConfigAddress(opts.ProgramID)
	if err != nil {
		return nil, err
	}
	registryAddr, _, err := RegistryAddress(opts.ProgramID)
	if err != nil {
		return nil, err
	}
	return &Executor{
		programID:     opts.ProgramID,
		clmmProgramID: opts.CLMMProgramID,
		defaultSlip:   opts.DefaultSlippageBps,
		maxAction:     opts.MaxActionSize,
		db:            db,
		ledger:        ledger,
		clmm:          client,
		sink:          opts.Sink,
		log:           opts.Log,
		configAddr:    configAddr,
		configBump:    configBump,
		registryAddr:  registryAddr,
	}, nil
}

// ProgramID returns the executor program id.
func (e *Executor) ProgramID() solana.PublicKey {
	return e.programID
}

// apply runs fn as one atomic operation. On error the ledger and the CLMM
// are reverted and buffered writes and events are dropped.
func (e *Executor) apply(op string, fn func(tx *txn) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.ledger.Snapshot()
	clmmSnap := e.clmm.Snapshot()
	tx := newTxn(e.db)
	if err := fn(tx); err != nil {
		e.clmm.RevertToSnapshot(clmmSnap)
		e.ledger.RevertToSnapshot(snap)
		e.log.Debug("operation rolled back", "op", op, "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.commit(); err != nil {
		e.clmm.RevertToSnapshot(clmmSnap)
		e.ledger.RevertToSnapshot(snap)
		e.log.Error("operation commit failed", "op", op, "err", err)
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	if tx.registry != nil {
		e.registry = tx.registry
	}
	for _, ev := range tx.events {
		e.sink.Emit(ev)
	}
	e.log.Debug("operation applied", "op", op, "events", len(tx.events))
	return nil
}

// view runs fn against committed state without writing.
func (e *Executor) view(fn func(tx *txn) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return fn(newTxn(e.db))
}

// loadRegistry returns a copy of the registry safe to mutate within tx.
func (e *Executor) loadRegistry(tx *txn) (*Registry, error) {
	if e.registry == nil {
		reg, err := tx.loadRegistry(e.registryAddr)
		if err != nil {
			return nil, err
		}
		e.registry = reg
	}
	return e.registry.clone(), nil
}

// Record returns the committed record of transferID.
func (e *Executor) Record(transferID [32]byte) (*OperationRecord, error) {
	addr, _, err := OperationRecordAddress(e.programID, transferID)
	if err != nil {
		return nil, err
	}
	var rec *OperationRecord
	err = e.view(func(tx *txn) error {
		rec, err = tx.loadRecord(addr)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !rec.Initialized {
		return nil, ErrNotInitialized
	}
	return rec, nil
}

// Config returns the committed global config.
func (e *Executor) Config() (*GlobalConfig, error) {
	var cfg *GlobalConfig
	err := e.view(func(tx *txn) (err error) {
		cfg, err = tx.loadConfig(e.configAddr)
		return err
	})
	return cfg, err
}

// Consumed reports whether transferID was deposited before.
func (e *Executor) Consumed(transferID [32]byte) (bool, error) {
	var ok bool
	err := e.view(func(tx *txn) error {
		reg, err := e.loadRegistry(tx)
		if err != nil {
			return err
		}
		ok = reg.Contains(transferID)
		return nil
	})
	return ok, err
}

// recordAddress resolves the record account of a stage call. A zero addr
// selects the PDA of transferID.
func (e *Executor) recordAddress(addr solana.PublicKey, transferID [32]byte) (solana.PublicKey, error) {
	if !addr.IsZero() {
		return addr, nil
	}
	pda, _, err := OperationRecordAddress(e.programID, transferID)
	return pda, err
}

// tokenAccount loads addr and checks its owner and mint. A zero owner or mint
// skips that check.
func (e *Executor) tokenAccount(addr, owner, mint solana.PublicKey, ownerErr error) (*TokenAccount, error) {
	if addr.IsZero() {
		return nil, fmt.Errorf("%w: missing token account", ErrInvalidParams)
	}
	acct, err := e.ledger.TokenAccount(addr)
	if err != nil {
		return nil, err
	}
	if !owner.IsZero() && !acct.Owner.Equals(owner) {
		return nil, fmt.Errorf("%w: account %s owned by %s, want %s", ownerErr, addr, acct.Owner, owner)
	}
	if !mint.IsZero() && !acct.Mint.Equals(mint) {
		return nil, fmt.Errorf("%w: account %s holds %s, want %s", ErrInvalidMint, addr, acct.Mint, mint)
	}
	return acct, nil
}

// custodyAccount loads an account that must be owned by the record PDA.
func (e *Executor) custodyAccount(addr, recordAddr, mint solana.PublicKey) (*TokenAccount, error) {
	return e.tokenAccount(addr, recordAddr, mint, ErrInvalidProgramAccount)
}

// userAccount loads an account that must be owned by user.
func (e *Executor) userAccount(addr, user, mint solana.PublicKey) (*TokenAccount, error) {
	return e.tokenAccount(addr, user, mint, ErrInvalidParams)
}

func (e *Executor) balance(addr solana.PublicKey) (uint64, error) {
	acct, err := e.ledger.TokenAccount(addr)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// transfer moves amount, skipping zero amounts.
func (e *Executor) transfer(from, to, authority solana.PublicKey, amount uint64) error {
	if amount == 0 {
		return nil
	}
	return e.ledger.Transfer(from, to, authority, amount)
}
