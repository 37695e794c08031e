// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// checkStage validates a stage call against rec. The checks run in a fixed
// order so callers observe the same error for the same state.
func checkStage(rec *OperationRecord, signer solana.PublicKey, transferID [32]byte, kind OperationType, expected Stage) error {
	if !rec.Initialized {
		return ErrNotInitialized
	}
	if rec.Executed {
		return ErrAlreadyExecuted
	}
	if rec.TransferID != transferID {
		return fmt.Errorf("%w: record holds %s", ErrInvalidTransferID, TransferIDHex(rec.TransferID))
	}
	if rec.OperationType != kind {
		return fmt.Errorf("%w: operation is %s, want %s", ErrInvalidParams, rec.OperationType, kind)
	}
	if rec.Stage != expected {
		return fmt.Errorf("%w: stage is %s, want %s", ErrInvalidParams, rec.Stage, expected)
	}
	if !signer.Equals(rec.Executor) {
		return fmt.Errorf("%w: %s is not the executor", ErrUnauthorized, signer)
	}
	return nil
}

// checkCancel validates a cancel call: any non-final stage, executor or
// authority only.
func checkCancel(rec *OperationRecord, signer solana.PublicKey, transferID [32]byte) error {
	if !rec.Initialized {
		return ErrNotInitialized
	}
	if rec.Executed {
		return ErrAlreadyExecuted
	}
	if rec.TransferID != transferID {
		return fmt.Errorf("%w: record holds %s", ErrInvalidTransferID, TransferIDHex(rec.TransferID))
	}
	if !signer.Equals(rec.Executor) && !signer.Equals(rec.Authority) {
		return fmt.Errorf("%w: %s may not cancel", ErrUnauthorized, signer)
	}
	return nil
}

// advance moves rec to next, which must be the successor of its stage.
func (r *OperationRecord) advance(next Stage) error {
	if r.Executed || next != r.Stage+1 {
		return fmt.Errorf("%w: cannot move from %s to %s", ErrInvalidParams, r.Stage, next)
	}
	r.Stage = next
	if next == StageFinalized {
		r.Executed = true
	}
	return nil
}

// terminate finalizes rec from any stage. Used by refund and cancel.
func (r *OperationRecord) terminate() {
	r.Stage = StageFinalized
	r.Executed = true
}

// stageCall is the shared prologue of every staged operation: resolve and
// load the record, then run the controller checks.
func (e *Executor) stageCall(tx *txn, signer solana.PublicKey, transferID [32]byte, recordAddr solana.PublicKey, kind OperationType, expected Stage) (solana.PublicKey, *OperationRecord, error) {
	addr, err := e.recordAddress(recordAddr, transferID)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	rec, err := tx.loadRecord(addr)
	if err != nil {
		return solana.PublicKey{}, nil, err
	}
	if err := checkStage(rec, signer, transferID, kind, expected); err != nil {
		return solana.PublicKey{}, nil, err
	}
	return addr, rec, nil
}

// CancelAccounts are the custodial accounts swept by Cancel. Zero side
// accounts are skipped.
type CancelAccounts struct {
	Record              solana.PublicKey
	ProgramTokenAccount solana.PublicKey
	PDAToken0           solana.PublicKey
	PDAToken1           solana.PublicKey
}

// Cancel terminates an intent from any non-final stage, returning custodial
// balances to the authority's associated token accounts.
func (e *Executor) Cancel(signer solana.PublicKey, transferID [32]byte, acc *CancelAccounts) error {
	return e.apply("cancel", func(tx *txn) error {
		addr, err := e.recordAddress(acc.Record, transferID)
		if err != nil {
			return err
		}
		rec, err := tx.loadRecord(addr)
		if err != nil {
			return err
		}
		if err := checkCancel(rec, signer, transferID); err != nil {
			return err
		}

		var returned uint64
		for _, src := range []solana.PublicKey{acc.ProgramTokenAccount, acc.PDAToken0, acc.PDAToken1} {
			if src.IsZero() {
				continue
			}
			custody, err := e.custodyAccount(src, addr, solana.PublicKey{})
			if err != nil {
				return err
			}
			if custody.Amount == 0 {
				continue
			}
			dst, _, err := solana.FindAssociatedTokenAddress(rec.Authority, custody.Mint)
			if err != nil {
				return err
			}
			if _, err := e.userAccount(dst, rec.Authority, custody.Mint); err != nil {
				return err
			}
			if err := e.transfer(src, dst, addr, custody.Amount); err != nil {
				return err
			}
			returned += custody.Amount
		}

		stage := rec.Stage
		rec.terminate()
		if err := tx.storeRecord(addr, rec); err != nil {
			return err
		}
		tx.emit(CancelEvent{
			TransferIDHex: TransferIDHex(transferID),
			Canceller:     signer,
			Stage:         stage,
			Returned:      returned,
		})
		e.log.Info("intent cancelled", "transferID", TransferIDHex(transferID), "stage", stage, "returned", returned)
		return nil
	})
}
