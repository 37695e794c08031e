// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/luxfi/zapin/registry"
)

// Initialize creates the global config and an empty registry. signer becomes
// the config authority.
func (e *Executor) Initialize(signer, feeReceiver solana.PublicKey) error {
	return e.apply("initialize", func(tx *txn) error {
		exists, err := tx.configExists(e.configAddr)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: global config already in use", ErrInvalidParams)
		}
		if signer.IsZero() || feeReceiver.IsZero() {
			return fmt.Errorf("%w: zero authority or fee receiver", ErrInvalidParams)
		}
		cfg := &GlobalConfig{
			Authority:   signer,
			FeeReceiver: feeReceiver,
			Bump:        e.configBump,
		}
		if err := tx.storeConfig(e.configAddr, cfg); err != nil {
			return err
		}
		return tx.storeRegistry(e.registryAddr, NewRegistry())
	})
}

// UpdateConfig replaces the fee receiver. Only the config authority may call
// it.
func (e *Executor) UpdateConfig(signer, feeReceiver solana.PublicKey) error {
	return e.apply("update_config", func(tx *txn) error {
		cfg, err := tx.loadConfig(e.configAddr)
		if err != nil {
			return err
		}
		if !signer.Equals(cfg.Authority) {
			return fmt.Errorf("%w: %s is not the config authority", ErrUnauthorized, signer)
		}
		if feeReceiver.IsZero() {
			return fmt.Errorf("%w: zero fee receiver", ErrInvalidParams)
		}
		cfg.FeeReceiver = feeReceiver
		return tx.storeConfig(e.configAddr, cfg)
	})
}

// DepositArgs are the instruction arguments of Deposit.
type DepositArgs struct {
	TransferID    [32]byte
	OperationType OperationType
	Action        Action
	Amount        uint64
	CA            solana.PublicKey
	Executor      solana.PublicKey
}

// DepositAccounts are the token accounts of Deposit.
type DepositAccounts struct {
	AuthorityATA        solana.PublicKey
	ProgramTokenAccount solana.PublicKey
	TokenProgram        solana.PublicKey
}

func (a *DepositArgs) validate(maxAction int) error {
	if a.Amount == 0 {
		return fmt.Errorf("%w: zero deposit", ErrInvalidAmount)
	}
	if a.TransferID == ([32]byte{}) {
		return fmt.Errorf("%w: zero transfer id", ErrInvalidTransferID)
	}
	if a.Executor.IsZero() {
		return fmt.Errorf("%w: zero executor", ErrInvalidParams)
	}
	if a.Action == nil || a.Action.Kind() != a.OperationType {
		return fmt.Errorf("%w: action does not match operation %s", ErrInvalidParams, a.OperationType)
	}
	encoded, err := EncodeAction(a.Action)
	if err != nil {
		return err
	}
	if n := len(encoded) - actionHeaderSize; n > maxAction {
		return fmt.Errorf("%w: action payload of %d bytes exceeds %d", ErrInvalidParams, n, maxAction)
	}
	switch p := a.Action.(type) {
	case *TransferParams:
		if p.Recipient.IsZero() {
			return fmt.Errorf("%w: zero recipient", ErrInvalidParams)
		}
	case *ZapInParams:
		if p.TickLower >= p.TickUpper {
			return fmt.Errorf("%w: %d >= %d", ErrInvalidTickRange, p.TickLower, p.TickUpper)
		}
		if !p.Pool.Equals(a.CA) {
			return fmt.Errorf("%w: action pool %s differs from ca %s", ErrInvalidParams, p.Pool, a.CA)
		}
		if p.AmountIn == 0 {
			return fmt.Errorf("%w: zero amount in", ErrInvalidAmount)
		}
	}
	return nil
}

// Deposit creates the record of a new intent and moves amount from the
// signer's token account into custody. It returns the record address.
func (e *Executor) Deposit(signer solana.PublicKey, args *DepositArgs, acc *DepositAccounts) (solana.PublicKey, error) {
	var recordAddr solana.PublicKey
	err := e.apply("deposit", func(tx *txn) error {
		if err := args.validate(e.maxAction); err != nil {
			return err
		}
		if !registry.IsTokenProgram(acc.TokenProgram) {
			return fmt.Errorf("%w: %s", ErrInvalidTokenProgram, acc.TokenProgram)
		}

		reg, err := e.loadRegistry(tx)
		if err != nil {
			return err
		}
		if reg.Contains(args.TransferID) {
			return fmt.Errorf("%w: %s", ErrDuplicateTransferID, TransferIDHex(args.TransferID))
		}

		addr, bump, err := OperationRecordAddress(e.programID, args.TransferID)
		if err != nil {
			return err
		}
		exists, err := tx.recordExists(addr)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: record %s already in use", ErrDuplicateTransferID, addr)
		}

		var tickLower, tickUpper int32
		if p, ok := args.Action.(*ZapInParams); ok {
			pool, err := e.clmm.Pool(p.Pool)
			if err != nil {
				return err
			}
			if tickLower, tickUpper, err = snapRange(pool, p.TickLower, p.TickUpper); err != nil {
				return err
			}
		}

		source, err := e.userAccount(acc.AuthorityATA, signer, solana.PublicKey{})
		if err != nil {
			return err
		}
		if _, err := e.custodyAccount(acc.ProgramTokenAccount, addr, source.Mint); err != nil {
			return err
		}
		if err := e.ledger.Transfer(acc.AuthorityATA, acc.ProgramTokenAccount, signer, args.Amount); err != nil {
			return err
		}

		rec := &OperationRecord{
			Authority:     signer,
			Initialized:   true,
			TransferID:    args.TransferID,
			OperationType: args.OperationType,
			Action:        args.Action,
			Amount:        args.Amount,
			CA:            args.CA,
			Executor:      args.Executor,
			Stage:         StageNone,
			Bump:          bump,
		}
		switch p := args.Action.(type) {
		case *TransferParams:
			rec.Recipient = p.Recipient
		case *ZapInParams:
			rec.Recipient = signer
			rec.TickLower = tickLower
			rec.TickUpper = tickUpper
		}

		if err := reg.Insert(args.TransferID); err != nil {
			return err
		}
		if err := tx.storeRecord(addr, rec); err != nil {
			return err
		}
		if err := tx.storeRegistry(e.registryAddr, reg); err != nil {
			return err
		}

		idHex := TransferIDHex(args.TransferID)
		tx.emit(DepositEvent{TransferIDHex: idHex, Amount: args.Amount, Recipient: rec.Recipient})
		tx.emit(ExecutorAssigned{TransferIDHex: idHex, Executor: args.Executor})
		e.log.Info("deposit accepted",
			"transferID", idHex,
			"operation", args.OperationType,
			"amount", args.Amount,
			"executor", args.Executor,
		)
		recordAddr = addr
		return nil
	})
	return recordAddr, err
}

// TransferAccounts are the accounts of ExecuteTransfer.
type TransferAccounts struct {
	Record              solana.PublicKey
	ProgramTokenAccount solana.PublicKey
	RecipientAccount    solana.PublicKey
}

// ExecuteTransfer pays a Transfer intent out to its recipient and finalizes
// it.
func (e *Executor) ExecuteTransfer(signer solana.PublicKey, transferID [32]byte, acc *TransferAccounts) error {
	return e.apply("execute_transfer", func(tx *txn) error {
		addr, rec, err := e.stageCall(tx, signer, transferID, acc.Record, OperationTransfer, StageNone)
		if err != nil {
			return err
		}
		params, err := rec.Transfer()
		if err != nil {
			return err
		}
		custody, err := e.custodyAccount(acc.ProgramTokenAccount, addr, solana.PublicKey{})
		if err != nil {
			return err
		}
		if _, err := e.userAccount(acc.RecipientAccount, params.Recipient, custody.Mint); err != nil {
			return err
		}
		if custody.Amount < rec.Amount {
			return fmt.Errorf("%w: custody holds %d, record %d", ErrInvalidAmount, custody.Amount, rec.Amount)
		}
		if err := e.transfer(acc.ProgramTokenAccount, acc.RecipientAccount, addr, rec.Amount); err != nil {
			return err
		}

		rec.terminate()
		if err := tx.storeRecord(addr, rec); err != nil {
			return err
		}
		tx.emit(TransferEvent{
			TransferIDHex: TransferIDHex(transferID),
			Amount:        rec.Amount,
			Recipient:     params.Recipient,
		})
		return nil
	})
}
