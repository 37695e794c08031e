// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// OperationRecord is the durable state of one intent, stored at the
// operation_data PDA of its transfer id.
type OperationRecord struct {
	Authority     solana.PublicKey
	Initialized   bool
	TransferID    [32]byte
	Recipient     solana.PublicKey
	OperationType OperationType
	Action        Action
	Amount        uint64
	Executed      bool
	CA            solana.PublicKey
	Executor      solana.PublicKey

	// Populated by Prepare.
	TickLower        int32
	TickUpper        int32
	TickArrayLower   solana.PublicKey
	TickArrayUpper   solana.PublicKey
	ProtocolPosition solana.PublicKey
	PositionNFTMint  solana.PublicKey
	PersonalPosition solana.PublicKey
	BaseInputFlag    bool

	Stage Stage
	Bump  uint8
}

// ZapIn returns the ZapIn parameters of the record.
func (r *OperationRecord) ZapIn() (*ZapInParams, error) {
	p, ok := r.Action.(*ZapInParams)
	if !ok {
		return nil, fmt.Errorf("%w: record action is not ZapIn", ErrInvalidParams)
	}
	return p, nil
}

// Transfer returns the Transfer parameters of the record.
func (r *OperationRecord) Transfer() (*TransferParams, error) {
	p, ok := r.Action.(*TransferParams)
	if !ok {
		return nil, fmt.Errorf("%w: record action is not Transfer", ErrInvalidParams)
	}
	return p, nil
}

// MarshalBinary encodes the record in account layout order.
func (r *OperationRecord) MarshalBinary() ([]byte, error) {
	if r.Action == nil {
		return nil, fmt.Errorf("%w: record has no action", ErrInvalidParams)
	}
	action, err := EncodeAction(r.Action)
	if err != nil {
		return nil, err
	}

	w := newWriter()
	w.key(r.Authority)
	w.boolean(r.Initialized)
	w.raw(r.TransferID[:])
	w.key(r.Recipient)
	w.u8(uint8(r.OperationType))
	w.raw(action)
	w.u64(r.Amount)
	w.boolean(r.Executed)
	w.key(r.CA)
	w.key(r.Executor)
	w.i32(r.TickLower)
	w.i32(r.TickUpper)
	w.key(r.TickArrayLower)
	w.key(r.TickArrayUpper)
	w.key(r.ProtocolPosition)
	w.key(r.PositionNFTMint)
	w.key(r.PersonalPosition)
	w.u8(uint8(r.Stage))
	w.boolean(r.BaseInputFlag)
	w.u8(r.Bump)
	return w.bytes()
}

// UnmarshalBinary decodes a record written by MarshalBinary.
func (r *OperationRecord) UnmarshalBinary(data []byte) error {
	rd := newReader(data)
	r.Authority = rd.key()
	r.Initialized = rd.boolean()
	r.TransferID = rd.id()
	r.Recipient = rd.key()
	r.OperationType = OperationType(rd.u8())
	r.Action = readAction(rd)
	r.Amount = rd.u64()
	r.Executed = rd.boolean()
	r.CA = rd.key()
	r.Executor = rd.key()
	r.TickLower = rd.i32()
	r.TickUpper = rd.i32()
	r.TickArrayLower = rd.key()
	r.TickArrayUpper = rd.key()
	r.ProtocolPosition = rd.key()
	r.PositionNFTMint = rd.key()
	r.PersonalPosition = rd.key()
	r.Stage = Stage(rd.u8())
	r.BaseInputFlag = rd.boolean()
	r.Bump = rd.u8()
	if err := rd.done(true); err != nil {
		return err
	}
	if r.Stage > StageFinalized {
		return fmt.Errorf("%w: unknown stage %d", ErrInvalidParams, r.Stage)
	}
	return nil
}

// GlobalConfig holds program-wide settings, created once by Initialize.
type GlobalConfig struct {
	Authority   solana.PublicKey
	FeeReceiver solana.PublicKey
	Bump        uint8
}

func (c *GlobalConfig) MarshalBinary() ([]byte, error) {
	w := newWriter()
	w.key(c.Authority)
	w.key(c.FeeReceiver)
	w.u8(c.Bump)
	return w.bytes()
}

func (c *GlobalConfig) UnmarshalBinary(data []byte) error {
	r := newReader(data)
	c.Authority = r.key()
	c.FeeReceiver = r.key()
	c.Bump = r.u8()
	return r.done(true)
}
