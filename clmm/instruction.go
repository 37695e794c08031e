// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clmm

import (
	"bytes"
	"encoding/binary"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/luxfi/zapin/registry"
)

// Instruction discriminators (sha256("global:<name>")[:8])
var (
	SwapV2Discriminator              = [8]byte{43, 4, 237, 11, 26, 201, 30, 98}
	OpenPositionV2Discriminator      = [8]byte{77, 184, 74, 214, 112, 86, 241, 199}
	IncreaseLiquidityV2Discriminator = [8]byte{133, 29, 89, 223, 69, 238, 176, 10}
	DecreaseLiquidityV2Discriminator = [8]byte{58, 127, 188, 62, 79, 82, 196, 96}
)

// argWriter accumulates Borsh-encoded instruction arguments, keeping the
// first error.
type argWriter struct {
	buf *bytes.Buffer
	enc *bin.Encoder
	err error
}

func newArgWriter(discriminator [8]byte) *argWriter {
	buf := new(bytes.Buffer)
	buf.Write(discriminator[:])
	return &argWriter{buf: buf, enc: bin.NewBorshEncoder(buf)}
}

func (w *argWriter) u64(v uint64) {
	if w.err == nil {
		w.err = w.enc.WriteUint64(v, binary.LittleEndian)
	}
}

func (w *argWriter) i32(v int32) {
	if w.err == nil {
		w.err = w.enc.WriteInt32(v, binary.LittleEndian)
	}
}

// u128 is little-endian: low word first.
func (w *argWriter) u128(v uint128.Uint128) {
	w.u64(v.Lo)
	w.u64(v.Hi)
}

func (w *argWriter) boolean(v bool) {
	if w.err == nil {
		w.err = w.enc.WriteBool(v)
	}
}

func (w *argWriter) optionBool(v *bool) {
	if v == nil {
		w.boolean(false)
		return
	}
	w.boolean(true)
	w.boolean(*v)
}

func (w *argWriter) bytes() ([]byte, error) {
	if w.err != nil {
		return nil, w.err
	}
	return w.buf.Bytes(), nil
}

func writable(pk solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(pk, true, false)
}

func readonly(pk solana.PublicKey) *solana.AccountMeta {
	return solana.NewAccountMeta(pk, false, false)
}

func signer(pk solana.PublicKey, isWritable bool) *solana.AccountMeta {
	return solana.NewAccountMeta(pk, isWritable, true)
}

// NewSwapV2Instruction encodes a single-hop swap.
func NewSwapV2Instruction(programID solana.PublicKey, pool *PoolState, req *SwapRequest) (solana.Instruction, error) {
	w := newArgWriter(SwapV2Discriminator)
	w.u64(req.Amount)
	w.u64(req.OtherAmountThreshold)
	w.u128(req.SqrtPriceLimitX64)
	w.boolean(req.IsBaseInput)
	data, err := w.bytes()
	if err != nil {
		return nil, err
	}

	inputVault, outputVault := pool.TokenVault0, pool.TokenVault1
	if req.InputMint.Equals(pool.TokenMint1) {
		inputVault, outputVault = pool.TokenVault1, pool.TokenVault0
	}

	accounts := solana.AccountMetaSlice{
		signer(req.Signer.Key, false),
		readonly(pool.AMMConfig),
		writable(pool.Address),
		writable(req.InputTokenAccount),
		writable(req.OutputTokenAccount),
		writable(inputVault),
		writable(outputVault),
		readonly(registry.TokenProgramID),
		readonly(registry.Token2022ProgramID),
		readonly(registry.MemoProgramID),
		readonly(req.InputMint),
		readonly(req.OutputMint),
	}
	for _, ta := range req.TickArrays {
		accounts = append(accounts, writable(ta))
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// NewOpenPositionV2Instruction encodes a position open.
func NewOpenPositionV2Instruction(programID solana.PublicKey, pool *PoolState, personal solana.PublicKey, req *OpenPositionRequest) (solana.Instruction, error) {
	w := newArgWriter(OpenPositionV2Discriminator)
	w.i32(req.TickLower)
	w.i32(req.TickUpper)
	w.i32(req.TickArrayLowerStart)
	w.i32(req.TickArrayUpperStart)
	w.u128(req.Liquidity)
	w.u64(req.Amount0Max)
	w.u64(req.Amount1Max)
	w.boolean(req.WithMetadata)
	w.optionBool(req.BaseFlag)
	data, err := w.bytes()
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		signer(req.Signer.Key, true),
		readonly(req.PositionNFTOwner),
		signer(req.PositionNFTMint, true),
		writable(req.PositionNFTAccount),
		writable(pool.Address),
		writable(req.ProtocolPosition),
		writable(req.TickArrayLower),
		writable(req.TickArrayUpper),
		writable(personal),
		writable(req.TokenAccount0),
		writable(req.TokenAccount1),
		writable(pool.TokenVault0),
		writable(pool.TokenVault1),
		readonly(registry.SystemProgramID),
		readonly(registry.TokenProgramID),
		readonly(registry.AssociatedTokenProgramID),
		readonly(registry.Token2022ProgramID),
		readonly(pool.TokenMint0),
		readonly(pool.TokenMint1),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// NewIncreaseLiquidityV2Instruction encodes a liquidity increase.
func NewIncreaseLiquidityV2Instruction(programID solana.PublicKey, pool *PoolState, req *IncreaseLiquidityRequest) (solana.Instruction, error) {
	w := newArgWriter(IncreaseLiquidityV2Discriminator)
	w.u128(req.Liquidity)
	w.u64(req.Amount0Max)
	w.u64(req.Amount1Max)
	w.optionBool(req.BaseFlag)
	data, err := w.bytes()
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		signer(req.Signer.Key, false),
		readonly(req.PositionNFTAccount),
		writable(pool.Address),
		writable(req.ProtocolPosition),
		writable(req.PersonalPosition),
		writable(req.TickArrayLower),
		writable(req.TickArrayUpper),
		writable(req.TokenAccount0),
		writable(req.TokenAccount1),
		writable(pool.TokenVault0),
		writable(pool.TokenVault1),
		readonly(registry.TokenProgramID),
		readonly(registry.Token2022ProgramID),
		readonly(pool.TokenMint0),
		readonly(pool.TokenMint1),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}

// NewDecreaseLiquidityV2Instruction encodes a liquidity decrease.
func NewDecreaseLiquidityV2Instruction(programID solana.PublicKey, pool *PoolState, req *DecreaseLiquidityRequest) (solana.Instruction, error) {
	w := newArgWriter(DecreaseLiquidityV2Discriminator)
	w.u128(req.Liquidity)
	w.u64(req.Amount0Min)
	w.u64(req.Amount1Min)
	data, err := w.bytes()
	if err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		signer(req.Signer.Key, false),
		readonly(req.PositionNFTAccount),
		writable(req.PersonalPosition),
		writable(pool.Address),
		writable(pool.TokenVault0),
		writable(pool.TokenVault1),
		writable(req.RecipientAccount0),
		writable(req.RecipientAccount1),
		readonly(registry.TokenProgramID),
		readonly(registry.Token2022ProgramID),
		readonly(registry.MemoProgramID),
		readonly(pool.TokenMint0),
		readonly(pool.TokenMint1),
	}
	return solana.NewInstruction(programID, accounts, data), nil
}
