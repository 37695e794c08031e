// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clmm

import (
	"errors"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Tick and array geometry
const (
	TickArraySize = 88
	MinTick       = -443636
	MaxTick       = 443636
)

// Rate denominators
const (
	// BasisPointMax is 100% expressed in basis points.
	BasisPointMax = 10_000
	// FeeRateDenominator is the denominator of pool fee rates (ppm).
	FeeRateDenominator = 1_000_000
)

// Price bounds of the sqrt-price grid (Q64.64)
var (
	MinSqrtPriceX64 = uint128.From64(4295048016)
	MaxSqrtPriceX64 = uint128.New(0x845c1aa94e69579b, 0xfffec4b1) // 79226673521066979257578248091
)

// Math errors
var (
	ErrInvalidTickRange   = errors.New("invalid tick range")
	ErrInvalidTickSpacing = errors.New("invalid tick spacing")
	ErrInvalidSqrtPrice   = errors.New("invalid sqrt price")
	ErrNumberCast         = errors.New("number cast overflow")
	ErrZeroRatio          = errors.New("swap ratio denominator is zero")
)

// Collaborator errors
var (
	ErrPoolNotFound      = errors.New("pool not found")
	ErrPositionNotFound  = errors.New("position not found")
	ErrSlippageExceeded  = errors.New("slippage exceeded")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvokeFailed      = errors.New("cross-program invocation failed")
)

// PoolState is the subset of the CLMM pool account the executor reads.
type PoolState struct {
	Address       solana.PublicKey
	AMMConfig     solana.PublicKey
	TokenMint0    solana.PublicKey
	TokenMint1    solana.PublicKey
	TokenVault0   solana.PublicKey
	TokenVault1   solana.PublicKey
	MintDecimals0 uint8
	MintDecimals1 uint8
	TickSpacing   uint16
	Liquidity     uint128.Uint128
	SqrtPriceX64  uint128.Uint128
	TickCurrent   int32
	// TradeFeeRate and ProtocolFeeRate are in ppm of FeeRateDenominator.
	TradeFeeRate    uint32
	ProtocolFeeRate uint32
}

// MintFor returns the pool mint on the requested side.
func (p *PoolState) MintFor(zero bool) solana.PublicKey {
	if zero {
		return p.TokenMint0
	}
	return p.TokenMint1
}

// VaultFor returns the pool vault on the requested side.
func (p *PoolState) VaultFor(zero bool) solana.PublicKey {
	if zero {
		return p.TokenVault0
	}
	return p.TokenVault1
}

// PersonalPosition is an NFT-backed liquidity position.
type PersonalPosition struct {
	Address   solana.PublicKey
	NFTMint   solana.PublicKey
	Pool      solana.PublicKey
	TickLower int32
	TickUpper int32
	Liquidity uint128.Uint128
}
