// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clmm

import (
	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"
)

// Reader loads CLMM accounts.
type Reader interface {
	Pool(addr solana.PublicKey) (*PoolState, error)
	PositionByNFT(nftMint solana.PublicKey) (*PersonalPosition, error)
}

// Journal checkpoints collaborator state. RevertToSnapshot undoes every
// call made since the matching Snapshot.
type Journal interface {
	Snapshot() int
	RevertToSnapshot(id int)
}

// Client is the CLMM collaborator the executor drives. Implementations
// execute inline and either apply the whole call or fail. Calls that
// succeeded inside an operation that later fails are undone through the
// Journal.
type Client interface {
	Reader
	Journal
	SwapSingle(req *SwapRequest) error
	OpenPosition(req *OpenPositionRequest) (*OpenPositionResult, error)
	IncreaseLiquidity(req *IncreaseLiquidityRequest) error
	DecreaseLiquidity(req *DecreaseLiquidityRequest) error
}

// Signer identifies the authority of a call. Seeds is set when the
// authority is a program-derived address signing through invoke_signed.
type Signer struct {
	Key   solana.PublicKey
	Seeds [][]byte
}

// SwapRequest is a single-hop swap_v2 call.
type SwapRequest struct {
	Signer             Signer
	Pool               solana.PublicKey
	InputTokenAccount  solana.PublicKey
	OutputTokenAccount solana.PublicKey
	InputMint          solana.PublicKey
	OutputMint         solana.PublicKey
	TickArrays         []solana.PublicKey

	Amount               uint64
	OtherAmountThreshold uint64
	SqrtPriceLimitX64    uint128.Uint128
	IsBaseInput          bool
}

// OpenPositionRequest is an open_position_v2 call.
type OpenPositionRequest struct {
	Signer             Signer
	Pool               solana.PublicKey
	PositionNFTOwner   solana.PublicKey
	PositionNFTMint    solana.PublicKey
	PositionNFTAccount solana.PublicKey
	ProtocolPosition   solana.PublicKey
	TickArrayLower     solana.PublicKey
	TickArrayUpper     solana.PublicKey
	TokenAccount0      solana.PublicKey
	TokenAccount1      solana.PublicKey

	TickLower           int32
	TickUpper           int32
	TickArrayLowerStart int32
	TickArrayUpperStart int32
	Liquidity           uint128.Uint128
	Amount0Max          uint64
	Amount1Max          uint64
	WithMetadata        bool
	BaseFlag            *bool
}

// OpenPositionResult reports the accounts created by OpenPosition.
type OpenPositionResult struct {
	PersonalPosition solana.PublicKey
}

// IncreaseLiquidityRequest is an increase_liquidity_v2 call.
type IncreaseLiquidityRequest struct {
	Signer             Signer
	Pool               solana.PublicKey
	PositionNFTMint    solana.PublicKey
	PositionNFTAccount solana.PublicKey
	PersonalPosition   solana.PublicKey
	ProtocolPosition   solana.PublicKey
	TickArrayLower     solana.PublicKey
	TickArrayUpper     solana.PublicKey
	TokenAccount0      solana.PublicKey
	TokenAccount1      solana.PublicKey

	Liquidity  uint128.Uint128
	Amount0Max uint64
	Amount1Max uint64
	BaseFlag   *bool
}

// DecreaseLiquidityRequest is a decrease_liquidity_v2 call. Liquidity zero
// settles accrued fees without burning.
type DecreaseLiquidityRequest struct {
	Signer             Signer
	Pool               solana.PublicKey
	PositionNFTMint    solana.PublicKey
	PositionNFTAccount solana.PublicKey
	PersonalPosition   solana.PublicKey
	RecipientAccount0  solana.PublicKey
	RecipientAccount1  solana.PublicKey

	Liquidity  uint128.Uint128
	Amount0Min uint64
	Amount1Min uint64
}
