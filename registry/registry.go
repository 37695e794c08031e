// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"github.com/gagliardetto/solana-go"
)

// ============================================================================
// PROGRAM ADDRESS BOOK
// ============================================================================
//
// Programs the intent executor talks to, grouped by family:
//   Executor  -> the intent executor itself
//   CLMM      -> concentrated-liquidity AMM collaborator
//   Token     -> SPL token, token-2022, associated token accounts
//   System    -> system program, memo

const (
	// Executor
	ExecutorProgramAddress = "ZapinExec9vKq3Rt7Wm2Lx5Ny8Hb4Cd6Fg1Jk2Pq3Ts"

	// CLMM (Raydium concentrated liquidity)
	CLMMProgramAddress = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"

	// Token
	TokenProgramAddress           = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	Token2022ProgramAddress       = "TokenzQdBNbLqP5VEhdkAS6EPFLC1PHnBqCXEpPxuEb"
	AssociatedTokenProgramAddress = "ATokenGPvbdGVxr1b2hvZbsiqW5xWH25efTNsLJA8knL"

	// System
	SystemProgramAddress = "11111111111111111111111111111111"
	MemoProgramAddress   = "MemoSq4gqABAXKb96qnH8TysNcWxMyWCqXgDLGmfcHr"
)

// Parsed program ids
var (
	ExecutorProgramID        = solana.MustPublicKeyFromBase58(ExecutorProgramAddress)
	CLMMProgramID            = solana.MustPublicKeyFromBase58(CLMMProgramAddress)
	TokenProgramID           = solana.MustPublicKeyFromBase58(TokenProgramAddress)
	Token2022ProgramID       = solana.MustPublicKeyFromBase58(Token2022ProgramAddress)
	AssociatedTokenProgramID = solana.MustPublicKeyFromBase58(AssociatedTokenProgramAddress)
	SystemProgramID          = solana.MustPublicKeyFromBase58(SystemProgramAddress)
	MemoProgramID            = solana.MustPublicKeyFromBase58(MemoProgramAddress)
)

// ProgramInfo contains metadata about a program
type ProgramInfo struct {
	Address     string
	Name        string
	Description string
	Family      string
}

// AllPrograms lists every program known to the executor
var AllPrograms = []ProgramInfo{
	{ExecutorProgramAddress, "ZAPIN_EXECUTOR", "Staged CLMM intent executor", "Executor"},
	{CLMMProgramAddress, "RAYDIUM_CLMM", "Concentrated liquidity AMM", "CLMM"},
	{TokenProgramAddress, "SPL_TOKEN", "SPL token program", "Token"},
	{Token2022ProgramAddress, "SPL_TOKEN_2022", "SPL token-2022 program", "Token"},
	{AssociatedTokenProgramAddress, "SPL_ATA", "Associated token account program", "Token"},
	{SystemProgramAddress, "SYSTEM", "System program", "System"},
	{MemoProgramAddress, "MEMO", "Memo program", "System"},
}

// GetProgramsByFamily returns all programs for a family
func GetProgramsByFamily(family string) []ProgramInfo {
	var result []ProgramInfo
	for _, p := range AllPrograms {
		if p.Family == family {
			result = append(result, p)
		}
	}
	return result
}

// IsTokenProgram reports whether id is one of the supported token programs.
func IsTokenProgram(id solana.PublicKey) bool {
	return id.Equals(TokenProgramID) || id.Equals(Token2022ProgramID)
}

// IsSystemProgram reports whether id belongs to the Token or System families.
// Such ids can never host an executor module.
func IsSystemProgram(id solana.PublicKey) bool {
	for _, family := range []string{"Token", "System"} {
		for _, p := range GetProgramsByFamily(family) {
			if solana.MustPublicKeyFromBase58(p.Address).Equals(id) {
				return true
			}
		}
	}
	return false
}
