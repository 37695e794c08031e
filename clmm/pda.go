// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clmm

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
)

// Account seeds of the CLMM program
var (
	TickArraySeed = []byte("tick_array")
	PositionSeed  = []byte("position")
)

func i32BE(v int32) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	return b[:]
}

// TickArrayAddress derives the tick array PDA starting at startIndex.
func TickArrayAddress(programID, pool solana.PublicKey, startIndex int32) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{TickArraySeed, pool.Bytes(), i32BE(startIndex)},
		programID,
	)
	return addr, err
}

// ProtocolPositionAddress derives the pool-level position PDA for a pair of
// tick array starts.
func ProtocolPositionAddress(programID, pool solana.PublicKey, lowerStart, upperStart int32) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{PositionSeed, pool.Bytes(), i32BE(lowerStart), i32BE(upperStart)},
		programID,
	)
	return addr, err
}

// PersonalPositionAddress derives the NFT-backed position PDA.
func PersonalPositionAddress(programID, nftMint solana.PublicKey) (solana.PublicKey, error) {
	addr, _, err := solana.FindProgramAddress(
		[][]byte{PositionSeed, nftMint.Bytes()},
		programID,
	)
	return addr, err
}
