// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// PDA seeds
const (
	OperationDataSeed = "operation_data"
	RegistrySeed      = "registry"
	GlobalConfigSeed  = "global_config"
	PositionNFTSeed   = "pos_nft_mint"
)

// legacyTransferSeed is a misspelled seed some deployments derived records
// from. Records at those addresses are not readable by this program.
const legacyTransferSeed = "transefr_data"

var knownSeeds = map[string]struct{}{
	OperationDataSeed: {},
	RegistrySeed:      {},
	GlobalConfigSeed:  {},
	PositionNFTSeed:   {},
}

// ValidateSeed reports whether seed is one this program derives accounts
// from.
func ValidateSeed(seed string) error {
	if seed == legacyTransferSeed {
		return fmt.Errorf("%w: seed %q is not supported, use %q", ErrInvalidParams, seed, OperationDataSeed)
	}
	if _, ok := knownSeeds[seed]; !ok {
		return fmt.Errorf("%w: unknown seed %q", ErrInvalidParams, seed)
	}
	return nil
}

// OperationRecordAddress derives the record PDA of transferID.
func OperationRecordAddress(programID solana.PublicKey, transferID [32]byte) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(OperationDataSeed), transferID[:]}, programID)
}

// RegistryAddress derives the registry PDA.
func RegistryAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(RegistrySeed)}, programID)
}

// GlobalConfigAddress derives the global config PDA.
func GlobalConfigAddress(programID solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(GlobalConfigSeed)}, programID)
}

// PositionNFTMintAddress derives the position NFT mint of user in pool.
func PositionNFTMintAddress(programID, user, pool solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress([][]byte{[]byte(PositionNFTSeed), user.Bytes(), pool.Bytes()}, programID)
}

// recordSeeds are the invoke_signed seeds of a record PDA.
func recordSeeds(transferID [32]byte, bump uint8) [][]byte {
	return [][]byte{[]byte(OperationDataSeed), transferID[:], {bump}}
}
