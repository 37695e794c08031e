// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"github.com/gagliardetto/solana-go"
)

// Program is an executable on-ledger program.
type Program interface {
	Run(signer solana.PublicKey, input []byte) ([]byte, error)
}

// Config is the json-configurable part of a module.
type Config interface {
	Key() string
	Timestamp() *uint64
	IsDisabled() bool
	Equal(Config) bool
	Verify() error
}

// Configurator builds and applies a module config.
type Configurator interface {
	MakeConfig() Config
	Configure(cfg Config) error
}

// Module binds a program to its config key and program id.
type Module struct {
	// ConfigKey is the key used in json config files to specify this module.
	ConfigKey string
	// ProgramID is the address the program is deployed at.
	ProgramID solana.PublicKey
	// Program is the program implementation.
	Program Program
	// Configurator applies the module config.
	Configurator Configurator
}

// Upgrade describes when a module config activates.
type Upgrade struct {
	BlockTimestamp *uint64 `json:"blockTimestamp"`
	Disable        bool    `json:"disable,omitempty"`
}

// Timestamp returns the activation timestamp, if any.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// Equal returns true iff [other] has the same timestamp and disable flag.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if other == nil {
		return false
	}
	if u.Disable != other.Disable {
		return false
	}
	if u.BlockTimestamp == nil || other.BlockTimestamp == nil {
		return u.BlockTimestamp == nil && other.BlockTimestamp == nil
	}
	return *u.BlockTimestamp == *other.BlockTimestamp
}
