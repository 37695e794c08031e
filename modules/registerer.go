// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package modules

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/gagliardetto/solana-go"

	"github.com/luxfi/zapin/registry"
)

var (
	// registeredModules is a list of Module to preserve order
	// for deterministic iteration
	registeredModules = make([]Module, 0)
)

// ReservedProgram returns true if [id] belongs to a runtime or token program
// that can never be replaced by a module.
func ReservedProgram(id solana.PublicKey) bool {
	return registry.IsSystemProgram(id)
}

// RegisterModule registers a program module
func RegisterModule(stm Module) error {
	id := stm.ProgramID
	key := stm.ConfigKey

	if id.IsZero() {
		return fmt.Errorf("module %s has a zero program id", key)
	}
	if ReservedProgram(id) {
		return fmt.Errorf("program %s is reserved", id)
	}

	for _, registeredModule := range registeredModules {
		if registeredModule.ConfigKey == key {
			return fmt.Errorf("name %s already used by a program module", key)
		}
		if registeredModule.ProgramID.Equals(id) {
			return fmt.Errorf("program %s already used by a program module", id)
		}
	}
	// sort by program id to ensure deterministic iteration
	registeredModules = insertSortedByProgramID(registeredModules, stm)
	return nil
}

func GetModuleByProgramID(id solana.PublicKey) (Module, bool) {
	for _, stm := range registeredModules {
		if stm.ProgramID.Equals(id) {
			return stm, true
		}
	}
	return Module{}, false
}

func GetModule(key string) (Module, bool) {
	for _, stm := range registeredModules {
		if stm.ConfigKey == key {
			return stm, true
		}
	}
	return Module{}, false
}

func RegisteredModules() []Module {
	return registeredModules
}

func insertSortedByProgramID(data []Module, stm Module) []Module {
	data = append(data, stm)
	sort.Sort(moduleArray(data))
	return data
}

type moduleArray []Module

func (u moduleArray) Len() int { return len(u) }

func (u moduleArray) Swap(i, j int) { u[i], u[j] = u[j], u[i] }

func (u moduleArray) Less(i, j int) bool {
	return bytes.Compare(u[i].ProgramID[:], u[j].ProgramID[:]) < 0
}
