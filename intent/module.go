// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/luxfi/database"

	"github.com/luxfi/zapin/clmm"
	"github.com/luxfi/zapin/modules"
	"github.com/luxfi/zapin/registry"
)

var _ modules.Configurator = (*configurator)(nil)
var _ modules.Program = (*Program)(nil)

// ConfigKey is the key used in json config files to specify this program config.
const ConfigKey = "zapinConfig"

// ErrProgramUnbound is returned by Run before an executor is bound.
var ErrProgramUnbound = errors.New("zap-in program has no executor")

// ExecutorProgram is the singleton instance
var ExecutorProgram = &Program{}

// Module is the zap-in executor module
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	ProgramID:    registry.ExecutorProgramID,
	Program:      ExecutorProgram,
	Configurator: &configurator{},
}

func init() {
	for _, seed := range []string{OperationDataSeed, RegistrySeed, GlobalConfigSeed, PositionNFTSeed} {
		if err := ValidateSeed(seed); err != nil {
			panic(err)
		}
	}
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
}

type configurator struct{}

func (*configurator) MakeConfig() modules.Config {
	return new(Config)
}

func (*configurator) Configure(cfg modules.Config) error {
	config, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}
	if err := config.Verify(); err != nil {
		return err
	}
	ExecutorProgram.configure(config)
	return nil
}

// Config implements the modules.Config interface
type Config struct {
	Upgrade            modules.Upgrade  `json:"upgrade,omitempty"`
	ProgramID          solana.PublicKey `json:"programId,omitempty"`
	CLMMProgramID      solana.PublicKey `json:"clmmProgramId,omitempty"`
	FeeReceiver        solana.PublicKey `json:"feeReceiver,omitempty"`
	MaxActionSize      int              `json:"maxActionSize,omitempty"`
	DefaultSlippageBps uint16           `json:"defaultSlippageBps,omitempty"`
}

func (c *Config) Key() string {
	return ConfigKey
}

func (c *Config) Timestamp() *uint64 {
	return c.Upgrade.Timestamp()
}

func (c *Config) IsDisabled() bool {
	return c.Upgrade.Disable
}

func (c *Config) Equal(cfg modules.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade) &&
		c.ProgramID == other.ProgramID &&
		c.CLMMProgramID == other.CLMMProgramID &&
		c.FeeReceiver == other.FeeReceiver &&
		c.MaxActionSize == other.MaxActionSize &&
		c.DefaultSlippageBps == other.DefaultSlippageBps
}

func (c *Config) Verify() error {
	if c.MaxActionSize < 0 || c.MaxActionSize > MaxActionSize {
		return fmt.Errorf("maxActionSize %d outside [0, %d]", c.MaxActionSize, MaxActionSize)
	}
	if c.DefaultSlippageBps >= 10_000 {
		return fmt.Errorf("defaultSlippageBps %d must be below 10000", c.DefaultSlippageBps)
	}
	if !c.ProgramID.IsZero() && c.ProgramID.Equals(c.CLMMProgramID) {
		return fmt.Errorf("programId and clmmProgramId are both %s", c.ProgramID)
	}
	return nil
}

func (c *Config) options() Options {
	return Options{
		ProgramID:          c.ProgramID,
		CLMMProgramID:      c.CLMMProgramID,
		MaxActionSize:      c.MaxActionSize,
		DefaultSlippageBps: c.DefaultSlippageBps,
	}
}

// Program dispatches encoded instructions to an Executor.
type Program struct {
	mu       sync.RWMutex
	config   *Config
	executor *Executor
}

func (p *Program) configure(cfg *Config) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.config = cfg
}

// Bind creates an executor from the applied config and serves Run with it.
func (p *Program) Bind(db database.Database, ledger Ledger, client clmm.Client, sink EventSink) (*Executor, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	opts := Options{Sink: sink}
	if p.config != nil {
		opts = p.config.options()
		opts.Sink = sink
	}
	exec, err := NewExecutor(db, ledger, client, opts)
	if err != nil {
		return nil, err
	}
	p.executor = exec
	return exec, nil
}

// SetExecutor serves Run with exec.
func (p *Program) SetExecutor(exec *Executor) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executor = exec
}

// Executor returns the bound executor, if any.
func (p *Program) Executor() *Executor {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.executor
}

// Run executes the program
func (p *Program) Run(signer solana.PublicKey, input []byte) ([]byte, error) {
	p.mu.RLock()
	exec, cfg := p.executor, p.config
	p.mu.RUnlock()

	if cfg != nil && cfg.IsDisabled() {
		return nil, fmt.Errorf("%w: program disabled", ErrNotInitialized)
	}
	if exec == nil {
		return nil, ErrProgramUnbound
	}

	ix, err := DecodeInstruction(input)
	if err != nil {
		return nil, err
	}
	// initialize falls back to the configured fee receiver
	if initIx, ok := ix.(*InitializeInstruction); ok && initIx.FeeReceiver.IsZero() && cfg != nil {
		initIx.FeeReceiver = cfg.FeeReceiver
	}
	return ix.execute(exec, signer)
}
