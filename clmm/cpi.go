// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clmm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Invoker executes an instruction inline, signing with the PDA seeds when
// present.
type Invoker interface {
	Invoke(ix solana.Instruction, signerSeeds [][]byte) error
}

// CPIClient implements Client by encoding CLMM instructions and handing them
// to an Invoker. Account reads go through the embedded Reader.
type CPIClient struct {
	Reader

	programID solana.PublicKey
	invoker   Invoker
}

var _ Client = (*CPIClient)(nil)

// NewCPIClient creates a client for the CLMM deployed at programID.
func NewCPIClient(programID solana.PublicKey, reader Reader, invoker Invoker) *CPIClient {
	return &CPIClient{
		Reader:    reader,
		programID: programID,
		invoker:   invoker,
	}
}

// ProgramID returns the CLMM program id.
func (c *CPIClient) ProgramID() solana.PublicKey {
	return c.programID
}

// Snapshot checkpoints the invoker when it journals its own state. A
// runtime without a journal reverts the whole transaction on failure.
func (c *CPIClient) Snapshot() int {
	if j, ok := c.invoker.(Journal); ok {
		return j.Snapshot()
	}
	return 0
}

func (c *CPIClient) RevertToSnapshot(id int) {
	if j, ok := c.invoker.(Journal); ok {
		j.RevertToSnapshot(id)
	}
}

func (c *CPIClient) invoke(name string, ix solana.Instruction, s Signer) error {
	if err := c.invoker.Invoke(ix, s.Seeds); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvokeFailed, name, err)
	}
	return nil
}

func (c *CPIClient) SwapSingle(req *SwapRequest) error {
	pool, err := c.Pool(req.Pool)
	if err != nil {
		return err
	}
	ix, err := NewSwapV2Instruction(c.programID, pool, req)
	if err != nil {
		return err
	}
	return c.invoke("swap_v2", ix, req.Signer)
}

func (c *CPIClient) OpenPosition(req *OpenPositionRequest) (*OpenPositionResult, error) {
	pool, err := c.Pool(req.Pool)
	if err != nil {
		return nil, err
	}
	personal, err := PersonalPositionAddress(c.programID, req.PositionNFTMint)
	if err != nil {
		return nil, err
	}
	ix, err := NewOpenPositionV2Instruction(c.programID, pool, personal, req)
	if err != nil {
		return nil, err
	}
	if err := c.invoke("open_position_v2", ix, req.Signer); err != nil {
		return nil, err
	}
	return &OpenPositionResult{PersonalPosition: personal}, nil
}

func (c *CPIClient) IncreaseLiquidity(req *IncreaseLiquidityRequest) error {
	pool, err := c.Pool(req.Pool)
	if err != nil {
		return err
	}
	ix, err := NewIncreaseLiquidityV2Instruction(c.programID, pool, req)
	if err != nil {
		return err
	}
	return c.invoke("increase_liquidity_v2", ix, req.Signer)
}

func (c *CPIClient) DecreaseLiquidity(req *DecreaseLiquidityRequest) error {
	pool, err := c.Pool(req.Pool)
	if err != nil {
		return err
	}
	ix, err := NewDecreaseLiquidityV2Instruction(c.programID, pool, req)
	if err != nil {
		return err
	}
	return c.invoke("decrease_liquidity_v2", ix, req.Signer)
}
