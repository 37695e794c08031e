// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
)

// Instruction names
const (
	MethodInitialize             = "initialize"
	MethodUpdateConfig           = "update_config"
	MethodDeposit                = "deposit"
	MethodExecuteTransfer        = "execute_transfer"
	MethodPrepareZapIn           = "prepare_zap_in"
	MethodSwapZapIn              = "swap_zap_in"
	MethodOpenPositionZapIn      = "open_position_zap_in"
	MethodIncreaseLiquidityZapIn = "increase_liquidity_zap_in"
	MethodFinalizeZapIn          = "finalize_zap_in"
	MethodCancel                 = "cancel"
	MethodWithdraw               = "withdraw"
	MethodClaim                  = "claim"
	MethodModifyPDAAuthority     = "modify_pda_authority"
)

// Discriminator returns the Anchor sighash of a global instruction name.
func Discriminator(name string) [8]byte {
	return bin.SighashTypeID(bin.SIGHASH_GLOBAL_NAMESPACE, name)
}

// Instruction is a decoded program call: arguments followed by accounts, both
// Borsh encoded after the discriminator.
type Instruction interface {
	Method() string
	encode(w *writer)
	decode(r *reader)
	execute(e *Executor, signer solana.PublicKey) ([]byte, error)
}

var instructions = map[[8]byte]func() Instruction{}

func registerInstruction(name string, factory func() Instruction) {
	d := Discriminator(name)
	if _, ok := instructions[d]; ok {
		panic(fmt.Sprintf("duplicate instruction discriminator for %s", name))
	}
	instructions[d] = factory
}

func init() {
	registerInstruction(MethodInitialize, func() Instruction { return &InitializeInstruction{} })
	registerInstruction(MethodUpdateConfig, func() Instruction { return &UpdateConfigInstruction{} })
	registerInstruction(MethodDeposit, func() Instruction { return &DepositInstruction{} })
	registerInstruction(MethodExecuteTransfer, func() Instruction { return &ExecuteTransferInstruction{} })
	for _, m := range []string{
		MethodPrepareZapIn,
		MethodSwapZapIn,
		MethodOpenPositionZapIn,
		MethodIncreaseLiquidityZapIn,
		MethodFinalizeZapIn,
	} {
		registerInstruction(m, func() Instruction { return &ZapInInstruction{Step: m} })
	}
	registerInstruction(MethodCancel, func() Instruction { return &CancelInstruction{} })
	registerInstruction(MethodWithdraw, func() Instruction { return &WithdrawInstruction{} })
	registerInstruction(MethodClaim, func() Instruction { return &ClaimInstruction{} })
	registerInstruction(MethodModifyPDAAuthority, func() Instruction { return &ModifyPDAAuthorityInstruction{} })
}

// EncodeInstruction serializes ix with its discriminator.
func EncodeInstruction(ix Instruction) ([]byte, error) {
	d := Discriminator(ix.Method())
	if _, ok := instructions[d]; !ok {
		return nil, fmt.Errorf("%w: unknown method %q", ErrInvalidParams, ix.Method())
	}
	w := newWriter()
	w.raw(d[:])
	ix.encode(w)
	return w.bytes()
}

// DecodeInstruction parses input produced by EncodeInstruction.
func DecodeInstruction(input []byte) (Instruction, error) {
	if len(input) < 8 {
		return nil, fmt.Errorf("%w: input too short", ErrInvalidParams)
	}
	var d [8]byte
	copy(d[:], input[:8])
	factory, ok := instructions[d]
	if !ok {
		return nil, fmt.Errorf("%w: unknown instruction %x", ErrInvalidParams, d)
	}
	ix := factory()
	r := newReader(input[8:])
	ix.decode(r)
	if err := r.done(true); err != nil {
		return nil, fmt.Errorf("%s: %w", ix.Method(), err)
	}
	return ix, nil
}

type InitializeInstruction struct {
	FeeReceiver solana.PublicKey
}

func (*InitializeInstruction) Method() string      { return MethodInitialize }
func (ix *InitializeInstruction) encode(w *writer) { w.key(ix.FeeReceiver) }
func (ix *InitializeInstruction) decode(r *reader) { ix.FeeReceiver = r.key() }

func (ix *InitializeInstruction) execute(e *Executor, signer solana.PublicKey) ([]byte, error) {
	return nil, e.Initialize(signer, ix.FeeReceiver)
}

type UpdateConfigInstruction struct {
	FeeReceiver solana.PublicKey
}

func (*UpdateConfigInstruction) Method() string      { return MethodUpdateConfig }
func (ix *UpdateConfigInstruction) encode(w *writer) { w.key(ix.FeeReceiver) }
func (ix *UpdateConfigInstruction) decode(r *reader) { ix.FeeReceiver = r.key() }

func (ix *UpdateConfigInstruction) execute(e *Executor, signer solana.PublicKey) ([]byte, error) {
	return nil, e.UpdateConfig(signer, ix.FeeReceiver)
}

// DepositInstruction returns the record address on success.
type DepositInstruction struct {
	Args     DepositArgs
	Accounts DepositAccounts
}

func (*DepositInstruction) Method() string { return MethodDeposit }

func (ix *DepositInstruction) encode(w *writer) {
	w.raw(ix.Args.TransferID[:])
	w.u8(uint8(ix.Args.OperationType))
	if ix.Args.Action == nil {
		w.err = fmt.Errorf("%w: nil action", ErrInvalidParams)
		return
	}
	action, err := EncodeAction(ix.Args.Action)
	if err != nil {
		w.err = err
		return
	}
	w.raw(action)
	w.u64(ix.Args.Amount)
	w.key(ix.Args.CA)
	w.key(ix.Args.Executor)
	w.key(ix.Accounts.AuthorityATA)
	w.key(ix.Accounts.ProgramTokenAccount)
	w.key(ix.Accounts.TokenProgram)
}

func (ix *DepositInstruction) decode(r *reader) {
	ix.Args.TransferID = r.id()
	ix.Args.OperationType = OperationType(r.u8())
	ix.Args.Action = readAction(r)
	ix.Args.Amount = r.u64()
	ix.Args.CA = r.key()
	ix.Args.Executor = r.key()
	ix.Accounts.AuthorityATA = r.key()
	ix.Accounts.ProgramTokenAccount = r.key()
	ix.Accounts.TokenProgram = r.key()
}

func (ix *DepositInstruction) execute(e *Executor, signer solana.PublicKey) ([]byte, error) {
	addr, err := e.Deposit(signer, &ix.Args, &ix.Accounts)
	if err != nil {
		return nil, err
	}
	return addr.Bytes(), nil
}

type ExecuteTransferInstruction struct {
	TransferID [32]byte
	Accounts   TransferAccounts
}

func (*ExecuteTransferInstruction) Method() string { return MethodExecuteTransfer }

func (ix *ExecuteTransferInstruction) encode(w *writer) {
	w.raw(ix.TransferID[:])
	w.key(ix.Accounts.Record)
	w.key(ix.Accounts.ProgramTokenAccount)
	w.key(ix.Accounts.RecipientAccount)
}

func (ix *ExecuteTransferInstruction) decode(r *reader) {
	ix.TransferID = r.id()
	ix.Accounts.Record = r.key()
	ix.Accounts.ProgramTokenAccount = r.key()
	ix.Accounts.RecipientAccount = r.key()
}

func (ix *ExecuteTransferInstruction) execute(e *Executor, signer solana.PublicKey) ([]byte, error) {
	return nil, e.ExecuteTransfer(signer, ix.TransferID, &ix.Accounts)
}

// ZapInInstruction is any of the five ZapIn stage calls, selected by Step.
type ZapInInstruction struct {
	Step       string
	TransferID [32]byte
	Accounts   ZapInAccounts
}

func (ix *ZapInInstruction) Method() string { return ix.Step }

func (ix *ZapInInstruction) encode(w *writer) {
	w.raw(ix.TransferID[:])
	w.key(ix.Accounts.Record)
	w.key(ix.Accounts.ProgramTokenAccount)
	w.key(ix.Accounts.PDAToken0)
	w.key(ix.Accounts.PDAToken1)
	w.key(ix.Accounts.RefundAccount)
}

func (ix *ZapInInstruction) decode(r *reader) {
	ix.TransferID = r.id()
	ix.Accounts.Record = r.key()
	ix.Accounts.ProgramTokenAccount = r.key()
	ix.Accounts.PDAToken0 = r.key()
	ix.Accounts.PDAToken1 = r.key()
	ix.Accounts.RefundAccount = r.key()
}

func (ix *ZapInInstruction) execute(e *Executor, signer solana.PublicKey) ([]byte, error) {
	var stage func(solana.PublicKey, [32]byte, *ZapInAccounts) error
	switch ix.Step {
	case MethodPrepareZapIn:
		stage = e.PrepareZapIn
	case MethodSwapZapIn:
		stage = e.SwapZapIn
	case MethodOpenPositionZapIn:
		stage = e.OpenPositionZapIn
	case MethodIncreaseLiquidityZapIn:
		stage = e.IncreaseLiquidityZapIn
	case MethodFinalizeZapIn:
		stage = e.FinalizeZapIn
	default:
		return nil, fmt.Errorf("%w: unknown zap-in step %q", ErrInvalidParams, ix.Step)
	}
	return nil, stage(signer, ix.TransferID, &ix.Accounts)
}

type CancelInstruction struct {
	TransferID [32]byte
	Accounts   CancelAccounts
}

func (*CancelInstruction) Method() string { return MethodCancel }

func (ix *CancelInstruction) encode(w *writer) {
	w.raw(ix.TransferID[:])
	w.key(ix.Accounts.Record)
	w.key(ix.Accounts.ProgramTokenAccount)
	w.key(ix.Accounts.PDAToken0)
	w.key(ix.Accounts.PDAToken1)
}

func (ix *CancelInstruction) decode(r *reader) {
	ix.TransferID = r.id()
	ix.Accounts.Record = r.key()
	ix.Accounts.ProgramTokenAccount = r.key()
	ix.Accounts.PDAToken0 = r.key()
	ix.Accounts.PDAToken1 = r.key()
}

func (ix *CancelInstruction) execute(e *Executor, signer solana.PublicKey) ([]byte, error) {
	return nil, e.Cancel(signer, ix.TransferID, &ix.Accounts)
}

func encodePayout(w *writer, p *PayoutParams) {
	w.boolean(p.WantBase)
	w.u16(p.SlippageBps)
	w.u64(p.MinPayout)
	w.u16(p.FeePercentage)
}

func decodePayout(r *reader, p *PayoutParams) {
	p.WantBase = r.boolean()
	p.SlippageBps = r.u16()
	p.MinPayout = r.u64()
	p.FeePercentage = r.u16()
}

func encodePositionAccounts(w *writer, a *PositionAccounts) {
	w.key(a.Pool)
	w.key(a.PositionNFTMint)
	w.key(a.PositionNFTAccount)
	w.key(a.UserToken0)
	w.key(a.UserToken1)
	w.key(a.RecipientTokenAccount)
	w.key(a.FeeReceiverATA)
}

func decodePositionAccounts(r *reader, a *PositionAccounts) {
	a.Pool = r.key()
	a.PositionNFTMint = r.key()
	a.PositionNFTAccount = r.key()
	a.UserToken0 = r.key()
	a.UserToken1 = r.key()
	a.RecipientTokenAccount = r.key()
	a.FeeReceiverATA = r.key()
}

type WithdrawInstruction struct {
	Params   WithdrawParams
	Accounts PositionAccounts
}

func (*WithdrawInstruction) Method() string { return MethodWithdraw }

func (ix *WithdrawInstruction) encode(w *writer) {
	encodePayout(w, &ix.Params.PayoutParams)
	w.u64(ix.Params.LiquidityToBurn)
	encodePositionAccounts(w, &ix.Accounts)
}

func (ix *WithdrawInstruction) decode(r *reader) {
	decodePayout(r, &ix.Params.PayoutParams)
	ix.Params.LiquidityToBurn = r.u64()
	decodePositionAccounts(r, &ix.Accounts)
}

func (ix *WithdrawInstruction) execute(e *Executor, signer solana.PublicKey) ([]byte, error) {
	return nil, e.Withdraw(signer, &ix.Params, &ix.Accounts)
}

type ClaimInstruction struct {
	Params   ClaimParams
	Accounts PositionAccounts
}

func (*ClaimInstruction) Method() string { return MethodClaim }

func (ix *ClaimInstruction) encode(w *writer) {
	encodePayout(w, &ix.Params.PayoutParams)
	encodePositionAccounts(w, &ix.Accounts)
}

func (ix *ClaimInstruction) decode(r *reader) {
	decodePayout(r, &ix.Params.PayoutParams)
	decodePositionAccounts(r, &ix.Accounts)
}

func (ix *ClaimInstruction) execute(e *Executor, signer solana.PublicKey) ([]byte, error) {
	return nil, e.Claim(signer, &ix.Params, &ix.Accounts)
}

type ModifyPDAAuthorityInstruction struct {
	TransferID   [32]byte
	NewAuthority solana.PublicKey
	Record       solana.PublicKey
}

func (*ModifyPDAAuthorityInstruction) Method() string { return MethodModifyPDAAuthority }

func (ix *ModifyPDAAuthorityInstruction) encode(w *writer) {
	w.raw(ix.TransferID[:])
	w.key(ix.NewAuthority)
	w.key(ix.Record)
}

func (ix *ModifyPDAAuthorityInstruction) decode(r *reader) {
	ix.TransferID = r.id()
	ix.NewAuthority = r.key()
	ix.Record = r.key()
}

func (ix *ModifyPDAAuthorityInstruction) execute(e *Executor, signer solana.PublicKey) ([]byte, error) {
	return nil, e.ModifyPDAAuthority(signer, ix.TransferID, ix.NewAuthority, ix.Record)
}
