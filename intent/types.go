// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// MaxActionSize bounds the encoded action payload stored in a record.
const MaxActionSize = 1024

// actionHeaderSize is the tag byte plus the u32 payload length.
const actionHeaderSize = 5

// Stage is the position of an intent in its pipeline.
type Stage uint8

const (
	StageNone Stage = iota
	StagePrepared
	StageSwapped
	StageOpened
	StageLiquidityAdded
	StageFinalized
)

func (s Stage) String() string {
	switch s {
	case StageNone:
		return "None"
	case StagePrepared:
		return "Prepared"
	case StageSwapped:
		return "Swapped"
	case StageOpened:
		return "Opened"
	case StageLiquidityAdded:
		return "LiquidityAdded"
	case StageFinalized:
		return "Finalized"
	default:
		return fmt.Sprintf("Stage(%d)", uint8(s))
	}
}

// OperationType selects the pipeline an intent runs through.
type OperationType uint8

const (
	OperationTransfer OperationType = iota
	OperationZapIn
)

func (o OperationType) String() string {
	switch o {
	case OperationTransfer:
		return "Transfer"
	case OperationZapIn:
		return "ZapIn"
	default:
		return fmt.Sprintf("OperationType(%d)", uint8(o))
	}
}

// Action is the typed parameter set of an intent. The tag of an action always
// matches the operation type it is valid for.
type Action interface {
	Kind() OperationType
	encode(w *writer)
}

// TransferParams moves the deposit to a recipient.
type TransferParams struct {
	Amount    uint64
	Recipient solana.PublicKey
}

func (*TransferParams) Kind() OperationType { return OperationTransfer }

func (p *TransferParams) encode(w *writer) {
	w.u64(p.Amount)
	w.key(p.Recipient)
}

// ZapInParams opens a concentrated liquidity position from a single-sided
// deposit.
type ZapInParams struct {
	AmountIn    uint64
	Pool        solana.PublicKey
	TickLower   int32
	TickUpper   int32
	SlippageBps uint16
}

func (*ZapInParams) Kind() OperationType { return OperationZapIn }

func (p *ZapInParams) encode(w *writer) {
	w.u64(p.AmountIn)
	w.key(p.Pool)
	w.i32(p.TickLower)
	w.i32(p.TickUpper)
	w.u16(p.SlippageBps)
}

// EncodeAction serializes a as tag || u32 length || payload.
func EncodeAction(a Action) ([]byte, error) {
	if a == nil {
		return nil, fmt.Errorf("%w: nil action", ErrInvalidParams)
	}
	payload := newWriter()
	a.encode(payload)
	body, err := payload.bytes()
	if err != nil {
		return nil, err
	}
	if len(body) > MaxActionSize {
		return nil, fmt.Errorf("%w: action payload of %d bytes exceeds %d", ErrInvalidParams, len(body), MaxActionSize)
	}
	w := newWriter()
	writeAction(w, a.Kind(), body)
	return w.bytes()
}

func writeAction(w *writer, tag OperationType, body []byte) {
	w.u8(uint8(tag))
	w.blob(body)
}

// DecodeAction parses the output of EncodeAction. Unknown tags and oversize
// payloads are rejected.
func DecodeAction(data []byte) (Action, error) {
	r := newReader(data)
	a := readAction(r)
	if err := r.done(true); err != nil {
		return nil, err
	}
	return a, nil
}

func readAction(r *reader) Action {
	tag := r.u8()
	body := r.blob(MaxActionSize)
	if r.err != nil {
		return nil
	}

	pr := newReader(body)
	var a Action
	switch OperationType(tag) {
	case OperationTransfer:
		a = &TransferParams{
			Amount:    pr.u64(),
			Recipient: pr.key(),
		}
	case OperationZapIn:
		a = &ZapInParams{
			AmountIn:    pr.u64(),
			Pool:        pr.key(),
			TickLower:   pr.i32(),
			TickUpper:   pr.i32(),
			SlippageBps: pr.u16(),
		}
	default:
		r.err = fmt.Errorf("%w: unknown action tag %d", ErrInvalidParams, tag)
		return nil
	}
	if err := pr.done(true); err != nil {
		r.err = err
		return nil
	}
	return a
}
