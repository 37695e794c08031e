// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"sync"

	"github.com/gagliardetto/solana-go"
	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"lukechampine.com/uint128"
)

// TransferIDHex renders id as lowercase hex without prefix.
func TransferIDHex(id [32]byte) string {
	return common.Bytes2Hex(id[:])
}

// Event is emitted by a committed operation.
type Event interface {
	EventName() string
}

type DepositEvent struct {
	TransferIDHex string
	Amount        uint64
	Recipient     solana.PublicKey
}

type ExecutorAssigned struct {
	TransferIDHex string
	Executor      solana.PublicKey
}

// LiquidityAdded reports the token amounts consumed by IncreaseLiquidity.
type LiquidityAdded struct {
	TransferID [32]byte
	Token0Used uint64
	Token1Used uint64
}

type ClaimEvent struct {
	Pool        solana.PublicKey
	Beneficiary solana.PublicKey
	Mint        solana.PublicKey
	Amount      uint64
}

type WithdrawEvent struct {
	Pool        solana.PublicKey
	Beneficiary solana.PublicKey
	Mint        solana.PublicKey
	Liquidity   uint128.Uint128
	Amount      uint64
	Fee         uint64
}

// RefundEvent reports an insufficient deposit returned during Prepare.
type RefundEvent struct {
	TransferIDHex string
	Amount        uint64
	RefundAccount solana.PublicKey
}

type TransferEvent struct {
	TransferIDHex string
	Amount        uint64
	Recipient     solana.PublicKey
}

type CancelEvent struct {
	TransferIDHex string
	Canceller     solana.PublicKey
	Stage         Stage
	Returned      uint64
}

func (DepositEvent) EventName() string     { return "DepositEvent" }
func (ExecutorAssigned) EventName() string { return "ExecutorAssigned" }
func (LiquidityAdded) EventName() string   { return "LiquidityAdded" }
func (ClaimEvent) EventName() string       { return "ClaimEvent" }
func (WithdrawEvent) EventName() string    { return "WithdrawEvent" }
func (RefundEvent) EventName() string      { return "RefundEvent" }
func (TransferEvent) EventName() string    { return "TransferEvent" }
func (CancelEvent) EventName() string      { return "CancelEvent" }

// EventSink receives committed events in emission order.
type EventSink interface {
	Emit(ev Event)
}

// logSink writes events to a logger.
type logSink struct {
	log log.Logger
}

func (s logSink) Emit(ev Event) {
	s.log.Info("event", "name", ev.EventName(), "data", ev)
}

// EventLog is an in-memory EventSink.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *EventLog) Emit(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

// Events returns a copy of the recorded events.
func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Named returns the recorded events called name.
func (l *EventLog) Named(name string) []Event {
	var out []Event
	for _, ev := range l.Events() {
		if ev.EventName() == name {
			out = append(out, ev)
		}
	}
	return out
}
