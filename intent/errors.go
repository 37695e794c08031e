// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"errors"
	"fmt"

	"github.com/luxfi/zapin/clmm"
)

// ErrorCode is the numerically stable error kind reported to callers.
type ErrorCode uint32

const (
	CodeNotInitialized ErrorCode = 6000 + iota
	CodeInvalidAmount
	CodeInvalidTransferID
	CodeAlreadyExecuted
	CodeUnauthorized
	CodeInvalidMint
	CodeInvalidTokenProgram
	CodeInvalidParams
	CodeInvalidTickRange
	CodeInvalidProgramAccount
	CodeNumberCastError
)

var codeNames = map[ErrorCode]string{
	CodeNotInitialized:        "NotInitialized",
	CodeInvalidAmount:         "InvalidAmount",
	CodeInvalidTransferID:     "InvalidTransferId",
	CodeAlreadyExecuted:       "AlreadyExecuted",
	CodeUnauthorized:          "Unauthorized",
	CodeInvalidMint:           "InvalidMint",
	CodeInvalidTokenProgram:   "InvalidTokenProgram",
	CodeInvalidParams:         "InvalidParams",
	CodeInvalidTickRange:      "InvalidTickRange",
	CodeInvalidProgramAccount: "InvalidProgramAccount",
	CodeNumberCastError:       "NumberCastError",
}

func (c ErrorCode) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", uint32(c))
}

// Lifecycle errors
var (
	ErrNotInitialized  = errors.New("not initialized")
	ErrAlreadyExecuted = errors.New("already executed")
)

// Input errors
var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidTransferID = errors.New("invalid transfer id")
	ErrInvalidParams     = errors.New("invalid params")
	ErrInvalidTickRange  = clmm.ErrInvalidTickRange
	ErrNumberCast        = clmm.ErrNumberCast
)

// ErrDuplicateTransferID is reported when a transfer id was already consumed.
var ErrDuplicateTransferID = fmt.Errorf("%w: duplicate transfer id", ErrInvalidTransferID)

// Account errors
var (
	ErrUnauthorized          = errors.New("unauthorized")
	ErrInvalidMint           = errors.New("invalid mint")
	ErrInvalidTokenProgram   = errors.New("invalid token program")
	ErrInvalidProgramAccount = errors.New("invalid program account")
)

var errorCodes = []struct {
	err  error
	code ErrorCode
}{
	{ErrNotInitialized, CodeNotInitialized},
	{ErrInvalidAmount, CodeInvalidAmount},
	{ErrInvalidTransferID, CodeInvalidTransferID},
	{ErrAlreadyExecuted, CodeAlreadyExecuted},
	{ErrUnauthorized, CodeUnauthorized},
	{ErrInvalidMint, CodeInvalidMint},
	{ErrInvalidTokenProgram, CodeInvalidTokenProgram},
	{ErrInvalidTickRange, CodeInvalidTickRange},
	{ErrInvalidProgramAccount, CodeInvalidProgramAccount},
	{ErrNumberCast, CodeNumberCastError},
	{ErrInvalidParams, CodeInvalidParams},
	{clmm.ErrInvalidTickSpacing, CodeInvalidParams},
	{clmm.ErrInvalidSqrtPrice, CodeInvalidParams},
	{clmm.ErrZeroRatio, CodeInvalidParams},
}

// CodeOf returns the stable code of err. Collaborator failures have no code
// and are reported verbatim.
func CodeOf(err error) (ErrorCode, bool) {
	if err == nil {
		return 0, false
	}
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code, true
		}
	}
	return 0, false
}
