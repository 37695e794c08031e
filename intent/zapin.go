// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/luxfi/zapin/clmm"
)

// ZapInAccounts are the custodial accounts of the ZapIn stages. Record may be
// zero to select the PDA of the transfer id.
type ZapInAccounts struct {
	Record              solana.PublicKey
	ProgramTokenAccount solana.PublicKey
	PDAToken0           solana.PublicKey
	PDAToken1           solana.PublicKey

	// RefundAccount receives an insufficient deposit during Prepare.
	RefundAccount solana.PublicKey
}

func (a *ZapInAccounts) side(zero bool) solana.PublicKey {
	if zero {
		return a.PDAToken0
	}
	return a.PDAToken1
}

// snapRange rounds a range onto the pool's tick-spacing grid. A range that
// collapses to a single tick is rejected.
func snapRange(pool *clmm.PoolState, tickLower, tickUpper int32) (int32, int32, error) {
	lower, err := clmm.SnapTick(tickLower, pool.TickSpacing)
	if err != nil {
		return 0, 0, err
	}
	upper, err := clmm.SnapTick(tickUpper, pool.TickSpacing)
	if err != nil {
		return 0, 0, err
	}
	if lower >= upper {
		return 0, 0, fmt.Errorf("%w: range [%d, %d) collapses on spacing %d", ErrInvalidTickRange, tickLower, tickUpper, pool.TickSpacing)
	}
	return lower, upper, nil
}

// PrepareZapIn snaps the range onto the pool grid, derives the CLMM accounts
// and moves the deposit into the side account of its mint. A deposit below
// amount_in is refunded and the intent finalized.
func (e *Executor) PrepareZapIn(signer solana.PublicKey, transferID [32]byte, acc *ZapInAccounts) error {
	return e.apply("prepare_zap_in", func(tx *txn) error {
		addr, rec, err := e.stageCall(tx, signer, transferID, acc.Record, OperationZapIn, StageNone)
		if err != nil {
			return err
		}
		params, err := rec.ZapIn()
		if err != nil {
			return err
		}
		if params.TickLower >= params.TickUpper {
			return fmt.Errorf("%w: %d >= %d", ErrInvalidTickRange, params.TickLower, params.TickUpper)
		}
		pool, err := e.clmm.Pool(params.Pool)
		if err != nil {
			return err
		}

		lower, upper, err := snapRange(pool, params.TickLower, params.TickUpper)
		if err != nil {
			return err
		}
		lowerStart, err := clmm.TickArrayStartIndex(lower, pool.TickSpacing)
		if err != nil {
			return err
		}
		upperStart, err := clmm.TickArrayStartIndex(upper, pool.TickSpacing)
		if err != nil {
			return err
		}
		arrayLower, err := clmm.TickArrayAddress(e.clmmProgramID, pool.Address, lowerStart)
		if err != nil {
			return err
		}
		arrayUpper, err := clmm.TickArrayAddress(e.clmmProgramID, pool.Address, upperStart)
		if err != nil {
			return err
		}
		protocol, err := clmm.ProtocolPositionAddress(e.clmmProgramID, pool.Address, lowerStart, upperStart)
		if err != nil {
			return err
		}

		custody, err := e.custodyAccount(acc.ProgramTokenAccount, addr, solana.PublicKey{})
		if err != nil {
			return err
		}
		var base bool
		switch {
		case custody.Mint.Equals(pool.TokenMint0):
			base = true
		case custody.Mint.Equals(pool.TokenMint1):
			base = false
		default:
			return fmt.Errorf("%w: deposit mint %s is not in pool %s", ErrInvalidMint, custody.Mint, pool.Address)
		}

		if rec.Amount < params.AmountIn {
			return e.refund(tx, addr, rec, acc, custody)
		}

		if _, err := e.custodyAccount(acc.PDAToken0, addr, pool.TokenMint0); err != nil {
			return err
		}
		if _, err := e.custodyAccount(acc.PDAToken1, addr, pool.TokenMint1); err != nil {
			return err
		}
		if err := e.transfer(acc.ProgramTokenAccount, acc.side(base), addr, rec.Amount); err != nil {
			return err
		}

		nftMint, _, err := PositionNFTMintAddress(e.programID, rec.Authority, pool.Address)
		if err != nil {
			return err
		}

		rec.TickLower = lower
		rec.TickUpper = upper
		rec.TickArrayLower = arrayLower
		rec.TickArrayUpper = arrayUpper
		rec.ProtocolPosition = protocol
		rec.PositionNFTMint = nftMint
		rec.BaseInputFlag = base
		if err := rec.advance(StagePrepared); err != nil {
			return err
		}
		return tx.storeRecord(addr, rec)
	})
}

func (e *Executor) refund(tx *txn, addr solana.PublicKey, rec *OperationRecord, acc *ZapInAccounts, custody *TokenAccount) error {
	if _, err := e.userAccount(acc.RefundAccount, rec.Authority, custody.Mint); err != nil {
		return err
	}
	if err := e.transfer(acc.ProgramTokenAccount, acc.RefundAccount, addr, rec.Amount); err != nil {
		return err
	}
	rec.terminate()
	if err := tx.storeRecord(addr, rec); err != nil {
		return err
	}
	tx.emit(RefundEvent{
		TransferIDHex: TransferIDHex(rec.TransferID),
		Amount:        rec.Amount,
		RefundAccount: acc.RefundAccount,
	})
	e.log.Info("insufficient deposit refunded", "transferID", TransferIDHex(rec.TransferID), "amount", rec.Amount)
	return nil
}

// SwapZapIn swaps the share of amount_in that balances the range into the
// other side.
func (e *Executor) SwapZapIn(signer solana.PublicKey, transferID [32]byte, acc *ZapInAccounts) error {
	return e.apply("swap_zap_in", func(tx *txn) error {
		addr, rec, err := e.stageCall(tx, signer, transferID, acc.Record, OperationZapIn, StagePrepared)
		if err != nil {
			return err
		}
		params, err := rec.ZapIn()
		if err != nil {
			return err
		}
		pool, err := e.clmm.Pool(params.Pool)
		if err != nil {
			return err
		}
		if _, err := e.custodyAccount(acc.PDAToken0, addr, pool.TokenMint0); err != nil {
			return err
		}
		if _, err := e.custodyAccount(acc.PDAToken1, addr, pool.TokenMint1); err != nil {
			return err
		}

		sa, sb, err := clmm.SqrtPricesAtTicks(rec.TickLower, rec.TickUpper)
		if err != nil {
			return err
		}
		base := rec.BaseInputFlag
		swapAmount, err := clmm.SwapSplit(params.AmountIn, sa, sb, pool.SqrtPriceX64, base)
		if err != nil {
			return err
		}
		minOut, err := clmm.MinAmountOut(
			swapAmount,
			pool.SqrtPriceX64,
			clmm.FeeRateToBps(pool.TradeFeeRate),
			clmm.FeeRateToBps(pool.ProtocolFeeRate),
			uint64(params.SlippageBps),
			base,
		)
		if err != nil {
			return err
		}

		if swapAmount > 0 {
			currentStart, err := clmm.TickArrayStartIndex(pool.TickCurrent, pool.TickSpacing)
			if err != nil {
				return err
			}
			currentArray, err := clmm.TickArrayAddress(e.clmmProgramID, pool.Address, currentStart)
			if err != nil {
				return err
			}
			err = e.clmm.SwapSingle(&clmm.SwapRequest{
				Signer:               clmm.Signer{Key: addr, Seeds: recordSeeds(rec.TransferID, rec.Bump)},
				Pool:                 pool.Address,
				InputTokenAccount:    acc.side(base),
				OutputTokenAccount:   acc.side(!base),
				InputMint:            pool.MintFor(base),
				OutputMint:           pool.MintFor(!base),
				TickArrays:           []solana.PublicKey{currentArray},
				Amount:               swapAmount,
				OtherAmountThreshold: minOut,
				SqrtPriceLimitX64:    uint128.Zero,
				IsBaseInput:          base,
			})
			if err != nil {
				return err
			}
		}

		e.log.Debug("zap-in swap",
			"transferID", TransferIDHex(rec.TransferID),
			"swapAmount", swapAmount,
			"minOut", minOut,
			"price", clmm.PriceFromSqrtX64(pool.SqrtPriceX64, pool.MintDecimals0, pool.MintDecimals1).String(),
		)
		if err := rec.advance(StageSwapped); err != nil {
			return err
		}
		return tx.storeRecord(addr, rec)
	})
}

// OpenPositionZapIn opens an empty position over the prepared range. The
// position NFT is minted to the intent authority.
func (e *Executor) OpenPositionZapIn(signer solana.PublicKey, transferID [32]byte, acc *ZapInAccounts) error {
	return e.apply("open_position_zap_in", func(tx *txn) error {
		addr, rec, err := e.stageCall(tx, signer, transferID, acc.Record, OperationZapIn, StageSwapped)
		if err != nil {
			return err
		}
		params, err := rec.ZapIn()
		if err != nil {
			return err
		}
		pool, err := e.clmm.Pool(params.Pool)
		if err != nil {
			return err
		}

		if !e.ledger.MintExists(rec.PositionNFTMint) {
			if err := e.ledger.CreateMint(rec.PositionNFTMint, addr, 0); err != nil {
				return err
			}
		}
		nftAccount, _, err := solana.FindAssociatedTokenAddress(rec.Authority, rec.PositionNFTMint)
		if err != nil {
			return err
		}
		lowerStart, err := clmm.TickArrayStartIndex(rec.TickLower, pool.TickSpacing)
		if err != nil {
			return err
		}
		upperStart, err := clmm.TickArrayStartIndex(rec.TickUpper, pool.TickSpacing)
		if err != nil {
			return err
		}

		baseFlag := true
		res, err := e.clmm.OpenPosition(&clmm.OpenPositionRequest{
			Signer:              clmm.Signer{Key: addr, Seeds: recordSeeds(rec.TransferID, rec.Bump)},
			Pool:                pool.Address,
			PositionNFTOwner:    rec.Authority,
			PositionNFTMint:     rec.PositionNFTMint,
			PositionNFTAccount:  nftAccount,
			ProtocolPosition:    rec.ProtocolPosition,
			TickArrayLower:      rec.TickArrayLower,
			TickArrayUpper:      rec.TickArrayUpper,
			TokenAccount0:       acc.PDAToken0,
			TokenAccount1:       acc.PDAToken1,
			TickLower:           rec.TickLower,
			TickUpper:           rec.TickUpper,
			TickArrayLowerStart: lowerStart,
			TickArrayUpperStart: upperStart,
			Liquidity:           uint128.Zero,
			WithMetadata:        false,
			BaseFlag:            &baseFlag,
		})
		if err != nil {
			return err
		}
		if rec.PersonalPosition.IsZero() {
			rec.PersonalPosition = res.PersonalPosition
		}

		if err := rec.advance(StageOpened); err != nil {
			return err
		}
		return tx.storeRecord(addr, rec)
	})
}

// IncreaseLiquidityZapIn deposits both side balances into the position and
// reports what the pool consumed.
func (e *Executor) IncreaseLiquidityZapIn(signer solana.PublicKey, transferID [32]byte, acc *ZapInAccounts) error {
	return e.apply("increase_liquidity_zap_in", func(tx *txn) error {
		addr, rec, err := e.stageCall(tx, signer, transferID, acc.Record, OperationZapIn, StageOpened)
		if err != nil {
			return err
		}
		params, err := rec.ZapIn()
		if err != nil {
			return err
		}
		pool, err := e.clmm.Pool(params.Pool)
		if err != nil {
			return err
		}
		side0, err := e.custodyAccount(acc.PDAToken0, addr, pool.TokenMint0)
		if err != nil {
			return err
		}
		side1, err := e.custodyAccount(acc.PDAToken1, addr, pool.TokenMint1)
		if err != nil {
			return err
		}
		pre0, pre1 := side0.Amount, side1.Amount

		nftAccount, _, err := solana.FindAssociatedTokenAddress(rec.Authority, rec.PositionNFTMint)
		if err != nil {
			return err
		}
		baseFlag := rec.BaseInputFlag
		err = e.clmm.IncreaseLiquidity(&clmm.IncreaseLiquidityRequest{
			Signer:             clmm.Signer{Key: addr, Seeds: recordSeeds(rec.TransferID, rec.Bump)},
			Pool:               pool.Address,
			PositionNFTMint:    rec.PositionNFTMint,
			PositionNFTAccount: nftAccount,
			PersonalPosition:   rec.PersonalPosition,
			ProtocolPosition:   rec.ProtocolPosition,
			TickArrayLower:     rec.TickArrayLower,
			TickArrayUpper:     rec.TickArrayUpper,
			TokenAccount0:      acc.PDAToken0,
			TokenAccount1:      acc.PDAToken1,
			Liquidity:          uint128.Zero,
			Amount0Max:         pre0,
			Amount1Max:         pre1,
			BaseFlag:           &baseFlag,
		})
		if err != nil {
			return err
		}

		post0, err := e.balance(acc.PDAToken0)
		if err != nil {
			return err
		}
		post1, err := e.balance(acc.PDAToken1)
		if err != nil {
			return err
		}
		if post0 > pre0 || post1 > pre1 {
			return fmt.Errorf("%w: side balances grew during increase", ErrInvalidAmount)
		}

		if err := rec.advance(StageLiquidityAdded); err != nil {
			return err
		}
		if err := tx.storeRecord(addr, rec); err != nil {
			return err
		}
		tx.emit(LiquidityAdded{
			TransferID: rec.TransferID,
			Token0Used: pre0 - post0,
			Token1Used: pre1 - post1,
		})
		return nil
	})
}

// FinalizeZapIn marks the intent executed. Dust left in custody stays there.
func (e *Executor) FinalizeZapIn(signer solana.PublicKey, transferID [32]byte, acc *ZapInAccounts) error {
	return e.apply("finalize_zap_in", func(tx *txn) error {
		addr, rec, err := e.stageCall(tx, signer, transferID, acc.Record, OperationZapIn, StageLiquidityAdded)
		if err != nil {
			return err
		}
		if err := rec.advance(StageFinalized); err != nil {
			return err
		}
		if err := tx.storeRecord(addr, rec); err != nil {
			return err
		}
		e.log.Info("zap-in finalized", "transferID", TransferIDHex(rec.TransferID), "position", rec.PersonalPosition)
		return nil
	})
}
