// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"lukechampine.com/uint128"

	"github.com/luxfi/zapin/clmm"
)

// PayoutParams select how the proceeds of a withdraw or claim are paid.
type PayoutParams struct {
	WantBase      bool
	SlippageBps   uint16
	MinPayout     uint64
	FeePercentage uint16
}

// WithdrawParams are the arguments of Withdraw. LiquidityToBurn zero burns
// the whole position.
type WithdrawParams struct {
	PayoutParams
	LiquidityToBurn uint64
}

// ClaimParams are the arguments of Claim.
type ClaimParams struct {
	PayoutParams
}

// PositionAccounts are the accounts of Withdraw and Claim. UserToken0 and
// UserToken1 receive the decreased liquidity and are the source of the
// payout transfers.
type PositionAccounts struct {
	Pool                  solana.PublicKey
	PositionNFTMint       solana.PublicKey
	PositionNFTAccount    solana.PublicKey
	UserToken0            solana.PublicKey
	UserToken1            solana.PublicKey
	RecipientTokenAccount solana.PublicKey
	FeeReceiverATA        solana.PublicKey
}

func (a *PositionAccounts) vault(zero bool) solana.PublicKey {
	if zero {
		return a.UserToken0
	}
	return a.UserToken1
}

// positionContext is the validated state shared by Withdraw and Claim.
type positionContext struct {
	user     solana.PublicKey
	cfg      *GlobalConfig
	pool     *clmm.PoolState
	position *clmm.PersonalPosition
	wantMint solana.PublicKey
	acc      *PositionAccounts
}

func (e *Executor) loadPosition(tx *txn, user solana.PublicKey, wantBase bool, acc *PositionAccounts) (*positionContext, error) {
	cfg, err := tx.loadConfig(e.configAddr)
	if err != nil {
		return nil, err
	}
	pool, err := e.clmm.Pool(acc.Pool)
	if err != nil {
		return nil, err
	}
	position, err := e.clmm.PositionByNFT(acc.PositionNFTMint)
	if err != nil {
		return nil, err
	}
	if !position.Pool.Equals(pool.Address) {
		return nil, fmt.Errorf("%w: position %s belongs to pool %s", ErrInvalidParams, position.Address, position.Pool)
	}

	nft, err := e.userAccount(acc.PositionNFTAccount, user, position.NFTMint)
	if err != nil {
		return nil, err
	}
	if nft.Amount == 0 {
		return nil, fmt.Errorf("%w: nft account %s is empty", ErrInvalidParams, acc.PositionNFTAccount)
	}

	wantMint := pool.MintFor(wantBase)
	if _, err := e.userAccount(acc.RecipientTokenAccount, user, wantMint); err != nil {
		return nil, err
	}
	if _, err := e.userAccount(acc.UserToken0, user, pool.TokenMint0); err != nil {
		return nil, err
	}
	if _, err := e.userAccount(acc.UserToken1, user, pool.TokenMint1); err != nil {
		return nil, err
	}

	return &positionContext{
		user:     user,
		cfg:      cfg,
		pool:     pool,
		position: position,
		wantMint: wantMint,
		acc:      acc,
	}, nil
}

// decrease burns liquidity and returns what landed in the user vaults along
// with the pre-decrease balances.
func (e *Executor) decrease(pc *positionContext, liquidity uint128.Uint128, min0, min1 uint64) (got0, got1, pre0, pre1 uint64, err error) {
	if pre0, err = e.balance(pc.acc.UserToken0); err != nil {
		return
	}
	if pre1, err = e.balance(pc.acc.UserToken1); err != nil {
		return
	}
	err = e.clmm.DecreaseLiquidity(&clmm.DecreaseLiquidityRequest{
		Signer:             clmm.Signer{Key: pc.user},
		Pool:               pc.pool.Address,
		PositionNFTMint:    pc.position.NFTMint,
		PositionNFTAccount: pc.acc.PositionNFTAccount,
		PersonalPosition:   pc.position.Address,
		RecipientAccount0:  pc.acc.UserToken0,
		RecipientAccount1:  pc.acc.UserToken1,
		Liquidity:          liquidity,
		Amount0Min:         min0,
		Amount1Min:         min1,
	})
	if err != nil {
		return
	}
	post0, err := e.balance(pc.acc.UserToken0)
	if err != nil {
		return
	}
	post1, err := e.balance(pc.acc.UserToken1)
	if err != nil {
		return
	}
	if post0 < pre0 || post1 < pre1 {
		err = fmt.Errorf("%w: vault balance fell during decrease", ErrInvalidAmount)
		return
	}
	return post0 - pre0, post1 - pre1, pre0, pre1, nil
}

// payout converts the undesired side into the wanted mint, enforces the
// minimum payout and splits the total between the fee receiver and the
// recipient. It returns the total and the fee.
func (e *Executor) payout(pc *positionContext, p *PayoutParams, got0, got1, pre0, pre1 uint64) (uint64, uint64, error) {
	want := p.WantBase
	desired := pc.acc.vault(want)
	desiredPre, undesired := pre1, got0
	if want {
		desiredPre, undesired = pre0, got1
	}

	if undesired > 0 {
		slippage := uint64(p.SlippageBps)
		if slippage == 0 {
			slippage = uint64(e.defaultSlip)
		}
		// The undesired side swaps toward the wanted mint, so token0 is
		// the input exactly when token1 is wanted.
		zeroForOne := !want
		minOut, err := clmm.MinAmountOut(
			undesired,
			pc.pool.SqrtPriceX64,
			clmm.FeeRateToBps(pc.pool.TradeFeeRate),
			clmm.FeeRateToBps(pc.pool.ProtocolFeeRate),
			slippage,
			zeroForOne,
		)
		if err != nil {
			return 0, 0, err
		}
		start, err := clmm.TickArrayStartIndex(pc.pool.TickCurrent, pc.pool.TickSpacing)
		if err != nil {
			return 0, 0, err
		}
		array, err := clmm.TickArrayAddress(e.clmmProgramID, pc.pool.Address, start)
		if err != nil {
			return 0, 0, err
		}
		err = e.clmm.SwapSingle(&clmm.SwapRequest{
			Signer:               clmm.Signer{Key: pc.user},
			Pool:                 pc.pool.Address,
			InputTokenAccount:    pc.acc.vault(!want),
			OutputTokenAccount:   desired,
			InputMint:            pc.pool.MintFor(!want),
			OutputMint:           pc.wantMint,
			TickArrays:           []solana.PublicKey{array},
			Amount:               undesired,
			OtherAmountThreshold: minOut,
			SqrtPriceLimitX64:    uint128.Zero,
			IsBaseInput:          true,
		})
		if err != nil {
			return 0, 0, err
		}
	}

	post, err := e.balance(desired)
	if err != nil {
		return 0, 0, err
	}
	if post < desiredPre {
		return 0, 0, fmt.Errorf("%w: desired vault fell below its snapshot", ErrInvalidAmount)
	}
	total := post - desiredPre
	if total < p.MinPayout {
		return 0, 0, fmt.Errorf("%w: payout %d below minimum %d", ErrInvalidParams, total, p.MinPayout)
	}

	feeATA, _, err := solana.FindAssociatedTokenAddress(pc.cfg.FeeReceiver, pc.wantMint)
	if err != nil {
		return 0, 0, err
	}
	if !feeATA.Equals(pc.acc.FeeReceiverATA) {
		return 0, 0, fmt.Errorf("%w: fee account %s, want %s", ErrInvalidParams, pc.acc.FeeReceiverATA, feeATA)
	}

	fee := clmm.BasisPointsOf(total, uint64(p.FeePercentage))
	net := total - fee
	if err := e.transfer(desired, pc.acc.FeeReceiverATA, pc.user, fee); err != nil {
		return 0, 0, err
	}
	if err := e.transfer(desired, pc.acc.RecipientTokenAccount, pc.user, net); err != nil {
		return 0, 0, err
	}
	return total, fee, nil
}

// Withdraw burns liquidity from the signer's position and pays the proceeds
// out in a single mint.
func (e *Executor) Withdraw(signer solana.PublicKey, params *WithdrawParams, acc *PositionAccounts) error {
	return e.apply("withdraw", func(tx *txn) error {
		pc, err := e.loadPosition(tx, signer, params.WantBase, acc)
		if err != nil {
			return err
		}

		burn := pc.position.Liquidity
		if params.LiquidityToBurn != 0 {
			burn = uint128.From64(params.LiquidityToBurn)
			if burn.Cmp(pc.position.Liquidity) > 0 {
				return fmt.Errorf("%w: burn %s exceeds position liquidity %s", ErrInvalidParams, burn, pc.position.Liquidity)
			}
		}
		if burn.IsZero() {
			return fmt.Errorf("%w: position has no liquidity", ErrInvalidAmount)
		}

		sa, sb, err := clmm.SqrtPricesAtTicks(pc.position.TickLower, pc.position.TickUpper)
		if err != nil {
			return err
		}
		est0, est1, err := clmm.LiquidityToAmounts(sa, sb, pc.pool.SqrtPriceX64, burn)
		if err != nil {
			return err
		}
		min0 := clmm.SlippageFloor(est0, uint64(params.SlippageBps))
		min1 := clmm.SlippageFloor(est1, uint64(params.SlippageBps))

		got0, got1, pre0, pre1, err := e.decrease(pc, burn, min0, min1)
		if err != nil {
			return err
		}
		total, fee, err := e.payout(pc, &params.PayoutParams, got0, got1, pre0, pre1)
		if err != nil {
			return err
		}

		tx.emit(WithdrawEvent{
			Pool:        pc.pool.Address,
			Beneficiary: signer,
			Mint:        pc.wantMint,
			Liquidity:   burn,
			Amount:      total,
			Fee:         fee,
		})
		e.log.Info("liquidity withdrawn",
			"pool", pc.pool.Address,
			"user", signer,
			"liquidity", burn.String(),
			"amount", total,
			"fee", fee,
		)
		return nil
	})
}

// Claim settles the fees accrued by the signer's position without burning
// liquidity and pays them out in a single mint.
func (e *Executor) Claim(signer solana.PublicKey, params *ClaimParams, acc *PositionAccounts) error {
	return e.apply("claim", func(tx *txn) error {
		pc, err := e.loadPosition(tx, signer, params.WantBase, acc)
		if err != nil {
			return err
		}
		got0, got1, pre0, pre1, err := e.decrease(pc, uint128.Zero, 0, 0)
		if err != nil {
			return err
		}
		if got0 == 0 && got1 == 0 {
			e.log.Debug("nothing to claim", "pool", pc.pool.Address, "user", signer)
			return nil
		}
		total, fee, err := e.payout(pc, &params.PayoutParams, got0, got1, pre0, pre1)
		if err != nil {
			return err
		}
		tx.emit(ClaimEvent{
			Pool:        pc.pool.Address,
			Beneficiary: signer,
			Mint:        pc.wantMint,
			Amount:      total,
		})
		e.log.Info("fees claimed", "pool", pc.pool.Address, "user", signer, "amount", total, "fee", fee)
		return nil
	})
}
