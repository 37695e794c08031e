// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clmm

import (
	"fmt"
	"math"

	"github.com/holiman/uint256"
	"lukechampine.com/uint128"
)

var (
	bpsMax   = uint256.NewInt(BasisPointMax)
	bpsMaxSq = uint256.NewInt(BasisPointMax * BasisPointMax)
	maxU64   = uint256.NewInt(math.MaxUint64)
)

// U256 widens a u128 into the 256-bit working type.
func U256(v uint128.Uint128) *uint256.Int {
	return &uint256.Int{v.Lo, v.Hi, 0, 0}
}

// U128 narrows a 256-bit value, reporting overflow.
func U128(v *uint256.Int) (uint128.Uint128, error) {
	if v[2] != 0 || v[3] != 0 {
		return uint128.Max, fmt.Errorf("%w: %s exceeds u128", ErrNumberCast, v.Dec())
	}
	return uint128.New(v[0], v[1]), nil
}

// SaturatingU64 casts v to u64, clamping at MaxUint64. The second result is
// true when the value was clamped.
func SaturatingU64(v *uint256.Int) (uint64, bool) {
	if v.Gt(maxU64) {
		return math.MaxUint64, true
	}
	return v.Uint64(), false
}

// MulDiv computes floor(x*y/d) with a 512-bit intermediate.
func MulDiv(x, y, d *uint256.Int) (*uint256.Int, error) {
	if d.IsZero() {
		return nil, fmt.Errorf("%w: division by zero", ErrNumberCast)
	}
	z, overflow := new(uint256.Int).MulDivOverflow(x, y, d)
	if overflow {
		return nil, fmt.Errorf("%w: mulDiv result exceeds u256", ErrNumberCast)
	}
	return z, nil
}

// SlippageFloor returns floor(amount * (10000 - bps) / 10000).
// bps >= 10000 yields zero.
func SlippageFloor(amount uint64, bps uint64) uint64 {
	if bps >= BasisPointMax {
		return 0
	}
	z := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(BasisPointMax-bps))
	z.Div(z, bpsMax)
	out, _ := SaturatingU64(z)
	return out
}

// BasisPointsOf returns floor(amount * bps / 10000), saturating at amount
// when bps exceeds 10000.
func BasisPointsOf(amount uint64, bps uint64) uint64 {
	if bps >= BasisPointMax {
		return amount
	}
	z := new(uint256.Int).Mul(uint256.NewInt(amount), uint256.NewInt(bps))
	z.Div(z, bpsMax)
	out, _ := SaturatingU64(z)
	return out
}

// LiquidityToAmounts returns the token amounts released by burning liquidity
// in the range [sa, sb] at price sp. All prices are Q64.64 sqrt-prices.
//
// Amounts above MaxUint64 are clamped and reported with ErrNumberCast; the
// clamped values are still returned.
func LiquidityToAmounts(sa, sb, sp, liquidity uint128.Uint128) (uint64, uint64, error) {
	if sa.Cmp(sb) >= 0 {
		return 0, 0, fmt.Errorf("%w: sqrt lower %s >= upper %s", ErrInvalidTickRange, sa, sb)
	}
	if liquidity.IsZero() {
		return 0, 0, nil
	}
	if sa.IsZero() {
		return 0, 0, fmt.Errorf("%w: zero lower sqrt price", ErrInvalidSqrtPrice)
	}

	l := U256(liquidity)
	a, b, p := U256(sa), U256(sb), U256(sp)

	var amount0, amount1 *uint256.Int
	var err error
	switch {
	case sp.Cmp(sa) <= 0:
		amount0, err = amount0Delta(l, a, b)
		amount1 = new(uint256.Int)
	case sp.Cmp(sb) >= 0:
		amount0 = new(uint256.Int)
		amount1 = amount1Delta(l, a, b)
	default:
		amount0, err = amount0Delta(l, p, b)
		amount1 = amount1Delta(l, a, p)
	}
	if err != nil {
		return 0, 0, err
	}

	out0, sat0 := SaturatingU64(amount0)
	out1, sat1 := SaturatingU64(amount1)
	if sat0 || sat1 {
		return out0, out1, fmt.Errorf("%w: amounts (%s, %s) exceed u64", ErrNumberCast, amount0.Dec(), amount1.Dec())
	}
	return out0, out1, nil
}

// amount0Delta = floor(L * (hi - lo) * 2^64 / (lo * hi))
func amount0Delta(l, lo, hi *uint256.Int) (*uint256.Int, error) {
	num := new(uint256.Int).Lsh(l, 64)
	diff := new(uint256.Int).Sub(hi, lo)
	z, err := MulDiv(num, diff, hi)
	if err != nil {
		return nil, err
	}
	return z.Div(z, lo), nil
}

// amount1Delta = floor(L * (hi - lo) / 2^64)
func amount1Delta(l, lo, hi *uint256.Int) *uint256.Int {
	diff := new(uint256.Int).Sub(hi, lo)
	z := new(uint256.Int).Mul(l, diff)
	return z.Rsh(z, 64)
}

// SwapSplit returns how much of a single-token deposit must be swapped so the
// remaining pair matches the in-range liquidity ratio of [sa, sb] at sp.
//
// With R_num = sb*(sp-sa) and R_den = sp*(sb-sp), a token0 deposit swaps
// amount*R_num/(R_num+R_den) and a token1 deposit swaps amount*R_den/(R_num+R_den).
// Outside the range the position is single-sided: the deposit is either kept
// whole or swapped whole.
func SwapSplit(amount uint64, sa, sb, sp uint128.Uint128, inputIsToken0 bool) (uint64, error) {
	if sa.Cmp(sb) >= 0 {
		return 0, fmt.Errorf("%w: sqrt lower %s >= upper %s", ErrInvalidTickRange, sa, sb)
	}
	if amount == 0 {
		return 0, nil
	}

	switch {
	case sp.Cmp(sa) <= 0:
		// Range is all token0.
		if inputIsToken0 {
			return 0, nil
		}
		return amount, nil
	case sp.Cmp(sb) >= 0:
		// Range is all token1.
		if inputIsToken0 {
			return amount, nil
		}
		return 0, nil
	}

	a, b, p := U256(sa), U256(sb), U256(sp)
	rNum := new(uint256.Int).Mul(b, new(uint256.Int).Sub(p, a))
	rDen := new(uint256.Int).Mul(p, new(uint256.Int).Sub(b, p))

	sum, overflow := new(uint256.Int).AddOverflow(rNum, rDen)
	for overflow {
		rNum.Rsh(rNum, 1)
		rDen.Rsh(rDen, 1)
		sum, overflow = new(uint256.Int).AddOverflow(rNum, rDen)
	}
	if sum.IsZero() {
		return 0, ErrZeroRatio
	}

	share := rNum
	if !inputIsToken0 {
		share = rDen
	}
	z, err := MulDiv(uint256.NewInt(amount), share, sum)
	if err != nil {
		return 0, err
	}
	out, _ := SaturatingU64(z)
	return out, nil
}

// PriceX64 returns sp*sp / 2^64, the token1-per-token0 price in Q64.64.
func PriceX64(sp uint128.Uint128) *uint256.Int {
	p := U256(sp)
	z := new(uint256.Int).Mul(p, p)
	return z.Rsh(z, 64)
}

// MinAmountOut converts amountIn at the pool price and applies the fee and
// slippage envelope:
//
//	out * (10000 - tradeFeeBps - protocolFeeBps) * (10000 - slippageBps) / 10000^2
//
// zeroForOne selects the token0 -> token1 direction.
func MinAmountOut(amountIn uint64, sp uint128.Uint128, tradeFeeBps, protocolFeeBps, slippageBps uint64, zeroForOne bool) (uint64, error) {
	if amountIn == 0 {
		return 0, nil
	}
	price := PriceX64(sp)
	if price.IsZero() {
		return 0, fmt.Errorf("%w: price rounds to zero", ErrInvalidSqrtPrice)
	}

	in := uint256.NewInt(amountIn)
	var out *uint256.Int
	if zeroForOne {
		out = new(uint256.Int).Mul(in, price)
		out.Rsh(out, 64)
	} else {
		out = new(uint256.Int).Lsh(in, 64)
		out.Div(out, price)
	}

	fees := tradeFeeBps + protocolFeeBps
	if fees >= BasisPointMax || slippageBps >= BasisPointMax {
		return 0, nil
	}
	factor := new(uint256.Int).Mul(uint256.NewInt(BasisPointMax-fees), uint256.NewInt(BasisPointMax-slippageBps))
	z, err := MulDiv(out, factor, bpsMaxSq)
	if err != nil {
		return 0, err
	}
	minOut, sat := SaturatingU64(z)
	if sat {
		return minOut, fmt.Errorf("%w: min amount out %s exceeds u64", ErrNumberCast, z.Dec())
	}
	return minOut, nil
}

// FeeRateToBps converts a ppm pool fee rate into basis points.
func FeeRateToBps(ppm uint32) uint64 {
	return uint64(ppm) * BasisPointMax / FeeRateDenominator
}

// TickArrayStartIndex returns the first tick of the array holding tick, using
// floor division so negative ticks map to the array below zero.
func TickArrayStartIndex(tick int32, tickSpacing uint16) (int32, error) {
	if tickSpacing == 0 {
		return 0, ErrInvalidTickSpacing
	}
	size := int32(TickArraySize) * int32(tickSpacing)
	return floorDiv(tick, size) * size, nil
}

// SnapTick rounds tick down onto the spacing grid.
func SnapTick(tick int32, tickSpacing uint16) (int32, error) {
	if tickSpacing == 0 {
		return 0, ErrInvalidTickSpacing
	}
	if tick < MinTick || tick > MaxTick {
		return 0, fmt.Errorf("%w: tick %d out of bounds", ErrInvalidTickRange, tick)
	}
	s := int32(tickSpacing)
	snapped := floorDiv(tick, s) * s
	if snapped < MinTick {
		snapped += s
	}
	return snapped, nil
}

func floorDiv(a, b int32) int32 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
