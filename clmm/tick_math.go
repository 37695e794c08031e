// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package clmm

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"lukechampine.com/uint128"
)

// sqrtRatioFactors are 1/sqrt(1.0001^(2^i)) in Q64, i = 0..18.
var sqrtRatioFactors = [...]uint64{
	0xfffcb933bd6fb800,
	0xfff97272373d4000,
	0xfff2e50f5f657000,
	0xffe5caca7e10f000,
	0xffcb9843d60f7000,
	0xff973b41fa98e800,
	0xff2ea16466c9b000,
	0xfe5dee046a9a3800,
	0xfcbe86c7900bb000,
	0xf987a7253ac65800,
	0xf3392b0822bb6000,
	0xe7159475a2caf000,
	0xd097f3bdfd2f2000,
	0xa9f746462d9f8000,
	0x70d869a156f31c00,
	0x31be135f97ed3200,
	0x9aa508b5b85a500,
	0x5d6af8dedc582c,
	0x2216e584f5fa,
}

var q64Big = new(big.Int).Lsh(big.NewInt(1), 64)

// SqrtPriceX64AtTick returns sqrt(1.0001^tick) in Q64.64. MinTick and
// MaxTick map exactly onto MinSqrtPriceX64 and MaxSqrtPriceX64.
func SqrtPriceX64AtTick(tick int32) (uint128.Uint128, error) {
	if tick < MinTick || tick > MaxTick {
		return uint128.Zero, fmt.Errorf("%w: tick %d out of bounds", ErrInvalidTickRange, tick)
	}

	absTick := uint32(tick)
	if tick < 0 {
		absTick = uint32(-tick)
	}

	ratio := new(uint256.Int).Lsh(uint256.NewInt(1), 64)
	if absTick&1 != 0 {
		ratio.SetUint64(sqrtRatioFactors[0])
	}
	for i := 1; i < len(sqrtRatioFactors); i++ {
		if absTick&(1<<uint(i)) != 0 {
			ratio.Mul(ratio, uint256.NewInt(sqrtRatioFactors[i]))
			ratio.Rsh(ratio, 64)
		}
	}

	if tick > 0 {
		ratio.Div(U256(uint128.Max), ratio)
	}
	return U128(ratio)
}

// SqrtPricesAtTicks resolves the sqrt-price bounds of a tick range.
func SqrtPricesAtTicks(tickLower, tickUpper int32) (uint128.Uint128, uint128.Uint128, error) {
	if tickLower >= tickUpper {
		return uint128.Zero, uint128.Zero, fmt.Errorf("%w: lower %d >= upper %d", ErrInvalidTickRange, tickLower, tickUpper)
	}
	sa, err := SqrtPriceX64AtTick(tickLower)
	if err != nil {
		return uint128.Zero, uint128.Zero, err
	}
	sb, err := SqrtPriceX64AtTick(tickUpper)
	if err != nil {
		return uint128.Zero, uint128.Zero, err
	}
	if sa.Cmp(sb) >= 0 {
		return uint128.Zero, uint128.Zero, fmt.Errorf("%w: sqrt lower %s >= upper %s", ErrInvalidTickRange, sa, sb)
	}
	return sa, sb, nil
}

// PriceFromSqrtX64 converts a Q64.64 sqrt-price into a human-readable
// token1-per-token0 price adjusted for mint decimals.
func PriceFromSqrtX64(sp uint128.Uint128, decimals0, decimals1 uint8) decimal.Decimal {
	root := decimal.NewFromBigInt(sp.Big(), 0).Div(decimal.NewFromBigInt(q64Big, 0))
	return root.Mul(root).Shift(int32(decimals0) - int32(decimals1))
}
