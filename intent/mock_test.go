// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/holiman/uint256"
	"lukechampine.com/uint128"

	"github.com/luxfi/zapin/clmm"
)

var (
	errMockNoAccount = errors.New("mock: no such token account")
	errMockOwner     = errors.New("mock: owner does not match authority")
	errMockMint      = errors.New("mock: mint mismatch")
	errMockFunds     = errors.New("mock: insufficient funds")
)

type mockMint struct {
	authority solana.PublicKey
	decimals  uint8
}

type ledgerState struct {
	accounts map[solana.PublicKey]TokenAccount
	mints    map[solana.PublicKey]mockMint
}

func (s ledgerState) clone() ledgerState {
	c := ledgerState{
		accounts: make(map[solana.PublicKey]TokenAccount, len(s.accounts)),
		mints:    make(map[solana.PublicKey]mockMint, len(s.mints)),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.mints {
		c.mints[k] = v
	}
	return c
}

// MockLedger is an in-memory token ledger with snapshots.
type MockLedger struct {
	state     ledgerState
	snapshots []ledgerState
}

var _ Ledger = (*MockLedger)(nil)

func NewMockLedger() *MockLedger {
	return &MockLedger{
		state: ledgerState{
			accounts: make(map[solana.PublicKey]TokenAccount),
			mints:    make(map[solana.PublicKey]mockMint),
		},
	}
}

// AddAccountAt creates or replaces the token account at addr.
func (l *MockLedger) AddAccountAt(addr, owner, mint solana.PublicKey, amount uint64) solana.PublicKey {
	l.state.accounts[addr] = TokenAccount{Address: addr, Mint: mint, Owner: owner, Amount: amount}
	return addr
}

// AddAccount creates a token account at a fresh address.
func (l *MockLedger) AddAccount(owner, mint solana.PublicKey, amount uint64) solana.PublicKey {
	return l.AddAccountAt(solana.NewWallet().PublicKey(), owner, mint, amount)
}

// AddATA creates the associated token account of owner for mint.
func (l *MockLedger) AddATA(owner, mint solana.PublicKey, amount uint64) solana.PublicKey {
	ata, _, err := solana.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		panic(err)
	}
	return l.AddAccountAt(ata, owner, mint, amount)
}

func (l *MockLedger) Balance(addr solana.PublicKey) uint64 {
	return l.state.accounts[addr].Amount
}

func (l *MockLedger) TokenAccount(addr solana.PublicKey) (*TokenAccount, error) {
	acct, ok := l.state.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", errMockNoAccount, addr)
	}
	return &acct, nil
}

func (l *MockLedger) Transfer(from, to, authority solana.PublicKey, amount uint64) error {
	src, ok := l.state.accounts[from]
	if !ok {
		return fmt.Errorf("%w: %s", errMockNoAccount, from)
	}
	dst, ok := l.state.accounts[to]
	if !ok {
		return fmt.Errorf("%w: %s", errMockNoAccount, to)
	}
	if !src.Owner.Equals(authority) {
		return errMockOwner
	}
	if !src.Mint.Equals(dst.Mint) {
		return errMockMint
	}
	if src.Amount < amount {
		return fmt.Errorf("%w: have %d, need %d", errMockFunds, src.Amount, amount)
	}
	if from.Equals(to) {
		return nil
	}
	src.Amount -= amount
	dst.Amount += amount
	l.state.accounts[from] = src
	l.state.accounts[to] = dst
	return nil
}

func (l *MockLedger) MintExists(mint solana.PublicKey) bool {
	_, ok := l.state.mints[mint]
	return ok
}

func (l *MockLedger) CreateMint(mint, authority solana.PublicKey, decimals uint8) error {
	if l.MintExists(mint) {
		return fmt.Errorf("mock: mint %s already exists", mint)
	}
	l.state.mints[mint] = mockMint{authority: authority, decimals: decimals}
	return nil
}

func (l *MockLedger) Snapshot() int {
	l.snapshots = append(l.snapshots, l.state.clone())
	return len(l.snapshots) - 1
}

func (l *MockLedger) RevertToSnapshot(id int) {
	l.state = l.snapshots[id]
	l.snapshots = l.snapshots[:id]
}

// MockCLMM is a constant-price CLMM that settles against a MockLedger.
type MockCLMM struct {
	ledger    *MockLedger
	programID solana.PublicKey
	authority solana.PublicKey

	pools     map[solana.PublicKey]*clmm.PoolState
	positions map[solana.PublicKey]*clmm.PersonalPosition
	fees      map[solana.PublicKey][2]uint64

	swapErr   error
	swaps     []clmm.SwapRequest
	snapshots []clmmState
}

// clmmState is a deep copy of the mutable MockCLMM maps.
type clmmState struct {
	pools     map[solana.PublicKey]clmm.PoolState
	positions map[solana.PublicKey]clmm.PersonalPosition
	fees      map[solana.PublicKey][2]uint64
	swaps     int
}

var _ clmm.Client = (*MockCLMM)(nil)

func NewMockCLMM(ledger *MockLedger, programID solana.PublicKey) *MockCLMM {
	return &MockCLMM{
		ledger:    ledger,
		programID: programID,
		authority: solana.NewWallet().PublicKey(),
		pools:     make(map[solana.PublicKey]*clmm.PoolState),
		positions: make(map[solana.PublicKey]*clmm.PersonalPosition),
		fees:      make(map[solana.PublicKey][2]uint64),
	}
}

// AddPool creates a pool at tick 0 (price 1) with deep vaults.
func (m *MockCLMM) AddPool(tickSpacing uint16, tradeFeePPM, protocolFeePPM uint32) *clmm.PoolState {
	pool := &clmm.PoolState{
		Address:         solana.NewWallet().PublicKey(),
		AMMConfig:       solana.NewWallet().PublicKey(),
		TokenMint0:      solana.NewWallet().PublicKey(),
		TokenMint1:      solana.NewWallet().PublicKey(),
		MintDecimals0:   6,
		MintDecimals1:   6,
		TickSpacing:     tickSpacing,
		Liquidity:       uint128.From64(1_000_000_000_000),
		SqrtPriceX64:    uint128.New(0, 1),
		TickCurrent:     0,
		TradeFeeRate:    tradeFeePPM,
		ProtocolFeeRate: protocolFeePPM,
	}
	pool.TokenVault0 = m.ledger.AddAccount(m.authority, pool.TokenMint0, 1_000_000_000_000)
	pool.TokenVault1 = m.ledger.AddAccount(m.authority, pool.TokenMint1, 1_000_000_000_000)
	m.pools[pool.Address] = pool
	return pool
}

// AddPosition opens a position owned by owner directly, returning it and the
// owner's NFT account.
func (m *MockCLMM) AddPosition(pool *clmm.PoolState, owner solana.PublicKey, lower, upper int32, liquidity uint64, fee0, fee1 uint64) (*clmm.PersonalPosition, solana.PublicKey) {
	nftMint := solana.NewWallet().PublicKey()
	if err := m.ledger.CreateMint(nftMint, m.authority, 0); err != nil {
		panic(err)
	}
	nftAccount := m.ledger.AddATA(owner, nftMint, 1)
	addr, err := clmm.PersonalPositionAddress(m.programID, nftMint)
	if err != nil {
		panic(err)
	}
	pos := &clmm.PersonalPosition{
		Address:   addr,
		NFTMint:   nftMint,
		Pool:      pool.Address,
		TickLower: lower,
		TickUpper: upper,
		Liquidity: uint128.From64(liquidity),
	}
	m.positions[nftMint] = pos
	m.fees[nftMint] = [2]uint64{fee0, fee1}
	return pos, nftAccount
}

func (m *MockCLMM) Pool(addr solana.PublicKey) (*clmm.PoolState, error) {
	pool, ok := m.pools[addr]
	if !ok {
		return nil, clmm.ErrPoolNotFound
	}
	cp := *pool
	return &cp, nil
}

func (m *MockCLMM) PositionByNFT(nftMint solana.PublicKey) (*clmm.PersonalPosition, error) {
	pos, ok := m.positions[nftMint]
	if !ok {
		return nil, clmm.ErrPositionNotFound
	}
	cp := *pos
	return &cp, nil
}

func (m *MockCLMM) Snapshot() int {
	st := clmmState{
		pools:     make(map[solana.PublicKey]clmm.PoolState, len(m.pools)),
		positions: make(map[solana.PublicKey]clmm.PersonalPosition, len(m.positions)),
		fees:      make(map[solana.PublicKey][2]uint64, len(m.fees)),
		swaps:     len(m.swaps),
	}
	for k, v := range m.pools {
		st.pools[k] = *v
	}
	for k, v := range m.positions {
		st.positions[k] = *v
	}
	for k, v := range m.fees {
		st.fees[k] = v
	}
	m.snapshots = append(m.snapshots, st)
	return len(m.snapshots) - 1
}

// RevertToSnapshot restores state in place so pointers handed out by
// AddPool and AddPosition stay valid.
func (m *MockCLMM) RevertToSnapshot(id int) {
	st := m.snapshots[id]
	m.snapshots = m.snapshots[:id]
	restoreInPlace(m.pools, st.pools)
	restoreInPlace(m.positions, st.positions)
	m.fees = st.fees
	m.swaps = m.swaps[:st.swaps]
}

func restoreInPlace[T any](live map[solana.PublicKey]*T, saved map[solana.PublicKey]T) {
	for k := range live {
		if _, ok := saved[k]; !ok {
			delete(live, k)
		}
	}
	for k, v := range saved {
		if cur, ok := live[k]; ok {
			*cur = v
		} else {
			cp := v
			live[k] = &cp
		}
	}
}

// quote converts amount at the pool price less the trade fee.
func (m *MockCLMM) quote(pool *clmm.PoolState, amount uint64, zeroForOne bool) (uint64, error) {
	return clmm.MinAmountOut(amount, pool.SqrtPriceX64, clmm.FeeRateToBps(pool.TradeFeeRate), 0, 0, zeroForOne)
}

func (m *MockCLMM) SwapSingle(req *clmm.SwapRequest) error {
	if m.swapErr != nil {
		return m.swapErr
	}
	pool, ok := m.pools[req.Pool]
	if !ok {
		return clmm.ErrPoolNotFound
	}
	zeroForOne := req.InputMint.Equals(pool.TokenMint0)
	out, err := m.quote(pool, req.Amount, zeroForOne)
	if err != nil {
		return err
	}
	if out < req.OtherAmountThreshold {
		return fmt.Errorf("%w: out %d < %d", clmm.ErrSlippageExceeded, out, req.OtherAmountThreshold)
	}
	if err := m.ledger.Transfer(req.InputTokenAccount, pool.VaultFor(zeroForOne), req.Signer.Key, req.Amount); err != nil {
		return err
	}
	if err := m.ledger.Transfer(pool.VaultFor(!zeroForOne), req.OutputTokenAccount, m.authority, out); err != nil {
		return err
	}
	m.swaps = append(m.swaps, *req)
	return nil
}

func (m *MockCLMM) OpenPosition(req *clmm.OpenPositionRequest) (*clmm.OpenPositionResult, error) {
	pool, ok := m.pools[req.Pool]
	if !ok {
		return nil, clmm.ErrPoolNotFound
	}
	if !m.ledger.MintExists(req.PositionNFTMint) {
		return nil, fmt.Errorf("mock: nft mint %s not allocated", req.PositionNFTMint)
	}
	if _, ok := m.positions[req.PositionNFTMint]; ok {
		return nil, fmt.Errorf("mock: position for %s already open", req.PositionNFTMint)
	}
	addr, err := clmm.PersonalPositionAddress(m.programID, req.PositionNFTMint)
	if err != nil {
		return nil, err
	}
	m.ledger.AddAccountAt(req.PositionNFTAccount, req.PositionNFTOwner, req.PositionNFTMint, 1)
	m.positions[req.PositionNFTMint] = &clmm.PersonalPosition{
		Address:   addr,
		NFTMint:   req.PositionNFTMint,
		Pool:      pool.Address,
		TickLower: req.TickLower,
		TickUpper: req.TickUpper,
		Liquidity: req.Liquidity,
	}
	return &clmm.OpenPositionResult{PersonalPosition: addr}, nil
}

// liquidityFor returns the largest liquidity amounts (a0, a1) can fund.
func liquidityFor(sa, sb, sp uint128.Uint128, a0, a1 uint64) uint128.Uint128 {
	lo, hi := sp, sb
	if sp.Cmp(sa) < 0 {
		lo = sa
	}
	var l0, l1 *uint256.Int
	if lo.Cmp(hi) < 0 {
		num := new(uint256.Int).Mul(uint256.NewInt(a0), clmm.U256(lo))
		z, err := clmm.MulDiv(num, clmm.U256(hi), new(uint256.Int).Sub(clmm.U256(hi), clmm.U256(lo)))
		if err == nil {
			l0 = z.Rsh(z, 64)
		}
	}
	top := sp
	if sp.Cmp(sb) > 0 {
		top = sb
	}
	if sa.Cmp(top) < 0 {
		num := new(uint256.Int).Lsh(uint256.NewInt(a1), 64)
		l1 = num.Div(num, new(uint256.Int).Sub(clmm.U256(top), clmm.U256(sa)))
	}
	var l *uint256.Int
	switch {
	case l0 == nil:
		l = l1
	case l1 == nil:
		l = l0
	case l0.Cmp(l1) < 0:
		l = l0
	default:
		l = l1
	}
	if l == nil {
		return uint128.Zero
	}
	out, err := clmm.U128(l)
	if err != nil {
		return uint128.Max
	}
	return out
}

func (m *MockCLMM) IncreaseLiquidity(req *clmm.IncreaseLiquidityRequest) error {
	pool, ok := m.pools[req.Pool]
	if !ok {
		return clmm.ErrPoolNotFound
	}
	pos, ok := m.positions[req.PositionNFTMint]
	if !ok {
		return clmm.ErrPositionNotFound
	}
	sa, sb, err := clmm.SqrtPricesAtTicks(pos.TickLower, pos.TickUpper)
	if err != nil {
		return err
	}
	liq := liquidityFor(sa, sb, pool.SqrtPriceX64, req.Amount0Max, req.Amount1Max)
	used0, used1, err := clmm.LiquidityToAmounts(sa, sb, pool.SqrtPriceX64, liq)
	if err != nil {
		return err
	}
	if err := m.ledger.Transfer(req.TokenAccount0, pool.TokenVault0, req.Signer.Key, used0); err != nil {
		return err
	}
	if err := m.ledger.Transfer(req.TokenAccount1, pool.TokenVault1, req.Signer.Key, used1); err != nil {
		return err
	}
	pos.Liquidity = pos.Liquidity.Add(liq)
	return nil
}

func (m *MockCLMM) DecreaseLiquidity(req *clmm.DecreaseLiquidityRequest) error {
	pool, ok := m.pools[req.Pool]
	if !ok {
		return clmm.ErrPoolNotFound
	}
	pos, ok := m.positions[req.PositionNFTMint]
	if !ok {
		return clmm.ErrPositionNotFound
	}
	nft, err := m.ledger.TokenAccount(req.PositionNFTAccount)
	if err != nil {
		return err
	}
	if !nft.Owner.Equals(req.Signer.Key) || nft.Amount != 1 {
		return errMockOwner
	}
	if req.Liquidity.Cmp(pos.Liquidity) > 0 {
		return fmt.Errorf("mock: burn exceeds liquidity")
	}
	sa, sb, err := clmm.SqrtPricesAtTicks(pos.TickLower, pos.TickUpper)
	if err != nil {
		return err
	}
	out0, out1, err := clmm.LiquidityToAmounts(sa, sb, pool.SqrtPriceX64, req.Liquidity)
	if err != nil {
		return err
	}
	if out0 < req.Amount0Min || out1 < req.Amount1Min {
		return clmm.ErrSlippageExceeded
	}
	fees := m.fees[req.PositionNFTMint]
	if err := m.ledger.Transfer(pool.TokenVault0, req.RecipientAccount0, m.authority, out0+fees[0]); err != nil {
		return err
	}
	if err := m.ledger.Transfer(pool.TokenVault1, req.RecipientAccount1, m.authority, out1+fees[1]); err != nil {
		return err
	}
	m.fees[req.PositionNFTMint] = [2]uint64{}
	pos.Liquidity = pos.Liquidity.Sub(req.Liquidity)
	return nil
}
