// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package intent

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/luxfi/database/memdb"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/zapin/clmm"
	"github.com/luxfi/zapin/registry"
)

const userFunds = 10_000_000

func testTransferID(b byte) [32]byte {
	var id [32]byte
	for i := range id {
		id[i] = b
	}
	return id
}

type fixture struct {
	t      *testing.T
	ledger *MockLedger
	clmm   *MockCLMM
	exec   *Executor
	events *EventLog

	admin       solana.PublicKey
	feeReceiver solana.PublicKey
	user        solana.PublicKey
	executor    solana.PublicKey

	pool     *clmm.PoolState
	userATA0 solana.PublicKey
	userATA1 solana.PublicKey
}

func newFixture(t *testing.T) *fixture {
	db := memdb.New()
	t.Cleanup(func() { db.Close() })

	ledger := NewMockLedger()
	mock := NewMockCLMM(ledger, registry.CLMMProgramID)
	events := &EventLog{}
	exec, err := NewExecutor(db, ledger, mock, Options{Sink: events})
	require.NoError(t, err)

	f := &fixture{
		t:           t,
		ledger:      ledger,
		clmm:        mock,
		exec:        exec,
		events:      events,
		admin:       solana.NewWallet().PublicKey(),
		feeReceiver: solana.NewWallet().PublicKey(),
		user:        solana.NewWallet().PublicKey(),
		executor:    solana.NewWallet().PublicKey(),
	}
	f.pool = mock.AddPool(10, 2500, 300)
	f.userATA0 = ledger.AddATA(f.user, f.pool.TokenMint0, userFunds)
	f.userATA1 = ledger.AddATA(f.user, f.pool.TokenMint1, 0)
	require.NoError(t, exec.Initialize(f.admin, f.feeReceiver))
	return f
}

// intentAccounts are the custodial accounts of one intent.
type intentAccounts struct {
	record  solana.PublicKey
	custody solana.PublicKey
	pda0    solana.PublicKey
	pda1    solana.PublicKey
}

func (f *fixture) custodyFor(id [32]byte, mint solana.PublicKey) *intentAccounts {
	record, _, err := OperationRecordAddress(f.exec.ProgramID(), id)
	require.NoError(f.t, err)
	return &intentAccounts{
		record:  record,
		custody: f.ledger.AddAccount(record, mint, 0),
		pda0:    f.ledger.AddAccount(record, f.pool.TokenMint0, 0),
		pda1:    f.ledger.AddAccount(record, f.pool.TokenMint1, 0),
	}
}

func (f *fixture) zapParams(amountIn uint64) *ZapInParams {
	return &ZapInParams{
		AmountIn:    amountIn,
		Pool:        f.pool.Address,
		TickLower:   -1000,
		TickUpper:   1000,
		SlippageBps: 100,
	}
}

func (f *fixture) depositZapIn(id [32]byte, amount uint64, params *ZapInParams) (*intentAccounts, error) {
	ia := f.custodyFor(id, f.pool.TokenMint0)
	_, err := f.exec.Deposit(f.user, &DepositArgs{
		TransferID:    id,
		OperationType: OperationZapIn,
		Action:        params,
		Amount:        amount,
		CA:            params.Pool,
		Executor:      f.executor,
	}, &DepositAccounts{
		AuthorityATA:        f.userATA0,
		ProgramTokenAccount: ia.custody,
		TokenProgram:        registry.TokenProgramID,
	})
	return ia, err
}

func (ia *intentAccounts) zap(refund solana.PublicKey) *ZapInAccounts {
	return &ZapInAccounts{
		ProgramTokenAccount: ia.custody,
		PDAToken0:           ia.pda0,
		PDAToken1:           ia.pda1,
		RefundAccount:       refund,
	}
}

func (f *fixture) record(id [32]byte) *OperationRecord {
	rec, err := f.exec.Record(id)
	require.NoError(f.t, err)
	return rec
}

func TestInitialize(t *testing.T) {
	f := newFixture(t)

	cfg, err := f.exec.Config()
	require.NoError(t, err)
	require.Equal(t, f.admin, cfg.Authority)
	require.Equal(t, f.feeReceiver, cfg.FeeReceiver)

	err = f.exec.Initialize(f.admin, f.feeReceiver)
	require.ErrorIs(t, err, ErrInvalidParams)

	ok, err := f.exec.Consumed(testTransferID(1))
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUpdateConfig(t *testing.T) {
	f := newFixture(t)
	next := solana.NewWallet().PublicKey()

	require.ErrorIs(t, f.exec.UpdateConfig(f.user, next), ErrUnauthorized)
	require.ErrorIs(t, f.exec.UpdateConfig(f.admin, solana.PublicKey{}), ErrInvalidParams)
	require.NoError(t, f.exec.UpdateConfig(f.admin, next))

	cfg, err := f.exec.Config()
	require.NoError(t, err)
	require.Equal(t, next, cfg.FeeReceiver)
}

func TestDeposit_Accepted(t *testing.T) {
	f := newFixture(t)
	id := testTransferID(1)

	ia, err := f.depositZapIn(id, 1_000_000, f.zapParams(1_000_000))
	require.NoError(t, err)

	require.Equal(t, uint64(userFunds-1_000_000), f.ledger.Balance(f.userATA0))
	require.Equal(t, uint64(1_000_000), f.ledger.Balance(ia.custody))

	rec := f.record(id)
	require.True(t, rec.Initialized)
	require.False(t, rec.Executed)
	require.Equal(t, StageNone, rec.Stage)
	require.Equal(t, f.user, rec.Authority)
	require.Equal(t, f.executor, rec.Executor)
	require.Equal(t, f.pool.Address, rec.CA)
	require.Equal(t, int32(-1000), rec.TickLower)

	ok, err := f.exec.Consumed(id)
	require.NoError(t, err)
	require.True(t, ok)

	events := f.events.Events()
	require.Len(t, events, 2)
	dep := events[0].(DepositEvent)
	require.Equal(t, TransferIDHex(id), dep.TransferIDHex)
	require.Equal(t, "0101010101010101010101010101010101010101010101010101010101010101", dep.TransferIDHex)
	require.Equal(t, uint64(1_000_000), dep.Amount)
	require.Equal(t, ExecutorAssigned{TransferIDHex: dep.TransferIDHex, Executor: f.executor}, events[1])
}

func TestDeposit_DuplicateTransferID(t *testing.T) {
	f := newFixture(t)
	id := testTransferID(7)

	_, err := f.depositZapIn(id, 1_000, f.zapParams(1_000))
	require.NoError(t, err)

	_, err = f.depositZapIn(id, 1_000, f.zapParams(1_000))
	require.ErrorIs(t, err, ErrDuplicateTransferID)
	code, ok := CodeOf(err)
	require.True(t, ok)
	require.Equal(t, CodeInvalidTransferID, code)

	// the second deposit moved nothing
	require.Equal(t, uint64(userFunds-1_000), f.ledger.Balance(f.userATA0))
	require.Len(t, f.events.Named("DepositEvent"), 1)
}

func TestDeposit_Validation(t *testing.T) {
	f := newFixture(t)
	id := testTransferID(2)
	ia := f.custodyFor(id, f.pool.TokenMint0)
	params := f.zapParams(1_000)

	base := func() (*DepositArgs, *DepositAccounts) {
		return &DepositArgs{
				TransferID:    id,
				OperationType: OperationZapIn,
				Action:        params,
				Amount:        1_000,
				CA:            f.pool.Address,
				Executor:      f.executor,
			}, &DepositAccounts{
				AuthorityATA:        f.userATA0,
				ProgramTokenAccount: ia.custody,
				TokenProgram:        registry.TokenProgramID,
			}
	}

	tests := []struct {
		name   string
		mutate func(*DepositArgs, *DepositAccounts)
		signer solana.PublicKey
		want   error
	}{
		{"zero amount", func(a *DepositArgs, _ *DepositAccounts) { a.Amount = 0 }, f.user, ErrInvalidAmount},
		{"zero transfer id", func(a *DepositArgs, _ *DepositAccounts) { a.TransferID = [32]byte{} }, f.user, ErrInvalidTransferID},
		{"zero executor", func(a *DepositArgs, _ *DepositAccounts) { a.Executor = solana.PublicKey{} }, f.user, ErrInvalidParams},
		{"kind mismatch", func(a *DepositArgs, _ *DepositAccounts) { a.OperationType = OperationTransfer }, f.user, ErrInvalidParams},
		{"inverted range", func(a *DepositArgs, _ *DepositAccounts) {
			a.Action = &ZapInParams{AmountIn: 1, Pool: f.pool.Address, TickLower: 10, TickUpper: 10}
		}, f.user, ErrInvalidTickRange},
		{"pool differs from ca", func(a *DepositArgs, _ *DepositAccounts) { a.CA = solana.NewWallet().PublicKey() }, f.user, ErrInvalidParams},
		{"unknown pool", func(a *DepositArgs, _ *DepositAccounts) {
			a.CA = solana.NewWallet().PublicKey()
			a.Action = &ZapInParams{AmountIn: 1, Pool: a.CA, TickLower: -10, TickUpper: 10}
		}, f.user, clmm.ErrPoolNotFound},
		{"bad token program", func(_ *DepositArgs, acc *DepositAccounts) { acc.TokenProgram = registry.SystemProgramID }, f.user, ErrInvalidTokenProgram},
		{"source not owned by signer", nil, f.executor, ErrInvalidParams},
		{"custody not owned by record", func(_ *DepositArgs, acc *DepositAccounts) {
			acc.ProgramTokenAccount = f.ledger.AddAccount(f.user, f.pool.TokenMint0, 0)
		}, f.user, ErrInvalidProgramAccount},
		{"custody mint differs", func(_ *DepositArgs, acc *DepositAccounts) { acc.ProgramTokenAccount = ia.pda1 }, f.user, ErrInvalidMint},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args, acc := base()
			if tt.mutate != nil {
				tt.mutate(args, acc)
			}
			_, err := f.exec.Deposit(tt.signer, args, acc)
			require.ErrorIs(t, err, tt.want)
		})
	}

	require.Equal(t, uint64(userFunds), f.ledger.Balance(f.userATA0))
	ok, err := f.exec.Consumed(id)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDeposit_ActionSizeLimit(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	ledger := NewMockLedger()
	mock := NewMockCLMM(ledger, registry.CLMMProgramID)
	exec, err := NewExecutor(db, ledger, mock, Options{MaxActionSize: 16, Sink: &EventLog{}})
	require.NoError(t, err)

	admin, user := solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()
	require.NoError(t, exec.Initialize(admin, admin))
	pool := mock.AddPool(10, 0, 0)
	id := testTransferID(4)
	record, _, err := OperationRecordAddress(exec.ProgramID(), id)
	require.NoError(t, err)

	_, err = exec.Deposit(user, &DepositArgs{
		TransferID:    id,
		OperationType: OperationZapIn,
		Action:        &ZapInParams{AmountIn: 1, Pool: pool.Address, TickLower: -10, TickUpper: 10},
		Amount:        1,
		CA:            pool.Address,
		Executor:      admin,
	}, &DepositAccounts{
		AuthorityATA:        ledger.AddATA(user, pool.TokenMint0, 1),
		ProgramTokenAccount: ledger.AddAccount(record, pool.TokenMint0, 0),
		TokenProgram:        registry.Token2022ProgramID,
	})
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestStage_UnauthorizedCaller(t *testing.T) {
	f := newFixture(t)
	id := testTransferID(9)
	ia, err := f.depositZapIn(id, 1_000_000, f.zapParams(1_000_000))
	require.NoError(t, err)

	for _, signer := range []solana.PublicKey{f.user, f.admin, solana.NewWallet().PublicKey()} {
		err := f.exec.PrepareZapIn(signer, id, ia.zap(f.userATA0))
		require.ErrorIs(t, err, ErrUnauthorized)
	}

	rec := f.record(id)
	require.Equal(t, StageNone, rec.Stage)
	require.Equal(t, uint64(1_000_000), f.ledger.Balance(ia.custody))
	require.Zero(t, f.ledger.Balance(ia.pda0))
}

func TestStage_CheckOrder(t *testing.T) {
	f := newFixture(t)
	id := testTransferID(10)
	ia, err := f.depositZapIn(id, 1_000_000, f.zapParams(1_000_000))
	require.NoError(t, err)
	acc := ia.zap(f.userATA0)

	// unknown record
	err = f.exec.PrepareZapIn(f.executor, testTransferID(11), acc)
	require.ErrorIs(t, err, ErrNotInitialized)

	// record of id addressed with another transfer id
	wrong := *acc
	wrong.Record = ia.record
	err = f.exec.PrepareZapIn(f.user, testTransferID(12), &wrong)
	require.ErrorIs(t, err, ErrInvalidTransferID)

	// wrong stage is reported before the caller check
	err = f.exec.SwapZapIn(f.user, id, acc)
	require.ErrorIs(t, err, ErrInvalidParams)

	// ZapIn record driven through the transfer path
	err = f.exec.ExecuteTransfer(f.executor, id, &TransferAccounts{ProgramTokenAccount: ia.custody, RecipientAccount: f.userATA0})
	require.ErrorIs(t, err, ErrInvalidParams)

	// skipping a stage
	require.NoError(t, f.exec.PrepareZapIn(f.executor, id, acc))
	err = f.exec.OpenPositionZapIn(f.executor, id, acc)
	require.ErrorIs(t, err, ErrInvalidParams)
	require.Equal(t, StagePrepared, f.record(id).Stage)
}

func TestAdvance(t *testing.T) {
	rec := &OperationRecord{}
	require.ErrorIs(t, rec.advance(StageSwapped), ErrInvalidParams)
	for s := StagePrepared; s <= StageFinalized; s++ {
		require.NoError(t, rec.advance(s))
	}
	require.True(t, rec.Executed)
	require.ErrorIs(t, rec.advance(StageFinalized+1), ErrInvalidParams)
}

func TestExecuteTransfer(t *testing.T) {
	f := newFixture(t)
	id := testTransferID(20)
	recipient := solana.NewWallet().PublicKey()
	recipientATA := f.ledger.AddATA(recipient, f.pool.TokenMint0, 0)
	ia := f.custodyFor(id, f.pool.TokenMint0)

	_, err := f.exec.Deposit(f.user, &DepositArgs{
		TransferID:    id,
		OperationType: OperationTransfer,
		Action:        &TransferParams{Amount: 5_000, Recipient: recipient},
		Amount:        5_000,
		CA:            recipient,
		Executor:      f.executor,
	}, &DepositAccounts{
		AuthorityATA:        f.userATA0,
		ProgramTokenAccount: ia.custody,
		TokenProgram:        registry.TokenProgramID,
	})
	require.NoError(t, err)
	require.Equal(t, recipient, f.record(id).Recipient)
	params, err := f.record(id).Transfer()
	require.NoError(t, err)
	require.Equal(t, uint64(5_000), params.Amount)
	_, err = f.record(id).ZapIn()
	require.ErrorIs(t, err, ErrInvalidParams)

	acc := &TransferAccounts{ProgramTokenAccount: ia.custody, RecipientAccount: f.userATA0}
	err = f.exec.ExecuteTransfer(f.executor, id, acc)
	require.ErrorIs(t, err, ErrInvalidParams)

	acc.RecipientAccount = recipientATA
	require.ErrorIs(t, f.exec.ExecuteTransfer(f.user, id, acc), ErrUnauthorized)
	require.NoError(t, f.exec.ExecuteTransfer(f.executor, id, acc))
	require.Equal(t, uint64(5_000), f.ledger.Balance(recipientATA))

	rec := f.record(id)
	require.True(t, rec.Executed)
	require.Equal(t, StageFinalized, rec.Stage)
	require.ErrorIs(t, f.exec.ExecuteTransfer(f.executor, id, acc), ErrAlreadyExecuted)
}

func TestPrepare_InsufficientDepositRefund(t *testing.T) {
	f := newFixture(t)
	id := testTransferID(30)
	ia, err := f.depositZapIn(id, 500, f.zapParams(1_000))
	require.NoError(t, err)

	// refund account must belong to the authority
	stranger := f.ledger.AddAccount(f.executor, f.pool.TokenMint0, 0)
	require.ErrorIs(t, f.exec.PrepareZapIn(f.executor, id, ia.zap(stranger)), ErrInvalidParams)

	require.NoError(t, f.exec.PrepareZapIn(f.executor, id, ia.zap(f.userATA0)))
	require.Equal(t, uint64(userFunds), f.ledger.Balance(f.userATA0))
	require.Zero(t, f.ledger.Balance(ia.custody))

	rec := f.record(id)
	require.True(t, rec.Executed)
	require.Equal(t, StageFinalized, rec.Stage)
	require.True(t, rec.PersonalPosition.IsZero())

	refunds := f.events.Named("RefundEvent")
	require.Len(t, refunds, 1)
	require.Equal(t, uint64(500), refunds[0].(RefundEvent).Amount)

	require.ErrorIs(t, f.exec.SwapZapIn(f.executor, id, ia.zap(f.userATA0)), ErrAlreadyExecuted)
}

func TestPrepare_MintNotInPool(t *testing.T) {
	f := newFixture(t)
	id := testTransferID(31)
	other := solana.NewWallet().PublicKey()
	userOther := f.ledger.AddATA(f.user, other, 1_000)
	ia := f.custodyFor(id, other)

	_, err := f.exec.Deposit(f.user, &DepositArgs{
		TransferID:    id,
		OperationType: OperationZapIn,
		Action:        f.zapParams(1_000),
		Amount:        1_000,
		CA:            f.pool.Address,
		Executor:      f.executor,
	}, &DepositAccounts{
		AuthorityATA:        userOther,
		ProgramTokenAccount: ia.custody,
		TokenProgram:        registry.TokenProgramID,
	})
	require.NoError(t, err)
	require.ErrorIs(t, f.exec.PrepareZapIn(f.executor, id, ia.zap(userOther)), ErrInvalidMint)
}

func TestSwap_FailureKeepsPrepared(t *testing.T) {
	f := newFixture(t)
	id := testTransferID(40)
	ia, err := f.depositZapIn(id, 1_000_000, f.zapParams(1_000_000))
	require.NoError(t, err)
	acc := ia.zap(f.userATA0)
	require.NoError(t, f.exec.PrepareZapIn(f.executor, id, acc))

	f.clmm.swapErr = clmm.ErrSlippageExceeded
	err = f.exec.SwapZapIn(f.executor, id, acc)
	require.ErrorIs(t, err, clmm.ErrSlippageExceeded)
	_, ok := CodeOf(err)
	require.False(t, ok)
	require.Equal(t, StagePrepared, f.record(id).Stage)
	require.Equal(t, uint64(1_000_000), f.ledger.Balance(ia.pda0))

	f.clmm.swapErr = nil
	require.NoError(t, f.exec.SwapZapIn(f.executor, id, acc))
	require.Equal(t, StageSwapped, f.record(id).Stage)
}

func TestCancel(t *testing.T) {
	t.Run("after deposit returns everything", func(t *testing.T) {
		f := newFixture(t)
		id := testTransferID(50)
		ia, err := f.depositZapIn(id, 250_000, f.zapParams(250_000))
		require.NoError(t, err)

		acc := &CancelAccounts{ProgramTokenAccount: ia.custody, PDAToken0: ia.pda0, PDAToken1: ia.pda1}
		require.ErrorIs(t, f.exec.Cancel(solana.NewWallet().PublicKey(), id, acc), ErrUnauthorized)
		require.NoError(t, f.exec.Cancel(f.user, id, acc))

		require.Equal(t, uint64(userFunds), f.ledger.Balance(f.userATA0))
		rec := f.record(id)
		require.True(t, rec.Executed)
		require.Equal(t, StageFinalized, rec.Stage)
		require.ErrorIs(t, f.exec.Cancel(f.user, id, acc), ErrAlreadyExecuted)

		cancels := f.events.Named("CancelEvent")
		require.Len(t, cancels, 1)
		require.Equal(t, uint64(250_000), cancels[0].(CancelEvent).Returned)
	})

	t.Run("after swap sweeps both sides", func(t *testing.T) {
		f := newFixture(t)
		id := testTransferID(51)
		ia, err := f.depositZapIn(id, 1_000_000, f.zapParams(1_000_000))
		require.NoError(t, err)
		acc := ia.zap(f.userATA0)
		require.NoError(t, f.exec.PrepareZapIn(f.executor, id, acc))
		require.NoError(t, f.exec.SwapZapIn(f.executor, id, acc))

		side0, side1 := f.ledger.Balance(ia.pda0), f.ledger.Balance(ia.pda1)
		require.NotZero(t, side0)
		require.NotZero(t, side1)

		err = f.exec.Cancel(f.executor, id, &CancelAccounts{ProgramTokenAccount: ia.custody, PDAToken0: ia.pda0, PDAToken1: ia.pda1})
		require.NoError(t, err)
		require.Equal(t, uint64(userFunds-1_000_000)+side0, f.ledger.Balance(f.userATA0))
		require.Equal(t, side1, f.ledger.Balance(f.userATA1))
		require.Zero(t, f.ledger.Balance(ia.pda0))
		require.Zero(t, f.ledger.Balance(ia.pda1))
	})
}

func TestModifyPDAAuthority(t *testing.T) {
	f := newFixture(t)
	id := testTransferID(60)
	_, err := f.depositZapIn(id, 1_000, f.zapParams(1_000))
	require.NoError(t, err)
	next := solana.NewWallet().PublicKey()

	require.ErrorIs(t, f.exec.ModifyPDAAuthority(f.executor, id, next, solana.PublicKey{}), ErrUnauthorized)
	require.ErrorIs(t, f.exec.ModifyPDAAuthority(f.user, id, solana.PublicKey{}, solana.PublicKey{}), ErrInvalidParams)
	require.ErrorIs(t, f.exec.ModifyPDAAuthority(f.user, testTransferID(61), next, solana.PublicKey{}), ErrNotInitialized)
	require.NoError(t, f.exec.ModifyPDAAuthority(f.user, id, next, solana.PublicKey{}))

	rec := f.record(id)
	require.Equal(t, next, rec.Authority)
	require.Equal(t, f.executor, rec.Executor)
	require.Equal(t, StageNone, rec.Stage)

	// the old authority lost its rights
	require.ErrorIs(t, f.exec.ModifyPDAAuthority(f.user, id, f.user, solana.PublicKey{}), ErrUnauthorized)
}
