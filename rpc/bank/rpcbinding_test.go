package bank

import (
	"errors"
	"math/big"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/nspcc-dev/neo-go/pkg/vm/vmstate"
	"github.com/stretchr/testify/require"
	"github.com/tokenbank/bank-contract/contracts/bank/bankconst"
)

type testInvoker struct {
	method string
	params []any
	res    *result.Invoke
	err    error
}

func (t *testInvoker) Call(_ util.Uint160, operation string, params ...any) (*result.Invoke, error) {
	t.method, t.params = operation, params
	return t.res, t.err
}

func halt(items ...stackitem.Item) *result.Invoke {
	return &result.Invoke{State: vmstate.Halt.String(), Stack: items}
}

func TestContractReader(t *testing.T) {
	var (
		inv   = new(testInvoker)
		owner = util.Uint160{1, 2, 3}
		r     = NewReader(inv, util.Uint160{42})
	)

	t.Run("accounts", func(t *testing.T) {
		inv.res = halt(stackitem.NewArray([]stackitem.Item{
			stackitem.Make("Account 1"),
			stackitem.Make("Account 2"),
		}))

		names, err := r.AccountsOf(owner)
		require.NoError(t, err)
		require.Equal(t, []string{"Account 1", "Account 2"}, names)
		require.Equal(t, "accountsOf", inv.method)
		require.Equal(t, []any{owner}, inv.params)
	})

	t.Run("balance", func(t *testing.T) {
		inv.res = halt(stackitem.Make(55))

		b, err := r.BalanceOf("Account 1")
		require.NoError(t, err)
		require.EqualValues(t, 55, b.Int64())
	})

	t.Run("account info", func(t *testing.T) {
		inv.res = halt(stackitem.NewStruct([]stackitem.Item{
			stackitem.Make(owner.BytesBE()),
			stackitem.Make(39),
		}))

		acc, err := r.AccountInfo("Account 1")
		require.NoError(t, err)
		require.Equal(t, owner, acc.Owner)
		require.EqualValues(t, 39, acc.Balance.Int64())

		inv.res = halt(stackitem.Make(1))
		_, err = r.AccountInfo("Account 1")
		require.Error(t, err)
	})

	t.Run("currency", func(t *testing.T) {
		inv.res = halt(stackitem.Make(owner.BytesBE()))

		h, err := r.Currency()
		require.NoError(t, err)
		require.Equal(t, owner, h)
	})

	t.Run("fault", func(t *testing.T) {
		inv.res = &result.Invoke{
			State:          vmstate.Fault.String(),
			FaultException: "at instruction 42 (THROW): unhandled exception: \"" + bankconst.ErrNotFound + "\"",
		}

		_, err := r.BalanceOf("Account 3")
		require.ErrorIs(t, ParseError(err), ErrNotFound)
	})
}

func TestParseError(t *testing.T) {
	require.NoError(t, ParseError(nil))

	other := errors.New("connection refused")
	require.Equal(t, other, ParseError(other))

	for msg, expected := range map[string]error{
		bankconst.ErrAlreadyExists:       ErrAlreadyExists,
		bankconst.ErrNotFound:            ErrNotFound,
		bankconst.ErrOwnerNotFound:       ErrNotFound,
		bankconst.ErrUnauthorized:        ErrUnauthorized,
		bankconst.ErrInsufficientBalance: ErrInsufficientBalance,
		bankconst.ErrInvalidAddress:      ErrInvalidAddress,
		bankconst.ErrInvalidAmount:       ErrInvalidAmount,
		bankconst.ErrInvalidName:         ErrInvalidName,
		bankconst.ErrArithmeticOverflow:  ErrArithmeticOverflow,
		bankconst.ErrArithmeticUnderflow: ErrArithmeticUnderflow,
		bankconst.ErrTransferFailed:      ErrTransferFailed,
	} {
		err := ParseError(errors.New("unhandled exception: \"" + msg + "\""))
		require.ErrorIs(t, err, expected, msg)
	}
}

func TestCheckResult(t *testing.T) {
	other := errors.New("timeout")
	require.ErrorIs(t, CheckResult(nil, other), other)

	aer := &state.AppExecResult{
		Container: util.Uint256{1},
		Execution: state.Execution{VMState: vmstate.Halt},
	}
	require.NoError(t, CheckResult(aer, nil))

	aer.VMState = vmstate.Fault
	aer.FaultException = "unhandled exception: \"" + bankconst.ErrInsufficientBalance + "\""
	require.ErrorIs(t, CheckResult(aer, nil), ErrInsufficientBalance)
}

func TestEventsFromApplicationLog(t *testing.T) {
	var (
		owner = util.Uint160{1}
		bank  = util.Uint160{2}
	)

	log := &result.ApplicationLog{
		Executions: []state.Execution{{
			VMState: vmstate.Halt,
			Events: []state.NotificationEvent{
				{
					ScriptHash: bank,
					Name:       "Init",
					Item:       stackitem.NewArray([]stackitem.Item{stackitem.Make(owner.BytesBE()), stackitem.Make(bank.BytesBE())}),
				},
				{
					ScriptHash: bank,
					Name:       "Create",
					Item:       stackitem.NewArray([]stackitem.Item{stackitem.Make(owner.BytesBE()), stackitem.Make("A")}),
				},
				{
					ScriptHash: bank,
					Name:       "Deposit",
					Item: stackitem.NewArray([]stackitem.Item{
						stackitem.Make(owner.BytesBE()), stackitem.Make("A"), stackitem.Make(300),
					}),
				},
				{
					ScriptHash: bank,
					Name:       "AccountTransfer",
					Item: stackitem.NewArray([]stackitem.Item{
						stackitem.Make(owner.BytesBE()), stackitem.Make("A"), stackitem.Make("B"),
						stackitem.Make(100), stackitem.Make(1),
					}),
				},
				{
					ScriptHash: bank,
					Name:       "Withdraw",
					Item: stackitem.NewArray([]stackitem.Item{
						stackitem.Make(owner.BytesBE()), stackitem.Make("A"), stackitem.Make(16),
					}),
				},
				{
					ScriptHash: bank,
					Name:       "ChangeCurrency",
					Item:       stackitem.NewArray([]stackitem.Item{stackitem.Make(owner.BytesBE()), stackitem.Make(bank.BytesBE())}),
				},
			},
		}},
	}

	inits, err := InitEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Equal(t, []*InitEvent{{Owner: owner, Currency: bank}}, inits)

	created, err := CreateEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Equal(t, []*CreateEvent{{Owner: owner, Account: "A"}}, created)

	deposits, err := DepositEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	require.Equal(t, "A", deposits[0].Account)
	require.Zero(t, big.NewInt(300).Cmp(deposits[0].Amount))

	transfers, err := AccountTransferEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Len(t, transfers, 1)
	require.Equal(t, "B", transfers[0].To)
	require.Zero(t, big.NewInt(1).Cmp(transfers[0].Fee))

	withdrawals, err := WithdrawEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Len(t, withdrawals, 1)
	require.Zero(t, big.NewInt(16).Cmp(withdrawals[0].Amount))

	changes, err := ChangeCurrencyEventsFromApplicationLog(log)
	require.NoError(t, err)
	require.Equal(t, []*ChangeCurrencyEvent{{Owner: owner, Currency: bank}}, changes)

	_, err = CreateEventsFromApplicationLog(nil)
	require.Error(t, err)

	log.Executions[0].Events[1].Item = stackitem.NewArray([]stackitem.Item{stackitem.Make("A")})
	_, err = CreateEventsFromApplicationLog(log)
	require.Error(t, err)
}
