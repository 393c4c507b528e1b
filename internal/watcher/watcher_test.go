package watcher

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
	"github.com/tokenbank/bank-contract/internal/journal"
	"go.uber.org/zap/zaptest"
)

type testSubscriber struct {
	filter       *neorpc.NotificationFilter
	ch           chan<- *state.ContainedNotificationEvent
	subscribed   chan struct{}
	unsubscribed bool
	err          error
}

func newTestSubscriber() *testSubscriber {
	return &testSubscriber{subscribed: make(chan struct{})}
}

func (s *testSubscriber) ReceiveExecutionNotifications(flt *neorpc.NotificationFilter, rcvr chan<- *state.ContainedNotificationEvent) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.filter, s.ch = flt, rcvr
	close(s.subscribed)
	return "1", nil
}

func (s *testSubscriber) Unsubscribe(string) error {
	s.unsubscribed = true
	return nil
}

func notification(tx util.Uint256, name string, items ...any) *state.ContainedNotificationEvent {
	arr := make([]stackitem.Item, len(items))
	for i := range items {
		arr[i] = stackitem.Make(items[i])
	}

	return &state.ContainedNotificationEvent{
		Container: tx,
		NotificationEvent: state.NotificationEvent{
			Name: name,
			Item: stackitem.NewArray(arr),
		},
	}
}

func TestWatcher_Run(t *testing.T) {
	var (
		ctx, cancel = context.WithCancel(context.Background())
		contract    = util.Uint160{42}
		owner       = util.Uint160{1}
		sub         = newTestSubscriber()
	)
	defer cancel()

	j, err := journal.Open(journal.MemoryPath)
	require.NoError(t, err)
	defer j.Close()

	w := New(Prm{
		Logger:     zaptest.NewLogger(t),
		Subscriber: sub,
		Journal:    j,
		Contract:   contract,
	})

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	<-sub.subscribed
	require.Equal(t, contract, *sub.filter.Contract)

	sub.ch <- notification(util.Uint256{1}, "Create", owner.BytesBE(), "A")
	sub.ch <- notification(util.Uint256{2}, "Deposit", owner.BytesBE(), "A", 300)
	sub.ch <- notification(util.Uint256{2}, "Unknown")
	sub.ch <- notification(util.Uint256{3}, "AccountTransfer", owner.BytesBE(), "A", "B", 100, 1)
	sub.ch <- notification(util.Uint256{3}, "AccountTransfer", owner.BytesBE(), "A", "C", 50, 0)

	require.Eventually(t, func() bool {
		res, err := j.List(ctx, journal.Filter{})
		return err == nil && len(res) == 4
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	require.True(t, sub.unsubscribed)

	res, err := j.List(context.Background(), journal.Filter{Name: "AccountTransfer"})
	require.NoError(t, err)
	require.Len(t, res, 2)
	require.Equal(t, 1, res[0].Index)
	require.Equal(t, "C", res[0].Counterparty)
	require.Equal(t, 0, res[1].Index)
	require.Zero(t, big.NewInt(1).Cmp(res[1].Fee))
}

func TestWatcher_RunClosed(t *testing.T) {
	sub := newTestSubscriber()

	j, err := journal.Open(journal.MemoryPath)
	require.NoError(t, err)
	defer j.Close()

	w := New(Prm{Logger: zaptest.NewLogger(t), Subscriber: sub, Journal: j})

	done := make(chan error, 1)
	go func() { done <- w.Run(context.Background()) }()

	<-sub.subscribed
	close(sub.ch)

	require.ErrorIs(t, <-done, ErrSubscriptionClosed)
}

func TestWatcher_RunSubscribeFailure(t *testing.T) {
	sub := newTestSubscriber()
	sub.err = errors.New("method not found")

	w := New(Prm{Logger: zaptest.NewLogger(t), Subscriber: sub})
	require.ErrorIs(t, w.Run(context.Background()), sub.err)
}

func TestEntryFromEvent(t *testing.T) {
	var (
		owner    = util.Uint160{1}
		currency = util.Uint160{2}
	)

	e, err := EntryFromEvent("Init", notification(util.Uint256{}, "Init", owner.BytesBE(), currency.BytesBE()).Item)
	require.NoError(t, err)
	require.Equal(t, owner, e.Owner)
	require.Empty(t, e.Account)
	require.Equal(t, currency.StringLE(), e.Counterparty)

	e, err = EntryFromEvent("Withdraw", notification(util.Uint256{}, "Withdraw", owner.BytesBE(), "A", 16).Item)
	require.NoError(t, err)
	require.Equal(t, owner, e.Owner)
	require.Equal(t, "A", e.Account)
	require.Zero(t, big.NewInt(16).Cmp(e.Amount))

	e, err = EntryFromEvent("ChangeCurrency", notification(util.Uint256{}, "ChangeCurrency", owner.BytesBE(), currency.BytesBE()).Item)
	require.NoError(t, err)
	require.Equal(t, currency.StringLE(), e.Counterparty)

	_, err = EntryFromEvent("Deposit", notification(util.Uint256{}, "Deposit", owner.BytesBE()).Item)
	require.Error(t, err)

	_, err = EntryFromEvent("Mint", stackitem.NewArray(nil))
	require.Error(t, err)
}
