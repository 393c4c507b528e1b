// Package watcher follows bank contract notifications and stores them in the
// event journal.
package watcher

import (
	"context"
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/state"
	"github.com/nspcc-dev/neo-go/pkg/neorpc"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/tokenbank/bank-contract/internal/journal"
	"github.com/tokenbank/bank-contract/internal/metrics"
	"github.com/tokenbank/bank-contract/rpc/bank"
	"go.uber.org/zap"
)

// Subscriber opens the stream of contract execution notifications. It is
// implemented by the neo-go WebSocket RPC client.
type Subscriber interface {
	ReceiveExecutionNotifications(flt *neorpc.NotificationFilter, rcvr chan<- *state.ContainedNotificationEvent) (string, error)
	Unsubscribe(id string) error
}

// Journal stores observed events.
type Journal interface {
	Append(ctx context.Context, e *journal.Entry) (bool, error)
}

// Prm groups Watcher parameters.
type Prm struct {
	Logger     *zap.Logger
	Subscriber Subscriber
	Journal    Journal
	// Bank contract address.
	Contract util.Uint160
}

// Watcher stores notifications of the bank contract in the journal.
type Watcher struct {
	log      *zap.Logger
	sub      Subscriber
	journal  Journal
	contract util.Uint160
}

// ErrSubscriptionClosed is returned by Run when the notification stream is
// closed by the RPC client, usually because of connection loss.
var ErrSubscriptionClosed = errors.New("notification subscription closed")

// New creates Watcher from the given parameters.
func New(prm Prm) *Watcher {
	return &Watcher{
		log:      prm.Logger,
		sub:      prm.Subscriber,
		journal:  prm.Journal,
		contract: prm.Contract,
	}
}

// Run subscribes to the contract notifications and handles them until the
// context is done or the subscription is closed. Malformed notifications are
// logged and skipped, journal failures stop the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	ch := make(chan *state.ContainedNotificationEvent, 64)

	id, err := w.sub.ReceiveExecutionNotifications(&neorpc.NotificationFilter{Contract: &w.contract}, ch)
	if err != nil {
		metrics.RecordWatcherError("subscribe")
		return fmt.Errorf("subscribe to notifications of %s: %w", w.contract.StringLE(), err)
	}

	w.log.Info("watching bank contract notifications", zap.Stringer("contract", w.contract))

	var (
		lastTx util.Uint256
		index  int
	)

	for {
		select {
		case <-ctx.Done():
			if err := w.sub.Unsubscribe(id); err != nil {
				w.log.Debug("failed to unsubscribe", zap.Error(err))
			}
			return nil
		case ev, ok := <-ch:
			if !ok {
				metrics.RecordWatcherError("closed")
				return ErrSubscriptionClosed
			}

			// notifications of one transaction are delivered in a row
			if ev.Container.Equals(lastTx) {
				index++
			} else {
				lastTx, index = ev.Container, 0
			}

			err := w.handle(ctx, ev, index)
			if err != nil {
				return err
			}
		}
	}
}

func (w *Watcher) handle(ctx context.Context, ev *state.ContainedNotificationEvent, index int) error {
	l := w.log.With(zap.String("event", ev.Name), zap.Stringer("tx", ev.Container))

	e, err := EntryFromEvent(ev.Name, ev.Item)
	if err != nil {
		metrics.RecordWatcherError("decode")
		l.Warn("skip malformed notification", zap.Error(err))
		return nil
	}

	e.Tx = ev.Container
	e.Index = index

	added, err := w.journal.Append(ctx, &e)
	if err != nil {
		metrics.RecordWatcherError("journal")
		return fmt.Errorf("store %s event of tx %s: %w", ev.Name, ev.Container.StringLE(), err)
	}

	if !added {
		l.Debug("event is already in the journal")
		return nil
	}

	metrics.RecordEvent(ev.Name)
	l.Info("ledger event", zap.String("account", e.Account), zap.Stringer("amount", e.Amount))

	return nil
}

// EntryFromEvent decodes bank contract notification into the journal entry.
func EntryFromEvent(name string, item *stackitem.Array) (journal.Entry, error) {
	var e = journal.Entry{Name: name}

	switch name {
	case "Init":
		var ev bank.InitEvent
		if err := ev.FromStackItem(item); err != nil {
			return e, fmt.Errorf("decode %s event: %w", name, err)
		}
		e.Owner, e.Counterparty = ev.Owner, ev.Currency.StringLE()
	case "Create":
		var ev bank.CreateEvent
		if err := ev.FromStackItem(item); err != nil {
			return e, fmt.Errorf("decode %s event: %w", name, err)
		}
		e.Owner, e.Account = ev.Owner, ev.Account
	case "Deposit":
		var ev bank.DepositEvent
		if err := ev.FromStackItem(item); err != nil {
			return e, fmt.Errorf("decode %s event: %w", name, err)
		}
		e.Owner, e.Account, e.Amount = ev.From, ev.Account, ev.Amount
	case "Withdraw":
		var ev bank.WithdrawEvent
		if err := ev.FromStackItem(item); err != nil {
			return e, fmt.Errorf("decode %s event: %w", name, err)
		}
		e.Owner, e.Account, e.Amount = ev.Owner, ev.Account, ev.Amount
	case "AccountTransfer":
		var ev bank.AccountTransferEvent
		if err := ev.FromStackItem(item); err != nil {
			return e, fmt.Errorf("decode %s event: %w", name, err)
		}
		e.Owner, e.Account, e.Counterparty = ev.Owner, ev.From, ev.To
		e.Amount, e.Fee = ev.Amount, ev.Fee
	case "ChangeCurrency":
		var ev bank.ChangeCurrencyEvent
		if err := ev.FromStackItem(item); err != nil {
			return e, fmt.Errorf("decode %s event: %w", name, err)
		}
		e.Owner, e.Counterparty = ev.Owner, ev.Currency.StringLE()
	default:
		return e, fmt.Errorf("unknown event %s", name)
	}

	return e, nil
}
