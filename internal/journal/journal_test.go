package journal

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	s, err := Open(MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore_Append(t *testing.T) {
	var (
		ctx   = context.Background()
		s     = openTestStore(t)
		owner = util.Uint160{1, 2, 3}
	)

	e := &Entry{
		Tx:      util.Uint256{1},
		Name:    "Deposit",
		Owner:   owner,
		Account: "Account 1",
		Amount:  big.NewInt(55),
	}

	added, err := s.Append(ctx, e)
	require.NoError(t, err)
	require.True(t, added)
	require.NotEqual(t, uuid.Nil, e.ID)
	require.False(t, e.ObservedAt.IsZero())

	// same notification observed twice
	dup := *e
	dup.ID = uuid.Nil
	added, err = s.Append(ctx, &dup)
	require.NoError(t, err)
	require.False(t, added)

	res, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, e.ID, res[0].ID)
	require.Equal(t, e.Tx, res[0].Tx)
	require.Equal(t, owner, res[0].Owner)
	require.Equal(t, "Account 1", res[0].Account)
	require.Zero(t, big.NewInt(55).Cmp(res[0].Amount))
	require.Nil(t, res[0].Fee)
	require.True(t, e.ObservedAt.Equal(res[0].ObservedAt))
}

func TestStore_List(t *testing.T) {
	var (
		ctx          = context.Background()
		s            = openTestStore(t)
		alice, bob   = util.Uint160{1}, util.Uint160{2}
		tx           = util.Uint256{42}
		appendEvents = func(entries ...Entry) {
			for i := range entries {
				entries[i].Tx = tx
				entries[i].Index = i
				_, err := s.Append(ctx, &entries[i])
				require.NoError(t, err)
			}
		}
	)

	appendEvents(
		Entry{Name: "Create", Owner: alice, Account: "A"},
		Entry{Name: "Create", Owner: bob, Account: "B"},
		Entry{Name: "Deposit", Owner: alice, Account: "A", Amount: big.NewInt(300)},
		Entry{Name: "AccountTransfer", Owner: alice, Account: "A", Counterparty: "B", Amount: big.NewInt(100), Fee: big.NewInt(1)},
		Entry{Name: "Withdraw", Owner: bob, Account: "B", Amount: big.NewInt(99)},
	)

	res, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, res, 5)
	require.Equal(t, "Withdraw", res[0].Name)
	require.Equal(t, "Create", res[4].Name)

	res, err = s.List(ctx, Filter{Owner: &alice})
	require.NoError(t, err)
	require.Len(t, res, 3)

	res, err = s.List(ctx, Filter{Account: "B"})
	require.NoError(t, err)
	require.Len(t, res, 3)
	require.Equal(t, "AccountTransfer", res[1].Name)
	require.Zero(t, big.NewInt(1).Cmp(res[1].Fee))

	res, err = s.List(ctx, Filter{Owner: &bob, Name: "Create"})
	require.NoError(t, err)
	require.Len(t, res, 1)
	require.Equal(t, "B", res[0].Account)

	res, err = s.List(ctx, Filter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, res, 2)
}

func TestStore_File(t *testing.T) {
	var (
		ctx  = context.Background()
		path = filepath.Join(t.TempDir(), "data", "journal.db")
	)

	s, err := Open(path)
	require.NoError(t, err)

	_, err = s.Append(ctx, &Entry{Name: "Create", Owner: util.Uint160{1}, Account: "A"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	res, err := s.List(ctx, Filter{})
	require.NoError(t, err)
	require.Len(t, res, 1)
}
