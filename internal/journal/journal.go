// Package journal persists bank ledger events observed on the chain in a
// SQLite database.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nspcc-dev/neo-go/pkg/util"

	_ "modernc.org/sqlite"
)

const (
	// MemoryPath opens a private in-memory database.
	MemoryPath = ":memory:"

	maxBusyTimeoutMs = 5000

	// DefaultLimit is the number of entries returned by List when the filter
	// has no limit.
	DefaultLimit = 100
)

// Entry is a single ledger event.
type Entry struct {
	ID uuid.UUID `json:"id"`
	// Transaction the event was thrown in.
	Tx util.Uint256 `json:"tx"`
	// Index of the notification in the transaction execution.
	Index int `json:"index"`
	// Event name as declared in the contract manifest.
	Name string `json:"event"`
	// Account owner, depositor address for Deposit events.
	Owner util.Uint160 `json:"owner"`
	// Account the event relates to, source account for transfers. Empty for
	// ledger initialization and currency changes.
	Account string `json:"account,omitempty"`
	// Destination account for transfers, currency address for ledger
	// initialization and currency changes.
	Counterparty string `json:"counterparty,omitempty"`

	Amount *big.Int `json:"amount,omitempty"`
	Fee    *big.Int `json:"fee,omitempty"`

	ObservedAt time.Time `json:"observed_at"`
}

// Filter selects journal entries. Zero fields match any entry.
type Filter struct {
	Owner   *util.Uint160
	Account string
	Name    string
	Limit   int
}

// Store is a SQLite-backed event journal. Store is safe for concurrent use.
type Store struct {
	mu sync.RWMutex
	db *sql.DB
}

// Open opens the journal database at the given path creating it if needed.
func Open(path string) (*Store, error) {
	connStr := "file::memory:"

	if path != MemoryPath {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return nil, fmt.Errorf("resolve db path: %w", err)
		}

		if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}

		connStr = fmt.Sprintf("file:%s", filepath.Clean(absPath))
	}

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// in-memory database lives as long as its connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", maxBusyTimeoutMs)); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	s := &Store{db: db}

	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS events (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		tx TEXT NOT NULL,
		idx INTEGER NOT NULL,
		name TEXT NOT NULL,
		owner TEXT NOT NULL,
		account TEXT,
		counterparty TEXT,
		amount TEXT,
		fee TEXT,
		observed_at TEXT NOT NULL,
		UNIQUE (tx, idx)
	)`)
	if err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS events_owner ON events (owner)`)
	if err != nil {
		return fmt.Errorf("create owner index: %w", err)
	}

	return nil
}

// Append stores the entry assigning its ID and observation time if they are
// missing. Entries already stored for the same transaction notification are
// ignored, false is returned in this case.
func (s *Store) Append(ctx context.Context, e *Entry) (bool, error) {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.ObservedAt.IsZero() {
		e.ObservedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO events (
		id, tx, idx, name, owner, account, counterparty, amount, fee, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Tx.StringLE(), e.Index, e.Name, e.Owner.StringLE(),
		e.Account, e.Counterparty, bigToText(e.Amount), bigToText(e.Fee),
		e.ObservedAt.Format(time.RFC3339Nano))
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}

	return n > 0, nil
}

// List returns entries matching the filter, the latest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Entry, error) {
	var (
		conds []string
		args  []any
	)

	if f.Owner != nil {
		conds = append(conds, "owner = ?")
		args = append(args, f.Owner.StringLE())
	}
	if f.Account != "" {
		conds = append(conds, "(account = ? OR (counterparty = ? AND name = 'AccountTransfer'))")
		args = append(args, f.Account, f.Account)
	}
	if f.Name != "" {
		conds = append(conds, "name = ?")
		args = append(args, f.Name)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT id, tx, idx, name, owner, account, counterparty, amount, fee, observed_at FROM events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, limit)

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var res []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return res, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		e                                  Entry
		id, tx, owner, observed            string
		account, counterparty, amount, fee sql.NullString
		err                                error
	)

	if err = rows.Scan(&id, &tx, &e.Index, &e.Name, &owner, &account, &counterparty, &amount, &fee, &observed); err != nil {
		return e, fmt.Errorf("scan event: %w", err)
	}

	if e.ID, err = uuid.Parse(id); err != nil {
		return e, fmt.Errorf("decode event id: %w", err)
	}
	if e.Tx, err = util.Uint256DecodeStringLE(tx); err != nil {
		return e, fmt.Errorf("decode event tx: %w", err)
	}
	if e.Owner, err = util.Uint160DecodeStringLE(owner); err != nil {
		return e, fmt.Errorf("decode event owner: %w", err)
	}
	if e.Amount, err = textToBig(amount); err != nil {
		return e, fmt.Errorf("decode event amount: %w", err)
	}
	if e.Fee, err = textToBig(fee); err != nil {
		return e, fmt.Errorf("decode event fee: %w", err)
	}
	if e.ObservedAt, err = time.Parse(time.RFC3339Nano, observed); err != nil {
		return e, fmt.Errorf("decode event time: %w", err)
	}

	e.Account = account.String
	e.Counterparty = counterparty.String

	return e, nil
}

func bigToText(v *big.Int) any {
	if v == nil {
		return nil
	}
	return v.String()
}

func textToBig(s sql.NullString) (*big.Int, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}

	v, ok := new(big.Int).SetString(s.String, 10)
	if !ok {
		return nil, errors.New("not a decimal integer")
	}

	return v, nil
}
