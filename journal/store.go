package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/defistate/defistate-arb-go/engine"
	"github.com/ethereum/go-ethereum/common"
	_ "modernc.org/sqlite"
)

const (
	DefaultPath  = "arbitrage.db"
	DefaultLimit = 50
)

// Entry is one journaled opportunity and what settlement did with it.
type Entry struct {
	ID         int64                  `json:"id"`
	FoundAt    time.Time              `json:"foundAt"`
	Trigger    string                 `json:"trigger"`
	Path       engine.Path            `json:"path"`
	Amount     *big.Int               `json:"amount"`
	Profit     *big.Int               `json:"profit"`
	MinOutputs []*big.Int             `json:"minOutputs"`
	Decimals   uint8                  `json:"decimals"`
	Status     engine.ExecutionStatus `json:"status"`
	TxHash     common.Hash            `json:"txHash"`
	Error      string                 `json:"error,omitempty"`
}

// Store persists opportunities in SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// NewStore opens the journal at path, DefaultPath when empty. A "file:" DSN
// is used as given.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	dsn := path
	if !strings.HasPrefix(path, "file:") {
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init journal: %w", err)
	}
	return s, nil
}

func (s *Store) init() error {
	const createTable = `
CREATE TABLE IF NOT EXISTS opportunities (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	found_at INTEGER NOT NULL,
	trigger_source TEXT NOT NULL,
	start_token TEXT NOT NULL,
	hops TEXT NOT NULL,
	amount TEXT NOT NULL,
	profit TEXT NOT NULL,
	min_outputs TEXT NOT NULL,
	decimals INTEGER NOT NULL,
	status TEXT NOT NULL,
	tx_hash TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS opportunities_start_token ON opportunities(start_token);`

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(createTable)
	return err
}

// Record appends an opportunity and its execution outcome.
func (s *Store) Record(ctx context.Context, opp engine.Opportunity, exec engine.Execution) error {
	const insertStmt = `
INSERT INTO opportunities (found_at, trigger_source, start_token, hops, amount, profit, min_outputs, decimals, status, tx_hash, error)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	hops, err := json.Marshal(opp.Path.Hops)
	if err != nil {
		return fmt.Errorf("encode hops: %w", err)
	}
	minOuts, err := json.Marshal(opp.Result.MinOutputs)
	if err != nil {
		return fmt.Errorf("encode min outputs: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err = s.db.ExecContext(ctx, insertStmt,
		opp.FoundAt.UnixMilli(),
		opp.Trigger,
		opp.Path.Start().Hex(),
		string(hops),
		bigString(opp.Result.Amount),
		bigString(opp.Result.Profit),
		string(minOuts),
		opp.Result.Decimals,
		string(exec.Status),
		exec.TxHash.Hex(),
		exec.Error,
	)
	return err
}

// List returns up to limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	const selectStmt = `
SELECT id, found_at, trigger_source, hops, amount, profit, min_outputs, decimals, status, tx_hash, error
FROM opportunities
ORDER BY id DESC
LIMIT ?;`

	if limit <= 0 {
		limit = DefaultLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx, selectStmt, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e       Entry
			foundAt int64
			hops    string
			amount  string
			profit  string
			minOuts string
			status  string
			txHash  string
		)
		if err := rows.Scan(&e.ID, &foundAt, &e.Trigger, &hops, &amount, &profit, &minOuts, &e.Decimals, &status, &txHash, &e.Error); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(hops), &e.Path.Hops); err != nil {
			return nil, fmt.Errorf("entry %d hops: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(minOuts), &e.MinOutputs); err != nil {
			return nil, fmt.Errorf("entry %d min outputs: %w", e.ID, err)
		}
		e.FoundAt = time.UnixMilli(foundAt).UTC()
		e.Amount, _ = new(big.Int).SetString(amount, 10)
		e.Profit, _ = new(big.Int).SetString(profit, 10)
		e.Status = engine.ExecutionStatus(status)
		e.TxHash = common.HexToHash(txHash)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func bigString(x *big.Int) string {
	if x == nil {
		return "0"
	}
	return x.String()
}
