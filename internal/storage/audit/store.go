// Package audit records per-ledger replay results and directory cleanup
// failures in SQLite.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/LeJamon/xrplstate/internal/core/ledger/entry"
	"github.com/LeJamon/xrplstate/internal/replay"
	"github.com/LeJamon/xrplstate/internal/storage/audit/migrations"
)

// ErrDuplicateLedger is returned when a ledger has already been recorded.
var ErrDuplicateLedger = errors.New("ledger already recorded")

// LedgerAudit is the outcome of replaying one ledger.
type LedgerAudit struct {
	LedgerIndex  uint32
	LedgerHash   [32]byte
	AccountHash  [32]byte
	ComputedHash [32]byte
	Consistent   bool

	Transactions    uint64
	Created         uint64
	Modified        uint64
	Deleted         uint64
	CleanupFailures uint64
	OutOfOrder      int

	Duration   time.Duration
	RecordedAt time.Time
}

// Store persists audit records.
type Store struct {
	db *sql.DB
}

// Open opens or creates the audit database at path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("audit path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func toMicros(d time.Duration) int64 { return d.Microseconds() }

// RecordLedger stores a ledger's audit row. Recording the same ledger twice
// fails with ErrDuplicateLedger.
func (s *Store) RecordLedger(ctx context.Context, a LedgerAudit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	recorded := a.RecordedAt
	if recorded.IsZero() {
		recorded = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ledgers (
		   ledger_index, ledger_hash, account_hash, computed_hash, consistent,
		   transactions, created, modified, deleted, cleanup_failures, out_of_order,
		   duration_us, recorded_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.LedgerIndex,
		entry.HashHex(a.LedgerHash),
		entry.HashHex(a.AccountHash),
		entry.HashHex(a.ComputedHash),
		a.Consistent,
		a.Transactions,
		a.Created,
		a.Modified,
		a.Deleted,
		a.CleanupFailures,
		a.OutOfOrder,
		toMicros(a.Duration),
		recorded.UTC().UnixMilli(),
	)
	if isConstraint(err) {
		return fmt.Errorf("%w: %d", ErrDuplicateLedger, a.LedgerIndex)
	}
	if err != nil {
		return fmt.Errorf("insert ledger %d: %w", a.LedgerIndex, err)
	}
	return nil
}

// RecordCleanupFailure stores one directory cleanup failure.
func (s *Store) RecordCleanupFailure(ctx context.Context, f replay.CleanupFailure) error {
	detail := ""
	if f.Err != nil {
		detail = f.Err.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cleanup_failures (
		   ledger_index, tx_hash, entry_index, directory, result, detail, recorded_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.LedgerIndex,
		entry.HashHex(f.TxHash),
		entry.HashHex(f.Entry),
		entry.HashHex(f.Directory),
		f.Result.String(),
		detail,
		time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert cleanup failure: %w", err)
	}
	return nil
}

// Ledgers returns up to limit audit rows, newest first.
func (s *Store) Ledgers(ctx context.Context, limit int) ([]LedgerAudit, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT ledger_index, ledger_hash, account_hash, computed_hash, consistent,
		        transactions, created, modified, deleted, cleanup_failures, out_of_order,
		        duration_us, recorded_at
		   FROM ledgers
		  ORDER BY ledger_index DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query ledgers: %w", err)
	}
	defer rows.Close()

	var out []LedgerAudit
	for rows.Next() {
		var (
			a                          LedgerAudit
			ledgerHash, account, comp  string
			durationUS, recordedMillis int64
		)
		if err := rows.Scan(&a.LedgerIndex, &ledgerHash, &account, &comp, &a.Consistent,
			&a.Transactions, &a.Created, &a.Modified, &a.Deleted, &a.CleanupFailures, &a.OutOfOrder,
			&durationUS, &recordedMillis); err != nil {
			return nil, fmt.Errorf("scan ledger: %w", err)
		}
		if a.LedgerHash, err = entry.ParseHash(ledgerHash); err != nil {
			return nil, err
		}
		if a.AccountHash, err = entry.ParseHash(account); err != nil {
			return nil, err
		}
		if a.ComputedHash, err = entry.ParseHash(comp); err != nil {
			return nil, err
		}
		a.Duration = time.Duration(durationUS) * time.Microsecond
		a.RecordedAt = time.UnixMilli(recordedMillis).UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

// CleanupFailureCount returns how many cleanup failures were recorded for
// ledgerIndex.
func (s *Store) CleanupFailureCount(ctx context.Context, ledgerIndex uint32) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cleanup_failures WHERE ledger_index = ?`, ledgerIndex).Scan(&n)
	return n, err
}

func isConstraint(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
