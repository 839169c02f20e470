// Package statecompare reads the xrpl-state-compare PostgreSQL database.
// Replay uses it to seed state at a ledger and to stream the validated
// ledgers that follow.
package statecompare

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/LeJamon/xrplstate/internal/config"
)

var ErrLedgerNotFound = errors.New("ledger not found")

// Client provides access to the xrpl-state-compare PostgreSQL database.
type Client struct {
	db *sql.DB
}

// LedgerSnapshot is the header of an exported ledger.
type LedgerSnapshot struct {
	LedgerIndex uint32
	LedgerHash  [32]byte
	ParentHash  [32]byte
	AccountHash [32]byte
}

// StateEntry is one serialized state entry.
type StateEntry struct {
	Index [32]byte
	Data  []byte
}

// Transaction is one transaction with its binary metadata.
type Transaction struct {
	TxIndex  int
	TxHash   [32]byte
	MetaBlob []byte
}

// ConfigFromEnv reads the POSTGRES_* variables shared with the Python
// xrpl-state-compare tool, falling back to its defaults.
func ConfigFromEnv() config.PostgresConfig {
	return config.PostgresConfig{
		Host:     getEnvOrDefault("POSTGRES_HOST", "localhost"),
		Port:     getEnvOrDefault("POSTGRES_PORT", "5432"),
		Database: getEnvOrDefault("POSTGRES_DB", "xrpl_state"),
		User:     getEnvOrDefault("POSTGRES_USER", "postgres"),
		Password: getEnvOrDefault("POSTGRES_PASSWORD", "postgres"),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ConnString renders cfg as a lib/pq connection string.
func ConnString(cfg config.PostgresConfig) string {
	return fmt.Sprintf(
		"host=%s port=%s dbname=%s user=%s password=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Database, cfg.User, cfg.Password,
	)
}

// NewClient opens and pings the database.
func NewClient(ctx context.Context, cfg config.PostgresConfig) (*Client, error) {
	db, err := sql.Open("postgres", ConnString(cfg))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	return &Client{db: db}, nil
}

// Close closes the database connection.
func (c *Client) Close() error {
	return c.db.Close()
}

// GetSnapshot retrieves a ledger header by index.
func (c *Client) GetSnapshot(ctx context.Context, ledgerIndex uint32) (*LedgerSnapshot, error) {
	const query = `
		SELECT ledger_index, ledger_hash, parent_hash, account_hash
		FROM ledger_snapshots
		WHERE ledger_index = $1
	`

	snapshot := &LedgerSnapshot{}
	var ledgerHash, parentHash, accountHash []byte
	err := c.db.QueryRowContext(ctx, query, ledgerIndex).Scan(
		&snapshot.LedgerIndex, &ledgerHash, &parentHash, &accountHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrLedgerNotFound, ledgerIndex)
	}
	if err != nil {
		return nil, fmt.Errorf("querying snapshot: %w", err)
	}

	copy(snapshot.LedgerHash[:], ledgerHash)
	copy(snapshot.ParentHash[:], parentHash)
	copy(snapshot.AccountHash[:], accountHash)
	return snapshot, nil
}

// GetStateEntries retrieves the full state of a ledger in key order.
func (c *Client) GetStateEntries(ctx context.Context, ledgerIndex uint32) ([]StateEntry, error) {
	const query = `
		SELECT entry_index, data
		FROM ledger_state
		WHERE ledger_index = $1
		ORDER BY entry_index
	`

	rows, err := c.db.QueryContext(ctx, query, ledgerIndex)
	if err != nil {
		return nil, fmt.Errorf("querying state entries: %w", err)
	}
	defer rows.Close()

	var entries []StateEntry
	for rows.Next() {
		var index []byte
		var e StateEntry
		if err := rows.Scan(&index, &e.Data); err != nil {
			return nil, fmt.Errorf("scanning state entry: %w", err)
		}
		copy(e.Index[:], index)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state entries: %w", err)
	}
	return entries, nil
}

// GetTransactions retrieves a ledger's transactions in execution order.
func (c *Client) GetTransactions(ctx context.Context, ledgerIndex uint32) ([]Transaction, error) {
	const query = `
		SELECT tx_index, tx_hash, meta_blob
		FROM ledger_transactions
		WHERE ledger_index = $1
		ORDER BY tx_index
	`

	rows, err := c.db.QueryContext(ctx, query, ledgerIndex)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var hash []byte
		var tx Transaction
		if err := rows.Scan(&tx.TxIndex, &hash, &tx.MetaBlob); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		copy(tx.TxHash[:], hash)
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return txs, nil
}

// HasLedger checks if a ledger exists in the database.
func (c *Client) HasLedger(ctx context.Context, ledgerIndex uint32) (bool, error) {
	var exists bool
	err := c.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM ledger_snapshots WHERE ledger_index = $1)",
		ledgerIndex,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking ledger existence: %w", err)
	}
	return exists, nil
}

// ValidateRange reports the first ledger in [from, to] missing from the
// database.
func (c *Client) ValidateRange(ctx context.Context, from, to uint32) (bool, uint32, error) {
	for i := from; i <= to; i++ {
		exists, err := c.HasLedger(ctx, i)
		if err != nil {
			return false, i, err
		}
		if !exists {
			return false, i, nil
		}
	}
	return true, 0, nil
}
