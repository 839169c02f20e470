package statecompare

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/LeJamon/xrplstate/internal/core/tx/effect"
	"github.com/LeJamon/xrplstate/internal/feed"
)

// ledgerReader is the part of Client a RangeSource reads from.
type ledgerReader interface {
	GetSnapshot(ctx context.Context, ledgerIndex uint32) (*LedgerSnapshot, error)
	GetTransactions(ctx context.Context, ledgerIndex uint32) ([]Transaction, error)
}

// Ledger loads a validated ledger and decodes its transactions' metadata.
func (c *Client) Ledger(ctx context.Context, ledgerIndex uint32) (*feed.Ledger, error) {
	return readLedger(ctx, c, ledgerIndex)
}

func readLedger(ctx context.Context, r ledgerReader, ledgerIndex uint32) (*feed.Ledger, error) {
	snapshot, err := r.GetSnapshot(ctx, ledgerIndex)
	if err != nil {
		return nil, err
	}
	txs, err := r.GetTransactions(ctx, ledgerIndex)
	if err != nil {
		return nil, err
	}
	return BuildLedger(snapshot, txs)
}

// BuildLedger combines a snapshot with its transactions.
func BuildLedger(snapshot *LedgerSnapshot, txs []Transaction) (*feed.Ledger, error) {
	l := &feed.Ledger{
		Index:        snapshot.LedgerIndex,
		Hash:         snapshot.LedgerHash,
		ParentHash:   snapshot.ParentHash,
		AccountHash:  snapshot.AccountHash,
		Transactions: make([]*effect.Batch, 0, len(txs)),
	}
	for _, tx := range txs {
		meta, err := effect.DecodeMeta(tx.MetaBlob)
		if err != nil {
			return nil, fmt.Errorf("ledger %d transaction %d: %w", snapshot.LedgerIndex, tx.TxIndex, err)
		}
		l.Transactions = append(l.Transactions, effect.NewBatch(tx.TxHash, snapshot.LedgerIndex, meta))
	}
	return l, nil
}

// RangeSource yields the ledgers from..to read from the database. A zero
// upper bound follows the database until a ledger is missing.
type RangeSource struct {
	reader ledgerReader
	next   uint32
	to     uint32
	closer io.Closer
}

// NewRangeSource returns a source over [from, to] backed by c. Closing the
// source closes the client.
func NewRangeSource(c *Client, from, to uint32) *RangeSource {
	return &RangeSource{reader: c, next: from, to: to, closer: c}
}

func (s *RangeSource) Next(ctx context.Context) (*feed.Ledger, error) {
	if s.to != 0 && s.next > s.to {
		return nil, io.EOF
	}
	l, err := readLedger(ctx, s.reader, s.next)
	if err != nil {
		if s.to == 0 && errors.Is(err, ErrLedgerNotFound) {
			return nil, io.EOF
		}
		return nil, err
	}
	s.next++
	return l, nil
}

func (s *RangeSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
