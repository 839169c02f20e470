// Package feed supplies validated ledgers, each with the effect batches of
// its transactions, to the replay service.
package feed

import (
	"context"
	"errors"
	"io"

	"github.com/LeJamon/xrplstate/internal/core/tx/effect"
)

var ErrClosed = errors.New("feed closed")

// Ledger is one validated ledger's header and transaction effects, ordered
// by position.
type Ledger struct {
	Index        uint32
	Hash         [32]byte
	ParentHash   [32]byte
	AccountHash  [32]byte
	Transactions []*effect.Batch
}

// Source yields consecutive ledgers. Next returns io.EOF once a bounded
// source is exhausted.
type Source interface {
	Next(ctx context.Context) (*Ledger, error)
	Close() error
}

// SliceSource serves ledgers held in memory.
type SliceSource struct {
	ledgers []*Ledger
	pos     int
}

// NewSliceSource returns a source yielding ledgers in order.
func NewSliceSource(ledgers ...*Ledger) *SliceSource {
	return &SliceSource{ledgers: ledgers}
}

func (s *SliceSource) Next(ctx context.Context) (*Ledger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.pos >= len(s.ledgers) {
		return nil, io.EOF
	}
	l := s.ledgers[s.pos]
	s.pos++
	return l, nil
}

func (s *SliceSource) Close() error { return nil }

// ChainSource reads each source until it is exhausted, then moves to the
// next.
type ChainSource struct {
	sources []Source
	pos     int
}

// Chain returns a source that yields from sources in turn.
func Chain(sources ...Source) *ChainSource {
	return &ChainSource{sources: sources}
}

func (c *ChainSource) Next(ctx context.Context) (*Ledger, error) {
	for c.pos < len(c.sources) {
		l, err := c.sources[c.pos].Next(ctx)
		if errors.Is(err, io.EOF) {
			c.pos++
			continue
		}
		return l, err
	}
	return nil, io.EOF
}

// Close closes every source and returns the first error.
func (c *ChainSource) Close() error {
	var first error
	for _, s := range c.sources {
		if err := s.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
