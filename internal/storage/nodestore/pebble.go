package nodestore

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
)

// PebbleBackend stores data in a PebbleDB database.
type PebbleBackend struct {
	config *Config

	mu sync.RWMutex
	db *pebble.DB
}

// NewPebbleBackend creates a PebbleDB backend.
func NewPebbleBackend(config *Config) (Backend, error) {
	if config == nil {
		config = DefaultConfig()
	}
	return &PebbleBackend{config: config}, nil
}

func (p *PebbleBackend) Name() string {
	return fmt.Sprintf("pebble(%s)", p.config.Path)
}

func (p *PebbleBackend) Open(createIfMissing bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db != nil {
		return ErrAlreadyOpen
	}

	dir := p.config.Path
	opts := &pebble.Options{ErrorIfNotExists: !createIfMissing}
	if p.config.InMemory {
		opts.FS = vfs.NewMem()
		if dir == "" {
			dir = "nodestore"
		}
	} else if createIfMissing {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	db, err := pebble.Open(dir, opts)
	if err != nil {
		return fmt.Errorf("failed to open PebbleDB at %s: %w", dir, err)
	}
	p.db = db
	return nil
}

func (p *PebbleBackend) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.db == nil {
		return nil
	}
	err := p.db.Close()
	p.db = nil
	return wrapError(err, "close", "pebble")
}

func (p *PebbleBackend) Get(key []byte) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return nil, ErrBackendClosed
	}

	value, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, wrapError(err, "get", "pebble")
	}
	defer closer.Close()
	return append([]byte(nil), value...), nil
}

func (p *PebbleBackend) Put(key, value []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return ErrBackendClosed
	}
	return wrapError(p.db.Set(key, value, pebble.Sync), "put", "pebble")
}

func (p *PebbleBackend) Write(b *Batch) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return ErrBackendClosed
	}

	batch := p.db.NewBatch()
	defer batch.Close()
	for _, op := range b.ops {
		var err error
		if op.delete {
			err = batch.Delete(op.key, nil)
		} else {
			err = batch.Set(op.key, op.value, nil)
		}
		if err != nil {
			return wrapError(err, "batch", "pebble")
		}
	}
	return wrapError(batch.Commit(pebble.Sync), "commit", "pebble")
}

func (p *PebbleBackend) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.db == nil {
		return ErrBackendClosed
	}

	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: prefixEnd(prefix),
	})
	if err != nil {
		return wrapError(err, "iterate", "pebble")
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	return wrapError(iter.Error(), "iterate", "pebble")
}
