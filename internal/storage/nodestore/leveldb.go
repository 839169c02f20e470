package nodestore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDBBackend stores data in a goleveldb database.
type LevelDBBackend struct {
	config *Config

	mu sync.RWMutex
	db *leveldb.DB
}

// NewLevelDBBackend creates a goleveldb backend.
func NewLevelDBBackend(config *Config) (Backend, error) {
	if config == nil {
		config = DefaultConfig()
	}
	return &LevelDBBackend{config: config}, nil
}

func (l *LevelDBBackend) Name() string {
	return fmt.Sprintf("leveldb(%s)", l.config.Path)
}

func (l *LevelDBBackend) Open(createIfMissing bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db != nil {
		return ErrAlreadyOpen
	}

	// Values arrive compressed already.
	o := &opt.Options{
		ErrorIfMissing: !createIfMissing,
		Compression:    opt.NoCompression,
	}

	var (
		db  *leveldb.DB
		err error
	)
	if l.config.InMemory {
		db, err = leveldb.Open(storage.NewMemStorage(), o)
	} else {
		db, err = leveldb.OpenFile(l.config.Path, o)
	}
	if err != nil {
		return fmt.Errorf("failed to open LevelDB at %s: %w", l.config.Path, err)
	}
	l.db = db
	return nil
}

func (l *LevelDBBackend) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.db == nil {
		return nil
	}
	err := l.db.Close()
	l.db = nil
	return wrapError(err, "close", "leveldb")
}

func (l *LevelDBBackend) Get(key []byte) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return nil, ErrBackendClosed
	}

	value, err := l.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, ErrNotFound
	}
	return value, wrapError(err, "get", "leveldb")
}

func (l *LevelDBBackend) Put(key, value []byte) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return ErrBackendClosed
	}
	return wrapError(l.db.Put(key, value, &opt.WriteOptions{Sync: true}), "put", "leveldb")
}

func (l *LevelDBBackend) Write(b *Batch) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return ErrBackendClosed
	}

	batch := new(leveldb.Batch)
	for _, op := range b.ops {
		if op.delete {
			batch.Delete(op.key)
		} else {
			batch.Put(op.key, op.value)
		}
	}
	return wrapError(l.db.Write(batch, &opt.WriteOptions{Sync: true}), "write", "leveldb")
}

func (l *LevelDBBackend) Iterate(prefix []byte, fn func(key, value []byte) bool) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.db == nil {
		return ErrBackendClosed
	}

	iter := l.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if !fn(iter.Key(), iter.Value()) {
			break
		}
	}
	return wrapError(iter.Error(), "iterate", "leveldb")
}
