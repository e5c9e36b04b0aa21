package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	badger "github.com/dgraph-io/badger/v4"
)

// Persistent is a badger-backed cache for rendered public content (news
// pages, event listings). It survives restarts; content publishing
// invalidates individual keys and maintenance clears the whole tier.
type Persistent struct {
	db     *badger.DB
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

func NewPersistent(dir string, ttl time.Duration) (*Persistent, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open content cache at %s: %w", dir, err)
	}
	return &Persistent{db: db, ttl: ttl}, nil
}

func (p *Persistent) Name() string { return "content" }

func (p *Persistent) Get(key string) ([]byte, bool) {
	var value []byte
	err := p.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			p.misses.Add(1)
		}
		return nil, false
	}
	p.hits.Add(1)
	return value, true
}

func (p *Persistent) Set(key string, value []byte) error {
	return p.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry([]byte(key), value).WithTTL(p.ttl)
		return txn.SetEntry(entry)
	})
}

func (p *Persistent) Delete(key string) error {
	return p.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
}

func (p *Persistent) Stats(_ context.Context) (TierStats, error) {
	var count int64
	err := p.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	if err != nil {
		return TierStats{}, fmt.Errorf("count content cache entries: %w", err)
	}

	lsm, vlog := p.db.Size()
	return TierStats{
		SizeBytes: lsm + vlog,
		ItemCount: count,
		Hits:      p.hits.Load(),
		Misses:    p.misses.Load(),
	}, nil
}

func (p *Persistent) Clear(_ context.Context) error {
	if err := p.db.DropAll(); err != nil {
		return fmt.Errorf("drop content cache: %w", err)
	}
	return nil
}

func (p *Persistent) Close() error {
	return p.db.Close()
}
