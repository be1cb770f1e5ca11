package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v3"
)

type badgerConfig struct {
	Dir string `json:"dir"`
}

type badgerStore struct {
	db *badger.DB
}

func init() {
	Register("badger", createBadgerStore)
}

// createBadgerStore opens a badger directory; an empty dir runs in memory.
func createBadgerStore(args interface{}) (Store, error) {
	cfg := &badgerConfig{}
	if err := decodeConfig(args, cfg); err != nil {
		return nil, err
	}
	opts := badger.DefaultOptions(cfg.Dir).WithLogger(nil)
	if cfg.Dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger cache: %w", err)
	}
	return &badgerStore{db: db}, nil
}

func (s *badgerStore) Get(_ context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cache[%s]: %w", key, err)
	}
	return value, nil
}

func (s *badgerStore) Set(_ context.Context, key string, value []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("set cache[%s]: %w", key, err)
	}
	return nil
}

func (s *badgerStore) Delete(_ context.Context, key string) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("delete cache[%s]: %w", key, err)
	}
	return nil
}

func (s *badgerStore) Close() error {
	return s.db.Close()
}
