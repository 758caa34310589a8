package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/asdine/storm"
)

const boltBucket = "strategium"

// boltStore keeps values in a single bucket of a bolt file.
type boltStore struct {
	db *storm.DB
}

// NewBolt opens (or creates) the bolt file at path.
func NewBolt(path string) (Store, error) {
	db, err := storm.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open bolt store: %w", err)
	}
	return &boltStore{db: db}, nil
}

func (b *boltStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value string
	err := b.db.Get(boltBucket, key, &value)
	if errors.Is(err, storm.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return []byte(value), true, nil
}

func (b *boltStore) Set(_ context.Context, key string, value []byte) error {
	return b.db.Set(boltBucket, key, string(value))
}

func (b *boltStore) Delete(_ context.Context, key string) error {
	err := b.db.Delete(boltBucket, key)
	if errors.Is(err, storm.ErrNotFound) {
		return nil
	}
	return err
}

func (b *boltStore) Close() error {
	return b.db.Close()
}
