package store

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	bucketNetwork = []byte("network")
	keyNetState   = []byte("state")
)

// BoltStore implements Store using BoltDB.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens or creates a BoltDB database.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketNetwork)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) SaveNetworkState(state *NetworkState) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNetwork)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNetwork)
		}
		data, err := json.Marshal(state)
		if err != nil {
			return err
		}
		return b.Put(keyNetState, data)
	})
}

func (s *BoltStore) GetNetworkState() (*NetworkState, error) {
	var state NetworkState
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNetwork)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNetwork)
		}
		data := b.Get(keyNetState)
		if data == nil {
			return fmt.Errorf("network state: %w", ErrNotFound)
		}
		return json.Unmarshal(data, &state)
	})
	if err != nil {
		return nil, err
	}
	return &state, nil
}

func (s *BoltStore) ClearNetworkState() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketNetwork)
		if b == nil {
			return fmt.Errorf("bucket %q not found", bucketNetwork)
		}
		return b.Delete(keyNetState)
	})
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
