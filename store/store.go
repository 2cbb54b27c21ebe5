package store

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketBlobs = []byte("blobs")

// Store is a namespaced durable blob store backed by BoltDB. Durability here
// is a performance optimization, not a correctness requirement: callers treat
// every error as a cache miss. With an empty directory the store runs
// memory-only, which tests and diskless deployments use.
type Store struct {
	db *bolt.DB

	mu  sync.RWMutex
	mem map[string][]byte // memory-only mode
}

// Open creates or opens the blob store under dir. An empty dir selects
// memory-only mode.
func Open(dir string) (*Store, error) {
	if dir == "" {
		return &Store{mem: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	path := filepath.Join(dir, "lanefeed.db")
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketBlobs)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Get returns the blob stored under key, with ok=false on a miss.
func (s *Store) Get(key string) ([]byte, bool, error) {
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		val, ok := s.mem[key]
		if !ok {
			return nil, false, nil
		}
		out := make([]byte, len(val))
		copy(out, val)
		return out, true, nil
	}

	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		val := tx.Bucket(bucketBlobs).Get([]byte(key))
		if val != nil {
			out = make([]byte, len(val))
			copy(out, val)
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return out, out != nil, nil
}

// Put stores the blob under key, overwriting any previous value.
func (s *Store) Put(key string, val []byte) error {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		stored := make([]byte, len(val))
		copy(stored, val)
		s.mem[key] = stored
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketBlobs).Put([]byte(key), val)
	})
}

// Close releases the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
