package snapshots

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/rss-opinion/internal/logger"
)

var rootBucket = []byte("snapshots")

// BoltStore keeps snapshots in a local bbolt file, one nested bucket per source key.
// Object names sort by save time, so the last key is the latest document.
type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
	log logger.Logger
}

// NewBoltStore opens (or creates) the database at path.
func NewBoltStore(path string, log logger.Logger) (*BoltStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(rootBucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init bolt db: %w", err)
	}

	return &BoltStore{db: db, now: time.Now, log: logger.Ensure(log)}, nil
}

// Latest returns the newest document for key.
func (s *BoltStore) Latest(_ context.Context, key string) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(rootBucket).Bucket([]byte(key))
		if b == nil {
			return ErrNotFound
		}
		k, v := b.Cursor().Last()
		if k == nil {
			return ErrNotFound
		}
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Save stores doc as a new entry for key.
func (s *BoltStore) Save(_ context.Context, key string, doc []byte) error {
	name := objectName(key, s.now())
	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.Bucket(rootBucket).CreateBucketIfNotExists([]byte(key))
		if err != nil {
			return err
		}
		return b.Put([]byte(name), doc)
	})
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", name, err)
	}
	s.log.InfoObj("snapshot saved", "snapshot_saved", map[string]any{
		"path":   s.db.Path(),
		"object": name,
		"bytes":  len(doc),
	})
	return nil
}

// Close closes the database.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
