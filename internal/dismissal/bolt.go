package dismissal

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"go.etcd.io/bbolt"
)

const dismissalBucket = "dismissals"

// BoltStore provides a BoltDB-backed dismissal store.
type BoltStore struct {
	db *bbolt.DB
}

// OpenBoltStore opens a BoltDB-backed dismissal store at the provided path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	db, err := bbolt.Open(cleanPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open dismissal db: %w", err)
	}

	store := &BoltStore{db: db}
	if err := store.ensureBucket(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying BoltDB database.
func (s *BoltStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *BoltStore) ensureBucket() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(dismissalBucket))
		return err
	})
	if err != nil {
		return fmt.Errorf("ensure dismissal bucket: %w", err)
	}
	return nil
}

// Add records a dismissal under the viewer's sub-bucket.
func (s *BoltStore) Add(ctx context.Context, viewerID, questID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return fmt.Errorf("storage is not configured")
	}
	viewerID = strings.TrimSpace(viewerID)
	questID = strings.TrimSpace(questID)
	if viewerID == "" {
		return fmt.Errorf("viewer id is required")
	}
	if questID == "" {
		return fmt.Errorf("quest id is required")
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(dismissalBucket))
		if root == nil {
			return fmt.Errorf("dismissal bucket is missing")
		}
		viewer, err := root.CreateBucketIfNotExists([]byte(viewerID))
		if err != nil {
			return fmt.Errorf("create viewer bucket: %w", err)
		}
		return viewer.Put([]byte(questID), []byte{1})
	})
	if err != nil {
		return fmt.Errorf("add dismissal: %w", err)
	}
	return nil
}

// List returns the viewer's dismissed quest ids.
func (s *BoltStore) List(ctx context.Context, viewerID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	viewerID = strings.TrimSpace(viewerID)
	if viewerID == "" {
		return nil, fmt.Errorf("viewer id is required")
	}

	var ids []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket([]byte(dismissalBucket))
		if root == nil {
			return nil
		}
		viewer := root.Bucket([]byte(viewerID))
		if viewer == nil {
			return nil
		}
		return viewer.ForEach(func(key, _ []byte) error {
			ids = append(ids, string(key))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list dismissals: %w", err)
	}
	return ids, nil
}
