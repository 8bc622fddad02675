// Package storage keeps a history of run summaries in a bbolt file.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.etcd.io/bbolt"

	"github.com/wesleyorama2/vuload/internal/performance/config"
	"github.com/wesleyorama2/vuload/internal/performance/engine"
)

const (
	BucketRuns = "runs"
)

// ErrNotFound is returned by Get for an unknown run ID.
var ErrNotFound = errors.New("run not found")

// HistoryItem is one stored run.
type HistoryItem struct {
	ID        string           `json:"id"`
	Timestamp time.Time        `json:"timestamp"`
	Config    config.RunConfig `json:"config"`
	Summary   *engine.Summary  `json:"summary"`
}

// Passed reports whether the stored run passed its thresholds.
func (h HistoryItem) Passed() bool {
	return h.Summary != nil && h.Summary.Passed
}

// Store is a run history backed by a single bbolt file.
type Store struct {
	db       *bbolt.DB
	filePath string
}

// Open opens (creating if needed) the history file at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(BucketRuns))
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{
		db:       db,
		filePath: path,
	}, nil
}

// Path returns the history file path.
func (s *Store) Path() string {
	return s.filePath
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Save stores a run summary under its run ID.
func (s *Store) Save(cfg config.RunConfig, summary *engine.Summary) error {
	if summary == nil || summary.RunID == "" {
		return fmt.Errorf("summary has no run ID")
	}

	item := HistoryItem{
		ID:        summary.RunID,
		Timestamp: summary.StartTime,
		Config:    cfg,
		Summary:   summary,
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))

		data, err := json.Marshal(item)
		if err != nil {
			return err
		}

		return b.Put([]byte(item.ID), data)
	})
}

// List returns stored runs, newest first. limit <= 0 returns all of them.
// Entries that no longer decode are skipped.
func (s *Store) List(limit int) ([]HistoryItem, error) {
	var items []HistoryItem

	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		return b.ForEach(func(_, v []byte) error {
			var item HistoryItem
			if err := json.Unmarshal(v, &item); err == nil {
				items = append(items, item)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Timestamp.After(items[j].Timestamp)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// Get returns one stored run.
func (s *Store) Get(id string) (*HistoryItem, error) {
	var item HistoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(BucketRuns))
		v := b.Get([]byte(id))
		if v == nil {
			return fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return json.Unmarshal(v, &item)
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// Delete removes a stored run. Deleting an unknown ID is not an error.
func (s *Store) Delete(id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketRuns)).Delete([]byte(id))
	})
}
