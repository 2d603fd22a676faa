// Package storage implements the memory collaborator on BadgerDB:
// decision records per agent plus lifecycle machine checkpoints.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/helmsman-ai/helmsman/agent"
	"github.com/helmsman-ai/helmsman/core"
)

const (
	decisionPrefix   = "decision/"
	checkpointPrefix = "checkpoint/"
)

// DecisionStore is a badger-backed agent.Memory.
type DecisionStore struct {
	db *badger.DB
}

var _ agent.Memory = (*DecisionStore)(nil)

// Open opens (or creates) the store at path.
func Open(path string) (*DecisionStore, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", path, err)
	}
	return &DecisionStore{db: db}, nil
}

// decisionKey orders records chronologically per agent so a reverse scan
// yields newest first.
func decisionKey(agentID string, ts time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d/%s", decisionPrefix, agentID, ts.UnixNano(), id))
}

// Store persists one decision record.
func (s *DecisionStore) Store(ctx context.Context, record core.DecisionRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal decision record: %w", err)
	}
	key := decisionKey(record.AgentID, record.Timestamp, record.ID)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
	if err != nil {
		return fmt.Errorf("failed to store decision record: %w", err)
	}
	return nil
}

// GetRecent returns up to limit records for the agent, newest first.
func (s *DecisionStore) GetRecent(ctx context.Context, agentID string, limit int) ([]core.DecisionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	prefix := []byte(decisionPrefix + agentID + "/")

	var records []core.DecisionRecord
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		// Seek past the prefix range, then walk backwards.
		seek := append(append([]byte{}, prefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(prefix) && len(records) < limit; it.Next() {
			err := it.Item().Value(func(val []byte) error {
				var record core.DecisionRecord
				if err := json.Unmarshal(val, &record); err != nil {
					return err
				}
				records = append(records, record)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read decision records: %w", err)
	}
	return records, nil
}

// SaveCheckpoint persists an agent's serialized lifecycle snapshot.
func (s *DecisionStore) SaveCheckpoint(agentID string, snapshot []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(checkpointPrefix+agentID), snapshot)
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint for %s: %w", agentID, err)
	}
	return nil
}

// LoadCheckpoint returns the stored snapshot, or nil when none exists.
func (s *DecisionStore) LoadCheckpoint(agentID string) ([]byte, error) {
	var snapshot []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(checkpointPrefix + agentID))
		if err != nil {
			return err
		}
		snapshot, err = item.ValueCopy(nil)
		return err
	})
	if err == badger.ErrKeyNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint for %s: %w", agentID, err)
	}
	return snapshot, nil
}

// RunGC triggers a badger value log garbage collection pass.
func (s *DecisionStore) RunGC() {
	if err := s.db.RunValueLogGC(0.5); err != nil && err != badger.ErrNoRewrite {
		log.Printf("badger GC: %v", err)
	}
}

// Close closes the underlying database.
func (s *DecisionStore) Close() error {
	return s.db.Close()
}
