// Package ledger tracks which bucket keys have already been ingested, so the
// watcher never double-writes a file under normal operation. The write-and-mark
// pair is not atomic; a crash between them is retried on the next run, which
// InfluxDB's tag+timestamp identity absorbs as an overwrite.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// Ledger records processed bucket keys.
type Ledger interface {
	IsProcessed(key string) bool
	MarkProcessed(ctx context.Context, key string) error
}

// DocumentStore is the slice of the object store the S3 ledger needs.
type DocumentStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte) error
}

// S3Ledger persists the processed set as a JSON array of keys in the same
// bucket the CSVs live in. The set is loaded once at startup and written back
// after every mark.
type S3Ledger struct {
	store     DocumentStore
	docKey    string
	processed map[string]struct{}
}

// LoadS3Ledger reads the ledger document, treating a missing document as an
// empty ledger (first run).
func LoadS3Ledger(ctx context.Context, store DocumentStore, docKey string) (*S3Ledger, error) {
	l := &S3Ledger{
		store:     store,
		docKey:    docKey,
		processed: make(map[string]struct{}),
	}

	data, err := store.Get(ctx, docKey)
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return l, nil
		}
		return nil, fmt.Errorf("load ledger %q: %w", docKey, err)
	}

	var keys []string
	if err := json.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("parse ledger %q: %w", docKey, err)
	}
	for _, k := range keys {
		l.processed[k] = struct{}{}
	}

	return l, nil
}

func (l *S3Ledger) IsProcessed(key string) bool {
	_, ok := l.processed[key]
	return ok
}

// MarkProcessed adds the key and persists the whole set. The in-memory set is
// only updated once the persist succeeds, so a failed save is retried together
// with the file on the next cycle.
func (l *S3Ledger) MarkProcessed(ctx context.Context, key string) error {
	if l.IsProcessed(key) {
		return nil
	}

	keys := make([]string, 0, len(l.processed)+1)
	for k := range l.processed {
		keys = append(keys, k)
	}
	keys = append(keys, key)
	sort.Strings(keys)

	data, err := json.Marshal(keys)
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}
	if err := l.store.Put(ctx, l.docKey, data); err != nil {
		return fmt.Errorf("save ledger %q: %w", l.docKey, err)
	}

	l.processed[key] = struct{}{}
	return nil
}

// Len returns the number of processed keys.
func (l *S3Ledger) Len() int {
	return len(l.processed)
}

// Memory is an in-memory Ledger for tests.
type Memory struct {
	processed map[string]struct{}
}

func NewMemory() *Memory {
	return &Memory{processed: make(map[string]struct{})}
}

func (m *Memory) IsProcessed(key string) bool {
	_, ok := m.processed[key]
	return ok
}

func (m *Memory) MarkProcessed(_ context.Context, key string) error {
	m.processed[key] = struct{}{}
	return nil
}
