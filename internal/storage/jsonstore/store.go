// Package jsonstore persists audits as JSON files, one per audit,
// under a data directory.
package jsonstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/khanhnv2901/webaudit/internal/crawler"
	"github.com/khanhnv2901/webaudit/internal/storage"
)

// Store implements storage.Store on top of a flat directory of
// <id>.json files. A single mutex serializes writes; audit volume is
// low enough that contention is not a concern.
type Store struct {
	dir string
	mu  sync.RWMutex
}

type record struct {
	Audit   storage.Audit        `json:"audit"`
	Samples []crawler.PageSample `json:"pageSamples,omitempty"`
}

// New creates the data directory if needed and returns a store.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// validID rejects IDs that could escape the data directory.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\.`+string(filepath.Separator))
}

func (s *Store) CreateAudit(_ context.Context, url string) (*storage.Audit, error) {
	now := time.Now().UTC()
	audit := storage.Audit{
		ID:        uuid.NewString(),
		URL:       url,
		Status:    storage.StatusQueued,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.write(record{Audit: audit}); err != nil {
		return nil, err
	}
	return &audit, nil
}

func (s *Store) UpdateAudit(_ context.Context, id string, status storage.Status, summary json.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.read(id)
	if err != nil {
		return err
	}
	rec.Audit.Status = status
	rec.Audit.Summary = summary
	rec.Audit.UpdatedAt = time.Now().UTC()
	return s.write(*rec)
}

func (s *Store) GetAudit(_ context.Context, id string) (*storage.Audit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.read(id)
	if err != nil {
		return nil, err
	}
	audit := rec.Audit
	return &audit, nil
}

func (s *Store) CreatePageSamples(_ context.Context, auditID string, samples []crawler.PageSample) error {
	if len(samples) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, err := s.read(auditID)
	if err != nil {
		return err
	}
	rec.Samples = append(rec.Samples, samples...)
	rec.Audit.UpdatedAt = time.Now().UTC()
	return s.write(*rec)
}

func (s *Store) GetPageSamples(_ context.Context, auditID string) ([]crawler.PageSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, err := s.read(auditID)
	if err != nil {
		return nil, err
	}
	return append([]crawler.PageSample(nil), rec.Samples...), nil
}

func (s *Store) read(id string) (*record, error) {
	if !validID(id) {
		return nil, storage.ErrNotFound
	}
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("read audit %s: %w", id, err)
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode audit %s: %w", id, err)
	}
	return &rec, nil
}

// write persists atomically via a temp file rename so a crash cannot
// leave a half-written record behind.
func (s *Store) write(rec record) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encode audit %s: %w", rec.Audit.ID, err)
	}
	tmp := s.path(rec.Audit.ID) + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write audit %s: %w", rec.Audit.ID, err)
	}
	if err := os.Rename(tmp, s.path(rec.Audit.ID)); err != nil {
		return fmt.Errorf("commit audit %s: %w", rec.Audit.ID, err)
	}
	return nil
}
