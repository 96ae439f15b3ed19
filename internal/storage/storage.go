// Package storage defines the persistence contract for audit records
// and crawled page samples.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/khanhnv2901/webaudit/internal/crawler"
)

// ErrNotFound is returned when no audit exists for the given ID.
var ErrNotFound = errors.New("audit not found")

// Status is the audit lifecycle state. Transitions are monotonic:
// queued -> running -> done|error.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether no further transitions are possible.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// Audit is the persisted record of one audit request. Summary is the
// marshaled result payload for done audits, or a diagnostic wrapper for
// failed ones; it is empty while the audit runs.
type Audit struct {
	ID        string          `json:"id"`
	URL       string          `json:"url"`
	Status    Status          `json:"status"`
	Summary   json.RawMessage `json:"summary,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Store is the storage collaborator consumed by the orchestrator.
type Store interface {
	CreateAudit(ctx context.Context, url string) (*Audit, error)
	UpdateAudit(ctx context.Context, id string, status Status, summary json.RawMessage) error
	GetAudit(ctx context.Context, id string) (*Audit, error)
	CreatePageSamples(ctx context.Context, auditID string, samples []crawler.PageSample) error
	GetPageSamples(ctx context.Context, auditID string) ([]crawler.PageSample, error)
}
