package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/soukhub/vitrine/internal/domain"
)

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// CleanupJobArgs asks the worker to clear a slot's image namespace.
// Cleanup runs after the removal has committed, so River's retries give
// the "best effort" a real chance without ever blocking the caller.
type CleanupJobArgs struct {
	SlotID int `json:"slot_id"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (CleanupJobArgs) Kind() string { return "image.cleanup" }

// AuditJobArgs carries one audit entry to the trail. It snapshots the
// entry at enqueue time, so the worker never re-reads slot state.
type AuditJobArgs struct {
	Action   string            `json:"action"`
	SlotID   int               `json:"slot_id"`
	ActorID  string            `json:"actor_id"`
	Metadata map[string]string `json:"metadata,omitempty"`
	At       time.Time         `json:"at"`
}

func (AuditJobArgs) Kind() string { return "audit.record" }

// QueuedCleaner implements domain.ImageCleaner by enqueuing cleanup jobs.
type QueuedCleaner struct {
	client *Client
}

// Compile-time check: QueuedCleaner implements domain.ImageCleaner.
var _ domain.ImageCleaner = (*QueuedCleaner)(nil)

// NewQueuedCleaner creates a cleaner backed by the given River client.
func NewQueuedCleaner(client *Client) *QueuedCleaner {
	return &QueuedCleaner{client: client}
}

// ClearNamespace enqueues the cleanup; the filesystem work happens in the
// worker.
func (c *QueuedCleaner) ClearNamespace(ctx context.Context, slotID int) error {
	_, err := c.client.Insert(ctx, CleanupJobArgs{SlotID: slotID}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing cleanup job: %w", err)
	}
	return nil
}

// QueuedAuditor implements domain.Auditor by enqueuing audit jobs.
type QueuedAuditor struct {
	client *Client
}

// Compile-time check: QueuedAuditor implements domain.Auditor.
var _ domain.Auditor = (*QueuedAuditor)(nil)

// NewQueuedAuditor creates an auditor backed by the given River client.
func NewQueuedAuditor(client *Client) *QueuedAuditor {
	return &QueuedAuditor{client: client}
}

// Record enqueues the audit entry for asynchronous persistence.
func (a *QueuedAuditor) Record(ctx context.Context, entry domain.AuditEntry) error {
	_, err := a.client.Insert(ctx, AuditJobArgs{
		Action:   entry.Action,
		SlotID:   entry.SlotID,
		ActorID:  entry.ActorID,
		Metadata: entry.Metadata,
		At:       entry.At,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing audit job: %w", err)
	}
	return nil
}
