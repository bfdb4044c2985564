package river

import (
	"context"
	"log/slog"

	"github.com/riverqueue/river"

	"github.com/soukhub/vitrine/internal/domain"
)

// CleanupWorker processes image cleanup jobs by delegating to the real
// cleaner (the filesystem store). Returning an error lets River retry; a
// job that exhausts its attempts leaves stale images behind, which is the
// documented consistency limit of removals.
type CleanupWorker struct {
	river.WorkerDefaults[CleanupJobArgs]

	cleaner domain.ImageCleaner
}

// NewCleanupWorker creates a worker around the terminal cleaner.
func NewCleanupWorker(cleaner domain.ImageCleaner) *CleanupWorker {
	return &CleanupWorker{cleaner: cleaner}
}

// Work clears one slot's image namespace.
func (w *CleanupWorker) Work(ctx context.Context, job *river.Job[CleanupJobArgs]) error {
	slog.InfoContext(ctx, "clearing image namespace",
		"slot_id", job.Args.SlotID,
		"job_id", job.ID,
		"attempt", job.Attempt,
	)
	return w.cleaner.ClearNamespace(ctx, job.Args.SlotID)
}

// AuditWorker lands audit entries in the trail.
type AuditWorker struct {
	river.WorkerDefaults[AuditJobArgs]

	sink domain.Auditor
}

// NewAuditWorker creates a worker around the terminal audit sink.
func NewAuditWorker(sink domain.Auditor) *AuditWorker {
	return &AuditWorker{sink: sink}
}

// Work persists a single audit entry.
func (w *AuditWorker) Work(ctx context.Context, job *river.Job[AuditJobArgs]) error {
	return w.sink.Record(ctx, domain.AuditEntry{
		Action:   job.Args.Action,
		SlotID:   job.Args.SlotID,
		ActorID:  job.Args.ActorID,
		Metadata: job.Args.Metadata,
		At:       job.Args.At,
	})
}
