package domain

import (
	"context"
	"time"
)

// ListFilter holds optional criteria for listing slots.
type ListFilter struct {
	Status      *SlotStatus
	DraftStatus *DraftStatus
	Search      string
	Page        int
	PageSize    int
}

// StatusCounts is the per-status breakdown of the slot pool.
type StatusCounts struct {
	Live        int
	Maintenance int
}

// SlotRepository defines the persistence contract for slots. Every
// mutation is one conditional write: methods returning a bool report
// whether the expected status still held at write time (compare-and-swap);
// false means a concurrent caller won the race. Methods without a bool are
// unconditional and idempotent.
type SlotRepository interface {
	GetByID(ctx context.Context, id int) (Slot, error)
	List(ctx context.Context, filter ListFilter) ([]Slot, int, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)

	// UpsertDraft replaces the draft content and moves the draft status
	// to drafting regardless of its prior value.
	UpsertDraft(ctx context.Context, id int, draft DraftContent, now time.Time) error

	// MarkDraftReady moves drafting to ready_to_publish.
	MarkDraftReady(ctx context.Context, id int) (bool, error)

	// PublishDraft copies every draft field to its live counterpart,
	// assigns the seller and timing, resets featured and the view count,
	// and clears the draft, all in a single statement conditional on the
	// draft being ready and the slot not being in maintenance.
	PublishDraft(ctx context.Context, id int, sellerID string, start, end time.Time) (bool, error)

	// ClearDraft nulls the draft fields, conditional on the current
	// draft status.
	ClearDraft(ctx context.Context, id int, expected DraftStatus) (bool, error)

	// EnableMaintenance clears any live listing and parks the slot.
	EnableMaintenance(ctx context.Context, id int) error

	// DisableMaintenance moves maintenance back to empty.
	DisableMaintenance(ctx context.Context, id int) (bool, error)

	// ClearLive nulls all live content and timing fields and empties the
	// slot from whatever state it is in.
	ClearLive(ctx context.Context, id int) error

	IncrementViews(ctx context.Context, id int) (bool, error)
	SetFeatured(ctx context.Context, id int, featured bool) (bool, error)
}

// TransitionValidator checks requested transitions against the two state
// machines before the conditional write is issued.
type TransitionValidator interface {
	ApplySlot(ctx context.Context, current SlotStatus, event SlotEvent) (SlotStatus, error)
	ApplyDraft(ctx context.Context, current DraftStatus, event DraftEvent) (DraftStatus, error)
}

// SellerDirectory resolves a contact token supplied at draft time to a
// durable seller identity. Consulted only during approval.
type SellerDirectory interface {
	Resolve(ctx context.Context, contactToken string) (string, error)
}

// ImageCleaner removes all stored images in a slot's namespace. Invoked
// best-effort after a listing is removed; failures never undo the
// committed transition.
type ImageCleaner interface {
	ClearNamespace(ctx context.Context, slotID int) error
}

// AuditEntry describes one administrative action for the audit trail.
type AuditEntry struct {
	Action   string
	SlotID   int
	ActorID  string
	Metadata map[string]string
	At       time.Time
}

// Auditor records administrative actions. Invoked best-effort after every
// successful mutation.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry) error
}

// Stats are the advisory pool counts shown to operators. They need not be
// linearizable with in-flight transitions.
type Stats struct {
	Total       int
	Live        int
	Maintenance int
	Available   int
}

// StatsCache is an explicitly scoped read-side cache for Stats, with an
// invalidation hook triggered by successful mutations.
type StatsCache interface {
	Get(ctx context.Context) (Stats, bool)
	Set(ctx context.Context, stats Stats)
	Invalidate(ctx context.Context)
}
