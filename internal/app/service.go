package app

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/soukhub/vitrine/internal/clock"
	"github.com/soukhub/vitrine/internal/domain"
)

// SlotService orchestrates the slot lifecycle. Every mutation follows the
// same shape: validate the slot id, load current state, check the
// requested transition against the state machine, then commit one
// conditional write. A write that matches no row means a concurrent caller
// won; that surfaces as a PreconditionError, never as a partial state.
// Audit and image cleanup run after the commit and never fail the
// operation.
type SlotService struct {
	repo      domain.SlotRepository
	validator domain.TransitionValidator
	directory domain.SellerDirectory
	cleaner   domain.ImageCleaner
	auditor   domain.Auditor
	stats     *StatsAggregator
	clock     clock.Clock
	log       *slog.Logger
}

// NewSlotService creates a service with the given adapters.
func NewSlotService(
	repo domain.SlotRepository,
	validator domain.TransitionValidator,
	directory domain.SellerDirectory,
	cleaner domain.ImageCleaner,
	auditor domain.Auditor,
	stats *StatsAggregator,
	clk clock.Clock,
	log *slog.Logger,
) *SlotService {
	if log == nil {
		log = slog.Default()
	}
	return &SlotService{
		repo:      repo,
		validator: validator,
		directory: directory,
		cleaner:   cleaner,
		auditor:   auditor,
		stats:     stats,
		clock:     clk,
		log:       log,
	}
}

// Get returns a single slot.
func (s *SlotService) Get(ctx context.Context, id int) (domain.Slot, error) {
	if !domain.ValidSlotID(id) {
		return domain.Slot{}, &domain.InvalidSlotIDError{ID: id}
	}
	return s.repo.GetByID(ctx, id)
}

// List returns slots matching the given filter plus the total match count.
func (s *SlotService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Slot, int, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > domain.SlotCount {
		filter.PageSize = domain.SlotCount
	}
	return s.repo.List(ctx, filter)
}

// Stats returns the advisory pool counts.
func (s *SlotService) Stats(ctx context.Context) (domain.Stats, error) {
	return s.stats.Get(ctx)
}

// SaveDraft upserts the draft content of a slot and moves its draft status
// to drafting. There is no precondition on the prior draft status: the
// first save starts a draft, later saves replace its content, and saving
// over a ready draft demotes it back to drafting.
func (s *SlotService) SaveDraft(ctx context.Context, actor string, id int, draft domain.DraftContent) error {
	if !domain.ValidSlotID(id) {
		return &domain.InvalidSlotIDError{ID: id}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.repo.UpsertDraft(ctx, id, draft, s.clock.Now()); err != nil {
		return err
	}

	s.audit(ctx, "save_draft", id, actor, nil)
	return nil
}

// MarkReady moves a drafting slot to ready_to_publish. The draft must
// carry the fields a listing cannot go live without.
func (s *SlotService) MarkReady(ctx context.Context, actor string, id int) error {
	if !domain.ValidSlotID(id) {
		return &domain.InvalidSlotIDError{ID: id}
	}

	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if _, err := s.validator.ApplyDraft(ctx, slot.DraftStatus, domain.EventMarkReady); err != nil {
		return err
	}
	if err := slot.Draft.ValidateForPublish(); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	ok, err := s.repo.MarkDraftReady(ctx, id)
	if err != nil {
		return fmt.Errorf("marking draft ready: %w", err)
	}
	if !ok {
		return &domain.PreconditionError{Op: "mark_ready", SlotID: id}
	}

	s.audit(ctx, "mark_ready", id, actor, nil)
	return nil
}

// Approve promotes a ready draft into the live listing. The seller contact
// is resolved to a durable identity, the draft fields are copied to the
// live fields and cleared in a single conditional write, and the listing
// window runs durationDays from now (0 means the default).
func (s *SlotService) Approve(ctx context.Context, actor string, id int, sellerContact string, durationDays int) (domain.Slot, error) {
	if !domain.ValidSlotID(id) {
		return domain.Slot{}, &domain.InvalidSlotIDError{ID: id}
	}
	if durationDays == 0 {
		durationDays = domain.DefaultListingDays
	}
	if durationDays < domain.MinListingDays || durationDays > domain.MaxListingDays {
		return domain.Slot{}, &domain.DraftValidationError{
			Field:  "durationDays",
			Reason: fmt.Sprintf("must be in [%d, %d]", domain.MinListingDays, domain.MaxListingDays),
		}
	}

	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Slot{}, err
	}

	// Approval is blocked while the slot is parked, even with a ready draft.
	if slot.Status == domain.SlotMaintenance {
		return domain.Slot{}, &domain.PreconditionError{Op: "approve", SlotID: id}
	}
	if _, err := s.validator.ApplyDraft(ctx, slot.DraftStatus, domain.EventApprove); err != nil {
		return domain.Slot{}, err
	}
	if _, err := s.validator.ApplySlot(ctx, slot.Status, domain.EventPublish); err != nil {
		return domain.Slot{}, err
	}
	if err := slot.Draft.ValidateForPublish(); err != nil {
		return domain.Slot{}, err
	}

	contact := sellerContact
	if contact == "" && slot.Draft != nil {
		contact = slot.Draft.SellerContact
	}
	sellerID, err := s.directory.Resolve(ctx, contact)
	if err != nil {
		return domain.Slot{}, &domain.ResolutionError{Contact: contact, Err: err}
	}

	if err := ctx.Err(); err != nil {
		return domain.Slot{}, err
	}

	start := s.clock.Now()
	end := start.AddDate(0, 0, durationDays)

	ok, err := s.repo.PublishDraft(ctx, id, sellerID, start, end)
	if err != nil {
		return domain.Slot{}, fmt.Errorf("publishing draft: %w", err)
	}
	if !ok {
		return domain.Slot{}, &domain.PreconditionError{Op: "approve", SlotID: id}
	}

	s.stats.Invalidate(ctx)
	s.audit(ctx, "approve", id, actor, map[string]string{
		"seller_id":     sellerID,
		"duration_days": strconv.Itoa(durationDays),
	})

	return s.repo.GetByID(ctx, id)
}

// Reject discards a ready draft. The reason is forwarded to the audit
// trail only; it is not persisted on the slot.
func (s *SlotService) Reject(ctx context.Context, actor string, id int, reason string) error {
	if !domain.ValidSlotID(id) {
		return &domain.InvalidSlotIDError{ID: id}
	}

	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.validator.ApplyDraft(ctx, slot.DraftStatus, domain.EventReject); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	ok, err := s.repo.ClearDraft(ctx, id, domain.DraftReady)
	if err != nil {
		return fmt.Errorf("rejecting draft: %w", err)
	}
	if !ok {
		return &domain.PreconditionError{Op: "reject", SlotID: id}
	}

	var meta map[string]string
	if reason != "" {
		meta = map[string]string{"reason": reason}
	}
	s.audit(ctx, "reject", id, actor, meta)
	return nil
}

// SetMaintenance parks a slot or returns it to service. Enabling always
// succeeds and force-retires any live listing. Disabling lands on empty,
// never on a restored listing, and fails the precondition when the slot
// is not in maintenance.
func (s *SlotService) SetMaintenance(ctx context.Context, actor string, id int, enabled bool) error {
	if !domain.ValidSlotID(id) {
		return &domain.InvalidSlotIDError{ID: id}
	}

	slot, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	event := domain.EventMaintenanceOff
	if enabled {
		event = domain.EventMaintenanceOn
	}
	if _, err := s.validator.ApplySlot(ctx, slot.Status, event); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	action := "maintenance_off"
	if enabled {
		action = "maintenance_on"
		if err := s.repo.EnableMaintenance(ctx, id); err != nil {
			return fmt.Errorf("enabling maintenance: %w", err)
		}
	} else {
		ok, err := s.repo.DisableMaintenance(ctx, id)
		if err != nil {
			return fmt.Errorf("disabling maintenance: %w", err)
		}
		if !ok {
			return &domain.PreconditionError{Op: "maintenance_off", SlotID: id}
		}
	}

	s.stats.Invalidate(ctx)
	s.audit(ctx, action, id, actor, nil)
	return nil
}

// RemoveProduct retires the live listing of a slot. It is safe from any
// state and idempotent: the write unconditionally nulls the live fields
// and empties the slot. Image cleanup runs best-effort after the commit;
// a cleanup failure leaves stale images behind but never fails the
// removal.
func (s *SlotService) RemoveProduct(ctx context.Context, actor string, id int) error {
	if !domain.ValidSlotID(id) {
		return &domain.InvalidSlotIDError{ID: id}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := s.repo.ClearLive(ctx, id); err != nil {
		return err
	}

	s.stats.Invalidate(ctx)

	if err := s.cleaner.ClearNamespace(ctx, id); err != nil {
		s.log.ErrorContext(ctx, "image cleanup failed, stale images may remain",
			"slot_id", id, "error", err)
	}

	s.audit(ctx, "remove_product", id, actor, nil)
	return nil
}

// RecordView counts one public view of a live listing. Views on non-live
// slots are dropped silently.
func (s *SlotService) RecordView(ctx context.Context, id int) error {
	if !domain.ValidSlotID(id) {
		return &domain.InvalidSlotIDError{ID: id}
	}
	_, err := s.repo.IncrementViews(ctx, id)
	return err
}

// SetFeatured toggles the featured flag of a live listing.
func (s *SlotService) SetFeatured(ctx context.Context, actor string, id int, featured bool) error {
	if !domain.ValidSlotID(id) {
		return &domain.InvalidSlotIDError{ID: id}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	ok, err := s.repo.SetFeatured(ctx, id, featured)
	if err != nil {
		return fmt.Errorf("setting featured: %w", err)
	}
	if !ok {
		return &domain.PreconditionError{Op: "set_featured", SlotID: id}
	}

	s.audit(ctx, "set_featured", id, actor, map[string]string{
		"featured": strconv.FormatBool(featured),
	})
	return nil
}

// audit records an administrative action best-effort. A failed enqueue is
// logged, never propagated: the state transition has already committed.
func (s *SlotService) audit(ctx context.Context, action string, slotID int, actor string, metadata map[string]string) {
	if actor == "" {
		actor = "system"
	}
	entry := domain.AuditEntry{
		Action:   action,
		SlotID:   slotID,
		ActorID:  actor,
		Metadata: metadata,
		At:       s.clock.Now(),
	}
	if err := s.auditor.Record(ctx, entry); err != nil {
		s.log.ErrorContext(ctx, "audit record failed",
			"action", action, "slot_id", slotID, "error", err)
	}
}
