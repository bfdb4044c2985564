package otel

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/soukhub/vitrine/internal/domain"
)

const tracerName = "github.com/soukhub/vitrine/internal/adapter/otel"

// TracingRepository wraps a domain.SlotRepository with OpenTelemetry
// tracing. Each method creates a span with semantic attributes and records
// errors; conditional writes also record whether the compare-and-swap won.
type TracingRepository struct {
	next   domain.SlotRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.SlotRepository.
var _ domain.SlotRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given
// repository.
func NewTracingRepository(next domain.SlotRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) span(ctx context.Context, name string, id int) (context.Context, trace.Span) {
	return r.tracer.Start(ctx, name,
		trace.WithAttributes(attribute.Int("slot.id", id)),
	)
}

func finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func finishConditional(span trace.Span, ok bool, err error) {
	span.SetAttributes(attribute.Bool("cas.won", ok))
	finish(span, err)
}

func (r *TracingRepository) GetByID(ctx context.Context, id int) (domain.Slot, error) {
	ctx, span := r.span(ctx, "SlotRepository.GetByID", id)
	slot, err := r.next.GetByID(ctx, id)
	finish(span, err)
	return slot, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Slot, int, error) {
	ctx, span := r.tracer.Start(ctx, "SlotRepository.List",
		trace.WithAttributes(
			attribute.Int("filter.page", filter.Page),
			attribute.Int("filter.page_size", filter.PageSize),
		),
	)
	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}
	if filter.DraftStatus != nil {
		span.SetAttributes(attribute.String("filter.draft_status", string(*filter.DraftStatus)))
	}

	slots, total, err := r.next.List(ctx, filter)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(slots)))
	}
	finish(span, err)
	return slots, total, err
}

func (r *TracingRepository) CountByStatus(ctx context.Context) (domain.StatusCounts, error) {
	ctx, span := r.tracer.Start(ctx, "SlotRepository.CountByStatus")
	counts, err := r.next.CountByStatus(ctx)
	finish(span, err)
	return counts, err
}

func (r *TracingRepository) UpsertDraft(ctx context.Context, id int, draft domain.DraftContent, now time.Time) error {
	ctx, span := r.span(ctx, "SlotRepository.UpsertDraft", id)
	err := r.next.UpsertDraft(ctx, id, draft, now)
	finish(span, err)
	return err
}

func (r *TracingRepository) MarkDraftReady(ctx context.Context, id int) (bool, error) {
	ctx, span := r.span(ctx, "SlotRepository.MarkDraftReady", id)
	ok, err := r.next.MarkDraftReady(ctx, id)
	finishConditional(span, ok, err)
	return ok, err
}

func (r *TracingRepository) PublishDraft(ctx context.Context, id int, sellerID string, start, end time.Time) (bool, error) {
	ctx, span := r.span(ctx, "SlotRepository.PublishDraft", id)
	span.SetAttributes(attribute.String("seller.id", sellerID))
	ok, err := r.next.PublishDraft(ctx, id, sellerID, start, end)
	finishConditional(span, ok, err)
	return ok, err
}

func (r *TracingRepository) ClearDraft(ctx context.Context, id int, expected domain.DraftStatus) (bool, error) {
	ctx, span := r.span(ctx, "SlotRepository.ClearDraft", id)
	span.SetAttributes(attribute.String("draft.expected_status", string(expected)))
	ok, err := r.next.ClearDraft(ctx, id, expected)
	finishConditional(span, ok, err)
	return ok, err
}

func (r *TracingRepository) EnableMaintenance(ctx context.Context, id int) error {
	ctx, span := r.span(ctx, "SlotRepository.EnableMaintenance", id)
	err := r.next.EnableMaintenance(ctx, id)
	finish(span, err)
	return err
}

func (r *TracingRepository) DisableMaintenance(ctx context.Context, id int) (bool, error) {
	ctx, span := r.span(ctx, "SlotRepository.DisableMaintenance", id)
	ok, err := r.next.DisableMaintenance(ctx, id)
	finishConditional(span, ok, err)
	return ok, err
}

func (r *TracingRepository) ClearLive(ctx context.Context, id int) error {
	ctx, span := r.span(ctx, "SlotRepository.ClearLive", id)
	err := r.next.ClearLive(ctx, id)
	finish(span, err)
	return err
}

func (r *TracingRepository) IncrementViews(ctx context.Context, id int) (bool, error) {
	ctx, span := r.span(ctx, "SlotRepository.IncrementViews", id)
	ok, err := r.next.IncrementViews(ctx, id)
	finishConditional(span, ok, err)
	return ok, err
}

func (r *TracingRepository) SetFeatured(ctx context.Context, id int, featured bool) (bool, error) {
	ctx, span := r.span(ctx, "SlotRepository.SetFeatured", id)
	span.SetAttributes(attribute.Bool("slot.featured", featured))
	ok, err := r.next.SetFeatured(ctx, id, featured)
	finishConditional(span, ok, err)
	return ok, err
}
