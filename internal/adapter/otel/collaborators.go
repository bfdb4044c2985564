package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/soukhub/vitrine/internal/domain"
)

// TracingDirectory wraps a domain.SellerDirectory with OpenTelemetry
// tracing.
type TracingDirectory struct {
	next   domain.SellerDirectory
	tracer trace.Tracer
}

// Compile-time check: TracingDirectory implements domain.SellerDirectory.
var _ domain.SellerDirectory = (*TracingDirectory)(nil)

// NewTracingDirectory creates a tracing decorator around the given
// directory.
func NewTracingDirectory(next domain.SellerDirectory) *TracingDirectory {
	return &TracingDirectory{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (d *TracingDirectory) Resolve(ctx context.Context, contactToken string) (string, error) {
	// The raw token is a phone number; keep it out of span attributes.
	ctx, span := d.tracer.Start(ctx, "SellerDirectory.Resolve")

	sellerID, err := d.next.Resolve(ctx, contactToken)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(attribute.String("seller.id", sellerID))
	}
	span.End()
	return sellerID, err
}

// TracingAuditor wraps a domain.Auditor with OpenTelemetry tracing.
type TracingAuditor struct {
	next   domain.Auditor
	tracer trace.Tracer
}

// Compile-time check: TracingAuditor implements domain.Auditor.
var _ domain.Auditor = (*TracingAuditor)(nil)

// NewTracingAuditor creates a tracing decorator around the given auditor.
func NewTracingAuditor(next domain.Auditor) *TracingAuditor {
	return &TracingAuditor{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (a *TracingAuditor) Record(ctx context.Context, entry domain.AuditEntry) error {
	ctx, span := a.tracer.Start(ctx, "Auditor.Record",
		trace.WithAttributes(
			attribute.String("audit.action", entry.Action),
			attribute.Int("slot.id", entry.SlotID),
			attribute.String("audit.actor", entry.ActorID),
		),
	)
	defer span.End()

	err := a.next.Record(ctx, entry)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
