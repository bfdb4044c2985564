package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/soukhub/vitrine/internal/domain"
)

// AuditLog implements domain.Auditor by appending rows to the audit_log
// table. It is the terminal sink behind the queued auditor; the queue
// retries on failure, so Record only has to be atomic, not durable across
// its own retries.
type AuditLog struct {
	db *sql.DB
}

// Compile-time check: AuditLog implements domain.Auditor.
var _ domain.Auditor = (*AuditLog)(nil)

// NewAuditLog wraps an existing database connection.
func NewAuditLog(db *sql.DB) *AuditLog {
	return &AuditLog{db: db}
}

// Record appends one audit entry.
func (a *AuditLog) Record(ctx context.Context, entry domain.AuditEntry) error {
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling audit metadata: %w", err)
	}

	_, err = a.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, action, slot_id, actor_id, metadata, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), entry.Action, entry.SlotID, entry.ActorID,
		string(metadata), entry.At.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("inserting audit entry: %w", err)
	}
	return nil
}

// RecentBySlot returns the newest entries for a slot, most recent first.
func (a *AuditLog) RecentBySlot(ctx context.Context, slotID, limit int) ([]domain.AuditEntry, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT action, slot_id, actor_id, metadata, recorded_at
		 FROM audit_log WHERE slot_id = ?
		 ORDER BY recorded_at DESC LIMIT ?`,
		slotID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var metadata, recordedAt string
		if err := rows.Scan(&e.Action, &e.SlotID, &e.ActorID, &metadata, &recordedAt); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		if metadata != "" && metadata != "null" {
			if err := json.Unmarshal([]byte(metadata), &e.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling audit metadata: %w", err)
			}
		}
		if t, err := parseStamp(recordedAt); err == nil {
			e.At = t
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
