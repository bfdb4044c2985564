package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/soukhub/vitrine/internal/domain"
)

// SellerDirectory implements domain.SellerDirectory over the sellers
// table. Contact tokens are stored normalized, so lookups normalize the
// incoming token the same way.
type SellerDirectory struct {
	db *sql.DB
}

// Compile-time check: SellerDirectory implements domain.SellerDirectory.
var _ domain.SellerDirectory = (*SellerDirectory)(nil)

// NewSellerDirectory wraps an existing database connection. Migrations
// are owned by the slot repository.
func NewSellerDirectory(db *sql.DB) *SellerDirectory {
	return &SellerDirectory{db: db}
}

// Resolve maps a contact token to a seller id.
func (d *SellerDirectory) Resolve(ctx context.Context, contactToken string) (string, error) {
	token := NormalizeContact(contactToken)
	if token == "" {
		return "", domain.ErrSellerNotFound
	}

	var id string
	err := d.db.QueryRowContext(ctx,
		`SELECT id FROM sellers WHERE contact = ?`, token,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return "", domain.ErrSellerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("resolving seller contact: %w", err)
	}
	return id, nil
}

// Register adds a seller to the directory. Used by provisioning and tests.
func (d *SellerDirectory) Register(ctx context.Context, id, contact, name string) error {
	_, err := d.db.ExecContext(ctx,
		`INSERT INTO sellers (id, contact, name, created_at) VALUES (?, ?, ?, ?)`,
		id, NormalizeContact(contact), name, time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("registering seller: %w", err)
	}
	return nil
}

// NormalizeContact strips the separators people type into phone numbers so
// "+237 600 00-00-00" and "+237600000000" resolve to the same seller.
func NormalizeContact(token string) string {
	var b strings.Builder
	for _, r := range token {
		switch r {
		case ' ', '-', '.', '(', ')':
			continue
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
