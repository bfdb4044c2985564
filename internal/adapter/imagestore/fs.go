// Package imagestore manages listing images on the local filesystem, one
// namespace directory per slot.
package imagestore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/soukhub/vitrine/internal/domain"
)

// FS implements domain.ImageCleaner over a directory tree rooted at Root.
type FS struct {
	root string
}

// Compile-time check: FS implements domain.ImageCleaner.
var _ domain.ImageCleaner = (*FS)(nil)

// New creates a store rooted at the given directory, creating it if
// needed.
func New(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating image root: %w", err)
	}
	return &FS{root: root}, nil
}

// NamespaceDir returns the directory holding a slot's images.
func (f *FS) NamespaceDir(slotID int) string {
	return filepath.Join(f.root, fmt.Sprintf("slot-%d", slotID))
}

// ClearNamespace removes every stored image for the slot. Removing a
// namespace that does not exist is a no-op, so the call is idempotent.
func (f *FS) ClearNamespace(ctx context.Context, slotID int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.RemoveAll(f.NamespaceDir(slotID)); err != nil {
		return fmt.Errorf("clearing image namespace for slot %d: %w", slotID, err)
	}
	return nil
}
