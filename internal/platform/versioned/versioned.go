// Package versioned implements the optimistic-lock capability shared by every
// mutable business document: a version counter bumped on each write, a
// soft-delete flag, and a conditional UPDATE builder that refuses to touch a
// row whose version moved since the caller read it.
package versioned

import (
	"fmt"
	"time"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// Entity is implemented by every versioned, soft-deletable document.
type Entity interface {
	EntityID() int64
	CurrentVersion() int64
	Deleted() bool
}

// Meta carries the columns common to versioned documents. Embed it.
type Meta struct {
	ID        int64     `json:"id"`
	Version   int64     `json:"version"`
	IsDeleted bool      `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityID returns the primary key.
func (m Meta) EntityID() int64 { return m.ID }

// CurrentVersion returns the stored version counter.
func (m Meta) CurrentVersion() int64 { return m.Version }

// Deleted reports the soft-delete flag.
func (m Meta) Deleted() bool { return m.IsDeleted }

// Touch advances the counter the way a guarded UPDATE does. In-memory
// repositories use it to mirror the SQL path.
func (m *Meta) Touch(now time.Time) {
	m.Version++
	m.UpdatedAt = now
}

// Check verifies a loaded entity is live and still at the expected version.
func Check(e Entity, expected int64) error {
	if e == nil || e.Deleted() {
		return shared.ErrNotFound
	}
	if expected <= 0 {
		return shared.Validationf("version is required")
	}
	if e.CurrentVersion() != expected {
		return fmt.Errorf("%w: expected %d, current %d", shared.ErrVersionConflict, expected, e.CurrentVersion())
	}
	return nil
}
