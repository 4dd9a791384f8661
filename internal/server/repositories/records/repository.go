// Package records persists equipment inspection records.
package records

import (
	"context"

	"equiptrack/internal/server/models"
)

// Repository is the storage contract for equipment records. All
// implementations translate store-level constraint failures into the typed
// errors in internal/common rather than surfacing driver errors.
type Repository interface {
	// List returns records matching the filter, most recently reviewed
	// first.
	List(ctx context.Context, filter models.RecordFilter) ([]*models.EquipmentRecord, error)

	// ListWithImages returns every record that carries at least one image,
	// for the reconciliation and status scans.
	ListWithImages(ctx context.Context) ([]*models.EquipmentRecord, error)

	GetByID(ctx context.Context, id int64) (*models.EquipmentRecord, error)

	// Insert stores a new record and fills in its assigned ID.
	Insert(ctx context.Context, r *models.EquipmentRecord) (*models.EquipmentRecord, error)

	// Update overwrites all mutable fields of the record with the given id
	// and stamps updated_at.
	Update(ctx context.Context, id int64, r *models.EquipmentRecord) error

	// UpdateImages replaces only the image sequence of one record.
	UpdateImages(ctx context.Context, id int64, images []models.ImageDescriptor) error

	// Delete removes the record and returns its prior image sequence so
	// the caller can clean up locally-hosted files.
	Delete(ctx context.Context, id int64) ([]models.ImageDescriptor, error)
}
