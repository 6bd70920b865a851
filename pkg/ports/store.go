package ports

import (
	"context"

	"github.com/aretw0/reel/pkg/domain"
)

// RecordStore persists render job records so their status outlives the process
// that started them.
type RecordStore interface {
	// Save persists the record under record.ID.
	Save(ctx context.Context, record *domain.RenderRecord) error

	// Load retrieves a record.
	// Returns domain.ErrRenderNotFound if the record does not exist.
	Load(ctx context.Context, id string) (*domain.RenderRecord, error)

	// Delete removes a record.
	Delete(ctx context.Context, id string) error

	// List returns the IDs of the stored records.
	List(ctx context.Context) ([]string, error)
}
