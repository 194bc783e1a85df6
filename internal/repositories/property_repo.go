package repositories

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"realestate/internal/models"
)

// ErrPropertyNotFound is returned (wrapped) when a listing ID has no document.
var ErrPropertyNotFound = errors.New("property not found")

// PropertyRepository defines the interface for listing data access.
type PropertyRepository interface {
	// GetAll returns every listing ordered by normalized title.
	GetAll(ctx context.Context) ([]models.Property, error)
	GetByID(ctx context.Context, id string) (*models.Property, error)
	// Create stores a new listing, assigning an ID when it has none.
	Create(ctx context.Context, property *models.Property) error
	// Upsert writes the listing fields by ID, keeping any stored field the
	// listing does not carry (createdAt included).
	Upsert(ctx context.Context, property *models.Property) error
	// Delete removes a listing. Deleting a missing ID is not an error.
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, plan SearchPlan) ([]models.Property, error)
}

// StoreError wraps a failure reported by a storage backend.
type StoreError struct {
	Backend string
	Op      string
	Code    string
	Err     error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s %s failed (%s): %v", e.Backend, e.Op, e.Code, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewPropertyID returns a 22 character URL-safe identifier, inside the
// 20..28 character range listing IDs must have.
func NewPropertyID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

func notFound(id string) error {
	return fmt.Errorf("property with ID %s: %w", id, ErrPropertyNotFound)
}

// documentFields returns the stored representation of p keyed by document
// field name. createdAt is left out so merges never overwrite it.
func documentFields(p *models.Property) map[string]interface{} {
	return map[string]interface{}{
		"title":                 p.Title,
		"price":                 p.Price,
		"numberRooms":           p.NumberRooms,
		"numberBathrooms":       p.NumberBathrooms,
		"numberParkinLots":      p.NumberParkinLots,
		"description":           p.Description,
		"hasPool":               p.HasPool,
		"imageId":               p.ImageID,
		"location":              []float64(p.Location),
		"titleNormalized":       p.TitleNormalized,
		"descriptionNormalized": p.DescriptionNormalized,
		"updatedAt":             p.UpdatedAt,
	}
}
