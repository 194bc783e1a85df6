package repositories

import (
	"context"
	"sync"
	"time"

	"realestate/internal/models"
)

// InMemoryPropertyRepository is a map-backed PropertyRepository for local
// development and tests.
type InMemoryPropertyRepository struct {
	properties map[string]models.Property
	mu         sync.RWMutex
	now        func() time.Time
}

// NewInMemoryPropertyRepository creates an empty repository.
func NewInMemoryPropertyRepository() *InMemoryPropertyRepository {
	return &InMemoryPropertyRepository{
		properties: make(map[string]models.Property),
		now:        time.Now,
	}
}

// GetAll returns all listings ordered by normalized title.
func (r *InMemoryPropertyRepository) GetAll(ctx context.Context) ([]models.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.Property, 0, len(r.properties))
	for _, p := range r.properties {
		list = append(list, p)
	}
	SearchPlan{Orders: []Order{{Field: FieldTitleNormalized, Direction: models.SortAsc}}}.Sort(list)
	return list, nil
}

// GetByID returns a listing by its ID.
func (r *InMemoryPropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.properties[id]
	if !ok {
		return nil, notFound(id)
	}
	return &p, nil
}

// Create adds a new listing.
func (r *InMemoryPropertyRepository) Create(ctx context.Context, property *models.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if property.ID == "" {
		property.ID = NewPropertyID()
	}
	now := r.now()
	property.CreatedAt = now
	property.UpdatedAt = now
	r.properties[property.ID] = *property
	return nil
}

// Upsert writes a listing, keeping the creation time of an existing one.
func (r *InMemoryPropertyRepository) Upsert(ctx context.Context, property *models.Property) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if existing, ok := r.properties[property.ID]; ok {
		property.CreatedAt = existing.CreatedAt
	} else {
		property.CreatedAt = now
	}
	property.UpdatedAt = now
	r.properties[property.ID] = *property
	return nil
}

// Delete removes a listing by its ID.
func (r *InMemoryPropertyRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.properties, id)
	return nil
}

// Search evaluates plan over the stored listings.
func (r *InMemoryPropertyRepository) Search(ctx context.Context, plan SearchPlan) ([]models.Property, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]models.Property, 0)
	for _, p := range r.properties {
		if plan.Matches(p) {
			list = append(list, p)
		}
	}
	plan.Sort(list)
	return list, nil
}
