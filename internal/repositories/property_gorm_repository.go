package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"realestate/internal/models"
)

// gormColumns maps document field names to table columns.
var gormColumns = map[string]string{
	FieldTitleNormalized: "title_normalized",
	FieldHasPool:         "has_pool",
	FieldPrice:           "price",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GORMPropertyRepository is a GORM implementation of PropertyRepository.
type GORMPropertyRepository struct {
	db *gorm.DB
}

// NewGORMPropertyRepository creates a new instance of GORMPropertyRepository.
func NewGORMPropertyRepository(db *gorm.DB) *GORMPropertyRepository {
	return &GORMPropertyRepository{
		db: db,
	}
}

func (r *GORMPropertyRepository) fail(op string, err error) error {
	return &StoreError{Backend: "sql", Op: op, Code: "internal", Err: err}
}

// GetAll retrieves all listings ordered by normalized title.
func (r *GORMPropertyRepository) GetAll(ctx context.Context) ([]models.Property, error) {
	var properties []models.Property
	if err := r.db.WithContext(ctx).Order("title_normalized ASC").Find(&properties).Error; err != nil {
		return nil, r.fail("get all", fmt.Errorf("failed to get all properties: %w", err))
	}
	return properties, nil
}

// GetByID retrieves a single listing by its ID.
func (r *GORMPropertyRepository) GetByID(ctx context.Context, id string) (*models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).First(&property, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound(id)
		}
		return nil, r.fail("get", fmt.Errorf("failed to get property by ID %s: %w", id, err))
	}
	return &property, nil
}

// Create inserts a new listing.
func (r *GORMPropertyRepository) Create(ctx context.Context, property *models.Property) error {
	if property.ID == "" {
		property.ID = NewPropertyID()
	}
	if err := r.db.WithContext(ctx).Create(property).Error; err != nil {
		return r.fail("create", fmt.Errorf("failed to create property: %w", err))
	}
	return nil
}

// Upsert inserts the listing or updates every column except created_at.
func (r *GORMPropertyRepository) Upsert(ctx context.Context, property *models.Property) error {
	property.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"title", "price", "number_rooms", "number_bathrooms", "number_parkin_lots",
			"description", "has_pool", "image_id", "location",
			"title_normalized", "description_normalized", "updated_at",
		}),
	}).Create(property).Error
	if err != nil {
		return r.fail("upsert", fmt.Errorf("failed to upsert property %s: %w", property.ID, err))
	}

	var stored models.Property
	if err := r.db.WithContext(ctx).Select("created_at").First(&stored, "id = ?", property.ID).Error; err != nil {
		return r.fail("upsert", fmt.Errorf("failed to reload property %s: %w", property.ID, err))
	}
	property.CreatedAt = stored.CreatedAt
	return nil
}

// Delete deletes a listing by its ID.
func (r *GORMPropertyRepository) Delete(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Delete(&models.Property{}, "id = ?", id).Error; err != nil {
		return r.fail("delete", fmt.Errorf("failed to delete property %s: %w", id, err))
	}
	return nil
}

// Search runs plan as a SQL query. The title range becomes a LIKE prefix
// match, which selects the same rows.
func (r *GORMPropertyRepository) Search(ctx context.Context, plan SearchPlan) ([]models.Property, error) {
	q := r.db.WithContext(ctx).Model(&models.Property{}).
		Where(`title_normalized LIKE ? ESCAPE '\'`, likeEscaper.Replace(plan.Prefix)+"%")

	for _, c := range plan.Conditions {
		if c.Field == FieldTitleNormalized {
			continue
		}
		col, ok := gormColumns[c.Field]
		if !ok {
			return nil, r.fail("search", fmt.Errorf("unsupported field %q", c.Field))
		}
		op := c.Op
		if op == OpEQ {
			op = "="
		}
		q = q.Where(fmt.Sprintf("%s %s ?", col, op), c.Value)
	}

	for _, o := range plan.Orders {
		col, ok := gormColumns[o.Field]
		if !ok {
			return nil, r.fail("search", fmt.Errorf("unsupported order field %q", o.Field))
		}
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: o.Direction == models.SortDesc})
	}
	if len(plan.Orders) == 0 {
		q = q.Order("id ASC")
	}

	var properties []models.Property
	if err := q.Find(&properties).Error; err != nil {
		return nil, r.fail("search", fmt.Errorf("failed to search properties: %w", err))
	}
	return properties, nil
}
