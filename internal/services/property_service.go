package services

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"realestate/internal/models"
	"realestate/internal/observability"
	"realestate/internal/repositories"
	"realestate/internal/utils"
	"realestate/internal/validation"
	"realestate/pkg/logger"
)

// User-facing messages for listing operations.
const (
	MsgNoSuchDocument = "No such document!"

	MsgSaveStoreError    = "Error saving the property."
	MsgSaveUnexpected    = "An error occurred while trying to save the property."
	MsgUpdateStoreError  = "Error updating the property."
	MsgUpdateUnexpected  = "An error occurred while trying to update the property."
	MsgDeleteStoreError  = "Error deleting the property."
	MsgDeleteUnexpected  = "An error occurred while trying to delete the property."
	MsgLoadStoreError    = "Error loading the properties."
	MsgLoadUnexpected    = "An error occurred while trying to load the properties."
	MsgLoadOneStoreError = "Error loading the property."
	MsgLoadOneUnexpected = "An error occurred while trying to load the property."
)

// SearchCache stores search results keyed by filter parameters. Get returns
// the key results for that lookup must be stored under with Set.
type SearchCache interface {
	Get(ctx context.Context, params map[string]string) ([]models.Property, string, bool)
	Set(ctx context.Context, key string, properties []models.Property)
	Invalidate(ctx context.Context) error
}

// EventPublisher announces listing changes to other processes.
type EventPublisher interface {
	Publish(ctx context.Context, payload interface{}) error
}

// PropertyService handles business logic related to listings.
type PropertyService struct {
	repo      repositories.PropertyRepository
	cache     SearchCache
	publisher EventPublisher
}

// NewPropertyService creates a new PropertyService. cache and publisher may
// be nil.
func NewPropertyService(repo repositories.PropertyRepository, cache SearchCache, publisher EventPublisher) *PropertyService {
	return &PropertyService{
		repo:      repo,
		cache:     cache,
		publisher: publisher,
	}
}

// classify turns a repository failure into a service error, picking the
// store message when the backend reported the failure.
func classify(op string, err error, storeMsg, unexpectedMsg string) *Error {
	entry := logger.Log.WithError(err).WithField("operation", op)

	var storeErr *repositories.StoreError
	if errors.As(err, &storeErr) {
		entry.WithFields(logrus.Fields{
			"backend": storeErr.Backend,
			"op":      storeErr.Op,
			"code":    storeErr.Code,
		}).Error("store error")
		return newError(KindStore, storeMsg, err)
	}

	entry.Error("unexpected error")
	return newError(KindInternal, unexpectedMsg, err)
}

func record(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	observability.PropertyOperationsTotal.WithLabelValues(op, outcome).Inc()
}

func normalize(p *models.Property) {
	p.TitleNormalized = utils.NormalizeString(p.Title)
	p.DescriptionNormalized = utils.NormalizeString(p.Description)
}

// CreateProperty validates a create payload and stores it under a new ID.
func (s *PropertyService) CreateProperty(ctx context.Context, input models.NewProperty) (property *models.Property, err error) {
	defer func() { record("create", err) }()

	input.Sanitize()
	if verr := validation.ValidateNewProperty(input); verr != nil {
		return nil, newError(KindValidation, validation.FirstMessage(verr, validation.DefaultMessage), verr)
	}

	p := input.ToProperty()
	normalize(&p)
	if rerr := s.repo.Create(ctx, &p); rerr != nil {
		return nil, classify("create", rerr, MsgSaveStoreError, MsgSaveUnexpected)
	}

	s.changed(ctx, models.ActionCreated, p.ID)
	return &p, nil
}

// FetchProperties returns every listing ordered by normalized title.
func (s *PropertyService) FetchProperties(ctx context.Context) ([]models.Property, error) {
	properties, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, classify("fetch all", err, MsgLoadStoreError, MsgLoadUnexpected)
	}
	if verr := validation.ValidateProperties(properties); verr != nil {
		logger.Log.WithError(verr).Warn("stored listing failed validation")
		return nil, newError(KindValidation, validation.FirstMessage(verr, validation.DefaultMessage), verr)
	}
	return properties, nil
}

// FetchPropertyByID returns one listing.
func (s *PropertyService) FetchPropertyByID(ctx context.Context, id string) (*models.Property, error) {
	if verr := validation.ValidatePropertyID(id); verr != nil {
		return nil, newError(KindValidation, validation.FirstMessage(verr, validation.DefaultIDMessage), verr)
	}

	p, err := s.repo.GetByID(ctx, id)
	if errors.Is(err, repositories.ErrPropertyNotFound) {
		return nil, newError(KindNotFound, MsgNoSuchDocument, err)
	}
	if err != nil {
		return nil, classify("fetch", err, MsgLoadOneStoreError, MsgLoadOneUnexpected)
	}

	if verr := validation.ValidateProperty(*p); verr != nil {
		logger.Log.WithError(verr).WithField("property_id", id).Warn("stored listing failed validation")
		return nil, newError(KindValidation, validation.FirstMessage(verr, validation.DefaultMessage), verr)
	}
	return p, nil
}

// UpdateProperty validates a full listing and merges it into the stored one.
func (s *PropertyService) UpdateProperty(ctx context.Context, property models.Property) (updated *models.Property, err error) {
	defer func() { record("update", err) }()

	if verr := validation.ValidatePropertyUpdate(property); verr != nil {
		return nil, newError(KindValidation, validation.FirstMessage(verr, validation.DefaultMessage), verr)
	}

	normalize(&property)
	if rerr := s.repo.Upsert(ctx, &property); rerr != nil {
		return nil, classify("update", rerr, MsgUpdateStoreError, MsgUpdateUnexpected)
	}

	s.changed(ctx, models.ActionUpdated, property.ID)
	return &property, nil
}

// DeletePropertyByID removes a listing. Deleting a missing listing succeeds.
func (s *PropertyService) DeletePropertyByID(ctx context.Context, id string) (err error) {
	defer func() { record("delete", err) }()

	if verr := validation.ValidatePropertyID(id); verr != nil {
		return newError(KindValidation, validation.FirstMessage(verr, validation.DefaultIDMessage), verr)
	}

	if rerr := s.repo.Delete(ctx, id); rerr != nil {
		return classify("delete", rerr, MsgDeleteStoreError, MsgDeleteUnexpected)
	}

	s.changed(ctx, models.ActionDeleted, id)
	return nil
}

// SearchPropertiesByFilters runs the search form query, serving repeated
// searches from the cache.
func (s *PropertyService) SearchPropertiesByFilters(ctx context.Context, filters models.PropertyFilters) ([]models.Property, error) {
	if verr := validation.ValidateFilters(filters); verr != nil {
		return nil, newError(KindValidation, validation.FirstMessage(verr, validation.DefaultMessage), verr)
	}

	var cacheKey string
	if s.cache != nil {
		cached, key, ok := s.cache.Get(ctx, repositories.CacheParams(filters))
		if ok {
			return cached, nil
		}
		cacheKey = key
	}

	properties, err := s.repo.Search(ctx, repositories.BuildSearchPlan(filters))
	if err != nil {
		return nil, classify("search", err, MsgLoadStoreError, MsgLoadUnexpected)
	}
	if verr := validation.ValidateProperties(properties); verr != nil {
		logger.Log.WithError(verr).Warn("stored listing failed validation")
		return nil, newError(KindValidation, validation.FirstMessage(verr, validation.DefaultMessage), verr)
	}

	if s.cache != nil {
		s.cache.Set(ctx, cacheKey, properties)
	}
	return properties, nil
}

// InvalidateSearchCache drops cached search results.
func (s *PropertyService) InvalidateSearchCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Invalidate(ctx)
}

// changed invalidates the cache and publishes an event after a write.
// Failures are logged; the write itself has already succeeded.
func (s *PropertyService) changed(ctx context.Context, action, id string) {
	log := logger.Log.WithFields(logrus.Fields{"action": action, "property_id": id})

	if err := s.InvalidateSearchCache(ctx); err != nil {
		log.WithError(err).Warn("failed to invalidate search cache")
	}

	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, models.PropertyEvent{Action: action, PropertyID: id}); err != nil {
		log.WithError(err).Warn("failed to publish property event")
		return
	}
	observability.EventsTotal.WithLabelValues("published", action).Inc()
}
