package services_test

import (
	"context"
	"testing"
	"time"

	"realestate/internal/cache"
	"realestate/internal/models"
	"realestate/internal/repositories"
	"realestate/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeDuringSearch runs a callback after the first Search query has read
// its results but before they are returned.
type writeDuringSearch struct {
	*repositories.InMemoryPropertyRepository
	during func()
}

func (r *writeDuringSearch) Search(ctx context.Context, plan repositories.SearchPlan) ([]models.Property, error) {
	properties, err := r.InMemoryPropertyRepository.Search(ctx, plan)
	if r.during != nil {
		during := r.during
		r.during = nil
		during()
	}
	return properties, err
}

func TestPropertyService_Search_WriteDuringQueryIsNotCached(t *testing.T) {
	ctx := context.Background()
	repo := &writeDuringSearch{InMemoryPropertyRepository: repositories.NewInMemoryPropertyRepository()}
	searchCache := cache.NewSearchCache(nil, time.Minute)
	defer searchCache.Close()
	service := services.NewPropertyService(repo, searchCache, nil)

	listing := storedProperty()
	require.NoError(t, repo.Create(ctx, &listing))

	repo.during = func() {
		require.NoError(t, service.DeletePropertyByID(ctx, validID))
	}

	filters := models.PropertyFilters{Title: "casa"}
	first, err := service.SearchPropertiesByFilters(ctx, filters)
	require.NoError(t, err)
	assert.Len(t, first, 1, "the in-flight query read the listing before it was deleted")

	second, err := service.SearchPropertiesByFilters(ctx, filters)
	require.NoError(t, err)
	assert.Empty(t, second, "results read before the delete must not be served afterwards")
}

func TestSearchCache_SetUnderStaleKeyIsIgnored(t *testing.T) {
	ctx := context.Background()
	searchCache := cache.NewSearchCache(nil, time.Minute)
	defer searchCache.Close()

	params := repositories.CacheParams(models.PropertyFilters{Title: "casa"})
	_, key, found := searchCache.Get(ctx, params)
	require.False(t, found)

	require.NoError(t, searchCache.Invalidate(ctx))
	searchCache.Set(ctx, key, []models.Property{storedProperty()})

	_, _, found = searchCache.Get(ctx, params)
	assert.False(t, found)
}
