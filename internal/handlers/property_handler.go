package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"realestate/internal/models"
	"realestate/internal/services"
)

// PropertyHandler serves the public listing pages.
type PropertyHandler struct {
	propertyService *services.PropertyService
}

// NewPropertyHandler creates a new PropertyHandler.
func NewPropertyHandler(propertyService *services.PropertyService) *PropertyHandler {
	return &PropertyHandler{
		propertyService: propertyService,
	}
}

// RegisterRoutes registers the public listing routes.
func (h *PropertyHandler) RegisterRoutes(router fiber.Router) {
	propertyRoutes := router.Group("/properties")
	propertyRoutes.Get("/", h.HandleListProperties)
	propertyRoutes.Get("/:id", h.HandleGetProperty)
}

// parseFilters reads the search form from the query string. It reports
// whether any search parameter was given.
func parseFilters(c *fiber.Ctx) (models.PropertyFilters, bool, error) {
	var filters models.PropertyFilters
	searched := false

	if title, ok := lookupQuery(c, "title"); ok {
		filters.Title = title
		searched = true
	}
	if raw, ok := lookupQuery(c, "hasPool"); ok {
		searched = true
		if raw != "" && raw != "null" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return filters, true, fiber.NewError(fiber.StatusBadRequest, "hasPool must be true, false or null")
			}
			filters.HasPool = &v
		}
	}
	if raw, ok := lookupQuery(c, "priceSort"); ok {
		filters.PriceSort = models.SortDirection(strings.ToLower(raw))
		searched = true
	}
	if raw, ok := lookupQuery(c, "moreFilters"); ok {
		searched = true
		if raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				return filters, true, fiber.NewError(fiber.StatusBadRequest, "moreFilters must be true or false")
			}
			filters.ActiveMoreFilters = v
		}
	}
	return filters, searched, nil
}

func lookupQuery(c *fiber.Ctx, key string) (string, bool) {
	args := c.Context().QueryArgs()
	if !args.Has(key) {
		return "", false
	}
	return strings.TrimSpace(string(args.Peek(key))), true
}

// HandleListProperties lists every listing, or runs the search form when
// any search parameter is present.
func (h *PropertyHandler) HandleListProperties(c *fiber.Ctx) error {
	filters, searched, err := parseFilters(c)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid search",
			"error":   err.Error(),
		})
	}

	var properties []models.Property
	if searched {
		properties, err = h.propertyService.SearchPropertiesByFilters(c.UserContext(), filters)
	} else {
		properties, err = h.propertyService.FetchProperties(c.UserContext())
	}
	if err != nil {
		return respondError(c, "Could not retrieve properties", err)
	}

	return c.JSON(fiber.Map{
		"data": newPropertyViews(properties),
	})
}

// HandleGetProperty returns one listing.
func (h *PropertyHandler) HandleGetProperty(c *fiber.Ctx) error {
	property, err := h.propertyService.FetchPropertyByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, "Could not retrieve property", err)
	}
	return c.JSON(fiber.Map{
		"data": newPropertyView(*property),
	})
}
