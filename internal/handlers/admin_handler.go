package handlers

import (
	"github.com/gofiber/fiber/v2"

	"realestate/internal/models"
	"realestate/internal/services"
	"realestate/internal/validation"
)

// AdminHandler serves the administrator dashboard. Its routes must be
// mounted behind middleware.AuthRequired.
type AdminHandler struct {
	propertyService *services.PropertyService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(propertyService *services.PropertyService) *AdminHandler {
	return &AdminHandler{
		propertyService: propertyService,
	}
}

// RegisterRoutes registers the listing management routes under router,
// which is expected to be the /admin group.
func (h *AdminHandler) RegisterRoutes(router fiber.Router) {
	adminRoutes := router.Group("/properties")
	adminRoutes.Get("/", h.HandleListProperties)
	adminRoutes.Post("/", h.HandleCreateProperty)
	adminRoutes.Post("/validate", h.HandleValidateForm)
	adminRoutes.Put("/:id", h.HandleUpdateProperty)
	adminRoutes.Delete("/:id", h.HandleDeleteProperty)
}

// HandleListProperties lists every listing for the dashboard.
func (h *AdminHandler) HandleListProperties(c *fiber.Ctx) error {
	properties, err := h.propertyService.FetchProperties(c.UserContext())
	if err != nil {
		return respondError(c, "Could not retrieve properties", err)
	}
	return c.JSON(fiber.Map{
		"data": newPropertyViews(properties),
	})
}

// HandleCreateProperty stores a new listing.
func (h *AdminHandler) HandleCreateProperty(c *fiber.Ctx) error {
	var input models.NewProperty
	if err := c.BodyParser(&input); err != nil {
		return badRequest(c, err)
	}

	property, err := h.propertyService.CreateProperty(c.UserContext(), input)
	if err != nil {
		return respondError(c, "Could not create property", err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Property created successfully",
		"data":    newPropertyView(*property),
	})
}

// HandleValidateForm runs the admin form checks without saving anything.
func (h *AdminHandler) HandleValidateForm(c *fiber.Ctx) error {
	var form validation.PropertyForm
	if err := c.BodyParser(&form); err != nil {
		return badRequest(c, err)
	}

	errs := validation.CheckPropertyForm(form)
	if len(errs) > 0 {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  errs,
		})
	}
	return c.JSON(fiber.Map{"message": "Form is valid"})
}

// HandleUpdateProperty merges the submitted listing into the stored one.
// The path ID wins over any ID in the body.
func (h *AdminHandler) HandleUpdateProperty(c *fiber.Ctx) error {
	var property models.Property
	if err := c.BodyParser(&property); err != nil {
		return badRequest(c, err)
	}
	property.ID = c.Params("id")

	updated, err := h.propertyService.UpdateProperty(c.UserContext(), property)
	if err != nil {
		return respondError(c, "Could not update property", err)
	}

	return c.JSON(fiber.Map{
		"message": "Property updated successfully",
		"data":    newPropertyView(*updated),
	})
}

// HandleDeleteProperty removes a listing.
func (h *AdminHandler) HandleDeleteProperty(c *fiber.Ctx) error {
	if err := h.propertyService.DeletePropertyByID(c.UserContext(), c.Params("id")); err != nil {
		return respondError(c, "Could not delete property", err)
	}
	return c.JSON(fiber.Map{"message": "Property deleted successfully"})
}
