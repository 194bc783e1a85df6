package handlers

import (
	"realestate/internal/models"
	"realestate/internal/utils"
)

// PropertyView is a listing as returned by the API.
type PropertyView struct {
	models.Property
	PriceFormatted string `json:"priceFormatted"`
}

func newPropertyView(p models.Property) PropertyView {
	return PropertyView{Property: p, PriceFormatted: utils.FormatCurrency(p.Price)}
}

func newPropertyViews(ps []models.Property) []PropertyView {
	views := make([]PropertyView, 0, len(ps))
	for _, p := range ps {
		views = append(views, newPropertyView(p))
	}
	return views
}
