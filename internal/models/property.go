package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Location is a [latitude, longitude] pair.
type Location = datatypes.JSONSlice[float64]

// Property is a listing as stored in the document database.
type Property struct {
	ID                    string    `json:"id" firestore:"-" bson:"_id" gorm:"primaryKey;type:varchar(28)" validate:"required,min=20,max=28,propertyid"`
	Title                 string    `json:"title" firestore:"title" bson:"title" gorm:"type:varchar(255)"`
	Price                 float64   `json:"price" firestore:"price" bson:"price" validate:"gte=0"`
	NumberRooms           float64   `json:"numberRooms" firestore:"numberRooms" bson:"numberRooms" validate:"gte=0"`
	NumberBathrooms       float64   `json:"numberBathrooms" firestore:"numberBathrooms" bson:"numberBathrooms" validate:"gte=0"`
	NumberParkinLots      float64   `json:"numberParkinLots" firestore:"numberParkinLots" bson:"numberParkinLots" validate:"gte=0"`
	Description           string    `json:"description" firestore:"description" bson:"description" gorm:"type:text"`
	HasPool               bool      `json:"hasPool" firestore:"hasPool" bson:"hasPool"`
	ImageID               string    `json:"imageId" firestore:"imageId" bson:"imageId" gorm:"type:varchar(255)"`
	Location              Location  `json:"location" firestore:"location" bson:"location" validate:"latlng"`
	TitleNormalized       string    `json:"-" firestore:"titleNormalized" bson:"titleNormalized" gorm:"index;type:varchar(255)"`
	DescriptionNormalized string    `json:"-" firestore:"descriptionNormalized" bson:"descriptionNormalized" gorm:"type:text"`
	CreatedAt             time.Time `json:"createdAt" firestore:"createdAt" bson:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt" firestore:"updatedAt" bson:"updatedAt"`
}

// PriceInput is a price as submitted by a form: either a JSON number or a
// numeric string. A blank string reads as 0. A string that does not parse is
// kept as NaN so that the validator reports it instead of the JSON decoder.
type PriceInput float64

// UnmarshalJSON implements json.Unmarshaler.
func (p *PriceInput) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*p = PriceInput(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*p = PriceInput(math.NaN())
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" {
		*p = 0
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		f = math.NaN()
	}
	*p = PriceInput(f)
	return nil
}

// NewProperty is the create-form payload.
type NewProperty struct {
	Title            string      `json:"title" validate:"required,min=6"`
	Price            *PriceInput `json:"price" validate:"required,finite,gte=0"`
	NumberRooms      *float64    `json:"numberRooms" validate:"required,gte=0"`
	NumberBathrooms  *float64    `json:"numberBathrooms" validate:"required,gte=0"`
	NumberParkinLots *float64    `json:"numberParkinLots" validate:"required,gte=0"`
	Description      string      `json:"description" validate:"required,min=10"`
	HasPool          *bool       `json:"hasPool" validate:"required"`
	ImageID          string      `json:"imageId"`
	Location         Location    `json:"location" validate:"latlng"`
}

// Sanitize trims the title and image ID before validation. The description
// length is checked as submitted; ToProperty trims it.
func (n *NewProperty) Sanitize() {
	n.Title = strings.TrimSpace(n.Title)
	n.ImageID = strings.TrimSpace(n.ImageID)
}

// ToProperty converts a validated payload into a Property without an ID.
func (n NewProperty) ToProperty() Property {
	p := Property{
		Title:       n.Title,
		Description: strings.TrimSpace(n.Description),
		ImageID:     n.ImageID,
		Location:    n.Location,
	}
	if n.Price != nil {
		p.Price = float64(*n.Price)
	}
	if n.NumberRooms != nil {
		p.NumberRooms = *n.NumberRooms
	}
	if n.NumberBathrooms != nil {
		p.NumberBathrooms = *n.NumberBathrooms
	}
	if n.NumberParkinLots != nil {
		p.NumberParkinLots = *n.NumberParkinLots
	}
	if n.HasPool != nil {
		p.HasPool = *n.HasPool
	}
	return p
}

// SortDirection orders search results by price.
type SortDirection string

const (
	SortNone SortDirection = ""
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// PropertyFilters is what the search form submits.
type PropertyFilters struct {
	Title             string        `json:"title" query:"title"`
	HasPool           *bool         `json:"hasPool" query:"hasPool"`
	PriceSort         SortDirection `json:"priceSort" query:"priceSort" validate:"omitempty,oneof=asc desc"`
	ActiveMoreFilters bool          `json:"activeMoreFilters" query:"moreFilters"`
}
