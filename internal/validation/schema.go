package validation

import (
	"errors"
	"math"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"realestate/internal/models"
)

const (
	// DefaultMessage is reported when a validation failure has no specific message.
	DefaultMessage = "Invalid data."
	// DefaultIDMessage is reported when an ID check fails without a specific message.
	DefaultIDMessage = "Invalid ID."
)

var propertyIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// messages maps "Field.tag" to the text shown to the administrator.
var messages = map[string]string{
	"ID.required":   "Property ID is required",
	"ID.min":        "Property ID must be at least 20 characters long",
	"ID.max":        "Property ID must be at most 28 characters long",
	"ID.propertyid": "Property ID must be alphanumeric (letters, numbers, - or _)",

	"Title.required":       "Title is required",
	"Title.min":            "Title must be at least 6 characters long",
	"Description.required": "Description is required",
	"Description.min":      "Description must be at least 10 characters long",

	"Price.required": "Price is required",
	"Price.finite":   "Price must be a valid number",
	"Price.gte":      "Price must not be negative",

	"NumberRooms.required":      "Number of rooms is required",
	"NumberRooms.gte":           "Number of rooms must be a number",
	"NumberBathrooms.required":  "Number of bathrooms is required",
	"NumberBathrooms.gte":       "Number of bathrooms must be a number",
	"NumberParkinLots.required": "Number of parking lots is required",
	"NumberParkinLots.gte":      "Number of parking lots must be a number",

	"HasPool.required": "Pool information is required",
	"Location.latlng":  "Location must be a [latitude, longitude] pair",

	"PriceSort.oneof": "Price sort must be asc or desc",

	"Email.required":    "Email is required",
	"Email.email":       "Email is not valid",
	"Password.required": "Password is required",
	"Password.min":      "Password must be at least 6 characters long",
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	// Registration only fails on empty tag names or nil functions.
	_ = v.RegisterValidation("propertyid", func(fl validator.FieldLevel) bool {
		return propertyIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("latlng", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		if f.Kind() != reflect.Slice || f.Len() != 2 {
			return false
		}
		lat, lng := f.Index(0).Float(), f.Index(1).Float()
		return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
	})
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsNaN(f) && !math.IsInf(f, 0)
	})
	return v
}

// ValidateNewProperty checks a create payload. Call Sanitize first.
func ValidateNewProperty(p models.NewProperty) error {
	return validate.Struct(p)
}

// ValidateProperty checks shape and bounds of a stored listing. It is used
// on every record read back from the database.
func ValidateProperty(p models.Property) error {
	return validate.Struct(p)
}

// ValidateProperties validates each listing and stops at the first failure.
func ValidateProperties(ps []models.Property) error {
	for i := range ps {
		if err := ValidateProperty(ps[i]); err != nil {
			return err
		}
	}
	return nil
}

// ValidatePropertyUpdate applies the stored-listing rules plus the
// free-text length rules of the form.
func ValidatePropertyUpdate(p models.Property) error {
	if err := validate.Struct(p); err != nil {
		return err
	}
	if err := validate.Struct(struct {
		Title       string `validate:"required,min=6"`
		Description string `validate:"required,min=10"`
	}{strings.TrimSpace(p.Title), strings.TrimSpace(p.Description)}); err != nil {
		return err
	}
	return nil
}

// ValidateUser checks an administrator account before its password is
// hashed.
func ValidateUser(u models.User) error {
	return validate.Struct(u)
}

// ValidatePropertyID checks an ID on its own.
func ValidatePropertyID(id string) error {
	return validate.Struct(struct {
		ID string `validate:"required,min=20,max=28,propertyid"`
	}{id})
}

// ValidateFilters checks a search request.
func ValidateFilters(f models.PropertyFilters) error {
	return validate.Struct(f)
}

// FirstMessage returns the message for the first issue in err, or fallback
// when err carries no known issue.
func FirstMessage(err error, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fallback
	}
	e := verrs[0]
	if msg, ok := messages[e.StructField()+"."+e.Tag()]; ok {
		return msg
	}
	return fallback
}

// FieldMessages returns one message per failing field, keyed by its JSON
// name. It is empty when err carries no field issues.
func FieldMessages(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return out
	}
	for _, e := range verrs {
		msg, ok := messages[e.StructField()+"."+e.Tag()]
		if !ok {
			msg = "Field '" + e.Field() + "' failed on the '" + e.Tag() + "' tag"
		}
		out[e.Field()] = msg
	}
	return out
}
