package validation

import (
	"math"
	"regexp"
	"slices"
)

// Form messages are shown verbatim next to the admin form inputs.
const (
	MsgTitleShort      = "El titulo de la propiedad es obligatorio o muy corto"
	MsgPriceInvalid    = "Precio no valido"
	MsgSelectQuantity  = "Selecciona una Cantidad"
	MsgAddDescription  = "Agrega una Descripción"
	MsgFieldRequired   = "Este campo es obligatorio"
	MsgEmailInvalid    = "Email no válido"
	MsgPasswordMissing = "El Password es Obligatorio"
)

var emailPattern = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,4}$`)

var controlKeys = []string{"Backspace", "Delete", "ArrowLeft", "ArrowRight", "Tab"}

// PropertyForm is the admin form as typed, before it becomes a NewProperty.
type PropertyForm struct {
	Title            string  `json:"title"`
	Price            float64 `json:"price"`
	NumberRooms      float64 `json:"numberRooms"`
	NumberBathrooms  float64 `json:"numberBathrooms"`
	NumberParkinLots float64 `json:"numberParkinLots"`
	Description      string  `json:"description"`
}

// LoginForm is the sign-in form.
type LoginForm struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Each form check returns "" when the value is acceptable, otherwise the
// message to display.

func CheckTitle(v string) string {
	if len([]rune(v)) >= 6 {
		return ""
	}
	return MsgTitleShort
}

func CheckPrice(v float64) string {
	if v == 0 || math.IsNaN(v) {
		return MsgPriceInvalid
	}
	return ""
}

func CheckQuantity(v float64) string {
	if v != 0 {
		return ""
	}
	return MsgSelectQuantity
}

func CheckDescription(v string) string {
	if v != "" {
		return ""
	}
	return MsgAddDescription
}

func CheckEmail(v string) string {
	if v == "" {
		return MsgFieldRequired
	}
	if !IsValidEmail(v) {
		return MsgEmailInvalid
	}
	return ""
}

func CheckPassword(v string) string {
	if v != "" {
		return ""
	}
	return MsgPasswordMissing
}

// IsValidEmail reports whether v looks like an email address.
func IsValidEmail(v string) bool {
	return emailPattern.MatchString(v)
}

// AllowOnlyDigits reports whether a key press may reach a numeric input.
func AllowOnlyDigits(key string) bool {
	if len(key) == 1 && key[0] >= '0' && key[0] <= '9' {
		return true
	}
	return slices.Contains(controlKeys, key)
}

// CheckPropertyForm runs every property form check and returns the failing
// fields keyed by their JSON name. An empty map means the form can be sent.
func CheckPropertyForm(f PropertyForm) map[string]string {
	out := make(map[string]string)
	add := func(field, msg string) {
		if msg != "" {
			out[field] = msg
		}
	}
	add("title", CheckTitle(f.Title))
	add("price", CheckPrice(f.Price))
	add("numberRooms", CheckQuantity(f.NumberRooms))
	add("numberBathrooms", CheckQuantity(f.NumberBathrooms))
	add("numberParkinLots", CheckQuantity(f.NumberParkinLots))
	add("description", CheckDescription(f.Description))
	return out
}

// CheckLoginForm runs the sign-in form checks.
func CheckLoginForm(f LoginForm) map[string]string {
	out := make(map[string]string)
	if msg := CheckEmail(f.Email); msg != "" {
		out["email"] = msg
	}
	if msg := CheckPassword(f.Password); msg != "" {
		out["password"] = msg
	}
	return out
}
