package utils

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"realestate/pkg/logger"
)

var usPrinter = message.NewPrinter(language.AmericanEnglish)

var usdSymbol = usPrinter.Sprint(currency.NarrowSymbol(currency.USD))

// FormatCurrency renders value as US dollars, e.g. "$1,234.50". value may
// be any integer or float type or a numeric string; anything else renders
// as "$0.00".
func FormatCurrency(value any) string {
	amount, err := toFloat(value)
	if err != nil {
		logger.Log.WithError(err).Warn("Unexpected error trying to format currency")
		return usdSymbol + "0.00"
	}

	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}
	return sign + usdSymbol + usPrinter.Sprintf("%.2f", amount)
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case nil:
		return 0, nil
	case float64:
		return checkFinite(v)
	case float32:
		return checkFinite(float64(v))
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case string:
		if strings.TrimSpace(v) == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number input: %s", v)
		}
		return checkFinite(f)
	default:
		return 0, fmt.Errorf("invalid number input: %v", v)
	}
}

func checkFinite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("invalid number input: %v", f)
	}
	return f, nil
}
