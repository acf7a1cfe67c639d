package scorer

import (
	"regexp"
	"strconv"
	"strings"

	apperrors "apartment-hunter/pkg/errors"
)

var (
	nonDigit   = regexp.MustCompile(`\D`)
	nonNumeric = regexp.MustCompile(`[^0-9.]`)
)

// CleanPrice reduces a locale-formatted price text like "1 200 €/kk"
// to a number by dropping everything that is not a digit.
func CleanPrice(text string) (float64, error) {
	digits := nonDigit.ReplaceAllString(text, "")
	if digits == "" {
		return 0, apperrors.NewNumericParse("clean", "price text has no digits: "+text)
	}
	v, err := strconv.ParseFloat(digits, 64)
	if err != nil {
		return 0, apperrors.NewNumericParse("clean", "unparsable price text: "+text)
	}
	return v, nil
}

// CleanArea reduces a floor-area text like "48,5 m²" to a number,
// normalizing the locale decimal comma to a dot first.
func CleanArea(text string) (float64, error) {
	normalized := strings.ReplaceAll(text, ",", ".")
	cleaned := nonNumeric.ReplaceAllString(normalized, "")
	if cleaned == "" {
		return 0, apperrors.NewNumericParse("clean", "area text has no digits: "+text)
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, apperrors.NewNumericParse("clean", "unparsable area text: "+text)
	}
	return v, nil
}
