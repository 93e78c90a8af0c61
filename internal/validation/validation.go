// Package validation turns dashboard query parameters into filter selections.
package validation

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kjstillabower/weather-dashboard/internal/filter"
	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// ErrInvalidQuery is returned when a parameter is malformed (bad date, too long, control characters).
var ErrInvalidQuery = errors.New("invalid query")

// ErrUnknownCountry is returned when country is neither All nor present in the dataset.
var ErrUnknownCountry = errors.New("unknown country")

// MaxSelectionLength bounds country and city parameters, in runes.
const MaxSelectionLength = 128

var validate = validator.New()

type viewQuery struct {
	Country string `validate:"max=128"`
	City    string `validate:"max=128"`
	Start   string `validate:"omitempty,datetime=2006-01-02"`
	End     string `validate:"omitempty,datetime=2006-01-02"`
}

// Selection is the effective selection after defaults and city scoping are applied.
type Selection struct {
	Country string `json:"country"`
	City    string `json:"city"`
	Start   string `json:"start"`
	End     string `json:"end"`
	// CityReset is set when the requested city did not belong to the selected country.
	CityReset bool `json:"cityReset,omitempty"`
}

// ParseViewQuery reads country, city, start, and end from q and resolves them against d.
// Missing values default to All and to the dataset's date bounds. A city outside the
// selected country falls back to All. A reversed range is passed through unchanged.
func ParseViewQuery(q url.Values, d *models.Dataset) (filter.Params, Selection, error) {
	vq := viewQuery{
		Country: strings.TrimSpace(q.Get("country")),
		City:    strings.TrimSpace(q.Get("city")),
		Start:   strings.TrimSpace(q.Get("start")),
		End:     strings.TrimSpace(q.Get("end")),
	}
	if err := validate.Struct(vq); err != nil {
		return filter.Params{}, Selection{}, fmt.Errorf("%w: %s", ErrInvalidQuery, describe(err))
	}
	for _, s := range []string{vq.Country, vq.City} {
		if err := ValidateSelection(s); err != nil {
			return filter.Params{}, Selection{}, err
		}
	}

	sel := Selection{Country: orAll(vq.Country), City: orAll(vq.City)}
	if !filter.HasCountry(d, sel.Country) {
		return filter.Params{}, Selection{}, fmt.Errorf("%w: %q", ErrUnknownCountry, sel.Country)
	}
	if !filter.HasCity(d, sel.Country, sel.City) {
		sel.City = filter.All
		sel.CityReset = true
	}

	bounds, hasBounds := filter.Bounds(d)
	start, err := parseDate(vq.Start, bounds.Start, hasBounds)
	if err != nil {
		return filter.Params{}, Selection{}, err
	}
	end, err := parseDate(vq.End, bounds.End, hasBounds)
	if err != nil {
		return filter.Params{}, Selection{}, err
	}
	if start.IsZero() {
		start = end
	}
	if end.IsZero() {
		end = start
	}
	r := filter.NewDateRange(start, end)
	if !r.Start.IsZero() {
		sel.Start = r.Start.Format(filter.DateLayout)
		sel.End = r.End.Format(filter.DateLayout)
	}

	return filter.Params{Country: sel.Country, City: sel.City, Range: r}, sel, nil
}

// ValidateSelection enforces the length bound (in runes) and rejects control characters.
// Any printable text is allowed because selections are matched exactly against dataset values.
func ValidateSelection(s string) error {
	r := []rune(s)
	if len(r) > MaxSelectionLength {
		return fmt.Errorf("%w: selection longer than %d characters", ErrInvalidQuery, MaxSelectionLength)
	}
	for _, c := range r {
		if unicode.IsControl(c) {
			return fmt.Errorf("%w: selection contains control characters", ErrInvalidQuery)
		}
	}
	return nil
}

func parseDate(s string, fallback time.Time, hasFallback bool) (time.Time, error) {
	if s == "" {
		if hasFallback {
			return fallback, nil
		}
		return time.Time{}, nil
	}
	t, err := time.ParseInLocation(filter.DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q", ErrInvalidQuery, s)
	}
	return t, nil
}

// describe flattens validator field errors into "field: tag" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+" must satisfy "+fe.Tag())
	}
	return strings.Join(parts, "; ")
}

func orAll(s string) string {
	if s == "" {
		return filter.All
	}
	return s
}
