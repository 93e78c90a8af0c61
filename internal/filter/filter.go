// Package filter derives views of a weather Dataset from country, city, and date selections.
package filter

import (
	"sort"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// All is the selector value meaning "no constraint".
const All = "All"

// DateLayout is the wire format for date bounds.
const DateLayout = "2006-01-02"

// DateRange is an inclusive range of UTC calendar dates. End covers its whole day.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange returns the range [start, end] truncated to calendar dates.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: truncateDay(start), End: truncateDay(end)}
}

// Reversed reports whether Start falls after End.
func (r DateRange) Reversed() bool {
	return r.Start.After(r.End)
}

// Contains reports whether t lies on or after Start and no later than the last instant of End's day.
func (r DateRange) Contains(t time.Time) bool {
	if r.Reversed() {
		return false
	}
	endExclusive := truncateDay(r.End).AddDate(0, 0, 1)
	return !t.Before(r.Start) && t.Before(endExclusive)
}

// Params is one set of user selections.
type Params struct {
	Country string
	City    string
	Range   DateRange
}

// Apply returns the records of d matching every active selection, in source order.
// d is never modified; the result shares record pointers with it. An empty source or a
// reversed range yields an empty Dataset.
func Apply(d *models.Dataset, p Params) *models.Dataset {
	country := normalizeSelection(p.Country)
	city := normalizeSelection(p.City)
	if p.Range.Reversed() {
		return d.Derive(func(*models.WeatherRecord) bool { return false })
	}
	return d.Derive(func(r *models.WeatherRecord) bool {
		if country != All && r.Country != country {
			return false
		}
		if city != All && r.City != city {
			return false
		}
		return p.Range.Contains(r.LastUpdated)
	})
}

// Countries returns the sorted distinct non-empty country values in d.
func Countries(d *models.Dataset) []string {
	return distinct(d, func(r *models.WeatherRecord) (string, bool) {
		return r.Country, true
	})
}

// Cities returns the sorted distinct non-empty city values among records of country.
// All (or empty) returns every city in d.
func Cities(d *models.Dataset, country string) []string {
	country = normalizeSelection(country)
	return distinct(d, func(r *models.WeatherRecord) (string, bool) {
		return r.City, country == All || r.Country == country
	})
}

// HasCountry reports whether country is All or one of Countries(d).
func HasCountry(d *models.Dataset, country string) bool {
	country = normalizeSelection(country)
	if country == All {
		return true
	}
	return contains(Countries(d), country)
}

// HasCity reports whether city is All or one of Cities(d, country).
func HasCity(d *models.Dataset, country, city string) bool {
	city = normalizeSelection(city)
	if city == All {
		return true
	}
	return contains(Cities(d, country), city)
}

// Bounds returns the dates of the earliest and latest records. ok is false for an empty dataset.
func Bounds(d *models.Dataset) (r DateRange, ok bool) {
	if d.Empty() {
		return DateRange{}, false
	}
	lo, hi := d.At(0).LastUpdated, d.At(0).LastUpdated
	for i := 1; i < d.Len(); i++ {
		t := d.At(i).LastUpdated
		if t.Before(lo) {
			lo = t
		}
		if t.After(hi) {
			hi = t
		}
	}
	return NewDateRange(lo, hi), true
}

// Options holds the choices a selector UI offers for the current country.
type Options struct {
	Countries []string `json:"countries"`
	Cities    []string `json:"cities"`
	MinDate   string   `json:"minDate,omitempty"`
	MaxDate   string   `json:"maxDate,omitempty"`
}

// OptionsFor returns the selector choices, each list prefixed with All.
// Cities are scoped to country when it is not All.
func OptionsFor(d *models.Dataset, country string) Options {
	opts := Options{
		Countries: append([]string{All}, Countries(d)...),
		Cities:    append([]string{All}, Cities(d, country)...),
	}
	if b, ok := Bounds(d); ok {
		opts.MinDate = b.Start.Format(DateLayout)
		opts.MaxDate = b.End.Format(DateLayout)
	}
	return opts
}

func distinct(d *models.Dataset, value func(*models.WeatherRecord) (string, bool)) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for i := 0; i < d.Len(); i++ {
		v, ok := value(d.At(i))
		if !ok || v == "" {
			continue
		}
		if _, dup := seen[v]; dup {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func contains(values []string, v string) bool {
	i := sort.SearchStrings(values, v)
	return i < len(values) && values[i] == v
}

func normalizeSelection(s string) string {
	if s == "" {
		return All
	}
	return s
}

// truncateDay returns midnight UTC of t's UTC calendar date, the zone query dates are parsed in.
func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
