package models

import (
	"encoding/json"
	"math"
	"time"
)

// WeatherRecord is one normalized row of the weather dataset.
// Numeric fields hold NaN when the source cell was empty or unparseable.
type WeatherRecord struct {
	Country      string
	City         string
	LastUpdated  time.Time
	TemperatureC float64
	Humidity     float64
	WindKph      float64
	// Extra holds every other source column verbatim, keyed by column name.
	Extra map[string]string
}

type weatherRecordJSON struct {
	Country      string            `json:"country"`
	City         string            `json:"city"`
	LastUpdated  time.Time         `json:"lastUpdated"`
	TemperatureC *float64          `json:"temperatureCelsius"`
	Humidity     *float64          `json:"humidity"`
	WindKph      *float64          `json:"windKph"`
	Extra        map[string]string `json:"extra,omitempty"`
}

// MarshalJSON encodes NaN measurements as null.
func (r WeatherRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(weatherRecordJSON{
		Country:      r.Country,
		City:         r.City,
		LastUpdated:  r.LastUpdated,
		TemperatureC: nullable(r.TemperatureC),
		Humidity:     nullable(r.Humidity),
		WindKph:      nullable(r.WindKph),
		Extra:        r.Extra,
	})
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// Dataset is an ordered, read-only collection of weather records.
// Derived datasets share record pointers with their source; records are never mutated after load.
type Dataset struct {
	columns []string
	records []*WeatherRecord
}

// NewDataset returns a Dataset over records. The slices are owned by the Dataset afterwards.
func NewDataset(columns []string, records []*WeatherRecord) *Dataset {
	return &Dataset{columns: columns, records: records}
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.records)
}

// Empty reports whether the dataset has no records.
func (d *Dataset) Empty() bool {
	return d.Len() == 0
}

// At returns the i-th record.
func (d *Dataset) At(i int) *WeatherRecord {
	return d.records[i]
}

// Records returns a copy of the record slice. The records themselves are shared.
func (d *Dataset) Records() []*WeatherRecord {
	if d == nil {
		return nil
	}
	out := make([]*WeatherRecord, len(d.records))
	copy(out, d.records)
	return out
}

// Columns returns the normalized column names in source order.
func (d *Dataset) Columns() []string {
	if d == nil {
		return nil
	}
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Derive returns a new Dataset with the same columns holding the records kept by keep.
// Source order is preserved and the receiver is left untouched.
func (d *Dataset) Derive(keep func(*WeatherRecord) bool) *Dataset {
	if d == nil {
		return NewDataset(nil, nil)
	}
	out := make([]*WeatherRecord, 0)
	for _, r := range d.records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return &Dataset{columns: d.columns, records: out}
}
