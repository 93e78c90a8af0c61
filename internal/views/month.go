package views

import (
	"encoding/json"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// monthNames maps month ordinals 1-12 to English names, independent of locale.
var monthNames = [...]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthName returns the full English name of m.
func MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return monthNames[m-1]
}

// MonthRecord pairs a record with the month name derived from its timestamp.
type MonthRecord struct {
	*models.WeatherRecord
	Month string
}

// MarshalJSON adds the derived month to the record's encoding.
func (m MonthRecord) MarshalJSON() ([]byte, error) {
	return marshalWithMonth(m.WeatherRecord, m.Month)
}

// WithMonth annotates every record of d with its month name. The annotation lives only
// on the returned slice; d and its records are not modified.
func WithMonth(d *models.Dataset) []MonthRecord {
	out := make([]MonthRecord, d.Len())
	for i := range out {
		r := d.At(i)
		out[i] = MonthRecord{WeatherRecord: r, Month: MonthName(r.LastUpdated.Month())}
	}
	return out
}

func marshalWithMonth(r *models.WeatherRecord, month string) ([]byte, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}
	fields["month"], err = json.Marshal(month)
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}
