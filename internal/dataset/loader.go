// Package dataset reads the weather CSV into a normalized, immutable models.Dataset.
package dataset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/observability"
)

// Column names in the source file and after normalization.
const (
	ColCountry      = "country"
	ColLocationName = "location_name"
	ColCity         = "city"
	ColLastUpdated  = "last_updated"
	ColTemperature  = "temperature_celsius"
	ColHumidity     = "humidity"
	ColWindKph      = "wind_kph"

	// colCityOriginal receives a pre-existing city column so the renamed location column owns "city".
	colCityOriginal = "city_original"
)

// requiredColumns must be present after the location rename.
var requiredColumns = []string{ColCountry, ColCity, ColLastUpdated, ColTemperature, ColHumidity, ColWindKph}

// timestampLayouts are tried in order; naive layouts are read as UTC.
var timestampLayouts = []string{
	"2006-01-02 15:04",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// Loader produces a Dataset.
type Loader interface {
	Load() (*models.Dataset, error)
}

// LoadStats summarizes one normalization pass.
type LoadStats struct {
	Rows    int // rows kept
	Dropped int // rows dropped for unparseable last_updated
}

// CSVLoader loads a Dataset from a CSV file on disk.
type CSVLoader struct {
	path   string
	logger *zap.Logger
}

// NewCSVLoader returns a loader for the CSV at path. logger may be nil.
func NewCSVLoader(path string, logger *zap.Logger) *CSVLoader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVLoader{path: path, logger: logger}
}

// Load opens, parses, and normalizes the file. Errors are *DataLoadError or *MissingColumnError.
func (l *CSVLoader) Load() (*models.Dataset, error) {
	start := time.Now()
	f, err := os.Open(l.path)
	if err != nil {
		return nil, &DataLoadError{Path: l.path, Err: err}
	}
	defer func() { _ = f.Close() }()

	ds, stats, err := Parse(f)
	if err != nil {
		var dle *DataLoadError
		if errors.As(err, &dle) {
			dle.Path = l.path
		}
		return nil, err
	}

	duration := time.Since(start)
	observability.DatasetLoadDuration.Observe(duration.Seconds())
	observability.DatasetRowsLoaded.Set(float64(stats.Rows))
	observability.DatasetRowsDropped.Set(float64(stats.Dropped))
	l.logger.Info("dataset loaded",
		zap.String("path", l.path),
		zap.Int("rows", stats.Rows),
		zap.Int("dropped", stats.Dropped),
		zap.Int("columns", len(ds.Columns())),
		zap.Duration("duration", duration))
	if stats.Dropped > 0 {
		l.logger.Warn("dropped rows with unparseable last_updated", zap.Int("dropped", stats.Dropped))
	}
	return ds, nil
}

// utf8BOM is stripped from the start of the source.
var utf8BOM = []byte("\xef\xbb\xbf")

// Parse reads a CSV table from r and normalizes it: location_name is renamed to city,
// required columns are checked, and rows whose last_updated does not parse are dropped.
// A header with no data rows yields an empty Dataset.
func Parse(r io.Reader) (*models.Dataset, LoadStats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, LoadStats{}, &DataLoadError{Err: fmt.Errorf("read csv: %w", err)}
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	df := readFrame(data, true)
	if df.Err != nil {
		header, ok := headerOnly(data)
		if !ok {
			return nil, LoadStats{}, &DataLoadError{Err: fmt.Errorf("parse csv: %w", df.Err)}
		}
		columns, renamed := normalizeHeader(header)
		if err := checkColumns(indexOf(columns), renamed); err != nil {
			return nil, LoadStats{}, err
		}
		return models.NewDataset(columns, nil), LoadStats{}, nil
	}

	columns, renamed := normalizeHeader(df.Names())
	if err := df.SetNames(columns...); err != nil {
		return nil, LoadStats{}, &DataLoadError{Err: fmt.Errorf("rename %s: %w", ColLocationName, err)}
	}
	index := indexOf(columns)
	if err := checkColumns(index, renamed); err != nil {
		return nil, LoadStats{}, err
	}

	rows := df.Records()
	if len(rows) > 0 {
		rows = rows[1:] // header
	}

	var stats LoadStats
	records := make([]*models.WeatherRecord, 0, len(rows))
	for _, row := range rows {
		ts, ok := ParseTimestamp(row[index[ColLastUpdated]])
		if !ok {
			stats.Dropped++
			continue
		}
		rec := &models.WeatherRecord{
			Country:      row[index[ColCountry]],
			City:         row[index[ColCity]],
			LastUpdated:  ts,
			TemperatureC: parseFloat(row[index[ColTemperature]]),
			Humidity:     parseFloat(row[index[ColHumidity]]),
			WindKph:      parseFloat(row[index[ColWindKph]]),
			Extra:        make(map[string]string, len(columns)-len(requiredColumns)),
		}
		for i, name := range columns {
			if !isRequired(name) {
				rec.Extra[name] = row[i]
			}
		}
		records = append(records, rec)
	}
	stats.Rows = len(records)
	return models.NewDataset(columns, records), stats, nil
}

func readFrame(data []byte, hasHeader bool) dataframe.DataFrame {
	return dataframe.ReadCSV(bytes.NewReader(data),
		dataframe.HasHeader(hasHeader),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues([]string{}),
	)
}

// headerOnly returns the header of a source that has exactly one line. gota refuses to
// build a frame without data rows, so the line is re-read as a headerless single row.
func headerOnly(data []byte) ([]string, bool) {
	df := readFrame(data, false)
	if df.Err != nil || df.Nrow() != 1 {
		return nil, false
	}
	return df.Records()[1], true
}

// normalizeHeader renames location_name to city. A source city column becomes city_original.
// renamed is false when the header has no location_name column.
func normalizeHeader(names []string) (out []string, renamed bool) {
	out = make([]string, len(names))
	copy(out, names)
	loc := -1
	for i, name := range out {
		if name == ColLocationName {
			loc = i
			break
		}
	}
	if loc < 0 {
		return out, false
	}
	for i, name := range out {
		if name == ColCity {
			out[i] = colCityOriginal
		}
	}
	out[loc] = ColCity
	return out, true
}

func indexOf(columns []string) map[string]int {
	index := make(map[string]int, len(columns))
	for i, name := range columns {
		index[name] = i
	}
	return index
}

// checkColumns reports every required column absent from the normalized header.
// Without a location rename the city requirement is reported as location_name.
func checkColumns(index map[string]int, renamed bool) error {
	var missing []string
	for _, name := range requiredColumns {
		if name == ColCity && !renamed {
			missing = append(missing, ColLocationName)
			continue
		}
		if _, ok := index[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return &MissingColumnError{Columns: missing}
	}
	return nil
}

func isRequired(name string) bool {
	for _, r := range requiredColumns {
		if r == name {
			return true
		}
	}
	return false
}

// ParseTimestamp parses a last_updated value into UTC. ok is false when no layout matches.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
