package views

import (
	"math"
	"sort"
	"time"

	"github.com/kjstillabower/weather-dashboard/internal/models"
)

// maxMarkerSize is the largest scatter bubble diameter in pixels.
const maxMarkerSize = 20

// Figure is a Plotly figure: traces plus layout, encoded as the browser library expects.
type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// Trace is one Plotly trace.
type Trace struct {
	Type   string    `json:"type"`
	Mode   string    `json:"mode,omitempty"`
	Name   string    `json:"name,omitempty"`
	X      []any     `json:"x"`
	Y      []float64 `json:"y"`
	Marker *Marker   `json:"marker,omitempty"`
}

// Marker styles scatter points.
type Marker struct {
	Size     []float64 `json:"size,omitempty"`
	SizeMode string    `json:"sizemode,omitempty"`
	SizeRef  float64   `json:"sizeref,omitempty"`
}

// Layout is the subset of Plotly layout the dashboard sets.
type Layout struct {
	Title string `json:"title"`
	XAxis Axis   `json:"xaxis"`
	YAxis Axis   `json:"yaxis"`
}

// Axis configures one chart axis.
type Axis struct {
	Title         string   `json:"title"`
	CategoryOrder string   `json:"categoryorder,omitempty"`
	CategoryArray []string `json:"categoryarray,omitempty"`
}

// Charts holds the three dashboard figures.
type Charts struct {
	Trend   Figure `json:"trend"`
	Scatter Figure `json:"scatter"`
	Box     Figure `json:"box"`
}

// BuildCharts builds the trend, scatter, and box figures for a filtered view.
// Points with a missing measurement are left out of the figures that need it.
func BuildCharts(d *models.Dataset) Charts {
	return Charts{
		Trend:   TemperatureTrend(d),
		Scatter: HumidityScatter(d),
		Box:     MonthlyBox(WithMonth(d)),
	}
}

// TemperatureTrend returns one line per city, in order of first appearance, each sorted by time.
func TemperatureTrend(d *models.Dataset) Figure {
	type point struct {
		t    time.Time
		temp float64
	}
	names, groups := groupByCity(d, func(r *models.WeatherRecord) (point, bool) {
		return point{r.LastUpdated, r.TemperatureC}, finite(r.TemperatureC)
	})

	fig := Figure{Layout: Layout{
		Title: "Temperature Trends Over Time",
		XAxis: Axis{Title: "last_updated"},
		YAxis: Axis{Title: "temperature_celsius"},
	}}
	for _, city := range names {
		pts := groups[city]
		sort.SliceStable(pts, func(i, j int) bool { return pts[i].t.Before(pts[j].t) })
		tr := Trace{Type: "scatter", Mode: "lines", Name: city, X: make([]any, len(pts)), Y: make([]float64, len(pts))}
		for i, p := range pts {
			tr.X[i] = p.t.Format("2006-01-02 15:04:05")
			tr.Y[i] = p.temp
		}
		fig.Data = append(fig.Data, tr)
	}
	return fig
}

// HumidityScatter returns one marker trace per city: humidity against temperature,
// bubble area proportional to wind speed.
func HumidityScatter(d *models.Dataset) Figure {
	type point struct{ humidity, temp, wind float64 }
	names, groups := groupByCity(d, func(r *models.WeatherRecord) (point, bool) {
		p := point{r.Humidity, r.TemperatureC, r.WindKph}
		return p, finite(p.humidity) && finite(p.temp) && finite(p.wind) && p.wind >= 0
	})

	maxWind := 0.0
	for _, pts := range groups {
		for _, p := range pts {
			maxWind = math.Max(maxWind, p.wind)
		}
	}
	sizeRef := 1.0
	if maxWind > 0 {
		sizeRef = 2 * maxWind / (maxMarkerSize * maxMarkerSize)
	}

	fig := Figure{Layout: Layout{
		Title: "Humidity vs Temperature (Bubble Size = Wind Speed)",
		XAxis: Axis{Title: "humidity"},
		YAxis: Axis{Title: "temperature_celsius"},
	}}
	for _, city := range names {
		pts := groups[city]
		tr := Trace{
			Type:   "scatter",
			Mode:   "markers",
			Name:   city,
			X:      make([]any, len(pts)),
			Y:      make([]float64, len(pts)),
			Marker: &Marker{Size: make([]float64, len(pts)), SizeMode: "area", SizeRef: sizeRef},
		}
		for i, p := range pts {
			tr.X[i] = p.humidity
			tr.Y[i] = p.temp
			tr.Marker.Size[i] = p.wind
		}
		fig.Data = append(fig.Data, tr)
	}
	return fig
}

// MonthlyBox returns a single box trace of temperature grouped by month name,
// with the category axis in calendar order.
func MonthlyBox(rows []MonthRecord) Figure {
	tr := Trace{Type: "box", Name: "temperature_celsius", X: []any{}, Y: []float64{}}
	var present [12]bool
	for _, r := range rows {
		if !finite(r.TemperatureC) || r.Month == "" {
			continue
		}
		tr.X = append(tr.X, r.Month)
		tr.Y = append(tr.Y, r.TemperatureC)
		present[r.LastUpdated.Month()-1] = true
	}
	var order []string
	for i, ok := range present {
		if ok {
			order = append(order, monthNames[i])
		}
	}
	return Figure{
		Data: []Trace{tr},
		Layout: Layout{
			Title: "Monthly Temperature Distribution",
			XAxis: Axis{Title: "month", CategoryOrder: "array", CategoryArray: order},
			YAxis: Axis{Title: "temperature_celsius"},
		},
	}
}

// groupByCity collects value(r) per city, keeping cities in order of first appearance.
func groupByCity[T any](d *models.Dataset, value func(*models.WeatherRecord) (T, bool)) ([]string, map[string][]T) {
	var names []string
	groups := make(map[string][]T)
	for i := 0; i < d.Len(); i++ {
		r := d.At(i)
		v, ok := value(r)
		if !ok {
			continue
		}
		if _, seen := groups[r.City]; !seen {
			names = append(names, r.City)
		}
		groups[r.City] = append(groups[r.City], v)
	}
	return names, groups
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
