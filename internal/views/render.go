// Package views builds what the dashboard shows for a filtered view: derived columns,
// Plotly figures, the static findings panel, and the HTML page.
package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"

	"github.com/kjstillabower/weather-dashboard/internal/filter"
	"github.com/kjstillabower/weather-dashboard/internal/models"
	"github.com/kjstillabower/weather-dashboard/internal/validation"
)

// NoDataNotice is shown instead of charts when a view has no rows.
const NoDataNotice = "No data available for the selected filters."

//go:embed templates
var viewsFS embed.FS

var dashboardTmpl *template.Template

// loadTemplatesFromFS loads dashboard templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	tmpl, err := template.ParseFS(sub, "*.html", "partials/*.html")
	if err != nil {
		return err
	}
	dashboardTmpl = tmpl
	return nil
}

// LoadTemplates loads embedded dashboard templates. Call during startup before
// serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// View is the result of filtering for one selection, ready for JSON or HTML output.
type View struct {
	Selection validation.Selection `json:"selection"`
	Rows      int                  `json:"rows"`
	Empty     bool                 `json:"empty"`
	Notice    string               `json:"notice,omitempty"`
	Charts    *Charts              `json:"charts,omitempty"`
}

// BuildView packages a filtered dataset. Charts are only built when there are rows;
// an empty view carries NoDataNotice instead.
func BuildView(sel validation.Selection, d *models.Dataset) View {
	v := View{Selection: sel, Rows: d.Len(), Empty: d.Empty()}
	if v.Empty {
		v.Notice = NoDataNotice
		return v
	}
	charts := BuildCharts(d)
	v.Charts = &charts
	return v
}

// DashboardData is the view model for dashboard.html.
type DashboardData struct {
	Title    string
	Subtitle string
	Options  filter.Options
	View     View
	Findings template.HTML
	// Error is a user-visible message shown above the charts, e.g. for a rejected query.
	Error string
}

// RenderDashboard executes the full dashboard page into w.
func RenderDashboard(w io.Writer, data *DashboardData) error {
	if dashboardTmpl == nil {
		return errors.New("dashboard template not loaded: call views.LoadTemplates during startup")
	}
	return dashboardTmpl.ExecuteTemplate(w, "dashboard.html", data)
}
