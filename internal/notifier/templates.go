package notifier

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/openestate/watchtower/internal/models"
)

// Content is a rendered subject and body pair ready for delivery.
type Content struct {
	Subject string
	Body    string
}

// TemplateData contains the named placeholders available to the
// severity templates.
type TemplateData struct {
	AlertName    string
	Metric       string
	Value        float64
	Threshold    float64
	Severity     string
	Message      string
	TriggeredAt  string
	Environment  string
	DashboardURL string

	// Resolution template only.
	ResolvedAt string
	Duration   string
}

const timeLayout = "2006-01-02 15:04:05 MST"

// Template sources keyed by severity, plus the resolution notice.
var templateSources = map[string]struct{ subject, body string }{
	string(models.SeverityCritical): {
		subject: "[CRITICAL] {{.AlertName}}",
		body: `CRITICAL alert in {{.Environment}}.

{{.Message}}

Metric:    {{.Metric}}
Value:     {{printf "%.2f" .Value}}
Threshold: {{printf "%.2f" .Threshold}}
Triggered: {{.TriggeredAt}}

Immediate attention required.
Dashboard: {{.DashboardURL}}`,
	},
	string(models.SeverityWarning): {
		subject: "[WARNING] {{.AlertName}}",
		body: `Warning alert in {{.Environment}}.

{{.Message}}

Metric:    {{.Metric}}
Value:     {{printf "%.2f" .Value}}
Threshold: {{printf "%.2f" .Threshold}}
Triggered: {{.TriggeredAt}}

Dashboard: {{.DashboardURL}}`,
	},
	string(models.SeverityInfo): {
		subject: "[INFO] {{.AlertName}}",
		body: `Informational alert in {{.Environment}}.

{{.Message}}

Metric:    {{.Metric}}
Value:     {{printf "%.2f" .Value}}
Threshold: {{printf "%.2f" .Threshold}}
Triggered: {{.TriggeredAt}}

Dashboard: {{.DashboardURL}}`,
	},
	"resolved": {
		subject: "[RESOLVED] {{.AlertName}}",
		body: `Alert resolved in {{.Environment}}.

{{.Message}}

Metric:    {{.Metric}}
Triggered: {{.TriggeredAt}}
Resolved:  {{.ResolvedAt}}
Duration:  {{.Duration}}

Dashboard: {{.DashboardURL}}`,
	},
}

// Renderer renders alert content from severity-specific templates.
type Renderer struct {
	environment  string
	dashboardURL string
	subjects     map[string]*template.Template
	bodies       map[string]*template.Template
}

// NewRenderer parses the built-in templates. Environment and dashboard
// URL are substituted into every rendering.
func NewRenderer(environment, dashboardURL string) (*Renderer, error) {
	r := &Renderer{
		environment:  environment,
		dashboardURL: dashboardURL,
		subjects:     make(map[string]*template.Template),
		bodies:       make(map[string]*template.Template),
	}
	for key, src := range templateSources {
		subject, err := template.New(key + ".subject").Parse(src.subject)
		if err != nil {
			return nil, fmt.Errorf("parse %s subject template: %w", key, err)
		}
		body, err := template.New(key + ".body").Parse(src.body)
		if err != nil {
			return nil, fmt.Errorf("parse %s body template: %w", key, err)
		}
		r.subjects[key] = subject
		r.bodies[key] = body
	}
	return r, nil
}

// RenderAlert renders the template matching the alert's severity.
func (r *Renderer) RenderAlert(alert *models.ActiveAlert) (Content, error) {
	data := r.data(alert)
	return r.render(string(alert.Severity), data)
}

// RenderResolved renders the resolution notice.
func (r *Renderer) RenderResolved(alert *models.ActiveAlert, now time.Time) (Content, error) {
	data := r.data(alert)
	resolvedAt := now
	if alert.ResolvedAt != nil {
		resolvedAt = *alert.ResolvedAt
	}
	data.ResolvedAt = resolvedAt.Format(timeLayout)
	data.Duration = formatDuration(resolvedAt.Sub(alert.TriggeredAt))
	return r.render("resolved", data)
}

func (r *Renderer) data(alert *models.ActiveAlert) TemplateData {
	return TemplateData{
		AlertName:    alert.RuleName,
		Metric:       alert.Metric,
		Value:        alert.CurrentValue,
		Threshold:    alert.Threshold,
		Severity:     strings.ToUpper(string(alert.Severity)),
		Message:      alert.Message,
		TriggeredAt:  alert.TriggeredAt.Format(timeLayout),
		Environment:  r.environment,
		DashboardURL: r.dashboardURL,
	}
}

func (r *Renderer) render(key string, data TemplateData) (Content, error) {
	subjectTmpl, ok := r.subjects[key]
	if !ok {
		// Unknown severity falls back to the warning layout.
		subjectTmpl = r.subjects[string(models.SeverityWarning)]
	}
	bodyTmpl, ok := r.bodies[key]
	if !ok {
		bodyTmpl = r.bodies[string(models.SeverityWarning)]
	}

	var subject, body bytes.Buffer
	if err := subjectTmpl.Execute(&subject, data); err != nil {
		return Content{}, fmt.Errorf("render subject: %w", err)
	}
	if err := bodyTmpl.Execute(&body, data); err != nil {
		return Content{}, fmt.Errorf("render body: %w", err)
	}
	return Content{Subject: subject.String(), Body: body.String()}, nil
}

// formatDuration renders a duration as hours and minutes, seconds for
// anything under a minute.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%dm", h, m)
}
