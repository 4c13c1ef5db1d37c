// Package report builds the periodic alert digest mailed to area
// managers.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"sort"
	"time"

	"gopkg.in/gomail.v2"

	"github.com/forestguard/internal/engine"
	"github.com/forestguard/internal/models"
)

type Generator struct {
	engine *engine.Engine
	from   string
	tmpl   *template.Template
}

type Data struct {
	StartTime  time.Time
	EndTime    time.Time
	Summary    Summary
	TopAreas   []AreaSummary
	HighRisk   []models.Prediction
	OpenAlerts []models.Alert
}

type Summary struct {
	TotalAlerts   int
	UrgentAlerts  int
	HighAlerts    int
	HandledAlerts int
	ExpiredAlerts int
	Predictions   int
	HighRiskCount int
}

type AreaSummary struct {
	Area       string
	AlertCount int
}

var digestTemplate = template.Must(template.New("digest").Funcs(template.FuncMap{
	"pct": func(p float64) string { return fmt.Sprintf("%.0f%%", p*100) },
}).Parse(`<html>
<body>
<h2>ForestGuard Alert Digest</h2>
<p>{{.StartTime.Format "2006-01-02"}} &ndash; {{.EndTime.Format "2006-01-02"}}</p>
<h3>Summary</h3>
<ul>
<li>Alerts: {{.Summary.TotalAlerts}} ({{.Summary.UrgentAlerts}} urgent, {{.Summary.HighAlerts}} high)</li>
<li>Handled: {{.Summary.HandledAlerts}}, expired: {{.Summary.ExpiredAlerts}}</li>
<li>Predictions on file: {{.Summary.Predictions}}, high risk: {{.Summary.HighRiskCount}}</li>
</ul>
<h3>Most affected areas</h3>
<ul>
{{range .TopAreas}}<li>{{.Area}}: {{.AlertCount}} alerts</li>
{{end}}</ul>
<h3>High-risk predictions</h3>
<ul>
{{range .HighRisk}}<li>{{.TargetArea}} / {{.PestID}}: {{.RiskLevel}} ({{pct .Probability}})</li>
{{end}}</ul>
<h3>Open alerts</h3>
<ul>
{{range .OpenAlerts}}<li>[{{.Level}}] {{.TargetArea}}: {{.Message}}</li>
{{end}}</ul>
</body>
</html>`))

func NewGenerator(e *engine.Engine, from string) *Generator {
	return &Generator{engine: e, from: from, tmpl: digestTemplate}
}

// Collect gathers the digest data for the given window.
func (g *Generator) Collect(start, end time.Time) Data {
	data := Data{StartTime: start, EndTime: end}

	for _, a := range g.engine.Alerts().All() {
		if a.CreatedAt.Before(start) || a.CreatedAt.After(end) {
			continue
		}
		data.Summary.TotalAlerts++
		switch a.Level {
		case models.AlertLevelUrgent:
			data.Summary.UrgentAlerts++
		case models.AlertLevelHigh:
			data.Summary.HighAlerts++
		}
		switch a.Status {
		case models.AlertStatusHandled:
			data.Summary.HandledAlerts++
		case models.AlertStatusExpired:
			data.Summary.ExpiredAlerts++
		}
	}

	st := g.engine.Stats()
	data.Summary.Predictions = st.PredictionCount
	data.Summary.HighRiskCount = st.HighRiskCount

	for area, count := range st.ByArea {
		data.TopAreas = append(data.TopAreas, AreaSummary{Area: area, AlertCount: count})
	}
	sort.Slice(data.TopAreas, func(i, j int) bool {
		if data.TopAreas[i].AlertCount == data.TopAreas[j].AlertCount {
			return data.TopAreas[i].Area < data.TopAreas[j].Area
		}
		return data.TopAreas[i].AlertCount > data.TopAreas[j].AlertCount
	})
	if len(data.TopAreas) > 10 {
		data.TopAreas = data.TopAreas[:10]
	}

	data.HighRisk = g.engine.Predictions().NeedingAttention()
	data.OpenAlerts = g.engine.Alerts().Unhandled()
	return data
}

// Build renders the digest for the window into a ready-to-send mail.
func (g *Generator) Build(start, end time.Time, recipients []string) (*gomail.Message, error) {
	data := g.Collect(start, end)

	var buf bytes.Buffer
	if err := g.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render digest: %v", err)
	}

	m := gomail.NewMessage()
	m.SetHeader("From", g.from)
	m.SetHeader("To", recipients...)
	m.SetHeader("Subject", fmt.Sprintf("ForestGuard Digest (%s - %s)",
		start.Format("2006-01-02"), end.Format("2006-01-02")))
	m.SetBody("text/html", buf.String())
	return m, nil
}
