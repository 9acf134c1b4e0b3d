package dash

import (
	"errors"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/skylark-data/flightdeck/internal/flight"
	"github.com/skylark-data/flightdeck/internal/series"
	"github.com/skylark-data/flightdeck/internal/store"
	"github.com/skylark-data/flightdeck/internal/units"
)

const pageStyle = `<style>
body { font-family: sans-serif; background: #100c2a; color: #eee; margin: 2em; }
a { color: #7cb5ec; }
table { border-collapse: collapse; margin: 1em 0; }
th, td { border: 1px solid #444; padding: 0.4em 0.8em; text-align: left; }
th { background: #1d1736; }
form.upload { margin: 1em 0; padding: 1em; border: 1px dashed #555; }
.card { display: inline-block; margin: 0.5em 1em 0.5em 0; padding: 0.6em 1em; background: #1d1736; border-radius: 6px; }
.card b { display: block; font-size: 1.2em; }
</style>`

const homeHTML = `<!DOCTYPE html>
<html><head><title>Flight Log Dashboard</title>%s</head>
<body>
<h1>Flight Log Dashboard</h1>
<form class="upload" action="/upload" method="post" enctype="multipart/form-data">
  <input type="file" name="file" accept=".ulg,.ulog" required>
  <input type="submit" value="Upload Log">
</form>
<form class="upload" action="/upload" method="post">
  <input type="url" name="url" placeholder="https://example.com/flight.ulg" size="50" required>
  <input type="submit" value="Import from URL">
</form>
%s
</body></html>`

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	logs, err := s.db.Logs()
	if err != nil {
		http.Error(w, "Failed to list logs", http.StatusInternalServerError)
		return
	}

	var b strings.Builder
	if len(logs) == 0 {
		b.WriteString("<p>No logs uploaded yet.</p>")
	} else {
		b.WriteString("<table><tr><th>Uploaded</th><th>Filename</th><th>System</th><th>Version</th><th>Duration</th><th></th></tr>")
		for _, rec := range logs {
			fmt.Fprintf(&b,
				`<tr><td>%s</td><td><a href="/view?id=%s">%s</a></td><td>%s</td><td>%s</td><td>%.0fs</td>`+
					`<td><a href="/browse?id=%s">browse</a></td></tr>`,
				rec.UploadedAt.Format("2006-01-02 15:04"),
				url.QueryEscape(rec.ID), html.EscapeString(rec.Filename),
				html.EscapeString(rec.SysName), html.EscapeString(rec.VerSW),
				rec.DurationS, url.QueryEscape(rec.ID),
			)
		}
		b.WriteString("</table>")
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, homeHTML, pageStyle, b.String())
}

func (s *Server) viewHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	rec, lg, err := s.load(id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Log not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load log: %v", err), http.StatusInternalServerError)
		return
	}

	info := flight.Info(lg)
	summary, err := s.db.Summary(id)
	if errors.Is(err, store.ErrNotFound) {
		summary = flight.Summarize(lg)
	} else if err != nil {
		http.Error(w, "Failed to load summary", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>%s</title>%s</head><body>`,
		html.EscapeString(rec.Filename), pageStyle)
	fmt.Fprintf(w, `<p><a href="/">&larr; all logs</a> | <a href="/browse?id=%s">browse topics</a></p>`,
		url.QueryEscape(id))
	fmt.Fprintf(w, "<h1>%s</h1>", html.EscapeString(rec.Filename))
	s.writeInfoCards(w, info, summary)

	figs := flight.BuildAll(lg, s.cfg.MaxPoints)
	if len(figs) == 0 {
		fmt.Fprint(w, "<p>No plottable topics found in this log.</p></body></html>")
		return
	}
	if err := renderFigures(w, rec.Filename, figs); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render charts: %v", err), http.StatusInternalServerError)
		return
	}
	fmt.Fprint(w, "</body></html>")
}

// writeInfoCards emits the vehicle header and flight statistics, converting
// speeds to the configured display unit.
func (s *Server) writeInfoCards(w http.ResponseWriter, info flight.VehicleInfo, sum series.FlightSummary) {
	card := func(label, value string) {
		fmt.Fprintf(w, `<span class="card">%s<b>%s</b></span>`,
			html.EscapeString(label), html.EscapeString(value))
	}

	card("System", info.SystemName)
	card("Hardware", info.Hardware)
	card("Firmware", info.SoftwareVer)
	if info.Estimator != "" {
		card("Estimator", info.Estimator)
	}
	card("Duration", info.Duration)

	suffix := units.SpeedSuffix(s.cfg.Units)
	if sum.DistanceM != nil {
		card("Distance", fmt.Sprintf("%.0f m", *sum.DistanceM))
	}
	if sum.MaxAltitudeM != nil {
		card("Max Altitude", fmt.Sprintf("%.1f m", *sum.MaxAltitudeM))
	}
	if sum.MaxSpeedMPS != nil {
		card("Max Speed", fmt.Sprintf("%.1f %s", units.ConvertSpeed(*sum.MaxSpeedMPS, s.cfg.Units), suffix))
	}
	if sum.AvgSpeedMPS != nil {
		card("Avg Speed", fmt.Sprintf("%.1f %s", units.ConvertSpeed(*sum.AvgSpeedMPS, s.cfg.Units), suffix))
	}
	if sum.MaxClimbMPS != nil {
		card("Max Climb", fmt.Sprintf("%.1f m/s", *sum.MaxClimbMPS))
	}
	if sum.MaxDescentMPS != nil {
		card("Max Descent", fmt.Sprintf("%.1f m/s", *sum.MaxDescentMPS))
	}
	if sum.MaxTiltDeg != nil {
		card("Max Tilt", fmt.Sprintf("%.0f&deg;", *sum.MaxTiltDeg))
	}
}

func (s *Server) browseHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	rec, lg, err := s.load(id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Log not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load log: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, `<!DOCTYPE html><html><head><title>Browse %s</title>%s</head><body>`,
		html.EscapeString(rec.Filename), pageStyle)
	fmt.Fprintf(w, `<p><a href="/">&larr; all logs</a> | <a href="/view?id=%s">standard graphs</a></p>`,
		url.QueryEscape(id))
	fmt.Fprintf(w, "<h1>Topics in %s</h1>", html.EscapeString(rec.Filename))

	fmt.Fprint(w, "<table><tr><th>Topic</th><th>Samples</th><th>Fields</th></tr>")
	for _, key := range lg.TopicKeys() {
		ds := lg.ByKey(key)
		if ds == nil {
			continue
		}
		var links []string
		for _, f := range ds.FieldNames() {
			links = append(links, fmt.Sprintf(`<a href="/chart?id=%s&topic=%s&field=%s">%s</a>`,
				url.QueryEscape(id), url.QueryEscape(key), url.QueryEscape(f), html.EscapeString(f)))
		}
		fmt.Fprintf(w, "<tr><td>%s</td><td>%d</td><td>%s</td></tr>",
			html.EscapeString(key), ds.Len(), strings.Join(links, " "))
	}
	fmt.Fprint(w, "</table></body></html>")
}

func (s *Server) chartHandler(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	_, lg, err := s.load(id)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Log not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to load log: %v", err), http.StatusInternalServerError)
		return
	}

	topic := r.URL.Query().Get("topic")
	field := r.URL.Query().Get("field")
	ds := lg.ByKey(topic)
	if ds == nil {
		http.Error(w, fmt.Sprintf("Unknown topic %q", topic), http.StatusNotFound)
		return
	}
	ts, ok := ds.Series(field)
	if !ok {
		http.Error(w, fmt.Sprintf("Unknown field %q", field), http.StatusNotFound)
		return
	}
	ts = ts.Downsampled(s.cfg.MaxPoints)

	fig := flight.Figure{
		Key:   topic + "." + field,
		Title: topic + " / " + field,
		Lines: []flight.Line{{
			Name: field, Times: ts.Times, Values: ts.Values, Width: 1.5,
		}},
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderFigures(w, fig.Title, []flight.Figure{fig}); err != nil {
		http.Error(w, fmt.Sprintf("Failed to render chart: %v", err), http.StatusInternalServerError)
	}
}
