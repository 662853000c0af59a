package api

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gmykhailiuta/libcamera/internal/ipadb"
)

// traceForRequest loads the decision trace addressed by the request.
// Query params:
//   - session_id (optional; defaults to the most recent session)
//   - max_points (optional; default 2000) to reduce payload size
func (s *Server) traceForRequest(r *http.Request) (string, []ipadb.DecisionRow, error) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		id, err := s.db.LatestSessionID()
		if err != nil {
			return "", nil, fmt.Errorf("failed to resolve latest session: %w", err)
		}
		sessionID = id
	}
	if sessionID == "" {
		return "", nil, fmt.Errorf("no sessions recorded yet")
	}

	rows, err := s.db.SessionTrace(sessionID)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load session trace: %w", err)
	}

	maxPoints := 2000
	if mp := r.URL.Query().Get("max_points"); mp != "" {
		if v, err := strconv.Atoi(mp); err == nil && v > 10 && v <= 50000 {
			maxPoints = v
		}
	}

	// Downsample by stride to stay within maxPoints
	if len(rows) > maxPoints {
		stride := (len(rows) + maxPoints - 1) / maxPoints
		kept := rows[:0]
		for i := 0; i < len(rows); i += stride {
			kept = append(kept, rows[i])
		}
		rows = kept
	}

	return sessionID, rows, nil
}

// handleExposureChart renders a line chart (HTML) of the exposure decisions
// over one session using go-echarts. This is a debugging-only endpoint
// (no auth) to inspect convergence without external tooling.
func (s *Server) handleExposureChart(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "decision store not configured")
		return
	}

	sessionID, rows, err := s.traceForRequest(r)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if len(rows) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no decisions recorded for session")
		return
	}

	frames := make([]string, 0, len(rows))
	exposure := make([]opts.LineData, 0, len(rows))
	analog := make([]opts.LineData, 0, len(rows))
	digital := make([]opts.LineData, 0, len(rows))
	lux := make([]opts.LineData, 0, len(rows))
	for _, row := range rows {
		frames = append(frames, strconv.FormatInt(row.Frame, 10))
		exposure = append(exposure, opts.LineData{Value: row.ExposureUs})
		analog = append(analog, opts.LineData{Value: row.AnalogGain})
		digital = append(digital, opts.LineData{Value: row.DigitalGain})
		lux = append(lux, opts.LineData{Value: row.EstimatedLux})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "3A Exposure Trace", Theme: "dark", Width: "1200px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "Exposure Convergence", Subtitle: fmt.Sprintf("session=%s points=%d", sessionID, len(rows))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
	)

	line.SetXAxis(frames).
		AddSeries("exposure (us)", exposure).
		AddSeries("analog gain", analog).
		AddSeries("digital gain", digital).
		AddSeries("estimated lux", lux)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleColorChart renders a line chart of the white-balance decisions
// (channel gains and estimated colour temperature) over one session.
func (s *Server) handleColorChart(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		s.writeJSONError(w, http.StatusServiceUnavailable, "decision store not configured")
		return
	}

	sessionID, rows, err := s.traceForRequest(r)
	if err != nil {
		s.writeJSONError(w, http.StatusNotFound, err.Error())
		return
	}
	if len(rows) == 0 {
		s.writeJSONError(w, http.StatusNotFound, "no decisions recorded for session")
		return
	}

	frames := make([]string, 0, len(rows))
	gainR := make([]opts.LineData, 0, len(rows))
	gainB := make([]opts.LineData, 0, len(rows))
	cct := make([]opts.LineData, 0, len(rows))
	for _, row := range rows {
		frames = append(frames, strconv.FormatInt(row.Frame, 10))
		gainR = append(gainR, opts.LineData{Value: row.GainR})
		gainB = append(gainB, opts.LineData{Value: row.GainB})
		cct = append(cct, opts.LineData{Value: row.CCT})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "3A Colour Trace", Theme: "dark", Width: "1200px", Height: "700px"}),
		charts.WithTitleOpts(opts.Title{Title: "White Balance", Subtitle: fmt.Sprintf("session=%s points=%d", sessionID, len(rows))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame"}),
	)

	line.SetXAxis(frames).
		AddSeries("gain R", gainR).
		AddSeries("gain B", gainB).
		AddSeries("CCT (K)", cct)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		s.writeJSONError(w, http.StatusInternalServerError, fmt.Sprintf("failed to render chart: %v", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
