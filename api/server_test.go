package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gmykhailiuta/libcamera/internal/ipa/aiq"
	"github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"
	"github.com/gmykhailiuta/libcamera/internal/ipadb"
	"github.com/gmykhailiuta/libcamera/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

type fixedEngine struct{}

func (fixedEngine) SetStatistics(st *iaiq.Statistics) error { return nil }
func (fixedEngine) Run(out *iaiq.Decision) error {
	*out = iaiq.Decision{ExposureUs: 10000, AnalogGain: 1, DigitalGain: 1, GainR: 1, GainB: 1}
	return nil
}
func (fixedEngine) Close() error { return nil }

func testDB(t *testing.T) *ipadb.DB {
	t.Helper()
	db, err := ipadb.New(filepath.Join(t.TempDir(), "api_test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testServer(t *testing.T, db *ipadb.DB) *Server {
	t.Helper()
	session := aiq.New(aiq.Config{
		NewEngine: func(cfg iaiq.EngineConfig) (iaiq.Engine, error) {
			return fixedEngine{}, nil
		},
	})
	if err := session.Init(); err != nil {
		t.Fatalf("session init failed: %v", err)
	}
	t.Cleanup(func() { session.Close() })

	return NewServer(ServerConfig{Address: ":0", Session: session, DB: db})
}

func seedDecisions(t *testing.T, db *ipadb.DB, n int) string {
	t.Helper()
	sessionID, err := db.BeginSession(false)
	if err != nil {
		t.Fatalf("BeginSession failed: %v", err)
	}
	for i := 0; i < n; i++ {
		dec := &iaiq.Decision{
			ExposureUs:   uint32(1000 + i*500),
			AnalogGain:   1.0 + float64(i)*0.1,
			DigitalGain:  1.0,
			GainR:        1.4,
			GainB:        1.2,
			CCT:          5200,
			EstimatedLux: 300,
		}
		if err := db.RecordDecision(sessionID, int64(i), int64(i+4), dec); err != nil {
			t.Fatalf("RecordDecision failed: %v", err)
		}
	}
	return sessionID
}

func TestHealthHandler(t *testing.T) {
	server := testServer(t, testDB(t))

	rec := httptest.NewRecorder()
	server.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("health returned %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status": "ok"`) {
		t.Errorf("unexpected health body: %s", rec.Body.String())
	}
}

func TestStatusHandler(t *testing.T) {
	db := testDB(t)
	sessionID := seedDecisions(t, db, 1)
	server := testServer(t, db)

	rec := httptest.NewRecorder()
	server.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/3a/status", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status returned %d, want 200", rec.Code)
	}

	var status map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("status body is not JSON: %v", err)
	}
	if status["state"] != "initialized" {
		t.Errorf("state = %v, want initialized", status["state"])
	}
	if status["degraded"] != false {
		t.Errorf("degraded = %v, want false", status["degraded"])
	}
	if status["session_id"] != sessionID {
		t.Errorf("session_id = %v, want %s", status["session_id"], sessionID)
	}
}

func TestStatusRejectsPost(t *testing.T) {
	server := testServer(t, testDB(t))

	rec := httptest.NewRecorder()
	server.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/3a/status", nil))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST status returned %d, want 405", rec.Code)
	}
}

func TestDecisionsHandler(t *testing.T) {
	db := testDB(t)
	seedDecisions(t, db, 5)
	server := testServer(t, db)

	rec := httptest.NewRecorder()
	server.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/3a/decisions?limit=3", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("decisions returned %d, want 200", rec.Code)
	}

	var rows []ipadb.DecisionRow
	if err := json.Unmarshal(rec.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decisions body is not JSON: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d decisions, want 3", len(rows))
	}
	// Newest first
	if rows[0].Frame != 4 {
		t.Errorf("first row frame = %d, want 4", rows[0].Frame)
	}
}

func TestExposureChartRendersHTML(t *testing.T) {
	db := testDB(t)
	seedDecisions(t, db, 20)
	server := testServer(t, db)

	rec := httptest.NewRecorder()
	server.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/3a/exposure-chart", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("exposure chart returned %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(rec.Body.String(), "echarts") {
		t.Errorf("chart body does not embed echarts")
	}
}

func TestColorChartEmptyStore(t *testing.T) {
	server := testServer(t, testDB(t))

	rec := httptest.NewRecorder()
	server.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/debug/3a/color-chart", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("color chart on empty store returned %d, want 404", rec.Code)
	}
}
