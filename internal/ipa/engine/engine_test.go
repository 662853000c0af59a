package engine

import (
	"errors"
	"math"
	"os"
	"testing"

	"github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"
	"github.com/gmykhailiuta/libcamera/internal/monitoring"
)

func TestMain(m *testing.M) {
	monitoring.SetLogger(nil)
	os.Exit(m.Run())
}

// flatStats builds statistics for a uniform scene at the given luminance.
func flatStats(seq uint32, level float64) *iaiq.Statistics {
	hist := make([]uint32, iaiq.HistogramBins)
	bin := int(level * float64(iaiq.HistogramBins-1))
	hist[bin] = 10000

	regions := make([]iaiq.RegionAverage, 16)
	for i := range regions {
		regions[i] = iaiq.RegionAverage{R: level, G: level, B: level}
	}
	return &iaiq.Statistics{
		FrameSequence:   seq,
		GridWidth:       4,
		GridHeight:      4,
		Regions:         regions,
		Histogram:       hist,
		SharpnessCoarse: 1000,
		SharpnessFine:   500,
	}
}

func newTestEngine(t *testing.T) iaiq.Engine {
	t.Helper()
	e, err := New(iaiq.EngineConfig{
		MaxGridWidth:  iaiq.MaxStatsWidth,
		MaxGridHeight: iaiq.MaxStatsHeight,
		MaxInFlight:   iaiq.MaxStatsInFlight,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return e
}

func TestRunWithoutStatistics(t *testing.T) {
	e := newTestEngine(t)
	defer e.Close()

	// Freshness contract: Run without any SetStatistics still yields a
	// usable default decision.
	var d iaiq.Decision
	if err := e.Run(&d); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if d.ExposureUs == 0 {
		t.Error("default decision has zero exposure")
	}
	if d.GainR != 1.0 || d.GainB != 1.0 {
		t.Errorf("default gains = %f/%f, want unity", d.GainR, d.GainB)
	}
	if len(d.ToneCurve) != iaiq.ToneCurvePoints {
		t.Errorf("tone curve has %d points, want %d", len(d.ToneCurve), iaiq.ToneCurvePoints)
	}
}

func TestExposureConvergesTowardTarget(t *testing.T) {
	e := newTestEngine(t)
	defer e.Close()

	// Dark scene: exposure must grow frame over frame.
	var prev uint32
	for frame := uint32(0); frame < 10; frame++ {
		if err := e.SetStatistics(flatStats(frame, 0.05)); err != nil {
			t.Fatalf("SetStatistics failed: %v", err)
		}
		var d iaiq.Decision
		if err := e.Run(&d); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if frame > 0 && d.ExposureUs*uint32(d.AnalogGain) < prev {
			t.Fatalf("frame %d: exposure shrank on a dark scene", frame)
		}
		prev = d.ExposureUs * uint32(d.AnalogGain)
	}

	// Bright scene: exposure must come back down.
	var first, last uint32
	for frame := uint32(10); frame < 30; frame++ {
		if err := e.SetStatistics(flatStats(frame, 0.9)); err != nil {
			t.Fatalf("SetStatistics failed: %v", err)
		}
		var d iaiq.Decision
		if err := e.Run(&d); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		if frame == 10 {
			first = d.ExposureUs
		}
		last = d.ExposureUs
	}
	if last >= first {
		t.Errorf("exposure did not decrease on a bright scene: first=%d last=%d", first, last)
	}
}

func TestGrayWorldGains(t *testing.T) {
	e := newTestEngine(t)
	defer e.Close()

	// Blue-heavy scene: red gain must rise above blue gain.
	stats := flatStats(0, 0.3)
	for i := range stats.Regions {
		stats.Regions[i] = iaiq.RegionAverage{R: 0.2, G: 0.3, B: 0.5}
	}
	for frame := uint32(0); frame < 20; frame++ {
		stats.FrameSequence = frame
		if err := e.SetStatistics(stats); err != nil {
			t.Fatalf("SetStatistics failed: %v", err)
		}
		var d iaiq.Decision
		if err := e.Run(&d); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
	}

	var d iaiq.Decision
	if err := e.Run(&d); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if d.GainR <= d.GainB {
		t.Errorf("blue-heavy scene: GainR=%f should exceed GainB=%f", d.GainR, d.GainB)
	}
	if d.CCT < 2500 || d.CCT > 8500 {
		t.Errorf("CCT %f outside plausible range", d.CCT)
	}
}

func TestSetStatisticsRejectsBadInput(t *testing.T) {
	e := newTestEngine(t)
	defer e.Close()

	var engErr *iaiq.EngineError
	err := e.SetStatistics(nil)
	if !errors.As(err, &engErr) || engErr.Code != iaiq.ErrArgument {
		t.Errorf("nil stats: got %v, want ErrArgument engine error", err)
	}

	bad := flatStats(0, 0.2)
	bad.Regions = bad.Regions[:3] // grid says 16
	err = e.SetStatistics(bad)
	if !errors.As(err, &engErr) || engErr.Code != iaiq.ErrArgument {
		t.Errorf("mismatched grid: got %v, want ErrArgument engine error", err)
	}

	empty := flatStats(0, 0.2)
	for i := range empty.Histogram {
		empty.Histogram[i] = 0
	}
	err = e.SetStatistics(empty)
	if !errors.As(err, &engErr) || engErr.Code != iaiq.ErrData {
		t.Errorf("empty histogram: got %v, want ErrData engine error", err)
	}
}

func TestRuntimeErrorIsIsolated(t *testing.T) {
	e := newTestEngine(t)
	defer e.Close()

	if err := e.SetStatistics(nil); err == nil {
		t.Fatal("expected an engine error")
	}

	// The next frame proceeds normally.
	if err := e.SetStatistics(flatStats(1, 0.2)); err != nil {
		t.Fatalf("engine did not recover from a bad frame: %v", err)
	}
	var d iaiq.Decision
	if err := e.Run(&d); err != nil {
		t.Fatalf("Run after recovery failed: %v", err)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := e.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}

	if err := e.SetStatistics(flatStats(0, 0.2)); err == nil {
		t.Error("SetStatistics after Close should fail")
	}
	var d iaiq.Decision
	if err := e.Run(&d); err == nil {
		t.Error("Run after Close should fail")
	}
}

func TestToneCurveIsMonotonic(t *testing.T) {
	lut := gammaCurve(2.2)
	for i := 1; i < len(lut); i++ {
		if lut[i] < lut[i-1] {
			t.Fatalf("tone curve not monotonic at %d", i)
		}
	}
	if lut[0] != 0 || math.Abs(lut[len(lut)-1]-1) > 1e-9 {
		t.Errorf("tone curve endpoints = %f..%f, want 0..1", lut[0], lut[len(lut)-1])
	}
}
