package stats

import (
	"math"
	"testing"

	"github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"
)

func TestAdapterConvert(t *testing.T) {
	raw := testFrame(99, 2, 2)
	raw.Cells[0] = RawCell{R: 0xFFFF, G: 0x8000, B: 0, Saturation: 255}

	got := Adapter{}.Convert(raw)

	if got.FrameSequence != 99 {
		t.Errorf("FrameSequence = %d, want 99", got.FrameSequence)
	}
	if got.GridWidth != 2 || got.GridHeight != 2 {
		t.Errorf("grid = %dx%d, want 2x2", got.GridWidth, got.GridHeight)
	}
	if len(got.Regions) != 4 {
		t.Fatalf("got %d regions, want 4", len(got.Regions))
	}

	r0 := got.Regions[0]
	if r0.R != 1.0 {
		t.Errorf("full-scale red = %f, want 1.0", r0.R)
	}
	if math.Abs(r0.G-0.5) > 0.001 {
		t.Errorf("half-scale green = %f, want ~0.5", r0.G)
	}
	if r0.B != 0 {
		t.Errorf("zero blue = %f, want 0", r0.B)
	}
	if r0.Saturation != 1.0 {
		t.Errorf("saturation = %f, want 1.0", r0.Saturation)
	}

	if len(got.Histogram) != iaiq.HistogramBins {
		t.Fatalf("histogram has %d bins, want %d", len(got.Histogram), iaiq.HistogramBins)
	}
	if got.SharpnessCoarse != 9000 || got.SharpnessFine != 4500 {
		t.Errorf("sharpness = %f/%f, want 9000/4500", got.SharpnessCoarse, got.SharpnessFine)
	}
}

func TestAdapterConvertDoesNotRetain(t *testing.T) {
	raw := testFrame(1, 2, 2)
	got := Adapter{}.Convert(raw)

	raw.Histogram[0] = 0xFFFF
	raw.Cells[0].R = 0xFFFF

	if got.Histogram[0] == 0xFFFF {
		t.Error("converted histogram aliases the raw frame")
	}
	if got.Regions[0].R == 1.0 {
		t.Error("converted regions alias the raw frame")
	}
}
