package iaiq

// Engine geometry limits, fixed at engine creation. They bound the statistics
// the engine will accept for the lifetime of the handle; per-frame input may
// be smaller but never larger.
const (
	MaxStatsWidth    = 1920
	MaxStatsHeight   = 1080
	MaxStatsInFlight = 4

	// HistogramBins is the number of luminance histogram buckets delivered
	// per frame by the statistics hardware.
	HistogramBins = 256

	// ToneCurvePoints is the number of tone curve samples an engine
	// produces per decision.
	ToneCurvePoints = 64
)

// RegionAverage holds the white-balance averages for one statistics grid
// cell, normalised to [0,1].
type RegionAverage struct {
	R, G, B float64

	// Saturation is the fraction of pixels in the cell that clipped.
	Saturation float64
}

// Statistics is the engine-native statistics input for one frame.
//
// It is borrowed by Engine.SetStatistics for the duration of the call only;
// an engine keeps aggregates, never the structure itself.
type Statistics struct {
	FrameSequence uint32

	// Grid of RegionAverage cells, row-major, GridWidth*GridHeight long.
	GridWidth  int
	GridHeight int
	Regions    []RegionAverage

	// Luminance histogram, HistogramBins buckets.
	Histogram []uint32

	// Contrast figures from the focus filter pair.
	SharpnessCoarse float64
	SharpnessFine   float64
}

// Decision is the tuning output of one engine run: the exposure, white
// balance, tone and focus configuration to apply to a future frame.
type Decision struct {
	// Exposure.
	ExposureUs  uint32  // integration time in microseconds
	AnalogGain  float64 // sensor analog gain, >= 1.0
	DigitalGain float64 // ISP digital gain, >= 1.0

	// White balance gains relative to green, and the estimated correlated
	// colour temperature in kelvin.
	GainR float64
	GainB float64
	CCT   float64

	// Tone curve, ToneCurvePoints samples of a [0,1] -> [0,1] mapping.
	ToneCurve []float64

	// Focus.
	LensPosition uint16
	LensMoved    bool

	// EstimatedLux is a diagnostic scene brightness estimate.
	EstimatedLux float64
}
