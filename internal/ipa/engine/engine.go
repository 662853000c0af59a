package engine

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"
	"github.com/gmykhailiuta/libcamera/internal/monitoring"
)

var logEngine = monitoring.Category("engine")

// Exposure program limits. The split between integration time and gains
// follows the usual priority: stretch exposure time first, then analog gain,
// then digital gain.
const (
	minExposureUs  = 100
	maxExposureUs  = 33000 // one 30fps frame
	maxAnalogGain  = 16.0
	maxDigitalGain = 4.0
)

// Engine is the reference tuning engine. It keeps smoothed scene aggregates
// between SetStatistics calls and renders them into a Decision on Run, so a
// Run without a fresh SetStatistics reuses the last absorbed scene state.
//
// Not safe for concurrent use; the owning session serialises calls.
type Engine struct {
	tuning Tuning
	closed bool

	// Scene aggregates from the last absorbed statistics.
	haveStats        bool
	sceneMean        float64 // mean luminance, [0,1]
	sceneUpper       float64 // 99th percentile luminance, [0,1]
	avgR, avgG, avgB float64

	// Converging control state.
	totalExposure float64 // exposure_us * total_gain currently commanded
	gainR, gainB  float64

	// Autofocus hill climb.
	lensPos       int
	lensStep      int
	lastSharpness float64
	focusSettled  bool
}

// New creates a reference engine from an engine configuration. The tuning
// blob is consumed during this call per the blob ownership contract; missing
// or malformed tuning degrades to built-in defaults rather than failing.
func New(cfg iaiq.EngineConfig) (iaiq.Engine, error) {
	tuning := DefaultTuning()
	if cfg.Tuning != nil && cfg.Tuning.Size() > 0 {
		if err := tuning.Parse(cfg.Tuning.Bytes()); err != nil {
			logEngine("tuning blob rejected, using defaults: %v", err)
			tuning = DefaultTuning()
		}
	}
	if cfg.NVM != nil && cfg.NVM.Size() > 0 {
		logEngine("sensor NVM present (%d bytes), per-unit shading not implemented yet", cfg.NVM.Size())
	}

	e := &Engine{
		tuning:        tuning,
		totalExposure: float64(tuning.StartExposureUs),
		gainR:         1.0,
		gainB:         1.0,
		lensPos:       tuning.LensStart,
		lensStep:      tuning.LensStep,
	}
	logEngine("reference engine created: target=%.3f gamma=%.2f", tuning.AeTarget, tuning.Gamma)
	return e, nil
}

// SetStatistics absorbs one frame of converted statistics into the scene
// aggregates. The stats structure is borrowed for this call only.
func (e *Engine) SetStatistics(stats *iaiq.Statistics) error {
	if e.closed {
		return &iaiq.EngineError{Op: "statistics_set", Code: iaiq.ErrGeneral}
	}
	if stats == nil || len(stats.Histogram) != iaiq.HistogramBins ||
		len(stats.Regions) != stats.GridWidth*stats.GridHeight || len(stats.Regions) == 0 {
		return &iaiq.EngineError{Op: "statistics_set", Code: iaiq.ErrArgument}
	}

	// Luminance aggregates from the histogram. Bin centres are normalised
	// to [0,1]; counts weight them.
	centres := make([]float64, len(stats.Histogram))
	weights := make([]float64, len(stats.Histogram))
	total := 0.0
	for i, c := range stats.Histogram {
		centres[i] = (float64(i) + 0.5) / float64(len(stats.Histogram))
		weights[i] = float64(c)
		total += float64(c)
	}
	if total == 0 {
		return &iaiq.EngineError{Op: "statistics_set", Code: iaiq.ErrData}
	}
	e.sceneMean = stat.Mean(centres, weights)
	e.sceneUpper = stat.Quantile(0.99, stat.Empirical, centres, weights)

	// Gray-world colour averages, skipping cells that mostly clipped.
	var sumR, sumG, sumB float64
	used := 0
	for _, r := range stats.Regions {
		if r.Saturation > e.tuning.SaturationSkip {
			continue
		}
		sumR += r.R
		sumG += r.G
		sumB += r.B
		used++
	}
	if used > 0 {
		e.avgR = sumR / float64(used)
		e.avgG = sumG / float64(used)
		e.avgB = sumB / float64(used)
	}

	// Contrast autofocus: climb while sharpness improves, reverse and
	// halve the step when it drops, settle when the step exhausts.
	sharpness := stats.SharpnessCoarse + stats.SharpnessFine
	if e.haveStats && !e.focusSettled {
		if sharpness < e.lastSharpness {
			e.lensStep = -e.lensStep / 2
			if e.lensStep == 0 {
				e.focusSettled = true
			}
		}
		e.lensPos += e.lensStep
		if e.lensPos < 0 {
			e.lensPos = 0
		}
		if e.lensPos > math.MaxUint16 {
			e.lensPos = math.MaxUint16
		}
	}
	e.lastSharpness = sharpness

	e.haveStats = true
	return nil
}

// Run renders the current scene state into a tuning decision.
func (e *Engine) Run(out *iaiq.Decision) error {
	if e.closed {
		return &iaiq.EngineError{Op: "run", Code: iaiq.ErrGeneral}
	}
	if out == nil {
		return &iaiq.EngineError{Op: "run", Code: iaiq.ErrArgument}
	}

	if e.haveStats {
		e.converge()
	}

	exposureUs, analog, digital := e.splitExposure()

	*out = iaiq.Decision{
		ExposureUs:   uint32(math.Round(exposureUs)),
		AnalogGain:   analog,
		DigitalGain:  digital,
		GainR:        e.gainR,
		GainB:        e.gainB,
		CCT:          estimateCCT(e.gainR, e.gainB),
		ToneCurve:    gammaCurve(e.tuning.Gamma),
		LensPosition: uint16(e.lensPos),
		LensMoved:    !e.focusSettled && e.haveStats,
		EstimatedLux: e.estimateLux(),
	}
	return nil
}

// Close releases the engine. Idempotent.
func (e *Engine) Close() error {
	if !e.closed {
		e.closed = true
		logEngine("reference engine destroyed")
	}
	return nil
}

// converge moves the control state one smoothing step toward the measured
// scene, bounded by the tuned loop speeds.
func (e *Engine) converge() {
	// Exposure: multiplicative error toward the mean target, softened by
	// the loop speed, with highlight protection against the upper
	// percentile clipping.
	mean := e.sceneMean
	if mean < 1e-6 {
		mean = 1e-6
	}
	errRatio := e.tuning.AeTarget / mean
	if e.sceneUpper > e.tuning.HighlightLimit && errRatio > 1 {
		errRatio = 1
	}
	step := math.Pow(errRatio, e.tuning.AeSpeed)
	e.totalExposure *= step

	maxTotal := float64(maxExposureUs) * maxAnalogGain * maxDigitalGain
	if e.totalExposure < minExposureUs {
		e.totalExposure = minExposureUs
	}
	if e.totalExposure > maxTotal {
		e.totalExposure = maxTotal
	}

	// White balance: gray-world gains relative to green, smoothed.
	if e.avgR > 1e-6 && e.avgB > 1e-6 && e.avgG > 1e-6 {
		targetR := clampGain(e.avgG / e.avgR)
		targetB := clampGain(e.avgG / e.avgB)
		s := e.tuning.AwbSpeed
		e.gainR += (targetR - e.gainR) * s
		e.gainB += (targetB - e.gainB) * s
	}
}

// splitExposure factors the commanded total exposure into integration time,
// analog gain and digital gain.
func (e *Engine) splitExposure() (exposureUs, analog, digital float64) {
	exposureUs = e.totalExposure
	analog, digital = 1.0, 1.0

	if exposureUs > maxExposureUs {
		analog = exposureUs / maxExposureUs
		exposureUs = maxExposureUs
	}
	if analog > maxAnalogGain {
		digital = analog / maxAnalogGain
		analog = maxAnalogGain
	}
	if digital > maxDigitalGain {
		digital = maxDigitalGain
	}
	if exposureUs < minExposureUs {
		exposureUs = minExposureUs
	}
	return exposureUs, analog, digital
}

// estimateLux derives a coarse scene brightness figure from the scene mean
// and the exposure needed to reach it. Diagnostic only.
func (e *Engine) estimateLux() float64 {
	if !e.haveStats || e.totalExposure <= 0 {
		return 0
	}
	// Reference: a 1000 lux scene meters at target with 10ms total exposure.
	return 1000 * (e.sceneMean / e.tuning.AeTarget) * (10000 / e.totalExposure)
}

func clampGain(g float64) float64 {
	if g < 0.25 {
		return 0.25
	}
	if g > 8.0 {
		return 8.0
	}
	return g
}

// estimateCCT maps the red/blue gain balance onto a correlated colour
// temperature between the tungsten and shade anchor points.
func estimateCCT(gainR, gainB float64) float64 {
	// gainR > gainB means a blue-rich (cool) scene needing red boost.
	ratio := gainR / gainB
	cct := 4500 * math.Pow(ratio, 0.8)
	if cct < 2500 {
		cct = 2500
	}
	if cct > 8500 {
		cct = 8500
	}
	return cct
}

// gammaCurve samples the pure gamma mapping into a tone curve LUT.
func gammaCurve(gamma float64) []float64 {
	lut := make([]float64, iaiq.ToneCurvePoints)
	inv := 1.0 / gamma
	for i := range lut {
		x := float64(i) / float64(len(lut)-1)
		lut[i] = math.Pow(x, inv)
	}
	return lut
}
