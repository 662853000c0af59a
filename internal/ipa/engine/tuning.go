package engine

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Tuning holds the reference engine's algorithm constants. A sensor tuning
// blob overrides the defaults; the vendor blob format is engine-defined, and
// for this engine it is plain "key = value" lines with '#' comments.
type Tuning struct {
	AeTarget        float64 // metered mean luminance target, [0,1]
	AeSpeed         float64 // exposure loop speed, (0,1]
	HighlightLimit  float64 // upper-percentile luminance that blocks brightening
	Gamma           float64 // tone curve gamma
	AwbSpeed        float64 // white balance loop speed, (0,1]
	SaturationSkip  float64 // cell clipped fraction above which AWB skips it
	StartExposureUs int     // initial commanded total exposure
	LensStart       int     // initial lens position
	LensStep        int     // initial focus hill-climb step
}

// DefaultTuning returns the built-in constants used when no tuning blob is
// available (degraded bring-up mode).
func DefaultTuning() Tuning {
	return Tuning{
		AeTarget:        0.18,
		AeSpeed:         0.5,
		HighlightLimit:  0.95,
		Gamma:           2.2,
		AwbSpeed:        0.4,
		SaturationSkip:  0.5,
		StartExposureUs: 10000,
		LensStart:       200,
		LensStep:        64,
	}
}

// Parse overrides t from a tuning blob. Unknown keys are ignored so newer
// blobs load on older engines; malformed lines fail the whole parse and the
// caller falls back to defaults.
func (t *Tuning) Parse(blob []byte) error {
	sc := bufio.NewScanner(bytes.NewReader(blob))
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}

		key, value, ok := strings.Cut(text, "=")
		if !ok {
			return fmt.Errorf("tuning line %d: no '=' in %q", line, text)
		}
		key = strings.TrimSpace(key)
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Errorf("tuning line %d: bad value for %s: %v", line, key, err)
		}

		switch key {
		case "ae_target":
			t.AeTarget = v
		case "ae_speed":
			t.AeSpeed = v
		case "highlight_limit":
			t.HighlightLimit = v
		case "gamma":
			t.Gamma = v
		case "awb_speed":
			t.AwbSpeed = v
		case "saturation_skip":
			t.SaturationSkip = v
		case "start_exposure_us":
			t.StartExposureUs = int(v)
		case "lens_start":
			t.LensStart = int(v)
		case "lens_step":
			t.LensStep = int(v)
		default:
			// Unknown key: ignore.
		}
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("tuning blob read: %w", err)
	}
	return t.validate()
}

func (t *Tuning) validate() error {
	if t.AeTarget <= 0 || t.AeTarget >= 1 {
		return fmt.Errorf("ae_target %f out of (0,1)", t.AeTarget)
	}
	if t.AeSpeed <= 0 || t.AeSpeed > 1 {
		return fmt.Errorf("ae_speed %f out of (0,1]", t.AeSpeed)
	}
	if t.AwbSpeed <= 0 || t.AwbSpeed > 1 {
		return fmt.Errorf("awb_speed %f out of (0,1]", t.AwbSpeed)
	}
	if t.Gamma < 1 || t.Gamma > 4 {
		return fmt.Errorf("gamma %f out of [1,4]", t.Gamma)
	}
	if t.StartExposureUs < minExposureUs {
		return fmt.Errorf("start_exposure_us %d below minimum %d", t.StartExposureUs, minExposureUs)
	}
	return nil
}
