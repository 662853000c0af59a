package stats

import "github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"

// channel average full scale on the wire
const fullScale = 0xFFFF

// Adapter converts parsed hardware statistics into the engine-native input
// structure. It is stateless and safe to share; Convert borrows its input
// for the duration of the call only.
type Adapter struct{}

// Convert normalises a RawStats frame into iaiq.Statistics.
//
// Channel averages scale to [0,1] against sensor full scale, saturation to a
// [0,1] clipped fraction, and the focus filter sums to floating point. The
// result owns all of its memory.
func (Adapter) Convert(raw *RawStats) *iaiq.Statistics {
	out := &iaiq.Statistics{
		FrameSequence: raw.Sequence,
		GridWidth:     raw.GridWidth,
		GridHeight:    raw.GridHeight,
		Regions:       make([]iaiq.RegionAverage, len(raw.Cells)),
		Histogram:     make([]uint32, len(raw.Histogram)),

		SharpnessCoarse: float64(raw.AFCoarse),
		SharpnessFine:   float64(raw.AFFine),
	}

	for i, c := range raw.Cells {
		out.Regions[i] = iaiq.RegionAverage{
			R:          float64(c.R) / fullScale,
			G:          float64(c.G) / fullScale,
			B:          float64(c.B) / fullScale,
			Saturation: float64(c.Saturation) / 255,
		}
	}
	copy(out.Histogram, raw.Histogram)

	return out
}
