package params

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"
)

// ISP parameter buffer wire layout, version 1. All multi-byte fields are
// little-endian; the buffer size is fixed regardless of which sections the
// use-flag word marks as valid.
//
//	├── Header (8 bytes)
//	│   ├── magic   uint32  0x42504133 ("3APB")
//	│   ├── version uint16  currently 1
//	│   └── use     uint16  section valid bits (UseExposure | UseAWB | ...)
//	├── Exposure (8 bytes)   - time uint32 µs + analog uint16 8.8 + digital uint16 8.8
//	├── White balance (10 bytes) - gains R/GR/GB/B uint16 4.12 + CCT uint16 K
//	├── Focus (6 bytes)      - lens position uint16 + flags uint16 + pad uint16
//	└── Tone curve (128 bytes) - 64 × uint16, 10-bit entries
const (
	BufferMagic   = 0x42504133 // "3APB" read as little-endian uint32
	BufferVersion = 1

	BufferSize = 8 + 8 + 10 + 6 + iaiq.ToneCurvePoints*2
)

// Section valid bits in the header use-flag word.
const (
	UseExposure uint16 = 1 << iota
	UseAWB
	UseToneCurve
	UseFocus
)

// Lens flag bits.
const (
	LensFlagMoved uint16 = 1 << iota
)

// Buffer is one firmware parameter buffer. The capture pipeline owns it and
// hands it to the encoder to be filled in place; it must stay valid for the
// whole Encode call and is never retained afterwards.
type Buffer struct {
	Data [BufferSize]byte
}

// Use returns the section valid bits, 0 for a never-encoded buffer.
func (b *Buffer) Use() uint16 {
	return binary.LittleEndian.Uint16(b.Data[6:8])
}

// Encode renders a tuning decision into the caller's buffer.
//
// The transform is deterministic: encoding the same decision twice produces
// identical bytes. Out-of-range values clamp to the representable range of
// their fixed-point fields; NaN clamps low. Encode retains no reference to
// either argument.
func Encode(d *iaiq.Decision, buf *Buffer) error {
	if d == nil || buf == nil {
		return fmt.Errorf("encode requires a decision and a buffer")
	}
	if n := len(d.ToneCurve); n != 0 && n != iaiq.ToneCurvePoints {
		return fmt.Errorf("tone curve has %d points, want 0 or %d", n, iaiq.ToneCurvePoints)
	}

	use := UseExposure | UseAWB | UseFocus
	if len(d.ToneCurve) == iaiq.ToneCurvePoints {
		use |= UseToneCurve
	}

	out := buf.Data[:]
	for i := range out {
		out[i] = 0
	}

	binary.LittleEndian.PutUint32(out[0:4], BufferMagic)
	binary.LittleEndian.PutUint16(out[4:6], BufferVersion)
	binary.LittleEndian.PutUint16(out[6:8], use)

	// Exposure section.
	binary.LittleEndian.PutUint32(out[8:12], d.ExposureUs)
	binary.LittleEndian.PutUint16(out[12:14], fixed88(d.AnalogGain))
	binary.LittleEndian.PutUint16(out[14:16], fixed88(d.DigitalGain))

	// White balance section. Green channels carry unity gain; the engine
	// expresses red and blue relative to green.
	binary.LittleEndian.PutUint16(out[16:18], fixed412(d.GainR))
	binary.LittleEndian.PutUint16(out[18:20], fixed412(1.0))
	binary.LittleEndian.PutUint16(out[20:22], fixed412(1.0))
	binary.LittleEndian.PutUint16(out[22:24], fixed412(d.GainB))
	binary.LittleEndian.PutUint16(out[24:26], clampU16(d.CCT))

	// Focus section.
	binary.LittleEndian.PutUint16(out[26:28], d.LensPosition)
	var lensFlags uint16
	if d.LensMoved {
		lensFlags |= LensFlagMoved
	}
	binary.LittleEndian.PutUint16(out[28:30], lensFlags)

	// Tone curve section.
	if use&UseToneCurve != 0 {
		off := 32
		for _, v := range d.ToneCurve {
			binary.LittleEndian.PutUint16(out[off:off+2], tone10(v))
			off += 2
		}
	}

	return nil
}

// fixed88 converts a gain to unsigned 8.8 fixed point.
func fixed88(v float64) uint16 {
	return quantize(v, 256, math.MaxUint16)
}

// fixed412 converts a gain to unsigned 4.12 fixed point.
func fixed412(v float64) uint16 {
	return quantize(v, 4096, math.MaxUint16)
}

// tone10 converts a [0,1] tone curve sample to a 10-bit LUT entry.
func tone10(v float64) uint16 {
	return quantize(v, 1023, 1023)
}

func quantize(v float64, scale, max float64) uint16 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	q := math.Round(v * scale)
	if q > max {
		return uint16(max)
	}
	return uint16(q)
}

func clampU16(v float64) uint16 {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	if v >= math.MaxUint16 {
		return math.MaxUint16
	}
	return uint16(math.Round(v))
}
