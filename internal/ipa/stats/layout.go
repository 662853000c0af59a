package stats

import (
	"encoding/binary"
	"fmt"

	"github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"
)

// 3A statistics frame wire layout. The ISP writes one such buffer per
// captured frame; all multi-byte fields are little-endian.
//
// FRAME STRUCTURE (header + histogram + grid + focus):
//
//	├── Header (16 bytes)
//	│   ├── magic    uint32  0x54534133 ("3AST")
//	│   ├── version  uint16  currently 1
//	│   ├── flags    uint16  reserved, must be ignored by parsers
//	│   ├── sequence uint32  capture frame sequence number
//	│   ├── gridW    uint16  white-balance grid width in cells
//	│   └── gridH    uint16  white-balance grid height in cells
//	├── AE histogram (1024 bytes) - 256 luminance buckets × uint32
//	├── AWB grid (gridW × gridH × 8 bytes)
//	│   └── per cell: avgR uint16 + avgG uint16 + avgB uint16 +
//	│       saturation uint8 + pad uint8
//	└── AF section (8 bytes) - coarse uint32 + fine uint32 contrast sums
//
// Channel averages are raw sensor-scale values where 0xFFFF is full scale;
// saturation is the clipped-pixel fraction where 255 is fully clipped.
const (
	FrameMagic   = 0x54534133 // "3AST" read as little-endian uint32
	FrameVersion = 1

	HeaderSize    = 16
	HistogramSize = iaiq.HistogramBins * 4
	CellSize      = 8
	AFSize        = 8

	// Grid bounds accepted on the wire. These cap a frame at well under
	// 64 KiB regardless of what the header claims.
	MaxGridWidth  = 64
	MaxGridHeight = 48
)

// FrameSize returns the exact buffer size for a given grid geometry.
func FrameSize(gridW, gridH int) int {
	return HeaderSize + HistogramSize + gridW*gridH*CellSize + AFSize
}

// RawCell is one white-balance grid cell as delivered by the hardware.
type RawCell struct {
	R, G, B    uint16
	Saturation uint8
}

// RawStats is a parsed, still hardware-scaled statistics frame.
type RawStats struct {
	Sequence   uint32
	GridWidth  int
	GridHeight int
	Histogram  []uint32
	Cells      []RawCell
	AFCoarse   uint32
	AFFine     uint32
}

// PeekSequence extracts the capture sequence number from a frame header
// without parsing the body. The magic is still checked so that arbitrary
// traffic is not mistaken for a statistics frame.
func PeekSequence(data []byte) (uint32, error) {
	if len(data) < HeaderSize {
		return 0, fmt.Errorf("stats frame too short: %d bytes, need at least %d", len(data), HeaderSize)
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != FrameMagic {
		return 0, fmt.Errorf("invalid stats magic: got 0x%08X, want 0x%08X", magic, FrameMagic)
	}
	return binary.LittleEndian.Uint32(data[8:12]), nil
}

// ParseFrame validates and parses one raw statistics buffer.
//
// The buffer is borrowed for the duration of the call; the returned RawStats
// owns independent copies of everything it references.
func ParseFrame(data []byte) (*RawStats, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("stats frame too short: %d bytes, need at least %d", len(data), HeaderSize)
	}

	magic := binary.LittleEndian.Uint32(data[0:4])
	if magic != FrameMagic {
		return nil, fmt.Errorf("invalid stats magic: got 0x%08X, want 0x%08X", magic, FrameMagic)
	}

	version := binary.LittleEndian.Uint16(data[4:6])
	if version != FrameVersion {
		return nil, fmt.Errorf("unsupported stats version %d", version)
	}

	gridW := int(binary.LittleEndian.Uint16(data[12:14]))
	gridH := int(binary.LittleEndian.Uint16(data[14:16]))
	if gridW < 1 || gridW > MaxGridWidth || gridH < 1 || gridH > MaxGridHeight {
		return nil, fmt.Errorf("stats grid %dx%d out of range (max %dx%d)", gridW, gridH, MaxGridWidth, MaxGridHeight)
	}

	want := FrameSize(gridW, gridH)
	if len(data) != want {
		return nil, fmt.Errorf("stats frame size mismatch: got %d bytes, want %d for %dx%d grid", len(data), want, gridW, gridH)
	}

	raw := &RawStats{
		Sequence:   binary.LittleEndian.Uint32(data[8:12]),
		GridWidth:  gridW,
		GridHeight: gridH,
		Histogram:  make([]uint32, iaiq.HistogramBins),
		Cells:      make([]RawCell, gridW*gridH),
	}

	off := HeaderSize
	for i := range raw.Histogram {
		raw.Histogram[i] = binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
	}

	for i := range raw.Cells {
		raw.Cells[i] = RawCell{
			R:          binary.LittleEndian.Uint16(data[off : off+2]),
			G:          binary.LittleEndian.Uint16(data[off+2 : off+4]),
			B:          binary.LittleEndian.Uint16(data[off+4 : off+6]),
			Saturation: data[off+6],
		}
		off += CellSize
	}

	raw.AFCoarse = binary.LittleEndian.Uint32(data[off : off+4])
	raw.AFFine = binary.LittleEndian.Uint32(data[off+4 : off+8])

	return raw, nil
}

// MarshalFrame renders a RawStats back into the wire format. Used by the
// fixture generator and tests; the ISP never consumes this direction.
func MarshalFrame(raw *RawStats) ([]byte, error) {
	if raw.GridWidth < 1 || raw.GridWidth > MaxGridWidth ||
		raw.GridHeight < 1 || raw.GridHeight > MaxGridHeight {
		return nil, fmt.Errorf("stats grid %dx%d out of range", raw.GridWidth, raw.GridHeight)
	}
	if len(raw.Histogram) != iaiq.HistogramBins {
		return nil, fmt.Errorf("histogram has %d bins, want %d", len(raw.Histogram), iaiq.HistogramBins)
	}
	if len(raw.Cells) != raw.GridWidth*raw.GridHeight {
		return nil, fmt.Errorf("grid has %d cells, want %d", len(raw.Cells), raw.GridWidth*raw.GridHeight)
	}

	data := make([]byte, FrameSize(raw.GridWidth, raw.GridHeight))
	binary.LittleEndian.PutUint32(data[0:4], FrameMagic)
	binary.LittleEndian.PutUint16(data[4:6], FrameVersion)
	binary.LittleEndian.PutUint32(data[8:12], raw.Sequence)
	binary.LittleEndian.PutUint16(data[12:14], uint16(raw.GridWidth))
	binary.LittleEndian.PutUint16(data[14:16], uint16(raw.GridHeight))

	off := HeaderSize
	for _, v := range raw.Histogram {
		binary.LittleEndian.PutUint32(data[off:off+4], v)
		off += 4
	}
	for _, c := range raw.Cells {
		binary.LittleEndian.PutUint16(data[off:off+2], c.R)
		binary.LittleEndian.PutUint16(data[off+2:off+4], c.G)
		binary.LittleEndian.PutUint16(data[off+4:off+6], c.B)
		data[off+6] = c.Saturation
		off += CellSize
	}
	binary.LittleEndian.PutUint32(data[off:off+4], raw.AFCoarse)
	binary.LittleEndian.PutUint32(data[off+4:off+8], raw.AFFine)

	return data, nil
}
