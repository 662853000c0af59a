// Command gen-stats generates synthetic 3A statistics frames for testing
// the control loop, either sent over UDP or written to files.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"
	"github.com/gmykhailiuta/libcamera/internal/ipa/stats"
)

func main() {
	addr := flag.String("addr", "127.0.0.1:9020", "UDP address to send frames to")
	frames := flag.Int("n", 100, "number of frames")
	rate := flag.Float64("rate", 30, "frames per second")
	gridW := flag.Int("grid-w", 16, "statistics grid width in cells")
	gridH := flag.Int("grid-h", 12, "statistics grid height in cells")
	brightness := flag.Float64("brightness", 0.5, "scene brightness, 0..1")
	outDir := flag.String("o", "", "write frames to this directory instead of sending")
	flag.Parse()

	interval := time.Duration(float64(time.Second) / *rate)

	var conn net.Conn
	if *outDir == "" {
		var err error
		conn, err = net.Dial("udp", *addr)
		if err != nil {
			log.Fatalf("failed to dial %s: %v", *addr, err)
		}
		defer conn.Close()
	}

	for i := 0; i < *frames; i++ {
		data, err := stats.MarshalFrame(buildFrame(uint32(i), *gridW, *gridH, *brightness))
		if err != nil {
			log.Fatalf("failed to marshal frame %d: %v", i, err)
		}

		if *outDir != "" {
			path := filepath.Join(*outDir, fmt.Sprintf("stats_%06d.bin", i))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				log.Fatalf("failed to write %s: %v", path, err)
			}
		} else {
			if _, err := conn.Write(data); err != nil {
				log.Fatalf("failed to send frame %d: %v", i, err)
			}
			time.Sleep(interval)
		}

		if (i+1)%30 == 0 {
			log.Printf("%d/%d frames", i+1, *frames)
		}
	}
	log.Printf("✓ Generated %d frames", *frames)
}

// buildFrame synthesises one statistics frame for a flat scene of the
// given brightness with a mild blue cast, so the loop has both exposure
// and white balance work to do.
func buildFrame(seq uint32, gridW, gridH int, brightness float64) *stats.RawStats {
	raw := &stats.RawStats{
		Sequence:   seq,
		GridWidth:  gridW,
		GridHeight: gridH,
		Histogram:  make([]uint32, iaiq.HistogramBins),
		Cells:      make([]stats.RawCell, gridW*gridH),
	}

	// Gaussian-ish histogram centred on the brightness bin
	centre := brightness * float64(iaiq.HistogramBins-1)
	for i := range raw.Histogram {
		d := (float64(i) - centre) / 16.0
		raw.Histogram[i] = uint32(1000 * math.Exp(-d*d/2))
	}

	g := uint16(brightness * 0xFFFF)
	for i := range raw.Cells {
		raw.Cells[i] = stats.RawCell{
			R: uint16(float64(g) * 0.7),
			G: g,
			B: uint16(float64(g) * 0.9),
		}
	}

	raw.AFCoarse = 50000 + seq*100
	raw.AFFine = 5000 + seq*10
	return raw
}
