package pipeline

import (
	"fmt"
	"sync"
	"time"

	"github.com/gmykhailiuta/libcamera/internal/monitoring"
)

var logf = monitoring.Category("pipeline")

// FrameStats tracks statistics-frame traffic with thread-safe operations
type FrameStats struct {
	mu            sync.Mutex
	packetCount   int64
	byteCount     int64
	rejectedCount int64
	decisionCount int64
	lastReset     time.Time
}

// NewFrameStats creates a new FrameStats instance
func NewFrameStats() *FrameStats {
	return &FrameStats{
		lastReset: time.Now(),
	}
}

// AddPacket increments packet count and byte count
func (fs *FrameStats) AddPacket(bytes int) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.packetCount++
	fs.byteCount += int64(bytes)
}

// AddRejected increments the count of frames the parser refused
func (fs *FrameStats) AddRejected() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.rejectedCount++
}

// AddDecision increments the count of encoded parameter buffers
func (fs *FrameStats) AddDecision() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.decisionCount++
}

// GetAndReset returns current stats and resets counters
func (fs *FrameStats) GetAndReset() (packets, bytes, rejected, decisions int64, duration time.Duration) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	now := time.Now()
	duration = now.Sub(fs.lastReset)
	packets = fs.packetCount
	bytes = fs.byteCount
	rejected = fs.rejectedCount
	decisions = fs.decisionCount

	fs.packetCount = 0
	fs.byteCount = 0
	fs.rejectedCount = 0
	fs.decisionCount = 0
	fs.lastReset = now

	return
}

// LogStats logs formatted statistics since the last reset
func (fs *FrameStats) LogStats() {
	packets, bytes, rejected, decisions, duration := fs.GetAndReset()
	if packets == 0 && rejected == 0 {
		return
	}

	framesPerSec := float64(packets) / duration.Seconds()
	kbPerSec := float64(bytes) / duration.Seconds() / 1024

	logMsg := fmt.Sprintf("3A stats (/sec): %.1f frames, %.1f KB, %.1f decisions",
		framesPerSec, kbPerSec, float64(decisions)/duration.Seconds())
	if rejected > 0 {
		logMsg += fmt.Sprintf(", %d rejected", rejected)
	}

	logf("%s", logMsg)
}
