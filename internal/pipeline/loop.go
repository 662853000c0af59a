package pipeline

import (
	"fmt"

	"github.com/gmykhailiuta/libcamera/internal/ipa/aiq"
	"github.com/gmykhailiuta/libcamera/internal/ipa/params"
	"github.com/gmykhailiuta/libcamera/internal/ipa/stats"
)

// ParameterSink receives the encoded parameter buffer for a frame. The
// frame argument is the capture sequence the parameters will take effect
// on, already offset by the pipeline depth.
type ParameterSink func(frame uint32, buf *params.Buffer)

// Loop drives one 3A session from a stream of statistics frames. Each
// frame is absorbed by the session, the algorithms run, and the encoded
// parameter buffer is handed to the sink tagged with the future frame it
// will reach the sensor on.
type Loop struct {
	session *aiq.AIQ
	depth   uint32
	sink    ParameterSink
	stats   *FrameStats
}

// LoopConfig contains configuration options for the frame loop
type LoopConfig struct {
	Session *aiq.AIQ
	// Depth is the number of frames between the capture a statistics
	// buffer describes and the earliest capture its parameters can
	// influence.
	Depth int
	Sink  ParameterSink
	Stats *FrameStats
}

// NewLoop creates a frame loop around an initialised session
func NewLoop(config LoopConfig) *Loop {
	fs := config.Stats
	if fs == nil {
		fs = NewFrameStats()
	}
	return &Loop{
		session: config.Session,
		depth:   uint32(config.Depth),
		sink:    config.Sink,
		stats:   fs,
	}
}

// Stats returns the traffic counters shared with the receive path.
func (lp *Loop) Stats() *FrameStats { return lp.stats }

// HandleFrame processes a single raw statistics buffer.
//
// A failure on one frame never poisons the next: the error is returned
// for logging and the loop simply waits for fresh statistics.
func (lp *Loop) HandleFrame(payload []byte) error {
	lp.stats.AddPacket(len(payload))

	seq, err := stats.PeekSequence(payload)
	if err != nil {
		lp.stats.AddRejected()
		return err
	}

	if err := lp.session.SetStatistics(seq, payload); err != nil {
		lp.stats.AddRejected()
		return fmt.Errorf("frame %d statistics rejected: %w", seq, err)
	}

	var buf params.Buffer
	if err := lp.session.Run(seq, &buf); err != nil {
		return fmt.Errorf("frame %d run failed: %w", seq, err)
	}
	lp.stats.AddDecision()

	if lp.sink != nil {
		lp.sink(seq+lp.depth, &buf)
	}
	return nil
}
