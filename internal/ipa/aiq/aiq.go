// Package aiq owns the per-session 3A control orchestration: it brings the
// tuning engine up with calibration data, feeds it converted statistics
// every frame, and renders its decisions into ISP parameter buffers.
package aiq

import (
	"errors"
	"fmt"

	"github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"
	"github.com/gmykhailiuta/libcamera/internal/ipa/params"
	"github.com/gmykhailiuta/libcamera/internal/ipa/stats"
	"github.com/gmykhailiuta/libcamera/internal/monitoring"
)

var logAiq = monitoring.Category("aiq")

// Session lifecycle errors. Per-frame calls in the wrong state return one of
// these; they never panic.
var (
	ErrNotInitialized     = errors.New("aiq session not initialized")
	ErrAlreadyInitialized = errors.New("aiq session already initialized")
	ErrSessionFailed      = errors.New("aiq session is in the failed state")
	ErrSessionClosed      = errors.New("aiq session closed")
)

// State is the session lifecycle state.
type State int

const (
	StateUninitialized State = iota
	StateInitialized
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateInitialized:
		return "initialized"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config configures one AIQ session.
//
// The three calibration paths follow the best-effort policy: an empty path
// skips the blob, a missing or unreadable file logs and continues. NewEngine
// is the only mandatory field.
type Config struct {
	// Calibration resources handed to the engine at creation.
	TuningPath string // sensor tuning data (aiqb)
	NVMPath    string // per-unit sensor non-volatile memory
	AIQDPath   string // persisted algorithm state from a previous session

	// NewEngine creates the tuning engine. Swapping the factory swaps the
	// engine; nothing else in the session changes.
	NewEngine iaiq.EngineFactory

	// Statistics geometry bounds for the engine. Zero values take the
	// iaiq package limits.
	MaxGridWidth  int
	MaxGridHeight int
	MaxInFlight   int

	// OnDecision, when set, observes every decision Run successfully
	// encoded. The decision is borrowed for the duration of the callback.
	OnDecision func(frame uint32, d *iaiq.Decision)
}

// AIQ is one algorithm engine session. It is created per camera session,
// initialised exactly once, driven per frame, and closed when the camera
// session ends.
//
// An AIQ is not safe for concurrent use: the capture pipeline serialises
// Init, Configure, SetStatistics, Run and Close.
type AIQ struct {
	cfg     Config
	state   State
	engine  iaiq.Engine
	adapter stats.Adapter

	// frameCount counts statistics frames absorbed this session.
	frameCount uint64

	// degraded is set when any calibration blob failed to load.
	degraded bool
}

// New creates a session in the uninitialized state. No resources are
// acquired until Init.
func New(cfg Config) *AIQ {
	if cfg.MaxGridWidth == 0 {
		cfg.MaxGridWidth = iaiq.MaxStatsWidth
	}
	if cfg.MaxGridHeight == 0 {
		cfg.MaxGridHeight = iaiq.MaxStatsHeight
	}
	if cfg.MaxInFlight == 0 {
		cfg.MaxInFlight = iaiq.MaxStatsInFlight
	}
	return &AIQ{cfg: cfg}
}

// State reports the session lifecycle state.
func (a *AIQ) State() State { return a.state }

// Degraded reports whether the session came up without at least one
// calibration blob.
func (a *AIQ) Degraded() bool { return a.degraded }

// FrameCount reports how many statistics frames this session has absorbed.
func (a *AIQ) FrameCount() uint64 { return a.frameCount }

// Init loads calibration data and creates the tuning engine.
//
// The engine is expensive to create, so Init runs exactly once per session:
// a second call is an error, not a re-init. Calibration load failures are
// recoverable (logged, session continues degraded); an engine creation
// failure is fatal and moves the session to the failed state, after which
// only Close is accepted.
func (a *AIQ) Init() error {
	switch a.state {
	case StateInitialized:
		return ErrAlreadyInitialized
	case StateFailed:
		return ErrSessionFailed
	case StateClosed:
		return ErrSessionClosed
	}

	if a.cfg.NewEngine == nil {
		a.state = StateFailed
		return fmt.Errorf("aiq init: no engine factory configured")
	}

	// Blobs live on the stack of this call: the engine copies what it
	// needs during creation and nothing reads them afterwards.
	var tuning, nvm, aiqd iaiq.BinaryData
	a.loadBlob(&tuning, "tuning", a.cfg.TuningPath)
	a.loadBlob(&nvm, "nvm", a.cfg.NVMPath)
	a.loadBlob(&aiqd, "aiqd", a.cfg.AIQDPath)

	engine, err := a.cfg.NewEngine(iaiq.EngineConfig{
		Tuning:        &tuning,
		NVM:           &nvm,
		AIQD:          &aiqd,
		MaxGridWidth:  a.cfg.MaxGridWidth,
		MaxGridHeight: a.cfg.MaxGridHeight,
		MaxInFlight:   a.cfg.MaxInFlight,
		CMC:           nil, // module characterization, not wired yet
		MKN:           nil, // maker-note context, not wired yet
	})
	if err != nil || engine == nil {
		a.state = StateFailed
		if err == nil {
			err = fmt.Errorf("engine factory returned no engine")
		}
		logAiq("engine creation failed: %v", err)
		return fmt.Errorf("aiq init: %w", err)
	}

	a.engine = engine
	a.state = StateInitialized
	logAiq("session initialized (degraded=%v)", a.degraded)
	return nil
}

// loadBlob loads one calibration resource best-effort. Any failure logs,
// marks the session degraded and leaves the blob absent.
func (a *AIQ) loadBlob(b *iaiq.BinaryData, kind, path string) {
	if path == "" {
		return
	}
	if err := b.Load(path); err != nil {
		a.degraded = true
		logAiq("%s blob unavailable, continuing without: %v", kind, err)
	}
}

// Configure applies per-stream reconfiguration before the first frame.
// Currently a pass-through hook kept for the resolution/mode switch path.
func (a *AIQ) Configure() error {
	if err := a.checkLive(); err != nil {
		return err
	}
	logAiq("configure")
	return nil
}

// SetStatistics converts one frame's raw hardware statistics buffer and
// submits it to the engine.
//
// The raw buffer is borrowed for the duration of the call. The frame number
// correlates this submission with a later Run for debugging; the engine
// itself is stateless per invocation with respect to it. Failures are
// per-frame recoverable: the error is returned for accounting but the
// session stays live and the next frame proceeds normally.
func (a *AIQ) SetStatistics(frame uint32, raw []byte) error {
	if err := a.checkLive(); err != nil {
		return err
	}

	parsed, err := stats.ParseFrame(raw)
	if err != nil {
		logAiq("frame %d: statistics rejected, not quitting: %v", frame, err)
		return fmt.Errorf("set statistics frame %d: %w", frame, err)
	}

	if err := a.engine.SetStatistics(a.adapter.Convert(parsed)); err != nil {
		logAiq("frame %d: engine refused statistics, not quitting: %v", frame, err)
		return fmt.Errorf("set statistics frame %d: %w", frame, err)
	}

	a.frameCount++
	return nil
}

// Run asks the engine for its current tuning decision and encodes it into
// the caller-owned parameter buffer, to be applied to a future frame.
//
// Run tolerates not being paired 1:1 with SetStatistics: the engine answers
// from whatever statistics it last absorbed (freshness, not call order). On
// an engine failure the buffer is left untouched and the error is returned;
// the session stays live.
func (a *AIQ) Run(frame uint32, buf *params.Buffer) error {
	if err := a.checkLive(); err != nil {
		return err
	}
	if buf == nil {
		return fmt.Errorf("run frame %d: nil parameter buffer", frame)
	}

	var decision iaiq.Decision
	if err := a.engine.Run(&decision); err != nil {
		logAiq("frame %d: engine run failed, not quitting: %v", frame, err)
		return fmt.Errorf("run frame %d: %w", frame, err)
	}

	if err := params.Encode(&decision, buf); err != nil {
		logAiq("frame %d: parameter encode failed: %v", frame, err)
		return fmt.Errorf("run frame %d: %w", frame, err)
	}

	if a.cfg.OnDecision != nil {
		a.cfg.OnDecision(frame, &decision)
	}
	return nil
}

// Close releases the engine regardless of state. Idempotent: closing twice
// or closing a session that never initialised is a no-op.
func (a *AIQ) Close() error {
	if a.state == StateClosed {
		return nil
	}
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			logAiq("engine close: %v", err)
		}
		a.engine = nil
	}
	a.state = StateClosed
	logAiq("session closed after %d frames", a.frameCount)
	return nil
}

func (a *AIQ) checkLive() error {
	switch a.state {
	case StateInitialized:
		return nil
	case StateFailed:
		return ErrSessionFailed
	case StateClosed:
		return ErrSessionClosed
	default:
		return ErrNotInitialized
	}
}
