package iaiq

import "fmt"

// Engine is the tuning engine boundary. Any conforming engine is
// substitutable: the vendor library, the reference software engine, or a
// deterministic stub in tests.
//
// Calls are not safe for concurrent use; the owning session serialises them.
type Engine interface {
	// SetStatistics submits one frame's converted statistics. The engine
	// borrows stats for the duration of the call only.
	SetStatistics(stats *Statistics) error

	// Run computes the current tuning decision into out. Freshness, not
	// call order, determines the result: Run may be invoked without a
	// matching SetStatistics and produces a decision from whatever the
	// engine last absorbed.
	Run(out *Decision) error

	// Close releases the engine. Idempotent.
	Close() error
}

// EngineFactory creates an engine from its configuration. A nil engine or an
// error is an init failure, fatal to the owning session.
type EngineFactory func(cfg EngineConfig) (Engine, error)

// EngineConfig carries everything an engine needs at creation time.
//
// The three blobs follow the best-effort policy: any or all may be absent
// (zero size) and the engine falls back to built-in defaults. Blob views are
// only valid during the factory call; an engine copies what it keeps.
type EngineConfig struct {
	Tuning *BinaryData // sensor tuning data (aiqb)
	NVM    *BinaryData // per-unit sensor non-volatile memory
	AIQD   *BinaryData // persisted algorithm state from a previous session

	MaxGridWidth  int // statistics grid width bound
	MaxGridHeight int // statistics grid height bound
	MaxInFlight   int // concurrent statistics instances bound

	// Reserved context handles, nil until wired: module characterization
	// (colour conversion matrices etc.) and maker-note metadata.
	CMC any
	MKN any
}

// ErrCode is an engine-internal error code, mirroring the numeric codes
// vendor tuning libraries report.
type ErrCode int

const (
	ErrNone     ErrCode = 0
	ErrGeneral  ErrCode = 1
	ErrNoMemory ErrCode = 2
	ErrData     ErrCode = 3
	ErrInternal ErrCode = 4
	ErrArgument ErrCode = 5
)

// EngineError wraps an engine error code for a named operation. It satisfies
// the error interface with a decoded, human-readable message.
type EngineError struct {
	Op   string
	Code ErrCode
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine %s failed: %s (code %d)", e.Op, e.Code.decode(), int(e.Code))
}

func (c ErrCode) decode() string {
	switch c {
	case ErrNone:
		return "success"
	case ErrGeneral:
		return "general failure"
	case ErrNoMemory:
		return "out of memory"
	case ErrData:
		return "corrupted or invalid data"
	case ErrInternal:
		return "internal algorithm error"
	case ErrArgument:
		return "invalid argument"
	default:
		return "unknown error"
	}
}
