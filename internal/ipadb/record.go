package ipadb

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/gmykhailiuta/libcamera/internal/ipa/iaiq"
)

// DecisionRow is one recorded tuning decision.
type DecisionRow struct {
	SessionID    string
	Frame        int64
	AppliedFrame int64
	ExposureUs   int64
	AnalogGain   float64
	DigitalGain  float64
	GainR        float64
	GainB        float64
	CCT          float64
	LensPosition int
	LensMoved    bool
	EstimatedLux float64
	CreatedAt    time.Time
}

// BeginSession records a new capture session and returns its id.
func (d *DB) BeginSession(degraded bool) (string, error) {
	id := uuid.NewString()
	_, err := d.Exec("INSERT INTO sessions (session_id, degraded) VALUES (?, ?)", id, boolInt(degraded))
	if err != nil {
		return "", fmt.Errorf("failed to record session start: %w", err)
	}
	logDB("session %s started (degraded=%v)", id, degraded)
	return id, nil
}

// EndSession closes a session record with its final frame count.
func (d *DB) EndSession(id string, frames uint64) error {
	_, err := d.Exec(
		"UPDATE sessions SET ended_at = CURRENT_TIMESTAMP, frames = ? WHERE session_id = ?",
		int64(frames), id)
	if err != nil {
		return fmt.Errorf("failed to record session end: %w", err)
	}
	return nil
}

// RecordDecision stores one per-frame decision. frame is the statistics
// frame the decision derived from, appliedFrame the future frame the encoded
// parameters target.
func (d *DB) RecordDecision(sessionID string, frame, appliedFrame int64, dec *iaiq.Decision) error {
	_, err := d.Exec(`
		INSERT INTO decisions (
			session_id, frame, applied_frame, exposure_us, analog_gain,
			digital_gain, gain_r, gain_b, cct, lens_position, lens_moved,
			estimated_lux
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, frame, appliedFrame, int64(dec.ExposureUs), dec.AnalogGain,
		dec.DigitalGain, dec.GainR, dec.GainB, dec.CCT, int(dec.LensPosition),
		boolInt(dec.LensMoved), dec.EstimatedLux)
	if err != nil {
		return fmt.Errorf("failed to record decision for frame %d: %w", frame, err)
	}
	return nil
}

// RecentDecisions returns up to limit decisions, newest first.
func (d *DB) RecentDecisions(limit int) ([]DecisionRow, error) {
	rows, err := d.Query(`
		SELECT session_id, frame, applied_frame, exposure_us, analog_gain,
		       digital_gain, gain_r, gain_b, cct, lens_position, lens_moved,
		       estimated_lux, created_at
		FROM decisions ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// SessionTrace returns all decisions of one session in frame order.
func (d *DB) SessionTrace(sessionID string) ([]DecisionRow, error) {
	rows, err := d.Query(`
		SELECT session_id, frame, applied_frame, exposure_us, analog_gain,
		       digital_gain, gain_r, gain_b, cct, lens_position, lens_moved,
		       estimated_lux, created_at
		FROM decisions WHERE session_id = ? ORDER BY frame ASC`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanDecisions(rows)
}

// LatestSessionID returns the most recently started session id, or empty
// when the store has none.
func (d *DB) LatestSessionID() (string, error) {
	var id string
	err := d.QueryRow("SELECT session_id FROM sessions ORDER BY started_at DESC, rowid DESC LIMIT 1").Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return id, err
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanDecisions(rows rowScanner) ([]DecisionRow, error) {
	var out []DecisionRow
	for rows.Next() {
		var r DecisionRow
		var lensMoved int
		if err := rows.Scan(&r.SessionID, &r.Frame, &r.AppliedFrame, &r.ExposureUs,
			&r.AnalogGain, &r.DigitalGain, &r.GainR, &r.GainB, &r.CCT,
			&r.LensPosition, &lensMoved, &r.EstimatedLux, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.LensMoved = lensMoved != 0
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
