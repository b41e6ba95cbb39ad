// Package epochtime defines the platform's natural time quantum that
// validator lockups and release barriers are counted in. The engine never
// derives epochs from wall-clock time itself; it consumes whatever a
// Backend reports.
package epochtime

import "context"

// EpochTime is an epoch number.
type EpochTime uint64

// Backend provides the current epoch to the engine. In production this is
// backed by the host platform's consensus clock (e.g. a tendermint height
// divided into epochs); tests substitute a manual clock.
type Backend interface {
	// GetEpoch returns the current epoch.
	GetEpoch(ctx context.Context) (EpochTime, error)
}

// ManualBackend is a test/operator-controlled Backend that never advances
// except when explicitly told to.
type ManualBackend struct {
	current EpochTime
}

// NewManualBackend constructs a ManualBackend starting at the given epoch.
func NewManualBackend(start EpochTime) *ManualBackend {
	return &ManualBackend{current: start}
}

// GetEpoch implements Backend.
func (m *ManualBackend) GetEpoch(_ context.Context) (EpochTime, error) {
	return m.current, nil
}

// SetEpoch forcibly sets the current epoch, e.g. to fast-forward past a
// lockup window in a test.
func (m *ManualBackend) SetEpoch(e EpochTime) {
	m.current = e
}

// Advance moves the current epoch forward by n and returns the new value.
func (m *ManualBackend) Advance(n EpochTime) EpochTime {
	m.current += n
	return m.current
}
