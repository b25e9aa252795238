// Package session implements the Host/Guest isolation state machine.
//
// Guest mode shadows the durable state with an isolated in-memory copy.
// The mode itself is persisted as an explicit enum so an interrupted guest
// session can be detected at the next startup; recovery is "force to Host",
// which is safe because Guest never writes durable state.
package session

import (
	"time"

	"github.com/okian/streakd/internal/domain/model"
)

// Mode is the persisted session state enum.
type Mode string

const (
	ModeHost  Mode = "host"
	ModeGuest Mode = "guest"
)

// Manager tracks the current mode and holds the Host snapshot while a
// guest session is active. Not safe for concurrent use; the service
// serializes all transitions on its single owner.
type Manager struct {
	mode     Mode
	snapshot *model.GuestSnapshot
}

// NewManager creates a manager in Host mode with no snapshot.
func NewManager() *Manager {
	return &Manager{mode: ModeHost}
}

// Mode returns the current session mode.
func (m *Manager) Mode() Mode {
	return m.mode
}

// InGuest reports whether a guest session is active.
func (m *Manager) InGuest() bool {
	return m.mode == ModeGuest
}

// EnterGuest captures the Host snapshot and transitions to Guest.
// Valid only from Host.
func (m *Manager) EnterGuest(snapshot model.GuestSnapshot) error {
	if m.mode == ModeGuest {
		return ErrAlreadyGuest
	}
	snapshot.TakenAt = time.Now()
	m.snapshot = &snapshot
	m.mode = ModeGuest
	return nil
}

// ExitGuest returns the Host snapshot verbatim, clears it, and transitions
// back to Host. Valid only from Guest; the snapshot is handed out exactly
// once per session.
func (m *Manager) ExitGuest() (model.GuestSnapshot, error) {
	if m.mode != ModeGuest {
		return model.GuestSnapshot{}, ErrNotGuest
	}
	if m.snapshot == nil {
		return model.GuestSnapshot{}, ErrSnapshotMissing
	}
	snapshot := *m.snapshot
	m.snapshot = nil
	m.mode = ModeHost
	return snapshot, nil
}

// ForceHost drops any snapshot and forces the logical state to Host. Used
// by startup recovery after an interrupted guest session.
func (m *Manager) ForceHost() {
	m.snapshot = nil
	m.mode = ModeHost
}
