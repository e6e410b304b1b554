package master

import "github.com/hsoundplane/soundplane/internal/status"

// Health folds cycle outcomes into the status snapshot, the way the status
// block reports them. It owns no IO.
type Health struct {
	snap status.Snapshot
}

// NewHealth returns the boot state: health unknown, no error.
func NewHealth() *Health {
	return &Health{snap: status.Snapshot{Health: status.HealthUnknown}}
}

// Observe records the outcome of one cycle. code is the SERR_* code of err
// (0 when err is nil). It reports whether the snapshot changed.
func (h *Health) Observe(m *Master, code uint16) bool {
	prev := h.snap

	reg := m.Registry()
	c := m.Counters()
	h.snap.SlavesAvailable = reg.AvailableMask()
	h.snap.SlavesSetUp = reg.SetupMask()
	h.snap.FramesHandled = c.FramesHandled
	h.snap.FramesRejected = c.FramesRejected

	switch {
	case h.snap.SlavesAvailable == 0:
		h.snap.Health = status.HealthNoSlaves
		if code != 0 {
			h.snap.LastErrorCode = code
		}
	case code != 0:
		h.snap.Health = status.HealthError
		h.snap.LastErrorCode = code
	default:
		// Recovery / OK
		h.snap.Health = status.HealthOK
		h.snap.LastErrorCode = 0
		h.snap.SecondsInError = 0
	}

	return h.snap != prev
}

// Tick advances seconds_in_error. Called at 1 Hz; saturates.
func (h *Health) Tick() bool {
	if h.snap.Health == status.HealthOK {
		return false
	}
	if h.snap.SecondsInError == 0xFFFF {
		return false
	}
	h.snap.SecondsInError++
	return true
}

// Snapshot returns the current snapshot.
func (h *Health) Snapshot() status.Snapshot { return h.snap }
