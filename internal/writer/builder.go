package writer

import (
	"errors"
	"time"

	cfg "github.com/hsoundplane/soundplane/internal/config"
	wmodbus "github.com/hsoundplane/soundplane/internal/writer/modbus"
)

// BuildStatusWriter connects to the status endpoint and returns a writer
// plus its closer. A nil status config means status export is disabled:
// the writer is nil and enabled is false.
func BuildStatusWriter(s *cfg.StatusConfig) (w StatusWriter, closeFn func() error, enabled bool, err error) {
	if s == nil {
		return nil, func() error { return nil }, false, nil
	}
	if s.Endpoint == "" {
		return nil, nil, false, errors.New("writer: status endpoint required")
	}

	c, err := wmodbus.Dial(s.Endpoint, time.Duration(s.TimeoutMs)*time.Millisecond)
	if err != nil {
		return nil, nil, false, err
	}

	plan := StatusPlan{
		Endpoint:   s.Endpoint,
		UnitID:     s.UnitID,
		BaseSlot:   s.Slot,
		DeviceName: s.DeviceName,
	}

	return NewStatusWriter(plan, c), c.Close, true, nil
}
