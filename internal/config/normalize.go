// internal/config/normalize.go
package config

import "github.com/hsoundplane/soundplane/internal/protocol"

// Defaults, as shipped on the boards.
const (
	DefaultBaud            = 115200
	DefaultSerialTimeoutMs = 50
	DefaultColumnsPerSlave = 8
	DefaultRowsPerColumn   = 5
	DefaultPiezosPerSlave  = 72
	DefaultMaxCoordPairs   = 16
	DefaultStartupWaitMs   = 2000
	DefaultStatusTimeoutMs = 1000
	DeviceNameMaxChars     = 16
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	m := &cfg.Master

	if m.Serial.Baud == 0 {
		m.Serial.Baud = DefaultBaud
	}
	if m.Serial.TimeoutMs == 0 {
		m.Serial.TimeoutMs = DefaultSerialTimeoutMs
	}
	if m.Serial.Framing == "" {
		m.Serial.Framing = protocol.Marked.String()
	}

	l := &m.Layout
	if l.ColumnsPerSlave == 0 {
		l.ColumnsPerSlave = DefaultColumnsPerSlave
	}
	if l.RowsPerColumn == 0 {
		l.RowsPerColumn = DefaultRowsPerColumn
	}
	if l.PiezosPerSlave == 0 {
		l.PiezosPerSlave = DefaultPiezosPerSlave
	}
	if l.MaxCoordPairs == 0 {
		l.MaxCoordPairs = DefaultMaxCoordPairs
	}
	if l.CommandThreshold == 0 {
		l.CommandThreshold = int(protocol.DefaultCommandThreshold)
	}

	if m.Setup.Mode == "" {
		m.Setup.Mode = "master"
	}
	if m.Setup.Reset == nil {
		reset := true
		m.Setup.Reset = &reset
	}
	if m.StartupWaitMs == 0 {
		m.StartupWaitMs = DefaultStartupWaitMs
	}

	if s := cfg.Status; s != nil {
		if s.TimeoutMs == 0 {
			s.TimeoutMs = DefaultStatusTimeoutMs
		}
		// ASCII already validated
		if len(s.DeviceName) > DeviceNameMaxChars {
			s.DeviceName = s.DeviceName[:DeviceNameMaxChars]
		}
	}
}
