// internal/config/validate.go
package config

import (
	"fmt"

	"github.com/hsoundplane/soundplane/internal/distributor"
	"github.com/hsoundplane/soundplane/internal/protocol"
)

// Validate checks configuration correctness.
// It performs declarative validation only.
// It MUST NOT mutate configuration.
// Zero values of optional fields are accepted; Normalize fills them.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config: nil configuration")
	}
	m := cfg.Master

	// ------------------------------------------------------------
	// HOST LINK
	// ------------------------------------------------------------

	if m.Serial.Port == "" {
		return fmt.Errorf("master.serial.port is required")
	}
	if m.Serial.Baud < 0 {
		return fmt.Errorf("master.serial.baud must be > 0")
	}
	if m.Serial.TimeoutMs < 0 {
		return fmt.Errorf("master.serial.timeout_ms must be >= 0")
	}
	if m.Serial.Framing != "" {
		if _, err := protocol.ParseFraming(m.Serial.Framing); err != nil {
			return fmt.Errorf("master.serial.framing: %v", err)
		}
	}

	// ------------------------------------------------------------
	// SLAVES
	// ------------------------------------------------------------

	if len(m.Slaves) == 0 || len(m.Slaves) > protocol.MaxSlaves {
		return fmt.Errorf("master.slaves: 1..%d slaves required, got %d", protocol.MaxSlaves, len(m.Slaves))
	}

	addrOwner := make(map[uint16]int)
	switchOwner := make(map[uint16]int)

	for i, s := range m.Slaves {
		if s.Address == 0 || s.Address > 0x7F {
			return fmt.Errorf("master.slaves[%d]: address 0x%02X is not a 7-bit address", i, s.Address)
		}
		if s.Address == 0x59 {
			return fmt.Errorf("master.slaves[%d]: address 0x59 is reserved for the DRV2667", i)
		}
		if s.Address >= 0x70 && s.Address <= 0x77 {
			return fmt.Errorf("master.slaves[%d]: address 0x%02X collides with the switch range", i, s.Address)
		}
		if prev, exists := addrOwner[s.Address]; exists {
			return fmt.Errorf("master.slaves: address 0x%02X used by slaves %d and %d", s.Address, prev, i)
		}
		addrOwner[s.Address] = i

		if s.SwitchAddress < 0x70 || s.SwitchAddress > 0x77 {
			return fmt.Errorf("master.slaves[%d]: switch_address 0x%02X outside 0x70..0x77", i, s.SwitchAddress)
		}
		if prev, exists := switchOwner[s.SwitchAddress]; exists {
			return fmt.Errorf("master.slaves: switch_address 0x%02X used by slaves %d and %d", s.SwitchAddress, prev, i)
		}
		switchOwner[s.SwitchAddress] = i
	}

	// ------------------------------------------------------------
	// GEOMETRY
	// ------------------------------------------------------------

	l := m.Layout
	if l.ColumnsPerSlave < 0 || l.ColumnsPerSlave > 8 {
		return fmt.Errorf("master.layout.columns_per_slave must be 1..8")
	}
	if l.RowsPerColumn != 0 && l.RowsPerColumn != 5 && l.RowsPerColumn != 9 {
		return fmt.Errorf("master.layout.rows_per_column must be 5 or 9")
	}
	if l.PiezosPerSlave != 0 && l.PiezosPerSlave != 45 && l.PiezosPerSlave != 72 {
		return fmt.Errorf("master.layout.piezos_per_slave must be 45 or 72")
	}
	if l.MaxCoordPairs < 0 || l.MaxCoordPairs > 127 {
		return fmt.Errorf("master.layout.max_coord_pairs must be 1..127")
	}
	if l.CommandThreshold >= int(protocol.StartMarker) {
		return fmt.Errorf("master.layout.command_threshold must be below 0x%02X", protocol.StartMarker)
	}

	// zero fields are checked with the values Normalize will fill in
	cols := orDefault(l.ColumnsPerSlave, DefaultColumnsPerSlave)
	rows := orDefault(l.RowsPerColumn, DefaultRowsPerColumn)
	piezos := orDefault(l.PiezosPerSlave, DefaultPiezosPerSlave)
	pairs := orDefault(l.MaxCoordPairs, DefaultMaxCoordPairs)
	threshold := orDefault(l.CommandThreshold, int(protocol.DefaultCommandThreshold))

	// last contact reached: last column, last row
	if last := (cols-1)*distributor.Stride + (rows-1)*distributor.RowPitch; last >= piezos {
		return fmt.Errorf(
			"master.layout: %d columns of %d rows reach contact %d, slave has %d",
			cols, rows, last, piezos,
		)
	}
	if threshold < len(m.Slaves)*cols {
		return fmt.Errorf(
			"master.layout.command_threshold %d collides with columns 0..%d",
			threshold, len(m.Slaves)*cols-1,
		)
	}
	// a pair count at or above the threshold is read as a command
	if threshold <= pairs {
		return fmt.Errorf(
			"master.layout.command_threshold %d must exceed max_coord_pairs %d",
			threshold, pairs,
		)
	}

	// ------------------------------------------------------------
	// DRIVER SETUP
	// ------------------------------------------------------------

	if m.Setup.Gain > protocol.MaxGain {
		return fmt.Errorf("master.setup.gain must be 0..%d", protocol.MaxGain)
	}
	if m.Setup.Retries < 0 {
		return fmt.Errorf("master.setup.retries must be >= 0")
	}
	switch m.Setup.Mode {
	case "", "master", "slave":
	default:
		return fmt.Errorf("master.setup.mode must be master or slave, got %q", m.Setup.Mode)
	}
	if m.StartupWaitMs < 0 {
		return fmt.Errorf("master.startup_wait_ms must be >= 0")
	}

	// ------------------------------------------------------------
	// STATUS EXPORT (OPT-IN)
	// ------------------------------------------------------------

	if s := cfg.Status; s != nil {
		if s.Endpoint == "" {
			return fmt.Errorf("status.endpoint is required when status is set")
		}
		for i := 0; i < len(s.DeviceName); i++ {
			if s.DeviceName[i] > 0x7F {
				return fmt.Errorf("status.device_name must contain ASCII characters only")
			}
		}
		if s.TimeoutMs < 0 {
			return fmt.Errorf("status.timeout_ms must be >= 0")
		}
	}

	return nil
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}
