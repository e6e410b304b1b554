package master

import (
	"fmt"

	cfg "github.com/hsoundplane/soundplane/internal/config"
	"github.com/hsoundplane/soundplane/internal/dispatch"
	"github.com/hsoundplane/soundplane/internal/distributor"
	"github.com/hsoundplane/soundplane/internal/protocol"
	"github.com/hsoundplane/soundplane/internal/registry"
)

// Build constructs a master from a validated, normalized configuration.
// No bus traffic happens here; call Start.
func Build(c *cfg.Config, bus registry.Bus, indicator registry.Indicator) (*Master, error) {
	mc := c.Master

	framing, err := protocol.ParseFraming(mc.Serial.Framing)
	if err != nil {
		return nil, err
	}

	var mode registry.Mode
	switch mc.Setup.Mode {
	case "master":
		mode = registry.ModeMaster
	case "slave":
		mode = registry.ModeSlave
	default:
		return nil, fmt.Errorf("master: unknown setup mode %q", mc.Setup.Mode)
	}

	slaves := make([]registry.SlaveDescriptor, 0, len(mc.Slaves))
	addresses := make([]uint16, 0, len(mc.Slaves))
	for _, s := range mc.Slaves {
		slaves = append(slaves, registry.SlaveDescriptor{
			Address:       s.Address,
			SwitchAddress: s.SwitchAddress,
		})
		addresses = append(addresses, s.Address)
	}

	reg, err := registry.New(registry.Config{
		Slaves:  slaves,
		Mode:    mode,
		Retries: mc.Setup.Retries,
	}, bus, indicator)
	if err != nil {
		return nil, err
	}

	d, err := dispatch.New(bus, addresses)
	if err != nil {
		return nil, err
	}

	reset := true
	if mc.Setup.Reset != nil {
		reset = *mc.Setup.Reset
	}

	return New(Config{
		Parser: protocol.Parser{
			Framing:   framing,
			MaxPairs:  mc.Layout.MaxCoordPairs,
			Threshold: uint8(mc.Layout.CommandThreshold),
		},
		Layout: distributor.Layout{
			Slaves:          len(mc.Slaves),
			ColumnsPerSlave: mc.Layout.ColumnsPerSlave,
			RowsPerColumn:   mc.Layout.RowsPerColumn,
			PiezosPerSlave:  mc.Layout.PiezosPerSlave,
			MaxPairs:        mc.Layout.MaxCoordPairs,
		},
		Gain:  mc.Setup.Gain,
		Reset: reset,
		Debug: mc.Debug,
	}, reg, d)
}
