// Package dispatch delivers per-slave piezo index lists over I2C.
package dispatch

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hsoundplane/soundplane/internal/protocol"
)

// Bus is the I2C master write path.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Dispatcher writes one index-set message per available slave.
type Dispatcher struct {
	bus       Bus
	addresses []uint16

	// Trace, when set, receives one line per transaction.
	Trace func(format string, args ...any)
}

// New creates a dispatcher for the slaves at addresses (by slave index).
func New(bus Bus, addresses []uint16) (*Dispatcher, error) {
	if bus == nil {
		return nil, errors.New("dispatch: bus required")
	}
	if len(addresses) == 0 {
		return nil, errors.New("dispatch: at least one slave address required")
	}
	return &Dispatcher{bus: bus, addresses: addresses}, nil
}

// Dispatch sends indices[s] to every available slave s, including empty
// lists: each cycle fully replaces what the slaves show. Unavailable slaves
// get no traffic. Success is the bus ACK only; nothing is read back. The
// returned mask has bit s set for every slave that ACKed.
func (d *Dispatcher) Dispatch(indices [][]uint8, available []bool) (uint16, error) {
	var acked uint16
	var errs []string

	for s, addr := range d.addresses {
		if s >= len(available) || !available[s] {
			continue
		}
		var list []uint8
		if s < len(indices) {
			list = indices[s]
		}
		msg := protocol.IndexSetMessage(list)
		if d.Trace != nil {
			d.Trace("i2c 0x%02X <- % X", addr, msg)
		}
		if err := d.bus.Tx(addr, msg, nil); err != nil {
			errs = append(errs, fmt.Sprintf("slave 0x%02X: %v", addr, err))
			continue
		}
		acked |= 1 << s
	}

	if len(errs) > 0 {
		return acked, &protocol.Error{Code: protocol.CodeBus, Msg: strings.Join(errs, " | ")}
	}
	return acked, nil
}

// Clear sends an empty list to every available slave.
func (d *Dispatcher) Clear(available []bool) (uint16, error) {
	return d.Dispatch(nil, available)
}
