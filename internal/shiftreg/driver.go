// Package shiftreg drives the daisy-chained SPI shift registers that gate
// the piezo contacts of one slave.
package shiftreg

import (
	"errors"
	"sync"

	"golang.org/x/exp/slices"
	"tinygo.org/x/drivers"

	"github.com/hsoundplane/soundplane/internal/protocol"
)

// Pin is a digital output. machine.Pin satisfies it.
type Pin interface {
	High()
	Low()
}

// Config is the chain geometry and behaviour.
type Config struct {
	Width int
	// SuppressUnchanged skips the SPI sequence when the new mask equals the
	// last one latched.
	SuppressUnchanged bool
}

// Driver latches bitmasks into the chain.
type Driver struct {
	mu       sync.Mutex
	spi      drivers.SPI
	clr      Pin // active low
	load     Pin // rising edge latches
	activity Pin // optional, active low
	width    int
	suppress bool
	last     []byte
}

// New configures a driver. activity may be nil.
func New(spi drivers.SPI, clr, load, activity Pin, cfg Config) (*Driver, error) {
	if spi == nil || clr == nil || load == nil {
		return nil, errors.New("shiftreg: spi, clr and load are required")
	}
	if _, err := NewBitmask(cfg.Width); err != nil {
		return nil, err
	}
	return &Driver{
		spi:      spi,
		clr:      clr,
		load:     load,
		activity: activity,
		width:    cfg.Width,
		suppress: cfg.SuppressUnchanged,
	}, nil
}

// Latch activates exactly the listed contacts. Invalid indices are skipped
// and reported; the valid ones are still latched.
func (d *Driver) Latch(indices []uint8) (Bitmask, error) {
	m, ierr := FromIndices(d.width, indices)
	if err := d.Send(m); err != nil {
		return m, err
	}
	return m, ierr
}

// Send shifts m into the chain and latches it. The sequence
// (clear, shift, load edge) holds the driver lock: no other SPI traffic from
// this driver interleaves with it.
func (d *Driver) Send(m Bitmask) error {
	if m.Width() != d.width {
		return protocol.Errorf(protocol.CodeCoord, "mask width %d, chain width %d", m.Width(), d.width)
	}
	out := m.Bytes()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.suppress && d.last != nil && slices.Equal(d.last, out) {
		return nil
	}

	if d.activity != nil {
		d.activity.Low()
		defer d.activity.High()
	}

	d.load.Low()
	d.clr.Low()
	d.clr.High()

	if err := d.spi.Tx(out, nil); err != nil {
		d.last = nil
		return protocol.Errorf(protocol.CodeBus, "spi: %v", err)
	}

	d.load.High()
	d.last = out
	return nil
}
