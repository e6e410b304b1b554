// Package slave is the slave-side message handling: I2C messages queued by
// the receive callback are turned into shift-register latches or DRV2667
// setup sequences by the main loop.
package slave

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hsoundplane/soundplane/internal/drv2667"
	"github.com/hsoundplane/soundplane/internal/protocol"
	"github.com/hsoundplane/soundplane/internal/shiftreg"
)

// Latcher is what the controller needs from the shift-register driver.
type Latcher interface {
	Latch(indices []uint8) (shiftreg.Bitmask, error)
}

// Config identifies the slave.
type Config struct {
	Address       uint16
	SwitchAddress uint16
}

// Controller consumes queued messages.
type Controller struct {
	cfg    Config
	shift  Latcher
	bus    drv2667.Bus // optional: needed for init-notify only
	status shiftreg.Pin
	queue  *Ring
	buf    []byte

	enabled uint8 // drivers switched on by the last sequences

	Debug bool
	Logf  func(format string, args ...any)
}

// New creates a controller. bus and status may be nil.
func New(cfg Config, shift Latcher, bus drv2667.Bus, status shiftreg.Pin, queue *Ring) (*Controller, error) {
	if shift == nil {
		return nil, errors.New("slave: shift register driver required")
	}
	if queue == nil {
		return nil, errors.New("slave: queue required")
	}
	return &Controller{cfg: cfg, shift: shift, bus: bus, status: status, queue: queue}, nil
}

// Receive is the producer side, called from the bus receive path.
func (c *Controller) Receive(msg []byte) bool {
	return c.queue.Put(msg)
}

// ProbeReply is the answer to the master's registration read.
func (c *Controller) ProbeReply() []byte {
	return []byte{byte(c.cfg.Address)}
}

// Poll handles every queued message and returns how many were handled.
func (c *Controller) Poll() (int, error) {
	var errs []string
	n := 0
	for {
		var ok bool
		c.buf, ok = c.queue.Get(c.buf)
		if !ok {
			break
		}
		n++
		if err := c.Handle(c.buf); err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return n, errors.New(strings.Join(errs, " | "))
	}
	return n, nil
}

// Handle decodes and executes one message.
func (c *Controller) Handle(raw []byte) error {
	msg, err := protocol.DecodeMessage(raw)
	if err != nil {
		return err
	}

	switch msg.Kind {
	case protocol.MessageIndexSet:
		m, err := c.shift.Latch(msg.Indices)
		c.debugf("latched %v -> %s", msg.Indices, m)
		return err

	case protocol.MessageInitNotify:
		return c.setupDrivers(msg.Init)
	}
	return protocol.Errorf(protocol.CodeOpcode, "unhandled message kind %d", msg.Kind)
}

func (c *Controller) setupDrivers(s protocol.InitSettings) error {
	if c.bus == nil {
		return errors.New("slave: no driver bus for init notify")
	}
	var trace drv2667.Tracef
	if c.Debug {
		trace = c.Logf
	}
	res, err := drv2667.Setup(c.bus, c.cfg.SwitchAddress, s.Mask,
		drv2667.Options{Reset: s.Reset, On: s.On, Gain: s.Gain}, trace)
	if s.On {
		c.enabled |= res.Channels
	} else {
		c.enabled &^= res.Channels
	}

	// status LED is active low and lit while any driver is enabled
	if c.status != nil {
		if res.OK && c.enabled != 0 {
			c.status.Low()
		} else {
			c.status.High()
		}
	}
	if err != nil {
		return fmt.Errorf("slave 0x%02X: %w", c.cfg.Address, err)
	}
	return nil
}

func (c *Controller) debugf(format string, args ...any) {
	if c.Debug && c.Logf != nil {
		c.Logf(format, args...)
	}
}
