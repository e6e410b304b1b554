// Package registry tracks which slaves answer on the I2C bus and brings
// their DRV2667 drivers to a known state.
package registry

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hsoundplane/soundplane/internal/drv2667"
	"github.com/hsoundplane/soundplane/internal/protocol"
)

// Bus is the I2C master side used for probing, setup and dispatch.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Indicator reflects the outcome of the last setup pass (an LED on the
// board). It is not per channel.
type Indicator interface {
	Set(ok bool) error
}

// Mode selects who talks to the DRV2667 drivers.
type Mode int

const (
	// ModeMaster: the master drives each slave's I2C switch directly.
	ModeMaster Mode = iota
	// ModeSlave: the master sends an init-notify message and the slave runs
	// the driver sequence on its own bus.
	ModeSlave
)

// SlaveDescriptor is the master's view of one slave.
type SlaveDescriptor struct {
	Address       uint16
	SwitchAddress uint16
	Available     bool
	DriversSetUp  uint8 // bit n: driver n enabled
}

// Config is the immutable registry setup.
type Config struct {
	Slaves  []SlaveDescriptor
	Mode    Mode
	Retries int // extra whole-setup attempts per slave
}

// Registry owns the slave table. It is not safe for concurrent use; the
// master cycle is single threaded.
type Registry struct {
	bus       Bus
	slaves    []SlaveDescriptor
	mode      Mode
	retries   int
	indicator Indicator

	// Trace, when set, receives per-transaction bus logging.
	Trace drv2667.Tracef
}

// New creates a registry. indicator may be nil.
func New(cfg Config, bus Bus, indicator Indicator) (*Registry, error) {
	if bus == nil {
		return nil, errors.New("registry: bus required")
	}
	if len(cfg.Slaves) == 0 || len(cfg.Slaves) > protocol.MaxSlaves {
		return nil, fmt.Errorf("registry: 1..%d slaves required, got %d", protocol.MaxSlaves, len(cfg.Slaves))
	}
	if cfg.Retries < 0 {
		return nil, errors.New("registry: retries must be >= 0")
	}

	slaves := make([]SlaveDescriptor, len(cfg.Slaves))
	for i, s := range cfg.Slaves {
		slaves[i] = SlaveDescriptor{Address: s.Address, SwitchAddress: s.SwitchAddress}
	}

	return &Registry{
		bus:       bus,
		slaves:    slaves,
		mode:      cfg.Mode,
		retries:   cfg.Retries,
		indicator: indicator,
	}, nil
}

// Slaves returns a copy of the slave table.
func (r *Registry) Slaves() []SlaveDescriptor {
	out := make([]SlaveDescriptor, len(r.slaves))
	copy(out, r.slaves)
	return out
}

// Available returns the availability flag of every slave, by slave index.
func (r *Registry) Available() []bool {
	out := make([]bool, len(r.slaves))
	for i, s := range r.slaves {
		out[i] = s.Available
	}
	return out
}

// AvailableMask packs Available into a bitmask (bit n = slave n).
func (r *Registry) AvailableMask() uint16 {
	var m uint16
	for i, s := range r.slaves {
		if s.Available {
			m |= 1 << i
		}
	}
	return m
}

// Register probes every slave with a 1-byte read. A slave is available
// only if it ACKs and echoes its own address. Availability is re-evaluated
// from scratch on each call.
func (r *Registry) Register() int {
	n := 0
	for i := range r.slaves {
		s := &r.slaves[i]
		buf := make([]byte, 1)
		err := r.bus.Tx(s.Address, nil, buf)
		s.Available = err == nil && uint16(buf[0]) == s.Address
		if !s.Available {
			s.DriversSetUp = 0
		}
		if r.Trace != nil {
			r.Trace("probe 0x%02X -> 0x%02X err=%v available=%v", s.Address, buf[0], err, s.Available)
		}
		if s.Available {
			n++
		}
	}
	return n
}

// Setup runs the driver sequence on every available slave. Each slave gets
// up to 1+Retries whole attempts. The indicator shows the aggregate
// outcome and stays off when no slave is available. The returned mask has bit n set when slave n ended up fully set up.
func (r *Registry) Setup(opts drv2667.Options) (uint16, error) {
	var okMask uint16
	var errs []string
	allOK := true
	attempted := 0

	for i := range r.slaves {
		if !r.slaves[i].Available {
			continue
		}
		attempted++
		if err := r.setupSlave(i, drv2667.AllChannels(), opts); err != nil {
			allOK = false
			errs = append(errs, err.Error())
			continue
		}
		okMask |= 1 << i
	}

	r.Indicate(allOK && attempted > 0)

	if len(errs) > 0 {
		return okMask, &protocol.Error{Code: protocol.CodeBus, Msg: strings.Join(errs, " | ")}
	}
	return okMask, nil
}

// SetDrivers switches the drivers selected by mask on one slave on or off.
func (r *Registry) SetDrivers(slave int, mask uint8, on bool, gain uint8) error {
	if slave < 0 || slave >= len(r.slaves) {
		return protocol.Errorf(protocol.CodeOpcode, "slave %d not configured", slave)
	}
	if !r.slaves[slave].Available {
		return fmt.Errorf("registry: slave 0x%02X not available", r.slaves[slave].Address)
	}
	err := r.setupSlave(slave, mask, drv2667.Options{On: on, Gain: gain})
	r.Indicate(err == nil)
	if err != nil {
		return &protocol.Error{Code: protocol.CodeBus, Msg: err.Error()}
	}
	return nil
}

// SetupMask returns bit n set for every slave whose drivers are all on.
func (r *Registry) SetupMask() uint16 {
	var m uint16
	for i, s := range r.slaves {
		if s.Available && s.DriversSetUp == drv2667.AllChannels() {
			m |= 1 << i
		}
	}
	return m
}

func (r *Registry) setupSlave(i int, mask uint8, opts drv2667.Options) error {
	s := &r.slaves[i]

	var lastErr error
	for attempt := 0; attempt <= r.retries; attempt++ {
		var res drv2667.Result
		var err error

		switch r.mode {
		case ModeSlave:
			res, err = r.notify(s, mask, opts)
		default:
			res, err = drv2667.Setup(r.bus, s.SwitchAddress, mask, opts, r.Trace)
		}

		if opts.On {
			s.DriversSetUp |= res.Channels
		} else {
			s.DriversSetUp &^= res.Channels
		}
		if err == nil && res.OK {
			return nil
		}
		lastErr = err
	}
	return fmt.Errorf("slave 0x%02X: setup failed after %d attempts: %v", s.Address, r.retries+1, lastErr)
}

// notify hands the sequence for the drivers in mask to the slave. Success
// is the bus ACK: the slave runs the sequence after the write completes.
func (r *Registry) notify(s *SlaveDescriptor, mask uint8, opts drv2667.Options) (drv2667.Result, error) {
	msg := protocol.InitNotifyMessage(protocol.InitSettings{Reset: opts.Reset, On: opts.On, Gain: opts.Gain, Mask: mask})
	if r.Trace != nil {
		r.Trace("i2c 0x%02X <- % X (init notify)", s.Address, msg)
	}
	if err := r.bus.Tx(s.Address, msg, nil); err != nil {
		return drv2667.Result{}, err
	}
	return drv2667.Result{Channels: mask, OK: true}, nil
}

// Indicate drives the front-panel indicator. Set failures are traced only.
func (r *Registry) Indicate(ok bool) {
	if r.indicator == nil {
		return
	}
	if err := r.indicator.Set(ok); err != nil && r.Trace != nil {
		r.Trace("indicator: %v", err)
	}
}
