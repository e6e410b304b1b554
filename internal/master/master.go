// Package master runs the master cycle: one serial frame in, one round of
// I2C messages out.
package master

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/hsoundplane/soundplane/internal/dispatch"
	"github.com/hsoundplane/soundplane/internal/distributor"
	"github.com/hsoundplane/soundplane/internal/drv2667"
	"github.com/hsoundplane/soundplane/internal/protocol"
	"github.com/hsoundplane/soundplane/internal/registry"
)

// Config is the immutable behavior of one master.
type Config struct {
	Parser protocol.Parser
	Layout distributor.Layout
	Gain   uint8
	Reset  bool // reset the drivers during the startup setup
	Debug  bool // initial debug state
}

// Counters are the master's running totals. They wrap.
type Counters struct {
	FramesHandled  uint16
	FramesRejected uint16
}

// Master owns the slave registry and the dispatcher. It is driven from a
// single goroutine.
type Master struct {
	cfg      Config
	registry *registry.Registry
	dispatch *dispatch.Dispatcher

	debug    bool
	counters Counters

	// Logf receives debug traces. Defaults to log.Printf.
	Logf func(format string, args ...any)
}

// New wires a master over an existing registry and dispatcher.
func New(cfg Config, reg *registry.Registry, d *dispatch.Dispatcher) (*Master, error) {
	if reg == nil || d == nil {
		return nil, errors.New("master: registry and dispatcher required")
	}
	if cfg.Layout.Slaves != len(reg.Slaves()) {
		return nil, fmt.Errorf("master: layout has %d slaves, registry %d", cfg.Layout.Slaves, len(reg.Slaves()))
	}
	if cfg.Gain > protocol.MaxGain {
		return nil, fmt.Errorf("master: gain %d out of range", cfg.Gain)
	}

	m := &Master{
		cfg:      cfg,
		registry: reg,
		dispatch: d,
		debug:    cfg.Debug,
		Logf:     log.Printf,
	}
	reg.Trace = m.tracef
	d.Trace = m.tracef
	return m, nil
}

// Start probes the slaves and brings their drivers up. It returns the
// number of available slaves. A setup failure is returned but leaves the
// master usable: failed slaves keep their state and are still dispatched
// to if they answered the probe.
func (m *Master) Start(reset bool) (int, error) {
	n := m.registry.Register()
	if n == 0 {
		m.registry.Indicate(false)
		return 0, &protocol.Error{Code: protocol.CodeBus, Msg: "no slave answered the probe"}
	}
	_, err := m.registry.Setup(drv2667.Options{Reset: reset, On: true, Gain: m.cfg.Gain})
	return n, err
}

// HandleFrame runs one full cycle for a frame read from the host.
//
// A frame that fails to parse is discarded with no bus traffic. Otherwise
// coordinates are distributed over the available slaves and every available
// slave receives its list, empty or not. Control frames run their directive
// instead.
func (m *Master) HandleFrame(frame []byte) error {
	cmd, err := m.cfg.Parser.Parse(frame)
	if err != nil {
		m.counters.FramesRejected++
		m.tracef("frame % X rejected: %v", frame, err)
		return err
	}
	m.counters.FramesHandled++

	if cmd.Directive != nil {
		return m.execute(*cmd.Directive)
	}

	available := m.registry.Available()
	plan, distErr := m.cfg.Layout.Distribute(cmd.Pairs, available)
	if m.debug {
		m.traceDistribution(cmd.Pairs, plan)
	}

	_, busErr := m.dispatch.Dispatch(plan.Indices, available)
	if busErr != nil {
		if distErr != nil {
			m.Logf("distribution: %v", distErr)
		}
		return busErr
	}
	return distErr
}

func (m *Master) execute(d protocol.Directive) error {
	m.tracef("directive %s", d)

	switch d.Action {
	case protocol.ActionPiezosOff:
		_, err := m.dispatch.Clear(m.registry.Available())
		return err

	case protocol.ActionDriversOn, protocol.ActionDriversOff:
		return m.registry.SetDrivers(d.Slave, d.DriverMask, d.Action == protocol.ActionDriversOn, m.cfg.Gain)

	case protocol.ActionDebug:
		m.debug = !m.debug
		m.Logf("debug %v", m.debug)
		return nil

	case protocol.ActionReset:
		// all piezos open before the drivers go through reset
		_, clearErr := m.dispatch.Clear(m.registry.Available())
		n, err := m.Start(true)
		m.Logf("reset: %d slaves available", n)
		return joinBusErrors(clearErr, err)
	}
	return protocol.Errorf(protocol.CodeOpcode, "unhandled directive %s", d)
}

// Debug reports the current debug state.
func (m *Master) Debug() bool { return m.debug }

// Counters returns the running totals.
func (m *Master) Counters() Counters { return m.counters }

// Registry exposes the slave table for status reporting.
func (m *Master) Registry() *registry.Registry { return m.registry }

func (m *Master) traceDistribution(pairs []protocol.Pair, plan distributor.Plan) {
	for _, p := range pairs {
		slave, idx, err := m.cfg.Layout.Locate(p.Column, p.Row)
		if err != nil {
			m.Logf("  (%d,%d) dropped: %v", p.Column, p.Row, err)
			continue
		}
		m.Logf("  (%d,%d) -> slave %d piezo %d (physical %d)",
			p.Column, p.Row, slave, idx, m.cfg.Layout.PhysicalIndex(p.Column, p.Row))
	}
	for s, list := range plan.Indices {
		m.Logf("  slave %d: %v", s, list)
	}
	if plan.Skipped+plan.Rejected+plan.Truncated > 0 {
		m.Logf("  skipped=%d rejected=%d truncated=%d", plan.Skipped, plan.Rejected, plan.Truncated)
	}
}

func (m *Master) tracef(format string, args ...any) {
	if !m.debug || m.Logf == nil {
		return
	}
	m.Logf(format, args...)
}

// joinBusErrors merges the errors of a multi-step directive into one
// SERR_BUS error. nil entries are skipped.
func joinBusErrors(errs ...error) error {
	var msgs []string
	for _, err := range errs {
		var perr *protocol.Error
		switch {
		case err == nil:
		case errors.As(err, &perr) && perr.Msg != "":
			msgs = append(msgs, perr.Msg)
		default:
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) == 0 {
		return nil
	}
	return &protocol.Error{Code: protocol.CodeBus, Msg: strings.Join(msgs, " | ")}
}
