package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hsoundplane/soundplane/internal/protocol"
)

// encode turns a command line ("send 0,0 9,2", "cmd on 1 0x0F") into a frame.
func encode(f protocol.Framing, threshold uint8, args []string) ([]byte, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	switch args[0] {
	case "send":
		pairs, err := parsePairs(args[1:])
		if err != nil {
			return nil, err
		}
		for _, p := range pairs {
			if p.Column >= threshold {
				return nil, fmt.Errorf("column %d collides with command sentinel %d", p.Column, threshold)
			}
		}
		return protocol.EncodeCoordinates(f, pairs)

	case "cmd":
		d, err := parseDirective(args[1:])
		if err != nil {
			return nil, err
		}
		return protocol.EncodeDirective(f, threshold, d)
	}
	return nil, fmt.Errorf("unknown command %q (send, cmd)", args[0])
}

func parsePairs(args []string) ([]protocol.Pair, error) {
	pairs := make([]protocol.Pair, 0, len(args))
	for _, a := range args {
		col, row, ok := strings.Cut(a, ",")
		if !ok {
			return nil, fmt.Errorf("pair %q: want col,row", a)
		}
		c, err := strconv.ParseUint(strings.TrimSpace(col), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("pair %q: column: %v", a, err)
		}
		r, err := strconv.ParseUint(strings.TrimSpace(row), 0, 8)
		if err != nil {
			return nil, fmt.Errorf("pair %q: row: %v", a, err)
		}
		pairs = append(pairs, protocol.Pair{Column: uint8(c), Row: uint8(r)})
	}
	return pairs, nil
}

func parseDirective(args []string) (protocol.Directive, error) {
	if len(args) == 0 {
		return protocol.Directive{}, fmt.Errorf("missing command name")
	}

	switch args[0] {
	case "off":
		return protocol.Directive{Action: protocol.ActionPiezosOff}, nil
	case "debug":
		return protocol.Directive{Action: protocol.ActionDebug}, nil
	case "reset":
		return protocol.Directive{Action: protocol.ActionReset}, nil
	case "on", "standby":
	default:
		return protocol.Directive{}, fmt.Errorf("unknown command %q (off, on, standby, debug, reset)", args[0])
	}

	if len(args) < 2 {
		return protocol.Directive{}, fmt.Errorf("%s: slave number required", args[0])
	}
	slave, err := strconv.Atoi(args[1])
	if err != nil || slave < 0 || slave >= protocol.MaxSlaves {
		return protocol.Directive{}, fmt.Errorf("%s: slave must be 0..%d", args[0], protocol.MaxSlaves-1)
	}

	mask := protocol.AllDrivers
	if len(args) > 2 {
		m, err := strconv.ParseUint(args[2], 0, 8)
		if err != nil {
			return protocol.Directive{}, fmt.Errorf("%s: mask: %v", args[0], err)
		}
		mask = uint8(m)
	}

	action := protocol.ActionDriversOn
	if args[0] == "standby" {
		action = protocol.ActionDriversOff
	}
	return protocol.Directive{Action: action, Slave: slave, DriverMask: mask}, nil
}
