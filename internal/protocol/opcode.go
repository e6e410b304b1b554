package protocol

import "fmt"

// Serial frame markers (marked framing).
const (
	StartMarker byte = 0xFD
	StopMarker  byte = 0xFF
)

// DefaultCommandThreshold is the first column value treated as a command
// sentinel instead of a coordinate.
const DefaultCommandThreshold uint8 = 200

// MaxSlaves is the largest number of slaves a master can address.
const MaxSlaves = 4

// AllDrivers selects all eight DRV2667 behind a slave's switch.
const AllDrivers uint8 = 0xFF

// Opcode is the control byte following a command sentinel.
//
// The set is closed: anything not listed below is rejected.
type Opcode uint8

const (
	OpPiezosOff      Opcode = 0x00 // SCMD_POFF_ALL
	opDriversOnBase  Opcode = 0x10 // SCMD_DON_S<n> = 0x10 + n
	opDriversOffBase Opcode = 0x20 // SCMD_DOFF_S<n> = 0x20 + n
	OpDebug          Opcode = 0x30 // SCMD_DEBUG
	OpReset          Opcode = 0x31 // SCMD_RESET
)

// Action is what a control directive asks the master to do.
type Action int

const (
	ActionPiezosOff Action = iota
	ActionDriversOn
	ActionDriversOff
	ActionDebug
	ActionReset
)

func (a Action) String() string {
	switch a {
	case ActionPiezosOff:
		return "piezos-off"
	case ActionDriversOn:
		return "drivers-on"
	case ActionDriversOff:
		return "drivers-off"
	case ActionDebug:
		return "debug"
	case ActionReset:
		return "reset"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Directive is a decoded control frame.
type Directive struct {
	Action     Action
	Slave      int   // only for ActionDriversOn / ActionDriversOff
	DriverMask uint8 // only for ActionDriversOn / ActionDriversOff
}

// DriversOn returns the opcode switching on the drivers of slave n.
func DriversOn(n int) Opcode { return opDriversOnBase + Opcode(n) }

// DriversOff returns the opcode putting the drivers of slave n in standby.
func DriversOff(n int) Opcode { return opDriversOffBase + Opcode(n) }

// DecodeOpcode maps an opcode (plus optional driver mask) onto a Directive.
func DecodeOpcode(op byte, mask uint8) (Directive, error) {
	o := Opcode(op)
	switch {
	case o == OpPiezosOff:
		return Directive{Action: ActionPiezosOff}, nil
	case o == OpDebug:
		return Directive{Action: ActionDebug}, nil
	case o == OpReset:
		return Directive{Action: ActionReset}, nil
	case o >= opDriversOnBase && o < opDriversOnBase+MaxSlaves:
		return Directive{Action: ActionDriversOn, Slave: int(o - opDriversOnBase), DriverMask: mask}, nil
	case o >= opDriversOffBase && o < opDriversOffBase+MaxSlaves:
		return Directive{Action: ActionDriversOff, Slave: int(o - opDriversOffBase), DriverMask: mask}, nil
	}
	return Directive{}, Errorf(CodeOpcode, "unknown opcode 0x%02X", op)
}

// Opcode returns the wire opcode for d.
func (d Directive) Opcode() (Opcode, error) {
	switch d.Action {
	case ActionPiezosOff:
		return OpPiezosOff, nil
	case ActionDebug:
		return OpDebug, nil
	case ActionReset:
		return OpReset, nil
	case ActionDriversOn, ActionDriversOff:
		if d.Slave < 0 || d.Slave >= MaxSlaves {
			return 0, Errorf(CodeOpcode, "slave %d out of range", d.Slave)
		}
		if d.Action == ActionDriversOn {
			return DriversOn(d.Slave), nil
		}
		return DriversOff(d.Slave), nil
	}
	return 0, Errorf(CodeOpcode, "unknown action %v", d.Action)
}

func (d Directive) String() string {
	switch d.Action {
	case ActionDriversOn, ActionDriversOff:
		return fmt.Sprintf("%s(slave=%d mask=0x%02X)", d.Action, d.Slave, d.DriverMask)
	default:
		return d.Action.String()
	}
}
