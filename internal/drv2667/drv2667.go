// Package drv2667 configures DRV2667 piezo drivers sitting behind a
// one-hot I2C switch (TCA9548-style): each switch channel exposes one
// DRV2667 at the fixed Address.
package drv2667

import (
	"fmt"
	"strings"
)

// Address is the fixed I2C address of every DRV2667.
const Address uint16 = 0x59

// Channels is the number of switch channels (and drivers) per slave.
const Channels = 8

// Register addresses.
const (
	RegStatus   byte = 0x00
	RegControl1 byte = 0x01
	RegControl2 byte = 0x02
	RegFIFO     byte = 0x0B
	RegPage     byte = 0xFF
)

// Control 1 bits.
const (
	InputMux byte = 1 << 2
	Gain1    byte = 1 << 1
	Gain0    byte = 1 << 0
)

// Control 2 bits.
const (
	DevReset   byte = 1 << 7
	Standby    byte = 1 << 6
	Timeout1   byte = 1 << 3
	Timeout0   byte = 1 << 2
	EnOverride byte = 1 << 1
	Go         byte = 1 << 0
)

// Bus is the one I2C operation needed here. Both periph.io i2c.Bus and
// tinygo.org/x/drivers I2C satisfy it.
type Bus interface {
	Tx(addr uint16, w, r []byte) error
}

// Options selects the sequence run on every opened channel.
type Options struct {
	Reset bool
	On    bool
	Gain  uint8 // 0..3
}

// Result reports which channels completed their full sequence.
type Result struct {
	Channels uint8 // bit n set: channel n fully configured
	OK       bool  // every requested channel succeeded (logical AND)
}

// Tracef, when set, receives one line per bus step.
type Tracef func(format string, args ...any)

// Setup opens each channel selected by mask on the switch at switchAddr and
// runs the register sequence for opts on the DRV2667 behind it, then closes
// the switch. Every transaction is attempted; failures are collected, not
// retried. The whole call is exclusive with respect to other traffic on bus:
// callers must not interleave writes to the same switch.
func Setup(bus Bus, switchAddr uint16, mask uint8, opts Options, trace Tracef) (Result, error) {
	res := Result{OK: true}
	var errs []string

	tx := func(addr uint16, w []byte, what string) bool {
		if trace != nil {
			trace("i2c 0x%02X <- % X (%s)", addr, w, what)
		}
		if err := bus.Tx(addr, w, nil); err != nil {
			res.OK = false
			errs = append(errs, fmt.Sprintf("%s: %v", what, err))
			return false
		}
		return true
	}

	for ch := 0; ch < Channels; ch++ {
		if mask&(1<<ch) == 0 {
			continue
		}
		ok := tx(switchAddr, []byte{1 << ch}, fmt.Sprintf("switch 0x%02X open #%d", switchAddr, ch))
		for _, step := range Sequence(opts) {
			ok = tx(Address, step, fmt.Sprintf("ch%d reg 0x%02X", ch, step[0])) && ok
		}
		if ok {
			res.Channels |= 1 << ch
		}
	}

	tx(switchAddr, []byte{0}, fmt.Sprintf("switch 0x%02X close", switchAddr))

	if len(errs) > 0 {
		return res, fmt.Errorf("drv2667: %s", strings.Join(errs, " | "))
	}
	return res, nil
}

// Sequence returns the register writes ([reg, value]) for one driver.
func Sequence(opts Options) [][]byte {
	var seq [][]byte
	if opts.Reset {
		seq = append(seq, []byte{RegControl2, DevReset})
	}
	if opts.On {
		seq = append(seq,
			[]byte{RegControl2, Go},
			[]byte{RegControl1, InputMux | (opts.Gain & (Gain1 | Gain0))},
			[]byte{RegControl2, EnOverride},
		)
	} else {
		seq = append(seq, []byte{RegControl2, Standby})
	}
	return seq
}

// AllChannels selects every switch channel.
func AllChannels() uint8 { return 0xFF }
