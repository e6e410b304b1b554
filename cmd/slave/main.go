//go:build tinygo

// Slave firmware: receives piezo index lists over I2C and latches them into
// the shift-register chain.
//
//	tinygo flash -target=pico -ldflags="-X main.buildAddress=0x51" ./cmd/slave
package main

import (
	"fmt"
	"machine"
	"strconv"
	"time"

	"tinygo.org/x/drivers"

	"github.com/hsoundplane/soundplane/internal/shiftreg"
	"github.com/hsoundplane/soundplane/internal/slave"
)

// Set at compile time via -ldflags
// e.g. -ldflags="-X main.buildAddress=0x52 -X main.buildSwitch=0x72 -X main.buildPiezos=45 -X main.buildSPIMode=1"
var (
	buildAddress string
	buildSwitch  string
	buildPiezos  string
	buildSPIMode string
	buildDebug   string
)

// Board wiring (Pico).
const (
	pinTargetSDA = machine.GP4 // I2C0, from the master
	pinTargetSCL = machine.GP5
	pinDriverSDA = machine.GP6 // I2C1, to the switch and DRV2667s
	pinDriverSCL = machine.GP7
	pinSCK       = machine.GP18
	pinSDO       = machine.GP19
	pinSDI       = machine.GP16
	pinCLR       = machine.GP20
	pinLOAD      = machine.GP21
	pinActivity  = machine.GP14 // active low
	pinStatus    = machine.GP15 // active low
)

type settings struct {
	Address uint16
	Switch  uint16
	Width   int
	SPIMode uint8
	Debug   bool
}

func parseSettings() settings {
	s := settings{
		Address: 0x50,
		Switch:  0x70,
		Width:   shiftreg.Width72,
	}
	if v, err := strconv.ParseUint(buildAddress, 0, 7); err == nil {
		s.Address = uint16(v)
	}
	if v, err := strconv.ParseUint(buildSwitch, 0, 7); err == nil {
		s.Switch = uint16(v)
	} else {
		// switches follow slaves: 0x50 -> 0x70, 0x51 -> 0x71, ...
		s.Switch = 0x70 + (s.Address-0x50)&0x07
	}
	if buildPiezos == "45" {
		s.Width = shiftreg.Width45
	}
	if buildSPIMode == "1" {
		s.SPIMode = 1
	}
	s.Debug = buildDebug == "1" || buildDebug == "true"
	return s
}

func output(p machine.Pin, high bool) machine.Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Set(high)
	return p
}

func main() {
	cfg := parseSettings()

	clr := output(pinCLR, true)
	load := output(pinLOAD, true)
	activity := output(pinActivity, true)
	status := output(pinStatus, true)

	spi := machine.SPI0
	if err := spi.Configure(machine.SPIConfig{
		Frequency: 2_000_000,
		SCK:       pinSCK,
		SDO:       pinSDO,
		SDI:       pinSDI,
		Mode:      cfg.SPIMode,
	}); err != nil {
		fmt.Println("spi configure failed:", err)
	}

	shift, err := shiftreg.New(spi, clr, load, activity, shiftreg.Config{Width: cfg.Width})
	if err != nil {
		fmt.Println("shift register setup failed:", err)
		return
	}

	i2c1 := machine.I2C1
	if err := i2c1.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       pinDriverSDA,
		SCL:       pinDriverSCL,
	}); err != nil {
		fmt.Println("driver i2c configure failed:", err)
	}
	var driverBus drivers.I2C = i2c1

	// one slot per message in flight; index lists are at most 1+72 bytes
	queue := slave.NewRing(8, 1+cfg.Width)

	ctrl, err := slave.New(slave.Config{Address: cfg.Address, SwitchAddress: cfg.Switch}, shift, driverBus, status, queue)
	if err != nil {
		fmt.Println("controller setup failed:", err)
		return
	}
	ctrl.Debug = cfg.Debug
	ctrl.Logf = func(format string, args ...any) { fmt.Printf(format+"\n", args...) }

	// all contacts open until the master says otherwise
	if _, err := shift.Latch(nil); err != nil {
		fmt.Println("initial latch failed:", err)
	}

	target := machine.I2C0
	if err := target.Configure(machine.I2CConfig{
		Frequency: 400 * machine.KHz,
		SDA:       pinTargetSDA,
		SCL:       pinTargetSCL,
		Mode:      machine.I2CModeTarget,
	}); err != nil {
		fmt.Println("target i2c configure failed:", err)
		return
	}
	if err := target.Listen(cfg.Address); err != nil {
		fmt.Println("listen failed:", err)
		return
	}

	fmt.Printf("slave 0x%02X up (switch 0x%02X, %d contacts, spi mode %d)\n",
		cfg.Address, cfg.Switch, cfg.Width, cfg.SPIMode)

	go serveTarget(target, ctrl)

	for {
		if _, err := ctrl.Poll(); err != nil && cfg.Debug {
			fmt.Println("poll:", err)
		}
		time.Sleep(time.Millisecond)
	}
}

// serveTarget is the producer side: it only queues, never touches SPI.
func serveTarget(target *machine.I2C, ctrl *slave.Controller) {
	buf := make([]byte, 1+shiftreg.Width72)
	for {
		evt, n, err := target.WaitForEvent(buf)
		if err != nil {
			continue
		}
		switch evt {
		case machine.I2CReceive:
			if n > 0 && !ctrl.Receive(buf[:n]) {
				println("slave: queue full, message dropped")
			}
		case machine.I2CRequest:
			target.Reply(ctrl.ProbeReply())
		case machine.I2CFinish:
		}
	}
}
