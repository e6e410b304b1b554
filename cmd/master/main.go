// cmd/master/main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/hsoundplane/soundplane/internal/config"
	"github.com/hsoundplane/soundplane/internal/link"
	"github.com/hsoundplane/soundplane/internal/master"
	"github.com/hsoundplane/soundplane/internal/protocol"
	"github.com/hsoundplane/soundplane/internal/registry"
	"github.com/hsoundplane/soundplane/internal/writer"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: master <config.yaml>")
	}

	cfgPath := os.Args[1]

	// --------------------
	// Load + validate config
	// --------------------

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config load failed: %v", err)
	}

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("config validation failed: %v", err)
	}
	config.Normalize(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --------------------
	// Hardware
	// --------------------

	if _, err := host.Init(); err != nil {
		log.Fatalf("host init failed: %v", err)
	}

	bus, err := i2creg.Open(cfg.Master.I2C.Bus)
	if err != nil {
		log.Fatalf("i2c open failed (bus=%q): %v", cfg.Master.I2C.Bus, err)
	}
	defer bus.Close()

	speed := 100 * physic.KiloHertz
	if cfg.Master.I2C.FastMode {
		speed = 400 * physic.KiloHertz
	}
	if err := bus.SetSpeed(speed); err != nil {
		log.Printf("i2c speed %s not applied: %v", speed, err)
	}

	var indicator registry.Indicator
	if name := cfg.Master.Indicator.SetupPin; name != "" {
		ind, err := openIndicator(name)
		if err != nil {
			log.Fatalf("%v", err)
		}
		indicator = ind
	}

	// --------------------
	// Master + host link
	// --------------------

	m, err := master.Build(cfg, bus, indicator)
	if err != nil {
		log.Fatalf("master build failed: %v", err)
	}

	lnk, closeLink, err := link.Build(cfg.Master)
	if err != nil {
		log.Fatalf("serial open failed (port=%s): %v", cfg.Master.Serial.Port, err)
	}
	defer closeLink()

	// Status writer (optional)
	statusWriter, closeStatus, statusEnabled, err := writer.BuildStatusWriter(cfg.Status)
	if err != nil {
		log.Fatalf("status writer failed: %v", err)
	}
	defer closeStatus()

	health := master.NewHealth()
	publish := func(what string) {
		if !statusEnabled {
			return
		}
		if err := statusWriter.WriteStatus(health.Snapshot()); err != nil {
			log.Printf("status write failed (%s): %v", what, err)
		}
	}

	// Full block write on start (identity re-assert) if enabled.
	publish("start")

	// --------------------
	// Registration + driver setup
	// --------------------

	// slaves boot slower than the master
	time.Sleep(time.Duration(cfg.Master.StartupWaitMs) * time.Millisecond)

	reset := cfg.Master.Setup.Reset == nil || *cfg.Master.Setup.Reset
	n, err := m.Start(reset)
	if err != nil {
		log.Printf("setup: %v", err)
	}
	log.Printf("%d of %d slaves available (mask=0x%X, set up=0x%X)",
		n, len(cfg.Master.Slaves), m.Registry().AvailableMask(), m.Registry().SetupMask())

	if health.Observe(m, errorCode(err)) {
		publish("setup")
	}

	// --------------------
	// Cycle loop (runner-owned state + 1Hz seconds ticker)
	// --------------------

	out := make(chan link.FrameResult)
	go lnk.Run(ctx, out)

	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Printf("shutting down")
			return

		case res := <-out:
			if res.Err != nil {
				log.Printf("serial link error (port=%s): %v", cfg.Master.Serial.Port, res.Err)
				if errors.Is(res.Err, link.ErrClosed) {
					return
				}
			}
			if len(res.Frame) == 0 {
				continue
			}

			err := m.HandleFrame(res.Frame)
			if err != nil {
				log.Printf("frame %d: %v", res.Seq, err)
			}

			if health.Observe(m, errorCode(err)) {
				publish("cycle")
			}

		case <-secTicker.C:
			// Tick 1 Hz while not OK.
			if health.Tick() {
				publish("seconds tick")
			}
		}
	}
}

// errorCode extracts a best-effort uint16 code from an error without assuming concrete types.
// If the error does not expose a code, it is reported as a bus failure.
func errorCode(err error) uint16 {
	if err == nil {
		return 0
	}

	type coderA interface{ Code() uint16 }
	type coderB interface{ ErrorCode() uint16 }

	var a coderA
	if errors.As(err, &a) {
		return a.Code()
	}
	var b coderB
	if errors.As(err, &b) {
		return b.ErrorCode()
	}

	return uint16(protocol.CodeBus)
}
