package link

import (
	"io"
	"time"

	"github.com/goburrow/serial"

	cfg "github.com/hsoundplane/soundplane/internal/config"
	"github.com/hsoundplane/soundplane/internal/protocol"
)

// OpenPort opens the host serial port, 8N1. The timeout bounds each read:
// it is the inter-byte gap that ends a short frame.
func OpenPort(s cfg.SerialConfig) (io.ReadWriteCloser, error) {
	return serial.Open(&serial.Config{
		Address:  s.Port,
		BaudRate: s.Baud,
		DataBits: 8,
		StopBits: 1,
		Parity:   "N",
		Timeout:  time.Duration(s.TimeoutMs) * time.Millisecond,
	})
}

// Build opens the configured port and wires the reopen factory.
// Open is attempted once here so a bad port name fails at startup.
func Build(m cfg.MasterConfig) (*Link, func() error, error) {
	framing, err := protocol.ParseFraming(m.Serial.Framing)
	if err != nil {
		return nil, nil, err
	}

	factory := func() (io.ReadCloser, error) {
		return OpenPort(m.Serial)
	}

	port, err := factory()
	if err != nil {
		return nil, nil, err
	}

	l, err := New(Config{
		Framing:  framing,
		MaxPairs: m.Layout.MaxCoordPairs,
	}, port, factory)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	return l, l.Close, nil
}
