// Package modbus is the status endpoint transport: holding-register writes
// over Modbus TCP.
package modbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goburrow/modbus"
)

// MaxWriteQuantity is the FC 16 register limit per request.
const MaxWriteQuantity = 123

// Session is one TCP connection to a status endpoint. Requests are
// serialized: the unit id lives on the shared handler.
type Session struct {
	mu   sync.Mutex
	tcp  *modbus.TCPClientHandler
	regs modbus.Client
}

// Dial connects to endpoint (host:port). The first connection is made here
// so a wrong endpoint fails at startup.
func Dial(endpoint string, timeout time.Duration) (*Session, error) {
	if endpoint == "" {
		return nil, errors.New("writer modbus: endpoint required")
	}

	h := modbus.NewTCPClientHandler(endpoint)
	h.Timeout = timeout
	h.IdleTimeout = 0

	if err := h.Connect(); err != nil {
		return nil, fmt.Errorf("writer modbus: dial %s: %w", endpoint, err)
	}
	return &Session{tcp: h, regs: modbus.NewClient(h)}, nil
}

// WriteRegisters writes regs at addr on unitID. A single register goes out
// as FC 6, a run as FC 16. A failed request drops the connection; the next
// one redials.
func (s *Session) WriteRegisters(unitID uint8, addr uint16, regs []uint16) error {
	if len(regs) == 0 || len(regs) > MaxWriteQuantity {
		return fmt.Errorf("writer modbus: %d registers, want 1..%d", len(regs), MaxWriteQuantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tcp.SlaveId = unitID

	var err error
	if len(regs) == 1 {
		_, err = s.regs.WriteSingleRegister(addr, regs[0])
	} else {
		_, err = s.regs.WriteMultipleRegisters(addr, uint16(len(regs)), encodeWords(regs))
	}
	if err != nil {
		s.tcp.Close()
	}
	return err
}

// Close releases the connection.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tcp.Close()
}

func encodeWords(regs []uint16) []byte {
	out := make([]byte, 2*len(regs))
	for i, r := range regs {
		binary.BigEndian.PutUint16(out[2*i:], r)
	}
	return out
}
