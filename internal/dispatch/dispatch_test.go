package dispatch

import (
	"bytes"
	"errors"
	"testing"

	"github.com/hsoundplane/soundplane/internal/protocol"
)

type write struct {
	addr uint16
	data []byte
}

type fakeBus struct {
	writes []write
	nak    map[uint16]bool
}

func (f *fakeBus) Tx(addr uint16, w, r []byte) error {
	f.writes = append(f.writes, write{addr: addr, data: append([]byte(nil), w...)})
	if f.nak[addr] {
		return errors.New("nak")
	}
	return nil
}

var addrs = []uint16{0x50, 0x51, 0x52, 0x53}

func TestDispatch_OneWritePerAvailableSlave(t *testing.T) {
	bus := &fakeBus{}
	d, err := New(bus, addrs)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	indices := [][]uint8{{0, 9}, {13}, nil, {}}
	acked, err := d.Dispatch(indices, []bool{true, true, false, true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if acked != 0x0B {
		t.Fatalf("unexpected ack mask 0x%02X", acked)
	}
	if len(bus.writes) != 3 {
		t.Fatalf("expected 3 writes, got %d", len(bus.writes))
	}
	for _, w := range bus.writes {
		if w.addr == 0x52 {
			t.Fatalf("unavailable slave addressed")
		}
	}
	if !bytes.Equal(bus.writes[0].data, []byte{protocol.HeaderIndexSet, 0, 9}) {
		t.Fatalf("unexpected slave 0 message: % X", bus.writes[0].data)
	}
	if !bytes.Equal(bus.writes[2].data, []byte{protocol.HeaderIndexSet}) {
		t.Fatalf("empty list must still be sent, got % X", bus.writes[2].data)
	}
}

func TestDispatch_NakReported(t *testing.T) {
	bus := &fakeBus{nak: map[uint16]bool{0x51: true}}
	d, _ := New(bus, addrs[:2])

	acked, err := d.Dispatch([][]uint8{{1}, {2}}, []bool{true, true})
	if !errors.Is(err, protocol.ErrBus) {
		t.Fatalf("expected SERR_BUS, got %v", err)
	}
	if acked != 0x01 {
		t.Fatalf("unexpected ack mask 0x%02X", acked)
	}
}

func TestClear(t *testing.T) {
	bus := &fakeBus{}
	d, _ := New(bus, addrs[:2])

	if _, err := d.Clear([]bool{true, true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, w := range bus.writes {
		if len(w.data) != 1 {
			t.Fatalf("clear must send header only, got % X", w.data)
		}
	}
}
