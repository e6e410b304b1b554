package link

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/goburrow/serial"

	"github.com/hsoundplane/soundplane/internal/protocol"
)

// scriptedPort returns chunks in order, then the terminal error forever.
type scriptedPort struct {
	chunks [][]byte
	errs   []error // errs[i] accompanies chunks[i]
	end    error
	closed bool
}

func (p *scriptedPort) Read(b []byte) (int, error) {
	if len(p.chunks) == 0 {
		return 0, p.end
	}
	c, err := p.chunks[0], p.errs[0]
	n := copy(b, c)
	if n < len(c) {
		p.chunks[0] = c[n:]
		return n, nil
	}
	p.chunks, p.errs = p.chunks[1:], p.errs[1:]
	return n, err
}

func (p *scriptedPort) Close() error {
	p.closed = true
	return nil
}

func TestReadOnce_IdleLineReportsNothing(t *testing.T) {
	port := &scriptedPort{end: serial.ErrTimeout}
	l, err := New(Config{Framing: protocol.Marked, MaxPairs: 16}, port, nil)
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	if _, ok := l.ReadOnce(); ok {
		t.Fatalf("idle line must not produce a result")
	}
	if port.closed {
		t.Fatalf("timeout must not close the port")
	}
}

func TestReadOnce_MarkedFrame(t *testing.T) {
	port := &scriptedPort{
		chunks: [][]byte{{0x00, 0xFD, 0x01, 0x03, 0x04, 0xFF}},
		errs:   []error{nil},
		end:    serial.ErrTimeout,
	}
	l, _ := New(Config{Framing: protocol.Marked, MaxPairs: 16}, port, nil)

	res, ok := l.ReadOnce()
	if !ok || res.Err != nil {
		t.Fatalf("expected frame, ok=%v err=%v", ok, res.Err)
	}
	if !bytes.Equal(res.Frame, []byte{0xFD, 0x01, 0x03, 0x04, 0xFF}) {
		t.Fatalf("unexpected frame % X", res.Frame)
	}
	if res.Seq != 1 {
		t.Fatalf("seq=%d", res.Seq)
	}
}

func TestReadOnce_ShortCountedFrameDelivered(t *testing.T) {
	// count says 2 pairs, only one arrives before the gap
	port := &scriptedPort{
		chunks: [][]byte{{0x02, 0x01, 0x01}},
		errs:   []error{serial.ErrTimeout},
		end:    serial.ErrTimeout,
	}
	l, _ := New(Config{Framing: protocol.Counted, MaxPairs: 16}, port, nil)

	res, ok := l.ReadOnce()
	if !ok {
		t.Fatalf("short frame must be delivered")
	}
	if res.Err != nil {
		t.Fatalf("timeout is not a transport error: %v", res.Err)
	}

	p := protocol.Parser{Framing: protocol.Counted, MaxPairs: 16, Threshold: 200}
	if _, err := p.Parse(res.Frame); !errors.Is(err, protocol.ErrMismatch) {
		t.Fatalf("expected SERR_MISMATCH, got %v", err)
	}
}

func TestReadOnce_DeadPortIsReopened(t *testing.T) {
	first := &scriptedPort{end: io.EOF}
	second := &scriptedPort{
		chunks: [][]byte{{0x00}},
		errs:   []error{nil},
		end:    serial.ErrTimeout,
	}

	opened := 0
	factory := func() (io.ReadCloser, error) {
		opened++
		return second, nil
	}

	l, _ := New(Config{Framing: protocol.Counted, MaxPairs: 16}, first, factory)

	res, ok := l.ReadOnce()
	if !ok || !errors.Is(res.Err, io.EOF) {
		t.Fatalf("expected transport error, ok=%v err=%v", ok, res.Err)
	}
	if !first.closed || !l.Dead() {
		t.Fatalf("dead port must be dropped")
	}

	res, ok = l.ReadOnce()
	if !ok || res.Err != nil {
		t.Fatalf("expected frame after reopen, ok=%v err=%v", ok, res.Err)
	}
	if opened != 1 {
		t.Fatalf("factory called %d times", opened)
	}
	if !bytes.Equal(res.Frame, []byte{0x00}) {
		t.Fatalf("unexpected frame % X", res.Frame)
	}
}

func TestRun_EmitsInOrderAndStopsWhenClosed(t *testing.T) {
	port := &scriptedPort{
		chunks: [][]byte{{0x01, 0x00, 0x00}, {0x00}},
		errs:   []error{nil, nil},
		end:    io.EOF,
	}
	l, _ := New(Config{Framing: protocol.Counted, MaxPairs: 16, Retry: time.Millisecond}, port, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	out := make(chan FrameResult, 8)
	done := make(chan struct{})
	go func() {
		l.Run(ctx, out)
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("Run did not stop")
	}
	close(out)

	var got []FrameResult
	for r := range out {
		got = append(got, r)
	}
	if len(got) != 4 {
		t.Fatalf("expected 2 frames, EOF, closed; got %d results", len(got))
	}
	if got[0].Seq != 1 || got[1].Seq != 2 {
		t.Fatalf("frames out of order: %d %d", got[0].Seq, got[1].Seq)
	}
	if !errors.Is(got[2].Err, io.EOF) || !errors.Is(got[3].Err, ErrClosed) {
		t.Fatalf("unexpected tail: %v, %v", got[2].Err, got[3].Err)
	}
}
