// Package link reads command frames from the host serial port.
package link

import (
	"errors"
	"io"
	"sync"
	"time"

	"github.com/goburrow/serial"

	"github.com/hsoundplane/soundplane/internal/protocol"
)

// FrameResult is one frame as cut from the serial stream.
// Frame may be short or malformed: the parser decides. Err is set only for
// transport failures, never for an idle line.
type FrameResult struct {
	Seq   uint32
	At    time.Time
	Frame []byte
	Err   error
}

// Config is the minimal runtime config the link needs.
type Config struct {
	Framing  protocol.Framing
	MaxPairs int
	Retry    time.Duration // wait before reopening a dead port
}

// Link is a dumb frame producer. It owns the port lifecycle: a port that
// fails with anything but a read timeout is closed and reopened through
// factory on a later read.
type Link struct {
	cfg     Config
	factory func() (io.ReadCloser, error)

	mu     sync.Mutex
	port   io.ReadCloser
	reader *protocol.Reader
	closed bool
	seq    uint32
}

// New creates a link over an open port. factory may be nil, in which case
// a dead port ends the link.
func New(cfg Config, port io.ReadCloser, factory func() (io.ReadCloser, error)) (*Link, error) {
	if port == nil && factory == nil {
		return nil, errors.New("link: port or factory required")
	}
	if cfg.Retry <= 0 {
		cfg.Retry = time.Second
	}
	l := &Link{cfg: cfg, factory: factory}
	if port != nil {
		l.attach(port)
	}
	return l, nil
}

func (l *Link) attach(port io.ReadCloser) {
	l.port = port
	l.reader = protocol.NewReader(port, l.cfg.Framing, l.cfg.MaxPairs)
}

// ReadOnce blocks for at most one port timeout. ok is false when the line
// stayed idle and there is nothing to report.
func (l *Link) ReadOnce() (res FrameResult, ok bool) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return FrameResult{At: time.Now(), Err: ErrClosed}, true
	}
	if l.port == nil {
		if l.factory == nil {
			l.mu.Unlock()
			return FrameResult{At: time.Now(), Err: ErrClosed}, true
		}
		port, err := l.factory()
		if err != nil {
			l.mu.Unlock()
			return FrameResult{At: time.Now(), Err: err}, true
		}
		l.attach(port)
	}
	reader := l.reader
	l.mu.Unlock()

	frame, err := reader.ReadFrame()
	if err != nil && isIdle(err) {
		err = nil
	}
	if err != nil {
		l.drop()
	}
	if len(frame) == 0 && err == nil {
		return FrameResult{}, false
	}

	l.seq++
	return FrameResult{Seq: l.seq, At: time.Now(), Frame: frame, Err: err}, true
}

// Close stops the link and closes the current port.
func (l *Link) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	if l.port == nil {
		return nil
	}
	err := l.port.Close()
	l.port, l.reader = nil, nil
	return err
}

// Dead reports whether the link currently has no open port.
func (l *Link) Dead() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.port == nil
}

func (l *Link) drop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.port != nil {
		l.port.Close()
	}
	l.port, l.reader = nil, nil
}

// ErrClosed is reported once the link has no port and cannot reopen one.
var ErrClosed = errors.New("link: closed")

func isIdle(err error) bool {
	return errors.Is(err, serial.ErrTimeout)
}
