package protocol

import (
	"bufio"
	"io"
)

// Reader cuts a serial byte stream into frames for Parser.
//
// Counted framing reads the count byte and then 2×count bytes; a read error
// in between (typically the port's inter-byte timeout) returns the short
// frame together with the error so that it parses to SERR_MISMATCH.
//
// Marked framing skips bytes until START and collects up to STOP. A frame
// longer than the largest legal one is returned without STOP.
type Reader struct {
	br      *bufio.Reader
	framing Framing
	maxLen  int
}

// NewReader wraps r. maxPairs bounds marked frames.
func NewReader(r io.Reader, framing Framing, maxPairs int) *Reader {
	if maxPairs <= 0 {
		maxPairs = 255
	}
	return &Reader{
		br:      bufio.NewReader(r),
		framing: framing,
		// START + count + pairs + STOP
		maxLen: 1 + 1 + 2*maxPairs + 1,
	}
}

// ReadFrame returns the next frame. A non-empty frame may come with a
// non-nil error.
func (fr *Reader) ReadFrame() ([]byte, error) {
	if fr.framing == Marked {
		return fr.readMarked()
	}
	return fr.readCounted()
}

func (fr *Reader) readCounted() ([]byte, error) {
	count, err := fr.br.ReadByte()
	if err != nil {
		return nil, err
	}
	frame := make([]byte, 1+2*int(count))
	frame[0] = count
	n, err := io.ReadFull(fr.br, frame[1:])
	if err != nil {
		return frame[:1+n], err
	}
	return frame, nil
}

func (fr *Reader) readMarked() ([]byte, error) {
	for {
		b, err := fr.br.ReadByte()
		if err != nil {
			return nil, err
		}
		if b == StartMarker {
			break
		}
	}

	frame := []byte{StartMarker}
	for len(frame) < fr.maxLen {
		b, err := fr.br.ReadByte()
		if err != nil {
			return frame, err
		}
		frame = append(frame, b)
		if b == StopMarker {
			return frame, nil
		}
	}
	return frame, nil
}
