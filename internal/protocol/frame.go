package protocol

import (
	"fmt"
	"strings"
)

// Framing selects how serial frames are delimited.
type Framing int

const (
	// Counted frames are [count][col,row]×count with no terminator.
	Counted Framing = iota
	// Marked frames are [0xFD] ... [0xFF].
	Marked
)

// ParseFraming accepts "counted" or "marked".
func ParseFraming(s string) (Framing, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "counted":
		return Counted, nil
	case "marked":
		return Marked, nil
	}
	return 0, fmt.Errorf("protocol: unknown framing %q", s)
}

func (f Framing) String() string {
	switch f {
	case Counted:
		return "counted"
	case Marked:
		return "marked"
	default:
		return fmt.Sprintf("framing(%d)", int(f))
	}
}

// Pair is one (column, row) coordinate as received from the host.
type Pair struct {
	Column uint8
	Row    uint8
}

// Command is the result of parsing one frame.
// Exactly one of Pairs or Directive is meaningful: Directive != nil marks a
// control frame.
type Command struct {
	Pairs     []Pair
	Directive *Directive
}

// Parser turns complete frames into Commands.
// Parsing has no side effects; no bus I/O happens here.
type Parser struct {
	Framing   Framing
	MaxPairs  int
	Threshold uint8
}

// Parse decodes one frame.
// On any error the frame must be discarded without distribution.
func (p Parser) Parse(frame []byte) (Command, error) {
	switch p.Framing {
	case Counted:
		return p.parseCounted(frame)
	case Marked:
		return p.parseMarked(frame)
	}
	return Command{}, fmt.Errorf("protocol: unknown framing %v", p.Framing)
}

func (p Parser) parseCounted(frame []byte) (Command, error) {
	if len(frame) == 0 {
		return Command{}, Errorf(CodeMismatch, "empty frame")
	}
	count := int(frame[0])
	body := frame[1:]

	// A command occupies the single pair slot: [1][sentinel][opcode].
	if count == 1 && len(body) == 2 && body[0] >= p.Threshold {
		d, err := DecodeOpcode(body[1], AllDrivers)
		if err != nil {
			return Command{}, err
		}
		return Command{Directive: &d}, nil
	}
	return p.parsePairs(count, body)
}

func (p Parser) parseMarked(frame []byte) (Command, error) {
	if len(frame) == 0 || frame[0] != StartMarker {
		return Command{}, Errorf(CodeCRLF, "missing start marker")
	}
	if len(frame) < 2 || frame[len(frame)-1] != StopMarker {
		return Command{}, Errorf(CodeCRLF, "missing stop marker")
	}
	body := frame[1 : len(frame)-1]
	if len(body) == 0 {
		return Command{}, Errorf(CodeMismatch, "empty frame")
	}

	if body[0] >= p.Threshold {
		switch len(body) {
		case 2:
			d, err := DecodeOpcode(body[1], AllDrivers)
			if err != nil {
				return Command{}, err
			}
			return Command{Directive: &d}, nil
		case 3:
			d, err := DecodeOpcode(body[1], body[2])
			if err != nil {
				return Command{}, err
			}
			return Command{Directive: &d}, nil
		default:
			return Command{}, Errorf(CodeMismatch, "command frame with %d bytes", len(body))
		}
	}
	return p.parsePairs(int(body[0]), body[1:])
}

func (p Parser) parsePairs(count int, body []byte) (Command, error) {
	if p.MaxPairs > 0 && count > p.MaxPairs {
		return Command{}, Errorf(CodeOverflow, "frame declares %d pairs, max %d", count, p.MaxPairs)
	}
	if len(body) != 2*count {
		return Command{}, Errorf(CodeMismatch, "declared %d pairs, got %d bytes", count, len(body))
	}

	pairs := make([]Pair, 0, count)
	for i := 0; i < count; i++ {
		col, row := body[2*i], body[2*i+1]
		if col >= p.Threshold {
			return Command{}, Errorf(CodeOpcode, "command sentinel 0x%02X at pair %d", col, i)
		}
		pairs = append(pairs, Pair{Column: col, Row: row})
	}
	return Command{Pairs: pairs}, nil
}
