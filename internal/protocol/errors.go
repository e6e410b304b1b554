package protocol

import "fmt"

// Code is the numeric error class reported by the master for a rejected
// frame or a failed cycle. Codes are stable: they are exported verbatim into
// the status block.
type Code uint16

const (
	CodeOK       Code = 0
	CodeMismatch Code = 1 // SERR_MISMATCH: declared length does not match payload
	CodeCRLF     Code = 2 // SERR_CRLF: missing or misplaced frame terminator
	CodeCoord    Code = 3 // SERR_COORD: coordinate outside the configured device
	CodeOverflow Code = 4 // SERR_OVERFLOW: more pairs than a frame or slave can hold
	CodeOpcode   Code = 5 // SERR_OPCODE: unknown or misplaced control opcode
	CodeBus      Code = 6 // SERR_BUS: I2C/SPI transaction failed
)

func (c Code) String() string {
	switch c {
	case CodeOK:
		return "OK"
	case CodeMismatch:
		return "SERR_MISMATCH"
	case CodeCRLF:
		return "SERR_CRLF"
	case CodeCoord:
		return "SERR_COORD"
	case CodeOverflow:
		return "SERR_OVERFLOW"
	case CodeOpcode:
		return "SERR_OPCODE"
	case CodeBus:
		return "SERR_BUS"
	default:
		return fmt.Sprintf("SERR_%d", uint16(c))
	}
}

// Error is a protocol error with a stable code.
type Error struct {
	Code Code
	Msg  string
}

// Sentinels for errors.Is. Any *Error with the same code matches.
var (
	ErrMismatch = &Error{Code: CodeMismatch}
	ErrCRLF     = &Error{Code: CodeCRLF}
	ErrCoord    = &Error{Code: CodeCoord}
	ErrOverflow = &Error{Code: CodeOverflow}
	ErrOpcode   = &Error{Code: CodeOpcode}
	ErrBus      = &Error{Code: CodeBus}
)

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return e.Code.String() + ": " + e.Msg
}

// ErrorCode exposes the code to generic extractors.
func (e *Error) ErrorCode() uint16 {
	return uint16(e.Code)
}

// Is matches sentinels by code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Errorf builds an *Error with a formatted message.
func Errorf(code Code, format string, args ...any) error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}
