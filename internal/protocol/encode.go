package protocol

import "fmt"

// EncodeCoordinates builds a coordinate frame for the given framing.
func EncodeCoordinates(f Framing, pairs []Pair) ([]byte, error) {
	if len(pairs) > 0xFF {
		return nil, Errorf(CodeOverflow, "%d pairs do not fit a frame", len(pairs))
	}
	body := make([]byte, 0, 1+2*len(pairs))
	body = append(body, byte(len(pairs)))
	for _, p := range pairs {
		body = append(body, p.Column, p.Row)
	}
	return wrap(f, body)
}

// EncodeDirective builds a control frame. The sentinel is the threshold
// value itself. In marked framing a driver mask other than AllDrivers is
// appended.
func EncodeDirective(f Framing, threshold uint8, d Directive) ([]byte, error) {
	op, err := d.Opcode()
	if err != nil {
		return nil, err
	}
	switch f {
	case Counted:
		if (d.Action == ActionDriversOn || d.Action == ActionDriversOff) && d.DriverMask != AllDrivers {
			return nil, fmt.Errorf("protocol: counted framing cannot carry driver mask 0x%02X", d.DriverMask)
		}
		return []byte{1, threshold, byte(op)}, nil
	case Marked:
		body := []byte{threshold, byte(op)}
		if (d.Action == ActionDriversOn || d.Action == ActionDriversOff) && d.DriverMask != AllDrivers {
			body = append(body, d.DriverMask)
		}
		return wrap(f, body)
	}
	return nil, fmt.Errorf("protocol: unknown framing %v", f)
}

func wrap(f Framing, body []byte) ([]byte, error) {
	switch f {
	case Counted:
		return body, nil
	case Marked:
		out := make([]byte, 0, len(body)+2)
		out = append(out, StartMarker)
		out = append(out, body...)
		return append(out, StopMarker), nil
	}
	return nil, fmt.Errorf("protocol: unknown framing %v", f)
}
