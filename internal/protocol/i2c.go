package protocol

// I2C message headers (master -> slave).
const (
	HeaderIndexSet   byte = 0xFD // I2C_REGISTER_SET
	HeaderInitNotify byte = 0xFE // I2C_INIT_NOTIFY
)

// MaxGain is the largest DRV2667 gain selector.
const MaxGain uint8 = 3

// InitSettings is the payload of an init-notify message: the DRV2667
// sequence the slave should run on its own bus.
type InitSettings struct {
	Reset bool
	On    bool
	Gain  uint8
	Mask  uint8 // bit n: driver n behind the slave's switch
}

// MessageKind distinguishes I2C messages.
type MessageKind int

const (
	MessageIndexSet MessageKind = iota
	MessageInitNotify
)

// Message is a decoded master -> slave I2C write.
type Message struct {
	Kind    MessageKind
	Indices []uint8
	Init    InitSettings
}

// IndexSetMessage encodes [0xFD][idx...]. An empty list is a valid message
// that turns every piezo of the slave off.
func IndexSetMessage(indices []uint8) []byte {
	msg := make([]byte, 0, 1+len(indices))
	msg = append(msg, HeaderIndexSet)
	return append(msg, indices...)
}

// InitNotifyMessage encodes [0xFE][reset][on][gain][mask].
func InitNotifyMessage(s InitSettings) []byte {
	return []byte{HeaderInitNotify, boolToByte(s.Reset), boolToByte(s.On), s.Gain & MaxGain, s.Mask}
}

// DecodeMessage is the slave-side inverse of the encoders above.
func DecodeMessage(b []byte) (Message, error) {
	if len(b) == 0 {
		return Message{}, Errorf(CodeMismatch, "empty i2c message")
	}
	switch b[0] {
	case HeaderIndexSet:
		idx := make([]uint8, len(b)-1)
		copy(idx, b[1:])
		return Message{Kind: MessageIndexSet, Indices: idx}, nil
	case HeaderInitNotify:
		// the mask byte is optional: without it every driver is addressed
		if len(b) != 4 && len(b) != 5 {
			return Message{}, Errorf(CodeMismatch, "init notify with %d bytes", len(b))
		}
		if b[3] > MaxGain {
			return Message{}, Errorf(CodeOpcode, "gain %d out of range", b[3])
		}
		mask := AllDrivers
		if len(b) == 5 {
			mask = b[4]
		}
		return Message{
			Kind: MessageInitNotify,
			Init: InitSettings{Reset: b[1] != 0, On: b[2] != 0, Gain: b[3], Mask: mask},
		}, nil
	}
	return Message{}, Errorf(CodeOpcode, "unknown i2c header 0x%02X", b[0])
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
