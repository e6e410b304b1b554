package shiftreg

import (
	"fmt"
	"strings"

	"github.com/hsoundplane/soundplane/internal/protocol"
)

// Supported chain widths.
const (
	Width72 = 72 // 8 columns × 9 contacts
	Width45 = 45 // 5 columns × 9 contacts
)

const maxWidth = 96

// Bitmask is the content of a slave's shift-register chain. Bit i drives
// contact i. The hardware is active low: 1 leaves a contact open, 0
// connects it.
type Bitmask struct {
	words [3]uint32
	width int
}

// NewBitmask returns an all-inactive mask.
func NewBitmask(width int) (Bitmask, error) {
	if width <= 0 || width > maxWidth {
		return Bitmask{}, fmt.Errorf("shiftreg: width %d outside 1..%d", width, maxWidth)
	}
	return Bitmask{
		words: [3]uint32{0xFFFFFFFF, 0xFFFFFFFF, 0xFFFFFFFF},
		width: width,
	}, nil
}

// FromIndices builds a mask with every listed contact active. Indices
// outside the width are ignored and reported as SERR_COORD; the rest of the
// mask is still valid.
func FromIndices(width int, indices []uint8) (Bitmask, error) {
	m, err := NewBitmask(width)
	if err != nil {
		return m, err
	}
	var bad []string
	for _, idx := range indices {
		if err := m.Activate(int(idx)); err != nil {
			bad = append(bad, fmt.Sprint(idx))
		}
	}
	if len(bad) > 0 {
		return m, protocol.Errorf(protocol.CodeCoord, "indices %s outside 0..%d", strings.Join(bad, ","), width-1)
	}
	return m, nil
}

// Width is the number of addressable contacts.
func (m Bitmask) Width() int { return m.width }

// Activate clears bit index (contact connected).
func (m *Bitmask) Activate(index int) error {
	if index < 0 || index >= m.width {
		return protocol.Errorf(protocol.CodeCoord, "index %d outside 0..%d", index, m.width-1)
	}
	m.words[index/32] &^= 1 << (index % 32)
	return nil
}

// IsActive reports whether contact index is connected.
func (m Bitmask) IsActive(index int) bool {
	if index < 0 || index >= m.width {
		return false
	}
	return m.words[index/32]&(1<<(index%32)) == 0
}

// Active lists the connected contacts in ascending order.
func (m Bitmask) Active() []int {
	var out []int
	for i := 0; i < m.width; i++ {
		if m.IsActive(i) {
			out = append(out, i)
		}
	}
	return out
}

// Words returns the 32-bit words, least significant first.
func (m Bitmask) Words() [3]uint32 { return m.words }

// Bytes returns the shift-out sequence: ceil(width/8) bytes, most
// significant byte first, so that bit 0 ends up in the last register of
// the chain.
func (m Bitmask) Bytes() []byte {
	n := (m.width + 7) / 8
	out := make([]byte, n)
	for k := 0; k < n; k++ {
		out[n-1-k] = byte(m.words[k/4] >> (8 * (k % 4)))
	}
	return out
}

func (m Bitmask) String() string {
	var sb strings.Builder
	for i, b := range m.Bytes() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%08b", b)
	}
	return sb.String()
}
