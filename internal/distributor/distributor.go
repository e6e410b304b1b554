// Package distributor maps host coordinates onto slaves and piezo indices.
package distributor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hsoundplane/soundplane/internal/protocol"
)

// Stride is the distance between the first contacts of two adjacent columns
// in a slave's shift-register chain. It is fixed by the board layout: boards
// wired with 5 rows per column leave the spare contacts unreferenced.
const Stride = 9

// RowPitch is the chain distance between two adjacent rows.
const RowPitch = 2

// Layout is the geometry the distributor works against.
type Layout struct {
	Slaves          int
	ColumnsPerSlave int
	RowsPerColumn   int
	PiezosPerSlave  int
	MaxPairs        int
}

// Columns is the number of addressable columns across all slaves.
func (l Layout) Columns() int {
	return l.Slaves * l.ColumnsPerSlave
}

// Locate returns the owning slave and the piezo index of (column, row).
func (l Layout) Locate(column, row uint8) (slave int, index uint8, err error) {
	if l.ColumnsPerSlave <= 0 {
		return 0, 0, errors.New("distributor: columns per slave must be > 0")
	}
	c := int(column)
	if c >= l.Columns() {
		return 0, 0, protocol.Errorf(protocol.CodeCoord, "column %d outside 0..%d", c, l.Columns()-1)
	}
	if l.RowsPerColumn > 0 && int(row) >= l.RowsPerColumn {
		return 0, 0, protocol.Errorf(protocol.CodeCoord, "row %d outside 0..%d", row, l.RowsPerColumn-1)
	}

	slave = c / l.ColumnsPerSlave
	local := c - slave*l.ColumnsPerSlave
	idx := local*Stride + int(row)*RowPitch
	if l.PiezosPerSlave > 0 && idx >= l.PiezosPerSlave {
		return 0, 0, protocol.Errorf(protocol.CodeCoord, "piezo index %d outside 0..%d", idx, l.PiezosPerSlave-1)
	}
	return slave, uint8(idx), nil
}

// Plan is the per-slave output of one distribution pass.
type Plan struct {
	// Indices[s] is the PiezoIndexList of slave s, in input order.
	Indices [][]uint8

	Skipped   int // pairs aimed at unavailable slaves
	Rejected  int // pairs outside the layout
	Truncated int // pairs dropped because a slave list was full
}

// Distribute builds a fresh Plan from pairs.
//
// available[s] gates slave s; pairs for an unavailable slave produce no
// index. Invalid pairs are dropped and reported as SERR_COORD. A slave list
// that reaches MaxPairs keeps its first MaxPairs entries and the rest is
// reported as SERR_OVERFLOW. The returned Plan is usable even when err is
// non-nil.
func (l Layout) Distribute(pairs []protocol.Pair, available []bool) (Plan, error) {
	plan := Plan{Indices: make([][]uint8, l.Slaves)}
	for s := range plan.Indices {
		plan.Indices[s] = make([]uint8, 0, l.MaxPairs)
	}

	var errs []string
	for i, p := range pairs {
		slave, idx, err := l.Locate(p.Column, p.Row)
		if err != nil {
			plan.Rejected++
			errs = append(errs, fmt.Sprintf("pair %d: %v", i, err))
			continue
		}
		if slave >= len(available) || !available[slave] {
			plan.Skipped++
			continue
		}
		if l.MaxPairs > 0 && len(plan.Indices[slave]) >= l.MaxPairs {
			plan.Truncated++
			continue
		}
		plan.Indices[slave] = append(plan.Indices[slave], idx)
	}

	// overflow takes the code, rejected pairs stay in the message
	if plan.Truncated > 0 {
		msg := fmt.Sprintf("%d pairs dropped, slave lists hold %d", plan.Truncated, l.MaxPairs)
		errs = append([]string{msg}, errs...)
		return plan, &protocol.Error{Code: protocol.CodeOverflow, Msg: strings.Join(errs, " | ")}
	}
	if len(errs) > 0 {
		return plan, &protocol.Error{Code: protocol.CodeCoord, Msg: strings.Join(errs, " | ")}
	}
	return plan, nil
}

// PhysicalIndex is the dense (column × rows + row) index of a pair on a
// slave. It is diagnostic only; the chain is always addressed with Locate.
func (l Layout) PhysicalIndex(column, row uint8) int {
	if l.ColumnsPerSlave <= 0 {
		return 0
	}
	local := int(column) % l.ColumnsPerSlave
	return local*l.RowsPerColumn + int(row)
}
