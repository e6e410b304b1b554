package distributor

import (
	"errors"
	"strings"
	"testing"

	"github.com/hsoundplane/soundplane/internal/protocol"
)

func fourSlaves() Layout {
	return Layout{Slaves: 4, ColumnsPerSlave: 8, RowsPerColumn: 5, PiezosPerSlave: 72, MaxPairs: 16}
}

func allAvailable(n int) []bool {
	out := make([]bool, n)
	for i := range out {
		out[i] = true
	}
	return out
}

func TestLocate_StrideIndependentOfRowMode(t *testing.T) {
	layouts := []Layout{
		fourSlaves(),
		{Slaves: 4, ColumnsPerSlave: 7, RowsPerColumn: 9, PiezosPerSlave: 72, MaxPairs: 16},
		{Slaves: 4, ColumnsPerSlave: 4, RowsPerColumn: 9, PiezosPerSlave: 45, MaxPairs: 16},
	}
	for _, l := range layouts {
		cps := l.ColumnsPerSlave
		for c := 0; c < l.Columns(); c++ {
			for r := 0; r < l.RowsPerColumn; r++ {
				slave, idx, err := l.Locate(uint8(c), uint8(r))
				if err != nil {
					t.Fatalf("%dx%d (%d,%d): %v", cps, l.RowsPerColumn, c, r, err)
				}
				if slave != c/cps {
					t.Fatalf("%dx%d (%d,%d): slave=%d want=%d", cps, l.RowsPerColumn, c, r, slave, c/cps)
				}
				want := (c%cps)*9 + r*2
				if int(idx) != want {
					t.Fatalf("%dx%d (%d,%d): index=%d want=%d", cps, l.RowsPerColumn, c, r, idx, want)
				}
			}
		}
	}
}

func TestDistribute_SingleSlaveOrigin(t *testing.T) {
	l := Layout{Slaves: 1, ColumnsPerSlave: 8, RowsPerColumn: 5, PiezosPerSlave: 72, MaxPairs: 16}

	plan, err := l.Distribute([]protocol.Pair{{Column: 0, Row: 0}}, allAvailable(1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Indices[0]) != 1 || plan.Indices[0][0] != 0 {
		t.Fatalf("expected [0], got %v", plan.Indices[0])
	}
}

func TestDistribute_SecondSlave(t *testing.T) {
	plan, err := fourSlaves().Distribute([]protocol.Pair{{Column: 9, Row: 2}}, allAvailable(4))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Indices[1]) != 1 || plan.Indices[1][0] != 13 {
		t.Fatalf("expected slave 1 index 13, got %v", plan.Indices)
	}
	for _, s := range []int{0, 2, 3} {
		if len(plan.Indices[s]) != 0 {
			t.Fatalf("slave %d should be empty, got %v", s, plan.Indices[s])
		}
	}
}

func TestDistribute_UnavailableSlaveSkipped(t *testing.T) {
	avail := []bool{true, true, false, true}
	pairs := []protocol.Pair{{Column: 16, Row: 0}, {Column: 17, Row: 1}, {Column: 0, Row: 1}}

	plan, err := fourSlaves().Distribute(pairs, avail)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plan.Indices[2]) != 0 {
		t.Fatalf("unavailable slave got indices %v", plan.Indices[2])
	}
	if plan.Skipped != 2 {
		t.Fatalf("expected 2 skipped, got %d", plan.Skipped)
	}
	if len(plan.Indices[0]) != 1 || plan.Indices[0][0] != 2 {
		t.Fatalf("expected slave 0 [2], got %v", plan.Indices[0])
	}
}

func TestDistribute_OutOfRangeReported(t *testing.T) {
	pairs := []protocol.Pair{{Column: 32, Row: 0}, {Column: 1, Row: 0}, {Column: 0, Row: 5}}

	plan, err := fourSlaves().Distribute(pairs, allAvailable(4))
	if !errors.Is(err, protocol.ErrCoord) {
		t.Fatalf("expected SERR_COORD, got %v", err)
	}
	if plan.Rejected != 2 {
		t.Fatalf("expected 2 rejected, got %d", plan.Rejected)
	}
	if len(plan.Indices[0]) != 1 || plan.Indices[0][0] != 9 {
		t.Fatalf("valid pair must still be distributed, got %v", plan.Indices[0])
	}
}

func TestDistribute_TruncatesInInputOrder(t *testing.T) {
	l := fourSlaves()
	l.MaxPairs = 2

	pairs := []protocol.Pair{{Column: 0, Row: 0}, {Column: 1, Row: 0}, {Column: 2, Row: 0}, {Column: 8, Row: 0}}
	plan, err := l.Distribute(pairs, allAvailable(4))
	if !errors.Is(err, protocol.ErrOverflow) {
		t.Fatalf("expected SERR_OVERFLOW, got %v", err)
	}
	if plan.Truncated != 1 {
		t.Fatalf("expected 1 truncated, got %d", plan.Truncated)
	}
	if len(plan.Indices[0]) != 2 || plan.Indices[0][0] != 0 || plan.Indices[0][1] != 9 {
		t.Fatalf("expected [0 9], got %v", plan.Indices[0])
	}
	if len(plan.Indices[1]) != 1 {
		t.Fatalf("other slaves are unaffected, got %v", plan.Indices[1])
	}
}

func TestLocate_IndexBeyondBitmask(t *testing.T) {
	l := Layout{Slaves: 1, ColumnsPerSlave: 5, RowsPerColumn: 9, PiezosPerSlave: 45, MaxPairs: 16}

	if _, _, err := l.Locate(4, 8); !errors.Is(err, protocol.ErrCoord) {
		t.Fatalf("expected SERR_COORD for index 52 on a 45 piezo slave, got %v", err)
	}
}

func TestDistribute_OverflowKeepsRejectedPairs(t *testing.T) {
	l := Layout{Slaves: 1, ColumnsPerSlave: 8, RowsPerColumn: 5, PiezosPerSlave: 72, MaxPairs: 2}
	pairs := []protocol.Pair{{Column: 0, Row: 0}, {Column: 0, Row: 7}, {Column: 1, Row: 0}, {Column: 2, Row: 0}}

	plan, err := l.Distribute(pairs, allAvailable(1))
	if !errors.Is(err, protocol.ErrOverflow) {
		t.Fatalf("expected SERR_OVERFLOW, got %v", err)
	}
	if plan.Truncated != 1 || plan.Rejected != 1 {
		t.Fatalf("expected 1 truncated and 1 rejected, got %+v", plan)
	}
	if !strings.Contains(err.Error(), "pair 1") {
		t.Fatalf("rejected pair missing from %q", err.Error())
	}
	if len(plan.Indices[0]) != 2 {
		t.Fatalf("expected full list of 2, got %v", plan.Indices[0])
	}
}
