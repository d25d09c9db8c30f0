package board

import (
	"errors"
	"math"
	"testing"

	"github.com/gwillem/armctl/pkg/pose"
)

func TestCellPose_Layout(t *testing.T) {
	const cx, cy, s = 0.5, 0.1, 0.06

	tests := []struct {
		cell   int
		dx, dy float64
	}{
		{0, s, s},
		{1, s, 0},
		{2, s, -s},
		{3, 0, s},
		{4, 0, 0},
		{5, 0, -s},
		{6, -s, s},
		{7, -s, 0},
		{8, -s, -s},
	}

	for _, tt := range tests {
		p, err := CellPose(tt.cell, cx, cy, s)
		if err != nil {
			t.Fatalf("CellPose(%d) error: %v", tt.cell, err)
		}
		if math.Abs(p.Position.X-(cx+tt.dx)) > 1e-12 || math.Abs(p.Position.Y-(cy+tt.dy)) > 1e-12 {
			t.Errorf("CellPose(%d) = (%v, %v), want (%v, %v)",
				tt.cell, p.Position.X, p.Position.Y, cx+tt.dx, cy+tt.dy)
		}
		if p.Orientation != pose.GripperDown {
			t.Errorf("CellPose(%d) orientation = %v", tt.cell, p.Orientation)
		}
	}
}

func TestCellPose_CenterCell(t *testing.T) {
	p, err := CellPose(4, 0.42, -0.07, 0.055)
	if err != nil {
		t.Fatal(err)
	}
	if p.Position.X != 0.42 || p.Position.Y != -0.07 {
		t.Errorf("center cell at (%v, %v), want (0.42, -0.07)", p.Position.X, p.Position.Y)
	}
}

func TestCellPose_Deterministic(t *testing.T) {
	for cell := 0; cell < NumCells; cell++ {
		a, _ := CellPose(cell, 0.4, 0, 0.06)
		b, _ := CellPose(cell, 0.4, 0, 0.06)
		if a != b {
			t.Errorf("CellPose(%d) not deterministic: %v vs %v", cell, a, b)
		}
	}
}

func TestCellPose_InvalidIndex(t *testing.T) {
	for _, cell := range []int{-1, 9, 42} {
		_, err := CellPose(cell, 0.4, 0, 0.06)
		if !errors.Is(err, ErrInvalidCellIndex) {
			t.Errorf("CellPose(%d) error = %v, want ErrInvalidCellIndex", cell, err)
		}
	}
}

func TestGrid_UsesPlaceHeight(t *testing.T) {
	g := Grid{CenterX: 0.4, CellSide: 0.06, Z: 0.025, Orientation: pose.GripperDown}
	p, err := g.CellPose(0)
	if err != nil {
		t.Fatal(err)
	}
	if p.Position.Z != 0.025 {
		t.Errorf("Z = %v, want 0.025", p.Position.Z)
	}
}
