// Package board maps tic-tac-toe cells to end-effector poses.
package board

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/armctl/pkg/pose"
)

// Size is the number of rows and columns on the board.
const Size = 3

// NumCells is the number of cells; valid indices are 0 to NumCells-1.
const NumCells = Size * Size

// ErrInvalidCellIndex is returned for a cell outside the board.
var ErrInvalidCellIndex = errors.New("invalid cell index")

// Grid places the board in the robot base frame.
// Row 0 is the row farthest from the robot (+x), column 0 is on the +y side.
type Grid struct {
	CenterX     float64
	CenterY     float64
	CellSide    float64
	Z           float64
	Orientation quat.Number
}

// CellPose returns the place pose for cell, row-major from 0 to 8.
func (g Grid) CellPose(cell int) (pose.Pose, error) {
	if cell < 0 || cell >= NumCells {
		return pose.Pose{}, fmt.Errorf("cell %d: %w", cell, ErrInvalidCellIndex)
	}
	row, col := cell/Size, cell%Size
	x := g.CenterX + float64(1-row)*g.CellSide
	y := g.CenterY + float64(1-col)*g.CellSide
	return pose.New(x, y, g.Z, g.Orientation), nil
}

// CellPose maps cell on a board centered at (centerX, centerY) with the given
// cell pitch, at table height with the gripper pointing down.
func CellPose(cell int, centerX, centerY, cellSide float64) (pose.Pose, error) {
	return Grid{
		CenterX:     centerX,
		CenterY:     centerY,
		CellSide:    cellSide,
		Orientation: pose.GripperDown,
	}.CellPose(cell)
}
