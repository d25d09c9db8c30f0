// Package pose holds the end-effector pose type shared by the trackers, the
// goal reacher and the board mapper.
package pose

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is an end-effector position in meters plus a unit quaternion orientation.
type Pose struct {
	Position    r3.Vector
	Orientation quat.Number
}

// unitTolerance bounds how far a decoded orientation's norm may be from 1.
const unitTolerance = 0.01

// ErrNotUnit is returned when a decoded orientation is not a unit quaternion.
var ErrNotUnit = errors.New("orientation is not a unit quaternion")

// GripperDown points the end effector straight at the table.
var GripperDown = quat.Number{Real: 0, Imag: 0, Jmag: 1, Kmag: 0}

// New builds a pose from a position and an orientation given as x, y, z, w.
func New(x, y, z float64, q quat.Number) Pose {
	return Pose{Position: r3.Vector{X: x, Y: y, Z: z}, Orientation: q}
}

// WithZ returns a copy of p at height z.
func (p Pose) WithZ(z float64) Pose {
	p.Position = r3.Vector{X: p.Position.X, Y: p.Position.Y, Z: z}
	return p
}

// Raised returns a copy of p lifted by dz.
func (p Pose) Raised(dz float64) Pose {
	p.Position = p.Position.Add(r3.Vector{Z: dz})
	return p
}

// Components returns x, y, z, qx, qy, qz, qw.
func (p Pose) Components() [7]float64 {
	return [7]float64{
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Orientation.Imag, p.Orientation.Jmag, p.Orientation.Kmag, p.Orientation.Real,
	}
}

func (p Pose) String() string {
	return fmt.Sprintf("pos=(%.3f, %.3f, %.3f) rot=(%.3f, %.3f, %.3f, %.3f)",
		p.Position.X, p.Position.Y, p.Position.Z,
		p.Orientation.Imag, p.Orientation.Jmag, p.Orientation.Kmag, p.Orientation.Real)
}

// Match reports whether every component of a and b is equal at two decimal places.
// Feedback noise is above that resolution, so a tighter check would never settle.
func Match(a, b Pose) bool {
	ac, bc := a.Components(), b.Components()
	for i := range ac {
		if !equalTwoDP(ac[i], bc[i]) {
			return false
		}
	}
	return true
}

func equalTwoDP(x, y float64) bool {
	return math.Round(x*100) == math.Round(y*100)
}

type wireVector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

type wireQuat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

type wirePose struct {
	Position    wireVector `json:"position"`
	Orientation wireQuat   `json:"orientation"`
}

// MarshalJSON encodes the pose as {"position":{x,y,z},"orientation":{x,y,z,w}}.
func (p Pose) MarshalJSON() ([]byte, error) {
	return json.Marshal(wirePose{
		Position:    wireVector{X: p.Position.X, Y: p.Position.Y, Z: p.Position.Z},
		Orientation: wireQuat{X: p.Orientation.Imag, Y: p.Orientation.Jmag, Z: p.Orientation.Kmag, W: p.Orientation.Real},
	})
}

// UnmarshalJSON decodes the layout written by MarshalJSON. The orientation
// must be a unit quaternion.
func (p *Pose) UnmarshalJSON(data []byte) error {
	var w wirePose
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	q := quat.Number{Real: w.Orientation.W, Imag: w.Orientation.X, Jmag: w.Orientation.Y, Kmag: w.Orientation.Z}
	if n := quat.Abs(q); math.Abs(n-1) > unitTolerance {
		return fmt.Errorf("norm %.3f: %w", n, ErrNotUnit)
	}
	p.Position = r3.Vector{X: w.Position.X, Y: w.Position.Y, Z: w.Position.Z}
	p.Orientation = q
	return nil
}
