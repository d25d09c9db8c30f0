package pose

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/num/quat"
)

func TestMatch(t *testing.T) {
	base := New(0.60, 0.30, 0.10, GripperDown)

	tests := []struct {
		name string
		b    Pose
		want bool
	}{
		{"identical", base, true},
		{"noise below resolution", New(0.601, 0.299, 0.1004, GripperDown), true},
		{"position off by a centimeter", New(0.61, 0.30, 0.10, GripperDown), false},
		{"rounds across boundary", New(0.6051, 0.30, 0.10, GripperDown), false},
		{"orientation differs", New(0.60, 0.30, 0.10, quat.Number{Real: 1}), false},
		{"qw noise", New(0.60, 0.30, 0.10, quat.Number{Real: 0.003, Jmag: 0.999}), true},
	}

	for _, tt := range tests {
		if got := Match(base, tt.b); got != tt.want {
			t.Errorf("%s: Match(a, b) = %v, want %v", tt.name, got, tt.want)
		}
		if got := Match(tt.b, base); got != tt.want {
			t.Errorf("%s: Match(b, a) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestMatch_Reflexive(t *testing.T) {
	poses := []Pose{
		{},
		New(-1.2345, 0.005, 99.995, GripperDown),
		New(0.125, -0.125, 0.335, quat.Number{Real: 0.7071, Kmag: 0.7071}),
	}
	for _, p := range poses {
		if !Match(p, p) {
			t.Errorf("Match(%v, %v) = false, want true", p, p)
		}
	}
}

func TestPose_JSON(t *testing.T) {
	data := []byte(`{"position":{"x":0.5,"y":-0.2,"z":0.1},"orientation":{"x":0,"y":1,"z":0,"w":0}}`)

	var p Pose
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if p.Position.X != 0.5 || p.Position.Y != -0.2 || p.Position.Z != 0.1 {
		t.Errorf("Position = %+v", p.Position)
	}
	if p.Orientation != GripperDown {
		t.Errorf("Orientation = %+v, want %+v", p.Orientation, GripperDown)
	}

	out, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != string(data) {
		t.Errorf("Marshal = %s, want %s", out, data)
	}
}

func TestPose_JSONRejectsNonUnitOrientation(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"missing orientation", `{"position":{"x":0.5,"y":0,"z":0.1}}`},
		{"scaled", `{"position":{"x":0,"y":0,"z":0},"orientation":{"x":0,"y":2,"z":0,"w":0}}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var p Pose
			if err := json.Unmarshal([]byte(tt.data), &p); !errors.Is(err, ErrNotUnit) {
				t.Errorf("Unmarshal err = %v, want ErrNotUnit", err)
			}
		})
	}
}

func TestPose_Raised(t *testing.T) {
	p := New(0.1, 0.2, 0.05, GripperDown)
	up := p.Raised(0.1)
	if math.Abs(up.Position.Z-0.15) > 1e-9 {
		t.Errorf("Raised Z = %v, want 0.15", up.Position.Z)
	}
	if p.Position.Z != 0.05 {
		t.Errorf("Raised modified receiver: Z = %v", p.Position.Z)
	}
	if got := p.WithZ(0.3).Position.Z; got != 0.3 {
		t.Errorf("WithZ = %v, want 0.3", got)
	}
}
