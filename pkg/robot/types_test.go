package robot

import "testing"

func TestAllMotors_GripperLast(t *testing.T) {
	motors := AllMotors()
	if len(motors) != 6 {
		t.Fatalf("AllMotors returned %d motors, want 6", len(motors))
	}
	if motors[len(motors)-1] != Gripper {
		t.Errorf("last motor = %s, want gripper", motors[len(motors)-1])
	}
	for i, name := range ArmJoints() {
		if motors[i] != name {
			t.Errorf("AllMotors()[%d] = %s, want %s", i, motors[i], name)
		}
	}
}

func TestJointAngles_Validate(t *testing.T) {
	if err := (JointAngles{0, 0.1, 0.2, 0.3, 0.4}).Validate(); err != nil {
		t.Errorf("Validate(5 angles) = %v, want nil", err)
	}
	if err := (JointAngles{0, 0.1}).Validate(); err == nil {
		t.Error("Validate(2 angles) = nil, want error")
	}
}

func TestParseLimb(t *testing.T) {
	tests := []struct {
		in      string
		want    Limb
		wantErr bool
	}{
		{"left", Left, false},
		{"right", Right, false},
		{"middle", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseLimb(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLimb(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseLimb(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
