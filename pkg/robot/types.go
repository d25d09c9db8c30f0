// Package robot drives one physical limb over its servo bus and holds the
// controller configuration.
package robot

import "fmt"

// MotorName identifies a motor in the arm.
type MotorName string

// Motor names for the SO-101 arm.
const (
	ShoulderPan  MotorName = "shoulder_pan"
	ShoulderLift MotorName = "shoulder_lift"
	ElbowFlex    MotorName = "elbow_flex"
	WristFlex    MotorName = "wrist_flex"
	WristRoll    MotorName = "wrist_roll"
	Gripper      MotorName = "gripper"
)

// AllMotors returns all motor names in order (matching servo IDs 1-6).
func AllMotors() []MotorName {
	return append(ArmJoints(), Gripper)
}

// ArmJoints returns the positioning joints, shoulder to wrist.
// A JointAngles vector has exactly one entry per joint in this order.
func ArmJoints() []MotorName {
	return []MotorName{
		ShoulderPan,
		ShoulderLift,
		ElbowFlex,
		WristFlex,
		WristRoll,
	}
}

// JointAngles holds one angle in radians per arm joint, shoulder to wrist.
type JointAngles []float64

// Validate checks that the vector has one angle per arm joint.
func (j JointAngles) Validate() error {
	if n := len(ArmJoints()); len(j) != n {
		return fmt.Errorf("joint angles: got %d values, want %d", len(j), n)
	}
	return nil
}

// Limb selects which physical limb, and therefore which service namespace, a
// controller drives.
type Limb string

const (
	Left  Limb = "left"
	Right Limb = "right"
)

// ParseLimb converts a name to a Limb.
func ParseLimb(s string) (Limb, error) {
	switch Limb(s) {
	case Left, Right:
		return Limb(s), nil
	}
	return "", fmt.Errorf("unknown limb %q", s)
}

// Role decides which behaviors a limb may run during a game.
type Role string

const (
	// Player picks and places tokens.
	Player Role = "player"
	// Spectator only clears the camera's field of view.
	Spectator Role = "spectator"
)
