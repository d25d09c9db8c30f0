package robot

import (
	"math"
)

// Servo resolution for STS3215 servos.
const (
	TicksPerRevolution = 4096
	CenterPosition     = 2048
)

// MotorCalibration holds calibration data for a single motor.
type MotorCalibration struct {
	ID           int `json:"id"`
	DriveMode    int `json:"drive_mode"`
	HomingOffset int `json:"homing_offset"`
	RangeMin     int `json:"range_min"`
	RangeMax     int `json:"range_max"`
}

// Calibration holds calibration data for all motors, keyed by motor name.
type Calibration map[MotorName]MotorCalibration

// Normalize converts a raw servo position to a normalized value in the range [-100, 100].
func (c MotorCalibration) Normalize(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return 0
	}
	return (float64(raw-c.RangeMin)/rangeSize)*200 - 100
}

// Denormalize converts a normalized value [-100, 100] to a raw servo position.
func (c MotorCalibration) Denormalize(norm float64) int {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int((norm+100)/200*rangeSize) + c.RangeMin
}

// Radians converts a raw servo position to a joint angle.
// Zero radians is the servo center shifted by the homing offset.
func (c MotorCalibration) Radians(raw int) float64 {
	ticks := float64(raw - CenterPosition - c.HomingOffset)
	if c.DriveMode != 0 {
		ticks = -ticks
	}
	return ticks * 2 * math.Pi / TicksPerRevolution
}

// Raw converts a joint angle to a servo position, clamped to the recorded range.
func (c MotorCalibration) Raw(rad float64) int {
	ticks := rad * TicksPerRevolution / (2 * math.Pi)
	if c.DriveMode != 0 {
		ticks = -ticks
	}
	raw := int(math.Round(ticks)) + CenterPosition + c.HomingOffset
	if c.RangeMax > c.RangeMin {
		raw = min(max(raw, c.RangeMin), c.RangeMax)
	}
	return raw
}

// MotorIDs returns the servo IDs for all motors in the calibration.
func (c Calibration) MotorIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllMotors() to ensure consistent ordering
	for _, name := range AllMotors() {
		if mc, ok := c[name]; ok {
			ids = append(ids, mc.ID)
		}
	}
	return ids
}

// Complete reports whether every motor of the arm has calibration data.
func (c Calibration) Complete() bool {
	for _, name := range AllMotors() {
		if _, ok := c[name]; !ok {
			return false
		}
	}
	return true
}
