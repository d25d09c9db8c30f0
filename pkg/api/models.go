package api

import (
	"time"

	"github.com/gwillem/armctl/pkg/pose"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/sensor"
)

// ApiResponse is the envelope of every response.
type ApiResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// BehaviorResponse reports a completed behavior.
type BehaviorResponse struct {
	Limb      robot.Limb `json:"limb"`
	Behavior  string     `json:"behavior"`
	Cell      *int       `json:"cell,omitempty"`
	ElapsedMs int64      `json:"elapsed_ms"`
}

// StateResponse is the latest feedback of a limb. Pose and Range are absent
// until the first sample arrives.
type StateResponse struct {
	Limb      robot.Limb    `json:"limb"`
	Role      robot.Role    `json:"role"`
	Pose      *pose.Pose    `json:"pose,omitempty"`
	Range     *sensor.Range `json:"range,omitempty"`
	InContact bool          `json:"in_contact"`
	Threshold float64       `json:"collision_threshold,omitempty"`
}

// HealthResponse is returned by the health check.
type HealthResponse struct {
	Status    string       `json:"status"`
	Timestamp time.Time    `json:"timestamp"`
	Version   string       `json:"version"`
	Uptime    string       `json:"uptime"`
	Limbs     []robot.Limb `json:"limbs"`
}
