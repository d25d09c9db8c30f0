package robot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gwillem/armctl/pkg/pose"
)

const DefaultConfigFile = "armctl.json"

// Environment overrides for service endpoints.
const (
	EnvIKURL       = "ARMCTL_IK_URL"
	EnvFeedbackURL = "ARMCTL_FEEDBACK_URL"
	EnvListen      = "ARMCTL_LISTEN"
)

// Config holds the robot configuration
type Config struct {
	Player    ArmConfig     `json:"player"`
	Spectator ArmConfig     `json:"spectator"`
	Board     BoardConfig   `json:"board"`
	Poses     PoseConfig    `json:"poses"`
	Tuning    TuningConfig  `json:"tuning"`
	Services  ServiceConfig `json:"services"`
}

// ArmConfig holds configuration for a single arm
type ArmConfig struct {
	Port        string      `json:"port"`
	Limb        Limb        `json:"limb"`
	Calibration Calibration `json:"calibration,omitempty"`
	// Normalized gripper positions in [-100, 100].
	GripperOpen   float64 `json:"gripper_open"`
	GripperClosed float64 `json:"gripper_closed"`
}

// BoardConfig places the 3x3 board in the robot base frame, in meters.
type BoardConfig struct {
	CenterX     float64 `json:"center_x"`
	CenterY     float64 `json:"center_y"`
	CellSide    float64 `json:"cell_side"`
	PlaceZ      float64 `json:"place_z"`
	HoverHeight float64 `json:"hover_height"`
}

// PoseConfig holds the fixed waypoints of the game behaviors.
type PoseConfig struct {
	OutOfView    pose.Pose `json:"out_of_view"`
	Standby      pose.Pose `json:"standby"`
	TokenHover   pose.Pose `json:"token_hover"`
	TokenContact pose.Pose `json:"token_contact"`
}

// TuningConfig controls goal convergence.
type TuningConfig struct {
	PollIntervalMs     int     `json:"poll_interval_ms"`
	MaxCycles          int     `json:"max_cycles"`
	CollisionThreshold float64 `json:"collision_threshold"`
	// Move time used for descents so the proximity sensor can stop the limb early.
	DescentMoveMs int `json:"descent_move_ms"`
}

// PollInterval returns the poll cadence as a duration.
func (t TuningConfig) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMs) * time.Millisecond
}

// ServiceConfig names the external collaborators.
type ServiceConfig struct {
	IKURL       string `json:"ik_url"`
	FeedbackURL string `json:"feedback_url"`
	Listen      string `json:"listen"`
}

// DefaultConfig returns a configuration with the stock tuning and a board
// 40 cm in front of the base.
func DefaultConfig() *Config {
	return &Config{
		Player:    ArmConfig{Limb: Left, GripperOpen: 60, GripperClosed: -40},
		Spectator: ArmConfig{Limb: Right, GripperOpen: 60, GripperClosed: -40},
		Board: BoardConfig{
			CenterX:     0.40,
			CenterY:     0,
			CellSide:    0.06,
			PlaceZ:      0.02,
			HoverHeight: 0.08,
		},
		Poses: PoseConfig{
			OutOfView:    pose.New(0.05, -0.25, 0.25, pose.GripperDown),
			Standby:      pose.New(0.15, 0.20, 0.25, pose.GripperDown),
			TokenHover:   pose.New(0.25, 0.25, 0.12, pose.GripperDown),
			TokenContact: pose.New(0.25, 0.25, 0.01, pose.GripperDown),
		},
		Tuning: TuningConfig{
			PollIntervalMs:     20,
			MaxCycles:          250,
			CollisionThreshold: 0.06,
			DescentMoveMs:      1500,
		},
		Services: ServiceConfig{
			IKURL:       "http://127.0.0.1:8085",
			FeedbackURL: "ws://127.0.0.1:8086/feedback",
			Listen:      ":9099",
		},
	}
}

// LoadConfigFrom loads configuration from a specific file.
// Fields missing from the file keep their defaults.
func LoadConfigFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides service endpoints from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvIKURL); v != "" {
		c.Services.IKURL = v
	}
	if v := os.Getenv(EnvFeedbackURL); v != "" {
		c.Services.FeedbackURL = v
	}
	if v := os.Getenv(EnvListen); v != "" {
		c.Services.Listen = v
	}
}

// Validate checks the fields the controller cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.Player.Limb == c.Spectator.Limb {
		errs = append(errs, fmt.Errorf("player and spectator both use limb %q", c.Player.Limb))
	}
	for _, a := range []ArmConfig{c.Player, c.Spectator} {
		if _, err := ParseLimb(string(a.Limb)); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Board.CellSide <= 0 {
		errs = append(errs, errors.New("board.cell_side must be positive"))
	}
	if c.Tuning.PollIntervalMs <= 0 {
		errs = append(errs, errors.New("tuning.poll_interval_ms must be positive"))
	}
	if c.Tuning.MaxCycles <= 0 {
		errs = append(errs, errors.New("tuning.max_cycles must be positive"))
	}
	if c.Services.IKURL == "" {
		errs = append(errs, errors.New("services.ik_url is required"))
	}
	return errors.Join(errs...)
}

// Arm returns the arm configuration and role for a limb.
func (c *Config) Arm(limb Limb) (ArmConfig, Role, error) {
	switch limb {
	case c.Player.Limb:
		return c.Player, Player, nil
	case c.Spectator.Limb:
		return c.Spectator, Spectator, nil
	}
	return ArmConfig{}, "", fmt.Errorf("no arm configured for limb %q", limb)
}

// SaveTo saves configuration to a specific file
func (c *Config) SaveTo(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
