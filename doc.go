// Package armctl is a closed-loop controller for the two SO-101 arms of a
// tic-tac-toe playing robot.
//
// One arm is the player: it picks tokens from a stack and places them on
// the board. The other is the spectator and only moves out of the
// camera's view. Every motion is a goal pose sent to an inverse-kinematics
// service; the controller then watches the measured end-effector pose and
// the gripper's proximity sensor until the goal is reached, contact is
// made, or the cycle budget runs out.
//
// # Installation
//
//	go install github.com/gwillem/armctl/cmd/armctl@latest
//
// # Usage
//
// First, run setup to detect, assign and calibrate the arms:
//
//	armctl setup
//
// Run a single behavior with a live monitor:
//
//	armctl run pick
//	armctl run place --cell 4
//
// Or serve the behaviors to a game orchestrator:
//
//	armctl serve
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/armctl: CLI with setup, run, serve and info commands
//   - pkg/pose: end-effector poses and two-decimal matching
//   - pkg/sensor: pose and proximity trackers
//   - pkg/reach: the goal reacher state machine
//   - pkg/behavior: the four game behaviors
//   - pkg/board: board cell to pose mapping
//   - pkg/robot: servo bus, calibration and configuration
//   - pkg/bridge: IK client and feedback stream
//   - pkg/rig: per-limb wiring
//   - pkg/monitor: tracker sampling for the terminal monitor
//   - pkg/api: HTTP API
package armctl
