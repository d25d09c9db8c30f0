package robot

import (
	"context"
	"fmt"
	"time"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Arm represents a robot arm with multiple servos.
type Arm struct {
	limb        Limb
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	servos      map[int]*feetech.Servo
	calibration Calibration

	gripperOpen   float64
	gripperClosed float64
}

// NewArm opens the arm's bus and checks that every calibrated servo answers.
func NewArm(ctx context.Context, cfg ArmConfig) (*Arm, error) {
	if !cfg.Calibration.Complete() {
		return nil, fmt.Errorf("%s arm is not calibrated", cfg.Limb)
	}

	// Open serial bus
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     cfg.Port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	scanCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	found, err := bus.Scan(scanCtx, 1, len(AllMotors()))
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("scan servos: %w", err)
	}

	servos := make(map[int]*feetech.Servo, len(found))
	for _, s := range found {
		servos[s.ID] = feetech.NewServo(bus, s.ID, s.Model)
	}
	for _, id := range cfg.Calibration.MotorIDs() {
		if _, ok := servos[id]; !ok {
			bus.Close()
			return nil, fmt.Errorf("servo %d not found on %s", id, cfg.Port)
		}
	}

	return &Arm{
		limb:          cfg.Limb,
		bus:           bus,
		group:         feetech.NewServoGroupByIDs(bus, cfg.Calibration.MotorIDs()...),
		servos:        servos,
		calibration:   cfg.Calibration,
		gripperOpen:   cfg.GripperOpen,
		gripperClosed: cfg.GripperClosed,
	}, nil
}

// Limb returns which limb this arm is.
func (a *Arm) Limb() Limb {
	return a.limb
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// ReadJoints reads the current arm joint angles in radians.
func (a *Arm) ReadJoints(ctx context.Context) (JointAngles, error) {
	rawPositions, err := a.group.Positions(ctx)
	if err != nil {
		return nil, fmt.Errorf("read positions: %w", err)
	}

	joints := make(JointAngles, 0, len(ArmJoints()))
	for _, name := range ArmJoints() {
		cal := a.calibration[name]
		raw, ok := rawPositions[cal.ID]
		if !ok {
			return nil, fmt.Errorf("read positions: no reading for %s", name)
		}
		joints = append(joints, cal.Radians(raw))
	}
	return joints, nil
}

// MoveJoints writes target angles to all arm joints in one sync write.
func (a *Arm) MoveJoints(ctx context.Context, angles JointAngles) error {
	if err := angles.Validate(); err != nil {
		return err
	}

	rawPositions := make(feetech.PositionMap, len(angles))
	for i, name := range ArmJoints() {
		cal := a.calibration[name]
		rawPositions[cal.ID] = cal.Raw(angles[i])
	}

	if err := a.group.SetPositions(ctx, rawPositions); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	return nil
}

// MoveJointsTimed moves every joint so that it arrives after moveMs milliseconds.
// Slow moves leave time for a contact signal to be acted on.
func (a *Arm) MoveJointsTimed(ctx context.Context, angles JointAngles, moveMs int) error {
	if err := angles.Validate(); err != nil {
		return err
	}

	for i, name := range ArmJoints() {
		cal := a.calibration[name]
		if err := a.servos[cal.ID].SetPositionWithTime(ctx, cal.Raw(angles[i]), moveMs); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
	}
	return nil
}

// ReadGripper reads the gripper opening in [-100, 100].
func (a *Arm) ReadGripper(ctx context.Context) (float64, error) {
	cal := a.calibration[Gripper]
	raw, err := a.servos[cal.ID].Position(ctx)
	if err != nil {
		return 0, fmt.Errorf("read gripper: %w", err)
	}
	return cal.Normalize(raw), nil
}

// Grip closes the gripper.
func (a *Arm) Grip(ctx context.Context) error {
	return a.setGripper(ctx, a.gripperClosed)
}

// Release opens the gripper.
func (a *Arm) Release(ctx context.Context) error {
	return a.setGripper(ctx, a.gripperOpen)
}

func (a *Arm) setGripper(ctx context.Context, norm float64) error {
	cal := a.calibration[Gripper]
	if err := a.group.SetPositions(ctx, feetech.PositionMap{cal.ID: cal.Denormalize(norm)}); err != nil {
		return fmt.Errorf("write gripper: %w", err)
	}
	return nil
}
