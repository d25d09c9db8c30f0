package rig

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/gwillem/armctl/pkg/behavior"
	"github.com/gwillem/armctl/pkg/bridge"
	"github.com/gwillem/armctl/pkg/pose"
	"github.com/gwillem/armctl/pkg/reach"
	"github.com/gwillem/armctl/pkg/robot"
)

type fakeDriver struct {
	mu    sync.Mutex
	calls []string
}

func (d *fakeDriver) record(call string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, call)
	return nil
}

func (d *fakeDriver) MoveJoints(ctx context.Context, angles robot.JointAngles) error {
	return d.record("move")
}

func (d *fakeDriver) MoveJointsTimed(ctx context.Context, angles robot.JointAngles, moveMs int) error {
	return d.record("move_timed")
}

func (d *fakeDriver) Grip(ctx context.Context) error    { return d.record("grip") }
func (d *fakeDriver) Release(ctx context.Context) error { return d.record("release") }

type fixedIK struct{}

func (fixedIK) Solve(ctx context.Context, limb robot.Limb, target pose.Pose) (robot.JointAngles, error) {
	return make(robot.JointAngles, len(robot.ArmJoints())), nil
}

func TestBuild_PickUpToken(t *testing.T) {
	cfg := robot.DefaultConfig()
	driver := &fakeDriver{}

	l, err := Build(cfg, cfg.Player.Limb, driver, fixedIK{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if l.Role != robot.Player {
		t.Fatalf("Role = %s, want player", l.Role)
	}

	// The limb already hovers over the stack and the sensor sees the token.
	l.Poses.OnPose(cfg.Poses.TokenHover)
	l.Proximity.OnRange(0.01, 0.004, 0.4)

	if err := l.Sequencer.PickUpToken(context.Background()); err != nil {
		t.Fatalf("PickUpToken: %v", err)
	}

	want := []string{"move", "move_timed", "grip", "move"}
	if !reflect.DeepEqual(driver.calls, want) {
		t.Errorf("driver calls = %v, want %v", driver.calls, want)
	}
}

func TestBuild_SpectatorRole(t *testing.T) {
	cfg := robot.DefaultConfig()
	driver := &fakeDriver{}

	l, err := Build(cfg, cfg.Spectator.Limb, driver, fixedIK{}, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	l.Poses.OnPose(cfg.Poses.OutOfView)

	if err := l.Sequencer.MoveOutOfView(context.Background()); err != nil {
		t.Errorf("MoveOutOfView: %v", err)
	}
	if err := l.Sequencer.MoveToStandby(context.Background()); !errors.Is(err, behavior.ErrWrongRole) {
		t.Errorf("MoveToStandby err = %v, want ErrWrongRole", err)
	}
}

func TestBuild_UnknownLimb(t *testing.T) {
	cfg := robot.DefaultConfig()
	cfg.Spectator.Limb = cfg.Player.Limb

	if _, err := Build(cfg, robot.Right, &fakeDriver{}, fixedIK{}, nil); err == nil {
		t.Error("Build for unconfigured limb should fail")
	}
}

func TestBehaviorConfig(t *testing.T) {
	cfg := robot.DefaultConfig()
	bc := BehaviorConfig(cfg, robot.Left, robot.Player)

	center, err := bc.Grid.CellPose(4)
	if err != nil {
		t.Fatalf("CellPose: %v", err)
	}
	want := pose.New(cfg.Board.CenterX, cfg.Board.CenterY, cfg.Board.PlaceZ, pose.GripperDown)
	if !pose.Match(center, want) {
		t.Errorf("center cell = %v, want %v", center, want)
	}
	if bc.HoverHeight != cfg.Board.HoverHeight {
		t.Errorf("HoverHeight = %v, want %v", bc.HoverHeight, cfg.Board.HoverHeight)
	}
}

func TestJointSink(t *testing.T) {
	angles := make(robot.JointAngles, len(robot.ArmJoints()))

	tests := []struct {
		name      string
		descentMs int
		limb      robot.Limb
		kind      reach.GoalKind
		want      string
		wantErr   bool
	}{
		{"pose goal", 1500, robot.Left, reach.Pose, "move", false},
		{"collision goal", 1500, robot.Left, reach.Collision, "move_timed", false},
		{"collision without descent time", 0, robot.Left, reach.Collision, "move", false},
		{"wrong limb", 1500, robot.Right, reach.Pose, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDriver{}
			s := jointSink{limb: robot.Left, driver: d, descentMs: tt.descentMs}
			err := s.Command(context.Background(), tt.limb, angles, tt.kind)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Command err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				if len(d.calls) != 0 {
					t.Errorf("driver called on error: %v", d.calls)
				}
				return
			}
			if len(d.calls) != 1 || d.calls[0] != tt.want {
				t.Errorf("driver calls = %v, want [%s]", d.calls, tt.want)
			}
		})
	}
}

func TestRig_Limbs(t *testing.T) {
	cfg := robot.DefaultConfig()
	right, err := Build(cfg, robot.Right, &fakeDriver{}, fixedIK{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	left, err := Build(cfg, robot.Left, &fakeDriver{}, fixedIK{}, nil)
	if err != nil {
		t.Fatal(err)
	}

	r := New(bridge.NewFeed("ws://unused", nil), right, left)

	limbs := r.Limbs()
	if len(limbs) != 2 || limbs[0].Limb != robot.Left || limbs[1].Limb != robot.Right {
		t.Errorf("Limbs() order = %v", limbs)
	}
	if l, ok := r.Limb(robot.Right); !ok || l != right {
		t.Error("Limb(right) did not return the right limb")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}
