package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/gwillem/armctl/pkg/behavior"
	"github.com/gwillem/armctl/pkg/board"
	"github.com/gwillem/armctl/pkg/pose"
	"github.com/gwillem/armctl/pkg/reach"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/sensor"
)

// simArm solves every pose and reports arrival at the commanded target a
// few milliseconds after each command.
type simArm struct {
	poses *sensor.PoseTracker

	mu     sync.Mutex
	target pose.Pose
	steps  []string
	onStep func(step string)
}

func (a *simArm) record(step string) {
	a.mu.Lock()
	a.steps = append(a.steps, step)
	hook := a.onStep
	a.mu.Unlock()
	if hook != nil {
		hook(step)
	}
}

func (a *simArm) Solve(ctx context.Context, limb robot.Limb, target pose.Pose) (robot.JointAngles, error) {
	a.mu.Lock()
	a.target = target
	a.mu.Unlock()
	return make(robot.JointAngles, len(robot.ArmJoints())), nil
}

func (a *simArm) Command(ctx context.Context, limb robot.Limb, angles robot.JointAngles, kind reach.GoalKind) error {
	a.mu.Lock()
	target := a.target
	a.mu.Unlock()
	time.AfterFunc(5*time.Millisecond, func() { a.poses.OnPose(target) })
	a.record("command:" + kind.String())
	return nil
}

func (a *simArm) Grip(ctx context.Context) error {
	a.record("grip")
	return nil
}

func (a *simArm) Release(ctx context.Context) error {
	a.record("release")
	return nil
}

func (a *simArm) Steps() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.steps...)
}

func TestBehaviorSurvivesClientDisconnect(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		cancelOn string
		want     []string
	}{
		{
			name:     "pick disconnect after grip",
			path:     "/api/limbs/left/pick",
			cancelOn: "grip",
			want:     []string{"command:pose", "command:collision", "grip", "command:pose"},
		},
		{
			name:     "place disconnect during descent",
			path:     "/api/limbs/left/place/4",
			cancelOn: "command:collision",
			want:     []string{"command:pose", "command:collision", "release", "command:pose"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			poses := sensor.NewPoseTracker()
			prox := sensor.NewProximityTracker(0.06)
			arm := &simArm{poses: poses}

			reacher := reach.New(robot.Left, arm, arm, poses, prox, reach.Tuning{
				PollInterval: time.Millisecond,
				MaxCycles:    2000,
			}, nil)
			seq := behavior.New(behavior.Config{
				Limb:         robot.Left,
				Role:         robot.Player,
				TokenHover:   pose.New(0.25, 0.25, 0.12, pose.GripperDown),
				TokenContact: pose.New(0.25, 0.25, 0.01, pose.GripperDown),
				Grid: board.Grid{
					CenterX:     0.40,
					CellSide:    0.06,
					Z:           0.02,
					Orientation: pose.GripperDown,
				},
				HoverHeight: 0.08,
			}, reacher, arm, nil)

			h := NewServer(nil, Limb{
				Limb:      robot.Left,
				Role:      robot.Player,
				Behaviors: seq,
				Poses:     poses,
				Proximity: prox,
			}).Handler()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			arm.onStep = func(step string) {
				if step == tt.cancelOn {
					cancel()
				}
			}

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, tt.path, nil).WithContext(ctx)
			h.ServeHTTP(w, req)

			if w.Code != http.StatusOK {
				t.Errorf("status = %d, body %s", w.Code, w.Body.String())
			}
			if got := arm.Steps(); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("steps = %v, want %v", got, tt.want)
			}
		})
	}
}
