// Package reach drives a limb to one target pose and decides when the motion is done.
//
// A reach asks the IK service for joint angles, sends them to the joint sink
// once, then polls the limb's feedback on a fixed cadence until the goal's
// termination predicate holds or the cycle budget runs out. Pose goals finish
// on pose convergence. Collision goals also finish when the proximity sensor
// reports contact, so a descent stops on the surface instead of pushing into it.
package reach

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gwillem/armctl/pkg/pose"
	"github.com/gwillem/armctl/pkg/robot"
)

var (
	// ErrNoSolution is returned by an IKSolver that cannot reach the pose.
	ErrNoSolution = errors.New("no IK solution")
	// ErrUnreachablePose means the IK service found no joint angles for the target.
	ErrUnreachablePose = errors.New("unreachable pose")
	// ErrReachTimeout means the cycle budget ran out before the goal was satisfied.
	ErrReachTimeout = errors.New("reach timed out")
)

// GoalKind selects the termination predicate of a reach.
type GoalKind int

const (
	// Pose goals finish when the measured pose matches the target.
	Pose GoalKind = iota
	// Collision goals also finish when the proximity sensor reports contact.
	Collision
)

func (k GoalKind) String() string {
	switch k {
	case Pose:
		return "pose"
	case Collision:
		return "collision"
	default:
		return fmt.Sprintf("GoalKind(%d)", int(k))
	}
}

// State is a step of one reach attempt.
type State int

// Reach states. RequestingIK, Commanding and Polling are passed through in
// order; Satisfied, TimedOut and IKFailed end the attempt.
const (
	RequestingIK State = iota
	Commanding
	Polling
	Satisfied
	TimedOut
	IKFailed
)

func (s State) String() string {
	switch s {
	case RequestingIK:
		return "requesting_ik"
	case Commanding:
		return "commanding"
	case Polling:
		return "polling"
	case Satisfied:
		return "satisfied"
	case TimedOut:
		return "timed_out"
	case IKFailed:
		return "ik_failed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Trigger names the predicate that ended a satisfied reach.
type Trigger string

// Reach triggers. TriggerNone means the reach did not end satisfied.
const (
	TriggerNone    Trigger = ""
	TriggerPose    Trigger = "pose"
	TriggerContact Trigger = "contact"
)

// IKSolver turns a target pose into joint angles for a limb.
// It returns ErrNoSolution when the pose is outside the workspace.
type IKSolver interface {
	Solve(ctx context.Context, limb robot.Limb, target pose.Pose) (robot.JointAngles, error)
}

// JointSink accepts joint commands. Commands are fire-and-forget.
type JointSink interface {
	Command(ctx context.Context, limb robot.Limb, angles robot.JointAngles, kind GoalKind) error
}

// PoseSource reports the latest measured end-effector pose.
type PoseSource interface {
	Current() (pose.Pose, bool)
}

// ContactSensor reports whether the limb is touching a surface.
type ContactSensor interface {
	InCollision() bool
}

// DefaultPollInterval is used when Tuning leaves the interval unset.
const DefaultPollInterval = 20 * time.Millisecond

// Tuning bounds the polling loop.
type Tuning struct {
	PollInterval time.Duration
	MaxCycles    int
}

// Result describes how a reach ended.
type Result struct {
	State   State
	Cycles  int
	Trigger Trigger
}

// Reacher reaches goals for one limb. Reach calls are serialized.
type Reacher struct {
	limb    robot.Limb
	ik      IKSolver
	sink    JointSink
	poses   PoseSource
	contact ContactSensor
	tuning  Tuning
	logger  *slog.Logger

	mu sync.Mutex
}

// New creates a Reacher for limb.
func New(limb robot.Limb, ik IKSolver, sink JointSink, poses PoseSource, contact ContactSensor, tuning Tuning, logger *slog.Logger) *Reacher {
	if tuning.MaxCycles <= 0 {
		tuning.MaxCycles = 1
	}
	if tuning.PollInterval <= 0 {
		tuning.PollInterval = DefaultPollInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reacher{
		limb:    limb,
		ik:      ik,
		sink:    sink,
		poses:   poses,
		contact: contact,
		tuning:  tuning,
		logger:  logger.With("limb", limb),
	}
}

// Reach drives the limb to target and blocks until the goal is satisfied,
// the cycle budget is spent, or IK fails. It never retries.
func (r *Reacher) Reach(ctx context.Context, target pose.Pose, kind GoalKind) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	log := r.logger.With("kind", kind)
	log.Debug("reach", "state", RequestingIK, "target", target.String())

	angles, err := r.ik.Solve(ctx, r.limb, target)
	if errors.Is(err, ErrNoSolution) {
		log.Warn("reach", "state", IKFailed, "target", target.String())
		return Result{State: IKFailed}, fmt.Errorf("%s: %w", target, ErrUnreachablePose)
	}
	if err != nil {
		return Result{State: RequestingIK}, fmt.Errorf("request IK: %w", err)
	}

	log.Debug("reach", "state", Commanding, "joints", []float64(angles))
	if err := r.sink.Command(ctx, r.limb, angles, kind); err != nil {
		return Result{State: Commanding}, fmt.Errorf("command joints: %w", err)
	}

	log.Debug("reach", "state", Polling)
	res, err := r.poll(ctx, target, kind)
	if err != nil {
		log.Warn("reach", "state", res.State, "cycles", res.Cycles, "err", err)
		return res, err
	}
	log.Debug("reach", "state", res.State, "cycles", res.Cycles, "trigger", res.Trigger)
	return res, nil
}

func (r *Reacher) poll(ctx context.Context, target pose.Pose, kind GoalKind) (Result, error) {
	ticker := time.NewTicker(r.tuning.PollInterval)
	defer ticker.Stop()

	for cycle := 1; ; cycle++ {
		if trigger := r.satisfied(target, kind); trigger != TriggerNone {
			return Result{State: Satisfied, Cycles: cycle, Trigger: trigger}, nil
		}
		if cycle >= r.tuning.MaxCycles {
			return Result{State: TimedOut, Cycles: cycle}, fmt.Errorf("%d cycles: %w", cycle, ErrReachTimeout)
		}

		select {
		case <-ctx.Done():
			return Result{State: Polling, Cycles: cycle}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (r *Reacher) satisfied(target pose.Pose, kind GoalKind) Trigger {
	if current, ok := r.poses.Current(); ok && pose.Match(target, current) {
		return TriggerPose
	}
	if kind == Collision && r.contact.InCollision() {
		return TriggerContact
	}
	return TriggerNone
}
