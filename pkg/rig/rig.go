// Package rig wires the controller of each limb from the configuration:
// trackers fed by the feedback stream, a goal reacher talking to the IK
// service and the servo bus, and a behavior sequencer on top.
package rig

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/gwillem/armctl/pkg/behavior"
	"github.com/gwillem/armctl/pkg/board"
	"github.com/gwillem/armctl/pkg/bridge"
	"github.com/gwillem/armctl/pkg/pose"
	"github.com/gwillem/armctl/pkg/reach"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/sensor"
)

// Driver moves the joints and the gripper of one limb. *robot.Arm implements it.
type Driver interface {
	MoveJoints(ctx context.Context, angles robot.JointAngles) error
	MoveJointsTimed(ctx context.Context, angles robot.JointAngles, moveMs int) error
	Grip(ctx context.Context) error
	Release(ctx context.Context) error
}

// Limb is the wired controller of one limb.
type Limb struct {
	Limb      robot.Limb
	Role      robot.Role
	Poses     *sensor.PoseTracker
	Proximity *sensor.ProximityTracker
	Reacher   *reach.Reacher
	Sequencer *behavior.Sequencer

	closer func() error
}

// Close releases the limb's hardware, if any.
func (l *Limb) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer()
}

// Build wires a limb around driver and ik. Nothing is opened.
func Build(cfg *robot.Config, limb robot.Limb, driver Driver, ik reach.IKSolver, logger *slog.Logger) (*Limb, error) {
	if logger == nil {
		logger = slog.Default()
	}
	_, role, err := cfg.Arm(limb)
	if err != nil {
		return nil, err
	}

	poses := sensor.NewPoseTracker()
	proximity := sensor.NewProximityTracker(cfg.Tuning.CollisionThreshold)
	sink := jointSink{limb: limb, driver: driver, descentMs: cfg.Tuning.DescentMoveMs}

	reacher := reach.New(limb, ik, sink, poses, proximity, reach.Tuning{
		PollInterval: cfg.Tuning.PollInterval(),
		MaxCycles:    cfg.Tuning.MaxCycles,
	}, logger)

	seq := behavior.New(BehaviorConfig(cfg, limb, role), reacher, driver, logger)

	return &Limb{
		Limb:      limb,
		Role:      role,
		Poses:     poses,
		Proximity: proximity,
		Reacher:   reacher,
		Sequencer: seq,
	}, nil
}

// BehaviorConfig derives the behavior geometry for a limb from the configuration.
func BehaviorConfig(cfg *robot.Config, limb robot.Limb, role robot.Role) behavior.Config {
	return behavior.Config{
		Limb:         limb,
		Role:         role,
		OutOfView:    cfg.Poses.OutOfView,
		Standby:      cfg.Poses.Standby,
		TokenHover:   cfg.Poses.TokenHover,
		TokenContact: cfg.Poses.TokenContact,
		Grid: board.Grid{
			CenterX:     cfg.Board.CenterX,
			CenterY:     cfg.Board.CenterY,
			CellSide:    cfg.Board.CellSide,
			Z:           cfg.Board.PlaceZ,
			Orientation: pose.GripperDown,
		},
		HoverHeight: cfg.Board.HoverHeight,
	}
}

// jointSink sends reacher commands to the servo bus. Collision goals use a
// timed move so the limb is still travelling when contact is detected.
type jointSink struct {
	limb      robot.Limb
	driver    Driver
	descentMs int
}

func (s jointSink) Command(ctx context.Context, limb robot.Limb, angles robot.JointAngles, kind reach.GoalKind) error {
	if limb != s.limb {
		return fmt.Errorf("command for %s sent to %s bus", limb, s.limb)
	}
	if kind == reach.Collision && s.descentMs > 0 {
		return s.driver.MoveJointsTimed(ctx, angles, s.descentMs)
	}
	return s.driver.MoveJoints(ctx, angles)
}

// Rig holds the wired limbs and the feedback stream that feeds them.
type Rig struct {
	limbs map[robot.Limb]*Limb
	feed  *bridge.Feed
}

// Open connects the arms for limbs (every arm with a port when none are
// given), the IK client and the feedback stream. Call Run to start feedback.
func Open(ctx context.Context, cfg *robot.Config, logger *slog.Logger, limbs ...robot.Limb) (*Rig, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if len(limbs) == 0 {
		for _, a := range []robot.ArmConfig{cfg.Player, cfg.Spectator} {
			if a.Port != "" {
				limbs = append(limbs, a.Limb)
			}
		}
	}

	ik := bridge.NewIKClient(cfg.Services.IKURL)
	r := &Rig{
		limbs: make(map[robot.Limb]*Limb, len(limbs)),
		feed:  bridge.NewFeed(cfg.Services.FeedbackURL, logger),
	}

	for _, limb := range limbs {
		armCfg, _, err := cfg.Arm(limb)
		if err != nil {
			r.Close()
			return nil, err
		}
		arm, err := robot.NewArm(ctx, armCfg)
		if err != nil {
			r.Close()
			return nil, fmt.Errorf("open %s arm: %w", limb, err)
		}
		if err := arm.Enable(ctx); err != nil {
			arm.Close()
			r.Close()
			return nil, fmt.Errorf("enable %s arm: %w", limb, err)
		}

		l, err := Build(cfg, arm.Limb(), arm, ik, logger)
		if err != nil {
			arm.Close()
			r.Close()
			return nil, err
		}
		l.closer = func() error {
			return errors.Join(arm.Disable(context.Background()), arm.Close())
		}
		r.add(l)
	}
	return r, nil
}

// New assembles a rig from already built limbs.
func New(feed *bridge.Feed, limbs ...*Limb) *Rig {
	r := &Rig{limbs: make(map[robot.Limb]*Limb, len(limbs)), feed: feed}
	for _, l := range limbs {
		r.add(l)
	}
	return r
}

func (r *Rig) add(l *Limb) {
	r.limbs[l.Limb] = l
	if r.feed != nil {
		r.feed.Subscribe(l.Limb, l.Poses, l.Proximity)
	}
}

// Limb returns the wired limb, or false when it was not opened.
func (r *Rig) Limb(limb robot.Limb) (*Limb, bool) {
	l, ok := r.limbs[limb]
	return l, ok
}

// Limbs returns the wired limbs sorted by name.
func (r *Rig) Limbs() []*Limb {
	out := make([]*Limb, 0, len(r.limbs))
	for _, l := range r.limbs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Limb < out[j].Limb })
	return out
}

// Run streams feedback into the trackers until ctx is done.
func (r *Rig) Run(ctx context.Context) error {
	if r.feed == nil {
		<-ctx.Done()
		return ctx.Err()
	}
	return r.feed.Run(ctx)
}

// Close disables and closes every opened arm.
func (r *Rig) Close() error {
	var errs []error
	for _, l := range r.limbs {
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", l.Limb, err))
		}
	}
	return errors.Join(errs...)
}
