// Package behavior composes goal reaches and gripper actions into the four
// game behaviors of a limb.
//
// Every behavior is a fixed script. Each step blocks until its reach ends, and
// the first step that does not end satisfied aborts the rest of the script.
package behavior

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gwillem/armctl/pkg/board"
	"github.com/gwillem/armctl/pkg/pose"
	"github.com/gwillem/armctl/pkg/reach"
	"github.com/gwillem/armctl/pkg/robot"
)

var (
	// ErrWrongRole is returned when a behavior is requested from a limb whose role does not run it.
	ErrWrongRole = errors.New("behavior not available for this limb's role")
	// ErrBusy is returned when another behavior is already running on the limb.
	ErrBusy = errors.New("limb busy")
)

// Reacher reaches one goal pose.
type Reacher interface {
	Reach(ctx context.Context, target pose.Pose, kind reach.GoalKind) (reach.Result, error)
}

// Gripper holds and lets go of a token. No feedback is expected.
type Gripper interface {
	Grip(ctx context.Context) error
	Release(ctx context.Context) error
}

// Config holds the fixed geometry of the behaviors.
type Config struct {
	Limb robot.Limb
	Role robot.Role

	OutOfView    pose.Pose
	Standby      pose.Pose
	TokenHover   pose.Pose
	TokenContact pose.Pose

	Grid        board.Grid
	HoverHeight float64
}

// Sequencer runs behaviors for one limb.
type Sequencer struct {
	cfg     Config
	reacher Reacher
	gripper Gripper
	logger  *slog.Logger

	mu sync.Mutex
}

// New creates a sequencer. gripper may be nil for a spectator limb.
func New(cfg Config, reacher Reacher, gripper Gripper, logger *slog.Logger) *Sequencer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sequencer{
		cfg:     cfg,
		reacher: reacher,
		gripper: gripper,
		logger:  logger.With("limb", cfg.Limb, "role", cfg.Role),
	}
}

// Limb returns the limb this sequencer drives.
func (s *Sequencer) Limb() robot.Limb {
	return s.cfg.Limb
}

// Role returns the limb's role.
func (s *Sequencer) Role() robot.Role {
	return s.cfg.Role
}

// MoveOutOfView moves the spectator limb clear of the camera.
func (s *Sequencer) MoveOutOfView(ctx context.Context) error {
	return s.run(ctx, "out-of-view", robot.Spectator, func(r *run) error {
		return r.reach("move out of view", s.cfg.OutOfView, reach.Pose)
	})
}

// MoveToStandby moves the player limb to its between-turns pose.
func (s *Sequencer) MoveToStandby(ctx context.Context) error {
	return s.run(ctx, "standby", robot.Player, func(r *run) error {
		return r.reach("move to standby", s.cfg.Standby, reach.Pose)
	})
}

// PickUpToken grips the top token of the stack and lifts it back to hover height.
func (s *Sequencer) PickUpToken(ctx context.Context) error {
	return s.run(ctx, "pick", robot.Player, func(r *run) error {
		if err := r.reach("hover above tokens", s.cfg.TokenHover, reach.Pose); err != nil {
			return err
		}
		if err := r.reach("descend onto tokens", s.cfg.TokenContact, reach.Collision); err != nil {
			return err
		}
		if err := r.act("grip token", s.gripper.Grip); err != nil {
			return err
		}
		return r.reach("lift token", s.cfg.TokenHover, reach.Pose)
	})
}

// PlaceToken lowers the held token onto cell and releases it.
func (s *Sequencer) PlaceToken(ctx context.Context, cell int) error {
	return s.run(ctx, "place", robot.Player, func(r *run) error {
		place, err := s.cfg.Grid.CellPose(cell)
		if err != nil {
			return fmt.Errorf("map cell: %w", err)
		}
		hover := place.Raised(s.cfg.HoverHeight)

		r.log = r.log.With("cell", cell)
		if err := r.reach("hover above cell", hover, reach.Pose); err != nil {
			return err
		}
		if err := r.reach("descend onto cell", place, reach.Collision); err != nil {
			return err
		}
		if err := r.act("release token", s.gripper.Release); err != nil {
			return err
		}
		return r.reach("retreat from cell", hover, reach.Pose)
	})
}

// run is one invocation of a behavior script.
type run struct {
	ctx     context.Context
	reacher Reacher
	log     *slog.Logger
}

func (r *run) reach(step string, target pose.Pose, kind reach.GoalKind) error {
	res, err := r.reacher.Reach(r.ctx, target, kind)
	if err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	r.log.Info(step, "kind", kind, "cycles", res.Cycles, "trigger", res.Trigger)
	return nil
}

func (r *run) act(step string, fn func(context.Context) error) error {
	if err := fn(r.ctx); err != nil {
		return fmt.Errorf("%s: %w", step, err)
	}
	r.log.Info(step)
	return nil
}

func (s *Sequencer) run(ctx context.Context, name string, role robot.Role, script func(*run) error) error {
	if s.cfg.Role != role {
		return fmt.Errorf("%s on %s limb: %w", name, s.cfg.Role, ErrWrongRole)
	}
	if !s.mu.TryLock() {
		return fmt.Errorf("%s: %w", name, ErrBusy)
	}
	defer s.mu.Unlock()

	r := &run{
		ctx:     ctx,
		reacher: s.reacher,
		log:     s.logger.With("behavior", name, "run", uuid.NewString()),
	}
	start := time.Now()
	r.log.Info("behavior started")
	if err := script(r); err != nil {
		r.log.Warn("behavior aborted", "err", err, "elapsed", time.Since(start))
		return fmt.Errorf("%s: %w", name, err)
	}
	r.log.Info("behavior done", "elapsed", time.Since(start))
	return nil
}
