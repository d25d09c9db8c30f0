package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gwillem/armctl/pkg/behavior"
	"github.com/gwillem/armctl/pkg/board"
	"github.com/gwillem/armctl/pkg/reach"
	"github.com/gwillem/armctl/pkg/robot"
)

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, ApiResponse{
		Status: "success",
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now(),
			Version:   Version,
			Uptime:    time.Since(s.startTime).Round(time.Second).String(),
			Limbs:     s.limbNames(),
		},
	})
}

func (s *Server) handleState(c *gin.Context) {
	l, ok := s.limb(c)
	if !ok {
		return
	}

	resp := StateResponse{Limb: l.Limb, Role: l.Role}
	if l.Poses != nil {
		if p, ok := l.Poses.Current(); ok {
			resp.Pose = &p
		}
	}
	if l.Proximity != nil {
		if r, ok := l.Proximity.Latest(); ok {
			resp.Range = &r
		}
		resp.InContact = l.Proximity.InCollision()
		resp.Threshold = l.Proximity.Threshold()
	}

	c.JSON(http.StatusOK, ApiResponse{Status: "success", Data: resp})
}

func (s *Server) handleOutOfView(c *gin.Context) {
	s.runBehavior(c, "out-of-view", nil, func(ctx context.Context, b Behaviors) error {
		return b.MoveOutOfView(ctx)
	})
}

func (s *Server) handleStandby(c *gin.Context) {
	s.runBehavior(c, "standby", nil, func(ctx context.Context, b Behaviors) error {
		return b.MoveToStandby(ctx)
	})
}

func (s *Server) handlePick(c *gin.Context) {
	s.runBehavior(c, "pick", nil, func(ctx context.Context, b Behaviors) error {
		return b.PickUpToken(ctx)
	})
}

func (s *Server) handlePlace(c *gin.Context) {
	cell, err := strconv.Atoi(c.Param("cell"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("invalid cell %q", c.Param("cell")),
		})
		return
	}
	s.runBehavior(c, "place", &cell, func(ctx context.Context, b Behaviors) error {
		return b.PlaceToken(ctx, cell)
	})
}

// runBehavior blocks until the behavior ends and reports its outcome.
func (s *Server) runBehavior(c *gin.Context, name string, cell *int, fn func(context.Context, Behaviors) error) {
	l, ok := s.limb(c)
	if !ok {
		return
	}
	if l.Behaviors == nil {
		c.JSON(http.StatusServiceUnavailable, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("limb %s has no controller", l.Limb),
		})
		return
	}

	// A started behavior runs to its end even if the client goes away, so a
	// token is never left held or half placed.
	ctx := context.WithoutCancel(c.Request.Context())

	start := time.Now()
	if err := fn(ctx, l.Behaviors); err != nil {
		c.JSON(statusFor(err), ApiResponse{
			Status: "error",
			Error:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ApiResponse{
		Status:  "success",
		Message: name + " done",
		Data: BehaviorResponse{
			Limb:      l.Limb,
			Behavior:  name,
			Cell:      cell,
			ElapsedMs: time.Since(start).Milliseconds(),
		},
	})
}

func (s *Server) limb(c *gin.Context) (Limb, bool) {
	name, err := robot.ParseLimb(c.Param("limb"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ApiResponse{Status: "error", Error: err.Error()})
		return Limb{}, false
	}
	l, ok := s.limbs[name]
	if !ok {
		c.JSON(http.StatusNotFound, ApiResponse{
			Status: "error",
			Error:  fmt.Sprintf("limb %s is not served", name),
		})
		return Limb{}, false
	}
	return l, true
}

// statusFor maps behavior errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, board.ErrInvalidCellIndex):
		return http.StatusBadRequest
	case errors.Is(err, behavior.ErrWrongRole):
		return http.StatusForbidden
	case errors.Is(err, behavior.ErrBusy):
		return http.StatusConflict
	case errors.Is(err, reach.ErrUnreachablePose), errors.Is(err, reach.ErrReachTimeout):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
