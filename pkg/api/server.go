// Package api exposes the limb behaviors over HTTP for the game orchestrator.
package api

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/gwillem/armctl/pkg/pose"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/sensor"
)

const Version = "1.0.0"

// Behaviors runs the game behaviors of one limb. *behavior.Sequencer implements it.
type Behaviors interface {
	MoveOutOfView(ctx context.Context) error
	MoveToStandby(ctx context.Context) error
	PickUpToken(ctx context.Context) error
	PlaceToken(ctx context.Context, cell int) error
}

// PoseSource reports the latest measured end-effector pose.
type PoseSource interface {
	Current() (pose.Pose, bool)
}

// RangeSource reports the latest proximity sample.
type RangeSource interface {
	Latest() (sensor.Range, bool)
	InCollision() bool
	Threshold() float64
}

// Limb is one limb served by the API.
type Limb struct {
	Limb      robot.Limb
	Role      robot.Role
	Behaviors Behaviors
	Poses     PoseSource
	Proximity RangeSource
}

// Server serves the limb API.
type Server struct {
	limbs     map[robot.Limb]Limb
	logger    *slog.Logger
	startTime time.Time
}

// NewServer creates a server for limbs.
func NewServer(logger *slog.Logger, limbs ...Limb) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		limbs:     make(map[robot.Limb]Limb, len(limbs)),
		logger:    logger.With("component", "api"),
		startTime: time.Now(),
	}
	for _, l := range limbs {
		s.limbs[l.Limb] = l
	}
	return s
}

// Handler returns a gin engine with CORS and all routes installed.
func (s *Server) Handler() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:    []string{"Origin", "Content-Length", "Content-Type"},
		ExposeHeaders:   []string{"Content-Length"},
		MaxAge:          12 * time.Hour,
	}))
	s.SetupRoutes(r)
	return r
}

// SetupRoutes installs the API routes on r.
func (s *Server) SetupRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/health", s.handleHealth)

		limbs := api.Group("/limbs/:limb")
		{
			limbs.GET("/state", s.handleState)
			limbs.POST("/out-of-view", s.handleOutOfView)
			limbs.POST("/standby", s.handleStandby)
			limbs.POST("/pick", s.handlePick)
			limbs.POST("/place/:cell", s.handlePlace)
		}
	}
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed", time.Since(start),
		)
	}
}

func (s *Server) limbNames() []robot.Limb {
	names := make([]robot.Limb, 0, len(s.limbs))
	for name := range s.limbs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
