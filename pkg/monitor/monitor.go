// Package monitor samples the trackers of running limbs for display.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gwillem/armctl/pkg/pose"
	"github.com/gwillem/armctl/pkg/robot"
	"github.com/gwillem/armctl/pkg/sensor"
)

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

// Target is one limb to watch.
type Target struct {
	Limb      robot.Limb
	Poses     PoseSource
	Proximity RangeSource
}

// Sample is what one limb's trackers held at a sampling instant.
type Sample struct {
	Limb       robot.Limb
	Pose       pose.Pose
	PoseKnown  bool
	Range      sensor.Range
	RangeKnown bool
	InContact  bool
	Threshold  float64
}

// State represents one sampling tick across all targets.
type State struct {
	Samples   []Sample
	Timestamp time.Time
}

// Monitor runs the sampling loop.
type Monitor struct {
	targets []Target
	hz      int

	mu      sync.RWMutex
	running bool
	contact map[robot.Limb]bool
	stateCh chan State
	logCh   chan string
}

// Config holds configuration for the monitor.
type Config struct {
	Targets []Target
	Hz      int
}

// New creates a monitor. Hz defaults to 30.
func New(cfg Config) *Monitor {
	if cfg.Hz <= 0 {
		cfg.Hz = 30
	}
	return &Monitor{
		targets: cfg.Targets,
		hz:      cfg.Hz,
		contact: make(map[robot.Limb]bool, len(cfg.Targets)),
		stateCh: make(chan State, 1),
		logCh:   make(chan string, 32),
	}
}

// States returns a channel that receives state updates.
// Only the newest state is kept when the reader falls behind.
func (m *Monitor) States() <-chan State {
	return m.stateCh
}

// Logs returns a channel that receives log messages.
func (m *Monitor) Logs() <-chan string {
	return m.logCh
}

// Hz returns the sampling frequency.
func (m *Monitor) Hz() int {
	return m.hz
}

// Logf queues a timestamped message for display. Messages are dropped when
// nobody reads them.
func (m *Monitor) Logf(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case m.logCh <- msg:
	default:
	}
}

// Start samples the targets until ctx is done.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return fmt.Errorf("already running")
	}
	m.running = true
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.running = false
		m.mu.Unlock()
	}()

	ticker := time.NewTicker(time.Second / time.Duration(m.hz))
	defer ticker.Stop()

	m.Step()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			m.Step()
		}
	}
}

// Step takes one sample of every target and publishes it.
func (m *Monitor) Step() State {
	s := State{
		Samples:   make([]Sample, 0, len(m.targets)),
		Timestamp: time.Now(),
	}
	for _, t := range m.targets {
		sample := Sample{Limb: t.Limb}
		if t.Poses != nil {
			sample.Pose, sample.PoseKnown = t.Poses.Current()
		}
		if t.Proximity != nil {
			sample.Range, sample.RangeKnown = t.Proximity.Latest()
			sample.InContact = t.Proximity.InCollision()
			sample.Threshold = t.Proximity.Threshold()
		}
		m.noteContact(sample)
		s.Samples = append(s.Samples, sample)
	}
	m.sendState(s)
	return s
}

func (m *Monitor) noteContact(s Sample) {
	m.mu.Lock()
	was := m.contact[s.Limb]
	m.contact[s.Limb] = s.InContact
	m.mu.Unlock()

	switch {
	case s.InContact && !was:
		m.Logf("%s: contact at %.3f m", s.Limb, s.Range.Distance)
	case !s.InContact && was:
		m.Logf("%s: contact cleared", s.Limb)
	}
}

func (m *Monitor) sendState(s State) {
	select {
	case m.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-m.stateCh:
		default:
		}
		select {
		case m.stateCh <- s:
		default:
		}
	}
}
