// Package sensor caches the latest end-effector pose and proximity range of a limb.
//
// Feedback arrives on its own goroutine while the goal reacher polls, so each
// tracker is a single-value cell with overwrite semantics. Readers never see a
// torn value and writers never block.
package sensor

import (
	"sync/atomic"

	"github.com/gwillem/armctl/pkg/pose"
)

// PoseTracker holds the most recently observed end-effector pose.
type PoseTracker struct {
	latest atomic.Pointer[pose.Pose]
}

// NewPoseTracker creates a tracker with no pose yet.
func NewPoseTracker() *PoseTracker {
	return &PoseTracker{}
}

// OnPose stores p as the current pose. No validation, no history.
func (t *PoseTracker) OnPose(p pose.Pose) {
	t.latest.Store(&p)
}

// Current returns the latest pose. ok is false until the first feedback arrives.
func (t *PoseTracker) Current() (p pose.Pose, ok bool) {
	latest := t.latest.Load()
	if latest == nil {
		return pose.Pose{}, false
	}
	return *latest, true
}

// Range is one proximity sample with the sensor's valid bounds.
type Range struct {
	Distance float64 `json:"distance"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
}

// Valid reports whether the distance lies inside [Min, Max].
// Out-of-range readings mean nothing is in front of the sensor.
func (r Range) Valid() bool {
	return r.Distance >= r.Min && r.Distance <= r.Max
}

// ProximityTracker holds the most recent range sample and decides contact.
type ProximityTracker struct {
	threshold float64
	latest    atomic.Pointer[Range]
}

// NewProximityTracker creates a tracker that reports contact below threshold meters.
func NewProximityTracker(threshold float64) *ProximityTracker {
	return &ProximityTracker{threshold: threshold}
}

// OnRange stores a new sample.
func (t *ProximityTracker) OnRange(distance, min, max float64) {
	t.latest.Store(&Range{Distance: distance, Min: min, Max: max})
}

// Latest returns the last sample. ok is false before the first one.
func (t *ProximityTracker) Latest() (r Range, ok bool) {
	latest := t.latest.Load()
	if latest == nil {
		return Range{}, false
	}
	return *latest, true
}

// Threshold returns the configured collision distance.
func (t *ProximityTracker) Threshold() float64 {
	return t.threshold
}

// InCollision reports whether the latest valid sample is below the threshold.
// Without any sample it reports false so the limb can move before the sensor
// has published; collision goals then behave like plain pose goals.
func (t *ProximityTracker) InCollision() bool {
	r, ok := t.Latest()
	if !ok || !r.Valid() {
		return false
	}
	return r.Distance < t.threshold
}
