package sensor

import (
	"sync"
	"testing"

	"github.com/gwillem/armctl/pkg/pose"
)

func TestPoseTracker_UnknownBeforeFeedback(t *testing.T) {
	tr := NewPoseTracker()
	if _, ok := tr.Current(); ok {
		t.Error("Current() ok = true before any feedback")
	}
}

func TestPoseTracker_Overwrites(t *testing.T) {
	tr := NewPoseTracker()
	first := pose.New(0.1, 0.2, 0.3, pose.GripperDown)
	second := pose.New(0.4, 0.5, 0.6, pose.GripperDown)

	tr.OnPose(first)
	tr.OnPose(second)

	got, ok := tr.Current()
	if !ok {
		t.Fatal("Current() ok = false after feedback")
	}
	if got != second {
		t.Errorf("Current() = %v, want %v", got, second)
	}
}

func TestPoseTracker_ConcurrentAccess(t *testing.T) {
	tr := NewPoseTracker()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			v := float64(i)
			tr.OnPose(pose.New(v, v, v, pose.GripperDown))
		}(i)
		go func() {
			defer wg.Done()
			if p, ok := tr.Current(); ok {
				if p.Position.X != p.Position.Y || p.Position.Y != p.Position.Z {
					t.Errorf("torn pose read: %v", p)
				}
			}
		}()
	}
	wg.Wait()
}

func TestProximityTracker_InCollision(t *testing.T) {
	tests := []struct {
		name   string
		sample *Range
		want   bool
	}{
		{"no sample yet", nil, false},
		{"below threshold", &Range{Distance: 0.05, Min: 0.004, Max: 0.4}, true},
		{"at threshold", &Range{Distance: 0.08, Min: 0.004, Max: 0.4}, false},
		{"above threshold", &Range{Distance: 0.2, Min: 0.004, Max: 0.4}, false},
		{"below sensor minimum", &Range{Distance: 0.001, Min: 0.004, Max: 0.4}, false},
		{"above sensor maximum", &Range{Distance: 65.0, Min: 0.004, Max: 0.4}, false},
	}

	for _, tt := range tests {
		tr := NewProximityTracker(0.08)
		if tt.sample != nil {
			tr.OnRange(tt.sample.Distance, tt.sample.Min, tt.sample.Max)
		}
		if got := tr.InCollision(); got != tt.want {
			t.Errorf("%s: InCollision() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestProximityTracker_Latest(t *testing.T) {
	tr := NewProximityTracker(0.08)
	if _, ok := tr.Latest(); ok {
		t.Error("Latest() ok = true before any sample")
	}

	tr.OnRange(0.3, 0.004, 0.4)
	tr.OnRange(0.1, 0.004, 0.4)

	r, ok := tr.Latest()
	if !ok {
		t.Fatal("Latest() ok = false after samples")
	}
	if r.Distance != 0.1 {
		t.Errorf("Latest().Distance = %v, want 0.1", r.Distance)
	}
}
