package preview

import (
	"math"
	"testing"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

func project(t *testing.T, scenes ...*timeline.Scene) *timeline.Project {
	t.Helper()
	p := timeline.NewProject("sampler", "/media/s.mp4", 60, 1920, 1080, 30)
	p.Scenes = scenes
	return p
}

func scene(t *testing.T, id string, start, end, speed float64) *timeline.Scene {
	t.Helper()
	s, err := timeline.NewScene(id, start, end)
	if err != nil {
		t.Fatalf("NewScene: %v", err)
	}
	s.Speed = speed
	return s
}

func TestSample_EmptyTimeline(t *testing.T) {
	p := project(t)
	if got := Sample(p, 5); got != nil {
		t.Fatalf("Sample on empty timeline = %v, want nil", got)
	}
}

func TestSample_TwoSceneTimeline(t *testing.T) {
	// Effective durations 4s and 6s: scene a is [0,8) at 2x, scene b is
	// [20,26) at 1x. Total 10s, count=5, interval 2s.
	p := project(t,
		scene(t, "a", 0, 8, 2.0),
		scene(t, "b", 20, 26, 1.0),
	)

	got := Sample(p, 5)
	if len(got) != 5 {
		t.Fatalf("sample count = %d, want 5", len(got))
	}

	for i := 1; i < len(got); i++ {
		if got[i] <= got[i-1] {
			t.Fatalf("samples not strictly increasing: %v", got)
		}
	}

	// Timeline instants 0,2,4,6,8. The first two fall in scene a
	// (0..4s effective) and map through its 2x speed; the 3rd (instant
	// 4.0s) onward fall in scene b.
	want := []float64{0, 4, 20, 22, 24}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-9 {
			t.Fatalf("sample[%d] = %v, want %v (all: %v)", i, got[i], want[i], got)
		}
	}
}

func TestSample_CountClampedToOne(t *testing.T) {
	p := project(t, scene(t, "a", 0, 10, 1.0))
	got := Sample(p, 0)
	if len(got) != 1 {
		t.Fatalf("Sample(p, 0) length = %d, want 1", len(got))
	}
}

func TestSample_SpeedMapsBackToSource(t *testing.T) {
	// A 4x scene over [10,20) has 2.5s effective duration. The sample
	// at timeline instant 1.25s must land at source 10 + 1.25*4 = 15.
	p := project(t, scene(t, "a", 10, 20, 4.0))
	got := Sample(p, 2)
	if len(got) != 2 {
		t.Fatalf("sample count = %d, want 2", len(got))
	}
	if math.Abs(got[1]-15.0) > 1e-9 {
		t.Fatalf("sample[1] = %v, want 15", got[1])
	}
}
