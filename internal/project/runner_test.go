package project

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/reelcut/reelcut-agent/internal/render"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// okTools is a toolset where every invocation succeeds.
type okTools struct{}

func (okTools) ProbeDuration(context.Context, string) (float64, error) { return 10, nil }
func (okTools) ExtractSegment(context.Context, render.Encoder, render.SegmentSpec, string) error {
	return nil
}
func (okTools) Concatenate(context.Context, render.Encoder, []string, render.ConcatSpec, string) error {
	return nil
}
func (okTools) RenderCaptionLayer(context.Context, render.CaptionSpec, string) error { return nil }
func (okTools) ComposeLayer(context.Context, render.Encoder, string, string, string) error {
	return nil
}
func (okTools) ExtendFreeze(context.Context, render.Encoder, string, string, float64, float64) error {
	return nil
}
func (okTools) MixNarration(context.Context, render.MixSpec, string) error { return nil }

func testRunner(t *testing.T, s *Service, repo Repository) *Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	timeouts := render.StageTimeouts{
		Probe: time.Second, Segment: time.Second, Concat: time.Second,
		Compose: time.Second, Mix: time.Second,
	}
	return NewRunner(s, repo, okTools{}, render.DefaultStrategy("h264_videotoolbox", "libx264"),
		timeouts, 2, t.TempDir(), logger)
}

func TestRunner_ProcessesJob(t *testing.T) {
	s, repo := testService(t)
	ctx := context.Background()

	p, _ := s.Create(ctx, analyzedProject(t))
	job, err := s.QueueRender(ctx, p.ID, false, "", 0, 0)
	if err != nil {
		t.Fatal(err)
	}

	r := testRunner(t, s, repo)
	r.processNextJob(ctx)

	done, err := s.Job(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if done.Status != JobDone {
		t.Fatalf("job status = %q (%s), want done", done.Status, done.Error)
	}
	if !strings.Contains(done.OutputPath, p.ID) || !strings.HasSuffix(done.OutputPath, ".mp4") {
		t.Errorf("output path = %q", done.OutputPath)
	}

	got, _ := s.Get(ctx, p.ID)
	if got.Status != timeline.StatusDone {
		t.Errorf("project status = %q, want done", got.Status)
	}
}

func TestRunner_FailsJobOnCompileError(t *testing.T) {
	s, repo := testService(t)
	ctx := context.Background()

	p := analyzedProject(t)
	p.Scenes = nil
	p, _ = s.Create(ctx, p)
	job, _ := s.QueueRender(ctx, p.ID, false, "", 0, 0)

	r := testRunner(t, s, repo)
	r.processNextJob(ctx)

	failed, _ := s.Job(ctx, job.ID)
	if failed.Status != JobFailed || failed.Error == "" {
		t.Fatalf("job = %+v, want failed with error", failed)
	}

	got, _ := s.Get(ctx, p.ID)
	if got.Status != timeline.StatusError {
		t.Errorf("project status = %q, want error", got.Status)
	}
}

func TestRunner_NoPendingJobsIsQuiet(t *testing.T) {
	s, repo := testService(t)
	r := testRunner(t, s, repo)
	r.processNextJob(context.Background())
}

func TestRunner_PauseResume(t *testing.T) {
	s, repo := testService(t)
	r := testRunner(t, s, repo)

	if r.IsPaused() {
		t.Fatal("new runner must not start paused")
	}
	r.Pause()
	if !r.IsPaused() {
		t.Fatal("Pause did not take")
	}
	r.Resume()
	if r.IsPaused() {
		t.Fatal("Resume did not take")
	}
}
