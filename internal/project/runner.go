package project

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/reelcut/reelcut-agent/internal/render"
	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// Runner polls for pending render jobs and executes them one at a
// time. Concurrency lives inside the executor's segment pool, not
// across jobs: a single machine renders one project at a time.
type Runner struct {
	service    *Service
	repo       Repository
	tools      render.Toolset
	strategy   render.EncoderStrategy
	timeouts   render.StageTimeouts
	workers    int
	rendersDir string
	logger     *slog.Logger

	pollInterval time.Duration
	running      atomic.Bool
	paused       atomic.Bool
}

func NewRunner(service *Service, repo Repository, tools render.Toolset, strategy render.EncoderStrategy,
	timeouts render.StageTimeouts, workers int, rendersDir string, logger *slog.Logger) *Runner {
	return &Runner{
		service:      service,
		repo:         repo,
		tools:        tools,
		strategy:     strategy,
		timeouts:     timeouts,
		workers:      workers,
		rendersDir:   rendersDir,
		logger:       logger,
		pollInterval: 2 * time.Second,
	}
}

func (r *Runner) Start(ctx context.Context) {
	if r.running.Swap(true) {
		return
	}

	r.logger.Info("render runner started")

	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("render runner stopping")
			r.running.Store(false)
			return
		case <-ticker.C:
			if !r.paused.Load() {
				r.processNextJob(ctx)
			}
		}
	}
}

func (r *Runner) Pause() {
	r.paused.Store(true)
	r.logger.Info("render runner paused")
}

func (r *Runner) Resume() {
	r.paused.Store(false)
	r.logger.Info("render runner resumed")
}

func (r *Runner) IsPaused() bool {
	return r.paused.Load()
}

func (r *Runner) IsRunning() bool {
	return r.running.Load()
}

func (r *Runner) processNextJob(ctx context.Context) {
	jobs, err := r.repo.ListPendingJobs(ctx)
	if err != nil {
		r.logger.Error("failed to list pending jobs", "error", err)
		return
	}
	if len(jobs) == 0 {
		return
	}

	job := jobs[0]
	logger := r.logger.With("job_id", job.ID, "project_id", job.ProjectID)
	logger.Info("processing render job")

	p, err := r.service.Get(ctx, job.ProjectID)
	if err != nil {
		r.repo.UpdateJobStatus(ctx, job.ID, JobFailed, "project not found", "")
		return
	}

	r.repo.UpdateJobStatus(ctx, job.ID, JobRunning, "", "")
	r.service.SetStatus(ctx, p.ID, timeline.StatusRendering, "")

	outputPath, err := r.renderProject(ctx, p, job)
	if err != nil {
		logger.Error("render failed", "error", err)
		r.repo.UpdateJobStatus(ctx, job.ID, JobFailed, err.Error(), "")
		r.service.SetStatus(ctx, p.ID, timeline.StatusError, err.Error())
		return
	}

	logger.Info("render complete", "output", outputPath)
	r.repo.UpdateJobStatus(ctx, job.ID, JobDone, "", outputPath)
	r.service.SetStatus(ctx, p.ID, timeline.StatusDone, "")
}

func (r *Runner) renderProject(ctx context.Context, p *timeline.Project, job *RenderJob) (string, error) {
	plan, err := render.Compile(p, render.Options{
		Width:        job.TargetWidth,
		Height:       job.TargetHeight,
		BurnCaptions: job.BurnCaptions,
		CaptionStyle: job.CaptionStyle,
	})
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(r.rendersDir, 0755); err != nil {
		return "", fmt.Errorf("create renders dir: %w", err)
	}
	outputPath := filepath.Join(r.rendersDir, fmt.Sprintf("%s_%s.mp4", p.ID, job.ID))

	exec := render.NewExecutor(r.tools, r.strategy, r.workers, r.timeouts, r.logger)
	if err := exec.Execute(ctx, plan, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}
