package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"
)

// StageTimeouts bound each external invocation. A stage that exceeds
// its timeout is killed and treated as a failed attempt.
type StageTimeouts struct {
	Probe   time.Duration
	Segment time.Duration
	Concat  time.Duration
	Compose time.Duration
	Mix     time.Duration
}

// Executor runs a compiled plan against a toolset. Per-scene
// extraction is concurrent under a bounded worker pool; the assembly
// stages run in order. Every encoding step gets two attempts, primary
// encoder then fallback.
type Executor struct {
	tools    Toolset
	strategy EncoderStrategy
	workers  int
	timeouts StageTimeouts
	logger   *slog.Logger

	// OnStage, when set, is called after each completed pipeline step.
	// Used by the CLI to drive a progress bar.
	OnStage func(name string)
}

// NewExecutor wires an executor. workers below 1 is clamped to 1.
func NewExecutor(tools Toolset, strategy EncoderStrategy, workers int, timeouts StageTimeouts, logger *slog.Logger) *Executor {
	if workers < 1 {
		workers = 1
	}
	return &Executor{
		tools:    tools,
		strategy: strategy,
		workers:  workers,
		timeouts: timeouts,
		logger:   logger,
	}
}

// Execute renders the plan into outputPath. Intermediate files live in
// a temp directory that is removed on return.
func (x *Executor) Execute(ctx context.Context, plan *RenderPlan, outputPath string) error {
	if len(plan.Segments) == 0 {
		return ErrNoScenes
	}

	workDir, err := os.MkdirTemp("", "reelcut_render_")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	paths, err := x.extractSegments(ctx, plan, workDir)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return ErrNoRenderableScenes
	}
	if len(paths) < len(plan.Segments) {
		x.logger.Warn("some scenes were dropped from the render",
			"rendered", len(paths), "total", len(plan.Segments))
	}

	concatOut := outputPath
	if plan.Captions != nil || plan.Narration != nil {
		concatOut = filepath.Join(workDir, "concat.mp4")
	}
	if err := x.concatenate(ctx, plan, paths, concatOut); err != nil {
		return err
	}
	x.stageDone("concat")

	current := concatOut
	if plan.Captions != nil {
		composed := outputPath
		if plan.Narration != nil {
			composed = filepath.Join(workDir, "captioned.mp4")
		}
		if err := x.burnCaptions(ctx, plan, current, composed, workDir); err != nil {
			return err
		}
		current = composed
	}
	x.stageDone("captions")

	if plan.Narration != nil {
		if err := x.mixNarration(ctx, plan, current, outputPath, workDir); err != nil {
			return err
		}
	}
	x.stageDone("narration")

	return nil
}

// StepCount is the number of OnStage callbacks Execute will make for
// the plan: one per scene plus the three assembly stages.
func StepCount(plan *RenderPlan) int {
	return len(plan.Segments) + 3
}

func (x *Executor) stageDone(name string) {
	if x.OnStage != nil {
		x.OnStage(name)
	}
}

// extractSegments renders every scene concurrently. A scene that fails
// on both encoders is dropped rather than failing the whole render;
// the returned paths keep timeline order.
func (x *Executor) extractSegments(ctx context.Context, plan *RenderPlan, workDir string) ([]string, error) {
	results := make([]string, len(plan.Segments))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(x.workers)
	for i, seg := range plan.Segments {
		i, seg := i, seg
		g.Go(func() error {
			out := filepath.Join(workDir, fmt.Sprintf("seg_%04d.mp4", i))
			err := x.withTimeout(gctx, x.timeouts.Segment, func(c context.Context) error {
				return x.tools.ExtractSegment(c, x.strategy.Primary, seg, out)
			})
			if err != nil {
				x.logger.Warn("segment extraction failed, retrying with fallback encoder",
					"scene_id", seg.SceneID, "encoder", x.strategy.Primary.Name, "error", err)
				err = x.withTimeout(gctx, x.timeouts.Segment, func(c context.Context) error {
					return x.tools.ExtractSegment(c, x.strategy.Fallback, seg, out)
				})
			}
			if err != nil {
				x.logger.Error("segment extraction failed on both encoders, dropping scene",
					"scene_id", seg.SceneID, "error", err)
				return nil
			}
			results[i] = out
			x.stageDone("segment " + seg.SceneID)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(results))
	for _, p := range results {
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths, nil
}

func (x *Executor) concatenate(ctx context.Context, plan *RenderPlan, paths []string, outPath string) error {
	err := x.withTimeout(ctx, x.timeouts.Concat, func(c context.Context) error {
		return x.tools.Concatenate(c, x.strategy.Primary, paths, plan.Concat, outPath)
	})
	if err != nil {
		x.logger.Warn("concat failed, retrying with fallback encoder", "error", err)
		err = x.withTimeout(ctx, x.timeouts.Concat, func(c context.Context) error {
			return x.tools.Concatenate(c, x.strategy.Fallback, paths, plan.Concat, outPath)
		})
	}
	if err != nil {
		return fmt.Errorf("concat stage: %w", err)
	}
	return nil
}

// burnCaptions renders the transparent caption layer and composites it
// over the picture. The layer render has no encoder choice so it gets
// a plain second attempt.
func (x *Executor) burnCaptions(ctx context.Context, plan *RenderPlan, basePath, outPath, workDir string) error {
	layer := filepath.Join(workDir, "captions.mov")
	err := x.withTimeout(ctx, x.timeouts.Compose, func(c context.Context) error {
		return x.tools.RenderCaptionLayer(c, *plan.Captions, layer)
	})
	if err != nil {
		x.logger.Warn("caption layer render failed, retrying", "error", err)
		err = x.withTimeout(ctx, x.timeouts.Compose, func(c context.Context) error {
			return x.tools.RenderCaptionLayer(c, *plan.Captions, layer)
		})
	}
	if err != nil {
		return fmt.Errorf("caption layer stage: %w", err)
	}

	err = x.withTimeout(ctx, x.timeouts.Compose, func(c context.Context) error {
		return x.tools.ComposeLayer(c, x.strategy.Primary, basePath, layer, outPath)
	})
	if err != nil {
		x.logger.Warn("caption compose failed, retrying with fallback encoder", "error", err)
		err = x.withTimeout(ctx, x.timeouts.Compose, func(c context.Context) error {
			return x.tools.ComposeLayer(c, x.strategy.Fallback, basePath, layer, outPath)
		})
	}
	if err != nil {
		return fmt.Errorf("caption compose stage: %w", err)
	}
	return nil
}

// mixNarration reconciles the narration track against the rendered
// picture, extends the picture with a freeze frame when the narration
// overruns, then mixes both audio tracks pinned to the final duration.
func (x *Executor) mixNarration(ctx context.Context, plan *RenderPlan, videoPath, outPath, workDir string) error {
	videoDur, err := x.probe(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("probe rendered video: %w", err)
	}
	voiceDur, err := x.probe(ctx, plan.Narration.Path)
	if err != nil {
		return fmt.Errorf("probe narration: %w", err)
	}

	fix := ReconcileNarration(videoDur, voiceDur)
	if fix.ExtendBy > 0 {
		extended := filepath.Join(workDir, "extended.mp4")
		eerr := x.withTimeout(ctx, x.timeouts.Compose, func(c context.Context) error {
			return x.tools.ExtendFreeze(c, x.strategy.Primary, videoPath, extended, fix.ExtendBy, fix.TargetDuration)
		})
		if eerr != nil {
			x.logger.Warn("freeze extension failed, retrying with fallback encoder", "error", eerr)
			eerr = x.withTimeout(ctx, x.timeouts.Compose, func(c context.Context) error {
				return x.tools.ExtendFreeze(c, x.strategy.Fallback, videoPath, extended, fix.ExtendBy, fix.TargetDuration)
			})
		}
		if eerr != nil {
			return fmt.Errorf("freeze extension stage: %w", eerr)
		}
		videoPath = extended

		// The extension changes the picture length, so the stretch
		// decision is recomputed against the real new duration.
		newDur, perr := x.probe(ctx, videoPath)
		if perr != nil {
			return fmt.Errorf("probe extended video: %w", perr)
		}
		fix = ReconcileNarration(newDur, voiceDur)
	}

	mix := MixSpec{
		VideoPath:       videoPath,
		NarrationPath:   plan.Narration.Path,
		NarrationVolume: plan.Narration.Volume,
		OriginalVolume:  plan.Narration.OriginalVolume,
		TargetDuration:  fix.TargetDuration,
	}
	if fix.Stretched() {
		mix.TempoSteps = AtempoChain(fix.TempoRatio)
	}

	err = x.withTimeout(ctx, x.timeouts.Mix, func(c context.Context) error {
		return x.tools.MixNarration(c, mix, outPath)
	})
	if err != nil {
		x.logger.Warn("narration mix failed, retrying", "error", err)
		err = x.withTimeout(ctx, x.timeouts.Mix, func(c context.Context) error {
			return x.tools.MixNarration(c, mix, outPath)
		})
	}
	if err != nil {
		return fmt.Errorf("narration mix stage: %w", err)
	}
	return nil
}

func (x *Executor) probe(ctx context.Context, path string) (float64, error) {
	var dur float64
	err := x.withTimeout(ctx, x.timeouts.Probe, func(c context.Context) error {
		var perr error
		dur, perr = x.tools.ProbeDuration(c, path)
		return perr
	})
	return dur, err
}

func (x *Executor) withTimeout(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	c, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	return fn(c)
}
