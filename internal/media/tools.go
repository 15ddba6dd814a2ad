// Package media runs ffmpeg and ffprobe as subprocesses. It is the
// single implementation of the render toolset contract used by the
// agent; the render package never shells out on its own.
package media

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/reelcut/reelcut-agent/internal/render"
)

const maxStderrBytes = 8 * 1024 // 8 KB tail of stderr kept for diagnostics

// Config holds the toolset's configuration.
type Config struct {
	FFmpegPath  string // path to ffmpeg binary; empty = auto-detect
	FFprobePath string // path to ffprobe binary; empty = auto-detect
	Logger      *slog.Logger
}

// RunResult captures one subprocess invocation.
type RunResult struct {
	ExitCode   int
	StderrTail string
	Duration   time.Duration
}

// IsSuccess reports whether the command exited cleanly.
func (r RunResult) IsSuccess() bool {
	return r.ExitCode == 0
}

// FFmpegTools is the production toolset.
type FFmpegTools struct {
	cfg     Config
	ffmpeg  string
	ffprobe string

	doctorOnce sync.Once
	doctor     *Doctor
}

// NewTools resolves the binaries and returns the toolset.
func NewTools(cfg Config) (*FFmpegTools, error) {
	ffmpeg, err := resolveBinary(cfg.FFmpegPath, "ffmpeg")
	if err != nil {
		return nil, err
	}
	ffprobe, err := resolveBinary(cfg.FFprobePath, "ffprobe")
	if err != nil {
		return nil, err
	}

	cfg.Logger.Info("media toolset initialised", "ffmpeg", ffmpeg, "ffprobe", ffprobe)
	return &FFmpegTools{cfg: cfg, ffmpeg: ffmpeg, ffprobe: ffprobe}, nil
}

// FFmpegPath returns the resolved ffmpeg binary path.
func (t *FFmpegTools) FFmpegPath() string { return t.ffmpeg }

// ProbeDuration reads the container duration in seconds.
func (t *FFmpegTools) ProbeDuration(ctx context.Context, path string) (float64, error) {
	var stdout bytes.Buffer
	result := t.run(ctx, t.ffprobe, probeArgs(path), &stdout)
	if !result.IsSuccess() {
		return 0, fmt.Errorf("ffprobe exited %d: %s", result.ExitCode, result.StderrTail)
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(stdout.String()), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse probed duration %q: %w", strings.TrimSpace(stdout.String()), err)
	}
	return dur, nil
}

// ExtractSegment renders one scene into a standalone clip.
func (t *FFmpegTools) ExtractSegment(ctx context.Context, enc render.Encoder, seg render.SegmentSpec, outPath string) error {
	allowText := true
	if len(seg.Overlays) > 0 && !t.drawtextSupported(ctx) {
		t.cfg.Logger.Warn("drawtext filter unavailable, rendering without text overlays",
			"scene_id", seg.SceneID)
		allowText = false
	}
	return t.encode(ctx, segmentArgs(enc, seg, allowText, outPath), "extract", outPath)
}

// Concatenate joins the segments via a concat list file.
func (t *FFmpegTools) Concatenate(ctx context.Context, enc render.Encoder, segmentPaths []string, spec render.ConcatSpec, outPath string) error {
	listPath := outPath + ".txt"
	var b strings.Builder
	for _, p := range segmentPaths {
		fmt.Fprintf(&b, "file '%s'\n", p)
	}
	if err := os.WriteFile(listPath, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	defer os.Remove(listPath)

	return t.encode(ctx, concatArgs(enc, listPath, spec, outPath), "concat", outPath)
}

// RenderCaptionLayer renders the caption document onto a transparent
// canvas sized to the caption track's total word window.
func (t *FFmpegTools) RenderCaptionLayer(ctx context.Context, spec render.CaptionSpec, outPath string) error {
	if len(spec.Groups) == 0 {
		return fmt.Errorf("caption spec has no groups")
	}
	assPath := outPath + ".ass"
	if err := os.WriteFile(assPath, []byte(render.BuildASS(&spec)), 0644); err != nil {
		return fmt.Errorf("write subtitle document: %w", err)
	}
	defer os.Remove(assPath)

	duration := spec.Groups[len(spec.Groups)-1].End
	return t.encode(ctx, captionLayerArgs(spec, assPath, duration, outPath), "captions", outPath)
}

// ComposeLayer stacks the caption layer over the picture.
func (t *FFmpegTools) ComposeLayer(ctx context.Context, enc render.Encoder, basePath, overlayPath, outPath string) error {
	return t.encode(ctx, composeArgs(enc, basePath, overlayPath, outPath), "compose", outPath)
}

// ExtendFreeze clones the last frame for extra seconds.
func (t *FFmpegTools) ExtendFreeze(ctx context.Context, enc render.Encoder, inPath, outPath string, extra, target float64) error {
	return t.encode(ctx, extendArgs(enc, inPath, outPath, extra, target), "extend", outPath)
}

// MixNarration mixes the narration track over the rendered video.
func (t *FFmpegTools) MixNarration(ctx context.Context, spec render.MixSpec, outPath string) error {
	return t.encode(ctx, mixArgs(spec, outPath), "mix", outPath)
}

func (t *FFmpegTools) encode(ctx context.Context, args []string, stage, outPath string) error {
	result := t.run(ctx, t.ffmpeg, args, io.Discard)
	if !result.IsSuccess() {
		return fmt.Errorf("%s exited %d: %s", stage, result.ExitCode, truncate(result.StderrTail, 512))
	}
	if _, err := os.Stat(outPath); err != nil {
		return fmt.Errorf("%s produced no output: %w", stage, err)
	}
	return nil
}

// run is the core subprocess execution helper.
func (t *FFmpegTools) run(ctx context.Context, bin string, args []string, stdout io.Writer) RunResult {
	start := time.Now()

	cmd := exec.CommandContext(ctx, bin, args...)

	var stderrBuf bytes.Buffer
	cmd.Stderr = &limitedWriter{w: &stderrBuf, limit: maxStderrBytes}
	cmd.Stdout = stdout

	err := cmd.Run()
	elapsed := time.Since(start)

	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			exitCode = -1
			fmt.Fprint(&stderrBuf, err.Error())
		}
	}

	if exitCode != 0 {
		t.cfg.Logger.Warn("media command failed",
			"binary", filepath.Base(bin),
			"exit_code", exitCode,
			"duration_ms", elapsed.Milliseconds(),
			"stderr_tail", truncate(stderrBuf.String(), 512),
		)
	} else {
		t.cfg.Logger.Debug("media command succeeded",
			"binary", filepath.Base(bin),
			"duration_ms", elapsed.Milliseconds(),
		)
	}

	return RunResult{
		ExitCode:   exitCode,
		StderrTail: stderrBuf.String(),
		Duration:   elapsed,
	}
}

// resolveBinary finds a usable binary on PATH.
func resolveBinary(preferred, name string) (string, error) {
	if preferred != "" {
		if p, err := exec.LookPath(preferred); err == nil {
			return p, nil
		}
		return "", fmt.Errorf("configured %s %q not found", name, preferred)
	}
	p, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("no %s binary found on PATH", name)
	}
	return p, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return "..." + s[len(s)-maxLen:]
}

// limitedWriter is an io.Writer that keeps only the last `limit` bytes.
type limitedWriter struct {
	w     *bytes.Buffer
	limit int
}

func (lw *limitedWriter) Write(p []byte) (int, error) {
	n := len(p)
	lw.w.Write(p)
	if lw.w.Len() > lw.limit {
		b := lw.w.Bytes()
		lw.w.Reset()
		lw.w.Write(b[len(b)-lw.limit:])
	}
	return n, nil
}
