// Package render compiles an edited timeline into a tool-agnostic
// render plan and executes that plan against an external media toolset.
// The compiler is pure; the executor owns concurrency, retries, and
// timeouts.
package render

import (
	"context"
	"errors"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// ErrNoScenes is returned when a project has nothing on its timeline.
var ErrNoScenes = errors.New("no scenes to render")

// ErrNoRenderableScenes is returned when every per-scene extraction
// failed on both encoders. A render with zero segments cannot proceed.
var ErrNoRenderableScenes = errors.New("no segments were rendered successfully")

// Encoder names a video encoder and its quality setting. The render
// pipeline never interprets these; they pass through to the toolset.
type Encoder struct {
	Name    string
	Quality string
}

// EncoderStrategy is the explicit two-attempt policy: every encoding
// stage tries Primary once, then Fallback once, then fails.
type EncoderStrategy struct {
	Primary  Encoder
	Fallback Encoder
}

// DefaultStrategy pairs a hardware encoder with the software fallback.
func DefaultStrategy(primary, fallback string) EncoderStrategy {
	return EncoderStrategy{
		Primary:  Encoder{Name: primary, Quality: "65"},
		Fallback: Encoder{Name: fallback, Quality: "23"},
	}
}

// OverlayInstruction is one text overlay draw with its activation
// window in segment-relative seconds.
type OverlayInstruction struct {
	Text     string
	Position string
	FontSize int
	Color    string
	BGColor  string
	Start    float64
	End      float64
}

// SegmentSpec describes the extraction of one scene into a standalone
// segment: the source interval, the speed change with its decomposed
// audio tempo chain, overlay draws, and an optional fade-in.
type SegmentSpec struct {
	SceneID     string
	SourcePath  string
	Start       float64
	RawDuration float64
	Speed       float64
	OutDuration float64
	AudioTempo  []float64
	Overlays    []OverlayInstruction
	FadeIn      float64
}

// HasSpeedChange reports whether the segment needs time resampling.
func (s SegmentSpec) HasSpeedChange() bool {
	return s.Speed > 1.01 || s.Speed < 0.99
}

// ConcatSpec describes the concatenation of segments into one picture,
// letterboxed into the target frame when the sizes differ.
type ConcatSpec struct {
	Width  int
	Height int
}

// NarrationSpec carries the attached narration track into the plan.
// The stretch/extend decision is made at execution time from probed
// durations; see ReconcileNarration.
type NarrationSpec struct {
	Path           string
	Volume         float64
	OriginalVolume float64
}

// MixSpec is the final audio mix: both tracks volume-scaled, the
// narration optionally tempo-adjusted, everything pinned to the target
// duration.
type MixSpec struct {
	VideoPath       string
	NarrationPath   string
	NarrationVolume float64
	OriginalVolume  float64
	TempoSteps      []float64
	TargetDuration  float64
}

// RenderPlan is the compiled, ordered description of everything needed
// to produce the output file from the current timeline.
type RenderPlan struct {
	Segments      []SegmentSpec
	Concat        ConcatSpec
	Captions      *CaptionSpec
	Narration     *NarrationSpec
	TotalDuration float64
	FPS           float64
}

// Toolset is the capability contract the executor consumes. Every
// method is one bounded external invocation; implementations report
// pass/fail plus an optional message and never leak tool diagnostics
// beyond that.
type Toolset interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ExtractSegment(ctx context.Context, enc Encoder, seg SegmentSpec, outPath string) error
	Concatenate(ctx context.Context, enc Encoder, segmentPaths []string, spec ConcatSpec, outPath string) error
	RenderCaptionLayer(ctx context.Context, spec CaptionSpec, outPath string) error
	ComposeLayer(ctx context.Context, enc Encoder, basePath, overlayPath, outPath string) error
	ExtendFreeze(ctx context.Context, enc Encoder, inPath, outPath string, extra, targetDuration float64) error
	MixNarration(ctx context.Context, spec MixSpec, outPath string) error
}

// Options select the output frame and caption burn-in for one render.
type Options struct {
	Width        int
	Height       int
	BurnCaptions bool
	CaptionStyle string
}

// Compile walks the timeline in order and produces the render plan.
// It never touches the filesystem or any external tool.
func Compile(p *timeline.Project, opts Options) (*RenderPlan, error) {
	if len(p.Scenes) == 0 {
		return nil, ErrNoScenes
	}

	width, height := opts.Width, opts.Height
	if width == 0 || height == 0 {
		width, height = p.TargetFrame()
	}

	plan := &RenderPlan{
		Concat:        ConcatSpec{Width: width, Height: height},
		TotalDuration: p.TotalDuration(),
		FPS:           p.FPS,
	}

	for _, s := range p.Scenes {
		seg := SegmentSpec{
			SceneID:     s.ID,
			SourcePath:  p.SourcePath,
			Start:       s.Start,
			RawDuration: s.RawDuration(),
			Speed:       s.Speed,
			OutDuration: s.Duration(),
		}
		if seg.HasSpeedChange() {
			seg.AudioTempo = AtempoChain(s.Speed)
		}

		for _, o := range s.Overlays {
			dur := o.Duration
			if dur <= 0 {
				dur = s.Duration()
			}
			seg.Overlays = append(seg.Overlays, OverlayInstruction{
				Text:     o.Text,
				Position: o.Position,
				FontSize: o.FontSize,
				Color:    o.Color,
				BGColor:  o.BGColor,
				Start:    o.StartOffset,
				End:      o.StartOffset + dur,
			})
		}

		if s.TransitionIn == "fade" && s.TransitionDuration > 0 {
			seg.FadeIn = s.TransitionDuration
		}

		plan.Segments = append(plan.Segments, seg)
	}

	if opts.BurnCaptions {
		plan.Captions = BuildCaptionSpec(p, width, height, opts.CaptionStyle)
	}

	if p.Narration.Attached() {
		plan.Narration = &NarrationSpec{
			Path:           p.Narration.Path,
			Volume:         p.Narration.Volume,
			OriginalVolume: p.Narration.OriginalVolume,
		}
	}

	return plan, nil
}
