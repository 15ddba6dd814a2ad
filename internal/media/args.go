package media

import (
	"fmt"
	"strings"

	"github.com/reelcut/reelcut-agent/internal/render"
)

// overlayXY maps overlay anchor zones to drawtext position
// expressions evaluated against the frame and rendered text size.
var overlayXY = map[string]string{
	"center":       "(w-text_w)/2:(h-text_h)/2",
	"top":          "(w-text_w)/2:h*0.08",
	"bottom":       "(w-text_w)/2:h*0.88",
	"top-left":     "w*0.05:h*0.08",
	"top-right":    "w*0.95-text_w:h*0.08",
	"bottom-left":  "w*0.05:h*0.88",
	"bottom-right": "w*0.95-text_w:h*0.88",
}

func escapeDrawtext(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, `:`, `\:`)
	return s
}

// drawtextFilter builds one drawtext filter with its activation window.
func drawtextFilter(o render.OverlayInstruction) string {
	xy, ok := overlayXY[o.Position]
	if !ok {
		xy = overlayXY["center"]
	}
	parts := strings.SplitN(xy, ":", 2)
	return fmt.Sprintf(
		"drawtext=text='%s':fontsize=%d:fontcolor=%s:x=%s:y=%s:box=1:boxcolor=%s:boxborderw=8:enable='between(t,%g,%g)'",
		escapeDrawtext(o.Text), o.FontSize, o.Color, parts[0], parts[1], o.BGColor, o.Start, o.End,
	)
}

func atempoFilters(steps []float64) []string {
	out := make([]string, 0, len(steps))
	for _, s := range steps {
		out = append(out, fmt.Sprintf("atempo=%.4f", s))
	}
	return out
}

// letterboxFilter scales into the target frame preserving aspect ratio
// and pads the remainder with centered black bars.
func letterboxFilter(w, h int) string {
	return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2:black", w, h, w, h)
}

// segmentArgs builds the extraction command for one scene: seek into
// the source, apply speed and overlay filters, encode. A speed change
// pins the output duration because the resampled stream otherwise
// keeps the source timing.
func segmentArgs(enc render.Encoder, seg render.SegmentSpec, allowText bool, outPath string) []string {
	args := []string{
		"-y",
		"-ss", formatSeconds(seg.Start),
		"-t", formatSeconds(seg.RawDuration),
		"-i", seg.SourcePath,
	}

	var vf, af []string
	if seg.HasSpeedChange() {
		vf = append(vf, fmt.Sprintf("setpts=%.6f*PTS", 1.0/seg.Speed))
		af = append(af, atempoFilters(seg.AudioTempo)...)
	}
	if allowText {
		for _, o := range seg.Overlays {
			vf = append(vf, drawtextFilter(o))
		}
	}
	if seg.FadeIn > 0 {
		vf = append(vf, fmt.Sprintf("fade=t=in:st=0:d=%g", seg.FadeIn))
		af = append(af, fmt.Sprintf("afade=t=in:st=0:d=%g", seg.FadeIn))
	}

	if len(vf) > 0 {
		args = append(args, "-vf", strings.Join(vf, ","))
	}
	if len(af) > 0 {
		args = append(args, "-af", strings.Join(af, ","))
	}

	args = append(args,
		"-c:v", enc.Name, "-q:v", enc.Quality,
		"-c:a", "aac", "-b:a", "192k",
	)
	if seg.HasSpeedChange() {
		args = append(args, "-t", formatSeconds(seg.OutDuration))
	}
	return append(args, outPath)
}

// concatArgs joins the segment list into one picture, letterboxed into
// the target frame.
func concatArgs(enc render.Encoder, listPath string, spec render.ConcatSpec, outPath string) []string {
	args := []string{
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
	}
	if spec.Width > 0 && spec.Height > 0 {
		args = append(args, "-vf", letterboxFilter(spec.Width, spec.Height))
	}
	return append(args,
		"-c:v", enc.Name, "-q:v", enc.Quality,
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		outPath,
	)
}

// captionLayerArgs renders the subtitle document onto a transparent
// canvas encoded with an alpha-capable codec.
func captionLayerArgs(spec render.CaptionSpec, assPath string, duration float64, outPath string) []string {
	fps := spec.FPS
	if fps <= 0 {
		fps = 30
	}
	src := fmt.Sprintf("color=c=black@0.0:s=%dx%d:r=%g:d=%s,format=rgba", spec.Width, spec.Height, fps, formatSeconds(duration))
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", src,
		"-vf", fmt.Sprintf("ass=%s", assPath),
		"-c:v", "qtrle",
		"-pix_fmt", "argb",
		outPath,
	}
}

// composeArgs stacks the caption layer over the picture.
func composeArgs(enc render.Encoder, basePath, overlayPath, outPath string) []string {
	return []string{
		"-y",
		"-i", basePath,
		"-i", overlayPath,
		"-filter_complex", "[0:v][1:v]overlay=0:0:shortest=1[v]",
		"-map", "[v]", "-map", "0:a?",
		"-c:v", enc.Name, "-q:v", enc.Quality,
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		outPath,
	}
}

// extendArgs freezes the last frame for extra seconds and pads the
// audio to match.
func extendArgs(enc render.Encoder, inPath, outPath string, extra, target float64) []string {
	return []string{
		"-y",
		"-i", inPath,
		"-vf", fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", formatSeconds(extra)),
		"-af", "apad",
		"-t", formatSeconds(target),
		"-c:v", enc.Name, "-q:v", enc.Quality,
		"-c:a", "aac", "-b:a", "192k",
		outPath,
	}
}

// mixArgs mixes the narration track over the rendered picture. The
// video stream is copied untouched; both audio tracks are padded and
// trimmed to the target duration so the mix never changes the cut.
func mixArgs(spec render.MixSpec, outPath string) []string {
	voice := []string{fmt.Sprintf("volume=%g", spec.NarrationVolume)}
	voice = append(voice, atempoFilters(spec.TempoSteps)...)
	voice = append(voice, "apad", fmt.Sprintf("atrim=0:%s", formatSeconds(spec.TargetDuration)))
	voiceFilter := strings.Join(voice, ",")

	var graph string
	if spec.OriginalVolume <= 0.001 {
		graph = fmt.Sprintf("[1:a]%s[aout]", voiceFilter)
	} else {
		graph = fmt.Sprintf(
			"[0:a]volume=%g,apad,atrim=0:%s[a0];[1:a]%s[a1];[a0][a1]amix=inputs=2:duration=first:dropout_transition=0[aout]",
			spec.OriginalVolume, formatSeconds(spec.TargetDuration), voiceFilter,
		)
	}

	return []string{
		"-y",
		"-i", spec.VideoPath,
		"-i", spec.NarrationPath,
		"-filter_complex", graph,
		"-map", "0:v", "-map", "[aout]",
		"-t", formatSeconds(spec.TargetDuration),
		"-c:v", "copy",
		"-c:a", "aac", "-b:a", "192k",
		"-movflags", "+faststart",
		outPath,
	}
}

func probeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
}

func formatSeconds(s float64) string {
	return fmt.Sprintf("%.6f", s)
}
