package media

import (
	"strings"
	"testing"

	"github.com/reelcut/reelcut-agent/internal/render"
)

func hasArgPair(args []string, flag, value string) bool {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag && args[i+1] == value {
			return true
		}
	}
	return false
}

func argValue(t *testing.T, args []string, flag string) string {
	t.Helper()
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	t.Fatalf("flag %s not found in %v", flag, args)
	return ""
}

var testEnc = render.Encoder{Name: "libx264", Quality: "23"}

func TestSegmentArgs_Plain(t *testing.T) {
	seg := render.SegmentSpec{
		SceneID:     "s1",
		SourcePath:  "/tmp/in.mp4",
		Start:       12.5,
		RawDuration: 4.0,
		Speed:       1.0,
		OutDuration: 4.0,
	}
	args := segmentArgs(testEnc, seg, true, "/tmp/out.mp4")

	if !hasArgPair(args, "-ss", "12.500000") {
		t.Errorf("missing seek: %v", args)
	}
	if !hasArgPair(args, "-t", "4.000000") {
		t.Errorf("missing duration: %v", args)
	}
	if !hasArgPair(args, "-c:v", "libx264") || !hasArgPair(args, "-q:v", "23") {
		t.Errorf("missing encoder: %v", args)
	}
	for _, a := range args {
		if a == "-vf" || a == "-af" {
			t.Errorf("plain segment should have no filters: %v", args)
		}
	}
	if args[len(args)-1] != "/tmp/out.mp4" {
		t.Errorf("output path must come last: %v", args)
	}
}

func TestSegmentArgs_SpeedChange(t *testing.T) {
	seg := render.SegmentSpec{
		SceneID:     "s1",
		SourcePath:  "/tmp/in.mp4",
		Start:       0,
		RawDuration: 10,
		Speed:       3.0,
		OutDuration: 10.0 / 3.0,
		AudioTempo:  render.AtempoChain(3.0),
	}
	args := segmentArgs(testEnc, seg, true, "/tmp/out.mp4")

	vf := argValue(t, args, "-vf")
	if !strings.Contains(vf, "setpts=0.333333*PTS") {
		t.Errorf("vf = %q", vf)
	}
	af := argValue(t, args, "-af")
	if af != "atempo=2.0000,atempo=1.5000" {
		t.Errorf("af = %q", af)
	}
	// Output duration pinned to the effective duration.
	if !hasArgPair(args, "-t", "3.333333") {
		t.Errorf("missing output duration pin: %v", args)
	}
}

func TestSegmentArgs_OverlayAndFade(t *testing.T) {
	seg := render.SegmentSpec{
		SceneID:     "s1",
		SourcePath:  "/tmp/in.mp4",
		RawDuration: 10,
		Speed:       1.0,
		OutDuration: 10,
		Overlays: []render.OverlayInstruction{{
			Text:     "it's: live",
			Position: "bottom",
			FontSize: 48,
			Color:    "white",
			BGColor:  "black@0.5",
			Start:    1.0,
			End:      4.0,
		}},
		FadeIn: 0.5,
	}
	args := segmentArgs(testEnc, seg, true, "/tmp/out.mp4")
	vf := argValue(t, args, "-vf")

	if !strings.Contains(vf, `text='it\'s\: live'`) {
		t.Errorf("text not escaped: %q", vf)
	}
	if !strings.Contains(vf, "x=(w-text_w)/2:y=h*0.88") {
		t.Errorf("wrong anchor expression: %q", vf)
	}
	if !strings.Contains(vf, "enable='between(t,1,4)'") {
		t.Errorf("wrong activation window: %q", vf)
	}
	if !strings.Contains(vf, "fade=t=in:st=0:d=0.5") {
		t.Errorf("missing fade: %q", vf)
	}
	if af := argValue(t, args, "-af"); !strings.Contains(af, "afade=t=in:st=0:d=0.5") {
		t.Errorf("missing audio fade: %q", af)
	}

	// Without drawtext support the overlays are skipped but the fade stays.
	args = segmentArgs(testEnc, seg, false, "/tmp/out.mp4")
	vf = argValue(t, args, "-vf")
	if strings.Contains(vf, "drawtext") {
		t.Errorf("overlays should be skipped: %q", vf)
	}
	if !strings.Contains(vf, "fade=") {
		t.Errorf("fade lost: %q", vf)
	}
}

func TestDrawtextFilter_UnknownPositionCenters(t *testing.T) {
	f := drawtextFilter(render.OverlayInstruction{Text: "x", Position: "nowhere", FontSize: 32, Color: "white", BGColor: "black"})
	if !strings.Contains(f, "x=(w-text_w)/2:y=(h-text_h)/2") {
		t.Errorf("unknown position should center: %q", f)
	}
}

func TestConcatArgs_Letterbox(t *testing.T) {
	args := concatArgs(testEnc, "/tmp/list.txt", render.ConcatSpec{Width: 1080, Height: 1920}, "/tmp/out.mp4")

	if !hasArgPair(args, "-f", "concat") || !hasArgPair(args, "-safe", "0") {
		t.Errorf("missing concat demuxer flags: %v", args)
	}
	vf := argValue(t, args, "-vf")
	want := "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2:black"
	if vf != want {
		t.Errorf("vf = %q, want %q", vf, want)
	}
	if !hasArgPair(args, "-movflags", "+faststart") {
		t.Errorf("missing faststart: %v", args)
	}
}

func TestMixArgs(t *testing.T) {
	spec := render.MixSpec{
		VideoPath:       "/tmp/video.mp4",
		NarrationPath:   "/tmp/voice.mp3",
		NarrationVolume: 1.0,
		OriginalVolume:  0.2,
		TempoSteps:      []float64{1.05},
		TargetDuration:  10.0,
	}
	args := mixArgs(spec, "/tmp/out.mp4")

	graph := argValue(t, args, "-filter_complex")
	if !strings.Contains(graph, "[1:a]volume=1,atempo=1.0500,apad,atrim=0:10.000000[a1]") {
		t.Errorf("voice chain wrong: %q", graph)
	}
	if !strings.Contains(graph, "[0:a]volume=0.2,apad,atrim=0:10.000000[a0]") {
		t.Errorf("original chain wrong: %q", graph)
	}
	if !strings.Contains(graph, "amix=inputs=2:duration=first:dropout_transition=0[aout]") {
		t.Errorf("missing amix: %q", graph)
	}
	if !hasArgPair(args, "-c:v", "copy") {
		t.Errorf("video must be stream-copied: %v", args)
	}
	if !hasArgPair(args, "-t", "10.000000") {
		t.Errorf("mix not pinned to target duration: %v", args)
	}
}

func TestMixArgs_MutedOriginal(t *testing.T) {
	spec := render.MixSpec{
		VideoPath:       "/tmp/video.mp4",
		NarrationPath:   "/tmp/voice.mp3",
		NarrationVolume: 0.8,
		OriginalVolume:  0,
		TargetDuration:  5.0,
	}
	graph := argValue(t, mixArgs(spec, "/tmp/out.mp4"), "-filter_complex")
	if strings.Contains(graph, "amix") {
		t.Errorf("muted original should bypass the mix: %q", graph)
	}
	if !strings.HasPrefix(graph, "[1:a]volume=0.8,apad,atrim=0:5.000000[aout]") {
		t.Errorf("graph = %q", graph)
	}
}

func TestExtendArgs(t *testing.T) {
	args := extendArgs(testEnc, "/tmp/in.mp4", "/tmp/out.mp4", 2.0, 12.0)
	if vf := argValue(t, args, "-vf"); vf != "tpad=stop_mode=clone:stop_duration=2.000000" {
		t.Errorf("vf = %q", vf)
	}
	if af := argValue(t, args, "-af"); af != "apad" {
		t.Errorf("af = %q", af)
	}
	if !hasArgPair(args, "-t", "12.000000") {
		t.Errorf("missing target duration: %v", args)
	}
}

func TestComposeArgs(t *testing.T) {
	args := composeArgs(testEnc, "/tmp/base.mp4", "/tmp/layer.mov", "/tmp/out.mp4")
	if graph := argValue(t, args, "-filter_complex"); graph != "[0:v][1:v]overlay=0:0:shortest=1[v]" {
		t.Errorf("graph = %q", graph)
	}
	if !hasArgPair(args, "-map", "[v]") || !hasArgPair(args, "-map", "0:a?") {
		t.Errorf("stream mapping wrong: %v", args)
	}
}

func TestCaptionLayerArgs(t *testing.T) {
	spec := render.CaptionSpec{Width: 1920, Height: 1080, FPS: 30}
	args := captionLayerArgs(spec, "/tmp/c.ass", 12.5, "/tmp/c.mov")

	src := argValue(t, args, "-i")
	if !strings.Contains(src, "color=c=black@0.0:s=1920x1080:r=30:d=12.500000") {
		t.Errorf("canvas source = %q", src)
	}
	if vf := argValue(t, args, "-vf"); vf != "ass=/tmp/c.ass" {
		t.Errorf("vf = %q", vf)
	}
	if !hasArgPair(args, "-c:v", "qtrle") || !hasArgPair(args, "-pix_fmt", "argb") {
		t.Errorf("alpha encoding wrong: %v", args)
	}
}

func TestProbeArgs(t *testing.T) {
	args := probeArgs("/tmp/in.mp4")
	if args[len(args)-1] != "/tmp/in.mp4" {
		t.Errorf("path must come last: %v", args)
	}
	if !hasArgPair(args, "-show_entries", "format=duration") {
		t.Errorf("missing duration query: %v", args)
	}
}
