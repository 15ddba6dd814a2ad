package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// Display timing pads. A caption chunk lingers briefly after its last
// word, and a word stays highlighted briefly past its end timestamp.
const (
	GroupTailPad = 0.08
	WordTailPad  = 0.05
)

// srtWordsPerGroup is the looser chunking used for exported subtitle
// files, where readability beats punchiness.
const srtWordsPerGroup = 3

// CaptionStyle is one burn-in preset. Colors use the subtitle format's
// &HBBGGRR ordering; BackColor carries a leading alpha byte where 00
// is opaque.
type CaptionStyle struct {
	Name           string
	FontSizePct    float64
	WordsPerGroup  int
	YPct           float64
	TextColor      string
	HighlightColor string
	BackColor      string
	Shadow         int
	Uppercase      bool
}

var captionStyles = map[string]CaptionStyle{
	"default": {
		Name:           "default",
		FontSizePct:    0.08,
		WordsPerGroup:  2,
		YPct:           0.84,
		TextColor:      "&H00FFFFFF",
		HighlightColor: "&H0000DCFF",
		BackColor:      "&H4B000000",
		Shadow:         2,
		Uppercase:      true,
	},
	"hormozi": {
		Name:           "hormozi",
		FontSizePct:    0.09,
		WordsPerGroup:  2,
		YPct:           0.84,
		TextColor:      "&H00FFFFFF",
		HighlightColor: "&H0088FF00",
		BackColor:      "&H4B000000",
		Shadow:         2,
		Uppercase:      true,
	},
	"bold": {
		Name:           "bold",
		FontSizePct:    0.08,
		WordsPerGroup:  2,
		YPct:           0.84,
		TextColor:      "&H00FFFFFF",
		HighlightColor: "&H0000DCFF",
		BackColor:      "&H37000000",
		Shadow:         2,
		Uppercase:      true,
	},
	"minimal": {
		Name:           "minimal",
		FontSizePct:    0.055,
		WordsPerGroup:  3,
		YPct:           0.82,
		TextColor:      "&H00FFFFFF",
		HighlightColor: "&H0064FFFF",
		BackColor:      "&H73000000",
		Shadow:         0,
		Uppercase:      false,
	},
}

// StyleByName resolves a preset name, falling back to the default
// preset for unknown names.
func StyleByName(name string) CaptionStyle {
	if s, ok := captionStyles[name]; ok {
		return s
	}
	return captionStyles["default"]
}

// CaptionGroup is one display chunk with its on-screen window.
type CaptionGroup struct {
	Start float64
	End   float64
	Words []timeline.Word
}

// CaptionSpec describes the transparent caption layer to render over
// the concatenated picture.
type CaptionSpec struct {
	Width  int
	Height int
	FPS    float64
	Style  CaptionStyle
	Groups []CaptionGroup
}

// GroupWords chunks the word stream for display: a chunk closes at
// maxPerGroup words or at a sentence terminator, whichever comes
// first.
func GroupWords(words []timeline.Word, maxPerGroup int) [][]timeline.Word {
	if maxPerGroup < 1 {
		maxPerGroup = 1
	}
	var groups [][]timeline.Word
	var current []timeline.Word
	for _, w := range words {
		current = append(current, w)
		if len(current) >= maxPerGroup || endsSentence(w.Text) {
			groups = append(groups, current)
			current = nil
		}
	}
	if len(current) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func endsSentence(text string) bool {
	t := strings.TrimSpace(text)
	return strings.HasSuffix(t, ".") || strings.HasSuffix(t, "!") || strings.HasSuffix(t, "?")
}

// WordActive reports whether the word is being spoken at instant t.
func WordActive(w timeline.Word, t float64) bool {
	return w.Start <= t && t <= w.End+WordTailPad
}

// BuildCaptionSpec groups the full transcript into display chunks with
// their windows. Returns nil when there is nothing to caption.
func BuildCaptionSpec(p *timeline.Project, width, height int, styleName string) *CaptionSpec {
	words := p.AllWords()
	if len(words) == 0 {
		return nil
	}
	style := StyleByName(styleName)

	fps := p.FPS
	if fps <= 0 {
		fps = 30.0
	}

	spec := &CaptionSpec{Width: width, Height: height, FPS: fps, Style: style}
	for _, g := range GroupWords(words, style.WordsPerGroup) {
		spec.Groups = append(spec.Groups, CaptionGroup{
			Start: g[0].Start,
			End:   g[len(g)-1].End + GroupTailPad,
			Words: g,
		})
	}
	return spec
}

// BuildASS renders a caption track as an ASS subtitle document. Each group
// window is partitioned at word activation boundaries so exactly the
// words spoken in each sub-interval carry the highlight color.
func BuildASS(spec *CaptionSpec) string {
	var b strings.Builder

	fontSize := int(float64(spec.Height) * spec.Style.FontSizePct)
	if fontSize < 24 {
		fontSize = 24
	}
	marginV := int(float64(spec.Height) * (1.0 - spec.Style.YPct))

	fmt.Fprintf(&b, "[Script Info]\nScriptType: v4.00+\nPlayResX: %d\nPlayResY: %d\nWrapStyle: 2\n\n", spec.Width, spec.Height)
	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding\n")
	fmt.Fprintf(&b, "Style: Caption,Arial,%d,%s,%s,&H00000000,%s,-1,0,0,0,100,100,0,0,3,0,%d,2,40,40,%d,1\n\n",
		fontSize, spec.Style.TextColor, spec.Style.TextColor, spec.Style.BackColor, spec.Style.Shadow, marginV)
	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")

	for _, g := range spec.Groups {
		for _, iv := range activationIntervals(g) {
			mid := (iv[0] + iv[1]) / 2
			fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Caption,,0,0,0,,%s\n",
				fmtASSTime(iv[0]), fmtASSTime(iv[1]), groupText(g, mid, spec.Style))
		}
	}
	return b.String()
}

// activationIntervals splits a group's window at every point where
// some word's highlight state flips.
func activationIntervals(g CaptionGroup) [][2]float64 {
	points := []float64{g.Start, g.End}
	for _, w := range g.Words {
		for _, t := range []float64{w.Start, w.End + WordTailPad} {
			if t > g.Start && t < g.End {
				points = append(points, t)
			}
		}
	}
	sort.Float64s(points)

	var out [][2]float64
	for i := 0; i < len(points)-1; i++ {
		a, b := points[i], points[i+1]
		if b-a > 1e-6 {
			out = append(out, [2]float64{a, b})
		}
	}
	return out
}

func groupText(g CaptionGroup, t float64, style CaptionStyle) string {
	parts := make([]string, 0, len(g.Words))
	for _, w := range g.Words {
		text := strings.TrimSpace(w.Text)
		if style.Uppercase {
			text = strings.ToUpper(text)
		}
		color := style.TextColor
		if WordActive(w, t) {
			color = style.HighlightColor
		}
		parts = append(parts, fmt.Sprintf("{\\c%s&}%s", color, text))
	}
	return strings.Join(parts, " ")
}

func fmtASSTime(s float64) string {
	if s < 0 {
		s = 0
	}
	cs := int(s*100 + 0.5)
	h := cs / 360000
	m := cs / 6000 % 60
	sec := cs / 100 % 60
	rem := cs % 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", h, m, sec, rem)
}

// GenerateSRT exports the transcript as a standard subtitle file using
// the looser three-word chunking.
func GenerateSRT(p *timeline.Project) string {
	words := p.AllWords()
	if len(words) == 0 {
		return ""
	}
	var b strings.Builder
	for i, g := range GroupWords(words, srtWordsPerGroup) {
		texts := make([]string, 0, len(g))
		for _, w := range g {
			texts = append(texts, strings.TrimSpace(w.Text))
		}
		fmt.Fprintf(&b, "%d\n%s --> %s\n%s\n\n",
			i+1, fmtSRTTime(g[0].Start), fmtSRTTime(g[len(g)-1].End), strings.Join(texts, " "))
	}
	return b.String()
}

func fmtSRTTime(s float64) string {
	if s < 0 {
		s = 0
	}
	ms := int(s*1000 + 0.5)
	h := ms / 3600000
	m := ms / 60000 % 60
	sec := ms / 1000 % 60
	rem := ms % 1000
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, sec, rem)
}
