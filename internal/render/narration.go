package render

import "math"

// Bounds on how far narration may be tempo-stretched before it sounds
// wrong. Mismatches beyond the speedup bound extend the picture with a
// freeze frame instead.
const (
	maxNarrationSpeedup  = 1.08
	minNarrationSlowdown = 0.92
	exactMatchTolerance  = 0.015
	minFreezeExtension   = 0.03
)

// NarrationFix is the reconciliation decision for one narration track
// against the rendered picture.
type NarrationFix struct {
	// ExtendBy is the freeze-frame extension to append to the picture,
	// in seconds. Zero means no extension.
	ExtendBy float64
	// TargetDuration is the final picture duration after any extension.
	// The audio mix is pinned to this value.
	TargetDuration float64
	// TempoRatio is the narration tempo adjustment. 1.0 leaves the
	// track untouched.
	TempoRatio float64
}

// Stretched reports whether the narration needs a tempo change.
func (f NarrationFix) Stretched() bool {
	return math.Abs(f.TempoRatio-1.0) > 1e-9
}

// ReconcileNarration decides how to fit a narration track of voiceDur
// seconds over a picture of videoDur seconds. Narration longer than
// the picture extends the picture first; only the residual mismatch is
// absorbed by a bounded tempo stretch. Small mismatches within the
// tolerance are left alone.
func ReconcileNarration(videoDur, voiceDur float64) NarrationFix {
	if videoDur <= 0 {
		videoDur = 0.01
	}
	fix := NarrationFix{TargetDuration: videoDur, TempoRatio: 1.0}
	if voiceDur <= 0 {
		return fix
	}

	ratio := voiceDur / videoDur
	if ratio > maxNarrationSpeedup {
		extra := voiceDur - videoDur
		if extra > minFreezeExtension {
			fix.ExtendBy = extra
			fix.TargetDuration = voiceDur
			ratio = voiceDur / fix.TargetDuration
		}
	}

	switch {
	case ratio > maxNarrationSpeedup:
		fix.TempoRatio = maxNarrationSpeedup
	case ratio < minNarrationSlowdown:
		fix.TempoRatio = minNarrationSlowdown
	case math.Abs(ratio-1.0) > exactMatchTolerance:
		fix.TempoRatio = ratio
	}
	return fix
}
