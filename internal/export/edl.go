// Package export renders the edited timeline as a CMX3600 EDL so a cut
// can move into an NLE. Source timecodes are the scenes' source-time
// intervals; record timecodes accumulate effective durations, so a
// sped-up scene occupies less record time than source time.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/reelcut/reelcut-agent/internal/timeline"
)

// GenerateEDL writes one video event per scene in timeline order.
func GenerateEDL(p *timeline.Project) string {
	fps := int(math.Round(p.FPS))
	if fps <= 0 {
		fps = 30
	}

	isDropFrame := math.Abs(p.FPS-29.97) < 0.01 || math.Abs(p.FPS-59.94) < 0.01

	title := p.Name
	if title == "" {
		title = p.ID
	}

	lines := []string{fmt.Sprintf("TITLE: %s", title)}
	if isDropFrame {
		lines = append(lines, "FCM: DROP FRAME")
	} else {
		lines = append(lines, "FCM: NON-DROP FRAME")
	}
	lines = append(lines, "")

	recordOffsetMs := 0
	for i, s := range p.Scenes {
		srcIn := msToTimecode(secondsToMs(s.Start), fps)
		srcOut := msToTimecode(secondsToMs(s.End), fps)
		recIn := msToTimecode(recordOffsetMs, fps)
		recordMs := secondsToMs(s.Duration())
		recOut := msToTimecode(recordOffsetMs+recordMs, fps)

		lines = append(lines,
			fmt.Sprintf("%03d  %-8s %-5s C        %s %s %s %s", i+1, "AX", "V", srcIn, srcOut, recIn, recOut),
			fmt.Sprintf("* FROM CLIP NAME:  %s", clipName(s)),
			fmt.Sprintf("* MEDIA PATH:  %s", p.SourcePath),
		)
		if s.Speed != 1.0 {
			lines = append(lines, fmt.Sprintf("M2   AX             %06.1f                %s", p.FPS*s.Speed, srcIn))
		}

		recordOffsetMs += recordMs
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func clipName(s *timeline.Scene) string {
	if s.Description != "" {
		return s.Description
	}
	return s.ID
}

func secondsToMs(s float64) int {
	return int(math.Round(s * 1000.0))
}

func msToTimecode(ms int, fps int) string {
	totalFrames := int(math.Round(float64(ms) * float64(fps) / 1000.0))
	frames := totalFrames % fps
	totalSeconds := totalFrames / fps
	seconds := totalSeconds % 60
	totalMinutes := totalSeconds / 60
	minutes := totalMinutes % 60
	hours := totalMinutes / 60
	return fmt.Sprintf("%02d:%02d:%02d:%02d", hours, minutes, seconds, frames)
}
