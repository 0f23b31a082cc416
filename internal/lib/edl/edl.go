// Package edl renders CMX3600 edit decision lists.
package edl

import (
	"fmt"
	"math"
	"strings"

	"github.com/GintGld/clip-editor/internal/models"
)

const DefaultFPS = 30

// Generate returns EDL placing given segments
// of the source back to back on the record side.
func Generate(title string, src models.Source, segments []models.Segment, frameRate float64) string {
	fps := int(math.Round(frameRate))
	if fps <= 0 {
		fps = DefaultFPS
	}

	var b strings.Builder

	fmt.Fprintf(&b, "TITLE: %s\n", title)
	if dropFrame(frameRate) {
		b.WriteString("FCM: DROP FRAME\n")
	} else {
		b.WriteString("FCM: NON-DROP FRAME\n")
	}
	b.WriteString("\n")

	record := 0.0
	for i, seg := range segments {
		dur := seg.End - seg.Start

		fmt.Fprintf(&b, "%03d  %-8s %-5s C        %s %s %s %s\n",
			i+1, "AX", "V",
			timecode(seg.Start, fps), timecode(seg.End, fps),
			timecode(record, fps), timecode(record+dur, fps),
		)
		fmt.Fprintf(&b, "* FROM CLIP NAME:  %s\n", src.Name)
		if src.Path != "" {
			fmt.Fprintf(&b, "* MEDIA PATH:  %s\n", src.Path)
		}

		record += dur
	}

	return b.String()
}

func dropFrame(rate float64) bool {
	return math.Abs(rate-29.97) < 0.01 || math.Abs(rate-59.94) < 0.01
}

// timecode formats seconds as HH:MM:SS:FF.
func timecode(sec float64, fps int) string {
	total := int(math.Round(sec * float64(fps)))
	frames := total % fps
	s := total / fps

	return fmt.Sprintf("%02d:%02d:%02d:%02d", s/3600, s/60%60, s%60, frames)
}
