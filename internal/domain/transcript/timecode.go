package transcript

import (
	"fmt"
	"math"
	"strings"
)

const secondsPerDay = 24 * 60 * 60

// FormatTimecodes groups segments under a timestamp heading every step
// segments. A heading is "\n" + HH:MM:SS + "\n"; segment texts are joined
// without separators. A step below 1 behaves as 1.
func FormatTimecodes(segments []Segment, step int) string {
	if step < 1 {
		step = 1
	}
	var b strings.Builder
	for i, seg := range segments {
		if i%step == 0 {
			b.WriteString("\n")
			b.WriteString(FormatClock(seg.Start))
			b.WriteString("\n")
		}
		b.WriteString(seg.Text)
	}
	return b.String()
}

// FormatClock renders whole seconds as HH:MM:SS, wrapping at 24 hours.
func FormatClock(seconds float64) string {
	whole := int64(math.Trunc(seconds))
	whole %= secondsPerDay
	if whole < 0 {
		whole += secondsPerDay
	}
	return fmt.Sprintf("%02d:%02d:%02d", whole/3600, (whole%3600)/60, whole%60)
}
