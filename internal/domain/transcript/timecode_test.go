package transcript

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		name    string
		seconds float64
		want    string
	}{
		{name: "zero", seconds: 0, want: "00:00:00"},
		{name: "floors fraction", seconds: 3725.9, want: "01:02:05"},
		{name: "just under a minute", seconds: 59.999, want: "00:00:59"},
		{name: "wraps at a day", seconds: 86400 + 61, want: "00:01:01"},
		{name: "last second of day", seconds: 86399.5, want: "23:59:59"},
		{name: "negative wraps backwards", seconds: -1.5, want: "23:59:59"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, FormatClock(tt.seconds))
		})
	}
}

func TestFormatTimecodesStepOne(t *testing.T) {
	t.Parallel()
	segments := []Segment{
		{Start: 0, Text: " Hello"},
		{Start: 4.2, Text: " world"},
		{Start: 61, Text: " again"},
	}
	got := FormatTimecodes(segments, 1)
	require.Equal(t, "\n00:00:00\n Hello\n00:00:04\n world\n00:01:01\n again", got)
}

func TestFormatTimecodesStride(t *testing.T) {
	t.Parallel()
	segments := make([]Segment, 0, 7)
	for i := 0; i < 7; i++ {
		segments = append(segments, Segment{Start: float64(i * 10), Text: string(rune('a' + i))})
	}
	got := FormatTimecodes(segments, 3)
	require.Equal(t, "\n00:00:00\nabc\n00:00:30\ndef\n00:01:00\ng", got)
	require.Equal(t, 3, strings.Count(got, ":")/2)
}

func TestFormatTimecodesVoiceMessage(t *testing.T) {
	t.Parallel()
	// Forty second voice note split in five segments, grouped by five.
	segments := []Segment{
		{Start: 0, End: 8, Text: " One."},
		{Start: 8, End: 16, Text: " Two."},
		{Start: 16, End: 24, Text: " Three."},
		{Start: 24, End: 32, Text: " Four."},
		{Start: 32, End: 40, Text: " Five."},
	}
	got := FormatTimecodes(segments, 5)
	require.Equal(t, "\n00:00:00\n One. Two. Three. Four. Five.", got)
}

func TestFormatTimecodesEdgeCases(t *testing.T) {
	t.Parallel()
	require.Equal(t, "", FormatTimecodes(nil, 5))
	require.Equal(t, "\n00:00:01\nx\n00:00:02\ny", FormatTimecodes([]Segment{{Start: 1, Text: "x"}, {Start: 2, Text: "y"}}, 0))
}
