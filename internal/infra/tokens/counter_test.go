package tokens

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounterFallsBackForUnknownModel(t *testing.T) {
	t.Parallel()
	counter := NewCounter("not-a-real-model", slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.Equal(t, 0, counter.Count(""))
	require.Equal(t, 4, counter.Count("one two three"))
	require.Equal(t, 2, counter.Count("single"))
}

func TestNilCounterEstimates(t *testing.T) {
	t.Parallel()
	var counter *Counter
	require.Equal(t, 8, counter.Count("a b c d e f"))
}

func TestWordEstimatorIgnoresBPE(t *testing.T) {
	t.Parallel()
	counter := NewWordEstimator()
	require.Equal(t, 4, counter.Count("antidisestablishmentarianism is long"))
}
