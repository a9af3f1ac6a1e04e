package ui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := out
	SetOutput(&buf)
	t.Cleanup(func() { SetOutput(prev) })
	return &buf
}

func captureErrorOutput(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := errOut
	SetErrorOutput(&buf)
	t.Cleanup(func() { SetErrorOutput(prev) })
	return &buf
}

func TestPrintHelpers(t *testing.T) {
	buf := captureOutput(t)
	errBuf := captureErrorOutput(t)

	PrintInfo("Destination", "/tmp/anime")
	PrintError("Failed to resolve", "boom")
	PrintWarning("Already downloaded")
	PrintSuccess("done")

	got := buf.String()
	assert.Contains(t, got, "Destination")
	assert.Contains(t, got, "/tmp/anime")
	assert.Contains(t, got, "Already downloaded")
	assert.NotContains(t, got, "Failed to resolve")
	assert.Equal(t, 3, strings.Count(got, "\n"))

	assert.Contains(t, errBuf.String(), "Failed to resolve: boom")
	assert.Equal(t, 1, strings.Count(errBuf.String(), "\n"))
}

func TestStatusTracker(t *testing.T) {
	tracker := NewStatusTracker()
	tracker.Record(StatusDownloaded)
	tracker.Record(StatusDownloaded)
	tracker.Record(StatusSkipped)
	tracker.Record(StatusFailed)
	tracker.Record("unknown")

	assert.Equal(t, 2, tracker.Downloaded)
	assert.Equal(t, 1, tracker.Skipped)
	assert.Equal(t, 1, tracker.Failed)
	assert.Equal(t, 4, tracker.Total())
	assert.Contains(t, tracker.Line(), "4 episodes")
}

func TestRenderSummary(t *testing.T) {
	rendered := RenderSummary([]SummaryRow{
		{Episode: "Naruto-1", Status: StatusDownloaded, Quality: "low", Elapsed: 3 * time.Second},
		{Episode: "Naruto-2", Status: StatusFailed, Quality: "high", Detail: "resolution error"},
	})

	assert.Contains(t, rendered, "EPISODE")
	assert.Contains(t, rendered, "Naruto-1")
	assert.Contains(t, rendered, "Naruto-2")
	assert.Contains(t, rendered, "resolution error")
	assert.Contains(t, rendered, "3s")
}

func TestPrintSummaryWithoutRows(t *testing.T) {
	buf := captureOutput(t)

	PrintSummary(NewStatusTracker(), nil)

	assert.NotContains(t, buf.String(), "EPISODE")
	assert.Contains(t, buf.String(), "0 episodes")
}

func TestProgressBarCountsBytes(t *testing.T) {
	var buf bytes.Buffer
	bar := newProgressBar(&buf, 10, "Naruto-1.mp4")

	n, err := bar.Write([]byte("0123456789"))
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, int64(10), bar.State().CurrentNum)
	require.NoError(t, bar.Finish())
}
