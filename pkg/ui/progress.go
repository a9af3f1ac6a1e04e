package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Episode statuses shown in the summary
const (
	StatusDownloaded = "downloaded"
	StatusSkipped    = "skipped"
	StatusFailed     = "failed"
)

// SummaryRow is one line of the final run table
type SummaryRow struct {
	Episode string
	Status  string
	Quality string
	Elapsed time.Duration
	Detail  string
}

// StatusTracker tallies episode outcomes over a run
type StatusTracker struct {
	Downloaded int
	Skipped    int
	Failed     int
	StartTime  time.Time
}

// NewStatusTracker creates a new status tracker
func NewStatusTracker() *StatusTracker {
	return &StatusTracker{
		StartTime: time.Now(),
	}
}

// Record counts one episode outcome
func (st *StatusTracker) Record(status string) {
	switch status {
	case StatusDownloaded:
		st.Downloaded++
	case StatusSkipped:
		st.Skipped++
	case StatusFailed:
		st.Failed++
	}
}

// Total returns the number of episodes recorded
func (st *StatusTracker) Total() int {
	return st.Downloaded + st.Skipped + st.Failed
}

// GetElapsedTime returns the elapsed time since tracking started
func (st *StatusTracker) GetElapsedTime() time.Duration {
	return time.Since(st.StartTime)
}

// Line renders the one-line tally
func (st *StatusTracker) Line() string {
	return fmt.Sprintf("%d episodes: %s, %s, %s in %s",
		st.Total(),
		Green(fmt.Sprintf("%d downloaded", st.Downloaded)),
		Dim(fmt.Sprintf("%d skipped", st.Skipped)),
		Red(fmt.Sprintf("%d failed", st.Failed)),
		st.GetElapsedTime().Round(time.Second))
}

// RenderSummary renders the per-episode results table
func RenderSummary(rows []SummaryRow) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(neonMagenta)).
		Headers("EPISODE", "STATUS", "QUALITY", "ELAPSED", "DETAIL")

	for _, row := range rows {
		t.Row(row.Episode, row.Status, row.Quality, row.Elapsed.Round(time.Second).String(), row.Detail)
	}

	t.StyleFunc(func(row, col int) lipgloss.Style {
		if row == table.HeaderRow {
			return headerStyle
		}
		if col == 1 && row >= 0 && row < len(rows) {
			return statusStyle(rows[row].Status).Padding(0, 1)
		}
		return cellStyle
	})

	return t.Render()
}

// PrintSummary prints the results table followed by the tally line
func PrintSummary(tracker *StatusTracker, rows []SummaryRow) {
	if len(rows) > 0 {
		fmt.Fprintln(out, RenderSummary(rows))
	}
	fmt.Fprintln(out, tracker.Line())
}
