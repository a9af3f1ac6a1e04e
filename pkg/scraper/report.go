package scraper

import (
	"time"

	"animedl/pkg/models"
)

// Status is the terminal outcome of one episode
type Status string

const (
	StatusDownloaded Status = "downloaded"
	StatusSkipped    Status = "skipped"
	StatusFailed     Status = "failed"
)

// EpisodeResult describes what happened to one episode
type EpisodeResult struct {
	Episode  models.Episode
	Path     string
	Status   Status
	Quality  models.Quality
	Attempts int
	Bytes    int64
	Elapsed  time.Duration
	Err      error
}

// Report collects episode results in processing order
type Report struct {
	Results []EpisodeResult
	Elapsed time.Duration
}

func (r *Report) count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Downloaded returns the number of episodes fetched in this run
func (r *Report) Downloaded() int {
	return r.count(StatusDownloaded)
}

// Skipped returns the number of episodes already on disk
func (r *Report) Skipped() int {
	return r.count(StatusSkipped)
}

// Failed returns the number of episodes that could not be downloaded
func (r *Report) Failed() int {
	return r.count(StatusFailed)
}
