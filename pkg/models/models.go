package models

import (
	"fmt"
	"strings"
)

// Quality is the video host tier an episode is resolved for
type Quality string

const (
	QualityHigh Quality = "high"
	QualityLow  Quality = "low"
)

// ParseQuality accepts "high" or "low" in any case
func ParseQuality(s string) (Quality, error) {
	switch q := Quality(strings.ToLower(strings.TrimSpace(s))); q {
	case QualityHigh, QualityLow:
		return q, nil
	default:
		return "", fmt.Errorf("unknown quality %q (want high or low)", s)
	}
}

// Opposite returns the other tier
func (q Quality) Opposite() Quality {
	if q == QualityHigh {
		return QualityLow
	}
	return QualityHigh
}

// Sequence is the order tiers are tried for one episode: the preferred tier,
// then its opposite
func (q Quality) Sequence() [2]Quality {
	return [2]Quality{q, q.Opposite()}
}

func (q Quality) String() string {
	return string(q)
}

// Episode is one entry of a series listing
type Episode struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// VideoIdentifier keys the third-party download-info endpoint
type VideoIdentifier string

// ResolvedVideoURL is valid for a single download attempt
type ResolvedVideoURL struct {
	URL     string          `json:"url"`
	Quality Quality         `json:"quality"`
	VideoID VideoIdentifier `json:"video_id"`
}

// DownloadTask is handed to the downloader for one episode and quality
type DownloadTask struct {
	ResolvedURL      string          `json:"resolved_url"`
	DestinationPath  string          `json:"destination_path"`
	VideoIdentifier  VideoIdentifier `json:"video_identifier"`
	QualityAttempted Quality         `json:"quality_attempted"`
}

// DownloadResult describes the outcome of a finished task
type DownloadResult struct {
	Path     string `json:"path"`
	Bytes    int64  `json:"bytes"`
	Attempts int    `json:"attempts"`
}
