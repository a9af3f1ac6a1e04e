package scraper

import (
	"context"

	"animedl/pkg/models"
)

// EpisodeResolver lists the episodes of a series page
type EpisodeResolver interface {
	ResolveEpisodes(ctx context.Context, seriesURL string) ([]models.Episode, error)
}

// VideoLocator finds the video behind an episode page
type VideoLocator interface {
	ExtractIdentifier(ctx context.Context, episodeURL string) (models.VideoIdentifier, error)
	Resolve(ctx context.Context, id models.VideoIdentifier, quality models.Quality) (*models.ResolvedVideoURL, error)
}

// EpisodeDownloader streams one resolved video to disk
type EpisodeDownloader interface {
	Download(ctx context.Context, task models.DownloadTask) (*models.DownloadResult, error)
}

// EpisodeStore maps episode names to files and tells complete ones apart
type EpisodeStore interface {
	PathFor(episodeName string) string
	IsDownloaded(path string) bool
}
