package scraper

import (
	"context"
	"fmt"
	"time"

	"animedl/internal/downloader"
	"animedl/pkg/config"
	errs "animedl/pkg/errors"
	"animedl/pkg/listing"
	"animedl/pkg/locator"
	"animedl/pkg/logger"
	"animedl/pkg/models"
	"animedl/pkg/session"
	"animedl/pkg/storage"
	"animedl/pkg/ui"
)

// Options tune how episodes are processed
type Options struct {
	Quality   models.Quality
	Overwrite bool
}

// Scraper drives listing, location and download for one run. Episodes are
// processed strictly one after another.
type Scraper struct {
	resolver   EpisodeResolver
	locator    VideoLocator
	downloader EpisodeDownloader
	store      EpisodeStore
	opts       Options
	logger     logger.Logger

	// OnResult, when set, is called after every episode
	OnResult func(EpisodeResult)
}

// New assembles a Scraper from its parts. A nil logger falls back to the
// global one.
func New(resolver EpisodeResolver, loc VideoLocator, dl EpisodeDownloader, store EpisodeStore, opts Options, log logger.Logger) *Scraper {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.Quality == "" {
		opts.Quality = models.QualityLow
	}

	return &Scraper{
		resolver:   resolver,
		locator:    loc,
		downloader: dl,
		store:      store,
		opts:       opts,
		logger:     log,
	}
}

// NewFromConfig wires the production components around one shared session
func NewFromConfig(cfg *config.Config, log logger.Logger) (*Scraper, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	quality, err := models.ParseQuality(cfg.Download.Quality)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(&cfg.HTTP, log.WithField("component", "session"))
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	store, err := storage.NewManager(cfg.Output.Directory, cfg.Output.Extension, cfg.Download.MinFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage manager: %w", err)
	}
	log.DebugWithFields("Output directory ready", map[string]interface{}{
		"dir":           store.GetOutputDir(),
		"min_file_size": store.MinFileSize(),
	})

	loc, err := locator.New(sess, &cfg.Site, log.WithField("component", "locator"))
	if err != nil {
		return nil, fmt.Errorf("failed to create video locator: %w", err)
	}

	dl := downloader.New(sess, store, downloader.ConfigFrom(&cfg.Download, &cfg.Site), log.WithField("component", "downloader"))
	if ui.ProgressEnabled(cfg.Download.ShowProgress) {
		dl.SetProgress(func(total int64, description string) downloader.ProgressWriter {
			return ui.NewProgressBar(total, description)
		})
	}

	resolver := listing.New(sess, log.WithField("component", "listing"))

	return New(resolver, loc, dl, store, Options{
		Quality:   quality,
		Overwrite: cfg.Download.Overwrite,
	}, log), nil
}

// DownloadSeries downloads every episode of seriesURL oldest first. A
// failed episode is recorded and the run continues; only a listing failure
// or cancellation returns an error.
func (s *Scraper) DownloadSeries(ctx context.Context, seriesURL string) (*Report, error) {
	start := time.Now()
	report := &Report{}

	s.logger.InfoWithFields("Starting series download", map[string]interface{}{
		"series_url": seriesURL,
		"quality":    s.opts.Quality.String(),
	})

	episodes, err := s.resolver.ResolveEpisodes(ctx, seriesURL)
	if err != nil {
		s.logger.WithError(err).WithField("series_url", seriesURL).Error("Failed to resolve episode listing")
		return nil, fmt.Errorf("failed to resolve episode listing: %w", err)
	}

	ui.PrintInfo("Total episodes found", fmt.Sprintf("%d", len(episodes)))

	for _, ep := range episodes {
		if err := ctx.Err(); err != nil {
			report.Elapsed = time.Since(start)
			return report, fmt.Errorf("series download interrupted: %w", err)
		}

		result := s.processEpisode(ctx, ep)
		report.Results = append(report.Results, result)

		if isCancellation(ctx, result.Err) {
			report.Elapsed = time.Since(start)
			return report, fmt.Errorf("series download interrupted: %w", ctx.Err())
		}
	}

	report.Elapsed = time.Since(start)
	s.logger.InfoWithFields("Series download finished", map[string]interface{}{
		"series_url": seriesURL,
		"downloaded": report.Downloaded(),
		"skipped":    report.Skipped(),
		"failed":     report.Failed(),
		"elapsed":    report.Elapsed.Round(time.Millisecond).String(),
	})

	return report, nil
}

// DownloadEpisodeURL downloads a single episode page. The episode is named
// after the last path segment of its URL.
func (s *Scraper) DownloadEpisodeURL(ctx context.Context, episodeURL string) (*Report, error) {
	start := time.Now()
	ep := models.Episode{
		Name: EpisodeNameFromURL(episodeURL),
		URL:  episodeURL,
	}
	if ep.Name == "" {
		return nil, fmt.Errorf("cannot derive an episode name from %q", episodeURL)
	}

	result := s.processEpisode(ctx, ep)
	report := &Report{
		Results: []EpisodeResult{result},
		Elapsed: time.Since(start),
	}

	if isCancellation(ctx, result.Err) {
		return report, fmt.Errorf("episode download interrupted: %w", ctx.Err())
	}
	return report, nil
}

// processEpisode skips, or resolves and downloads, one episode. The
// preferred quality is tried first; only an incomplete download moves on to
// the opposite quality, and only once.
func (s *Scraper) processEpisode(ctx context.Context, ep models.Episode) (result EpisodeResult) {
	start := time.Now()
	result = EpisodeResult{
		Episode: ep,
		Path:    s.store.PathFor(ep.Name),
	}
	defer func() {
		result.Elapsed = time.Since(start)
		logger.LogEpisode(s.logger, ep.Name, string(result.Status), result.Elapsed, result.Err)
		if s.OnResult != nil {
			s.OnResult(result)
		}
	}()

	ui.PrintHighlight(fmt.Sprintf("\n-- %s --", ep.Name))

	if !s.opts.Overwrite && s.store.IsDownloaded(result.Path) {
		ui.PrintInfo("Status", "Already downloaded")
		result.Status = StatusSkipped
		return result
	}

	id, err := s.locator.ExtractIdentifier(ctx, ep.URL)
	if err != nil {
		result.Status = StatusFailed
		result.Err = err
		return result
	}

	for i, quality := range s.opts.Quality.Sequence() {
		result.Quality = quality
		ui.PrintInfo("Quality", fmt.Sprintf("attempting %q", quality))

		dl, err := s.downloadQuality(ctx, id, result.Path, quality)
		if err == nil {
			result.Status = StatusDownloaded
			result.Attempts = dl.Attempts
			result.Bytes = dl.Bytes
			result.Err = nil
			ui.PrintSuccess("Download success")
			return result
		}

		result.Err = err
		if i == 0 && errs.IsType(err, errs.ErrorTypeDownloadIncomplete) && ctx.Err() == nil {
			ui.PrintWarning("Download failed, trying the other quality")
			s.logger.WithError(err).WarnWithFields("Falling back to opposite quality", map[string]interface{}{
				"episode": ep.Name,
				"from":    quality.String(),
				"to":      quality.Opposite().String(),
			})
			continue
		}
		break
	}

	result.Status = StatusFailed
	ui.PrintError("Download failed", result.Err)
	return result
}

func (s *Scraper) downloadQuality(ctx context.Context, id models.VideoIdentifier, path string, quality models.Quality) (*models.DownloadResult, error) {
	resolved, err := s.locator.Resolve(ctx, id, quality)
	if err != nil {
		return nil, err
	}

	return s.downloader.Download(ctx, models.DownloadTask{
		ResolvedURL:      resolved.URL,
		DestinationPath:  path,
		VideoIdentifier:  id,
		QualityAttempted: quality,
	})
}

// isCancellation reports whether err ended the episode because ctx was done
func isCancellation(ctx context.Context, err error) bool {
	return err != nil && ctx.Err() != nil
}
