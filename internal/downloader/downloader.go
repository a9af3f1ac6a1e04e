package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"animedl/pkg/config"
	errs "animedl/pkg/errors"
	"animedl/pkg/logger"
	"animedl/pkg/models"
	"animedl/pkg/retry"
	"animedl/pkg/storage"
)

// ErrUndersized marks an attempt that finished below the minimum file size
var ErrUndersized = errors.New("file below minimum size")

// Streamer opens the response for a resolved video URL
type Streamer interface {
	Stream(ctx context.Context, url string, headers map[string]string) (*http.Response, error)
}

// Destination owns the files attempts write into
type Destination interface {
	Create(path string) (*os.File, error)
	MinFileSize() int64
}

// ProgressWriter receives every byte written to the destination
type ProgressWriter interface {
	io.Writer
	Finish() error
}

// ProgressFunc starts progress reporting for one attempt. total is -1 when
// the server sends no Content-Length.
type ProgressFunc func(total int64, description string) ProgressWriter

// Config controls the attempt loop
type Config struct {
	MaxAttempts    int
	RetryDelay     time.Duration
	StallTimeout   time.Duration
	AttemptTimeout time.Duration
	// RefererTemplate is formatted with the video identifier
	RefererTemplate string
}

// ConfigFrom builds a downloader Config from the loaded configuration
func ConfigFrom(dl *config.DownloadConfig, site *config.SiteConfig) Config {
	return Config{
		MaxAttempts:     dl.MaxAttempts,
		RetryDelay:      dl.RetryDelay,
		StallTimeout:    dl.StallTimeout,
		AttemptTimeout:  dl.AttemptTimeout,
		RefererTemplate: site.InfoPageURL,
	}
}

// Downloader streams one episode at a time to disk
type Downloader struct {
	streamer Streamer
	dest     Destination
	cfg      Config
	progress ProgressFunc
	logger   logger.Logger
}

// New creates a Downloader. A nil logger falls back to the global one.
func New(streamer Streamer, dest Destination, cfg Config, log logger.Logger) *Downloader {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}

	return &Downloader{
		streamer: streamer,
		dest:     dest,
		cfg:      cfg,
		logger:   log,
	}
}

// SetProgress installs a progress reporter; nil disables reporting
func (d *Downloader) SetProgress(fn ProgressFunc) {
	d.progress = fn
}

// Download streams task.ResolvedURL into task.DestinationPath until the file
// reaches the minimum size or the attempt budget is spent. An exhausted
// budget yields a DownloadIncompleteError; cancelling ctx stops immediately.
func (d *Downloader) Download(ctx context.Context, task models.DownloadTask) (*models.DownloadResult, error) {
	headers := map[string]string{
		"Connection": "keep-alive",
	}
	if d.cfg.RefererTemplate != "" {
		headers["Referer"] = config.FormatInfoPageURL(d.cfg.RefererTemplate, string(task.VideoIdentifier))
	}

	log := d.logger.WithFields(map[string]interface{}{
		"path":    task.DestinationPath,
		"quality": task.QualityAttempted.String(),
	})
	minSize := d.dest.MinFileSize()

	var (
		attempts int
		written  int64
	)
	err := retry.Do(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		n, err := d.attempt(ctx, task, headers)
		written = n
		if err == nil {
			if size := storage.FileSize(task.DestinationPath); size < minSize {
				err = fmt.Errorf("%w: %d of %d bytes", ErrUndersized, size, minSize)
			}
		}
		logger.LogAttempt(log, task.DestinationPath, attempt, d.cfg.MaxAttempts, n, err)
		return err
	}, &retry.Config{
		MaxAttempts: d.cfg.MaxAttempts,
		Backoff:     &retry.ConstantBackoff{Delay: d.cfg.RetryDelay},
		RetryIf: func(error) bool {
			return ctx.Err() == nil
		},
		Logger: log,
	})

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("download cancelled: %w", ctxErr)
		}
		return nil, errs.NewDownloadIncompleteError(
			task.DestinationPath, attempts, storage.FileSize(task.DestinationPath), minSize, err)
	}

	return &models.DownloadResult{
		Path:     task.DestinationPath,
		Bytes:    written,
		Attempts: attempts,
	}, nil
}

// attempt performs one truncate-and-stream pass and returns bytes written
func (d *Downloader) attempt(ctx context.Context, task models.DownloadTask, headers map[string]string) (int64, error) {
	f, err := d.dest.Create(task.DestinationPath)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if d.cfg.AttemptTimeout > 0 {
		var cancelDeadline context.CancelFunc
		ctx, cancelDeadline = context.WithTimeout(ctx, d.cfg.AttemptTimeout)
		defer cancelDeadline()
	}

	watchdog := newStallWatchdog(d.cfg.StallTimeout, cancel)
	defer watchdog.stop()

	resp, err := d.streamer.Stream(ctx, task.ResolvedURL, headers)
	if err != nil {
		return 0, watchdog.wrap(err)
	}
	defer resp.Body.Close()

	var dst io.Writer = f
	var bar ProgressWriter
	if d.progress != nil {
		bar = d.progress(resp.ContentLength, filepath.Base(task.DestinationPath))
		dst = io.MultiWriter(f, bar)
	}

	n, err := io.Copy(dst, &watchedReader{r: resp.Body, watchdog: watchdog})
	if bar != nil {
		if finishErr := bar.Finish(); finishErr != nil {
			d.logger.WithError(finishErr).Debug("Failed to finish progress bar")
		}
	}
	if err != nil {
		return n, watchdog.wrap(fmt.Errorf("stream interrupted: %w", err))
	}

	if err := f.Close(); err != nil {
		return n, fmt.Errorf("failed to close destination file: %w", err)
	}

	return n, nil
}
