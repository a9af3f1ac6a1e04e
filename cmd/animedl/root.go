package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"animedl/pkg/config"
	"animedl/pkg/logger"
	"animedl/pkg/scraper"
	"animedl/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	logFile    string

	// Download flags
	outputDir    string
	seriesURL    string
	episodeURL   string
	quality      string
	overwrite    bool
	maxAttempts  int
	stallTimeout time.Duration
	noProgress   bool
)

// rootCmd downloads a series or a single episode
var rootCmd = &cobra.Command{
	Use:   "animedl -d DIR (-s SERIES_URL | -e EPISODE_URL)",
	Short: "Download anime episodes from chia-anime",
	Long: `animedl downloads every episode of a chia-anime series, or a single episode,
as MP4 files into a directory.

Episodes already present and at least the minimum size are skipped. Partial
downloads are retried, and an episode that keeps failing in the preferred
quality is tried once in the other quality.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (ANIMEDL_*)
  - .env file
  - Configuration file
  - Default values (lowest priority)`,
	Example: `  # Download a whole series in low quality
  animedl -d ./hxh -s http://www.chia-anime.me/episode/hunter-x-hunter-2011/

  # Download one episode, preferring high quality
  animedl -d ./hxh -q high -e http://www.chia-anime.me/hunter-x-hunter-episode-1-english-subbed/`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if cmd.Name() != "version" && cmd.Name() != "help" {
			ui.PrintBanner()
		}
	},
	RunE: runDownload,
}

// Execute runs the root command; any error exits with status 1
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:])
	stop()
	if code != 0 {
		os.Exit(code)
	}
}

// run executes the root command with args and reports a failure on the
// error stream. It returns the process exit status.
func run(ctx context.Context, args []string) int {
	rootCmd.SetArgs(args)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		ui.PrintError("[ERROR]", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./.animedl.yaml or $HOME/.config/animedl/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "append JSON logs to this file")

	rootCmd.Flags().StringVarP(&outputDir, "dir", "d", "", "destination download directory")
	rootCmd.Flags().StringVarP(&seriesURL, "series", "s", "", "series URL listing all episodes, ex. http://www.chia-anime.me/episode/hunter-x-hunter-2011/")
	rootCmd.Flags().StringVarP(&episodeURL, "episode", "e", "", "episode URL, ex. http://www.chia-anime.me/hunter-x-hunter-episode-1-english-subbed/")
	rootCmd.Flags().StringVarP(&quality, "quality", "q", "low", "preferred quality (high, low)")
	rootCmd.Flags().BoolVar(&overwrite, "overwrite", false, "download again even if the file is complete")
	rootCmd.Flags().IntVar(&maxAttempts, "max-attempts", 5, "download attempts per quality")
	rootCmd.Flags().DurationVar(&stallTimeout, "stall-timeout", 60*time.Second, "abort an attempt after this long without data")
	rootCmd.Flags().BoolVar(&noProgress, "no-progress", false, "disable the progress bar")

	rootCmd.MarkFlagsOneRequired("series", "episode")
	rootCmd.MarkFlagsMutuallyExclusive("series", "episode")

	rootCmd.SetVersionTemplate(`animedl {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// flagOverrides collects the flags the user actually set, keyed the way
// config.MergeCommandLineFlags expects
func flagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if changed("dir") {
		flags["dir"] = outputDir
	}
	if changed("quality") {
		flags["quality"] = quality
	}
	if changed("overwrite") {
		flags["overwrite"] = overwrite
	}
	if changed("max-attempts") {
		flags["max-attempts"] = maxAttempts
	}
	if changed("stall-timeout") {
		flags["stall-timeout"] = stallTimeout
	}
	if changed("no-progress") {
		flags["progress"] = !noProgress
	}
	if changed("log-level") {
		flags["log-level"] = logLevel
	}
	if changed("log-file") {
		flags["log-file"] = logFile
	}
	return flags
}

// validateTarget checks the series or episode URL against the site patterns
func validateTarget(cfg *config.Config) error {
	matcher, err := scraper.NewURLMatcher(cfg.Site.BaseURL)
	if err != nil {
		return err
	}

	switch {
	case seriesURL != "" && !matcher.IsSeriesURL(seriesURL):
		return fmt.Errorf("invalid series URL - %s", seriesURL)
	case episodeURL != "" && !matcher.IsEpisodeURL(episodeURL):
		return fmt.Errorf("invalid episode URL - %s", episodeURL)
	case seriesURL == "" && episodeURL == "":
		return errors.New("either a series or an episode URL is required")
	}
	return nil
}

func runDownload(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile, flagOverrides(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Debug("animedl starting")

	if err := validateTarget(cfg); err != nil {
		return err
	}

	if seriesURL != "" {
		ui.PrintInfo("Series URL", seriesURL)
	} else {
		ui.PrintInfo("Episode URL", episodeURL)
	}
	ui.PrintInfo("Destination Dir", cfg.Output.Directory)
	ui.PrintInfo("Preferred Quality", cfg.Download.Quality)

	s, err := scraper.NewFromConfig(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize downloader: %w", err)
	}

	tracker := ui.NewStatusTracker()
	s.OnResult = func(r scraper.EpisodeResult) {
		tracker.Record(string(r.Status))
	}

	ctx := cmd.Context()
	var report *scraper.Report
	if seriesURL != "" {
		report, err = s.DownloadSeries(ctx, seriesURL)
	} else {
		report, err = s.DownloadEpisodeURL(ctx, episodeURL)
	}

	if report != nil {
		ui.PrintSummary(tracker, summaryRows(report))
	}
	if err != nil {
		return err
	}

	if episodeURL != "" && report.Failed() > 0 {
		return fmt.Errorf("episode download failed: %w", report.Results[0].Err)
	}
	return nil
}

func summaryRows(report *scraper.Report) []ui.SummaryRow {
	rows := make([]ui.SummaryRow, 0, len(report.Results))
	for _, r := range report.Results {
		row := ui.SummaryRow{
			Episode: r.Episode.Name,
			Status:  string(r.Status),
			Quality: r.Quality.String(),
			Elapsed: r.Elapsed,
		}
		if r.Err != nil {
			row.Detail = r.Err.Error()
		}
		rows = append(rows, row)
	}
	return rows
}
