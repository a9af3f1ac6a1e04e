package main

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"animedl/pkg/config"
	"animedl/pkg/ui"
)

func newFlagCommand() *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().StringVarP(&outputDir, "dir", "d", "", "")
	cmd.Flags().StringVarP(&quality, "quality", "q", "low", "")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", 5, "")
	cmd.Flags().DurationVar(&stallTimeout, "stall-timeout", time.Minute, "")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "")
	return cmd
}

func TestFlagOverridesOnlyChanged(t *testing.T) {
	cmd := newFlagCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-d", "/tmp/anime", "--no-progress", "--stall-timeout", "90s"}))

	flags := flagOverrides(cmd)

	assert.Equal(t, "/tmp/anime", flags["dir"])
	assert.Equal(t, false, flags["progress"])
	assert.Equal(t, 90*time.Second, flags["stall-timeout"])
	assert.NotContains(t, flags, "quality")
	assert.NotContains(t, flags, "max-attempts")
	assert.NotContains(t, flags, "overwrite")
	assert.NotContains(t, flags, "log-level")
}

func TestFlagOverridesMergeIntoConfig(t *testing.T) {
	cmd := newFlagCommand()
	require.NoError(t, cmd.ParseFlags([]string{"-q", "HIGH", "--max-attempts", "2"}))

	cfg := config.DefaultConfig()
	cfg.MergeCommandLineFlags(flagOverrides(cmd))

	assert.Equal(t, "high", cfg.Download.Quality)
	assert.Equal(t, 2, cfg.Download.MaxAttempts)
	assert.True(t, cfg.Download.ShowProgress)
}

func TestValidateTarget(t *testing.T) {
	cfg := config.DefaultConfig()
	t.Cleanup(func() {
		seriesURL, episodeURL = "", ""
	})

	tests := []struct {
		name    string
		series  string
		episode string
		wantErr string
	}{
		{name: "series", series: "http://www.chia-anime.me/episode/hunter-x-hunter-2011/"},
		{name: "episode", episode: "http://www.chia-anime.me/hunter-x-hunter-episode-1-english-subbed/"},
		{name: "episode passed as series", series: "http://www.chia-anime.me/hunter-x-hunter-episode-1-english-subbed/", wantErr: "invalid series URL"},
		{name: "series passed as episode", episode: "http://www.chia-anime.me/episode/hunter-x-hunter-2011/", wantErr: "invalid episode URL"},
		{name: "other site", series: "http://example.com/episode/hunter-x-hunter-2011/", wantErr: "invalid series URL"},
		{name: "nothing", wantErr: "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seriesURL, episodeURL = tt.series, tt.episode
			err := validateTarget(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRunReportsFailuresOnErrorStream(t *testing.T) {
	var stdout, stderr bytes.Buffer
	ui.SetOutput(&stdout)
	ui.SetErrorOutput(&stderr)
	t.Cleanup(func() {
		ui.SetOutput(os.Stdout)
		ui.SetErrorOutput(os.Stderr)
		rootCmd.SetArgs(nil)
		outputDir, seriesURL, episodeURL = "", "", ""
	})
	dir := t.TempDir()

	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{
			name:    "no target",
			args:    []string{"-d", dir},
			wantErr: "[series episode]",
		},
		{
			name:    "foreign series URL",
			args:    []string{"-d", dir, "-s", "http://example.com/x/"},
			wantErr: "invalid series URL - http://example.com/x/",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout.Reset()
			stderr.Reset()

			code := run(context.Background(), tt.args)

			assert.Equal(t, 1, code)
			assert.Contains(t, stderr.String(), "[ERROR]")
			assert.Contains(t, stderr.String(), tt.wantErr)
			assert.NotContains(t, stdout.String(), "[ERROR]")
		})
	}
}
