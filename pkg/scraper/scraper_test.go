package scraper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"animedl/pkg/config"
	errs "animedl/pkg/errors"
	"animedl/pkg/jsdecode/jsdecodetest"
	"animedl/pkg/logger"
	"animedl/pkg/models"
	"animedl/pkg/storage"
	"animedl/pkg/ui"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	ui.SetOutput(io.Discard)
	ui.SetErrorOutput(io.Discard)
	os.Exit(m.Run())
}

// fakeLocator resolves every identifier to "<quality>://<id>"
type fakeLocator struct {
	extractCalls int
	resolveCalls []models.Quality
	extractErr   error
	resolveErr   map[models.Quality]error
}

func (f *fakeLocator) ExtractIdentifier(ctx context.Context, episodeURL string) (models.VideoIdentifier, error) {
	f.extractCalls++
	if f.extractErr != nil {
		return "", f.extractErr
	}
	return models.VideoIdentifier(EpisodeNameFromURL(episodeURL)), nil
}

func (f *fakeLocator) Resolve(ctx context.Context, id models.VideoIdentifier, quality models.Quality) (*models.ResolvedVideoURL, error) {
	f.resolveCalls = append(f.resolveCalls, quality)
	if err := f.resolveErr[quality]; err != nil {
		return nil, err
	}
	return &models.ResolvedVideoURL{URL: quality.String() + "://" + string(id), Quality: quality, VideoID: id}, nil
}

// fakeDownloader fails the qualities listed in fail with the given error
type fakeDownloader struct {
	tasks []models.DownloadTask
	fail  map[models.Quality]error
}

func (f *fakeDownloader) Download(ctx context.Context, task models.DownloadTask) (*models.DownloadResult, error) {
	f.tasks = append(f.tasks, task)
	if err := f.fail[task.QualityAttempted]; err != nil {
		return nil, err
	}
	return &models.DownloadResult{Path: task.DestinationPath, Bytes: 42, Attempts: 1}, nil
}

type fakeResolver struct {
	episodes []models.Episode
	err      error
}

func (f *fakeResolver) ResolveEpisodes(ctx context.Context, seriesURL string) ([]models.Episode, error) {
	return f.episodes, f.err
}

// memoryStore treats paths in done as complete files
type memoryStore struct {
	done map[string]bool
}

func (m *memoryStore) PathFor(name string) string {
	return "/downloads/" + storage.NormalizeFileName(name) + ".mp4"
}

func (m *memoryStore) IsDownloaded(path string) bool {
	return m.done[path]
}

func incomplete() error {
	return errs.NewDownloadIncompleteError("/downloads/x.mp4", 5, 10, 1024, errors.New("short"))
}

func newFakeScraper(opts Options) (*Scraper, *fakeLocator, *fakeDownloader, *memoryStore) {
	loc := &fakeLocator{resolveErr: map[models.Quality]error{}}
	dl := &fakeDownloader{fail: map[models.Quality]error{}}
	store := &memoryStore{done: map[string]bool{}}
	return New(&fakeResolver{}, loc, dl, store, opts, logger.NewNopLogger()), loc, dl, store
}

func TestProcessEpisodePreferredQuality(t *testing.T) {
	s, loc, dl, _ := newFakeScraper(Options{Quality: models.QualityHigh})

	result := s.processEpisode(context.Background(), models.Episode{Name: "Naruto Episode 1", URL: "http://site/naruto-1/"})

	assert.Equal(t, StatusDownloaded, result.Status)
	assert.Equal(t, models.QualityHigh, result.Quality)
	assert.Equal(t, "/downloads/Naruto-Episode-1.mp4", result.Path)
	assert.NoError(t, result.Err)
	assert.Equal(t, []models.Quality{models.QualityHigh}, loc.resolveCalls)
	require.Len(t, dl.tasks, 1)
	assert.Equal(t, models.VideoIdentifier("naruto-1"), dl.tasks[0].VideoIdentifier)
	assert.Equal(t, "high://naruto-1", dl.tasks[0].ResolvedURL)
}

func TestProcessEpisodeFallsBackOnce(t *testing.T) {
	s, loc, dl, _ := newFakeScraper(Options{Quality: models.QualityLow})
	dl.fail[models.QualityLow] = incomplete()

	result := s.processEpisode(context.Background(), models.Episode{Name: "Ep 1", URL: "http://site/ep-1/"})

	assert.Equal(t, StatusDownloaded, result.Status)
	assert.Equal(t, models.QualityHigh, result.Quality)
	assert.NoError(t, result.Err)
	assert.Equal(t, 1, loc.extractCalls)
	assert.Equal(t, []models.Quality{models.QualityLow, models.QualityHigh}, loc.resolveCalls)
}

func TestProcessEpisodeNoFlipFlop(t *testing.T) {
	s, loc, dl, _ := newFakeScraper(Options{Quality: models.QualityHigh})
	dl.fail[models.QualityHigh] = incomplete()
	dl.fail[models.QualityLow] = incomplete()

	result := s.processEpisode(context.Background(), models.Episode{Name: "Ep 1", URL: "http://site/ep-1/"})

	assert.Equal(t, StatusFailed, result.Status)
	assert.True(t, errs.IsType(result.Err, errs.ErrorTypeDownloadIncomplete))
	assert.Len(t, dl.tasks, 2)
	assert.Equal(t, []models.Quality{models.QualityHigh, models.QualityLow}, loc.resolveCalls)
}

func TestProcessEpisodeResolutionErrorDoesNotFallBack(t *testing.T) {
	s, loc, dl, _ := newFakeScraper(Options{Quality: models.QualityLow})
	loc.resolveErr[models.QualityLow] = errs.NewResolutionError("anchor not found", nil)

	result := s.processEpisode(context.Background(), models.Episode{Name: "Ep 1", URL: "http://site/ep-1/"})

	assert.Equal(t, StatusFailed, result.Status)
	assert.True(t, errs.IsType(result.Err, errs.ErrorTypeResolution))
	assert.Empty(t, dl.tasks)
	assert.Equal(t, []models.Quality{models.QualityLow}, loc.resolveCalls)
}

func TestProcessEpisodeIdentifierNotFound(t *testing.T) {
	s, loc, dl, _ := newFakeScraper(Options{})
	loc.extractErr = errs.NewIdentifierNotFoundError("http://site/ep-1/")

	result := s.processEpisode(context.Background(), models.Episode{Name: "Ep 1", URL: "http://site/ep-1/"})

	assert.Equal(t, StatusFailed, result.Status)
	assert.True(t, errs.IsType(result.Err, errs.ErrorTypeIdentifierNotFound))
	assert.Empty(t, loc.resolveCalls)
	assert.Empty(t, dl.tasks)
}

func TestProcessEpisodeSkipsDownloaded(t *testing.T) {
	s, loc, dl, store := newFakeScraper(Options{})
	store.done["/downloads/Ep-1.mp4"] = true

	result := s.processEpisode(context.Background(), models.Episode{Name: "Ep 1", URL: "http://site/ep-1/"})

	assert.Equal(t, StatusSkipped, result.Status)
	assert.Zero(t, loc.extractCalls)
	assert.Empty(t, dl.tasks)
}

func TestProcessEpisodeOverwrite(t *testing.T) {
	s, loc, dl, store := newFakeScraper(Options{Overwrite: true})
	store.done["/downloads/Ep-1.mp4"] = true

	result := s.processEpisode(context.Background(), models.Episode{Name: "Ep 1", URL: "http://site/ep-1/"})

	assert.Equal(t, StatusDownloaded, result.Status)
	assert.Equal(t, 1, loc.extractCalls)
	assert.Len(t, dl.tasks, 1)
}

func TestDownloadSeriesContinuesAfterFailure(t *testing.T) {
	s, loc, _, _ := newFakeScraper(Options{})
	s.resolver = &fakeResolver{episodes: []models.Episode{
		{Name: "Ep 1", URL: "http://site/ep-1/"},
		{Name: "Ep 2", URL: "http://site/ep-2/"},
	}}
	loc.resolveErr[models.QualityLow] = errs.NewResolutionError("anchor not found", nil)

	var seen []string
	s.OnResult = func(r EpisodeResult) { seen = append(seen, r.Episode.Name) }

	report, err := s.DownloadSeries(context.Background(), "http://site/episode/show/")

	require.NoError(t, err)
	assert.Equal(t, 2, report.Failed())
	assert.Equal(t, []string{"Ep 1", "Ep 2"}, seen)
}

func TestDownloadSeriesListingFailure(t *testing.T) {
	s, _, _, _ := newFakeScraper(Options{})
	s.resolver = &fakeResolver{err: errs.NewParseError("http://site/episode/show/", "episode listing not found")}

	report, err := s.DownloadSeries(context.Background(), "http://site/episode/show/")

	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, errs.IsType(err, errs.ErrorTypeParse))
}

func TestDownloadSeriesCancelled(t *testing.T) {
	s, _, _, _ := newFakeScraper(Options{})
	s.resolver = &fakeResolver{episodes: []models.Episode{{Name: "Ep 1", URL: "http://site/ep-1/"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := s.DownloadSeries(ctx, "http://site/episode/show/")

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, report.Results)
}

func TestDownloadEpisodeURLNamesFromPath(t *testing.T) {
	s, _, dl, _ := newFakeScraper(Options{})

	report, err := s.DownloadEpisodeURL(context.Background(), "http://site/hunter-x-hunter-episode-1-english-subbed/")

	require.NoError(t, err)
	require.Len(t, report.Results, 1)
	assert.Equal(t, "hunter-x-hunter-episode-1-english-subbed", report.Results[0].Episode.Name)
	assert.Equal(t, "/downloads/hunter-x-hunter-episode-1-english-subbed.mp4", dl.tasks[0].DestinationPath)
	assert.Equal(t, 1, report.Downloaded())
}

// siteFixture serves a miniature chia-anime site with its video host
type siteFixture struct {
	server *httptest.Server

	mu    sync.Mutex
	paths []string
}

func (f *siteFixture) requested(prefix string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, p := range f.paths {
		if strings.HasPrefix(p, prefix) {
			out = append(out, p)
		}
	}
	return out
}

func newSiteFixture(t *testing.T) *siteFixture {
	t.Helper()
	f := &siteFixture{}
	video := bytes.Repeat([]byte("v"), 2048)

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.paths = append(f.paths, r.URL.Path)
		f.mu.Unlock()

		switch {
		case r.URL.Path == "/episode/naruto/":
			fmt.Fprint(w, `<div id="archive">`)
			for n := 3; n >= 1; n-- {
				fmt.Fprintf(w, `<div class="post"><h3>Naruto Episode %d</h3><a itemprop="url" href="/naruto-episode-%d/">watch</a></div>`, n, n)
			}
			fmt.Fprint(w, `</div>`)
		case strings.HasPrefix(r.URL.Path, "/naruto-episode-"):
			n := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/naruto-episode-"), "/")
			fmt.Fprintf(w, `<iframe src="http://www.animepremium.tv/video/nar-%s"></iframe>`, n)
		case r.URL.Path == "/pa.js":
			fmt.Fprintf(w, "var vhost = '%s';\nfunction cdn(id) { return vhost + '/cdn/' + id; }\n", f.server.URL)
		case strings.HasPrefix(r.URL.Path, "/video/"):
			id := strings.TrimPrefix(r.URL.Path, "/video/")
			fmt.Fprintf(w, "<html><body><script>(function(w){ w.x = 1; }(window));\nvar vid = '%s';</script>", id)
			fmt.Fprintf(w, "<script>%s</script>", jsdecodetest.Pack(`document.write('<a href="'+cdn(vid)+'.mp4">Download</a>');`))
			fmt.Fprint(w, "</body></html>")
		case strings.HasPrefix(r.URL.Path, "/cdn/"):
			w.Write(video)
		default:
			http.NotFound(w, r)
		}
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *siteFixture) config(t *testing.T) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Site.BaseURL = f.server.URL
	cfg.Site.BootstrapScriptURL = f.server.URL + "/pa.js"
	cfg.Site.InfoPageURL = f.server.URL + "/video/%s"
	cfg.HTTP.RequestsPerMinute = 0
	cfg.HTTP.RetryAttempts = 1
	cfg.Download.MinFileSize = 1024
	cfg.Download.RetryDelay = 0
	cfg.Download.ShowProgress = false
	cfg.Output.Directory = t.TempDir()
	return cfg
}

func TestDownloadSeriesEndToEnd(t *testing.T) {
	f := newSiteFixture(t)
	cfg := f.config(t)

	log := logger.NewTestLogger()
	s, err := NewFromConfig(cfg, log)
	require.NoError(t, err)
	assert.True(t, log.HasMessage("Output directory ready"))

	report, err := s.DownloadSeries(context.Background(), f.server.URL+"/episode/naruto/")

	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Equal(t, 3, report.Downloaded())
	for i, res := range report.Results {
		name := fmt.Sprintf("Naruto Episode %d", i+1)
		assert.Equal(t, name, res.Episode.Name)
		assert.Equal(t, models.QualityLow, res.Quality)
		assert.Equal(t, filepath.Join(cfg.Output.Directory, storage.NormalizeFileName(name)+".mp4"), res.Path)
		assert.Equal(t, int64(2048), storage.FileSize(res.Path))
	}
	assert.Equal(t, []string{"/cdn/nar-1.mp4", "/cdn/nar-2.mp4", "/cdn/nar-3.mp4"}, f.requested("/cdn/"))

	// A second run finds every file complete and touches nothing but the listing
	before := len(f.requested("/"))
	again, err := s.DownloadSeries(context.Background(), f.server.URL+"/episode/naruto/")
	require.NoError(t, err)
	assert.Equal(t, 3, again.Skipped())
	assert.Equal(t, before+1, len(f.requested("/")))
}
