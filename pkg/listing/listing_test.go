package listing

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"animedl/pkg/config"
	errs "animedl/pkg/errors"
	"animedl/pkg/logger"
	"animedl/pkg/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const seriesPage = `<html><body>
<div id="archive">
  <div class="post">
    <h3> Naruto Episode 3 </h3>
    <a itemprop="url" href="/episode/naruto-episode-3/">watch</a>
  </div>
  <div class="post">
    <h3>Naruto Episode 2</h3>
    <h3>ignored second heading</h3>
    <a itemprop="url" href="/episode/naruto-episode-2/">watch</a>
    <a itemprop="url" href="/episode/other/">second link</a>
  </div>
  <div class="post">
    <h3>Broken entry</h3>
  </div>
  <div class="post">
    <h3>Naruto Episode 1</h3>
    <a itemprop="url" href="%s/episode/naruto-episode-1/">watch</a>
  </div>
</div>
</body></html>`

func newResolver(t *testing.T, handler http.HandlerFunc) (*Resolver, *httptest.Server, *logger.TestLogger) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	httpCfg := config.DefaultConfig().HTTP
	httpCfg.RequestsPerMinute = 0
	httpCfg.RetryAttempts = 1
	s, err := session.New(&httpCfg, logger.NewNopLogger())
	require.NoError(t, err)

	log := logger.NewTestLogger()
	return New(s, log), server, log
}

func TestResolveEpisodesOldestFirst(t *testing.T) {
	var serverURL string
	r, server, log := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprintf(w, seriesPage, serverURL)
	})
	serverURL = server.URL

	episodes, err := r.ResolveEpisodes(context.Background(), server.URL+"/naruto/")

	require.NoError(t, err)
	require.Len(t, episodes, 3)
	assert.Equal(t, "Naruto Episode 1", episodes[0].Name)
	assert.Equal(t, server.URL+"/episode/naruto-episode-1/", episodes[0].URL)
	assert.Equal(t, "Naruto Episode 2", episodes[1].Name)
	assert.Equal(t, server.URL+"/episode/naruto-episode-2/", episodes[1].URL)
	assert.Equal(t, "Naruto Episode 3", episodes[2].Name)
	assert.True(t, log.HasMessage("Skipping listing entry without a link"))
}

func TestResolveEpisodesSuffixes(t *testing.T) {
	r, server, _ := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `<div id="archive">
  <div class="post"><h3>Bleach 1-Specials</h3><a itemprop="url" href="/episode/bleach-specials-1/">x</a></div>
  <div class="post"><h3>Bleach 1</h3><a itemprop="url" href="/episode/bleach-ova-1/">x</a></div>
  <div class="post"><h3>Bleach 1</h3><a itemprop="url" href="/episode/bleach-1/">x</a></div>
</div>`)
	})

	episodes, err := r.ResolveEpisodes(context.Background(), server.URL+"/bleach/")

	require.NoError(t, err)
	require.Len(t, episodes, 3)
	assert.Equal(t, "Bleach 1", episodes[0].Name)
	assert.Equal(t, "Bleach 1-OVA", episodes[1].Name)
	assert.Equal(t, "Bleach 1-Specials", episodes[2].Name)
}

func TestWithSuffixes(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{"Ep 1", "/episode/show-1/", "Ep 1"},
		{"Ep 1", "/episode/show-specials-1/", "Ep 1-Specials"},
		{"Ep 1", "/episode/show-ova-1/", "Ep 1-OVA"},
		{"Ep 1", "/episode/show-specials-ova-1/", "Ep 1-Specials-OVA"},
		{"Ep 1-Specials-OVA", "/episode/show-specials-ova-1/", "Ep 1-Specials-OVA"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, withSuffixes(tt.name, tt.path))
		})
	}
}

func TestResolveEpisodesIgnoresMarkersInHost(t *testing.T) {
	r, server, _ := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `<div id="archive">
  <div class="post"><h3>Bleach 2</h3><a itemprop="url" href="http://nova-specials.example/episode/bleach-2/">x</a></div>
  <div class="post"><h3>Bleach 1</h3><a itemprop="url" href="http://nova-specials.example/episode/bleach-ova-1/">x</a></div>
</div>`)
	})

	episodes, err := r.ResolveEpisodes(context.Background(), server.URL+"/bleach/")

	require.NoError(t, err)
	require.Len(t, episodes, 2)
	assert.Equal(t, "Bleach 1-OVA", episodes[0].Name)
	assert.Equal(t, "Bleach 2", episodes[1].Name)
	assert.Equal(t, "http://nova-specials.example/episode/bleach-2/", episodes[1].URL)
}

func TestResolveEpisodesEmptyListing(t *testing.T) {
	r, server, _ := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `<html><body><div id="archive"></div></body></html>`)
	})

	episodes, err := r.ResolveEpisodes(context.Background(), server.URL+"/empty/")

	require.NoError(t, err)
	assert.NotNil(t, episodes)
	assert.Empty(t, episodes)
}

func TestResolveEpisodesMissingContainer(t *testing.T) {
	r, server, _ := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		fmt.Fprint(w, `<html><body><p>Not found</p></body></html>`)
	})

	_, err := r.ResolveEpisodes(context.Background(), server.URL+"/gone/")

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeParse))
}

func TestResolveEpisodesFetchError(t *testing.T) {
	r, server, _ := newResolver(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	_, err := r.ResolveEpisodes(context.Background(), server.URL+"/missing/")

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeFetch))
}
