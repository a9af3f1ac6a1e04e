package scraper

import (
	"fmt"
	"net/url"
	"path"
	"regexp"
	"strings"
)

// URLMatcher recognizes series and episode pages of the configured site
type URLMatcher struct {
	series  *regexp.Regexp
	episode *regexp.Regexp
}

// NewURLMatcher builds the page patterns from the site base URL
func NewURLMatcher(baseURL string) (*URLMatcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid site base URL %q", baseURL)
	}
	host := regexp.QuoteMeta(u.Host)

	return &URLMatcher{
		series:  regexp.MustCompile(`^https?://` + host + `/episode/[^/]+/$`),
		episode: regexp.MustCompile(`^https?://` + host + `/[^/]+/$`),
	}, nil
}

// IsSeriesURL reports whether rawURL is a series listing page
func (m *URLMatcher) IsSeriesURL(rawURL string) bool {
	return m.series.MatchString(rawURL)
}

// IsEpisodeURL reports whether rawURL is a single episode page
func (m *URLMatcher) IsEpisodeURL(rawURL string) bool {
	return m.episode.MatchString(rawURL)
}

// EpisodeNameFromURL names a single episode after the last path segment of
// its page
func EpisodeNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	name := path.Base(strings.TrimRight(u.Path, "/"))
	if name == "." || name == "/" {
		return ""
	}
	return name
}
