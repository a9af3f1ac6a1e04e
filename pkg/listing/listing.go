package listing

import (
	"context"
	"net/url"
	"slices"
	"strings"

	errs "animedl/pkg/errors"
	"animedl/pkg/logger"
	"animedl/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

const (
	containerSelector = "#archive"
	entrySelector     = "#archive .post"
	nameSelector      = "h3"
	linkSelector      = `a[itemprop="url"]`
)

// suffix disambiguates episodes that share a display name with a regular one
type suffix struct {
	marker string
	label  string
}

var suffixes = []suffix{
	{marker: "specials", label: "-Specials"},
	{marker: "ova", label: "-OVA"},
}

// DocumentFetcher is the part of the session the resolver needs
type DocumentFetcher interface {
	FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, string, error)
}

// Resolver reads a series page into its episode list
type Resolver struct {
	fetcher DocumentFetcher
	logger  logger.Logger
}

// New creates a Resolver. A nil logger falls back to the global one.
func New(fetcher DocumentFetcher, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Resolver{fetcher: fetcher, logger: log}
}

// ResolveEpisodes returns the episodes of seriesURL oldest first. A page
// without the listing container is a parse error; a container with no
// entries yields an empty slice.
func (r *Resolver) ResolveEpisodes(ctx context.Context, seriesURL string) ([]models.Episode, error) {
	doc, _, err := r.fetcher.FetchDocument(ctx, seriesURL)
	if err != nil {
		return nil, err
	}

	if doc.Find(containerSelector).Length() == 0 {
		return nil, errs.NewParseError(seriesURL, "episode listing not found")
	}

	base, err := url.Parse(seriesURL)
	if err != nil {
		return nil, errs.NewParseError(seriesURL, "invalid series URL")
	}

	var episodes []models.Episode
	doc.Find(entrySelector).Each(func(i int, s *goquery.Selection) {
		name := strings.TrimSpace(s.Find(nameSelector).First().Text())
		href, ok := s.Find(linkSelector).First().Attr("href")
		href = strings.TrimSpace(href)
		if !ok || href == "" {
			r.logger.WarnWithFields("Skipping listing entry without a link", map[string]interface{}{
				"series_url": seriesURL,
				"index":      i,
				"name":       name,
			})
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			r.logger.WithError(err).WarnWithFields("Skipping listing entry with an invalid link", map[string]interface{}{
				"series_url": seriesURL,
				"href":       href,
			})
			return
		}
		resolved := base.ResolveReference(ref)

		episodes = append(episodes, models.Episode{
			Name: withSuffixes(name, resolved.Path),
			URL:  resolved.String(),
		})
	})

	// The page lists newest first
	slices.Reverse(episodes)

	r.logger.InfoWithFields("Resolved episode listing", map[string]interface{}{
		"series_url": seriesURL,
		"episodes":   len(episodes),
	})

	if len(episodes) == 0 {
		return []models.Episode{}, nil
	}
	return episodes, nil
}

// withSuffixes appends each label whose marker appears in the episode path,
// once. The host never counts.
func withSuffixes(name, episodePath string) string {
	for _, sfx := range suffixes {
		if strings.Contains(episodePath, sfx.marker) && !strings.Contains(name, sfx.label) {
			name += sfx.label
		}
	}
	return name
}
