package locator

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"animedl/pkg/config"
	errs "animedl/pkg/errors"
	"animedl/pkg/jsdecode"
	"animedl/pkg/logger"
	"animedl/pkg/models"

	"github.com/PuerkitoBio/goquery"
)

var (
	hrefPattern = regexp.MustCompile(`href="(.*?)"`)
	srcPattern  = regexp.MustCompile(`src="(.*?)"`)
)

// Fetcher is the part of the session the locator needs
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
	FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, string, error)
}

// Locator turns an episode page into a downloadable video URL
type Locator struct {
	fetcher   Fetcher
	site      config.SiteConfig
	idPattern *regexp.Regexp
	logger    logger.Logger
}

// New creates a Locator for the configured site and video host
func New(fetcher Fetcher, site *config.SiteConfig, log logger.Logger) (*Locator, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	re, err := regexp.Compile(site.VideoIDPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid video id pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, fmt.Errorf("video id pattern %q has no capture group", site.VideoIDPattern)
	}

	return &Locator{
		fetcher:   fetcher,
		site:      *site,
		idPattern: re,
		logger:    log,
	}, nil
}

// ResolveVideoURL extracts the identifier from episodeURL and resolves it
// for the given quality
func (l *Locator) ResolveVideoURL(ctx context.Context, episodeURL string, quality models.Quality) (*models.ResolvedVideoURL, error) {
	id, err := l.ExtractIdentifier(ctx, episodeURL)
	if err != nil {
		return nil, err
	}
	return l.Resolve(ctx, id, quality)
}

// ExtractIdentifier scans the raw episode page for a pointer to the video
// host and returns the identifier segment
func (l *Locator) ExtractIdentifier(ctx context.Context, episodeURL string) (models.VideoIdentifier, error) {
	body, err := l.fetcher.Fetch(ctx, episodeURL)
	if err != nil {
		return "", err
	}

	m := l.idPattern.FindStringSubmatch(body)
	if m == nil || m[1] == "" {
		return "", errs.NewIdentifierNotFoundError(episodeURL)
	}

	l.logger.DebugWithFields("Found video identifier", map[string]interface{}{
		"episode_url": episodeURL,
		"video_id":    m[1],
	})
	return models.VideoIdentifier(m[1]), nil
}

// InfoPageURL is the per-identifier page on the video host. Downloads send
// it as Referer.
func (l *Locator) InfoPageURL(id models.VideoIdentifier) string {
	return config.FormatInfoPageURL(l.site.InfoPageURL, string(id))
}

// Resolve follows the obfuscated redirects of the info page for id
func (l *Locator) Resolve(ctx context.Context, id models.VideoIdentifier, quality models.Quality) (*models.ResolvedVideoURL, error) {
	scope := jsdecode.NewScope()

	bootstrap, err := l.fetcher.Fetch(ctx, l.site.BootstrapScriptURL)
	if err != nil {
		return nil, err
	}
	if err := scope.Run(bootstrap); err != nil {
		return nil, errs.NewResolutionError("bootstrap script", err)
	}

	infoURL := l.InfoPageURL(id)
	doc, _, err := l.fetcher.FetchDocument(ctx, infoURL)
	if err != nil {
		return nil, err
	}

	scripts := doc.Find("body script")
	if scripts.Length() == 0 {
		return nil, errs.NewResolutionError(fmt.Sprintf("no scripts on info page %s", infoURL), nil)
	}

	first := jsdecode.StripIIFE(scriptText(scripts.First()))
	if err := scope.Run(first); err != nil {
		return nil, errs.NewResolutionError("first info page script", err)
	}

	var target string
	switch quality {
	case models.QualityHigh:
		target, err = l.resolveHigh(ctx, scope, scripts, infoURL)
	case models.QualityLow:
		target, err = l.resolveLow(scope, scripts, infoURL)
	default:
		err = fmt.Errorf("unknown quality %q", quality)
	}
	if err != nil {
		return nil, err
	}

	l.logger.DebugWithFields("Resolved video URL", map[string]interface{}{
		"video_id": string(id),
		"quality":  quality.String(),
		"url":      target,
		"skipped":  scope.Skipped(),
	})

	return &models.ResolvedVideoURL{URL: target, Quality: quality, VideoID: id}, nil
}

// resolveLow decodes the second script; the link sits in an anchor's href
func (l *Locator) resolveLow(scope *jsdecode.Scope, scripts *goquery.Selection, infoURL string) (string, error) {
	if scripts.Length() < 2 {
		return "", errs.NewResolutionError("info page has no second script", nil)
	}

	decoded, decoder, err := l.decode(scriptText(scripts.Eq(1)), scope)
	if err != nil {
		return "", err
	}
	l.logger.DebugWithFields("Decoded payload", map[string]interface{}{"decoder": decoder, "size": len(decoded)})

	m := hrefPattern.FindStringSubmatch(decoded)
	if m == nil {
		return "", errs.NewResolutionError(fmt.Sprintf("no href in %s payload", decoder), nil)
	}

	link, err := scope.EvalTemplate(m[1])
	if err != nil {
		return "", errs.NewResolutionError("evaluate href template", err)
	}
	return absolute(infoURL, link)
}

// resolveHigh decodes the last script. Its declarations (everything ahead
// of the first function) build an intermediate page URL from a src
// attribute, and that page carries the media source tag.
func (l *Locator) resolveHigh(ctx context.Context, scope *jsdecode.Scope, scripts *goquery.Selection, infoURL string) (string, error) {
	decoded, decoder, err := l.decode(scriptText(scripts.Last()), scope)
	if err != nil {
		return "", err
	}

	declarations := decoded
	if i := strings.Index(decoded, "function"); i >= 0 {
		declarations = decoded[:i]
	}
	if err := scope.Run(declarations); err != nil {
		return "", errs.NewResolutionError("high quality declarations", err)
	}

	m := srcPattern.FindStringSubmatch(decoded)
	if m == nil {
		return "", errs.NewResolutionError(fmt.Sprintf("no src in %s payload", decoder), nil)
	}

	page, err := scope.EvalTemplate(m[1])
	if err != nil {
		return "", errs.NewResolutionError("evaluate src template", err)
	}
	pageURL, err := absolute(infoURL, page)
	if err != nil {
		return "", err
	}

	doc, _, err := l.fetcher.FetchDocument(ctx, pageURL)
	if err != nil {
		return "", err
	}

	src, ok := doc.Find("source[src]").First().Attr("src")
	if !ok || strings.TrimSpace(src) == "" {
		return "", errs.NewResolutionError(fmt.Sprintf("no media source on %s", pageURL), nil)
	}
	return absolute(pageURL, strings.TrimSpace(src))
}

// decode runs the payload decoders and logs which ones were tried when none
// could handle the script
func (l *Locator) decode(script string, scope *jsdecode.Scope) (string, string, error) {
	decoded, decoder, err := jsdecode.Decode(script, scope)
	if err != nil {
		names := make([]string, 0, len(jsdecode.Decoders()))
		for _, d := range jsdecode.Decoders() {
			names = append(names, d.Name())
		}
		l.logger.WithError(err).DebugWithFields("Payload decoding failed", map[string]interface{}{
			"decoder":  decoder,
			"decoders": strings.Join(names, ","),
		})
	}
	return decoded, decoder, err
}

func scriptText(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

// absolute resolves ref against base
func absolute(base, ref string) (string, error) {
	b, err := url.Parse(base)
	if err != nil {
		return "", errs.NewResolutionError(fmt.Sprintf("invalid base URL %q", base), err)
	}
	r, err := url.Parse(strings.TrimSpace(ref))
	if err != nil {
		return "", errs.NewResolutionError(fmt.Sprintf("invalid URL %q", ref), err)
	}
	return b.ResolveReference(r).String(), nil
}
