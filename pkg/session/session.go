package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"animedl/pkg/config"
	errs "animedl/pkg/errors"
	"animedl/pkg/logger"
	"animedl/pkg/ratelimit"
	"animedl/pkg/retry"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/publicsuffix"
)

// Session carries the cookie jar and header set shared by every HTTP call
// of one run. It is used from a single goroutine.
type Session struct {
	httpClient     *http.Client
	headers        map[string]string
	limiter        ratelimit.Limiter
	requestTimeout time.Duration
	retryConfig    *retry.Config
	logger         logger.Logger
}

// New is the single construction point for a run's Session
func New(cfg *config.HTTPConfig, log logger.Logger) (*Session, error) {
	if log == nil {
		log = logger.GetLogger()
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	s := &Session{
		// no client-wide timeout: page fetches get a per-request deadline and
		// downloads are bounded by the caller's context
		httpClient: &http.Client{Jar: jar},
		headers: map[string]string{
			"User-Agent":      cfg.UserAgent,
			"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
			"Accept-Language": "en-US,en;q=0.9",
		},
		limiter:        ratelimit.PerMinute(cfg.RequestsPerMinute),
		requestTimeout: cfg.RequestTimeout,
		logger:         log,
	}

	s.retryConfig = &retry.Config{
		MaxAttempts: cfg.RetryAttempts,
		Backoff: &retry.ExponentialBackoff{
			BaseDelay:    cfg.RetryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		RetryIf: errs.IsRetryable,
		Logger:  log,
	}

	return s, nil
}

// SetHeader sets a header sent with every request
func (s *Session) SetHeader(key, value string) {
	s.headers[key] = value
}

// Header returns the value of a session-wide header
func (s *Session) Header(key string) string {
	return s.headers[key]
}

// Cookies returns the cookies the jar would send to rawURL
func (s *Session) Cookies(rawURL string) []*http.Cookie {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	return s.httpClient.Jar.Cookies(u)
}

// Fetch returns the body of a 2xx GET response, retrying transient failures
func (s *Session) Fetch(ctx context.Context, rawURL string) (string, error) {
	cfg := *s.retryConfig
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		s.logger.WarnWithFields("Retrying page fetch", map[string]interface{}{
			"url":      rawURL,
			"attempt":  attempt,
			"delay_ms": delay.Milliseconds(),
			"error":    err.Error(),
		})
	}

	return retry.DoWithResult(ctx, func(ctx context.Context, attempt int) (string, error) {
		return s.fetchOnce(ctx, rawURL)
	}, &cfg)
}

// FetchDocument fetches a page and parses it. The raw body is returned as
// well since some lookups run over unparsed markup.
func (s *Session) FetchDocument(ctx context.Context, rawURL string) (*goquery.Document, string, error) {
	body, err := s.Fetch(ctx, rawURL)
	if err != nil {
		return nil, "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, "", errs.NewParseError(rawURL, fmt.Sprintf("invalid HTML: %v", err))
	}
	if u, err := url.Parse(rawURL); err == nil {
		doc.Url = u
	}

	return doc, body, nil
}

// Stream issues a single GET with extra per-request headers and returns the
// open response. The caller closes the body.
func (s *Session) Stream(ctx context.Context, rawURL string, extra map[string]string) (*http.Response, error) {
	resp, err := s.do(ctx, rawURL, extra)
	if err != nil {
		return nil, err
	}

	if err := checkResponseStatus(resp, rawURL); err != nil {
		resp.Body.Close()
		return nil, err
	}

	return resp, nil
}

func (s *Session) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	resp, err := s.do(ctx, rawURL, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := checkResponseStatus(resp, rawURL); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errs.NewFetchError(rawURL, 0, fmt.Errorf("failed to read body: %w", err))
	}

	return string(body), nil
}

// do waits for the limiter, applies headers and sends the request
func (s *Session) do(ctx context.Context, rawURL string, extra map[string]string) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.NewFetchError(rawURL, 0, fmt.Errorf("failed to create request: %w", err))
	}

	for key, value := range s.headers {
		req.Header.Set(key, value)
	}
	for key, value := range extra {
		req.Header.Set(key, value)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		s.logger.WithError(err).WarnWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      rawURL,
			"duration": duration,
		})
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return nil, errs.NewFetchError(rawURL, 0, err)
	}

	logger.LogRequest(s.logger, req.Method, rawURL, resp.StatusCode, duration)
	return resp, nil
}

// checkResponseStatus maps non-2xx responses to a FetchError
func checkResponseStatus(resp *http.Response, rawURL string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return errs.NewFetchError(rawURL, resp.StatusCode, nil)
}
