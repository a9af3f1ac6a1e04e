package session

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"animedl/pkg/config"
	errs "animedl/pkg/errors"
	"animedl/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHTTPConfig() *config.HTTPConfig {
	cfg := config.DefaultConfig().HTTP
	cfg.RetryDelay = time.Millisecond
	cfg.RequestsPerMinute = 0
	return &cfg
}

func newTestSession(t *testing.T) (*Session, *logger.TestLogger) {
	t.Helper()
	log := logger.NewTestLogger()
	s, err := New(testHTTPConfig(), log)
	require.NoError(t, err)
	return s, log
}

func TestFetchSendsSessionHeaders(t *testing.T) {
	var gotUA, gotLang string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		gotLang = r.Header.Get("Accept-Language")
		fmt.Fprint(w, "<html>ok</html>")
	}))
	defer server.Close()

	s, _ := newTestSession(t)
	body, err := s.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "<html>ok</html>", body)
	assert.Contains(t, gotUA, "Chrome/69")
	assert.Equal(t, "en-US,en;q=0.9", gotLang)
}

func TestCookiesPersistAcrossRequests(t *testing.T) {
	var secondCookie string
	mux := http.NewServeMux()
	mux.HandleFunc("/listing", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "sid", Value: "abc", Path: "/"})
		fmt.Fprint(w, "listing")
	})
	mux.HandleFunc("/episode", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("sid"); err == nil {
			secondCookie = c.Value
		}
		fmt.Fprint(w, "episode")
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	s, _ := newTestSession(t)
	_, err := s.Fetch(context.Background(), server.URL+"/listing")
	require.NoError(t, err)
	_, err = s.Fetch(context.Background(), server.URL+"/episode")
	require.NoError(t, err)

	assert.Equal(t, "abc", secondCookie)
	assert.Len(t, s.Cookies(server.URL), 1)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, "finally")
	}))
	defer server.Close()

	s, log := newTestSession(t)
	body, err := s.Fetch(context.Background(), server.URL)

	require.NoError(t, err)
	assert.Equal(t, "finally", body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))

	var retries int
	for _, m := range log.GetMessagesByLevel("WARN") {
		if m.Message == "Retrying page fetch" {
			retries++
			assert.Equal(t, server.URL, m.Fields["url"])
		}
	}
	assert.Equal(t, 2, retries)
}

func TestFetchDoesNotRetryNotFound(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.NotFound(w, r)
	}))
	defer server.Close()

	s, log := newTestSession(t)
	_, err := s.Fetch(context.Background(), server.URL)

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeFetch))
	var fetchErr *errs.Error
	require.ErrorAs(t, err, &fetchErr)
	assert.Equal(t, http.StatusNotFound, fetchErr.Code)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.True(t, log.HasMessage("HTTP request client error"))
}

func TestFetchTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	s, _ := newTestSession(t)
	_, err := s.Fetch(context.Background(), url)

	require.Error(t, err)
	assert.True(t, errs.IsType(err, errs.ErrorTypeFetch))
}

func TestFetchDocument(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><h3 class="t">Title</h3></body></html>`)
	}))
	defer server.Close()

	s, _ := newTestSession(t)
	doc, raw, err := s.FetchDocument(context.Background(), server.URL+"/page/")

	require.NoError(t, err)
	assert.Equal(t, "Title", doc.Find("h3.t").Text())
	assert.Contains(t, raw, "<h3")
	assert.Equal(t, "/page/", doc.Url.Path)
}

func TestStreamAddsPerRequestHeaders(t *testing.T) {
	var referer, conn string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		referer = r.Header.Get("Referer")
		conn = r.Header.Get("Connection")
		fmt.Fprint(w, "video-bytes")
	}))
	defer server.Close()

	s, _ := newTestSession(t)
	resp, err := s.Stream(context.Background(), server.URL, map[string]string{
		"Referer":    "http://info.example/video/abc",
		"Connection": "keep-alive",
	})
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "video-bytes", string(data))
	assert.Equal(t, "http://info.example/video/abc", referer)
	assert.Equal(t, "keep-alive", conn)
	assert.Empty(t, s.Header("Referer"), "per-request headers stay off the session")
}

func TestStreamRejectsNon2xx(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s, _ := newTestSession(t)
	_, err := s.Stream(context.Background(), server.URL, nil)

	assert.True(t, errs.IsType(err, errs.ErrorTypeFetch))
}

func TestFetchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s, _ := newTestSession(t)
	_, err := s.Fetch(ctx, "http://127.0.0.1:1/")

	assert.ErrorIs(t, err, context.Canceled)
}
