package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(opts Options) (*Client, *[]time.Duration) {
	c := New(opts, zap.NewNop())
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`<html><body><h1>ok</h1></body></html>`))
	}))
	defer srv.Close()

	c, slept := newTestClient(Options{Timeout: time.Second, MaxRetries: 3, BackoffFactor: 2, UserAgents: []string{"ua-1"}})
	p, err := c.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, http.StatusOK, p.Status)
	assert.Equal(t, "ok", p.Doc.Find("h1").Text())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestFetchGivesUpWithTypedError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c, slept := newTestClient(Options{Timeout: time.Second, MaxRetries: 3, BackoffFactor: 3})
	_, err := c.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, srv.URL, fe.URL)
	assert.Equal(t, 3, fe.Attempts)
	assert.Equal(t, http.StatusNotFound, fe.Status)
	assert.ErrorIs(t, err, ErrStatus)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 3 * time.Second}, *slept)
}

func TestFetchConnectionError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, _ := newTestClient(Options{Timeout: time.Second, MaxRetries: 2})
	_, err := c.Fetch(context.Background(), url)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, 2, fe.Attempts)
	assert.Zero(t, fe.Status)
}

func TestFetchStopsOnCancel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	c := New(Options{Timeout: time.Second, MaxRetries: 5}, zap.NewNop())
	c.sleep = func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	}

	_, err := c.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFetchUntilRotatesUserAgents(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		mu.Lock()
		seen = append(seen, ua)
		mu.Unlock()
		if ua == "good" {
			_, _ = w.Write([]byte(`<html><body><table><tr><td>1</td></tr></table></body></html>`))
			return
		}
		_, _ = w.Write([]byte(`<html><body><p>blocked</p></body></html>`))
	}))
	defer srv.Close()

	hasTable := func(doc *goquery.Document) bool { return doc.Find("table").Length() > 0 }

	c, _ := newTestClient(Options{Timeout: time.Second, MaxRetries: 1, UserAgents: []string{"bad", "good", "unused"}})
	p, err := c.FetchUntil(context.Background(), srv.URL, hasTable, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, p.Doc.Find("table").Length())
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"bad", "good"}, seen)
}

func TestFetchUntilReturnsLastPageWhenNoneAccepted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html><body><p>` + r.Header.Get("User-Agent") + `</p></body></html>`))
	}))
	defer srv.Close()

	c, _ := newTestClient(Options{Timeout: time.Second, MaxRetries: 1, UserAgents: []string{"a", "b"}})
	p, err := c.FetchUntil(context.Background(), srv.URL, func(*goquery.Document) bool { return false }, nil)
	require.NoError(t, err)
	assert.Equal(t, "b", strings.TrimSpace(p.Doc.Find("p").Text()))
}

func TestFetchUntilAllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c, _ := newTestClient(Options{Timeout: time.Second, MaxRetries: 1, UserAgents: []string{"a", "b"}})
	_, err := c.FetchUntil(context.Background(), srv.URL, func(*goquery.Document) bool { return true }, nil)

	var fe *Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, http.StatusForbidden, fe.Status)
}

func TestFetchUntilPacesBetweenUserAgents(t *testing.T) {
	var (
		mu     sync.Mutex
		events []string
	)
	record := func(e string) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		record("get " + r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`<html><body><p>blocked</p></body></html>`))
	}))
	defer srv.Close()

	pace := func(context.Context) error {
		record("wait")
		return nil
	}
	c, _ := newTestClient(Options{Timeout: time.Second, MaxRetries: 1, UserAgents: []string{"a", "b", "c"}})
	_, err := c.FetchUntil(context.Background(), srv.URL, func(*goquery.Document) bool { return false }, pace)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"get a", "wait", "get b", "wait", "get c"}, events)
}

func TestFetchUntilStopsWhenPacingFails(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte(`<html><body></body></html>`))
	}))
	defer srv.Close()

	c, _ := newTestClient(Options{Timeout: time.Second, MaxRetries: 1, UserAgents: []string{"a", "b"}})
	_, err := c.FetchUntil(context.Background(), srv.URL, func(*goquery.Document) bool { return false },
		func(context.Context) error { return context.Canceled })

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}
