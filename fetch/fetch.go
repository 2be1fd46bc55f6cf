// Package fetch downloads listing and race pages with bounded retries and
// exponential backoff.
package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// ErrStatus is wrapped by Error when the server answered with a non-2xx status.
var ErrStatus = errors.New("unexpected status")

// Error is returned once every attempt for a URL has failed.
type Error struct {
	URL      string
	Attempts int
	// Status is the last HTTP status seen, zero when no response arrived.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: %d attempts, last status %d: %v", e.URL, e.Attempts, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch %s: %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Page is a fetched and parsed HTML page.
type Page struct {
	URL    string
	Status int
	Body   []byte
	Doc    *goquery.Document
}

// Options configures a Client.
type Options struct {
	Timeout       time.Duration
	MaxRetries    int
	BackoffFactor float64
	// UserAgents are tried in order by FetchUntil. Fetch uses the first.
	UserAgents []string
}

// Client fetches pages over HTTP.
type Client struct {
	http  *resty.Client
	opts  Options
	log   *zap.Logger
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Client. Missing options fall back to one attempt, a factor of
// 2 and resty's default user agent.
func New(opts Options, log *zap.Logger) *Client {
	if opts.MaxRetries < 1 {
		opts.MaxRetries = 1
	}
	if opts.BackoffFactor <= 0 {
		opts.BackoffFactor = 2
	}
	h := resty.New().
		SetTimeout(opts.Timeout).
		SetLogger(log.Sugar()).
		SetHeader("Accept", "text/html,application/xhtml+xml").
		SetHeader("Accept-Language", "fr-FR,fr;q=0.9,en;q=0.5")
	return &Client{http: h, opts: opts, log: log, sleep: sleepCtx}
}

// Fetch gets url with the first configured user agent.
func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	ua := ""
	if len(c.opts.UserAgents) > 0 {
		ua = c.opts.UserAgents[0]
	}
	return c.fetchAs(ctx, url, ua)
}

// FetchUntil tries every user agent in turn against url and returns the
// first page accept approves. When pages arrived but none was accepted the
// last one is returned; when every user agent failed the last error is.
// pace, when set, is waited on before every user agent after the first.
func (c *Client) FetchUntil(ctx context.Context, url string, accept func(*goquery.Document) bool, pace func(context.Context) error) (*Page, error) {
	agents := c.opts.UserAgents
	if len(agents) == 0 {
		agents = []string{""}
	}

	var (
		last    *Page
		lastErr error
	)
	for i, ua := range agents {
		if i > 0 && pace != nil {
			if err := pace(ctx); err != nil {
				return nil, &Error{URL: url, Attempts: i, Err: err}
			}
		}
		p, err := c.fetchAs(ctx, url, ua)
		if err != nil {
			if ctx.Err() != nil {
				return nil, err
			}
			lastErr = err
			continue
		}
		if accept(p.Doc) {
			return p, nil
		}
		c.log.Debug("page rejected, trying next user agent", zap.String("url", url), zap.Int("agent", i))
		last = p
	}
	if last != nil {
		return last, nil
	}
	return nil, lastErr
}

func (c *Client) fetchAs(ctx context.Context, url, ua string) (*Page, error) {
	var (
		lastErr    error
		lastStatus int
	)
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		req := c.http.R().SetContext(ctx)
		if ua != "" {
			req.SetHeader("User-Agent", ua)
		}
		resp, err := req.Get(url)
		switch {
		case err != nil:
			lastErr, lastStatus = err, 0
		case resp.IsSuccess():
			return parse(url, resp.StatusCode(), resp.Body())
		default:
			lastErr, lastStatus = ErrStatus, resp.StatusCode()
		}

		c.log.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt+1),
			zap.Int("status", lastStatus),
			zap.Error(lastErr),
		)
		if ctx.Err() != nil {
			return nil, &Error{URL: url, Attempts: attempt + 1, Status: lastStatus, Err: ctx.Err()}
		}
		if attempt < c.opts.MaxRetries-1 {
			if err := c.sleep(ctx, c.backoff(attempt)); err != nil {
				return nil, &Error{URL: url, Attempts: attempt + 1, Status: lastStatus, Err: err}
			}
		}
	}
	return nil, &Error{URL: url, Attempts: c.opts.MaxRetries, Status: lastStatus, Err: lastErr}
}

// backoff is factor^attempt seconds.
func (c *Client) backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(c.opts.BackoffFactor, float64(attempt)) * float64(time.Second))
}

func parse(url string, status int, body []byte) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, &Error{URL: url, Attempts: 1, Status: status, Err: fmt.Errorf("parse html: %w", err)}
	}
	return &Page{URL: url, Status: status, Body: body, Doc: doc}, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
