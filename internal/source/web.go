// Package source fetches channel postings and photos from the public web
// preview, the only surface the channels expose without credentials.
package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kyiv-estate/rentscout/internal/model"
	"github.com/kyiv-estate/rentscout/internal/retry"
)

const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Options configures the web preview source.
type Options struct {
	BaseURL        string  // preview host, default https://t.me
	MaxPages       int     // how many list pages to walk back per fetch
	RequestsPerSec float64 // shared budget for page and photo requests
	Timeout        time.Duration
}

// Web scrapes the /s/<channel> preview pages. One Web instance holds the
// rate budget for all channels it serves.
type Web struct {
	opts    Options
	limiter *rate.Limiter
	client  *http.Client
	retry   retry.Policy
}

// NewWeb creates a Web source.
func NewWeb(opts Options) *Web {
	if opts.BaseURL == "" {
		opts.BaseURL = "https://t.me"
	}
	opts.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	if opts.MaxPages <= 0 {
		opts.MaxPages = 5
	}
	if opts.RequestsPerSec <= 0 {
		opts.RequestsPerSec = 1
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	p := retry.Default()
	p.OnRetry = retry.Logged("source", "fetch")
	return &Web{
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSec), 1),
		client:  &http.Client{Timeout: opts.Timeout},
		retry:   p,
	}
}

func (w *Web) newCollector() *colly.Collector {
	c := colly.NewCollector(
		colly.UserAgent(defaultUserAgent),
		colly.MaxDepth(1),
		colly.AllowURLRevisit(), // a retried page is the same URL
	)
	c.SetRequestTimeout(w.opts.Timeout)
	return c
}

// Messages walks the channel preview back in time and returns postings with
// id > sinceID, ascending by id. The walk stops at sinceID or after MaxPages
// pages, whichever comes first.
func (w *Web) Messages(ctx context.Context, channel string, sinceID int) ([]model.Posting, error) {
	var (
		postings []model.Posting
		pageErr  error
		seenIDs  = make(map[int]bool)
	)

	c := w.newCollector()
	c.OnHTML(".tgme_widget_message", func(e *colly.HTMLElement) {
		p, err := parseMessage(channel, e)
		if err != nil {
			zap.L().Debug("source: skip message", zap.String("channel", channel), zap.Error(err))
			return
		}
		if seenIDs[p.ID] {
			return // pages overlap at the boundary
		}
		seenIDs[p.ID] = true
		postings = append(postings, p)
	})
	c.OnError(func(r *colly.Response, err error) {
		if r.StatusCode > 0 {
			err = &retry.HTTPError{Status: r.StatusCode, URL: r.Request.URL.String()}
		}
		pageErr = eris.Wrapf(err, "source: fetch %s", r.Request.URL)
	})

	before := 0
	for page := 0; page < w.opts.MaxPages; page++ {
		url := fmt.Sprintf("%s/s/%s", w.opts.BaseURL, channel)
		if before > 0 {
			url += "?before=" + strconv.Itoa(before)
		}
		seen := len(postings)
		visit := func(ctx context.Context) error {
			if err := w.limiter.Wait(ctx); err != nil {
				return eris.Wrap(err, "source: rate wait")
			}
			pageErr = nil
			if err := c.Visit(url); err != nil {
				return eris.Wrapf(err, "source: visit %s", url)
			}
			c.Wait()
			return pageErr
		}
		if err := retry.Do(ctx, w.retry, visit); err != nil {
			return nil, err
		}
		if len(postings) == seen {
			break // channel start reached
		}

		oldest := postings[seen].ID
		for _, p := range postings[seen:] {
			if p.ID < oldest {
				oldest = p.ID
			}
		}
		if oldest <= sinceID+1 {
			break
		}
		before = oldest
	}

	kept := postings[:0]
	for _, p := range postings {
		if p.ID > sinceID {
			kept = append(kept, p)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].ID < kept[j].ID })

	zap.L().Debug("source: fetched messages",
		zap.String("channel", channel), zap.Int("since", sinceID), zap.Int("count", len(kept)))
	return kept, nil
}

// parseMessage turns one preview widget into a posting. Messages without a
// text body (pure photo posts, service messages) are skipped.
func parseMessage(channel string, e *colly.HTMLElement) (model.Posting, error) {
	post := e.Attr("data-post")
	idx := strings.LastIndexByte(post, '/')
	if idx < 0 {
		return model.Posting{}, eris.Errorf("source: malformed data-post %q", post)
	}
	id, err := strconv.Atoi(post[idx+1:])
	if err != nil {
		return model.Posting{}, eris.Wrapf(err, "source: posting id in %q", post)
	}

	body := e.DOM.Find(".tgme_widget_message_text").First()
	if body.Length() == 0 || len(body.Nodes) == 0 {
		return model.Posting{}, eris.Errorf("source: posting %d has no text", id)
	}

	text, spans := flattenRichText(body.Nodes[0])
	return model.Posting{Channel: channel, ID: id, Text: text, Spans: spans}, nil
}

// GroupPhotos fetches up to max photos attached to the posting, resolving
// the whole media group through the posting's embed page.
func (w *Web) GroupPhotos(ctx context.Context, channel string, postingID, max int) ([][]byte, error) {
	url := fmt.Sprintf("%s/%s/%d?embed=1&mode=tme", w.opts.BaseURL, channel, postingID)
	page, err := w.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	urls, err := photoURLs(page, max)
	if err != nil {
		return nil, err
	}

	photos := make([][]byte, 0, len(urls))
	for _, photoURL := range urls {
		data, err := w.fetch(ctx, photoURL)
		if err != nil {
			zap.L().Warn("source: photo download failed",
				zap.String("url", photoURL), zap.Error(err))
			continue
		}
		photos = append(photos, data)
	}
	return photos, nil
}

// fetch is a rate-limited, retried get.
func (w *Web) fetch(ctx context.Context, url string) ([]byte, error) {
	return retry.DoVal(ctx, w.retry, func(ctx context.Context) ([]byte, error) {
		if err := w.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "source: rate wait")
		}
		return w.get(ctx, url)
	})
}

func (w *Web) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "source: build request %s", url)
	}
	req.Header.Set("User-Agent", defaultUserAgent)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "source: get %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Wrap(&retry.HTTPError{Status: resp.StatusCode, URL: url}, "source: get")
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read %s", url)
	}
	return data, nil
}
