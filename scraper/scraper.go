// Package scraper pulls recent media-carrying tweets from a watchlist of
// independent journalists via the X API v2 (bearer token, read-only).
package scraper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultBaseURL = "https://api.twitter.com/2"

// maxVideoDuration filters out long clips that make poor post material.
const maxVideoDuration = 2 * time.Minute

// haulCap bounds the combined number of tweets returned per sweep.
const haulCap = 30

// MediaItem is one photo or video attached to a tweet.
type MediaItem struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

// Tweet is one scraped tweet that carries media.
type Tweet struct {
	ID      string         `json:"id"`
	Source  string         `json:"source"`
	URL     string         `json:"url"`
	Text    string         `json:"text"`
	Metrics map[string]int `json:"metrics,omitempty"`
	Media   []MediaItem    `json:"media"`
}

type Options struct {
	BearerToken string
	BaseURL     string
	Client      *http.Client
	Logger      *slog.Logger
}

type Client struct {
	token   string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func New(opts Options) (*Client, error) {
	if opts.BearerToken == "" {
		return nil, errors.New("scraper: bearer token is required")
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultBaseURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{token: opts.BearerToken, baseURL: opts.BaseURL, client: opts.Client, logger: opts.Logger}, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("twitter api %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type userResponse struct {
	Data struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"data"`
}

type tweetsResponse struct {
	Data []struct {
		ID          string `json:"id"`
		Text        string `json:"text"`
		Attachments struct {
			MediaKeys []string `json:"media_keys"`
		} `json:"attachments"`
		PublicMetrics map[string]int `json:"public_metrics"`
	} `json:"data"`
	Includes struct {
		Media []apiMedia `json:"media"`
	} `json:"includes"`
}

type apiMedia struct {
	MediaKey   string `json:"media_key"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	DurationMS int    `json:"duration_ms"`
	Variants   []struct {
		BitRate     int    `json:"bit_rate"`
		ContentType string `json:"content_type"`
		URL         string `json:"url"`
	} `json:"variants"`
}

func (c *Client) lookupUser(ctx context.Context, handle string) (string, error) {
	var resp userResponse
	if err := c.get(ctx, "/users/by/username/"+url.PathEscape(handle), url.Values{}, &resp); err != nil {
		return "", err
	}
	if resp.Data.ID == "" {
		return "", fmt.Errorf("user @%s not found", handle)
	}
	return resp.Data.ID, nil
}

func (c *Client) userTweets(ctx context.Context, userID string) (tweetsResponse, error) {
	q := url.Values{}
	q.Set("max_results", "5")
	q.Set("exclude", "retweets,replies")
	q.Set("tweet.fields", "created_at,public_metrics")
	q.Set("expansions", "attachments.media_keys")
	q.Set("media.fields", "url,type,variants,duration_ms")

	var resp tweetsResponse
	err := c.get(ctx, "/users/"+userID+"/tweets", q, &resp)
	return resp, err
}

// ScrapeHandle returns the handle's recent original tweets that carry
// usable media: videos over two minutes are dropped, and for videos the
// highest-bitrate mp4 variant is chosen.
func (c *Client) ScrapeHandle(ctx context.Context, handle string) ([]Tweet, error) {
	userID, err := c.lookupUser(ctx, handle)
	if err != nil {
		return nil, err
	}
	resp, err := c.userTweets(ctx, userID)
	if err != nil {
		return nil, err
	}

	mediaByKey := make(map[string]apiMedia, len(resp.Includes.Media))
	for _, m := range resp.Includes.Media {
		mediaByKey[m.MediaKey] = m
	}

	var tweets []Tweet
	for _, t := range resp.Data {
		var media []MediaItem
		for _, key := range t.Attachments.MediaKeys {
			m, ok := mediaByKey[key]
			if !ok {
				continue
			}
			if item, ok := pickMedia(m); ok {
				media = append(media, item)
			}
		}
		// Only tweets with real media are worth keeping.
		if len(media) == 0 {
			continue
		}
		tweets = append(tweets, Tweet{
			ID:      t.ID,
			Source:  handle,
			URL:     fmt.Sprintf("https://twitter.com/%s/status/%s", handle, t.ID),
			Text:    t.Text,
			Metrics: t.PublicMetrics,
			Media:   media,
		})
	}
	return tweets, nil
}

func pickMedia(m apiMedia) (MediaItem, bool) {
	if time.Duration(m.DurationMS)*time.Millisecond > maxVideoDuration {
		return MediaItem{}, false
	}
	if m.Type != "video" {
		if m.URL == "" {
			return MediaItem{}, false
		}
		return MediaItem{Type: m.Type, URL: m.URL}, true
	}

	best := ""
	bestRate := 0
	for _, v := range m.Variants {
		if v.ContentType == "video/mp4" && v.BitRate > bestRate {
			best = v.URL
			bestRate = v.BitRate
		}
	}
	if best == "" {
		return MediaItem{}, false
	}
	return MediaItem{Type: m.Type, URL: best}, true
}

// Sweep scrapes every handle concurrently (at most four in flight) and
// returns the combined haul, capped at 30 tweets. Per-handle failures are
// logged and skipped so one suspended account cannot blank the sweep.
func (c *Client) Sweep(ctx context.Context, handles []string) ([]Tweet, error) {
	var (
		mu  sync.Mutex
		all []Tweet
	)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for _, handle := range handles {
		handle := handle
		g.Go(func() error {
			tweets, err := c.ScrapeHandle(ctx, handle)
			if err != nil {
				c.logger.Warn("scrape failed, skipping handle", "handle", handle, "error", err)
				return nil
			}
			mu.Lock()
			all = append(all, tweets...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Deterministic order regardless of which goroutine finished first.
	sort.Slice(all, func(i, j int) bool {
		if all[i].Source != all[j].Source {
			return all[i].Source < all[j].Source
		}
		return all[i].ID < all[j].ID
	})
	if len(all) > haulCap {
		all = all[:haulCap]
	}
	return all, nil
}

// LatestTweet returns the handle's most recent original tweet, media or not.
// Used by the engagement agent to pick a quote target.
func (c *Client) LatestTweet(ctx context.Context, handle string) (Tweet, error) {
	userID, err := c.lookupUser(ctx, handle)
	if err != nil {
		return Tweet{}, err
	}
	resp, err := c.userTweets(ctx, userID)
	if err != nil {
		return Tweet{}, err
	}
	if len(resp.Data) == 0 {
		return Tweet{}, fmt.Errorf("@%s has not posted anything new", handle)
	}
	t := resp.Data[0]
	return Tweet{
		ID:     t.ID,
		Source: handle,
		URL:    fmt.Sprintf("https://twitter.com/%s/status/%s", handle, t.ID),
		Text:   t.Text,
	}, nil
}
