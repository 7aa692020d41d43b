// Package forensics finds supporting media and quick verification context
// for a story through DuckDuckGo, which needs no API key.
package forensics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	defaultSearchURL = "https://duckduckgo.com"
	defaultHTMLURL   = "https://html.duckduckgo.com"
	userAgent        = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// vqd is an anti-bot token embedded in the search page; the image endpoint
// refuses requests without it.
var vqdRe = regexp.MustCompile(`vqd=['"]?([\d-]+)['"]?`)

type Options struct {
	OutputDir string
	SearchURL string
	HTMLURL   string
	Client    *http.Client
	Logger    *slog.Logger
}

type Client struct {
	outputDir string
	searchURL string
	htmlURL   string
	client    *http.Client
	logger    *slog.Logger
}

func New(opts Options) (*Client, error) {
	if opts.OutputDir == "" {
		return nil, errors.New("forensics: output dir is required")
	}
	if opts.SearchURL == "" {
		opts.SearchURL = defaultSearchURL
	}
	if opts.HTMLURL == "" {
		opts.HTMLURL = defaultHTMLURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		outputDir: opts.OutputDir,
		searchURL: opts.SearchURL,
		htmlURL:   opts.HTMLURL,
		client:    opts.Client,
		logger:    opts.Logger,
	}, nil
}

func (c *Client) get(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("forensics: %s returned status %d", rawURL, resp.StatusCode)
	}
	return resp, nil
}

func (c *Client) fetchVQD(ctx context.Context, query string) (string, error) {
	resp, err := c.get(ctx, c.searchURL+"/?q="+url.QueryEscape(query)+"&iax=images&ia=images")
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}
	m := vqdRe.FindSubmatch(body)
	if m == nil {
		return "", errors.New("forensics: vqd token not found in search page")
	}
	return string(m[1]), nil
}

type imageResults struct {
	Results []struct {
		Image string `json:"image"`
		Title string `json:"title"`
	} `json:"results"`
}

// FindImage searches for the query and downloads the first image hit into
// the output dir. Returns the local file path.
func (c *Client) FindImage(ctx context.Context, query string) (string, error) {
	vqd, err := c.fetchVQD(ctx, query)
	if err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("l", "us-en")
	q.Set("o", "json")
	q.Set("q", query)
	q.Set("vqd", vqd)
	resp, err := c.get(ctx, c.searchURL+"/i.js?"+q.Encode())
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var results imageResults
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return "", fmt.Errorf("forensics: decode image results: %w", err)
	}
	if len(results.Results) == 0 || results.Results[0].Image == "" {
		return "", errors.New("forensics: no images found")
	}

	return c.download(ctx, results.Results[0].Image)
}

func (c *Client) download(ctx context.Context, imgURL string) (string, error) {
	resp, err := c.get(ctx, imgURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(c.outputDir, fmt.Sprintf("forensic_media_%s.jpg", time.Now().Format("20060102_150405")))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return "", err
	}
	c.logger.Info("forensic media downloaded", "path", path, "url", imgURL)
	return path, nil
}

// VerifyFact searches the live web for the headline and returns the top
// results as "- title: snippet" lines for the researcher to weigh.
func (c *Client) VerifyFact(ctx context.Context, headline string) (string, error) {
	resp, err := c.get(ctx, c.htmlURL+"/html/?q="+url.QueryEscape(headline+" news"))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	var lines []string
	doc.Find(".result").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		title := strings.TrimSpace(s.Find(".result__title").Text())
		snippet := strings.TrimSpace(s.Find(".result__snippet").Text())
		if title != "" {
			lines = append(lines, fmt.Sprintf("- %s: %s", title, snippet))
		}
		return len(lines) < 2
	})
	if len(lines) == 0 {
		return "", errors.New("forensics: no search results for headline")
	}
	return strings.Join(lines, "\n"), nil
}
