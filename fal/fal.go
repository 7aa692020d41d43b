// Package fal generates editorial cartoon images through Fal's queue API
// for the flux-pro model: submit, poll status, fetch result, download.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

const (
	defaultQueueURL = "https://queue.fal.run"
	modelPath       = "fal-ai/flux-pro/v1.1"
)

type Options struct {
	APIKey    string
	OutputDir string
	QueueURL  string
	Client    *http.Client
	Logger    *slog.Logger

	// PollInterval between queue status checks; defaults to 2s.
	PollInterval time.Duration
	// PollBudget caps how long we wait for the render; defaults to 3m.
	PollBudget time.Duration
}

type Client struct {
	apiKey       string
	outputDir    string
	queueURL     string
	client       *http.Client
	logger       *slog.Logger
	pollInterval time.Duration
	pollBudget   time.Duration
}

func New(opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, errors.New("fal: api key is required")
	}
	if opts.OutputDir == "" {
		return nil, errors.New("fal: output dir is required")
	}
	if opts.QueueURL == "" {
		opts.QueueURL = defaultQueueURL
	}
	if opts.Client == nil {
		opts.Client = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.PollBudget <= 0 {
		opts.PollBudget = 3 * time.Minute
	}
	return &Client{
		apiKey:       opts.APIKey,
		outputDir:    opts.OutputDir,
		queueURL:     opts.QueueURL,
		client:       opts.Client,
		logger:       opts.Logger,
		pollInterval: opts.PollInterval,
		pollBudget:   opts.PollBudget,
	}, nil
}

func (c *Client) do(ctx context.Context, method, url string, payload, v any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Key "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("fal: %s %s returned %d: %s", method, url, resp.StatusCode, raw)
	}
	if v == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url"`
	ResponseURL string `json:"response_url"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type resultResponse struct {
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
}

// Generate submits the prompt, waits for the queue to complete, and
// downloads the rendered square image into the output dir. Returns the
// local file path.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	var submitted submitResponse
	err := c.do(ctx, http.MethodPost, c.queueURL+"/"+modelPath, map[string]any{
		"prompt":     prompt,
		"image_size": "square_hd",
	}, &submitted)
	if err != nil {
		return "", err
	}
	if submitted.StatusURL == "" || submitted.ResponseURL == "" {
		return "", errors.New("fal: queue submit returned no status/response urls")
	}
	c.logger.Info("image render queued", "request_id", submitted.RequestID)

	deadline := time.Now().Add(c.pollBudget)
	for {
		var status statusResponse
		if err := c.do(ctx, http.MethodGet, submitted.StatusURL, nil, &status); err != nil {
			return "", err
		}
		if status.Status == "COMPLETED" {
			break
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("fal: render %s still %s after %s", submitted.RequestID, status.Status, c.pollBudget)
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}

	var result resultResponse
	if err := c.do(ctx, http.MethodGet, submitted.ResponseURL, nil, &result); err != nil {
		return "", err
	}
	if len(result.Images) == 0 || result.Images[0].URL == "" {
		return "", errors.New("fal: render completed with no images")
	}
	return c.download(ctx, result.Images[0].URL)
}

func (c *Client) download(ctx context.Context, imgURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imgURL, nil)
	if err != nil {
		return "", err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fal: image download returned %d", resp.StatusCode)
	}

	if err := os.MkdirAll(c.outputDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(c.outputDir, fmt.Sprintf("post_image_%s.jpg", time.Now().Format("20060102_150405")))
	out, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(path)
		return "", err
	}
	c.logger.Info("image saved", "path", path)
	return path, nil
}
