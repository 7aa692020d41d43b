// Package twitter publishes approved drafts to X: media upload through the
// v1.1 endpoint (the only one that accepts uploads) and tweet creation
// through v2. All user-context calls are OAuth1-signed.
package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
)

const (
	defaultUploadURL = "https://upload.twitter.com/1.1"
	defaultAPIURL    = "https://api.twitter.com/2"

	// chunkSize for APPEND segments of chunked video uploads.
	chunkSize = 4 << 20
)

type Options struct {
	ConsumerKey       string
	ConsumerSecret    string
	AccessToken       string
	AccessTokenSecret string

	// Username builds the public status URL; empty falls back to the
	// anonymous /i/web/status form.
	Username string

	UploadBaseURL string
	APIBaseURL    string
	// Client overrides the OAuth1-signed client; tests inject a plain one.
	Client *http.Client
	Logger *slog.Logger
}

type Client struct {
	username  string
	uploadURL string
	apiURL    string
	client    *http.Client
	logger    *slog.Logger
}

func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		if opts.ConsumerKey == "" || opts.ConsumerSecret == "" ||
			opts.AccessToken == "" || opts.AccessTokenSecret == "" {
			return nil, errors.New("twitter: all four OAuth1 credentials are required")
		}
		config := oauth1.NewConfig(opts.ConsumerKey, opts.ConsumerSecret)
		token := oauth1.NewToken(opts.AccessToken, opts.AccessTokenSecret)
		opts.Client = config.Client(oauth1.NoContext, token)
		opts.Client.Timeout = 120 * time.Second
	}
	if opts.UploadBaseURL == "" {
		opts.UploadBaseURL = defaultUploadURL
	}
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = defaultAPIURL
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		username:  opts.Username,
		uploadURL: opts.UploadBaseURL,
		apiURL:    opts.APIBaseURL,
		client:    opts.Client,
		logger:    opts.Logger,
	}, nil
}

type mediaUploadResponse struct {
	MediaIDString  string `json:"media_id_string"`
	ProcessingInfo *struct {
		State           string `json:"state"`
		CheckAfterSecs  int    `json:"check_after_secs"`
		ProgressPercent int    `json:"progress_percent"`
		Error           *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"processing_info"`
}

// UploadMedia uploads a local photo or video and returns its media id.
// Videos go through the chunked INIT/APPEND/FINALIZE flow with processing
// status polling; photos use the simple one-shot form.
func (c *Client) UploadMedia(ctx context.Context, path string) (string, error) {
	if strings.EqualFold(filepath.Ext(path), ".mp4") {
		return c.uploadVideo(ctx, path)
	}
	return c.uploadPhoto(ctx, path)
}

func (c *Client) uploadPhoto(ctx context.Context, path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", filepath.Base(path))
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/media/upload.json", &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp mediaUploadResponse
	if err := c.doJSON(req, &resp); err != nil {
		return "", fmt.Errorf("upload photo: %w", err)
	}
	if resp.MediaIDString == "" {
		return "", errors.New("upload photo: no media id returned")
	}
	c.logger.Info("photo uploaded", "media_id", resp.MediaIDString)
	return resp.MediaIDString, nil
}

func (c *Client) uploadVideo(ctx context.Context, path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}

	mediaID, err := c.uploadCommand(ctx, url.Values{
		"command":        {"INIT"},
		"media_type":     {"video/mp4"},
		"media_category": {"tweet_video"},
		"total_bytes":    {strconv.FormatInt(info.Size(), 10)},
	})
	if err != nil {
		return "", fmt.Errorf("video INIT: %w", err)
	}

	file, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	buf := make([]byte, chunkSize)
	for segment := 0; ; segment++ {
		n, readErr := io.ReadFull(file, buf)
		if n > 0 {
			if err := c.appendSegment(ctx, mediaID, segment, buf[:n]); err != nil {
				return "", fmt.Errorf("video APPEND segment %d: %w", segment, err)
			}
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			return "", readErr
		}
	}

	if err := c.finalizeVideo(ctx, mediaID); err != nil {
		return "", err
	}
	c.logger.Info("video uploaded", "media_id", mediaID)
	return mediaID, nil
}

func (c *Client) uploadCommand(ctx context.Context, form url.Values) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/media/upload.json",
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp mediaUploadResponse
	if err := c.doJSON(req, &resp); err != nil {
		return "", err
	}
	return resp.MediaIDString, nil
}

func (c *Client) appendSegment(ctx context.Context, mediaID string, segment int, data []byte) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	_ = writer.WriteField("command", "APPEND")
	_ = writer.WriteField("media_id", mediaID)
	_ = writer.WriteField("segment_index", strconv.Itoa(segment))
	part, err := writer.CreateFormFile("media", "chunk")
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/media/upload.json", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	return nil
}

func (c *Client) finalizeVideo(ctx context.Context, mediaID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL+"/media/upload.json",
		strings.NewReader(url.Values{"command": {"FINALIZE"}, "media_id": {mediaID}}.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp mediaUploadResponse
	if err := c.doJSON(req, &resp); err != nil {
		return fmt.Errorf("video FINALIZE: %w", err)
	}

	// Async processing: poll STATUS until succeeded or failed.
	for resp.ProcessingInfo != nil {
		switch resp.ProcessingInfo.State {
		case "succeeded":
			return nil
		case "failed":
			msg := "unknown error"
			if resp.ProcessingInfo.Error != nil {
				msg = resp.ProcessingInfo.Error.Message
			}
			return fmt.Errorf("video processing failed: %s", msg)
		}

		wait := time.Duration(resp.ProcessingInfo.CheckAfterSecs) * time.Second
		if wait <= 0 {
			wait = time.Second
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}

		q := url.Values{"command": {"STATUS"}, "media_id": {mediaID}}
		statusReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.uploadURL+"/media/upload.json?"+q.Encode(), nil)
		if err != nil {
			return err
		}
		resp = mediaUploadResponse{}
		if err := c.doJSON(statusReq, &resp); err != nil {
			return fmt.Errorf("video STATUS: %w", err)
		}
	}
	return nil
}

func (c *Client) doJSON(req *http.Request, v any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, raw)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type createTweetRequest struct {
	Text  string `json:"text"`
	Media *struct {
		MediaIDs []string `json:"media_ids"`
	} `json:"media,omitempty"`
	Reply *struct {
		InReplyToTweetID string `json:"in_reply_to_tweet_id"`
	} `json:"reply,omitempty"`
	QuoteTweetID string `json:"quote_tweet_id,omitempty"`
}

type createTweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

func (c *Client) createTweet(ctx context.Context, payload createTweetRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/tweets", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp createTweetResponse
	if err := c.doJSON(req, &resp); err != nil {
		return "", fmt.Errorf("create tweet: %w", err)
	}
	if resp.Data.ID == "" {
		return "", errors.New("create tweet: no id returned")
	}
	return resp.Data.ID, nil
}

// Publish posts a single tweet, uploading the media file first when one is
// given. Returns the public status URL.
func (c *Client) Publish(ctx context.Context, text, mediaPath string) (string, error) {
	payload := createTweetRequest{Text: text}
	if mediaPath != "" {
		mediaID, err := c.UploadMedia(ctx, mediaPath)
		if err != nil {
			return "", err
		}
		payload.Media = &struct {
			MediaIDs []string `json:"media_ids"`
		}{MediaIDs: []string{mediaID}}
	}
	id, err := c.createTweet(ctx, payload)
	if err != nil {
		return "", err
	}
	return c.publicURL(id), nil
}

// PublishThread posts the texts as a chained thread, each item a reply to
// the previous; only the first item carries the attachment. Returns the
// head tweet's URL.
func (c *Client) PublishThread(ctx context.Context, texts []string, mediaPath string) (string, error) {
	if len(texts) == 0 {
		return "", errors.New("publish thread: no texts")
	}

	var mediaID string
	if mediaPath != "" {
		var err error
		mediaID, err = c.UploadMedia(ctx, mediaPath)
		if err != nil {
			return "", err
		}
	}

	var headID, prevID string
	for i, text := range texts {
		payload := createTweetRequest{Text: text}
		if i == 0 && mediaID != "" {
			payload.Media = &struct {
				MediaIDs []string `json:"media_ids"`
			}{MediaIDs: []string{mediaID}}
		}
		if prevID != "" {
			payload.Reply = &struct {
				InReplyToTweetID string `json:"in_reply_to_tweet_id"`
			}{InReplyToTweetID: prevID}
		}
		id, err := c.createTweet(ctx, payload)
		if err != nil {
			return "", fmt.Errorf("thread item %d: %w", i+1, err)
		}
		if i == 0 {
			headID = id
		}
		prevID = id
	}
	c.logger.Info("thread published", "items", len(texts), "head_id", headID)
	return c.publicURL(headID), nil
}

// QuoteTweet posts text quoting the target tweet.
func (c *Client) QuoteTweet(ctx context.Context, text, targetID string) (string, error) {
	id, err := c.createTweet(ctx, createTweetRequest{Text: text, QuoteTweetID: targetID})
	if err != nil {
		return "", err
	}
	return c.publicURL(id), nil
}

func (c *Client) publicURL(tweetID string) string {
	if c.username != "" {
		return fmt.Sprintf("https://x.com/%s/status/%s", c.username, tweetID)
	}
	return fmt.Sprintf("https://x.com/i/web/status/%s", tweetID)
}
