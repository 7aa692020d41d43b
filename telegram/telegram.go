// Package telegram is a minimal Bot API client covering the four primitives
// the approval workflow needs: send text, send media, long-poll updates,
// and acknowledge button taps.
package telegram

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
	"time"
)

const defaultBaseURL = "https://api.telegram.org"

// MessageLimit is Telegram's hard cap per message; ChunkLimit is where we
// split so HTML entities and prefixes still fit.
const (
	MessageLimit = 4096
	ChunkLimit   = 4000
)

// InlineButton is one button of an inline keyboard row.
type InlineButton struct {
	Text         string `json:"text"`
	CallbackData string `json:"callback_data"`
}

// Update is one item from getUpdates. Exactly one of Message or
// CallbackQuery is set for the updates we subscribe to.
type Update struct {
	UpdateID      int64          `json:"update_id"`
	Message       *Message       `json:"message,omitempty"`
	CallbackQuery *CallbackQuery `json:"callback_query,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text,omitempty"`
}

type CallbackQuery struct {
	ID   string `json:"id"`
	From *User  `json:"from,omitempty"`
	Data string `json:"data,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description,omitempty"`
	Result      json.RawMessage `json:"result,omitempty"`
}

// Options configures a Client.
type Options struct {
	Token   string
	ChatID  string
	BaseURL string // defaults to the public Bot API; tests point it at httptest
	Client  *http.Client
	Logger  *slog.Logger
}

// Client talks to a single bot + chat pair.
type Client struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

func New(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, errors.New("telegram: bot token is required")
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
	return &Client{
		token:   opts.Token,
		chatID:  opts.ChatID,
		baseURL: opts.BaseURL,
		client:  opts.Client,
		logger:  opts.Logger,
	}, nil
}

// ChatID returns the configured recipient chat id.
func (c *Client) ChatID() string { return c.chatID }

func (c *Client) endpoint(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

func (c *Client) postJSON(ctx context.Context, method string, payload any) (json.RawMessage, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !data.OK {
		return nil, fmt.Errorf("telegram %s failed: %s", method, data.Description)
	}
	return data.Result, nil
}

type sendMessagePayload struct {
	ChatID      string `json:"chat_id"`
	Text        string `json:"text"`
	ParseMode   string `json:"parse_mode,omitempty"`
	ReplyMarkup any    `json:"reply_markup,omitempty"`
}

type messageResult struct {
	MessageID int64 `json:"message_id"`
}

// SendMessage sends an HTML-formatted text message and returns its id.
func (c *Client) SendMessage(ctx context.Context, text string) (int64, error) {
	return c.sendMessage(ctx, sendMessagePayload{
		ChatID:    c.chatID,
		Text:      text,
		ParseMode: "HTML",
	})
}

// SendKeyboard sends a text message with inline keyboard rows attached.
func (c *Client) SendKeyboard(ctx context.Context, text string, rows [][]InlineButton) (int64, error) {
	return c.sendMessage(ctx, sendMessagePayload{
		ChatID:    c.chatID,
		Text:      text,
		ParseMode: "HTML",
		ReplyMarkup: map[string]any{
			"inline_keyboard": rows,
		},
	})
}

func (c *Client) sendMessage(ctx context.Context, payload sendMessagePayload) (int64, error) {
	raw, err := c.postJSON(ctx, "sendMessage", payload)
	if err != nil {
		return 0, err
	}
	var result messageResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

// SendPhoto uploads a local image as a photo message with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, path, caption string) (int64, error) {
	return c.sendFile(ctx, "sendPhoto", "photo", path, caption)
}

// SendVideo uploads a local video file with an optional caption.
func (c *Client) SendVideo(ctx context.Context, path, caption string) (int64, error) {
	return c.sendFile(ctx, "sendVideo", "video", path, caption)
}

func (c *Client) sendFile(ctx context.Context, method, field, path, caption string) (int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("chat_id", c.chatID); err != nil {
		return 0, err
	}
	if caption != "" {
		if err := writer.WriteField("caption", caption); err != nil {
			return 0, err
		}
		if err := writer.WriteField("parse_mode", "HTML"); err != nil {
			return 0, err
		}
	}
	part, err := writer.CreateFormFile(field, filepath.Base(path))
	if err != nil {
		return 0, err
	}
	if _, err := io.Copy(part, file); err != nil {
		return 0, err
	}
	if err := writer.Close(); err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(method), &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, fmt.Errorf("telegram %s: decode response: %w", method, err)
	}
	if !data.OK {
		return 0, fmt.Errorf("telegram %s failed: %s", method, data.Description)
	}
	var result messageResult
	if err := json.Unmarshal(data.Result, &result); err != nil {
		return 0, err
	}
	return result.MessageID, nil
}

// GetUpdates long-polls for new updates past offset. An offset of zero means
// no cursor yet and is omitted from the request. Only message and
// callback_query updates are requested.
func (c *Client) GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]Update, error) {
	q := url.Values{}
	q.Set("timeout", strconv.Itoa(int(wait/time.Second)))
	q.Set("allowed_updates", `["message","callback_query"]`)
	if offset > 0 {
		q.Set("offset", strconv.FormatInt(offset, 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("getUpdates")+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var data apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("telegram getUpdates: decode response: %w", err)
	}
	if !data.OK {
		return nil, fmt.Errorf("telegram getUpdates failed: %s", data.Description)
	}
	var updates []Update
	if err := json.Unmarshal(data.Result, &updates); err != nil {
		return nil, err
	}
	return updates, nil
}

// AnswerCallback acknowledges a button tap so the reviewer's client stops
// showing the spinner. Fire-and-forget; failures only degrade responsiveness.
func (c *Client) AnswerCallback(ctx context.Context, callbackID, text string) error {
	_, err := c.postJSON(ctx, "answerCallbackQuery", map[string]any{
		"callback_query_id": callbackID,
		"text":              text,
		"show_alert":        false,
	})
	return err
}
