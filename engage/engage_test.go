package engage

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sawalkaro/generator"
	"sawalkaro/review"
	"sawalkaro/scraper"
	"sawalkaro/twitter"
)

type createdTweet struct {
	Text         string `json:"text"`
	QuoteTweetID string `json:"quote_tweet_id"`
}

type fakeBackend struct {
	lookups atomic.Int32
	tweets  []createdTweet
}

func (f *fakeBackend) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasPrefix(r.URL.Path, "/users/by/username/"):
			f.lookups.Add(1)
			w.Write([]byte(`{"data": {"id": "u1", "username": "PMOIndia"}}`))
		case strings.HasSuffix(r.URL.Path, "/tweets") && r.Method == http.MethodGet:
			w.Write([]byte(`{"data": [{"id": "555", "text": "Every promise delivered."}]}`))
		case r.URL.Path == "/tweets" && r.Method == http.MethodPost:
			var req createdTweet
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			f.tweets = append(f.tweets, req)
			w.Write([]byte(`{"data":{"id":"900001"}}`))
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}
}

func newTestAgent(t *testing.T, llm generator.LLMClient) (*Agent, *fakeBackend) {
	t.Helper()
	backend := &fakeBackend{}
	srv := httptest.NewServer(backend.handler(t))
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, &slog.HandlerOptions{Level: slog.LevelError}))
	sc, err := scraper.New(scraper.Options{BearerToken: "b", BaseURL: srv.URL, Logger: logger})
	require.NoError(t, err)
	tw, err := twitter.New(twitter.Options{
		Username:      "sawalkaro",
		APIBaseURL:    srv.URL,
		UploadBaseURL: srv.URL,
		Client:        srv.Client(),
		Logger:        logger,
	})
	require.NoError(t, err)

	agent, err := New(sc, llm, tw, "PMOIndia", logger)
	require.NoError(t, err)
	return agent, backend
}

func TestProduceHuntsAndDrafts(t *testing.T) {
	t.Parallel()

	llm := &generator.MockLLM{Responses: []string{"Delivered? The waiting list says otherwise."}}
	agent, _ := newTestAgent(t, llm)

	draft, err := agent.Produce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Delivered? The waiting list says otherwise.", draft.PrimaryText)
	assert.Equal(t, "quote-tweet", draft.FormatLabel)
	assert.Equal(t, "Quote target: @PMOIndia", draft.Headline)
	assert.Equal(t, "Every promise delivered.", draft.KeyFact)
	assert.Equal(t, "https://twitter.com/PMOIndia/status/555", draft.SourceURL)
	assert.Equal(t, review.MediaNone, draft.Media.Kind)

	require.Len(t, llm.Prompts, 1)
	assert.Contains(t, llm.Prompts[0].User, "Every promise delivered.")
}

func TestRedraftKeepsHuntedTweet(t *testing.T) {
	t.Parallel()

	llm := &generator.MockLLM{Responses: []string{"First dunk.", "Second dunk."}}
	agent, backend := newTestAgent(t, llm)

	_, err := agent.Produce(context.Background())
	require.NoError(t, err)
	after := backend.lookups.Load()

	draft, err := agent.Redraft(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Second dunk.", draft.PrimaryText)
	assert.Equal(t, after, backend.lookups.Load(), "redraft never re-hunts")
}

func TestPublishQuotesHuntedTweet(t *testing.T) {
	t.Parallel()

	llm := &generator.MockLLM{Responses: []string{"The dunk."}}
	agent, backend := newTestAgent(t, llm)

	_, err := agent.Produce(context.Background())
	require.NoError(t, err)

	url, err := agent.Publish(context.Background(), "The dunk.", "")
	require.NoError(t, err)
	assert.Equal(t, "https://x.com/sawalkaro/status/900001", url)

	require.Len(t, backend.tweets, 1)
	assert.Equal(t, "The dunk.", backend.tweets[0].Text)
	assert.Equal(t, "555", backend.tweets[0].QuoteTweetID)
}

func TestPublishWithoutHuntedTarget(t *testing.T) {
	t.Parallel()

	agent, _ := newTestAgent(t, &generator.MockLLM{})
	_, err := agent.Publish(context.Background(), "text", "")
	require.Error(t, err)
}

func TestPublishThreadUsesFirstText(t *testing.T) {
	t.Parallel()

	llm := &generator.MockLLM{Responses: []string{"The dunk."}}
	agent, backend := newTestAgent(t, llm)

	_, err := agent.Produce(context.Background())
	require.NoError(t, err)

	_, err = agent.PublishThread(context.Background(), []string{"head", "tail"}, "")
	require.NoError(t, err)
	require.Len(t, backend.tweets, 1, "only the head posts")
	assert.Equal(t, "head", backend.tweets[0].Text)
}

func TestNewValidation(t *testing.T) {
	t.Parallel()

	_, err := New(nil, &generator.MockLLM{}, nil, "x", nil)
	require.Error(t, err)
}
