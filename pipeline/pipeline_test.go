package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sawalkaro/review"
	"sawalkaro/store"
	"sawalkaro/telegram"
)

// deciderMessenger plays the reviewer: each time a control keyboard shows
// up it taps the button for the next scripted decision on that draft.
type deciderMessenger struct {
	mu        sync.Mutex
	decisions []review.Decision
	draftID   string
	updateID  int64
	sent      []string
}

func (m *deciderMessenger) SendMessage(_ context.Context, text string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	return 1, nil
}

func (m *deciderMessenger) SendKeyboard(_ context.Context, text string, rows [][]telegram.InlineButton) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, text)
	m.draftID = strings.TrimPrefix(rows[0][0].CallbackData, "approve_")
	return 1, nil
}

func (m *deciderMessenger) SendPhoto(_ context.Context, _, _ string) (int64, error) { return 1, nil }
func (m *deciderMessenger) SendVideo(_ context.Context, _, _ string) (int64, error) { return 1, nil }

func (m *deciderMessenger) GetUpdates(_ context.Context, _ int64, _ time.Duration) ([]telegram.Update, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.decisions) == 0 {
		return nil, nil
	}
	decision := m.decisions[0]
	m.decisions = m.decisions[1:]
	m.updateID++
	return []telegram.Update{{
		UpdateID: m.updateID,
		CallbackQuery: &telegram.CallbackQuery{
			ID:   fmt.Sprintf("cb%d", m.updateID),
			Data: review.EncodePayload(decision, m.draftID),
		},
	}}, nil
}

func (m *deciderMessenger) AnswerCallback(_ context.Context, _, _ string) error { return nil }

func (m *deciderMessenger) sentContaining(substr string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sent {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

type fakeProducer struct {
	produced  int
	redrafted int
	requoted  int
	thread    []string
	media     review.Media
}

func (p *fakeProducer) draft(kind string, n int) review.Draft {
	return review.Draft{
		ID:          fmt.Sprintf("%s%d", kind, n),
		PrimaryText: fmt.Sprintf("%s draft %d", kind, n),
		Thread:      p.thread,
		Media:       p.media,
		Headline:    "Ministry misses target",
		SourceURL:   "https://example.com/story",
	}
}

func (p *fakeProducer) Produce(context.Context) (review.Draft, error) {
	p.produced++
	return p.draft("fresh", p.produced), nil
}

func (p *fakeProducer) Redraft(context.Context) (review.Draft, error) {
	p.redrafted++
	return p.draft("redraft", p.redrafted), nil
}

func (p *fakeProducer) Requote(context.Context) (review.Draft, error) {
	p.requoted++
	return p.draft("quote", p.requoted), nil
}

type publishCall struct {
	text  string
	texts []string
	media string
}

type fakePublisher struct {
	calls []publishCall
	err   error
}

func (f *fakePublisher) Publish(_ context.Context, text, mediaPath string) (string, error) {
	f.calls = append(f.calls, publishCall{text: text, media: mediaPath})
	if f.err != nil {
		return "", f.err
	}
	return "https://x.com/acct/status/1", nil
}

func (f *fakePublisher) PublishThread(_ context.Context, texts []string, mediaPath string) (string, error) {
	f.calls = append(f.calls, publishCall{texts: texts, media: mediaPath})
	if f.err != nil {
		return "", f.err
	}
	return "https://x.com/acct/status/1", nil
}

func newTestRunner(t *testing.T, producer *fakeProducer, publisher *fakePublisher, m *deciderMessenger, st store.Store) *Runner {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, &slog.HandlerOptions{Level: slog.LevelError}))
	rev, err := review.New(m, review.Options{
		ChatID:   "777",
		Timeout:  2 * time.Second,
		PollWait: time.Millisecond,
		Backoff:  time.Millisecond,
		Logger:   logger,
	})
	require.NoError(t, err)
	runner, err := NewRunner(producer, rev, publisher, st, nil, logger)
	require.NoError(t, err)
	return runner
}

func TestRunApprovePublishesAndLogs(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{media: review.Media{Kind: review.MediaPhoto, Path: "/tmp/img.jpg"}}
	publisher := &fakePublisher{}
	m := &deciderMessenger{decisions: []review.Decision{review.Approve}}
	st := store.NewMemory()

	require.NoError(t, newTestRunner(t, producer, publisher, m, st).Run(context.Background()))

	require.Len(t, publisher.calls, 1)
	assert.Equal(t, "fresh draft 1", publisher.calls[0].text)
	assert.Equal(t, "/tmp/img.jpg", publisher.calls[0].media)
	assert.True(t, m.sentContaining("Live on X"))

	logs, err := st.Recent(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "https://example.com/story", logs[0].SourceURL)
	assert.Contains(t, logs[0].DraftedThread, "fresh draft 1")
}

func TestRunApproveThread(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{thread: []string{"part one", "part two", "part three"}}
	publisher := &fakePublisher{}
	m := &deciderMessenger{decisions: []review.Decision{review.Approve}}

	require.NoError(t, newTestRunner(t, producer, publisher, m, store.NewMemory()).Run(context.Background()))

	require.Len(t, publisher.calls, 1)
	assert.Equal(t, []string{"part one", "part two", "part three"}, publisher.calls[0].texts)
}

func TestRunSkipEndsWithoutPublishing(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{}
	publisher := &fakePublisher{}
	m := &deciderMessenger{decisions: []review.Decision{review.Skip}}

	require.NoError(t, newTestRunner(t, producer, publisher, m, store.NewMemory()).Run(context.Background()))

	assert.Empty(t, publisher.calls)
	assert.Equal(t, 1, producer.produced)
}

func TestRunRegenerateAllProducesFresh(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{}
	publisher := &fakePublisher{}
	m := &deciderMessenger{decisions: []review.Decision{review.RegenerateAll, review.Approve}}

	require.NoError(t, newTestRunner(t, producer, publisher, m, store.NewMemory()).Run(context.Background()))

	assert.Equal(t, 2, producer.produced)
	assert.Equal(t, 0, producer.redrafted)
	require.Len(t, publisher.calls, 1)
	assert.Equal(t, "fresh draft 2", publisher.calls[0].text)
}

func TestRunRegenerateFormatKeepsStory(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{}
	publisher := &fakePublisher{}
	m := &deciderMessenger{decisions: []review.Decision{review.RegenerateFormat, review.Approve}}

	require.NoError(t, newTestRunner(t, producer, publisher, m, store.NewMemory()).Run(context.Background()))

	assert.Equal(t, 1, producer.produced)
	assert.Equal(t, 1, producer.redrafted)
	require.Len(t, publisher.calls, 1)
	assert.Equal(t, "redraft draft 1", publisher.calls[0].text)
}

func TestRunConvertQuoteReframes(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{}
	publisher := &fakePublisher{}
	m := &deciderMessenger{decisions: []review.Decision{review.ConvertQuote, review.Approve}}

	require.NoError(t, newTestRunner(t, producer, publisher, m, store.NewMemory()).Run(context.Background()))

	assert.Equal(t, 1, producer.produced)
	assert.Equal(t, 1, producer.requoted)
	require.Len(t, publisher.calls, 1)
	assert.Equal(t, "quote draft 1", publisher.calls[0].text)
}

func TestRunPublishFailureNotifiesReviewer(t *testing.T) {
	t.Parallel()

	producer := &fakeProducer{}
	publisher := &fakePublisher{err: errors.New("403 <forbidden>")}
	m := &deciderMessenger{decisions: []review.Decision{review.Approve}}
	st := store.NewMemory()

	err := newTestRunner(t, producer, publisher, m, st).Run(context.Background())
	require.Error(t, err)
	assert.True(t, m.sentContaining("Publish Failed"))
	assert.True(t, m.sentContaining("403 &lt;forbidden&gt;"), "error text escaped for HTML mode")

	logs, lerr := st.Recent(context.Background(), 1)
	require.NoError(t, lerr)
	assert.Empty(t, logs, "failed publish is not logged as content")
}

func TestRunDuplicateContentLogIsNotAnError(t *testing.T) {
	t.Parallel()

	st := store.NewMemory()
	require.NoError(t, st.Save(context.Background(), store.ContentLog{SourceURL: "https://example.com/story"}))

	producer := &fakeProducer{}
	publisher := &fakePublisher{}
	m := &deciderMessenger{decisions: []review.Decision{review.Approve}}

	require.NoError(t, newTestRunner(t, producer, publisher, m, st).Run(context.Background()))
	require.Len(t, publisher.calls, 1)
}
