package review

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"sawalkaro/telegram"
)

// Messenger is the slice of the messaging backend the reviewer depends on.
// *telegram.Client satisfies it; tests script it.
type Messenger interface {
	SendMessage(ctx context.Context, text string) (int64, error)
	SendKeyboard(ctx context.Context, text string, rows [][]telegram.InlineButton) (int64, error)
	SendPhoto(ctx context.Context, path, caption string) (int64, error)
	SendVideo(ctx context.Context, path, caption string) (int64, error)
	GetUpdates(ctx context.Context, offset int64, wait time.Duration) ([]telegram.Update, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}

// Options tunes a Reviewer. Zero values fall back to the production
// defaults: 30 minute decision window, 2 second poll wait, 1 second backoff.
type Options struct {
	// ChatID is the only identity whose free-text replies count.
	ChatID   string
	Timeout  time.Duration
	PollWait time.Duration
	Backoff  time.Duration
	Logger   *slog.Logger
}

// Reviewer presents drafts to a single human reviewer and resolves their
// decision. One draft is pending at a time; a second is never presented
// until the current one resolves or times out.
type Reviewer struct {
	m        Messenger
	chatID   string
	timeout  time.Duration
	pollWait time.Duration
	backoff  time.Duration
	logger   *slog.Logger
}

func New(m Messenger, opts Options) (*Reviewer, error) {
	if m == nil {
		return nil, fmt.Errorf("review: messenger is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Minute
	}
	if opts.PollWait <= 0 {
		opts.PollWait = 2 * time.Second
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Reviewer{
		m:        m,
		chatID:   opts.ChatID,
		timeout:  opts.Timeout,
		pollWait: opts.PollWait,
		backoff:  opts.Backoff,
		logger:   opts.Logger,
	}, nil
}

// Present renders a draft into the review chat: source context, the media
// attachment if one exists, the post text in order, and the control
// keyboard. A missing or unreadable media file degrades to text-only.
func (r *Reviewer) Present(ctx context.Context, d Draft) error {
	header := "📢 <b>NEW POST DRAFT READY</b>"
	if d.Headline != "" {
		header += "\n\n📰 <b>News:</b> " + telegram.EscapeHTML(d.Headline)
	}
	if d.KeyFact != "" {
		header += "\n📊 <b>Key Fact:</b> " + telegram.EscapeHTML(d.KeyFact)
	}
	if d.FormatLabel != "" {
		header += "\n🏷 <b>Format:</b> " + telegram.EscapeHTML(d.FormatLabel)
	}
	if _, err := r.m.SendMessage(ctx, header); err != nil {
		return err
	}

	r.presentMedia(ctx, d)

	if err := r.sendChunked(ctx, "🐦 <b>Post:</b>\n\n", primaryBody(d)); err != nil {
		return err
	}
	if d.SecondaryText != "" {
		if err := r.sendChunked(ctx, "📸 <b>Instagram:</b>\n\n", d.SecondaryText); err != nil {
			return err
		}
	}

	prompt := fmt.Sprintf(
		"⏳ <b>Post Draft Ready for Review</b>\nDraft ID: <code>%s</code>\n\nChoose an action:",
		telegram.EscapeHTML(d.ID),
	)
	_, err := r.m.SendKeyboard(ctx, prompt, controlRows(d.ID))
	return err
}

// primaryBody joins a thread draft into one numbered preview; single-part
// drafts use the primary text as-is.
func primaryBody(d Draft) string {
	if len(d.Thread) == 0 {
		return d.PrimaryText
	}
	body := ""
	for i, part := range d.Thread {
		if i > 0 {
			body += "\n\n"
		}
		body += fmt.Sprintf("%d/ %s", i+1, part)
	}
	return body
}

func (r *Reviewer) presentMedia(ctx context.Context, d Draft) {
	if d.Media.Kind == MediaNone || d.Media.Kind == "" {
		return
	}
	if _, err := os.Stat(d.Media.Path); err != nil {
		r.logger.Warn("draft media missing, presenting text-only",
			"draft_id", d.ID, "path", d.Media.Path, "error", err)
		return
	}
	caption := "(Media attached to this post)"
	var err error
	switch d.Media.Kind {
	case MediaPhoto:
		_, err = r.m.SendPhoto(ctx, d.Media.Path, caption)
	case MediaVideo:
		_, err = r.m.SendVideo(ctx, d.Media.Path, caption)
	}
	if err != nil {
		r.logger.Warn("sending draft media failed, presenting text-only",
			"draft_id", d.ID, "error", err)
	}
}

// sendChunked escapes the body and sends it as ordered chunks under the
// channel limit, the prefix only on the first chunk.
func (r *Reviewer) sendChunked(ctx context.Context, prefix, body string) error {
	chunks := telegram.SplitText(telegram.EscapeHTML(body), telegram.ChunkLimit-len(prefix))
	for i, chunk := range chunks {
		text := chunk
		if i == 0 {
			text = prefix + chunk
		}
		if _, err := r.m.SendMessage(ctx, text); err != nil {
			return err
		}
	}
	return nil
}

func controlRows(draftID string) [][]telegram.InlineButton {
	return [][]telegram.InlineButton{
		{
			{Text: "✅ Approve", CallbackData: EncodePayload(Approve, draftID)},
			{Text: "🔄 Regenerate", CallbackData: EncodePayload(RegenerateAll, draftID)},
			{Text: "⏭️ Skip", CallbackData: EncodePayload(Skip, draftID)},
		},
		{
			{Text: "🎨 Redraft", CallbackData: EncodePayload(RegenerateFormat, draftID)},
			{Text: "💬 Quote", CallbackData: EncodePayload(ConvertQuote, draftID)},
		},
	}
}

// Await polls for the reviewer's decision on draftID. The update cursor
// lives only for this invocation: it starts empty, advances past every
// observed update, and is never rewound, so each update is consumed at most
// once even across request retries. Transient poll errors back off and
// retry within the wall-clock timeout. If the timeout elapses the reviewer
// is notified and the timed-out Skip result is returned.
func (r *Reviewer) Await(ctx context.Context, draftID string) (Result, error) {
	deadline := time.Now().Add(r.timeout)
	var offset int64

	for time.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}

		updates, err := r.m.GetUpdates(ctx, offset, r.pollWait)
		if err != nil {
			r.logger.Debug("poll failed, retrying", "draft_id", draftID, "error", err)
			select {
			case <-ctx.Done():
				return Result{}, ctx.Err()
			case <-time.After(r.backoff):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			if decision, ok := r.classify(ctx, u, draftID); ok {
				r.confirm(ctx, decision)
				r.logger.Info("decision received", "draft_id", draftID, "decision", decision.String())
				return Result{Decision: decision}, nil
			}
		}
	}

	r.logger.Info("decision timed out", "draft_id", draftID, "timeout", r.timeout)
	notice := fmt.Sprintf("⏰ No response received in %d min. Skipping this post.", int(r.timeout.Minutes()))
	if _, err := r.m.SendMessage(ctx, notice); err != nil {
		r.logger.Warn("sending timeout notice failed", "error", err)
	}
	return Result{Decision: Skip, TimedOut: true}, nil
}

// classify maps one update to a decision, or reports that it should be
// ignored. Button taps are acknowledged immediately on acceptance.
func (r *Reviewer) classify(ctx context.Context, u telegram.Update, draftID string) (Decision, bool) {
	if cb := u.CallbackQuery; cb != nil {
		decision, id, ok := ParsePayload(cb.Data)
		if !ok || id != draftID {
			// Stale tap from a previous draft, or garbage. Ignore silently.
			r.logger.Debug("ignoring callback", "data", cb.Data, "want_draft_id", draftID)
			return 0, false
		}
		if err := r.m.AnswerCallback(ctx, cb.ID, ackText(decision)); err != nil {
			r.logger.Warn("callback ack failed", "error", err)
		}
		return decision, true
	}

	if msg := u.Message; msg != nil {
		if strconv.FormatInt(msg.Chat.ID, 10) != r.chatID {
			return 0, false
		}
		decision, ok := ParseKeyword(msg.Text)
		if !ok {
			return 0, false
		}
		return decision, true
	}

	return 0, false
}

func (r *Reviewer) confirm(ctx context.Context, d Decision) {
	if _, err := r.m.SendMessage(ctx, confirmText(d)); err != nil {
		r.logger.Warn("sending confirmation failed", "decision", d.String(), "error", err)
	}
}

// Notify relays a status line to the reviewer, escaping nothing; callers
// pass pre-formatted HTML.
func (r *Reviewer) Notify(ctx context.Context, text string) {
	if _, err := r.m.SendMessage(ctx, text); err != nil {
		r.logger.Warn("notify failed", "error", err)
	}
}
