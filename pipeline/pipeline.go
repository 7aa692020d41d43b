// Package pipeline drives one produce → review → dispatch run. Regenerate
// decisions re-enter as explicit loops rather than recursion, so a reviewer
// can ask for redrafts all afternoon without growing the stack.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"sawalkaro/archive"
	"sawalkaro/review"
	"sawalkaro/store"
	"sawalkaro/telegram"
)

// Producer makes draft candidates. Produce starts from scratch; Redraft
// keeps the curated source material and re-runs only the drafting stages;
// Requote re-drafts with the quote framing instead.
type Producer interface {
	Produce(ctx context.Context) (review.Draft, error)
	Redraft(ctx context.Context) (review.Draft, error)
	Requote(ctx context.Context) (review.Draft, error)
}

// Publisher posts approved drafts and returns the public URL.
type Publisher interface {
	Publish(ctx context.Context, text, mediaPath string) (string, error)
	PublishThread(ctx context.Context, texts []string, mediaPath string) (string, error)
}

type Runner struct {
	producer  Producer
	reviewer  *review.Reviewer
	publisher Publisher
	store     store.Store
	archive   *archive.Archive
	logger    *slog.Logger
}

func NewRunner(producer Producer, reviewer *review.Reviewer, publisher Publisher, st store.Store, arch *archive.Archive, logger *slog.Logger) (*Runner, error) {
	if producer == nil || reviewer == nil || publisher == nil {
		return nil, errors.New("pipeline: producer, reviewer and publisher are required")
	}
	if st == nil {
		st = store.NewMemory()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		producer:  producer,
		reviewer:  reviewer,
		publisher: publisher,
		store:     st,
		archive:   arch,
		logger:    logger,
	}, nil
}

// Run executes one full invocation: produce a draft, put it through the
// approval gate, and dispatch the decision. RegenerateAll restarts the
// outer loop with fresh source material; RegenerateFormat and ConvertQuote
// re-draft within the inner loop and re-enter review with the new draft.
func (r *Runner) Run(ctx context.Context) error {
	logger := r.logger.With("run_id", uuid.NewString())
	logger.Info("run started")

	for {
		draft, err := r.producer.Produce(ctx)
		if err != nil {
			return fmt.Errorf("produce draft: %w", err)
		}

		for {
			r.archiveDraft(logger, draft)
			if err := r.reviewer.Present(ctx, draft); err != nil {
				return fmt.Errorf("present draft %s: %w", draft.ID, err)
			}
			result, err := r.reviewer.Await(ctx, draft.ID)
			if err != nil {
				return fmt.Errorf("await decision for draft %s: %w", draft.ID, err)
			}

			switch result.Decision {
			case review.Approve:
				return r.publish(ctx, logger, draft)

			case review.Skip:
				logger.Info("draft skipped", "draft_id", draft.ID, "timed_out", result.TimedOut)
				return nil

			case review.RegenerateAll:
				logger.Info("regenerating from scratch", "draft_id", draft.ID)
				// back to the outer loop for a fresh produce

			case review.RegenerateFormat:
				logger.Info("redrafting, same story", "draft_id", draft.ID)
				draft, err = r.producer.Redraft(ctx)
				if err != nil {
					return fmt.Errorf("redraft: %w", err)
				}
				continue

			case review.ConvertQuote:
				logger.Info("reframing as quote", "draft_id", draft.ID)
				draft, err = r.producer.Requote(ctx)
				if err != nil {
					return fmt.Errorf("requote: %w", err)
				}
				continue
			}
			break
		}
	}
}

func (r *Runner) archiveDraft(logger *slog.Logger, d review.Draft) {
	if r.archive == nil {
		return
	}
	if _, err := r.archive.SaveDraft(d); err != nil {
		// Archival is best-effort; the reviewer still sees the draft.
		logger.Warn("archiving draft failed", "draft_id", d.ID, "error", err)
	}
}

// publish posts the approved draft, reports the outcome to the reviewer,
// and records the content log. A publish failure is reported verbatim and
// ends the run without retry.
func (r *Runner) publish(ctx context.Context, logger *slog.Logger, d review.Draft) error {
	var (
		url string
		err error
	)
	if len(d.Thread) > 0 {
		url, err = r.publisher.PublishThread(ctx, d.Thread, d.Media.Path)
	} else {
		url, err = r.publisher.Publish(ctx, d.PrimaryText, d.Media.Path)
	}
	if err != nil {
		logger.Error("publish failed", "draft_id", d.ID, "error", err)
		r.reviewer.Notify(ctx, fmt.Sprintf("❌ <b>Publish Failed</b>\n<pre>%s</pre>", telegram.EscapeHTML(err.Error())))
		return fmt.Errorf("publish draft %s: %w", d.ID, err)
	}

	logger.Info("published", "draft_id", d.ID, "url", url)
	r.reviewer.Notify(ctx, "🚀 <b>Live on X!</b>\n"+url)
	r.recordLog(ctx, logger, d)
	return nil
}

func (r *Runner) recordLog(ctx context.Context, logger *slog.Logger, d review.Draft) {
	texts := d.Thread
	if len(texts) == 0 {
		texts = []string{d.PrimaryText}
	}
	encoded, err := json.Marshal(texts)
	if err != nil {
		logger.Warn("encoding thread for content log failed", "draft_id", d.ID, "error", err)
		return
	}
	entry := store.ContentLog{
		SourceURL:     d.SourceURL,
		Headline:      d.Headline,
		DraftedThread: string(encoded),
		MediaPaths:    d.Media.Path,
	}
	if err := r.store.Save(ctx, entry); err != nil && !errors.Is(err, store.ErrDuplicate) {
		logger.Warn("saving content log failed", "draft_id", d.ID, "error", err)
	}
}
