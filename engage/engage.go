// Package engage is the quote-tweet agent: it hunts a target handle's
// latest PR tweet, drafts a short dunk, and routes it through the same
// approval gate as every other post before quote-tweeting.
package engage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sawalkaro/generator"
	"sawalkaro/review"
	"sawalkaro/scraper"
	"sawalkaro/twitter"
)

// Agent implements both pipeline.Producer (drafting the dunk) and
// pipeline.Publisher (posting it as a quote of the hunted tweet), so the
// standard Runner drives the whole engagement flow.
type Agent struct {
	scraper *scraper.Client
	llm     generator.LLMClient
	twitter *twitter.Client
	target  string
	logger  *slog.Logger

	// tweet is the hunted quote target, set by Produce and used by Publish.
	tweet scraper.Tweet
}

func New(sc *scraper.Client, llm generator.LLMClient, tw *twitter.Client, target string, logger *slog.Logger) (*Agent, error) {
	if sc == nil || llm == nil || tw == nil {
		return nil, errors.New("engage: scraper, llm and twitter clients are required")
	}
	if target == "" {
		return nil, errors.New("engage: target handle is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{scraper: sc, llm: llm, twitter: tw, target: target, logger: logger}, nil
}

// Produce hunts the target's latest original tweet and drafts the dunk.
func (a *Agent) Produce(ctx context.Context) (review.Draft, error) {
	tweet, err := a.scraper.LatestTweet(ctx, a.target)
	if err != nil {
		return review.Draft{}, fmt.Errorf("hunt target @%s: %w", a.target, err)
	}
	a.tweet = tweet
	a.logger.Info("quote target found", "handle", a.target, "tweet_id", tweet.ID)
	return a.draft(ctx)
}

// Redraft regenerates the dunk against the already-hunted tweet.
func (a *Agent) Redraft(ctx context.Context) (review.Draft, error) {
	if a.tweet.ID == "" {
		return a.Produce(ctx)
	}
	return a.draft(ctx)
}

// Requote is identical to Redraft here; the dunk framing already is the
// quote framing.
func (a *Agent) Requote(ctx context.Context) (review.Draft, error) {
	return a.Redraft(ctx)
}

func (a *Agent) draft(ctx context.Context) (review.Draft, error) {
	text, err := generator.DraftQuote(ctx, a.llm, a.tweet.Text)
	if err != nil {
		return review.Draft{}, fmt.Errorf("draft dunk: %w", err)
	}
	return review.Draft{
		ID:          review.NewID(time.Now()),
		PrimaryText: text,
		Media:       review.Media{Kind: review.MediaNone},
		FormatLabel: "quote-tweet",
		Headline:    fmt.Sprintf("Quote target: @%s", a.target),
		KeyFact:     a.tweet.Text,
		SourceURL:   a.tweet.URL,
	}, nil
}

// Publish posts the approved dunk as a quote of the hunted tweet.
func (a *Agent) Publish(ctx context.Context, text, _ string) (string, error) {
	if a.tweet.ID == "" {
		return "", errors.New("engage: no quote target hunted")
	}
	return a.twitter.QuoteTweet(ctx, text, a.tweet.ID)
}

// PublishThread never applies to quote drafts; only the first text posts.
func (a *Agent) PublishThread(ctx context.Context, texts []string, _ string) (string, error) {
	if len(texts) == 0 {
		return "", errors.New("engage: nothing to publish")
	}
	return a.Publish(ctx, texts[0], "")
}
