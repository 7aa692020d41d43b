// Package flash is the single-shot draft producer: one Perplexity top
// story, one drafted post bundle, one generated cartoon. The crew producer
// is the heavier, multi-stage alternative.
package flash

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"sawalkaro/fal"
	"sawalkaro/generator"
	"sawalkaro/research"
	"sawalkaro/review"
)

type Producer struct {
	research *research.Client
	llm      generator.LLMClient
	images   *fal.Client
	logger   *slog.Logger

	// brief is the last fetched story, kept so Redraft and Requote can
	// reuse it without another news fetch.
	brief    research.NewsBrief
	hasBrief bool
}

func New(res *research.Client, llm generator.LLMClient, images *fal.Client, logger *slog.Logger) (*Producer, error) {
	if res == nil || llm == nil {
		return nil, errors.New("flash: research client and llm are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Producer{research: res, llm: llm, images: images, logger: logger}, nil
}

// Produce fetches a fresh top story and drafts a post for it.
func (p *Producer) Produce(ctx context.Context) (review.Draft, error) {
	brief, err := p.research.TopStory(ctx)
	if err != nil {
		return review.Draft{}, err
	}
	p.brief = brief
	p.hasBrief = true
	return p.draft(ctx)
}

// Redraft re-runs only the drafting and image stages against the story
// already fetched.
func (p *Producer) Redraft(ctx context.Context) (review.Draft, error) {
	if !p.hasBrief {
		return p.Produce(ctx)
	}
	return p.draft(ctx)
}

// Requote reframes the kept story as a short quote-style dunk, no image.
func (p *Producer) Requote(ctx context.Context) (review.Draft, error) {
	if !p.hasBrief {
		brief, err := p.research.TopStory(ctx)
		if err != nil {
			return review.Draft{}, err
		}
		p.brief = brief
		p.hasBrief = true
	}
	text, err := generator.DraftQuote(ctx, p.llm, fmt.Sprintf("%s — %s", p.brief.Headline, p.brief.KeyFact))
	if err != nil {
		return review.Draft{}, err
	}
	return review.Draft{
		ID:          review.NewID(time.Now()),
		PrimaryText: text,
		Media:       review.Media{Kind: review.MediaNone},
		FormatLabel: "quote-dunk",
		Headline:    p.brief.Headline,
		KeyFact:     p.brief.KeyFact,
		SourceURL:   p.brief.Source,
	}, nil
}

func (p *Producer) draft(ctx context.Context) (review.Draft, error) {
	bundle, err := generator.DraftPost(ctx, p.llm, p.brief.Story())
	if err != nil {
		return review.Draft{}, fmt.Errorf("draft post: %w", err)
	}

	media := review.Media{Kind: review.MediaNone}
	if p.images != nil {
		path, err := p.images.Generate(ctx, bundle.ImagePrompt)
		if err != nil {
			// Text-only drafts are still reviewable; the image is a bonus.
			p.logger.Warn("image generation failed, continuing text-only", "error", err)
		} else {
			media = review.Media{Kind: review.MediaPhoto, Path: path}
		}
	}

	return review.Draft{
		ID:            review.NewID(time.Now()),
		PrimaryText:   bundle.TwitterPost,
		SecondaryText: bundle.InstagramPost,
		Media:         media,
		FormatLabel:   "flash",
		Headline:      p.brief.Headline,
		KeyFact:       p.brief.KeyFact,
		SourceURL:     p.brief.Source,
	}, nil
}
