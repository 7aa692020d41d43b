// Package research queries Perplexity for the day's most impactful story
// and for deep background briefings.
package research

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"sawalkaro/generator"
)

// NewsBrief is the strict JSON shape the top-story query must return.
type NewsBrief struct {
	Headline            string `json:"headline"`
	Summary             string `json:"summary"`
	Source              string `json:"source"`
	KeyFact             string `json:"key_fact"`
	AffectedPeople      string `json:"affected_people"`
	PoliticiansInvolved string `json:"politicians_involved"`
}

// Story converts the brief into the generator's drafting input.
func (b NewsBrief) Story() generator.Story {
	return generator.Story{
		Headline:            b.Headline,
		Summary:             b.Summary,
		KeyFact:             b.KeyFact,
		PoliticiansInvolved: b.PoliticiansInvolved,
		AffectedPeople:      b.AffectedPeople,
		Source:              b.Source,
	}
}

const topStorySystem = `You are an objective, data-driven research assistant for a political news channel. Your job is to find the single most important BREAKING news story (strictly from the last 24-48 hours) that clearly demonstrates a recent failure of the government, infrastructure collapse, massive public protest, or immediate economic crisis. Do not return old statistical reports. We need current, actionable, burning issues occurring right now. You must extract hard data, specific monetary values, statistics, and the exact names of the public officials or institutions involved. Return ONLY a factual JSON object with these keys: {"headline": "...", "summary": "...", "source": "...", "key_fact": "...", "affected_people": "...", "politicians_involved": "..."} — Just the JSON, no extra text.`

const topStoryQuery = `What is the most significant, breaking news story from the last 24 to 48 hours that clearly shows a failure of governance, infrastructure malfunction, or immediate crisis? Do not give me old data or general surveys. Give me a specific incident or policy failure that just happened. Pick the single most impactful story. Gather specific hard numbers and explicitly name the responsible authorities or leaders involved.`

const deepResearchSystem = `You are an investigative political researcher. Provide a detailed, brutally factual, and deeply researched report based on the query. Include specific names, dates, amounts, and historical comparisons if available.`

// Client wraps a Perplexity-backed LLM. The deep-research model differs
// from the top-story one, so both are configurable.
type Client struct {
	llm       generator.LLMClient
	deepModel generator.LLMClient
	logger    *slog.Logger
}

// New builds a research client. deep may be nil, in which case the primary
// model also serves DeepResearch.
func New(llm, deep generator.LLMClient, logger *slog.Logger) (*Client, error) {
	if llm == nil {
		return nil, errors.New("research: llm client is required")
	}
	if deep == nil {
		deep = llm
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{llm: llm, deepModel: deep, logger: logger}, nil
}

// TopStory fetches the single most impactful breaking story of the day.
func (c *Client) TopStory(ctx context.Context) (NewsBrief, error) {
	raw, err := c.llm.Complete(ctx, generator.Prompt{
		System:      topStorySystem,
		User:        topStoryQuery,
		Temperature: 0.3,
		MaxTokens:   600,
		Extra: map[string]any{
			"search_recency_filter": "day",
			"return_citations":      false,
		},
	})
	if err != nil {
		return NewsBrief{}, fmt.Errorf("fetch top story: %w", err)
	}

	var brief NewsBrief
	if err := generator.DecodeJSON(raw, &brief); err != nil {
		return NewsBrief{}, fmt.Errorf("parse top story: %w", err)
	}
	if brief.Headline == "" {
		return NewsBrief{}, errors.New("top story is missing a headline")
	}
	c.logger.Info("top story fetched", "headline", brief.Headline)
	return brief, nil
}

// DeepResearch synthesizes historical and political background for a story.
func (c *Client) DeepResearch(ctx context.Context, query string) (string, error) {
	raw, err := c.deepModel.Complete(ctx, generator.Prompt{
		System: deepResearchSystem,
		User:   query,
	})
	if err != nil {
		return "", fmt.Errorf("deep research: %w", err)
	}
	return raw, nil
}
