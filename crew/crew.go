// Package crew is the staged thread producer: scrape field intelligence,
// curate the top story, pull forensic media, research the background, then
// frame, ghostwrite and split the post into a thread. Stages run in the
// fixed order; each LLM stage plays its own persona.
package crew

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"sawalkaro/forensics"
	"sawalkaro/generator"
	"sawalkaro/research"
	"sawalkaro/review"
	"sawalkaro/scraper"
	"sawalkaro/store"
)

// CurationResult is the editor stage's strict JSON output.
type CurationResult struct {
	Headline                  string `json:"headline"`
	KeyFact                   string `json:"key_fact"`
	PrimaryPoliticianInvolved string `json:"primary_politician_involved"`
	URL                       string `json:"url"`
}

// ThreadResult is the final split stage's strict JSON output.
type ThreadResult struct {
	Tweets    []string `json:"tweets"`
	MediaPath string   `json:"media_path"`
}

type Options struct {
	LLM       generator.LLMClient
	Scraper   *scraper.Client
	Forensics *forensics.Client
	Research  *research.Client
	Store     store.Store
	Handles   []string
	Configs   Configs
	Logger    *slog.Logger
}

type Crew struct {
	llm       generator.LLMClient
	scraper   *scraper.Client
	forensics *forensics.Client
	research  *research.Client
	store     store.Store
	handles   []string
	configs   Configs
	logger    *slog.Logger

	// Stage outputs kept for Redraft/Requote, so a regenerate-format
	// decision does not repeat scraping and research.
	curation   CurationResult
	report     string
	mediaPath  string
	hasContext bool
	pinned     bool
}

// UseStory pins a hand-picked story, so the next Produce skips the
// intelligence and curation stages and goes straight to forensics and
// research. Used to push a custom article through the normal flow.
func (c *Crew) UseStory(cur CurationResult) {
	c.curation = cur
	c.pinned = true
	c.hasContext = false
}

func New(opts Options) (*Crew, error) {
	if opts.LLM == nil || opts.Scraper == nil || opts.Research == nil {
		return nil, errors.New("crew: llm, scraper and research clients are required")
	}
	if opts.Store == nil {
		opts.Store = store.NewMemory()
	}
	if len(opts.Handles) == 0 {
		return nil, errors.New("crew: at least one target handle is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Crew{
		llm:       opts.LLM,
		scraper:   opts.Scraper,
		forensics: opts.Forensics,
		research:  opts.Research,
		store:     opts.Store,
		handles:   opts.Handles,
		configs:   opts.Configs,
		logger:    opts.Logger,
	}, nil
}

// Produce runs the full stage sequence and returns a thread draft. With a
// pinned story the intelligence and curation stages are skipped.
func (c *Crew) Produce(ctx context.Context) (review.Draft, error) {
	if !c.pinned {
		tweets, err := c.scraper.Sweep(ctx, c.handles)
		if err != nil {
			return review.Draft{}, fmt.Errorf("gather intelligence: %w", err)
		}
		if len(tweets) == 0 {
			return review.Draft{}, errors.New("crew: no usable tweets scraped")
		}
		c.logger.Info("intelligence gathered", "tweets", len(tweets))

		curation, err := c.curate(ctx, tweets)
		if err != nil {
			return review.Draft{}, err
		}
		c.curation = curation
		c.logger.Info("story curated", "headline", curation.Headline, "url", curation.URL)
	}

	c.mediaPath = ""
	if c.forensics != nil {
		query := strings.TrimSpace(c.curation.PrimaryPoliticianInvolved + " " + c.curation.Headline)
		path, err := c.forensics.FindImage(ctx, query)
		if err != nil {
			c.logger.Warn("forensic media fetch failed, continuing without", "error", err)
		} else {
			c.mediaPath = path
		}
	}

	report, err := c.research.DeepResearch(ctx, c.curation.Headline+" — "+c.curation.KeyFact)
	if err != nil {
		return review.Draft{}, fmt.Errorf("deep research: %w", err)
	}
	c.report = report
	c.hasContext = true

	return c.writeDraft(ctx)
}

// Redraft keeps the curated story, research and media, and re-runs only
// framing, writing and splitting.
func (c *Crew) Redraft(ctx context.Context) (review.Draft, error) {
	if !c.hasContext {
		return c.Produce(ctx)
	}
	return c.writeDraft(ctx)
}

// Requote reframes the curated story as a short quote-style dunk.
func (c *Crew) Requote(ctx context.Context) (review.Draft, error) {
	if !c.hasContext {
		return c.Produce(ctx)
	}
	text, err := generator.DraftQuote(ctx, c.llm, c.curation.Headline+" — "+c.curation.KeyFact)
	if err != nil {
		return review.Draft{}, err
	}
	return review.Draft{
		ID:          review.NewID(time.Now()),
		PrimaryText: text,
		Media:       review.Media{Kind: review.MediaNone},
		FormatLabel: "quote-dunk",
		Headline:    c.curation.Headline,
		KeyFact:     c.curation.KeyFact,
		SourceURL:   c.curation.URL,
	}, nil
}

// curate asks the editor persona to pick the top story, steering it away
// from source URLs already in the content log. One retry if it picks a
// covered story anyway.
func (c *Crew) curate(ctx context.Context, tweets []scraper.Tweet) (CurationResult, error) {
	intel, err := json.Marshal(tweets)
	if err != nil {
		return CurationResult{}, err
	}

	covered, err := c.coveredURLs(ctx)
	if err != nil {
		c.logger.Warn("reading covered stories failed, curating blind", "error", err)
	}

	for attempt := 0; attempt < 2; attempt++ {
		curation, err := c.runCuration(ctx, string(intel), covered)
		if err != nil {
			return CurationResult{}, err
		}
		seen, err := c.store.SeenSource(ctx, curation.URL)
		if err != nil {
			c.logger.Warn("dedup check failed, accepting story", "error", err)
			return curation, nil
		}
		if !seen {
			return curation, nil
		}
		c.logger.Info("curated story already covered, retrying", "url", curation.URL)
		covered = append(covered, curation.URL)
	}
	return CurationResult{}, errors.New("crew: every curated story was already covered")
}

func (c *Crew) coveredURLs(ctx context.Context) ([]string, error) {
	recent, err := c.store.Recent(ctx, 20)
	if err != nil {
		return nil, err
	}
	urls := make([]string, 0, len(recent))
	for _, entry := range recent {
		if entry.SourceURL != "" {
			urls = append(urls, entry.SourceURL)
		}
	}
	return urls, nil
}

func (c *Crew) runCuration(ctx context.Context, intel string, covered []string) (CurationResult, error) {
	task := c.configs.Tasks["curate_top_story"]
	user := task.Description + "\n\nField intelligence:\n" + intel
	if len(covered) > 0 {
		user += "\n\nAlready-covered source URLs (do not pick these):\n- " + strings.Join(covered, "\n- ")
	}
	user += "\n\n" + task.ExpectedOutput

	raw, err := c.llm.Complete(ctx, generator.Prompt{
		System:      c.configs.Agents["editor_in_chief_agent"].systemPrompt(),
		User:        user,
		JSONOnly:    true,
		Temperature: 0.3,
	})
	if err != nil {
		return CurationResult{}, fmt.Errorf("curate top story: %w", err)
	}

	var curation CurationResult
	if err := generator.DecodeJSON(raw, &curation); err != nil {
		return CurationResult{}, fmt.Errorf("parse curation: %w", err)
	}
	if curation.Headline == "" || curation.URL == "" {
		return CurationResult{}, errors.New("curation is missing headline or url")
	}
	return curation, nil
}

// writeDraft runs framing → ghostwrite → split against the kept context.
func (c *Crew) writeDraft(ctx context.Context) (review.Draft, error) {
	framing, err := c.runProseStage(ctx, "framing_strategist_agent", "develop_framing_strategy_task",
		fmt.Sprintf("Curated story:\nHeadline: %s\nKey fact: %s\nResponsible: %s\nSource: %s\n\nResearch report:\n%s",
			c.curation.Headline, c.curation.KeyFact, c.curation.PrimaryPoliticianInvolved, c.curation.URL, c.report))
	if err != nil {
		return review.Draft{}, err
	}

	longDraft, err := c.runProseStage(ctx, "ghostwriter_agent", "write_thread_draft",
		"Framing brief:\n"+framing+"\n\nResearch report:\n"+c.report)
	if err != nil {
		return review.Draft{}, err
	}

	thread, err := c.split(ctx, longDraft)
	if err != nil {
		return review.Draft{}, err
	}

	media := review.Media{Kind: review.MediaNone}
	if c.mediaPath != "" {
		media = review.Media{Kind: review.MediaPhoto, Path: c.mediaPath}
	}
	return review.Draft{
		ID:          review.NewID(time.Now()),
		PrimaryText: thread.Tweets[0],
		Thread:      thread.Tweets,
		Media:       media,
		FormatLabel: "thread",
		Headline:    c.curation.Headline,
		KeyFact:     c.curation.KeyFact,
		SourceURL:   c.curation.URL,
	}, nil
}

func (c *Crew) runProseStage(ctx context.Context, agent, task, input string) (string, error) {
	brief := c.configs.Tasks[task]
	raw, err := c.llm.Complete(ctx, generator.Prompt{
		System:      c.configs.Agents[agent].systemPrompt(),
		User:        brief.Description + "\n\n" + input + "\n\nExpected output: " + brief.ExpectedOutput,
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", task, err)
	}
	out := strings.TrimSpace(raw)
	if out == "" {
		return "", fmt.Errorf("%s: model returned nothing", task)
	}
	return out, nil
}

func (c *Crew) split(ctx context.Context, longDraft string) (ThreadResult, error) {
	task := c.configs.Tasks["split_into_thread"]
	raw, err := c.llm.Complete(ctx, generator.Prompt{
		System:      c.configs.Agents["thread_architect_agent"].systemPrompt(),
		User:        task.Description + "\n\nDraft:\n" + longDraft + "\n\n" + task.ExpectedOutput,
		JSONOnly:    true,
		Temperature: 0.4,
	})
	if err != nil {
		return ThreadResult{}, fmt.Errorf("split into thread: %w", err)
	}

	var thread ThreadResult
	if err := generator.DecodeJSON(raw, &thread); err != nil {
		return ThreadResult{}, fmt.Errorf("parse thread: %w", err)
	}
	if len(thread.Tweets) == 0 {
		return ThreadResult{}, errors.New("thread split produced no tweets")
	}
	return thread, nil
}
