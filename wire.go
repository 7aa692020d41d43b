package main

import (
	"log/slog"
	"os"

	"sawalkaro/archive"
	"sawalkaro/config"
	"sawalkaro/crew"
	"sawalkaro/fal"
	"sawalkaro/flash"
	"sawalkaro/forensics"
	"sawalkaro/generator"
	"sawalkaro/research"
	"sawalkaro/review"
	"sawalkaro/scraper"
	"sawalkaro/store"
	"sawalkaro/telegram"
	"sawalkaro/twitter"
)

// app holds loaded config and builds each collaborator on demand.
type app struct {
	cfg    config.Config
	logger *slog.Logger
	st     store.Store
}

func newApp(configPath string, verbose bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return &app{cfg: cfg, logger: logger}, nil
}

func (a *app) telegramClient() (*telegram.Client, error) {
	return telegram.New(telegram.Options{
		Token:  a.cfg.Telegram.BotToken,
		ChatID: a.cfg.Telegram.ChatID,
		Logger: a.logger,
	})
}

func (a *app) reviewer() (*review.Reviewer, error) {
	tg, err := a.telegramClient()
	if err != nil {
		return nil, err
	}
	return review.New(tg, review.Options{
		ChatID:   a.cfg.Telegram.ChatID,
		Timeout:  a.cfg.Review.Timeout(),
		PollWait: a.cfg.Review.PollWait(),
		Logger:   a.logger,
	})
}

func (a *app) publisher() (*twitter.Client, error) {
	return twitter.New(twitter.Options{
		ConsumerKey:       a.cfg.Twitter.ConsumerKey,
		ConsumerSecret:    a.cfg.Twitter.ConsumerSecret,
		AccessToken:       a.cfg.Twitter.AccessToken,
		AccessTokenSecret: a.cfg.Twitter.AccessTokenSecret,
		Username:          a.cfg.Twitter.Username,
		Logger:            a.logger,
	})
}

func (a *app) scraper() (*scraper.Client, error) {
	return scraper.New(scraper.Options{
		BearerToken: a.cfg.Twitter.BearerToken,
		Logger:      a.logger,
	})
}

func (a *app) contentStore() store.Store {
	if a.st != nil {
		return a.st
	}
	if a.cfg.DatabaseURL == "" {
		a.st = store.NewMemory()
		return a.st
	}
	pg, err := store.OpenPostgres(a.cfg.DatabaseURL, a.logger)
	if err != nil {
		// The content log is dedup + bookkeeping; a run without it is
		// better than no run.
		a.logger.Warn("postgres unavailable, using in-memory content log", "error", err)
		a.st = store.NewMemory()
		return a.st
	}
	a.st = pg
	return a.st
}

func (a *app) archive() *archive.Archive {
	arch, err := archive.New(a.cfg.ArchiveDir, a.logger)
	if err != nil {
		a.logger.Warn("archive disabled", "error", err)
		return nil
	}
	return arch
}

func (a *app) openaiLLM() (generator.LLMClient, error) {
	return generator.NewOpenAILLM(generator.LLMSettings{
		Model:   a.cfg.OpenAI.Model,
		APIKey:  a.cfg.OpenAI.APIKey,
		BaseURL: a.cfg.OpenAI.BaseURL,
	})
}

func (a *app) xaiLLM() generator.LLMClient {
	llm, err := generator.NewOpenAILLM(generator.LLMSettings{
		Model:   a.cfg.XAI.Model,
		APIKey:  a.cfg.XAI.APIKey,
		BaseURL: a.cfg.XAI.BaseURL,
	})
	if err != nil {
		// Validate ran before wiring; reaching this means a programming
		// error, not missing config.
		panic(err)
	}
	return llm
}

func (a *app) researchClient() (*research.Client, error) {
	topStory, err := generator.NewOpenAILLM(generator.LLMSettings{
		Model:   a.cfg.Perplexity.Model,
		APIKey:  a.cfg.Perplexity.APIKey,
		BaseURL: a.cfg.Perplexity.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	deep, err := generator.NewOpenAILLM(generator.LLMSettings{
		Model:   "sonar-reasoning-pro",
		APIKey:  a.cfg.Perplexity.APIKey,
		BaseURL: a.cfg.Perplexity.BaseURL,
	})
	if err != nil {
		return nil, err
	}
	return research.New(topStory, deep, a.logger)
}

func (a *app) flashProducer() (*flash.Producer, error) {
	res, err := a.researchClient()
	if err != nil {
		return nil, err
	}
	llm, err := a.openaiLLM()
	if err != nil {
		return nil, err
	}
	images, err := fal.New(fal.Options{
		APIKey:    a.cfg.Fal.APIKey,
		OutputDir: a.cfg.ArchiveDir,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, err
	}
	return flash.New(res, llm, images, a.logger)
}

func (a *app) crewProducer(agentsDir string) (*crew.Crew, error) {
	res, err := a.researchClient()
	if err != nil {
		return nil, err
	}
	sc, err := a.scraper()
	if err != nil {
		return nil, err
	}
	fx, err := forensics.New(forensics.Options{
		OutputDir: a.cfg.ArchiveDir,
		Logger:    a.logger,
	})
	if err != nil {
		return nil, err
	}
	configs, err := crew.LoadConfigs(agentsDir)
	if err != nil {
		return nil, err
	}
	return crew.New(crew.Options{
		LLM:       a.xaiLLM(),
		Scraper:   sc,
		Forensics: fx,
		Research:  res,
		Store:     a.contentStore(),
		Handles:   a.cfg.TargetHandles,
		Configs:   configs,
		Logger:    a.logger,
	})
}
