package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// Config carries every credential and knob the pipeline needs. Values come
// from an optional JSON file overlaid with the canonical environment
// variables, so the same binary works from a config dir or a bare .env.
type Config struct {
	Telegram   Telegram `json:"telegram"`
	OpenAI     LLM      `json:"openai"`
	Perplexity LLM      `json:"perplexity"`
	XAI        LLM      `json:"xai"`
	Fal        Fal      `json:"fal"`
	Twitter    Twitter  `json:"twitter"`

	// DatabaseURL is optional; without it the content log lives in memory.
	DatabaseURL string `json:"database_url,omitempty"`

	Review        Review   `json:"review"`
	ArchiveDir    string   `json:"archive_dir,omitempty"`
	TargetHandles []string `json:"target_handles,omitempty"`
}

type Telegram struct {
	BotToken string `json:"bot_token"`
	ChatID   string `json:"chat_id"`
}

// LLM configures one OpenAI-compatible endpoint (OpenAI, Perplexity, xAI).
type LLM struct {
	APIKey  string `json:"api_key"`
	Model   string `json:"model,omitempty"`
	BaseURL string `json:"base_url,omitempty"`
}

type Fal struct {
	APIKey string `json:"api_key"`
}

type Twitter struct {
	ConsumerKey       string `json:"consumer_key"`
	ConsumerSecret    string `json:"consumer_secret"`
	AccessToken       string `json:"access_token"`
	AccessTokenSecret string `json:"access_token_secret"`
	BearerToken       string `json:"bearer_token"`
	Username          string `json:"username,omitempty"`
}

type Review struct {
	TimeoutMinutes  int `json:"timeout_minutes,omitempty"`
	PollWaitSeconds int `json:"poll_wait_seconds,omitempty"`
}

func (r Review) Timeout() time.Duration {
	if r.TimeoutMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(r.TimeoutMinutes) * time.Minute
}

func (r Review) PollWait() time.Duration {
	if r.PollWaitSeconds <= 0 {
		return 2 * time.Second
	}
	return time.Duration(r.PollWaitSeconds) * time.Second
}

// Load reads the JSON config file if it exists, then overlays environment
// variables. A missing file is not an error; env-only setups are common.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := json.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse %s: %w", path, err)
			}
		case os.IsNotExist(err):
			// fall through to env overlay
		default:
			return Config{}, err
		}
	}
	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	overlay(&c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
	overlay(&c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
	overlay(&c.OpenAI.APIKey, "OPENAI_API_KEY")
	overlay(&c.Perplexity.APIKey, "PERPLEXITY_API_KEY")
	overlay(&c.XAI.APIKey, "XAI_API_KEY")
	overlay(&c.Fal.APIKey, "FAL_KEY")
	overlay(&c.Twitter.ConsumerKey, "TWITTER_CONSUMER_KEY")
	overlay(&c.Twitter.ConsumerSecret, "TWITTER_CONSUMER_SECRET")
	overlay(&c.Twitter.AccessToken, "TWITTER_ACCESS_TOKEN")
	overlay(&c.Twitter.AccessTokenSecret, "TWITTER_ACCESS_TOKEN_SECRET")
	overlay(&c.Twitter.BearerToken, "TWITTER_BEARER_TOKEN")
	overlay(&c.Twitter.Username, "TWITTER_USERNAME")
	overlay(&c.DatabaseURL, "DATABASE_URL")
}

func overlay(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func (c *Config) applyDefaults() {
	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o"
	}
	if c.Perplexity.Model == "" {
		c.Perplexity.Model = "sonar-pro"
	}
	if c.Perplexity.BaseURL == "" {
		c.Perplexity.BaseURL = "https://api.perplexity.ai"
	}
	if c.XAI.Model == "" {
		c.XAI.Model = "grok-4-1-fast-reasoning"
	}
	if c.XAI.BaseURL == "" {
		c.XAI.BaseURL = "https://api.x.ai/v1"
	}
	if c.ArchiveDir == "" {
		c.ArchiveDir = "drafts"
	}
	if len(c.TargetHandles) == 0 {
		c.TargetHandles = defaultTargetHandles
	}
}

// defaultTargetHandles is the built-in watchlist of independent journalists
// and accountability accounts the scraper follows.
var defaultTargetHandles = []string{
	"AltNews", "zoo_bear", "dhruv_rathee", "RTI_India", "SaketGokhale",
	"ravishndtv", "thewire_in", "suchetadalal", "thecaravanindia", "newslaundry",
	"pbhushan1", "RanaAyyub", "SupriyaShrinate", "Jairam_Ramesh", "scribe_prashant",
	"Kisanektamorcha", "MahuaMoitra",
}

// Need names a group of keys a command depends on. Different entry points
// need different subsets, so validation is per-command rather than global.
type Need string

const (
	NeedTelegram    Need = "telegram"
	NeedOpenAI      Need = "openai"
	NeedPerplexity  Need = "perplexity"
	NeedXAI         Need = "xai"
	NeedFal         Need = "fal"
	NeedTwitter     Need = "twitter"
	NeedTwitterRead Need = "twitter-read"
)

// Validate reports every missing or placeholder key for the requested
// groups in one error, so the operator fixes the .env in a single pass.
func (c Config) Validate(needs ...Need) error {
	var missing []string
	add := func(value, name string) {
		if value == "" || strings.Contains(value, "your_") {
			missing = append(missing, name)
		}
	}
	for _, need := range needs {
		switch need {
		case NeedTelegram:
			add(c.Telegram.BotToken, "TELEGRAM_BOT_TOKEN")
			add(c.Telegram.ChatID, "TELEGRAM_CHAT_ID")
		case NeedOpenAI:
			add(c.OpenAI.APIKey, "OPENAI_API_KEY")
		case NeedPerplexity:
			add(c.Perplexity.APIKey, "PERPLEXITY_API_KEY")
		case NeedXAI:
			add(c.XAI.APIKey, "XAI_API_KEY")
		case NeedFal:
			add(c.Fal.APIKey, "FAL_KEY")
		case NeedTwitter:
			add(c.Twitter.ConsumerKey, "TWITTER_CONSUMER_KEY")
			add(c.Twitter.ConsumerSecret, "TWITTER_CONSUMER_SECRET")
			add(c.Twitter.AccessToken, "TWITTER_ACCESS_TOKEN")
			add(c.Twitter.AccessTokenSecret, "TWITTER_ACCESS_TOKEN_SECRET")
		case NeedTwitterRead:
			add(c.Twitter.BearerToken, "TWITTER_BEARER_TOKEN")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing API keys: %s", strings.Join(missing, ", "))
	}
	return nil
}
