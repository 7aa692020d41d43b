package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesEnv(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok-env")
	t.Setenv("TELEGRAM_CHAT_ID", "777")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.NoError(t, err)
	assert.Equal(t, "tok-env", cfg.Telegram.BotToken)
	assert.Equal(t, "777", cfg.Telegram.ChatID)
}

func TestLoadFileThenEnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"telegram": {"bot_token": "tok-file", "chat_id": "111"},
		"openai": {"api_key": "sk-file", "model": "gpt-4o-mini"}
	}`), 0o644))

	t.Setenv("TELEGRAM_BOT_TOKEN", "tok-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "tok-env", cfg.Telegram.BotToken, "env wins over file")
	assert.Equal(t, "111", cfg.Telegram.ChatID, "file value survives when env unset")
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model, "explicit model not defaulted")
}

func TestLoadBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.OpenAI.Model)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "https://api.perplexity.ai", cfg.Perplexity.BaseURL)
	assert.Equal(t, "grok-4-1-fast-reasoning", cfg.XAI.Model)
	assert.Equal(t, "https://api.x.ai/v1", cfg.XAI.BaseURL)
	assert.Equal(t, "drafts", cfg.ArchiveDir)
	assert.NotEmpty(t, cfg.TargetHandles)
	assert.Equal(t, 30*time.Minute, cfg.Review.Timeout())
	assert.Equal(t, 2*time.Second, cfg.Review.PollWait())
}

func TestReviewOverrides(t *testing.T) {
	r := Review{TimeoutMinutes: 5, PollWaitSeconds: 10}
	assert.Equal(t, 5*time.Minute, r.Timeout())
	assert.Equal(t, 10*time.Second, r.PollWait())
}

func TestValidateAggregatesMissing(t *testing.T) {
	var cfg Config
	cfg.Telegram.BotToken = "tok"
	cfg.Twitter.ConsumerKey = "ck"

	err := cfg.Validate(NeedTelegram, NeedTwitter, NeedFal)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_CHAT_ID")
	assert.Contains(t, err.Error(), "TWITTER_CONSUMER_SECRET")
	assert.Contains(t, err.Error(), "TWITTER_ACCESS_TOKEN")
	assert.Contains(t, err.Error(), "FAL_KEY")
	assert.NotContains(t, err.Error(), "TELEGRAM_BOT_TOKEN")
	assert.NotContains(t, err.Error(), "OPENAI_API_KEY", "unrequested groups not checked")
}

func TestValidateRejectsPlaceholders(t *testing.T) {
	var cfg Config
	cfg.OpenAI.APIKey = "your_openai_api_key_here"

	err := cfg.Validate(NeedOpenAI)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OPENAI_API_KEY")
}

func TestValidateOK(t *testing.T) {
	var cfg Config
	cfg.Telegram.BotToken = "tok"
	cfg.Telegram.ChatID = "777"
	cfg.Twitter.BearerToken = "bearer"

	assert.NoError(t, cfg.Validate(NeedTelegram, NeedTwitterRead))
}
