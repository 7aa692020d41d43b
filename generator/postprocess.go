package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

// PostBundle is the drafting model's structured output.
type PostBundle struct {
	TwitterPost   string `json:"twitter_post"`
	InstagramPost string `json:"instagram_post"`
	ImagePrompt   string `json:"image_prompt"`
}

var codeFenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*|```\\s*$")

// DecodeJSON parses model output into v, stripping code fences first and
// falling back to jsonrepair when the model emits slightly broken JSON.
func DecodeJSON(raw string, v any) error {
	clean := strings.TrimSpace(codeFenceRe.ReplaceAllString(strings.TrimSpace(raw), ""))
	if clean == "" {
		return errors.New("model returned empty output")
	}
	if err := json.Unmarshal([]byte(clean), v); err == nil {
		return nil
	}
	repaired, repairErr := jsonrepair.JSONRepair(clean)
	if repairErr != nil {
		return fmt.Errorf("model output is not valid JSON: %w", repairErr)
	}
	if err := json.Unmarshal([]byte(repaired), v); err != nil {
		return fmt.Errorf("model output is not valid JSON after repair: %w", err)
	}
	return nil
}

// ParsePostBundle validates the drafted bundle and backfills the failsafe
// image prompt when the model omits one.
func ParsePostBundle(raw string) (PostBundle, error) {
	var bundle PostBundle
	if err := DecodeJSON(raw, &bundle); err != nil {
		return PostBundle{}, err
	}
	if bundle.TwitterPost == "" {
		return PostBundle{}, errors.New("drafted bundle is missing twitter_post")
	}
	if bundle.ImagePrompt == "" {
		bundle.ImagePrompt = FailsafeImagePrompt
	}
	return bundle, nil
}

// DraftPost runs the drafting prompt for a story and parses the result.
func DraftPost(ctx context.Context, llm LLMClient, story Story) (PostBundle, error) {
	raw, err := llm.Complete(ctx, BuildPostPrompt(story))
	if err != nil {
		return PostBundle{}, err
	}
	return ParsePostBundle(raw)
}

// DraftQuote runs the quote-dunk prompt against a target tweet's text.
func DraftQuote(ctx context.Context, llm LLMClient, tweetText string) (string, error) {
	raw, err := llm.Complete(ctx, BuildQuotePrompt(tweetText))
	if err != nil {
		return "", err
	}
	text := strings.Trim(strings.TrimSpace(raw), `"`)
	if text == "" {
		return "", errors.New("model returned an empty quote")
	}
	return text, nil
}
