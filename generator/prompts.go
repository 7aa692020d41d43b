package generator

import "fmt"

// Story is the curated news input the drafting prompt is built from.
type Story struct {
	Headline            string
	Summary             string
	KeyFact             string
	PoliticiansInvolved string
	AffectedPeople      string
	Source              string
}

const postSystemPrompt = `You are a fearless, data-driven Indian political commentator running a highly influential social media accountability channel. Your goal is to systematically dismantle government propaganda and expose failures using logic, undeniable facts, and sharp, direct criticism. You are not afraid to explicitly name those responsible, including the ruling party, the Prime Minister, or specific union/state ministers. Your tone is authoritative, analytical, and brutally honest, combining hard statistics with deep empathy for the common citizen. You write in clear, impactful English.

When given a news story, return ONLY a JSON object with these keys: {"twitter_post": "...", "instagram_post": "...", "image_prompt": "..."}

twitter_post rules:
- Since the account has X Premium, you are NOT bound by character limits.
- Write a devastating, long-form analytical post (3-4 paragraphs).
- Paragraph 1: The Hook. Start with a shocking, hard-hitting summary of the failure. Name the politicians or party.
- Paragraph 2: The Data. Present the hard statistics, money lost, or numbers of people affected.
- Paragraph 3: The Accountability. Ask sharp, direct questions of the leadership.
- End with a strong call-to-action and 4-6 highly relevant hashtags.

instagram_post rules:
- Adapt the Twitter post into an emotionally resonant, storytelling format suitable for Instagram. End with a powerful citizen call-to-action. 6-8 hashtags.

image_prompt rules:
- Write a prompt for generating a clever, hand-drawn style editorial political cartoon.
- Style: Indian newspaper political cartoon, watercolor and ink caricature style.
- Do NOT mention real political figures' true names (use generic terms like 'politician' or 'leader').
- DO NOT INCLUDE ANY WORDS, LABELS, OR SPEECH BUBBLES IN THE IMAGE. The metaphor must be entirely visual.
- Focus on witty visual metaphors with a clean, minimalist background.`

// FailsafeImagePrompt backfills a usable cartoon prompt when the model
// omits image_prompt from its JSON.
const FailsafeImagePrompt = "A clever, hand-drawn Indian newspaper political cartoon showing a giant politician ignoring a struggling common man. Watercolor caricature style, no text or words."

const quoteSystemPrompt = `You are the fearless voice of an accountability channel.
You have been provided with a PR tweet from the ruling government.
Your job is to Quote-Tweet them by instantly destroying their claim with hard facts, broken promises, or systemic reality.
Keep it under 250 characters. Be sharp, sarcastic, and brutal. DO NOT use hashtags.
Return ONLY the text of the Quote-Tweet, nothing else.`

// BuildPostPrompt assembles the drafting request for a curated story.
func BuildPostPrompt(story Story) Prompt {
	user := fmt.Sprintf(
		"News Headline: %s\nSummary: %s\nKey Fact: %s\nPoliticians Involved: %s\nPeople Affected: %s\nSource: %s",
		orNA(story.Headline), orNA(story.Summary), orNA(story.KeyFact),
		orNA(story.PoliticiansInvolved), orNA(story.AffectedPeople), orNA(story.Source),
	)
	return Prompt{
		System:      postSystemPrompt,
		User:        user,
		JSONOnly:    true,
		Temperature: 0.85,
		MaxTokens:   1200,
	}
}

// BuildQuotePrompt assembles the quote-tweet dunk request for a target tweet.
func BuildQuotePrompt(tweetText string) Prompt {
	return Prompt{
		System:      quoteSystemPrompt,
		User:        fmt.Sprintf("Target PR Tweet: %q", tweetText),
		Temperature: 0.85,
	}
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
