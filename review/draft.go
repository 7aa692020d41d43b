// Package review implements the human-in-the-loop approval gate: it presents
// a draft post to the configured Telegram reviewer and resolves exactly one
// decision per draft.
package review

import "time"

// MediaKind tags the attachment carried by a draft.
type MediaKind string

const (
	MediaNone  MediaKind = "none"
	MediaPhoto MediaKind = "photo"
	MediaVideo MediaKind = "video"
)

// Media points at a local attachment file.
type Media struct {
	Kind MediaKind
	Path string
}

// Draft is one generated candidate post awaiting review. It is immutable
// once handed to the reviewer and discarded after a decision is reached.
type Draft struct {
	// ID correlates reviewer actions with this specific draft; stale
	// responses carrying another draft's id are ignored.
	ID string

	PrimaryText   string
	SecondaryText string

	// Thread holds the post split into parts for multi-part publishing.
	// Empty for single-post drafts.
	Thread []string

	Media       Media
	FormatLabel string

	// Source context shown to the reviewer alongside the draft.
	Headline  string
	KeyFact   string
	SourceURL string
}

// NewID derives a draft id from the generation time, one per attempt.
func NewID(t time.Time) string {
	return t.Format("20060102_150405")
}
