package review

import "strings"

// Decision is the reviewer's resolved instruction for a pending draft.
type Decision int

const (
	Approve Decision = iota
	Skip
	RegenerateAll
	RegenerateFormat
	ConvertQuote
)

func (d Decision) String() string {
	switch d {
	case Approve:
		return "approve"
	case Skip:
		return "skip"
	case RegenerateAll:
		return "regenerate-all"
	case RegenerateFormat:
		return "regenerate-format"
	case ConvertQuote:
		return "convert-quote"
	}
	return "unknown"
}

// Result pairs the decision with whether it came from the wall-clock
// timeout. Callers treat a timed-out result as Skip; logs tell them apart.
type Result struct {
	Decision Decision
	TimedOut bool
}

// Callback payloads are "<verb>_<draftID>". The draft id itself contains an
// underscore, so parsing splits on the first one only.
const (
	verbApprove = "approve"
	verbRegen   = "regen"
	verbFormat  = "format"
	verbQuote   = "quote"
	verbSkip    = "skip"
)

// EncodePayload serializes a decision + draft id into a callback payload.
func EncodePayload(d Decision, draftID string) string {
	return payloadVerb(d) + "_" + draftID
}

func payloadVerb(d Decision) string {
	switch d {
	case Approve:
		return verbApprove
	case Skip:
		return verbSkip
	case RegenerateAll:
		return verbRegen
	case RegenerateFormat:
		return verbFormat
	case ConvertQuote:
		return verbQuote
	}
	return "unknown"
}

// ParsePayload decodes a callback payload. Anything that does not split
// into a known verb plus a non-empty draft id is rejected outright.
func ParsePayload(payload string) (Decision, string, bool) {
	verb, id, found := strings.Cut(payload, "_")
	if !found || id == "" {
		return 0, "", false
	}
	switch verb {
	case verbApprove:
		return Approve, id, true
	case verbRegen:
		return RegenerateAll, id, true
	case verbFormat:
		return RegenerateFormat, id, true
	case verbQuote:
		return ConvertQuote, id, true
	case verbSkip:
		return Skip, id, true
	}
	return 0, "", false
}

// ParseKeyword maps a free-text reply to a decision. Input is lower-cased
// and trimmed; anything unrecognized is ignored by the caller.
func ParseKeyword(text string) (Decision, bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "approve", "yes", "ok", "✅":
		return Approve, true
	case "regen", "regenerate", "redo", "🔄":
		return RegenerateAll, true
	case "format", "image", "redraft":
		return RegenerateFormat, true
	case "quote":
		return ConvertQuote, true
	case "skip", "no", "next", "⏭", "⏭️":
		return Skip, true
	}
	return 0, false
}

// ackText is the instant toast shown on the tapped button.
func ackText(d Decision) string {
	switch d {
	case Approve:
		return "✅ Approved!"
	case Skip:
		return "⏭️ Skipped"
	case RegenerateAll:
		return "🔄 Regenerating..."
	case RegenerateFormat:
		return "🎨 Redrafting..."
	case ConvertQuote:
		return "💬 Reframing..."
	}
	return "Got it!"
}

// confirmText is the chat message confirming the chosen action.
func confirmText(d Decision) string {
	switch d {
	case Approve:
		return "✅ Approved! Publishing now."
	case Skip:
		return "⏭️ Skipped this draft."
	case RegenerateAll:
		return "🔄 Regenerating a new post from scratch..."
	case RegenerateFormat:
		return "🎨 Redrafting the post, same story..."
	case ConvertQuote:
		return "💬 Reframing as a quote post..."
	}
	return "Got it!"
}
