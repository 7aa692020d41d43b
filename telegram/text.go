package telegram

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML escapes markup-significant characters so generated content
// cannot corrupt HTML-mode message formatting.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// SplitText breaks text into ordered chunks no longer than limit bytes,
// preferring line breaks, then spaces, before cutting mid-word. Telegram
// rejects over-length messages outright, so callers send each chunk as its
// own message.
func SplitText(text string, limit int) []string {
	if limit <= 0 {
		limit = ChunkLimit
	}
	if len(text) <= limit {
		return []string{text}
	}

	var chunks []string
	rest := text
	for len(rest) > limit {
		cut := strings.LastIndex(rest[:limit], "\n")
		if cut <= 0 {
			cut = strings.LastIndex(rest[:limit], " ")
		}
		if cut <= 0 {
			cut = limit
		}
		chunks = append(chunks, strings.TrimRight(rest[:cut], "\n "))
		rest = strings.TrimLeft(rest[cut:], "\n ")
	}
	if rest != "" {
		chunks = append(chunks, rest)
	}
	return chunks
}
