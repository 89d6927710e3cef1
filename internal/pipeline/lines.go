package pipeline

import (
	"fmt"
	"strings"

	"tweetwatch/internal/domain"
)

const maxLineTextLen = 200

// formatItemLine renders one item as a prompt line. withID prefixes the
// stable identifier so the relevance pass can echo selections back.
func formatItemLine(item domain.Item, withID bool) string {
	var sb strings.Builder

	sb.WriteString("- ")

	if withID {
		sb.WriteString(fmt.Sprintf("[ID:%s] ", item.ID))
	}

	sb.WriteString(fmt.Sprintf("@%s (%d views, %d likes): %s",
		item.Author.Handle,
		item.Engagement.Views,
		item.Engagement.Likes,
		truncate(item.Text, maxLineTextLen),
	))

	if item.Quoted != nil {
		sb.WriteString(fmt.Sprintf("\n  [quoting @%s]: %s", item.Quoted.AuthorHandle, truncate(item.Quoted.Text, 150)))
	}

	if item.URL != "" {
		sb.WriteString("\n  URL: " + item.URL)
	}

	return sb.String()
}

func truncate(text string, limit int) string {
	runes := []rune(strings.ReplaceAll(text, "\n", " "))
	if len(runes) <= limit {
		return string(runes)
	}

	return string(runes[:limit])
}
