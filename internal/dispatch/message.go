package dispatch

import (
	"fmt"

	"github.com/samvad-hq/rss-opinion/internal/domain"
)

// headline renders the announcement line and link shared by every channel.
func headline(src domain.Source, e domain.Entry) string {
	if e.Author == "" {
		return fmt.Sprintf("New article in %s: %s\n%s", src.Name, e.Title, e.Link)
	}
	return fmt.Sprintf("New article by %s in %s: %s\n%s", e.Author, src.Name, e.Title, e.Link)
}

// MessageText is the Telegram and event sink text. Sources flagged with
// IncludeDescription get the description appended as a new paragraph.
func MessageText(src domain.Source, e domain.Entry) string {
	text := headline(src, e)
	if src.IncludeDescription && e.Description != "" {
		text += "\n\n" + e.Description
	}
	return text
}

// TweetText never carries the description.
func TweetText(src domain.Source, e domain.Entry) string {
	return headline(src, e)
}
