package feed

import (
	"bytes"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"

	"github.com/wezm/rsspls/app/config"
	"github.com/wezm/rsspls/app/extract"
)

// Build assembles the channel for one feed definition from its extracted
// items, in extraction order. It never deduplicates; collapsing repeats
// across runs is the cache layer's job.
func Build(definition *config.Feed, items []extract.Item, description string) Channel {
	channel := Channel{
		Title:       definition.Title,
		Link:        definition.Rule.URL,
		Description: description,
		Items:       make([]Item, 0, len(items)),
	}

	for _, item := range items {
		channel.Items = append(channel.Items, Item{
			GUID:          item.Link,
			Title:         item.Title,
			Link:          item.Link,
			Description:   item.Summary,
			PublishedAt:   item.PublishedAt,
			EnclosureURL:  item.EnclosureURL,
			EnclosureType: item.EnclosureType,
		})
	}

	return channel
}

// PageExcerpt derives a channel description from the source page itself.
// Best-effort: any failure yields an empty string and the caller falls back
// to a generated description.
func PageExcerpt(body []byte, pageURL string) string {
	parsed, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return ""
	}

	return strings.TrimSpace(article.Excerpt)
}
