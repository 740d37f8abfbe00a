package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"time"

	"github.com/wezm/rsspls/app/cfg"
)

// Generator serializes a Channel as RSS 2.0. Output is deterministic:
// identical input always yields identical bytes, which the write-skip
// fingerprint comparison depends on.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Run(channel Channel) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", channel.Title, 4)
	g.writeElement(&buf, "link", channel.Link, 4)
	description := channel.Description
	if description == "" {
		description = fmt.Sprintf("Feed generated from %s", channel.Link)
	}
	g.writeElement(&buf, "description", description, 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("rsspls/%s", cfg.GetVersion()), 4)

	// lastBuildDate comes from the newest item date rather than the wall
	// clock so regeneration of unchanged input stays byte-identical.
	if newest := newestItemDate(channel.Items); newest != nil {
		g.writeElement(&buf, "lastBuildDate", newest.Format(time.RFC1123Z), 4)
	}

	for _, item := range channel.Items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>\n")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item Item) {
	buf.WriteString("    <item>\n")

	if item.GUID != "" {
		buf.WriteString(`      <guid isPermaLink="false">`)
		xml.EscapeText(buf, []byte(item.GUID))
		buf.WriteString("</guid>\n")
	}

	if item.Title != "" {
		g.writeElement(buf, "title", item.Title, 6)
	}

	if item.Link != "" {
		g.writeElement(buf, "link", item.Link, 6)
	}

	if item.Description != "" {
		g.writeElement(buf, "description", item.Description, 6)
	}

	if item.PublishedAt != nil {
		g.writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)
	}

	// RSS 2.0 requires url, length and type on enclosures; the length of a
	// remote file is unknown here so it is published as 0.
	if item.EnclosureURL != "" && item.EnclosureType != "" {
		buf.WriteString(fmt.Sprintf("      <enclosure url=\"%s\" length=\"0\" type=\"%s\" />\n",
			html.EscapeString(item.EnclosureURL),
			html.EscapeString(item.EnclosureType)))
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func newestItemDate(items []Item) *time.Time {
	var newest *time.Time
	for i := range items {
		date := items[i].PublishedAt
		if date == nil {
			continue
		}
		if newest == nil || date.After(*newest) {
			newest = date
		}
	}
	return newest
}
