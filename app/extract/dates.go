package extract

import (
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"github.com/araddon/dateparse"

	"github.com/wezm/rsspls/app/config"
)

// isoLayouts are the strict layouts tried against a <time datetime="..">
// attribute before any configured or heuristic parsing.
var isoLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// extractDate resolves the date selector within the container and parses the
// match. Failures only drop the field, never the item.
func (e *Extractor) extractDate(container *goquery.Selection, spec *config.DateSpec) *time.Time {
	node := container.Find(spec.Selector).First()
	if node.Length() == 0 {
		return nil
	}

	var attrText string
	if goquery.NodeName(node) == "time" {
		attrText, _ = node.Attr("datetime")
	}

	return ParseDate(node.Text(), attrText, spec)
}

// ParseDate parses a date from the element text, preferring a machine-readable
// datetime attribute when one is supplied. Returns nil when nothing parses.
func ParseDate(raw, attrText string, spec *config.DateSpec) *time.Time {
	if attrText != "" {
		if parsed := parseISO(trimDate(attrText), spec.Kind); parsed != nil {
			slog.Debug("Using datetime attribute", "value", attrText)
			return parsed
		}
	}

	text := trimDate(raw)
	if text == "" {
		return nil
	}

	if spec.Format != "" {
		parsed, err := time.Parse(spec.Format, text)
		if err != nil {
			slog.Warn("Unable to parse date with configured format",
				"value", text, "format", spec.Format)
			return nil
		}
		return applyKind(parsed, spec.Kind)
	}

	parsed, err := dateparse.ParseIn(text, time.UTC)
	if err != nil {
		slog.Warn("Unable to parse date", "value", text)
		return nil
	}
	return applyKind(parsed, spec.Kind)
}

func parseISO(text string, kind config.DateKind) *time.Time {
	for _, layout := range isoLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return applyKind(parsed, kind)
		}
	}
	return nil
}

// applyKind reduces a parsed instant to midnight UTC for date-only specs.
func applyKind(parsed time.Time, kind config.DateKind) *time.Time {
	if kind == config.KindDate {
		parsed = time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC)
	}
	return &parsed
}

// trimDate removes non-alphanumeric characters from either side of the
// string, clearing decorations like dashes and bullet points.
func trimDate(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
