package extract

import (
	"bytes"
	"fmt"
	"log/slog"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"

	"github.com/wezm/rsspls/app/config"
)

// Extractor applies a feed's CSS selector rule to a parsed page.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Parse decodes a response body to UTF-8 and parses it into a document with
// all href/src attributes rewritten to absolute URLs against the page URL.
func Parse(body []byte, contentType, pageURL string) (*goquery.Document, error) {
	reader, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page URL %s: %w", pageURL, err)
	}
	rewriteURLs(doc, base)

	return doc, nil
}

// rewriteURLs makes every href and src attribute absolute so extracted links
// and links inside summaries survive outside the page.
func rewriteURLs(doc *goquery.Document, base *url.URL) {
	for _, attr := range []string{"href", "src"} {
		doc.Find("[" + attr + "]").Each(func(i int, s *goquery.Selection) {
			val, _ := s.Attr(attr)
			resolved, err := base.Parse(val)
			if err != nil {
				return
			}
			s.SetAttr(attr, resolved.String())
		})
	}
}

// Run extracts items in document order of the rule's item-container matches.
// Sub-selectors are resolved within each container match only.
func (e *Extractor) Run(doc *goquery.Document, rule *config.Rule) ([]Item, error) {
	linkSelector := rule.Link
	if linkSelector == "" {
		slog.Info("No explicit link selector provided, falling back to heading selector",
			"heading", rule.Heading)
		linkSelector = rule.Heading
	}

	var items []Item
	doc.Find(rule.Item).Each(func(i int, container *goquery.Selection) {
		item, ok := e.extractItem(container, rule, linkSelector)
		if !ok {
			slog.Debug("Dropping item with neither title nor link", "index", i, "item", rule.Item)
			return
		}
		items = append(items, item)
	})

	return items, nil
}

func (e *Extractor) extractItem(container *goquery.Selection, rule *config.Rule, linkSelector string) (Item, bool) {
	var item Item

	heading := container.Find(rule.Heading).First()
	item.Title = strings.TrimSpace(heading.Text())

	linkEl := container.Find(linkSelector).First()
	if href, ok := linkEl.Attr("href"); ok {
		item.Link = href
	} else if linkEl.Length() > 0 {
		slog.Warn("Element selected as link has no 'href' attribute", "selector", linkSelector)
	}

	if item.Title == "" && item.Link == "" {
		return Item{}, false
	}

	if rule.Summary != "" {
		summary := container.Find(rule.Summary).First()
		if summary.Length() == 0 {
			slog.Warn("Summary selector did not match anything",
				"selector", rule.Summary, "title", item.Title)
		} else if html, err := summary.Html(); err == nil {
			item.Summary = strings.TrimSpace(html)
		}
	}

	if rule.Media != "" {
		item.EnclosureURL, item.EnclosureType = e.extractMedia(container, rule.Media)
	}

	if rule.Date != nil {
		item.PublishedAt = e.extractDate(container, rule.Date)
	}

	return item, true
}

// extractMedia resolves the media selector to an enclosure URL and a MIME
// type guessed from the URL's path extension.
func (e *Extractor) extractMedia(container *goquery.Selection, selector string) (string, string) {
	media := container.Find(selector).First()
	if media.Length() == 0 {
		return "", ""
	}

	mediaURL, ok := media.Attr("src")
	if !ok {
		mediaURL, ok = media.Attr("href")
	}
	if !ok || mediaURL == "" {
		slog.Warn("Element selected as media has no 'src' or 'href' attribute", "selector", selector)
		return "", ""
	}

	mimeType := "application/octet-stream"
	if parsed, err := url.Parse(mediaURL); err == nil {
		if ext := path.Ext(parsed.Path); ext != "" {
			if guessed := mime.TypeByExtension(ext); guessed != "" {
				mimeType = guessed
			}
		}
	}

	return mediaURL, mimeType
}
