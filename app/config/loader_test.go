package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "feeds.toml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoadFullConfig(t *testing.T) {
	path := writeConfig(t, `
[rsspls]
output = "~/feeds"

[[feed]]
title = "Example Blog"
filename = "blog.rss"
user_agent = "custom-agent/1.0"

[feed.config]
url = "https://example.com/blog"
item = "article"
heading = "h3"
link = "h3 a"
summary = ".summary"
media = "img.cover"

[feed.config.date]
selector = "time"
type = "date"
format = "2006-01-02"

[[feed]]
title = "News"
filename = "news.rss"

[feed.config]
url = "https://example.com/news"
item = ".post"
heading = "h2"
date = ".posted-on"
`)

	config, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if config.Rsspls.Output != "~/feeds" {
		t.Errorf("Expected output '~/feeds', got '%s'", config.Rsspls.Output)
	}
	if len(config.Feeds) != 2 {
		t.Fatalf("Expected 2 feeds, got %d", len(config.Feeds))
	}

	first := config.Feeds[0]
	if first.Title != "Example Blog" {
		t.Errorf("Expected title 'Example Blog', got '%s'", first.Title)
	}
	if first.UserAgent != "custom-agent/1.0" {
		t.Errorf("Expected user agent override, got '%s'", first.UserAgent)
	}
	if first.Rule.Link != "h3 a" {
		t.Errorf("Expected link selector 'h3 a', got '%s'", first.Rule.Link)
	}
	if first.Rule.Date == nil {
		t.Fatal("Expected date spec to be set")
	}
	if first.Rule.Date.Selector != "time" {
		t.Errorf("Expected date selector 'time', got '%s'", first.Rule.Date.Selector)
	}
	if first.Rule.Date.Kind != KindDate {
		t.Errorf("Expected date kind 'date', got '%s'", first.Rule.Date.Kind)
	}
	if first.Rule.Date.Format != "2006-01-02" {
		t.Errorf("Expected format '2006-01-02', got '%s'", first.Rule.Date.Format)
	}

	second := config.Feeds[1]
	if second.Rule.Link != "" {
		t.Errorf("Expected no link selector, got '%s'", second.Rule.Link)
	}
	if second.Rule.Date == nil {
		t.Fatal("Expected shorthand date spec to be set")
	}
	if second.Rule.Date.Selector != ".posted-on" {
		t.Errorf("Expected date selector '.posted-on', got '%s'", second.Rule.Date.Selector)
	}
	if second.Rule.Date.Kind != KindDateTime {
		t.Errorf("Shorthand date spec should default to datetime, got '%s'", second.Rule.Date.Kind)
	}
}

func TestLoadRejectsDuplicateFilenames(t *testing.T) {
	path := writeConfig(t, `
[[feed]]
title = "One"
filename = "same.rss"

[feed.config]
url = "https://example.com/one"
item = "article"
heading = "h2"

[[feed]]
title = "Two"
filename = "same.rss"

[feed.config]
url = "https://example.com/two"
item = "article"
heading = "h2"
`)

	_, err := NewLoader(path).Load()
	if err == nil {
		t.Fatal("Expected duplicate filename error")
	}
	if !strings.Contains(err.Error(), "same.rss") {
		t.Errorf("Error should name the duplicate filename, got: %v", err)
	}
}

func TestLoadRejectsPathSeparators(t *testing.T) {
	path := writeConfig(t, `
[[feed]]
title = "Escape"
filename = "../escape.rss"

[feed.config]
url = "https://example.com"
item = "article"
heading = "h2"
`)

	_, err := NewLoader(path).Load()
	if err == nil {
		t.Fatal("Expected path separator error")
	}
}

func TestLoadRejectsMissingSelectors(t *testing.T) {
	path := writeConfig(t, `
[[feed]]
title = "No Item"
filename = "a.rss"

[feed.config]
url = "https://example.com"
heading = "h2"
`)

	_, err := NewLoader(path).Load()
	if err == nil {
		t.Fatal("Expected missing item selector error")
	}
}

func TestLoadRejectsBadScheme(t *testing.T) {
	path := writeConfig(t, `
[[feed]]
title = "FTP"
filename = "a.rss"

[feed.config]
url = "ftp://example.com"
item = "article"
heading = "h2"
`)

	_, err := NewLoader(path).Load()
	if err == nil {
		t.Fatal("Expected scheme error")
	}
}

func TestLoadRejectsInvalidDateType(t *testing.T) {
	path := writeConfig(t, `
[[feed]]
title = "Bad Date"
filename = "a.rss"

[feed.config]
url = "https://example.com"
item = "article"
heading = "h2"

[feed.config.date]
selector = "time"
type = "timestamp"
`)

	_, err := NewLoader(path).Load()
	if err == nil {
		t.Fatal("Expected invalid date type error")
	}
}

func TestExpandTilde(t *testing.T) {
	if got := ExpandTilde("asdf", "/home/foo"); got != "asdf" {
		t.Errorf("Expected 'asdf', got '%s'", got)
	}
	if got := ExpandTilde("~asdf", "/home/foo"); got != "~asdf" {
		t.Errorf("Expected '~asdf', got '%s'", got)
	}
	if got := ExpandTilde("~/some/where", "/home/foo"); got != "/home/foo/some/where" {
		t.Errorf("Expected '/home/foo/some/where', got '%s'", got)
	}
	if got := ExpandTilde("~", "/home/foo"); got != "/home/foo" {
		t.Errorf("Expected '/home/foo', got '%s'", got)
	}
}
