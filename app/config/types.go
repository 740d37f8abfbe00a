package config

import "fmt"

// Config is the parsed feed definitions file.
type Config struct {
	Rsspls Settings `toml:"rsspls"`
	Feeds  []Feed   `toml:"feed"`
}

// Settings contains process-wide options from the [rsspls] table.
type Settings struct {
	Output string `toml:"output"`
}

// Feed defines one generated feed: channel metadata plus the extraction rule.
type Feed struct {
	Title     string `toml:"title"`
	Filename  string `toml:"filename"`
	UserAgent string `toml:"user_agent"`
	Rule      Rule   `toml:"config"`
}

// Rule holds the CSS selectors applied to the source page.
type Rule struct {
	URL     string    `toml:"url"`
	Item    string    `toml:"item"`
	Heading string    `toml:"heading"`
	Link    string    `toml:"link"`
	Summary string    `toml:"summary"`
	Media   string    `toml:"media"`
	Date    *DateSpec `toml:"date"`
}

type DateKind string

const (
	KindDate     DateKind = "date"
	KindDateTime DateKind = "datetime"
)

// DateSpec selects and describes the publication date element. In TOML it is
// either a bare selector string or a table with selector/type/format keys.
type DateSpec struct {
	Selector string
	Kind     DateKind
	Format   string // Go reference layout; empty means heuristic parsing
}

// UnmarshalTOML accepts both the shorthand string form and the table form.
func (d *DateSpec) UnmarshalTOML(v interface{}) error {
	switch value := v.(type) {
	case string:
		d.Selector = value
		d.Kind = KindDateTime
		return nil
	case map[string]interface{}:
		selector, ok := value["selector"].(string)
		if !ok || selector == "" {
			return fmt.Errorf("date table requires a 'selector' key")
		}
		d.Selector = selector
		d.Kind = KindDateTime
		if kind, ok := value["type"].(string); ok {
			switch DateKind(kind) {
			case KindDate, KindDateTime:
				d.Kind = DateKind(kind)
			default:
				return fmt.Errorf("invalid date type: %s", kind)
			}
		}
		if format, ok := value["format"].(string); ok {
			d.Format = format
		}
		return nil
	default:
		return fmt.Errorf("date must be a selector string or a table")
	}
}
