package feed

import (
	"time"
)

// Channel is the assembled feed document before serialization. Serialization
// is a pure function of this value.
type Channel struct {
	Title       string
	Link        string
	Description string
	Items       []Item
}

type Item struct {
	GUID          string
	Title         string
	Link          string
	Description   string // may contain escaped inline HTML
	PublishedAt   *time.Time
	EnclosureURL  string
	EnclosureType string
}
