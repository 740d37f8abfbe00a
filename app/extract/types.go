package extract

import (
	"time"
)

// Item is one entry extracted from the source page. Title and Link are
// best-effort; an item missing both is never emitted.
type Item struct {
	Title         string
	Link          string
	Summary       string // inner HTML of the summary match, inline markup preserved
	PublishedAt   *time.Time
	EnclosureURL  string
	EnclosureType string
}
