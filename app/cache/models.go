package cache

import (
	"time"
)

// Record holds the HTTP cache validators and content fingerprint for one
// source URL. A record is replaced as a whole on every non-cached fetch.
type Record struct {
	URL          string
	ETag         string // raw ETag header value, replayed into If-None-Match
	LastModified string // raw Last-Modified header value
	Fingerprint  string // hex sha256 of the raw response body
	FetchedAt    time.Time
}

// Stats contains cache statistics
type Stats struct {
	Pages       int
	Outputs     int
	OldestFetch time.Time
}
