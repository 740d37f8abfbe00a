package api

// StatsResponse is the payload of the /stats endpoint.
type StatsResponse struct {
	ConfiguredFeeds int    `json:"configured_feeds"`
	CachedPages     int    `json:"cached_pages"`
	WrittenOutputs  int    `json:"written_outputs"`
	OldestFetch     string `json:"oldest_fetch,omitempty"`
}
