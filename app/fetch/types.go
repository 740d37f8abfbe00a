package fetch

import (
	"fmt"

	"github.com/wezm/rsspls/app/cache"
)

type Outcome int

const (
	// OutcomeModified means the server returned new content.
	OutcomeModified Outcome = iota
	// OutcomeNotModified means the server confirmed the cached validators
	// still match (304); no body was returned.
	OutcomeNotModified
)

// Result is the outcome of one conditional retrieval.
type Result struct {
	Outcome     Outcome
	Body        []byte
	ContentType string
	// Record carries the new validators and fingerprint for a modified
	// response. Zero value when the outcome is OutcomeNotModified.
	Record cache.Record
	// Unchanged reports that the body fingerprint matches the prior record
	// even though the server did not answer 304. The caller decides what to
	// do with it; a 2xx is always reported as modified here.
	Unchanged bool
}

// StatusError reports a response status outside 2xx/304.
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.Status)
}
