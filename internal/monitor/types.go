// Package monitor defines core types shared across the watch subsystems.
package monitor

import (
	"net/http"
	"time"
)

// Target is a single (URL, phrase) combination under independent tracking.
// The full watch set is the cartesian product of the configured URL and
// phrase lists.
type Target struct {
	URL    string `json:"url"`
	Phrase string `json:"phrase"`
}

// CombinationState records whether a Target has been found and, if so, when
// and with what supporting evidence. Found never reverts to pending.
type CombinationState struct {
	Found    bool       `json:"found"`
	FoundAt  *time.Time `json:"found_at,omitempty"`
	Evidence *Evidence  `json:"evidence,omitempty"`
}

// Evidence carries best-effort context attached to a match for notification
// payload enrichment. Any field may be empty.
type Evidence struct {
	SurfaceKind SurfaceKind `json:"surface_kind"`
	Snippet     string      `json:"snippet,omitempty"`
	Link        string      `json:"link,omitempty"`
	Price       string      `json:"price,omitempty"`
}

// MatchResult is returned by the matcher for one (surfaces, phrase) check.
type MatchResult struct {
	Matched  bool
	Evidence *Evidence
}

// SurfaceKind names a category of page content examined for matches.
type SurfaceKind string

// Surface kinds, in truncation priority order (body text first).
const (
	SurfaceBodyText  SurfaceKind = "body_text"
	SurfaceTitleMeta SurfaceKind = "title_meta"
	SurfaceImageAlt  SurfaceKind = "image_alt"
	SurfaceLinkText  SurfaceKind = "link_text"
	SurfaceLinkTitle SurfaceKind = "link_title"
	SurfaceLinkHref  SurfaceKind = "link_href"
	SurfaceDataAttr  SurfaceKind = "data_attr"
	SurfaceFormValue SurfaceKind = "form_value"
	SurfaceSourceURL SurfaceKind = "source_url"
)

// Surface is one piece of raw extracted text tagged with its origin.
type Surface struct {
	Kind SurfaceKind
	Text string
}

// Phase represents the lifecycle state of a watch run.
type Phase string

// Watch run phases.
const (
	PhaseIdle      Phase = "idle"
	PhaseRunning   Phase = "running"
	PhaseCompleted Phase = "completed"
	PhaseStopped   Phase = "stopped"
	PhaseFailed    Phase = "failed"
)

// ProcessState is the aggregate snapshot exposed by the scheduler.
type ProcessState struct {
	Phase     Phase     `json:"phase"`
	Cycle     int       `json:"cycle"`
	Found     int       `json:"found"`
	Total     int       `json:"total"`
	StartedAt time.Time `json:"started_at,omitempty"`
}

// URLOutcome labels the per-URL result of one round.
type URLOutcome string

// Per-URL round outcomes.
const (
	OutcomeMatched   URLOutcome = "matched"
	OutcomeNoMatch   URLOutcome = "no_match"
	OutcomeFetchFail URLOutcome = "fetch_failed"
)

// RoundResult is the outcome of one poll round for a single URL: either a
// fetch failure with its reason, or the phrases newly matched on that URL.
type RoundResult struct {
	URL            string
	Outcome        URLOutcome
	Err            error
	MatchedPhrases []string
}

// FetchRequest captures everything needed to fetch one page.
type FetchRequest struct {
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// Notification is the payload handed to a Notifier.
type Notification struct {
	Title    string
	Message  string
	Priority int
	Sound    string
}
