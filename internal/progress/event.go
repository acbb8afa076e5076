// Package progress defines the event stream emitted by the watch scheduler
// and fans it out to registered sinks.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Stage denotes the milestone represented by an Event.
type Stage string

// Supported stages.
const (
	StageRoundStart  Stage = "ROUND_START"
	StageRoundDone   Stage = "ROUND_DONE"
	StageFetchDone   Stage = "FETCH_DONE"
	StageMatchFound  Stage = "MATCH_FOUND"
	StageNotifySent  Stage = "NOTIFY_SENT"
	StageNotifyError Stage = "NOTIFY_ERROR"
)

// Result labels the outcome of a fetch or notification attempt.
type Result string

// Supported outcome labels.
const (
	ResultOK       Result = "ok"
	ResultError    Result = "error"
	ResultTooLarge Result = "too_large"
)

// Event captures a single watch-run milestone.
type Event struct {
	// RunID identifies the watch run that produced the event.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// Cycle is the round number, starting at 1.
	Cycle int
	// URL scopes fetch and match events to a page.
	URL string
	// Phrase scopes match and notify events to a search phrase.
	Phrase string
	// Found and Total carry tracker progress on round completion.
	Found int
	Total int
	// Result labels fetch/notify outcomes.
	Result Result
	// Dur captures fetch latency.
	Dur time.Duration
	// Note attaches low-volume context such as error text.
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRoundStart, StageRoundDone:
	case StageFetchDone:
		if e.URL == "" {
			return errors.New("fetch done requires url")
		}
		if e.Result == "" {
			return errors.New("fetch done requires result")
		}
	case StageMatchFound:
		if e.URL == "" || e.Phrase == "" {
			return errors.New("match found requires url and phrase")
		}
	case StageNotifySent, StageNotifyError:
		if e.Phrase == "" {
			return errors.New("notify events require phrase")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}
