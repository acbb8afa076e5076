package sinks

import (
	"context"

	"github.com/JakeFAU/sitewatch/internal/metrics"
	"github.com/JakeFAU/sitewatch/internal/progress"
)

// PrometheusSink translates watch events into the collectors registered by
// the metrics package.
type PrometheusSink struct{}

// NewPrometheusSink initializes the collectors and returns the sink.
func NewPrometheusSink() *PrometheusSink {
	metrics.Init()
	return &PrometheusSink{}
}

// Consume updates counters and gauges for each event.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		switch evt.Stage {
		case progress.StageRoundDone:
			metrics.RecordRound(evt.Found, evt.Total)
		case progress.StageFetchDone:
			metrics.RecordFetch(string(evt.Result), evt.Dur)
		case progress.StageMatchFound:
			metrics.RecordMatch()
		case progress.StageNotifySent:
			metrics.RecordNotification(string(progress.ResultOK))
		case progress.StageNotifyError:
			metrics.RecordNotification(string(progress.ResultError))
		}
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}
