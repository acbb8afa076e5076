package monitor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/progress"
)

// MaxWorkersCap is the hard ceiling on concurrent per-URL checks.
const MaxWorkersCap = 10

// notificationTextLimit caps the matched-text snippet in notifications.
const notificationTextLimit = 150

// notifyTimeout bounds a single notification delivery once it has been
// detached from the run context.
const notifyTimeout = 30 * time.Second

// SchedulerConfig captures the watch set and pacing knobs. Extra request
// headers are the fetcher's concern, not the scheduler's.
type SchedulerConfig struct {
	URLs       []string
	Phrases    []string
	Interval   time.Duration
	AutoStop   bool
	MaxWorkers int

	NotificationTitle    string
	NotificationPriority int
	NotificationSound    string
}

// Scheduler drives poll rounds: it fans page checks out over a bounded
// worker pool, routes matches through the tracker, and delivers at-most-once
// notifications. It owns ProcessState; combination state belongs to the
// tracker alone.
type Scheduler struct {
	cfg       SchedulerConfig
	fetcher   Fetcher
	notifier  Notifier
	extractor *Extractor
	tracker   *Tracker
	emitter   progress.Emitter
	clock     Clock
	hasher    Hasher
	logger    *zap.Logger
	runID     uuid.UUID

	// phrase -> canonical form, computed once at construction
	normalized map[string]string

	mu        sync.Mutex
	phase     Phase
	cycle     int
	startedAt time.Time

	// hashMu guards lastHashes, the per-URL digest of the last body that
	// extracted successfully. An unchanged page cannot produce new matches
	// for phrases that were already pending, so matching is skipped.
	hashMu     sync.Mutex
	lastHashes map[string]string
}

// notifyJob is queued by round workers and drained after the round.
type notifyJob struct {
	target   Target
	evidence *Evidence
}

// NewScheduler validates the watch set and wires the collaborators. An
// empty URL or phrase list, or a phrase that normalizes to the empty
// string, is a fatal configuration error.
func NewScheduler(
	cfg SchedulerConfig,
	fetcher Fetcher,
	notifier Notifier,
	extractor *Extractor,
	tracker *Tracker,
	emitter progress.Emitter,
	clock Clock,
	hasher Hasher,
	logger *zap.Logger,
) (*Scheduler, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.New("at least one URL is required")
	}
	if len(cfg.Phrases) == 0 {
		return nil, errors.New("at least one search phrase is required")
	}
	normalized := make(map[string]string, len(cfg.Phrases))
	for _, phrase := range cfg.Phrases {
		canonical := Normalize(phrase)
		if canonical == "" {
			return nil, fmt.Errorf("phrase %q normalizes to an empty string", phrase)
		}
		normalized[phrase] = canonical
	}
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = 4
	}
	if cfg.MaxWorkers > MaxWorkersCap {
		cfg.MaxWorkers = MaxWorkersCap
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = progress.Nop{}
	}
	return &Scheduler{
		cfg:        cfg,
		fetcher:    fetcher,
		notifier:   notifier,
		extractor:  extractor,
		tracker:    tracker,
		emitter:    emitter,
		clock:      clock,
		hasher:     hasher,
		logger:     logger,
		runID:      uuid.New(),
		normalized: normalized,
		phase:      PhaseIdle,
		lastHashes: make(map[string]string),
	}, nil
}

// RunID identifies this watch run in progress events.
func (s *Scheduler) RunID() uuid.UUID {
	return s.runID
}

// Status returns a snapshot of the aggregate run state.
func (s *Scheduler) Status() ProcessState {
	s.mu.Lock()
	defer s.mu.Unlock()
	found, total := s.tracker.Progress()
	return ProcessState{
		Phase:     s.phase,
		Cycle:     s.cycle,
		Found:     found,
		Total:     total,
		StartedAt: s.startedAt,
	}
}

func (s *Scheduler) setPhase(p Phase) {
	s.mu.Lock()
	s.phase = p
	s.mu.Unlock()
}

// Run executes rounds until all combinations are found (when auto-stop is
// enabled) or ctx is canceled. Per-URL and per-notification failures never
// terminate the run. Rounds are paced start-to-start on the configured
// interval; an overrunning round starts the next one immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.phase != PhaseIdle {
		s.mu.Unlock()
		return fmt.Errorf("scheduler already %s", s.phase)
	}
	s.phase = PhaseRunning
	s.startedAt = s.clock.Now()
	s.mu.Unlock()

	s.sendStartupNotification(ctx)

	for {
		if ctx.Err() != nil {
			s.setPhase(PhaseStopped)
			return ctx.Err()
		}

		roundStart := time.Now()
		s.runRound(ctx)

		if s.cfg.AutoStop && s.tracker.AllFound() {
			s.setPhase(PhaseCompleted)
			s.sendCompletionSummary(ctx)
			found, total := s.tracker.Progress()
			s.logger.Info("all combinations found, stopping watch",
				zap.Int("found", found), zap.Int("total", total))
			return nil
		}

		wait := s.cfg.Interval - time.Since(roundStart)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				s.setPhase(PhaseStopped)
				return ctx.Err()
			case <-timer.C:
			}
		}
	}
}

// RunOnce executes a single round and reports tracker progress, for
// one-shot invocations.
func (s *Scheduler) RunOnce(ctx context.Context) (found, total int) {
	s.mu.Lock()
	if s.phase == PhaseIdle {
		s.phase = PhaseRunning
		s.startedAt = s.clock.Now()
	}
	s.mu.Unlock()
	s.runRound(ctx)
	s.setPhase(PhaseStopped)
	return s.tracker.Progress()
}

func (s *Scheduler) runRound(ctx context.Context) {
	s.mu.Lock()
	s.cycle++
	cycle := s.cycle
	s.mu.Unlock()

	s.emitter.Emit(progress.Event{
		RunID: s.runID, TS: s.clock.Now().UTC(), Stage: progress.StageRoundStart, Cycle: cycle,
	})

	workers := len(s.cfg.URLs)
	if workers > s.cfg.MaxWorkers {
		workers = s.cfg.MaxWorkers
	}
	sem := make(chan struct{}, workers)
	jobCh := make(chan notifyJob, len(s.cfg.URLs)*len(s.cfg.Phrases))
	resultCh := make(chan RoundResult, len(s.cfg.URLs))

	var wg sync.WaitGroup
	for _, url := range s.cfg.URLs {
		wg.Add(1)
		go func(url string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			resultCh <- s.checkURL(ctx, cycle, url, jobCh)
		}(url)
	}
	wg.Wait()
	close(jobCh)
	close(resultCh)

	for res := range resultCh {
		if res.Outcome == OutcomeFetchFail {
			s.logger.Warn("page check failed this round",
				zap.Int("cycle", cycle), zap.String("url", res.URL), zap.Error(res.Err))
		}
	}

	// Notifications are fire-and-forget relative to the tracker: the target
	// stays found even when delivery fails.
	for job := range jobCh {
		s.deliver(ctx, cycle, job)
	}

	found, total := s.tracker.Progress()
	s.emitter.Emit(progress.Event{
		RunID: s.runID, TS: s.clock.Now().UTC(), Stage: progress.StageRoundDone,
		Cycle: cycle, Found: found, Total: total,
	})
	s.logger.Info("round complete",
		zap.Int("cycle", cycle), zap.Int("found", found), zap.Int("total", total))
}

// checkURL runs the fetch-extract-match pipeline for one URL. Fetch and
// extraction failures are contained to this round; pending combinations for
// the URL stay pending.
func (s *Scheduler) checkURL(ctx context.Context, cycle int, url string, jobCh chan<- notifyJob) RoundResult {
	pending := s.tracker.PendingPhrases(url, s.cfg.Phrases)
	if len(pending) == 0 {
		return RoundResult{URL: url, Outcome: OutcomeNoMatch}
	}

	start := time.Now()
	resp, err := s.fetcher.Fetch(ctx, FetchRequest{URL: url})
	if err != nil {
		s.emitFetch(cycle, url, progress.ResultError, time.Since(start), err)
		return RoundResult{URL: url, Outcome: OutcomeFetchFail, Err: err}
	}

	digest, unchanged := s.contentUnchanged(url, resp.Body)
	if unchanged {
		s.emitFetch(cycle, url, progress.ResultOK, time.Since(start), nil)
		s.logger.Debug("page content unchanged, skipping match",
			zap.Int("cycle", cycle), zap.String("url", url))
		return RoundResult{URL: url, Outcome: OutcomeNoMatch}
	}

	surfaces, err := s.extractor.Extract(resp.Body, url)
	if err != nil {
		result := progress.ResultError
		if errors.Is(err, ErrContentTooLarge) {
			result = progress.ResultTooLarge
		}
		s.emitFetch(cycle, url, result, time.Since(start), err)
		return RoundResult{URL: url, Outcome: OutcomeFetchFail, Err: err}
	}
	s.rememberDigest(url, digest)
	s.emitFetch(cycle, url, progress.ResultOK, time.Since(start), nil)

	var matched []string
	for _, phrase := range pending {
		res := Match(surfaces, s.normalized[phrase])
		if !res.Matched {
			continue
		}
		target := Target{URL: url, Phrase: phrase}
		if !s.tracker.TryMarkFound(target, res.Evidence) {
			// another worker won the race for this combination
			continue
		}
		matched = append(matched, phrase)
		s.emitter.Emit(progress.Event{
			RunID: s.runID, TS: s.clock.Now().UTC(), Stage: progress.StageMatchFound,
			Cycle: cycle, URL: url, Phrase: phrase,
		})
		s.logger.Info("phrase found",
			zap.Int("cycle", cycle), zap.String("url", url), zap.String("phrase", phrase))
		jobCh <- notifyJob{target: target, evidence: res.Evidence}
	}

	outcome := OutcomeNoMatch
	if len(matched) > 0 {
		outcome = OutcomeMatched
	}
	return RoundResult{URL: url, Outcome: outcome, MatchedPhrases: matched}
}

// contentUnchanged hashes the body and reports whether it matches the
// digest of the last successfully extracted body for url. Phrases pending
// against an unchanged page cannot newly match, so the caller skips
// extraction. Hashing failures disable the shortcut. The digest is only
// remembered via rememberDigest once extraction succeeds: an oversized page
// must keep reporting a fetch failure on every round, not read as
// unchanged-and-healthy from the second round on.
func (s *Scheduler) contentUnchanged(url string, body []byte) (digest string, unchanged bool) {
	if s.hasher == nil {
		return "", false
	}
	digest, err := s.hasher.Hash(body)
	if err != nil {
		return "", false
	}
	s.hashMu.Lock()
	defer s.hashMu.Unlock()
	return digest, s.lastHashes[url] == digest
}

func (s *Scheduler) rememberDigest(url, digest string) {
	if digest == "" {
		return
	}
	s.hashMu.Lock()
	s.lastHashes[url] = digest
	s.hashMu.Unlock()
}

func (s *Scheduler) emitFetch(cycle int, url string, result progress.Result, dur time.Duration, err error) {
	evt := progress.Event{
		RunID: s.runID, TS: s.clock.Now().UTC(), Stage: progress.StageFetchDone,
		Cycle: cycle, URL: url, Result: result, Dur: dur,
	}
	if err != nil {
		evt.Note = err.Error()
	}
	s.emitter.Emit(evt)
}

// deliver sends one found notification. The target gets exactly one
// attempt, so delivery is detached from run cancellation: a phrase found in
// the same round as a stop signal must still reach the notifier.
func (s *Scheduler) deliver(ctx context.Context, cycle int, job notifyJob) {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	title := s.cfg.NotificationTitle
	if title == "" {
		title = fmt.Sprintf("Found: %s", job.target.Phrase)
	}
	n := Notification{
		Title:    title,
		Message:  renderFoundMessage(job.target, job.evidence),
		Priority: s.cfg.NotificationPriority,
		Sound:    s.cfg.NotificationSound,
	}
	evt := progress.Event{
		RunID: s.runID, TS: s.clock.Now().UTC(), Cycle: cycle,
		URL: job.target.URL, Phrase: job.target.Phrase,
	}
	if err := s.notifier.Send(sendCtx, n); err != nil {
		evt.Stage = progress.StageNotifyError
		evt.Note = err.Error()
		s.emitter.Emit(evt)
		s.logger.Error("notification delivery failed",
			zap.String("url", job.target.URL), zap.String("phrase", job.target.Phrase), zap.Error(err))
		return
	}
	evt.Stage = progress.StageNotifySent
	s.emitter.Emit(evt)
}

func renderFoundMessage(target Target, ev *Evidence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%q FOUND!\n\nSite: %s\n", target.Phrase, target.URL)
	if ev != nil {
		fmt.Fprintf(&b, "\nSurface: %s\n", ev.SurfaceKind)
		if ev.Snippet != "" {
			fmt.Fprintf(&b, "Text: %s\n", truncate(ev.Snippet, notificationTextLimit))
		}
		if ev.Link != "" {
			fmt.Fprintf(&b, "Link: %s\n", ev.Link)
		}
		if ev.Price != "" {
			fmt.Fprintf(&b, "Price: %s\n", ev.Price)
		}
	}
	fmt.Fprintf(&b, "\nCheck immediately: %s", target.URL)
	return b.String()
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func (s *Scheduler) sendStartupNotification(ctx context.Context) {
	var b strings.Builder
	fmt.Fprintf(&b, "Site watch started.\n\nMonitoring %d URL(s):\n", len(s.cfg.URLs))
	for _, url := range s.cfg.URLs {
		fmt.Fprintf(&b, "- %s\n", url)
	}
	fmt.Fprintf(&b, "\nSearching for %d phrase(s):\n", len(s.cfg.Phrases))
	for _, phrase := range s.cfg.Phrases {
		fmt.Fprintf(&b, "- %s\n", phrase)
	}
	_, total := s.tracker.Progress()
	fmt.Fprintf(&b, "\nCheck interval: %s\nCombinations to find: %d", s.cfg.Interval, total)

	n := Notification{
		Title:    "Site Watch Started",
		Message:  b.String(),
		Priority: 0,
		Sound:    s.cfg.NotificationSound,
	}
	if err := s.notifier.Send(ctx, n); err != nil {
		s.logger.Warn("startup notification failed", zap.Error(err))
	}
}

func (s *Scheduler) sendCompletionSummary(ctx context.Context) {
	snapshot := s.tracker.Snapshot()
	targets := make([]Target, 0, len(snapshot))
	for target := range snapshot {
		targets = append(targets, target)
	}
	sort.Slice(targets, func(i, j int) bool {
		if targets[i].URL != targets[j].URL {
			return targets[i].URL < targets[j].URL
		}
		return targets[i].Phrase < targets[j].Phrase
	})

	var b strings.Builder
	fmt.Fprintf(&b, "All %d combinations have been found:\n\n", len(targets))
	lastURL := ""
	for _, target := range targets {
		if target.URL != lastURL {
			fmt.Fprintf(&b, "Site %s:\n", target.URL)
			lastURL = target.URL
		}
		st := snapshot[target]
		if st.FoundAt != nil {
			fmt.Fprintf(&b, "  [FOUND] %s (at %s)\n", target.Phrase, st.FoundAt.Format(time.RFC3339))
		} else {
			fmt.Fprintf(&b, "  [NOT FOUND] %s\n", target.Phrase)
		}
	}
	b.WriteString("\nThe watch will now stop to avoid duplicate notifications.")

	n := Notification{
		Title:    "Watch Complete - All Items Found",
		Message:  b.String(),
		Priority: s.cfg.NotificationPriority,
		Sound:    s.cfg.NotificationSound,
	}
	// The summary races a stop signal when the final find and SIGINT land in
	// the same round; it gets the same detached delivery as a find.
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	if err := s.notifier.Send(sendCtx, n); err != nil {
		s.logger.Warn("completion notification failed", zap.Error(err))
	}
}
