package monitor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/sitewatch/internal/progress"
)

type fakeFetcher struct {
	mu     sync.Mutex
	bodies map[string]string
	errs   map[string]error
	calls  map[string]int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		bodies: make(map[string]string),
		errs:   make(map[string]error),
		calls:  make(map[string]int),
	}
}

func (f *fakeFetcher) Fetch(_ context.Context, req FetchRequest) (FetchResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[req.URL]++
	if err := f.errs[req.URL]; err != nil {
		return FetchResponse{}, err
	}
	return FetchResponse{
		URL:        req.URL,
		StatusCode: 200,
		Body:       []byte(f.bodies[req.URL]),
		Duration:   time.Millisecond,
	}, nil
}

func (f *fakeFetcher) set(url, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[url] = body
	delete(f.errs, url)
}

func (f *fakeFetcher) fail(url string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[url] = err
}

func (f *fakeFetcher) callCount(url string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[url]
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []Notification
	err  error
}

func (n *fakeNotifier) Send(ctx context.Context, msg Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, msg)
	return nil
}

func (n *fakeNotifier) titles() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.sent))
	for _, msg := range n.sent {
		out = append(out, msg.Title)
	}
	return out
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type captureEmitter struct {
	mu     sync.Mutex
	events []progress.Event
}

func (e *captureEmitter) Emit(evt progress.Event) {
	e.mu.Lock()
	e.events = append(e.events, evt)
	e.mu.Unlock()
}

func (e *captureEmitter) fetchResults() []progress.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []progress.Result
	for _, evt := range e.events {
		if evt.Stage == progress.StageFetchDone {
			out = append(out, evt.Result)
		}
	}
	return out
}

type fakeHasher struct{}

func (fakeHasher) Hash(data []byte) (string, error) {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

func page(contents ...string) string {
	return fmt.Sprintf("<html><body>%s</body></html>", strings.Join(contents, " "))
}

func newTestScheduler(
	t *testing.T,
	cfg SchedulerConfig,
	fetcher Fetcher,
	notifier Notifier,
	hasher Hasher,
) *Scheduler {
	t.Helper()
	if cfg.Interval == 0 {
		cfg.Interval = 10 * time.Millisecond
	}
	clk := newFakeClock()
	tracker := NewTracker(cfg.URLs, cfg.Phrases, clk)
	s, err := NewScheduler(cfg, fetcher, notifier, NewExtractor(0, 0), tracker, nil, clk, hasher, zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestSchedulerRoundMatrix(t *testing.T) {
	t.Parallel()

	urlA := "https://a.example/shop"
	urlB := "https://b.example/shop"
	fetcher := newFakeFetcher()
	fetcher.set(urlA, page("the DJI Mini 5 Pro has landed"))
	fetcher.set(urlB, page("RTX-4090 back in stock"))
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, SchedulerConfig{
		URLs:    []string{urlA, urlB},
		Phrases: []string{"DJI Mini 5 Pro", "RTX 4090"},
	}, fetcher, notifier, nil)

	found, total := s.RunOnce(context.Background())
	assert.Equal(t, 2, found)
	assert.Equal(t, 4, total)

	// exactly two notifications, one per distinct target
	titles := notifier.titles()
	require.Len(t, titles, 2)
	assert.Contains(t, titles, "Found: DJI Mini 5 Pro")
	assert.Contains(t, titles, "Found: RTX 4090")

	assert.Equal(t, 1, fetcher.callCount(urlA))
	assert.Equal(t, 1, fetcher.callCount(urlB))
}

func TestSchedulerAutoStopCompletes(t *testing.T) {
	t.Parallel()

	urlA := "https://a.example"
	urlB := "https://b.example"
	body := page("DJI Mini 5 Pro and RTX 4090 both here")
	fetcher := newFakeFetcher()
	fetcher.set(urlA, body)
	fetcher.set(urlB, body)
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, SchedulerConfig{
		URLs:     []string{urlA, urlB},
		Phrases:  []string{"DJI Mini 5 Pro", "RTX 4090"},
		AutoStop: true,
	}, fetcher, notifier, nil)

	require.NoError(t, s.Run(context.Background()))
	assert.Equal(t, PhaseCompleted, s.Status().Phase)
	assert.Equal(t, 1, s.Status().Cycle, "no further rounds after completion")

	// startup + 4 finds + completion summary
	assert.Equal(t, 6, notifier.count())
	titles := notifier.titles()
	assert.Equal(t, "Site Watch Started", titles[0])
	assert.Equal(t, "Watch Complete - All Items Found", titles[len(titles)-1])
}

func TestSchedulerFetchFailureIsolated(t *testing.T) {
	t.Parallel()

	urlA := "https://down.example"
	urlB := "https://up.example"
	fetcher := newFakeFetcher()
	fetcher.fail(urlA, errors.New("connect refused"))
	fetcher.set(urlB, page("DJI Mini 5 Pro available"))
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, SchedulerConfig{
		URLs:    []string{urlA, urlB},
		Phrases: []string{"DJI Mini 5 Pro"},
	}, fetcher, notifier, nil)

	found, total := s.RunOnce(context.Background())
	assert.Equal(t, 1, found)
	assert.Equal(t, 2, total)
	assert.Equal(t, 1, notifier.count())

	// the failed URL's combination stays pending and is retried next round
	fetcher.set(urlA, page("DJI Mini 5 Pro restocked"))
	s.runRound(context.Background())
	found, _ = s.tracker.Progress()
	assert.Equal(t, 2, found)
	assert.Equal(t, 2, notifier.count())
}

func TestSchedulerContentTooLargeIsFetchFailure(t *testing.T) {
	t.Parallel()

	url := "https://big.example"
	fetcher := newFakeFetcher()
	fetcher.set(url, strings.Repeat("x", 200))
	notifier := &fakeNotifier{}

	clk := newFakeClock()
	tracker := NewTracker([]string{url}, []string{"phrase"}, clk)
	s, err := NewScheduler(SchedulerConfig{
		URLs:     []string{url},
		Phrases:  []string{"phrase"},
		Interval: 10 * time.Millisecond,
	}, fetcher, notifier, NewExtractor(100, 0), tracker, nil, clk, nil, zap.NewNop())
	require.NoError(t, err)

	found, total := s.RunOnce(context.Background())
	assert.Zero(t, found)
	assert.Equal(t, 1, total)
	assert.Zero(t, notifier.count())
}

func TestSchedulerOversizedPageStaysFetchFailure(t *testing.T) {
	t.Parallel()

	url := "https://big.example"
	fetcher := newFakeFetcher()
	fetcher.set(url, strings.Repeat("x", 200))
	notifier := &fakeNotifier{}
	emitter := &captureEmitter{}

	clk := newFakeClock()
	tracker := NewTracker([]string{url}, []string{"restock alert"}, clk)
	s, err := NewScheduler(SchedulerConfig{
		URLs:     []string{url},
		Phrases:  []string{"restock alert"},
		Interval: 10 * time.Millisecond,
	}, fetcher, notifier, NewExtractor(100, 0), tracker, emitter, clk, fakeHasher{}, zap.NewNop())
	require.NoError(t, err)

	// the identical oversized body must fail every round, not read as
	// unchanged-and-healthy from the second round on
	s.runRound(context.Background())
	s.runRound(context.Background())

	results := emitter.fetchResults()
	require.Len(t, results, 2)
	assert.Equal(t, progress.ResultTooLarge, results[0])
	assert.Equal(t, progress.ResultTooLarge, results[1])
	found, _ := s.tracker.Progress()
	assert.Zero(t, found)
	assert.Zero(t, notifier.count())

	// once the page shrinks under the cap it is processed normally
	fetcher.set(url, page("restock alert issued"))
	s.runRound(context.Background())
	found, _ = s.tracker.Progress()
	assert.Equal(t, 1, found)
	assert.Equal(t, 1, notifier.count())
}

func TestSchedulerDuplicateSuppression(t *testing.T) {
	t.Parallel()

	url := "https://a.example"
	fetcher := newFakeFetcher()
	fetcher.set(url, page("DJI Mini 5 Pro here", "and again: dji-mini-5-pro"))
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, SchedulerConfig{
		URLs:    []string{url},
		Phrases: []string{"DJI Mini 5 Pro", "RTX 4090"},
	}, fetcher, notifier, nil)

	s.runRound(context.Background())
	assert.Equal(t, 1, notifier.count(), "one notification despite multiple matching surfaces")

	s.runRound(context.Background())
	s.runRound(context.Background())
	assert.Equal(t, 1, notifier.count(), "no duplicates on later rounds")
	found, _ := s.tracker.Progress()
	assert.Equal(t, 1, found)
}

func TestSchedulerUnchangedContentSkipsMatching(t *testing.T) {
	t.Parallel()

	url := "https://a.example"
	fetcher := newFakeFetcher()
	fetcher.set(url, page("DJI Mini 5 Pro only"))
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, SchedulerConfig{
		URLs:    []string{url},
		Phrases: []string{"DJI Mini 5 Pro", "RTX 4090"},
	}, fetcher, notifier, fakeHasher{})

	s.runRound(context.Background())
	found, _ := s.tracker.Progress()
	assert.Equal(t, 1, found)

	// identical content: fetched again, but no re-extraction or new finds
	s.runRound(context.Background())
	found, _ = s.tracker.Progress()
	assert.Equal(t, 1, found)
	assert.Equal(t, 2, fetcher.callCount(url))

	// changed content with the second phrase is picked up
	fetcher.set(url, page("DJI Mini 5 Pro and RTX 4090"))
	s.runRound(context.Background())
	found, _ = s.tracker.Progress()
	assert.Equal(t, 2, found)
	assert.Equal(t, 2, notifier.count())
}

func TestSchedulerNotificationFailureDoesNotRevertState(t *testing.T) {
	t.Parallel()

	url := "https://a.example"
	fetcher := newFakeFetcher()
	fetcher.set(url, page("DJI Mini 5 Pro available"))
	notifier := &fakeNotifier{err: errors.New("pushover unavailable")}

	s := newTestScheduler(t, SchedulerConfig{
		URLs:    []string{url},
		Phrases: []string{"DJI Mini 5 Pro"},
	}, fetcher, notifier, nil)

	s.runRound(context.Background())
	assert.True(t, s.tracker.IsFound(Target{URL: url, Phrase: "DJI Mini 5 Pro"}))

	// delivery is not re-attempted: the target is found, so it is skipped
	s.runRound(context.Background())
	assert.Zero(t, notifier.count())
	found, _ := s.tracker.Progress()
	assert.Equal(t, 1, found)
}

func TestSchedulerDeliversFindFromInterruptedRound(t *testing.T) {
	t.Parallel()

	url := "https://a.example"
	fetcher := newFakeFetcher()
	fetcher.set(url, page("DJI Mini 5 Pro available"))
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, SchedulerConfig{
		URLs:    []string{url},
		Phrases: []string{"DJI Mini 5 Pro"},
	}, fetcher, notifier, nil)

	// a stop signal during the round must not cost the found target its
	// single delivery attempt
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.runRound(ctx)

	assert.True(t, s.tracker.IsFound(Target{URL: url, Phrase: "DJI Mini 5 Pro"}))
	require.Equal(t, 1, notifier.count())
}

func TestSchedulerStopSignal(t *testing.T) {
	t.Parallel()

	url := "https://a.example"
	fetcher := newFakeFetcher()
	fetcher.set(url, page("nothing of interest"))
	notifier := &fakeNotifier{}

	s := newTestScheduler(t, SchedulerConfig{
		URLs:     []string{url},
		Phrases:  []string{"DJI Mini 5 Pro"},
		Interval: time.Hour,
	}, fetcher, notifier, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool {
		return s.Status().Cycle >= 1
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, PhaseStopped, s.Status().Phase)
}

func TestSchedulerRunTwiceRejected(t *testing.T) {
	t.Parallel()

	fetcher := newFakeFetcher()
	fetcher.set("https://a.example", page("DJI Mini 5 Pro"))
	s := newTestScheduler(t, SchedulerConfig{
		URLs:     []string{"https://a.example"},
		Phrases:  []string{"DJI Mini 5 Pro"},
		AutoStop: true,
	}, fetcher, &fakeNotifier{}, nil)

	require.NoError(t, s.Run(context.Background()))
	require.Error(t, s.Run(context.Background()))
}

func TestNewSchedulerConfigurationErrors(t *testing.T) {
	t.Parallel()

	clk := newFakeClock()
	base := SchedulerConfig{
		URLs:    []string{"https://a.example"},
		Phrases: []string{"ok phrase"},
	}

	tests := []struct {
		name   string
		mutate func(*SchedulerConfig)
	}{
		{name: "no urls", mutate: func(c *SchedulerConfig) { c.URLs = nil }},
		{name: "no phrases", mutate: func(c *SchedulerConfig) { c.Phrases = nil }},
		{name: "phrase normalizes to empty", mutate: func(c *SchedulerConfig) { c.Phrases = []string{"!!! ---"} }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			tracker := NewTracker(cfg.URLs, cfg.Phrases, clk)
			_, err := NewScheduler(cfg, newFakeFetcher(), &fakeNotifier{}, NewExtractor(0, 0), tracker, nil, clk, nil, zap.NewNop())
			require.Error(t, err)
		})
	}
}

func TestRenderFoundMessage(t *testing.T) {
	t.Parallel()

	target := Target{URL: "https://a.example/shop", Phrase: "DJI Mini 5 Pro"}
	msg := renderFoundMessage(target, &Evidence{
		SurfaceKind: SurfaceBodyText,
		Snippet:     "the dji mini 5 pro is here",
		Link:        "/products/dji-mini-5-pro",
		Price:       "$1,299",
	})
	assert.Contains(t, msg, `"DJI Mini 5 Pro" FOUND!`)
	assert.Contains(t, msg, "Site: https://a.example/shop")
	assert.Contains(t, msg, "Link: /products/dji-mini-5-pro")
	assert.Contains(t, msg, "Price: $1,299")
	assert.Contains(t, msg, "Check immediately: https://a.example/shop")

	// long snippets are truncated for the notification payload
	long := renderFoundMessage(target, &Evidence{Snippet: strings.Repeat("s", 400)})
	assert.Contains(t, long, strings.Repeat("s", notificationTextLimit)+"...")
	assert.NotContains(t, long, strings.Repeat("s", notificationTextLimit+1))

	// evidence is optional
	bare := renderFoundMessage(target, nil)
	assert.Contains(t, bare, "Site: https://a.example/shop")
}
