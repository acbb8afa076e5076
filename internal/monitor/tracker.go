package monitor

import "sync"

// Tracker owns the found/pending state for every (URL, phrase) combination.
// It is the single source of truth for duplicate suppression: a notification
// may be sent only when TryMarkFound reports a fresh transition. Safe for
// concurrent use by round workers.
type Tracker struct {
	mu    sync.Mutex
	state map[Target]*CombinationState
	found int
	clock Clock
}

// NewTracker builds the cartesian product of urls and phrases, all pending.
func NewTracker(urls, phrases []string, clock Clock) *Tracker {
	state := make(map[Target]*CombinationState, len(urls)*len(phrases))
	for _, url := range urls {
		for _, phrase := range phrases {
			state[Target{URL: url, Phrase: phrase}] = &CombinationState{}
		}
	}
	return &Tracker{state: state, clock: clock}
}

// IsFound reports whether the target has already been found. Unknown
// targets report false.
func (t *Tracker) IsFound(target Target) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.state[target]
	return ok && st.Found
}

// TryMarkFound transitions a pending target to found. Exactly one caller
// ever observes true per target, no matter how many workers race on it;
// every later call returns false. Found never reverts. Unknown targets are
// ignored and report false.
func (t *Tracker) TryMarkFound(target Target, evidence *Evidence) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	st, ok := t.state[target]
	if !ok || st.Found {
		return false
	}
	now := t.clock.Now()
	st.Found = true
	st.FoundAt = &now
	st.Evidence = evidence
	t.found++
	return true
}

// PendingPhrases returns the phrases not yet found for the given URL, in
// the order phrases was configured.
func (t *Tracker) PendingPhrases(url string, phrases []string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	var pending []string
	for _, phrase := range phrases {
		if st, ok := t.state[Target{URL: url, Phrase: phrase}]; ok && !st.Found {
			pending = append(pending, phrase)
		}
	}
	return pending
}

// Progress returns the found and total combination counts.
func (t *Tracker) Progress() (found, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.found, len(t.state)
}

// AllFound reports whether every combination has been found.
func (t *Tracker) AllFound() bool {
	found, total := t.Progress()
	return total > 0 && found == total
}

// Snapshot copies the full combination state, for the completion summary.
func (t *Tracker) Snapshot() map[Target]CombinationState {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[Target]CombinationState, len(t.state))
	for target, st := range t.state {
		copied := *st
		if st.FoundAt != nil {
			at := *st.FoundAt
			copied.FoundAt = &at
		}
		out[target] = copied
	}
	return out
}
