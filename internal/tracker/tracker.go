// Package tracker keeps per-user moderation counters: the shared warning
// ladder, the zalgo and mimicry strike counts, and the sliding window of
// recent messages used by the flood filter. State is held in a bounded LRU so
// memory stays flat no matter how many users pass through; the warning
// counters can additionally be snapshotted to a persistent store so they
// survive restarts.
package tracker

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"chat-sentinel-bot/internal/metrics"
)

const defaultCapacity = 1000

// Snapshot is the persistable part of a user's state.
type Snapshot struct {
	Warnings      int
	ZalgoWarnings int
	MimicWarnings int
}

// WarningStore persists warning counters across restarts. Implementations
// must treat a missing row as a zero snapshot.
type WarningStore interface {
	LoadWarnings(roomID, userID int64) (Snapshot, error)
	SaveWarnings(roomID, userID int64, snap Snapshot) error
}

type key struct {
	roomID int64
	userID int64
}

type recentMessage struct {
	text string
	at   time.Time
}

type userState struct {
	mu     sync.Mutex
	loaded bool
	snap   Snapshot
	recent []recentMessage
}

type Tracker struct {
	mu    sync.Mutex
	cache *lru.Cache[key, *userState]
	store WarningStore // nil when persistence is off
}

func New(store WarningStore) *Tracker {
	cache, _ := lru.New[key, *userState](defaultCapacity)
	return &Tracker{cache: cache, store: store}
}

func (t *Tracker) get(roomID, userID int64) *userState {
	t.mu.Lock()
	defer t.mu.Unlock()

	k := key{roomID: roomID, userID: userID}
	if st, ok := t.cache.Get(k); ok {
		return st
	}
	st := &userState{}
	t.cache.Add(k, st)
	metrics.SetTrackedUsers(float64(t.cache.Len()))
	return st
}

// ensureLoaded pulls the persisted snapshot on first touch. Store errors are
// swallowed so a database outage degrades to in-memory counting.
func (t *Tracker) ensureLoaded(roomID, userID int64, st *userState) {
	if st.loaded {
		return
	}
	st.loaded = true
	if t.store == nil {
		return
	}
	if snap, err := t.store.LoadWarnings(roomID, userID); err == nil {
		st.snap = snap
	}
}

func (t *Tracker) persist(roomID, userID int64, st *userState) {
	if t.store == nil {
		return
	}
	_ = t.store.SaveWarnings(roomID, userID, st.snap)
}

// RecordMessage adds a message to the user's sliding window and returns how
// many identical messages the window now holds, the new one included.
// Identity is by exact string match; callers pass normalized text.
func (t *Tracker) RecordMessage(roomID, userID int64, text string, at time.Time, window time.Duration) int {
	st := t.get(roomID, userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	cutoff := at.Add(-window)
	kept := st.recent[:0]
	for _, m := range st.recent {
		if m.at.After(cutoff) {
			kept = append(kept, m)
		}
	}
	st.recent = append(kept, recentMessage{text: text, at: at})

	count := 0
	for _, m := range st.recent {
		if m.text == text {
			count++
		}
	}
	return count
}

// DropMatching removes every window entry equal to text. The flood filter
// calls it after a trigger so the same burst does not fire twice.
func (t *Tracker) DropMatching(roomID, userID int64, text string) {
	st := t.get(roomID, userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	kept := st.recent[:0]
	for _, m := range st.recent {
		if m.text != text {
			kept = append(kept, m)
		}
	}
	st.recent = kept
}

// IncrementWarnings bumps the shared warning ladder and returns the new count.
func (t *Tracker) IncrementWarnings(roomID, userID int64) int {
	st := t.get(roomID, userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	t.ensureLoaded(roomID, userID, st)
	st.snap.Warnings++
	t.persist(roomID, userID, st)
	return st.snap.Warnings
}

func (t *Tracker) ResetWarnings(roomID, userID int64) {
	st := t.get(roomID, userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	t.ensureLoaded(roomID, userID, st)
	st.snap.Warnings = 0
	t.persist(roomID, userID, st)
}

// IncrementZalgo bumps the obfuscated-text strike count and returns it.
func (t *Tracker) IncrementZalgo(roomID, userID int64) int {
	st := t.get(roomID, userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	t.ensureLoaded(roomID, userID, st)
	st.snap.ZalgoWarnings++
	t.persist(roomID, userID, st)
	return st.snap.ZalgoWarnings
}

// IncrementMimic bumps the bot-mimicry strike count and returns it.
func (t *Tracker) IncrementMimic(roomID, userID int64) int {
	st := t.get(roomID, userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	t.ensureLoaded(roomID, userID, st)
	st.snap.MimicWarnings++
	t.persist(roomID, userID, st)
	return st.snap.MimicWarnings
}

func (t *Tracker) ResetMimic(roomID, userID int64) {
	st := t.get(roomID, userID)
	st.mu.Lock()
	defer st.mu.Unlock()

	t.ensureLoaded(roomID, userID, st)
	st.snap.MimicWarnings = 0
	t.persist(roomID, userID, st)
}

// Forget drops all state for a user, e.g. after a ban. The persisted snapshot
// is zeroed as well so an unbanned user does not restart mid-ladder.
func (t *Tracker) Forget(roomID, userID int64) {
	t.mu.Lock()
	t.cache.Remove(key{roomID: roomID, userID: userID})
	metrics.SetTrackedUsers(float64(t.cache.Len()))
	t.mu.Unlock()

	if t.store != nil {
		_ = t.store.SaveWarnings(roomID, userID, Snapshot{})
	}
}
