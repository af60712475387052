// Package progress maintains the persisted, cross-session aggregate for the emotion games hub:
// total points, daily streak, earned badges and per-game play counts.
package progress

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kora-games/internal/domain"
)

// KeyPrefix namespaces stored progress records.
const KeyPrefix = "kora:progress:"

// Key is the storage key for an installation's record.
func Key(installationID string) string {
	return KeyPrefix + installationID
}

// Store reads and writes whole progress records. Load returns a fresh record when none exists.
type Store interface {
	Load(ctx context.Context, installationID string) (domain.Progress, error)
	Save(ctx context.Context, installationID string, p domain.Progress) error
}

// Updater is implemented by stores shared between processes. Update runs fn against the stored
// record and writes the result atomically, calling fn again if another writer got there first.
type Updater interface {
	Update(ctx context.Context, installationID string, fn func(domain.Progress) (domain.Progress, error)) (domain.Progress, error)
}

// Badge identifiers.
const (
	BadgeFirstGame = "first-game"
	BadgePoints100 = "points-100"
	BadgePoints500 = "points-500"
	BadgeStreak3   = "streak-3"
	BadgeStreak7   = "streak-7"
	BadgeExplorer  = "explorer"
	BadgeDedicated = "dedicated"
)

const dedicatedPlays = 10

// Tracker applies game completions to persisted progress.
type Tracker struct {
	store    Store
	hubGames []string
	now      func() time.Time
	logger   *slog.Logger
	locks    keyedMutex
}

// NewTracker creates a tracker. hubGames lists every game that counts toward the explorer badge.
func NewTracker(store Store, hubGames []string, logger *slog.Logger) *Tracker {
	return NewTrackerWithClock(store, hubGames, logger, time.Now)
}

// NewTrackerWithClock allows deterministic timestamps in tests.
func NewTrackerWithClock(store Store, hubGames []string, logger *slog.Logger, now func() time.Time) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: store, hubGames: hubGames, now: now, logger: logger}
}

// Get returns the current record for an installation.
func (t *Tracker) Get(ctx context.Context, installationID string) (domain.Progress, error) {
	p, err := t.store.Load(ctx, installationID)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("load progress: %w", err)
	}
	return Migrate(p), nil
}

// Record reads the record, applies a completion and rewrites it in full. It returns the new
// record and the badges earned by this completion. Completions for one installation are applied
// one at a time in this process; stores implementing Updater also serialize across processes.
func (t *Tracker) Record(ctx context.Context, installationID, gameID string, points int) (domain.Progress, []string, error) {
	unlock := t.locks.lock(installationID)
	defer unlock()

	now := t.now()
	var (
		next   domain.Progress
		earned []string
	)
	if u, ok := t.store.(Updater); ok {
		var err error
		next, err = u.Update(ctx, installationID, func(p domain.Progress) (domain.Progress, error) {
			next, earned = Apply(p, gameID, points, now, t.hubGames)
			return next, nil
		})
		if err != nil {
			return domain.Progress{}, nil, fmt.Errorf("update progress: %w", err)
		}
	} else {
		p, err := t.Get(ctx, installationID)
		if err != nil {
			return domain.Progress{}, nil, err
		}
		next, earned = Apply(p, gameID, points, now, t.hubGames)
		if err := t.store.Save(ctx, installationID, next); err != nil {
			return domain.Progress{}, nil, fmt.Errorf("save progress: %w", err)
		}
	}
	t.logger.Info("progress recorded",
		"installation", installationID,
		"game", gameID,
		"points", points,
		"total", next.TotalPoints,
		"streak", next.Streak,
		"new_badges", earned,
	)
	return next, earned, nil
}

// Apply computes the record after one completion. It does not modify p.
func Apply(p domain.Progress, gameID string, points int, now time.Time, hubGames []string) (domain.Progress, []string) {
	next := clone(Migrate(p))
	if points > 0 {
		next.TotalPoints += points
	}
	next.Plays[gameID]++
	next.Streak = nextStreak(next.Streak, next.LastPlayed, now)
	next.LastPlayed = now

	var earned []string
	award := func(id string, ok bool) {
		if ok && next.AddBadge(id) {
			earned = append(earned, id)
		}
	}
	award(BadgeFirstGame, true)
	award(BadgePoints100, next.TotalPoints >= 100)
	award(BadgePoints500, next.TotalPoints >= 500)
	award(BadgeStreak3, next.Streak >= 3)
	award(BadgeStreak7, next.Streak >= 7)
	award(BadgeDedicated, next.Plays[gameID] >= dedicatedPlays)
	award(BadgeExplorer, playedAll(next.Plays, hubGames))
	return next, earned
}

// Migrate upgrades records written before schema versioning.
func Migrate(p domain.Progress) domain.Progress {
	if p.SchemaVersion == 0 {
		p.SchemaVersion = domain.ProgressSchemaVersion
	}
	if p.Plays == nil {
		p.Plays = make(map[string]int)
	}
	if p.Badges == nil {
		p.Badges = []string{}
	}
	return p
}

// nextStreak keeps the streak on the same calendar day, extends it on the next day and restarts
// it after a gap.
func nextStreak(streak int, last, now time.Time) int {
	if last.IsZero() {
		return 1
	}
	lastDay := dayOf(last.In(now.Location()))
	today := dayOf(now)
	switch {
	case today.Equal(lastDay):
		if streak < 1 {
			return 1
		}
		return streak
	case today.Equal(lastDay.AddDate(0, 0, 1)):
		return streak + 1
	default:
		return 1
	}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func playedAll(plays map[string]int, games []string) bool {
	if len(games) == 0 {
		return false
	}
	for _, id := range games {
		if plays[id] == 0 {
			return false
		}
	}
	return true
}

func clone(p domain.Progress) domain.Progress {
	out := p
	out.Badges = append([]string{}, p.Badges...)
	out.Plays = make(map[string]int, len(p.Plays))
	for k, v := range p.Plays {
		out.Plays[k] = v
	}
	return out
}

// keyedMutex hands out one mutex per key and forgets it once nobody holds or waits for it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*refMutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &refMutex{}
		k.locks[key] = m
	}
	m.refs++
	k.mu.Unlock()

	m.Lock()
	return func() {
		m.Unlock()
		k.mu.Lock()
		m.refs--
		if m.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
