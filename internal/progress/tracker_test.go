package progress_test

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"kora-games/internal/domain"
	"kora-games/internal/infra/memory"
	"kora-games/internal/progress"
)

var hubGames = []string{"emotion-match", "emotion-mixer"}

func TestApplyAccumulates(t *testing.T) {
	day := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	p, earned := progress.Apply(domain.NewProgress(), "emotion-match", 8, day, hubGames)
	if p.TotalPoints != 8 || p.Streak != 1 || p.Plays["emotion-match"] != 1 {
		t.Fatalf("unexpected record %+v", p)
	}
	if !reflect.DeepEqual(earned, []string{progress.BadgeFirstGame}) {
		t.Fatalf("expected first-game badge, got %v", earned)
	}
	if !p.LastPlayed.Equal(day) {
		t.Fatalf("expected last played %s, got %s", day, p.LastPlayed)
	}

	p, earned = progress.Apply(p, "emotion-mixer", 95, day.Add(time.Hour), hubGames)
	if p.TotalPoints != 103 || p.Streak != 1 {
		t.Fatalf("unexpected record %+v", p)
	}
	if !reflect.DeepEqual(earned, []string{progress.BadgePoints100, progress.BadgeExplorer}) {
		t.Fatalf("expected points-100 and explorer, got %v", earned)
	}
}

func TestStreak(t *testing.T) {
	start := time.Date(2026, 3, 10, 20, 0, 0, 0, time.UTC)
	testCases := []struct {
		name   string
		offset time.Duration
		want   int
	}{
		{"same day keeps streak", 2 * time.Hour, 2},
		{"next day extends streak", 24 * time.Hour, 3},
		{"gap restarts streak", 72 * time.Hour, 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := domain.NewProgress()
			p.Streak = 2
			p.LastPlayed = start
			next, _ := progress.Apply(p, "emotion-match", 0, start.Add(tc.offset), hubGames)
			if next.Streak != tc.want {
				t.Fatalf("expected streak %d, got %d", tc.want, next.Streak)
			}
		})
	}
}

func TestStreakBadges(t *testing.T) {
	p := domain.NewProgress()
	day := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var all []string
	for i := 0; i < 7; i++ {
		var earned []string
		p, earned = progress.Apply(p, "emotion-match", 1, day.AddDate(0, 0, i), hubGames)
		all = append(all, earned...)
	}
	if p.Streak != 7 {
		t.Fatalf("expected 7-day streak, got %d", p.Streak)
	}
	if !p.HasBadge(progress.BadgeStreak3) || !p.HasBadge(progress.BadgeStreak7) {
		t.Fatalf("expected streak badges, got %v", p.Badges)
	}
	seen := map[string]int{}
	for _, b := range all {
		seen[b]++
		if seen[b] > 1 {
			t.Fatalf("badge %s awarded twice", b)
		}
	}
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	p := domain.NewProgress()
	_, _ = progress.Apply(p, "emotion-match", 5, time.Now(), hubGames)
	if p.TotalPoints != 0 || len(p.Plays) != 0 || len(p.Badges) != 0 {
		t.Fatalf("input mutated: %+v", p)
	}
}

func TestMigrateLegacyRecord(t *testing.T) {
	p := progress.Migrate(domain.Progress{TotalPoints: 12})
	if p.SchemaVersion != domain.ProgressSchemaVersion || p.Plays == nil || p.Badges == nil {
		t.Fatalf("expected upgraded record, got %+v", p)
	}
}

func TestTrackerRecordRewritesRecord(t *testing.T) {
	ctx := context.Background()
	store := memory.NewProgressStore()
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	tracker := progress.NewTrackerWithClock(store, hubGames, nil, func() time.Time { return now })

	if _, _, err := tracker.Record(ctx, "install-1", "emotion-match", 8); err != nil {
		t.Fatalf("record: %v", err)
	}
	p, _, err := tracker.Record(ctx, "install-1", "emotion-match", 4)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if p.TotalPoints != 12 || p.Plays["emotion-match"] != 2 {
		t.Fatalf("unexpected record %+v", p)
	}

	stored, err := tracker.Get(ctx, "install-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !reflect.DeepEqual(stored, p) {
		t.Fatalf("stored record differs: %+v vs %+v", stored, p)
	}

	other, _ := tracker.Get(ctx, "install-2")
	if other.TotalPoints != 0 {
		t.Fatalf("installations must not share records")
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context, string) (domain.Progress, error) {
	return domain.Progress{}, errors.New("boom")
}

func (failingStore) Save(context.Context, string, domain.Progress) error { return nil }

func TestTrackerWrapsStoreErrors(t *testing.T) {
	tracker := progress.NewTracker(failingStore{}, hubGames, nil)
	if _, _, err := tracker.Record(context.Background(), "i", "g", 1); err == nil {
		t.Fatalf("expected error")
	}
}

// slowStore widens the window between Load and Save the way a network round trip does.
type slowStore struct {
	progress.Store
	delay time.Duration
}

func (s slowStore) Load(ctx context.Context, id string) (domain.Progress, error) {
	p, err := s.Store.Load(ctx, id)
	time.Sleep(s.delay)
	return p, err
}

func TestTrackerConcurrentRecordsKeepEveryCompletion(t *testing.T) {
	ctx := context.Background()
	store := slowStore{Store: memory.NewProgressStore(), delay: 5 * time.Millisecond}
	tracker := progress.NewTracker(store, hubGames, nil)

	const completions = 8
	var wg sync.WaitGroup
	errs := make(chan error, 2*completions)
	for i := 0; i < completions; i++ {
		for _, id := range []string{"install-1", "install-2"} {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, _, err := tracker.Record(ctx, id, "emotion-match", 10); err != nil {
					errs <- err
				}
			}(id)
		}
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("record: %v", err)
	}

	for _, id := range []string{"install-1", "install-2"} {
		p, err := tracker.Get(ctx, id)
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if p.Plays["emotion-match"] != completions || p.TotalPoints != 10*completions {
			t.Fatalf("%s lost completions: plays=%d total=%d", id, p.Plays["emotion-match"], p.TotalPoints)
		}
	}
}

// retryingStore calls the update function twice, as a shared store does after losing a race.
type retryingStore struct {
	*memory.ProgressStore
	calls int
}

func (s *retryingStore) Update(ctx context.Context, id string, fn func(domain.Progress) (domain.Progress, error)) (domain.Progress, error) {
	current, err := s.Load(ctx, id)
	if err != nil {
		return domain.Progress{}, err
	}
	for i := 0; i < 2; i++ {
		s.calls++
		next, err := fn(current)
		if err != nil {
			return domain.Progress{}, err
		}
		if i == 1 {
			return next, s.Save(ctx, id, next)
		}
		current.Badges = append(current.Badges, progress.BadgeFirstGame)
	}
	return domain.Progress{}, nil
}

func TestTrackerUsesUpdaterAndReportsLastAttemptBadges(t *testing.T) {
	ctx := context.Background()
	store := &retryingStore{ProgressStore: memory.NewProgressStore()}
	tracker := progress.NewTracker(store, hubGames, nil)

	p, earned, err := tracker.Record(ctx, "install-1", "emotion-match", 5)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if store.calls != 2 {
		t.Fatalf("expected update function to run twice, got %d", store.calls)
	}
	if p.TotalPoints != 5 || p.Plays["emotion-match"] != 1 {
		t.Fatalf("unexpected record %+v", p)
	}
	if len(earned) != 0 {
		t.Fatalf("badge already held on the winning attempt, got %v", earned)
	}
}
