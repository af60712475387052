package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"kora-games/internal/app"
	"kora-games/internal/catalog"
	"kora-games/internal/domain"
	"kora-games/internal/infra/memory"
	"kora-games/internal/progress"
	"kora-games/internal/progression"
)

type manualScheduler struct {
	mu    sync.Mutex
	tasks []func()
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return true }

func (s *manualScheduler) AfterFunc(_ time.Duration, f func()) progression.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks = append(s.tasks, f)
	return noopTimer{}
}

func (s *manualScheduler) fireAll() {
	s.mu.Lock()
	tasks := s.tasks
	s.tasks = nil
	s.mu.Unlock()
	for _, f := range tasks {
		f()
	}
}

type fixture struct {
	svc      *app.GameService
	sched    *manualScheduler
	progress *memory.ProgressStore
}

func newFixture() fixture {
	games := map[string]domain.Game{
		"faces": {
			ID:    "faces",
			Hub:   catalog.EmotionGamesHub,
			Mode:  domain.ModeSingle,
			Delay: 2 * time.Second,
			Rule:  domain.RuleConfig{Kind: domain.RuleSingle, Points: 2},
			Scenarios: []domain.Scenario{{
				ID: "s1",
				Options: []domain.Option{
					{ID: "happy", Correct: true},
					{ID: "sad"},
				},
				Hint: "smile",
			}},
		},
		"stories": {
			ID:    "stories",
			Mode:  domain.ModeSingle,
			Delay: time.Second,
			Rule:  domain.RuleConfig{Kind: domain.RuleSingle, Points: 10},
			Scenarios: []domain.Scenario{{
				ID:      "s1",
				Options: []domain.Option{{ID: "kind", Correct: true}},
			}},
		},
	}
	sched := &manualScheduler{}
	store := memory.NewProgressStore()
	now := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	tracker := progress.NewTrackerWithClock(store, []string{"faces"}, nil, clock)
	svc := app.NewGameService(
		memory.NewCatalogRepository(memory.NewStaticCatalogLoader(games), time.Minute),
		memory.NewPlaythroughStore(),
		tracker,
		app.WithScheduler(sched),
		app.WithClock(clock),
	)
	return fixture{svc: svc, sched: sched, progress: store}
}

func TestStartUnknownGame(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Start(context.Background(), "i1", "nope", 0); !errors.Is(err, domain.ErrGameNotFound) {
		t.Fatalf("expected ErrGameNotFound, got %v", err)
	}
}

func TestPlaythroughRecordsHubProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	p, err := f.svc.Start(ctx, "i1", "faces", 0)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if p.Seed == 0 {
		t.Fatalf("expected a generated seed")
	}
	events, cancel, err := f.svc.Subscribe(ctx, p.ID)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	<-events // initial snapshot

	if _, err := f.svc.Select(ctx, p.ID, "happy"); err != nil {
		t.Fatalf("select: %v", err)
	}
	out, snap, err := f.svc.Submit(ctx, p.ID)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !out.Correct || snap.State.Phase != domain.PhaseEvaluated {
		t.Fatalf("unexpected submit result %+v %+v", out, snap.State)
	}

	f.sched.fireAll()

	var completion *domain.CompletionEvent
	for completion == nil {
		select {
		case ev := <-events:
			if ev.Type == app.EventComplete {
				completion = ev.Completion
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for completion event")
		}
	}
	if completion.Points != 2 || completion.TotalPoints != 2 || completion.Streak != 1 {
		t.Fatalf("unexpected completion %+v", completion)
	}
	if len(completion.NewBadges) == 0 {
		t.Fatalf("expected first badges, got none")
	}

	rec, err := f.svc.Progress(ctx, "i1")
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if rec.TotalPoints != 2 || rec.Plays["faces"] != 1 || !rec.HasBadge(progress.BadgeExplorer) {
		t.Fatalf("unexpected progress %+v", rec)
	}
}

func TestNonHubGameDoesNotRecordProgress(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	p, _ := f.svc.Start(ctx, "i1", "stories", 0)
	_, _ = f.svc.Select(ctx, p.ID, "kind")
	_, _, _ = f.svc.Submit(ctx, p.ID)
	f.sched.fireAll()

	snap, _ := f.svc.Snapshot(ctx, p.ID)
	if snap.State.Phase != domain.PhaseComplete || snap.State.Score != 10 {
		t.Fatalf("expected completed playthrough, got %+v", snap.State)
	}
	rec, _ := f.svc.Progress(ctx, "i1")
	if rec.TotalPoints != 0 {
		t.Fatalf("non-hub game must not touch hub progress, got %+v", rec)
	}
}

func TestEmptySubmitIsAWarning(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p, _ := f.svc.Start(ctx, "i1", "faces", 0)
	if _, _, err := f.svc.Submit(ctx, p.ID); !errors.Is(err, domain.ErrEmptySelection) {
		t.Fatalf("expected ErrEmptySelection, got %v", err)
	}
}

func TestAbandonDuringDelay(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	p, _ := f.svc.Start(ctx, "i1", "faces", 0)
	events, cancel, _ := f.svc.Subscribe(ctx, p.ID)
	defer cancel()
	<-events

	_, _ = f.svc.Select(ctx, p.ID, "happy")
	_, _, _ = f.svc.Submit(ctx, p.ID)
	f.svc.Abandon(ctx, p.ID)
	f.sched.fireAll()

	for ev := range events {
		if ev.Type == app.EventComplete {
			t.Fatalf("completion delivered after abandon")
		}
		if ev.State != nil && ev.State.State.Phase == domain.PhaseComplete {
			t.Fatalf("state advanced after abandon")
		}
	}
	if _, err := f.svc.Snapshot(ctx, p.ID); !errors.Is(err, domain.ErrPlaythroughNotFound) {
		t.Fatalf("expected playthrough gone, got %v", err)
	}
	rec, _ := f.svc.Progress(ctx, "i1")
	if rec.TotalPoints != 0 {
		t.Fatalf("abandoned playthrough recorded progress")
	}
}

func TestHintAndReset(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	p, _ := f.svc.Start(ctx, "i1", "faces", 0)

	hint, err := f.svc.Hint(ctx, p.ID)
	if err != nil || hint != "smile" {
		t.Fatalf("unexpected hint %q err %v", hint, err)
	}
	_, _ = f.svc.Select(ctx, p.ID, "happy")
	snap, err := f.svc.Reset(ctx, p.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if snap.State.HintsUsed != 0 || len(snap.State.Selected) != 0 || snap.State.Index != 0 {
		t.Fatalf("expected initial state, got %+v", snap.State)
	}
}

func TestListGames(t *testing.T) {
	f := newFixture()
	games, err := f.svc.ListGames(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(games) != 2 || games[0].ID != "faces" {
		t.Fatalf("unexpected games %+v", games)
	}
}

func TestUnknownPlaythrough(t *testing.T) {
	f := newFixture()
	if _, err := f.svc.Select(context.Background(), "missing", "happy"); !errors.Is(err, domain.ErrPlaythroughNotFound) {
		t.Fatalf("expected ErrPlaythroughNotFound, got %v", err)
	}
}
