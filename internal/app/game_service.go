package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"kora-games/internal/catalog"
	"kora-games/internal/domain"
	"kora-games/internal/progress"
	"kora-games/internal/progression"
)

// PlaythroughRepository abstracts where live playthroughs are kept (in-memory, Redis, etc).
type PlaythroughRepository interface {
	Put(p *Playthrough)
	Get(id string) (*Playthrough, bool)
	Delete(id string)
}

// CatalogRepository loads game catalogs (from cache/backing store).
type CatalogRepository interface {
	GetGame(ctx context.Context, gameID string) (domain.Game, error)
	ListGames(ctx context.Context) ([]domain.GameSummary, error)
}

// ServiceOption configures a GameService.
type ServiceOption func(*GameService)

// WithScheduler sets the scheduler handed to every controller.
func WithScheduler(s progression.Scheduler) ServiceOption {
	return func(svc *GameService) { svc.sched = s }
}

// WithClock is test-only for deterministic timestamps.
func WithClock(now func() time.Time) ServiceOption {
	return func(svc *GameService) { svc.now = now }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(svc *GameService) { svc.logger = l }
}

// WithRecordTimeout bounds how long persisting progress may take after a completion.
func WithRecordTimeout(d time.Duration) ServiceOption {
	return func(svc *GameService) { svc.recordTimeout = d }
}

// GameService contains the game use cases.
type GameService struct {
	games         CatalogRepository
	playthroughs  PlaythroughRepository
	tracker       *progress.Tracker
	sched         progression.Scheduler
	now           func() time.Time
	logger        *slog.Logger
	recordTimeout time.Duration
}

// NewGameService wires the use cases. tracker may be nil when progress is not persisted.
func NewGameService(games CatalogRepository, playthroughs PlaythroughRepository, tracker *progress.Tracker, opts ...ServiceOption) *GameService {
	svc := &GameService{
		games:         games,
		playthroughs:  playthroughs,
		tracker:       tracker,
		sched:         progression.RealScheduler{},
		now:           time.Now,
		logger:        slog.Default(),
		recordTimeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// ListGames returns the available games.
func (s *GameService) ListGames(ctx context.Context) ([]domain.GameSummary, error) {
	return s.games.ListGames(ctx)
}

// Start begins a playthrough. A zero seed picks a random one; the seed used is kept on the
// playthrough so the option order can be reproduced.
func (s *GameService) Start(ctx context.Context, installationID, gameID string, seed int64) (*Playthrough, error) {
	game, err := s.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if seed == 0 {
		if seed, err = catalog.NewSeed(); err != nil {
			return nil, err
		}
	}

	p := newPlaythrough(uuid.NewString(), installationID, seed, s.now())
	logger := s.logger.With("playthrough", p.ID, "game", game.ID)
	p.ctrl = progression.New(catalog.Shuffled(game, seed),
		progression.WithScheduler(s.sched),
		progression.WithLogger(logger),
		progression.WithOnChange(p.publishState),
		progression.WithOnComplete(func(points int) { s.complete(p, points) }),
	)
	s.playthroughs.Put(p)
	logger.Info("playthrough started", "installation", installationID, "seed", seed)
	return p, nil
}

// Select toggles an option in the playthrough's current selection.
func (s *GameService) Select(_ context.Context, id, optionID string) (progression.Snapshot, error) {
	p, err := s.get(id)
	if err != nil {
		return progression.Snapshot{}, err
	}
	if err := p.ctrl.Select(optionID); err != nil {
		return progression.Snapshot{}, err
	}
	return p.ctrl.Snapshot(), nil
}

// SetLevel sets a component intensity for recipe games.
func (s *GameService) SetLevel(_ context.Context, id, componentID string, level int) (progression.Snapshot, error) {
	p, err := s.get(id)
	if err != nil {
		return progression.Snapshot{}, err
	}
	if err := p.ctrl.SetLevel(componentID, level); err != nil {
		return progression.Snapshot{}, err
	}
	return p.ctrl.Snapshot(), nil
}

// Submit evaluates the current selection.
func (s *GameService) Submit(_ context.Context, id string) (domain.Outcome, progression.Snapshot, error) {
	p, err := s.get(id)
	if err != nil {
		return domain.Outcome{}, progression.Snapshot{}, err
	}
	out, err := p.ctrl.Submit()
	if err != nil {
		return domain.Outcome{}, progression.Snapshot{}, err
	}
	return out, p.ctrl.Snapshot(), nil
}

// Hint returns the current scenario's hint.
func (s *GameService) Hint(_ context.Context, id string) (string, error) {
	p, err := s.get(id)
	if err != nil {
		return "", err
	}
	return p.ctrl.Hint()
}

// Reset restarts the playthrough from the first scenario.
func (s *GameService) Reset(_ context.Context, id string) (progression.Snapshot, error) {
	p, err := s.get(id)
	if err != nil {
		return progression.Snapshot{}, err
	}
	if err := p.ctrl.Reset(); err != nil {
		return progression.Snapshot{}, err
	}
	return p.ctrl.Snapshot(), nil
}

// Snapshot returns the playthrough's current state.
func (s *GameService) Snapshot(_ context.Context, id string) (progression.Snapshot, error) {
	p, err := s.get(id)
	if err != nil {
		return progression.Snapshot{}, err
	}
	return p.ctrl.Snapshot(), nil
}

// Subscribe returns a channel that receives playthrough events.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *GameService) Subscribe(_ context.Context, id string) (<-chan Event, func(), error) {
	p, err := s.get(id)
	if err != nil {
		return nil, nil, err
	}
	ch, cancel := p.subscribe()
	return ch, cancel, nil
}

// Abandon tears a playthrough down: the pending advance is cancelled, subscribers are closed and
// the playthrough is forgotten.
func (s *GameService) Abandon(_ context.Context, id string) {
	p, ok := s.playthroughs.Get(id)
	if !ok {
		return
	}
	p.close()
	s.playthroughs.Delete(id)
	s.logger.Info("playthrough abandoned", "playthrough", id)
}

// Progress returns the persisted hub progress for an installation.
func (s *GameService) Progress(ctx context.Context, installationID string) (domain.Progress, error) {
	if s.tracker == nil {
		return domain.NewProgress(), nil
	}
	return s.tracker.Get(ctx, installationID)
}

func (s *GameService) get(id string) (*Playthrough, error) {
	p, ok := s.playthroughs.Get(id)
	if !ok {
		return nil, domain.ErrPlaythroughNotFound
	}
	return p, nil
}

// complete runs on the controller's completion callback.
func (s *GameService) complete(p *Playthrough, points int) {
	game := p.ctrl.Game()
	ev := domain.CompletionEvent{
		PlaythroughID: p.ID,
		GameID:        game.ID,
		Points:        points,
		CompletedAt:   s.now(),
	}

	if s.tracker != nil && game.Hub == catalog.EmotionGamesHub && p.InstallationID != "" {
		ctx, cancel := context.WithTimeout(context.Background(), s.recordTimeout)
		defer cancel()
		rec, earned, err := s.tracker.Record(ctx, p.InstallationID, game.ID, points)
		if err != nil {
			s.logger.Error("record progress failed", "playthrough", p.ID, "error", err)
		} else {
			ev.TotalPoints = rec.TotalPoints
			ev.Streak = rec.Streak
			ev.NewBadges = earned
		}
	}
	p.publishComplete(ev)
}
