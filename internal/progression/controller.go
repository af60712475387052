// Package progression drives one playthrough of a game: it owns the current scenario index,
// the in-progress selection, the running score and the completion flag.
package progression

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"kora-games/internal/domain"
	"kora-games/internal/scoring"
)

// Snapshot is a consistent copy of a controller's state. Version increases with every change so
// consumers can drop snapshots that arrive out of order.
type Snapshot struct {
	Version  uint64                  `json:"version"`
	State    domain.ProgressionState `json:"state"`
	Scenario *domain.ScenarioView    `json:"scenario,omitempty"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithScheduler replaces the wall-clock scheduler used for the post-submit delay.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) { c.sched = s }
}

// WithOnComplete registers the completion callback. It runs once per playthrough with the final
// score and must not call back into the controller.
func WithOnComplete(f func(points int)) Option {
	return func(c *Controller) { c.onComplete = f }
}

// WithOnChange registers a state observer. It must not call back into the controller.
func WithOnChange(f func(Snapshot)) Option {
	return func(c *Controller) { c.onChange = f }
}

// WithRule overrides the scoring rule resolved from the game's RuleConfig.
func WithRule(r scoring.Rule) Option {
	return func(c *Controller) { c.rule = r }
}

// WithLogger sets the logger. A nil logger keeps the default.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// Controller is the progression state machine:
//
//	AwaitingSelection --Submit--> Evaluated --delay--> AwaitingSelection (next) | Complete
//
// Reset returns to AwaitingSelection at index 0 from any state. Close tears the playthrough down
// and cancels a pending advance.
type Controller struct {
	game       domain.Game
	rule       scoring.Rule
	sched      Scheduler
	onComplete func(int)
	onChange   func(Snapshot)
	logger     *slog.Logger

	closed atomic.Bool

	mu        sync.Mutex
	version   uint64
	index     int
	score     int
	phase     domain.Phase
	sel       domain.Selection
	hints     int
	attempts  int
	last      *domain.Outcome
	pending   Timer
	gen       uint64
	completed bool
}

// New creates a controller at index 0 awaiting a selection.
func New(game domain.Game, opts ...Option) *Controller {
	c := &Controller{
		game:   game,
		rule:   scoring.For(game.Rule),
		sched:  RealScheduler{},
		logger: slog.Default(),
		phase:  domain.PhaseAwaiting,
	}
	for _, opt := range opts {
		opt(c)
	}
	if game.Len() == 0 {
		c.phase = domain.PhaseComplete
		c.completed = true
	}
	return c
}

// Game returns the catalog being played.
func (c *Controller) Game() domain.Game { return c.game }

// Select toggles optionID in the current selection. In single mode choosing a new option replaces
// the previous one; in levels mode it flips the component between off and level 1.
func (c *Controller) Select(optionID string) error {
	c.mu.Lock()
	if err := c.inputAllowedLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	opt, ok := c.game.Scenario(c.index).Option(optionID)
	if !ok {
		c.mu.Unlock()
		return domain.ErrOptionNotFound
	}
	switch c.game.Mode {
	case domain.ModeLevels:
		if c.sel.Level(opt.ID) > 0 {
			c.sel.SetLevel(opt.ID, 0)
		} else {
			c.sel.SetLevel(opt.ID, 1)
		}
	default:
		c.sel.Toggle(opt.ID, c.game.Mode == domain.ModeSingle)
	}
	snap := c.changedLocked()
	c.mu.Unlock()

	c.emit(snap)
	return nil
}

// SetLevel sets a component's intensity, clamped to [0, MaxLevel]. Levels mode only.
func (c *Controller) SetLevel(componentID string, level int) error {
	c.mu.Lock()
	if err := c.inputAllowedLocked(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.game.Mode != domain.ModeLevels {
		c.mu.Unlock()
		return domain.ErrUnsupportedInput
	}
	opt, ok := c.game.Scenario(c.index).Option(componentID)
	if !ok {
		c.mu.Unlock()
		return domain.ErrOptionNotFound
	}
	if level < 0 {
		level = 0
	}
	if opt.MaxLevel > 0 && level > opt.MaxLevel {
		level = opt.MaxLevel
	}
	c.sel.SetLevel(opt.ID, level)
	snap := c.changedLocked()
	c.mu.Unlock()

	c.emit(snap)
	return nil
}

// Submit scores the current selection. An empty selection returns ErrEmptySelection and changes
// nothing. A rejected recipe keeps the scenario open for another attempt; any other outcome moves
// to Evaluated and schedules the advance after the game's display delay.
func (c *Controller) Submit() (domain.Outcome, error) {
	c.mu.Lock()
	if err := c.inputAllowedLocked(); err != nil {
		c.mu.Unlock()
		return domain.Outcome{}, err
	}
	if c.sel.Empty() {
		c.mu.Unlock()
		return domain.Outcome{}, domain.ErrEmptySelection
	}

	sc := c.game.Scenario(c.index)
	out := c.rule.Score(sc, c.sel, c.attempts)
	c.score += out.Delta
	if c.score < 0 {
		c.score = 0
	}
	c.last = &out

	if out.Retry {
		c.attempts++
		snap := c.changedLocked()
		c.mu.Unlock()
		c.logger.Debug("attempt rejected", "game", c.game.ID, "scenario", sc.ID, "attempts", snap.State.Attempts)
		c.emit(snap)
		return out, nil
	}

	c.phase = domain.PhaseEvaluated
	evaluated := c.changedLocked()
	c.logger.Debug("scenario evaluated", "game", c.game.ID, "scenario", sc.ID, "delta", out.Delta, "score", c.score)

	if c.game.Delay > 0 {
		c.gen++
		gen := c.gen
		c.pending = c.sched.AfterFunc(c.game.Delay, func() { c.fire(gen) })
		c.mu.Unlock()
		c.emit(evaluated)
		return out, nil
	}

	advanced, done, final := c.advanceLocked()
	c.mu.Unlock()

	c.emit(evaluated)
	c.emit(advanced)
	if done {
		c.finish(final)
	}
	return out, nil
}

// Hint returns the current scenario's hint and counts it.
func (c *Controller) Hint() (string, error) {
	c.mu.Lock()
	if err := c.inputAllowedLocked(); err != nil {
		c.mu.Unlock()
		return "", err
	}
	hint := c.game.Scenario(c.index).Hint
	if hint == "" {
		c.mu.Unlock()
		return "", nil
	}
	c.hints++
	snap := c.changedLocked()
	c.mu.Unlock()

	c.emit(snap)
	return hint, nil
}

// Reset cancels any pending advance and restores the initial state.
func (c *Controller) Reset() error {
	if c.closed.Load() {
		return domain.ErrControllerClosed
	}
	c.mu.Lock()
	c.cancelLocked()
	c.index = 0
	c.score = 0
	c.phase = domain.PhaseAwaiting
	c.sel = domain.Selection{}
	c.hints = 0
	c.attempts = 0
	c.last = nil
	c.completed = false
	if c.game.Len() == 0 {
		c.phase = domain.PhaseComplete
		c.completed = true
	}
	snap := c.changedLocked()
	c.mu.Unlock()

	c.logger.Debug("playthrough reset", "game", c.game.ID)
	c.emit(snap)
	return nil
}

// Close cancels a pending advance. Once closed the controller never mutates state again and stops
// notifying observers. Calling Close more than once is a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Swap(true) {
		return
	}
	c.cancelLocked()
}

// Closed reports whether Close was called.
func (c *Controller) Closed() bool { return c.closed.Load() }

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) fire(gen uint64) {
	c.mu.Lock()
	if c.closed.Load() || gen != c.gen || c.phase != domain.PhaseEvaluated {
		c.mu.Unlock()
		return
	}
	c.pending = nil
	snap, done, final := c.advanceLocked()
	c.mu.Unlock()

	c.emit(snap)
	if done {
		c.finish(final)
	}
}

// advanceLocked leaves Evaluated: next scenario if one remains, otherwise Complete.
func (c *Controller) advanceLocked() (Snapshot, bool, int) {
	c.sel = domain.Selection{}
	c.attempts = 0
	if c.index+1 < c.game.Len() {
		c.index++
		c.phase = domain.PhaseAwaiting
		c.last = nil
		return c.changedLocked(), false, 0
	}
	c.phase = domain.PhaseComplete
	done := !c.completed
	c.completed = true
	c.logger.Info("playthrough complete", "game", c.game.ID, "score", c.score)
	return c.changedLocked(), done, c.score
}

func (c *Controller) finish(score int) {
	if c.onComplete != nil {
		c.onComplete(score)
	}
}

func (c *Controller) cancelLocked() {
	c.gen++
	if c.pending != nil {
		c.pending.Stop()
		c.pending = nil
	}
}

func (c *Controller) inputAllowedLocked() error {
	if c.closed.Load() {
		return domain.ErrControllerClosed
	}
	switch c.phase {
	case domain.PhaseEvaluated:
		return domain.ErrSubmissionLocked
	case domain.PhaseComplete:
		return domain.ErrPlaythroughComplete
	}
	return nil
}

func (c *Controller) changedLocked() Snapshot {
	c.version++
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	state := domain.ProgressionState{
		GameID:    c.game.ID,
		Index:     c.index,
		Total:     c.game.Len(),
		Score:     c.score,
		Phase:     c.phase,
		Selected:  c.sel.IDs(),
		Levels:    c.sel.Levels(),
		HintsUsed: c.hints,
		Attempts:  c.attempts,
	}
	if c.last != nil {
		out := *c.last
		state.LastResult = &out
	}
	snap := Snapshot{Version: c.version, State: state}
	if c.phase != domain.PhaseComplete && c.game.Len() > 0 {
		view := domain.NewScenarioView(c.game.Scenario(c.index), c.phase == domain.PhaseEvaluated)
		snap.Scenario = &view
	}
	return snap
}

func (c *Controller) emit(snap Snapshot) {
	if c.onChange == nil || c.closed.Load() {
		return
	}
	c.onChange(snap)
}
