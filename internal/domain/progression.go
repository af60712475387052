package domain

import "sort"

// Phase is the progression state machine position.
type Phase string

const (
	PhaseAwaiting  Phase = "awaiting_selection"
	PhaseEvaluated Phase = "evaluated"
	PhaseComplete  Phase = "complete"
)

// Selection holds the player's in-progress input for the active scenario.
type Selection struct {
	options map[string]struct{}
	levels  map[string]int
}

// Toggle flips membership of id. In exclusive mode any other member is dropped first.
func (s *Selection) Toggle(id string, exclusive bool) {
	if s.options == nil {
		s.options = make(map[string]struct{})
	}
	if _, ok := s.options[id]; ok {
		delete(s.options, id)
		return
	}
	if exclusive {
		clear(s.options)
	}
	s.options[id] = struct{}{}
}

// SetLevel records an intensity for a component; zero removes it.
func (s *Selection) SetLevel(id string, level int) {
	if s.levels == nil {
		s.levels = make(map[string]int)
	}
	if level <= 0 {
		delete(s.levels, id)
		return
	}
	s.levels[id] = level
}

// Has reports whether id is selected.
func (s Selection) Has(id string) bool {
	_, ok := s.options[id]
	return ok
}

// Level returns the intensity for id.
func (s Selection) Level(id string) int { return s.levels[id] }

// Empty reports whether nothing has been chosen.
func (s Selection) Empty() bool {
	return len(s.options) == 0 && len(s.levels) == 0
}

// IDs returns selected option IDs in sorted order.
func (s Selection) IDs() []string {
	ids := make([]string, 0, len(s.options))
	for id := range s.options {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Levels returns a copy of the component levels.
func (s Selection) Levels() map[string]int {
	out := make(map[string]int, len(s.levels))
	for k, v := range s.levels {
		out[k] = v
	}
	return out
}

// Clone returns an independent copy.
func (s Selection) Clone() Selection {
	c := Selection{}
	if len(s.options) > 0 {
		c.options = make(map[string]struct{}, len(s.options))
		for k := range s.options {
			c.options[k] = struct{}{}
		}
	}
	if len(s.levels) > 0 {
		c.levels = s.Levels()
	}
	return c
}

// NewSelection builds a selection from option IDs, mostly for tests and callers replaying input.
func NewSelection(ids ...string) Selection {
	s := Selection{}
	for _, id := range ids {
		s.Toggle(id, false)
	}
	return s
}

// NewLevelSelection builds a levels selection.
func NewLevelSelection(levels map[string]int) Selection {
	s := Selection{}
	for k, v := range levels {
		s.SetLevel(k, v)
	}
	return s
}

// Outcome is what a scoring rule reports for one submission.
type Outcome struct {
	Correct bool `json:"correct"`
	// Retry means the attempt was rejected and the scenario stays open.
	Retry       bool   `json:"retry,omitempty"`
	Delta       int    `json:"delta"`
	Explanation string `json:"explanation,omitempty"`
}

// ProgressionState is the mutable aggregate of one playthrough.
type ProgressionState struct {
	GameID    string         `json:"gameId"`
	Index     int            `json:"index"`
	Total     int            `json:"total"`
	Score     int            `json:"score"`
	Phase     Phase          `json:"phase"`
	Selected  []string       `json:"selected"`
	Levels    map[string]int `json:"levels,omitempty"`
	HintsUsed int            `json:"hintsUsed"`
	// Attempts counts failed attempts on the current scenario.
	Attempts   int      `json:"attempts"`
	LastResult *Outcome `json:"lastResult,omitempty"`
}

// ScenarioView is the player-facing projection of a scenario; correctness flags are withheld
// until the scenario has been evaluated.
type ScenarioView struct {
	ID          string       `json:"id"`
	Prompt      string       `json:"prompt"`
	Options     []OptionView `json:"options"`
	Explanation string       `json:"explanation,omitempty"`
}

// OptionView is the player-facing projection of an option.
type OptionView struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	MaxLevel    int    `json:"maxLevel,omitempty"`
	Correct     *bool  `json:"correct,omitempty"`
	Explanation string `json:"explanation,omitempty"`
}

// NewScenarioView projects sc; reveal exposes correctness and explanations.
func NewScenarioView(sc Scenario, reveal bool) ScenarioView {
	view := ScenarioView{ID: sc.ID, Prompt: sc.Prompt, Options: make([]OptionView, 0, len(sc.Options))}
	if reveal {
		view.Explanation = sc.Explanation
	}
	for _, opt := range sc.Options {
		ov := OptionView{ID: opt.ID, Text: opt.Text, MaxLevel: opt.MaxLevel}
		if reveal {
			correct := opt.Correct
			ov.Correct = &correct
			ov.Explanation = opt.Explanation
		}
		view.Options = append(view.Options, ov)
	}
	return view
}
