package domain

import "time"

// RuleKind names a scoring rule.
type RuleKind string

const (
	RuleSingle RuleKind = "single"
	RuleMulti  RuleKind = "multi"
	RuleRecipe RuleKind = "recipe"
)

// SelectionMode controls how player input builds a selection.
type SelectionMode string

const (
	// ModeSingle keeps at most one option selected; selecting another replaces it.
	ModeSingle SelectionMode = "single"
	// ModeMulti toggles options in and out of the selection.
	ModeMulti SelectionMode = "multi"
	// ModeLevels assigns an intensity level per component.
	ModeLevels SelectionMode = "levels"
)

// RuleConfig parameterizes a scoring rule for one game.
type RuleConfig struct {
	Kind RuleKind `json:"kind" yaml:"kind"`
	// Points is the fixed bonus for single-answer games and the base award for recipes.
	Points  int `json:"points,omitempty" yaml:"points,omitempty"`
	Reward  int `json:"reward,omitempty" yaml:"reward,omitempty"`
	Penalty int `json:"penalty,omitempty" yaml:"penalty,omitempty"`
	// FloorDelta floors each scenario's delta at zero before it is added to the score.
	FloorDelta   bool `json:"floorDelta,omitempty" yaml:"floor_delta,omitempty"`
	RetryPenalty int  `json:"retryPenalty,omitempty" yaml:"retry_penalty,omitempty"`
	MinAward     int  `json:"minAward,omitempty" yaml:"min_award,omitempty"`
}

// Option is a selectable choice (label, clue, perspective, strategy or recipe component).
type Option struct {
	ID          string `json:"id" yaml:"id"`
	Text        string `json:"text" yaml:"text"`
	Correct     bool   `json:"correct,omitempty" yaml:"correct,omitempty"`
	Explanation string `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Points      int    `json:"points,omitempty" yaml:"points,omitempty"`
	MaxLevel    int    `json:"maxLevel,omitempty" yaml:"max_level,omitempty"`
}

// Scenario is one unit of a game's content.
type Scenario struct {
	ID          string         `json:"id" yaml:"id"`
	Prompt      string         `json:"prompt" yaml:"prompt"`
	Options     []Option       `json:"options" yaml:"options"`
	Explanation string         `json:"explanation,omitempty" yaml:"explanation,omitempty"`
	Hint        string         `json:"hint,omitempty" yaml:"hint,omitempty"`
	Points      int            `json:"points,omitempty" yaml:"points,omitempty"`
	Recipe      map[string]int `json:"recipe,omitempty" yaml:"recipe,omitempty"`
}

// Option returns the option with the given ID.
func (s Scenario) Option(id string) (Option, bool) {
	for _, opt := range s.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// Game is a fixed, ordered scenario catalog plus the rules used to play it.
type Game struct {
	ID          string        `json:"id" yaml:"id"`
	Title       string        `json:"title" yaml:"title"`
	Description string        `json:"description,omitempty" yaml:"description,omitempty"`
	Hub         string        `json:"hub,omitempty" yaml:"hub,omitempty"`
	Rule        RuleConfig    `json:"rule" yaml:"rule"`
	Mode        SelectionMode `json:"mode" yaml:"mode"`
	Delay       time.Duration `json:"delay" yaml:"delay"`
	Shuffle     bool          `json:"shuffle,omitempty" yaml:"shuffle,omitempty"`
	Scenarios   []Scenario    `json:"scenarios" yaml:"scenarios"`
}

// Len is the number of scenarios in the catalog.
func (g Game) Len() int { return len(g.Scenarios) }

// Scenario returns the scenario at index i.
func (g Game) Scenario(i int) Scenario { return g.Scenarios[i] }

// GameSummary is the listing view of a game.
type GameSummary struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	Hub         string   `json:"hub,omitempty"`
	Kind        RuleKind `json:"kind"`
	Scenarios   int      `json:"scenarios"`
}

// Summary builds the listing view.
func (g Game) Summary() GameSummary {
	return GameSummary{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Hub:         g.Hub,
		Kind:        g.Rule.Kind,
		Scenarios:   len(g.Scenarios),
	}
}
