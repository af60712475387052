// Package scoring computes per-scenario point deltas. Every rule is a pure function of the
// scenario, the player's selection and the number of failed attempts already made on it.
package scoring

import "kora-games/internal/domain"

const (
	defaultSinglePoints = 1
	defaultReward       = 10
	defaultPenalty      = 5
	defaultRetryPenalty = 5
	defaultMinAward     = 10
	defaultRecipePoints = 30
)

// Rule scores one submission.
type Rule interface {
	Score(sc domain.Scenario, sel domain.Selection, failedAttempts int) domain.Outcome
}

// RuleFunc adapts a function to Rule.
type RuleFunc func(sc domain.Scenario, sel domain.Selection, failedAttempts int) domain.Outcome

func (f RuleFunc) Score(sc domain.Scenario, sel domain.Selection, failedAttempts int) domain.Outcome {
	return f(sc, sel, failedAttempts)
}

// For resolves the rule configured for a game.
func For(cfg domain.RuleConfig) Rule {
	switch cfg.Kind {
	case domain.RuleMulti:
		return MultiSelect{Reward: cfg.Reward, Penalty: cfg.Penalty, FloorDelta: cfg.FloorDelta}
	case domain.RuleRecipe:
		return Recipe{Points: cfg.Points, RetryPenalty: cfg.RetryPenalty, MinAward: cfg.MinAward}
	default:
		return SingleCorrect{Points: cfg.Points}
	}
}

// SingleCorrect awards a fixed bonus when the one selected option is flagged correct.
type SingleCorrect struct {
	Points int
}

func (r SingleCorrect) Score(sc domain.Scenario, sel domain.Selection, _ int) domain.Outcome {
	ids := sel.IDs()
	if len(ids) != 1 {
		return domain.Outcome{Explanation: sc.Explanation}
	}
	opt, ok := sc.Option(ids[0])
	if !ok || !opt.Correct {
		return domain.Outcome{Explanation: explain(sc, opt)}
	}
	return domain.Outcome{
		Correct:     true,
		Delta:       firstPositive(opt.Points, sc.Points, r.Points, defaultSinglePoints),
		Explanation: explain(sc, opt),
	}
}

// MultiSelect adds a reward per correct selection and subtracts a penalty per incorrect one.
type MultiSelect struct {
	Reward     int
	Penalty    int
	FloorDelta bool
}

func (r MultiSelect) Score(sc domain.Scenario, sel domain.Selection, _ int) domain.Outcome {
	reward := firstPositive(r.Reward, defaultReward)
	penalty := firstPositive(r.Penalty, defaultPenalty)

	delta := 0
	hits, misses := 0, 0
	for _, id := range sel.IDs() {
		opt, ok := sc.Option(id)
		if !ok {
			continue
		}
		if opt.Correct {
			hits++
			delta += firstPositive(opt.Points, reward)
			continue
		}
		misses++
		if opt.Points < 0 {
			delta += opt.Points
		} else {
			delta -= penalty
		}
	}
	if r.FloorDelta && delta < 0 {
		delta = 0
	}

	correctTotal := 0
	for _, opt := range sc.Options {
		if opt.Correct {
			correctTotal++
		}
	}
	return domain.Outcome{
		Correct:     misses == 0 && hits == correctTotal,
		Delta:       delta,
		Explanation: sc.Explanation,
	}
}

// Recipe requires the selected levels to match the scenario recipe exactly. Each failed attempt
// lowers the eventual award by RetryPenalty, never below MinAward.
type Recipe struct {
	Points       int
	RetryPenalty int
	MinAward     int
}

func (r Recipe) Score(sc domain.Scenario, sel domain.Selection, failedAttempts int) domain.Outcome {
	if !Matches(sc.Recipe, sel.Levels()) {
		return domain.Outcome{Retry: true}
	}
	return domain.Outcome{
		Correct:     true,
		Delta:       r.Award(sc, failedAttempts),
		Explanation: sc.Explanation,
	}
}

// Award is the points granted for a correct recipe after failedAttempts misses.
func (r Recipe) Award(sc domain.Scenario, failedAttempts int) int {
	base := firstPositive(sc.Points, r.Points, defaultRecipePoints)
	retry := firstPositive(r.RetryPenalty, defaultRetryPenalty)
	minAward := firstPositive(r.MinAward, defaultMinAward)
	award := base - retry*failedAttempts
	if award < minAward {
		return minAward
	}
	return award
}

// Matches reports whether levels equals recipe on every listed component and sets nothing else.
func Matches(recipe, levels map[string]int) bool {
	for comp, want := range recipe {
		if levels[comp] != want {
			return false
		}
	}
	for comp, got := range levels {
		if got == 0 {
			continue
		}
		if _, ok := recipe[comp]; !ok {
			return false
		}
	}
	return true
}

func explain(sc domain.Scenario, opt domain.Option) string {
	if opt.Explanation != "" {
		return opt.Explanation
	}
	return sc.Explanation
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
