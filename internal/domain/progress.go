package domain

import (
	"sort"
	"time"
)

// ProgressSchemaVersion is the current PersistedProgress layout.
const ProgressSchemaVersion = 1

// Progress is the cross-session aggregate for the emotion games hub, one per installation.
type Progress struct {
	SchemaVersion int            `json:"schemaVersion"`
	TotalPoints   int            `json:"totalPoints"`
	Streak        int            `json:"streak"`
	Badges        []string       `json:"badges"`
	Plays         map[string]int `json:"plays"`
	LastPlayed    time.Time      `json:"lastPlayed"`
}

// NewProgress returns an empty record at the current schema version.
func NewProgress() Progress {
	return Progress{
		SchemaVersion: ProgressSchemaVersion,
		Badges:        []string{},
		Plays:         make(map[string]int),
	}
}

// HasBadge reports whether the badge was already earned.
func (p Progress) HasBadge(id string) bool {
	for _, b := range p.Badges {
		if b == id {
			return true
		}
	}
	return false
}

// AddBadge inserts id keeping the set sorted; it reports whether the badge is new.
func (p *Progress) AddBadge(id string) bool {
	if p.HasBadge(id) {
		return false
	}
	p.Badges = append(p.Badges, id)
	sort.Strings(p.Badges)
	return true
}

// CompletionEvent is emitted when a playthrough finishes.
type CompletionEvent struct {
	PlaythroughID string    `json:"playthroughId"`
	GameID        string    `json:"gameId"`
	Points        int       `json:"points"`
	TotalPoints   int       `json:"totalPoints,omitempty"`
	Streak        int       `json:"streak,omitempty"`
	NewBadges     []string  `json:"newBadges,omitempty"`
	CompletedAt   time.Time `json:"completedAt"`
}
