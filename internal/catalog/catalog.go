// Package catalog supplies the fixed, ordered scenario data for each game.
package catalog

import (
	crand "crypto/rand"
	"embed"
	"encoding/binary"
	"fmt"
	"io/fs"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"kora-games/internal/domain"
)

// EmotionGamesHub groups the games whose completions feed persisted progress.
const EmotionGamesHub = "emotion-games"

//go:embed builtin/*.yaml
var builtinFS embed.FS

// Parse decodes a YAML game definition.
func Parse(data []byte) (domain.Game, error) {
	var g domain.Game
	if err := yaml.Unmarshal(data, &g); err != nil {
		return domain.Game{}, fmt.Errorf("parse game: %w", err)
	}
	if g.Mode == "" {
		g.Mode = defaultMode(g.Rule.Kind)
	}
	return g, nil
}

// Load reads a YAML game definition from disk.
func Load(path string) (domain.Game, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return domain.Game{}, fmt.Errorf("read game: %w", err)
	}
	return Parse(b)
}

// LoadDir reads every *.yaml file in dir, keyed by game ID.
func LoadDir(dir string) (map[string]domain.Game, error) {
	return loadFS(os.DirFS(dir), ".")
}

// Builtin returns the games shipped with the binary.
func Builtin() map[string]domain.Game {
	games, err := loadFS(builtinFS, "builtin")
	if err != nil {
		panic(fmt.Sprintf("builtin catalog: %v", err))
	}
	return games
}

func loadFS(fsys fs.FS, dir string) (map[string]domain.Game, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read catalog dir: %w", err)
	}
	games := make(map[string]domain.Game, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		b, err := fs.ReadFile(fsys, filepath.ToSlash(filepath.Join(dir, e.Name())))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", e.Name(), err)
		}
		g, err := Parse(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.Name(), err)
		}
		games[g.ID] = g
	}
	return games, nil
}

// Summaries lists games ordered by ID.
func Summaries(games map[string]domain.Game) []domain.GameSummary {
	out := make([]domain.GameSummary, 0, len(games))
	for _, g := range games {
		out = append(out, g.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// HubGames returns the IDs of games in hub, sorted.
func HubGames(games map[string]domain.Game, hub string) []string {
	var ids []string
	for id, g := range games {
		if g.Hub == hub {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Shuffled returns a copy of g with each scenario's options reordered by a PRNG seeded with seed.
// Scenario order never changes. Games without Shuffle are returned as-is.
func Shuffled(g domain.Game, seed int64) domain.Game {
	if !g.Shuffle {
		return g
	}
	rnd := rand.New(rand.NewSource(seed))
	out := g
	out.Scenarios = make([]domain.Scenario, len(g.Scenarios))
	for i, sc := range g.Scenarios {
		opts := append([]domain.Option(nil), sc.Options...)
		rnd.Shuffle(len(opts), func(a, b int) { opts[a], opts[b] = opts[b], opts[a] })
		sc.Options = opts
		out.Scenarios[i] = sc
	}
	return out
}

// WithDefaultDelay sets delay on every game whose catalog left it unset.
func WithDefaultDelay(games map[string]domain.Game, delay time.Duration) map[string]domain.Game {
	out := make(map[string]domain.Game, len(games))
	for id, g := range games {
		if g.Delay == 0 {
			g.Delay = delay
		}
		out[id] = g
	}
	return out
}

// NewSeed generates a shuffle seed using crypto/rand.
func NewSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func defaultMode(kind domain.RuleKind) domain.SelectionMode {
	switch kind {
	case domain.RuleMulti:
		return domain.ModeMulti
	case domain.RuleRecipe:
		return domain.ModeLevels
	default:
		return domain.ModeSingle
	}
}
