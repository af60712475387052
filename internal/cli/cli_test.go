package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"kora-games/internal/catalog"
	"kora-games/internal/config"
	"kora-games/internal/domain"
)

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"start", "migrate", "play", "games", "records"} {
		if cmd, _, err := root.Find([]string{name}); err != nil || cmd.Name() != name {
			t.Fatalf("subcommand %s not registered: %v", name, err)
		}
	}
}

func TestGamesCommandListsBuiltins(t *testing.T) {
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"games", "--config", filepath.Join(t.TempDir(), "none.yaml")})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("games: %v", err)
	}
	for id := range catalog.Builtin() {
		if !strings.Contains(out.String(), id) {
			t.Fatalf("expected %s in listing:\n%s", id, out.String())
		}
	}
}

func TestLocalCatalogFromDirWithDefaultDelay(t *testing.T) {
	dir := t.TempDir()
	body := `id: quick
title: Quick
rule:
  kind: single
scenarios:
  - id: s1
    prompt: pick
    options:
      - {id: a, text: A, correct: true}
`
	if err := os.WriteFile(filepath.Join(dir, "quick.yaml"), []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	var cfg config.Config
	cfg.Catalog.Dir = dir
	cfg.Games.DefaultDelay = "750ms"

	games, err := localCatalog(cfg)
	if err != nil {
		t.Fatalf("local catalog: %v", err)
	}
	if len(games) != 1 || games["quick"].Delay != 750*time.Millisecond {
		t.Fatalf("unexpected games %+v", games)
	}
	if games["quick"].Mode != domain.ModeSingle {
		t.Fatalf("expected default mode single, got %s", games["quick"].Mode)
	}
}

func TestPrintGames(t *testing.T) {
	var out bytes.Buffer
	err := printGames(&out, []domain.GameSummary{{ID: "emotion-match", Title: "Match the Face", Kind: domain.RuleSingle, Scenarios: 4, Hub: catalog.EmotionGamesHub}})
	if err != nil {
		t.Fatalf("print: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "emotion-match") {
		t.Fatalf("unexpected output:\n%s", out.String())
	}
}

func TestRecordsCommandValidatesFiles(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "posts.json")
	bad := filepath.Join(dir, "chat.json")
	if err := os.WriteFile(good, []byte(`[{"id":"p1","authorId":"u1","title":"Hi","body":"First post","likes":0,"createdAt":"2024-05-01T10:00:00Z"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := os.WriteFile(bad, []byte(`[{"id":"m1","sessionId":"s1","role":"bot","text":"hello","sentAt":"2024-05-01T10:00:00Z"}]`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs([]string{"records", "--kind", "post", good})
	if err := root.ExecuteContext(context.Background()); err != nil {
		t.Fatalf("records: %v", err)
	}
	if !strings.Contains(out.String(), "1 post records ok") {
		t.Fatalf("unexpected output %q", out.String())
	}

	root = newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"records", "--kind", "chat", bad})
	err := root.ExecuteContext(context.Background())
	if !errors.Is(err, domain.ErrInvalidRecord) {
		t.Fatalf("expected ErrInvalidRecord for an unknown chat role, got %v", err)
	}

	root = newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"records", "--kind", "poll", good})
	if err := root.ExecuteContext(context.Background()); err == nil || !strings.Contains(err.Error(), "unknown record kind") {
		t.Fatalf("expected unknown kind error, got %v", err)
	}
}
