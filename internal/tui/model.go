// Package tui renders a playthrough in the terminal with bubbletea.
package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"kora-games/internal/domain"
	"kora-games/internal/progression"
)

// Player is the subset of progression.Controller the model drives.
type Player interface {
	Game() domain.Game
	Select(optionID string) error
	SetLevel(componentID string, level int) error
	Submit() (domain.Outcome, error)
	Hint() (string, error)
	Reset() error
	Close()
	Snapshot() progression.Snapshot
}

// snapshotMsg carries a state change pushed by the controller.
type snapshotMsg struct{ progression.Snapshot }

// completeMsg reports the final score.
type completeMsg struct{ points int }

const defaultWidth = 72

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	correctStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	wrongStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14")).Italic(true)
	boxStyle     = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Model is the bubbletea model for one playthrough.
type Model struct {
	player   Player
	game     domain.Game
	snap     progression.Snapshot
	cursor   int
	width    int
	status   string
	hint     string
	points   int
	finished bool
	quitting bool
}

// NewModel builds a model over player.
func NewModel(player Player) Model {
	return Model{
		player: player,
		game:   player.Game(),
		snap:   player.Snapshot(),
		width:  defaultWidth,
	}
}

// Points returns the final score once the playthrough completed.
func (m Model) Points() (int, bool) { return m.points, m.finished }

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width > 0 {
			m.width = msg.Width
		}
	case snapshotMsg:
		m.apply(msg.Snapshot)
	case completeMsg:
		m.points = msg.points
		m.finished = true
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	opts := m.options()
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		m.player.Close()
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case "down", "j":
		if m.cursor < len(opts)-1 {
			m.cursor++
		}
		return m, nil
	}

	m.status = ""
	switch msg.String() {
	case " ", "space":
		if m.cursor < len(opts) {
			m.report(m.player.Select(opts[m.cursor].ID))
		}
	case "+", "=", "right":
		if m.cursor < len(opts) {
			id := opts[m.cursor].ID
			m.report(m.player.SetLevel(id, m.snap.State.Levels[id]+1))
		}
	case "-", "left":
		if m.cursor < len(opts) {
			id := opts[m.cursor].ID
			m.report(m.player.SetLevel(id, m.snap.State.Levels[id]-1))
		}
	case "enter":
		out, err := m.player.Submit()
		m.report(err)
		if err == nil {
			m.status = outcomeText(out)
		}
	case "h":
		hint, err := m.player.Hint()
		m.report(err)
		if err == nil {
			m.hint = hint
			if hint == "" {
				m.hint = "No hint for this one."
			}
		}
	case "r":
		if err := m.player.Reset(); err == nil {
			m.cursor = 0
			m.hint = ""
			m.status = ""
			m.finished = false
			m.points = 0
		}
	default:
		return m, nil
	}
	m.apply(m.player.Snapshot())
	return m, nil
}

// apply keeps the newest snapshot; pushed snapshots may arrive after a fresher read.
func (m *Model) apply(s progression.Snapshot) {
	if s.Version < m.snap.Version {
		return
	}
	if s.State.Index != m.snap.State.Index {
		m.cursor = 0
		m.hint = ""
	}
	m.snap = s
	if m.cursor >= len(m.options()) {
		m.cursor = 0
	}
}

func (m *Model) report(err error) {
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrEmptySelection):
		m.status = "Pick an answer first."
	case errors.Is(err, domain.ErrSubmissionLocked):
		m.status = "Wait for the next question."
	case errors.Is(err, domain.ErrUnsupportedInput):
		m.status = "That key does nothing in this game."
	default:
		m.status = err.Error()
	}
}

func (m Model) options() []domain.OptionView {
	if m.snap.Scenario == nil {
		return nil
	}
	return m.snap.Scenario.Options
}

func outcomeText(out domain.Outcome) string {
	switch {
	case out.Retry:
		return fmt.Sprintf("Not quite, try again (%+d).", out.Delta)
	case out.Correct:
		return fmt.Sprintf("Correct! %+d", out.Delta)
	default:
		return fmt.Sprintf("Not this time. %+d", out.Delta)
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	st := m.snap.State
	b.WriteString(titleStyle.Render(m.game.Title))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  score %d", st.Score)))
	b.WriteString("\n\n")

	if st.Phase == domain.PhaseComplete {
		b.WriteString(boxStyle.Render(fmt.Sprintf("All done! You scored %d points.", st.Score)))
		b.WriteString("\n\n")
		b.WriteString(dimStyle.Render("r play again • q quit"))
		return b.String()
	}

	wrap := m.width - 4
	if wrap < 20 {
		wrap = 20
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("Question %d of %d", st.Index+1, st.Total)))
	b.WriteString("\n")
	if sc := m.snap.Scenario; sc != nil {
		b.WriteString(promptStyle.Render(wordwrap.String(sc.Prompt, wrap)))
		b.WriteString("\n\n")
		for i, o := range sc.Options {
			b.WriteString(m.optionLine(i, o))
			b.WriteString("\n")
		}
		if st.Phase == domain.PhaseEvaluated && sc.Explanation != "" {
			b.WriteString("\n")
			b.WriteString(wordwrap.String(sc.Explanation, wrap))
			b.WriteString("\n")
		}
	}
	if m.hint != "" {
		b.WriteString("\n")
		b.WriteString(hintStyle.Render(wordwrap.String(m.hint, wrap)))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString("\n")
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.help()))
	return b.String()
}

func (m Model) optionLine(i int, o domain.OptionView) string {
	cursor := "  "
	if i == m.cursor {
		cursor = cursorStyle.Render("> ")
	}
	var mark string
	if m.game.Mode == domain.ModeLevels {
		mark = fmt.Sprintf("[%d/%d]", m.snap.State.Levels[o.ID], o.MaxLevel)
	} else {
		mark = "[ ]"
		for _, id := range m.snap.State.Selected {
			if id == o.ID {
				mark = "[x]"
				break
			}
		}
	}
	line := fmt.Sprintf("%s%s %s", cursor, mark, o.Text)
	if o.Correct != nil {
		if *o.Correct {
			return correctStyle.Render(line)
		}
		return wrongStyle.Render(line)
	}
	return line
}

func (m Model) help() string {
	if m.game.Mode == domain.ModeLevels {
		return "↑/↓ move • +/- level • enter mix • h hint • r restart • q quit"
	}
	return "↑/↓ move • space choose • enter submit • h hint • r restart • q quit"
}
