package tui

import (
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"kora-games/internal/domain"
	"kora-games/internal/progression"
)

// teaProgram abstracts bubbletea.Program for testing.
type teaProgram interface {
	Send(tea.Msg)
}

// forward returns controller callbacks that push into program. Send blocks until the event loop
// reads the message, and the loop may be inside Update calling the controller, so delivery runs on
// its own goroutine. The model drops snapshots that arrive out of order.
func forward(program func() teaProgram) (func(progression.Snapshot), func(int)) {
	onChange := func(s progression.Snapshot) {
		go program().Send(snapshotMsg{s})
	}
	onComplete := func(points int) {
		go program().Send(completeMsg{points: points})
	}
	return onChange, onComplete
}

// Play runs game in the terminal until the player quits. It returns the final score and whether
// the playthrough was completed.
func Play(game domain.Game, logger *slog.Logger, opts ...tea.ProgramOption) (int, bool, error) {
	var p *tea.Program
	onChange, onComplete := forward(func() teaProgram { return p })
	ctrl := progression.New(game,
		progression.WithLogger(logger),
		progression.WithOnChange(onChange),
		progression.WithOnComplete(onComplete),
	)
	defer ctrl.Close()

	p = tea.NewProgram(NewModel(ctrl), opts...)
	final, err := p.Run()
	if err != nil {
		return 0, false, err
	}
	m, ok := final.(Model)
	if !ok {
		return 0, false, nil
	}
	points, done := m.Points()
	if !done && m.snap.State.Phase == domain.PhaseComplete {
		points, done = m.snap.State.Score, true
	}
	return points, done, nil
}
