package app

import (
	"sync"
	"time"

	"kora-games/internal/domain"
	"kora-games/internal/progression"
)

// EventType names what an Event carries.
type EventType string

const (
	EventState    EventType = "state"
	EventComplete EventType = "complete"
)

// Event is pushed to playthrough subscribers.
type Event struct {
	Type       EventType               `json:"type"`
	State      *progression.Snapshot   `json:"state,omitempty"`
	Completion *domain.CompletionEvent `json:"completion,omitempty"`
}

// Playthrough is one player's live run through a game.
type Playthrough struct {
	ID             string
	InstallationID string
	Seed           int64
	StartedAt      time.Time

	ctrl *progression.Controller

	mu          sync.Mutex
	closed      bool
	subscribers map[chan Event]*subscriber
}

// subscriber remembers the newest state version a channel has been sent.
type subscriber struct {
	version uint64
}

func newPlaythrough(id, installationID string, seed int64, now time.Time) *Playthrough {
	return &Playthrough{
		ID:             id,
		InstallationID: installationID,
		Seed:           seed,
		StartedAt:      now,
		subscribers:    make(map[chan Event]*subscriber),
	}
}

// Controller exposes the underlying progression controller.
func (p *Playthrough) Controller() *progression.Controller { return p.ctrl }

// Snapshot returns the current state.
func (p *Playthrough) Snapshot() progression.Snapshot { return p.ctrl.Snapshot() }

func (p *Playthrough) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		close(ch)
		return ch, func() {}
	}
	initial := p.ctrl.Snapshot()
	p.subscribers[ch] = &subscriber{version: initial.Version}
	ch <- Event{Type: EventState, State: &initial}
	p.mu.Unlock()

	cancel := func() {
		p.mu.Lock()
		if _, ok := p.subscribers[ch]; ok {
			delete(p.subscribers, ch)
			close(ch)
		}
		p.mu.Unlock()
	}
	return ch, cancel
}

// publishState forwards snap to every subscriber that has not yet seen a newer version. Timer and
// caller goroutines can deliver snapshots out of order, and a subscriber's initial snapshot may
// already be ahead of one still in flight.
func (p *Playthrough) publishState(snap progression.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	ev := Event{Type: EventState, State: &snap}
	for ch, sub := range p.subscribers {
		if snap.Version <= sub.version {
			continue
		}
		sub.version = snap.Version
		deliverLocked(ch, ev)
	}
}

func (p *Playthrough) publishComplete(ev domain.CompletionEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	for ch := range p.subscribers {
		deliverLocked(ch, Event{Type: EventComplete, Completion: &ev})
	}
}

func deliverLocked(ch chan Event, ev Event) {
	select {
	case ch <- ev:
	default:
		// drop the oldest event so a slow client never blocks the controller
		select {
		case <-ch:
		default:
		}
		ch <- ev
	}
}

func (p *Playthrough) close() {
	p.ctrl.Close()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for ch := range p.subscribers {
		delete(p.subscribers, ch)
		close(ch)
	}
}
