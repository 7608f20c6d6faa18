package engine

import (
	"github.com/palemoky/call-break/internal/game/card"
	"github.com/palemoky/call-break/internal/game/rule"
)

// EventType 领域事件类型
type EventType string

const (
	EventPhaseChanged   EventType = "phase_changed"
	EventCardsDealt     EventType = "cards_dealt"
	EventTurnChanged    EventType = "turn_changed"
	EventBidPlaced      EventType = "bid_placed"
	EventCardPlayed     EventType = "card_played"
	EventTrickCompleted EventType = "trick_completed"
	EventRoundCompleted EventType = "round_completed"
	EventGameOver       EventType = "game_over"
)

// Event 状态机发出的领域事件，按发生顺序排列
type Event struct {
	Type        EventType
	Phase       Phase
	Round       int
	Seat        int
	Bid         int
	Card        card.Card
	Trick       []rule.TrickEntry
	TrickNumber int
	RoundScores []rule.Score
	Standings   []Standing
}

func (m *Manager) emit(e Event) {
	if e.Round == 0 {
		e.Round = m.state.CurrentRound
	}
	m.events = append(m.events, e)
}

func (m *Manager) setPhase(p Phase) {
	m.state.Phase = p
	m.emit(Event{Type: EventPhaseChanged, Phase: p, Seat: m.state.CurrentTurnSeat})
}

func (m *Manager) setTurn(seat int) {
	m.state.CurrentTurnSeat = seat
	if seat != NoSeat {
		m.emit(Event{Type: EventTurnChanged, Phase: m.state.Phase, Seat: seat})
	}
}

// Drain 取出并清空待处理事件
func (m *Manager) Drain() []Event {
	events := m.events
	m.events = nil
	return events
}
