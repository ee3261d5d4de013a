package engine

import "fmt"

func NewEmptyState() State {
	return State{
		Players:         map[string]Player{},
		PlayedQuestions: []string{},
		Display:         Display{Screen: ScreenLobby},
		CurrentRound:    0,
		conns:           map[string]string{},
	}
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}

// QuestionKey builds the played-question key "round-category-question".
func QuestionKey(round, category, question int) string {
	return fmt.Sprintf("%d-%d-%d", round, category, question)
}

// ConnCount is the number of connections currently bound to a player.
func (s State) ConnCount() int { return len(s.conns) }
