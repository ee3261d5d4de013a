package content

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrMissingRounds = errors.New("missing rounds array")
var ErrMalformed = errors.New("malformed game data")

type RoundType string

const (
	RoundNormal RoundType = "normal"
	RoundFinal  RoundType = "final"
)

type Question struct {
	Text   string `json:"text"`
	Answer string `json:"answer"`
	Value  int    `json:"value"`
}

type Category struct {
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

type Round struct {
	Name       string     `json:"name"`
	Type       RoundType  `json:"type,omitempty"`
	Categories []Category `json:"categories"`
}

// IsFinal reports whether the round is the single-question betting round.
func (r Round) IsFinal() bool { return r.Type == RoundFinal }

// GameData is a loaded board: rounds -> categories -> questions.
// A document is treated as immutable once it has been handed to a room.
type GameData struct {
	Rounds []Round `json:"rounds"`
}

// Validate only checks shape presence. Question text and values are trusted.
func (g *GameData) Validate() error {
	if g == nil || g.Rounds == nil {
		return ErrMissingRounds
	}
	for i, r := range g.Rounds {
		switch r.Type {
		case "", RoundNormal, RoundFinal:
		default:
			return fmt.Errorf("%w: round %d has unknown type %q", ErrMalformed, i, r.Type)
		}
	}
	return nil
}

// HasRound reports whether idx addresses an existing round.
func (g *GameData) HasRound(idx int) bool {
	return g != nil && idx >= 0 && idx < len(g.Rounds)
}

// LastRound returns the index of the last round, or -1 when there are none.
func (g *GameData) LastRound() int {
	if g == nil {
		return -1
	}
	return len(g.Rounds) - 1
}

// Parse decodes and validates a game document at the loading boundary.
func Parse(data []byte) (*GameData, error) {
	var g GameData
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &g, nil
}
