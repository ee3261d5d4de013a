package types

import (
	"encoding/json"

	"github.com/DoyleJ11/buzzer-backend/internal/engine"
)

type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ServerMessage struct {
	Type    string        `json:"type"` // see pkg/types Event* names
	Version int           `json:"version,omitempty"`
	State   *engine.State `json:"state,omitempty"`
	Payload any           `json:"payload,omitempty"`
	Error   string        `json:"error,omitempty"`
}
