package ws

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/DoyleJ11/buzzer-backend/internal/content"
	"github.com/DoyleJ11/buzzer-backend/internal/engine"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	pkgtypes "github.com/DoyleJ11/buzzer-backend/pkg/types"
)

var ErrUnknownType = errors.New("unknown type")
var ErrBadPayload = errors.New("bad payload")

// toEngineCommand maps a domain event onto a room command. connID is the
// sender; identity-based transitions resolve the player from it.
func toEngineCommand(connID string, m types.ClientMessage) (engine.Command, error) {
	cmd := engine.Command{ConnID: connID}

	switch m.Type {
	case pkgtypes.EventJoinGame:
		var p pkgtypes.JoinGame
		if err := decode(m.Payload, &p); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.PlayerID, cmd.Name = engine.CmdJoin, p.PlayerID, p.Name

	case pkgtypes.EventBuzz:
		cmd.Type = engine.CmdBuzz

	case pkgtypes.EventResetBuzzer:
		cmd.Type = engine.CmdResetBuzzer

	case pkgtypes.EventUpdateScore:
		var p pkgtypes.ScoreUpdate
		if err := decode(m.Payload, &p); err != nil {
			return cmd, err
		}
		cmd.Type, cmd.PlayerID, cmd.Delta = engine.CmdUpdateScore, p.PlayerID, p.Delta

	case pkgtypes.EventUpdateDisplay:
		var d *engine.Display
		if err := decode(m.Payload, &d); err != nil {
			return cmd, err
		}
		if d == nil {
			return cmd, fmt.Errorf("%w: null display", ErrBadPayload)
		}
		cmd.Type, cmd.Display = engine.CmdUpdateDisplay, d

	case pkgtypes.EventSetGameData:
		g, err := content.Parse(m.Payload)
		if err != nil {
			return cmd, err
		}
		cmd.Type, cmd.GameData = engine.CmdSetGameData, g

	case pkgtypes.EventMarkQuestionPlayed:
		if err := decode(m.Payload, &cmd.Key); err != nil {
			return cmd, err
		}
		cmd.Type = engine.CmdMarkQuestionPlayed

	case pkgtypes.EventResetGame:
		cmd.Type = engine.CmdResetGame

	case pkgtypes.EventDeleteGame:
		cmd.Type = engine.CmdDeleteGame

	case pkgtypes.EventNextRound:
		cmd.Type = engine.CmdNextRound

	case pkgtypes.EventSetRound:
		if err := decode(m.Payload, &cmd.Round); err != nil {
			return cmd, err
		}
		cmd.Type = engine.CmdSetRound

	case pkgtypes.EventSubmitBet:
		if err := decode(m.Payload, &cmd.Bet); err != nil {
			return cmd, err
		}
		cmd.Type = engine.CmdSubmitBet

	case pkgtypes.EventSubmitAnswer:
		if err := decode(m.Payload, &cmd.Answer); err != nil {
			return cmd, err
		}
		cmd.Type = engine.CmdSubmitAnswer

	case pkgtypes.EventKickPlayer:
		if err := decode(m.Payload, &cmd.PlayerID); err != nil {
			return cmd, err
		}
		cmd.Type = engine.CmdKickPlayer

	case pkgtypes.EventPlaySound:
		if err := decode(m.Payload, &cmd.Sound); err != nil {
			return cmd, err
		}
		cmd.Type = engine.CmdPlaySound

	default:
		return cmd, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return cmd, nil
}

func decode(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("%w: missing", ErrBadPayload)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return nil
}
