package engine

import (
	"errors"
	"maps"
	"slices"

	"github.com/DoyleJ11/buzzer-backend/internal/content"
)

var ErrMissingPlayerID = errors.New("missing player id")
var ErrNoPlayer = errors.New("connection is not a player")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrNotAcceptingBuzz = errors.New("screen is not accepting buzzes")
var ErrBuzzerLocked = errors.New("buzzer already locked")
var ErrAlreadyPlayed = errors.New("question already marked played")
var ErrNoGameData = errors.New("no game data loaded")
var ErrLastRound = errors.New("already at last round")
var ErrRoundOutOfRange = errors.New("round out of range")
var ErrMissingDisplay = errors.New("missing display descriptor")
var ErrFinalOutOfOrder = errors.New("final round screen out of order")
var ErrUnsupportedCommand = errors.New("unsupported command")

type Screen string

const (
	ScreenLobby           Screen = "lobby"
	ScreenQR              Screen = "qr"
	ScreenBoard           Screen = "board"
	ScreenQuestion        Screen = "question"
	ScreenAnswer          Screen = "answer"
	ScreenFinalBets       Screen = "final_bets"
	ScreenFinalQuestion   Screen = "final_question"
	ScreenFinalProcessing Screen = "final_processing"
	ScreenFinalReveal     Screen = "final_reveal"
	ScreenGameOver        Screen = "game_over"
)

type ActiveQuestion struct {
	Text     string `json:"text"`
	Value    int    `json:"value"`
	Category string `json:"category"`
	Answer   string `json:"answer,omitempty"`
}

// Display is copied verbatim from the admin; the server never derives it.
type Display struct {
	Screen         Screen          `json:"screen"`
	ActiveQuestion *ActiveQuestion `json:"activeQuestion"`
}

type Player struct {
	ID     string  `json:"id"`
	ConnID string  `json:"socketId"`
	Name   string  `json:"name"`
	Score  int     `json:"score"`
	Bet    *int    `json:"bet,omitempty"`
	Answer *string `json:"answer,omitempty"`
}

type Rules struct {
	// StrictFinal rejects final round screens that skip the canonical order.
	StrictFinal bool `json:"strictFinal"`
}

type State struct {
	Players         map[string]Player `json:"players"`
	CurrentBuzzer   string            `json:"currentBuzzer"`
	IsBuzzerLocked  bool              `json:"isBuzzerLocked"`
	GameData        *content.GameData `json:"gameData"`
	PlayedQuestions []string          `json:"playedQuestions"`
	CurrentRound    int               `json:"currentRound"`
	Display         Display           `json:"display"`
	Rules           Rules             `json:"rules"`

	// conns maps a live connection id to the player it joined as.
	conns map[string]string
}

type CommandType string

const (
	CmdJoin               CommandType = "JoinGame"
	CmdBuzz               CommandType = "Buzz"
	CmdResetBuzzer        CommandType = "ResetBuzzer"
	CmdUpdateScore        CommandType = "UpdateScore"
	CmdUpdateDisplay      CommandType = "UpdateDisplay"
	CmdSetGameData        CommandType = "SetGameData"
	CmdMarkQuestionPlayed CommandType = "MarkQuestionPlayed"
	CmdResetGame          CommandType = "ResetGame"
	CmdDeleteGame         CommandType = "DeleteGame"
	CmdNextRound          CommandType = "NextRound"
	CmdSetRound           CommandType = "SetRound"
	CmdSubmitBet          CommandType = "SubmitBet"
	CmdSubmitAnswer       CommandType = "SubmitAnswer"
	CmdKickPlayer         CommandType = "KickPlayer"
	CmdPlaySound          CommandType = "PlaySound"
	CmdDisconnect         CommandType = "Disconnect"
)

// Command is one inbound event. ConnID is always the sender; the other
// fields are read according to Type.
type Command struct {
	Type     CommandType
	ConnID   string
	PlayerID string
	Name     string
	Delta    int
	Display  *Display
	GameData *content.GameData
	Key      string
	Round    int
	Bet      int
	Answer   string
	Sound    string
}

type EventType string

const (
	EvtPlayerJoined       EventType = "PlayerJoined"
	EvtPlayerReconnected  EventType = "PlayerReconnected"
	EvtPlayerDisconnected EventType = "PlayerDisconnected"
	EvtBuzzerLocked       EventType = "BuzzerLocked"
	EvtBuzzerReset        EventType = "BuzzerReset"
	EvtScoreChanged       EventType = "ScoreChanged"
	EvtDisplayChanged     EventType = "DisplayChanged"
	EvtGameDataLoaded     EventType = "GameDataLoaded"
	EvtQuestionPlayed     EventType = "QuestionPlayed"
	EvtGameReset          EventType = "GameReset"
	EvtGameDeleted        EventType = "GameDeleted"
	EvtRoundChanged       EventType = "RoundChanged"
	EvtBetSubmitted       EventType = "BetSubmitted"
	EvtAnswerSubmitted    EventType = "AnswerSubmitted"
	EvtPlayerKicked       EventType = "PlayerKicked"
	EvtSoundPlayed        EventType = "SoundPlayed"
)

// ChangesState reports whether clients need a fresh snapshot after the event.
func (t EventType) ChangesState() bool {
	switch t {
	case EvtPlayerDisconnected, EvtGameDeleted, EvtSoundPlayed:
		return false
	}
	return true
}

type Event struct {
	Type       EventType
	PlayerID   string
	PlayerName string
	Sound      string
}

// Apply runs one command against s. s is never mutated; on success the
// returned state is a fresh copy, on error it is s itself.
func Apply(s State, cmd Command) ([]Event, State, error) {
	switch cmd.Type {
	case CmdJoin:
		if cmd.PlayerID == "" {
			return nil, s, ErrMissingPlayerID
		}
		next := s.Clone()
		next.unbindConn(cmd.ConnID)
		if p, ok := next.Players[cmd.PlayerID]; ok {
			if next.conns[p.ConnID] == p.ID {
				delete(next.conns, p.ConnID)
			}
			p.ConnID = cmd.ConnID
			next.Players[p.ID] = p
			next.conns[cmd.ConnID] = p.ID
			return []Event{{Type: EvtPlayerReconnected, PlayerID: p.ID, PlayerName: p.Name}}, next, nil
		}
		next.Players[cmd.PlayerID] = Player{ID: cmd.PlayerID, ConnID: cmd.ConnID, Name: cmd.Name}
		next.conns[cmd.ConnID] = cmd.PlayerID
		return []Event{{Type: EvtPlayerJoined, PlayerID: cmd.PlayerID, PlayerName: cmd.Name}}, next, nil

	case CmdBuzz:
		p, ok := s.PlayerByConn(cmd.ConnID)
		if !ok {
			return nil, s, ErrNoPlayer
		}
		if s.Display.Screen != ScreenQuestion {
			return nil, s, ErrNotAcceptingBuzz
		}
		if s.IsBuzzerLocked || s.CurrentBuzzer != "" {
			return nil, s, ErrBuzzerLocked
		}
		next := s.Clone()
		next.CurrentBuzzer = p.ID
		next.IsBuzzerLocked = true
		return []Event{{Type: EvtBuzzerLocked, PlayerID: p.ID, PlayerName: p.Name}}, next, nil

	case CmdResetBuzzer:
		next := s.Clone()
		next.CurrentBuzzer = ""
		next.IsBuzzerLocked = false
		return []Event{{Type: EvtBuzzerReset}}, next, nil

	case CmdUpdateScore:
		p, ok := s.Players[cmd.PlayerID]
		if !ok {
			return nil, s, ErrUnknownPlayer
		}
		next := s.Clone()
		p.Score += cmd.Delta
		next.Players[p.ID] = p
		return []Event{{Type: EvtScoreChanged, PlayerID: p.ID}}, next, nil

	case CmdUpdateDisplay:
		if cmd.Display == nil {
			return nil, s, ErrMissingDisplay
		}
		if s.Rules.StrictFinal && !finalStepAllowed(s.Display.Screen, cmd.Display.Screen) {
			return nil, s, ErrFinalOutOfOrder
		}
		next := s.Clone()
		next.Display = cmd.Display.clone()
		return []Event{{Type: EvtDisplayChanged}}, next, nil

	case CmdSetGameData:
		if err := cmd.GameData.Validate(); err != nil {
			return nil, s, err
		}
		next := s.Clone()
		next.GameData = cmd.GameData
		next.PlayedQuestions = []string{}
		next.CurrentRound = 0
		return []Event{{Type: EvtGameDataLoaded}}, next, nil

	case CmdMarkQuestionPlayed:
		if slices.Contains(s.PlayedQuestions, cmd.Key) {
			return nil, s, ErrAlreadyPlayed
		}
		next := s.Clone()
		next.PlayedQuestions = append(next.PlayedQuestions, cmd.Key)
		return []Event{{Type: EvtQuestionPlayed}}, next, nil

	case CmdResetGame:
		next := s.Clone()
		next.GameData = nil
		next.PlayedQuestions = []string{}
		next.CurrentBuzzer = ""
		next.IsBuzzerLocked = false
		next.Display = Display{Screen: ScreenLobby}
		next.CurrentRound = 0
		for id, p := range next.Players {
			p.Score = 0
			p.Bet = nil
			p.Answer = nil
			next.Players[id] = p
		}
		return []Event{{Type: EvtGameReset}}, next, nil

	case CmdDeleteGame:
		return []Event{{Type: EvtGameDeleted}}, s, nil

	case CmdNextRound:
		if s.GameData == nil {
			return nil, s, ErrNoGameData
		}
		if s.CurrentRound >= s.GameData.LastRound() {
			return nil, s, ErrLastRound
		}
		next := s.Clone()
		next.CurrentRound++
		next.Display = Display{Screen: ScreenBoard}
		return []Event{{Type: EvtRoundChanged}}, next, nil

	case CmdSetRound:
		if s.GameData == nil {
			return nil, s, ErrNoGameData
		}
		if !s.GameData.HasRound(cmd.Round) {
			return nil, s, ErrRoundOutOfRange
		}
		next := s.Clone()
		next.CurrentRound = cmd.Round
		next.Display = Display{Screen: ScreenBoard}
		return []Event{{Type: EvtRoundChanged}}, next, nil

	case CmdSubmitBet:
		p, ok := s.PlayerByConn(cmd.ConnID)
		if !ok {
			return nil, s, ErrNoPlayer
		}
		next := s.Clone()
		bet := cmd.Bet
		p.Bet = &bet
		next.Players[p.ID] = p
		return []Event{{Type: EvtBetSubmitted, PlayerID: p.ID}}, next, nil

	case CmdSubmitAnswer:
		p, ok := s.PlayerByConn(cmd.ConnID)
		if !ok {
			return nil, s, ErrNoPlayer
		}
		next := s.Clone()
		answer := cmd.Answer
		p.Answer = &answer
		next.Players[p.ID] = p
		return []Event{{Type: EvtAnswerSubmitted, PlayerID: p.ID}}, next, nil

	case CmdKickPlayer:
		p, ok := s.Players[cmd.PlayerID]
		if !ok {
			return nil, s, ErrUnknownPlayer
		}
		next := s.Clone()
		if next.conns[p.ConnID] == p.ID {
			delete(next.conns, p.ConnID)
		}
		delete(next.Players, p.ID)
		return []Event{{Type: EvtPlayerKicked, PlayerID: p.ID, PlayerName: p.Name}}, next, nil

	case CmdPlaySound:
		return []Event{{Type: EvtSoundPlayed, Sound: cmd.Sound}}, s, nil

	case CmdDisconnect:
		id, ok := s.conns[cmd.ConnID]
		if !ok {
			return nil, s, ErrNoPlayer
		}
		next := s.Clone()
		delete(next.conns, cmd.ConnID)
		return []Event{{Type: EvtPlayerDisconnected, PlayerID: id}}, next, nil

	default:
		return nil, s, ErrUnsupportedCommand
	}
}

// PlayerByConn resolves the player a live connection joined as.
func (s State) PlayerByConn(connID string) (Player, bool) {
	id, ok := s.conns[connID]
	if !ok {
		return Player{}, false
	}
	p, ok := s.Players[id]
	return p, ok
}

// Clone copies everything Apply may write to. GameData and the bet/answer
// pointers are replaced, never written through, so they are shared.
func (s State) Clone() State {
	c := s
	c.Players = maps.Clone(s.Players)
	if c.Players == nil {
		c.Players = map[string]Player{}
	}
	c.conns = maps.Clone(s.conns)
	if c.conns == nil {
		c.conns = map[string]string{}
	}
	c.PlayedQuestions = slices.Clone(s.PlayedQuestions)
	if c.PlayedQuestions == nil {
		c.PlayedQuestions = []string{}
	}
	c.Display = s.Display.clone()
	return c
}

func (d Display) clone() Display {
	c := d
	if d.ActiveQuestion != nil {
		q := *d.ActiveQuestion
		c.ActiveQuestion = &q
	}
	return c
}

// unbindConn drops any previous identity held by connID, so a browser that
// switches player ids does not keep acting as the old one.
func (s *State) unbindConn(connID string) {
	delete(s.conns, connID)
}
