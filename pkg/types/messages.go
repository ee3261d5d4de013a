package types

import "time"

// Client -> Server event names. Payloads:
//
//	join-room            string room code
//	join-game            JoinGame
//	buzz, reset-buzzer   none
//	update-score         ScoreUpdate
//	update-display       display descriptor {screen, activeQuestion?}
//	set-game-data        content document {rounds: [...]}
//	mark-question-played string "round-category-question"
//	reset-game           none
//	delete-game          none
//	next-round           none
//	set-round            number
//	submit-bet           number
//	submit-answer        string
//	kick-player          string player id
//	play-sound           string sound name
//	get-games            none
const (
	EventJoinRoom           = "join-room"
	EventJoinGame           = "join-game"
	EventBuzz               = "buzz"
	EventResetBuzzer        = "reset-buzzer"
	EventUpdateScore        = "update-score"
	EventUpdateDisplay      = "update-display"
	EventSetGameData        = "set-game-data"
	EventMarkQuestionPlayed = "mark-question-played"
	EventResetGame          = "reset-game"
	EventDeleteGame         = "delete-game"
	EventNextRound          = "next-round"
	EventSetRound           = "set-round"
	EventSubmitBet          = "submit-bet"
	EventSubmitAnswer       = "submit-answer"
	EventKickPlayer         = "kick-player"
	EventPlaySound          = "play-sound"
	EventGetGames           = "get-games"
)

// Server -> Client event names.
//
//	game-state     version + full state snapshot
//	buzzer-winner  BuzzerWinner
//	reset-buzzer   none
//	play-sound     string sound name
//	game-deleted   none
//	games-list     []RoomSummary, sender only
//	error          error string, sender only
const (
	EventGameState    = "game-state"
	EventBuzzerWinner = "buzzer-winner"
	EventGameDeleted  = "game-deleted"
	EventGamesList    = "games-list"
	EventError        = "error"
)

// Sound cues known to the display client. play-sound relays any name.
const (
	SoundBuzzer   = "buzzer"
	SoundCorrect  = "correct"
	SoundWrong    = "wrong"
	SoundApplause = "applaus"
)

type JoinGame struct {
	Name     string `json:"name"`
	PlayerID string `json:"playerId"`
}

type ScoreUpdate struct {
	PlayerID string `json:"playerId"`
	Delta    int    `json:"delta"`
}

type BuzzerWinner struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

type RoomSummary struct {
	Code        string    `json:"code"`
	Name        string    `json:"name,omitempty"`
	PlayerCount int       `json:"playerCount"`
	CreatedAt   time.Time `json:"createdAt"`
}
