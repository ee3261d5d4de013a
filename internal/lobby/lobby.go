package lobby

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/buzzer-backend/internal/engine"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	pkgtypes "github.com/DoyleJ11/buzzer-backend/pkg/types"
)

type Msg interface{ isLobbyMsg() }

type FromClient struct {
	Cmd engine.Command
}

func (FromClient) isLobbyMsg() {}

type Join struct {
	ConnID string
	Outbox chan types.ServerMessage // where this connection receives room traffic
}

func (Join) isLobbyMsg() {}

// Leave unbinds a connection. The player entry stays; only the
// connection index is cleared.
type Leave struct{ ConnID string }

func (Leave) isLobbyMsg() {}

// Shutdown stops the room. With Notify set, bound connections get a
// game-deleted message first.
type Shutdown struct{ Notify bool }

func (Shutdown) isLobbyMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isLobbyMsg() {}

type View struct {
	Version    int
	NumClients int
	State      engine.State
}

type Config struct {
	Code      string
	Name      string
	CreatedAt time.Time
	InboxSize int
	Logger    *zap.Logger
	// OnDelete runs on the lobby goroutine once a delete-game has been
	// processed and the lobby has stopped.
	OnDelete func(*Lobby)
}

type Lobby struct {
	code      string
	name      string
	createdAt time.Time

	inbox    chan Msg
	state    engine.State
	version  int
	clients  map[string]chan types.ServerMessage
	players  atomic.Int32
	onDelete func(*Lobby)
	log      *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewLobby(parent context.Context, cfg Config, initial engine.State) *Lobby {
	ctx, cancel := context.WithCancel(parent)

	if cfg.InboxSize <= 0 {
		cfg.InboxSize = 64
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	l := &Lobby{
		code:      cfg.Code,
		name:      cfg.Name,
		createdAt: cfg.CreatedAt,
		inbox:     make(chan Msg, cfg.InboxSize),
		state:     initial,
		clients:   make(map[string]chan types.ServerMessage),
		onDelete:  cfg.OnDelete,
		log:       cfg.Logger.With(zap.String("room", cfg.Code)),
		ctx:       ctx,
		cancel:    cancel,
	}
	l.players.Store(int32(len(initial.Players)))

	go l.loop()
	return l
}

func (l *Lobby) loop() {
	for {
		select {
		case <-l.ctx.Done():
			l.shutdown()
			return

		case m := <-l.inbox:
			if stop := l.handle(m); stop {
				return
			}
		}
	}
}

// handle processes one message to completion and reports whether the
// lobby has stopped.
func (l *Lobby) handle(m Msg) bool {
	switch msg := m.(type) {
	case Join:
		if old, ok := l.clients[msg.ConnID]; ok && old != msg.Outbox {
			close(old)
		}
		l.clients[msg.ConnID] = msg.Outbox
		l.sendTo(msg.ConnID, msg.Outbox, l.snapshot())

	case Leave:
		if ch, ok := l.clients[msg.ConnID]; ok {
			close(ch)
			delete(l.clients, msg.ConnID)
		}
		if _, next, err := engine.Apply(l.state, engine.Command{Type: engine.CmdDisconnect, ConnID: msg.ConnID}); err == nil {
			l.state = next
		}

	case FromClient:
		events, next, err := engine.Apply(l.state, msg.Cmd)
		if err != nil {
			l.log.Debug("command ignored",
				zap.String("cmd", string(msg.Cmd.Type)),
				zap.String("conn", msg.Cmd.ConnID),
				zap.Error(err))
			break
		}
		l.state = next
		l.players.Store(int32(len(l.state.Players)))
		return l.dispatch(events)

	case GetState:
		msg.Reply <- View{
			Version:    l.version,
			NumClients: len(l.clients),
			State:      l.state,
		}

	case Shutdown:
		if msg.Notify {
			l.broadcast(types.ServerMessage{Type: pkgtypes.EventGameDeleted})
		}
		l.shutdown()
		return true
	}
	return false
}

// dispatch fans out the messages for one successful transition.
// Ephemeral announcements go first, the state snapshot last.
func (l *Lobby) dispatch(events []engine.Event) bool {
	changed := false
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtBuzzerLocked:
			l.broadcast(types.ServerMessage{
				Type:    pkgtypes.EventBuzzerWinner,
				Payload: pkgtypes.BuzzerWinner{PlayerID: ev.PlayerID, PlayerName: ev.PlayerName},
			})
			l.broadcast(types.ServerMessage{Type: pkgtypes.EventPlaySound, Payload: pkgtypes.SoundBuzzer})

		case engine.EvtBuzzerReset:
			l.broadcast(types.ServerMessage{Type: pkgtypes.EventResetBuzzer})

		case engine.EvtSoundPlayed:
			l.broadcast(types.ServerMessage{Type: pkgtypes.EventPlaySound, Payload: ev.Sound})

		case engine.EvtGameDeleted:
			l.log.Info("room deleted")
			l.broadcast(types.ServerMessage{Type: pkgtypes.EventGameDeleted})
			l.shutdown()
			if l.onDelete != nil {
				l.onDelete(l)
			}
			return true
		}
		if ev.Type.ChangesState() {
			changed = true
		}
	}
	if changed {
		l.version++
		l.broadcast(l.snapshot())
	}
	return false
}

// snapshot shares the current state. Apply never writes to a state it
// has returned, so readers on other goroutines are safe.
func (l *Lobby) snapshot() types.ServerMessage {
	st := l.state
	return types.ServerMessage{Type: pkgtypes.EventGameState, Version: l.version, State: &st}
}

// shutdown cancels before closing outboxes so a closed outbox can be told
// apart from a slow-client drop by checking Done.
func (l *Lobby) shutdown() {
	l.cancel()
	for id, ch := range l.clients {
		close(ch) // no more messages for this connection
		delete(l.clients, id)
	}
}

func (l *Lobby) broadcast(msg types.ServerMessage) {
	for id, ch := range l.clients {
		l.sendTo(id, ch, msg)
	}
}

func (l *Lobby) sendTo(id string, ch chan types.ServerMessage, msg types.ServerMessage) {
	select {
	case ch <- msg:
		//ok
	default:
		// Client is slow/full - drop them.
		l.log.Warn("dropping slow connection", zap.String("conn", id))
		close(ch)
		delete(l.clients, id)
	}
}

// Expose the inbox so tests or WS layer can send messages.
func (l *Lobby) Inbox() chan<- Msg { return l.inbox }

// Send delivers m unless the lobby has stopped. A false return is the
// hard miss for connections still bound to a deleted room.
func (l *Lobby) Send(m Msg) bool {
	select {
	case <-l.ctx.Done():
		return false
	default:
	}
	select {
	case l.inbox <- m:
		return true
	case <-l.ctx.Done():
		return false
	}
}

// View asks the lobby goroutine for a consistent copy of its state.
func (l *Lobby) View(ctx context.Context) (View, bool) {
	reply := make(chan View, 1)
	select {
	case l.inbox <- GetState{Reply: reply}:
	case <-l.ctx.Done():
		return View{}, false
	case <-ctx.Done():
		return View{}, false
	}
	select {
	case v := <-reply:
		return v, true
	case <-l.ctx.Done():
		return View{}, false
	case <-ctx.Done():
		return View{}, false
	}
}

func (l *Lobby) Done() <-chan struct{} { return l.ctx.Done() }

func (l *Lobby) Stopped() bool { return l.ctx.Err() != nil }

func (l *Lobby) Code() string { return l.code }

func (l *Lobby) Name() string { return l.name }

func (l *Lobby) CreatedAt() time.Time { return l.createdAt }

func (l *Lobby) PlayerCount() int { return int(l.players.Load()) }
