package hub

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/buzzer-backend/internal/common/clock"
	"github.com/DoyleJ11/buzzer-backend/internal/engine"
	"github.com/DoyleJ11/buzzer-backend/internal/lobby"
	pkgtypes "github.com/DoyleJ11/buzzer-backend/pkg/types"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrHubClosed = errors.New("hub closed")
var ErrCodeSpace = errors.New("could not find a free room code")

const maxCodeAttempts = 16

type HubMsg interface{ isHubMsg() }

// CreateLobby makes a new room. An empty Code asks the hub to generate
// one; a nil reply means no room was created.
type CreateLobby struct {
	Code  string
	Name  string
	Reply chan *lobby.Lobby
}

// GetLobby replies nil for unknown and stopped rooms.
type GetLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

type EnsureLobby struct {
	Code  string
	Reply chan *lobby.Lobby
}

// RemoveLobby forgets Lobby if it is still the room registered under Code.
type RemoveLobby struct {
	Code  string
	Lobby *lobby.Lobby
}

type DeleteLobby struct {
	Code  string
	Reply chan bool
}

type ListLobbies struct {
	Reply chan []pkgtypes.RoomSummary
}

// Sweep evicts expired rooms now and replies with how many went.
type Sweep struct {
	Reply chan int
}

type ShutdownHub struct{}

func (CreateLobby) isHubMsg() {}
func (GetLobby) isHubMsg()    {}
func (EnsureLobby) isHubMsg() {}
func (RemoveLobby) isHubMsg() {}
func (DeleteLobby) isHubMsg() {}
func (ListLobbies) isHubMsg() {}
func (Sweep) isHubMsg()       {}
func (ShutdownHub) isHubMsg() {}

type Config struct {
	// RoomTTL bounds a room's lifetime from creation, regardless of activity.
	RoomTTL       time.Duration
	SweepInterval time.Duration
	Rules         engine.Rules
	Clock         clock.Clock
	Logger        *zap.Logger
}

type Hub struct {
	inbox   chan HubMsg
	lobbies map[string]*lobby.Lobby
	cfg     Config
	log     *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, cfg Config) *Hub {
	if cfg.RoomTTL <= 0 {
		cfg.RoomTTL = 24 * time.Hour
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = time.Hour
	}
	if cfg.Clock == nil {
		cfg.Clock = &clock.DefaultClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:   make(chan HubMsg, 64),
		lobbies: make(map[string]*lobby.Lobby),
		cfg:     cfg,
		log:     cfg.Logger,
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	ticker := time.NewTicker(h.cfg.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return

		case <-ticker.C:
			h.sweep()

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateLobby:
				msg.Reply <- h.create(msg.Code, msg.Name)

			case GetLobby:
				msg.Reply <- h.live(msg.Code) // May be nil

			case EnsureLobby:
				if lb := h.live(msg.Code); lb != nil {
					msg.Reply <- lb
					break
				}
				msg.Reply <- h.create(msg.Code, "")

			case RemoveLobby:
				if h.lobbies[msg.Code] == msg.Lobby {
					delete(h.lobbies, msg.Code)
					h.log.Debug("room removed", zap.String("room", msg.Code))
				}

			case DeleteLobby:
				lb := h.live(msg.Code)
				if lb == nil {
					msg.Reply <- false
					break
				}
				delete(h.lobbies, msg.Code)
				lb.Send(lobby.Shutdown{Notify: true})
				h.log.Info("room deleted", zap.String("room", msg.Code))
				msg.Reply <- true

			case ListLobbies:
				msg.Reply <- h.list()

			case Sweep:
				msg.Reply <- h.sweep()

			case ShutdownHub:
				for _, lb := range h.lobbies {
					lb.Send(lobby.Shutdown{})
				}
				clear(h.lobbies)
				h.cancel()
				return
			}
		}
	}
}

// live returns the registered room for code unless it has stopped. A
// stopped room is one that processed a delete-game; it is a miss here so
// that the next EnsureLobby starts fresh.
func (h *Hub) live(code string) *lobby.Lobby {
	lb := h.lobbies[code]
	if lb == nil || lb.Stopped() {
		return nil
	}
	return lb
}

func (h *Hub) create(code, name string) *lobby.Lobby {
	if code == "" {
		for range maxCodeAttempts {
			c, err := GenerateCode()
			if err != nil {
				h.log.Error("generate room code", zap.Error(err))
				return nil
			}
			if h.live(c) == nil {
				code = c
				break
			}
			h.log.Debug("collision on code, regenerating", zap.String("room", c))
		}
		if code == "" {
			h.log.Error("create room", zap.Error(ErrCodeSpace))
			return nil
		}
	}

	state := engine.NewEmptyState()
	state.Rules = h.cfg.Rules
	lb := lobby.NewLobby(h.ctx, lobby.Config{
		Code:      code,
		Name:      name,
		CreatedAt: h.cfg.Clock.Now(),
		Logger:    h.log,
		OnDelete:  h.forget,
	}, state)
	h.lobbies[code] = lb
	h.log.Info("room created", zap.String("room", code))
	return lb
}

// forget runs on a lobby goroutine after delete-game. It must not block
// on a hub that has already stopped.
func (h *Hub) forget(lb *lobby.Lobby) {
	select {
	case h.inbox <- RemoveLobby{Code: lb.Code(), Lobby: lb}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) list() []pkgtypes.RoomSummary {
	out := make([]pkgtypes.RoomSummary, 0, len(h.lobbies))
	for code, lb := range h.lobbies {
		if lb.Stopped() {
			continue
		}
		out = append(out, pkgtypes.RoomSummary{
			Code:        code,
			Name:        lb.Name(),
			PlayerCount: lb.PlayerCount(),
			CreatedAt:   lb.CreatedAt(),
		})
	}
	slices.SortFunc(out, func(a, b pkgtypes.RoomSummary) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Code, b.Code)
	})
	return out
}

// sweep evicts every room created more than RoomTTL ago. Activity does
// not extend a room's life.
func (h *Hub) sweep() int {
	now := h.cfg.Clock.Now()
	n := 0
	for code, lb := range h.lobbies {
		if lb.Stopped() {
			delete(h.lobbies, code)
			continue
		}
		if now.Sub(lb.CreatedAt()) <= h.cfg.RoomTTL {
			continue
		}
		delete(h.lobbies, code)
		lb.Send(lobby.Shutdown{Notify: true})
		n++
	}
	if n > 0 {
		h.log.Info("swept expired rooms", zap.Int("count", n))
	}
	return n
}

// ask sends msg and waits for its reply, giving up when either the caller
// or the hub goes away.
func ask[T any](ctx context.Context, h *Hub, msg HubMsg, reply chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- msg:
	case <-h.ctx.Done():
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		return zero, ErrHubClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Create registers a new room under a generated code.
func (h *Hub) Create(ctx context.Context, name string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	lb, err := ask(ctx, h, CreateLobby{Name: name, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, ErrCodeSpace
	}
	return lb, nil
}

func (h *Hub) Get(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	lb, err := ask(ctx, h, GetLobby{Code: code, Reply: reply}, reply)
	if err != nil {
		return nil, err
	}
	if lb == nil {
		return nil, ErrRoomNotFound
	}
	return lb, nil
}

// GetOrCreate returns the live room for code, starting a fresh one if
// there is none.
func (h *Hub) GetOrCreate(ctx context.Context, code string) (*lobby.Lobby, error) {
	reply := make(chan *lobby.Lobby, 1)
	return ask(ctx, h, EnsureLobby{Code: code, Reply: reply}, reply)
}

// Delete stops the room and notifies its connections with game-deleted.
func (h *Hub) Delete(ctx context.Context, code string) error {
	reply := make(chan bool, 1)
	ok, err := ask(ctx, h, DeleteLobby{Code: code, Reply: reply}, reply)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRoomNotFound
	}
	return nil
}

// List returns live rooms, oldest first.
func (h *Hub) List(ctx context.Context) ([]pkgtypes.RoomSummary, error) {
	reply := make(chan []pkgtypes.RoomSummary, 1)
	return ask(ctx, h, ListLobbies{Reply: reply}, reply)
}

func (h *Hub) SweepNow(ctx context.Context) (int, error) {
	reply := make(chan int, 1)
	return ask(ctx, h, Sweep{Reply: reply}, reply)
}

func (h *Hub) Shutdown(ctx context.Context) {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	case <-ctx.Done():
		h.cancel()
	}
}
