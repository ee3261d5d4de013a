package ws

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/DoyleJ11/buzzer-backend/internal/hub"
	"github.com/DoyleJ11/buzzer-backend/internal/lobby"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	pkgtypes "github.com/DoyleJ11/buzzer-backend/pkg/types"
)

var errRoomGone = errors.New("room is gone")

const writeTimeout = 3 * time.Second

// session is one websocket connection and the room it is bound to.
type session struct {
	id   string
	conn *websocket.Conn
	hub  *hub.Hub
	log  *zap.Logger
	buf  int

	mu   sync.Mutex
	room *lobby.Lobby
	out  chan types.ServerMessage
}

func (s *session) current() (*lobby.Lobby, chan types.ServerMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room, s.out
}

// bind leaves the previous room, if any, and joins code. The room sends
// its current state to this connection only. Rebinding to the room the
// connection is already in keeps its player identity.
func (s *session) bind(ctx context.Context, code string) error {
	lb, err := s.hub.GetOrCreate(ctx, code)
	if err != nil {
		return err
	}
	out := make(chan types.ServerMessage, s.buf)

	s.mu.Lock()
	prev := s.room
	s.room, s.out = lb, out
	s.mu.Unlock()

	if prev != nil && prev != lb {
		prev.Send(lobby.Leave{ConnID: s.id})
	}
	if !lb.Send(lobby.Join{ConnID: s.id, Outbox: out}) {
		return errRoomGone
	}
	s.log.Info("bound to room", zap.String("room", code))
	go s.forward(ctx, lb, out)
	return nil
}

func (s *session) unbind() {
	s.mu.Lock()
	prev := s.room
	s.room, s.out = nil, nil
	s.mu.Unlock()
	if prev != nil {
		prev.Send(lobby.Leave{ConnID: s.id})
	}
}

// dispatch hands a command to the bound room. Without a room, or once the
// room has been deleted, the event is dropped.
func (s *session) dispatch(m lobby.FromClient) {
	lb, _ := s.current()
	if lb == nil {
		s.log.Debug("event without room ignored", zap.String("cmd", string(m.Cmd.Type)))
		return
	}
	if !lb.Send(m) {
		s.log.Debug("event for deleted room ignored",
			zap.String("room", lb.Code()),
			zap.String("cmd", string(m.Cmd.Type)))
	}
}

// forward copies room traffic to the socket until the outbox closes or the
// session moves to another room.
func (s *session) forward(ctx context.Context, lb *lobby.Lobby, out chan types.ServerMessage) {
	for {
		select {
		case msg, ok := <-out:
			if !ok {
				s.outboxClosed(lb, out)
				return
			}
			if !s.isCurrent(out) {
				return
			}
			s.write(ctx, msg)

		case <-lb.Done():
			// Flush what the room sent before it stopped.
			for {
				select {
				case msg, ok := <-out:
					if !ok || !s.isCurrent(out) {
						return
					}
					s.write(ctx, msg)
				default:
					return
				}
			}

		case <-ctx.Done():
			return
		}
	}
}

// outboxClosed handles a room closing this connection's outbox. Unless the
// room stopped or the session rebound, the room dropped us for being slow;
// closing the socket makes the client reconnect and resync.
func (s *session) outboxClosed(lb *lobby.Lobby, out chan types.ServerMessage) {
	if lb.Stopped() || !s.isCurrent(out) {
		return
	}
	s.log.Warn("dropped by room, closing", zap.String("room", lb.Code()))
	_ = s.conn.Close(websocket.StatusPolicyViolation, "too slow")
}

func (s *session) isCurrent(out chan types.ServerMessage) bool {
	_, cur := s.current()
	return cur == out
}

func (s *session) write(ctx context.Context, msg types.ServerMessage) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, s.conn, msg); err != nil {
		s.log.Debug("write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}

func (s *session) writeError(ctx context.Context, err error) {
	s.write(ctx, types.ServerMessage{Type: pkgtypes.EventError, Error: err.Error()})
}
