package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/buzzer-backend/internal/hub"
	"github.com/DoyleJ11/buzzer-backend/internal/lobby"
	"github.com/DoyleJ11/buzzer-backend/internal/types"
	pkgtypes "github.com/DoyleJ11/buzzer-backend/pkg/types"
)

type Options struct {
	Logger *zap.Logger
	// ClientBuffer is the outbox size per connection; a connection that
	// falls this far behind is dropped by its room.
	ClientBuffer   int
	Heartbeat      time.Duration
	OriginPatterns []string
	ReadLimit      int64
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.ClientBuffer <= 0 {
		o.ClientBuffer = 16
	}
	if o.Heartbeat <= 0 {
		o.Heartbeat = 30 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 1 << 20 // content documents are larger than the default
	}
	return o
}

// Handler upgrades to a websocket. An optional ?code= binds the connection
// right away; otherwise the client sends join-room.
func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts = opts.withDefaults()

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			opts.Logger.Warn("websocket accept", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")
		conn.SetReadLimit(opts.ReadLimit)

		s := &session{
			id:   uuid.NewString(),
			conn: conn,
			hub:  h,
			buf:  opts.ClientBuffer,
		}
		s.log = opts.Logger.With(zap.String("conn", s.id))
		s.log.Info("connected", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		defer s.unbind()

		go heartbeat(ctx, conn, opts.Heartbeat, s.log)

		if code := r.URL.Query().Get("code"); code != "" {
			if err := s.bind(ctx, code); err != nil {
				s.writeError(ctx, err)
			}
		}

		// Reader loop
		for {
			var cm types.ClientMessage
			_, data, err := conn.Read(ctx)
			if err != nil {
				// Treat clean close/going-away as normal:
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					s.log.Info("disconnected")
				default:
					s.log.Debug("read failed", zap.Error(err))
				}
				return
			}

			if err := json.Unmarshal(data, &cm); err != nil {
				s.write(ctx, types.ServerMessage{Type: pkgtypes.EventError, Error: "bad json"})
				continue
			}
			s.handle(ctx, cm)
		}
	}
}

func (s *session) handle(ctx context.Context, cm types.ClientMessage) {
	switch cm.Type {
	case pkgtypes.EventJoinRoom:
		var code string
		if err := decode(cm.Payload, &code); err != nil || code == "" {
			s.writeError(ctx, ErrBadPayload)
			return
		}
		if err := s.bind(ctx, code); err != nil {
			s.writeError(ctx, err)
		}

	case pkgtypes.EventGetGames:
		rooms, err := s.hub.List(ctx)
		if err != nil {
			s.writeError(ctx, err)
			return
		}
		s.write(ctx, types.ServerMessage{Type: pkgtypes.EventGamesList, Payload: rooms})

	default:
		cmd, err := toEngineCommand(s.id, cm)
		if err != nil {
			s.writeError(ctx, err)
			return
		}
		s.dispatch(lobby.FromClient{Cmd: cmd})
	}
}

// heartbeat pings until the connection goes away. A failed ping closes
// the socket, which ends the reader loop.
func heartbeat(ctx context.Context, conn *websocket.Conn, every time.Duration, log *zap.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pctx, cancel := context.WithTimeout(ctx, every/2)
			err := conn.Ping(pctx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					log.Debug("ping failed", zap.Error(err))
					_ = conn.Close(websocket.StatusGoingAway, "ping timeout")
				}
				return
			}
		}
	}
}
