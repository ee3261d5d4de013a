package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/buzzer-backend/internal/contentgen"
	"github.com/DoyleJ11/buzzer-backend/internal/hub"
	"github.com/DoyleJ11/buzzer-backend/internal/packs"
	"github.com/DoyleJ11/buzzer-backend/internal/ws"
)

type Deps struct {
	Hub       *hub.Hub
	Generator contentgen.Generator
	Packs     packs.Store
	PublicURL string
	Logger    *zap.Logger
	WS        ws.Options
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, d.WS))

	r.Route("/rooms", func(r chi.Router) {
		r.Post("/", CreateRoom(d.Hub))
		r.Get("/", ListRooms(d.Hub))
		r.Get("/{code}", GetRoom(d.Hub))
		r.Delete("/{code}", DeleteRoom(d.Hub))
		r.Get("/{code}/qr", RoomQR(d.Hub, d.PublicURL))
	})

	r.Post("/generate", Generate(d.Generator, d.Logger))
	r.Get("/fallback", Fallback)

	r.Route("/packs", func(r chi.Router) {
		r.Get("/", ListPacks(d.Packs))
		r.Post("/", SavePack(d.Packs))
		r.Get("/{id}", GetPack(d.Packs))
		r.Delete("/{id}", DeletePack(d.Packs))
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}
