package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"
	"go.uber.org/zap"

	"github.com/DoyleJ11/buzzer-backend/internal/content"
	"github.com/DoyleJ11/buzzer-backend/internal/contentgen"
	"github.com/DoyleJ11/buzzer-backend/internal/hub"
	"github.com/DoyleJ11/buzzer-backend/internal/lobby"
	"github.com/DoyleJ11/buzzer-backend/internal/packs"
	pkgtypes "github.com/DoyleJ11/buzzer-backend/pkg/types"
)

const qrSize = 320 // mobile-friendly size

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// decodeBody reads a JSON body. An empty body leaves v untouched when
// optional is set.
func decodeBody(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	writeError(w, http.StatusBadRequest, "bad json")
	return false
}

func summarize(lb *lobby.Lobby) pkgtypes.RoomSummary {
	return pkgtypes.RoomSummary{
		Code:        lb.Code(),
		Name:        lb.Name(),
		PlayerCount: lb.PlayerCount(),
		CreatedAt:   lb.CreatedAt(),
	}
}

type createRoomRequest struct {
	Name string `json:"name"`
}

type createRoomResponse struct {
	Code string `json:"code"`
	Name string `json:"name,omitempty"`
}

func CreateRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createRoomRequest
		if !decodeBody(w, r, &req, true) {
			return
		}

		lb, err := h.Create(r.Context(), strings.TrimSpace(req.Name))
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to create room")
			return
		}
		writeJSON(w, http.StatusCreated, createRoomResponse{Code: lb.Code(), Name: lb.Name()})
	}
}

func ListRooms(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rooms, err := h.List(r.Context())
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, rooms)
	}
}

// GetRoom looks a room up without creating it.
func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, ok := lookupRoom(w, r, h)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, summarize(lb))
	}
}

func DeleteRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h.Delete(r.Context(), chi.URLParam(r, "code"))
		if errors.Is(err, hub.ErrRoomNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// RoomQR renders the player join link for a room as a PNG.
func RoomQR(h *hub.Hub, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		lb, ok := lookupRoom(w, r, h)
		if !ok {
			return
		}

		png, err := qrcode.Encode(joinURL(r, publicURL, lb.Code()), qrcode.Medium, qrSize)
		if err != nil {
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}

func lookupRoom(w http.ResponseWriter, r *http.Request, h *hub.Hub) (*lobby.Lobby, bool) {
	lb, err := h.Get(r.Context(), chi.URLParam(r, "code"))
	if errors.Is(err, hub.ErrRoomNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return nil, false
	}
	return lb, true
}

// joinURL builds <base>/play/<code>. Without a configured public URL the
// base comes from the request, respecting X-Forwarded-Proto.
func joinURL(r *http.Request, publicURL, code string) string {
	base := strings.TrimRight(publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
			scheme = proto
		}
		base = scheme + "://" + r.Host
	}
	return base + "/play/" + code
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

func Generate(gen contentgen.Generator, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateRequest
		if !decodeBody(w, r, &req, true) {
			return
		}

		data, err := gen.Generate(r.Context(), req.Prompt)
		if errors.Is(err, contentgen.ErrNotConfigured) {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		if err != nil {
			log.Warn("content generation failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "content generation failed")
			return
		}
		writeJSON(w, http.StatusOK, data)
	}
}

func Fallback(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, content.Fallback())
}

type savePackRequest struct {
	Name     string          `json:"name"`
	GameData json.RawMessage `json:"gameData"`
}

func SavePack(store packs.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req savePackRequest
		if !decodeBody(w, r, &req, false) {
			return
		}
		data, err := content.Parse(req.GameData)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		p, err := store.Save(r.Context(), &packs.SaveInput{Name: req.Name, GameData: data})
		if errors.Is(err, packs.ErrInvalidPack) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save pack")
			return
		}
		writeJSON(w, http.StatusCreated, p.Summary())
	}
}

func ListPacks(store packs.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out, err := store.List(r.Context(), &packs.ListInput{})
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to list packs")
			return
		}
		writeJSON(w, http.StatusOK, out.Packs)
	}
}

func GetPack(store packs.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := store.Get(r.Context(), &packs.GetInput{ID: chi.URLParam(r, "id")})
		if errors.Is(err, packs.ErrPackNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load pack")
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func DeletePack(store packs.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := store.Delete(r.Context(), &packs.DeleteInput{ID: chi.URLParam(r, "id")})
		if errors.Is(err, packs.ErrPackNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to delete pack")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
