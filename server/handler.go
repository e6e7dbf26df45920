package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Josh050608/orim-convert/protocol"
)

// Handler exposes the engine over HTTP. It satisfies the httpserver
// RouteRegistrar interface.
type Handler struct {
	engine *Engine
	log    *slog.Logger
}

// NewHandler creates the HTTP handler for an engine.
func NewHandler(engine *Engine, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{engine: engine, log: log}
}

// RegisterRoutes registers the engine API with the router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/api/v1/inv", h.handleInv)
	r.Post("/api/v1/messages", h.handleEnqueue)
	r.Get("/api/v1/messages", h.handleDecoded)
	r.Post("/api/v1/announce", h.handleAnnounce)
	r.Get("/api/v1/queue", h.handleQueue)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// handleInv processes one inventory request. Protocol-level failures are
// reported inside the response record with HTTP 200; the carrier side
// decides what to fall back to.
func (h *Handler) handleInv(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	req, err := protocol.DecodeMessage[protocol.InvRequest](r.Body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, &protocol.InvResponse{
			Status: protocol.StatusError,
			Error:  fmt.Sprintf("parsing request: %v", err),
		})
		return
	}

	writeJSON(w, http.StatusOK, h.engine.HandleRequest(req))
}

func (h *Handler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	req, err := protocol.DecodeMessage[protocol.EnqueueRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("parsing request: %v", err), http.StatusBadRequest)
		return
	}

	id, bits, err := h.engine.Enqueue(req.Message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, &protocol.EnqueueResponse{ID: id, Bits: bits})
}

func (h *Handler) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	req, err := protocol.DecodeMessage[protocol.EnqueueRequest](r.Body)
	if err != nil {
		http.Error(w, fmt.Sprintf("parsing request: %v", err), http.StatusBadRequest)
		return
	}

	id, bits, err := h.engine.Announce(req.Message)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, &protocol.EnqueueResponse{ID: id, Bits: bits})
}

func (h *Handler) handleDecoded(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100)
	msgs, err := h.engine.Store().DecodedMessages(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type decoded struct {
		ID        int64  `json:"id"`
		Message   string `json:"message"`
		DecodedAt string `json:"decoded_at"`
	}
	out := make([]decoded, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, decoded{
			ID:        m.ID,
			Message:   m.Message,
			DecodedAt: m.DecodedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) handleQueue(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, 100)
	msgs, err := h.engine.Store().OutgoingMessages(limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	type entry struct {
		ID        int64  `json:"id"`
		Message   string `json:"message"`
		TotalBits int    `json:"total_bits"`
		BitsSent  int    `json:"bits_sent"`
		FullySent bool   `json:"fully_sent"`
	}
	out := make([]entry, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, entry{
			ID:        m.ID,
			Message:   m.Message,
			TotalBits: m.Bits.Len(),
			BitsSent:  m.BitsSent,
			FullySent: m.FullySent,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func queryLimit(r *http.Request, def int) int {
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return def
}
