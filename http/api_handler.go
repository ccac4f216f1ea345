package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"dh-form/domain"
	"dh-form/service"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
	maxRequestBytes     = 1 << 20
)

type APIHandler struct {
	service *service.FormService
	logger  *slog.Logger
}

func NewAPIHandler(service *service.FormService, logger *slog.Logger) *APIHandler {
	return &APIHandler{service: service, logger: logger}
}

type coordResponse struct {
	X string `json:"x"`
	Y string `json:"y"`
	Z string `json:"z"`
}

type calculateResponse struct {
	Result [][]string     `json:"result"`
	Coord  *coordResponse `json:"coord,omitempty"`
}

type historyEntry struct {
	ID        string                  `json:"id"`
	Rows      []domain.ParameterInput `json:"rows"`
	Result    [][]string              `json:"result"`
	Coord     *coordResponse          `json:"coord,omitempty"`
	CreatedAt time.Time               `json:"created_at"`
}

func toResponse(view service.ResultView) calculateResponse {
	resp := calculateResponse{Result: view.Rows}
	if resp.Result == nil {
		resp.Result = [][]string{}
	}
	if view.Coord != nil {
		resp.Coord = &coordResponse{X: view.Coord.X, Y: view.Coord.Y, Z: view.Coord.Z}
	}
	return resp
}

// Calculate proxies a JSON array of rows to the compute service and
// answers with the 4-decimal rendering of the result.
func (h *APIHandler) Calculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if !strings.Contains(contentType, "application/json") {
		http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
		return
	}

	var inputs []domain.ParameterInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&inputs); err != nil {
		h.logger.Debug("invalid calculate body", "error", err)
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Calculate(r.Context(), inputs)
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, service.ErrComputeFailed):
		http.Error(w, "calculation failed", http.StatusBadGateway)
		return
	case err != nil:
		h.logger.Error("calculate failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	coord := result.Coord
	h.writeJSON(w, toResponse(service.NewResultView(result.Result, &coord)))
}

// History lists recent calculations, newest first.
func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := defaultHistoryLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			http.Error(w, "invalid limit", http.StatusBadRequest)
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	recs, err := h.service.History(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to read history", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	entries := make([]historyEntry, len(recs))
	for i, rec := range recs {
		coord := rec.Coord
		resp := toResponse(service.NewResultView(rec.Result, &coord))
		entries[i] = historyEntry{
			ID:        rec.ID,
			Rows:      rec.Rows,
			Result:    resp.Result,
			Coord:     resp.Coord,
			CreatedAt: rec.CreatedAt,
		}
	}
	h.writeJSON(w, entries)
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, v any) {
	// Encode into a buffer first so a failure can still become a 500.
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		h.logger.Error("failed to encode response", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("failed to write response", "error", err)
	}
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok\n"))
}
