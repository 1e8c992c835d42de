package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/ashureev/macro-maker/internal/domain"
	"github.com/ashureev/macro-maker/internal/shared"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// defaultMaxRequestBodySize is the default maximum allowed request body size (1MB).
const defaultMaxRequestBodySize = 1 << 20 // 1MB

// NutritionHandler serves meal-plan generation.
type NutritionHandler struct {
	*Handler
}

// NewNutritionHandler creates a new nutrition handler.
func NewNutritionHandler(base *Handler) *NutritionHandler {
	return &NutritionHandler{Handler: base}
}

// planResponse is the success body.
type planResponse struct {
	Plan *domain.MealPlan `json:"plan"`
}

// RegisterRoutes registers nutrition routes.
func (h *NutritionHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		// All methods reach Plan so it can answer 405 with an Allow header.
		r.HandleFunc("/nutrition", h.Plan)
		r.Get("/config", h.GetConfig)
	})
}

// Plan handles /api/nutrition. Only POST is accepted.
func (h *NutritionHandler) Plan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		Error(w, http.StatusMethodNotAllowed, "Method Not Allowed")
		return
	}

	reqID := chiMiddleware.GetReqID(r.Context())

	maxBodySize := int64(defaultMaxRequestBodySize)
	if h.cfg != nil {
		maxBodySize = h.cfg.MaxRequestBodySize
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)

	var req domain.ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			slog.Error("Nutrition API error", "error", err, "request_id", reqID, "status", http.StatusRequestEntityTooLarge)
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		slog.Error("Nutrition API error", "error", err, "request_id", reqID, "status", http.StatusBadRequest)
		Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	plan, err := h.planner.Generate(r.Context(), req)
	if err != nil {
		status := shared.StatusFromError(err)
		slog.Error("Nutrition API error", "error", err, "request_id", reqID, "status", status)
		Error(w, status, err.Error())
		return
	}

	JSON(w, http.StatusOK, planResponse{Plan: plan})
}

// GetConfig returns the non-secret server configuration for the frontend.
func (h *NutritionHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	if h.cfg == nil {
		Error(w, http.StatusInternalServerError, "configuration unavailable")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"prompt_mode":           h.cfg.Prompt.Mode,
		"form_units":            h.cfg.FormUnits,
		"model":                 h.cfg.Upstream.Model,
		"credential_configured": h.cfg.HasCredential(),
	})
}
