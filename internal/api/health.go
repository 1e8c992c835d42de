package api

import (
	"log/slog"
	"net/http"

	"github.com/ashureev/macro-maker/internal/config"
	"github.com/go-chi/chi/v5"
)

// TemplateChecker reports whether the prompt template can be loaded.
type TemplateChecker interface {
	CheckTemplate() error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	cfg       *config.Config
	templates TemplateChecker
}

// NewHealthHandlerWithConfig creates a new health handler with configuration.
func NewHealthHandlerWithConfig(cfg *config.Config, templates TemplateChecker) *HealthHandler {
	return &HealthHandler{cfg: cfg, templates: templates}
}

// Health returns the health status of the API and its dependencies.
// No outbound call is made; the upstream is only checked for a credential.
func (h *HealthHandler) Health(w http.ResponseWriter, _ *http.Request) {
	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status": "healthy",
		"checks": checks,
	}
	statusCode := http.StatusOK

	if h.cfg != nil && h.cfg.HasCredential() {
		checks["credential"] = "ok"
	} else {
		checks["credential"] = "missing"
		status["status"] = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	if h.templates != nil {
		if err := h.templates.CheckTemplate(); err != nil {
			slog.Error("Health check failed", "error", err)
			checks["prompt_template"] = "unreadable"
			status["status"] = "degraded"
			statusCode = http.StatusServiceUnavailable
		} else {
			checks["prompt_template"] = "ok"
		}
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
