package form

import (
	"bytes"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/ashureev/macro-maker/internal/domain"
	"github.com/ashureev/macro-maker/internal/nutrition"
	"github.com/ashureev/macro-maker/internal/planner"
	"github.com/ashureev/macro-maker/internal/shared"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

const pageTemplate = "index.html"

// Handler renders the form and submits it to the planner.
type Handler struct {
	gen  planner.Generator
	mode Mode
	tmpl *template.Template
}

// NewHandler creates a form handler.
func NewHandler(gen planner.Generator, mode Mode, tmpl *template.Template) *Handler {
	if mode == "" {
		mode = ModeImperial
	}
	return &Handler{gen: gen, mode: mode, tmpl: tmpl}
}

// page is the data passed to the template.
type page struct {
	Values      Values
	Metric      bool
	Error       string
	Maintenance *int
	Plan        *domain.MealPlan
}

// RegisterRoutes registers the form routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Show)
	r.Post("/", h.Submit)
}

// Show renders an empty form.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, h.newPage(DefaultValues()))
}

// Submit validates the form and, when valid, requests exactly one plan.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		p := h.newPage(DefaultValues())
		p.Error = "Could not read the form submission."
		h.render(w, http.StatusBadRequest, p)
		return
	}

	p := h.newPage(FromURLValues(r.PostForm))
	sub, err := Parse(p.Values, h.mode)
	if err != nil {
		p.Error = err.Error()
		h.render(w, http.StatusBadRequest, p)
		return
	}
	if sub.MaintenanceBMR != nil {
		m := nutrition.Round(*sub.MaintenanceBMR)
		p.Maintenance = &m
	}

	plan, err := h.gen.Generate(r.Context(), sub.Request)
	if err != nil {
		slog.Error("Form plan generation failed",
			"request_id", chiMiddleware.GetReqID(r.Context()),
			"error", err,
		)
		p.Error = "Error generating meal plan: " + err.Error()
		h.render(w, shared.StatusFromError(err), p)
		return
	}

	p.Plan = plan
	h.render(w, http.StatusOK, p)
}

func (h *Handler) newPage(v Values) *page {
	return &page{Values: v, Metric: h.mode == ModeMetric}
}

func (h *Handler) render(w http.ResponseWriter, status int, p *page) {
	var buf bytes.Buffer
	if err := h.tmpl.ExecuteTemplate(&buf, pageTemplate, p); err != nil {
		slog.Error("Failed to render form", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
