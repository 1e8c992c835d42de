// Package planner turns a body-metrics profile into a generated meal plan.
package planner

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/ashureev/macro-maker/internal/domain"
	"github.com/ashureev/macro-maker/internal/llm"
	"github.com/ashureev/macro-maker/internal/prompt"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

// ErrMissingCredential is returned before any outbound call when no API key is configured.
var ErrMissingCredential = errors.New("configuration error: missing OPENAI_KEY")

// Generator produces a meal plan for one request.
type Generator interface {
	Generate(ctx context.Context, req domain.ProfileRequest) (*domain.MealPlan, error)
}

// Ensure Service implements Generator.
var _ Generator = (*Service)(nil)

// Config wires a Service.
type Config struct {
	// CredentialConfigured is false when OPENAI_KEY is unset.
	CredentialConfigured bool
	Model                string
}

// Service builds the prompt, calls the completion endpoint once and parses the result.
type Service struct {
	completer llm.Completer
	prompts   *prompt.Builder
	exchanges llm.ExchangeLogger
	cfg       Config
	logger    *slog.Logger
}

// NewService creates a planner service. exchanges may be nil.
func NewService(completer llm.Completer, prompts *prompt.Builder, exchanges llm.ExchangeLogger, cfg Config, logger *slog.Logger) *Service {
	if exchanges == nil {
		exchanges = llm.NoopExchangeLogger{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		completer: completer,
		prompts:   prompts,
		exchanges: exchanges,
		cfg:       cfg,
		logger:    logger,
	}
}

// Generate validates req, requests one completion and parses the returned plan.
func (s *Service) Generate(ctx context.Context, req domain.ProfileRequest) (*domain.MealPlan, error) {
	if !s.cfg.CredentialConfigured {
		return nil, ErrMissingCredential
	}

	profile, err := req.Validate(s.prompts.RequiresGender())
	if err != nil {
		return nil, err
	}

	userPrompt, err := s.prompts.Build(profile)
	if err != nil {
		return nil, err
	}

	exchangeID := uuid.NewString()
	requestID := chiMiddleware.GetReqID(ctx)
	s.exchanges.Log(llm.ExchangeLogEvent{
		ExchangeID: exchangeID,
		RequestID:  requestID,
		Direction:  "outbound",
		EventType:  "prompt",
		Model:      s.cfg.Model,
		ContentRaw: userPrompt,
		Meta: map[string]any{
			"prompt_mode": string(s.prompts.Mode()),
			"goal":        string(profile.Goal),
		},
	})

	start := time.Now()
	resp, err := s.completer.Complete(ctx, llm.ChatRequest{
		Model: s.cfg.Model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: prompt.SystemInstruction},
			{Role: llm.RoleUser, Content: userPrompt},
		},
		N: 1,
	})
	if err != nil {
		s.logExchangeError(exchangeID, requestID, err)
		return nil, err
	}

	raw := resp.FirstContent()
	s.exchanges.Log(llm.ExchangeLogEvent{
		ExchangeID: exchangeID,
		RequestID:  requestID,
		Direction:  "inbound",
		EventType:  "completion",
		Model:      resp.Model,
		ContentRaw: raw,
		Meta: map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"choices":     len(resp.Choices),
		},
	})

	plan, err := ParsePlan(raw)
	if err != nil {
		s.logger.Warn("Model output did not contain a meal plan",
			"exchange_id", exchangeID,
			"request_id", requestID,
			"content_length", len(raw),
		)
		s.logExchangeError(exchangeID, requestID, err)
		return nil, err
	}

	s.logger.Info("Meal plan generated",
		"exchange_id", exchangeID,
		"request_id", requestID,
		"meals", len(plan.Meals),
		"calories", plan.Calories,
		"protein", plan.Protein,
	)
	return plan, nil
}

func (s *Service) logExchangeError(exchangeID, requestID string, err error) {
	s.exchanges.Log(llm.ExchangeLogEvent{
		ExchangeID: exchangeID,
		RequestID:  requestID,
		Direction:  "inbound",
		EventType:  "error",
		ContentRaw: err.Error(),
	})
}
