package assistant

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

// DefaultSystemPrompt is the dealership assistant persona.
const DefaultSystemPrompt = `Eres un asistente virtual especializado en compra y venta de vehículos para la concesionaria "PremiumCar". ` +
	`Tu objetivo es resolver preguntas relacionadas con autos nuevos, usados, precios, procesos de cotización, financiamiento, visitas al concesionario y trámites de venta. ` +
	`Responde siempre con información clara, precisa y en lenguaje sencillo, como si fueras un bot conversacional. ` +
	`No inicies saludos ni conversaciones, no hagas preguntas, no generes texto innecesario. ` +
	`Si el usuario desea agendar una cita o cotización, recomiéndale usar el botón del menú principal. ` +
	`Si la consulta es muy específica o requiere intervención humana, indícale que un asesor le escribirá pronto.`

// ErrEmptyQuestion is returned when Ask receives only whitespace.
var ErrEmptyQuestion = errors.New("assistant: question is empty")

// Config tunes the answer service.
type Config struct {
	Model        string
	SystemPrompt string
	MaxTokens    int32
	Temperature  float32
	Timeout      time.Duration
}

// Service answers single questions. It holds no conversation history.
type Service struct {
	client LLMClient
	cfg    Config
	logger *logging.Logger
}

// NewService builds a Service over any LLMClient.
func NewService(client LLMClient, cfg Config, logger *logging.Logger) *Service {
	if client == nil {
		panic("assistant: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	return &Service{client: client, cfg: cfg, logger: logger}
}

// Ask returns the model's answer to question.
func (s *Service) Ask(ctx context.Context, question string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ErrEmptyQuestion
	}

	ctx, span := otel.Tracer("premiumcar-router/assistant").Start(ctx, "assistant.ask")
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := s.client.Complete(ctx, Request{
		Model:       s.cfg.Model,
		System:      []string{s.cfg.SystemPrompt},
		Messages:    []Message{{Role: RoleUser, Content: question}},
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("assistant: ask: %w", err)
	}

	s.logger.Debug("assistant answered",
		"duration_ms", time.Since(start).Milliseconds(),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return resp.Text, nil
}
