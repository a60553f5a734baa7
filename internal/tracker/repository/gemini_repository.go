package repository

import (
	"context"
	"fmt"
	"strings"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/ratelimit"

	"golang.org/x/time/rate"
	"google.golang.org/genai"
)

type geminiRepository struct {
	cfg            config.Gemini
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
	genAiClient    *genai.Client
}

// NewGeminiClient builds a genai client for the Gemini API from configuration.
func NewGeminiClient(ctx context.Context, cfg config.Gemini) (*genai.Client, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	return genai.NewClient(ctx, cc)
}

// NewGeminiRepository creates a decision repository backed by Gemini.
func NewGeminiRepository(cfg *config.Config, log *logger.Logger, genAiClient *genai.Client) DecisionRepository {
	return &geminiRepository{
		cfg:            cfg.Gemini,
		logger:         log,
		requestLimiter: newRequestLimiter(cfg.Gemini.MaxRequestPerMinute),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.Gemini.MaxTokenPerMinute),
		genAiClient:    genAiClient,
	}
}

func (r *geminiRepository) Provider() string {
	return "gemini"
}

func (r *geminiRepository) Model(override string) string {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override)
	}
	return r.cfg.Model
}

func (r *geminiRepository) Propose(ctx context.Context, req dto.DecisionRequest) (entity.OrderSet, error) {
	model := r.Model(req.Model)

	var system *genai.Content
	var contents []*genai.Content
	for _, m := range BuildDecisionMessages(req) {
		if m.Role == "system" {
			system = genai.NewContentFromText(m.Content, genai.RoleUser)
			continue
		}
		contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
	}

	tokens, err := r.genAiClient.Models.CountTokens(ctx, model, contents, nil)
	if err != nil {
		return entity.OrderSet{}, fmt.Errorf("failed to count tokens: %w", err)
	}

	r.logger.Debug("Gemini token count",
		logger.IntField("total_tokens", int(tokens.TotalTokens)),
		logger.IntField("remaining", r.tokenLimiter.GetRemaining()),
	)

	if err := r.tokenLimiter.Wait(ctx, int(tokens.TotalTokens)); err != nil {
		return entity.OrderSet{}, fmt.Errorf("failed to wait for token limit: %w", err)
	}
	if err := r.requestLimiter.Wait(ctx); err != nil {
		return entity.OrderSet{}, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	resp, err := r.genAiClient.Models.GenerateContent(ctx, model, contents, &genai.GenerateContentConfig{
		SystemInstruction: system,
		Temperature:       genai.Ptr[float32](0.2),
		ResponseMIMEType:  "application/json",
	})
	if err != nil {
		r.logger.Error("Failed to generate content with Gemini", logger.ErrorField(err), logger.StringField("model", model))
		return entity.OrderSet{}, fmt.Errorf("failed to generate content with Gemini: %w", err)
	}

	return ParseOrderSet(resp.Text())
}
