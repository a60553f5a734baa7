package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/internal/tracker/config"
	"golang-microcap-tracker/internal/tracker/dto"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/ratelimit"

	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

type openaiRepository struct {
	client         *http.Client
	cfg            config.OpenAI
	logger         *logger.Logger
	tokenLimiter   *ratelimit.TokenLimiter
	requestLimiter *rate.Limiter
}

// NewOpenAIRepository creates a decision repository backed by the OpenAI chat
// completions API. Key, model and base URL all come from configuration.
func NewOpenAIRepository(cfg *config.Config, log *logger.Logger) DecisionRepository {
	timeout := cfg.OpenAI.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &openaiRepository{
		client: &http.Client{
			Timeout: timeout,
		},
		cfg:            cfg.OpenAI,
		logger:         log,
		requestLimiter: newRequestLimiter(cfg.OpenAI.MaxRequestPerMinute),
		tokenLimiter:   ratelimit.NewTokenLimiter(cfg.OpenAI.MaxTokenPerMinute),
	}
}

func (r *openaiRepository) Provider() string {
	return "openai"
}

func (r *openaiRepository) Model(override string) string {
	if strings.TrimSpace(override) != "" {
		return strings.TrimSpace(override)
	}
	return r.cfg.Model
}

func (r *openaiRepository) Propose(ctx context.Context, req dto.DecisionRequest) (entity.OrderSet, error) {
	resp, err := r.SendRequest(ctx, r.Model(req.Model), BuildDecisionMessages(req))
	if err != nil {
		return entity.OrderSet{}, err
	}

	content := ""
	if len(resp.Choices) > 0 {
		content = resp.Choices[0].Message.Content
	}
	return ParseOrderSet(content)
}

// SendRequest posts one chat completion and returns the decoded response.
func (r *openaiRepository) SendRequest(ctx context.Context, model string, messages []dto.Message) (*dto.ChatCompletionResponse, error) {
	if r.cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is not configured")
	}

	if err := r.requestLimiter.Wait(ctx); err != nil {
		r.logger.Error("failed to wait for request limit", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to wait for request limit: %w", err)
	}

	payload := dto.ChatCompletionRequest{
		Model:          model,
		Messages:       messages,
		Temperature:    0.2,
		ResponseFormat: &dto.ResponseFormat{Type: "json_object"},
	}

	jsonPayload, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	endpoint := strings.TrimRight(r.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonPayload))
	if err != nil {
		return nil, fmt.Errorf("failed to create new http request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", r.cfg.APIKey))

	r.logger.Debug("Sending request to OpenAI API", logger.StringField("url", endpoint), logger.StringField("model", model))

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to OpenAI API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = string(body)
		}
		r.logger.Error("Received non-OK response from OpenAI API", logger.IntField("status_code", resp.StatusCode), logger.StringField("model", model))
		return nil, fmt.Errorf("received non-OK response from OpenAI API: %d - %s", resp.StatusCode, msg)
	}

	var openaiResp dto.ChatCompletionResponse
	if err := json.NewDecoder(resp.Body).Decode(&openaiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	if r.cfg.MaxTokenPerMinute > 0 && openaiResp.Usage.TotalTokens > r.cfg.MaxTokenPerMinute/2 {
		r.logger.Warn("Token has exceeded 50% of the limit", logger.IntField("remaining", r.tokenLimiter.GetRemaining()))
	}

	if err := r.tokenLimiter.Wait(ctx, openaiResp.Usage.TotalTokens); err != nil {
		r.logger.Error("failed to wait for token limit", logger.ErrorField(err))
		return nil, fmt.Errorf("failed to wait for token limit: %w", err)
	}

	return &openaiResp, nil
}
