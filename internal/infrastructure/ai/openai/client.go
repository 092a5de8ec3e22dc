// Package openai asks an OpenAI-compatible chat completion API for meal plan
// coaching. Local Ollama servers work through their /v1 endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/healthcheck"
)

// Source marks insights written by the model
const Source = "ai"

const (
	serviceName = "openai"
	maxTips     = 5
	maxBody     = 1 << 20
)

// Client implements outbound.PlanAdvisor
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float64
	client      *http.Client
	breaker     *healthcheck.CircuitBreaker
	metrics     *monitoring.Metrics
	logger      *zap.Logger
}

// NewClient creates a new chat completion client
func NewClient(cfg config.AIConfig, breaker *healthcheck.CircuitBreaker, metrics *monitoring.Metrics, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if breaker == nil {
		breaker = healthcheck.NewCircuitBreaker(serviceName, healthcheck.CircuitBreakerConfig{})
	}
	return &Client{
		apiKey:      cfg.APIKey,
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: timeout},
		breaker:     breaker,
		metrics:     metrics,
		logger:      logger.Named("openai"),
	}
}

// OpenAI API structures
type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []message       `json:"messages"`
	Temperature    float64         `json:"temperature"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// Advise asks the model for a summary and tips. Errors are returned to the
// caller, which decides whether to fall back.
func (c *Client) Advise(ctx context.Context, req outbound.AdviceRequest) (*mealplan.Insights, error) {
	start := time.Now()
	var content string
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		content, err = c.complete(ctx, systemPrompt, buildUserPrompt(req))
		return err
	})

	outcome := "success"
	if errors.Is(err, healthcheck.ErrCircuitOpen) {
		outcome = "circuit_open"
	} else if err != nil {
		outcome = "error"
	}
	c.metrics.RecordExternalCall(serviceName, outcome, time.Since(start))
	if err != nil {
		return nil, err
	}

	return parseInsights(content)
}

const systemPrompt = `You are a registered dietitian coaching clients on an anti-inflammatory diet.
Recipes carry an anti-inflammatory score from 1 (inflammatory) to 10 (strongly anti-inflammatory).
Review the weekly meal plan you are given and respond with ONLY a JSON object:
{"summary": "one or two sentences", "tips": ["short actionable tip", "..."]}
Give at most 5 tips. Do not include markdown or any text outside the JSON.`

func buildUserPrompt(req outbound.AdviceRequest) string {
	n := req.Nutrition
	var b strings.Builder
	fmt.Fprintf(&b, "Daily calorie target: %d kcal\n", req.DailyCalorieTarget)
	fmt.Fprintf(&b, "Daily averages: %.0f kcal, %.0f g protein, %.0f g carbohydrates, %.0f g fat\n",
		n.DailyCalories, n.DailyProtein, n.DailyCarbs, n.DailyFat)
	fmt.Fprintf(&b, "Meals planned: %d, average anti-inflammatory score %.1f\n", n.MealCount, n.AverageScore)
	if len(req.DietaryNotes) > 0 {
		fmt.Fprintf(&b, "Dietary restrictions and allergies: %s\n", strings.Join(req.DietaryNotes, ", "))
	}

	b.WriteString("Meals:\n")
	req.Meals.Each(func(day shared.Day, slot recipe.MealType, m mealplan.PlannedMeal) {
		fmt.Fprintf(&b, "- %s %s: %s (score %d, %.0f kcal)\n", day, slot, m.Title, m.AntiInflammatoryScore, m.Total().Calories)
	})
	return b.String()
}

// complete makes the chat completion call and returns the first choice
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	reqBody := chatCompletionRequest{
		Model: c.model,
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    c.temperature,
		MaxTokens:      c.maxTokens,
		ResponseFormat: &responseFormat{Type: "json_object"},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := gjson.GetBytes(body, "error.message").String()
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, msg)
	}

	content := gjson.GetBytes(body, "choices.0.message.content")
	if !content.Exists() {
		return "", errors.New("no response choices returned")
	}

	usage := gjson.GetBytes(body, "usage")
	c.logger.Debug("Chat completion finished",
		zap.String("model", c.model),
		zap.Int64("prompt_tokens", usage.Get("prompt_tokens").Int()),
		zap.Int64("completion_tokens", usage.Get("completion_tokens").Int()),
	)

	return content.String(), nil
}

// parseInsights reads the JSON object out of the model's reply. Models
// sometimes wrap it in prose or code fences.
func parseInsights(content string) (*mealplan.Insights, error) {
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start == -1 || end <= start {
		return nil, errors.New("no valid JSON found in response")
	}
	raw := content[start : end+1]
	if !gjson.Valid(raw) {
		return nil, errors.New("invalid JSON in response")
	}

	parsed := gjson.Parse(raw)
	summary := strings.TrimSpace(parsed.Get("summary").String())
	if summary == "" {
		return nil, errors.New("response has no summary")
	}

	var tips []string
	parsed.Get("tips").ForEach(func(_, tip gjson.Result) bool {
		if t := strings.TrimSpace(tip.String()); t != "" {
			tips = append(tips, t)
		}
		return len(tips) < maxTips
	})

	return &mealplan.Insights{Summary: summary, Tips: tips, Source: Source}, nil
}
