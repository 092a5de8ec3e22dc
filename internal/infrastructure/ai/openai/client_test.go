package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/domain/recipe"
	"github.com/nourishlab/nourish/internal/domain/shared"
	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/healthcheck"
)

func adviceRequest() outbound.AdviceRequest {
	meals := mealplan.NewWeeklyMeals()
	meals[shared.Monday][recipe.MealTypeBreakfast] = mealplan.PlannedMeal{
		Title:                 "Turmeric Oats",
		MealType:              recipe.MealTypeBreakfast,
		Servings:              1,
		AntiInflammatoryScore: 9,
		PerServing:            recipe.NutritionInfo{Calories: 420, Protein: 14, Carbohydrates: 60, Fat: 12},
	}
	return outbound.AdviceRequest{
		DailyCalorieTarget: 1800,
		Nutrition:          mealplan.CalculateWeeklyNutrition(meals),
		Meals:              meals,
		DietaryNotes:       []string{"gluten-free"},
	}
}

func completion(content string) string {
	encoded, _ := json.Marshal(content)
	return fmt.Sprintf(`{"choices":[{"message":{"role":"assistant","content":%s},"finish_reason":"stop"}],"usage":{"prompt_tokens":120,"completion_tokens":40}}`, encoded)
}

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker *healthcheck.CircuitBreaker) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	cfg := config.AIConfig{Enabled: true, BaseURL: srv.URL + "/v1", APIKey: "sk-test", Model: "gpt-4o-mini", MaxTokens: 300, Timeout: time.Second}
	return NewClient(cfg, breaker, nil, zaptest.NewLogger(t))
}

func TestClient_Advise(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body chatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "gpt-4o-mini", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Contains(t, body.Messages[1].Content, "Daily calorie target: 1800 kcal")
		assert.Contains(t, body.Messages[1].Content, "monday breakfast: Turmeric Oats (score 9, 420 kcal)")
		assert.Contains(t, body.Messages[1].Content, "gluten-free")
		assert.Equal(t, "json_object", body.ResponseFormat.Type)

		fmt.Fprint(w, completion(`{"summary":"A bright start to the week.","tips":["Add greens at lunch"," ",  "Drink water"]}`))
	}, nil)

	insights, err := c.Advise(context.Background(), adviceRequest())
	require.NoError(t, err)
	assert.Equal(t, "A bright start to the week.", insights.Summary)
	assert.Equal(t, []string{"Add greens at lunch", "Drink water"}, insights.Tips)
	assert.Equal(t, Source, insights.Source)
}

func TestClient_AdviseErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{name: "api error", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key"}}`, wantErr: "bad key"},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`, wantErr: "no response choices"},
		{name: "prose only", status: http.StatusOK, body: completion("I cannot help with that."), wantErr: "no valid JSON"},
		{name: "missing summary", status: http.StatusOK, body: completion(`{"tips":["x"]}`), wantErr: "no summary"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}, nil)

			_, err := c.Advise(context.Background(), adviceRequest())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseInsights_FencedReply(t *testing.T) {
	insights, err := parseInsights("Here you go:\n```json\n{\"summary\":\"Good week\",\"tips\":[\"a\",\"b\",\"c\",\"d\",\"e\",\"f\"]}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Good week", insights.Summary)
	assert.Len(t, insights.Tips, maxTips)
}

func TestClient_BreakerOpensOnFailures(t *testing.T) {
	breaker := healthcheck.NewCircuitBreaker("openai", healthcheck.CircuitBreakerConfig{FailureThreshold: 1, Timeout: time.Hour})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, breaker)

	_, err := c.Advise(context.Background(), adviceRequest())
	require.Error(t, err)

	_, err = c.Advise(context.Background(), adviceRequest())
	assert.ErrorIs(t, err, healthcheck.ErrCircuitOpen)
}
