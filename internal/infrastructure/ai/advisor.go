package ai

import (
	"context"

	"go.uber.org/zap"

	"github.com/nourishlab/nourish/internal/domain/mealplan"
	"github.com/nourishlab/nourish/internal/infrastructure/ai/openai"
	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/healthcheck"
)

// FallbackAdvisor answers from primary and falls back when it fails
type FallbackAdvisor struct {
	primary  outbound.PlanAdvisor
	fallback outbound.PlanAdvisor
	logger   *zap.Logger
}

// NewFallbackAdvisor chains two advisors
func NewFallbackAdvisor(primary, fallback outbound.PlanAdvisor, logger *zap.Logger) *FallbackAdvisor {
	return &FallbackAdvisor{primary: primary, fallback: fallback, logger: logger.Named("advisor")}
}

// Advise implements outbound.PlanAdvisor
func (a *FallbackAdvisor) Advise(ctx context.Context, req outbound.AdviceRequest) (*mealplan.Insights, error) {
	insights, err := a.primary.Advise(ctx, req)
	if err == nil && insights != nil {
		return insights, nil
	}
	if err != nil {
		a.logger.Warn("Model insights failed, using rules", zap.Error(err))
	}
	return a.fallback.Advise(ctx, req)
}

// NewAdvisor returns the model advisor with the rule fallback when AI insights
// are enabled, and the rule advisor alone otherwise. The breaker is used for
// the model calls and may be nil.
func NewAdvisor(cfg *config.Config, breaker *healthcheck.CircuitBreaker, metrics *monitoring.Metrics, logger *zap.Logger) outbound.PlanAdvisor {
	rules := NewRuleAdvisor()
	if !cfg.AI.Enabled || !cfg.Features.EnableAIInsights {
		logger.Info("AI insights disabled, using rule-based advisor")
		return rules
	}
	logger.Info("AI insights enabled",
		zap.String("base_url", cfg.AI.BaseURL),
		zap.String("model", cfg.AI.Model),
	)
	return NewFallbackAdvisor(openai.NewClient(cfg.AI, breaker, metrics, logger), rules, logger)
}
