// Package openfoodfacts searches the Open Food Facts product database
package openfoodfacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/internal/infrastructure/monitoring"
	"github.com/nourishlab/nourish/internal/ports/outbound"
	"github.com/nourishlab/nourish/pkg/healthcheck"
)

const (
	serviceName    = "openfoodfacts"
	source         = "openfoodfacts"
	searchPath     = "/cgi/search.pl"
	maxPageSize    = 50
	maxBody        = 2 << 20
	kilojoulePerKc = 4.184
	searchFields   = "code,product_name,brands,nutriments"
)

// Client implements outbound.FoodLookup
type Client struct {
	baseURL   string
	userAgent string
	timeout   time.Duration
	pageSize  int
	http      *http.Client
	breaker   *healthcheck.CircuitBreaker
	metrics   *monitoring.Metrics
	logger    *zap.Logger
}

// NewClient creates a lookup client. Each search is bounded by cfg.Timeout.
func NewClient(cfg config.FoodDataConfig, breaker *healthcheck.CircuitBreaker, metrics *monitoring.Metrics, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}
	if breaker == nil {
		breaker = healthcheck.NewCircuitBreaker(serviceName, healthcheck.CircuitBreakerConfig{})
	}
	return &Client{
		baseURL:   cfg.BaseURL,
		userAgent: cfg.UserAgent,
		timeout:   timeout,
		pageSize:  pageSize,
		http:      &http.Client{},
		breaker:   breaker,
		metrics:   metrics,
		logger:    logger.Named("openfoodfacts"),
	}
}

// Search returns up to limit foods matching query, nutrients per 100 g.
// Products without a name or energy value are skipped.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]outbound.FoodItem, error) {
	if limit <= 0 {
		limit = c.pageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	var body []byte
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		var err error
		body, err = c.fetch(ctx, query, limit)
		return err
	})

	outcome := "success"
	switch {
	case errors.Is(err, healthcheck.ErrCircuitOpen):
		outcome = "circuit_open"
	case errors.Is(err, context.DeadlineExceeded):
		outcome = "timeout"
	case err != nil:
		outcome = "error"
	}
	c.metrics.RecordExternalCall(serviceName, outcome, time.Since(start))
	if err != nil {
		c.logger.Warn("Food search failed", zap.String("query", query), zap.String("outcome", outcome), zap.Error(err))
		return nil, err
	}

	items := parseProducts(gjson.GetBytes(body, "products"), limit)
	c.logger.Debug("Food search", zap.String("query", query), zap.Int("results", len(items)))
	return items, nil
}

func (c *Client) fetch(ctx context.Context, query string, limit int) ([]byte, error) {
	params := url.Values{}
	params.Set("search_terms", query)
	params.Set("search_simple", "1")
	params.Set("action", "process")
	params.Set("json", "1")
	params.Set("page_size", strconv.Itoa(limit))
	params.Set("fields", searchFields)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+searchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("food search request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("food search returned %d", resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return nil, errors.New("food search returned invalid JSON")
	}
	return body, nil
}

func parseProducts(products gjson.Result, limit int) []outbound.FoodItem {
	items := make([]outbound.FoodItem, 0, limit)
	products.ForEach(func(_, product gjson.Result) bool {
		name := product.Get("product_name").String()
		nutriments := product.Get("nutriments")
		calories, ok := energyKcal(nutriments)
		if name == "" || !ok {
			return true
		}
		items = append(items, outbound.FoodItem{
			Code:     product.Get("code").String(),
			Name:     name,
			Brand:    product.Get("brands").String(),
			Calories: round1(calories),
			Protein:  round1(nutriments.Get("proteins_100g").Float()),
			Carbs:    round1(nutriments.Get("carbohydrates_100g").Float()),
			Fat:      round1(nutriments.Get("fat_100g").Float()),
			Fiber:    round1(nutriments.Get("fiber_100g").Float()),
			Source:   source,
		})
		return len(items) < limit
	})
	return items
}

// energyKcal prefers the kcal field and falls back to converting kJ
func energyKcal(nutriments gjson.Result) (float64, bool) {
	if kcal := nutriments.Get("energy-kcal_100g"); kcal.Exists() {
		return kcal.Float(), true
	}
	if kj := nutriments.Get("energy_100g"); kj.Exists() {
		return kj.Float() / kilojoulePerKc, true
	}
	return 0, false
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
