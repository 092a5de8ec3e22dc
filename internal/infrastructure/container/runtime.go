package container

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nourishlab/nourish/internal/infrastructure/config"
	"github.com/nourishlab/nourish/pkg/logger"
)

// LimitSetter is a rate limiter whose limits can change while running
type LimitSetter interface {
	SetLimits(requestsPerMin, burst int)
}

// Runtime holds the settings that follow config file reloads: maintenance
// mode, the log level and the rate limits. Everything else needs a restart.
type Runtime struct {
	maintenance atomic.Bool
	level       zap.AtomicLevel

	mu      sync.Mutex
	limiter LimitSetter

	logger *zap.Logger
}

// NewRuntime seeds the runtime settings from the loaded config
func NewRuntime(cfg *config.Config, level zap.AtomicLevel, log *zap.Logger) *Runtime {
	rt := &Runtime{level: level, logger: log.Named("runtime")}
	rt.maintenance.Store(cfg.Features.MaintenanceMode)
	return rt
}

// Maintenance reports whether maintenance mode is on
func (r *Runtime) Maintenance() bool {
	return r.maintenance.Load()
}

// SetLimiter registers the limiter that reloads update
func (r *Runtime) SetLimiter(l LimitSetter) {
	r.mu.Lock()
	r.limiter = l
	r.mu.Unlock()
}

// Apply takes the reloadable settings from cfg
func (r *Runtime) Apply(cfg *config.Config) {
	if was := r.maintenance.Swap(cfg.Features.MaintenanceMode); was != cfg.Features.MaintenanceMode {
		r.logger.Warn("Maintenance mode changed", zap.Bool("enabled", cfg.Features.MaintenanceMode))
	}

	if level := logger.ParseLevel(cfg.App.LogLevel); level != r.level.Level() {
		r.level.SetLevel(level)
		r.logger.Info("Log level changed", zap.Stringer("level", level))
	}

	r.mu.Lock()
	limiter := r.limiter
	r.mu.Unlock()
	if limiter != nil && cfg.RateLimit.Enable {
		limiter.SetLimits(cfg.RateLimit.RequestsPerMin, cfg.RateLimit.BurstSize)
	}
}
