package service

import (
	"context"
	"errors"
	"time"

	"github.com/portfolio-reconciler/internal/circuitbreaker"
	apperrors "github.com/portfolio-reconciler/internal/errors"
	"github.com/portfolio-reconciler/internal/identity"
	"github.com/portfolio-reconciler/internal/logging"
	"github.com/portfolio-reconciler/internal/models"
	"github.com/portfolio-reconciler/internal/retry"
	"github.com/portfolio-reconciler/internal/types"
)

// Repository interfaces for dependency injection

// SnapshotSource loads the records relevant to one investor. It may return
// more than the investor owns; the engine filters.
type SnapshotSource interface {
	LoadSnapshot(ctx context.Context, investor string) (*models.Snapshot, error)
}

// PortfolioCache stores computed portfolios keyed by canonical investor identity
type PortfolioCache interface {
	GetPortfolio(ctx context.Context, investor string) (*types.PortfolioResult, bool, error)
	SetPortfolio(ctx context.Context, investor string, result *types.PortfolioResult) error
	InvalidatePortfolio(ctx context.Context, investor string) error
}

// PortfolioServiceConfig wires optional collaborators
type PortfolioServiceConfig struct {
	Options Options
	Retry   *retry.RetryConfig
	Breaker *circuitbreaker.CircuitBreaker
	Clock   func() time.Time
	Logger  *logging.Logger
}

// PortfolioService loads investor records, runs the reconciliation engine and
// caches the result
type PortfolioService struct {
	source  SnapshotSource
	cache   PortfolioCache
	options Options
	retry   *retry.RetryConfig
	breaker *circuitbreaker.CircuitBreaker
	now     func() time.Time
	logger  *logging.Logger
	metrics *PortfolioMetrics
}

// NewPortfolioService creates a new portfolio service. cache may be nil.
func NewPortfolioService(source SnapshotSource, cache PortfolioCache, cfg *PortfolioServiceConfig) *PortfolioService {
	if cfg == nil {
		cfg = &PortfolioServiceConfig{}
	}
	s := &PortfolioService{
		source:  source,
		cache:   cache,
		options: cfg.Options,
		retry:   retry.DefaultRetryConfig(),
		breaker: cfg.Breaker,
		now:     cfg.Clock,
		logger:  cfg.Logger,
		metrics: NewPortfolioMetrics(),
	}
	if cfg.Retry != nil {
		retryCfg := *cfg.Retry
		s.retry = &retryCfg
	}
	if s.retry.ShouldRetry == nil {
		s.retry.ShouldRetry = isTransientSourceError
	}
	if s.breaker == nil {
		s.breaker = circuitbreaker.NewCircuitBreaker(circuitbreaker.DefaultConfig("snapshot-source"))
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.logger == nil {
		s.logger = logging.GetGlobalLogger()
	}
	return s
}

// Input types

// GetPortfolioInput represents input for reading an investor's portfolio
type GetPortfolioInput struct {
	Investor string `json:"investor"`
	Refresh  bool   `json:"refresh"` // bypass the cache
}

// ComputeInput represents caller-supplied records to reconcile
type ComputeInput struct {
	Investor string           `json:"investor"`
	Now      *time.Time       `json:"now,omitempty"`
	Snapshot *models.Snapshot `json:"-"`
}

// GetPortfolio returns the investor's portfolio, from cache when possible
func (s *PortfolioService) GetPortfolio(ctx context.Context, input *GetPortfolioInput) (*types.PortfolioResult, error) {
	if input == nil {
		return nil, apperrors.NewInvalidParameterError("investor", "is required")
	}
	investor := identity.NewMatcher(input.Investor)
	if !investor.Valid() {
		return nil, apperrors.NewInvalidIdentityError(input.Investor)
	}
	key := investor.Canonical()
	logger := s.logger.WithField("investor", key)
	start := time.Now()

	if s.cache != nil && !input.Refresh {
		cached, found, err := s.cache.GetPortfolio(ctx, key)
		if err != nil {
			logger.WithError(err).Warn("Portfolio cache read failed")
		} else if found && cached != nil {
			cached.Cached = true
			s.metrics.RecordRequest(time.Since(start), true)
			logger.Debug("Portfolio served from cache")
			return cached, nil
		}
	}

	snapshot, err := s.loadSnapshot(ctx, key)
	if err != nil {
		s.metrics.RecordSourceFailure()
		return nil, err
	}

	now := s.now().UTC()
	result := &types.PortfolioResult{
		Portfolio:  s.compute(key, snapshot, now),
		ComputedAt: now,
	}

	if s.cache != nil {
		if err := s.cache.SetPortfolio(ctx, key, result); err != nil {
			logger.WithError(err).Warn("Portfolio cache write failed")
		}
	}

	s.metrics.RecordRequest(time.Since(start), false)
	return result, nil
}

// ComputeFromSnapshot reconciles caller-supplied records without touching the
// record source or the cache
func (s *PortfolioService) ComputeFromSnapshot(ctx context.Context, input *ComputeInput) (*types.PortfolioResult, error) {
	if input == nil {
		return nil, apperrors.NewInvalidParameterError("investor", "is required")
	}
	investor := identity.NewMatcher(input.Investor)
	if !investor.Valid() {
		return nil, apperrors.NewInvalidIdentityError(input.Investor)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if input.Now != nil {
		now = input.Now.UTC()
	}

	return &types.PortfolioResult{
		Portfolio:  s.compute(investor.Canonical(), input.Snapshot, now),
		ComputedAt: now,
	}, nil
}

// InvalidatePortfolio drops any cached portfolio for the investor
func (s *PortfolioService) InvalidatePortfolio(ctx context.Context, investorIdentity string) error {
	investor := identity.NewMatcher(investorIdentity)
	if !investor.Valid() {
		return apperrors.NewInvalidIdentityError(investorIdentity)
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.InvalidatePortfolio(ctx, investor.Canonical()); err != nil {
		return apperrors.NewCacheError("invalidate", err)
	}
	return nil
}

// Metrics reports request latency and cache effectiveness
func (s *PortfolioService) Metrics() *MetricsSnapshot {
	return s.metrics.Snapshot()
}

// SourceStats reports the record source circuit breaker state
func (s *PortfolioService) SourceStats() *circuitbreaker.Stats {
	return s.breaker.GetStats()
}

func (s *PortfolioService) loadSnapshot(ctx context.Context, investor string) (*models.Snapshot, error) {
	var snapshot *models.Snapshot
	err := s.breaker.Execute(ctx, func() error {
		return retry.Do(ctx, s.retry, func(ctx context.Context, attempt int) error {
			loaded, err := s.source.LoadSnapshot(ctx, investor)
			if err != nil {
				return err
			}
			snapshot = loaded
			return nil
		})
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, err
		}
		return nil, apperrors.NewSourceUnavailableError("snapshot", err)
	}
	return snapshot, nil
}

func (s *PortfolioService) compute(investor string, snapshot *models.Snapshot, now time.Time) *types.PortfolioAggregate {
	if snapshot == nil {
		snapshot = &models.Snapshot{}
	}
	agg := ComputePortfolio(Input{
		Investor: investor,
		Tokens:   snapshot.Tokens,
		Reports:  snapshot.Reports,
		Profiles: NewProfileDirectory(snapshot.Profiles),
		Now:      now,
		Options:  s.options,
	})
	s.metrics.RecordDiagnostics(len(agg.Diagnostics))
	s.logDiagnostics(investor, agg.Diagnostics)
	return agg
}

func (s *PortfolioService) logDiagnostics(investor string, diagnostics []types.Diagnostic) {
	if len(diagnostics) == 0 {
		return
	}
	s.logger.WithFields(map[string]interface{}{
		"investor":    investor,
		"diagnostics": len(diagnostics),
	}).Warn("Portfolio computed with skipped or coerced records")

	for _, d := range diagnostics {
		s.logger.WithFields(map[string]interface{}{
			"investor":   investor,
			"category":   d.Category,
			"code":       d.Code,
			"recordType": d.RecordType,
			"recordId":   d.RecordID,
		}).Debug(d.Message)
	}
}

// isTransientSourceError keeps retries away from errors that will not heal
func isTransientSourceError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var catErr *apperrors.CategorizedError
	if errors.As(err, &catErr) {
		return apperrors.IsRetryable(catErr)
	}
	return true
}
