// Package app provides the progression engine behind the HTTP API:
// the authorization gate, the grading transaction, and the
// evaluator-eligibility sweep.
package app

import (
	"context"
	"sync"

	repository "github.com/okian/milepost/internal/adapters/repository"
	"github.com/okian/milepost/internal/domain/model"
	"github.com/okian/milepost/internal/domain/rubric"
	"github.com/okian/milepost/internal/domain/types"
	"github.com/okian/milepost/pkg/logger"
)

// Service implements the API dependencies for the grading system.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	aggregator rubric.Aggregator

	// Configuration
	txAttempts int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore injects the progress store. Defaults to an in-memory store.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithAggregator replaces the rubric aggregator.
func WithAggregator(agg rubric.Aggregator) Option {
	return func(s *Service) {
		if agg != nil {
			s.aggregator = agg
		}
	}
}

// WithTxAttempts bounds the store's optimistic retry loop.
func WithTxAttempts(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.txAttempts = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		aggregator: rubric.NewMinRule(),
		txAttempts: 5,
		logger:     nil, // Will be replaced when service starts
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	if s.store == nil {
		s.store = repository.NewMemStore(repository.WithMaxAttempts(s.txAttempts))
		s.logger.Info(ctx, "using in-memory progress store")
	}

	s.started = true
	s.logger.Info(ctx, "grading service started",
		logger.Int("txAttempts", s.txAttempts),
	)

	return nil
}

// Stop shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	if closer, ok := s.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}

	s.started = false
	s.logger.Info(context.Background(), "grading service stopped")
}

// Store exposes the underlying progress store for out-of-band
// provisioning (seed fixtures). Engine writes still go through Grade.
func (s *Service) Store() repository.Store {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store
}

// Stations returns the catalog ordered by ascending sequence position.
func (s *Service) Stations(ctx context.Context) ([]types.StationSummary, error) {
	stations, err := s.store.Stations(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]types.StationSummary, len(stations))
	for i, st := range stations {
		out[i] = types.StationSummary{
			ID:     st.ID,
			Name:   st.Name,
			Order:  st.Order,
			Active: st.Active,
		}
	}
	return out, nil
}

// Eligibility returns the stored may-evaluate map for a trainee.
func (s *Service) Eligibility(ctx context.Context, traineeID string) (types.EligibilityView, error) {
	prof, err := s.store.Profile(ctx, traineeID)
	if err != nil {
		return types.EligibilityView{}, err
	}

	flags := prof.CanEvaluate
	if flags == nil {
		flags = map[string]bool{}
	}
	return types.EligibilityView{TraineeID: traineeID, CanEvaluate: flags}, nil
}

// TraineeProgress returns every progress snapshot a trainee owns.
func (s *Service) TraineeProgress(ctx context.Context, traineeID string) ([]types.ProgressView, error) {
	records, err := s.store.TraineeProgress(ctx, traineeID)
	if err != nil {
		return nil, err
	}

	out := make([]types.ProgressView, len(records))
	for i, p := range records {
		out[i] = progressView(p)
	}
	return out, nil
}

// History returns a snapshot's history entries, newest first.
func (s *Service) History(ctx context.Context, progressID string) ([]model.HistoryEntry, error) {
	// History lives under the progress record; an unknown record is
	// NotFound rather than an empty list.
	if _, err := s.store.Progress(ctx, progressID); err != nil {
		return nil, err
	}
	return s.store.History(ctx, progressID)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":    s.started,
		"txAttempts": s.txAttempts,
	}

	if s.started {
		if stations, err := s.store.Stations(context.Background()); err == nil {
			stats["stations"] = len(stations)
		}
	}

	return stats
}

func progressView(p model.Progress) types.ProgressView {
	return types.ProgressView{
		ProgressID:    p.ID,
		StationID:     p.StationID,
		Level:         p.Level,
		Score:         p.Score,
		AttemptsCount: p.AttemptsCount,
		UpdatedAt:     p.UpdatedAt,
	}
}
