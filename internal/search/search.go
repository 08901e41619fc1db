// Package search runs buy box searches: it gathers candidates from a
// provider, attaches financial estimates, scores them and records the
// result.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/evcraddock/buybox/internal/finance"
	"github.com/evcraddock/buybox/internal/scoring"
)

// Provider supplies candidate listings for a buy box.
type Provider interface {
	Candidates(ctx context.Context, box scoring.BuyBox) ([]scoring.Listing, error)
}

// Recorder stores completed searches.
type Recorder interface {
	Record(result *scoring.SearchResult) error
}

// Service wires a provider to the scoring engine.
type Service struct {
	provider    Provider
	engine      *scoring.Engine
	assumptions finance.Assumptions
	recorder    Recorder

	now   func() time.Time
	newID func() string
}

// Option configures a Service.
type Option func(*Service)

// WithAssumptions overrides the financial assumptions used for listings
// without their own estimates.
func WithAssumptions(a finance.Assumptions) Option {
	return func(s *Service) {
		s.assumptions = a
	}
}

// WithRecorder saves every completed search.
func WithRecorder(r Recorder) Option {
	return func(s *Service) {
		s.recorder = r
	}
}

// WithEngine replaces the default sequential engine.
func WithEngine(e *scoring.Engine) Option {
	return func(s *Service) {
		s.engine = e
	}
}

// NewService creates a search service.
func NewService(p Provider, opts ...Option) *Service {
	s := &Service{
		provider:    p,
		engine:      scoring.NewEngine(),
		assumptions: finance.DefaultAssumptions(),
		now:         time.Now,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run searches for one buy box. Invalid criteria fail before the provider
// is called.
func (s *Service) Run(ctx context.Context, box scoring.BuyBox) (*scoring.SearchResult, error) {
	if err := box.Criteria.Validate(); err != nil {
		return nil, fmt.Errorf("buy box %q: %w", box.ID, err)
	}

	candidates, err := s.provider.Candidates(ctx, box)
	if err != nil {
		return nil, fmt.Errorf("fetching candidates: %w", err)
	}
	return s.Score(ctx, box, candidates)
}

// Score ranks an explicit set of candidates for a buy box.
func (s *Service) Score(ctx context.Context, box scoring.BuyBox, candidates []scoring.Listing) (*scoring.SearchResult, error) {
	prepared := make([]scoring.Listing, len(candidates))
	for i, l := range candidates {
		finance.Attach(&l, s.assumptions)
		prepared[i] = l
	}

	result, err := s.engine.Search(ctx, box, prepared)
	if err != nil {
		return nil, err
	}
	result.ID = s.newID()
	result.CreatedAt = s.now().UTC()

	for _, ex := range result.Excluded {
		slog.Debug("listing excluded", "buy_box", box.ID, "listing", ex.ListingID, "reason", ex.Reason)
	}
	slog.Info("search completed",
		"search", result.ID,
		"buy_box", box.ID,
		"candidates", len(candidates),
		"returned", result.TotalFound,
		"excluded", len(result.Excluded),
	)
	if result.TooPermissive {
		slog.Warn("buy box has no active criteria", "buy_box", box.ID)
	}

	if s.recorder != nil {
		if err := s.recorder.Record(result); err != nil {
			return nil, fmt.Errorf("recording search: %w", err)
		}
	}

	return result, nil
}
