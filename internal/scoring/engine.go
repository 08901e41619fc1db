package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
)

// NeutralScore is given to listings when no criteria axis can be evaluated.
const NeutralScore = 50

// ReasonOutsideLocations is the exclusion reason for listings that match no
// target location.
const ReasonOutsideLocations = "not in target locations"

// Engine scores candidate listings against buy box criteria. It holds no
// per-search state and is safe for concurrent use.
type Engine struct {
	workers int
}

// Option configures an Engine.
type Option func(*Engine)

// WithWorkers scores listings on up to n goroutines. Values below 2 score
// sequentially. Output is identical either way.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// NewEngine creates a scoring engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{workers: 1}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScoreSearch scores candidates for box sequentially.
func ScoreSearch(box BuyBox, candidates []Listing) (*SearchResult, error) {
	return NewEngine().Search(context.Background(), box, candidates)
}

// ScoreListing scores a single listing. Unlike Search it does not drop
// listings outside the target locations.
func (e *Engine) ScoreListing(criteria Criteria, l Listing) (ScoredListing, error) {
	if err := criteria.Validate(); err != nil {
		return ScoredListing{}, err
	}
	if err := l.Check(); err != nil {
		return ScoredListing{}, err
	}
	return score(criteria.Normalize(), l), nil
}

// outcome is the per-candidate result before ranking.
type outcome struct {
	scored  ScoredListing
	err     error
	outside bool
}

// Search validates the criteria, scores every candidate, drops listings
// that cannot be scored or sit outside the target locations, and ranks
// the rest. Invalid criteria abort the search; bad candidates do not.
func (e *Engine) Search(ctx context.Context, box BuyBox, candidates []Listing) (*SearchResult, error) {
	if err := box.Criteria.Validate(); err != nil {
		return nil, fmt.Errorf("buy box %q: %w", box.ID, err)
	}
	criteria := box.Criteria.Normalize()

	outcomes := make([]outcome, len(candidates))
	scoreAt := func(i int) {
		l := candidates[i]
		if err := l.Check(); err != nil {
			outcomes[i] = outcome{err: err}
			return
		}
		s := score(criteria, l)
		outcomes[i] = outcome{scored: s, outside: len(criteria.Locations) > 0 && s.MatchDetails.LocationScore == 0}
	}

	if err := e.run(ctx, len(candidates), scoreAt); err != nil {
		return nil, err
	}

	result := &SearchResult{
		BuyBoxID:      box.ID,
		BuyBoxName:    box.Name,
		Query:         strings.Join(criteria.Locations, ", "),
		Listings:      make([]ScoredListing, 0, len(candidates)),
		TooPermissive: !criteria.HasActiveCriteria(),
		SearchParams:  criteria,
	}

	for i, o := range outcomes {
		switch {
		case o.err != nil:
			result.Excluded = append(result.Excluded, Exclusion{ListingID: candidates[i].ID, Reason: o.err.Error()})
		case o.outside:
			result.Excluded = append(result.Excluded, Exclusion{ListingID: candidates[i].ID, Reason: ReasonOutsideLocations})
		default:
			result.Listings = append(result.Listings, o.scored)
		}
	}

	Rank(result.Listings)
	result.TotalFound = len(result.Listings)

	return result, nil
}

// run calls fn for every index, fanning out when the engine has workers.
func (e *Engine) run(ctx context.Context, n int, fn func(i int)) error {
	if e.workers < 2 || n < 2 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(i)
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Rank sorts listings by score descending, then price ascending, then ID.
func Rank(listings []ScoredListing) {
	sort.SliceStable(listings, func(i, j int) bool {
		a, b := listings[i], listings[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.price() != b.price() {
			return a.price() < b.price()
		}
		return a.ID < b.ID
	})
}

// score evaluates one checked listing against normalized criteria.
func score(c Criteria, l Listing) ScoredListing {
	ks := EvaluateKillSwitches(c.KillSwitches, l.DeriveFlags())

	axes := []axis{
		priceAxis(c, l),
		locationAxis(c, l),
		propertyAxis(c, l),
		financialAxis(c, l),
	}

	s := ScoredListing{
		Listing:      l,
		MatchReasons: []string{},
		DealBreakers: append([]string{}, ks.Reasons...),
		MatchDetails: MatchDetails{
			KillSwitchTriggered: ks.Triggered,
			ActiveAxes:          []string{},
		},
	}

	var sum, n int
	subs := make([]int, len(axes))
	for i, a := range axes {
		subs[i] = 100
		if !a.active {
			continue
		}
		subs[i] = a.score
		sum += a.score
		n++
		s.MatchDetails.ActiveAxes = append(s.MatchDetails.ActiveAxes, a.name)
		s.MatchReasons = append(s.MatchReasons, a.reasons...)
		s.DealBreakers = append(s.DealBreakers, a.breakers...)
	}
	s.MatchDetails.PriceScore = subs[0]
	s.MatchDetails.LocationScore = subs[1]
	s.MatchDetails.PropertyScore = subs[2]
	s.MatchDetails.FinancialScore = subs[3]

	s.Score = NeutralScore
	if n > 0 {
		s.Score = clamp100(round(float64(sum) / float64(n)))
	}

	s.Badge = Classify(s.Score, ks.Triggered)
	s.BadgeColor = s.Badge.Color()

	return s
}
