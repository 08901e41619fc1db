package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/buybox/internal/buybox"
	"github.com/evcraddock/buybox/internal/catalog"
	"github.com/evcraddock/buybox/internal/logging"
	"github.com/evcraddock/buybox/internal/mock"
	"github.com/evcraddock/buybox/internal/scoring"
	"github.com/evcraddock/buybox/internal/search"
)

type searchOptions struct {
	all       bool
	mockCount int
	seed      uint64
	limit     int
	workers   int
	explain   bool
	noSave    bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [buybox-id]",
		Short: "Rank listings against a buy box",
		Long: "Score candidate listings against a saved buy box and print them best first. Candidates come from " +
			"the local catalog, or from the seeded mock generator with --mock. Every search is recorded in the " +
			"search history unless --no-save is given.",
		Args: func(cmd *cobra.Command, args []string) error {
			if opts.all {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(1)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "search every active buy box")
	cmd.Flags().IntVar(&opts.mockCount, "mock", 0, "score N generated listings instead of the catalog")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "seed for --mock listings")
	cmd.Flags().IntVar(&opts.limit, "limit", 0, "show at most N listings")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "score listings in parallel (default from config)")
	cmd.Flags().BoolVar(&opts.explain, "explain", false, "print match reasons and deal breakers")
	cmd.Flags().BoolVar(&opts.noSave, "no-save", false, "do not record the search in history")

	return cmd
}

func runSearch(cmd *cobra.Command, args []string, opts searchOptions) (err error) {
	if opts.mockCount < 0 || opts.limit < 0 || opts.workers < 0 {
		return fmt.Errorf("--mock, --limit and --workers must not be negative")
	}

	boxes, err := searchTargets(args, opts.all)
	if err != nil {
		return err
	}

	var database *sql.DB
	if opts.mockCount == 0 || !opts.noSave {
		database, err = openDB()
		if err != nil {
			return err
		}
		defer closeDB(database)
	}

	svc := newSearchService(database, opts)

	results := make([]*scoring.SearchResult, 0, len(boxes))
	for _, b := range boxes {
		op := logging.Start("search", "buy_box", b.ID, "mock", opts.mockCount > 0)
		res, err := svc.Run(cmd.Context(), b.Scoring())
		op.End(cmd.Context(), err)
		if err != nil {
			return err
		}
		results = append(results, res)
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		for i, res := range results {
			results[i] = limitResult(res, opts.limit)
		}
		if opts.all {
			return printJSON(out, results)
		}
		return printJSON(out, results[0])
	}

	if len(results) == 0 {
		fmt.Fprintln(out, "No active buy boxes.")
		return nil
	}
	for i, res := range results {
		if i > 0 {
			fmt.Fprintln(out)
		}
		if err := printResult(out, res, opts.limit, opts.explain); err != nil {
			return err
		}
	}
	return nil
}

// searchTargets returns the buy box named in args, or every active one.
func searchTargets(args []string, all bool) ([]*buybox.BuyBox, error) {
	store := newStore()
	if all {
		return store.List(buybox.ListOptions{ActiveOnly: true})
	}
	b, err := store.Get(args[0])
	if err != nil {
		return nil, err
	}
	return []*buybox.BuyBox{b}, nil
}

func newSearchService(database *sql.DB, opts searchOptions) *search.Service {
	workers := current.Workers
	if opts.workers > 0 {
		workers = opts.workers
	}

	var provider search.Provider
	if opts.mockCount > 0 {
		provider = mock.Provider{Seed: opts.seed, Count: opts.mockCount}
	} else {
		provider = catalog.NewRepository(database)
	}

	svcOpts := []search.Option{
		search.WithAssumptions(current.Finance),
		search.WithEngine(scoring.NewEngine(scoring.WithWorkers(workers))),
	}
	if !opts.noSave {
		svcOpts = append(svcOpts, search.WithRecorder(search.NewHistory(database)))
	}
	return search.NewService(provider, svcOpts...)
}

// limitResult returns res with at most limit listings. TotalFound keeps
// the full count.
func limitResult(res *scoring.SearchResult, limit int) *scoring.SearchResult {
	if limit <= 0 || len(res.Listings) <= limit {
		return res
	}
	cp := *res
	cp.Listings = res.Listings[:limit]
	return &cp
}
