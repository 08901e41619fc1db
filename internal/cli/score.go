package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/buybox/internal/buybox"
	"github.com/evcraddock/buybox/internal/listing"
	"github.com/evcraddock/buybox/internal/scoring"
	"github.com/evcraddock/buybox/internal/search"
)

func newScoreCmd() *cobra.Command {
	var (
		boxPath     string
		listingPath string
		limit       int
		explain     bool
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score a listing file against a buy box file",
		Long: "Score listings from a JSON file against a buy box document without touching the catalog, " +
			"the saved buy boxes or the search history.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := buybox.LoadFile(boxPath)
			if err != nil {
				return err
			}
			candidates, err := listing.ParseFile(listingPath, scoring.SourceImport)
			if err != nil {
				return err
			}

			svc := search.NewService(nil,
				search.WithAssumptions(current.Finance),
				search.WithEngine(scoring.NewEngine(scoring.WithWorkers(current.Workers))),
			)
			res, err := svc.Score(cmd.Context(), b.Scoring(), candidates)
			if err != nil {
				return fmt.Errorf("scoring %s: %w", listingPath, err)
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), limitResult(res, limit))
			}
			return printResult(cmd.OutOrStdout(), res, limit, explain)
		},
	}

	cmd.Flags().StringVar(&boxPath, "buybox", "", "buy box document (YAML or JSON)")
	cmd.Flags().StringVar(&listingPath, "listings", "", "listings JSON file")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most N listings")
	cmd.Flags().BoolVar(&explain, "explain", false, "print match reasons and deal breakers")
	_ = cmd.MarkFlagRequired("buybox")
	_ = cmd.MarkFlagRequired("listings")

	return cmd
}
