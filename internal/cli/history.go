package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/buybox/internal/search"
)

func newHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Browse recorded searches",
	}

	cmd.AddCommand(
		newHistoryListCmd(),
		newHistoryShowCmd(),
		newHistoryRemoveCmd(),
		newHistoryStatsCmd(),
	)
	return cmd
}

// newHistoryRepo opens the database and returns the search history.
func newHistoryRepo() (*search.History, func(), error) {
	database, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	return search.NewHistory(database), func() { closeDB(database) }, nil
}

func newHistoryListCmd() *cobra.Command {
	var opts search.ListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded searches, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, done, err := newHistoryRepo()
			if err != nil {
				return err
			}
			defer done()

			summaries, err := h.List(opts)
			if err != nil {
				return err
			}

			if isJSON() {
				if summaries == nil {
					summaries = []search.Summary{}
				}
				return printJSON(cmd.OutOrStdout(), summaries)
			}
			return printHistoryTable(cmd.OutOrStdout(), summaries)
		},
	}

	cmd.Flags().StringVar(&opts.BuyBoxID, "buybox", "", "only searches for this buy box")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum number of searches (0 for all)")

	return cmd
}

func newHistoryShowCmd() *cobra.Command {
	var (
		limit   int
		explain bool
	)

	cmd := &cobra.Command{
		Use:   "show <search-id>",
		Short: "Show a recorded search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, done, err := newHistoryRepo()
			if err != nil {
				return err
			}
			defer done()

			res, err := h.Get(args[0])
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), limitResult(res, limit))
			}
			return printResult(cmd.OutOrStdout(), res, limit, explain)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "show at most N listings")
	cmd.Flags().BoolVar(&explain, "explain", false, "print match reasons and deal breakers")

	return cmd
}

func newHistoryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <search-id>",
		Short: "Remove a recorded search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h, done, err := newHistoryRepo()
			if err != nil {
				return err
			}
			defer done()

			if err := h.Delete(args[0]); err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"id":      args[0],
					"removed": true,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Search %s removed.\n", args[0])
			return nil
		},
	}
}

func newHistoryStatsCmd() *cobra.Command {
	var opts search.ListOptions

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded searches",
		Long: "Count recorded searches and the listings they found, average the ranked scores, " +
			"and list the best scoring buy boxes and the most recent Great Deal listings.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.Limit < 0 {
				return fmt.Errorf("--limit must not be negative")
			}

			h, done, err := newHistoryRepo()
			if err != nil {
				return err
			}
			defer done()

			st, err := h.Stats(opts)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), st)
			}
			return printStats(cmd.OutOrStdout(), st)
		},
	}

	cmd.Flags().StringVar(&opts.BuyBoxID, "buybox", "", "only searches for this buy box")
	cmd.Flags().IntVar(&opts.Limit, "limit", 5, "number of top buy boxes and great finds")

	return cmd
}
