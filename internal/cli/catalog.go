package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/buybox/internal/catalog"
	"github.com/evcraddock/buybox/internal/listing"
	"github.com/evcraddock/buybox/internal/scoring"
)

func newCatalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local listing catalog",
		Long:  "Import, browse and remove the listings that searches score when no mock provider is requested.",
	}

	cmd.AddCommand(
		newCatalogImportCmd(),
		newCatalogListCmd(),
		newCatalogShowCmd(),
		newCatalogRemoveCmd(),
	)
	return cmd
}

// newCatalogRepo opens the database and returns a catalog repository.
func newCatalogRepo() (*catalog.Repository, func(), error) {
	database, err := openDB()
	if err != nil {
		return nil, nil, err
	}
	return catalog.NewRepository(database), func() { closeDB(database) }, nil
}

func newCatalogImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Import listings from a JSON file",
		Long: "Import listings from a JSON array, a {\"listings\": [...]} wrapper or a single object. " +
			"Flat and nested realtor-style fields are both accepted. Existing listings with the same ID are replaced.",
		Args: cobra.ExactArgs(1),
		RunE: runCatalogImport,
	}
}

func runCatalogImport(cmd *cobra.Command, args []string) error {
	listings, err := listing.ParseFile(args[0], scoring.SourceImport)
	if err != nil {
		return err
	}

	repo, done, err := newCatalogRepo()
	if err != nil {
		return err
	}
	defer done()

	n, err := repo.Import(listings)
	if err != nil {
		return err
	}

	if isJSON() {
		return printJSON(cmd.OutOrStdout(), map[string]interface{}{
			"file":     args[0],
			"imported": n,
		})
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d listings from %s.\n", n, args[0])
	return nil
}

func newCatalogListCmd() *cobra.Command {
	var (
		locations []string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List catalog listings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, done, err := newCatalogRepo()
			if err != nil {
				return err
			}
			defer done()

			entries, err := repo.List(catalog.ListOptions{Locations: locations, Limit: limit})
			if err != nil {
				return err
			}

			if isJSON() {
				if entries == nil {
					entries = []*catalog.Entry{}
				}
				return printJSON(cmd.OutOrStdout(), entries)
			}
			return printListingTable(cmd.OutOrStdout(), entries)
		},
	}

	cmd.Flags().StringSliceVar(&locations, "location", nil, "only listings in this ZIP, city or \"City, ST\" (repeatable)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of listings")

	return cmd
}

func newCatalogShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a catalog listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, done, err := newCatalogRepo()
			if err != nil {
				return err
			}
			defer done()

			e, err := repo.Get(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(out, e)
			}

			fmt.Fprintf(out, "Listing %s\n", e.ID)
			fmt.Fprintf(out, "  Address:  %s\n", formatAddress(e.Listing))
			fmt.Fprintf(out, "  Price:    %s\n", formatMoney(e.Price))
			fmt.Fprintf(out, "  Beds:     %s\n", formatNumber(e.Beds))
			fmt.Fprintf(out, "  Baths:    %s\n", formatNumber(e.Baths))
			fmt.Fprintf(out, "  Sqft:     %s\n", formatCount(e.Sqft))
			if e.YearBuilt != nil {
				fmt.Fprintf(out, "  Built:    %s\n", formatNumber(e.YearBuilt))
			}
			if e.LotSize != nil {
				fmt.Fprintf(out, "  Lot:      %.2f acres\n", *e.LotSize)
			}
			if e.HOA != nil {
				fmt.Fprintf(out, "  HOA:      %s/mo\n", formatMoney(e.HOA))
			}
			if e.PropertyType != "" {
				fmt.Fprintf(out, "  Type:     %s\n", e.PropertyType)
			}
			if e.RentEstimate != nil {
				fmt.Fprintf(out, "  Rent:     %s/mo\n", formatMoney(e.RentEstimate))
			}
			fmt.Fprintf(out, "  Source:   %s\n", e.Source)
			return nil
		},
	}
}

func newCatalogRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a catalog listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, done, err := newCatalogRepo()
			if err != nil {
				return err
			}
			defer done()

			if err := repo.Remove(args[0]); err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"id":      args[0],
					"removed": true,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Listing %s removed.\n", args[0])
			return nil
		},
	}
}
