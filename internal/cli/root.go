// Package cli defines the cobra command tree for bb.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/buybox/internal/buybox"
	"github.com/evcraddock/buybox/internal/db"
	"github.com/evcraddock/buybox/internal/logging"
)

var (
	flagFormat string
	flagDB     string
	flagDir    string
)

// current holds the settings resolved before a command runs.
var current Config

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "bb",
		Short: "Score property listings against investment buy boxes",
		Long: "A tool to define real estate buy boxes (price, location, property and return criteria with " +
			"kill switches) and rank candidate listings against them.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if flagFormat != "text" && flagFormat != "json" {
				return fmt.Errorf("invalid --format %q (want text or json)", flagFormat)
			}
			s, err := loadSettings()
			if err != nil {
				return err
			}
			current = s
			logging.Setup(cmd.ErrOrStderr(), s.Dev)
			return nil
		},
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (default: ~/.config/bb/bb.db)")
	root.PersistentFlags().StringVar(&flagDir, "dir", "", "buy box directory (default: ~/.config/bb/buyboxes)")

	root.AddCommand(
		newBuyBoxCmd(),
		newCatalogCmd(),
		newSearchCmd(),
		newScoreCmd(),
		newHistoryCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)

	return root
}

// openDB opens the SQLite database at the resolved path.
func openDB() (*sql.DB, error) {
	return db.Open(current.DBPath)
}

// newStore returns the buy box store for the resolved directory.
func newStore() *buybox.Store {
	return buybox.NewStore(current.BuyBoxDir)
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
