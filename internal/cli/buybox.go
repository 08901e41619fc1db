package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/buybox/internal/buybox"
)

func newBuyBoxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buybox",
		Short: "Manage buy boxes",
		Long:  "Create, inspect and remove buy boxes. A buy box is a YAML or JSON document holding investment criteria.",
	}

	cmd.AddCommand(
		newBuyBoxCreateCmd(),
		newBuyBoxListCmd(),
		newBuyBoxShowCmd(),
		newBuyBoxValidateCmd(),
		newBuyBoxRemoveCmd(),
	)
	return cmd
}

func newBuyBoxCreateCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "create <file>",
		Short: "Save a buy box from a document",
		Long:  "Validate a buy box document and save it. The ID is derived from the name when the document has none.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuyBoxCreate(cmd, args[0], force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "replace an existing buy box with the same ID")

	return cmd
}

func runBuyBoxCreate(cmd *cobra.Command, path string, force bool) error {
	b, err := buybox.LoadFile(path)
	if err != nil {
		return err
	}

	store := newStore()
	saved, err := store.Create(b)
	if errors.Is(err, buybox.ErrExists) && force {
		saved, err = store.Update(b)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if isJSON() {
		return printJSON(out, saved)
	}

	fmt.Fprintf(out, "Buy box %s saved.\n", saved.ID)
	printBuyBox(out, saved)
	return nil
}

func newBuyBoxListCmd() *cobra.Command {
	var activeOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List buy boxes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			boxes, err := newStore().List(buybox.ListOptions{ActiveOnly: activeOnly})
			if err != nil {
				return err
			}
			if isJSON() {
				if boxes == nil {
					boxes = []*buybox.BuyBox{}
				}
				return printJSON(cmd.OutOrStdout(), boxes)
			}
			return printBuyBoxTable(cmd.OutOrStdout(), boxes)
		},
	}

	cmd.Flags().BoolVar(&activeOnly, "active", false, "only list active buy boxes")

	return cmd
}

func newBuyBoxShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show buy box details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := newStore().Get(args[0])
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), b)
			}
			printBuyBox(cmd.OutOrStdout(), b)
			return nil
		},
	}
}

func newBuyBoxValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a buy box document without saving it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := buybox.LoadFile(args[0])
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"valid":  true,
					"buybox": b,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is valid.\n", args[0])
			return nil
		},
	}
}

func newBuyBoxRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a buy box",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			if err := newStore().Remove(id); err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), map[string]interface{}{
					"id":      id,
					"removed": true,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Buy box %s removed.\n", id)
			return nil
		},
	}
}
