package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:     "clear",
	Aliases: []string{"c"},
	Short:   "Delete all stored orgs, pages and secrets",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		confirmed, err := app.prompts.ConfirmClear()
		if err != nil {
			return err
		}
		if !confirmed {
			return nil
		}

		if err := app.store.DestroyAll(); err != nil {
			return err
		}
		// Vaulted passwords are useless without the store's key record.
		if err := os.RemoveAll(app.cfg.VaultDir()); err != nil {
			return err
		}

		app.status.Success("All entries deleted.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}
