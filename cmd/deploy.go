package cmd

import (
	"github.com/spf13/cobra"
)

var deployCmd = &cobra.Command{
	Use:     "deploy [org]",
	Aliases: []string{"d"},
	Short:   "Deploy a page's build output to its static resource",
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		ctx := cmd.Context()
		org, err := app.resolveOrg(ctx, args, false)
		if err != nil {
			return err
		}

		pages, err := app.store.PagesForOrg(org.ID)
		if err != nil {
			return err
		}
		page, err := app.prompts.PageSelection(pages, false)
		if err != nil {
			return err
		}

		_, err = app.deployer.Deploy(ctx, org, page)
		return err
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)
}
