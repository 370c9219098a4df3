package cmd

import (
	"github.com/spf13/cobra"
)

var authCmd = &cobra.Command{
	Use:     "auth [org]",
	Aliases: []string{"a"},
	Short:   "Authenticate a Salesforce org",
	Long: `Prompts for credentials and logs into the org, storing the session for
later commands. The org name is a local alias; omit it to pick from the
stored orgs or add a new one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		orgName := ""
		if len(args) > 0 {
			orgName = args[0]
		}

		_, err = app.auth.Authenticate(cmd.Context(), orgName)
		return err
	},
}

func init() {
	rootCmd.AddCommand(authCmd)
}
