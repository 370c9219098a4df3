package cmd

import (
	"context"

	"github.com/simplevf/svf/internal/models"
	"github.com/simplevf/svf/internal/plugin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:     "serve [org]",
	Aliases: []string{"s"},
	Short:   "Start a development session for a page",
	Long: `Opens a tunnel to your local dev server and switches the remote page
into development mode so it loads from the tunnel. Blocks until you stop
the session; type 'deploy' at the stop prompt to push the build output
before tearing down.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		ctx := cmd.Context()
		org, err := app.resolveOrg(ctx, args, true)
		if err != nil {
			return err
		}

		page, plug, err := selectOrCreatePage(ctx, app, org)
		if err != nil {
			return err
		}

		// A page record can outlive its remote counterpart; re-provision
		// before serving so the session has something to toggle.
		remoteID, err := app.provisioner.EnsurePageDeployed(ctx, org, page, plug)
		if err != nil {
			return err
		}
		if remoteID != page.SalesforceID {
			page.SalesforceID = remoteID
			if err := app.store.UpsertPage(page); err != nil {
				return err
			}
		}

		return app.sessions.Run(ctx, org, page, plug)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// selectOrCreatePage picks one of the org's pages, falling through to the
// new-page flow when none exist or the user asks for one.
func selectOrCreatePage(ctx context.Context, app *app, org *models.Org) (*models.Page, plugin.Plugin, error) {
	pages, err := app.store.PagesForOrg(org.ID)
	if err != nil {
		return nil, nil, err
	}

	if len(pages) == 0 {
		return createNewPage(ctx, app, org)
	}

	selected, err := app.prompts.PageSelection(pages, true)
	if err != nil {
		return nil, nil, err
	}
	if selected == nil {
		return createNewPage(ctx, app, org)
	}

	plug, err := app.registry.Get(selected.PluginName)
	if err != nil {
		return nil, nil, err
	}
	return selected, plug, nil
}
