package cmd

import (
	"context"
	"errors"

	"github.com/simplevf/svf/internal/db"
	"github.com/simplevf/svf/internal/models"
	"github.com/simplevf/svf/internal/plugin"
	"github.com/simplevf/svf/internal/status"
	"github.com/spf13/cobra"
)

var newCmd = &cobra.Command{
	Use:     "new [org]",
	Aliases: []string{"n"},
	Short:   "Create a new page in an org",
	Long: `Creates a page record locally and provisions its remote scaffolding:
the controller and test classes, a placeholder static resource and the
Visualforce page itself.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		org, err := app.resolveOrg(cmd.Context(), args, true)
		if err != nil {
			return err
		}

		_, _, err = createNewPage(cmd.Context(), app, org)
		return err
	},
}

func init() {
	rootCmd.AddCommand(newCmd)
}

// createNewPage runs the full new-page flow: pick a build system, collect
// the page config, persist the record and provision the remote resources.
// The local record is written before any remote call so a name collision
// surfaces without touching the org.
func createNewPage(ctx context.Context, app *app, org *models.Org) (*models.Page, plugin.Plugin, error) {
	pluginName, err := choosePlugin(app)
	if err != nil {
		return nil, nil, err
	}
	plug, err := app.registry.Get(pluginName)
	if err != nil {
		return nil, nil, err
	}

	pageConfig, err := plug.PageConfig(ctx, "")
	if err != nil {
		return nil, nil, err
	}

	page := &models.Page{
		Name:       pageConfig.Name,
		OutputDir:  pageConfig.OutputDir,
		Port:       pageConfig.Port,
		BelongsTo:  org.ID,
		PluginName: pluginName,
	}
	if err := app.store.UpsertPage(page); err != nil {
		if errors.Is(err, db.ErrPageExists) {
			app.status.Fail("A page named %s already exists for %s.", status.Accent(page.Name), status.Accent(org.Name))
		}
		return nil, nil, err
	}

	remoteID, err := app.provisioner.EnsurePageDeployed(ctx, org, page, plug)
	if err != nil {
		return nil, nil, err
	}

	// Provisioning filled in the remote ids; persist them.
	page.SalesforceID = remoteID
	if err := app.store.UpsertPage(page); err != nil {
		return nil, nil, err
	}

	app.status.Success("Page %s is ready.", status.Accent(page.Name))
	return page, plug, nil
}

// choosePlugin asks which build system to use, skipping the prompt when
// only the default is registered.
func choosePlugin(app *app) (string, error) {
	names := app.registry.Names()
	if len(names) <= 1 {
		return plugin.DefaultName, nil
	}
	return app.prompts.BuildSystem(names)
}
