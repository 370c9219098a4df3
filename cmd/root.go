// Package cmd wires the CLI commands to the orchestration core.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/simplevf/svf/internal/auth"
	"github.com/simplevf/svf/internal/config"
	"github.com/simplevf/svf/internal/db"
	"github.com/simplevf/svf/internal/deploy"
	"github.com/simplevf/svf/internal/devsession"
	applog "github.com/simplevf/svf/internal/log"
	"github.com/simplevf/svf/internal/models"
	"github.com/simplevf/svf/internal/plugin"
	"github.com/simplevf/svf/internal/prompt"
	"github.com/simplevf/svf/internal/provision"
	"github.com/simplevf/svf/internal/sfdc"
	"github.com/simplevf/svf/internal/status"
	"github.com/simplevf/svf/internal/tunnel"
	"github.com/simplevf/svf/internal/vault"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	version string
	debug   bool
)

// SetVersion sets the version string
func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "svf",
	Short: "Live development for Salesforce Visualforce pages",
	Long: `svf - develop Visualforce pages against a local dev server.

Authenticate an org, provision a page, then serve it through a tunnel so
the remote page loads your local build while you work. Deploy packages the
build output into the page's static resource when you are done.`,
}

// Execute runs the root command
func Execute() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// app holds the wired components every command works through.
type app struct {
	cfg         *config.Config
	store       *db.Store
	vault       vault.Vault
	log         *zap.SugaredLogger
	status      *status.Reporter
	prompts     prompt.Prompter
	clients     sfdc.Factory
	registry    *plugin.Registry
	auth        *auth.Manager
	guard       *auth.Guard
	provisioner *provision.Provisioner
	deployer    *deploy.Coordinator
	sessions    *devsession.Manager
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := applog.New(debug)

	store, err := db.Open(cfg.SettingsDir)
	if err != nil {
		return nil, err
	}

	master, err := store.EncryptionKey()
	if err != nil {
		store.Close()
		return nil, err
	}
	fileVault := vault.NewFileVault(cfg.VaultDir(), master)

	reporter := status.New()
	prompts := prompt.NewCLI()

	clients := sfdc.Factory(func(org *models.Org) sfdc.Client {
		if org == nil {
			return sfdc.NewRestClient(logger)
		}
		return sfdc.NewRestClientForOrg(logger, org)
	})

	registry := plugin.NewRegistry()
	registry.Register(plugin.DefaultName, plugin.NewDefault(prompts))

	guard := auth.NewGuard(store, fileVault, prompts, logger)
	provisioner := provision.NewProvisioner(guard, clients, reporter, logger)
	deployer := deploy.NewCoordinator(store, guard, clients, cfg, reporter, logger)
	tun := tunnel.NewNgrok(logger, cfg.NgrokBin, cfg.NgrokAPI)

	return &app{
		cfg:         cfg,
		store:       store,
		vault:       fileVault,
		log:         logger,
		status:      reporter,
		prompts:     prompts,
		clients:     clients,
		registry:    registry,
		auth:        auth.NewManager(store, fileVault, clients, prompts, reporter, logger),
		guard:       guard,
		provisioner: provisioner,
		deployer:    deployer,
		sessions:    devsession.NewManager(store, guard, clients, provisioner, deployer, tun, prompts, reporter, logger),
	}, nil
}

func (a *app) close() {
	a.log.Sync()
	if err := a.store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "closing record store: %v\n", err)
	}
}

// resolveOrg picks the org a command operates on: the named one when an
// argument was given, otherwise a stored-org prompt. With allowNew the
// prompt offers "other", which runs the full auth flow for a new alias;
// without it only already-authenticated orgs qualify. Either way the
// result holds a live session.
func (a *app) resolveOrg(ctx context.Context, args []string, allowNew bool) (*models.Org, error) {
	if len(args) > 0 {
		return a.auth.EnsureAuthenticated(ctx, args[0])
	}

	orgs, err := a.store.ListOrgs()
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 && allowNew {
		return a.auth.Authenticate(ctx, "")
	}

	selected, err := a.prompts.OrgSelection(orgs, allowNew)
	if err != nil {
		return nil, err
	}
	if selected == nil {
		name, err := a.prompts.OrgName()
		if err != nil {
			return nil, err
		}
		return a.auth.Authenticate(ctx, name)
	}
	return a.auth.EnsureAuthenticated(ctx, selected.Name)
}
