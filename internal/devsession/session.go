// Package devsession runs the live development loop: tunnel up, remote
// development mode on, file watcher forwarding changes to the build-system
// plugin, then an orderly teardown when the user stops the session.
package devsession

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/simplevf/svf/internal/auth"
	"github.com/simplevf/svf/internal/db"
	"github.com/simplevf/svf/internal/deploy"
	"github.com/simplevf/svf/internal/models"
	"github.com/simplevf/svf/internal/plugin"
	"github.com/simplevf/svf/internal/prompt"
	"github.com/simplevf/svf/internal/provision"
	"github.com/simplevf/svf/internal/sfdc"
	"github.com/simplevf/svf/internal/status"
	"github.com/simplevf/svf/internal/tunnel"
	"github.com/simplevf/svf/internal/watcher"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// State is the session lifecycle phase.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateActive
	StateStopping
)

// Manager owns one development session at a time.
type Manager struct {
	store       *db.Store
	guard       *auth.Guard
	clients     sfdc.Factory
	provisioner *provision.Provisioner
	deployer    *deploy.Coordinator
	tunnel      tunnel.Tunnel
	prompts     prompt.Prompter
	status      *status.Reporter
	log         *zap.SugaredLogger

	mu    sync.Mutex
	state State
}

// NewManager wires a session manager.
func NewManager(
	store *db.Store,
	guard *auth.Guard,
	clients sfdc.Factory,
	provisioner *provision.Provisioner,
	deployer *deploy.Coordinator,
	tun tunnel.Tunnel,
	prompts prompt.Prompter,
	reporter *status.Reporter,
	logger *zap.SugaredLogger,
) *Manager {
	return &Manager{
		store:       store,
		guard:       guard,
		clients:     clients,
		provisioner: provisioner,
		deployer:    deployer,
		tunnel:      tun,
		prompts:     prompts,
		status:      reporter,
		log:         logger,
	}
}

// State returns the current lifecycle phase.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) transition(from, to State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != from {
		return fmt.Errorf("session is busy (state %d)", m.state)
	}
	m.state = to
	return nil
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
}

// Run executes a full development session for page and blocks until the
// user stops it. Startup failures tear down whatever already started and
// return the error; teardown failures after an active session are reported
// as warnings, never as errors.
func (m *Manager) Run(ctx context.Context, org *models.Org, page *models.Page, plug plugin.Plugin) error {
	if err := m.transition(StateIdle, StateStarting); err != nil {
		return err
	}
	defer m.setState(StateIdle)

	if err := plug.PrepareForDevelopment(ctx, org, page); err != nil {
		return err
	}

	// The output directory may not exist before the first build; the
	// watcher needs it present.
	if err := os.MkdirAll(page.OutputDir, 0o755); err != nil {
		return err
	}

	w, err := watcher.Watch(m.log, page.OutputDir, func(path string) {
		if err := plug.OnFileChange(org, page, path); err != nil {
			m.log.Warnw("file change handler failed", "path", path, "err", err)
		}
	})
	if err != nil {
		return err
	}
	defer w.Close()

	m.status.Start("Starting tunnel on port %s...", status.Accent(fmt.Sprint(page.Port)))

	// The tunnel spawn and the custom-setting check are independent; run
	// them together and fail fast if either breaks.
	var tunnelURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		url, err := m.tunnel.Connect(gctx, page.Port)
		if err != nil {
			return err
		}
		tunnelURL = url
		return nil
	})
	g.Go(func() error {
		return m.provisioner.ProcessCustomSettings(gctx, org)
	})
	if err := g.Wait(); err != nil {
		if derr := m.tunnel.Disconnect(); derr != nil {
			m.log.Warnw("tunnel disconnect during failed startup", "err", derr)
		}
		return err
	}

	// The custom-setting check may have refreshed the session; work with
	// the stored record from here on.
	org, err = m.store.GetOrgWithDefault(org.ID, org)
	if err != nil {
		if derr := m.tunnel.Disconnect(); derr != nil {
			m.log.Warnw("tunnel disconnect during failed startup", "err", derr)
		}
		return err
	}

	client := m.clients(org)
	org, err = m.guard.EnsureValidSession(ctx, client, org)
	if err == nil {
		err = m.setDevelopmentMode(ctx, client, org, page, true, tunnelURL)
	}
	if err != nil {
		if derr := m.tunnel.Disconnect(); derr != nil {
			m.log.Warnw("tunnel disconnect during failed startup", "err", derr)
		}
		return err
	}

	m.setState(StateActive)
	m.status.Success("Development mode active: %s -> localhost:%d", status.Accent(tunnelURL), page.Port)

	answer, err := m.prompts.StopTunnel()
	if err != nil {
		m.log.Warnw("stop prompt failed, stopping session", "err", err)
	}
	deployAfter := strings.EqualFold(strings.TrimSpace(answer), "deploy")

	m.setState(StateStopping)
	m.status.Start("Stopping development mode...")

	m.teardown(ctx, org, page, deployAfter)
	return nil
}

// teardown closes the tunnel, turns remote development mode off and runs
// the optional deploy, all concurrently. Each step fails open: a failure
// becomes a warning and never blocks the others.
func (m *Manager) teardown(ctx context.Context, org *models.Org, page *models.Page, deployAfter bool) {
	var (
		wg       sync.WaitGroup
		warnMu   sync.Mutex
		warnings []string
	)
	warn := func(format string, args ...interface{}) {
		warnMu.Lock()
		warnings = append(warnings, fmt.Sprintf(format, args...))
		warnMu.Unlock()
	}

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := m.tunnel.Disconnect(); err != nil {
			warn("closing the tunnel failed: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		client := m.clients(org)
		fresh, err := m.guard.EnsureValidSession(ctx, client, org)
		if err == nil {
			err = m.setDevelopmentMode(ctx, client, fresh, page, false, "")
		}
		if err != nil {
			warn("turning development mode off failed, the page may still point at the dead tunnel: %v", err)
		}
	}()
	if deployAfter {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.deployer.Deploy(ctx, org, page); err != nil {
				warn("deploy after stop failed: %v", err)
			}
		}()
	}
	wg.Wait()

	for _, w := range warnings {
		m.status.Warn("%s", w)
	}
	m.status.Success("Development mode stopped.")
}

// setDevelopmentMode flips the page-level and user-level custom setting
// records, creating whichever record does not exist yet. The tunnel URL is
// only written when enabling. A save the org rejects (Success false) is
// reported and skipped; only transport errors come back as errors.
func (m *Manager) setDevelopmentMode(ctx context.Context, client sfdc.Client, org *models.Org, page *models.Page, enabled bool, tunnelURL string) error {
	action := "disable"
	if enabled {
		action = "enable"
	}

	pageFields := map[string]interface{}{"DevelopmentMode__c": enabled}
	if enabled {
		pageFields["TunnelUrl__c"] = tunnelURL
	}
	err := m.upsertSetting(ctx, client, provision.PageSettingsObject,
		fmt.Sprintf("Select Id From %s Where Name = '%s'", provision.PageSettingsObject, page.Name),
		map[string]interface{}{"Name": page.Name},
		pageFields,
		fmt.Sprintf("Failed to %s development mode for page %s.", action, status.Accent(page.Name)),
	)
	if err != nil {
		return err
	}

	return m.upsertSetting(ctx, client, provision.UserSettingsObject,
		fmt.Sprintf("Select Id From %s Where SetupOwnerId = '%s'", provision.UserSettingsObject, org.UserID),
		map[string]interface{}{"SetupOwnerId": org.UserID},
		map[string]interface{}{"DevelopmentMode__c": enabled},
		fmt.Sprintf("Failed to %s development mode for your user.", action),
	)
}

// upsertSetting updates the custom-setting record found by soql, or creates
// it with the key fields when the query comes back empty. A non-success
// save result warns with failMsg and moves on; re-toggling later repairs
// the record.
func (m *Manager) upsertSetting(ctx context.Context, client sfdc.Client, objectType, soql string, keys, fields map[string]interface{}, failMsg string) error {
	result, err := client.Query(ctx, soql)
	if err != nil {
		return err
	}

	var save *sfdc.SaveResult
	if result.TotalSize > 0 {
		id, _ := result.Records[0]["Id"].(string)
		payload := make(map[string]interface{}, len(fields)+1)
		for k, v := range fields {
			payload[k] = v
		}
		payload["Id"] = id
		save, err = client.Update(ctx, objectType, payload, false)
	} else {
		payload := make(map[string]interface{}, len(fields)+len(keys))
		for k, v := range keys {
			payload[k] = v
		}
		for k, v := range fields {
			payload[k] = v
		}
		save, err = client.Create(ctx, objectType, payload, false)
	}
	if err != nil {
		return err
	}
	if !save.Success {
		m.log.Warnw("setting save rejected", "object", objectType)
		m.status.Warn("%s", failMsg)
	}
	return nil
}
