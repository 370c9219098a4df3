// Package auth owns org authentication: the credential prompt/login/persist
// loop and the session validity guard that transparently repairs expired
// sessions.
package auth

import (
	"context"
	"errors"

	"github.com/simplevf/svf/internal/db"
	"github.com/simplevf/svf/internal/models"
	"github.com/simplevf/svf/internal/prompt"
	"github.com/simplevf/svf/internal/sfdc"
	"github.com/simplevf/svf/internal/status"
	"github.com/simplevf/svf/internal/vault"
	"go.uber.org/zap"
)

// Manager resolves an org name, prompts for credentials and logs in,
// persisting the resulting org record and its password.
type Manager struct {
	store   *db.Store
	vault   vault.Vault
	clients sfdc.Factory
	prompts prompt.Prompter
	status  *status.Reporter
	log     *zap.SugaredLogger
}

// NewManager wires an authentication manager.
func NewManager(store *db.Store, v vault.Vault, clients sfdc.Factory, prompts prompt.Prompter, reporter *status.Reporter, logger *zap.SugaredLogger) *Manager {
	return &Manager{
		store:   store,
		vault:   v,
		clients: clients,
		prompts: prompts,
		status:  reporter,
		log:     logger,
	}
}

// Authenticate logs the user into the named org and persists the result.
// An empty orgName prompts for a stored org or a new alias. Invalid
// credentials re-prompt (with everything except the bad field pre-filled)
// for as long as the user chooses to keep trying; any other failure is
// fatal.
func (m *Manager) Authenticate(ctx context.Context, orgName string) (*models.Org, error) {
	orgName, err := m.resolveOrgName(orgName)
	if err != nil {
		return nil, err
	}

	// Stored credentials become prompt defaults. Never the password.
	defaults, err := m.store.GetOrg(orgName)
	if err != nil {
		return nil, err
	}

	for {
		creds, err := m.prompts.Credentials(defaults)
		if err != nil {
			return nil, err
		}

		m.status.Start("Authenticating to %s...", status.Accent(orgName))

		client := m.clients(nil)
		result, err := client.Login(ctx, creds.LoginURL, creds.Username, creds.Password+creds.SecurityToken)
		if err == nil {
			org := &models.Org{
				ID:            orgName,
				Name:          orgName,
				LoginURL:      creds.LoginURL,
				InstanceURL:   result.InstanceURL,
				Username:      creds.Username,
				SecurityToken: creds.SecurityToken,
				UserID:        result.UserID,
				OrgID:         result.OrgID,
				AccessToken:   result.AccessToken,
			}
			if err := m.store.UpsertOrg(org); err != nil {
				return nil, err
			}
			if err := m.vault.Save(org.ID, creds.Password); err != nil {
				return nil, err
			}
			m.status.Success("Successfully authenticated: %s", status.Accent(result.InstanceURL))
			return org, nil
		}

		if !errors.Is(err, sfdc.ErrInvalidLogin) {
			m.status.Fail("Authentication to %s failed.", status.Accent(orgName))
			return nil, err
		}

		m.log.Debugw("login rejected", "org", orgName, "err", err)
		m.status.Fail("%v", err)

		retry, perr := m.prompts.Retry("Try again with corrected credentials?")
		if perr != nil {
			return nil, perr
		}
		if !retry {
			return nil, err
		}

		// Next round pre-fills everything the user already got right.
		defaults = &models.Org{
			ID:            orgName,
			Name:          orgName,
			LoginURL:      creds.LoginURL,
			Username:      creds.Username,
			SecurityToken: creds.SecurityToken,
		}
	}
}

// EnsureAuthenticated returns the stored org, authenticating first when the
// alias is unknown or holds no session.
func (m *Manager) EnsureAuthenticated(ctx context.Context, orgName string) (*models.Org, error) {
	org, err := m.store.GetOrg(orgName)
	if err != nil {
		return nil, err
	}
	if org != nil && org.Authenticated() {
		return org, nil
	}
	return m.Authenticate(ctx, orgName)
}

func (m *Manager) resolveOrgName(orgName string) (string, error) {
	if orgName != "" {
		return orgName, nil
	}

	orgs, err := m.store.ListOrgs()
	if err != nil {
		return "", err
	}
	if len(orgs) > 0 {
		selected, err := m.prompts.OrgSelection(orgs, true)
		if err != nil {
			return "", err
		}
		if selected != nil {
			return selected.Name, nil
		}
	}

	return m.prompts.OrgName()
}
