package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/simplevf/svf/internal/db"
	"github.com/simplevf/svf/internal/models"
	"github.com/simplevf/svf/internal/prompt"
	"github.com/simplevf/svf/internal/sfdc"
	"github.com/simplevf/svf/internal/vault"
	"go.uber.org/zap"
)

// Guard revalidates an org's remote session before calls that depend on
// one. An expired session is repaired transparently: re-login with the
// vaulted password, persist the fresh token, rebind the client.
type Guard struct {
	store   *db.Store
	vault   vault.Vault
	prompts prompt.Prompter
	log     *zap.SugaredLogger
}

// NewGuard wires a session validity guard.
func NewGuard(store *db.Store, v vault.Vault, prompts prompt.Prompter, logger *zap.SugaredLogger) *Guard {
	return &Guard{store: store, vault: v, prompts: prompts, log: logger}
}

// EnsureValidSession probes the session bound to client and returns the
// (possibly refreshed) org. Errors other than an expired session propagate
// untouched.
func (g *Guard) EnsureValidSession(ctx context.Context, client sfdc.Client, org *models.Org) (*models.Org, error) {
	err := client.Identity(ctx)
	if err == nil {
		return org, nil
	}
	if !errors.Is(err, sfdc.ErrSessionExpired) {
		return nil, err
	}

	g.log.Debugw("session expired, re-authenticating", "org", org.ID)

	securityToken := org.SecurityToken
	if securityToken == "" {
		securityToken, err = g.prompts.SecurityToken("No security token set for this org, you may enter it now:")
		if err != nil {
			return nil, err
		}
	}

	password, err := g.vault.Get(org.ID)
	if err != nil {
		return nil, fmt.Errorf("no stored password for org %q, run `svf auth %s`: %w", org.Name, org.Name, err)
	}

	result, err := client.Login(ctx, org.LoginURL, org.Username, password+securityToken)
	if err != nil {
		return nil, err
	}

	// Refresh the stored record; token and instance URL move together.
	fresh, err := g.store.GetOrgWithDefault(org.ID, org)
	if err != nil {
		return nil, err
	}
	fresh.AccessToken = result.AccessToken
	fresh.InstanceURL = result.InstanceURL
	fresh.SecurityToken = securityToken
	if err := g.store.UpsertOrg(fresh); err != nil {
		return nil, err
	}

	client.SetSession(result.AccessToken, result.InstanceURL)
	return fresh, nil
}
