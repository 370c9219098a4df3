package auth

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/simplevf/svf/internal/models"
	"github.com/simplevf/svf/internal/sfdc"
	"go.uber.org/zap"
)

func expiredOrg() *models.Org {
	return &models.Org{
		ID:            "dev",
		Name:          "dev",
		LoginURL:      models.LoginURLSandbox,
		InstanceURL:   "https://old.salesforce.com",
		Username:      "user@example.com",
		SecurityToken: "tok",
		AccessToken:   "stale",
	}
}

func TestEnsureValidSessionPassesThroughLiveSession(t *testing.T) {
	store := openTestStore(t)
	client := &loginClient{}
	g := NewGuard(store, newMemVault(), &scriptPrompter{t: t}, zap.NewNop().Sugar())

	org := expiredOrg()
	got, err := g.EnsureValidSession(context.Background(), client, org)
	if err != nil {
		t.Fatalf("EnsureValidSession: %v", err)
	}
	if got != org {
		t.Error("live session should return the org untouched")
	}
	if len(client.calls) != 0 {
		t.Errorf("unexpected logins: %+v", client.calls)
	}
}

func TestEnsureValidSessionRepairsExpiredSession(t *testing.T) {
	store := openTestStore(t)
	org := expiredOrg()
	if err := store.UpsertOrg(org); err != nil {
		t.Fatalf("UpsertOrg: %v", err)
	}

	v := newMemVault()
	v.Save("dev", "pw")

	client := &loginClient{
		identityErr: fmt.Errorf("stale: %w", sfdc.ErrSessionExpired),
		result: &sfdc.LoginResult{
			AccessToken: "fresh-token",
			InstanceURL: "https://na2.salesforce.com",
		},
	}

	g := NewGuard(store, v, &scriptPrompter{t: t}, zap.NewNop().Sugar())
	fresh, err := g.EnsureValidSession(context.Background(), client, org)
	if err != nil {
		t.Fatalf("EnsureValidSession: %v", err)
	}

	if len(client.calls) != 1 || client.calls[0].password != "pwtok" {
		t.Errorf("login calls = %+v, want vaulted password plus token", client.calls)
	}
	if fresh.AccessToken != "fresh-token" || fresh.InstanceURL != "https://na2.salesforce.com" {
		t.Errorf("fresh org = %+v", fresh)
	}
	if client.session != [2]string{"fresh-token", "https://na2.salesforce.com"} {
		t.Errorf("client session = %v", client.session)
	}

	stored, err := store.GetOrg("dev")
	if err != nil || stored == nil {
		t.Fatalf("GetOrg: %+v, %v", stored, err)
	}
	if stored.AccessToken != "fresh-token" {
		t.Errorf("stored token = %q", stored.AccessToken)
	}
}

func TestEnsureValidSessionPromptsForMissingToken(t *testing.T) {
	store := openTestStore(t)
	org := expiredOrg()
	org.SecurityToken = ""
	if err := store.UpsertOrg(org); err != nil {
		t.Fatalf("UpsertOrg: %v", err)
	}

	v := newMemVault()
	v.Save("dev", "pw")

	client := &loginClient{
		identityErr: fmt.Errorf("stale: %w", sfdc.ErrSessionExpired),
		result:      &sfdc.LoginResult{AccessToken: "fresh", InstanceURL: "https://na2.salesforce.com"},
	}

	g := NewGuard(store, v, &scriptPrompter{t: t, securityToken: "prompted"}, zap.NewNop().Sugar())
	fresh, err := g.EnsureValidSession(context.Background(), client, org)
	if err != nil {
		t.Fatalf("EnsureValidSession: %v", err)
	}

	if client.calls[0].password != "pwprompted" {
		t.Errorf("login password = %q", client.calls[0].password)
	}
	if fresh.SecurityToken != "prompted" {
		t.Errorf("token not persisted on the org: %+v", fresh)
	}
}

func TestEnsureValidSessionPropagatesOtherErrors(t *testing.T) {
	boom := errors.New("org unreachable")
	client := &loginClient{identityErr: boom}
	g := NewGuard(openTestStore(t), newMemVault(), &scriptPrompter{t: t}, zap.NewNop().Sugar())

	_, err := g.EnsureValidSession(context.Background(), client, expiredOrg())
	if !errors.Is(err, boom) {
		t.Fatalf("expected probe error back, got %v", err)
	}
	if len(client.calls) != 0 {
		t.Errorf("no login should be attempted: %+v", client.calls)
	}
}

func TestEnsureValidSessionFailsWithoutVaultedPassword(t *testing.T) {
	client := &loginClient{identityErr: fmt.Errorf("stale: %w", sfdc.ErrSessionExpired)}
	g := NewGuard(openTestStore(t), newMemVault(), &scriptPrompter{t: t}, zap.NewNop().Sugar())

	_, err := g.EnsureValidSession(context.Background(), client, expiredOrg())
	if err == nil {
		t.Fatal("expected an error when no password is vaulted")
	}
	if len(client.calls) != 0 {
		t.Errorf("no login should be attempted without a password: %+v", client.calls)
	}
}
