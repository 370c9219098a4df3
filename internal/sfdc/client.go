// Package sfdc talks to the Salesforce APIs: SOAP login, the REST data API,
// the tooling sub-API required for static resources, and metadata creation
// for the custom-setting schema objects.
package sfdc

import (
	"context"

	"github.com/simplevf/svf/internal/models"
)

// LoginResult is the session material returned by a successful login.
// AccessToken and InstanceURL are only valid together.
type LoginResult struct {
	AccessToken string
	InstanceURL string
	UserID      string
	OrgID       string
}

// QueryResult holds SOQL query results
type QueryResult struct {
	TotalSize int                      `json:"totalSize"`
	Records   []map[string]interface{} `json:"records"`
}

// SaveResult is the outcome of a create or update call
type SaveResult struct {
	ID      string `json:"id"`
	Success bool   `json:"success"`
}

// Client is the remote platform contract the orchestration core depends
// on. The tooling flag routes a call through the tooling sub-API.
type Client interface {
	Login(ctx context.Context, loginURL models.LoginURL, username, password string) (*LoginResult, error)
	// SetSession rebinds the client to a session; used after login and by
	// the session guard after a transparent refresh.
	SetSession(accessToken, instanceURL string)
	// Identity probes whether the current session is alive.
	Identity(ctx context.Context) error
	Query(ctx context.Context, soql string) (*QueryResult, error)
	Create(ctx context.Context, objectType string, fields map[string]interface{}, tooling bool) (*SaveResult, error)
	Update(ctx context.Context, objectType string, fields map[string]interface{}, tooling bool) (*SaveResult, error)
	Delete(ctx context.Context, objectType, id string, tooling bool) error
	// Describe returns ErrNotFound when the object type does not exist in
	// the org.
	Describe(ctx context.Context, objectType string) error
	CreateMetadata(ctx context.Context, objects []CustomObject) error
}

// Factory builds a client bound to an org's current session.
type Factory func(org *models.Org) Client
