package models

// RecordType discriminates records in the store
type RecordType string

const (
	RecordTypeOrg        RecordType = "org"
	RecordTypePage       RecordType = "page"
	RecordTypeEncryption RecordType = "encryption"
)

// LoginURL is the Salesforce login endpoint for an org
type LoginURL string

const (
	LoginURLSandbox    LoginURL = "https://test.salesforce.com"
	LoginURLProduction LoginURL = "https://login.salesforce.com"
)

// Org represents one authenticated Salesforce connection.
// The login password is never stored on the record; it lives in the
// secret vault keyed by the org ID.
type Org struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	LoginURL      LoginURL `json:"login_url"`
	InstanceURL   string   `json:"instance_url,omitempty"`
	Username      string   `json:"username,omitempty"`
	SecurityToken string   `json:"security_token,omitempty"`
	UserID        string   `json:"user_id,omitempty"`
	OrgID         string   `json:"org_id,omitempty"`
	AccessToken   string   `json:"access_token,omitempty"`
}

// Authenticated reports whether the org holds a session token. AccessToken
// and InstanceURL are only valid together; both are refreshed atomically by
// the auth manager.
func (o *Org) Authenticated() bool {
	return o != nil && o.AccessToken != "" && o.InstanceURL != ""
}

// Page represents one locally built web app mapped to one remote
// Visualforce page.
type Page struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	OutputDir        string `json:"output_dir"`
	Port             int    `json:"port"`
	BelongsTo        string `json:"belongs_to"`
	PluginName       string `json:"plugin_name,omitempty"`
	SalesforceID     string `json:"salesforce_id,omitempty"`
	StaticResourceID string `json:"static_resource_id,omitempty"`
}

// PageConfig is a build-system plugin's answer for where a page lives
// locally.
type PageConfig struct {
	Name      string
	Port      int
	OutputDir string
}

// CreatedResource tracks one remote resource created during provisioning.
// Order is the cleanup order, not the creation order: compensating deletes
// run ascending by Order so dependent resources are removed first.
type CreatedResource struct {
	Order   int
	Type    string
	ID      string
	Tooling bool
}

// StaticResourceOptions is the payload for creating or updating a
// StaticResource through the tooling API.
type StaticResourceOptions struct {
	// ID must marshal PascalCased or the API rejects the update.
	ID           string `json:"Id,omitempty"`
	Name         string `json:"Name"`
	CacheControl string `json:"CacheControl"`
	ContentType  string `json:"ContentType"`
	Body         string `json:"Body"`
}

// Fields returns the options as the field map the API client sends. The ID
// is omitted when empty so creates and updates share one payload shape.
func (o StaticResourceOptions) Fields() map[string]interface{} {
	fields := map[string]interface{}{
		"Name":         o.Name,
		"CacheControl": o.CacheControl,
		"ContentType":  o.ContentType,
		"Body":         o.Body,
	}
	if o.ID != "" {
		fields["Id"] = o.ID
	}
	return fields
}
