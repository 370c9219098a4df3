package sfdc

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/simplevf/svf/internal/models"
	"go.uber.org/zap"
)

const apiVersion = "43.0"

// RestClient implements Client against the live Salesforce endpoints.
type RestClient struct {
	httpClient  *http.Client
	log         *zap.SugaredLogger
	accessToken string
	instanceURL string
}

var _ Client = (*RestClient)(nil)

// NewRestClient returns an unauthenticated client. Call Login or SetSession
// before any data API call.
func NewRestClient(logger *zap.SugaredLogger) *RestClient {
	return &RestClient{
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        logger,
	}
}

// NewRestClientForOrg returns a client bound to the org's stored session.
func NewRestClientForOrg(logger *zap.SugaredLogger, org *models.Org) *RestClient {
	c := NewRestClient(logger)
	c.SetSession(org.AccessToken, org.InstanceURL)
	return c
}

// SetSession rebinds the client to a session token + instance pair.
func (c *RestClient) SetSession(accessToken, instanceURL string) {
	c.accessToken = accessToken
	c.instanceURL = strings.TrimSuffix(instanceURL, "/")
}

// --- SOAP login ---

type soapLoginResponse struct {
	Body struct {
		Fault *struct {
			FaultCode   string `xml:"faultcode"`
			FaultString string `xml:"faultstring"`
		} `xml:"Fault"`
		LoginResponse *struct {
			Result struct {
				ServerURL string `xml:"serverUrl"`
				SessionID string `xml:"sessionId"`
				UserID    string `xml:"userId"`
				UserInfo  struct {
					OrganizationID string `xml:"organizationId"`
				} `xml:"userInfo"`
			} `xml:"result"`
		} `xml:"loginResponse"`
	} `xml:"Body"`
}

// Login performs the SOAP username/password login. The password argument is
// the login password with the security token already appended.
func (c *RestClient) Login(ctx context.Context, loginURL models.LoginURL, username, password string) (*LoginResult, error) {
	endpoint := fmt.Sprintf("%s/services/Soap/u/%s", loginURL, apiVersion)

	var envelope bytes.Buffer
	envelope.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	envelope.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:urn="urn:partner.soap.sforce.com">`)
	envelope.WriteString(`<soapenv:Body><urn:login>`)
	envelope.WriteString("<urn:username>")
	xml.EscapeText(&envelope, []byte(username))
	envelope.WriteString("</urn:username><urn:password>")
	xml.EscapeText(&envelope, []byte(password))
	envelope.WriteString("</urn:password></urn:login></soapenv:Body></soapenv:Envelope>")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &envelope)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "login")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read login response: %w", err)
	}

	var parsed soapLoginResponse
	if err := xml.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("parse login response: %w", err)
	}

	if fault := parsed.Body.Fault; fault != nil {
		code := fault.FaultCode
		if i := strings.LastIndex(code, ":"); i >= 0 {
			code = code[i+1:]
		}
		c.log.Debugw("login fault", "code", code)
		return nil, classify(code, fault.FaultString)
	}
	if parsed.Body.LoginResponse == nil {
		return nil, fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	result := parsed.Body.LoginResponse.Result
	serverURL, err := url.Parse(result.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	instanceURL := fmt.Sprintf("%s://%s", serverURL.Scheme, serverURL.Host)

	c.SetSession(result.SessionID, instanceURL)
	c.log.Debugw("login succeeded", "instanceUrl", instanceURL, "userId", result.UserID)

	return &LoginResult{
		AccessToken: result.SessionID,
		InstanceURL: instanceURL,
		UserID:      result.UserID,
		OrgID:       result.UserInfo.OrganizationID,
	}, nil
}

// --- REST data + tooling APIs ---

func (c *RestClient) restURL(tooling bool, parts ...string) string {
	base := fmt.Sprintf("%s/services/data/v%s", c.instanceURL, apiVersion)
	if tooling {
		base += "/tooling"
	}
	if len(parts) == 0 {
		return base + "/"
	}
	return base + "/" + strings.Join(parts, "/")
}

// do issues an authenticated request and decodes a successful JSON response
// into out (when non-nil). Salesforce error bodies are classified.
func (c *RestClient) do(ctx context.Context, method, rawURL string, payload interface{}, out interface{}) error {
	if c.accessToken == "" || c.instanceURL == "" {
		return fmt.Errorf("%w: client has no session", ErrSessionExpired)
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	c.log.Debugw("api call", "method", method, "url", rawURL, "status", resp.StatusCode)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(data) == 0 {
			return nil
		}
		return json.Unmarshal(data, out)
	}

	var apiErrors []apiError
	if err := json.Unmarshal(data, &apiErrors); err == nil && len(apiErrors) > 0 {
		return classify(apiErrors[0].ErrorCode, apiErrors[0].Message)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, rawURL)
	}
	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("%w: status 401", ErrSessionExpired)
	}
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
}

// Identity probes the data API root; a stale token surfaces as
// ErrSessionExpired.
func (c *RestClient) Identity(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, c.restURL(false), nil, nil)
}

// Query runs a SOQL query
func (c *RestClient) Query(ctx context.Context, soql string) (*QueryResult, error) {
	u := c.restURL(false, "query") + "?q=" + url.QueryEscape(soql)
	var result QueryResult
	if err := c.do(ctx, http.MethodGet, u, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Create inserts a record of objectType
func (c *RestClient) Create(ctx context.Context, objectType string, fields map[string]interface{}, tooling bool) (*SaveResult, error) {
	var result SaveResult
	if err := c.do(ctx, http.MethodPost, c.restURL(tooling, "sobjects", objectType), fields, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Update patches the record identified by the Id key in fields
func (c *RestClient) Update(ctx context.Context, objectType string, fields map[string]interface{}, tooling bool) (*SaveResult, error) {
	id, _ := fields["Id"].(string)
	if id == "" {
		return nil, fmt.Errorf("update %s: missing Id", objectType)
	}

	payload := make(map[string]interface{}, len(fields)-1)
	for k, v := range fields {
		if k != "Id" {
			payload[k] = v
		}
	}

	// A successful PATCH returns 204 with an empty body.
	if err := c.do(ctx, http.MethodPatch, c.restURL(tooling, "sobjects", objectType, id), payload, nil); err != nil {
		return nil, err
	}
	return &SaveResult{ID: id, Success: true}, nil
}

// Delete removes a record
func (c *RestClient) Delete(ctx context.Context, objectType, id string, tooling bool) error {
	return c.do(ctx, http.MethodDelete, c.restURL(tooling, "sobjects", objectType, id), nil, nil)
}

// Describe checks that an object type exists in the org
func (c *RestClient) Describe(ctx context.Context, objectType string) error {
	return c.do(ctx, http.MethodGet, c.restURL(false, "sobjects", objectType, "describe"), nil, nil)
}

// CreateMetadata creates custom objects through the metadata SOAP API.
func (c *RestClient) CreateMetadata(ctx context.Context, objects []CustomObject) error {
	if c.accessToken == "" || c.instanceURL == "" {
		return fmt.Errorf("%w: client has no session", ErrSessionExpired)
	}

	var envelope bytes.Buffer
	envelope.WriteString(`<?xml version="1.0" encoding="utf-8"?>`)
	envelope.WriteString(`<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:met="http://soap.sforce.com/2006/04/metadata" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	envelope.WriteString(`<soapenv:Header><met:SessionHeader><met:sessionId>`)
	xml.EscapeText(&envelope, []byte(c.accessToken))
	envelope.WriteString(`</met:sessionId></met:SessionHeader></soapenv:Header>`)
	envelope.WriteString(`<soapenv:Body><met:createMetadata>`)

	for _, obj := range objects {
		inner, err := xml.Marshal(obj)
		if err != nil {
			return fmt.Errorf("marshal metadata for %s: %w", obj.FullName, err)
		}
		body := string(inner)
		body = strings.Replace(body, "<CustomObject>", `<met:metadata xsi:type="met:CustomObject">`, 1)
		body = strings.Replace(body, "</CustomObject>", "</met:metadata>", 1)
		envelope.WriteString(body)
	}

	envelope.WriteString(`</met:createMetadata></soapenv:Body></soapenv:Envelope>`)

	endpoint := fmt.Sprintf("%s/services/Soap/m/%s", c.instanceURL, apiVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &envelope)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", "createMetadata")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("create metadata: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		if strings.Contains(string(data), codeInvalidSession) {
			return fmt.Errorf("%w: metadata api", ErrSessionExpired)
		}
		return fmt.Errorf("create metadata failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	c.log.Debugw("metadata created", "count", len(objects))
	return nil
}
