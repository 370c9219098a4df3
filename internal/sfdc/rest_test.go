package sfdc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/simplevf/svf/internal/models"
	"go.uber.org/zap"
)

func newTestClient() *RestClient {
	return NewRestClient(zap.NewNop().Sugar())
}

const loginSuccessBody = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/">
  <soapenv:Body>
    <loginResponse>
      <result>
        <serverUrl>https://na1.salesforce.com/services/Soap/u/43.0/00Dxx</serverUrl>
        <sessionId>session-token</sessionId>
        <userId>005xx0000012345</userId>
        <userInfo>
          <organizationId>00Dxx0000000001</organizationId>
        </userInfo>
      </result>
    </loginResponse>
  </soapenv:Body>
</soapenv:Envelope>`

const loginFaultBody = `<?xml version="1.0" encoding="UTF-8"?>
<soapenv:Envelope xmlns:soapenv="http://schemas.xmlsoap.org/soap/envelope/" xmlns:sf="urn:fault.partner.soap.sforce.com">
  <soapenv:Body>
    <soapenv:Fault>
      <faultcode>sf:INVALID_LOGIN</faultcode>
      <faultstring>INVALID_LOGIN: Invalid username, password, security token; or user locked out.</faultstring>
    </soapenv:Fault>
  </soapenv:Body>
</soapenv:Envelope>`

func TestLoginParsesSession(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		w.Header().Set("Content-Type", "text/xml")
		fmt.Fprint(w, loginSuccessBody)
	}))
	defer server.Close()

	c := newTestClient()
	result, err := c.Login(context.Background(), models.LoginURL(server.URL), "user@example.com", "pw<tok>")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}

	if result.AccessToken != "session-token" {
		t.Errorf("AccessToken = %q", result.AccessToken)
	}
	if result.InstanceURL != "https://na1.salesforce.com" {
		t.Errorf("InstanceURL = %q", result.InstanceURL)
	}
	if result.UserID != "005xx0000012345" || result.OrgID != "00Dxx0000000001" {
		t.Errorf("identity = %s / %s", result.UserID, result.OrgID)
	}

	// Credentials must be XML-escaped on the wire.
	if !strings.Contains(gotBody, "pw&lt;tok&gt;") {
		t.Errorf("password not escaped in envelope: %s", gotBody)
	}

	// A successful login binds the session to the client.
	if c.accessToken != "session-token" {
		t.Errorf("client token = %q", c.accessToken)
	}
}

func TestLoginClassifiesInvalidCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/xml")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, loginFaultBody)
	}))
	defer server.Close()

	c := newTestClient()
	_, err := c.Login(context.Background(), models.LoginURL(server.URL), "user@example.com", "wrong")
	if !errors.Is(err, ErrInvalidLogin) {
		t.Fatalf("expected ErrInvalidLogin, got %v", err)
	}
}

func TestQueryEscapesAndDecodes(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("q"); got != "Select Id From ApexPage Where Name = 'My Page'" {
			t.Errorf("soql = %q", got)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("auth header = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"totalSize": 1,
			"records":   []map[string]interface{}{{"Id": "066xx0000000001"}},
		})
	}))
	defer server.Close()

	c := newTestClient()
	c.SetSession("tok", server.URL)

	result, err := c.Query(context.Background(), "Select Id From ApexPage Where Name = 'My Page'")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if result.TotalSize != 1 || result.Records[0]["Id"] != "066xx0000000001" {
		t.Errorf("result = %+v", result)
	}
}

func TestDoClassifiesAPIErrors(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   error
	}{
		{"expired session", 401, `[{"message":"Session expired or invalid","errorCode":"INVALID_SESSION_ID"}]`, ErrSessionExpired},
		{"duplicate value", 400, `[{"message":"duplicate value found","errorCode":"DUPLICATE_VALUE"}]`, ErrDuplicateValue},
		{"plain 404", 404, `not json`, ErrNotFound},
		{"plain 401", 401, `not json`, ErrSessionExpired},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				fmt.Fprint(w, tc.body)
			}))
			defer server.Close()

			c := newTestClient()
			c.SetSession("tok", server.URL)

			err := c.Identity(context.Background())
			if !errors.Is(err, tc.want) {
				t.Fatalf("got %v, want %v", err, tc.want)
			}
		})
	}
}

func TestCallsWithoutSessionFailAsExpired(t *testing.T) {
	c := newTestClient()
	if err := c.Identity(context.Background()); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("got %v", err)
	}
}

func TestCreateRoutesThroughTooling(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/data/v43.0/tooling/sobjects/StaticResource" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["Name"] != "MyPage" {
			t.Errorf("payload = %+v", payload)
		}
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"id":"res-1","success":true}`)
	}))
	defer server.Close()

	c := newTestClient()
	c.SetSession("tok", server.URL)

	result, err := c.Create(context.Background(), "StaticResource", map[string]interface{}{"Name": "MyPage"}, true)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if result.ID != "res-1" || !result.Success {
		t.Errorf("result = %+v", result)
	}
}

func TestUpdatePatchesWithoutIDInBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch {
			t.Errorf("method = %s", r.Method)
		}
		if !strings.HasSuffix(r.URL.Path, "/sobjects/StaticResource/res-9") {
			t.Errorf("path = %s", r.URL.Path)
		}
		var payload map[string]interface{}
		json.NewDecoder(r.Body).Decode(&payload)
		if _, present := payload["Id"]; present {
			t.Error("Id must not be sent in the PATCH body")
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	c := newTestClient()
	c.SetSession("tok", server.URL)

	result, err := c.Update(context.Background(), "StaticResource", map[string]interface{}{"Id": "res-9", "Body": "abc"}, true)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if result.ID != "res-9" || !result.Success {
		t.Errorf("result = %+v", result)
	}
}

func TestCreateMetadataEnvelope(t *testing.T) {
	var gotBody, gotAction string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/services/Soap/m/43.0" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAction = r.Header.Get("SOAPAction")
		data, _ := io.ReadAll(r.Body)
		gotBody = string(data)
		fmt.Fprint(w, `<ok/>`)
	}))
	defer server.Close()

	c := newTestClient()
	c.SetSession("tok", server.URL)

	objects := []CustomObject{{
		FullName:           "Simple_VF_Pages__c",
		CustomSettingsType: "List",
		Label:              "Simple VF Pages",
		Visibility:         "Protected",
	}}
	if err := c.CreateMetadata(context.Background(), objects); err != nil {
		t.Fatalf("CreateMetadata: %v", err)
	}

	if gotAction != "createMetadata" {
		t.Errorf("SOAPAction = %q", gotAction)
	}
	for _, want := range []string{
		"<met:sessionId>tok</met:sessionId>",
		`<met:metadata xsi:type="met:CustomObject">`,
		"<fullName>Simple_VF_Pages__c</fullName>",
	} {
		if !strings.Contains(gotBody, want) {
			t.Errorf("envelope missing %q:\n%s", want, gotBody)
		}
	}
}
