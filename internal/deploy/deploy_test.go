package deploy

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/simplevf/svf/internal/auth"
	"github.com/simplevf/svf/internal/config"
	"github.com/simplevf/svf/internal/db"
	"github.com/simplevf/svf/internal/models"
	"github.com/simplevf/svf/internal/sfdc"
	"github.com/simplevf/svf/internal/status"
	"go.uber.org/zap"
)

type savedCall struct {
	objectType string
	tooling    bool
	fields     map[string]interface{}
}

type fakeClient struct {
	queryResult *sfdc.QueryResult
	createID    string
	createErr   error

	queries []string
	creates []savedCall
	updates []savedCall
}

var _ sfdc.Client = (*fakeClient)(nil)

func (f *fakeClient) Login(ctx context.Context, loginURL models.LoginURL, username, password string) (*sfdc.LoginResult, error) {
	return nil, errors.New("login not scripted")
}

func (f *fakeClient) SetSession(accessToken, instanceURL string) {}

func (f *fakeClient) Identity(ctx context.Context) error { return nil }

func (f *fakeClient) Query(ctx context.Context, soql string) (*sfdc.QueryResult, error) {
	f.queries = append(f.queries, soql)
	if f.queryResult != nil {
		return f.queryResult, nil
	}
	return &sfdc.QueryResult{}, nil
}

func (f *fakeClient) Create(ctx context.Context, objectType string, fields map[string]interface{}, tooling bool) (*sfdc.SaveResult, error) {
	f.creates = append(f.creates, savedCall{objectType: objectType, tooling: tooling, fields: fields})
	if f.createErr != nil {
		return nil, f.createErr
	}
	id := f.createID
	if id == "" {
		id = "res-new"
	}
	return &sfdc.SaveResult{ID: id, Success: true}, nil
}

func (f *fakeClient) Update(ctx context.Context, objectType string, fields map[string]interface{}, tooling bool) (*sfdc.SaveResult, error) {
	f.updates = append(f.updates, savedCall{objectType: objectType, tooling: tooling, fields: fields})
	id, _ := fields["Id"].(string)
	return &sfdc.SaveResult{ID: id, Success: true}, nil
}

func (f *fakeClient) Delete(ctx context.Context, objectType, id string, tooling bool) error {
	return errors.New("delete not scripted")
}

func (f *fakeClient) Describe(ctx context.Context, objectType string) error { return nil }

func (f *fakeClient) CreateMetadata(ctx context.Context, objects []sfdc.CustomObject) error {
	return errors.New("metadata not scripted")
}

type deployFixture struct {
	store  *db.Store
	cfg    *config.Config
	client *fakeClient
	coord  *Coordinator
	page   *models.Page
	org    *models.Org
}

func newDeployFixture(t *testing.T) *deployFixture {
	t.Helper()

	store, err := db.Open(t.TempDir())
	if err != nil {
		t.Fatalf("db.Open: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	outputDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(outputDir, "app.js"), []byte("console.log('hi')"), 0o644); err != nil {
		t.Fatalf("write build output: %v", err)
	}

	page := &models.Page{Name: "MyPage", BelongsTo: "dev", OutputDir: outputDir, Port: 8080}
	if err := store.UpsertPage(page); err != nil {
		t.Fatalf("UpsertPage: %v", err)
	}

	logger := zap.NewNop().Sugar()
	client := &fakeClient{}
	factory := sfdc.Factory(func(org *models.Org) sfdc.Client { return client })
	cfg := &config.Config{SettingsDir: t.TempDir()}
	guard := auth.NewGuard(store, nil, nil, logger)

	return &deployFixture{
		store:  store,
		cfg:    cfg,
		client: client,
		coord:  NewCoordinator(store, guard, factory, cfg, status.NewWriter(io.Discard), logger),
		page:   page,
		org:    &models.Org{ID: "dev", Name: "dev", AccessToken: "t", InstanceURL: "https://na1.salesforce.com"},
	}
}

func (f *deployFixture) tempArchives(t *testing.T) []string {
	t.Helper()
	entries, err := os.ReadDir(filepath.Join(f.cfg.SettingsDir, "temp"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		t.Fatalf("read temp dir: %v", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestDeployCreatesFreshResource(t *testing.T) {
	f := newDeployFixture(t)

	id, err := f.coord.Deploy(context.Background(), f.org, f.page)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if id != "res-new" {
		t.Errorf("id = %q", id)
	}

	if len(f.client.creates) != 1 || len(f.client.updates) != 0 {
		t.Fatalf("creates = %d, updates = %d", len(f.client.creates), len(f.client.updates))
	}
	call := f.client.creates[0]
	if call.objectType != "StaticResource" || !call.tooling {
		t.Errorf("create = %+v", call)
	}
	if call.fields["ContentType"] != "application/zip" || call.fields["CacheControl"] != "Private" {
		t.Errorf("fields = %+v", call.fields)
	}

	// The body is the base64 zip of the output directory.
	body, _ := call.fields["Body"].(string)
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		t.Fatalf("body is not base64: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		t.Fatalf("body is not a zip: %v", err)
	}
	if len(zr.File) != 1 || zr.File[0].Name != "app.js" {
		t.Errorf("archive contents = %+v", zr.File)
	}

	stored, err := f.store.GetPage(f.page.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetPage: %+v, %v", stored, err)
	}
	if stored.StaticResourceID != "res-new" {
		t.Errorf("stored StaticResourceID = %q", stored.StaticResourceID)
	}

	if archives := f.tempArchives(t); len(archives) != 0 {
		t.Errorf("temp archives left behind: %v", archives)
	}
}

func TestDeployUpdatesByStoredID(t *testing.T) {
	f := newDeployFixture(t)
	f.page.StaticResourceID = "res-9"

	id, err := f.coord.Deploy(context.Background(), f.org, f.page)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if id != "res-9" {
		t.Errorf("id = %q", id)
	}

	if len(f.client.queries) != 0 {
		t.Errorf("no name lookup expected with a stored id: %v", f.client.queries)
	}
	if len(f.client.updates) != 1 || f.client.updates[0].fields["Id"] != "res-9" {
		t.Errorf("updates = %+v", f.client.updates)
	}
	if len(f.client.creates) != 0 {
		t.Errorf("unexpected creates: %+v", f.client.creates)
	}
}

func TestDeployRecoversIDByName(t *testing.T) {
	f := newDeployFixture(t)
	f.client.queryResult = &sfdc.QueryResult{
		TotalSize: 1,
		Records:   []map[string]interface{}{{"Id": "res-5"}},
	}

	id, err := f.coord.Deploy(context.Background(), f.org, f.page)
	if err != nil {
		t.Fatalf("Deploy: %v", err)
	}
	if id != "res-5" {
		t.Errorf("id = %q", id)
	}
	if len(f.client.updates) != 1 {
		t.Fatalf("updates = %+v", f.client.updates)
	}

	stored, _ := f.store.GetPage(f.page.ID)
	if stored.StaticResourceID != "res-5" {
		t.Errorf("recovered id not persisted: %+v", stored)
	}
}

func TestDeployMissingOutputDir(t *testing.T) {
	f := newDeployFixture(t)
	f.page.OutputDir = filepath.Join(f.page.OutputDir, "does-not-exist")

	_, err := f.coord.Deploy(context.Background(), f.org, f.page)
	if err == nil {
		t.Fatal("expected an error for a missing output directory")
	}
	if len(f.client.creates)+len(f.client.updates) != 0 {
		t.Error("no remote calls expected when packaging fails")
	}
}

func TestDeployRemovesPartialArchiveWhenPackagingFails(t *testing.T) {
	f := newDeployFixture(t)

	// A dangling symlink makes the walk fail after the archive file has
	// been created.
	if err := os.Symlink(filepath.Join(f.page.OutputDir, "gone"), filepath.Join(f.page.OutputDir, "bad-link")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	_, err := f.coord.Deploy(context.Background(), f.org, f.page)
	if err == nil {
		t.Fatal("expected a packaging error")
	}
	if len(f.client.creates)+len(f.client.updates) != 0 {
		t.Error("no remote calls expected when packaging fails")
	}
	if archives := f.tempArchives(t); len(archives) != 0 {
		t.Errorf("partial archive left behind: %v", archives)
	}
}

func TestDeployRemovesArchiveOnFailure(t *testing.T) {
	f := newDeployFixture(t)
	f.client.createErr = errors.New("upload rejected")

	_, err := f.coord.Deploy(context.Background(), f.org, f.page)
	if err == nil {
		t.Fatal("expected the upload error")
	}
	if archives := f.tempArchives(t); len(archives) != 0 {
		t.Errorf("temp archives left behind after failure: %v", archives)
	}
}
