// Package deploy packages a page's build output into a zip archive and
// pushes it to the page's static resource through the tooling API.
package deploy

import (
	"archive/zip"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/simplevf/svf/internal/auth"
	"github.com/simplevf/svf/internal/config"
	"github.com/simplevf/svf/internal/db"
	"github.com/simplevf/svf/internal/models"
	"github.com/simplevf/svf/internal/sfdc"
	"github.com/simplevf/svf/internal/status"
	"go.uber.org/zap"
)

// Coordinator zips a page's output directory and creates or updates its
// remote static resource.
type Coordinator struct {
	store   *db.Store
	guard   *auth.Guard
	clients sfdc.Factory
	cfg     *config.Config
	status  *status.Reporter
	log     *zap.SugaredLogger
}

// NewCoordinator wires a deploy coordinator.
func NewCoordinator(store *db.Store, guard *auth.Guard, clients sfdc.Factory, cfg *config.Config, reporter *status.Reporter, logger *zap.SugaredLogger) *Coordinator {
	return &Coordinator{store: store, guard: guard, clients: clients, cfg: cfg, status: reporter, log: logger}
}

// Deploy packages page's output directory and uploads it, returning the
// static resource id. The temp archive is removed whether or not the
// upload succeeds.
func (c *Coordinator) Deploy(ctx context.Context, org *models.Org, page *models.Page) (string, error) {
	client := c.clients(org)
	org, err := c.guard.EnsureValidSession(ctx, client, org)
	if err != nil {
		return "", err
	}

	c.status.Start("Deploying %s to %s...", status.Accent(page.Name), status.Accent(org.Name))

	tempDir, err := c.cfg.TempDir()
	if err != nil {
		return "", err
	}
	archive := filepath.Join(tempDir, page.Name+".zip")

	// zipDirectory creates the file before walking, so a failed walk can
	// leave a partial archive; clean up whether or not packaging succeeds.
	defer func() {
		if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
			c.log.Warnw("removing temp archive failed", "path", archive, "err", err)
		}
	}()

	if err := zipDirectory(page.OutputDir, archive); err != nil {
		c.status.Fail("Packaging %s failed.", status.Accent(page.OutputDir))
		return "", err
	}

	body, err := os.ReadFile(archive)
	if err != nil {
		return "", err
	}
	c.status.Update("Packaged %s (%d bytes).", status.Accent(page.OutputDir), len(body))

	resourceID, err := c.resolveResourceID(ctx, client, page)
	if err != nil {
		return "", err
	}

	options := models.StaticResourceOptions{
		ID:           resourceID,
		Name:         page.Name,
		CacheControl: "Private",
		ContentType:  "application/zip",
		Body:         base64.StdEncoding.EncodeToString(body),
	}

	var result *sfdc.SaveResult
	if resourceID == "" {
		result, err = client.Create(ctx, "StaticResource", options.Fields(), true)
	} else {
		result, err = client.Update(ctx, "StaticResource", options.Fields(), true)
	}
	if err != nil {
		c.status.Fail("Deploying %s failed.", status.Accent(page.Name))
		return "", err
	}
	if !result.Success {
		c.status.Fail("Deploying %s failed.", status.Accent(page.Name))
		return "", fmt.Errorf("static resource save for %q did not succeed", page.Name)
	}

	if result.ID != page.StaticResourceID {
		page.StaticResourceID = result.ID
		if err := c.store.UpsertPage(page); err != nil {
			return "", err
		}
	}

	c.status.Success("Deployed %s.", status.Accent(page.Name))
	return result.ID, nil
}

// resolveResourceID prefers the stored id and falls back to a name lookup,
// so resources created outside this tool (or lost records) still update in
// place instead of colliding on create.
func (c *Coordinator) resolveResourceID(ctx context.Context, client sfdc.Client, page *models.Page) (string, error) {
	if page.StaticResourceID != "" {
		return page.StaticResourceID, nil
	}

	result, err := client.Query(ctx, fmt.Sprintf("Select Id From StaticResource Where Name = '%s'", page.Name))
	if err != nil {
		return "", err
	}
	if result.TotalSize == 0 {
		return "", nil
	}
	id, _ := result.Records[0]["Id"].(string)
	return id, nil
}

// zipDirectory writes the contents of dir (paths relative to dir) into a
// zip archive at dest.
func zipDirectory(dir, dest string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("output directory %q is not readable, run your build first: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("output path %q is not a directory", dir)
	}

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := zip.NewWriter(out)
	err = filepath.WalkDir(dir, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		w, err := zw.Create(strings.ReplaceAll(rel, string(filepath.Separator), "/"))
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(w, f)
		return err
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
