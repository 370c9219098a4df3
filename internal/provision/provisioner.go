// Package provision creates the remote scaffolding a page needs: the two
// development-mode custom settings, the page's controller and test classes,
// a placeholder static resource and the ApexPage itself. Creation is
// sequential; a mid-sequence failure rolls back everything created so far
// so a re-run starts clean.
package provision

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/simplevf/svf/internal/auth"
	"github.com/simplevf/svf/internal/models"
	"github.com/simplevf/svf/internal/plugin"
	"github.com/simplevf/svf/internal/sfdc"
	"github.com/simplevf/svf/internal/status"
	"go.uber.org/zap"
)

// Cleanup order of provisioned resources. Deletes run ascending so the
// page goes first (it references the controller and resource) and the
// controller last (its test class references it).
const (
	orderPage           = 1
	orderStaticResource = 2
	orderTestClass      = 3
	orderController     = 4
)

// Provisioner ensures a page and its supporting resources exist remotely.
type Provisioner struct {
	guard   *auth.Guard
	clients sfdc.Factory
	status  *status.Reporter
	log     *zap.SugaredLogger
}

// NewProvisioner wires a resource provisioner.
func NewProvisioner(guard *auth.Guard, clients sfdc.Factory, reporter *status.Reporter, logger *zap.SugaredLogger) *Provisioner {
	return &Provisioner{guard: guard, clients: clients, status: reporter, log: logger}
}

// EnsurePageDeployed makes sure the remote ApexPage for page exists,
// creating it and its supporting resources when it does not. Returns the
// remote page id. Already-deployed pages short-circuit without touching
// the org.
func (p *Provisioner) EnsurePageDeployed(ctx context.Context, org *models.Org, page *models.Page, plug plugin.Plugin) (string, error) {
	client := p.clients(org)
	org, err := p.guard.EnsureValidSession(ctx, client, org)
	if err != nil {
		return "", err
	}

	p.status.Start("Checking if page %s exists...", status.Accent(page.Name))

	result, err := client.Query(ctx, fmt.Sprintf("Select Id From ApexPage Where Name = '%s'", page.Name))
	if err != nil {
		return "", err
	}
	if result.TotalSize > 0 {
		id, _ := result.Records[0]["Id"].(string)
		p.status.Success("Page %s already exists.", status.Accent(page.Name))
		return id, nil
	}

	if err := p.processCustomSettings(ctx, client); err != nil {
		return "", err
	}

	p.status.Start("Deploying new page %s...", status.Accent(page.Name))

	pageID, err := p.deployNewPage(ctx, client, page, plug)
	if err != nil {
		p.status.Fail("Deploying page %s failed.", status.Accent(page.Name))
		return "", err
	}

	p.status.Success("Deployed page %s.", status.Accent(page.Name))
	return pageID, nil
}

// ProcessCustomSettings validates the session and creates whichever of the
// two development-mode custom settings the org is missing.
func (p *Provisioner) ProcessCustomSettings(ctx context.Context, org *models.Org) error {
	client := p.clients(org)
	if _, err := p.guard.EnsureValidSession(ctx, client, org); err != nil {
		return err
	}
	return p.processCustomSettings(ctx, client)
}

func (p *Provisioner) processCustomSettings(ctx context.Context, client sfdc.Client) error {
	var missing []sfdc.CustomObject

	for _, setting := range []struct {
		object string
		build  func() sfdc.CustomObject
	}{
		{PageSettingsObject, SimpleVFPages},
		{UserSettingsObject, SimpleVFUsers},
	} {
		err := client.Describe(ctx, setting.object)
		if err == nil {
			continue
		}
		if !errors.Is(err, sfdc.ErrNotFound) {
			return err
		}
		missing = append(missing, setting.build())
	}

	if len(missing) == 0 {
		return nil
	}

	p.status.Start("Creating %d missing custom setting(s)...", len(missing))
	if err := client.CreateMetadata(ctx, missing); err != nil {
		p.status.Fail("Creating custom settings failed.")
		return err
	}
	p.status.Success("Custom settings created.")
	return nil
}

func (p *Provisioner) deployNewPage(ctx context.Context, client sfdc.Client, page *models.Page, plug plugin.Plugin) (string, error) {
	var created []models.CreatedResource

	fail := func(original error) (string, error) {
		p.rollback(ctx, client, created)
		return "", original
	}

	controller := Controller(page.Name)
	res, err := p.create(ctx, client, "ApexClass", map[string]interface{}{
		"Name": controller.Name,
		"Body": controller.Body,
	}, false)
	if err != nil {
		return fail(err)
	}
	created = append(created, models.CreatedResource{Order: orderController, Type: "ApexClass", ID: res.ID})

	placeholder := models.StaticResourceOptions{
		Name:         page.Name,
		CacheControl: "Private",
		ContentType:  "text/plain",
		Body:         PlaceholderBody(),
	}
	res, err = p.create(ctx, client, "StaticResource", placeholder.Fields(), true)
	if err != nil {
		return fail(err)
	}
	page.StaticResourceID = res.ID
	created = append(created, models.CreatedResource{Order: orderStaticResource, Type: "StaticResource", ID: res.ID, Tooling: true})

	html, err := plug.HTMLMarkup(page)
	if err != nil {
		return fail(err)
	}
	res, err = p.create(ctx, client, "ApexPage", map[string]interface{}{
		"Name":        page.Name,
		"MasterLabel": page.Name,
		"Markup":      PageMarkup(page.Name, html),
	}, false)
	if err != nil {
		return fail(err)
	}
	pageID := res.ID
	created = append(created, models.CreatedResource{Order: orderPage, Type: "ApexPage", ID: res.ID})

	test := ControllerTest(page.Name)
	if _, err := p.create(ctx, client, "ApexClass", map[string]interface{}{
		"Name": test.Name,
		"Body": test.Body,
	}, false); err != nil {
		return fail(err)
	}

	return pageID, nil
}

// create wraps client.Create, rewriting duplicate-name rejections into a
// message that names the colliding resource.
func (p *Provisioner) create(ctx context.Context, client sfdc.Client, objectType string, fields map[string]interface{}, tooling bool) (*sfdc.SaveResult, error) {
	res, err := client.Create(ctx, objectType, fields, tooling)
	if err != nil {
		if errors.Is(err, sfdc.ErrDuplicateValue) {
			name, _ := fields["Name"].(string)
			return nil, fmt.Errorf("a %s named %q already exists in this org: %w", objectType, name, sfdc.ErrDuplicateValue)
		}
		return nil, err
	}
	if !res.Success {
		return nil, fmt.Errorf("creating %s %v did not succeed", objectType, fields["Name"])
	}
	return res, nil
}

// rollback deletes the partially provisioned resources, ascending by
// cleanup order. Delete failures are logged, never returned; the caller
// propagates the error that triggered the rollback.
func (p *Provisioner) rollback(ctx context.Context, client sfdc.Client, created []models.CreatedResource) {
	if len(created) == 0 {
		return
	}

	p.status.Warn("Rolling back %d partially created resource(s).", len(created))

	sort.Slice(created, func(i, j int) bool { return created[i].Order < created[j].Order })
	for _, resource := range created {
		if err := client.Delete(ctx, resource.Type, resource.ID, resource.Tooling); err != nil {
			p.log.Warnw("rollback delete failed", "type", resource.Type, "id", resource.ID, "err", err)
		}
	}
}
