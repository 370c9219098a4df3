// Package prompt is the interactive question service. Orchestrators depend
// on the Prompter interface; the CLI implementation renders huh forms.
package prompt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/simplevf/svf/internal/models"
)

// Credentials is one round of login answers.
type Credentials struct {
	LoginURL      models.LoginURL
	Username      string
	Password      string
	SecurityToken string
}

// Prompter asks the user typed questions. Every blocking question the CLI
// can ask lives here so orchestrators stay scriptable in tests.
type Prompter interface {
	// OrgSelection picks a stored org; returns nil when the user chose
	// "other".
	OrgSelection(orgs []models.Org, allowOther bool) (*models.Org, error)
	OrgName() (string, error)
	// Credentials prompts for login fields, pre-filling defaults from a
	// stored org. The password is never pre-filled.
	Credentials(def *models.Org) (Credentials, error)
	SecurityToken(message string) (string, error)
	// PageSelection picks a stored page; returns nil when the user chose
	// to create a new one.
	PageSelection(pages []models.Page, allowNew bool) (*models.Page, error)
	PageName(def string) (string, error)
	PageDetails(name string) (models.PageConfig, error)
	BuildSystem(names []string) (string, error)
	// StopTunnel blocks while a development session is active and returns
	// the user's free-text stop answer.
	StopTunnel() (string, error)
	ConfirmClear() (bool, error)
	// Retry asks whether to run another round after a recoverable failure.
	Retry(message string) (bool, error)
}

// ValidateNonEmpty rejects blank answers
func ValidateNonEmpty(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must contain a value", field)
		}
		return nil
	}
}

// ValidatePort rejects answers that are not a positive port number
func ValidatePort(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return fmt.Errorf("port must be a whole number")
	}
	if n <= 0 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}

// CLI implements Prompter with interactive huh forms.
type CLI struct{}

var _ Prompter = (*CLI)(nil)

// NewCLI returns the interactive prompter.
func NewCLI() *CLI {
	return &CLI{}
}

func runInput(title, def string, validate func(string) error) (string, error) {
	value := def
	input := huh.NewInput().Title(title).Value(&value)
	if validate != nil {
		input = input.Validate(validate)
	}
	if err := huh.NewForm(huh.NewGroup(input)).Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(value), nil
}

// OrgSelection picks one of the stored orgs, with an optional "other"
// choice that returns nil.
func (c *CLI) OrgSelection(orgs []models.Org, allowOther bool) (*models.Org, error) {
	options := make([]huh.Option[string], 0, len(orgs)+1)
	for _, org := range orgs {
		options = append(options, huh.NewOption(fmt.Sprintf("%s (%s)", org.Name, org.Username), org.ID))
	}
	if allowOther {
		options = append(options, huh.NewOption("other", ""))
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("no orgs have been authenticated yet, run `svf auth` first")
	}

	var choice string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title("Choose an org:").Options(options...).Value(&choice),
	)).Run()
	if err != nil {
		return nil, err
	}
	if choice == "" {
		return nil, nil
	}
	for i := range orgs {
		if orgs[i].ID == choice {
			return &orgs[i], nil
		}
	}
	return nil, nil
}

func (c *CLI) OrgName() (string, error) {
	return runInput("Enter a name to use for this org:", "", ValidateNonEmpty("org name"))
}

func (c *CLI) Credentials(def *models.Org) (Credentials, error) {
	if def == nil {
		def = &models.Org{}
	}

	loginURL := string(def.LoginURL)
	if loginURL == "" {
		loginURL = string(models.LoginURLSandbox)
	}
	username := def.Username
	securityToken := def.SecurityToken
	var password string

	form := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("Please select the type of org:").
			Options(
				huh.NewOption("sandbox", string(models.LoginURLSandbox)),
				huh.NewOption("production", string(models.LoginURLProduction)),
			).
			Value(&loginURL),
		huh.NewInput().
			Title("Username:").
			Value(&username).
			Validate(ValidateNonEmpty("username")),
		huh.NewInput().
			Title("Password:").
			EchoMode(huh.EchoModePassword).
			Value(&password).
			Validate(ValidateNonEmpty("password")),
		huh.NewInput().
			Title("Security token (leave blank if not required):").
			Value(&securityToken),
	))
	if err := form.Run(); err != nil {
		return Credentials{}, err
	}

	return Credentials{
		LoginURL:      models.LoginURL(loginURL),
		Username:      strings.TrimSpace(username),
		Password:      password,
		SecurityToken: strings.TrimSpace(securityToken),
	}, nil
}

func (c *CLI) SecurityToken(message string) (string, error) {
	return runInput(message, "", nil)
}

func (c *CLI) PageSelection(pages []models.Page, allowNew bool) (*models.Page, error) {
	options := make([]huh.Option[string], 0, len(pages)+1)
	for _, page := range pages {
		options = append(options, huh.NewOption(page.Name, page.ID))
	}
	if allowNew {
		options = append(options, huh.NewOption("create new page", ""))
	}
	if len(options) == 0 {
		return nil, fmt.Errorf("no pages exist for this org yet, run `svf new` first")
	}

	var choice string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title("Choose a page:").Options(options...).Value(&choice),
	)).Run()
	if err != nil {
		return nil, err
	}
	if choice == "" {
		return nil, nil
	}
	for i := range pages {
		if pages[i].ID == choice {
			return &pages[i], nil
		}
	}
	return nil, nil
}

func (c *CLI) PageName(def string) (string, error) {
	return runInput("Enter a name for this page:", def, ValidateNonEmpty("page name"))
}

func (c *CLI) PageDetails(name string) (models.PageConfig, error) {
	pageName := name
	var port, outputDir string

	form := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Page name:").
			Value(&pageName).
			Validate(ValidateNonEmpty("page name")),
		huh.NewInput().
			Title("Local dev server port:").
			Value(&port).
			Validate(ValidatePort),
		huh.NewInput().
			Title("Build output directory (absolute path):").
			Value(&outputDir).
			Validate(ValidateNonEmpty("output directory")),
	))
	if err := form.Run(); err != nil {
		return models.PageConfig{}, err
	}

	portNum, _ := strconv.Atoi(strings.TrimSpace(port))
	return models.PageConfig{
		Name:      strings.TrimSpace(pageName),
		Port:      portNum,
		OutputDir: strings.TrimSpace(outputDir),
	}, nil
}

func (c *CLI) BuildSystem(names []string) (string, error) {
	options := make([]huh.Option[string], 0, len(names))
	for _, name := range names {
		options = append(options, huh.NewOption(name, name))
	}

	var choice string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().Title("Which build system are you using?").Options(options...).Value(&choice),
	)).Run()
	return choice, err
}

func (c *CLI) StopTunnel() (string, error) {
	var answer string
	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Hit 'enter' to stop development mode, or type 'deploy' and hit 'enter' to stop and immediately deploy your app:").
			Value(&answer),
	)).Run()
	return strings.TrimSpace(answer), err
}

func (c *CLI) ConfirmClear() (bool, error) {
	confirmed := false
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title("Delete all org and page entries?").
			Value(&confirmed),
	)).Run()
	return confirmed, err
}

func (c *CLI) Retry(message string) (bool, error) {
	retry := true
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().Title(message).Value(&retry),
	)).Run()
	return retry, err
}
