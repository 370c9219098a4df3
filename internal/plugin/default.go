package plugin

import (
	"context"
	"fmt"

	"github.com/simplevf/svf/internal/models"
	"github.com/simplevf/svf/internal/prompt"
)

// DefaultName is the built-in plugin's registry key.
const DefaultName = "default"

// Default is the built-in build-system adapter: it asks the user for the
// page config and renders a starter html shell that switches between the
// tunnel URL and the packaged static resource.
type Default struct {
	prompts prompt.Prompter
}

var _ Plugin = (*Default)(nil)

// NewDefault returns the built-in plugin.
func NewDefault(prompts prompt.Prompter) *Default {
	return &Default{prompts: prompts}
}

func (d *Default) PageConfig(ctx context.Context, pageName string) (models.PageConfig, error) {
	return d.prompts.PageDetails(pageName)
}

func (d *Default) HTMLMarkup(page *models.Page) (string, error) {
	return fmt.Sprintf(`
		<html>
			<head>

				<title>%[1]s</title>

				<meta name="viewport" content="width=device-width, initial-scale=1" />

				<!--UNCOMMENT THIS LINE AFTER UPDATING THE PATH TO YOUR STATIC RESOURCE STYLESHEET-->
				<!--<link href="{!URLFOR(IF(IsUnderDevelopment, SimpleVfPageConfig.TunnelUrl__c, $Resource.%[1]s)) + '/path/to/your/stylesheet.css'}" rel="stylesheet" />-->

			</head>
			<body>

				<!--UNCOMMENT THIS LINE AFTER UPDATING THE PATH TO YOUR STATIC RESOURCE SCRIPT-->
				<!--<script src="{!URLFOR(IF(IsUnderDevelopment, SimpleVfPageConfig.TunnelUrl__c, $Resource.%[1]s)) + '/path/to/your/script.js'}"></script>-->

			</body>
		</html>
	`, page.Name), nil
}

func (d *Default) OnFileChange(org *models.Org, page *models.Page, path string) error {
	return nil
}

func (d *Default) PrepareForDevelopment(ctx context.Context, org *models.Org, page *models.Page) error {
	return nil
}
