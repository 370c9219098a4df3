package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/simplevf/svf/internal/models"
	"github.com/spf13/cobra"
)

var (
	listOrgStyle  = lipgloss.NewStyle().Bold(true)
	listUserStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	listDirStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List stored orgs and their pages",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.close()

		return renderList(os.Stdout, app)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func renderList(w io.Writer, app *app) error {
	orgs, err := app.store.ListOrgs()
	if err != nil {
		return err
	}
	if len(orgs) == 0 {
		app.status.Info("No orgs stored yet, run `svf auth` first.")
		return nil
	}

	for _, org := range orgs {
		fmt.Fprintf(w, "%s %s\n", listOrgStyle.Render(org.Name), listUserStyle.Render("("+org.Username+")"))

		pages, err := app.store.PagesForOrg(org.ID)
		if err != nil {
			return err
		}
		if len(pages) == 0 {
			fmt.Fprintln(w, "    no pages")
			continue
		}

		width := pageNameWidth(pages)
		for _, page := range pages {
			fmt.Fprintf(w, "    %-*s  %s\n", width, page.Name, listDirStyle.Render(page.OutputDir))
		}
	}
	return nil
}

// pageNameWidth sizes the name column to the org's longest page name.
func pageNameWidth(pages []models.Page) int {
	width := 0
	for _, page := range pages {
		if len(page.Name) > width {
			width = len(page.Name)
		}
	}
	return width
}
