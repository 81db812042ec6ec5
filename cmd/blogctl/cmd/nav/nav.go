package nav

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/pterm/pterm/putils"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/client"
	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/config"
	"github.com/terraconstructs/blogdesk/pkg/fetch"
	"github.com/terraconstructs/blogdesk/pkg/nav"
)

var sectionTitles = []struct {
	section nav.Section
	title   string
}{
	{nav.SectionBase, "General"},
	{nav.SectionContent, "Content"},
	{nav.SectionAdmin, "Administration"},
	{nav.SectionCategories, "Categories"},
}

// NavCmd renders the navigation menu available to the current session.
var NavCmd = &cobra.Command{
	Use:   "nav",
	Short: "Show the navigation menu for your role",
	Long: `Renders the menu the current session may see: the home entry, content
entries when logged in, administration entries for admins, and one entry per
blog category in the order the server returns them.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		provider := config.MustFromContext(ctx).ClientProvider
		errb := oops.In("nav")

		_, store, err := provider.Authenticated(ctx)
		if err != nil && !errors.Is(err, client.ErrNotLoggedIn) {
			return errb.Wrap(err)
		}

		sdkClient, err := provider.SDKClient(ctx)
		if err != nil {
			return errb.Wrap(err)
		}

		sidebar := nav.NewSidebar(ctx, sdkClient, store)
		defer sidebar.Close()

		menu, err := sidebar.Wait(ctx)
		if err != nil {
			return errb.Wrap(err)
		}
		if st := sidebar.Categories(); st.Status == fetch.StatusError {
			pterm.Warning.Printf("Categories unavailable: %s\n", st.Err.Message)
		}

		if u, ok := store.Read().User(); ok {
			pterm.Info.Printf("Signed in as %s (%s)\n", u.Name, u.Role)
		} else {
			pterm.Info.Println("Not signed in")
		}

		return pterm.DefaultTree.WithRoot(putils.TreeFromLeveledList(leveled(menu))).Render()
	},
}

func leveled(menu nav.Menu) pterm.LeveledList {
	var list pterm.LeveledList
	for _, s := range sectionTitles {
		items := menu.Section(s.section)
		if len(items) == 0 {
			continue
		}
		list = append(list, pterm.LeveledListItem{Level: 0, Text: s.title})
		for _, it := range items {
			list = append(list, pterm.LeveledListItem{Level: 1, Text: fmt.Sprintf("%s  %s", it.Label, pterm.Gray(it.Route))})
		}
	}
	return list
}
