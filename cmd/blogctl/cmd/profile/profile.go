package profile

import (
	"context"

	"github.com/pterm/pterm"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/config"
	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/notify"
	"github.com/terraconstructs/blogdesk/pkg/fetch"
	"github.com/terraconstructs/blogdesk/pkg/profile"
	"github.com/terraconstructs/blogdesk/pkg/sdk"
)

// ProfileCmd is the parent command for profile operations
var ProfileCmd = &cobra.Command{
	Use:   "profile",
	Short: "View and edit your profile",
	Long:  `Commands for viewing and updating the profile of the logged-in user.`,
}

func init() {
	ProfileCmd.AddCommand(showCmd)
	ProfileCmd.AddCommand(editCmd)
}

// openWorkflow builds a workflow for the logged-in user and waits for the
// profile to load.
func openWorkflow(ctx context.Context) (*profile.Workflow, error) {
	cfg := config.MustFromContext(ctx)
	errb := oops.In("profile")

	user, store, err := cfg.ClientProvider.Authenticated(ctx)
	if err != nil {
		return nil, errb.Hint("run `blogctl auth login`").Wrap(err)
	}

	client, err := cfg.ClientProvider.SDKClient(ctx)
	if err != nil {
		return nil, errb.Wrap(err)
	}

	wf := profile.New(client, store, notify.Terminal{})
	wf.Load(ctx, user.ID)

	spinner, _ := pterm.DefaultSpinner.Start("Loading profile...")
	st, err := wf.WaitLoaded(ctx)
	if spinner != nil {
		spinner.Stop()
	}
	if err != nil {
		wf.Close()
		return nil, errb.Wrap(err)
	}
	if st.Status == fetch.StatusError {
		wf.Close()
		return nil, errb.Wrapf(st.Err, "loading profile")
	}
	if wf.Snapshot().Profile == nil {
		wf.Close()
		return nil, errb.Errorf("user %s could not be loaded", user.ID)
	}
	return wf, nil
}

func renderProfile(u sdk.UserProfile, avatar string) {
	if avatar == "" {
		avatar = "(none)"
	}
	pterm.DefaultTable.WithData(pterm.TableData{
		{"Field", "Value"},
		{"ID", u.ID},
		{"Name", u.Name},
		{"Email", u.Email},
		{"Bio", u.Bio},
		{"Avatar", avatar},
		{"Role", string(u.Role)},
	}).WithHasHeader().Render()
}
