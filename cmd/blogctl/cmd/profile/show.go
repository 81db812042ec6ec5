package profile

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show your profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		wf, err := openWorkflow(cmd.Context())
		if err != nil {
			return err
		}
		defer wf.Close()

		snap := wf.Snapshot()
		pterm.DefaultSection.Println("Profile")
		renderProfile(*snap.Profile, snap.Avatar)
		return nil
	},
}
