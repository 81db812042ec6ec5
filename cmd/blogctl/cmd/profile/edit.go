package profile

import (
	"errors"
	"fmt"

	"github.com/pterm/pterm"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/config"
	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/notify"
	"github.com/terraconstructs/blogdesk/pkg/profile"
)

var (
	editName   string
	editEmail  string
	editBio    string
	editAvatar string
)

var editCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit your profile",
	Long: `Updates your name, email, bio and optionally your avatar.

Fields given as flags are applied directly. Without flags, and unless
--non-interactive is set, each field is prompted for with its current value
as the default. Invalid fields are re-prompted until they pass.

An avatar is uploaded only when --avatar is given; otherwise the current
avatar is kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg := config.MustFromContext(ctx)
		errb := oops.In("profile")

		wf, err := openWorkflow(ctx)
		if err != nil {
			return err
		}
		defer wf.Close()

		draft := wf.Snapshot().Draft
		flags := cmd.Flags()
		anyFlag := false
		if flags.Changed("name") {
			draft.Name, anyFlag = editName, true
		}
		if flags.Changed("email") {
			draft.Email, anyFlag = editEmail, true
		}
		if flags.Changed("bio") {
			draft.Bio, anyFlag = editBio, true
		}
		if flags.Changed("avatar") {
			anyFlag = true
		}

		interactive := !cfg.NonInteractive && !anyFlag
		if interactive {
			draft, err = promptDraft(draft, nil)
			if err != nil {
				return errb.Wrap(err)
			}
		}

		if err := wf.Edit(draft); err != nil {
			return errb.Wrap(err)
		}

		if editAvatar != "" {
			upload, err := profile.LoadUpload(editAvatar)
			if err != nil {
				return errb.Wrap(err)
			}
			if err := wf.SelectImage(upload); err != nil {
				return errb.Wrapf(err, "selecting avatar")
			}
			pterm.Info.Printf("Avatar preview: %s\n", wf.DisplayedAvatar())
		}

		for {
			resp, err := wf.Submit(ctx)

			var verr *profile.ValidationError
			if errors.As(err, &verr) {
				for _, fe := range verr.Errors {
					pterm.Error.Printf("%s: %s\n", fe.Field, fe.Message)
				}
				if !interactive {
					return errb.Wrap(verr)
				}
				draft, err = promptDraft(wf.Snapshot().Draft, verr)
				if err != nil {
					return errb.Wrap(err)
				}
				if err := wf.Edit(draft); err != nil {
					return errb.Wrap(err)
				}
				continue
			}
			if err != nil {
				wrapped := errb.Wrapf(err, "profile update failed")
				if wf.Snapshot().Phase == profile.PhaseFailed {
					return notify.Reported(wrapped)
				}
				return wrapped
			}

			pterm.DefaultSection.Println("Updated profile")
			renderProfile(resp.User, wf.DisplayedAvatar())
			wf.Acknowledge()
			return nil
		}
	},
}

// promptDraft asks for every field, or only the failing ones when verr is set.
func promptDraft(d profile.Draft, verr *profile.ValidationError) (profile.Draft, error) {
	fields := []struct {
		key   string
		label string
		value *string
	}{
		{"name", "Name", &d.Name},
		{"email", "Email", &d.Email},
		{"bio", "Bio", &d.Bio},
	}

	for _, f := range fields {
		if verr != nil {
			if _, failed := verr.Field(f.key); !failed {
				continue
			}
		}
		v, err := pterm.DefaultInteractiveTextInput.WithDefaultValue(*f.value).Show(f.label)
		if err != nil {
			return d, fmt.Errorf("failed to show interactive prompt: %w", err)
		}
		*f.value = v
	}

	return d, nil
}

func init() {
	editCmd.Flags().StringVar(&editName, "name", "", "New display name (min 3 characters)")
	editCmd.Flags().StringVar(&editEmail, "email", "", "New email address")
	editCmd.Flags().StringVar(&editBio, "bio", "", "New bio (min 3 characters)")
	editCmd.Flags().StringVar(&editAvatar, "avatar", "", "Path to a replacement avatar image")
}
