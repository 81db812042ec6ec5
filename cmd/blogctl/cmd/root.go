package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"

	"github.com/pterm/pterm"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"

	"github.com/terraconstructs/blogdesk/cmd/blogctl/cmd/auth"
	"github.com/terraconstructs/blogdesk/cmd/blogctl/cmd/mockapi"
	"github.com/terraconstructs/blogdesk/cmd/blogctl/cmd/nav"
	"github.com/terraconstructs/blogdesk/cmd/blogctl/cmd/profile"
	credstore "github.com/terraconstructs/blogdesk/cmd/blogctl/internal/auth"
	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/client"
	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/config"
	"github.com/terraconstructs/blogdesk/cmd/blogctl/internal/notify"
	"github.com/terraconstructs/blogdesk/pkg/env"
)

// skipConfigAnnotation marks commands that run without API configuration.
const skipConfigAnnotation = "blogctl/skip-config"

var (
	apiURL         string
	nonInteractive bool
	debug          bool
	bearerToken    string
	bearerUserID   string
)

var rootCmd = &cobra.Command{
	Use:   "blogctl",
	Short: "blogctl - blog platform client",
	Long: `blogctl is the command-line client for the blog platform. Use it to log in,
view and edit your profile, and browse the navigation your role grants.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if os.Getenv("BLOGDESK_NON_INTERACTIVE") == "1" {
			nonInteractive = true
		}

		ctx := setupLogging(cmd.Context())
		ctx = slogctx.With(ctx, "command", cmd.CommandPath())

		if cmd.Annotations[skipConfigAnnotation] == "true" {
			cmd.SetContext(ctx)
			return nil
		}

		cfg, err := resolveEnvironment()
		if err != nil {
			return oops.In("config").
				Hint("set API_BASE_URL or pass --api-url").
				Wrapf(err, "resolving environment")
		}

		store, err := credstore.NewFileStore()
		if err != nil {
			return oops.In("config").Wrapf(err, "opening credential store")
		}

		provider := client.NewProvider(cfg, store)
		if bearerToken != "" {
			provider.SetBearerToken(bearerToken, bearerUserID)
		}

		slogctx.Debug(ctx, "environment resolved", "api_base_url", cfg.APIBaseURL, "request_timeout", cfg.RequestTimeout)

		cmd.SetContext(config.InjectConfig(ctx, &config.GlobalConfig{
			Env:            cfg,
			NonInteractive: nonInteractive,
			ClientProvider: provider,
		}))
		return nil
	},
}

func resolveEnvironment() (*env.Environment, error) {
	if apiURL == "" {
		return env.Resolve()
	}
	return env.Load(func(key string) (string, bool) {
		if key == env.KeyAPIBaseURL {
			return apiURL, true
		}
		return os.LookupEnv(key)
	})
}

func setupLogging(ctx context.Context) context.Context {
	level := slog.LevelWarn
	if debug {
		level = slog.LevelDebug
	}
	handler := slogctx.NewHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}), nil)
	logger := slog.New(handler)
	slog.SetDefault(logger)
	if debug {
		pterm.EnableDebugMessages()
	}
	return slogctx.NewCtx(ctx, logger)
}

// Execute runs the root command
func Execute() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		slogctx.Debug(ctx, "command failed", "error", err)
		printError(err)
		cancel()
		os.Exit(1)
	}
}

// printError shows a command failure unless a notifier already did.
func printError(err error) {
	if notify.IsReported(err) {
		return
	}
	pterm.Error.Println(err)
	if oerr, ok := oops.AsOops(err); ok && oerr.Hint() != "" {
		pterm.Info.Println(oerr.Hint())
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Blog API base URL (overrides API_BASE_URL)")
	rootCmd.PersistentFlags().BoolVar(&nonInteractive, "non-interactive", false, "Disable interactive prompts (also set via BLOGDESK_NON_INTERACTIVE=1)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&bearerToken, "token", "", "Ephemeral bearer token (bypasses stored credentials)")
	rootCmd.PersistentFlags().StringVar(&bearerUserID, "user-id", os.Getenv("BLOGDESK_USER_ID"), "User id for --token sessions")

	mockapi.Cmd.Annotations = map[string]string{skipConfigAnnotation: "true"}

	rootCmd.AddCommand(auth.AuthCmd)
	rootCmd.AddCommand(profile.ProfileCmd)
	rootCmd.AddCommand(nav.NavCmd)
	rootCmd.AddCommand(mockapi.Cmd)
}
