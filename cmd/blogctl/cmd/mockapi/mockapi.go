package mockapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/pterm/pterm"
	"github.com/samber/oops"
	"github.com/spf13/cobra"
	slogctx "github.com/veqryn/slog-context"

	backend "github.com/terraconstructs/blogdesk/internal/mockapi"
)

var (
	listenAddr   string
	requireToken string
)

// Cmd serves the in-memory backend for local development.
var Cmd = &cobra.Command{
	Use:   "mock-api",
	Short: "Serve an in-memory blog API for local development",
	Long: `Starts an HTTP server implementing the category and user endpoints with
seeded data: a reader (u-reader), an admin (u-admin) and two categories.

Point the client at it with:
  API_BASE_URL=http://127.0.0.1:8080 blogctl --token dev --user-id u-admin nav`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		b := backend.Seed()
		if requireToken != "" {
			b.RequireToken(requireToken)
		}

		srv := &http.Server{
			Addr:              listenAddr,
			Handler:           middleware.Logger(b.Handler()),
			ReadHeaderTimeout: 5 * time.Second,
			BaseContext:       func(net.Listener) context.Context { return ctx },
		}

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.ListenAndServe()
		}()
		pterm.Success.Printf("Mock API listening on http://%s\n", listenAddr)

		select {
		case err := <-errCh:
			return oops.In("mock-api").Wrapf(err, "serving")
		case <-ctx.Done():
		}

		slogctx.Info(ctx, "shutting down mock api")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return oops.In("mock-api").Wrapf(err, "shutdown")
		}
		return nil
	},
}

func init() {
	Cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8080", "Address to listen on")
	Cmd.Flags().StringVar(&requireToken, "require-token", "", "Reject user endpoints without this bearer token")
}
