package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/worknest/worknest-go/identity/identitytest"
	"github.com/worknest/worknest-go/users"
)

// newServeStubCmd runs the fake identity service for local development, so
// the CLI can be exercised without the real backend.
func newServeStubCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve-stub",
		Short: "Run a local stub identity service",
		RunE: func(_ *cobra.Command, _ []string) error {
			stub := identitytest.NewServer()
			admin := stub.AddUser("admin@worknest.local", "admin123", users.RoleAdmin)
			employee := stub.AddUser("employee@worknest.local", "employee123", users.RoleUser)

			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			mux.Handle("/", stub.Handler())

			server := &http.Server{Addr: addr, Handler: mux}

			displayAppname()
			fmt.Printf("Stub identity service listening on %s\n", addr)
			fmt.Printf("  %s / admin123\n", admin.Email)
			fmt.Printf("  %s / employee123\n", employee.Email)

			errCh := make(chan error, 1)
			go func() {
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- err
				}
			}()

			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
			select {
			case err := <-errCh:
				return err
			case <-stop:
			}

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server.Shutdown: %w", err)
			}
			a.logger.Info().Msg("stub identity service stopped")
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8081", "listen address")
	return cmd
}
