package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"todo_api/internal/logger"
	"todo_api/internal/spa"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

func defaultBackend() string {
	host := os.Getenv("TODO_BACKEND_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	port := os.Getenv("TODO_BACKEND_PORT")
	if port == "" {
		port = "8000"
	}
	return "http://" + net.JoinHostPort(host, port)
}

func newServeSPACmd() *cobra.Command {
	var (
		dir     string
		port    int
		backend string
	)
	cmd := &cobra.Command{
		Use:   "serve-spa",
		Short: "Serve the built web app and proxy /api to the todo service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := spa.New(dir, backend)
			if err != nil {
				return err
			}
			gin.SetMode(gin.ReleaseMode)

			srv := &http.Server{
				Addr:              net.JoinHostPort("127.0.0.1", strconv.Itoa(port)),
				Handler:           s.Router(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				fmt.Fprintf(cmd.OutOrStdout(), "serving %s on http://%s/ (api -> %s)\n", dir, srv.Addr, backend)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("shutting down spa server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "frontend/dist/todo-frontend/browser", "directory holding the built app")
	cmd.Flags().IntVar(&port, "port", 4200, "port to listen on (127.0.0.1)")
	cmd.Flags().StringVar(&backend, "backend", defaultBackend(), "todo service base URL")
	return cmd
}
