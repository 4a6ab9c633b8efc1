package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"reposync/internal/app/server/api"
)

var (
	runAddress    string
	pruneInterval time.Duration
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Запустить операторский HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.RunAddress
		if runAddress != "" {
			addr = runAddress
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		srv := &http.Server{
			Addr:              addr,
			Handler:           api.New(application, log),
			ReadHeaderTimeout: 10 * time.Second,
		}

		if pruneInterval > 0 {
			go prune(ctx, pruneInterval)
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("server started", "address", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("ошибка HTTP сервера: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}

// prune периодически удаляет просроченные операции очереди повторов
func prune(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := application.Pending.PruneExpired(ctx)
			if err != nil {
				log.Error("failed to prune pending entries", "error", err)
				continue
			}
			if n > 0 {
				log.Info("expired pending entries removed", "count", n)
			}
		}
	}
}

func init() {
	serveCmd.Flags().StringVarP(&runAddress, "address", "a", "", "адрес HTTP сервера (по умолчанию run_address)")
	serveCmd.Flags().DurationVar(&pruneInterval, "prune-interval", time.Hour, "период очистки просроченных операций, 0 отключает")
}
