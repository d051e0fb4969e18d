// Package httpserver は context のキャンセルで停止する HTTP サーバーを提供します。
package httpserver

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/yourusername/passgate/internal/logutil"
)

// Serve は ctx がキャンセルされるまで handler を提供し、その後グレースフルに停止します。
func Serve(ctx context.Context, bind string, handler http.Handler) error {
	server := &http.Server{
		Handler:           handler,
		Addr:              bind,
		ReadTimeout:       time.Minute,
		WriteTimeout:      time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       time.Minute * 5,
	}
	log := logutil.GetOrDefault(ctx).With().Str("server.addr", server.Addr).Logger()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Msg("Starting HTTP server")
		err := server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			log.Info().Msg("Server closed")
			err = nil
		}
		errCh <- err
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("Initiating shutdown process")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		log.Info().Msg("Shutdown completed")
		return <-errCh
	}
}
