package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"doclens/internal/handler"
	"doclens/internal/metrics"
	"doclens/internal/router"
)

// runServe starts the HTTP API and blocks until SIGINT/SIGTERM.
func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	rt, err := setup(common)
	if err != nil {
		return err
	}
	defer rt.close()

	collector := metrics.New()
	var cache handler.CacheStats
	if rt.cache != nil {
		cache = rt.cache
	}
	app := handler.NewApp(rt.newProcessor(collector), cache, rt.cfg.Server, rt.log)

	addr := fmt.Sprintf("0.0.0.0:%d", rt.cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.New(app, collector.Handler(), rt.log),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		rt.log.Info("[Server] listening", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case sig := <-sigCh:
		rt.log.Info("[Server] shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	rt.log.Info("[Server] stopped")
	return nil
}
