package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytmirror/internal/tasks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const shutdownTimeout = 10 * time.Second

// Daemon serves sync triggers over HTTP and optionally drains every pending playlist on an interval.
type Daemon struct {
	addr      string
	interval  time.Duration
	scheduler *tasks.Scheduler
	router    *BasicRouter
	logger    *log.Logger
}

// NewDaemon wires the sync, health and metrics routes. interval 0 disables the ticker.
func NewDaemon(addr string, interval time.Duration, scheduler *tasks.Scheduler, gatherer prometheus.Gatherer, logger *log.Logger) *Daemon {
	router := NewBasicRouter()
	router.Use(RecoverMiddleware(logger), LoggingMiddleware(logger))
	router.Handler(NewSyncHandler(scheduler, logger))
	router.Handler(NewHealthHandler(scheduler))
	router.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Daemon{
		addr:      addr,
		interval:  interval,
		scheduler: scheduler,
		router:    router,
		logger:    logger,
	}
}

// Handler returns the daemon's router.
func (d *Daemon) Handler() http.Handler {
	return d.router
}

// Run recovers interrupted entries, then serves until ctx is done. Running drains are asked to
// stop and awaited before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	if _, err := d.scheduler.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover interrupted entries: %w", err)
	}

	if d.interval > 0 {
		go d.scheduler.Loop(ctx, d.interval)
	}

	srv := &http.Server{Addr: d.addr, Handler: d.router, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		d.logger.Info("daemon listening", "addr", d.addr, "interval", d.interval)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		d.logger.Warn("server shutdown", "err", err)
	}

	d.scheduler.StopAll()
	d.scheduler.Wait()
	d.logger.Info("daemon stopped")
	return serveErr
}
