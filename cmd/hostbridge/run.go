package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/go-hostbridge/config"
	"github.com/joeycumines/go-hostbridge/events"
	"github.com/joeycumines/go-hostbridge/gojabridge"
	"github.com/joeycumines/go-hostbridge/hostloop"
	"github.com/joeycumines/go-hostbridge/internal/logging"
	"github.com/joeycumines/go-hostbridge/tasks"
	"github.com/joeycumines/go-hostbridge/workpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

func readScript(name string) (string, error) {
	var (
		b   []byte
		err error
	)
	if name == `-` {
		b, err = io.ReadAll(os.Stdin)
	} else {
		b, err = os.ReadFile(name)
	}
	if err != nil {
		return ``, fmt.Errorf("failed to read script: %w", err)
	}
	return string(b), nil
}

// run evaluates src, waits for every promise it created to settle, then
// shuts everything down. An interrupt stops waiting, and is not an error.
func run(ctx context.Context, logOut io.Writer, cfg config.Config, name, src string) error {
	logger, err := logging.New(logging.Options{
		Writer: logOut,
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return err
	}

	undo, err := maxprocs.Set(maxprocs.Logger(func(format string, args ...any) {
		logger.Debug().Log(fmt.Sprintf(format, args...))
	}))
	if err != nil {
		logger.Warning().Err(err).Log(`failed to set GOMAXPROCS`)
	}
	defer undo()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	loop, err := hostloop.New(
		hostloop.WithLogger(logger),
		hostloop.WithMetrics(registry),
		hostloop.WithQueueBudget(cfg.Loop.QueueBudget),
	)
	if err != nil {
		return err
	}

	eventMetrics, err := events.NewMetrics(registry)
	if err != nil {
		return err
	}

	pool := workpool.New(cfg.Pool.Workers, workpool.WithLogger(logger))

	bridge, err := gojabridge.New(loop, goja.New(),
		gojabridge.WithLogger(logger),
		gojabridge.WithPool(pool),
		gojabridge.WithInvokerDelay(cfg.Invoker.Delay.Std()),
		gojabridge.WithTaskConfig(tasks.Config{StepDelay: cfg.Tasks.StepDelay.Std()}),
		gojabridge.WithEventMetrics(eventMetrics),
	)
	if err != nil {
		return err
	}
	if err := bridge.Bind(); err != nil {
		return err
	}

	var g errgroup.Group

	// terminated by Shutdown, so queued settlements are always drained
	g.Go(func() error { return loop.Run(context.Background()) })

	var srv *http.Server
	if cfg.Metrics.Addr != `` {
		ln, err := net.Listen(`tcp`, cfg.Metrics.Addr)
		if err != nil {
			_ = loop.Shutdown(context.Background())
			return errors.Join(fmt.Errorf("failed to listen for metrics: %w", err), g.Wait())
		}
		srv = &http.Server{
			Handler:           newMetricsRouter(registry, cfg.Metrics.AllowedOrigins),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		logger.Info().
			Str(`addr`, ln.Addr().String()).
			Log(`serving metrics`)
	}

	logger.Info().
		Str(`script`, name).
		Int(`workers`, pool.Size()).
		Log(`running`)

	runErr := func() error {
		if _, err := bridge.RunScript(ctx, name, src); err != nil {
			return err
		}
		return bridge.Wait(ctx)
	}()
	if runErr != nil && ctx.Err() != nil && errors.Is(runErr, ctx.Err()) {
		logger.Notice().Log(`interrupted`)
		runErr = nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	errs = append(errs, runErr, bridge.Close(shutdownCtx), pool.Close(shutdownCtx))
	if err := loop.Shutdown(shutdownCtx); err != nil && !errors.Is(err, hostloop.ErrLoopTerminated) {
		errs = append(errs, err)
	}
	if srv != nil {
		errs = append(errs, srv.Shutdown(shutdownCtx))
	}
	errs = append(errs, g.Wait())

	return errors.Join(errs...)
}
