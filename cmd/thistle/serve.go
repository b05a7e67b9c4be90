package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/Ramsey-B/thistle/config"
	"github.com/Ramsey-B/thistle/pkg/metrics"
	"github.com/Ramsey-B/thistle/pkg/middleware"
	"github.com/Ramsey-B/thistle/pkg/routes/health"
	"github.com/Ramsey-B/thistle/pkg/routes/screen"
	"github.com/Ramsey-B/thistle/pkg/screening"
	"github.com/Ramsey-B/thistle/pkg/startup"
	"github.com/Ramsey-B/thistle/pkg/tracing"
)

func newServeCmd(a *app) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Load the watchlists and serve ad-hoc screening over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			override(cmd.Flags().Changed("port"), &cfg.Port, port)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			m := metrics.New()
			svc := screening.NewService(a.log, optionsFromConfig(cfg), m, nil)
			checker := health.NewChecker(version)
			checker.AddCheck("watchlists", func(context.Context) error {
				if svc.Watchlists() == nil {
					return errors.New("watchlists are not loaded")
				}
				return nil
			})

			e := newEcho(a, cfg, svc, m, checker)
			server := newHTTPServer(cfg, e)

			s := startup.NewStartup(a.log, cfg.StartupMaxAttempts)
			if cfg.TracingEnabled {
				var shutdown func(context.Context) error
				s.AddDependency(&startup.Func{
					Name: "tracing",
					OnStart: func(context.Context) error {
						shutdown = tracing.Setup(cfg.AppName, a.log)
						return nil
					},
					OnStop: func(ctx context.Context) error { return shutdown(ctx) },
				})
			}
			s.AddDependency(&startup.Func{
				Name: "watchlists",
				OnStart: func(ctx context.Context) error {
					_, err := svc.LoadWatchlists(ctx)
					return err
				},
			})
			serverErr := make(chan error, 1)
			s.AddDependency(&startup.Func{
				Name:     "http",
				Requires: []string{"watchlists"},
				OnStart: func(context.Context) error {
					go func() {
						if err := e.StartServer(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
							serverErr <- err
						}
					}()
					checker.SetReady(true)
					return nil
				},
				OnStop: func(ctx context.Context) error {
					checker.SetReady(false)
					return e.Shutdown(ctx)
				},
			})

			if err := s.Start(ctx); err != nil {
				return err
			}
			a.log.WithField("port", cfg.Port).Info("Server started")

			var runErr error
			select {
			case <-ctx.Done():
			case runErr = <-serverErr:
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := s.Stop(shutdownCtx); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override PORT")
	return cmd
}

func newEcho(a *app, cfg *config.Config, svc *screening.Service, m *metrics.Metrics, checker *health.Checker) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = middleware.Error(a.log)

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.AllowOrigins}))
	e.Use(otelecho.Middleware(cfg.AppName))
	e.Use(middleware.Context())
	e.Use(middleware.Logger(a.log))

	checker.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))
	screen.NewHandler(svc, m).Register(e.Group("/api/v1"))
	return e
}

func newHTTPServer(cfg *config.Config, e *echo.Echo) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           e,
		ReadTimeout:       time.Duration(cfg.HttpServerReadTimeoutSeconds) * time.Second,
		WriteTimeout:      time.Duration(cfg.HttpServerWriteTimeoutSeconds) * time.Second,
		IdleTimeout:       time.Duration(cfg.HttpServerIdleTimeoutSeconds) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.ReadHeaderTimeoutSeconds) * time.Second,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}
