package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/go-chi/chi/v5"
	"github.com/ovall/shortlink/internal/config"
	"github.com/ovall/shortlink/internal/container"
	"github.com/samber/do"
	"go.uber.org/zap"
)

// Options are CLI flags; everything else comes from the environment.
type Options struct {
	Port int `default:"0" help:"Override the HTTP listen port" short:"p"`
}

func registerPackages(injector *do.Injector, cfg *config.Config) {
	do.ProvideValue(injector, cfg)
	container.LoggerPackage(injector)
	container.RepositoryPackage(injector)
	container.AuthPackage(injector)
	container.ServicePackage(injector)
	container.HTTPPackage(injector)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(2)
	}

	cli := humacli.New(func(hooks humacli.Hooks, options *Options) {
		if options.Port != 0 {
			cfg.Port = options.Port
		}

		injector := do.New()
		registerPackages(injector, cfg)

		logger := do.MustInvoke[*zap.Logger](injector)

		var server *http.Server

		hooks.OnStart(func() {
			router := do.MustInvoke[*chi.Mux](injector)

			server = &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Port),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}

			logger.Info("server starting",
				zap.Int("port", cfg.Port),
				zap.String("storage", cfg.StorageProvider),
				zap.String("auth", cfg.AuthProvider),
			)

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Fatal("server failed", zap.Error(err))
			}
		})

		hooks.OnStop(func() {
			logger.Info("shutting down")

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			if server != nil {
				if err := server.Shutdown(ctx); err != nil {
					logger.Error("server shutdown error", zap.Error(err))
				}
			}

			if err := injector.Shutdown(); err != nil {
				logger.Error("service shutdown error", zap.Error(err))
			}

			logger.Info("shutdown complete")
		})
	})

	cli.Run()
}
