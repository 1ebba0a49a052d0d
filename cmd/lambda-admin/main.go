// Lambda entrypoint serving the authenticated management API behind an
// API Gateway HTTP API.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/ovall/shortlink/internal/config"
	"github.com/ovall/shortlink/internal/container"
	"github.com/ovall/shortlink/internal/health"
	"github.com/ovall/shortlink/internal/httpapi"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(2)
	}

	logger, err := container.NewLogger(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger error:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	// Initialization happens once per cold start; the repository and
	// verifier are reused across warm invocations.
	repo, _, err := container.NewRepository(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("repository init failed", zap.Error(err))
	}

	router, api := container.NewRouter(cfg)

	handlers := httpapi.NewAPI(
		container.NewService(repo, logger),
		container.NewVerifier(cfg, logger),
		httpapi.Options{
			ShortlinkDomain: cfg.ShortlinkDomain,
			DebugAuth:       cfg.AuthProvider == config.AuthNone,
		},
		logger,
	)
	handlers.RegisterAdmin(api)
	health.RegisterRoutes(api, health.NewHandler(health.NewRepositoryChecker(repo)))

	adapter := httpadapter.NewV2(router)
	lambda.Start(adapter.ProxyWithContext)
}
