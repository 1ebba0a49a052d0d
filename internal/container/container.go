// Package container wires configuration, storage, auth, and the HTTP API
// together. The server composes it through samber/do; the Lambda
// entrypoints call the builder functions directly.
package container

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ovall/shortlink/internal/auth"
	"github.com/ovall/shortlink/internal/config"
	"github.com/ovall/shortlink/internal/health"
	"github.com/ovall/shortlink/internal/httpapi"
	"github.com/ovall/shortlink/internal/shortlink"
	"github.com/ovall/shortlink/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"go.uber.org/zap"
)

const resolveCacheTTL = 5 * time.Minute

// NewLogger builds the process logger from the configured format.
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.LogFormat == "console" {
		return zap.NewDevelopment()
	}

	return zap.NewProduction()
}

// NewRepository builds the configured repository. The returned closer
// releases any underlying connections; it is safe to call on shutdown.
func NewRepository(ctx context.Context, cfg *config.Config, logger *zap.Logger) (shortlink.Repository, func() error, error) {
	var (
		repo   shortlink.Repository
		closer = func() error { return nil }
	)

	switch cfg.StorageProvider {
	case config.StorageMemory:
		repo = store.NewMemoryStore()
	case config.StorageSQLite:
		s, err := store.NewSQLiteStore(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}

		repo, closer = s, s.Close
	case config.StoragePostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres pool: %w", err)
		}

		s := store.NewPostgresStore(pool)
		if err := s.EnsureSchema(ctx); err != nil {
			pool.Close()

			return nil, nil, err
		}

		repo = s
		closer = func() error {
			pool.Close()

			return nil
		}
	case config.StorageAWS:
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load aws config: %w", err)
		}

		client := dynamodb.NewFromConfig(awsCfg)
		repo = store.NewDynamoStore(client, cfg.DynamoTableShortLinks, cfg.DynamoTableCounters, logger)
	default:
		return nil, nil, fmt.Errorf("unknown storage provider %q", cfg.StorageProvider)
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		repo = store.NewRedisCacheStore(repo, client, resolveCacheTTL)

		inner := closer
		closer = func() error {
			err := client.Close()
			if innerErr := inner(); innerErr != nil {
				return innerErr
			}

			return err
		}
	}

	return repo, closer, nil
}

// NewVerifier builds the configured token verifier.
func NewVerifier(cfg *config.Config, logger *zap.Logger) auth.Verifier {
	if cfg.AuthProvider == config.AuthNone {
		return auth.NewDebugVerifier()
	}

	return auth.NewGoogleVerifier(auth.GoogleConfig{
		Audience:      cfg.GoogleOAuthClientID,
		AllowedDomain: cfg.AllowedDomain,
		SkipSignature: cfg.SkipSignature,
	}, logger)
}

// NewService builds the link service on top of a repository.
func NewService(repo shortlink.Repository, logger *zap.Logger) *shortlink.Service {
	gen := shortlink.NewBase62Generator(shortlink.DefaultSlugWidth)

	return shortlink.NewService(repo, gen, shortlink.SystemClock{}, logger)
}

// NewRouter builds the chi router with CORS applied to the API routes and
// a huma API mounted on it.
func NewRouter(cfg *config.Config) (*chi.Mux, huma.API) {
	router := chi.NewMux()
	router.Use(httpapi.CORS(cfg.CORSAllowOrigin))

	api := humachi.New(router, huma.DefaultConfig("Shortlink", "1.0.0"))
	api.UseMiddleware(httpapi.Meta(api))

	return router, api
}

// LoggerPackage registers the logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		return NewLogger(do.MustInvoke[*config.Config](i))
	})
}

// RepositoryPackage registers the repository and ties its closer to the
// injector's shutdown.
func RepositoryPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (shortlink.Repository, error) {
		cfg := do.MustInvoke[*config.Config](i)
		logger := do.MustInvoke[*zap.Logger](i)

		repo, closer, err := NewRepository(context.Background(), cfg, logger)
		if err != nil {
			return nil, err
		}

		do.ProvideValue(i, &repoCloser{close: closer})

		return repo, nil
	})
}

type repoCloser struct {
	close func() error
}

func (r *repoCloser) Shutdown() error {
	return r.close()
}

// AuthPackage registers the token verifier.
func AuthPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (auth.Verifier, error) {
		return NewVerifier(do.MustInvoke[*config.Config](i), do.MustInvoke[*zap.Logger](i)), nil
	})
}

// ServicePackage registers the link service.
func ServicePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortlink.Service, error) {
		repo := do.MustInvoke[shortlink.Repository](i)

		return NewService(repo, do.MustInvoke[*zap.Logger](i)), nil
	})
}

// HTTPPackage registers the router, the huma API, and route registration.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*chi.Mux, error) {
		cfg := do.MustInvoke[*config.Config](i)

		router, api := NewRouter(cfg)
		do.ProvideValue(i, api)

		handlers := httpapi.NewAPI(
			do.MustInvoke[*shortlink.Service](i),
			do.MustInvoke[auth.Verifier](i),
			httpapi.Options{
				ShortlinkDomain: cfg.ShortlinkDomain,
				DebugAuth:       cfg.AuthProvider == config.AuthNone,
			},
			do.MustInvoke[*zap.Logger](i),
		)
		handlers.Register(api)

		repo := do.MustInvoke[shortlink.Repository](i)
		health.RegisterRoutes(api, health.NewHandler(health.NewRepositoryChecker(repo)))

		return router, nil
	})
}
