package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/jaevor/go-nanoid"
)

const requestIDLength = 12

type requestMetaKey struct{}

// RequestMeta holds per-request metadata captured before routing.
type RequestMeta struct {
	// Host is the HTTP host the request arrived on, used to build short
	// URLs when no canonical domain is configured.
	Host      string
	Scheme    string
	RequestID string
}

// ContextWithRequestMeta adds request metadata to context.
func ContextWithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

// RequestMetaFromContext extracts request metadata from context.
func RequestMetaFromContext(ctx context.Context) RequestMeta {
	if v, ok := ctx.Value(requestMetaKey{}).(RequestMeta); ok {
		return v
	}

	return RequestMeta{}
}

// Meta is a huma middleware that captures the request host, scheme, and a
// generated request id into the context.
func Meta(_ huma.API) func(ctx huma.Context, next func(huma.Context)) {
	newID, _ := nanoid.Standard(requestIDLength)

	return func(ctx huma.Context, next func(huma.Context)) {
		meta := RequestMeta{
			Host:      ctx.Host(),
			Scheme:    extractScheme(ctx),
			RequestID: newID(),
		}

		newCtx := ContextWithRequestMeta(ctx.Context(), meta)
		ctx = huma.WithContext(ctx, newCtx)

		next(ctx)
	}
}

func extractScheme(ctx huma.Context) string {
	// Behind a proxy or API gateway the original scheme arrives in
	// X-Forwarded-Proto (possibly as a hop list).
	if proto := ctx.Header("X-Forwarded-Proto"); proto != "" {
		if idx := strings.Index(proto, ","); idx != -1 {
			return strings.TrimSpace(proto[:idx])
		}

		return strings.TrimSpace(proto)
	}

	if ctx.TLS() != nil {
		return "https"
	}

	return "http"
}

// CORS is a chi middleware answering preflight requests and attaching the
// CORS headers the browser console needs.
func CORS(allowOrigin string) func(http.Handler) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "OPTIONS, GET, POST, DELETE")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
