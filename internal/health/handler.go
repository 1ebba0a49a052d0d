// Package health exposes the liveness endpoint.
package health

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ovall/shortlink/internal/shortlink"
)

// Checker reports whether a dependency is reachable.
type Checker interface {
	Ping(ctx context.Context) error
}

// RepositoryChecker probes the link store with a throwaway read.
type RepositoryChecker struct {
	repo shortlink.Repository
}

// NewRepositoryChecker creates a health checker backed by the repository.
func NewRepositoryChecker(repo shortlink.Repository) *RepositoryChecker {
	return &RepositoryChecker{repo: repo}
}

// Ping reads a slug that cannot exist; any answer but a backend error
// means the store is reachable.
func (r *RepositoryChecker) Ping(ctx context.Context) error {
	_, err := r.repo.Get(ctx, shortlink.Slug("-health-probe-"))
	if err != nil && !errors.Is(err, shortlink.ErrNotFound) {
		return err
	}

	return nil
}

// Handler handles health check operations.
type Handler struct {
	store Checker
}

// NewHandler creates a new health handler.
func NewHandler(store Checker) *Handler {
	return &Handler{store: store}
}

// Response is the response for the health check endpoint.
type Response struct {
	Body struct {
		Status string `json:"status"`
		Store  string `json:"store"`
	}
}

// Check probes the application and its storage dependency.
func (h *Handler) Check(ctx context.Context, _ *struct{}) (*Response, error) {
	resp := &Response{}
	resp.Body.Status = "ok"

	if err := h.store.Ping(ctx); err != nil {
		resp.Body.Store = "unhealthy"
		resp.Body.Status = "degraded"
	} else {
		resp.Body.Store = "healthy"
	}

	return resp, nil
}

// RegisterRoutes registers health check routes.
func RegisterRoutes(api huma.API, h *Handler) {
	huma.Get(api, "/health", h.Check)
}
