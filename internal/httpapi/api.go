// Package httpapi exposes the redirect and admin endpoints over huma.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/ovall/shortlink/internal/auth"
	"github.com/ovall/shortlink/internal/shortlink"
	"go.uber.org/zap"
)

const bearerPrefix = "Bearer "

// Options configures the API surface.
type Options struct {
	// ShortlinkDomain is the canonical domain for generated short URLs.
	// When empty the request host is used instead.
	ShortlinkDomain string
	// DebugAuth switches identity to the X-Debug-User header. Only for
	// local development with the "none" auth provider.
	DebugAuth bool
}

// API wires the link service and token verifier into HTTP handlers.
type API struct {
	service  *shortlink.Service
	verifier auth.Verifier
	opts     Options
	logger   *zap.Logger
}

// NewAPI creates the HTTP handler set.
func NewAPI(service *shortlink.Service, verifier auth.Verifier, opts Options, logger *zap.Logger) *API {
	return &API{
		service:  service,
		verifier: verifier,
		opts:     opts,
		logger:   logger,
	}
}

// RegisterRedirect registers the public redirect endpoint.
func (a *API) RegisterRedirect(api huma.API) {
	huma.Register(api, huma.Operation{
		Method:      http.MethodGet,
		Path:        "/{slug}",
		Summary:     "Redirect to the original URL",
		Description: "Answers a permanent redirect to the URL stored for the slug.",
		Tags:        []string{"Redirect"},
	}, a.Redirect)
}

// RegisterAdmin registers the authenticated management endpoints.
func (a *API) RegisterAdmin(api huma.API) {
	huma.Register(api, huma.Operation{
		Method:        http.MethodPost,
		Path:          "/api/links",
		Summary:       "Create a short link",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusCreated,
	}, a.CreateLink)

	huma.Register(api, huma.Operation{
		Method:  http.MethodGet,
		Path:    "/api/links",
		Summary: "List short links",
		Tags:    []string{"Links"},
	}, a.ListLinks)

	huma.Register(api, huma.Operation{
		Method:        http.MethodDelete,
		Path:          "/api/links/{slug}",
		Summary:       "Delete a short link",
		Tags:          []string{"Links"},
		DefaultStatus: http.StatusNoContent,
	}, a.DeleteLink)

	huma.Register(api, huma.Operation{
		Method:  http.MethodGet,
		Path:    "/api/me",
		Summary: "Describe the authenticated user",
		Tags:    []string{"Links"},
	}, a.Me)
}

// Register registers every endpoint on one API. Used by the single-process
// server; the Lambda entrypoints register their subset.
func (a *API) Register(api huma.API) {
	a.RegisterAdmin(api)
	a.RegisterRedirect(api)
}

// Redirect resolves the slug and answers 308 with a Location header.
func (a *API) Redirect(ctx context.Context, req *RedirectRequest) (*RedirectResponse, error) {
	slug, err := shortlink.NewSlug(req.Slug)
	if err != nil {
		return nil, a.clientError(http.StatusBadRequest, "invalid slug")
	}

	target, err := a.service.Resolve(ctx, slug)
	if err != nil {
		if errors.Is(err, shortlink.ErrNotFound) {
			return nil, a.clientError(http.StatusNotFound, "short link not found")
		}

		return nil, a.internalError(ctx, "resolve", err)
	}

	resp := &RedirectResponse{Status: http.StatusPermanentRedirect}
	resp.Headers.Location = target
	resp.Headers.CacheControl = "no-store"

	return resp, nil
}

// CreateLink mints or validates a slug and stores the link.
func (a *API) CreateLink(ctx context.Context, req *CreateLinkRequest) (*CreateLinkResponse, error) {
	user, err := a.authenticate(ctx, req.Authorization, req.DebugUser)
	if err != nil {
		return nil, err
	}

	link, err := a.service.Create(ctx, shortlink.NewLink{
		OriginalURL: req.Body.OriginalURL,
		Alias:       req.Body.Alias,
	}, user.Email)
	if err != nil {
		return nil, a.createError(ctx, err, req.Body.Alias != "")
	}

	resp := &CreateLinkResponse{Status: http.StatusCreated}
	resp.Body = a.payload(ctx, link)

	return resp, nil
}

// ListLinks returns up to limit links, newest first.
func (a *API) ListLinks(ctx context.Context, req *ListLinksRequest) (*ListLinksResponse, error) {
	if _, err := a.authenticate(ctx, req.Authorization, req.DebugUser); err != nil {
		return nil, err
	}

	if req.Limit < 0 {
		return nil, a.clientError(http.StatusBadRequest, "limit must be positive")
	}

	links, err := a.service.List(ctx, req.Limit)
	if err != nil {
		return nil, a.internalError(ctx, "list", err)
	}

	resp := &ListLinksResponse{}
	resp.Body.Links = make([]LinkPayload, 0, len(links))

	for _, link := range links {
		resp.Body.Links = append(resp.Body.Links, a.payload(ctx, link))
	}

	return resp, nil
}

// DeleteLink soft-deletes the link. The slug stays occupied.
func (a *API) DeleteLink(ctx context.Context, req *DeleteLinkRequest) (*DeleteLinkResponse, error) {
	if _, err := a.authenticate(ctx, req.Authorization, req.DebugUser); err != nil {
		return nil, err
	}

	slug, err := shortlink.NewSlug(req.Slug)
	if err != nil {
		return nil, a.clientError(http.StatusBadRequest, "invalid slug")
	}

	if err := a.service.Delete(ctx, slug); err != nil {
		if errors.Is(err, shortlink.ErrNotFound) {
			return nil, a.clientError(http.StatusNotFound, "short link not found")
		}

		return nil, a.internalError(ctx, "delete", err)
	}

	return &DeleteLinkResponse{Status: http.StatusNoContent}, nil
}

// Me echoes the verified identity back to the caller.
func (a *API) Me(ctx context.Context, req *MeRequest) (*MeResponse, error) {
	user, err := a.authenticate(ctx, req.Authorization, req.DebugUser)
	if err != nil {
		return nil, err
	}

	resp := &MeResponse{}
	resp.Body.Email = string(user.Email)
	resp.Body.Domain = user.HostedDomain
	resp.Body.SubjectHash = user.SubjectHash

	return resp, nil
}

func (a *API) authenticate(ctx context.Context, authorization, debugUser string) (*auth.VerifiedUser, error) {
	credential := ""

	if a.opts.DebugAuth {
		credential = strings.TrimSpace(debugUser)
		if credential == "" {
			return nil, a.clientError(http.StatusUnauthorized, "missing X-Debug-User header")
		}
	} else {
		if !strings.HasPrefix(authorization, bearerPrefix) {
			return nil, a.clientError(http.StatusUnauthorized, "missing bearer token")
		}

		credential = strings.TrimSpace(authorization[len(bearerPrefix):])
	}

	user, err := a.verifier.Verify(ctx, credential)
	if err != nil {
		if errors.Is(err, auth.ErrDomainNotAllowed) {
			return nil, a.clientError(http.StatusForbidden, "account not allowed")
		}

		return nil, a.clientError(http.StatusUnauthorized, "invalid credentials", zap.Error(err))
	}

	return user, nil
}

// clientError logs the rejection at WARN with its canonical code and
// builds the envelope.
func (a *API) clientError(status int, message string, fields ...zap.Field) error {
	fields = append(fields,
		zap.String("code", codeForStatus(status)),
		zap.Int("status", status),
	)
	a.logger.Warn("request rejected", fields...)

	return NewError(status, message)
}

func (a *API) createError(ctx context.Context, err error, customAlias bool) error {
	switch {
	case errors.Is(err, shortlink.ErrInvalidURL):
		return a.clientError(http.StatusBadRequest, "original_url must be a valid http(s) URL")
	case errors.Is(err, shortlink.ErrInvalidSlug):
		return a.clientError(http.StatusBadRequest, "alias must be 3-32 characters of [0-9A-Za-z_-]")
	case errors.Is(err, shortlink.ErrAlreadyExists):
		// On the generated path a conflict means retries were exhausted,
		// which is a backend anomaly, not a client mistake.
		if !customAlias {
			return a.internalError(ctx, "create", err)
		}

		return a.clientError(http.StatusConflict, "slug is already in use")
	default:
		return a.internalError(ctx, "create", err)
	}
}

// internalError logs the cause and returns an opaque 500. Backend error
// text never reaches clients.
func (a *API) internalError(ctx context.Context, op string, err error) error {
	meta := RequestMetaFromContext(ctx)

	a.logger.Error("request failed",
		zap.String("op", op),
		zap.String("request_id", meta.RequestID),
		zap.Error(err),
	)

	return huma.Error500InternalServerError("internal error")
}

func (a *API) payload(ctx context.Context, link *shortlink.ShortLink) LinkPayload {
	return LinkPayload{
		Slug:        string(link.Slug),
		ShortURL:    a.shortURL(ctx, link.Slug),
		OriginalURL: link.OriginalURL,
		CreatedAt:   link.CreatedAt.UTC().Format(time.RFC3339),
		CreatedBy:   string(link.CreatedBy),
	}
}

// shortURL prefers the configured canonical domain and falls back to the
// host the request arrived on.
func (a *API) shortURL(ctx context.Context, slug shortlink.Slug) string {
	if a.opts.ShortlinkDomain != "" {
		return "https://" + a.opts.ShortlinkDomain + "/" + string(slug)
	}

	meta := RequestMetaFromContext(ctx)
	if meta.Host == "" {
		return "/" + string(slug)
	}

	scheme := meta.Scheme
	if scheme == "" {
		scheme = "http"
	}

	return scheme + "://" + meta.Host + "/" + string(slug)
}
