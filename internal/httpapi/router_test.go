package httpapi_test

import (
	"crypto/tls"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/ovall/shortlink/internal/auth"
	"github.com/ovall/shortlink/internal/httpapi"
	"github.com/ovall/shortlink/internal/shortlink"
	"github.com/ovall/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	repo := store.NewMemoryStore()
	service := shortlink.NewService(repo, shortlink.NewBase62Generator(shortlink.DefaultSlugWidth), shortlink.SystemClock{}, zap.NewNop())

	router := chi.NewMux()
	api := humachi.New(router, huma.DefaultConfig("Shortlink", "1.0.0"))
	api.UseMiddleware(httpapi.Meta(api))

	handlers := httpapi.NewAPI(service, auth.NewDebugVerifier(), httpapi.Options{DebugAuth: true}, zap.NewNop())
	handlers.Register(api)

	return router
}

func postLinks(router *chi.Mux, body string, mutate func(*http.Request)) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/links", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Debug-User", debugUser)

	if mutate != nil {
		mutate(req)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) errorEnvelope {
	t.Helper()

	var envelope errorEnvelope

	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))

	return envelope
}

func TestRouterValidation(t *testing.T) {
	t.Run("missing original_url answers 400 invalid_request", func(t *testing.T) {
		router := newTestRouter(t)

		rec := postLinks(router, `{}`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httpapi.CodeInvalidRequest, decodeEnvelope(t, rec).Error.Code)
	})

	t.Run("malformed json answers 400 invalid_request", func(t *testing.T) {
		router := newTestRouter(t)

		rec := postLinks(router, `{not json`, nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httpapi.CodeInvalidRequest, decodeEnvelope(t, rec).Error.Code)
	})

	t.Run("non-integer limit answers 400 invalid_request", func(t *testing.T) {
		router := newTestRouter(t)

		req := httptest.NewRequest(http.MethodGet, "/api/links?limit=abc", nil)
		req.Header.Set("X-Debug-User", debugUser)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, httpapi.CodeInvalidRequest, decodeEnvelope(t, rec).Error.Code)
	})
}

func TestRouterScheme(t *testing.T) {
	created := func(t *testing.T, rec *httptest.ResponseRecorder) string {
		t.Helper()

		require.Equal(t, http.StatusCreated, rec.Code)

		var body struct {
			ShortURL string `json:"short_url"`
		}

		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

		return body.ShortURL
	}

	t.Run("plain request builds an http short url", func(t *testing.T) {
		router := newTestRouter(t)

		rec := postLinks(router, `{"original_url":"https://example.com/a"}`, nil)

		assert.True(t, strings.HasPrefix(created(t, rec), "http://"))
	})

	t.Run("forwarded proto wins", func(t *testing.T) {
		router := newTestRouter(t)

		rec := postLinks(router, `{"original_url":"https://example.com/b"}`, func(req *http.Request) {
			req.Header.Set("X-Forwarded-Proto", "https")
		})

		assert.True(t, strings.HasPrefix(created(t, rec), "https://"))
	})

	t.Run("direct tls connection builds an https short url", func(t *testing.T) {
		router := newTestRouter(t)

		rec := postLinks(router, `{"original_url":"https://example.com/c"}`, func(req *http.Request) {
			req.TLS = &tls.ConnectionState{}
		})

		assert.True(t, strings.HasPrefix(created(t, rec), "https://"))
	})
}
