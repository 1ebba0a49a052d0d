package health_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ovall/shortlink/internal/health"
	"github.com/ovall/shortlink/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockChecker struct {
	err error
}

func (m *mockChecker) Ping(_ context.Context) error {
	return m.err
}

func TestNewHandler(t *testing.T) {
	checker := &mockChecker{}
	handler := health.NewHandler(checker)

	assert.NotNil(t, handler)
}

func TestHandler_Check(t *testing.T) {
	t.Run("returns ok when the store is healthy", func(t *testing.T) {
		checker := &mockChecker{err: nil}
		handler := health.NewHandler(checker)

		resp, err := handler.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "ok", resp.Body.Status)
		assert.Equal(t, "healthy", resp.Body.Store)
	})

	t.Run("returns degraded when the store is unhealthy", func(t *testing.T) {
		checker := &mockChecker{err: errors.New("connection refused")}
		handler := health.NewHandler(checker)

		resp, err := handler.Check(context.Background(), nil)

		require.NoError(t, err)
		assert.Equal(t, "degraded", resp.Body.Status)
		assert.Equal(t, "unhealthy", resp.Body.Store)
	})
}

func TestRepositoryChecker(t *testing.T) {
	t.Run("empty store is healthy", func(t *testing.T) {
		checker := health.NewRepositoryChecker(store.NewMemoryStore())

		assert.NoError(t, checker.Ping(context.Background()))
	})
}
