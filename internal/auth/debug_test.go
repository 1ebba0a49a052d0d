package auth_test

import (
	"context"
	"testing"

	"github.com/ovall/shortlink/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebugVerifier(t *testing.T) {
	ctx := context.Background()
	v := auth.NewDebugVerifier()

	t.Run("accepts any well-formed email", func(t *testing.T) {
		user, err := v.Verify(ctx, "dev@localhost.test")
		require.NoError(t, err)

		assert.Equal(t, "dev@localhost.test", string(user.Email))
		assert.Equal(t, "localhost.test", user.HostedDomain)
		assert.Len(t, user.SubjectHash, 16)
	})

	t.Run("rejects values that are not emails", func(t *testing.T) {
		_, err := v.Verify(ctx, "not-an-email")
		assert.ErrorIs(t, err, auth.ErrMalformedToken)
	})
}
