package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/ovall/shortlink/internal/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testKid      = "test-key-1"
	testAudience = "client-id-123.apps.googleusercontent.com"
	testDomain   = "acme.com"
)

func newSigningKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return key
}

func newJWKSServer(t *testing.T, key *rsa.PrivateKey) *httptest.Server {
	t.Helper()

	pub := key.Public().(*rsa.PublicKey)
	doc := map[string]interface{}{
		"keys": []map[string]string{{
			"kid": testKid,
			"kty": "RSA",
			"alg": "RS256",
			"use": "sig",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	}))
	t.Cleanup(server.Close)

	return server
}

func baseClaims() jwt.MapClaims {
	now := time.Now()

	return jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            testAudience,
		"sub":            "108223344556677889900",
		"exp":            now.Add(time.Hour).Unix(),
		"iat":            now.Unix(),
		"email":          "alice@acme.com",
		"email_verified": true,
		"hd":             testDomain,
	}
}

func signToken(t *testing.T, key *rsa.PrivateKey, kid string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid

	signed, err := token.SignedString(key)
	require.NoError(t, err)

	return signed
}

func newTestVerifier(t *testing.T, jwksURL string) *auth.GoogleVerifier {
	t.Helper()

	return auth.NewGoogleVerifier(auth.GoogleConfig{
		Audience:      testAudience,
		AllowedDomain: testDomain,
		JWKSURL:       jwksURL,
	}, zap.NewNop())
}

func TestGoogleVerifier(t *testing.T) {
	ctx := context.Background()
	key := newSigningKey(t)
	server := newJWKSServer(t, key)

	t.Run("accepts a valid token", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)

		user, err := v.Verify(ctx, signToken(t, key, testKid, baseClaims()))
		require.NoError(t, err)

		assert.Equal(t, "alice@acme.com", string(user.Email))
		assert.Equal(t, testDomain, user.HostedDomain)

		sum := sha256.Sum256([]byte("108223344556677889900"))
		assert.Equal(t, hex.EncodeToString(sum[:8]), user.SubjectHash)
	})

	t.Run("accepts aud encoded as an array", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)

		claims := baseClaims()
		claims["aud"] = []string{"other-client", testAudience}

		_, err := v.Verify(ctx, signToken(t, key, testKid, claims))
		assert.NoError(t, err)
	})

	t.Run("rejects the wrong audience", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)

		claims := baseClaims()
		claims["aud"] = "someone-else.apps.googleusercontent.com"

		_, err := v.Verify(ctx, signToken(t, key, testKid, claims))
		assert.ErrorIs(t, err, auth.ErrBadAudience)
	})

	t.Run("rejects a non-Google issuer", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)

		claims := baseClaims()
		claims["iss"] = "https://evil.example.com"

		_, err := v.Verify(ctx, signToken(t, key, testKid, claims))
		assert.ErrorIs(t, err, auth.ErrBadIssuer)
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)

		claims := baseClaims()
		claims["exp"] = time.Now().Add(-time.Minute).Unix()

		_, err := v.Verify(ctx, signToken(t, key, testKid, claims))
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("rejects a token issued too far in the future", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)

		claims := baseClaims()
		claims["iat"] = time.Now().Add(5 * time.Minute).Unix()

		_, err := v.Verify(ctx, signToken(t, key, testKid, claims))
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("rejects an unverified email", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)

		claims := baseClaims()
		claims["email_verified"] = false

		_, err := v.Verify(ctx, signToken(t, key, testKid, claims))
		assert.ErrorIs(t, err, auth.ErrEmailNotVerified)
	})

	t.Run("rejects an email outside the allowed domain", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)

		claims := baseClaims()
		claims["email"] = "mallory@rivals.com"
		claims["hd"] = "rivals.com"

		_, err := v.Verify(ctx, signToken(t, key, testKid, claims))
		assert.ErrorIs(t, err, auth.ErrDomainNotAllowed)
	})

	t.Run("falls back to the email domain when hd is missing", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)

		claims := baseClaims()
		delete(claims, "hd")

		user, err := v.Verify(ctx, signToken(t, key, testKid, claims))
		require.NoError(t, err)
		assert.Equal(t, testDomain, user.HostedDomain)
	})

	t.Run("rejects an unknown key id", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)

		_, err := v.Verify(ctx, signToken(t, key, "rotated-away", baseClaims()))
		assert.ErrorIs(t, err, auth.ErrUnknownKeyID)
	})

	t.Run("rejects a token signed with a different key", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)
		otherKey := newSigningKey(t)

		_, err := v.Verify(ctx, signToken(t, otherKey, testKid, baseClaims()))
		assert.ErrorIs(t, err, auth.ErrBadSignature)
	})

	t.Run("rejects garbage tokens", func(t *testing.T) {
		v := newTestVerifier(t, server.URL)

		_, err := v.Verify(ctx, "not.a.token")
		assert.ErrorIs(t, err, auth.ErrMalformedToken)
	})
}

func TestGoogleVerifierSkipSignature(t *testing.T) {
	ctx := context.Background()
	key := newSigningKey(t)

	newSkipVerifier := func() *auth.GoogleVerifier {
		return auth.NewGoogleVerifier(auth.GoogleConfig{
			Audience:      testAudience,
			AllowedDomain: testDomain,
			JWKSURL:       "http://127.0.0.1:0/unreachable",
			SkipSignature: true,
		}, zap.NewNop())
	}

	t.Run("tolerates a bad signature", func(t *testing.T) {
		v := newSkipVerifier()

		// Signed with a key the verifier has never seen.
		user, err := v.Verify(ctx, signToken(t, key, "any-kid", baseClaims()))
		require.NoError(t, err)
		assert.Equal(t, "alice@acme.com", string(user.Email))
	})

	t.Run("still enforces claim checks", func(t *testing.T) {
		v := newSkipVerifier()

		claims := baseClaims()
		claims["hd"] = "rivals.com"
		claims["email"] = "mallory@rivals.com"

		_, err := v.Verify(ctx, signToken(t, key, "any-kid", claims))
		assert.ErrorIs(t, err, auth.ErrDomainNotAllowed)
	})
}
