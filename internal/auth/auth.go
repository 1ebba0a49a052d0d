// Package auth verifies the identity tokens presented to the admin API.
package auth

import (
	"context"
	"errors"

	"github.com/ovall/shortlink/internal/shortlink"
)

var (
	// ErrMalformedToken is returned for structurally invalid tokens.
	ErrMalformedToken = errors.New("malformed token")
	// ErrUnknownKeyID is returned when the token kid is absent from the JWKS.
	ErrUnknownKeyID = errors.New("unknown key id")
	// ErrBadSignature is returned when signature verification fails.
	ErrBadSignature = errors.New("bad signature")
	// ErrBadIssuer is returned for unexpected iss claims.
	ErrBadIssuer = errors.New("bad issuer")
	// ErrBadAudience is returned when aud does not contain the expected audience.
	ErrBadAudience = errors.New("bad audience")
	// ErrTokenExpired is returned for expired or not-yet-valid tokens.
	ErrTokenExpired = errors.New("token expired")
	// ErrEmailNotVerified is returned when the provider has not verified the email.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrDomainNotAllowed is returned for emails outside the allowed domain.
	ErrDomainNotAllowed = errors.New("domain not allowed")
)

// VerifiedUser is the transient result of a successful verification.
// It is never persisted.
type VerifiedUser struct {
	Email shortlink.UserEmail
	// HostedDomain is the hd claim when present, else the email domain.
	HostedDomain string
	// SubjectHash is the first 8 bytes of SHA-256(sub), hex-encoded.
	SubjectHash string
}

// Verifier validates a credential string and returns the verified user.
type Verifier interface {
	Verify(ctx context.Context, credential string) (*VerifiedUser, error)
}
