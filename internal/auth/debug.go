package auth

import (
	"context"

	"github.com/ovall/shortlink/internal/shortlink"
)

// DebugVerifier trusts the caller-supplied email verbatim. It backs the
// "none" auth provider for local development and tests.
type DebugVerifier struct{}

// NewDebugVerifier creates a verifier that accepts any well-formed email.
func NewDebugVerifier() *DebugVerifier {
	return &DebugVerifier{}
}

// Verify treats the credential as a plain email address.
func (d *DebugVerifier) Verify(_ context.Context, credential string) (*VerifiedUser, error) {
	email, err := shortlink.NewUserEmail(credential)
	if err != nil {
		return nil, ErrMalformedToken
	}

	return &VerifiedUser{
		Email:        email,
		HostedDomain: email.Domain(),
		SubjectHash:  subjectHash(string(email)),
	}, nil
}
