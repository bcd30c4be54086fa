package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
)

var errNoSubject = errors.New("token carries no usable subject")

// subjectClaims are the claims used to map an external identity onto a local
// username. preferred_username wins over sub.
type subjectClaims struct {
	Subject           string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
}

func (c subjectClaims) username() (string, error) {
	if c.PreferredUsername != "" {
		return c.PreferredUsername, nil
	}
	if c.Subject != "" {
		return c.Subject, nil
	}
	return "", errNoSubject
}

// Verifier validates ID tokens issued by an external OIDC provider
type Verifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewVerifier discovers the provider at issuer and verifies tokens for clientID
func NewVerifier(ctx context.Context, issuer, clientID string) (*Verifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}
	return &Verifier{verifier: provider.Verifier(&oidc.Config{ClientID: clientID})}, nil
}

func newVerifierWithKeySet(issuer, clientID string, keys oidc.KeySet) *Verifier {
	return &Verifier{verifier: oidc.NewVerifier(issuer, keys, &oidc.Config{ClientID: clientID})}
}

// Verify checks raw against the provider keys and returns the username it maps to.
func (v *Verifier) Verify(ctx context.Context, raw string) (string, error) {
	idToken, err := v.verifier.Verify(ctx, raw)
	if err != nil {
		return "", err
	}
	var c subjectClaims
	if err := idToken.Claims(&c); err != nil {
		return "", err
	}
	return c.username()
}
