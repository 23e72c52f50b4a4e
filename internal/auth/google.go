package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
)

// GoogleIssuer is the OIDC issuer for Google identity tokens.
const GoogleIssuer = "https://accounts.google.com"

// ErrFederatedToken is returned when a provider token fails verification.
var ErrFederatedToken = errors.New("google: invalid identity token")

// GoogleClaims are the verified assertions extracted from a Google ID token.
type GoogleClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	GivenName     string
	FamilyName    string
	Picture       string
}

// IdentityVerifier validates a third-party identity token and extracts its
// verified claims.
type IdentityVerifier interface {
	Verify(ctx context.Context, rawToken string) (*GoogleClaims, error)
}

// GoogleOptions configures the behaviour of the Google verifier.
type GoogleOptions struct {
	HTTPClient *http.Client
	Timeout    time.Duration
}

// GoogleVerifier validates Google ID tokens against the provider's published
// keys and the configured OAuth client ID.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier performs OIDC discovery against Google and returns a
// verifier bound to the supplied client ID.
func NewGoogleVerifier(ctx context.Context, clientID string, opts GoogleOptions) (*GoogleVerifier, error) {
	if strings.TrimSpace(clientID) == "" {
		return nil, errors.New("google verifier: client id is required")
	}

	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.HTTPClient != nil {
		ctx = oidc.ClientContext(ctx, opts.HTTPClient)
	}

	discoveryCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	provider, err := oidc.NewProvider(discoveryCtx, GoogleIssuer)
	if err != nil {
		return nil, fmt.Errorf("google verifier: discovery failed: %w", err)
	}

	return &GoogleVerifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

// Verify validates the raw ID token and returns its claims.
func (v *GoogleVerifier) Verify(ctx context.Context, rawToken string) (*GoogleClaims, error) {
	rawToken = strings.TrimSpace(rawToken)
	if rawToken == "" {
		return nil, ErrFederatedToken
	}

	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFederatedToken, err)
	}

	var payload struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		GivenName     string `json:"given_name"`
		FamilyName    string `json:"family_name"`
		Picture       string `json:"picture"`
	}
	if err := idToken.Claims(&payload); err != nil {
		return nil, fmt.Errorf("%w: decode claims: %v", ErrFederatedToken, err)
	}

	if strings.TrimSpace(payload.Email) == "" {
		return nil, fmt.Errorf("%w: token carries no email claim", ErrFederatedToken)
	}

	return &GoogleClaims{
		Subject:       idToken.Subject,
		Email:         payload.Email,
		EmailVerified: payload.EmailVerified,
		GivenName:     payload.GivenName,
		FamilyName:    payload.FamilyName,
		Picture:       payload.Picture,
	}, nil
}
