package google

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// DefaultJWKSURL serves Google's OpenID signing keys.
const DefaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// IDTokenClaims are the id_token fields we rely on.
type IDTokenClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	jwt.RegisteredClaims
}

// IDTokenVerifier checks Google id_tokens against the published JWKS.
type IDTokenVerifier struct {
	keys     keyfunc.Keyfunc
	clientID string
	now      func() time.Time
}

// NewIDTokenVerifier fetches the JWKS from jwksURL. Keys are refreshed in
// the background for the life of ctx.
func NewIDTokenVerifier(ctx context.Context, jwksURL, clientID string) (*IDTokenVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS URL cannot be empty")
	}
	keys, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}
	return NewIDTokenVerifierWithKeys(keys, clientID), nil
}

// NewIDTokenVerifierWithKeys builds a verifier over an existing key set.
func NewIDTokenVerifierWithKeys(keys keyfunc.Keyfunc, clientID string) *IDTokenVerifier {
	return &IDTokenVerifier{keys: keys, clientID: clientID, now: time.Now}
}

// Verify validates the signature, audience, issuer and expiry of an
// id_token and checks that it belongs to wantSub.
func (v *IDTokenVerifier) Verify(idToken, wantSub string) (*IDTokenClaims, error) {
	claims := &IDTokenClaims{}
	_, err := jwt.ParseWithClaims(idToken, claims, v.keys.Keyfunc,
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithAudience(v.clientID),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, idTokenError(err.Error(), err)
	}
	if !googleIssuers[claims.Issuer] {
		return nil, idTokenError(fmt.Sprintf("unexpected issuer %q", claims.Issuer), nil)
	}
	if claims.Subject == "" || claims.Subject != wantSub {
		return nil, idTokenError("subject does not match user info", nil)
	}
	return claims, nil
}

func idTokenError(reason string, err error) *Error {
	return &Error{
		Code:    CodeIDTokenInvalid,
		Message: "Invalid ID token: " + reason,
		Err:     err,
	}
}
