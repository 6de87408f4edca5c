package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// Codec errors. Verification failures collapse into exactly two categories:
// the token was valid once but has expired, or it was never valid. Callers
// distinguish them with errors.Is.
var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

// SessionClaims is the payload of a session token. It exists only in
// transit (cookie, Authorization header) and in memory during verification;
// the server persists its fingerprint, never the raw token.
type SessionClaims struct {
	Scopes []string `json:"scopes"`
	Name   string   `json:"name,omitempty"`
	Type   string   `json:"type"`
	jwt.RegisteredClaims
}

// Signer creates and verifies signed session tokens. Implementations must
// be safe for concurrent use; Sign and Verify hold no mutable state.
type Signer interface {
	Sign(claims SessionClaims, expires time.Time) (string, error)
	Verify(rawToken string) (*SessionClaims, error)
}

// HMACSigner implements Signer with a symmetric server-held secret.
// The algorithm is pinned at construction; tokens presenting any other
// "alg" header fail verification.
type HMACSigner struct {
	secret []byte
	method *jwt.SigningMethodHMAC
}

// NewHMACSigner creates a signer for the given secret and algorithm
// identifier ("HS256", "HS384" or "HS512"). The algorithm is part of the
// deployment's configuration contract; an unknown identifier is an error so
// a typo surfaces at startup instead of silently signing with a different
// method.
func NewHMACSigner(secret string, algorithm string) (*HMACSigner, error) {
	var method *jwt.SigningMethodHMAC
	switch algorithm {
	case "HS256":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, errors.Errorf("[NewHMACSigner] unsupported signing algorithm %q (valid: HS256, HS384, HS512)", algorithm)
	}
	return &HMACSigner{
		secret: []byte(secret),
		method: method,
	}, nil
}

func (h *HMACSigner) Sign(claims SessionClaims, expires time.Time) (string, error) {
	claims.ExpiresAt = jwt.NewNumericDate(expires)
	signedToken, err := jwt.NewWithClaims(h.method, claims).SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign session token")
	}
	return signedToken, nil
}

func (h *HMACSigner) Verify(rawToken string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(rawToken, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return h.secret, nil
	}, jwt.WithValidMethods([]string{h.method.Alg()}))

	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case err != nil:
		return nil, errors.Wrap(ErrTokenMalformed, err.Error())
	case !parsed.Valid:
		return nil, ErrTokenMalformed
	}

	if claims.Subject == "" || claims.ExpiresAt == nil || claims.Type == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
