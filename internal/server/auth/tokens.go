// Package auth issues and validates the bearer tokens handed out at login.
//
// Tokens are HS256 JWTs carrying the principal id, email and role. Every
// token lives exactly TokenLifetime; there is no refresh. Validation failures
// of any kind collapse to common.ErrInvalidToken so callers cannot tell a bad
// signature from an expired token.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/volunteerhub/internal/common"
	"github.com/dmitrijs2005/volunteerhub/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenLifetime is the fixed validity window of an issued token.
const TokenLifetime = 365 * 24 * time.Hour

// ErrMissingSecret is returned when an Issuer or Validator is built without a key.
var ErrMissingSecret = errors.New("auth: signing secret is empty")

// Claims is the JWT payload.
type Claims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

// Identity is a decoded, signature-checked token.
type Identity struct {
	SubjectID string
	Email     string
	Role      models.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
	Token     string
}

// Option tweaks an Issuer or Validator.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides time.Now. Tests use it to mint or check tokens at a
// fixed instant.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Issuer signs new tokens.
type Issuer struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewIssuer returns an Issuer signing with secret. issuer may be empty, in
// which case the iss claim is omitted.
func NewIssuer(secret []byte, issuer string, opts ...Option) (*Issuer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	o := buildOptions(opts)
	return &Issuer{secret: secret, issuer: issuer, now: o.now}, nil
}

// Issue mints a token for the principal and returns it with its expiry.
func (i *Issuer) Issue(subjectID, email string, role models.Role) (string, time.Time, error) {
	if subjectID == "" {
		return "", time.Time{}, fmt.Errorf("issue token: empty subject")
	}
	if !role.Valid() {
		return "", time.Time{}, fmt.Errorf("issue token: invalid role %q", role)
	}

	// JWT numeric dates have second precision; truncate so the returned
	// expiry matches what a validator will decode.
	now := i.now().Truncate(time.Second)
	expiresAt := now.Add(TokenLifetime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        uuid.NewString(),
		},
		Email: email,
		Role:  role,
	})

	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Validator checks tokens produced by an Issuer with the same secret.
type Validator struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewValidator returns a Validator. When issuer is non-empty the iss claim
// must match it.
func NewValidator(secret []byte, issuer string, opts ...Option) (*Validator, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	o := buildOptions(opts)
	return &Validator{secret: secret, issuer: issuer, now: o.now}, nil
}

// Validate verifies signature, algorithm and expiry and decodes the claims.
// The role is decoded as-is; deciding what an unknown role means is left to
// the caller.
func (v *Validator) Validate(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, common.ErrInvalidToken
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, parserOpts...)
	if err != nil || !token.Valid {
		return Identity{}, common.ErrInvalidToken
	}
	if claims.Subject == "" || claims.ExpiresAt == nil {
		return Identity{}, common.ErrInvalidToken
	}

	id := Identity{
		SubjectID: claims.Subject,
		Email:     claims.Email,
		Role:      claims.Role,
		ExpiresAt: claims.ExpiresAt.Time,
		Token:     tokenString,
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	return id, nil
}
