package auth

import (
	"context"
	"slices"
	"strings"

	"github.com/dmitrijs2005/volunteerhub/internal/common"
	"github.com/dmitrijs2005/volunteerhub/internal/server/models"
)

// Authenticator resolves bearer tokens. Authenticate also consults the
// revocation list; Inspect only decodes.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (Identity, error)
	Inspect(token string) (Identity, error)
}

// Guard holds the transport-neutral authorization decisions. HTTP middleware
// and the gRPC interceptor translate its errors into status codes.
type Guard struct {
	authn Authenticator
}

func NewGuard(authn Authenticator) *Guard {
	return &Guard{authn: authn}
}

// BearerToken extracts the credential from an Authorization header value.
// The scheme is matched case-insensitively; an empty result means no token.
func BearerToken(header string) string {
	header = strings.TrimSpace(header)
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return ""
	}
	return strings.TrimSpace(token)
}

// Generic admits any live, unrevoked token whose role is known. Rejections
// are common.ErrUnauthorized, or common.ErrForbidden for a role outside the
// enum. Store failures are returned as is so the caller answers 500 rather
// than letting the request through.
func (g *Guard) Generic(ctx context.Context, token string) (Identity, error) {
	if token == "" {
		return Identity{}, common.ErrUnauthorized
	}
	id, err := g.authn.Authenticate(ctx, token)
	if err != nil {
		if common.Kind(err) == common.KindInternal {
			return Identity{}, err
		}
		return Identity{}, common.ErrUnauthorized
	}
	if !id.Role.Valid() {
		return Identity{}, common.ErrForbidden
	}
	return id, nil
}

// Role runs Generic and then requires the token's role to be one of roles.
func (g *Guard) Role(ctx context.Context, token string, roles ...models.Role) (Identity, error) {
	id, err := g.Generic(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if !slices.Contains(roles, id.Role) {
		return Identity{}, common.ErrForbidden
	}
	return id, nil
}

// Logout admits any decodable token whose role is known. It does not check
// revocation: logging out twice is allowed.
func (g *Guard) Logout(token string) (Identity, error) {
	if token == "" {
		return Identity{}, common.ErrMissingToken
	}
	id, err := g.authn.Inspect(token)
	if err != nil {
		return Identity{}, common.ErrInvalidToken
	}
	if !id.Role.Valid() {
		return Identity{}, common.ErrForbidden
	}
	return id, nil
}
