package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pipelinecrm/go-auth-client/tokenstore"
)

// TokenExpiry decodes the stored access token's exp claim without verifying
// its signature. The client treats tokens as opaque credentials and never
// validates them - this is informational only, for display or refresh
// scheduling hints. Returns false when no token is stored, the token is not
// a JWT, or it carries no exp claim.
func (s *Service) TokenExpiry() (time.Time, bool) {
	raw, ok := s.store.Get(tokenstore.FieldAccessToken)
	if !ok {
		return time.Time{}, false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, false
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
