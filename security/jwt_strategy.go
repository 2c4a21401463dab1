package security

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Netcracker/qubership-data-contract-validator/secctx"

	"github.com/shaj13/go-guardian/v2/auth"
	"gopkg.in/square/go-jose.v2"
	"gopkg.in/square/go-jose.v2/jwt"
)

type userClaims struct {
	jwt.Claims
	Name string `json:"name,omitempty"`
}

// NewHmacJwtStrategy accepts HS256 tokens from the Authorization header or the access token cookie.
func NewHmacJwtStrategy(secret []byte) auth.Strategy {
	return &hmacJwtStrategyImpl{secret: secret, now: time.Now}
}

type hmacJwtStrategyImpl struct {
	secret []byte
	now    func() time.Time
}

func (s hmacJwtStrategyImpl) Authenticate(ctx context.Context, r *http.Request) (auth.Info, error) {
	raw := secctx.GetAuthorizationToken(r)
	if raw == "" {
		return nil, fmt.Errorf("authentication failed: bearer token not found")
	}
	jt, err := jwt.ParseSigned(raw)
	if err != nil {
		return nil, fmt.Errorf("token parse error: %w", err)
	}
	if len(jt.Headers) != 1 || jt.Headers[0].Algorithm != string(jose.HS256) {
		return nil, fmt.Errorf("authentication failed: unsupported token algorithm")
	}
	var claims userClaims
	if err := jt.Claims(s.secret, &claims); err != nil {
		return nil, fmt.Errorf("claims extraction error: %w", err)
	}
	if err := claims.ValidateWithLeeway(jwt.Expected{Time: s.now()}, jwt.DefaultLeeway); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("authentication failed: token has no subject")
	}
	name := claims.Name
	if name == "" {
		name = claims.Subject
	}
	ext := auth.Extensions{}
	ext.Set(secctx.AuthMethodExt, secctx.AuthMethodJwt)
	return auth.NewDefaultUser(name, claims.Subject, []string{}, ext), nil
}
