package secctx

import (
	"context"
	"net/http"
	"strings"

	"github.com/shaj13/go-guardian/v2/auth"
)

type contextKey string

const secCtxKey contextKey = "secCtx"

const (
	AuthMethodApiKey    = "api-key"
	AuthMethodJwt       = "jwt"
	AuthMethodAnonymous = "anonymous"
	AuthMethodSystem    = "system"

	// AuthMethodExt is the go-guardian user extension that carries the auth method.
	AuthMethodExt = "authMethod"
)

const AccessTokenCookieName = "contract-validator-access-token"

type securityContextImpl struct {
	userId     string
	token      string
	authMethod string
	isSystem   bool
}

func MakeUserContext(r *http.Request) context.Context {
	user := auth.User(r)
	if user == nil {
		return MakeAnonymousContext(r.Context())
	}
	method := user.GetExtensions().Get(AuthMethodExt)
	if method == "" {
		method = AuthMethodJwt
	}
	return context.WithValue(r.Context(), secCtxKey, securityContextImpl{
		userId:     user.GetID(),
		token:      GetAuthorizationToken(r),
		authMethod: method,
	})
}

func MakeAnonymousContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, secCtxKey, securityContextImpl{userId: "anonymous", authMethod: AuthMethodAnonymous})
}

func MakeSysadminContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, secCtxKey, securityContextImpl{userId: "system", authMethod: AuthMethodSystem, isSystem: true})
}

// GetAuthorizationToken returns the bearer token from the Authorization header or the access token cookie.
func GetAuthorizationToken(r *http.Request) string {
	if token := getTokenFromAuthHeader(r); token != "" {
		return token
	}
	return getTokenFromCookie(r)
}

func getTokenFromAuthHeader(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		return ""
	}
	return strings.TrimSpace(authHeader[7:])
}

func getTokenFromCookie(r *http.Request) string {
	accessTokenCookie, err := r.Cookie(AccessTokenCookieName)
	if err != nil {
		return ""
	}
	return accessTokenCookie.Value
}

func get(ctx context.Context) (securityContextImpl, bool) {
	val, ok := ctx.Value(secCtxKey).(securityContextImpl)
	return val, ok
}

func IsSystem(ctx context.Context) bool {
	val, _ := get(ctx)
	return val.isSystem
}

func GetUserId(ctx context.Context) string {
	val, _ := get(ctx)
	return val.userId
}

func GetUserToken(ctx context.Context) string {
	val, _ := get(ctx)
	return val.token
}

func GetAuthMethod(ctx context.Context) string {
	val, _ := get(ctx)
	return val.authMethod
}
