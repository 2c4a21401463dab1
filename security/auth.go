package security

import (
	"context"
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/Netcracker/qubership-data-contract-validator/secctx"

	"github.com/shaj13/go-guardian/v2/auth"
	"github.com/shaj13/go-guardian/v2/auth/strategies/token"
	"github.com/shaj13/go-guardian/v2/auth/strategies/union"
	"github.com/shaj13/libcache"
	_ "github.com/shaj13/libcache/lru"
)

var strategy union.Union

const ApiKeyHeader = "api-key"

const apiKeyUserId = "api-key-user"

// Enabled reports whether SetupGoGuardian configured at least one strategy.
func Enabled() bool {
	return strategy != nil
}

// SetupGoGuardian registers the static api key strategy and the HS256 bearer/cookie strategy.
// Empty values disable the corresponding strategy; when both are empty requests stay unauthenticated.
func SetupGoGuardian(apiKey string, jwtSecret string) error {
	var strategies []auth.Strategy
	if apiKey != "" {
		cache := libcache.LRU.New(1000)
		cache.SetTTL(time.Minute * 60)
		cache.RegisterOnExpired(func(key, _ interface{}) {
			cache.Delete(key)
		})
		strategies = append(strategies, token.New(staticApiKeyAuthenticator(apiKey), cache, token.SetParser(token.XHeaderParser(ApiKeyHeader))))
	}
	if jwtSecret != "" {
		if len(jwtSecret) < 32 {
			return fmt.Errorf("jwt secret must be at least 32 bytes long")
		}
		strategies = append(strategies, NewHmacJwtStrategy([]byte(jwtSecret)))
	}
	if len(strategies) == 0 {
		strategy = nil
		return nil
	}
	strategy = union.New(strategies...)
	return nil
}

func staticApiKeyAuthenticator(apiKey string) token.AuthenticateFunc {
	return func(ctx context.Context, r *http.Request, value string) (auth.Info, time.Time, error) {
		if subtle.ConstantTimeCompare([]byte(value), []byte(apiKey)) != 1 {
			return nil, time.Time{}, fmt.Errorf("authentication failed: %v is not valid", ApiKeyHeader)
		}
		ext := auth.Extensions{}
		ext.Set(secctx.AuthMethodExt, secctx.AuthMethodApiKey)
		return auth.NewDefaultUser(apiKeyUserId, apiKeyUserId, []string{}, ext), time.Now().Add(time.Hour), nil
	}
}
