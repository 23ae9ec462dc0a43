package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dukahq/storefront-backend/pkg/config"
	"github.com/dukahq/storefront-backend/pkg/logger"
	"github.com/dukahq/storefront-backend/pkg/session"
)

const sessionHeader = "X-Cart-Session"

type sessionCtxKey struct{}

// SessionID returns the cart session id attached to the request context.
func SessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionCtxKey{}).(string); ok {
		return id
	}
	return ""
}

// CartSession identifies the guest cart session. A valid token on the request
// is honored; anything else gets a freshly minted session. The token is
// echoed on every response so clients can persist it.
func CartSession(cfg config.SessionConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := strings.TrimSpace(r.Header.Get(sessionHeader))
			sessionID := ""
			if token != "" {
				id, err := session.Parse(cfg, token)
				if err == nil {
					sessionID = id
				} else if logg != nil {
					logg.Warn(ctx, "rejecting invalid cart session token")
				}
			}

			if sessionID == "" {
				minted, id, err := session.Mint(cfg, time.Now(), "")
				if err != nil {
					if logg != nil {
						logg.Error(ctx, "minting cart session token", err)
					}
					http.Error(w, "unable to establish session", http.StatusInternalServerError)
					return
				}
				token = minted
				sessionID = id
			}

			w.Header().Set(sessionHeader, token)
			if logg != nil {
				ctx = logg.WithCartSession(ctx, sessionID)
			}
			ctx = context.WithValue(ctx, sessionCtxKey{}, sessionID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
