package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/orderlift/orderlift-backend/pkg/logger"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorHeader carries the identity of the user driving a request. The API
// sits behind the ERP's own auth layer, so the header is trusted as-is.
const ActorHeader = "X-Actor"

func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActor).(string); ok {
		return v
	}
	return ""
}

// WithActor injects the actor identifier into the context.
func WithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// Actor copies the X-Actor header into the request context and onto the
// request logger so downstream audit fields line up.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := strings.TrimSpace(r.Header.Get(ActorHeader))
			if actor == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
