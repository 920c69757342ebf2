package middleware

import (
	"context"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/angelmondragon/partstrack-backend/pkg/logger"
)

type contextKey string

const (
	ctxActor contextKey = "actor_name"

	actorHeader    = "X-Actor-Name"
	defaultActor   = "System"
	maxActorLength = 120
)

// ActorFromContext returns the acting user's display name, or "System" when
// the request carried none.
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return defaultActor
	}
	if v, ok := ctx.Value(ctxActor).(string); ok && v != "" {
		return v
	}
	return defaultActor
}

// WithActor injects the actor name into the context.
func WithActor(ctx context.Context, actor string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

// Actor reads X-Actor-Name and stores it on the request context and log fields.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := strings.TrimSpace(r.Header.Get(actorHeader))
			if utf8.RuneCountInString(actor) > maxActorLength {
				actor = strings.TrimSpace(string([]rune(actor)[:maxActorLength]))
			}
			if actor == "" {
				actor = defaultActor
			}
			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
