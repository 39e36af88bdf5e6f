package middleware

import (
	"context"
	"net/http"
	"strings"
)

// ActorHeader carries the id of the user acting on the request. Authentication
// happens upstream; the API only records who did what.
const ActorHeader = "X-Actor-ID"

const maxActorLength = 100

type actorKey struct{}

// WithActor returns a copy of ctx carrying the actor id
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the actor id, or "" when the request had none
func ActorFromContext(ctx context.Context) string {
	actor, _ := ctx.Value(actorKey{}).(string)
	return actor
}

// Actor copies the X-Actor-ID header into the request context. Requests
// without it pass through; mutating services reject an empty actor.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := strings.TrimSpace(r.Header.Get(ActorHeader))
		if len(actor) > maxActorLength {
			actor = actor[:maxActorLength]
		}
		if actor != "" {
			r = r.WithContext(WithActor(r.Context(), actor))
		}
		next.ServeHTTP(w, r)
	})
}
