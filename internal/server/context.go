// internal/server/context.go
package server

import (
	"context"

	"logininfo/internal/settings"
)

type contextKey string

const (
	contextKeyActor     contextKey = "actor"
	contextKeySessionID contextKey = "sessionID"
)

func withActor(ctx context.Context, actor settings.Actor, sessionID string) context.Context {
	ctx = context.WithValue(ctx, contextKeyActor, actor)
	return context.WithValue(ctx, contextKeySessionID, sessionID)
}

// getActor returns the authenticated actor stored by the auth middleware.
func getActor(ctx context.Context) (settings.Actor, bool) {
	actor, ok := ctx.Value(contextKeyActor).(settings.Actor)
	return actor, ok
}

func getSessionID(ctx context.Context) string {
	id, _ := ctx.Value(contextKeySessionID).(string)
	return id
}
