package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Actor is the verified identity behind a request.
type Actor struct {
	UserID snowflake.ID
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// UserRef returns the user id for attribution, or nil for non-user actors.
func (a Actor) UserRef() *snowflake.ID {
	if a.UserID == 0 {
		return nil
	}
	id := a.UserID
	return &id
}

type key string

var actorKey key = "actor"

func WithActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, actorKey, actor)
}

func ActorFromContext(ctx context.Context) (Actor, bool) {
	actor, ok := ctx.Value(actorKey).(Actor)
	return actor, ok
}
