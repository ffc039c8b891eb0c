package utils

import (
	"context"

	"local-services/internal/data/entity"

	"github.com/google/uuid"
)

type contextKey string

const sessionKey contextKey = "session"

// Session is the authenticated caller attached to a request by the auth middleware.
type Session struct {
	UserID uuid.UUID
	Role   entity.Role
}

func SetSession(ctx context.Context, session Session) context.Context {
	return context.WithValue(ctx, sessionKey, session)
}

func GetSession(ctx context.Context) (Session, bool) {
	session, ok := ctx.Value(sessionKey).(Session)
	if !ok || session.UserID == uuid.Nil {
		return Session{}, false
	}
	return session, true
}
