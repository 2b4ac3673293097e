package utils

import (
	"context"

	"github.com/google/uuid"
)

type rqIDKey struct{}

type sessionIDKey struct{}

func GetRequestIDFromCtx(ctx context.Context) string {
	rqID, ok := ctx.Value(rqIDKey{}).(string)
	if !ok {
		return ""
	}
	return rqID
}

// CtxWithRqID stores rqID in ctx. A new uuid is generated when rqID is empty.
func CtxWithRqID(ctx context.Context, rqID string) context.Context {
	if rqID == "" {
		rqID = uuid.NewString()
	}
	return context.WithValue(ctx, rqIDKey{}, rqID)
}

func GetSessionIDFromCtx(ctx context.Context) string {
	sessionID, ok := ctx.Value(sessionIDKey{}).(string)
	if !ok {
		return ""
	}
	return sessionID
}

func CtxWithSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey{}, sessionID)
}
