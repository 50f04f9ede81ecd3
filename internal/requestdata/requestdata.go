package requestdata

import (
	"context"
)

type contextKey struct{}

var requestDataKey = contextKey{}

// RequestData carries the authenticated caller identity through the request
// context. The identity is an opaque string issued by the auth service.
type RequestData struct {
	TokenString string
	UserID      string
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if rd, ok := ctx.Value(requestDataKey).(*RequestData); ok {
		return rd
	}
	return nil
}
