package security

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/oshokin/catpoint/internal/logger"
)

// ActorMetadataKey carries the "user@host" of the caller for audit logging.
const ActorMetadataKey = "x-catpoint-actor"

// LoggingInterceptor scopes the request logger with the method and caller
// and logs the outcome of every call.
func LoggingInterceptor(
	ctx context.Context,
	req any,
	info *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	ctx = logger.WithKV(ctx, "method", info.FullMethod)

	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if actors := md.Get(ActorMetadataKey); len(actors) > 0 {
			ctx = logger.WithKV(ctx, "actor", actors[0])
		}
	}

	started := time.Now()
	resp, err := handler(ctx, req)

	if err != nil {
		logger.WarnKV(ctx, "RPC failed", "code", status.Code(err), "duration", time.Since(started), "error", err)
	} else {
		logger.DebugKV(ctx, "RPC served", "duration", time.Since(started))
	}

	return resp, err
}
