package grpc

import (
	"context"
	"time"

	"github.com/dmitrijs2005/kosync/internal/common"
	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

type ctxKey string

const correlationIDKey ctxKey = "correlationID"

// CorrelationID returns the id assigned to the current call, if any.
func CorrelationID(ctx context.Context) string {
	v, _ := ctx.Value(correlationIDKey).(string)
	return v
}

// correlationID takes the caller's x-correlation-id or generates a new one.
func correlationID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md.Get(common.CorrelationIDHeaderName); len(values) > 0 && values[0] != "" {
			return values[0]
		}
	}
	return uuid.NewString()
}

func (s *GRPCServer) correlationUnaryInterceptor(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
	id := correlationID(ctx)
	ctx = context.WithValue(ctx, correlationIDKey, id)
	_ = grpc.SetHeader(ctx, metadata.Pairs(common.CorrelationIDHeaderName, id))

	start := time.Now()
	resp, err := handler(ctx, req)

	s.logger.Debug(ctx, "grpc call",
		"method", info.FullMethod,
		"correlation_id", id,
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return resp, err
}

type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context { return w.ctx }

func (s *GRPCServer) correlationStreamInterceptor(srv interface{}, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	id := correlationID(ss.Context())
	ctx := context.WithValue(ss.Context(), correlationIDKey, id)
	_ = ss.SetHeader(metadata.Pairs(common.CorrelationIDHeaderName, id))

	start := time.Now()
	err := handler(srv, &wrappedStream{ServerStream: ss, ctx: ctx})

	s.logger.Debug(ctx, "grpc stream",
		"method", info.FullMethod,
		"correlation_id", id,
		"code", status.Code(err).String(),
		"duration", time.Since(start))
	return err
}
