package interceptor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// ContextKey type for context keys
type ContextKey string

const (
	RequestIDKey ContextKey = "request_id"

	requestIDMetadata = "x-request-id"
)

// LoggingInterceptor logs every RPC and converts panics into Internal
// errors.
type LoggingInterceptor struct {
	log logrus.FieldLogger
	// quietMethods are logged at debug level, e.g. health probes.
	quietMethods map[string]bool
}

func NewLoggingInterceptor(log logrus.FieldLogger, quietMethods []string) *LoggingInterceptor {
	methodMap := make(map[string]bool)
	for _, method := range quietMethods {
		methodMap[method] = true
	}

	return &LoggingInterceptor{
		log:          log,
		quietMethods: methodMap,
	}
}

// Unary returns a server interceptor function to log unary RPC
func (interceptor *LoggingInterceptor) Unary() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()
		ctx = withRequestID(ctx)

		defer func() {
			if p := recover(); p != nil {
				interceptor.log.WithFields(logrus.Fields{
					"method": info.FullMethod,
					"panic":  p,
				}).Error("Recovered from panic")
				err = status.Error(codes.Internal, "internal server error")
			}
			interceptor.logCall(ctx, info.FullMethod, start, err)
		}()

		return handler(ctx, req)
	}
}

// Stream returns a server interceptor function to log stream RPC
func (interceptor *LoggingInterceptor) Stream() grpc.StreamServerInterceptor {
	return func(
		srv interface{},
		stream grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) (err error) {
		start := time.Now()
		ctx := withRequestID(stream.Context())
		wrapped := &wrappedStream{
			ServerStream: stream,
			ctx:          ctx,
		}

		defer func() {
			if p := recover(); p != nil {
				interceptor.log.WithFields(logrus.Fields{
					"method": info.FullMethod,
					"panic":  p,
				}).Error("Recovered from panic")
				err = status.Error(codes.Internal, "internal server error")
			}
			interceptor.logCall(ctx, info.FullMethod, start, err)
		}()

		return handler(srv, wrapped)
	}
}

func (interceptor *LoggingInterceptor) logCall(ctx context.Context, method string, start time.Time, err error) {
	entry := interceptor.log.WithFields(logrus.Fields{
		"method":     method,
		"code":       status.Code(err).String(),
		"duration":   time.Since(start),
		"request_id": GetRequestIDFromContext(ctx),
	})

	switch {
	case err != nil:
		entry.WithError(err).Warn("RPC failed")
	case interceptor.quietMethods[method]:
		entry.Debug("RPC completed")
	default:
		entry.Info("RPC completed")
	}
}

// withRequestID reuses the caller's x-request-id or generates one.
func withRequestID(ctx context.Context) context.Context {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if values := md[requestIDMetadata]; len(values) > 0 {
			id = values[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	return context.WithValue(ctx, RequestIDKey, id)
}

// wrappedStream wraps grpc.ServerStream with a custom context
type wrappedStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedStream) Context() context.Context {
	return w.ctx
}

// GetRequestIDFromContext extracts the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}
