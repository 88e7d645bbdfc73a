package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/settleup/internal/metrics"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// and records its outcome in the RPC metrics.
// It logs the procedure name, user ID, duration, and any error codes/messages.
func LoggingInterceptor(logger *slog.Logger) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			userID := GetUserID(ctx)
			elapsed := time.Since(start)
			duration := elapsed.Milliseconds()
			metrics.RPCDuration.WithLabelValues(procedure).Observe(elapsed.Seconds())

			if err != nil {
				code := connect.CodeOf(err)
				metrics.RPCRequests.WithLabelValues(procedure, code.String()).Inc()

				var connectErr *connect.Error
				if errors.As(err, &connectErr) && code != connect.CodeInternal && code != connect.CodeUnknown {
					logger.Warn("RPC error",
						"procedure", procedure,
						"code", code,
						"error", connectErr.Message(),
						"user_id", userID,
						"duration_ms", duration,
					)
				} else {
					logger.Error("RPC error",
						"procedure", procedure,
						"code", code,
						"error", err,
						"user_id", userID,
						"duration_ms", duration,
					)
				}
				return resp, err
			}

			metrics.RPCRequests.WithLabelValues(procedure, "ok").Inc()
			logger.Info("RPC ok",
				"procedure", procedure,
				"user_id", userID,
				"duration_ms", duration,
			)
			return resp, err
		}
	}
}
