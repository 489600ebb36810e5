package framework

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/stridelab/server/pkg/bootstrap"
	"github.com/stridelab/server/pkg/execution"
	"github.com/stridelab/server/pkg/infrastructure/sentry"
	"github.com/stridelab/server/pkg/observability"
)

// FrameworkContext contains dependencies injected by the framework
type FrameworkContext struct {
	Service     *bootstrap.Service
	Logger      *slog.Logger
	ExecutionID string
}

// HandlerFunc is the signature for an analytics function handler. The raw
// request body is passed through so each function owns its request schema.
type HandlerFunc func(ctx context.Context, body []byte, fwCtx *FrameworkContext) (interface{}, error)

// Outcomer lets a response override the metrics outcome label, e.g. when a
// computation legitimately produced no result.
type Outcomer interface {
	Outcome() string
}

// StatusError carries an HTTP status code alongside the error. Plain errors
// map to 500.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string { return e.Err.Error() }
func (e *StatusError) Unwrap() error { return e.Err }

// BadRequest builds a 400-mapped error for missing or malformed parameters.
func BadRequest(format string, args ...interface{}) error {
	return &StatusError{Code: http.StatusBadRequest, Err: fmt.Errorf(format, args...)}
}

// ErrorResponse is the failure envelope shared by every function.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// WrapHTTP wraps a handler with CORS, logging, execution tracking, metrics and
// Sentry capture. All functions accept a JSON POST body and answer JSON.
func WrapHTTP(serviceName string, svc *bootstrap.Service, handler HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")

		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: "Method not allowed"})
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: "Failed to read request body"})
			return
		}

		userID := extractRequestMetadata(body)

		logger := bootstrap.NewLogger(serviceName)
		if userID != "" {
			logger = logger.With("user_id", userID)
		}

		execID, err := execution.LogStart(ctx, svc.DB, serviceName, execution.ExecutionOptions{
			UserID:      userID,
			TriggerType: "http",
		})
		if err != nil {
			logger.Error("Failed to log execution start", "error", err)
			// Continue anyway - don't fail the function just because logging failed
		}

		logger = logger.With("execution_id", execID)
		logger.Info("Function started")

		fwCtx := &FrameworkContext{
			Service:     svc,
			Logger:      logger,
			ExecutionID: execID,
		}

		started := time.Now()
		outputs, handlerErr := handler(ctx, body, fwCtx)
		elapsed := time.Since(started)

		if handlerErr != nil {
			logger.Error("Function failed", "error", handlerErr)
			observability.RecordComputation(serviceName, observability.OutcomeFailure, elapsed)

			var statusErr *StatusError
			code := http.StatusInternalServerError
			if errors.As(handlerErr, &statusErr) {
				code = statusErr.Code
			} else {
				sentry.CaptureException(handlerErr, map[string]interface{}{
					"service": serviceName,
					"user_id": userID,
				}, logger)
			}

			if logErr := execution.LogFailure(ctx, svc.DB, execID, handlerErr); logErr != nil {
				logger.Warn("Failed to log execution failure", "error", logErr)
			}

			w.WriteHeader(code)
			json.NewEncoder(w).Encode(ErrorResponse{Success: false, Error: handlerErr.Error()})
			return
		}

		outcome := observability.OutcomeSuccess
		if o, ok := outputs.(Outcomer); ok {
			outcome = o.Outcome()
		}
		observability.RecordComputation(serviceName, outcome, elapsed)

		logger.Info("Function completed successfully", "outcome", outcome, "duration_ms", elapsed.Milliseconds())

		if logErr := execution.LogSuccess(ctx, svc.DB, execID); logErr != nil {
			logger.Warn("Failed to log execution success", "error", logErr)
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(outputs)
	}
}

// extractRequestMetadata pulls user_id out of the request body for logging.
// Both snake_case and camelCase spellings appear in the wild.
func extractRequestMetadata(body []byte) string {
	var payload map[string]interface{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if uid, ok := payload["user_id"].(string); ok {
		return uid
	}
	if uid, ok := payload["userId"].(string); ok {
		return uid
	}
	return ""
}
