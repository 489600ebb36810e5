// Package execution records per-invocation rows in the function_executions
// table so every computation can be traced back from the admin side.
package execution

import (
	"context"
	"time"

	"github.com/google/uuid"

	shared "github.com/stridelab/server/pkg"
	"github.com/stridelab/server/pkg/types"
)

const (
	StatusStarted = "STATUS_STARTED"
	StatusSuccess = "STATUS_SUCCESS"
	StatusFailure = "STATUS_FAILURE"
)

// ExecutionOptions carries optional metadata extracted from the request.
type ExecutionOptions struct {
	UserID      string
	TriggerType string
}

// LogStart inserts a STARTED row and returns the new execution ID.
func LogStart(ctx context.Context, db shared.Database, serviceName string, opts ExecutionOptions) (string, error) {
	id := uuid.NewString()
	record := &types.ExecutionRecord{
		ID:          id,
		Service:     serviceName,
		UserID:      opts.UserID,
		TriggerType: opts.TriggerType,
		Status:      StatusStarted,
		StartedAt:   time.Now().UTC(),
	}
	if err := db.InsertExecution(ctx, record); err != nil {
		return id, err
	}
	return id, nil
}

// LogSuccess marks an execution as completed.
func LogSuccess(ctx context.Context, db shared.Database, id string) error {
	return db.UpdateExecution(ctx, id, map[string]interface{}{
		"status":      StatusSuccess,
		"finished_at": time.Now().UTC(),
	})
}

// LogFailure marks an execution as failed with its error message.
func LogFailure(ctx context.Context, db shared.Database, id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return db.UpdateExecution(ctx, id, map[string]interface{}{
		"status":      StatusFailure,
		"error":       msg,
		"finished_at": time.Now().UTC(),
	})
}
