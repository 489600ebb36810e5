package overtrainingbatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/stridelab/server/functions/overtraining"
	"github.com/stridelab/server/pkg/bootstrap"
	riskcalc "github.com/stridelab/server/pkg/domain/overtraining"
	"github.com/stridelab/server/pkg/framework"
	"github.com/stridelab/server/pkg/types"
)

const (
	defaultBatchSize           = 20
	defaultDaysActiveThreshold = 30

	// maxLoggedErrors caps the error list stored on the batch log row.
	maxLoggedErrors = 100
)

// interBatchDelay spaces batches out to keep database pressure flat. Tests
// shorten it.
var interBatchDelay = 1500 * time.Millisecond

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.HTTP("RunOvertrainingBatch", RunOvertrainingBatch)
}

func initService(ctx context.Context) (*bootstrap.Service, error) {
	if svc != nil {
		return svc, nil
	}
	svcOnce.Do(func() {
		svc, svcErr = bootstrap.NewService(ctx)
		if svcErr != nil {
			slog.Error("Failed to initialize service", "error", svcErr)
		}
	})
	return svc, svcErr
}

// RunOvertrainingBatch is the entry point
func RunOvertrainingBatch(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, "service init failed", http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("calculate-overtraining-batch", svc, batchHandler)(w, r)
}

type Request struct {
	BatchSize           int `json:"batch_size,omitempty"`
	DaysActiveThreshold int `json:"days_active_threshold,omitempty"`
	DaysToAnalyze       int `json:"days_to_analyze,omitempty"`
}

type Response struct {
	LogID                  string             `json:"log_id"`
	Status                 string             `json:"status"`
	TotalUsersProcessed    int                `json:"total_users_processed"`
	SuccessfulCalculations int                `json:"successful_calculations"`
	FailedCalculations     int                `json:"failed_calculations"`
	ExecutionTimeSeconds   float64            `json:"execution_time_seconds"`
	Errors                 []types.BatchError `json:"errors"`
}

func (r Response) Outcome() string {
	if r.TotalUsersProcessed == 0 {
		return "not_applicable"
	}
	return "success"
}

// batchHandler contains the business logic
func batchHandler(ctx context.Context, body []byte, fwCtx *framework.FrameworkContext) (interface{}, error) {
	var req Request
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, framework.BadRequest("invalid JSON body: %v", err)
		}
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	daysActive := req.DaysActiveThreshold
	if daysActive <= 0 {
		daysActive = defaultDaysActiveThreshold
	}
	daysToAnalyze := req.DaysToAnalyze
	if daysToAnalyze <= 0 {
		daysToAnalyze = riskcalc.DefaultDaysToAnalyze
	}

	db := fwCtx.Service.DB
	started := time.Now().UTC()

	logID, err := db.InsertBatchRunLog(ctx, &types.BatchRunLog{
		Status:              "running",
		BatchSize:           batchSize,
		DaysActiveThreshold: daysActive,
		StartedAt:           started,
	})
	if err != nil {
		return nil, fmt.Errorf("creating batch log: %w", err)
	}

	userIDs, err := db.ListActiveUserIDs(ctx, started.AddDate(0, 0, -daysActive))
	if err != nil {
		markFailed(ctx, fwCtx, logID, err)
		return nil, fmt.Errorf("fetching active users: %w", err)
	}
	fwCtx.Logger.Info("Starting batch processing",
		"active_users", len(userIDs),
		"batch_size", batchSize,
		"days_active_threshold", daysActive)

	successCount, failCount := 0, 0
	var errs []types.BatchError
	var mu sync.Mutex

	for i := 0; i < len(userIDs); i += batchSize {
		end := i + batchSize
		if end > len(userIDs) {
			end = len(userIDs)
		}
		batch := userIDs[i:end]
		fwCtx.Logger.Info("Processing batch",
			"batch", i/batchSize+1,
			"users", len(batch))

		var wg sync.WaitGroup
		for _, userID := range batch {
			wg.Add(1)
			go func(userID string) {
				defer wg.Done()
				_, _, err := overtraining.AnalyzeUser(ctx, fwCtx.Service, userID, daysToAnalyze)

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					failCount++
					errs = append(errs, types.BatchError{UserID: userID, Error: err.Error()})
					return
				}
				successCount++
			}(userID)
		}
		wg.Wait()

		if end < len(userIDs) {
			select {
			case <-time.After(interBatchDelay):
			case <-ctx.Done():
				markFailed(ctx, fwCtx, logID, ctx.Err())
				return nil, ctx.Err()
			}
		}
	}

	elapsed := time.Since(started).Seconds()
	logged := errs
	if len(logged) > maxLoggedErrors {
		logged = logged[:maxLoggedErrors]
	}
	loggedJSON, err := json.Marshal(logged)
	if err != nil {
		loggedJSON = []byte("[]")
	}
	if err := db.UpdateBatchRunLog(ctx, logID, map[string]interface{}{
		"status":                  "completed",
		"completed_at":            time.Now().UTC(),
		"total_users_processed":   len(userIDs),
		"successful_calculations": successCount,
		"failed_calculations":     failCount,
		"execution_time_seconds":  elapsed,
		"errors":                  loggedJSON,
	}); err != nil {
		fwCtx.Logger.Warn("Failed to update batch log", "error", err)
	}

	fwCtx.Logger.Info("Batch processing completed",
		"successes", successCount,
		"failures", failCount,
		"execution_time_s", elapsed)

	return Response{
		LogID:                  logID,
		Status:                 "completed",
		TotalUsersProcessed:    len(userIDs),
		SuccessfulCalculations: successCount,
		FailedCalculations:     failCount,
		ExecutionTimeSeconds:   elapsed,
		Errors:                 errs,
	}, nil
}

func markFailed(ctx context.Context, fwCtx *framework.FrameworkContext, logID string, cause error) {
	err := fwCtx.Service.DB.UpdateBatchRunLog(ctx, logID, map[string]interface{}{
		"status":        "failed",
		"completed_at":  time.Now().UTC(),
		"error_message": cause.Error(),
	})
	if err != nil {
		fwCtx.Logger.Warn("Failed to mark batch log as failed", "error", err)
	}
}
