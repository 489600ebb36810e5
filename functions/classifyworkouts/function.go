package classifyworkouts

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	shared "github.com/stridelab/server/pkg"
	"github.com/stridelab/server/pkg/bootstrap"
	"github.com/stridelab/server/pkg/domain/classify"
	"github.com/stridelab/server/pkg/framework"
	"github.com/stridelab/server/pkg/infrastructure/pubsub"
	"github.com/stridelab/server/pkg/types"
)

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.HTTP("ClassifyWorkouts", ClassifyWorkouts)
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

// ClassifyWorkouts is the entry point
func ClassifyWorkouts(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, "service init failed", http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("classify-workouts", svc, classifyHandler)(w, r)
}

// Request filters which chart rows get classified. ActivityID accepts a
// single ID or a list of IDs.
type Request struct {
	UserID     string          `json:"user_id"`
	ActivityID json.RawMessage `json:"activity_id,omitempty"`
}

// activityIDs normalizes the activity_id field into a slice.
func (r Request) activityIDs() ([]string, error) {
	if len(r.ActivityID) == 0 || string(r.ActivityID) == "null" {
		return nil, nil
	}
	var single string
	if err := json.Unmarshal(r.ActivityID, &single); err == nil {
		return []string{single}, nil
	}
	var many []string
	if err := json.Unmarshal(r.ActivityID, &many); err == nil {
		return many, nil
	}
	return nil, fmt.Errorf("activity_id must be a string or an array of strings")
}

// ClassificationResult is one per-activity outcome. Type is "error" for rows
// that failed to persist; the sweep continues past them.
type ClassificationResult struct {
	UserID     string                      `json:"user_id"`
	ActivityID string                      `json:"activity_id"`
	Type       string                      `json:"type"`
	Metrics    types.ClassificationMetrics `json:"metrics"`
	Error      string                      `json:"error,omitempty"`
}

type Response struct {
	Success   bool                   `json:"success"`
	Processed int                    `json:"processed"`
	Results   []ClassificationResult `json:"results"`
}

func (r Response) Outcome() string {
	if r.Processed == 0 {
		return "not_applicable"
	}
	return "success"
}

// classifyHandler contains the business logic
func classifyHandler(ctx context.Context, body []byte, fwCtx *framework.FrameworkContext) (interface{}, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, framework.BadRequest("invalid JSON body: %v", err)
	}

	ids, err := req.activityIDs()
	if err != nil {
		return nil, framework.BadRequest("%v", err)
	}

	// Nothing to filter on means nothing to do; that is a valid no-op.
	if req.UserID == "" && len(ids) == 0 {
		return Response{Success: true, Results: []ClassificationResult{}}, nil
	}

	db := fwCtx.Service.DB

	rows, err := db.ListChartData(ctx, req.UserID, ids)
	if err != nil {
		return nil, fmt.Errorf("fetching chart data: %w", err)
	}

	results := make([]ClassificationResult, 0, len(rows))
	for _, row := range rows {
		metrics := classify.AggregateSeries(row.Series)
		workoutType := classify.Classify(metrics)

		record := &types.WorkoutClassificationRecord{
			UserID:              row.UserID,
			ActivityID:          row.ActivityID,
			DetectedWorkoutType: workoutType,
			Metrics:             metrics,
			UpdatedAt:           time.Now().UTC(),
		}
		if err := db.UpsertWorkoutClassification(ctx, record); err != nil {
			fwCtx.Logger.Warn("Failed to persist classification",
				"activity_id", row.ActivityID, "error", err)
			results = append(results, ClassificationResult{
				UserID:     row.UserID,
				ActivityID: row.ActivityID,
				Type:       "error",
				Error:      err.Error(),
			})
			continue
		}

		results = append(results, ClassificationResult{
			UserID:     row.UserID,
			ActivityID: row.ActivityID,
			Type:       workoutType,
			Metrics:    metrics,
		})
	}

	if len(results) > 0 {
		evt, err := pubsub.NewCloudEvent("classify-workouts", pubsub.EventTypeWorkoutClassified, map[string]interface{}{
			"user_id":   req.UserID,
			"processed": len(results),
		})
		if err != nil {
			fwCtx.Logger.Warn("Failed to build event", "error", err)
		} else if _, err := fwCtx.Service.Pub.PublishCloudEvent(ctx, shared.TopicWorkoutClassified, evt); err != nil {
			fwCtx.Logger.Warn("Failed to publish event", "error", err)
		}
	}

	fwCtx.Logger.Info("Classification sweep finished", "processed", len(results))

	return Response{Success: true, Processed: len(results), Results: results}, nil
}
