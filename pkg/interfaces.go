package shared

import (
	"context"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stridelab/server/pkg/types"
)

// --- Persistence Interfaces ---

type Database interface {
	// Execution log
	InsertExecution(ctx context.Context, record *types.ExecutionRecord) error
	UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error

	// Upstream activity data (read-only)
	GetActivity(ctx context.Context, userID, activityID, source string) (*types.ActivitySummary, error)
	ListDetailSamples(ctx context.Context, userID, activityID, source string) ([]types.DetailSample, error)
	ListActivitiesSince(ctx context.Context, userID string, since time.Time) ([]types.ActivitySummary, error)
	ListActiveUserIDs(ctx context.Context, activeSince time.Time) ([]string, error)
	ResolveUserID(ctx context.Context, activityID, source string) (string, error)

	// Pipeline results
	UpsertBestSegment(ctx context.Context, record *types.BestSegmentRecord) error
	UpsertChartData(ctx context.Context, record *types.ChartDataRecord) error
	UpsertCoordinates(ctx context.Context, record *types.CoordinateRecord) error
	ListChartData(ctx context.Context, userID string, activityIDs []string) ([]types.ChartDataRecord, error)
	UpsertPerformanceMetrics(ctx context.Context, record *types.PerformanceMetricsRecord) error
	InsertOvertrainingScore(ctx context.Context, record *types.OvertrainingScoreRecord) (string, error)
	UpsertWorkoutClassification(ctx context.Context, record *types.WorkoutClassificationRecord) error

	// Batch sweeps
	InsertBatchRunLog(ctx context.Context, logEntry *types.BatchRunLog) (string, error)
	UpdateBatchRunLog(ctx context.Context, id string, data map[string]interface{}) error
}

// --- Messaging Interfaces ---

type Publisher interface {
	PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error)
}
