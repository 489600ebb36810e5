package mocks

import (
	"context"
	"time"

	"github.com/cloudevents/sdk-go/v2/event"
	"github.com/stridelab/server/pkg/types"
)

// --- Mock Database ---
type MockDatabase struct {
	InsertExecutionFunc             func(ctx context.Context, record *types.ExecutionRecord) error
	UpdateExecutionFunc             func(ctx context.Context, id string, data map[string]interface{}) error
	GetActivityFunc                 func(ctx context.Context, userID, activityID, source string) (*types.ActivitySummary, error)
	ListDetailSamplesFunc           func(ctx context.Context, userID, activityID, source string) ([]types.DetailSample, error)
	ListActivitiesSinceFunc         func(ctx context.Context, userID string, since time.Time) ([]types.ActivitySummary, error)
	ListActiveUserIDsFunc           func(ctx context.Context, activeSince time.Time) ([]string, error)
	ResolveUserIDFunc               func(ctx context.Context, activityID, source string) (string, error)
	UpsertBestSegmentFunc           func(ctx context.Context, record *types.BestSegmentRecord) error
	UpsertChartDataFunc             func(ctx context.Context, record *types.ChartDataRecord) error
	UpsertCoordinatesFunc           func(ctx context.Context, record *types.CoordinateRecord) error
	ListChartDataFunc               func(ctx context.Context, userID string, activityIDs []string) ([]types.ChartDataRecord, error)
	UpsertPerformanceMetricsFunc    func(ctx context.Context, record *types.PerformanceMetricsRecord) error
	InsertOvertrainingScoreFunc     func(ctx context.Context, record *types.OvertrainingScoreRecord) (string, error)
	UpsertWorkoutClassificationFunc func(ctx context.Context, record *types.WorkoutClassificationRecord) error
	InsertBatchRunLogFunc           func(ctx context.Context, logEntry *types.BatchRunLog) (string, error)
	UpdateBatchRunLogFunc           func(ctx context.Context, id string, data map[string]interface{}) error
}

func (m *MockDatabase) InsertExecution(ctx context.Context, record *types.ExecutionRecord) error {
	if m.InsertExecutionFunc != nil {
		return m.InsertExecutionFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateExecutionFunc != nil {
		return m.UpdateExecutionFunc(ctx, id, data)
	}
	return nil
}
func (m *MockDatabase) GetActivity(ctx context.Context, userID, activityID, source string) (*types.ActivitySummary, error) {
	if m.GetActivityFunc != nil {
		return m.GetActivityFunc(ctx, userID, activityID, source)
	}
	return nil, nil
}
func (m *MockDatabase) ListDetailSamples(ctx context.Context, userID, activityID, source string) ([]types.DetailSample, error) {
	if m.ListDetailSamplesFunc != nil {
		return m.ListDetailSamplesFunc(ctx, userID, activityID, source)
	}
	return nil, nil
}
func (m *MockDatabase) ListActivitiesSince(ctx context.Context, userID string, since time.Time) ([]types.ActivitySummary, error) {
	if m.ListActivitiesSinceFunc != nil {
		return m.ListActivitiesSinceFunc(ctx, userID, since)
	}
	return nil, nil
}
func (m *MockDatabase) ListActiveUserIDs(ctx context.Context, activeSince time.Time) ([]string, error) {
	if m.ListActiveUserIDsFunc != nil {
		return m.ListActiveUserIDsFunc(ctx, activeSince)
	}
	return nil, nil
}
func (m *MockDatabase) ResolveUserID(ctx context.Context, activityID, source string) (string, error) {
	if m.ResolveUserIDFunc != nil {
		return m.ResolveUserIDFunc(ctx, activityID, source)
	}
	return "", nil
}
func (m *MockDatabase) UpsertBestSegment(ctx context.Context, record *types.BestSegmentRecord) error {
	if m.UpsertBestSegmentFunc != nil {
		return m.UpsertBestSegmentFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) UpsertChartData(ctx context.Context, record *types.ChartDataRecord) error {
	if m.UpsertChartDataFunc != nil {
		return m.UpsertChartDataFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) UpsertCoordinates(ctx context.Context, record *types.CoordinateRecord) error {
	if m.UpsertCoordinatesFunc != nil {
		return m.UpsertCoordinatesFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) ListChartData(ctx context.Context, userID string, activityIDs []string) ([]types.ChartDataRecord, error) {
	if m.ListChartDataFunc != nil {
		return m.ListChartDataFunc(ctx, userID, activityIDs)
	}
	return nil, nil
}
func (m *MockDatabase) UpsertPerformanceMetrics(ctx context.Context, record *types.PerformanceMetricsRecord) error {
	if m.UpsertPerformanceMetricsFunc != nil {
		return m.UpsertPerformanceMetricsFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) InsertOvertrainingScore(ctx context.Context, record *types.OvertrainingScoreRecord) (string, error) {
	if m.InsertOvertrainingScoreFunc != nil {
		return m.InsertOvertrainingScoreFunc(ctx, record)
	}
	return "score-id", nil
}
func (m *MockDatabase) UpsertWorkoutClassification(ctx context.Context, record *types.WorkoutClassificationRecord) error {
	if m.UpsertWorkoutClassificationFunc != nil {
		return m.UpsertWorkoutClassificationFunc(ctx, record)
	}
	return nil
}
func (m *MockDatabase) InsertBatchRunLog(ctx context.Context, logEntry *types.BatchRunLog) (string, error) {
	if m.InsertBatchRunLogFunc != nil {
		return m.InsertBatchRunLogFunc(ctx, logEntry)
	}
	return "batch-log-id", nil
}
func (m *MockDatabase) UpdateBatchRunLog(ctx context.Context, id string, data map[string]interface{}) error {
	if m.UpdateBatchRunLogFunc != nil {
		return m.UpdateBatchRunLogFunc(ctx, id, data)
	}
	return nil
}

// --- Mock Publisher ---
type MockPublisher struct {
	PublishCloudEventFunc func(ctx context.Context, topic string, e event.Event) (string, error)
}

func (m *MockPublisher) PublishCloudEvent(ctx context.Context, topic string, e event.Event) (string, error) {
	if m.PublishCloudEventFunc != nil {
		return m.PublishCloudEventFunc(ctx, topic, e)
	}
	return "msg-id", nil
}
