package overtrainingbatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stridelab/server/pkg/bootstrap"
	"github.com/stridelab/server/pkg/testing/mocks"
	"github.com/stridelab/server/pkg/types"
)

func setupService(db *mocks.MockDatabase) {
	svc = &bootstrap.Service{
		DB:     db,
		Pub:    &mocks.MockPublisher{},
		Config: &bootstrap.Config{},
	}
}

func post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte(body)))
	rec := httptest.NewRecorder()
	RunOvertrainingBatch(rec, req)
	return rec
}

func userActivities() []types.ActivitySummary {
	now := time.Now().UTC()
	return []types.ActivitySummary{
		{ActivityDate: now.AddDate(0, 0, -2), DurationSeconds: 3000, AverageHeartRate: 140, DistanceMeters: 8000},
		{ActivityDate: now.AddDate(0, 0, -10), DurationSeconds: 3000, AverageHeartRate: 140, DistanceMeters: 8000},
	}
}

func TestRunOvertrainingBatchSweep(t *testing.T) {
	interBatchDelay = time.Millisecond
	defer func() { interBatchDelay = 1500 * time.Millisecond }()

	users := make([]string, 25)
	for i := range users {
		users[i] = fmt.Sprintf("user-%d", i)
	}

	var mu sync.Mutex
	scored := map[string]int{}
	var logUpdates map[string]interface{}

	db := &mocks.MockDatabase{
		ListActiveUserIDsFunc: func(ctx context.Context, activeSince time.Time) ([]string, error) {
			return users, nil
		},
		ListActivitiesSinceFunc: func(ctx context.Context, userID string, since time.Time) ([]types.ActivitySummary, error) {
			if userID == "user-7" {
				return nil, nil // no activities, isolated failure
			}
			return userActivities(), nil
		},
		InsertOvertrainingScoreFunc: func(ctx context.Context, record *types.OvertrainingScoreRecord) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			scored[record.UserID]++
			return "score-id", nil
		},
		UpdateBatchRunLogFunc: func(ctx context.Context, id string, data map[string]interface{}) error {
			logUpdates = data
			return nil
		},
	}
	setupService(db)

	rec := post(t, `{"batch_size":10}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "completed" {
		t.Errorf("Status = %s, want completed", resp.Status)
	}
	if resp.TotalUsersProcessed != 25 {
		t.Errorf("TotalUsersProcessed = %d, want 25", resp.TotalUsersProcessed)
	}
	if resp.SuccessfulCalculations != 24 {
		t.Errorf("Successes = %d, want 24", resp.SuccessfulCalculations)
	}
	if resp.FailedCalculations != 1 {
		t.Errorf("Failures = %d, want 1", resp.FailedCalculations)
	}
	if len(resp.Errors) != 1 || resp.Errors[0].UserID != "user-7" {
		t.Errorf("Errors = %v, want one for user-7", resp.Errors)
	}

	if len(scored) != 24 {
		t.Errorf("Scored %d users, want 24", len(scored))
	}
	if _, ok := scored["user-7"]; ok {
		t.Error("Failed user must not be scored")
	}

	if logUpdates == nil {
		t.Fatal("Batch log was not updated")
	}
	if logUpdates["status"] != "completed" {
		t.Errorf("Log status = %v, want completed", logUpdates["status"])
	}
}

func TestRunOvertrainingBatchNoActiveUsers(t *testing.T) {
	db := &mocks.MockDatabase{
		ListActiveUserIDsFunc: func(ctx context.Context, activeSince time.Time) ([]string, error) {
			return nil, nil
		},
	}
	setupService(db)

	rec := post(t, `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d", rec.Code)
	}
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.TotalUsersProcessed != 0 || resp.Status != "completed" {
		t.Errorf("Expected empty completed sweep, got %+v", resp)
	}
}

func TestRunOvertrainingBatchDefaults(t *testing.T) {
	var inserted *types.BatchRunLog
	db := &mocks.MockDatabase{
		InsertBatchRunLogFunc: func(ctx context.Context, logEntry *types.BatchRunLog) (string, error) {
			inserted = logEntry
			return "log-1", nil
		},
		ListActiveUserIDsFunc: func(ctx context.Context, activeSince time.Time) ([]string, error) {
			return nil, nil
		},
	}
	setupService(db)

	post(t, `{}`)
	if inserted == nil {
		t.Fatal("Batch log was not created")
	}
	if inserted.BatchSize != defaultBatchSize {
		t.Errorf("BatchSize = %d, want %d", inserted.BatchSize, defaultBatchSize)
	}
	if inserted.DaysActiveThreshold != defaultDaysActiveThreshold {
		t.Errorf("DaysActiveThreshold = %d, want %d", inserted.DaysActiveThreshold, defaultDaysActiveThreshold)
	}
	if inserted.Status != "running" {
		t.Errorf("Status = %s, want running", inserted.Status)
	}
}
