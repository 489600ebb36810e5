package bestsegment

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

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

// runTrack builds samples for a constant-pace run of the given length.
func runTrack(meters float64) []types.DetailSample {
	const stepMeters = 11.1195 // one ten-thousandth of a degree of latitude
	legs := int(meters / stepMeters)
	dt := (meters / (1000.0 / 300.0)) / float64(legs) // 5:00 min/km pace
	samples := make([]types.DetailSample, legs+1)
	for i := range samples {
		samples[i] = types.DetailSample{
			TimeSeconds:         float64(i) * dt,
			LatitudeDegrees:     38.7 + float64(i)*0.0001,
			LongitudeDegrees:    -9.1,
			TotalDistanceMeters: float64(i) * stepMeters,
		}
	}
	return samples
}

func post(t *testing.T, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	CalculateBestSegment(rec, req)
	return rec
}

func TestCalculateBestSegmentEndToEnd(t *testing.T) {
	var saved *types.BestSegmentRecord
	db := &mocks.MockDatabase{
		GetActivityFunc: func(ctx context.Context, userID, activityID, source string) (*types.ActivitySummary, error) {
			return &types.ActivitySummary{UserID: userID, ActivityID: activityID, DistanceMeters: 1200}, nil
		},
		ListDetailSamplesFunc: func(ctx context.Context, userID, activityID, source string) ([]types.DetailSample, error) {
			return runTrack(1200), nil
		},
		UpsertBestSegmentFunc: func(ctx context.Context, record *types.BestSegmentRecord) error {
			saved = record
			return nil
		},
	}
	setupService(db)

	rec := post(t, Request{UserID: "user-1", ActivityID: "act-1", Source: "garmin"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.BestSegment == nil {
		t.Fatalf("Expected a segment, got %+v", resp)
	}
	if math.Abs(resp.BestSegment.PaceMinPerKM-5.0) > 0.05 {
		t.Errorf("Pace = %f, want ~5.0", resp.BestSegment.PaceMinPerKM)
	}
	if math.Abs(resp.BestSegment.DurationSeconds-300) > 5 {
		t.Errorf("Duration = %f, want ~300", resp.BestSegment.DurationSeconds)
	}
	if saved == nil {
		t.Fatal("Expected the record to be upserted")
	}
	if saved.UserID != "user-1" || saved.ActivityID != "act-1" {
		t.Errorf("Record keys wrong: %+v", saved)
	}
}

func TestCalculateBestSegmentBadSampleKeepsRecordAligned(t *testing.T) {
	// A GPS glitch mid-track gets filtered out of the search; the persisted
	// start/end distances must still bound the segment that was measured.
	track := runTrack(1200)
	glitch := types.DetailSample{
		TimeSeconds:      track[40].TimeSeconds,
		LatitudeDegrees:  95,
		LongitudeDegrees: -9.1,
	}
	samples := make([]types.DetailSample, 0, len(track)+1)
	samples = append(samples, track[:40]...)
	samples = append(samples, glitch)
	samples = append(samples, track[40:]...)

	var saved *types.BestSegmentRecord
	db := &mocks.MockDatabase{
		GetActivityFunc: func(ctx context.Context, userID, activityID, source string) (*types.ActivitySummary, error) {
			return &types.ActivitySummary{DistanceMeters: 1200}, nil
		},
		ListDetailSamplesFunc: func(ctx context.Context, userID, activityID, source string) ([]types.DetailSample, error) {
			return samples, nil
		},
		UpsertBestSegmentFunc: func(ctx context.Context, record *types.BestSegmentRecord) error {
			saved = record
			return nil
		},
	}
	setupService(db)

	rec := post(t, Request{UserID: "user-1", ActivityID: "act-glitch", Source: "garmin"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", rec.Code, rec.Body.String())
	}
	if saved == nil {
		t.Fatal("Expected the record to be upserted")
	}
	span := saved.EndDistanceMeters - saved.StartDistanceMeters
	if math.Abs(span-1000) > 15 {
		t.Errorf("Stored bounds span %f m, want ~1000", span)
	}
}

func TestCalculateBestSegmentShortActivitySkipped(t *testing.T) {
	upserts := 0
	db := &mocks.MockDatabase{
		GetActivityFunc: func(ctx context.Context, userID, activityID, source string) (*types.ActivitySummary, error) {
			return &types.ActivitySummary{DistanceMeters: 900}, nil
		},
		UpsertBestSegmentFunc: func(ctx context.Context, record *types.BestSegmentRecord) error {
			upserts++
			return nil
		},
	}
	setupService(db)

	rec := post(t, Request{UserID: "user-1", ActivityID: "act-short"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", rec.Code, rec.Body.String())
	}

	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success {
		t.Error("Skipped activity must still report success")
	}
	if resp.BestSegment != nil {
		t.Errorf("Expected null best_segment, got %+v", resp.BestSegment)
	}
	if resp.Message == "" {
		t.Error("Expected a skip message")
	}
	if upserts != 0 {
		t.Error("Skipped activity must not be persisted")
	}
}

func TestCalculateBestSegmentInsufficientPoints(t *testing.T) {
	db := &mocks.MockDatabase{
		GetActivityFunc: func(ctx context.Context, userID, activityID, source string) (*types.ActivitySummary, error) {
			return &types.ActivitySummary{DistanceMeters: 5000}, nil
		},
		ListDetailSamplesFunc: func(ctx context.Context, userID, activityID, source string) ([]types.DetailSample, error) {
			return runTrack(1200)[:5], nil
		},
	}
	setupService(db)

	rec := post(t, Request{UserID: "user-1", ActivityID: "act-sparse"})
	var resp Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !resp.Success || resp.BestSegment != nil {
		t.Errorf("Expected success with null segment, got %+v", resp)
	}
}

func TestCalculateBestSegmentResolvesUserFromActivity(t *testing.T) {
	var lookedUp string
	db := &mocks.MockDatabase{
		ResolveUserIDFunc: func(ctx context.Context, activityID, source string) (string, error) {
			return "user-9", nil
		},
		GetActivityFunc: func(ctx context.Context, userID, activityID, source string) (*types.ActivitySummary, error) {
			lookedUp = userID
			return &types.ActivitySummary{DistanceMeters: 900}, nil
		},
	}
	setupService(db)

	rec := post(t, Request{ActivityID: "act-1", Source: "garmin"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Status = %d, body %s", rec.Code, rec.Body.String())
	}
	if lookedUp != "user-9" {
		t.Errorf("Activity fetched for %q, want resolved user-9", lookedUp)
	}
}

func TestCalculateBestSegmentMissingParams(t *testing.T) {
	setupService(&mocks.MockDatabase{})
	rec := post(t, map[string]string{"user_id": "user-1"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Status = %d, want 400", rec.Code)
	}
}
