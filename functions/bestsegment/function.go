package bestsegment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	shared "github.com/stridelab/server/pkg"
	"github.com/stridelab/server/pkg/bootstrap"
	"github.com/stridelab/server/pkg/domain/segment"
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
	functions.HTTP("CalculateBestSegment", CalculateBestSegment)
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

// CalculateBestSegment is the entry point
func CalculateBestSegment(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, "service init failed", http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("calculate-best-segment", svc, bestSegmentHandler)(w, r)
}

// Request is the expected JSON body.
type Request struct {
	UserID     string `json:"user_id"`
	ActivityID string `json:"activity_id"`
	Source     string `json:"source"`
	// SegmentDistanceMeters overrides the 1km default window.
	SegmentDistanceMeters float64 `json:"segment_distance_meters,omitempty"`
}

// Response is the success envelope. BestSegment is null when the activity has
// no extractable segment; that is still a success.
type Response struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message,omitempty"`
	BestSegment *segment.Result `json:"best_segment"`
}

// Outcome reports skipped activities as not applicable in metrics.
func (r Response) Outcome() string {
	if r.BestSegment == nil {
		return "not_applicable"
	}
	return "success"
}

// bestSegmentHandler contains the business logic
func bestSegmentHandler(ctx context.Context, body []byte, fwCtx *framework.FrameworkContext) (interface{}, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, framework.BadRequest("invalid JSON body: %v", err)
	}
	if req.ActivityID == "" {
		return nil, framework.BadRequest("missing required parameters: user_id and activity_id")
	}

	db := fwCtx.Service.DB

	// Webhook-driven callers only know the activity; resolve its owner.
	if req.UserID == "" {
		userID, err := db.ResolveUserID(ctx, req.ActivityID, req.Source)
		if err != nil {
			return nil, fmt.Errorf("resolving user for activity %s: %w", req.ActivityID, err)
		}
		if userID == "" {
			return nil, framework.BadRequest("missing required parameters: user_id and activity_id")
		}
		req.UserID = userID
	}

	activity, err := db.GetActivity(ctx, req.UserID, req.ActivityID, req.Source)
	if err != nil {
		return nil, fmt.Errorf("fetching activity: %w", err)
	}
	if activity == nil {
		return nil, framework.BadRequest("activity not found: %s", req.ActivityID)
	}

	target := req.SegmentDistanceMeters
	if target <= 0 {
		target = segment.DefaultTargetDistanceMeters
	}

	if activity.DistanceMeters < target {
		fwCtx.Logger.Info("Skipping activity below target distance", "distance_m", activity.DistanceMeters)
		return Response{Success: true, Message: "Activity skipped - less than 1km distance"}, nil
	}

	samples, err := db.ListDetailSamples(ctx, req.UserID, req.ActivityID, req.Source)
	if err != nil {
		return nil, fmt.Errorf("fetching activity details: %w", err)
	}
	if len(samples) == 0 {
		return Response{Success: true, Message: "Activity details not found - cannot calculate segment"}, nil
	}

	points := extractPoints(samples)
	fwCtx.Logger.Info("Extracted GPS points", "total_samples", len(samples), "valid_points", len(points))

	if len(points) < segment.MinPoints {
		msg := fmt.Sprintf("Insufficient GPS data for segment analysis - only %d valid points found", len(points))
		return Response{Success: true, Message: msg}, nil
	}

	best := segment.BestMovingSegment(points, target)
	if best == nil {
		return Response{Success: true, Message: "No valid 1km segment found in the activity data"}, nil
	}

	record := &types.BestSegmentRecord{
		UserID:              req.UserID,
		ActivityID:          req.ActivityID,
		ActivityDate:        activity.ActivityDate,
		PaceMinPerKm:        best.PaceMinPerKM,
		StartDistanceMeters: best.StartDistanceMeters,
		EndDistanceMeters:   best.EndDistanceMeters,
		DurationSeconds:     best.DurationSeconds,
	}
	if err := db.UpsertBestSegment(ctx, record); err != nil {
		return nil, fmt.Errorf("saving best segment: %w", err)
	}

	evt, err := pubsub.NewCloudEvent("calculate-best-segment", pubsub.EventTypeBestSegmentComputed, map[string]interface{}{
		"user_id":     req.UserID,
		"activity_id": req.ActivityID,
		"pace_min_km": best.PaceMinPerKM,
	})
	if err != nil {
		fwCtx.Logger.Warn("Failed to build event", "error", err)
	} else if _, err := fwCtx.Service.Pub.PublishCloudEvent(ctx, shared.TopicBestSegmentComputed, evt); err != nil {
		fwCtx.Logger.Warn("Failed to publish event", "error", err)
	}

	fwCtx.Logger.Info("Best segment saved",
		"pace_min_km", best.PaceMinPerKM,
		"duration_s", best.DurationSeconds,
		"distance_m", best.DistanceMeters)

	return Response{Success: true, BestSegment: best}, nil
}

// extractPoints converts raw samples into validated GPS points, carrying the
// upstream cumulative distance along for the stored record.
func extractPoints(samples []types.DetailSample) []types.ActivityPoint {
	points := make([]types.ActivityPoint, 0, len(samples))
	for _, s := range samples {
		if s.LatitudeDegrees == 0 && s.LongitudeDegrees == 0 {
			continue
		}
		points = append(points, types.ActivityPoint{
			Lat:                      s.LatitudeDegrees,
			Lon:                      s.LongitudeDegrees,
			TimeSeconds:              s.TimeSeconds,
			CumulativeDistanceMeters: s.TotalDistanceMeters,
		})
	}
	return points
}
