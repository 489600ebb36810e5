package performance

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
	"github.com/stridelab/server/pkg/domain/perfmetrics"
	"github.com/stridelab/server/pkg/domain/series"
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
	functions.HTTP("CalculatePerformanceMetrics", CalculatePerformanceMetrics)
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

// CalculatePerformanceMetrics is the entry point
func CalculatePerformanceMetrics(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, "service init failed", http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("calculate-performance-metrics", svc, performanceHandler)(w, r)
}

type Request struct {
	UserID     string `json:"user_id"`
	ActivityID string `json:"activity_id"`
	Source     string `json:"source"`
}

type Response struct {
	Success bool                            `json:"success"`
	Message string                          `json:"message,omitempty"`
	Metrics *types.PerformanceMetricsRecord `json:"metrics"`
}

func (r Response) Outcome() string {
	if r.Metrics == nil {
		return "not_applicable"
	}
	return "success"
}

// performanceHandler contains the business logic
func performanceHandler(ctx context.Context, body []byte, fwCtx *framework.FrameworkContext) (interface{}, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, framework.BadRequest("invalid JSON body: %v", err)
	}
	if req.UserID == "" || req.ActivityID == "" {
		return nil, framework.BadRequest("missing required parameters: user_id and activity_id")
	}

	db := fwCtx.Service.DB

	activity, err := db.GetActivity(ctx, req.UserID, req.ActivityID, req.Source)
	if err != nil {
		return nil, fmt.Errorf("fetching activity: %w", err)
	}
	if activity == nil {
		return nil, framework.BadRequest("activity not found: %s", req.ActivityID)
	}

	samples, err := db.ListDetailSamples(ctx, req.UserID, req.ActivityID, req.Source)
	if err != nil {
		return nil, fmt.Errorf("fetching activity details: %w", err)
	}

	input := buildInput(activity, samples)
	metrics := perfmetrics.Calculate(input, time.Now().UTC())
	metrics.UserID = req.UserID
	metrics.ActivityID = req.ActivityID
	metrics.Source = req.Source

	if err := db.UpsertPerformanceMetrics(ctx, &metrics); err != nil {
		return nil, fmt.Errorf("saving performance metrics: %w", err)
	}

	evt, err := pubsub.NewCloudEvent("calculate-performance-metrics", pubsub.EventTypePerformanceComputed, map[string]interface{}{
		"user_id":     req.UserID,
		"activity_id": req.ActivityID,
	})
	if err != nil {
		fwCtx.Logger.Warn("Failed to build event", "error", err)
	} else if _, err := fwCtx.Service.Pub.PublishCloudEvent(ctx, shared.TopicPerformanceComputed, evt); err != nil {
		fwCtx.Logger.Warn("Failed to publish event", "error", err)
	}

	fwCtx.Logger.Info("Performance metrics saved",
		"pace_comment", metrics.PaceComment,
		"heart_rate_comment", metrics.HeartRateComment)

	return Response{Success: true, Metrics: &metrics}, nil
}

// buildInput assembles the calculator input from the summary row and the
// sample stream. The summary wins for whole-activity figures; samples provide
// the per-point series and fill summary gaps.
func buildInput(activity *types.ActivitySummary, samples []types.DetailSample) perfmetrics.Input {
	input := perfmetrics.Input{
		DistanceMeters:  activity.DistanceMeters,
		DurationSeconds: activity.DurationSeconds,
		AverageHR:       activity.AverageHeartRate,
		MaxHR:           activity.MaxHeartRate,
	}

	var hrSum float64
	for _, s := range samples {
		if s.SpeedMetersPerSecond > 0 {
			input.Paces = append(input.Paces, series.PaceFromSpeed(s.SpeedMetersPerSecond))
		}
		if s.HeartRate > 0 {
			input.HeartRates = append(input.HeartRates, s.HeartRate)
			hrSum += s.HeartRate
			if s.HeartRate > input.MaxHR {
				input.MaxHR = s.HeartRate
			}
		}
	}
	if input.AverageHR == 0 && len(input.HeartRates) > 0 {
		input.AverageHR = hrSum / float64(len(input.HeartRates))
	}
	return input
}
