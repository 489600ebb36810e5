package overtraining

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
	riskcalc "github.com/stridelab/server/pkg/domain/overtraining"
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
	functions.HTTP("CalculateOvertrainingRisk", CalculateOvertrainingRisk)
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

// CalculateOvertrainingRisk is the entry point
func CalculateOvertrainingRisk(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, "service init failed", http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("calculate-overtraining-risk", svc, overtrainingHandler)(w, r)
}

type Request struct {
	UserID        string `json:"user_id"`
	DaysToAnalyze int    `json:"days_to_analyze,omitempty"`
}

type Response struct {
	Success bool                           `json:"success"`
	Data    *types.OvertrainingScoreRecord `json:"data"`
	Risk    riskcalc.Risk                  `json:"risk"`
}

// overtrainingHandler contains the business logic
func overtrainingHandler(ctx context.Context, body []byte, fwCtx *framework.FrameworkContext) (interface{}, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, framework.BadRequest("invalid JSON body: %v", err)
	}
	if req.UserID == "" {
		return nil, framework.BadRequest("user_id is required")
	}
	days := req.DaysToAnalyze
	if days <= 0 {
		days = riskcalc.DefaultDaysToAnalyze
	}

	record, risk, err := AnalyzeUser(ctx, fwCtx.Service, req.UserID, days)
	if err != nil {
		return nil, err
	}

	fwCtx.Logger.Info("Overtraining risk saved",
		"score", risk.Score,
		"level", risk.Level,
		"activities_analyzed", record.ActivitiesAnalyzed)

	return Response{Success: true, Data: record, Risk: risk}, nil
}

// AnalyzeUser runs one overtraining analysis for a user and persists the
// result. The batch sweep reuses it per user.
func AnalyzeUser(ctx context.Context, svc *bootstrap.Service, userID string, days int) (*types.OvertrainingScoreRecord, riskcalc.Risk, error) {
	now := time.Now().UTC()
	since := now.AddDate(0, 0, -days)

	activities, err := svc.DB.ListActivitiesSince(ctx, userID, since)
	if err != nil {
		return nil, riskcalc.Risk{}, fmt.Errorf("fetching activities: %w", err)
	}
	if len(activities) == 0 {
		return nil, riskcalc.Risk{}, &framework.StatusError{
			Code: http.StatusNotFound,
			Err:  fmt.Errorf("no activities found in the last %d days", days),
		}
	}

	history := make([]riskcalc.Activity, len(activities))
	for i, a := range activities {
		history[i] = riskcalc.Activity{
			ActivityDate:        a.ActivityDate,
			TotalTimeMinutes:    a.DurationSeconds / 60,
			AverageHeartRate:    a.AverageHeartRate,
			MaxHeartRate:        a.MaxHeartRate,
			TotalDistanceMeters: a.DistanceMeters,
		}
	}

	risk := riskcalc.CalculateRisk(history, now)

	record := &types.OvertrainingScoreRecord{
		UserID:             userID,
		Score:              risk.Score,
		Level:              risk.Level,
		Factors:            risk.Factors,
		Recommendation:     risk.Recommendation,
		TrainingLoadScore:  risk.TrainingLoadScore,
		FrequencyScore:     risk.FrequencyScore,
		IntensityScore:     risk.IntensityScore,
		VolumeTrendScore:   risk.VolumeTrendScore,
		ActivitiesAnalyzed: len(activities),
		DaysAnalyzed:       days,
	}
	id, err := svc.DB.InsertOvertrainingScore(ctx, record)
	if err != nil {
		return nil, riskcalc.Risk{}, fmt.Errorf("saving overtraining score: %w", err)
	}
	record.ID = id

	evt, err := pubsub.NewCloudEvent("calculate-overtraining-risk", pubsub.EventTypeOvertrainingComputed, map[string]interface{}{
		"user_id": userID,
		"score":   risk.Score,
		"level":   risk.Level,
	})
	if err != nil {
		slog.Warn("Failed to build event", "error", err)
	} else if _, err := svc.Pub.PublishCloudEvent(ctx, shared.TopicOvertrainingComputed, evt); err != nil {
		slog.Warn("Failed to publish event", "error", err)
	}

	return record, risk, nil
}
