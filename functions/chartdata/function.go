package chartdata

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
	"github.com/stridelab/server/pkg/domain/geo"
	"github.com/stridelab/server/pkg/domain/series"
	"github.com/stridelab/server/pkg/framework"
	"github.com/stridelab/server/pkg/infrastructure/pubsub"
	"github.com/stridelab/server/pkg/types"
)

// maxCoordinatePoints caps the stored map polyline.
const maxCoordinatePoints = 500

var (
	svc     *bootstrap.Service
	svcOnce sync.Once
	svcErr  error
)

func init() {
	functions.HTTP("BuildChartData", BuildChartData)
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

// BuildChartData is the entry point
func BuildChartData(w http.ResponseWriter, r *http.Request) {
	svc, err := initService(r.Context())
	if err != nil {
		http.Error(w, "service init failed", http.StatusInternalServerError)
		return
	}
	framework.WrapHTTP("build-chart-data", svc, chartDataHandler)(w, r)
}

// Request is the expected JSON body. MaxPoints defaults to 2000;
// FullPrecision keeps every sample unless the series is oversized.
type Request struct {
	UserID        string `json:"user_id"`
	ActivityID    string `json:"activity_id"`
	Source        string `json:"source"`
	MaxPoints     int    `json:"max_points,omitempty"`
	FullPrecision bool   `json:"full_precision,omitempty"`
}

type Response struct {
	Success         bool           `json:"success"`
	Message         string         `json:"message,omitempty"`
	DataPointsCount int            `json:"data_points_count"`
	TotalSamples    int            `json:"total_samples"`
	Summary         series.Summary `json:"summary"`
}

func (r Response) Outcome() string {
	if r.DataPointsCount == 0 {
		return "not_applicable"
	}
	return "success"
}

// chartDataHandler contains the business logic
func chartDataHandler(ctx context.Context, body []byte, fwCtx *framework.FrameworkContext) (interface{}, error) {
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

	samples, err := db.ListDetailSamples(ctx, req.UserID, req.ActivityID, req.Source)
	if err != nil {
		return nil, fmt.Errorf("fetching activity details: %w", err)
	}
	if len(samples) == 0 {
		return Response{Success: true, Message: "No samples found for activity"}, nil
	}

	points := buildSeries(samples)
	series.FillDerived(points)
	summary := series.Aggregate(points)

	reduced := reduce(points, req)
	fwCtx.Logger.Info("Series reduced",
		"total_samples", len(points),
		"stored_points", len(reduced),
		"full_precision", req.FullPrecision)

	record := &types.ChartDataRecord{
		UserID:              req.UserID,
		ActivityID:          req.ActivityID,
		Source:              req.Source,
		Series:              reduced,
		DataPointsCount:     len(reduced),
		DurationSeconds:     summary.DurationSeconds,
		TotalDistanceMeters: summary.TotalDistanceMeters,
		AvgSpeedMS:          summary.AvgSpeedMS,
		AvgPaceMinKM:        summary.AvgPaceMinKM,
		AvgHeartRate:        summary.AvgHeartRate,
		MaxHeartRate:        summary.MaxHeartRate,
	}
	if err := db.UpsertChartData(ctx, record); err != nil {
		return nil, fmt.Errorf("saving chart data: %w", err)
	}

	if coords := buildCoordinates(req, samples); coords != nil {
		if err := db.UpsertCoordinates(ctx, coords); err != nil {
			return nil, fmt.Errorf("saving coordinates: %w", err)
		}
	}

	evt, err := pubsub.NewCloudEvent("build-chart-data", pubsub.EventTypeChartDataComputed, map[string]interface{}{
		"user_id":           req.UserID,
		"activity_id":       req.ActivityID,
		"data_points_count": len(reduced),
	})
	if err != nil {
		fwCtx.Logger.Warn("Failed to build event", "error", err)
	} else if _, err := fwCtx.Service.Pub.PublishCloudEvent(ctx, shared.TopicChartDataComputed, evt); err != nil {
		fwCtx.Logger.Warn("Failed to publish event", "error", err)
	}

	return Response{
		Success:         true,
		DataPointsCount: len(reduced),
		TotalSamples:    len(points),
		Summary:         summary,
	}, nil
}

func buildSeries(samples []types.DetailSample) []types.SeriesPoint {
	points := make([]types.SeriesPoint, len(samples))
	for i, s := range samples {
		points[i] = types.SeriesPoint{
			TimeS:     s.TimeSeconds,
			DistanceM: s.TotalDistanceMeters,
			HeartRate: s.HeartRate,
			SpeedMS:   s.SpeedMetersPerSecond,
		}
	}
	return points
}

// reduce applies the requested downsampling policy. Full precision passes the
// series through unless it is oversized, in which case LTTB keeps the shape.
func reduce(points []types.SeriesPoint, req Request) []types.SeriesPoint {
	if req.FullPrecision {
		if len(points) > series.FullPrecisionThreshold {
			return series.DownsampleLTTB(points, series.FullPrecisionMaxPoints)
		}
		return points
	}
	maxPoints := req.MaxPoints
	if maxPoints <= 0 {
		maxPoints = series.DefaultMaxPoints
	}
	return series.Decimate(points, maxPoints)
}

// buildCoordinates extracts the downsampled GPS polyline for map rendering.
// Returns nil when the activity has no valid GPS data.
func buildCoordinates(req Request, samples []types.DetailSample) *types.CoordinateRecord {
	var coords [][2]float64
	for _, s := range samples {
		if s.LatitudeDegrees == 0 && s.LongitudeDegrees == 0 {
			continue
		}
		if !geo.ValidCoordinate(s.LatitudeDegrees, s.LongitudeDegrees) {
			continue
		}
		coords = append(coords, [2]float64{s.LatitudeDegrees, s.LongitudeDegrees})
	}
	if len(coords) == 0 {
		return nil
	}

	total := len(coords)
	if total > maxCoordinatePoints {
		step := (total + maxCoordinatePoints - 1) / maxCoordinatePoints
		sampled := make([][2]float64, 0, maxCoordinatePoints)
		for i := 0; i < total; i += step {
			sampled = append(sampled, coords[i])
		}
		if sampled[len(sampled)-1] != coords[total-1] {
			sampled = append(sampled, coords[total-1])
		}
		coords = sampled
	}

	bbox := [2][2]float64{coords[0], coords[0]}
	for _, c := range coords {
		if c[0] < bbox[0][0] {
			bbox[0][0] = c[0]
		}
		if c[1] < bbox[0][1] {
			bbox[0][1] = c[1]
		}
		if c[0] > bbox[1][0] {
			bbox[1][0] = c[0]
		}
		if c[1] > bbox[1][1] {
			bbox[1][1] = c[1]
		}
	}

	return &types.CoordinateRecord{
		UserID:            req.UserID,
		ActivityID:        req.ActivityID,
		Source:            req.Source,
		Coordinates:       coords,
		TotalPoints:       total,
		SampledPoints:     len(coords),
		StartingLatitude:  coords[0][0],
		StartingLongitude: coords[0][1],
		BoundingBox:       bbox,
	}
}
