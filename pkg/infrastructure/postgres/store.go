// Package postgres provides the pgx-backed store for upstream activity rows
// and per-purpose analytics result tables.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/stridelab/server/pkg/types"
)

// samplePageSize bounds each detail-sample page read. Upstream ingestion
// writes rows in 1000-row pages, so reads use the same stride.
const samplePageSize = 1000

// Store implements the shared.Database interface on top of a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore constructs a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// --- Execution log ---

func (s *Store) InsertExecution(ctx context.Context, record *types.ExecutionRecord) error {
	const stmt = `INSERT INTO function_executions (id, service, user_id, trigger_type, status, started_at)
        VALUES ($1,$2,$3,$4,$5,$6)`
	_, err := s.pool.Exec(ctx, stmt,
		record.ID, record.Service, nullIfEmpty(record.UserID), record.TriggerType, record.Status, record.StartedAt)
	return err
}

func (s *Store) UpdateExecution(ctx context.Context, id string, data map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}
	sets := make([]string, 0, len(data))
	args := make([]interface{}, 0, len(data)+1)
	i := 1
	for col, val := range data {
		sets = append(sets, fmt.Sprintf("%s=$%d", col, i))
		args = append(args, val)
		i++
	}
	args = append(args, id)
	stmt := fmt.Sprintf("UPDATE function_executions SET %s WHERE id=$%d", strings.Join(sets, ", "), i)
	_, err := s.pool.Exec(ctx, stmt, args...)
	return err
}

// --- Upstream activity data ---

// withSourceFilter appends the activity_source clause when a source is given.
// Upstream rows are keyed by (user_id, activity_id, activity_source) but most
// callers only know the first two; an empty source matches any provider.
func withSourceFilter(query string, args []interface{}, source string) (string, []interface{}) {
	if source == "" {
		return query, args
	}
	query += fmt.Sprintf(" AND activity_source=$%d", len(args)+1)
	return query, append(args, source)
}

func (s *Store) GetActivity(ctx context.Context, userID, activityID, source string) (*types.ActivitySummary, error) {
	query := `SELECT user_id, activity_id, activity_source, activity_date, distance_in_meters,
        duration_in_seconds, average_heart_rate, max_heart_rate, average_speed_ms, calories
        FROM activities WHERE user_id=$1 AND activity_id=$2`
	args := []interface{}{userID, activityID}
	query, args = withSourceFilter(query, args, source)

	row := s.pool.QueryRow(ctx, query, args...)
	var a types.ActivitySummary
	if err := row.Scan(&a.UserID, &a.ActivityID, &a.Source, &a.ActivityDate, &a.DistanceMeters,
		&a.DurationSeconds, &a.AverageHeartRate, &a.MaxHeartRate, &a.AverageSpeedMS, &a.Calories); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &a, nil
}

// ListDetailSamples reads all raw sample rows for one activity, ordered by
// time, fetching in fixed-size pages to bound each round trip.
func (s *Store) ListDetailSamples(ctx context.Context, userID, activityID, source string) ([]types.DetailSample, error) {
	query := `SELECT sample_timestamp, latitude_in_degree, longitude_in_degree,
        total_distance_in_meters, heart_rate, speed_meters_per_second
        FROM activity_detail_samples
        WHERE user_id=$1 AND activity_id=$2`
	args := []interface{}{userID, activityID}
	query, args = withSourceFilter(query, args, source)
	query += ` ORDER BY sample_timestamp ASC LIMIT $%d OFFSET $%d`
	query = fmt.Sprintf(query, len(args)+1, len(args)+2)

	var all []types.DetailSample
	offset := 0
	for {
		pageArgs := append(append([]interface{}{}, args...), samplePageSize, offset)
		rows, err := s.pool.Query(ctx, query, pageArgs...)
		if err != nil {
			return nil, err
		}
		count := 0
		for rows.Next() {
			var d types.DetailSample
			var lat, lon, dist, hr, speed *float64
			if err := rows.Scan(&d.TimeSeconds, &lat, &lon, &dist, &hr, &speed); err != nil {
				rows.Close()
				return nil, err
			}
			d.LatitudeDegrees = deref(lat)
			d.LongitudeDegrees = deref(lon)
			d.TotalDistanceMeters = deref(dist)
			d.HeartRate = deref(hr)
			d.SpeedMetersPerSecond = deref(speed)
			all = append(all, d)
			count++
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}
		if count < samplePageSize {
			break
		}
		offset += samplePageSize
	}
	return all, nil
}

func (s *Store) ListActivitiesSince(ctx context.Context, userID string, since time.Time) ([]types.ActivitySummary, error) {
	const query = `SELECT user_id, activity_id, activity_source, activity_date, distance_in_meters,
        duration_in_seconds, average_heart_rate, max_heart_rate, average_speed_ms, calories
        FROM activities WHERE user_id=$1 AND activity_date >= $2
        ORDER BY activity_date DESC`

	rows, err := s.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.ActivitySummary
	for rows.Next() {
		var a types.ActivitySummary
		if err := rows.Scan(&a.UserID, &a.ActivityID, &a.Source, &a.ActivityDate, &a.DistanceMeters,
			&a.DurationSeconds, &a.AverageHeartRate, &a.MaxHeartRate, &a.AverageSpeedMS, &a.Calories); err != nil {
			return nil, err
		}
		results = append(results, a)
	}
	return results, rows.Err()
}

func (s *Store) ListActiveUserIDs(ctx context.Context, activeSince time.Time) ([]string, error) {
	const query = `SELECT DISTINCT user_id FROM activities WHERE activity_date >= $1`

	rows, err := s.pool.Query(ctx, query, activeSince)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ResolveUserID(ctx context.Context, activityID, source string) (string, error) {
	query := `SELECT user_id FROM activity_detail_samples WHERE activity_id=$1`
	args := []interface{}{activityID}
	query, args = withSourceFilter(query, args, source)
	query += ` LIMIT 1`

	var id string
	if err := s.pool.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("unable to resolve user_id for activity %s", activityID)
		}
		return "", err
	}
	return id, nil
}

// --- Pipeline results ---

func (s *Store) UpsertBestSegment(ctx context.Context, record *types.BestSegmentRecord) error {
	const stmt = `INSERT INTO activity_best_segments
        (user_id, activity_id, activity_date, best_1km_pace_min_km,
         segment_start_distance_meters, segment_end_distance_meters, segment_duration_seconds, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,now())
        ON CONFLICT (user_id, activity_id) DO UPDATE SET
         activity_date=EXCLUDED.activity_date,
         best_1km_pace_min_km=EXCLUDED.best_1km_pace_min_km,
         segment_start_distance_meters=EXCLUDED.segment_start_distance_meters,
         segment_end_distance_meters=EXCLUDED.segment_end_distance_meters,
         segment_duration_seconds=EXCLUDED.segment_duration_seconds,
         updated_at=now()`
	_, err := s.pool.Exec(ctx, stmt,
		record.UserID, record.ActivityID, record.ActivityDate, record.PaceMinPerKm,
		record.StartDistanceMeters, record.EndDistanceMeters, record.DurationSeconds)
	return err
}

func (s *Store) UpsertChartData(ctx context.Context, record *types.ChartDataRecord) error {
	series, err := json.Marshal(record.Series)
	if err != nil {
		return err
	}
	const stmt = `INSERT INTO activity_chart_data
        (user_id, activity_id, activity_source, series_data, data_points_count,
         duration_seconds, total_distance_meters, avg_speed_ms, avg_pace_min_km,
         avg_heart_rate, max_heart_rate, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,now())
        ON CONFLICT (user_id, activity_source, activity_id) DO UPDATE SET
         series_data=EXCLUDED.series_data,
         data_points_count=EXCLUDED.data_points_count,
         duration_seconds=EXCLUDED.duration_seconds,
         total_distance_meters=EXCLUDED.total_distance_meters,
         avg_speed_ms=EXCLUDED.avg_speed_ms,
         avg_pace_min_km=EXCLUDED.avg_pace_min_km,
         avg_heart_rate=EXCLUDED.avg_heart_rate,
         max_heart_rate=EXCLUDED.max_heart_rate,
         updated_at=now()`
	_, err = s.pool.Exec(ctx, stmt,
		record.UserID, record.ActivityID, record.Source, series, record.DataPointsCount,
		zeroToNil(record.DurationSeconds), zeroToNil(record.TotalDistanceMeters),
		zeroToNil(record.AvgSpeedMS), zeroToNil(record.AvgPaceMinKM),
		zeroToNil(record.AvgHeartRate), zeroToNil(record.MaxHeartRate))
	return err
}

func (s *Store) UpsertCoordinates(ctx context.Context, record *types.CoordinateRecord) error {
	coords, err := json.Marshal(record.Coordinates)
	if err != nil {
		return err
	}
	bounds, err := json.Marshal(record.BoundingBox)
	if err != nil {
		return err
	}
	const stmt = `INSERT INTO activity_coordinates
        (user_id, activity_id, activity_source, coordinates, total_points, sampled_points,
         starting_latitude, starting_longitude, bounding_box, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,now())
        ON CONFLICT (user_id, activity_source, activity_id) DO UPDATE SET
         coordinates=EXCLUDED.coordinates,
         total_points=EXCLUDED.total_points,
         sampled_points=EXCLUDED.sampled_points,
         starting_latitude=EXCLUDED.starting_latitude,
         starting_longitude=EXCLUDED.starting_longitude,
         bounding_box=EXCLUDED.bounding_box,
         updated_at=now()`
	_, err = s.pool.Exec(ctx, stmt,
		record.UserID, record.ActivityID, record.Source, coords, record.TotalPoints,
		record.SampledPoints, record.StartingLatitude, record.StartingLongitude, bounds)
	return err
}

func (s *Store) ListChartData(ctx context.Context, userID string, activityIDs []string) ([]types.ChartDataRecord, error) {
	query := `SELECT user_id, activity_id, activity_source, series_data, data_points_count
        FROM activity_chart_data`
	var conds []string
	var args []interface{}
	if userID != "" {
		args = append(args, userID)
		conds = append(conds, fmt.Sprintf("user_id=$%d", len(args)))
	}
	if len(activityIDs) > 0 {
		args = append(args, activityIDs)
		conds = append(conds, fmt.Sprintf("activity_id = ANY($%d)", len(args)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []types.ChartDataRecord
	for rows.Next() {
		var rec types.ChartDataRecord
		var series []byte
		if err := rows.Scan(&rec.UserID, &rec.ActivityID, &rec.Source, &series, &rec.DataPointsCount); err != nil {
			return nil, err
		}
		if len(series) > 0 {
			if err := json.Unmarshal(series, &rec.Series); err != nil {
				return nil, fmt.Errorf("series_data for %s: %w", rec.ActivityID, err)
			}
		}
		results = append(results, rec)
	}
	return results, rows.Err()
}

func (s *Store) UpsertPerformanceMetrics(ctx context.Context, record *types.PerformanceMetricsRecord) error {
	const stmt = `INSERT INTO performance_metrics
        (user_id, activity_id, activity_source, distance_per_minute, average_speed_kmh,
         pace_variation_coefficient, pace_comment, average_hr, max_hr,
         relative_intensity, relative_reserve, heart_rate_comment,
         effort_beginning_bpm, effort_middle_bpm, effort_end_bpm,
         effort_distribution_comment, calculated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
        ON CONFLICT (user_id, activity_id) DO UPDATE SET
         activity_source=EXCLUDED.activity_source,
         distance_per_minute=EXCLUDED.distance_per_minute,
         average_speed_kmh=EXCLUDED.average_speed_kmh,
         pace_variation_coefficient=EXCLUDED.pace_variation_coefficient,
         pace_comment=EXCLUDED.pace_comment,
         average_hr=EXCLUDED.average_hr,
         max_hr=EXCLUDED.max_hr,
         relative_intensity=EXCLUDED.relative_intensity,
         relative_reserve=EXCLUDED.relative_reserve,
         heart_rate_comment=EXCLUDED.heart_rate_comment,
         effort_beginning_bpm=EXCLUDED.effort_beginning_bpm,
         effort_middle_bpm=EXCLUDED.effort_middle_bpm,
         effort_end_bpm=EXCLUDED.effort_end_bpm,
         effort_distribution_comment=EXCLUDED.effort_distribution_comment,
         calculated_at=EXCLUDED.calculated_at`
	_, err := s.pool.Exec(ctx, stmt,
		record.UserID, record.ActivityID, nullIfEmpty(record.Source),
		zeroToNil(record.DistancePerMinute), zeroToNil(record.AverageSpeedKMH),
		zeroToNil(record.PaceVariationCoefficient), nullIfEmpty(record.PaceComment),
		zeroToNil(record.AverageHR), zeroToNil(record.MaxHR),
		zeroToNil(record.RelativeIntensity), zeroToNil(record.RelativeReserve),
		nullIfEmpty(record.HeartRateComment),
		zeroToNil(record.EffortBeginningBPM), zeroToNil(record.EffortMiddleBPM),
		zeroToNil(record.EffortEndBPM), nullIfEmpty(record.EffortComment),
		record.CalculatedAt)
	return err
}

// InsertOvertrainingScore appends one analysis run; history rows are never
// overwritten so the client can chart risk over time.
func (s *Store) InsertOvertrainingScore(ctx context.Context, record *types.OvertrainingScoreRecord) (string, error) {
	factors, err := json.Marshal(record.Factors)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	const stmt = `INSERT INTO overtraining_scores
        (id, user_id, score, level, factors, recommendation,
         training_load_score, frequency_score, intensity_score, volume_trend_score,
         activities_analyzed, days_analyzed, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,now())`
	_, err = s.pool.Exec(ctx, stmt,
		id, record.UserID, record.Score, record.Level, factors, record.Recommendation,
		record.TrainingLoadScore, record.FrequencyScore, record.IntensityScore,
		record.VolumeTrendScore, record.ActivitiesAnalyzed, record.DaysAnalyzed)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpsertWorkoutClassification(ctx context.Context, record *types.WorkoutClassificationRecord) error {
	metrics, err := json.Marshal(record.Metrics)
	if err != nil {
		return err
	}
	const stmt = `INSERT INTO workout_classification
        (user_id, activity_id, detected_workout_type, metrics, updated_at)
        VALUES ($1,$2,$3,$4,$5)
        ON CONFLICT (user_id, activity_id) DO UPDATE SET
         detected_workout_type=EXCLUDED.detected_workout_type,
         metrics=EXCLUDED.metrics,
         updated_at=EXCLUDED.updated_at`
	_, err = s.pool.Exec(ctx, stmt,
		record.UserID, record.ActivityID, record.DetectedWorkoutType, metrics, record.UpdatedAt)
	return err
}

// --- Batch sweeps ---

func (s *Store) InsertBatchRunLog(ctx context.Context, logEntry *types.BatchRunLog) (string, error) {
	id := uuid.NewString()
	const stmt = `INSERT INTO overtraining_batch_logs
        (id, status, batch_size, days_active_threshold, started_at)
        VALUES ($1,$2,$3,$4,$5)`
	_, err := s.pool.Exec(ctx, stmt,
		id, logEntry.Status, logEntry.BatchSize, logEntry.DaysActiveThreshold, logEntry.StartedAt)
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) UpdateBatchRunLog(ctx context.Context, id string, data map[string]interface{}) error {
	if len(data) == 0 {
		return nil
	}
	sets := make([]string, 0, len(data))
	args := make([]interface{}, 0, len(data)+1)
	i := 1
	for col, val := range data {
		sets = append(sets, fmt.Sprintf("%s=$%d", col, i))
		args = append(args, val)
		i++
	}
	args = append(args, id)
	stmt := fmt.Sprintf("UPDATE overtraining_batch_logs SET %s WHERE id=$%d", strings.Join(sets, ", "), i)
	_, err := s.pool.Exec(ctx, stmt, args...)
	return err
}

func nullIfEmpty(value string) interface{} {
	if value == "" {
		return nil
	}
	return value
}

func zeroToNil(value float64) interface{} {
	if value == 0 {
		return nil
	}
	return value
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}
