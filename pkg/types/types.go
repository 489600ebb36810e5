// Package types defines the shared data records exchanged between the
// analytics functions and the store. All records are derived outputs of the
// pipeline; none of them own or mutate the raw sample stream.
package types

import "time"

// DetailSample is one raw row from an upstream per-provider detail table.
// Zero values mean the upstream row did not carry that field.
type DetailSample struct {
	TimeSeconds          float64 `json:"time_s"`
	LatitudeDegrees      float64 `json:"lat,omitempty"`
	LongitudeDegrees     float64 `json:"lon,omitempty"`
	TotalDistanceMeters  float64 `json:"total_distance_in_meters,omitempty"`
	HeartRate            float64 `json:"heart_rate,omitempty"`
	SpeedMetersPerSecond float64 `json:"speed_meters_per_second,omitempty"`
}

// ActivityPoint is one validated GPS sample consumed by the segment extractor.
type ActivityPoint struct {
	Lat                      float64
	Lon                      float64
	TimeSeconds              float64
	CumulativeDistanceMeters float64
}

// SeriesPoint is one normalized chart sample. Input series must be ordered by
// the x-axis (time or distance) before downsampling.
type SeriesPoint struct {
	TimeS     float64 `json:"time_s"`
	DistanceM float64 `json:"distance_m,omitempty"`
	HeartRate float64 `json:"hr,omitempty"`
	SpeedMS   float64 `json:"speed_ms,omitempty"`
	PaceMinKM float64 `json:"pace_min_km,omitempty"`
}

// ActivitySummary is the per-activity aggregate row from the upstream
// activities table.
type ActivitySummary struct {
	UserID           string
	ActivityID       string
	Source           string
	ActivityDate     time.Time
	DistanceMeters   float64
	DurationSeconds  float64
	AverageHeartRate float64
	MaxHeartRate     float64
	AverageSpeedMS   float64
	Calories         float64
}

// BestSegmentRecord is the upserted best-segment result, at most one per
// (user, activity).
type BestSegmentRecord struct {
	UserID              string    `json:"user_id"`
	ActivityID          string    `json:"activity_id"`
	ActivityDate        time.Time `json:"activity_date"`
	PaceMinPerKm        float64   `json:"best_1km_pace_min_km"`
	StartDistanceMeters float64   `json:"segment_start_distance_meters"`
	EndDistanceMeters   float64   `json:"segment_end_distance_meters"`
	DurationSeconds     float64   `json:"segment_duration_seconds"`
}

// ChartDataRecord is the downsampled series plus derived aggregates, upserted
// per (user, source, activity).
type ChartDataRecord struct {
	UserID              string        `json:"user_id"`
	ActivityID          string        `json:"activity_id"`
	Source              string        `json:"activity_source"`
	Series              []SeriesPoint `json:"series_data"`
	DataPointsCount     int           `json:"data_points_count"`
	DurationSeconds     float64       `json:"duration_seconds,omitempty"`
	TotalDistanceMeters float64       `json:"total_distance_meters,omitempty"`
	AvgSpeedMS          float64       `json:"avg_speed_ms,omitempty"`
	AvgPaceMinKM        float64       `json:"avg_pace_min_km,omitempty"`
	AvgHeartRate        float64       `json:"avg_heart_rate,omitempty"`
	MaxHeartRate        float64       `json:"max_heart_rate,omitempty"`
}

// CoordinateRecord is the downsampled GPS track for map rendering.
type CoordinateRecord struct {
	UserID            string        `json:"user_id"`
	ActivityID        string        `json:"activity_id"`
	Source            string        `json:"activity_source"`
	Coordinates       [][2]float64  `json:"coordinates"`
	TotalPoints       int           `json:"total_points"`
	SampledPoints     int           `json:"sampled_points"`
	StartingLatitude  float64       `json:"starting_latitude"`
	StartingLongitude float64       `json:"starting_longitude"`
	BoundingBox       [2][2]float64 `json:"bounding_box"`
}

// PerformanceMetricsRecord is the per-activity derived scalar bundle. Zero
// numeric fields and empty comments mean the source data was missing for that
// metric; the record is still written as a whole.
type PerformanceMetricsRecord struct {
	UserID                   string    `json:"user_id"`
	ActivityID               string    `json:"activity_id"`
	Source                   string    `json:"activity_source,omitempty"`
	DistancePerMinute        float64   `json:"distance_per_minute,omitempty"`
	AverageSpeedKMH          float64   `json:"average_speed_kmh,omitempty"`
	PaceVariationCoefficient float64   `json:"pace_variation_coefficient,omitempty"`
	PaceComment              string    `json:"pace_comment,omitempty"`
	AverageHR                float64   `json:"average_hr,omitempty"`
	MaxHR                    float64   `json:"max_hr,omitempty"`
	RelativeIntensity        float64   `json:"relative_intensity,omitempty"`
	RelativeReserve          float64   `json:"relative_reserve,omitempty"`
	HeartRateComment         string    `json:"heart_rate_comment,omitempty"`
	EffortBeginningBPM       float64   `json:"effort_beginning_bpm,omitempty"`
	EffortMiddleBPM          float64   `json:"effort_middle_bpm,omitempty"`
	EffortEndBPM             float64   `json:"effort_end_bpm,omitempty"`
	EffortComment            string    `json:"effort_distribution_comment,omitempty"`
	CalculatedAt             time.Time `json:"calculated_at"`
}

// OvertrainingScoreRecord is one append-only analysis run result.
type OvertrainingScoreRecord struct {
	ID                 string    `json:"id,omitempty"`
	UserID             string    `json:"user_id"`
	Score              int       `json:"score"`
	Level              string    `json:"level"`
	Factors            []string  `json:"factors"`
	Recommendation     string    `json:"recommendation"`
	TrainingLoadScore  int       `json:"training_load_score"`
	FrequencyScore     int       `json:"frequency_score"`
	IntensityScore     int       `json:"intensity_score"`
	VolumeTrendScore   int       `json:"volume_trend_score"`
	ActivitiesAnalyzed int       `json:"activities_analyzed"`
	DaysAnalyzed       int       `json:"days_analyzed"`
	CreatedAt          time.Time `json:"created_at,omitempty"`
}

// ClassificationMetrics are the aggregates the classifier decided on. Nil
// means the series carried no usable samples for that metric.
type ClassificationMetrics struct {
	DistKM  *float64 `json:"dist_km"`
	DurMin  *float64 `json:"dur_min"`
	AvgPace *float64 `json:"avg_pace"`
	CVPace  *float64 `json:"cv_pace"`
	AvgHR   *float64 `json:"avg_hr"`
	CVHR    *float64 `json:"cv_hr"`
}

// WorkoutClassificationRecord is the upserted classifier output.
type WorkoutClassificationRecord struct {
	UserID              string                `json:"user_id"`
	ActivityID          string                `json:"activity_id"`
	DetectedWorkoutType string                `json:"detected_workout_type"`
	Metrics             ClassificationMetrics `json:"metrics"`
	UpdatedAt           time.Time             `json:"updated_at"`
}

// BatchRunLog tracks one overtraining batch sweep.
type BatchRunLog struct {
	ID                     string       `json:"log_id"`
	Status                 string       `json:"status"`
	BatchSize              int          `json:"batch_size"`
	DaysActiveThreshold    int          `json:"days_active_threshold"`
	TotalUsersProcessed    int          `json:"total_users_processed"`
	SuccessfulCalculations int          `json:"successful_calculations"`
	FailedCalculations     int          `json:"failed_calculations"`
	ExecutionTimeSeconds   float64      `json:"execution_time_seconds,omitempty"`
	Errors                 []BatchError `json:"errors,omitempty"`
	StartedAt              time.Time    `json:"started_at"`
	CompletedAt            time.Time    `json:"completed_at,omitempty"`
}

// BatchError is one isolated per-user failure inside a batch sweep.
type BatchError struct {
	UserID string `json:"user_id"`
	Error  string `json:"error"`
}

// ExecutionRecord is one function invocation log row.
type ExecutionRecord struct {
	ID          string    `json:"id"`
	Service     string    `json:"service"`
	UserID      string    `json:"user_id,omitempty"`
	TriggerType string    `json:"trigger_type"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at,omitempty"`
}
