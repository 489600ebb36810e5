package shared

const (
	ProjectID = "stridelab-project" // Can be overridden by env var in main if needed

	TopicBestSegmentComputed  = "topic-best-segment-computed"
	TopicChartDataComputed    = "topic-chart-data-computed"
	TopicPerformanceComputed  = "topic-performance-computed"
	TopicOvertrainingComputed = "topic-overtraining-computed"
	TopicWorkoutClassified    = "topic-workout-classified"
)
