package pubsub

import (
	cloudevents "github.com/cloudevents/sdk-go/v2"
)

// CloudEvent types emitted after successful computations.
const (
	EventTypeBestSegmentComputed  = "com.stridelab.analytics.best_segment.computed"
	EventTypeChartDataComputed    = "com.stridelab.analytics.chart_data.computed"
	EventTypePerformanceComputed  = "com.stridelab.analytics.performance.computed"
	EventTypeOvertrainingComputed = "com.stridelab.analytics.overtraining.computed"
	EventTypeWorkoutClassified    = "com.stridelab.analytics.workout.classified"
)

// NewCloudEvent creates a standardized CloudEvent v1.0
func NewCloudEvent(source, eventType string, data interface{}) (cloudevents.Event, error) {
	e := cloudevents.NewEvent()
	e.SetSpecVersion("1.0")
	e.SetType(eventType)
	e.SetSource(source)

	if err := e.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return e, err
	}

	return e, nil
}
