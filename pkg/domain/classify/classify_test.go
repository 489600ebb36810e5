package classify

import (
	"testing"

	"github.com/stridelab/server/pkg/types"
)

func f(v float64) *float64 { return &v }

func TestClassifyDecisionList(t *testing.T) {
	cases := []struct {
		name    string
		metrics types.ClassificationMetrics
		want    string
	}{
		{
			name:    "slow pace is a walk",
			metrics: types.ClassificationMetrics{AvgPace: f(12), DistKM: f(4)},
			want:    TypeWalkOrInvalid,
		},
		{
			name:    "low heart rate is a walk",
			metrics: types.ClassificationMetrics{AvgPace: f(6), AvgHR: f(85)},
			want:    TypeWalkOrInvalid,
		},
		{
			// Rule order matters: a slow 16 km outing is a walk, not a long run.
			name:    "walk rule beats long run",
			metrics: types.ClassificationMetrics{DistKM: f(16), AvgPace: f(12), CVPace: f(0.05)},
			want:    TypeWalkOrInvalid,
		},
		{
			name:    "steady 16k is a long run",
			metrics: types.ClassificationMetrics{DistKM: f(16), DurMin: f(95), AvgPace: f(5.9), CVPace: f(0.06), AvgHR: f(145)},
			want:    TypeLongRun,
		},
		{
			name:    "long run without heart rate data",
			metrics: types.ClassificationMetrics{DistKM: f(18), AvgPace: f(5.5), CVPace: f(0.08)},
			want:    TypeLongRun,
		},
		{
			name:    "long distance but high HR falls through",
			metrics: types.ClassificationMetrics{DistKM: f(16), DurMin: f(80), AvgPace: f(5.0), CVPace: f(0.06), AvgHR: f(172)},
			want:    TypeUnclassified,
		},
		{
			name:    "choppy short session is intervals",
			metrics: types.ClassificationMetrics{DistKM: f(8), DurMin: f(45), AvgPace: f(5.0), CVPace: f(0.25), AvgHR: f(155)},
			want:    TypeIntervalOrFartlek,
		},
		{
			name:    "steady hard 10k is a tempo run",
			metrics: types.ClassificationMetrics{DistKM: f(10), DurMin: f(48), AvgPace: f(4.8), CVPace: f(0.07), AvgHR: f(165)},
			want:    TypeTempoRun,
		},
		{
			name:    "relaxed steady-HR run is an easy run",
			metrics: types.ClassificationMetrics{DistKM: f(8), DurMin: f(52), AvgPace: f(6.5), CVPace: f(0.12), AvgHR: f(140), CVHR: f(0.05)},
			want:    TypeEasyRun,
		},
		{
			name:    "short gentle jog is a recovery run",
			metrics: types.ClassificationMetrics{DistKM: f(4), DurMin: f(30), AvgPace: f(7.5), CVPace: f(0.12), AvgHR: f(120), CVHR: f(0.10)},
			want:    TypeRecoveryRun,
		},
		{
			name:    "no metrics at all",
			metrics: types.ClassificationMetrics{},
			want:    TypeUnclassified,
		},
		{
			name:    "distance alone is not enough",
			metrics: types.ClassificationMetrics{DistKM: f(10)},
			want:    TypeUnclassified,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Classify(c.metrics); got != c.want {
				t.Errorf("Classify = %s, want %s", got, c.want)
			}
		})
	}
}

func TestAggregateSeries(t *testing.T) {
	series := []types.SeriesPoint{
		{TimeS: 0, DistanceM: 0, SpeedMS: 3.2, HeartRate: 130},
		{TimeS: 300, DistanceM: 960, SpeedMS: 3.3, HeartRate: 145},
		{TimeS: 600, DistanceM: 1950, SpeedMS: 3.4, HeartRate: 150},
		{TimeS: 900, DistanceM: 2940, SpeedMS: 3.3, HeartRate: 148},
	}

	m := AggregateSeries(series)
	if m.DistKM == nil || *m.DistKM != 2.94 {
		t.Errorf("DistKM = %v, want 2.94", m.DistKM)
	}
	if m.DurMin == nil || *m.DurMin != 15 {
		t.Errorf("DurMin = %v, want 15", m.DurMin)
	}
	if m.AvgHR == nil || *m.AvgHR != 143 {
		t.Errorf("AvgHR = %v, want 143", m.AvgHR)
	}
	if m.AvgPace == nil || m.CVPace == nil || m.CVHR == nil {
		t.Errorf("Expected full metrics, got %+v", m)
	}
}

func TestAggregateSeriesDerivesPaceFromSpeed(t *testing.T) {
	series := []types.SeriesPoint{
		{TimeS: 0, SpeedMS: 1000.0 / 300.0},
		{TimeS: 60, SpeedMS: 1000.0 / 300.0},
	}
	m := AggregateSeries(series)
	if m.AvgPace == nil || *m.AvgPace != 5.0 {
		t.Errorf("AvgPace = %v, want 5.0", m.AvgPace)
	}
}

func TestAggregateSeriesFiltersPaceOutliers(t *testing.T) {
	series := []types.SeriesPoint{
		{TimeS: 0, PaceMinKM: 5.0},
		{TimeS: 60, PaceMinKM: 5.2},
		{TimeS: 120, PaceMinKM: 45.0}, // GPS dropout spike
		{TimeS: 180, PaceMinKM: 5.1},
	}
	m := AggregateSeries(series)
	if m.AvgPace == nil || *m.AvgPace > 6 {
		t.Errorf("Outlier pace leaked into the average: %v", m.AvgPace)
	}
}

func TestAggregateSeriesEmpty(t *testing.T) {
	m := AggregateSeries(nil)
	if m.AvgPace != nil || m.AvgHR != nil || m.DistKM != nil {
		t.Errorf("Expected nil metrics for empty series, got %+v", m)
	}
}

func TestAggregateSeriesSinglePointHasNoCV(t *testing.T) {
	series := []types.SeriesPoint{{TimeS: 0, PaceMinKM: 5, HeartRate: 140}}
	m := AggregateSeries(series)
	if m.CVPace != nil || m.CVHR != nil {
		t.Errorf("CV should be nil for a single sample, got %+v", m)
	}
}
