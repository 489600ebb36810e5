// Package overtraining scores a user's recent training history for
// overtraining risk across four weighted factors.
package overtraining

import (
	"fmt"
	"math"
	"sort"
	"time"
)

const (
	trainingLoadWeight = 0.35
	frequencyWeight    = 0.25
	intensityWeight    = 0.20
	volumeTrendWeight  = 0.20

	// defaultHeartRate substitutes the load formula's heart rate term when an
	// activity has no heart rate data.
	defaultHeartRate = 100.0

	// DefaultDaysToAnalyze is the lookback window when the request omits one.
	DefaultDaysToAnalyze = 30
)

// Risk levels.
const (
	LevelLow    = "low"
	LevelMedium = "medium"
	LevelHigh   = "high"
)

// Activity is the per-activity slice of history the scorer consumes. Zero
// values mean the field is unknown.
type Activity struct {
	ActivityDate        time.Time
	TotalTimeMinutes    float64
	AverageHeartRate    float64
	MaxHeartRate        float64
	TotalDistanceMeters float64
}

// Risk is the scored outcome of one analysis run.
type Risk struct {
	Level             string   `json:"level"`
	Score             int      `json:"score"`
	Factors           []string `json:"factors"`
	Recommendation    string   `json:"recommendation"`
	TrainingLoadScore int      `json:"training_load_score"`
	FrequencyScore    int      `json:"frequency_score"`
	IntensityScore    int      `json:"intensity_score"`
	VolumeTrendScore  int      `json:"volume_trend_score"`
}

// CalculateRisk scores the given history relative to now. An empty history is
// not an error: it yields the low-risk safe default so callers can always
// persist a row.
func CalculateRisk(activities []Activity, now time.Time) Risk {
	if len(activities) == 0 {
		return Risk{
			Level:          LevelLow,
			Score:          0,
			Factors:        []string{"Dados insuficientes"},
			Recommendation: "Continue registrando suas atividades para análise",
		}
	}

	totalScore := 0.0
	var factors []string

	oneWeekAgo := now.Add(-7 * 24 * time.Hour)
	twoWeeksAgo := now.Add(-14 * 24 * time.Hour)
	oneMonthAgo := now.Add(-30 * 24 * time.Hour)

	var recent, monthly, previousWeek []Activity
	for _, a := range activities {
		if !a.ActivityDate.Before(oneWeekAgo) {
			recent = append(recent, a)
		}
		if !a.ActivityDate.Before(oneMonthAgo) {
			monthly = append(monthly, a)
		}
		if !a.ActivityDate.Before(twoWeeksAgo) && a.ActivityDate.Before(oneWeekAgo) {
			previousWeek = append(previousWeek, a)
		}
	}

	// 1. Training load: this week's load against the average week of the
	// month. Load is duration weighted by heart rate.
	weeklyLoad := trainingLoad(recent)
	avgMonthlyLoad := weeklyLoad
	if len(monthly) > 0 {
		weeks := math.Ceil(float64(len(monthly)) / 4)
		avgMonthlyLoad = trainingLoad(monthly) / weeks
	}

	loadRatio := 1.0
	if avgMonthlyLoad > 0 {
		loadRatio = weeklyLoad / avgMonthlyLoad
	}

	trainingLoadScore := 0.0
	switch {
	case loadRatio > 1.5:
		trainingLoadScore = 100
		factors = append(factors, "Carga de treino muito acima da média mensal")
	case loadRatio > 1.3:
		trainingLoadScore = 75
		factors = append(factors, "Carga de treino significativamente aumentada")
	case loadRatio > 1.15:
		trainingLoadScore = 50
		factors = append(factors, "Carga de treino moderadamente elevada")
	case loadRatio > 1.0:
		trainingLoadScore = 25
	}
	totalScore += trainingLoadScore * trainingLoadWeight

	// 2. Frequency and recovery: weekly session count plus the longest
	// streak of consecutive training days.
	trainingsPerWeek := len(recent)
	consecutiveDays := consecutiveTrainingDays(activities)

	frequencyScore := 0.0
	switch {
	case trainingsPerWeek > 6:
		frequencyScore += 50
		factors = append(factors, "Treinos quase diários sem descanso adequado")
	case trainingsPerWeek > 5:
		frequencyScore += 35
		factors = append(factors, "Frequência de treino muito alta")
	case trainingsPerWeek > 4:
		frequencyScore += 20
	}
	switch {
	case consecutiveDays >= 7:
		frequencyScore += 50
		factors = append(factors, fmt.Sprintf("%d dias consecutivos sem descanso", consecutiveDays))
	case consecutiveDays >= 5:
		frequencyScore += 30
		factors = append(factors, fmt.Sprintf("%d dias consecutivos de treino", consecutiveDays))
	case consecutiveDays >= 4:
		frequencyScore += 15
	}
	if frequencyScore > 100 {
		frequencyScore = 100
	}
	totalScore += frequencyScore * frequencyWeight

	// 3. Accumulated intensity: share of the recent week spent in
	// high-intensity sessions.
	highIntensity := 0
	for _, a := range recent {
		if a.MaxHeartRate > 170 || a.AverageHeartRate > 150 {
			highIntensity++
		}
	}
	intensityRatio := 0.0
	if len(recent) > 0 {
		intensityRatio = float64(highIntensity) / float64(len(recent))
	}

	intensityScore := 0.0
	switch {
	case intensityRatio > 0.7:
		intensityScore = 100
		factors = append(factors, "Proporção muito alta de treinos intensos")
	case intensityRatio > 0.5:
		intensityScore = 70
		factors = append(factors, "Muitos treinos de alta intensidade")
	case intensityRatio > 0.4:
		intensityScore = 40
		factors = append(factors, "Intensidade de treino elevada")
	}
	totalScore += intensityScore * intensityWeight

	// 4. Volume trend: week-over-week distance growth.
	currentWeekKM := totalDistanceKM(recent)
	previousWeekKM := totalDistanceKM(previousWeek)
	volumeIncrease := 0.0
	if previousWeekKM > 0 {
		volumeIncrease = (currentWeekKM - previousWeekKM) / previousWeekKM * 100
	}

	volumeTrendScore := 0.0
	switch {
	case volumeIncrease > 30:
		volumeTrendScore = 100
		factors = append(factors, fmt.Sprintf("Aumento brusco de %.0f%% no volume semanal", volumeIncrease))
	case volumeIncrease > 20:
		volumeTrendScore = 70
		factors = append(factors, fmt.Sprintf("Aumento de %.0f%% no volume de treino", volumeIncrease))
	case volumeIncrease > 10:
		volumeTrendScore = 40
		factors = append(factors, "Volume de treino em crescimento acelerado")
	}
	totalScore += volumeTrendScore * volumeTrendWeight

	var level, recommendation string
	switch {
	case totalScore >= 50:
		level = LevelHigh
		recommendation = "ATENÇÃO: Risco elevado de overtraining. Considere reduzir o volume e intensidade dos treinos. Priorize descanso e recuperação ativa. Consulte seu treinador ou médico se persistirem sinais de fadiga excessiva."
	case totalScore >= 25:
		level = LevelMedium
		recommendation = "Cuidado: Seus treinos estão intensos. Planeje dias de recuperação ativa e considere reduzir a intensidade nos próximos treinos. Monitore sinais de fadiga e qualidade do sono."
	default:
		level = LevelLow
		recommendation = "Seus treinos estão equilibrados. Continue mantendo uma boa relação entre treino e descanso. Sempre escute seu corpo e ajuste conforme necessário."
	}

	if len(factors) == 0 {
		factors = append(factors, "Carga de treino adequada")
	}

	return Risk{
		Level:             level,
		Score:             int(math.Round(totalScore)),
		Factors:           factors,
		Recommendation:    recommendation,
		TrainingLoadScore: int(math.Round(trainingLoadScore)),
		FrequencyScore:    int(math.Round(frequencyScore)),
		IntensityScore:    int(math.Round(intensityScore)),
		VolumeTrendScore:  int(math.Round(volumeTrendScore)),
	}
}

// trainingLoad sums duration weighted by heart rate. Activities without a
// heart rate count at the neutral default.
func trainingLoad(activities []Activity) float64 {
	load := 0.0
	for _, a := range activities {
		hr := a.AverageHeartRate
		if hr == 0 {
			hr = defaultHeartRate
		}
		load += a.TotalTimeMinutes * hr / 100
	}
	return load
}

func totalDistanceKM(activities []Activity) float64 {
	meters := 0.0
	for _, a := range activities {
		meters += a.TotalDistanceMeters
	}
	return meters / 1000
}

// consecutiveTrainingDays finds the longest run of calendar days with at
// least one activity. Multiple activities on the same day do not break or
// extend a streak.
func consecutiveTrainingDays(activities []Activity) int {
	if len(activities) == 0 {
		return 0
	}

	dates := make([]time.Time, len(activities))
	for i, a := range activities {
		dates[i] = a.ActivityDate.Truncate(24 * time.Hour)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].After(dates[j]) })

	maxConsecutive, streak := 1, 1
	for i := 1; i < len(dates); i++ {
		daysDiff := int(dates[i-1].Sub(dates[i]).Hours() / 24)
		if daysDiff == 1 {
			streak++
			if streak > maxConsecutive {
				maxConsecutive = streak
			}
		} else if daysDiff > 1 {
			streak = 1
		}
	}
	return maxConsecutive
}
