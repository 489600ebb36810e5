// Command server runs every analytics function behind one HTTP router for
// local development and single-binary deployments.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/stridelab/server/functions/bestsegment"
	"github.com/stridelab/server/functions/chartdata"
	"github.com/stridelab/server/functions/classifyworkouts"
	"github.com/stridelab/server/functions/overtraining"
	"github.com/stridelab/server/functions/overtrainingbatch"
	"github.com/stridelab/server/functions/performance"
	"github.com/stridelab/server/pkg/bootstrap"
)

func main() {
	logger := bootstrap.NewLogger("server")

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/calculate-best-segment", bestsegment.CalculateBestSegment)
	r.Post("/build-chart-data", chartdata.BuildChartData)
	r.Post("/calculate-performance-metrics", performance.CalculatePerformanceMetrics)
	r.Post("/classify-workouts", classifyworkouts.ClassifyWorkouts)
	r.Post("/calculate-overtraining-risk", overtraining.CalculateOvertrainingRisk)
	r.Post("/calculate-overtraining-batch", overtrainingbatch.RunOvertrainingBatch)

	logger.Info("Server listening", "port", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		slog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}
