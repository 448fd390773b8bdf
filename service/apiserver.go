package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/yaron8/lossreport-infra/config"
	"github.com/yaron8/lossreport-infra/dao"
	"github.com/yaron8/lossreport-infra/logi"
)

type APIServer struct {
	config    *config.Config
	server    *http.Server
	dao       *dao.DAOReports
	snapshots *ReportSnapshots
	logger    *slog.Logger
}

func NewAPIServer(cfg *config.Config, reports *dao.DAOReports) *APIServer {
	api := &APIServer{
		config:    cfg,
		dao:       reports,
		snapshots: NewReportSnapshots(cfg.API.CacheTTL, reports.GetAll),
		logger:    logi.GetLogger(),
	}
	api.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.API.Port),
		Handler:      api.Handler(),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return api
}

// Handler returns the routes wrapped with the logging middleware.
func (api *APIServer) Handler() http.Handler {
	mux := http.NewServeMux()

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			api.logger.Error("Error writing health check response", "error", err)
		}
	})

	// Report endpoints
	mux.HandleFunc("/reports/ListReports", api.ListReportsHandler)
	mux.HandleFunc("/reports/GetReport", api.GetReportHandler)
	mux.HandleFunc("/reports/GetMetric", api.GetMetricHandler)
	mux.HandleFunc("/reports/LastRun", api.LastRunHandler)

	return api.middleware(mux)
}

// Start initializes and starts the HTTP server
func (api *APIServer) Start() error {
	api.logger.Info("Report APIServer starting", "port", api.config.API.Port)

	if err := api.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		api.logger.Error("Server failed to start", "error", err, "port", api.config.API.Port)
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown stops the server gracefully.
func (api *APIServer) Shutdown(ctx context.Context) error {
	api.logger.Info("Report APIServer shutting down")
	return api.server.Shutdown(ctx)
}
