package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/yaron8/lossreport-infra/dao"
)

func (api *APIServer) GetReportHandler(w http.ResponseWriter, r *http.Request) {
	campaign, testID, ok := reportParams(w, r)
	if !ok {
		return
	}

	record, err := api.dao.Get(r.Context(), campaign, testID)
	if err != nil {
		api.writeLookupError(w, err)
		return
	}

	writeJSON(w, record)
}

func (api *APIServer) GetMetricHandler(w http.ResponseWriter, r *http.Request) {
	campaign, testID, ok := reportParams(w, r)
	if !ok {
		return
	}

	metricName := r.URL.Query().Get("metric")
	if metricName == "" {
		http.Error(w, "Missing metric parameter", http.StatusBadRequest)
		return
	}

	val, err := api.dao.GetMetric(r.Context(), campaign, testID, metricName)
	if err != nil {
		api.writeLookupError(w, err)
		return
	}

	// Marshal the value to JSON (handles float, int, etc.)
	writeJSON(w, val)
}

func (api *APIServer) LastRunHandler(w http.ResponseWriter, r *http.Request) {
	info, err := api.dao.LastRun(r.Context())
	if err != nil {
		api.writeLookupError(w, err)
		return
	}
	writeJSON(w, info)
}

func reportParams(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	campaign := r.URL.Query().Get("campaign")
	if campaign == "" {
		http.Error(w, "Missing campaign parameter", http.StatusBadRequest)
		return "", "", false
	}

	testID := r.URL.Query().Get("test_id")
	if testID == "" {
		http.Error(w, "Missing test_id parameter", http.StatusBadRequest)
		return "", "", false
	}
	return campaign, testID, true
}

func (api *APIServer) writeLookupError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, dao.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, dao.ErrUnknownMetric):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		api.logger.Error("Error retrieving report", "error", err)
		http.Error(w, fmt.Sprintf("Error retrieving report: %v", err),
			http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	jsonData, err := json.Marshal(v)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error encoding value to JSON: %v", err),
			http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(jsonData)
}
