package service

import (
	"encoding/json"
	"fmt"
	"net/http"
)

func (api *APIServer) ListReportsHandler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	campaign := r.URL.Query().Get("campaign")

	reports, err := api.snapshots.Get(ctx, campaign)
	if err != nil {
		api.logger.Error("Error retrieving reports", "campaign", campaign, "error", err)
		http.Error(w, fmt.Sprintf("Error retrieving reports: %v", err),
			http.StatusInternalServerError)
		return
	}

	// Set content type and status code before encoding
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// Use encoder to stream JSON directly to response writer
	if err := json.NewEncoder(w).Encode(reports); err != nil {
		// Can't send error response after WriteHeader, just log it
		api.logger.Error("Error encoding reports to JSON", "error", err)
		return
	}
}
