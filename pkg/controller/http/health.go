package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/m-mizutani/newman/pkg/domain/model"
	"github.com/m-mizutani/newman/pkg/domain/types"
	"github.com/m-mizutani/newman/pkg/utils/logging"
)

func healthHandler(startedAt time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := &model.HealthStatus{
			Status:    "healthy",
			Service:   types.ServiceName,
			Version:   types.Version,
			StartedAt: startedAt,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if err := json.NewEncoder(w).Encode(status); err != nil {
			logging.From(r.Context()).Error("Failed to encode health response", "error", err)
		}
	}
}
