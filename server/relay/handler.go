package relay

import (
	"encoding/json"
	"log"
	"net/http"
)

type healthResponse struct {
	Status    string `json:"status"`
	Viewers   int    `json:"viewers"`
	Published uint64 `json:"published"`
}

// ListSessions serves the connected viewers as JSON.
func ListSessions(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		if err := json.NewEncoder(w).Encode(reg.List()); err != nil {
			log.Printf("[relay] sessions encode error: %v", err)
		}
	}
}

func Health(r *Relay) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(healthResponse{
			Status:    "ok",
			Viewers:   r.sessions.Len(),
			Published: r.Published(),
		})
	}
}
