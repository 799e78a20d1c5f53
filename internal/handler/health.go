package handler

import (
	"encoding/json"
	"net/http"
)

// Health reports liveness. The service keeps no external dependencies, so
// being able to answer is the whole check.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "UP"})
}
