package api

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// detailsBody is the JSON shape of every non-2xx response.
type detailsBody struct {
	Details string `json:"details"`
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "error converting response to JSON: %v", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func respondError(w http.ResponseWriter, status int, format string, a ...any) {
	body, _ := json.Marshal(detailsBody{Details: fmt.Sprintf(format, a...)})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}
