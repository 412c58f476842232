package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/BorisDmv/blog-cms/internal/apperr"
)

func parsePositiveInt(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// respondErr maps a service error onto its status. Unclassified errors are
// logged and answered with fallback so internals stay server-side.
func respondErr(w http.ResponseWriter, log *logrus.Entry, err error, fallback string) {
	status := apperr.StatusCode(err)
	if status == http.StatusInternalServerError {
		log.WithError(err).Error(fallback)
	}
	respondError(w, status, apperr.Message(err, fallback))
}
