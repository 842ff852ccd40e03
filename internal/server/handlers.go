package server

import (
	"errors"
	"net/http"

	"go.uber.org/zap"
)

// handleHealthz handles the health check request.
func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// handleGetPayload serves the dispatch payload behind a signed URL.
// The token in the query string is the only credential.
func (s *Server) handleGetPayload(w http.ResponseWriter, r *http.Request) {
	obj, err := s.svcs.Payloads.Fetch(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		handleError(w, err, "failed to fetch payload")
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/json"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(obj.Data); err != nil {
		s.logger.Warn("failed to write payload", zap.Error(err))
	}
}

// handleDecodeError writes the response for a request body that could not be decoded.
func handleDecodeError(w http.ResponseWriter, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	http.Error(w, "invalid request body", http.StatusBadRequest)
}
