package server

import (
	"compress/gzip"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	serverShutdownTimeout = 10 * time.Second

	headerTenantID    = "X-Tenant-ID"
	headerLastEventID = "Last-Event-ID"
	queryLastEventID  = "last_event_id"
)

// isEventStream reports whether the request subscribes to a run's event stream.
func isEventStream(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/events")
}

// writeJSON writes v as the JSON body of the response.
func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	//nolint:errcheck // the client may be gone, there is nobody left to tell
	json.NewEncoder(w).Encode(v)
}

//nolint:gocyclo // handleError is a helper function to map gRPC errors to HTTP.
func handleError(w http.ResponseWriter, err error, message ...string) {
	msg := status.Convert(err).Message()
	if len(message) > 0 {
		msg = strings.Join(message, " ") + ": " + msg
	}

	switch status.Code(err) {
	case codes.OK:
		return
	case codes.Unauthenticated:
		http.Error(w, msg, http.StatusUnauthorized)
	case codes.PermissionDenied:
		http.Error(w, msg, http.StatusForbidden)
	case codes.NotFound:
		http.Error(w, msg, http.StatusNotFound)
	case codes.AlreadyExists:
		http.Error(w, msg, http.StatusConflict)
	case codes.InvalidArgument:
		http.Error(w, msg, http.StatusBadRequest)
	case codes.Unimplemented:
		http.Error(w, msg, http.StatusNotImplemented)
	case codes.Unavailable:
		http.Error(w, msg, http.StatusServiceUnavailable)
	case codes.FailedPrecondition:
		http.Error(w, msg, http.StatusPreconditionFailed)
	case codes.ResourceExhausted:
		http.Error(w, msg, http.StatusTooManyRequests)
	case codes.Canceled:
		http.Error(w, msg, http.StatusRequestTimeout)
	case codes.DeadlineExceeded:
		http.Error(w, msg, http.StatusGatewayTimeout)
	case codes.Internal, codes.DataLoss, codes.Aborted, codes.OutOfRange, codes.Unknown:
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

// customResponseWriter wraps http.ResponseWriter to capture status code.
type customResponseWriter struct {
	http.ResponseWriter
	status int
}

func (w *customResponseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *customResponseWriter) Write(b []byte) (int, error) {
	return w.ResponseWriter.Write(b)
}

// Flush keeps event streams working behind the wrapper.
func (w *customResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// gzipResponseWriter combines gzip compression with status code capture.
type gzipResponseWriter struct {
	http.ResponseWriter
	gzipWriter *gzip.Writer
	status     int
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	w.status = statusCode
	w.Header().Set("Content-Encoding", "gzip")
	w.Header().Del("Content-Length")
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.WriteHeader(http.StatusOK)
	}
	return w.gzipWriter.Write(b)
}
