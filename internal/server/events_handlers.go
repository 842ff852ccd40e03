package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/hitesh22rana/runstream/internal/model/events"
	"github.com/hitesh22rana/runstream/internal/pkg/auth"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	"github.com/hitesh22rana/runstream/internal/pkg/sse"
	eventssvc "github.com/hitesh22rana/runstream/internal/service/events"
)

// sseEmitter writes stream events as SSE frames and sends keepalive comments while idle.
type sseEmitter struct {
	w         *sse.Writer
	keepAlive time.Duration
	lastWrite time.Time
	now       func() time.Time
}

func (e *sseEmitter) Event(ev *events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	if err = e.w.WriteFrame(sse.Frame{
		ID:    ev.ID,
		Event: ev.Type.ToString(),
		Data:  data,
	}); err != nil {
		return err
	}

	e.lastWrite = e.now()
	return nil
}

func (e *sseEmitter) Idle() error {
	if e.now().Sub(e.lastWrite) < e.keepAlive {
		return nil
	}

	if err := e.w.WriteComment("keepalive"); err != nil {
		return err
	}

	e.lastWrite = e.now()
	return nil
}

// handleStreamEvents streams a run's events as server-sent events, resuming after Last-Event-ID.
func (s *Server) handleStreamEvents(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	runID := r.PathValue("run_id")
	lastEventID := r.Header.Get(headerLastEventID)
	if lastEventID == "" {
		lastEventID = r.URL.Query().Get(queryLastEventID)
	}

	// Unknown runs and bad cursors are answered before the stream is opened.
	if _, err = s.svcs.Runs.GetRun(r.Context(), principal.TenantID, runID); err != nil {
		handleError(w, err, "failed to get run")
		return
	}
	if _, err = events.NormalizeResumeID(lastEventID); err != nil {
		handleError(w, err)
		return
	}

	sw, err := sse.NewWriter(w)
	if err != nil {
		handleError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)

	if err = sw.WriteComment("connected"); err != nil {
		return
	}

	emitter := &sseEmitter{
		w:         sw,
		keepAlive: s.cfg.KeepAlive,
		lastWrite: time.Now(),
		now:       time.Now,
	}
	if err = s.svcs.Events.Stream(r.Context(), principal.TenantID, runID, lastEventID, emitter); err != nil {
		loggerpkg.FromContext(r.Context()).Warn(
			"event stream ended with error",
			zap.String("run_id", runID),
			zap.Error(err),
		)
	}
}

type submitEventRequest struct {
	EventType events.Type    `json:"event_type"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata"`
}

type submitEventResponse struct {
	EventID string `json:"event_id"`
}

// handleSubmitEvent appends a client event to a run.
func (s *Server) handleSubmitEvent(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	var req submitEventRequest
	if err = json.NewDecoder(r.Body).Decode(&req); err != nil {
		handleDecodeError(w, err)
		return
	}

	id, err := s.svcs.Events.Submit(r.Context(), &eventssvc.SubmitRequest{
		TenantID: principal.TenantID,
		RunID:    r.PathValue("run_id"),
		Type:     req.EventType,
		Message:  req.Message,
		Metadata: req.Metadata,
	})
	if err != nil {
		handleError(w, err, "failed to submit event")
		return
	}

	writeJSON(w, http.StatusAccepted, &submitEventResponse{EventID: id})
}

type appendLogResponse struct {
	EventIDs []string `json:"event_ids"`
}

// handleAppendLog appends a newline-delimited batch of runtime records to a run.
func (s *Server) handleAppendLog(w http.ResponseWriter, r *http.Request) {
	principal, err := auth.PrincipalFromContext(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	var recs []*events.Record
	dec := json.NewDecoder(r.Body)
	for {
		var rec events.Record
		if err = dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			handleDecodeError(w, err)
			return
		}
		recs = append(recs, &rec)
	}

	ids, err := s.svcs.Events.AppendRuntime(r.Context(), principal.TenantID, r.PathValue("run_id"), recs)
	if err != nil {
		handleError(w, err, "failed to append log")
		return
	}

	writeJSON(w, http.StatusAccepted, &appendLogResponse{EventIDs: ids})
}
