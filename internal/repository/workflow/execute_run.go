package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	eventsmodel "github.com/hitesh22rana/runstream/internal/model/events"
	"github.com/hitesh22rana/runstream/internal/model/ontology"
	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	loggerpkg "github.com/hitesh22rana/runstream/internal/pkg/logger"
	redispkg "github.com/hitesh22rana/runstream/internal/pkg/redis"
)

// session is the state of one executing run.
type session struct {
	payload *runsmodel.DispatchPayload
	pkg     *ontology.Package
	cursor  string
}

func (s *session) ontologyID() string {
	if s.payload.SessionID != "" {
		return s.payload.SessionID
	}
	if id := runsmodel.SessionIDFromInputs(s.payload.Inputs); id != "" {
		return id
	}
	return s.payload.RunID
}

// ClaimError reports that the run claim could not be taken, so the run was not started.
type ClaimError struct {
	Err error
}

func (e *ClaimError) Error() string {
	return "failed to claim run: " + e.Err.Error()
}

func (e *ClaimError) Unwrap() error {
	return e.Err
}

// ExecuteRun drives one run from workflow_started to a terminal event. A run that another
// worker already claimed is skipped.
func (r *Repository) ExecuteRun(ctx context.Context, payload *runsmodel.DispatchPayload) (err error) {
	ctx, span := r.tp.Start(
		ctx,
		"workflow.ExecuteRun",
		trace.WithAttributes(
			attribute.String("run_id", payload.RunID),
			attribute.String("workflow_id", payload.WorkflowID),
		),
	)
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	ctx = loggerpkg.With(ctx, zap.String("run_id", payload.RunID), zap.String("tenant_id", payload.TenantID))
	logger := loggerpkg.FromContext(ctx)

	var claimed bool
	if err = withRetry(func() error {
		var claimErr error
		claimed, claimErr = r.state.SetNX(ctx, redispkg.RunClaimKey(payload.TenantID, payload.RunID), time.Now().UTC(), r.cfg.ClaimTTL)
		return claimErr
	}); err != nil {
		return &ClaimError{Err: err}
	}
	if !claimed {
		logger.Info("run already claimed, skipping")
		return nil
	}

	if err = r.execute(ctx, payload); err != nil {
		// Once claimed the run must end with a terminal event, even when the runtime gives up.
		rec := workflowError(eventsmodel.ErrorCodeRuntime, "runtime failed: "+status.Convert(err).Message())
		if _, emitErr := r.sink.AppendRuntime(context.WithoutCancel(ctx), payload.TenantID, payload.RunID, []*eventsmodel.Record{rec}); emitErr != nil {
			logger.Error("failed to report runtime failure", zap.Error(emitErr))
		}
		return err
	}

	return nil
}

func (r *Repository) execute(ctx context.Context, payload *runsmodel.DispatchPayload) error {
	s := &session{payload: payload, cursor: eventsmodel.ZeroID}

	runCtx, cancel := context.WithTimeout(ctx, r.maxRunDuration())
	defer cancel()

	if err := r.emit(ctx, s, &eventsmodel.Record{
		Type:    eventsmodel.TypeWorkflowStarted,
		Message: fmt.Sprintf("workflow %s started", payload.WorkflowID),
		Metadata: map[string]any{
			"workflow_id":              payload.WorkflowID,
			eventsmodel.MetaOntologyID: s.ontologyID(),
			"engine":                   payload.Engine,
		},
	}); err != nil {
		return err
	}

	s.pkg = r.loadPackage(ctx, s)
	if err := r.propose(ctx, s); err != nil {
		return err
	}

	reason, code, err := r.converse(runCtx, s)
	if err != nil {
		return err
	}

	if code == "" {
		return nil
	}

	// The run context may be gone at this point, the terminal event must still land.
	return r.emit(context.WithoutCancel(ctx), s, workflowError(code, reason))
}

func (r *Repository) maxRunDuration() time.Duration {
	if r.cfg.MaxRunDuration <= 0 {
		return 2 * time.Hour
	}
	return r.cfg.MaxRunDuration
}

// converse processes inbound events until the run ends. It returns the error code and reason of
// the workflow_error to emit, or an empty code when the run already completed.
func (r *Repository) converse(ctx context.Context, s *session) (reason, code string, err error) {
	logger := loggerpkg.FromContext(ctx)
	lastActivity := time.Now()

	for {
		if ctx.Err() != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "run exceeded its maximum duration", eventsmodel.ErrorCodeTimeout, nil
			}
			return "runtime is shutting down", eventsmodel.ErrorCodeRuntime, nil
		}

		if r.cfg.IdleTimeout > 0 && time.Since(lastActivity) > r.cfg.IdleTimeout {
			return "no input received before the idle timeout", eventsmodel.ErrorCodeTimeout, nil
		}

		evs, readErr := r.log.Read(ctx, s.payload.TenantID, s.payload.RunID, s.cursor, 0, r.cfg.PollTimeout)
		if readErr != nil {
			if ctx.Err() != nil {
				continue
			}
			logger.Warn("failed to read run log", zap.Error(readErr))
			select {
			case <-ctx.Done():
			case <-time.After(retryBackoff):
			}
			continue
		}

		for _, ev := range evs {
			s.cursor = ev.ID
			if ev.Role != eventsmodel.RoleClient || !ev.Type.IsInbound() {
				continue
			}
			lastActivity = time.Now()

			done, reason, code, err := r.handleInbound(ctx, s, ev)
			if err != nil {
				return "", "", err
			}
			if done {
				return reason, code, nil
			}
		}
	}
}

// handleInbound reacts to one client event. done reports that the run reached its end.
func (r *Repository) handleInbound(ctx context.Context, s *session, ev *eventsmodel.Event) (done bool, reason, code string, err error) {
	ctx = context.WithoutCancel(ctx)

	//nolint:exhaustive // only inbound types reach here
	switch ev.Type {
	case eventsmodel.TypeUserMessage:
		return false, "", "", r.update(ctx, s, ev)

	case eventsmodel.TypeFinalizeOntology:
		if err := r.finalize(ctx, s, ev); err != nil {
			return false, "", "", err
		}
		return true, "", "", nil

	case eventsmodel.TypeCancelRun:
		reason, _ := ev.Metadata[eventsmodel.MetaReason].(string)
		if strings.TrimSpace(reason) == "" {
			reason = "run cancelled by client"
		}
		return true, reason, eventsmodel.ErrorCodeCancelled, nil
	}

	return false, "", "", nil
}

// loadPackage returns the starting package of the run: the client's copy from the inputs,
// then the last snapshot of the session, then an empty proposal.
func (r *Repository) loadPackage(ctx context.Context, s *session) *ontology.Package {
	if v, ok := s.payload.Inputs[eventsmodel.MetaCurrentOntologyPackage].(map[string]any); ok {
		if pkg, err := ontology.FromMap(v); err == nil {
			return pkg
		}
	}

	var snapshot ontology.Package
	err := r.state.Get(ctx, redispkg.SessionSnapshotKey(s.payload.TenantID, s.ontologyID()), &snapshot)
	if err == nil {
		return snapshot.Clone()
	}
	if status.Code(err) != codes.NotFound {
		loggerpkg.FromContext(ctx).Warn("failed to load session snapshot", zap.Error(err))
	}

	pkg := &ontology.Package{
		OntologyID:      s.ontologyID(),
		SemanticVersion: ontology.InitialVersion,
		Entities:        []ontology.Entity{},
		Relations:       []ontology.Relation{},
	}
	if title, ok := s.payload.Inputs["title"].(string); ok {
		pkg.Title = title
	}
	for _, name := range seedEntities(s.payload.Inputs) {
		pkg.Entities = append(pkg.Entities, ontology.Entity{Name: name})
	}
	return pkg
}

func (r *Repository) propose(ctx context.Context, s *session) error {
	if s.pkg.OntologyID == "" {
		s.pkg.OntologyID = s.ontologyID()
	}

	text := fmt.Sprintf("I drafted ontology %s with %d entities.", s.pkg.OntologyID, len(s.pkg.Entities))
	if err := r.streamMessage(ctx, s, text); err != nil {
		return err
	}

	if err := r.emit(ctx, s, &eventsmodel.Record{
		Type:    eventsmodel.TypeOntologyProposed,
		Message: "ontology proposed",
		Metadata: map[string]any{
			eventsmodel.MetaOntologyID:      s.pkg.OntologyID,
			eventsmodel.MetaSemanticVersion: s.pkg.SemanticVersion,
			eventsmodel.MetaOntologyPackage: s.pkg.ToMap(),
		},
	}); err != nil {
		return err
	}

	r.saveSnapshot(ctx, s)
	return nil
}

func (r *Repository) update(ctx context.Context, s *session, ev *eventsmodel.Event) error {
	text := ev.Message
	if text == "" {
		text, _ = ev.Metadata[eventsmodel.MetaContent].(string)
	}

	previous := s.pkg
	base := previous
	if v, ok := ev.Metadata[eventsmodel.MetaCurrentOntologyPackage].(map[string]any); ok {
		if pkg, err := ontology.FromMap(v); err == nil {
			base = pkg
		}
	}

	updated := applyInstructions(base.Clone(), text)
	updated.OntologyID = previous.OntologyID
	updated.SemanticVersion = ontology.BumpMinor(laterVersion(previous.SemanticVersion, base.SemanticVersion))
	summary := ontology.Diff(previous, updated)

	if err := r.streamMessage(ctx, s, "Updated the ontology: "+summary+"."); err != nil {
		return err
	}

	if err := r.emit(ctx, s, &eventsmodel.Record{
		Type:    eventsmodel.TypeOntologyUpdated,
		Message: summary,
		Metadata: map[string]any{
			eventsmodel.MetaOntologyID:      updated.OntologyID,
			eventsmodel.MetaSemanticVersion: updated.SemanticVersion,
			eventsmodel.MetaUpdateSummary:   summary,
			eventsmodel.MetaOntologyPackage: updated.ToMap(),
		},
	}); err != nil {
		return err
	}

	s.pkg = updated
	r.saveSnapshot(ctx, s)
	return nil
}

func (r *Repository) finalize(ctx context.Context, s *session, ev *eventsmodel.Event) error {
	ontologyID, _ := ev.Metadata[eventsmodel.MetaOntologyID].(string)
	if ontologyID == "" {
		ontologyID = s.pkg.OntologyID
	}

	if err := r.emit(ctx, s,
		&eventsmodel.Record{
			Type:    eventsmodel.TypeOntologyFinalized,
			Message: fmt.Sprintf("ontology %s finalized at %s", ontologyID, s.pkg.SemanticVersion),
			Metadata: map[string]any{
				eventsmodel.MetaOntologyID:      ontologyID,
				eventsmodel.MetaSemanticVersion: s.pkg.SemanticVersion,
				eventsmodel.MetaOntologyPackage: s.pkg.ToMap(),
			},
		},
		&eventsmodel.Record{
			Type:     eventsmodel.TypeWorkflowComplete,
			Message:  "workflow complete",
			Metadata: map[string]any{eventsmodel.MetaOntologyID: ontologyID},
		},
	); err != nil {
		return err
	}

	r.saveSnapshot(ctx, s)
	return nil
}

// streamMessage emits the text as partial agent_message frames followed by the final one.
func (r *Repository) streamMessage(ctx context.Context, s *session, text string) error {
	messageID := uuid.NewString()

	words := strings.Fields(text)
	for start := 0; start < len(words); start += r.cfg.ChunkSize {
		end := min(start+r.cfg.ChunkSize, len(words))
		chunk := strings.Join(words[start:end], " ")
		if end < len(words) {
			chunk += " "
		}

		if err := r.emit(ctx, s, &eventsmodel.Record{
			Type:    eventsmodel.TypeAgentMessage,
			Message: chunk,
			Metadata: map[string]any{
				eventsmodel.MetaMessageID: messageID,
				eventsmodel.MetaCompleted: false,
			},
		}); err != nil {
			return err
		}
	}

	return r.emit(ctx, s, &eventsmodel.Record{
		Type:    eventsmodel.TypeAgentMessage,
		Message: text,
		Metadata: map[string]any{
			eventsmodel.MetaMessageID: messageID,
			eventsmodel.MetaCompleted: true,
		},
	})
}

func (r *Repository) emit(ctx context.Context, s *session, recs ...*eventsmodel.Record) error {
	return withRetry(func() error {
		_, err := r.sink.AppendRuntime(ctx, s.payload.TenantID, s.payload.RunID, recs)
		return err
	})
}

func (r *Repository) saveSnapshot(ctx context.Context, s *session) {
	key := redispkg.SessionSnapshotKey(s.payload.TenantID, s.pkg.OntologyID)
	if err := r.state.Set(ctx, key, s.pkg, r.cfg.SnapshotTTL); err != nil {
		loggerpkg.FromContext(ctx).Warn("failed to save session snapshot", zap.Error(err))
	}
}

func workflowError(code, reason string) *eventsmodel.Record {
	return &eventsmodel.Record{
		Type:    eventsmodel.TypeWorkflowError,
		Message: reason,
		Metadata: map[string]any{
			eventsmodel.MetaCode:   code,
			eventsmodel.MetaReason: reason,
		},
	}
}
