package runs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	sessionsmodel "github.com/hitesh22rana/runstream/internal/model/sessions"
	"github.com/hitesh22rana/runstream/internal/pkg/postgres"
	svcpkg "github.com/hitesh22rana/runstream/internal/pkg/svc"
)

// runRow mirrors a workflow_runs row.
type runRow struct {
	ID            string         `db:"id"`
	TenantID      string         `db:"tenant_id"`
	WorkspaceID   string         `db:"workspace_id"`
	ScenarioID    string         `db:"scenario_id"`
	WorkflowID    string         `db:"workflow_id"`
	SessionID     string         `db:"session_id"`
	Engine        string         `db:"engine"`
	ChangesetID   string         `db:"changeset_id"`
	Backend       string         `db:"backend"`
	Status        string         `db:"status"`
	Inputs        map[string]any `db:"inputs"`
	FailureReason string         `db:"failure_reason"`
	RequestedAt   time.Time      `db:"requested_at"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

func (row *runRow) toModel() *runsmodel.WorkflowRun {
	return &runsmodel.WorkflowRun{
		ID:            row.ID,
		TenantID:      row.TenantID,
		WorkspaceID:   row.WorkspaceID,
		ScenarioID:    row.ScenarioID,
		WorkflowID:    row.WorkflowID,
		SessionID:     row.SessionID,
		Engine:        row.Engine,
		ChangesetID:   row.ChangesetID,
		Backend:       runsmodel.Backend(row.Backend),
		Status:        runsmodel.Status(row.Status),
		Inputs:        row.Inputs,
		FailureReason: row.FailureReason,
		RequestedAt:   row.RequestedAt,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
	}
}

// sessionRow mirrors a sessions row.
type sessionRow struct {
	ID          string     `db:"id"`
	TenantID    string     `db:"tenant_id"`
	Status      string     `db:"status"`
	ActiveRunID string     `db:"active_run_id"`
	LastRunID   string     `db:"last_run_id"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	FinalizedAt *time.Time `db:"finalized_at"`
}

// Repository persists runs and sessions.
type Repository struct {
	tp trace.Tracer
	pg postgres.Store
}

// New creates a new runs repository.
func New(pg postgres.Store) *Repository {
	return &Repository{
		tp: otel.Tracer(svcpkg.Info().GetName()),
		pg: pg,
	}
}

// CreateRun inserts a queued run. When the run belongs to a session, the session is created or
// claimed for the run in the same transaction: a session with another live run yields
// AlreadyExists and a finalized session yields FailedPrecondition.
func (r *Repository) CreateRun(ctx context.Context, run *runsmodel.WorkflowRun) (err error) {
	ctx, span := r.tp.Start(ctx, "Repository.CreateRun")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	tx, err := r.pg.BeginTx(ctx)
	if err != nil {
		err = status.Errorf(codes.Internal, "failed to start transaction: %v", err)
		return err
	}
	//nolint:errcheck // The error is handled in the next line
	defer tx.Rollback(ctx)

	inputs := run.Inputs
	if inputs == nil {
		inputs = map[string]any{}
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, tenant_id, workspace_id, scenario_id, workflow_id, session_id, engine, changeset_id, status, inputs, requested_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), $9, $10, $11)
		RETURNING created_at, updated_at
	`, postgres.TableWorkflowRuns)

	row := tx.QueryRow(
		ctx,
		query,
		run.ID,
		run.TenantID,
		run.WorkspaceID,
		run.ScenarioID,
		run.WorkflowID,
		run.SessionID,
		run.Engine,
		run.ChangesetID,
		runsmodel.StatusQueued.ToString(),
		inputs,
		run.RequestedAt,
	)
	if err = row.Scan(&run.CreatedAt, &run.UpdatedAt); err != nil {
		if r.pg.IsUniqueViolation(err) {
			err = status.Errorf(codes.AlreadyExists, "run already exists: %s", run.ID)
			return err
		}
		err = status.Errorf(codes.Internal, "failed to insert run: %v", err)
		return err
	}

	if run.SessionID != "" {
		if err = r.claimSession(ctx, tx, run); err != nil {
			return err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		err = status.Errorf(codes.Internal, "failed to commit transaction: %v", err)
		return err
	}

	run.Status = runsmodel.StatusQueued
	return nil
}

// claimSession points the session at the run. A previous run only blocks the claim while it is
// not terminal.
func (r *Repository) claimSession(ctx context.Context, tx pgx.Tx, run *runsmodel.WorkflowRun) error {
	query := fmt.Sprintf(`
		INSERT INTO %[1]s (id, tenant_id, status, active_run_id, last_run_id)
		VALUES ($1, $2, $3, $4, $4)
		ON CONFLICT (tenant_id, id) DO UPDATE
		SET active_run_id = EXCLUDED.active_run_id, last_run_id = EXCLUDED.last_run_id, updated_at = now()
		WHERE %[1]s.status <> $5
		AND (
			%[1]s.active_run_id IS NULL
			OR EXISTS (
				SELECT 1 FROM %[2]s r
				WHERE r.tenant_id = %[1]s.tenant_id AND r.id = %[1]s.active_run_id AND r.status = ANY($6)
			)
		)
		RETURNING status
	`, postgres.TableSessions, postgres.TableWorkflowRuns)

	terminal := []string{runsmodel.StatusCompleted.ToString(), runsmodel.StatusFailed.ToString()}

	var claimed string
	err := tx.QueryRow(
		ctx,
		query,
		run.SessionID,
		run.TenantID,
		sessionsmodel.StatusCreated.ToString(),
		run.ID,
		sessionsmodel.StatusFinalized.ToString(),
		terminal,
	).Scan(&claimed)
	if err == nil {
		return nil
	}
	if !r.pg.IsNoRows(err) {
		return status.Errorf(codes.Internal, "failed to claim session: %v", err)
	}

	// The conflict clause did not apply, find out why.
	query = fmt.Sprintf(`
		SELECT status
		FROM %s
		WHERE tenant_id = $1 AND id = $2
	`, postgres.TableSessions)

	var current string
	if err = tx.QueryRow(ctx, query, run.TenantID, run.SessionID).Scan(&current); err != nil {
		return status.Errorf(codes.Internal, "failed to get session: %v", err)
	}

	if current == sessionsmodel.StatusFinalized.ToString() {
		return status.Errorf(codes.FailedPrecondition, "session is finalized: %s", run.SessionID)
	}

	return status.Errorf(codes.AlreadyExists, "session has an active run: %s", run.SessionID)
}

// GetRun returns the run owned by the tenant.
func (r *Repository) GetRun(ctx context.Context, tenantID, runID string) (run *runsmodel.WorkflowRun, err error) {
	ctx, span := r.tp.Start(ctx, "Repository.GetRun")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	query := fmt.Sprintf(`
		SELECT id, tenant_id, workspace_id, COALESCE(scenario_id, '') AS scenario_id, workflow_id,
			COALESCE(session_id, '') AS session_id, COALESCE(engine, '') AS engine,
			COALESCE(changeset_id, '') AS changeset_id, backend, status, inputs,
			COALESCE(failure_reason, '') AS failure_reason, requested_at, created_at, updated_at
		FROM %s
		WHERE tenant_id = $1 AND id = $2
	`, postgres.TableWorkflowRuns)

	//nolint:errcheck // The error is handled in the next line
	rows, _ := r.pg.Query(ctx, query, tenantID, runID)
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[runRow])
	if err != nil {
		if r.pg.IsNoRows(err) {
			err = status.Errorf(codes.NotFound, "run not found: %s", runID)
			return nil, err
		}
		err = status.Errorf(codes.Internal, "failed to get run: %v", err)
		return nil, err
	}

	return row.toModel(), nil
}

// MarkDispatched records the backend of the run and moves a queued run to dispatched. A runtime
// that already reported progress keeps its status. The backend is set at most once.
func (r *Repository) MarkDispatched(ctx context.Context, tenantID, runID string, backend runsmodel.Backend) (updated bool, err error) {
	ctx, span := r.tp.Start(ctx, "Repository.MarkDispatched")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = CASE WHEN status = $5 THEN $3 ELSE status END, backend = $4, updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND backend = ''
	`, postgres.TableWorkflowRuns)

	tag, err := r.pg.Exec(
		ctx,
		query,
		tenantID,
		runID,
		runsmodel.StatusDispatched.ToString(),
		string(backend),
		runsmodel.StatusQueued.ToString(),
	)
	if err != nil {
		err = status.Errorf(codes.Internal, "failed to mark run dispatched: %v", err)
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// TransitionRun moves the run to the given status if that is a forward move.
// It reports false when the run was already at or beyond the status.
func (r *Repository) TransitionRun(ctx context.Context, tenantID, runID string, to runsmodel.Status, reason string) (updated bool, err error) {
	ctx, span := r.tp.Start(ctx, "Repository.TransitionRun")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	from := runsmodel.Predecessors(to)
	if len(from) == 0 {
		err = status.Errorf(codes.InvalidArgument, "invalid target status: %s", to)
		return false, err
	}

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $3, failure_reason = COALESCE(NULLIF($4, ''), failure_reason), updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND status = ANY($5)
	`, postgres.TableWorkflowRuns)

	tag, err := r.pg.Exec(ctx, query, tenantID, runID, to.ToString(), reason, runsmodel.ToStrings(from))
	if err != nil {
		err = status.Errorf(codes.Internal, "failed to update run status: %v", err)
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// ActivateSession marks a created session active once its run has been dispatched.
func (r *Repository) ActivateSession(ctx context.Context, tenantID, sessionID, runID string) (err error) {
	ctx, span := r.tp.Start(ctx, "Repository.ActivateSession")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $4, updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND active_run_id = $3 AND status = $5
	`, postgres.TableSessions)

	if _, err = r.pg.Exec(
		ctx,
		query,
		tenantID,
		sessionID,
		runID,
		sessionsmodel.StatusActive.ToString(),
		sessionsmodel.StatusCreated.ToString(),
	); err != nil {
		err = status.Errorf(codes.Internal, "failed to activate session: %v", err)
		return err
	}

	return nil
}

// ReleaseSession frees the active run slot if the run still holds it.
func (r *Repository) ReleaseSession(ctx context.Context, tenantID, sessionID, runID string) (err error) {
	ctx, span := r.tp.Start(ctx, "Repository.ReleaseSession")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	query := fmt.Sprintf(`
		UPDATE %s
		SET active_run_id = NULL, updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND active_run_id = $3
	`, postgres.TableSessions)

	if _, err = r.pg.Exec(ctx, query, tenantID, sessionID, runID); err != nil {
		err = status.Errorf(codes.Internal, "failed to release session: %v", err)
		return err
	}

	return nil
}

// FinalizeSession moves the session to its terminal state. It reports false when the session was
// already finalized or does not exist.
func (r *Repository) FinalizeSession(ctx context.Context, tenantID, sessionID string) (updated bool, err error) {
	ctx, span := r.tp.Start(ctx, "Repository.FinalizeSession")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	query := fmt.Sprintf(`
		UPDATE %s
		SET status = $3, active_run_id = NULL, finalized_at = now(), updated_at = now()
		WHERE tenant_id = $1 AND id = $2 AND status <> $3
	`, postgres.TableSessions)

	tag, err := r.pg.Exec(ctx, query, tenantID, sessionID, sessionsmodel.StatusFinalized.ToString())
	if err != nil {
		err = status.Errorf(codes.Internal, "failed to finalize session: %v", err)
		return false, err
	}

	return tag.RowsAffected() == 1, nil
}

// GetSession returns the session owned by the tenant.
func (r *Repository) GetSession(ctx context.Context, tenantID, sessionID string) (session *sessionsmodel.Session, err error) {
	ctx, span := r.tp.Start(ctx, "Repository.GetSession")
	defer func() {
		if err != nil {
			span.SetStatus(otelcodes.Error, err.Error())
			span.RecordError(err)
		}
		span.End()
	}()

	query := fmt.Sprintf(`
		SELECT id, tenant_id, status, COALESCE(active_run_id, '') AS active_run_id,
			COALESCE(last_run_id, '') AS last_run_id, created_at, updated_at, finalized_at
		FROM %s
		WHERE tenant_id = $1 AND id = $2
	`, postgres.TableSessions)

	//nolint:errcheck // The error is handled in the next line
	rows, _ := r.pg.Query(ctx, query, tenantID, sessionID)
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[sessionRow])
	if err != nil {
		if r.pg.IsNoRows(err) {
			err = status.Errorf(codes.NotFound, "session not found: %s", sessionID)
			return nil, err
		}
		err = status.Errorf(codes.Internal, "failed to get session: %v", err)
		return nil, err
	}

	return &sessionsmodel.Session{
		ID:          row.ID,
		TenantID:    row.TenantID,
		Status:      sessionsmodel.Status(row.Status),
		ActiveRunID: row.ActiveRunID,
		LastRunID:   row.LastRunID,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		FinalizedAt: row.FinalizedAt,
	}, nil
}
