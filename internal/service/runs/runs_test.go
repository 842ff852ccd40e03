package runs_test

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	"github.com/hitesh22rana/runstream/internal/service/runs"
	runsmock "github.com/hitesh22rana/runstream/internal/service/runs/mock"
)

func TestService_Trigger(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := runsmock.NewMockRepository(ctrl)
	dispatcher := runsmock.NewMockDispatcher(ctrl)

	s := runs.New(validator.New(), repo, dispatcher)

	type want struct {
		status  runsmodel.Status
		backend runsmodel.Backend
		session string
	}

	tests := []struct {
		name  string
		req   *runsmodel.TriggerRequest
		mock  func()
		want  want
		code  codes.Code
		isErr bool
	}{
		{
			name: "success: queue backend",
			req: &runsmodel.TriggerRequest{
				TenantID:    "tenant_a",
				WorkspaceID: "ws_1",
				WorkflowID:  "ontology",
			},
			mock: func() {
				repo.EXPECT().CreateRun(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ any, run *runsmodel.WorkflowRun) error {
						assert.NotEmpty(t, run.ID)
						assert.Equal(t, runsmodel.StatusQueued, run.Status)
						assert.False(t, run.RequestedAt.IsZero())
						assert.NotNil(t, run.Inputs)
						return nil
					},
				)
				dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(runsmodel.BackendQueue, true, nil)
				repo.EXPECT().MarkDispatched(gomock.Any(), "tenant_a", gomock.Any(), runsmodel.BackendQueue).Return(true, nil)
			},
			want: want{status: runsmodel.StatusDispatched, backend: runsmodel.BackendQueue},
		},
		{
			name: "success: session taken from inputs",
			req: &runsmodel.TriggerRequest{
				TenantID:    "tenant_a",
				WorkspaceID: "ws_1",
				WorkflowID:  "ontology",
				RunID:       "run_1",
				Inputs:      map[string]any{"ontology_id": "onto_1"},
			},
			mock: func() {
				repo.EXPECT().CreateRun(gomock.Any(), gomock.Any()).Return(nil)
				dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(runsmodel.BackendJob, true, nil)
				repo.EXPECT().MarkDispatched(gomock.Any(), "tenant_a", "run_1", runsmodel.BackendJob).Return(true, nil)
				repo.EXPECT().ActivateSession(gomock.Any(), "tenant_a", "onto_1", "run_1").Return(nil)
			},
			want: want{status: runsmodel.StatusDispatched, backend: runsmodel.BackendJob, session: "onto_1"},
		},
		{
			name: "success: session activation failure is not fatal",
			req: &runsmodel.TriggerRequest{
				TenantID:    "tenant_a",
				WorkspaceID: "ws_1",
				WorkflowID:  "ontology",
				RunID:       "run_1",
				SessionID:   "onto_1",
			},
			mock: func() {
				repo.EXPECT().CreateRun(gomock.Any(), gomock.Any()).Return(nil)
				dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(runsmodel.BackendQueue, true, nil)
				repo.EXPECT().MarkDispatched(gomock.Any(), "tenant_a", "run_1", runsmodel.BackendQueue).Return(true, nil)
				repo.EXPECT().ActivateSession(gomock.Any(), "tenant_a", "onto_1", "run_1").Return(status.Error(codes.Internal, "boom"))
			},
			want: want{status: runsmodel.StatusDispatched, backend: runsmodel.BackendQueue, session: "onto_1"},
		},
		{
			name: "error: missing workflow id",
			req: &runsmodel.TriggerRequest{
				TenantID:    "tenant_a",
				WorkspaceID: "ws_1",
			},
			mock:  func() {},
			code:  codes.InvalidArgument,
			isErr: true,
		},
		{
			name: "error: invalid run id",
			req: &runsmodel.TriggerRequest{
				TenantID:    "tenant_a",
				WorkspaceID: "ws_1",
				WorkflowID:  "ontology",
				RunID:       "a/b",
			},
			mock:  func() {},
			code:  codes.InvalidArgument,
			isErr: true,
		},
		{
			name: "error: duplicate run",
			req: &runsmodel.TriggerRequest{
				TenantID:    "tenant_a",
				WorkspaceID: "ws_1",
				WorkflowID:  "ontology",
				RunID:       "run_1",
			},
			mock: func() {
				repo.EXPECT().CreateRun(gomock.Any(), gomock.Any()).Return(status.Error(codes.AlreadyExists, "run already exists"))
			},
			code:  codes.AlreadyExists,
			isErr: true,
		},
		{
			name: "error: dispatch failure fails the run and releases the session",
			req: &runsmodel.TriggerRequest{
				TenantID:    "tenant_a",
				WorkspaceID: "ws_1",
				WorkflowID:  "ontology",
				RunID:       "run_1",
				SessionID:   "onto_1",
			},
			mock: func() {
				repo.EXPECT().CreateRun(gomock.Any(), gomock.Any()).Return(nil)
				dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(runsmodel.Backend(""), false, status.Error(codes.Unavailable, "broker down"))
				repo.EXPECT().TransitionRun(gomock.Any(), "tenant_a", "run_1", runsmodel.StatusFailed, gomock.Any()).Return(true, nil)
				repo.EXPECT().ReleaseSession(gomock.Any(), "tenant_a", "onto_1", "run_1").Return(nil)
			},
			code:  codes.Unavailable,
			isErr: true,
		},
		{
			name: "error: no backend configured",
			req: &runsmodel.TriggerRequest{
				TenantID:    "tenant_a",
				WorkspaceID: "ws_1",
				WorkflowID:  "ontology",
				RunID:       "run_1",
			},
			mock: func() {
				repo.EXPECT().CreateRun(gomock.Any(), gomock.Any()).Return(nil)
				dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(runsmodel.Backend(""), false, nil)
				repo.EXPECT().TransitionRun(gomock.Any(), "tenant_a", "run_1", runsmodel.StatusFailed, "dispatch backend not configured").Return(true, nil)
			},
			code:  codes.FailedPrecondition,
			isErr: true,
		},
		{
			name: "error: dispatch recorded but not persisted",
			req: &runsmodel.TriggerRequest{
				TenantID:    "tenant_a",
				WorkspaceID: "ws_1",
				WorkflowID:  "ontology",
				RunID:       "run_1",
			},
			mock: func() {
				repo.EXPECT().CreateRun(gomock.Any(), gomock.Any()).Return(nil)
				dispatcher.EXPECT().Dispatch(gomock.Any(), gomock.Any()).Return(runsmodel.BackendQueue, true, nil)
				repo.EXPECT().MarkDispatched(gomock.Any(), "tenant_a", "run_1", runsmodel.BackendQueue).Return(false, status.Error(codes.Unavailable, "db down"))
			},
			code:  codes.Unavailable,
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mock()

			run, err := s.Trigger(t.Context(), tt.req)
			if tt.isErr {
				require.Error(t, err)
				assert.Equal(t, tt.code, status.Code(err))
				assert.Nil(t, run)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want.status, run.Status)
			assert.Equal(t, tt.want.backend, run.Backend)
			assert.Equal(t, tt.want.session, run.SessionID)
			if tt.req.RunID != "" {
				assert.Equal(t, tt.req.RunID, run.ID)
			}
		})
	}
}

func TestService_GetRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := runsmock.NewMockRepository(ctrl)
	s := runs.New(validator.New(), repo, runsmock.NewMockDispatcher(ctrl))

	t.Run("success", func(t *testing.T) {
		repo.EXPECT().GetRun(gomock.Any(), "tenant_a", "run_1").Return(&runsmodel.WorkflowRun{ID: "run_1", Status: runsmodel.StatusRunning}, nil)

		run, err := s.GetRun(t.Context(), "tenant_a", "run_1")
		require.NoError(t, err)
		assert.Equal(t, runsmodel.StatusRunning, run.Status)
	})

	t.Run("error: other tenant", func(t *testing.T) {
		repo.EXPECT().GetRun(gomock.Any(), "tenant_b", "run_1").Return(nil, status.Error(codes.NotFound, "run not found"))

		_, err := s.GetRun(t.Context(), "tenant_b", "run_1")
		assert.Equal(t, codes.NotFound, status.Code(err))
	})

	t.Run("error: missing ids", func(t *testing.T) {
		_, err := s.GetRun(t.Context(), "", "run_1")
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}
