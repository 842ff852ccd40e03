package dispatch_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	"github.com/hitesh22rana/runstream/internal/service/dispatch"
	dispatchmock "github.com/hitesh22rana/runstream/internal/service/dispatch/mock"
)

func TestSelector_Dispatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	queue := dispatchmock.NewMockDispatcher(ctrl)
	job := dispatchmock.NewMockDispatcher(ctrl)
	queue.EXPECT().Backend().Return(runsmodel.BackendQueue).AnyTimes()
	job.EXPECT().Backend().Return(runsmodel.BackendJob).AnyTimes()

	run := &runsmodel.WorkflowRun{ID: "run_1", TenantID: "tenant_a"}

	type want struct {
		backend    runsmodel.Backend
		dispatched bool
	}

	tests := []struct {
		name     string
		fallback bool
		mock     func()
		want     want
		isErr    bool
	}{
		{
			name: "success: primary",
			mock: func() {
				queue.EXPECT().Dispatch(gomock.Any(), run).Return(true, nil)
			},
			want: want{backend: runsmodel.BackendQueue, dispatched: true},
		},
		{
			name:     "success: fallback when primary is not configured",
			fallback: true,
			mock: func() {
				queue.EXPECT().Dispatch(gomock.Any(), run).Return(false, nil)
				job.EXPECT().Dispatch(gomock.Any(), run).Return(true, nil)
			},
			want: want{backend: runsmodel.BackendJob, dispatched: true},
		},
		{
			name: "not configured: no fallback",
			mock: func() {
				queue.EXPECT().Dispatch(gomock.Any(), run).Return(false, nil)
			},
			want: want{dispatched: false},
		},
		{
			name:     "not configured: both backends",
			fallback: true,
			mock: func() {
				queue.EXPECT().Dispatch(gomock.Any(), run).Return(false, nil)
				job.EXPECT().Dispatch(gomock.Any(), run).Return(false, nil)
			},
			want: want{dispatched: false},
		},
		{
			name:     "error: transient failure does not fall back",
			fallback: true,
			mock: func() {
				queue.EXPECT().Dispatch(gomock.Any(), run).Return(false, status.Error(codes.Unavailable, "broker down"))
			},
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mock()

			var fallback dispatch.Dispatcher
			if tt.fallback {
				fallback = job
			}
			s := dispatch.New(queue, fallback)

			backend, dispatched, err := s.Dispatch(t.Context(), run)
			if tt.isErr {
				require.Error(t, err)
				assert.Equal(t, codes.Unavailable, status.Code(err))
				assert.False(t, dispatched)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want.dispatched, dispatched)
			if tt.want.dispatched {
				assert.Equal(t, tt.want.backend, backend)
			}
		})
	}
}
