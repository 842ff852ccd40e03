package workflow_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/runstream/internal/service/workflow"
	workflowmock "github.com/hitesh22rana/runstream/internal/service/workflow/mock"
)

func TestRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := workflowmock.NewMockRepository(ctrl)
	s := workflow.New(mockRepo)

	tests := []struct {
		name string
		mock func()
		err  error
	}{
		{
			name: "success",
			mock: func() {
				mockRepo.EXPECT().Run(gomock.Any()).Return(nil)
			},
		},
		{
			name: "error",
			mock: func() {
				mockRepo.EXPECT().Run(gomock.Any()).Return(status.Error(codes.Internal, "internal error"))
			},
			err: status.Error(codes.Internal, "internal error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mock()
			err := s.Run(t.Context())
			if !errors.Is(err, tt.err) {
				t.Errorf("Run() error = %v, want %v", err, tt.err)
			}
		})
	}
}

func TestRunJob(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockRepo := workflowmock.NewMockRepository(ctrl)
	s := workflow.New(mockRepo)

	tests := []struct {
		name       string
		payloadURL string
		mock       func()
		code       codes.Code
	}{
		{
			name:       "success",
			payloadURL: "http://localhost:8080/payloads?token=abc",
			mock: func() {
				mockRepo.EXPECT().RunJob(gomock.Any(), "http://localhost:8080/payloads?token=abc", "tenant_a", "run_1").Return(nil)
			},
			code: codes.OK,
		},
		{
			name:       "error: expired payload url",
			payloadURL: "http://localhost:8080/payloads?token=abc",
			mock: func() {
				mockRepo.EXPECT().RunJob(gomock.Any(), gomock.Any(), "tenant_a", "run_1").Return(status.Error(codes.InvalidArgument, "payload url is expired"))
			},
			code: codes.InvalidArgument,
		},
		{
			name: "error: missing payload url",
			mock: func() {},
			code: codes.InvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mock()
			err := s.RunJob(t.Context(), tt.payloadURL, "tenant_a", "run_1")
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}
