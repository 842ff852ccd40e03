package workflow_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/runstream/internal/app/workflow"
	workflowmock "github.com/hitesh22rana/runstream/internal/app/workflow/mock"
)

func TestWorkflow(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := workflowmock.NewMockService(ctrl)
	app := workflow.New(t.Context(), svc)

	t.Run("run", func(t *testing.T) {
		svc.EXPECT().Run(gomock.Any()).Return(nil)
		assert.NoError(t, app.Run(t.Context()))
	})

	t.Run("job failure is returned", func(t *testing.T) {
		svc.EXPECT().RunJob(gomock.Any(), "http://payloads", "tenant_a", "run_1").
			Return(status.Error(codes.InvalidArgument, "payload url is expired"))

		err := app.RunJob(t.Context(), "http://payloads", "tenant_a", "run_1")
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}
