package eventarchive_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/runstream/internal/app/eventarchive"
	eventarchivemock "github.com/hitesh22rana/runstream/internal/app/eventarchive/mock"
)

func TestEventArchive_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := eventarchivemock.NewMockService(ctrl)
	app := eventarchive.New(t.Context(), svc)

	svc.EXPECT().Run(gomock.Any()).Return(status.Error(codes.Unavailable, "kafka client closed"))
	assert.NoError(t, app.Run(t.Context()))
}
