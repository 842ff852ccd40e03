package databasemigration_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hitesh22rana/runstream/internal/app/databasemigration"
	databasemigrationmock "github.com/hitesh22rana/runstream/internal/app/databasemigration/mock"
)

func TestDatabaseMigration_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := databasemigrationmock.NewMockService(ctrl)
	app := databasemigration.New(t.Context(), svc)

	svc.EXPECT().Run(gomock.Any()).Return(nil)
	assert.NoError(t, app.Run(t.Context()))

	svc.EXPECT().Run(gomock.Any()).Return(status.Error(codes.Internal, "postgres migration failed"))
	assert.Equal(t, codes.Internal, status.Code(app.Run(t.Context())))
}
