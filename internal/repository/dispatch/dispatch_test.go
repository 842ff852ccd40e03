package dispatch_test

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	"github.com/hitesh22rana/runstream/internal/pkg/jobs"
	kafkapkg "github.com/hitesh22rana/runstream/internal/pkg/kafka"
	"github.com/hitesh22rana/runstream/internal/repository/dispatch"
	dispatchmock "github.com/hitesh22rana/runstream/internal/repository/dispatch/mock"
	"github.com/hitesh22rana/runstream/internal/repository/payloads"
)

const secretInput = "do-not-leak-this-secret-input"

func testRun() *runsmodel.WorkflowRun {
	return &runsmodel.WorkflowRun{
		ID:          "run_1",
		TenantID:    "tenant_a",
		WorkspaceID: "ws_1",
		WorkflowID:  "ontology-builder",
		SessionID:   "onto_1",
		Engine:      "v2",
		Status:      runsmodel.StatusQueued,
		Inputs: map[string]any{
			"ontology_id": "onto_1",
			"document":    secretInput,
		},
		RequestedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestQueueDispatcher_Dispatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	producer := dispatchmock.NewMockProducer(ctrl)

	tests := []struct {
		name       string
		producer   dispatch.Producer
		topic      string
		mock       func()
		dispatched bool
		isErr      bool
	}{
		{
			name:     "success",
			producer: producer,
			topic:    kafkapkg.TopicWorkflowRuns,
			mock: func() {
				producer.EXPECT().ProduceSync(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ any, rs ...*kgo.Record) kgo.ProduceResults {
						require.Len(t, rs, 1)
						r := rs[0]
						assert.Equal(t, kafkapkg.TopicWorkflowRuns, r.Topic)
						assert.Equal(t, "run_1", string(r.Key))
						assert.Equal(t, dispatch.EventTypeRunRequested, kafkapkg.HeaderValue(r, kafkapkg.HeaderEventType))
						assert.Equal(t, "run_1", kafkapkg.HeaderValue(r, kafkapkg.HeaderRunID))
						assert.Equal(t, "ws_1", kafkapkg.HeaderValue(r, kafkapkg.HeaderWorkspaceID))
						assert.Equal(t, "v2", kafkapkg.HeaderValue(r, kafkapkg.HeaderEngine))
						for _, h := range r.Headers {
							assert.NotEqual(t, kafkapkg.HeaderChangesetID, h.Key, "empty headers are skipped")
						}

						var payload runsmodel.DispatchPayload
						require.NoError(t, json.Unmarshal(r.Value, &payload))
						assert.Equal(t, "tenant_a", payload.TenantID)
						assert.Equal(t, "onto_1", payload.SessionID)
						assert.Equal(t, runsmodel.StatusQueued, payload.Status)
						return kgo.ProduceResults{{Record: r}}
					},
				)
			},
			dispatched: true,
		},
		{
			name:       "not configured: no producer",
			producer:   nil,
			topic:      kafkapkg.TopicWorkflowRuns,
			mock:       func() {},
			dispatched: false,
		},
		{
			name:       "not configured: no topic",
			producer:   producer,
			topic:      "",
			mock:       func() {},
			dispatched: false,
		},
		{
			name:     "error: broker rejects",
			producer: producer,
			topic:    kafkapkg.TopicWorkflowRuns,
			mock: func() {
				producer.EXPECT().ProduceSync(gomock.Any(), gomock.Any()).Return(
					kgo.ProduceResults{{Err: errors.New("broker down")}},
				)
			},
			isErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mock()

			d := dispatch.NewQueue(tt.producer, tt.topic)
			assert.Equal(t, runsmodel.BackendQueue, d.Backend())

			dispatched, err := d.Dispatch(t.Context(), testRun())
			if tt.isErr {
				require.Error(t, err)
				assert.Equal(t, codes.Unavailable, status.Code(err))
				assert.False(t, dispatched)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.dispatched, dispatched)
		})
	}
}

func TestJobDispatcher_Dispatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	store := dispatchmock.NewMockPayloadStore(ctrl)
	signer := dispatchmock.NewMockURLSigner(ctrl)
	starter := dispatchmock.NewMockJobStarter(ctrl)

	cfg := &dispatch.JobConfig{
		Image:     "runtime:latest",
		Command:   []string{"workflow-worker"},
		MountPath: "/workspace",
	}
	expiresAt := time.Now().Add(time.Hour)
	payloadURL := "http://api/payloads?token=signed"

	tests := []struct {
		name       string
		cfg        *dispatch.JobConfig
		mock       func()
		dispatched bool
		isErr      bool
		code       codes.Code
	}{
		{
			name: "success: start request carries only the payload url",
			cfg:  cfg,
			mock: func() {
				signer.EXPECT().Configured().Return(true)
				starter.EXPECT().Configured().Return(true)
				store.EXPECT().Put(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ any, obj *payloads.Object) error {
						assert.Equal(t, "tenants/tenant_a/runs/run_1/payload.json", obj.Key)
						assert.Contains(t, string(obj.Data), secretInput)
						return nil
					},
				)
				signer.EXPECT().Sign("tenant_a", "run_1", "tenants/tenant_a/runs/run_1/payload.json").
					Return(payloadURL, expiresAt, nil)
				starter.EXPECT().Start(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ any, spec *jobs.Spec) (string, error) {
						assert.Equal(t, "runtime:latest", spec.Image)
						assert.Equal(t, "/workspace", spec.MountPath)
						assert.Contains(t, spec.EnvList(), "PAYLOAD_URL="+payloadURL)
						assert.Contains(t, spec.EnvList(), "RUN_ID=run_1")

						raw, err := json.Marshal(spec)
						require.NoError(t, err)
						assert.NotContains(t, string(raw), secretInput)
						for _, e := range spec.Env {
							assert.False(t, strings.Contains(e.Value, secretInput))
						}
						return "job-1", nil
					},
				)
			},
			dispatched: true,
		},
		{
			name: "not configured: signer without secret",
			cfg:  cfg,
			mock: func() {
				signer.EXPECT().Configured().Return(false)
			},
			dispatched: false,
		},
		{
			name: "not configured: starter without endpoint",
			cfg:  cfg,
			mock: func() {
				signer.EXPECT().Configured().Return(true)
				starter.EXPECT().Configured().Return(false)
			},
			dispatched: false,
		},
		{
			name: "not configured: no image",
			cfg:  &dispatch.JobConfig{},
			mock: func() {
				signer.EXPECT().Configured().Return(true)
				starter.EXPECT().Configured().Return(true)
			},
			dispatched: false,
		},
		{
			name: "error: upload fails",
			cfg:  cfg,
			mock: func() {
				signer.EXPECT().Configured().Return(true)
				starter.EXPECT().Configured().Return(true)
				store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(status.Error(codes.Unavailable, "db down"))
			},
			isErr: true,
			code:  codes.Unavailable,
		},
		{
			name: "error: job start fails",
			cfg:  cfg,
			mock: func() {
				signer.EXPECT().Configured().Return(true)
				starter.EXPECT().Configured().Return(true)
				store.EXPECT().Put(gomock.Any(), gomock.Any()).Return(nil)
				signer.EXPECT().Sign(gomock.Any(), gomock.Any(), gomock.Any()).Return(payloadURL, expiresAt, nil)
				starter.EXPECT().Start(gomock.Any(), gomock.Any()).
					Return("", status.Error(codes.FailedPrecondition, "compute api rejected the job: quota"))
			},
			isErr: true,
			code:  codes.FailedPrecondition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mock()

			d := dispatch.NewJob(store, signer, starter, tt.cfg)
			assert.Equal(t, runsmodel.BackendJob, d.Backend())

			dispatched, err := d.Dispatch(t.Context(), testRun())
			if tt.isErr {
				require.Error(t, err)
				assert.Equal(t, tt.code, status.Code(err))
				assert.False(t, dispatched)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.dispatched, dispatched)
		})
	}
}

func TestJobDispatcher_NilCollaborators(t *testing.T) {
	d := dispatch.NewJob(nil, nil, nil, nil)

	dispatched, err := d.Dispatch(t.Context(), testRun())
	require.NoError(t, err)
	assert.False(t, dispatched)
}
