package workflow_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/mock/gomock"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	eventsmodel "github.com/hitesh22rana/runstream/internal/model/events"
	runsmodel "github.com/hitesh22rana/runstream/internal/model/runs"
	redispkg "github.com/hitesh22rana/runstream/internal/pkg/redis"
	"github.com/hitesh22rana/runstream/internal/repository/eventlog"
	"github.com/hitesh22rana/runstream/internal/repository/workflow"
	workflowmock "github.com/hitesh22rana/runstream/internal/repository/workflow/mock"
)

const (
	tenantID = "tenant_a"
	runID    = "run_1"
)

// logSink appends runtime records straight into the in-memory log.
type logSink struct {
	log *eventlog.Memory
}

func (s *logSink) AppendRuntime(ctx context.Context, tenantID, runID string, recs []*eventsmodel.Record) ([]string, error) {
	evs := make([]*eventsmodel.Event, 0, len(recs))
	for _, rec := range recs {
		evs = append(evs, &eventsmodel.Event{
			Type:     rec.Type,
			Role:     eventsmodel.RoleRuntime,
			Message:  rec.Message,
			Metadata: rec.Metadata,
		})
	}
	return s.log.Append(ctx, tenantID, runID, evs)
}

type harness struct {
	log    *eventlog.Memory
	repo   *workflow.Repository
	cursor string
}

func newHarness(t *testing.T, cfg *workflow.Config, claimed bool) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	state := workflowmock.NewMockStateStore(ctrl)
	state.EXPECT().SetNX(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(claimed, nil).AnyTimes()
	state.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(status.Error(codes.NotFound, "key not found")).AnyTimes()
	state.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	log := eventlog.NewMemory()
	return &harness{
		log:    log,
		repo:   workflow.New(cfg, &logSink{log: log}, log, state, nil, nil),
		cursor: eventsmodel.ZeroID,
	}
}

func defaultConfig() *workflow.Config {
	return &workflow.Config{
		MaxRunDuration: time.Minute,
		IdleTimeout:    time.Minute,
		PollTimeout:    20 * time.Millisecond,
		ClaimTTL:       time.Hour,
		ChunkSize:      3,
	}
}

func testPayload() *runsmodel.DispatchPayload {
	return &runsmodel.DispatchPayload{
		TenantID:    tenantID,
		WorkspaceID: "ws_1",
		RunID:       runID,
		WorkflowID:  "ontology-builder",
		SessionID:   "onto_1",
		Inputs:      map[string]any{"title": "Retail"},
		Status:      runsmodel.StatusDispatched,
	}
}

// waitFor reads forward until an event of type t shows up and returns it.
func (h *harness) waitFor(t *testing.T, want eventsmodel.Type) *eventsmodel.Event {
	t.Helper()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		evs, err := h.log.Read(t.Context(), tenantID, runID, h.cursor, 0, 100*time.Millisecond)
		require.NoError(t, err)
		for _, ev := range evs {
			h.cursor = ev.ID
			if ev.Type == want {
				return ev
			}
		}
	}

	t.Fatalf("event %s never arrived", want)
	return nil
}

func (h *harness) submit(t *testing.T, typ eventsmodel.Type, message string, metadata map[string]any) {
	t.Helper()

	_, err := h.log.Append(t.Context(), tenantID, runID, []*eventsmodel.Event{
		{Type: typ, Role: eventsmodel.RoleClient, Message: message, Metadata: metadata},
	})
	require.NoError(t, err)
}

func start(t *testing.T, h *harness) <-chan error {
	t.Helper()

	errCh := make(chan error, 1)
	go func() {
		errCh <- h.repo.ExecuteRun(t.Context(), testPayload())
	}()
	return errCh
}

func waitDone(t *testing.T, errCh <-chan error) {
	t.Helper()

	select {
	case err := <-errCh:
		require.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestExecuteRun_OntologySession(t *testing.T) {
	h := newHarness(t, defaultConfig(), true)
	errCh := start(t, h)

	h.waitFor(t, eventsmodel.TypeWorkflowStarted)
	proposed := h.waitFor(t, eventsmodel.TypeOntologyProposed)
	assert.Equal(t, "0.1.0", proposed.Metadata[eventsmodel.MetaSemanticVersion])
	assert.Equal(t, "onto_1", proposed.Metadata[eventsmodel.MetaOntologyID])

	h.submit(t, eventsmodel.TypeUserMessage, "Here is my current ontology", map[string]any{
		eventsmodel.MetaCurrentOntologyPackage: map[string]any{
			"semantic_version": "0.1.0",
			"entities":         []any{map[string]any{"name": "Customer"}},
		},
	})

	updated := h.waitFor(t, eventsmodel.TypeOntologyUpdated)
	assert.Equal(t, "0.2.0", updated.Metadata[eventsmodel.MetaSemanticVersion])
	assert.Equal(t, "added Customer", updated.Metadata[eventsmodel.MetaUpdateSummary])

	h.submit(t, eventsmodel.TypeUserMessage, "Please add Order and Invoice.", nil)
	updated = h.waitFor(t, eventsmodel.TypeOntologyUpdated)
	assert.Equal(t, "0.3.0", updated.Metadata[eventsmodel.MetaSemanticVersion])
	assert.Equal(t, "added Order, Invoice", updated.Metadata[eventsmodel.MetaUpdateSummary])

	h.submit(t, eventsmodel.TypeFinalizeOntology, "", map[string]any{eventsmodel.MetaOntologyID: "onto_1"})

	finalized := h.waitFor(t, eventsmodel.TypeOntologyFinalized)
	assert.Equal(t, "0.3.0", finalized.Metadata[eventsmodel.MetaSemanticVersion])
	complete := h.waitFor(t, eventsmodel.TypeWorkflowComplete)
	assert.Equal(t, -1, eventsmodel.CompareIDs(finalized.ID, complete.ID))

	waitDone(t, errCh)
}

func TestExecuteRun_AgentMessagesAssemble(t *testing.T) {
	h := newHarness(t, defaultConfig(), true)
	errCh := start(t, h)

	h.waitFor(t, eventsmodel.TypeOntologyProposed)
	h.submit(t, eventsmodel.TypeCancelRun, "", nil)
	h.waitFor(t, eventsmodel.TypeWorkflowError)
	waitDone(t, errCh)

	evs, err := h.log.Read(t.Context(), tenantID, runID, eventsmodel.ZeroID, 0, 0)
	require.NoError(t, err)

	acc := eventsmodel.NewMessageAccumulator()
	var final *eventsmodel.Message
	partials := 0
	for _, ev := range evs {
		if ev.Type != eventsmodel.TypeAgentMessage {
			continue
		}
		if ev.Metadata[eventsmodel.MetaCompleted] == false {
			partials++
		}
		if msg := acc.Add(ev); msg != nil && msg.Complete {
			final = msg
		}
	}

	require.NotNil(t, final)
	assert.Greater(t, partials, 1)
	assert.Equal(t, "I drafted ontology onto_1 with 0 entities.", final.Content)
}

func TestExecuteRun_Terminations(t *testing.T) {
	tests := []struct {
		name     string
		cfg      func() *workflow.Config
		act      func(t *testing.T, h *harness)
		wantCode string
	}{
		{
			name: "cancel run",
			cfg:  defaultConfig,
			act: func(t *testing.T, h *harness) {
				h.submit(t, eventsmodel.TypeCancelRun, "", map[string]any{eventsmodel.MetaReason: "changed my mind"})
			},
			wantCode: eventsmodel.ErrorCodeCancelled,
		},
		{
			name: "idle timeout",
			cfg: func() *workflow.Config {
				cfg := defaultConfig()
				cfg.IdleTimeout = 50 * time.Millisecond
				return cfg
			},
			act:      func(_ *testing.T, _ *harness) {},
			wantCode: eventsmodel.ErrorCodeTimeout,
		},
		{
			name: "max run duration",
			cfg: func() *workflow.Config {
				cfg := defaultConfig()
				cfg.MaxRunDuration = 100 * time.Millisecond
				return cfg
			},
			act:      func(_ *testing.T, _ *harness) {},
			wantCode: eventsmodel.ErrorCodeTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.cfg(), true)
			errCh := start(t, h)

			h.waitFor(t, eventsmodel.TypeOntologyProposed)
			tt.act(t, h)

			ev := h.waitFor(t, eventsmodel.TypeWorkflowError)
			assert.Equal(t, tt.wantCode, ev.Metadata[eventsmodel.MetaCode])
			waitDone(t, errCh)
		})
	}
}

func TestExecuteRun_AlreadyClaimed(t *testing.T) {
	h := newHarness(t, defaultConfig(), false)

	require.NoError(t, h.repo.ExecuteRun(t.Context(), testPayload()))

	evs, err := h.log.Read(t.Context(), tenantID, runID, eventsmodel.ZeroID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestRunJob_PayloadErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	state := workflowmock.NewMockStateStore(ctrl)
	fetcher := workflowmock.NewMockPayloadFetcher(ctrl)
	log := eventlog.NewMemory()

	fetcher.EXPECT().Fetch(gomock.Any(), "http://api/payloads?token=expired").
		Return(nil, status.Error(codes.InvalidArgument, "payload url is expired or invalid"))

	repo := workflow.New(defaultConfig(), &logSink{log: log}, log, state, nil, fetcher)
	err := repo.RunJob(t.Context(), "http://api/payloads?token=expired", tenantID, runID)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	evs, err := log.Read(t.Context(), tenantID, runID, eventsmodel.ZeroID, 0, 0)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, eventsmodel.TypeWorkflowError, evs[0].Type)
	assert.Equal(t, eventsmodel.ErrorCodeInput, evs[0].Metadata[eventsmodel.MetaCode])
}

func TestRunJob_ForeignPayload(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	state := workflowmock.NewMockStateStore(ctrl)
	fetcher := workflowmock.NewMockPayloadFetcher(ctrl)
	log := eventlog.NewMemory()

	payload := testPayload()
	payload.RunID = "run_other"
	fetcher.EXPECT().Fetch(gomock.Any(), gomock.Any()).Return(payload, nil)

	repo := workflow.New(defaultConfig(), &logSink{log: log}, log, state, nil, fetcher)
	err := repo.RunJob(t.Context(), "http://api/payloads?token=abc", tenantID, runID)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestHTTPFetcher_Fetch(t *testing.T) {
	payload := testPayload()
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	tests := []struct {
		name       string
		statusCode int
		body       string
		code       codes.Code
	}{
		{name: "success", statusCode: http.StatusOK, body: string(body)},
		{name: "error: expired url", statusCode: http.StatusForbidden, body: `{"error":"expired"}`, code: codes.InvalidArgument},
		{name: "error: store down", statusCode: http.StatusServiceUnavailable, code: codes.Unavailable},
		{name: "error: not json", statusCode: http.StatusOK, body: "nope", code: codes.InvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			got, err := workflow.NewHTTPFetcher(time.Second).Fetch(t.Context(), srv.URL+"/payloads?token=abc")
			if tt.code != codes.OK {
				require.Error(t, err)
				assert.Equal(t, tt.code, status.Code(err))
				return
			}

			require.NoError(t, err)
			assert.Equal(t, payload.RunID, got.RunID)
			assert.Equal(t, payload.TenantID, got.TenantID)
		})
	}
}

// failingSink fails the first failures appends and then writes into the log.
type failingSink struct {
	logSink

	mu       sync.Mutex
	failures int
}

func (s *failingSink) AppendRuntime(ctx context.Context, tenantID, runID string, recs []*eventsmodel.Record) ([]string, error) {
	s.mu.Lock()
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return nil, status.Error(codes.Internal, "sink unavailable")
	}
	s.mu.Unlock()

	return s.logSink.AppendRuntime(ctx, tenantID, runID, recs)
}

// memoryState is a StateStore backed by a map.
type memoryState struct {
	mu   sync.Mutex
	keys map[string]any
}

func newMemoryState() *memoryState {
	return &memoryState{keys: map[string]any{}}
}

func (s *memoryState) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = value
	return true, nil
}

func (s *memoryState) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.keys[key] = value
	return nil
}

func (s *memoryState) Get(_ context.Context, _ string, _ any) error {
	return status.Error(codes.NotFound, "key not found")
}

// queueConsumer hands out queued fetches and records commits.
type queueConsumer struct {
	fetches chan kgo.Fetches

	mu        sync.Mutex
	committed []*kgo.Record
}

func newQueueConsumer() *queueConsumer {
	return &queueConsumer{fetches: make(chan kgo.Fetches, 4)}
}

func (c *queueConsumer) PollFetches(ctx context.Context) kgo.Fetches {
	select {
	case f := <-c.fetches:
		return f
	case <-ctx.Done():
		return kgo.Fetches{}
	}
}

func (c *queueConsumer) CommitRecords(_ context.Context, rs ...*kgo.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.committed = append(c.committed, rs...)
	return nil
}

func (c *queueConsumer) deliver(t *testing.T, offset int64, payload *runsmodel.DispatchPayload) {
	t.Helper()

	value, err := json.Marshal(payload)
	require.NoError(t, err)

	c.fetches <- kgo.Fetches{{
		Topics: []kgo.FetchTopic{{
			Topic: "runs",
			Partitions: []kgo.FetchPartition{{
				Partition: 0,
				Records:   []*kgo.Record{{Topic: "runs", Offset: offset, Value: value}},
			}},
		}},
	}}
}

func (c *queueConsumer) commits() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	offsets := make([]int64, 0, len(c.committed))
	for _, r := range c.committed {
		offsets = append(offsets, r.Offset)
	}
	return offsets
}

// waitForRun reads the log of a run until an event of type want shows up.
func waitForRun(t *testing.T, log *eventlog.Memory, tenant, run string, want eventsmodel.Type) {
	t.Helper()

	cursor := eventsmodel.ZeroID
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		evs, err := log.Read(t.Context(), tenant, run, cursor, 0, 100*time.Millisecond)
		require.NoError(t, err)
		for _, ev := range evs {
			cursor = ev.ID
			if ev.Type == want {
				return
			}
		}
	}

	t.Fatalf("event %s never arrived for %s/%s", want, tenant, run)
}

func payloadFor(tenant, run string) *runsmodel.DispatchPayload {
	payload := testPayload()
	payload.TenantID = tenant
	payload.RunID = run
	payload.SessionID = ""
	return payload
}

func TestExecuteRun_ClaimIsPerTenant(t *testing.T) {
	cfg := defaultConfig()
	cfg.IdleTimeout = 50 * time.Millisecond

	log := eventlog.NewMemory()
	state := newMemoryState()
	repo := workflow.New(cfg, &logSink{log: log}, log, state, nil, nil)

	for _, tenant := range []string{"tenant_a", "tenant_b"} {
		require.NoError(t, repo.ExecuteRun(t.Context(), payloadFor(tenant, runID)))

		evs, err := log.Read(t.Context(), tenant, runID, eventsmodel.ZeroID, 0, 0)
		require.NoError(t, err)
		require.NotEmpty(t, evs, tenant)
		assert.Equal(t, eventsmodel.TypeWorkflowStarted, evs[0].Type)
		assert.Equal(t, eventsmodel.TypeWorkflowError, evs[len(evs)-1].Type)
	}

	assert.Contains(t, state.keys, redispkg.RunClaimKey("tenant_a", runID))
	assert.Contains(t, state.keys, redispkg.RunClaimKey("tenant_b", runID))

	// Redelivery within the same tenant is skipped
	before, err := log.Read(t.Context(), "tenant_a", runID, eventsmodel.ZeroID, 0, 0)
	require.NoError(t, err)
	require.NoError(t, repo.ExecuteRun(t.Context(), payloadFor("tenant_a", runID)))
	after, err := log.Read(t.Context(), "tenant_a", runID, eventsmodel.ZeroID, 0, 0)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestExecuteRun_ClaimFailure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	state := workflowmock.NewMockStateStore(ctrl)
	state.EXPECT().SetNX(gomock.Any(), redispkg.RunClaimKey(tenantID, runID), gomock.Any(), gomock.Any()).
		Return(false, status.Error(codes.Unavailable, "redis down")).Times(2)

	log := eventlog.NewMemory()
	repo := workflow.New(defaultConfig(), &logSink{log: log}, log, state, nil, nil)

	err := repo.ExecuteRun(t.Context(), testPayload())
	require.Error(t, err)

	var claimErr *workflow.ClaimError
	require.True(t, errors.As(err, &claimErr))
	assert.Equal(t, codes.Unavailable, status.Code(claimErr.Err))

	evs, err := log.Read(t.Context(), tenantID, runID, eventsmodel.ZeroID, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, evs)
}

func TestExecuteRun_RuntimeFailureEndsRun(t *testing.T) {
	log := eventlog.NewMemory()
	// workflow_started fails twice, its retry included
	sink := &failingSink{logSink: logSink{log: log}, failures: 2}
	repo := workflow.New(defaultConfig(), sink, log, newMemoryState(), nil, nil)

	err := repo.ExecuteRun(t.Context(), testPayload())
	require.Error(t, err)
	assert.Equal(t, codes.Internal, status.Code(err))

	var claimErr *workflow.ClaimError
	assert.False(t, errors.As(err, &claimErr))

	evs, err := log.Read(t.Context(), tenantID, runID, eventsmodel.ZeroID, 0, 0)
	require.NoError(t, err)
	require.Len(t, evs, 1)
	assert.Equal(t, eventsmodel.TypeWorkflowError, evs[0].Type)
	assert.Equal(t, eventsmodel.ErrorCodeRuntime, evs[0].Metadata[eventsmodel.MetaCode])
}

func TestRun_RunsProgressIndependently(t *testing.T) {
	cfg := defaultConfig()
	cfg.ParallelismLimit = 5

	log := eventlog.NewMemory()
	consumer := newQueueConsumer()
	repo := workflow.New(cfg, &logSink{log: log}, log, newMemoryState(), consumer, nil)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- repo.Run(ctx)
	}()

	consumer.deliver(t, 1, payloadFor(tenantID, "run_first"))
	waitForRun(t, log, tenantID, "run_first", eventsmodel.TypeOntologyProposed)

	// run_first is still in conversation when run_second arrives
	consumer.deliver(t, 2, payloadFor(tenantID, "run_second"))
	waitForRun(t, log, tenantID, "run_second", eventsmodel.TypeOntologyProposed)
	assert.Empty(t, consumer.commits())

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("consumer loop did not stop")
	}

	// Shutdown ends both sessions and commits their records
	for _, run := range []string{"run_first", "run_second"} {
		waitForRun(t, log, tenantID, run, eventsmodel.TypeWorkflowError)
	}
	assert.ElementsMatch(t, []int64{1, 2}, consumer.commits())
}

func TestRun_UnclaimedRunIsNotCommitted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	attempts := make(chan struct{}, 2)
	state := workflowmock.NewMockStateStore(ctrl)
	state.EXPECT().SetNX(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, any, time.Duration) (bool, error) {
			attempts <- struct{}{}
			return false, status.Error(codes.Unavailable, "redis down")
		}).Times(2)

	log := eventlog.NewMemory()
	consumer := newQueueConsumer()
	repo := workflow.New(defaultConfig(), &logSink{log: log}, log, state, consumer, nil)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() {
		errCh <- repo.Run(ctx)
	}()

	consumer.deliver(t, 7, testPayload())
	for range 2 {
		select {
		case <-attempts:
		case <-time.After(3 * time.Second):
			t.Fatal("run claim was never attempted")
		}
	}

	cancel()
	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("consumer loop did not stop")
	}

	assert.Empty(t, consumer.commits())
}
