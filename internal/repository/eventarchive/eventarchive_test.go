package eventarchive_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.uber.org/mock/gomock"

	eventsmodel "github.com/hitesh22rana/runstream/internal/model/events"
	kafkapkg "github.com/hitesh22rana/runstream/internal/pkg/kafka"
	"github.com/hitesh22rana/runstream/internal/repository/eventarchive"
	eventarchivemock "github.com/hitesh22rana/runstream/internal/repository/eventarchive/mock"
)

type fakeBatch struct {
	driver.Batch
	rows [][]any
}

func (b *fakeBatch) Append(v ...any) error {
	b.rows = append(b.rows, v)
	return nil
}

func archiveRecord(t *testing.T, offset int64, ev *eventsmodel.Event) *kgo.Record {
	t.Helper()

	value, err := json.Marshal(ev)
	require.NoError(t, err)

	return &kgo.Record{Topic: kafkapkg.TopicWorkflowEvents, Offset: offset, Key: []byte(ev.RunID), Value: value}
}

func fetchesOf(records ...*kgo.Record) kgo.Fetches {
	return kgo.Fetches{
		{
			Topics: []kgo.FetchTopic{
				{
					Topic:      kafkapkg.TopicWorkflowEvents,
					Partitions: []kgo.FetchPartition{{Partition: 0, Records: records}},
				},
			},
		},
	}
}

func TestRepository_Run(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	consumer := eventarchivemock.NewMockConsumer(ctrl)
	inserter := eventarchivemock.NewMockInserter(ctrl)

	valid := archiveRecord(t, 1, &eventsmodel.Event{
		ID:        "1-0",
		RunID:     "run_1",
		TenantID:  "tenant_a",
		Type:      eventsmodel.TypeWorkflowStarted,
		Role:      eventsmodel.RoleRuntime,
		Metadata:  map[string]any{},
		CreatedAt: time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	malformed := &kgo.Record{Topic: kafkapkg.TopicWorkflowEvents, Offset: 2, Value: []byte("{")}

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	gomock.InOrder(
		consumer.EXPECT().PollFetches(gomock.Any()).Return(fetchesOf(valid, malformed)),
		consumer.EXPECT().CommitRecords(gomock.Any(), malformed).Return(nil),
		consumer.EXPECT().PollFetches(gomock.Any()).DoAndReturn(func(_ context.Context) kgo.Fetches {
			cancel()
			return kgo.Fetches{}
		}),
	)

	inserter.EXPECT().BatchInsert(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, query string, prepareFn func(driver.Batch) error) error {
			assert.True(t, strings.Contains(query, "workflow_events"))

			batch := &fakeBatch{}
			require.NoError(t, prepareFn(batch))
			require.Len(t, batch.rows, 1)
			assert.Equal(t, "tenant_a", batch.rows[0][0])
			assert.Equal(t, "run_1", batch.rows[0][1])
			assert.Equal(t, "1-0", batch.rows[0][2])
			assert.Equal(t, "workflow_started", batch.rows[0][3])
			return nil
		},
	)
	consumer.EXPECT().CommitRecords(gomock.Any(), valid).Return(nil)

	repo := eventarchive.New(&eventarchive.Config{
		BatchSizeLimit:    10,
		BatchTimeInterval: time.Hour,
	}, inserter, consumer)

	err := repo.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRepository_RunClientClosed(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	consumer := eventarchivemock.NewMockConsumer(ctrl)
	inserter := eventarchivemock.NewMockInserter(ctrl)

	consumer.EXPECT().PollFetches(gomock.Any()).Return(kgo.NewErrFetch(kgo.ErrClientClosed))

	repo := eventarchive.New(&eventarchive.Config{
		BatchSizeLimit:    10,
		BatchTimeInterval: time.Hour,
	}, inserter, consumer)

	err := repo.Run(t.Context())
	require.Error(t, err)
}

type fakeProducer struct {
	mu      sync.Mutex
	records []*kgo.Record
	err     error
}

func (p *fakeProducer) Produce(_ context.Context, r *kgo.Record, promise func(*kgo.Record, error)) {
	p.mu.Lock()
	p.records = append(p.records, r)
	p.mu.Unlock()
	promise(r, p.err)
}

func TestPublisher_Publish(t *testing.T) {
	evs := []*eventsmodel.Event{
		{ID: "1-0", RunID: "run_1", TenantID: "tenant_a", Type: eventsmodel.TypeUserMessage, Message: "hi"},
		{ID: "1-1", RunID: "run_1", TenantID: "tenant_a", Type: eventsmodel.TypeCancelRun},
	}

	tests := []struct {
		name     string
		producer *fakeProducer
		topic    string
		want     int
	}{
		{name: "success", producer: &fakeProducer{}, topic: kafkapkg.TopicWorkflowEvents, want: 2},
		{name: "broker errors are swallowed", producer: &fakeProducer{err: errors.New("down")}, topic: kafkapkg.TopicWorkflowEvents, want: 2},
		{name: "disabled without topic", producer: &fakeProducer{}, topic: "", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := eventarchive.NewPublisher(tt.producer, tt.topic)
			p.Publish(t.Context(), evs)

			require.Len(t, tt.producer.records, tt.want)
			for i, r := range tt.producer.records {
				assert.Equal(t, "run_1", string(r.Key))
				assert.Equal(t, evs[i].Type.ToString(), kafkapkg.HeaderValue(r, kafkapkg.HeaderEventType))

				var got eventsmodel.Event
				require.NoError(t, json.Unmarshal(r.Value, &got))
				assert.Equal(t, evs[i].ID, got.ID)
			}
		})
	}
}

func TestPublisher_Nil(t *testing.T) {
	var p *eventarchive.Publisher
	assert.NotPanics(t, func() { p.Publish(t.Context(), nil) })
}
