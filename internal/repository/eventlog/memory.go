package eventlog

import (
	"context"
	"maps"
	"sync"
	"time"

	"google.golang.org/grpc/status"

	eventsmodel "github.com/hitesh22rana/runstream/internal/model/events"
	redispkg "github.com/hitesh22rana/runstream/internal/pkg/redis"
)

type memoryLog struct {
	entries []*eventsmodel.Event
	last    eventsmodel.ID
	// notify is closed and replaced on every append.
	notify chan struct{}
}

// Memory is an in-process event log with the same ordering and blocking semantics as the
// Redis one. It is meant for tests and single process development.
type Memory struct {
	mu   sync.Mutex
	logs map[string]*memoryLog
	now  func() time.Time
}

// NewMemory creates an empty in-memory event log.
func NewMemory() *Memory {
	return &Memory{
		logs: make(map[string]*memoryLog),
		now:  time.Now,
	}
}

func (m *Memory) log(key string) *memoryLog {
	l, ok := m.logs[key]
	if !ok {
		l = &memoryLog{notify: make(chan struct{})}
		m.logs[key] = l
	}
	return l
}

// nextID returns an id strictly greater than the last one of the log.
func (l *memoryLog) nextID(now time.Time) eventsmodel.ID {
	//nolint:gosec // unix milliseconds are positive
	ms := uint64(now.UnixMilli())
	if ms <= l.last.Ms {
		return eventsmodel.ID{Ms: l.last.Ms, Seq: l.last.Seq + 1}
	}
	return eventsmodel.ID{Ms: ms}
}

// Append writes the events as one contiguous block and sets their ids.
func (m *Memory) Append(_ context.Context, tenantID, runID string, evs []*eventsmodel.Event) ([]string, error) {
	if len(evs) == 0 {
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	return m.appendLocked(m.log(redispkg.EventLogKey(tenantID, runID)), tenantID, runID, evs), nil
}

// AppendInbound writes a client event unless the run's log already ends with a terminal event.
func (m *Memory) AppendInbound(_ context.Context, tenantID, runID string, ev *eventsmodel.Event) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := m.log(redispkg.EventLogKey(tenantID, runID))
	if n := len(l.entries); n > 0 {
		if err := rejectAfterTerminal(l.entries[n-1].Type); err != nil {
			return "", err
		}
	}

	return m.appendLocked(l, tenantID, runID, []*eventsmodel.Event{ev})[0], nil
}

func (m *Memory) appendLocked(l *memoryLog, tenantID, runID string, evs []*eventsmodel.Event) []string {
	now := m.now()

	ids := make([]string, 0, len(evs))
	for _, ev := range evs {
		id := l.nextID(now)
		l.last = id

		ev.ID = id.String()
		ev.RunID = runID
		ev.TenantID = tenantID
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = now
		}

		stored := *ev
		stored.Metadata = maps.Clone(ev.Metadata)
		if stored.Metadata == nil {
			stored.Metadata = map[string]any{}
		}
		l.entries = append(l.entries, &stored)
		ids = append(ids, ev.ID)
	}

	close(l.notify)
	l.notify = make(chan struct{})

	return ids
}

// Read returns up to count events with ids strictly greater than afterID. A positive block waits
// that long for new events when none are available yet.
func (m *Memory) Read(ctx context.Context, tenantID, runID, afterID string, count int64, block time.Duration) ([]*eventsmodel.Event, error) {
	after, err := eventsmodel.ParseID(afterID)
	if err != nil {
		return nil, err
	}

	key := redispkg.EventLogKey(tenantID, runID)

	var deadline <-chan time.Time
	if block > 0 {
		timer := time.NewTimer(block)
		defer timer.Stop()
		deadline = timer.C
	}

	for {
		m.mu.Lock()
		l := m.log(key)
		evs := collect(l.entries, after, count)
		notify := l.notify
		m.mu.Unlock()

		if len(evs) > 0 || block <= 0 {
			return evs, nil
		}

		select {
		case <-notify:
		case <-deadline:
			return nil, nil
		case <-ctx.Done():
			return nil, status.FromContextError(ctx.Err()).Err()
		}
	}
}

func collect(entries []*eventsmodel.Event, after eventsmodel.ID, count int64) []*eventsmodel.Event {
	var out []*eventsmodel.Event
	for _, entry := range entries {
		id, err := eventsmodel.ParseID(entry.ID)
		if err != nil || !after.Less(id) {
			continue
		}

		ev := *entry
		ev.Metadata = maps.Clone(entry.Metadata)
		out = append(out, &ev)

		if count > 0 && int64(len(out)) >= count {
			break
		}
	}
	return out
}
