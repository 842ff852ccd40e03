//go:generate mockgen -source=$GOFILE -package=$GOPACKAGE -destination=./mock/$GOFILE

package dispatch

import (
	"context"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/hitesh22rana/runstream/internal/pkg/jobs"
	"github.com/hitesh22rana/runstream/internal/repository/payloads"
)

// EventTypeRunRequested tags run request records on the runs topic.
const EventTypeRunRequested = "workflow_run_requested"

// Producer publishes records to the broker.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// PayloadStore uploads materialized dispatch payloads.
type PayloadStore interface {
	Put(ctx context.Context, obj *payloads.Object) error
}

// URLSigner mints time-limited read-only URLs for stored payloads.
type URLSigner interface {
	Configured() bool
	Sign(tenantID, runID, key string) (string, time.Time, error)
}

// JobStarter starts one container on a compute backend.
type JobStarter interface {
	Configured() bool
	Start(ctx context.Context, spec *jobs.Spec) (string, error)
}
