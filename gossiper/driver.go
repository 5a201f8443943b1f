// Package gossiper distributes assembled content records through a
// Publisher and reports the outcome of every record.
package gossiper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/morph-dev/portal-state-network-utils/log"
	"github.com/morph-dev/portal-state-network-utils/portal"
	"github.com/morph-dev/portal-state-network-utils/storage"
)

var logger = log.NewLogger("gossiper")

// ErrPublish wraps every error returned by a Publisher.
var ErrPublish = errors.New("gossiper: publish failed")

// DefaultConcurrency is the number of records published at once.
const DefaultConcurrency = 8

// Outcome is the result of distributing one record. Err is nil when the
// record was published.
type Outcome struct {
	Key portal.ContentKey
	Ack Ack
	Err error
}

func (o Outcome) Published() bool {
	return o.Err == nil
}

// OutcomeRecorder persists the outcomes of a batch.
type OutcomeRecorder interface {
	RecordOutcomes(outcomes map[common.Hash]storage.Outcome) error
}

// Driver publishes records without retries. A failed record never stops the
// batch.
type Driver struct {
	publisher   Publisher
	concurrency int
	metrics     *Metrics
	recorder    OutcomeRecorder
}

type Option func(*Driver)

func WithConcurrency(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.concurrency = n
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Driver) {
		d.metrics = m
	}
}

func WithRecorder(r OutcomeRecorder) Option {
	return func(d *Driver) {
		d.recorder = r
	}
}

func NewDriver(publisher Publisher, opts ...Option) *Driver {
	d := &Driver{
		publisher:   publisher,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Distribute publishes every record of set and returns one outcome per
// record, in the order of set.
func (d *Driver) Distribute(ctx context.Context, set *portal.ContentSet) []Outcome {
	records := set.Records()
	outcomes := make([]Outcome, len(records))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i, r := range records {
		i, r := i, r
		g.Go(func() error {
			outcomes[i] = d.publish(ctx, r)
			return nil
		})
	}
	_ = g.Wait()

	published := 0
	for _, o := range outcomes {
		if o.Published() {
			published++
		}
	}
	logger.Info().Int("records", len(outcomes)).Int("published", published).
		Int("failed", len(outcomes)-published).Msg("Distributed content")

	if d.recorder != nil {
		if err := d.recorder.RecordOutcomes(storedOutcomes(outcomes)); err != nil {
			logger.Error().Err(err).Msg("Failed to record distribution outcomes")
		}
	}
	return outcomes
}

func (d *Driver) publish(ctx context.Context, r portal.Record) Outcome {
	value, err := r.Value.Encode()
	if err != nil {
		logger.Warn().Err(err).Str("key", log.ShortHex(r.Key.Encode(), 40)).Msg("Failed to encode content value")
		d.metrics.observe(r.Key.Network(), false, 0)
		return Outcome{Key: r.Key, Err: err}
	}

	start := time.Now()
	ack, err := d.publisher.Publish(ctx, r.Key, value)
	d.metrics.observe(r.Key.Network(), err == nil, time.Since(start))
	if err != nil {
		logger.Warn().Err(err).
			Str("key", log.ShortHex(r.Key.Encode(), 40)).
			Str("network", r.Key.Network().String()).
			Msg("Failed to publish content")
		return Outcome{Key: r.Key, Err: fmt.Errorf("%w: %w", ErrPublish, err)}
	}
	logger.Debug().
		Stringer("key", log.DoLazyEval(func() string { return fmt.Sprint(r.Key) })).
		Int("peers", ack.Peers).
		Msg("Published content")
	return Outcome{Key: r.Key, Ack: ack}
}

func storedOutcomes(outcomes []Outcome) map[common.Hash]storage.Outcome {
	stored := make(map[common.Hash]storage.Outcome, len(outcomes))
	for _, o := range outcomes {
		s := storage.Outcome{Published: o.Published(), Peers: o.Ack.Peers}
		if o.Err != nil {
			s.Error = o.Err.Error()
		}
		stored[portal.ContentID(o.Key)] = s
	}
	return stored
}
