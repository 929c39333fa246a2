package cursor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/gridlog/gridlog-go/pkg/logclient"
)

// fakeLog emulates the server side of the pull protocol: events are served
// in ascending order with an inclusive from filter and no de-duplication.
type fakeLog struct {
	mu       sync.Mutex
	events   []json.RawMessage
	times    []time.Time
	err      error
	calls    int
	lastFrom *time.Time
}

func wire(id string, ts time.Time, payload string) json.RawMessage {
	raw, err := json.Marshal(map[string]string{
		"id":        id,
		"createdAt": ts.UTC().Format(time.RFC3339Nano),
		"payload":   payload,
	})
	if err != nil {
		panic(err)
	}
	return raw
}

func (f *fakeLog) add(id string, ts time.Time, payload string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, wire(id, ts, payload))
	f.times = append(f.times, ts)
}

func (f *fakeLog) addRaw(raw json.RawMessage, ts time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, raw)
	f.times = append(f.times, ts)
}

func (f *fakeLog) Query(ctx context.Context, channel string, from *time.Time) ([]json.RawMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastFrom = from
	if f.err != nil {
		return nil, f.err
	}
	var out []json.RawMessage
	for i, raw := range f.events {
		if from != nil && f.times[i].Before(*from) {
			continue
		}
		out = append(out, raw)
	}
	return out, nil
}

type recorder struct {
	mu      sync.Mutex
	applied []string
	outcome func(event logclient.Event) Outcome
}

func (r *recorder) apply(ctx context.Context, event logclient.Event) Outcome {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, event.ID)
	if r.outcome != nil {
		return r.outcome(event)
	}
	return Applied
}

func newTestConsumer(t *testing.T, log *fakeLog, rec *recorder, config Config) *Consumer {
	t.Helper()
	if config.Channel == "" {
		config.Channel = "orders"
	}
	consumer, err := New(log, rec.apply, config, zerolog.Nop())
	require.NoError(t, err)
	return consumer
}

func TestConsumer_AscendingBatchFromEmptyWatermark(t *testing.T) {
	// Three events at ascending t1 < t2 < t3: one poll applies all three
	// and the watermark lands on (t3, {id3}).
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeLog{}
	log.add("id1", base, `{"n":1}`)
	log.add("id2", base.Add(time.Second), `{"n":2}`)
	log.add("id3", base.Add(2*time.Second), `{"n":3}`)

	rec := &recorder{}
	consumer := newTestConsumer(t, log, rec, Config{})

	consumer.PollOnce(context.Background())

	require.Equal(t, []string{"id1", "id2", "id3"}, rec.applied)
	require.Nil(t, log.lastFrom, "empty watermark must omit from")

	w := consumer.Watermark()
	require.Equal(t, base.Add(2*time.Second), w.LastTimestamp)
	require.Len(t, w.IDs, 1)
	require.Contains(t, w.IDs, "id3")
}

func TestConsumer_SameTimestampRedelivery(t *testing.T) {
	// Two events sharing one timestamp: the first poll applies both and
	// records both ids; the second poll re-receives both (inclusive from,
	// no server dedup) and applies nothing new.
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeLog{}
	log.add("A", ts, `{"n":1}`)
	log.add("B", ts, `{"n":2}`)

	rec := &recorder{}
	consumer := newTestConsumer(t, log, rec, Config{})

	consumer.PollOnce(context.Background())
	require.Equal(t, []string{"A", "B"}, rec.applied)

	w := consumer.Watermark()
	require.Equal(t, ts, w.LastTimestamp)
	require.Contains(t, w.IDs, "A")
	require.Contains(t, w.IDs, "B")

	consumer.PollOnce(context.Background())
	require.Equal(t, []string{"A", "B"}, rec.applied, "boundary re-delivery must not re-apply")
	require.NotNil(t, log.lastFrom)
	require.True(t, log.lastFrom.Equal(ts))
}

func TestConsumer_WatermarkNeverRegresses(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeLog{}
	log.add("id1", base, `{"n":1}`)

	rec := &recorder{}
	consumer := newTestConsumer(t, log, rec, Config{})

	consumer.PollOnce(context.Background())
	first := consumer.Watermark()

	log.add("id2", base.Add(time.Second), `{"n":2}`)
	consumer.PollOnce(context.Background())
	second := consumer.Watermark()

	require.False(t, second.LastTimestamp.Before(first.LastTimestamp))
	require.Equal(t, []string{"id1", "id2"}, rec.applied)

	// A third poll with nothing new leaves the frontier untouched.
	consumer.PollOnce(context.Background())
	require.Equal(t, second.LastTimestamp, consumer.Watermark().LastTimestamp)
}

func TestConsumer_MergesIDsAtFrontierTimestamp(t *testing.T) {
	// A new id arriving at the current frontier timestamp merges into the
	// id set instead of replacing it.
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeLog{}
	log.add("A", ts, `{"n":1}`)

	rec := &recorder{}
	consumer := newTestConsumer(t, log, rec, Config{})
	consumer.PollOnce(context.Background())

	log.add("B", ts, `{"n":2}`)
	consumer.PollOnce(context.Background())

	w := consumer.Watermark()
	require.Equal(t, ts, w.LastTimestamp)
	require.Contains(t, w.IDs, "A", "merge must keep previously recorded ids")
	require.Contains(t, w.IDs, "B")
	require.Equal(t, []string{"A", "B"}, rec.applied)
}

func TestConsumer_TransportErrorKeepsWatermark(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeLog{}
	log.add("id1", base, `{"n":1}`)

	rec := &recorder{}
	consumer := newTestConsumer(t, log, rec, Config{})
	consumer.PollOnce(context.Background())
	before := consumer.Watermark()

	log.mu.Lock()
	log.err = errors.New("connection refused")
	log.mu.Unlock()

	consumer.PollOnce(context.Background())
	require.Equal(t, before.LastTimestamp, consumer.Watermark().LastTimestamp)
	require.False(t, consumer.Stopped(), "transport errors must not stop the consumer")

	// Next tick retries and succeeds.
	log.mu.Lock()
	log.err = nil
	log.mu.Unlock()
	log.add("id2", base.Add(time.Second), `{"n":2}`)

	consumer.PollOnce(context.Background())
	require.Equal(t, []string{"id1", "id2"}, rec.applied)
}

func TestConsumer_SkipsUndecodableEvents(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeLog{}
	log.addRaw(json.RawMessage(`{"id":42,"createdAt":"bad","payload":7}`), base)
	log.add("id2", base.Add(time.Second), `{"n":2}`)

	rec := &recorder{}
	consumer := newTestConsumer(t, log, rec, Config{})
	consumer.PollOnce(context.Background())

	require.Equal(t, []string{"id2"}, rec.applied, "poison wire event must not abort the batch")
	require.Equal(t, base.Add(time.Second), consumer.Watermark().LastTimestamp)
}

func TestConsumer_PerPollCapDefersRemainder(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeLog{}
	for i := 0; i < 5; i++ {
		log.add(fmt.Sprintf("id%d", i), base.Add(time.Duration(i)*time.Second), `{"n":1}`)
	}

	rec := &recorder{}
	consumer := newTestConsumer(t, log, rec, Config{MaxPerPoll: 2})

	consumer.PollOnce(context.Background())
	require.Equal(t, []string{"id0", "id1"}, rec.applied)
	require.Equal(t, base.Add(time.Second), consumer.Watermark().LastTimestamp)

	consumer.PollOnce(context.Background())
	require.Equal(t, []string{"id0", "id1", "id2", "id3"}, rec.applied)

	consumer.PollOnce(context.Background())
	require.Equal(t, []string{"id0", "id1", "id2", "id3", "id4"}, rec.applied)
}

func TestConsumer_NoChangeStillAdvancesWatermark(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeLog{}
	log.add("id1", base, `{"n":1}`)

	rec := &recorder{outcome: func(logclient.Event) Outcome { return NoChange }}
	consumer := newTestConsumer(t, log, rec, Config{})
	consumer.PollOnce(context.Background())

	w := consumer.Watermark()
	require.Equal(t, base, w.LastTimestamp)
	require.Contains(t, w.IDs, "id1")

	// Re-delivery applies nothing.
	consumer.PollOnce(context.Background())
	require.Len(t, rec.applied, 1)
}

func TestConsumer_PoisonStillAdvancesWatermark(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeLog{}
	log.add("id1", base, `{"contractId":"missing"}`)

	rec := &recorder{outcome: func(logclient.Event) Outcome { return Poison }}
	consumer := newTestConsumer(t, log, rec, Config{})
	consumer.PollOnce(context.Background())

	require.Contains(t, consumer.Watermark().IDs, "id1",
		"a decodable but unprocessable event is consumed, not retried")
}

func TestConsumer_ExhaustedStopsPermanently(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeLog{}
	log.add("id1", base, `{"n":1}`)
	log.add("id2", base.Add(time.Second), `{"n":2}`)
	log.add("id3", base.Add(2*time.Second), `{"n":3}`)

	var count int
	rec := &recorder{}
	rec.outcome = func(logclient.Event) Outcome {
		count++
		if count > 2 {
			return Exhausted
		}
		return Applied
	}
	consumer := newTestConsumer(t, log, rec, Config{})

	consumer.PollOnce(context.Background())
	require.True(t, consumer.Stopped())
	// The first two were applied and still count toward the watermark;
	// the third stays unconsumed forever.
	require.Equal(t, base.Add(time.Second), consumer.Watermark().LastTimestamp)

	callsBefore := log.calls
	consumer.PollOnce(context.Background())
	require.Equal(t, callsBefore, log.calls, "stopped consumer must not poll")
}

func TestConsumer_StopWhenChecksAtTickStart(t *testing.T) {
	log := &fakeLog{}
	log.add("id1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), `{"n":1}`)

	rec := &recorder{}
	full := true
	consumer := newTestConsumer(t, log, rec, Config{StopWhen: func() bool { return full }})

	consumer.PollOnce(context.Background())
	require.True(t, consumer.Stopped())
	require.Empty(t, rec.applied)
	require.Zero(t, log.calls)
}

func TestConsumer_DropsOverlappingTick(t *testing.T) {
	log := &fakeLog{}
	log.add("id1", time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), `{"n":1}`)

	blocked := make(chan struct{})
	release := make(chan struct{})
	rec := &recorder{}
	rec.outcome = func(logclient.Event) Outcome {
		close(blocked)
		<-release
		return Applied
	}
	consumer := newTestConsumer(t, log, rec, Config{})

	go consumer.PollOnce(context.Background())
	<-blocked

	// While the first tick is applying, a new tick is dropped, not queued.
	consumer.PollOnce(context.Background())
	require.Equal(t, 1, log.calls)

	close(release)
}

func TestConsumer_StartStopLifecycle(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	log := &fakeLog{}
	log.add("id1", base, `{"n":1}`)

	rec := &recorder{}
	consumer := newTestConsumer(t, log, rec, Config{Interval: 10 * time.Millisecond})

	require.NoError(t, consumer.Start(context.Background()))
	require.Error(t, consumer.Start(context.Background()), "double start must fail")

	require.Eventually(t, func() bool {
		rec.mu.Lock()
		defer rec.mu.Unlock()
		return len(rec.applied) == 1
	}, time.Second, 5*time.Millisecond)

	consumer.Stop()

	// No polls after Stop.
	log.mu.Lock()
	calls := log.calls
	log.mu.Unlock()
	time.Sleep(50 * time.Millisecond)
	log.mu.Lock()
	require.Equal(t, calls, log.calls)
	log.mu.Unlock()
}
