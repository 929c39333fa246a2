package cursor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/gridlog/gridlog-go/pkg/logclient"
)

// Outcome classifies what the apply callback did with one decoded event.
type Outcome int

const (
	// Applied: structurally valid, applied with a material change.
	Applied Outcome = iota
	// NoChange: structurally valid but nothing changed. Still counts
	// toward the watermark so the event is never re-delivered.
	NoChange
	// Poison: structurally or semantically unprocessable. Skipped
	// permanently; counts toward the watermark like NoChange.
	Poison
	// Exhausted: a consumer capacity limit was hit. The event is left
	// unconsumed and the consumer stops polling permanently.
	Exhausted
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case NoChange:
		return "no-change"
	case Poison:
		return "poison"
	case Exhausted:
		return "exhausted"
	default:
		return "unknown"
	}
}

// ApplyFunc consumes one decoded event. It must be idempotent: the pull
// protocol is at-least-once and boundary events are re-delivered.
type ApplyFunc func(ctx context.Context, event logclient.Event) Outcome

// Querier is the one event log operation a consumer needs.
type Querier interface {
	Query(ctx context.Context, channel string, from *time.Time) ([]json.RawMessage, error)
}

// Config holds consumer configuration.
type Config struct {
	// Channel is the event log channel to poll.
	Channel string

	// Interval is the poll cadence.
	Interval time.Duration

	// MaxPerPoll caps events applied per tick; 0 means unlimited.
	// Events beyond the cap are deferred to the next tick.
	MaxPerPoll int

	// Initial is the starting watermark; zero value starts from the
	// beginning of the channel.
	Initial Watermark

	// StopWhen, if set, is checked at each tick start; once true the
	// consumer stops polling permanently.
	StopWhen func() bool
}

// SetDefaults fills unset fields with sensible defaults.
func (c *Config) SetDefaults() {
	if c.Interval == 0 {
		c.Interval = 5 * time.Second
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Channel == "" {
		return errors.New("channel is required")
	}
	if c.Interval <= 0 {
		return errors.New("interval must be positive")
	}
	if c.MaxPerPoll < 0 {
		return errors.New("max per poll cannot be negative")
	}
	return nil
}

// Consumer polls one channel of the event log and applies new events
// through an idempotent callback, advancing its watermark as it goes.
type Consumer struct {
	config  Config
	querier Querier
	apply   ApplyFunc
	log     zerolog.Logger

	mu        sync.Mutex
	watermark Watermark

	ticking atomic.Bool // single-slot tick guard
	stopped atomic.Bool

	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a consumer. The callback is invoked synchronously from the
// poll loop, one event at a time, in the order the log returned them.
func New(querier Querier, apply ApplyFunc, config Config, log zerolog.Logger) (*Consumer, error) {
	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if querier == nil {
		return nil, errors.New("querier is required")
	}
	if apply == nil {
		return nil, errors.New("apply callback is required")
	}

	return &Consumer{
		config:    config,
		querier:   querier,
		apply:     apply,
		log:       log.With().Str("channel", config.Channel).Logger(),
		watermark: config.Initial.clone(),
	}, nil
}

// Start launches the poll loop: one immediate poll, then one per interval.
func (c *Consumer) Start(ctx context.Context) error {
	if c.cancel != nil {
		return errors.New("consumer already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(runCtx)
	return nil
}

// Stop cancels the poll timer and waits for an in-flight tick to finish.
// A tick is never aborted mid-batch; cancellation lands at tick boundaries.
func (c *Consumer) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

// Stopped reports whether the consumer has permanently stopped polling.
func (c *Consumer) Stopped() bool {
	return c.stopped.Load()
}

// Watermark returns a copy of the current watermark.
func (c *Consumer) Watermark() Watermark {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.watermark.clone()
}

func (c *Consumer) run(ctx context.Context) {
	defer close(c.done)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	// Polls run to completion even while shutting down; only the wait
	// between ticks observes cancellation.
	pollCtx := context.WithoutCancel(ctx)

	c.PollOnce(pollCtx)
	for {
		if c.stopped.Load() {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.PollOnce(pollCtx)
		}
	}
}

// PollOnce performs a single tick: query from the watermark, apply what is
// new, advance the watermark. If the previous tick is still in flight the
// call is dropped, not queued.
func (c *Consumer) PollOnce(ctx context.Context) {
	if c.stopped.Load() {
		return
	}
	if c.config.StopWhen != nil && c.config.StopWhen() {
		c.log.Info().Msg("capacity reached, stopping consumer")
		c.stopped.Store(true)
		return
	}
	if !c.ticking.CompareAndSwap(false, true) {
		c.log.Debug().Msg("dropping tick, previous poll still in flight")
		return
	}
	defer c.ticking.Store(false)

	watermark := c.Watermark()

	var from *time.Time
	if !watermark.IsZero() {
		ts := watermark.LastTimestamp
		from = &ts
	}

	raws, err := c.querier.Query(ctx, c.config.Channel, from)
	if err != nil {
		// Transport errors are retried implicitly by the next tick.
		c.log.Error().Err(err).Msg("poll failed")
		return
	}
	if len(raws) == 0 {
		return
	}

	frontier := watermark.clone()
	processed := 0
	exhausted := false

	for _, raw := range raws {
		if c.config.MaxPerPoll > 0 && processed >= c.config.MaxPerPoll {
			break
		}

		event, err := logclient.ParseEvent(raw)
		if err != nil {
			c.log.Error().Err(err).Msg("skipping undecodable event")
			continue
		}
		if watermark.Covers(event.ID, event.CreatedAt) {
			// Expected re-delivery of a boundary event.
			continue
		}

		outcome := c.apply(ctx, *event)
		if outcome == Exhausted {
			// The event stays unconsumed; already-applied events in
			// this batch still count toward the watermark below.
			exhausted = true
			break
		}

		processed++
		if event.CreatedAt.After(frontier.LastTimestamp) {
			frontier.LastTimestamp = event.CreatedAt
			frontier.IDs = map[string]struct{}{event.ID: {}}
		} else if event.CreatedAt.Equal(frontier.LastTimestamp) {
			frontier.IDs[event.ID] = struct{}{}
		}
	}

	if processed > 0 {
		c.mu.Lock()
		c.watermark = frontier
		c.mu.Unlock()
		c.log.Debug().
			Int("processed", processed).
			Time("frontier", frontier.LastTimestamp).
			Msg("watermark advanced")
	}

	if exhausted {
		c.log.Info().Msg("capacity reached, stopping consumer")
		c.stopped.Store(true)
	}
}
