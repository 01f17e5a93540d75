package storage

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/veridex/claimsearch/pkg/resilience"
)

// State is the fallback controller's view of the durable tier.
type State int

const (
	// StateHealthy means the durable tier is serving traffic.
	StateHealthy State = iota
	// StateDegraded means the ephemeral tier is serving traffic after a
	// durable-tier failure.
	StateDegraded
	// StateRecovering means the ephemeral tier still serves traffic while
	// the durable tier is being probed.
	StateRecovering
)

func (s State) String() string {
	switch s {
	case StateHealthy:
		return "healthy"
	case StateDegraded:
		return "degraded"
	case StateRecovering:
		return "recovering"
	default:
		return "unknown"
	}
}

// Reason explains a state transition.
type Reason string

const (
	ReasonHealthCheckFailed Reason = "health_check_failed"
	ReasonStoreFailed       Reason = "store_failed"
	ReasonRetrieveFailed    Reason = "retrieve_failed"
	// ReasonProbeStarted marks the timer-driven Degraded→Recovering step.
	ReasonProbeStarted Reason = "probe_started"
	// ReasonHealthCheckPassed marks recovery back to the durable tier.
	ReasonHealthCheckPassed Reason = "health_check_passed"
)

// Event is emitted to subscribers on every state transition. The controller
// guarantees emission, not delivery; subscribers run synchronously and must
// be fast.
type Event struct {
	Reason    Reason    `json:"reason"`
	From      State     `json:"-"`
	To        State     `json:"-"`
	Timestamp time.Time `json:"timestamp"`
}

// ControllerConfig tunes the fallback controller.
type ControllerConfig struct {
	// ProbeInterval is the period of the background health probe.
	ProbeInterval time.Duration
	// CallTimeout bounds every durable-tier call so one slow network call
	// cannot stall ingestion. A timeout counts as a failure.
	CallTimeout time.Duration
	// Pin is passed to durable stores.
	Pin bool
	// Breaker guards durable-tier calls so a flapping node is not hammered
	// while the controller is degraded.
	Breaker resilience.CircuitBreakerConfig
}

// Controller routes blob traffic between the durable and ephemeral tiers.
// Writes try the durable tier first and fall back to the ephemeral tier,
// tagging the reference so later reconciliation can promote the blob. Reads
// follow the reference's tier; durable reads degrade to a local cached copy
// when one exists, and error otherwise rather than fabricate data.
type Controller struct {
	durable   Adapter
	ephemeral EphemeralTier
	cfg       ControllerConfig
	breaker   *resilience.CircuitBreaker
	logger    *slog.Logger

	mu    sync.Mutex
	state State
	subs  []func(Event)
}

// NewController creates a Controller in the Healthy state.
func NewController(durable Adapter, ephemeral EphemeralTier, cfg ControllerConfig) *Controller {
	if cfg.ProbeInterval <= 0 {
		cfg.ProbeInterval = 30 * time.Second
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	return &Controller{
		durable:   durable,
		ephemeral: ephemeral,
		cfg:       cfg,
		breaker:   resilience.NewCircuitBreaker("durable-tier", cfg.Breaker),
		logger:    slog.Default().With("component", "fallback-controller"),
	}
}

// State returns the controller's current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe registers a callback invoked on every state transition.
func (c *Controller) Subscribe(fn func(Event)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subs = append(c.subs, fn)
}

// Store writes the blob to the active tier. While healthy it attempts the
// durable tier; on failure it transitions to Degraded and writes the blob to
// the ephemeral tier instead, so the caller still gets a valid reference.
// The returned reference's tier tells the caller whether the write was
// degraded.
func (c *Controller) Store(ctx context.Context, data []byte) (Reference, error) {
	hash := HashContent(data)

	if c.State() == StateHealthy {
		res, err := c.durableStore(ctx, data)
		if err == nil {
			// Keep a local copy under the durable blob id so reads can
			// degrade to it if the durable tier goes away later.
			if cacheErr := c.ephemeral.StoreAt(ctx, res.BlobID, data); cacheErr != nil {
				c.logger.Warn("caching durable blob locally failed", "blob_id", res.BlobID, "error", cacheErr)
			}
			return Reference{
				BlobID:      res.BlobID,
				ContentHash: hash,
				Tier:        TierDurable,
				Certificate: res.Certificate,
			}, nil
		}
		c.logger.Warn("durable store failed, falling back to ephemeral tier", "error", err)
		c.transition(StateHealthy, StateDegraded, ReasonStoreFailed)
	}

	res, err := c.ephemeral.Store(ctx, data, Options{})
	if err != nil {
		return Reference{}, fmt.Errorf("ephemeral store: %w", err)
	}
	return Reference{
		BlobID:      res.BlobID,
		ContentHash: hash,
		Tier:        TierEphemeral,
		Certificate: res.Certificate,
	}, nil
}

// Retrieve reads the blob behind a reference. Ephemeral references always
// read locally. Durable references attempt the durable tier and fall back to
// a locally cached copy; when neither holds the blob the retrieval error is
// surfaced.
func (c *Controller) Retrieve(ctx context.Context, ref Reference) ([]byte, error) {
	if ref.Tier == TierEphemeral {
		return c.ephemeral.Retrieve(ctx, ref.BlobID)
	}

	data, err := c.durableRetrieve(ctx, ref.BlobID)
	if err == nil {
		return data, nil
	}
	c.logger.Warn("durable retrieve failed, trying local copy", "blob_id", ref.BlobID, "error", err)
	c.transition(StateHealthy, StateDegraded, ReasonRetrieveFailed)

	cached, cacheErr := c.ephemeral.Retrieve(ctx, ref.BlobID)
	if cacheErr == nil {
		return cached, nil
	}
	return nil, fmt.Errorf("retrieving durable blob %s: %w", ref.BlobID, err)
}

// Probe runs one health-probe step of the state machine. Run drives it on a
// timer; tests call it directly.
func (c *Controller) Probe(ctx context.Context) {
	switch c.State() {
	case StateHealthy:
		if err := c.probeDurable(ctx); err != nil {
			c.logger.Warn("health probe failed", "error", err)
			c.transition(StateHealthy, StateDegraded, ReasonHealthCheckFailed)
		}
	case StateDegraded:
		if !c.transition(StateDegraded, StateRecovering, ReasonProbeStarted) {
			return
		}
		c.finishRecoveryProbe(ctx)
	case StateRecovering:
		// A probe step was interrupted; finish it.
		c.finishRecoveryProbe(ctx)
	}
}

// Run drives the probe loop until ctx is cancelled. It never touches the
// catalog; it only flips controller state.
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.ProbeInterval)
	defer ticker.Stop()
	c.logger.Info("fallback probe loop started", "interval", c.cfg.ProbeInterval)
	for {
		select {
		case <-ctx.Done():
			c.logger.Info("fallback probe loop stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			c.Probe(ctx)
		}
	}
}

func (c *Controller) finishRecoveryProbe(ctx context.Context) {
	if err := c.probeDurable(ctx); err != nil {
		c.logger.Debug("recovery probe failed", "error", err)
		c.transition(StateRecovering, StateDegraded, ReasonHealthCheckFailed)
		return
	}
	if c.transition(StateRecovering, StateHealthy, ReasonHealthCheckPassed) {
		c.breaker.Reset()
		c.logger.Info("durable tier recovered, serving from durable again")
	}
}

func (c *Controller) probeDurable(ctx context.Context) error {
	return resilience.WithTimeout(ctx, c.cfg.CallTimeout, "durable health probe", func(ctx context.Context) error {
		return c.durable.HealthCheck(ctx)
	})
}

func (c *Controller) durableStore(ctx context.Context, data []byte) (StoreResult, error) {
	var res StoreResult
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.cfg.CallTimeout, "durable store", func(ctx context.Context) error {
			r, err := c.durable.Store(ctx, data, Options{Pin: c.cfg.Pin})
			if err != nil {
				return err
			}
			res = r
			return nil
		})
	})
	return res, err
}

func (c *Controller) durableRetrieve(ctx context.Context, blobID string) ([]byte, error) {
	var data []byte
	err := c.breaker.Execute(func() error {
		return resilience.WithTimeout(ctx, c.cfg.CallTimeout, "durable retrieve", func(ctx context.Context) error {
			d, err := c.durable.Retrieve(ctx, blobID)
			if err != nil {
				return err
			}
			data = d
			return nil
		})
	})
	return data, err
}

// transition moves the state machine from `from` to `to` if it is still in
// `from`, emitting an event to all subscribers. It reports whether the
// transition applied; a stale transition (state changed concurrently) is a
// no-op so probe results cannot flap state on every tick.
func (c *Controller) transition(from, to State, reason Reason) bool {
	c.mu.Lock()
	if c.state != from {
		c.mu.Unlock()
		return false
	}
	c.state = to
	subs := make([]func(Event), len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	event := Event{
		Reason:    reason,
		From:      from,
		To:        to,
		Timestamp: time.Now().UTC(),
	}
	c.logger.Info("fallback state transition",
		"from", from.String(),
		"to", to.String(),
		"reason", string(reason),
	)
	for _, fn := range subs {
		fn(event)
	}
	return true
}
