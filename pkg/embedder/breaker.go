package embedder

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerConfig tunes the circuit breaker around a remote embedder.
type BreakerConfig struct {
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	ReadyToTripRatio float64
}

// DefaultBreakerConfig trips after 3+ requests with a 60% failure ratio and
// probes again after 30 seconds.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      1,
		Interval:         60 * time.Second,
		Timeout:          30 * time.Second,
		ReadyToTripRatio: 0.6,
	}
}

// BreakerClient wraps a Client with circuit breaking so a failing remote
// embedding service degrades similarity queries instead of hanging every
// caller on timeouts.
type BreakerClient struct {
	client Client
	cb     *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps client with a circuit breaker.
func NewBreakerClient(client Client, cfg BreakerConfig, logger *slog.Logger) *BreakerClient {
	if logger == nil {
		logger = slog.Default()
	}
	st := gobreaker.Settings{
		Name:        "embedder",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && ratio >= cfg.ReadyToTripRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("embedder circuit breaker state change", "from", from.String(), "to", to.String())
		},
	}
	return &BreakerClient{client: client, cb: gobreaker.NewCircuitBreaker(st)}
}

// Embed implements Client.
func (b *BreakerClient) Embed(ctx context.Context, name string, contextSnippets []string) ([]float32, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		return b.client.Embed(ctx, name, contextSnippets)
	})
	if err != nil {
		return nil, err
	}
	return out.([]float32), nil
}
