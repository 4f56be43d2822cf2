package openai

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/sony/gobreaker"
)

// ErrCircuitOpen is returned while the breaker rejects embedding calls to
// keep a flapping provider from being hammered by batch runs.
var ErrCircuitOpen = errors.New("embedding circuit breaker is open")

// BreakerConfig holds the configuration for the embedding circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures required to trip the circuit.
	MaxFailures uint32

	// Timeout is the duration the circuit stays open before transitioning to half-open.
	Timeout time.Duration

	// HalfOpenMaxSuccesses is the number of successes required in half-open
	// state to close the circuit again.
	HalfOpenMaxSuccesses uint32
}

// DefaultBreakerConfig returns the default breaker settings.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxFailures:          3,
		Timeout:              30 * time.Second,
		HalfOpenMaxSuccesses: 2,
	}
}

// BreakerClient wraps an EmbeddingAPI with a circuit breaker.
type BreakerClient struct {
	api     EmbeddingAPI
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerClient wraps the given embedding API with a circuit breaker.
func NewBreakerClient(api EmbeddingAPI, cfg BreakerConfig) *BreakerClient {
	if cfg.MaxFailures == 0 {
		cfg = DefaultBreakerConfig()
	}

	settings := gobreaker.Settings{
		Name:        "EmbeddingProvider",
		MaxRequests: cfg.HalfOpenMaxSuccesses,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			log.Printf("embedding breaker %s: %s -> %s", name, from, to)
		},
	}

	return &BreakerClient{
		api:     api,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// CreateEmbeddings implements EmbeddingAPI through the breaker.
func (c *BreakerClient) CreateEmbeddings(ctx context.Context, text string) ([]float32, error) {
	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.api.CreateEmbeddings(ctx, text)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, ErrCircuitOpen
		}
		return nil, err
	}
	return result.([]float32), nil
}
