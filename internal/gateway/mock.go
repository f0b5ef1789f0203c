package gateway

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// MockGateway simulates the hosted checkout API for local development and
// tests. It can inject latency and a failure rate.
type MockGateway struct {
	// FailureRate is the probability of failure (0.0 to 1.0).
	FailureRate float64
	// Delay, when set, is slept before responding to mimic network latency.
	Delay time.Duration
}

func NewMockGateway() *MockGateway {
	return &MockGateway{}
}

// CreateSession returns a fake session after the configured delay, failing
// randomly per FailureRate.
func (g *MockGateway) CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error) {
	if g.Delay > 0 {
		select {
		case <-time.After(g.Delay):
		case <-ctx.Done():
			return nil, fmt.Errorf("gateway call canceled: %w", ctx.Err())
		}
	}

	if rand.Float64() < g.FailureRate {
		return nil, fmt.Errorf("%w: simulated outage", ErrUnavailable)
	}

	id := fmt.Sprintf("cs_mock_%s_%05d", time.Now().Format("20060102150405"), rand.Intn(100000))
	return &Session{
		ID:  id,
		URL: "https://checkout.example.com/pay/" + id,
	}, nil
}
