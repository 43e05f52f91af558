package messagebus

import (
	"context"
	"sync"
)

// Delivery is one message captured by MemoryBus.
type Delivery struct {
	RoutingKey string
	Body       []byte
}

// MemoryBus records every message. Used in development and tests.
type MemoryBus struct {
	mu         sync.Mutex
	deliveries []Delivery
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{}
}

func (b *MemoryBus) SendMessage(_ context.Context, routingKey string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.deliveries = append(b.deliveries, Delivery{
		RoutingKey: routingKey,
		Body:       append([]byte(nil), body...),
	})
	return nil
}

// Deliveries returns a copy of the recorded messages in send order.
func (b *MemoryBus) Deliveries() []Delivery {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]Delivery(nil), b.deliveries...)
}
