package messagebus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"

	"github.com/goliatone/go-publishing/pkg/interfaces"
)

const (
	busName       = "message-bus"
	eventTypeBase = "publishing.content"
	// RoutingKeyExtension carries the routing key on every event.
	RoutingKeyExtension = "routingkey"
)

var ErrTargetRequired = errors.New("message bus: target url is required")

// CloudEventsBus publishes representations as CloudEvents over HTTP. The
// event type is "publishing.content.<routing_key>".
type CloudEventsBus struct {
	client cloudevents.Client
	source string
	now    func() time.Time
	id     func() string
}

// Option customises a CloudEventsBus.
type Option func(*CloudEventsBus)

func WithClock(clock func() time.Time) Option {
	return func(b *CloudEventsBus) {
		if clock != nil {
			b.now = clock
		}
	}
}

func WithIDGenerator(id func() string) Option {
	return func(b *CloudEventsBus) {
		if id != nil {
			b.id = id
		}
	}
}

// NewCloudEventsBus builds an HTTP CloudEvents sender for target.
func NewCloudEventsBus(target, source string, opts ...Option) (*CloudEventsBus, error) {
	if strings.TrimSpace(target) == "" {
		return nil, ErrTargetRequired
	}
	client, err := cloudevents.NewClientHTTP(cloudevents.WithTarget(target))
	if err != nil {
		return nil, fmt.Errorf("message bus: create client: %w", err)
	}
	return NewCloudEventsBusWithClient(client, source, opts...), nil
}

// NewCloudEventsBusWithClient wires a prebuilt CloudEvents client.
func NewCloudEventsBusWithClient(client cloudevents.Client, source string, opts ...Option) *CloudEventsBus {
	bus := &CloudEventsBus{
		client: client,
		source: source,
		now:    time.Now,
		id:     uuid.NewString,
	}
	if bus.source == "" {
		bus.source = "publishing-api"
	}
	for _, opt := range opts {
		opt(bus)
	}
	return bus
}

func (b *CloudEventsBus) SendMessage(ctx context.Context, routingKey string, body []byte) error {
	event := cloudevents.NewEvent()
	event.SetID(b.id())
	event.SetSource(b.source)
	event.SetType(eventTypeBase + "." + routingKey)
	event.SetTime(b.now())
	event.SetExtension(RoutingKeyExtension, routingKey)
	if err := event.SetData(cloudevents.ApplicationJSON, body); err != nil {
		return interfaces.PermanentError(busName, 0, err)
	}

	result := b.client.Send(ctx, event)
	if cloudevents.IsACK(result) {
		return nil
	}
	var httpResult *cehttp.Result
	if cloudevents.ResultAs(result, &httpResult) {
		status := httpResult.StatusCode
		if status >= 500 || status == 429 {
			return interfaces.TransientError(busName, status, result)
		}
		return interfaces.PermanentError(busName, status, result)
	}
	return interfaces.TransientError(busName, 0, result)
}
