package lifecyclecmd

import (
	"github.com/goliatone/go-command/dispatcher"

	"github.com/goliatone/go-publishing/internal/lifecycle"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// Subscription is released when the registering component shuts down.
type Subscription interface {
	Unsubscribe()
}

// Register subscribes every lifecycle handler with the go-command dispatcher
// and returns the subscriptions in registration order.
func Register(service lifecycle.Service, logger interfaces.Logger, sink ResultFunc) []Subscription {
	return []Subscription{
		dispatcher.SubscribeCommand[PublishCommand](NewPublishHandler(service, logger, sink)),
		dispatcher.SubscribeCommand[UnpublishCommand](NewUnpublishHandler(service, logger, sink)),
		dispatcher.SubscribeCommand[DiscardDraftCommand](NewDiscardDraftHandler(service, logger, sink)),
		dispatcher.SubscribeCommand[RedraftCommand](NewRedraftHandler(service, logger, sink)),
	}
}
