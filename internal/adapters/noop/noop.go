package noop

import (
	"context"

	"github.com/goliatone/go-publishing/pkg/interfaces"
)

// ContentStore returns a store that accepts and discards every write.
func ContentStore() interfaces.ContentStore {
	return contentStore{}
}

type contentStore struct{}

func (contentStore) PutItem(context.Context, string, []byte) error {
	return nil
}

func (contentStore) DeleteItem(context.Context, string) error {
	return nil
}

// MessageBus returns a bus that drops every message.
func MessageBus() interfaces.MessageBus {
	return messageBus{}
}

type messageBus struct{}

func (messageBus) SendMessage(context.Context, string, []byte) error {
	return nil
}
