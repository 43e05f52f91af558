package lifecyclecmd

import (
	"context"

	command "github.com/goliatone/go-command"

	"github.com/goliatone/go-publishing/internal/commands"
	"github.com/goliatone/go-publishing/internal/lifecycle"
	"github.com/goliatone/go-publishing/pkg/interfaces"
)

var (
	_ command.Commander[PublishCommand]      = (*PublishHandler)(nil)
	_ command.Commander[UnpublishCommand]    = (*UnpublishHandler)(nil)
	_ command.Commander[DiscardDraftCommand] = (*DiscardDraftHandler)(nil)
	_ command.Commander[RedraftCommand]      = (*RedraftHandler)(nil)
)

// ResultFunc receives the representation produced by a successful command.
type ResultFunc func(ctx context.Context, rep *lifecycle.Representation)

func deliver(ctx context.Context, sink ResultFunc, rep *lifecycle.Representation) {
	if sink != nil && rep != nil {
		sink(ctx, rep)
	}
}

func contentFields(contentID, locale, app string) map[string]any {
	fields := map[string]any{
		"content_id":     contentID,
		"publishing_app": app,
	}
	if locale != "" {
		fields["locale"] = locale
	}
	return fields
}

// PublishHandler runs PublishCommand against the lifecycle service.
type PublishHandler struct {
	inner *commands.Handler[PublishCommand]
}

func NewPublishHandler(service lifecycle.Service, logger interfaces.Logger, sink ResultFunc, opts ...commands.HandlerOption[PublishCommand]) *PublishHandler {
	exec := func(ctx context.Context, msg PublishCommand) error {
		rep, err := service.Publish(ctx, lifecycle.PublishRequest{
			ContentID:       msg.ContentID,
			Locale:          msg.Locale,
			UpdateType:      msg.UpdateType,
			PreviousVersion: msg.PreviousVersion,
			PublishingApp:   msg.PublishingApp,
		})
		if err != nil {
			return err
		}
		deliver(ctx, sink, rep)
		return nil
	}

	handlerOpts := []commands.HandlerOption[PublishCommand]{
		commands.WithLogger[PublishCommand](logger),
		commands.WithOperation[PublishCommand]("content.publish"),
		commands.WithMessageFields(func(msg PublishCommand) map[string]any {
			fields := contentFields(msg.ContentID.String(), msg.Locale, msg.PublishingApp)
			fields["update_type"] = msg.UpdateType
			return fields
		}),
	}
	return &PublishHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

// Execute satisfies command.Commander[PublishCommand].
func (h *PublishHandler) Execute(ctx context.Context, msg PublishCommand) error {
	return h.inner.Execute(ctx, msg)
}

// UnpublishHandler runs UnpublishCommand against the lifecycle service.
type UnpublishHandler struct {
	inner *commands.Handler[UnpublishCommand]
}

func NewUnpublishHandler(service lifecycle.Service, logger interfaces.Logger, sink ResultFunc, opts ...commands.HandlerOption[UnpublishCommand]) *UnpublishHandler {
	exec := func(ctx context.Context, msg UnpublishCommand) error {
		rep, err := service.Unpublish(ctx, lifecycle.UnpublishRequest{
			ContentID:       msg.ContentID,
			Locale:          msg.Locale,
			Type:            msg.Kind,
			Explanation:     msg.Explanation,
			AlternativePath: msg.AlternativePath,
			DiscardDrafts:   msg.DiscardDrafts,
			PreviousVersion: msg.PreviousVersion,
			PublishingApp:   msg.PublishingApp,
		})
		if err != nil {
			return err
		}
		deliver(ctx, sink, rep)
		return nil
	}

	handlerOpts := []commands.HandlerOption[UnpublishCommand]{
		commands.WithLogger[UnpublishCommand](logger),
		commands.WithOperation[UnpublishCommand]("content.unpublish"),
		commands.WithMessageFields(func(msg UnpublishCommand) map[string]any {
			fields := contentFields(msg.ContentID.String(), msg.Locale, msg.PublishingApp)
			fields["unpublishing_type"] = msg.Kind
			if msg.DiscardDrafts {
				fields["discard_drafts"] = true
			}
			return fields
		}),
	}
	return &UnpublishHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

func (h *UnpublishHandler) Execute(ctx context.Context, msg UnpublishCommand) error {
	return h.inner.Execute(ctx, msg)
}

// DiscardDraftHandler runs DiscardDraftCommand against the lifecycle service.
type DiscardDraftHandler struct {
	inner *commands.Handler[DiscardDraftCommand]
}

func NewDiscardDraftHandler(service lifecycle.Service, logger interfaces.Logger, sink ResultFunc, opts ...commands.HandlerOption[DiscardDraftCommand]) *DiscardDraftHandler {
	exec := func(ctx context.Context, msg DiscardDraftCommand) error {
		rep, err := service.DiscardDraft(ctx, lifecycle.DiscardDraftRequest{
			ContentID:       msg.ContentID,
			Locale:          msg.Locale,
			PreviousVersion: msg.PreviousVersion,
			PublishingApp:   msg.PublishingApp,
		})
		if err != nil {
			return err
		}
		deliver(ctx, sink, rep)
		return nil
	}

	handlerOpts := []commands.HandlerOption[DiscardDraftCommand]{
		commands.WithLogger[DiscardDraftCommand](logger),
		commands.WithOperation[DiscardDraftCommand]("content.discard_draft"),
		commands.WithMessageFields(func(msg DiscardDraftCommand) map[string]any {
			return contentFields(msg.ContentID.String(), msg.Locale, msg.PublishingApp)
		}),
	}
	return &DiscardDraftHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

func (h *DiscardDraftHandler) Execute(ctx context.Context, msg DiscardDraftCommand) error {
	return h.inner.Execute(ctx, msg)
}

// RedraftHandler runs RedraftCommand against the lifecycle service.
type RedraftHandler struct {
	inner *commands.Handler[RedraftCommand]
}

func NewRedraftHandler(service lifecycle.Service, logger interfaces.Logger, sink ResultFunc, opts ...commands.HandlerOption[RedraftCommand]) *RedraftHandler {
	exec := func(ctx context.Context, msg RedraftCommand) error {
		rep, err := service.Redraft(ctx, lifecycle.RedraftRequest{
			ContentID:     msg.ContentID,
			Locale:        msg.Locale,
			PublishingApp: msg.PublishingApp,
		})
		if err != nil {
			return err
		}
		deliver(ctx, sink, rep)
		return nil
	}

	handlerOpts := []commands.HandlerOption[RedraftCommand]{
		commands.WithLogger[RedraftCommand](logger),
		commands.WithOperation[RedraftCommand]("content.redraft"),
		commands.WithMessageFields(func(msg RedraftCommand) map[string]any {
			return contentFields(msg.ContentID.String(), msg.Locale, msg.PublishingApp)
		}),
	}
	return &RedraftHandler{inner: commands.NewHandler(exec, append(handlerOpts, opts...)...)}
}

func (h *RedraftHandler) Execute(ctx context.Context, msg RedraftCommand) error {
	return h.inner.Execute(ctx, msg)
}
