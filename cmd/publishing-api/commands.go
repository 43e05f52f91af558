package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	command "github.com/goliatone/go-command"
	"github.com/goliatone/go-command/dispatcher"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	lifecyclecmd "github.com/goliatone/go-publishing/internal/commands/lifecycle"
	"github.com/goliatone/go-publishing/internal/di"
	"github.com/goliatone/go-publishing/internal/lifecycle"
)

type lifecycleFlags struct {
	locale          string
	app             string
	previousVersion int
}

func (f *lifecycleFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.locale, "locale", "", "content locale (defaults to the configured default)")
	cmd.Flags().StringVar(&f.app, "app", "", "publishing app performing the change")
	cmd.Flags().IntVar(&f.previousVersion, "previous-version", 0, "expected lock version; 0 skips the check")
	_ = cmd.MarkFlagRequired("app")
}

func (f *lifecycleFlags) previous() *int {
	if f.previousVersion <= 0 {
		return nil
	}
	value := f.previousVersion
	return &value
}

// dispatchLifecycle builds a container, dispatches msg through the command
// bus and prints the resulting representation.
func dispatchLifecycle[T command.Message](ctx context.Context, out io.Writer, msg T) error {
	var result *lifecycle.Representation
	container, err := buildContainer(ctx, di.WithCommandResults(func(_ context.Context, rep *lifecycle.Representation) {
		result = rep
	}))
	if err != nil {
		return err
	}
	defer container.Close()
	container.RegisterCommands()

	if err := dispatcher.Dispatch(ctx, msg); err != nil {
		return err
	}
	// the in-memory queue does not outlive the process
	if err := container.Worker().Process(ctx); err != nil {
		return err
	}
	if result == nil {
		return nil
	}
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

func parseContentID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("content id %q: %w", raw, err)
	}
	return id, nil
}

func newPublishCommand() *cobra.Command {
	var (
		flags      lifecycleFlags
		updateType string
	)
	cmd := &cobra.Command{
		Use:   "publish <content-id>",
		Short: "Publish the draft of a content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseContentID(args[0])
			if err != nil {
				return err
			}
			return dispatchLifecycle(cmd.Context(), cmd.OutOrStdout(), lifecyclecmd.PublishCommand{
				ContentID:       id,
				Locale:          flags.locale,
				UpdateType:      updateType,
				PreviousVersion: flags.previous(),
				PublishingApp:   flags.app,
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&updateType, "update-type", "major", "major, minor, republish or links")
	return cmd
}

func newUnpublishCommand() *cobra.Command {
	var (
		flags           lifecycleFlags
		kind            string
		explanation     string
		alternativePath string
		discardDrafts   bool
	)
	cmd := &cobra.Command{
		Use:   "unpublish <content-id>",
		Short: "Withdraw, redirect or remove a published item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseContentID(args[0])
			if err != nil {
				return err
			}
			return dispatchLifecycle(cmd.Context(), cmd.OutOrStdout(), lifecyclecmd.UnpublishCommand{
				ContentID:       id,
				Locale:          flags.locale,
				Kind:            kind,
				Explanation:     explanation,
				AlternativePath: alternativePath,
				DiscardDrafts:   discardDrafts,
				PreviousVersion: flags.previous(),
				PublishingApp:   flags.app,
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&kind, "type", "", "withdrawal, redirect, gone or vanish")
	cmd.Flags().StringVar(&explanation, "explanation", "", "public explanation")
	cmd.Flags().StringVar(&alternativePath, "alternative-path", "", "redirect destination or suggested replacement")
	cmd.Flags().BoolVar(&discardDrafts, "discard-drafts", false, "discard a pending draft first")
	_ = cmd.MarkFlagRequired("type")
	return cmd
}

func newDiscardDraftCommand() *cobra.Command {
	var flags lifecycleFlags
	cmd := &cobra.Command{
		Use:   "discard-draft <content-id>",
		Short: "Delete the draft of a content item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseContentID(args[0])
			if err != nil {
				return err
			}
			return dispatchLifecycle(cmd.Context(), cmd.OutOrStdout(), lifecyclecmd.DiscardDraftCommand{
				ContentID:       id,
				Locale:          flags.locale,
				PreviousVersion: flags.previous(),
				PublishingApp:   flags.app,
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newRedraftCommand() *cobra.Command {
	var flags lifecycleFlags
	cmd := &cobra.Command{
		Use:   "redraft <content-id>",
		Short: "Open a new draft copied from the live item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseContentID(args[0])
			if err != nil {
				return err
			}
			return dispatchLifecycle(cmd.Context(), cmd.OutOrStdout(), lifecyclecmd.RedraftCommand{
				ContentID:     id,
				Locale:        flags.locale,
				PublishingApp: flags.app,
			})
		},
	}
	flags.register(cmd)
	return cmd
}
