package lifecyclecmd_test

import (
	"context"
	"testing"

	"github.com/goliatone/go-command/dispatcher"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-publishing/internal/commands"
	lifecyclecmd "github.com/goliatone/go-publishing/internal/commands/lifecycle"
	"github.com/goliatone/go-publishing/internal/domain"
	"github.com/goliatone/go-publishing/internal/lifecycle"
)

// stubService records the requests it receives. Methods not overridden
// panic through the nil embedded interface.
type stubService struct {
	lifecycle.Service
	publish   []lifecycle.PublishRequest
	unpublish []lifecycle.UnpublishRequest
	discard   []lifecycle.DiscardDraftRequest
	redraft   []lifecycle.RedraftRequest
	err       error
}

func (s *stubService) Publish(_ context.Context, req lifecycle.PublishRequest) (*lifecycle.Representation, error) {
	s.publish = append(s.publish, req)
	if s.err != nil {
		return nil, s.err
	}
	return &lifecycle.Representation{ContentID: req.ContentID, PublicationState: domain.StatePublished}, nil
}

func (s *stubService) Unpublish(_ context.Context, req lifecycle.UnpublishRequest) (*lifecycle.Representation, error) {
	s.unpublish = append(s.unpublish, req)
	if s.err != nil {
		return nil, s.err
	}
	return &lifecycle.Representation{ContentID: req.ContentID, PublicationState: domain.StateUnpublished}, nil
}

func (s *stubService) DiscardDraft(_ context.Context, req lifecycle.DiscardDraftRequest) (*lifecycle.Representation, error) {
	s.discard = append(s.discard, req)
	return nil, s.err
}

func (s *stubService) Redraft(_ context.Context, req lifecycle.RedraftRequest) (*lifecycle.Representation, error) {
	s.redraft = append(s.redraft, req)
	if s.err != nil {
		return nil, s.err
	}
	return &lifecycle.Representation{ContentID: req.ContentID, PublicationState: domain.StateDraft}, nil
}

func TestPublishHandlerMapsCommandAndDeliversResult(t *testing.T) {
	service := &stubService{}
	var delivered []*lifecycle.Representation
	handler := lifecyclecmd.NewPublishHandler(service, nil, func(_ context.Context, rep *lifecycle.Representation) {
		delivered = append(delivered, rep)
	})

	id := uuid.New()
	version := 3
	err := handler.Execute(context.Background(), lifecyclecmd.PublishCommand{
		ContentID:       id,
		Locale:          "fr",
		UpdateType:      "minor",
		PreviousVersion: &version,
		PublishingApp:   "publisher",
	})
	require.NoError(t, err)

	require.Len(t, service.publish, 1)
	assert.Equal(t, lifecycle.PublishRequest{
		ContentID:       id,
		Locale:          "fr",
		UpdateType:      "minor",
		PreviousVersion: &version,
		PublishingApp:   "publisher",
	}, service.publish[0])
	require.Len(t, delivered, 1)
	assert.Equal(t, domain.StatePublished, delivered[0].PublicationState)
}

func TestPublishCommandValidation(t *testing.T) {
	cases := []struct {
		name string
		cmd  lifecyclecmd.PublishCommand
	}{
		{name: "missing content id", cmd: lifecyclecmd.PublishCommand{UpdateType: "major", PublishingApp: "publisher"}},
		{name: "missing update type", cmd: lifecyclecmd.PublishCommand{ContentID: uuid.New(), PublishingApp: "publisher"}},
		{name: "unknown update type", cmd: lifecyclecmd.PublishCommand{ContentID: uuid.New(), UpdateType: "huge", PublishingApp: "publisher"}},
		{name: "missing app", cmd: lifecyclecmd.PublishCommand{ContentID: uuid.New(), UpdateType: "major", PublishingApp: " "}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			service := &stubService{}
			err := lifecyclecmd.NewPublishHandler(service, nil, nil).Execute(context.Background(), tc.cmd)
			require.Error(t, err)
			assert.True(t, goerrors.IsCategory(err, goerrors.CategoryValidation))
			assert.Empty(t, service.publish, "service must not be called")
		})
	}
}

func TestUnpublishHandlerPassesRulesToService(t *testing.T) {
	service := &stubService{err: &domain.UnprocessableError{Message: "Cannot unpublish with a draft present"}}
	handler := lifecyclecmd.NewUnpublishHandler(service, nil, nil)

	err := handler.Execute(context.Background(), lifecyclecmd.UnpublishCommand{
		ContentID:     uuid.New(),
		Kind:          "gone",
		PublishingApp: "publisher",
	})
	require.Error(t, err)
	assert.Equal(t, commands.CodeUnprocessable, commands.TextCode(err))
	require.Len(t, service.unpublish, 1)
	assert.Equal(t, "gone", service.unpublish[0].Type)
}

func TestDiscardDraftHandlerReportsNotFound(t *testing.T) {
	service := &stubService{err: &domain.NotFoundError{Resource: "draft", Key: "x"}}
	handler := lifecyclecmd.NewDiscardDraftHandler(service, nil, nil)

	err := handler.Execute(context.Background(), lifecyclecmd.DiscardDraftCommand{
		ContentID:     uuid.New(),
		PublishingApp: "publisher",
	})
	assert.Equal(t, commands.CodeNotFound, commands.TextCode(err))
}

func TestRegisterRoutesThroughDispatcher(t *testing.T) {
	service := &stubService{}
	var states []domain.State
	subs := lifecyclecmd.Register(service, nil, func(_ context.Context, rep *lifecycle.Representation) {
		states = append(states, rep.PublicationState)
	})
	t.Cleanup(func() {
		for _, sub := range subs {
			sub.Unsubscribe()
		}
	})
	require.Len(t, subs, 4)

	id := uuid.New()
	require.NoError(t, dispatcher.Dispatch(context.Background(), lifecyclecmd.RedraftCommand{ContentID: id, PublishingApp: "publisher"}))
	require.NoError(t, dispatcher.Dispatch(context.Background(), lifecyclecmd.PublishCommand{ContentID: id, UpdateType: "major", PublishingApp: "publisher"}))

	assert.Equal(t, []domain.State{domain.StateDraft, domain.StatePublished}, states)
	require.Len(t, service.redraft, 1)
	assert.Equal(t, id, service.redraft[0].ContentID)
}
