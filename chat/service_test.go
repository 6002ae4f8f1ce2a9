package chat

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gamma-omg/profile-mcp/docstore"
	"github.com/gamma-omg/profile-mcp/jsonval"
	"github.com/gamma-omg/profile-mcp/llm"
	mocks "github.com/gamma-omg/profile-mcp/mocks/llm"
	"github.com/gamma-omg/profile-mcp/pipeline"
	"github.com/gamma-omg/profile-mcp/selector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(t *testing.T, gen llm.Provider) *Service {
	t.Helper()

	profile, err := jsonval.Parse([]byte(`{"年龄": 22, "教育背景": {"学校": "X大学"}}`))
	require.NoError(t, err)

	store := docstore.NewStore(docstore.Document{ID: "me", Content: profile})
	pipe := pipeline.New(discardLogger(), store, selector.New(selector.DefaultVocabulary()), gen, pipeline.Config{ProfileID: "me"})

	return NewService(discardLogger(), pipe, 0)
}

func Test_Chat_NewAndExistingSession(t *testing.T) {
	gen := new(mocks.MockProvider)
	gen.On("Chat", mock.Anything, mock.Anything).Return("answer", nil)

	svc := newService(t, gen)

	first, err := svc.Chat(context.Background(), "", "你好")
	require.NoError(t, err)
	assert.NotEmpty(t, first.SessionID)
	assert.Equal(t, "answer", first.Reply)

	second, err := svc.Chat(context.Background(), first.SessionID, "年龄？")
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)

	// system prompt + greeting + two user messages + first answer
	assert.Len(t, gen.LastHistory(), 5)
	assert.Equal(t, 1, svc.Sessions())
}

func Test_Chat_ClientChosenSessionID(t *testing.T) {
	gen := new(mocks.MockProvider)
	gen.On("Chat", mock.Anything, mock.Anything).Return("answer", nil)

	svc := newService(t, gen)

	r, err := svc.Chat(context.Background(), "web-42", "hi")
	require.NoError(t, err)
	assert.Equal(t, "web-42", r.SessionID)
}

func Test_Chat_FailureThenRetry(t *testing.T) {
	gen := new(mocks.MockProvider)
	gen.On("Chat", mock.Anything, mock.Anything).Return("", errors.New("down")).Once()
	gen.On("Chat", mock.Anything, mock.Anything).Return("22岁", nil).Once()

	svc := newService(t, gen)

	failed, err := svc.Chat(context.Background(), "s1", "年龄？")
	require.Error(t, err)
	assert.ErrorIs(t, err, pipeline.ErrCapability)
	assert.Equal(t, GenericError, failed.Reply)
	assert.Equal(t, "s1", failed.SessionID)

	ok, err := svc.Chat(context.Background(), "s1", "年龄？")
	require.NoError(t, err)
	assert.Equal(t, "22岁", ok.Reply)

	// the failed user message stays in the history
	assert.Len(t, gen.LastHistory(), 4)
	gen.AssertExpectations(t)
}

func Test_Chat_EmptyMessage(t *testing.T) {
	gen := new(mocks.MockProvider)
	svc := newService(t, gen)

	r, err := svc.Chat(context.Background(), "", "   ")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, GenericError, r.Reply)
	assert.Equal(t, 0, svc.Sessions())
	gen.AssertNotCalled(t, "Chat", mock.Anything, mock.Anything)
}

func Test_End(t *testing.T) {
	gen := new(mocks.MockProvider)
	gen.On("Chat", mock.Anything, mock.Anything).Return("answer", nil)

	svc := newService(t, gen)
	r, err := svc.Chat(context.Background(), "", "hi")
	require.NoError(t, err)

	svc.End(r.SessionID)
	svc.End("unknown")
	assert.Equal(t, 0, svc.Sessions())
}

type serialCheckProvider struct {
	inFlight   atomic.Int32
	overlapped atomic.Bool
	calls      atomic.Int32
}

func (p *serialCheckProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	if p.inFlight.Add(1) > 1 {
		p.overlapped.Store(true)
	}
	time.Sleep(5 * time.Millisecond)
	p.inFlight.Add(-1)
	p.calls.Add(1)

	return "ok", nil
}

func Test_Chat_SameSessionIsSerialized(t *testing.T) {
	gen := &serialCheckProvider{}
	svc := newService(t, gen)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Chat(context.Background(), "shared", "hi")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, gen.overlapped.Load())
	assert.Equal(t, int32(8), gen.calls.Load())
	assert.Equal(t, 1, svc.Sessions())
}

func Test_Chat_SessionExpires(t *testing.T) {
	gen := new(mocks.MockProvider)
	gen.On("Chat", mock.Anything, mock.Anything).Return("answer", nil)

	profile := jsonval.NewObject()
	store := docstore.NewStore(docstore.Document{ID: "me", Content: profile})
	pipe := pipeline.New(discardLogger(), store, selector.New(selector.DefaultVocabulary()), gen, pipeline.Config{})
	svc := NewService(discardLogger(), pipe, 20*time.Millisecond)

	_, err := svc.Chat(context.Background(), "s", "hi")
	require.NoError(t, err)

	time.Sleep(40 * time.Millisecond)
	_, err = svc.Chat(context.Background(), "s", "again")
	require.NoError(t, err)

	// expired session restarted: system prompt + greeting + one user message
	assert.Len(t, gen.LastHistory(), 3)
}

type blockingTurner struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingTurner) NewState() *pipeline.State {
	return &pipeline.State{Context: jsonval.NewObject(), Phase: pipeline.PhaseRetrieve}
}

func (b *blockingTurner) Turn(ctx context.Context, st *pipeline.State, text string) (string, error) {
	close(b.started)
	<-b.release
	return "done", nil
}

func Test_End_DuringTurn(t *testing.T) {
	turner := &blockingTurner{started: make(chan struct{}), release: make(chan struct{})}
	svc := NewService(discardLogger(), turner, 0)

	done := make(chan error, 1)
	go func() {
		_, err := svc.Chat(context.Background(), "s1", "hi")
		done <- err
	}()

	<-turner.started
	svc.End("s1")
	close(turner.release)
	require.NoError(t, <-done)

	assert.Equal(t, 0, svc.Sessions())
}
