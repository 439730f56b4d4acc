package chat_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	model "github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/chat"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/chat"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/gateway"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/store"
)

type stubReplier struct {
	mu      sync.Mutex
	calls   []string
	users   []string
	release chan struct{}
	result  gateway.Result
	err     error
}

func (s *stubReplier) Send(_ context.Context, text, userID string) (gateway.Result, error) {
	s.mu.Lock()
	s.calls = append(s.calls, text)
	s.users = append(s.users, userID)
	release := s.release
	s.mu.Unlock()

	if release != nil {
		<-release
	}
	return s.result, s.err
}

func (s *stubReplier) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func newConversation(replier chat.Replier, opts ...chat.ConversationOption) *chat.Conversation {
	session := model.Session{ID: "s1", UserID: "web-user", CreatedAt: time.Now()}
	return chat.NewConversation(session, replier, opts...)
}

func TestNewConversationSeedsGreeting(t *testing.T) {
	conv := newConversation(&stubReplier{})

	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 1)
	assert.Equal(t, model.SenderBot, snap.Messages[0].Sender)
	assert.Equal(t, chat.Greeting, snap.Messages[0].Text)
	assert.Equal(t, model.StateIdle, snap.State)
	assert.False(t, snap.Pending)
	assert.True(t, snap.Welcome)
}

func TestSubmitAppendsUserMessageThenReply(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	replier := &stubReplier{
		release: make(chan struct{}),
		result:  gateway.Result{Text: "Lab PSTI adalah...", Source: "knowledge", Success: true},
	}
	conv := newConversation(replier)

	require.NoError(t, conv.Submit("  Tentang Lab PSTI  "))

	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 2)
	assert.Equal(t, model.SenderUser, snap.Messages[1].Sender)
	assert.Equal(t, "Tentang Lab PSTI", snap.Messages[1].Text)
	assert.True(t, snap.Pending)
	assert.Equal(t, model.StateAwaiting, snap.State)
	assert.False(t, snap.Welcome)

	close(replier.release)
	conv.Wait()

	snap = conv.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, model.SenderBot, snap.Messages[2].Sender)
	assert.Equal(t, "Lab PSTI adalah...", snap.Messages[2].Text)
	assert.False(t, snap.Pending)
	assert.Equal(t, model.StateIdle, snap.State)
	assert.Equal(t, []string{"Tentang Lab PSTI"}, replier.Calls())
}

func TestSubmitBlankInputIsNoop(t *testing.T) {
	replier := &stubReplier{}
	conv := newConversation(replier)

	for _, input := range []string{"", "   ", "\n\t "} {
		require.ErrorIs(t, conv.Submit(input), chat.ErrEmptyMessage)
	}

	snap := conv.Snapshot()
	assert.Len(t, snap.Messages, 1)
	assert.False(t, snap.Pending)
	assert.Empty(t, replier.Calls())
}

func TestSubmitWhileAwaitingIsRejected(t *testing.T) {
	replier := &stubReplier{release: make(chan struct{}), result: gateway.Result{Text: "ok"}}
	conv := newConversation(replier)

	require.NoError(t, conv.Submit("halo"))
	require.ErrorIs(t, conv.Submit("halo lagi"), chat.ErrAwaitingReply)

	snap := conv.Snapshot()
	assert.Len(t, snap.Messages, 2)
	assert.True(t, snap.Pending)

	close(replier.release)
	conv.Wait()

	assert.Len(t, conv.Snapshot().Messages, 3)
	assert.Equal(t, []string{"halo"}, replier.Calls())

	require.NoError(t, conv.Submit("halo lagi"))
	conv.Wait()
	assert.Len(t, conv.Snapshot().Messages, 5)
}

func TestGatewayErrorBecomesBotHint(t *testing.T) {
	gerr := &gateway.Error{Kind: gateway.KindNetworkUnreachable, BaseURL: "http://localhost:3000"}
	conv := newConversation(&stubReplier{err: gerr})

	require.NoError(t, conv.Submit("halo"))
	conv.Wait()

	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, model.SenderBot, snap.Messages[2].Sender)
	assert.Equal(t, gerr.Hint(), snap.Messages[2].Text)
	assert.False(t, snap.Pending)
}

func TestPlainErrorBecomesUnknownHint(t *testing.T) {
	conv := newConversation(&stubReplier{err: errors.New("model exploded")})

	require.NoError(t, conv.Submit("halo"))
	conv.Wait()

	last := conv.Snapshot().Messages[2]
	assert.Contains(t, last.Text, "model exploded")
}

func TestBlankReplyUsesPlaceholder(t *testing.T) {
	conv := newConversation(&stubReplier{result: gateway.Result{Text: "  "}})

	require.NoError(t, conv.Submit("halo"))
	conv.Wait()

	assert.Equal(t, gateway.NoResponsePlaceholder, conv.Snapshot().Messages[2].Text)
}

func TestQuickReplyBehavesLikeSubmit(t *testing.T) {
	viaQuick := &stubReplier{result: gateway.Result{Text: "Lab PSTI adalah..."}}
	viaSubmit := &stubReplier{result: gateway.Result{Text: "Lab PSTI adalah..."}}
	quickConv := newConversation(viaQuick)
	submitConv := newConversation(viaSubmit)

	require.NoError(t, quickConv.QuickReply("about"))
	require.NoError(t, submitConv.Submit("Tentang Lab PSTI"))
	quickConv.Wait()
	submitConv.Wait()

	assert.Equal(t, viaSubmit.Calls(), viaQuick.Calls())

	quickMsgs := quickConv.Snapshot().Messages
	submitMsgs := submitConv.Snapshot().Messages
	require.Len(t, quickMsgs, len(submitMsgs))
	for i := range quickMsgs {
		assert.Equal(t, submitMsgs[i].Sender, quickMsgs[i].Sender)
		assert.Equal(t, submitMsgs[i].Text, quickMsgs[i].Text)
	}
}

func TestQuickReplyRejections(t *testing.T) {
	replier := &stubReplier{release: make(chan struct{})}
	conv := newConversation(replier)

	require.ErrorIs(t, conv.QuickReply("weather"), chat.ErrUnknownQuickReply)
	assert.Len(t, conv.Snapshot().Messages, 1)

	require.NoError(t, conv.QuickReply("hours"))
	require.ErrorIs(t, conv.QuickReply("projects"), chat.ErrAwaitingReply)

	close(replier.release)
	conv.Wait()
	assert.Equal(t, []string{"Jam Operasional"}, replier.Calls())
}

func TestSubscribeReceivesLatestSnapshot(t *testing.T) {
	replier := &stubReplier{result: gateway.Result{Text: "ok"}}
	conv := newConversation(replier)

	updates, cancel := conv.Subscribe()
	defer cancel()

	first := <-updates
	assert.Len(t, first.Messages, 1)

	require.NoError(t, conv.Submit("halo"))

	deadline := time.After(2 * time.Second)
	for {
		select {
		case snap := <-updates:
			if !snap.Pending && len(snap.Messages) == 3 {
				assert.Equal(t, "ok", snap.Messages[2].Text)
				return
			}
		case <-deadline:
			t.Fatal("did not observe the completed snapshot")
		}
	}
}

func TestSubscribeCancelClosesChannel(t *testing.T) {
	conv := newConversation(&stubReplier{})

	updates, cancel := conv.Subscribe()
	<-updates
	cancel()
	cancel()

	_, ok := <-updates
	assert.False(t, ok)

	require.NoError(t, conv.Submit("halo"))
	conv.Wait()
}

func TestMessageTimestampUsesLocation(t *testing.T) {
	fixed := time.Date(2025, 6, 1, 7, 5, 0, 0, time.UTC)
	jakarta := time.FixedZone("WIB", 7*60*60)
	conv := newConversation(&stubReplier{result: gateway.Result{Text: "ok"}},
		chat.WithClock(func() time.Time { return fixed }),
		chat.WithLocation(jakarta),
	)

	require.NoError(t, conv.Submit("halo"))
	conv.Wait()

	for _, msg := range conv.Snapshot().Messages {
		assert.Equal(t, "14:05", msg.Timestamp)
		assert.Equal(t, fixed, msg.CreatedAt)
		assert.NotEmpty(t, msg.ID)
		assert.Equal(t, "s1", msg.SessionID)
	}
}

func TestRecorderSeesConversationOrder(t *testing.T) {
	rec := store.NewMemoryStore()
	session := model.Session{ID: "s1", UserID: "web-user", CreatedAt: time.Now()}
	require.NoError(t, rec.SaveSession(context.Background(), session))

	conv := chat.NewConversation(session, &stubReplier{result: gateway.Result{Text: "ok"}}, chat.WithRecorder(rec))
	require.NoError(t, conv.Submit("satu"))
	conv.Wait()
	require.NoError(t, conv.Submit("dua"))
	conv.Wait()

	persisted, err := rec.LoadMessages(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, conv.Snapshot().Messages, persisted)
}

func TestReplierReceivesSessionUser(t *testing.T) {
	replier := &stubReplier{result: gateway.Result{Text: "ok"}}
	session := model.Session{ID: "s9", UserID: "visitor-9"}
	conv := chat.NewConversation(session, replier)

	require.NoError(t, conv.Submit("halo"))
	conv.Wait()

	replier.mu.Lock()
	defer replier.mu.Unlock()
	assert.Equal(t, []string{"visitor-9"}, replier.users)
}

type slowRecorder struct {
	*store.MemoryStore
	entered chan struct{}
	release chan struct{}
}

func (s *slowRecorder) AppendMessage(ctx context.Context, msg model.Message) error {
	if msg.Sender == model.SenderUser {
		close(s.entered)
		<-s.release
	}
	return s.MemoryStore.AppendMessage(ctx, msg)
}

func TestSlowRecorderDoesNotBlockReaders(t *testing.T) {
	rec := &slowRecorder{
		MemoryStore: store.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	session := model.Session{ID: "s1", UserID: "web-user", CreatedAt: time.Now()}
	require.NoError(t, rec.SaveSession(context.Background(), session))

	conv := chat.NewConversation(session, &stubReplier{result: gateway.Result{Text: "ok"}}, chat.WithRecorder(rec))

	submitted := make(chan error, 1)
	go func() { submitted <- conv.Submit("halo") }()
	<-rec.entered

	read := make(chan model.Snapshot, 1)
	go func() { read <- conv.Snapshot() }()
	select {
	case snap := <-read:
		assert.Len(t, snap.Messages, 2)
		assert.True(t, snap.Pending)
	case <-time.After(time.Second):
		t.Fatal("snapshot blocked behind the recorder write")
	}

	close(rec.release)
	require.NoError(t, <-submitted)
	conv.Wait()

	persisted, err := rec.LoadMessages(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, conv.Snapshot().Messages, persisted)
}
