package chat_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/config"
	model "github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/chat"
	chat "github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/chat"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/gateway"
)

func TestServiceGetSession(t *testing.T) {
	svc := chat.NewService(&stubReplier{}, nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "")
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	got, err := svc.GetSession(ctx, session.ID)
	if err != nil {
		t.Fatalf("GetSession err: %v", err)
	}

	if got.ID != session.ID {
		t.Fatalf("unexpected session ID: got %s want %s", got.ID, session.ID)
	}
	if got.UserID != gateway.DefaultUserID {
		t.Fatalf("unexpected user ID: got %s", got.UserID)
	}
}

func TestServiceGetSessionNotFound(t *testing.T) {
	svc := chat.NewService(&stubReplier{}, nil)
	ctx := context.Background()

	if _, err := svc.GetSession(ctx, "missing"); err == nil {
		t.Fatal("expected error for missing session")
	}
	_, err := svc.LoadTranscript(ctx, "missing")
	require.ErrorIs(t, err, chat.ErrSessionNotFound)
}

func TestServiceDefaultUserIDOption(t *testing.T) {
	svc := chat.NewService(&stubReplier{}, nil, chat.WithDefaultUserID("kiosk"))

	session, err := svc.CreateSession(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "kiosk", session.UserID)

	session, err = svc.CreateSession(context.Background(), "visitor-1")
	require.NoError(t, err)
	assert.Equal(t, "visitor-1", session.UserID)
}

func TestServiceTranscriptFollowsConversation(t *testing.T) {
	replier := &stubReplier{result: gateway.Result{Text: "Lab PSTI adalah..."}}
	svc := chat.NewService(replier, nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)

	conv, err := svc.Conversation(ctx, session.ID)
	require.NoError(t, err)
	require.NoError(t, conv.Submit("Tentang Lab PSTI"))
	svc.Close()

	transcript, err := svc.LoadTranscript(ctx, session.ID)
	require.NoError(t, err)
	require.Len(t, transcript, 3)
	assert.Equal(t, chat.Greeting, transcript[0].Text)
	assert.Equal(t, model.SenderUser, transcript[1].Sender)
	assert.Equal(t, "Tentang Lab PSTI", transcript[1].Text)
	assert.Equal(t, "Lab PSTI adalah...", transcript[2].Text)
}

func TestServiceSessionsAreIndependent(t *testing.T) {
	replier := &stubReplier{release: make(chan struct{})}
	svc := chat.NewService(replier, nil)
	ctx := context.Background()

	first, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)
	second, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)

	firstConv, _ := svc.Conversation(ctx, first.ID)
	secondConv, _ := svc.Conversation(ctx, second.ID)

	require.NoError(t, firstConv.Submit("halo"))
	assert.True(t, firstConv.Pending())
	assert.False(t, secondConv.Pending())
	require.NoError(t, secondConv.Submit("halo juga"))

	close(replier.release)
	svc.Close()
	assert.False(t, firstConv.Pending())
	assert.False(t, secondConv.Pending())
}

func TestServiceAgainstBackend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"response":"Lab PSTI adalah..."}`))
	}))
	defer srv.Close()

	client := gateway.New(config.BackendConfig{BaseURL: srv.URL}, gateway.WithHTTPClient(srv.Client()))
	svc := chat.NewService(client, nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)
	conv, err := svc.Conversation(ctx, session.ID)
	require.NoError(t, err)

	require.NoError(t, conv.QuickReply("about"))
	svc.Close()

	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "Tentang Lab PSTI", snap.Messages[1].Text)
	assert.Equal(t, "Lab PSTI adalah...", snap.Messages[2].Text)
	assert.False(t, snap.Pending)
}

func TestServiceBackendDown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client := gateway.New(config.BackendConfig{BaseURL: baseURL})
	svc := chat.NewService(client, nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)
	conv, err := svc.Conversation(ctx, session.ID)
	require.NoError(t, err)

	require.NoError(t, conv.Submit("halo"))
	svc.Close()

	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Contains(t, snap.Messages[2].Text, "Tidak dapat terhubung ke backend")
	assert.Contains(t, snap.Messages[2].Text, baseURL)
	assert.False(t, snap.Pending)
}

func TestServiceCloseRejectsNewWork(t *testing.T) {
	replier := &stubReplier{release: make(chan struct{}), result: gateway.Result{Text: "ok"}}
	svc := chat.NewService(replier, nil)
	ctx := context.Background()

	session, err := svc.CreateSession(ctx, "")
	require.NoError(t, err)
	conv, err := svc.Conversation(ctx, session.ID)
	require.NoError(t, err)
	require.NoError(t, conv.Submit("halo"))

	closed := make(chan struct{})
	go func() {
		svc.Close()
		close(closed)
	}()

	require.Eventually(t, func() bool {
		return errors.Is(conv.Submit("lagi"), chat.ErrClosed)
	}, time.Second, 5*time.Millisecond)

	select {
	case <-closed:
		t.Fatal("Close returned while a reply was still pending")
	default:
	}

	close(replier.release)
	<-closed

	snap := conv.Snapshot()
	require.Len(t, snap.Messages, 3)
	assert.Equal(t, "ok", snap.Messages[2].Text)
	assert.Equal(t, []string{"halo"}, replier.Calls())

	_, err = svc.CreateSession(ctx, "")
	require.ErrorIs(t, err, chat.ErrClosed)
	svc.Close()
}
