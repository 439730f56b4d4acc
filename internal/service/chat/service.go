package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/chat"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/gateway"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/store"
)

var (
	ErrSessionNotFound   = errors.New("session not found")
	ErrEmptyMessage      = errors.New("message is empty")
	ErrAwaitingReply     = errors.New("a reply is still pending")
	ErrUnknownQuickReply = errors.New("unknown quick reply")
	ErrClosed            = errors.New("chat service is shutting down")
)

// Service keeps one Conversation per anonymous session.
type Service struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	closed        bool

	replier       Replier
	recorder      store.Recorder
	defaultUserID string
	convOpts      []ConversationOption
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithDefaultUserID sets the userId used when a session is created without one.
func WithDefaultUserID(id string) ServiceOption {
	return func(s *Service) {
		if id != "" {
			s.defaultUserID = id
		}
	}
}

// WithConversationOptions applies opts to every conversation the service creates.
func WithConversationOptions(opts ...ConversationOption) ServiceOption {
	return func(s *Service) {
		s.convOpts = append(s.convOpts, opts...)
	}
}

// NewService builds the session registry. A nil recorder keeps history in memory.
func NewService(replier Replier, recorder store.Recorder, opts ...ServiceOption) *Service {
	if recorder == nil {
		recorder = store.NewMemoryStore()
	}
	s := &Service{
		conversations: make(map[string]*Conversation),
		replier:       replier,
		recorder:      recorder,
		defaultUserID: gateway.DefaultUserID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSession provisions an anonymous session with a seeded conversation.
func (s *Service) CreateSession(ctx context.Context, userID string) (chat.Session, error) {
	if userID == "" {
		userID = s.defaultUserID
	}

	s.mu.RLock()
	closed := s.closed
	s.mu.RUnlock()
	if closed {
		return chat.Session{}, ErrClosed
	}

	session := chat.Session{
		ID:        uuid.NewString(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.recorder.SaveSession(ctx, session); err != nil {
		return chat.Session{}, err
	}

	opts := append([]ConversationOption{WithRecorder(s.recorder)}, s.convOpts...)
	conv := NewConversation(session, s.replier, opts...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return chat.Session{}, ErrClosed
	}
	s.conversations[session.ID] = conv

	return session, nil
}

// GetSession retrieves a session by identifier.
func (s *Service) GetSession(ctx context.Context, sessionID string) (chat.Session, error) {
	conv, err := s.Conversation(ctx, sessionID)
	if err != nil {
		return chat.Session{}, err
	}
	return conv.Session(), nil
}

// Conversation returns the live conversation of a session.
func (s *Service) Conversation(_ context.Context, sessionID string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.conversations[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return conv, nil
}

// LoadTranscript returns the persisted messages of a session.
func (s *Service) LoadTranscript(ctx context.Context, sessionID string) ([]chat.Message, error) {
	messages, err := s.recorder.LoadMessages(ctx, sessionID)
	if errors.Is(err, store.ErrSessionNotFound) {
		return nil, ErrSessionNotFound
	}
	return messages, err
}

// Close rejects new sessions and submissions, then waits for every
// in-flight request to complete. It is safe to call more than once.
func (s *Service) Close() {
	s.mu.Lock()
	s.closed = true
	conversations := make([]*Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		conversations = append(conversations, conv)
	}
	s.mu.Unlock()

	for _, conv := range conversations {
		conv.close()
	}
}
