package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/logging"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/chat"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/quickreply"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/gateway"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/store"
)

// Greeting seeds every new conversation.
const Greeting = "Halo! Saya Chatbot PSTI 👋 Silakan tanyakan apa saja tentang Lab PSTI!"

// Replier performs one exchange with a conversational backend. Errors should
// be *gateway.Error values; anything else is shown as an unknown failure.
type Replier interface {
	Send(ctx context.Context, text, userID string) (gateway.Result, error)
}

// Conversation owns the message log of one session and its single
// pending-request slot. At most one request is in flight at a time.
type Conversation struct {
	mu       sync.Mutex
	session  chat.Session
	state    chat.State
	messages []chat.Message
	subs     map[int]chan chat.Snapshot
	nextSub  int
	closed   bool

	// recordMu serializes recorder writes. It is taken while mu is still
	// held, so writes reach the store in conversation order.
	recordMu sync.Mutex

	replier  Replier
	replies  quickreply.Store
	recorder store.Recorder
	clock    func() time.Time
	location *time.Location
	baseCtx  context.Context
	logger   zerolog.Logger

	inflight sync.WaitGroup
}

// ConversationOption customizes a Conversation.
type ConversationOption func(*Conversation)

// WithRecorder persists every appended message.
func WithRecorder(r store.Recorder) ConversationOption {
	return func(c *Conversation) { c.recorder = r }
}

// WithQuickReplies replaces the quick-reply catalogue.
func WithQuickReplies(s quickreply.Store) ConversationOption {
	return func(c *Conversation) {
		if s != nil {
			c.replies = s
		}
	}
}

// WithClock replaces the time source for message timestamps.
func WithClock(now func() time.Time) ConversationOption {
	return func(c *Conversation) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithLocation sets the zone used for the display timestamp.
func WithLocation(loc *time.Location) ConversationOption {
	return func(c *Conversation) {
		if loc != nil {
			c.location = loc
		}
	}
}

// WithContext sets the parent of dispatch contexts. Its values are kept but
// its cancellation is not: a dispatched request always runs to completion.
func WithContext(ctx context.Context) ConversationOption {
	return func(c *Conversation) {
		if ctx != nil {
			c.baseCtx = ctx
		}
	}
}

// NewConversation starts an idle conversation holding only the greeting.
func NewConversation(session chat.Session, replier Replier, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		session:  session,
		state:    chat.StateIdle,
		subs:     make(map[int]chan chat.Snapshot),
		replier:  replier,
		replies:  quickreply.NewMemoryStore(quickreply.Seed()),
		clock:    time.Now,
		location: time.Local,
		baseCtx:  context.Background(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.Component("chat").With().Str("session", session.ID).Logger()

	c.mu.Lock()
	greeting := c.appendLocked(chat.SenderBot, Greeting)
	c.unlockAndRecord(greeting)
	return c
}

// Session returns the session this conversation belongs to.
func (c *Conversation) Session() chat.Session {
	return c.session
}

// Submit appends a user message and dispatches it to the replier. Blank
// input, input arriving while a reply is awaited and input after the
// service closed are rejected without any state change.
func (c *Conversation) Submit(raw string) error {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ErrEmptyMessage
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state == chat.StateAwaiting {
		c.mu.Unlock()
		return ErrAwaitingReply
	}
	msg := c.appendLocked(chat.SenderUser, text)
	c.state = chat.StateAwaiting
	c.inflight.Add(1)
	c.publishLocked()
	c.unlockAndRecord(msg)

	c.logger.Debug().Str("text", text).Msg("submitted")
	go c.dispatch(text)
	return nil
}

// QuickReply submits the phrase of a predefined topic shortcut.
func (c *Conversation) QuickReply(id string) error {
	reply, ok := c.replies.FindByID(id)
	if !ok {
		return ErrUnknownQuickReply
	}
	return c.Submit(reply.Phrase)
}

// Pending reports whether a reply is awaited.
func (c *Conversation) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == chat.StateAwaiting
}

// Snapshot returns a copy of the current state.
func (c *Conversation) Snapshot() chat.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that immediately holds the current snapshot
// and then receives one snapshot per change. A slow reader only misses
// intermediate snapshots, never the latest one. cancel closes the channel.
func (c *Conversation) Subscribe() (<-chan chat.Snapshot, func()) {
	ch := make(chan chat.Snapshot, 1)

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()
	c.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			c.mu.Lock()
			delete(c.subs, id)
			close(ch)
			c.mu.Unlock()
		})
	}
	return ch, cancel
}

// Wait blocks until no request is in flight.
func (c *Conversation) Wait() {
	c.inflight.Wait()
}

// close rejects further submissions and waits for the in-flight request.
// Setting the flag under mu orders every accepted Add before the Wait.
func (c *Conversation) close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.inflight.Wait()
}

func (c *Conversation) dispatch(text string) {
	defer c.inflight.Done()

	ctx := context.WithoutCancel(c.baseCtx)
	result, err := c.replier.Send(ctx, text, c.session.UserID)
	if err != nil {
		c.onError(err)
		return
	}
	c.onResult(result)
}

func (c *Conversation) onResult(result gateway.Result) {
	c.logger.Debug().Str("source", result.Source).Msg("reply received")
	c.complete(result.Text)
}

func (c *Conversation) onError(err error) {
	c.logger.Warn().Err(err).Msg("reply failed")
	c.complete(gateway.HintFor(err))
}

// complete is the single completion path shared by replies and failures.
func (c *Conversation) complete(text string) {
	text = strings.TrimSpace(text)
	if text == "" {
		text = gateway.NoResponsePlaceholder
	}

	c.mu.Lock()
	c.state = chat.StateIdle
	msg := c.appendLocked(chat.SenderBot, text)
	c.publishLocked()
	c.unlockAndRecord(msg)
}

// appendLocked creates a message and adds it to the log.
func (c *Conversation) appendLocked(sender chat.Sender, text string) chat.Message {
	now := c.clock()
	msg := chat.Message{
		ID:        uuid.NewString(),
		SessionID: c.session.ID,
		Sender:    sender,
		Text:      text,
		Timestamp: now.In(c.location).Format(chat.TimestampLayout),
		CreatedAt: now.UTC(),
	}
	c.messages = append(c.messages, msg)
	return msg
}

// unlockAndRecord releases mu and then persists msg. A slow store only
// delays the writer; readers and subscribers proceed once mu is released.
func (c *Conversation) unlockAndRecord(msg chat.Message) {
	if c.recorder == nil {
		c.mu.Unlock()
		return
	}
	c.recordMu.Lock()
	c.mu.Unlock()
	defer c.recordMu.Unlock()

	if err := c.recorder.AppendMessage(context.WithoutCancel(c.baseCtx), msg); err != nil {
		c.logger.Error().Err(err).Str("message", msg.ID).Msg("failed to record message")
	}
}

func (c *Conversation) snapshotLocked() chat.Snapshot {
	messages := make([]chat.Message, len(c.messages))
	copy(messages, c.messages)
	pending := c.state == chat.StateAwaiting
	return chat.Snapshot{
		SessionID: c.session.ID,
		State:     c.state,
		Pending:   pending,
		Welcome:   len(messages) == 1 && !pending,
		Messages:  messages,
	}
}

// publishLocked replaces whatever snapshot a subscriber has not read yet.
func (c *Conversation) publishLocked() {
	if len(c.subs) == 0 {
		return
	}
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}
