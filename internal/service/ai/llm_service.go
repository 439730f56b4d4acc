package ai

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/logging"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/gateway"
)

// Source tags replies produced by the direct model replier.
const Source = "ark"

// SystemPrompt frames the model as the lab assistant.
const SystemPrompt = `Kamu adalah Chatbot PSTI, asisten virtual Laboratorium PSTI.
Jawab pertanyaan pengunjung tentang lab, project, fasilitas, dan jam operasional.
Gunakan bahasa Indonesia yang ramah dan ringkas. Jika tidak tahu jawabannya, katakan dengan jujur.`

const historyLimit = 10

// Service answers chat messages with an eino chain over a chat model. It
// satisfies the same contract as the HTTP gateway client.
type Service struct {
	chain  compose.Runnable[map[string]any, *schema.Message]
	now    func() time.Time
	logger zerolog.Logger

	mu      sync.Mutex
	history map[string][]*schema.Message
}

// NewService compiles the prompt chain around chatModel.
func NewService(ctx context.Context, chatModel model.BaseChatModel) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("chat model is required")
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chain:   runnable,
		now:     time.Now,
		logger:  logging.Component("ai"),
		history: make(map[string][]*schema.Message),
	}, nil
}

// Send runs one exchange for userID. Failures are reported as unknown
// gateway errors so the conversation renders them like any other failure.
func (s *Service) Send(ctx context.Context, text, userID string) (gateway.Result, error) {
	if userID == "" {
		userID = gateway.DefaultUserID
	}

	input := map[string]any{
		"system":  SystemPrompt,
		"history": s.recent(userID),
		"query":   text,
	}

	response, err := s.chain.Invoke(ctx, input)
	if err != nil {
		s.logger.Error().Err(err).Str("userId", userID).Msg("failed to run chat chain")
		return gateway.Result{}, &gateway.Error{Kind: gateway.KindUnknown, Message: err.Error(), Err: err}
	}

	reply := strings.TrimSpace(response.Content)
	s.remember(userID, text, reply)
	s.logger.Debug().Str("userId", userID).Int("length", len(reply)).Msg("generated response")

	if reply == "" {
		reply = gateway.NoResponsePlaceholder
	}
	return gateway.Result{
		Text:       reply,
		Source:     Source,
		ReceivedAt: s.now(),
		Success:    true,
	}, nil
}

func (s *Service) recent(userID string) []*schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*schema.Message(nil), s.history[userID]...)
}

func (s *Service) remember(userID, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := append(s.history[userID], schema.UserMessage(question), schema.AssistantMessage(answer, nil))
	if len(history) > historyLimit {
		history = history[len(history)-historyLimit:]
	}
	s.history[userID] = history
}
