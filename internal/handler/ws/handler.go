package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/handler/chat"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/logging"
	model "github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/model/chat"
	chatservice "github.com/GerrardTechs/PSTI-ChatBot-Frontend/internal/service/chat"
	"github.com/GerrardTechs/PSTI-ChatBot-Frontend/pkg/utils"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second
)

var (
	errInvalidPayload  = errors.New("invalid payload")
	errUnsupportedType = errors.New("unsupported message type")
)

// Inbound frame types.
const (
	TypeSubmit     = "submit"
	TypeQuickReply = "quickReply"
)

// Outbound frame types.
const (
	TypeSnapshot = "snapshot"
	TypeError    = "error"
)

// Handler drives a conversation over a websocket: it pushes every snapshot
// and accepts submit and quick-reply frames.
type Handler struct {
	chatSvc  *chatservice.Service
	upgrader websocket.Upgrader
	logger   zerolog.Logger
}

// New creates a websocket handler.
func New(chatSvc *chatservice.Service) *Handler {
	return &Handler{
		chatSvc: chatSvc,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		logger: logging.Component("websocket"),
	}
}

// RegisterRoutes registers the websocket route.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{sessionID}", h.handleWebSocket)
}

// InboundMessage is a frame sent by the client.
type InboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// SubmitData is the payload of a submit frame.
type SubmitData struct {
	Text string `json:"text"`
}

// QuickReplyData is the payload of a quickReply frame.
type QuickReplyData struct {
	ID string `json:"id"`
}

// OutgoingMessage is a frame sent to the client.
type OutgoingMessage struct {
	Type      string      `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// ErrorData is the payload of an error frame.
type ErrorData struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (h *Handler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	conv, err := h.chatSvc.Conversation(r.Context(), sessionID)
	if err != nil {
		utils.RespondError(w, chat.StatusFor(err), err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("upgrade failed")
		return
	}
	defer conn.Close()

	logger := h.logger.With().Str("session", sessionID).Logger()
	logger.Info().Msg("connection opened")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	updates, unsubscribe := conv.Subscribe()
	defer unsubscribe()

	errs := make(chan ErrorData, 8)
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer conn.Close()
		h.writeLoop(ctx, conn, sessionID, updates, errs, logger)
	}()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg InboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn().Err(err).Msg("read error")
			}
			break
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		if err := handleMessage(conv, &msg); err != nil {
			select {
			case errs <- ErrorData{Message: err.Error(), Status: errorStatus(err)}:
			default:
			}
		}
	}

	cancel()
	<-done
	logger.Info().Msg("connection closed")
}

func handleMessage(conv *chatservice.Conversation, msg *InboundMessage) error {
	switch msg.Type {
	case TypeSubmit:
		var data SubmitData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return errInvalidPayload
		}
		return conv.Submit(data.Text)
	case TypeQuickReply:
		var data QuickReplyData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			return errInvalidPayload
		}
		return conv.QuickReply(data.ID)
	default:
		return errUnsupportedType
	}
}

func errorStatus(err error) int {
	if errors.Is(err, errInvalidPayload) || errors.Is(err, errUnsupportedType) {
		return http.StatusBadRequest
	}
	return chat.StatusFor(err)
}

func (h *Handler) writeLoop(ctx context.Context, conn *websocket.Conn, sessionID string, updates <-chan model.Snapshot, errs <-chan ErrorData, logger zerolog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var frame OutgoingMessage
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			frame = OutgoingMessage{Type: TypeSnapshot, SessionID: sessionID, Data: snap}
		case e := <-errs:
			frame = OutgoingMessage{Type: TypeError, SessionID: sessionID, Data: e}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
			continue
		}

		frame.Timestamp = time.Now().Unix()
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(frame); err != nil {
			logger.Warn().Err(err).Str("type", frame.Type).Msg("write failed")
			return
		}
	}
}
