package question

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/question-bank/internal/auth"
	"github.com/gokatarajesh/question-bank/internal/logging"
	httperrors "github.com/gokatarajesh/question-bank/pkg/http/errors"
	ws "github.com/gokatarajesh/question-bank/pkg/http/ws"
)

// FeedHandler upgrades entitled callers to the publish feed socket.
type FeedHandler struct {
	gate     *Gate
	hub      *ws.Hub
	upgrader *websocket.Upgrader
	timeout  time.Duration
	logger   zerolog.Logger
}

// NewFeedHandler returns a handler that answers 503 when hub is nil.
// timeout bounds credential and entitlement checks before the upgrade.
func NewFeedHandler(gate *Gate, hub *ws.Hub, upgrader *websocket.Upgrader, timeout time.Duration, logger zerolog.Logger) *FeedHandler {
	if upgrader == nil {
		upgrader = &websocket.Upgrader{}
	}
	return &FeedHandler{
		gate:     gate,
		hub:      hub,
		upgrader: upgrader,
		timeout:  timeout,
		logger:   logger.With().Str("component", "feed_handler").Logger(),
	}
}

// ServeHTTP handles GET /ws/questions?token=...
func (h *FeedHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httperrors.RespondMethodNotAllowed(w, http.MethodGet)
		return
	}
	if h.hub == nil {
		httperrors.RespondServiceUnavailable(w, httperrors.ErrCodeFeatureNotAvailable, "Publish feed requires Redis")
		return
	}
	logger := logging.Request(r.Context(), h.logger)

	token := r.URL.Query().Get("token")
	if token == "" {
		httperrors.RespondUnauthorized(w, httperrors.ErrCodeMissingCredential, "Missing token")
		return
	}

	principal, err := h.admit(r.Context(), token)
	if err != nil {
		respondGateError(w, logger, err)
		return
	}

	raw, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := string(principal)
	conn := ws.NewConnection(raw, logger.With().Str("user_id", id).Logger())
	h.hub.RegisterConnection(id, conn)
	go conn.WritePump()

	conn.ReadPump(func(msg ws.Message) error {
		switch msg.Type {
		case ws.TypePing:
			return conn.Send(ws.Message{Type: ws.TypePong, RequestID: msg.RequestID})
		default:
			reply, err := ws.NewMessage(ws.TypeError, ws.ErrorPayload{
				Code:    httperrors.ErrCodeUnknownMessageType,
				Message: "Unsupported message type",
			})
			if err != nil {
				return err
			}
			reply.RequestID = msg.RequestID
			return conn.Send(reply)
		}
	})
	h.hub.UnregisterConnection(id, conn)
}

func (h *FeedHandler) admit(ctx context.Context, token string) (auth.Principal, error) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	return h.gate.Admit(ctx, token)
}
