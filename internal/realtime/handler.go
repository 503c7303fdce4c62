package realtime

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"internportal/internal/access"
	"internportal/internal/common"
	"internportal/internal/http/middleware"
	"internportal/internal/http/response"
)

// SessionValidator resolves a token to its subject and expiry.
type SessionValidator interface {
	ValidateSession(token string) (access.Subject, time.Time, error)
}

type Handler struct {
	hub      *Hub
	tokens   SessionValidator
	upgrader websocket.Upgrader
	logger   Logger
}

func NewHandler(hub *Hub, tokens SessionValidator, allowedOrigins []string, logger Logger) *Handler {
	return &Handler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return middleware.OriginAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
		logger: logger,
	}
}

// ServeHTTP authenticates before upgrading. Browsers cannot set headers on a
// websocket handshake, so the token may also come from ?token=. The socket is
// closed when the token expires.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	subject, expiresAt, err := h.authenticate(r)
	if err != nil {
		response.Error(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "account_id", subject.AccountID, "error", err)
		return
	}

	client := newClient(h.hub, conn, subject, expiresAt)
	if !h.hub.attach(client) {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"))
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (h *Handler) authenticate(r *http.Request) (access.Subject, time.Time, error) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		bearer, err := middleware.BearerToken(r)
		if err != nil {
			return access.Subject{}, time.Time{}, common.NewError(common.CodeUnauthorized, "missing token", nil)
		}
		token = bearer
	}
	return h.tokens.ValidateSession(token)
}
