package realtime

import (
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"internportal/internal/access"
	"internportal/internal/domain/event"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 * 1024
	sendBuffer     = 64
)

// wireMessage is what the browser receives. Payloads carry ids and statuses
// only.
type wireMessage struct {
	Type    string            `json:"type"`
	Payload map[string]string `json:"payload"`
	At      time.Time         `json:"at"`
}

type Client struct {
	id      string
	subject access.Subject
	// expiresAt is the token expiry; zero means the session never lapses.
	expiresAt time.Time
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, subject access.Subject, expiresAt time.Time) *Client {
	return &Client{
		id:        uuid.NewString(),
		subject:   subject,
		expiresAt: expiresAt,
		hub:       hub,
		conn:      conn,
		send:      make(chan []byte, sendBuffer),
	}
}

func (c *Client) entitled(ev event.Event) bool {
	if ev.Broadcast {
		return true
	}
	if ev.AdminVisible && c.subject.Role.IsAdmin() {
		return true
	}
	for _, id := range ev.Audience {
		if id == c.subject.AccountID {
			return true
		}
	}
	return false
}

// readPump only services control frames; clients have nothing to say.
func (c *Client) readPump() {
	defer func() {
		c.hub.detach(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("realtime read error", "client_id", c.id, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	var expired <-chan time.Time
	if !c.expiresAt.IsZero() {
		timer := time.NewTimer(time.Until(c.expiresAt))
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.hub.logger.Warn("realtime write error", "client_id", c.id, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-expired:
			c.hub.logger.Info("realtime session expired", "client_id", c.id, "account_id", c.subject.AccountID)
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "token expired"))
			return
		}
	}
}
