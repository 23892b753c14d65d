package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blockclash/blockclash-backend/game"
	"github.com/blockclash/blockclash-backend/logger"
	"github.com/blockclash/blockclash-backend/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

var gameManager *game.Manager

// SetManager wires the room manager into the handler package before the
// router is built.
func SetManager(m *game.Manager) {
	gameManager = m
}

const (
	writeWait      = 10 * time.Second
	disconnectWait = 5 * time.Second
)

// Connection is one player socket. The send channel decouples game
// broadcasts from socket write latency; a full channel drops the
// connection rather than blocking a room.
type Connection struct {
	ws   *websocket.Conn
	send chan []byte

	closeMu sync.Mutex
	closed  bool

	authenticated bool
	playerID      string
	accountID     string
	username      string
	experienceID  string
}

// Send implements game.Conn. Marshal failures and overflow both just
// drop the message; the socket teardown path handles cleanup.
func (c *Connection) Send(msgType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.Log.Errorw("marshal outbound payload", "type", msgType, "error", err)
		return
	}
	data, err := json.Marshal(models.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return
	}
	c.closeMu.Lock()
	defer c.closeMu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Log.Warnw("send buffer full, dropping message", "playerId", c.playerID, "type", msgType)
	}
}

func (c *Connection) sendError(msg string) {
	c.Send(models.MsgError, models.ErrorPayload{Message: msg})
}

// WsHandler upgrades the socket. Authentication happens in-band via the
// first authenticate message, not on the URL.
func WsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Errorw("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &Connection{ws: conn, send: make(chan []byte, 256)}
	go c.writePump()
	c.readPump()
}

func (c *Connection) readPump() {
	defer func() {
		if c.authenticated {
			ctx, cancel := context.WithTimeout(context.Background(), disconnectWait)
			gameManager.RemovePlayer(ctx, c.playerID)
			cancel()
			gameManager.Registry().UnregisterConn(c.playerID)
			logger.Log.Infow("player disconnected", "playerId", c.playerID, "username", c.username)
		}
		c.closeMu.Lock()
		c.closed = true
		close(c.send)
		c.closeMu.Unlock()
		c.ws.Close()
	}()

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Debugw("read error", "playerId", c.playerID, "error", err)
			}
			return
		}
		c.processMessage(message)
	}
}

func (c *Connection) writePump() {
	defer c.ws.Close()
	for message := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}
