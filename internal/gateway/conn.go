package gateway

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/capitalize-ai/assistant-gateway/internal/model"
)

// conn wraps one WebSocket connection with write locking, since the ping
// loop and the action dispatcher both write.
type conn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
	mu           sync.Mutex
}

func newConn(ws *websocket.Conn, writeTimeout time.Duration) *conn {
	return &conn{ws: ws, writeTimeout: writeTimeout}
}

func (c *conn) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// writeConversation emits the full conversation snapshot. Write failures are
// deliberately dropped: a dead socket must not stop an in-flight spin loop.
func (c *conn) writeConversation(conversation *model.Conversation) {
	_ = c.writeJSON(ConversationFrame{Conversation: conversation})
}

func (c *conn) writeError(exception string) {
	_ = c.writeJSON(ErrorFrame{Error: ErrorBody{Exception: exception}})
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.writeTimeout))
}

func (c *conn) close() {
	_ = c.ws.Close()
}
