package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/capitalize-ai/assistant-gateway/internal/engine"
	"github.com/capitalize-ai/assistant-gateway/internal/llm"
	"github.com/capitalize-ai/assistant-gateway/internal/middleware"
	"github.com/capitalize-ai/assistant-gateway/internal/model"
	"github.com/capitalize-ai/assistant-gateway/internal/session"
	"github.com/capitalize-ai/assistant-gateway/internal/tool"
	"github.com/capitalize-ai/assistant-gateway/pkg/logger"
	"github.com/capitalize-ai/assistant-gateway/pkg/metrics"
)

// Archiver persists appended messages for offline audit. A nil Archiver
// disables archiving.
type Archiver interface {
	ArchiveMessage(ctx context.Context, owner string, sessionID int64, msg *model.Message) (uint64, error)
}

// Config holds the gateway's orchestration settings.
type Config struct {
	SystemPrompt string
	MaxToolCalls int
	ReadLimit    int64
	PingInterval time.Duration
	WriteTimeout time.Duration
}

// Gateway upgrades connections, binds each one to a session, and routes
// inbound actions into the spin loop.
type Gateway struct {
	cfg      Config
	store    session.Store
	engine   *engine.Engine
	registry *tool.Registry
	archive  Archiver
	logger   *logger.Logger
	upgrader websocket.Upgrader
}

// New creates a gateway.
func New(cfg Config, store session.Store, eng *engine.Engine, registry *tool.Registry, archive Archiver, log *logger.Logger) *Gateway {
	if cfg.MaxToolCalls <= 0 {
		cfg.MaxToolCalls = engine.DefaultMaxToolCalls
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &Gateway{
		cfg:      cfg,
		store:    store,
		engine:   eng,
		registry: registry,
		archive:  archive,
		logger:   log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				// Origin policy is enforced by the CORS layer in front.
				return true
			},
		},
	}
}

// HandleWS handles GET /api/v1/ws?conversation_id=N
//
// The owner identity comes from the auth middleware; the conversation id is
// a handshake parameter. A missing id or an owner mismatch emits an error
// frame and terminates the connection.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	owner := middleware.GetUserID(r.Context())
	idParam := r.URL.Query().Get("conversation_id")

	ws, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newConn(ws, g.cfg.WriteTimeout)
	defer c.close()

	metrics.IncrementConnections()
	defer metrics.DecrementConnections()

	if idParam == "" {
		c.writeError("conversation id is required")
		return
	}
	id, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		c.writeError("conversation id must be numeric")
		return
	}

	sess, created, err := g.store.GetOrCreate(r.Context(), id, owner, g.cfg.SystemPrompt)
	if err != nil {
		if errors.Is(err, session.ErrOwnerMismatch) {
			c.writeError("conversation does not belong to this user")
		} else {
			c.writeError("failed to open conversation")
		}
		return
	}

	g.logger.Info("session bound",
		zap.Int64("conversation_id", id),
		zap.String("owner", owner),
		zap.Bool("created", created),
	)

	// A prior session may have dropped mid tool-call; resume the loop so the
	// stored conversation reaches a resting point again. The loop's publish
	// doubles as the initial snapshot. The search scope of the interrupted
	// append is not replayed.
	sess.Lock()
	if len(sess.Conversation.Messages) > 0 {
		g.spin(sess, c, tool.ExecContext{})
		g.archiveNew(sess)
	} else {
		c.writeConversation(sess.Conversation)
	}
	sess.Unlock()

	g.readLoop(sess, c)
}

// readLoop reads and dispatches inbound actions until the connection drops.
// Actions are handled in order on this goroutine, so a second append queues
// behind the running spin via the session lock.
func (g *Gateway) readLoop(sess *session.Session, c *conn) {
	ws := c.ws
	if g.cfg.ReadLimit > 0 {
		ws.SetReadLimit(g.cfg.ReadLimit)
	}

	pongWait := 4 * g.cfg.PingInterval
	if g.cfg.PingInterval > 0 {
		ws.SetReadDeadline(time.Now().Add(pongWait))
		ws.SetPongHandler(func(string) error {
			ws.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})

		stop := make(chan struct{})
		defer close(stop)
		go g.pingLoop(c, stop)
	}

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.logger.Warn("websocket read failed", zap.Error(err))
			}
			return
		}
		g.dispatch(sess, c, data)

		if g.cfg.PingInterval > 0 {
			// A long spin may have eaten the whole pong window.
			ws.SetReadDeadline(time.Now().Add(pongWait))
		}
	}
}

func (g *Gateway) pingLoop(c *conn, stop <-chan struct{}) {
	ticker := time.NewTicker(g.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := c.ping(); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// dispatch routes one inbound message. Protocol errors never corrupt stored
// conversation state and leave the connection open.
func (g *Gateway) dispatch(sess *session.Session, c *conn, data []byte) {
	var in InboundMessage
	if err := json.Unmarshal(data, &in); err != nil {
		metrics.ActionsTotal.WithLabelValues("invalid", "rejected").Inc()
		c.writeError("invalid JSON message")
		return
	}

	switch in.Action {
	case ActionAppend:
		g.handleAppend(sess, c, in)
	case ActionRate:
		g.handleRate(sess, c, in)
	default:
		metrics.ActionsTotal.WithLabelValues("unknown", "rejected").Inc()
		c.writeError(fmt.Sprintf("unknown action: %q", in.Action))
	}
}

// handleAppend records the user message, offering the full tool catalog
// with automatic tool choice, and drives the spin loop. The collections
// scope is threaded to tool execution for this append only.
func (g *Gateway) handleAppend(sess *session.Session, c *conn, in InboundMessage) {
	if in.Message == nil {
		metrics.ActionsTotal.WithLabelValues(ActionAppend, "rejected").Inc()
		c.writeError("message is required")
		return
	}
	if err := middleware.ValidateMessageContent(in.Message.Content); err != nil {
		metrics.ActionsTotal.WithLabelValues(ActionAppend, "rejected").Inc()
		c.writeError(err.Error())
		return
	}

	sess.Lock()
	defer sess.Unlock()

	before := len(sess.Conversation.Messages)
	msg := model.NewUserMessage(in.Message.Content, g.registry.Definitions(), &model.ToolChoice{Type: model.ToolChoiceAuto})
	sess.Conversation.Append(msg)

	err := g.spin(sess, c, tool.ExecContext{Collections: in.Collections})
	if err != nil && len(sess.Conversation.Messages) == before+1 {
		// The very first provider call failed: drop the user message so
		// the client can retry the same append against unchanged state.
		sess.Conversation.Messages = sess.Conversation.Messages[:before]
	}
	g.archiveNew(sess)
	if err != nil {
		metrics.ActionsTotal.WithLabelValues(ActionAppend, "failed").Inc()
		return
	}
	metrics.ActionsTotal.WithLabelValues(ActionAppend, "ok").Inc()
}

// handleRate applies the rating update by uuid. A stale uuid is a silent
// no-op; no model call is warranted either way.
func (g *Gateway) handleRate(sess *session.Session, c *conn, in InboundMessage) {
	if in.UUID == "" {
		metrics.ActionsTotal.WithLabelValues(ActionRate, "rejected").Inc()
		c.writeError("uuid is required")
		return
	}
	if err := middleware.ValidateMessageID(in.UUID); err != nil {
		metrics.ActionsTotal.WithLabelValues(ActionRate, "rejected").Inc()
		c.writeError(err.Error())
		return
	}

	sess.Lock()
	sess.Conversation.Rate(in.UUID, in.Rating)
	c.writeConversation(sess.Conversation)
	sess.Unlock()

	metrics.ActionsTotal.WithLabelValues(ActionRate, "ok").Inc()
}

// spin runs the engine until rest, publishing the full conversation after
// every step. Must be called with the session lock held. Provider failures
// are mapped to the two user-facing categories.
func (g *Gateway) spin(sess *session.Session, c *conn, ec tool.ExecContext) error {
	// Detached from the request context: a dropped connection must not
	// cancel the loop mid tool-call.
	err := g.engine.Spin(context.Background(), sess.Conversation, ec, g.cfg.MaxToolCalls, func(conversation *model.Conversation) {
		c.writeConversation(conversation)
	})
	if err != nil {
		g.logger.Error("spin failed",
			zap.Int64("conversation_id", sess.ID),
			zap.Error(err),
		)
		if errors.Is(err, llm.ErrOverloaded) {
			c.writeError("The assistant is receiving too many requests. Please try again in a moment.")
		} else {
			c.writeError("The assistant is temporarily unavailable. Please try again.")
		}
	}
	return err
}

// archiveNew publishes messages appended since the last archive pass.
// Best-effort: archive failures never affect the live session.
func (g *Gateway) archiveNew(sess *session.Session) {
	if g.archive == nil {
		sess.Archived = len(sess.Conversation.Messages)
		return
	}
	for i := sess.Archived; i < len(sess.Conversation.Messages); i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_, err := g.archive.ArchiveMessage(ctx, sess.Owner, sess.ID, &sess.Conversation.Messages[i])
		cancel()
		if err != nil {
			metrics.ArchivePublishesTotal.WithLabelValues("error").Inc()
			g.logger.Warn("failed to archive message",
				zap.Int64("conversation_id", sess.ID),
				zap.Error(err),
			)
			continue
		}
		metrics.ArchivePublishesTotal.WithLabelValues("ok").Inc()
	}
	sess.Archived = len(sess.Conversation.Messages)
}
