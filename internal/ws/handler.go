package ws

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/AgentOS/exokernel/internal/infrastructure/logging"
	"github.com/GriffinCanCode/AgentOS/exokernel/internal/programs"
)

// streamBuffer is how many console lines may queue for one connection.
const streamBuffer = 256

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	// Origins are already filtered by the CORS middleware.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Source is a console that can be followed live.
type Source interface {
	Subscribe(buf int) (backlog []programs.Line, lines <-chan programs.Line, cancel func())
}

// Message is a client to server message.
type Message struct {
	Type string `json:"type"`
}

// Event is a server to client message.
type Event struct {
	Type      string `json:"type"`
	Env       string `json:"env,omitempty"`
	Text      string `json:"text,omitempty"`
	Message   string `json:"message,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Handler streams console output over WebSocket connections
type Handler struct {
	source Source
	logger *logging.Logger
}

// NewHandler creates a new WebSocket handler
func NewHandler(source Source, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Handler{source: source, logger: logger.Named("ws")}
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) send(ev Event) error {
	ev.Timestamp = time.Now().Unix()
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.ws.WriteJSON(ev)
}

func (c *conn) sendError(msg string) error {
	return c.send(Event{Type: "error", Message: msg})
}

func lineEvent(l programs.Line) Event {
	return Event{Type: "line", Env: l.Env.String(), Text: l.Text}
}

// HandleConnection upgrades the request, replays the console backlog and
// then follows it until the run ends or the client goes away.
func (h *Handler) HandleConnection(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer ws.Close()
	cn := &conn{ws: ws}

	backlog, lines, cancel := h.source.Subscribe(streamBuffer)
	defer cancel()

	if err := cn.send(Event{Type: "system", Message: "connected to exokernel console"}); err != nil {
		return
	}
	for _, l := range backlog {
		if err := cn.send(lineEvent(l)); err != nil {
			return
		}
	}

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			var msg Message
			if err := ws.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.logger.Debug("WebSocket read error", zap.Error(err))
				}
				return
			}
			switch msg.Type {
			case "ping":
				_ = cn.send(Event{Type: "pong"})
			default:
				_ = cn.sendError("unknown message type")
			}
		}
	}()

	for {
		select {
		case l, ok := <-lines:
			if !ok {
				_ = cn.send(Event{Type: "complete"})
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(writeTimeout))
				return
			}
			if err := cn.send(lineEvent(l)); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
