package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/egregors/hkdash/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMsgSize = 4 << 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the page is served from anywhere on the LAN, CORS is open as well
	CheckOrigin: func(*http.Request) bool { return true },
}

// Stream upgrades to a websocket. It sends the whole board first and then
// every element change; clients send Commands back.
func (h *Handlers) Stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn.Printf("upgrade failure: %s", err.Error())
		return
	}
	defer conn.Close()

	id := uuid.New().String()
	log.Debg.Printf("stream client %s connected from %s", id, c.ClientIP())
	defer log.Debg.Printf("stream client %s gone", id)

	if h.clients != nil {
		h.clients.ClientConnected()
		defer h.clients.ClientDisconnected()
	}

	// subscribe before the snapshot so no change falls in between
	updates, cancel := h.board.Subscribe(64)
	defer cancel()

	replies := make(chan StreamMsg, 8)
	done := make(chan struct{})
	go h.readCommands(id, conn, replies, done)

	for _, s := range h.board.Snapshot() {
		if err := write(conn, StreamMsg{Type: "element", Element: &s}); err != nil {
			return
		}
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		var msg StreamMsg
		select {
		case <-done:
			return
		case s, ok := <-updates:
			if !ok {
				return
			}
			msg = StreamMsg{Type: "element", Element: &s}
		case msg = <-replies:
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

			continue
		}

		if err := write(conn, msg); err != nil {
			log.Debg.Printf("stream write: %s", err.Error())
			return
		}
	}
}

// readCommands is the only reader of conn; it exits when the client goes away.
func (h *Handlers) readCommands(id string, conn *websocket.Conn, replies chan<- StreamMsg, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			log.Debg.Printf("disconnecting stream client %s: %s", id, err.Error())
			return
		}

		cmd, err := h.parser.Parse(data)
		if err == nil {
			err = h.Exec(cmd)
		}
		if err != nil {
			log.Debg.Printf("stream client %s: %s", id, err.Error())
			select {
			case replies <- StreamMsg{Type: "error", Error: err.Error()}:
			default:
			}
		}
	}
}

func write(conn *websocket.Conn, msg StreamMsg) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))

	return conn.WriteJSON(msg)
}
