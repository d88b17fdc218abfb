package httpapi

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dpchavali1/SyncFlow-VPS-sub008/internal/presence"
	"github.com/dpchavali1/SyncFlow-VPS-sub008/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 54 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Auth happens via the access token; the relay serves native clients that
	// send no browser Origin, and the web client is hosted on its own domain.
	CheckOrigin: func(*http.Request) bool { return true },
}

// wsFrame is the wire format delivered to a live client.
type wsFrame struct {
	Topic string `json:"topic"`
	Type  string `json:"type"`
	Data  any    `json:"data"`
}

// wsChannel adapts one websocket connection to the hub's Channel contract.
// gorilla allows a single concurrent writer, hence the mutex shared with the
// ping loop.
type wsChannel struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (ch *wsChannel) Send(topic string, ev presence.Event) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	_ = ch.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return ch.conn.WriteJSON(wsFrame{Topic: topic, Type: ev.Type, Data: ev.Data})
}

func (ch *wsChannel) ping() error {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteWait))
}

func (ch *wsChannel) Close() error {
	return ch.conn.Close()
}

type WSHandler struct {
	hub *presence.Hub
	log *slog.Logger
}

func NewWSHandler(hub *presence.Hub, log *slog.Logger) *WSHandler {
	return &WSHandler{hub: hub, log: log}
}

// Serve upgrades the request and registers the device in the hub for the
// lifetime of the socket. Clients only listen on this channel; any message
// they send other than pongs is ignored. All state changes go through HTTP.
func (h *WSHandler) Serve(c *gin.Context) {
	accountID, deviceID, ok := mustIdentity(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		logger.FromGin(c).Debug("websocket upgrade failed", "err", err)
		return
	}

	ch := &wsChannel{conn: conn}
	h.hub.Connect(accountID, deviceID, ch)
	h.log.Info("device connected", "account_id", accountID, "device_id", deviceID)

	done := make(chan struct{})
	go h.pingLoop(ch, done)

	_ = conn.SetReadDeadline(time.Now().Add(wsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	conn.SetReadLimit(4096)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	close(done)
	h.hub.Disconnect(accountID, deviceID, ch)
	_ = ch.Close()
	h.log.Info("device disconnected", "account_id", accountID, "device_id", deviceID)
}

func (h *WSHandler) pingLoop(ch *wsChannel, done <-chan struct{}) {
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if err := ch.ping(); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
