// cmd/stock-push-gateway/main.go
package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"luzimarket/internal/pkg/bootstrap"
	"luzimarket/internal/pkg/logger"
	"luzimarket/internal/pkg/mq"
)

// stock-push-gateway 把 stock-events 主题上的事件实时推送给
// 打开管理后台的运营人员（低库存告警、超卖对账信号）。

const serviceName = "stock-push-gateway"

var (
	nodeID   = serviceName + "-" + uuid.New().String()[:8]
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool { // 管理后台与网关同域部署，放开跨域检查
			return true
		},
	}
)

// Hub 维护所有活跃的连接，并负责消息广播
type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	lock       sync.RWMutex
}

func newHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 256),
	}
}

func (h *Hub) run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case client := <-h.register:
			h.lock.Lock()
			h.clients[client] = struct{}{}
			h.lock.Unlock()
			logger.Logger().Info().Str("admin", client.adminID).Msgf("client registered on node %s", nodeID)
		case client := <-h.unregister:
			h.lock.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.lock.Unlock()
			logger.Logger().Info().Str("admin", client.adminID).Msg("client unregistered")
		case message := <-h.broadcast:
			h.lock.RLock()
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// 写缓冲占满说明客户端已经跟不上，丢弃这条消息
				}
			}
			h.lock.RUnlock()
		}
	}
}

// Client 是一个WebSocket连接的代表
type Client struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	adminID string
}

func (c *Client) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			return
		}
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	for {
		// 管理端只发心跳，读到任何错误即断开
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	adminID := r.URL.Query().Get("adminId")
	if adminID == "" {
		http.Error(w, "adminId is required", http.StatusBadRequest)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Logger().Error().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := &Client{hub: hub, conn: conn, send: make(chan []byte, 256), adminID: adminID}
	client.hub.register <- client

	go client.writePump()
	go client.readPump()
}

// consumeStockEvents 订阅 stock-events 并把每条事件原样广播给所有连接。
func consumeStockEvents(hub *Hub) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		cfg := bootstrap.GetCurrentConfig()
		reader := mq.NewReader(cfg.Infra.Kafka.Brokers, nodeID, cfg.Infra.Kafka.StockEventsTopic)
		defer reader.Close()

		for {
			msg, err := reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				logger.Logger().Error().Err(err).Msg("could not read stock event, retrying")
				time.Sleep(time.Second)
				continue
			}
			hub.broadcast <- msg.Value
			if err := reader.CommitMessages(ctx, msg); err != nil {
				logger.Logger().Error().Err(err).Msg("failed to commit stock event offset")
			}
		}
	}
}

func main() {
	bootstrap.Init()
	hub := newHub()

	bootstrap.StartService(bootstrap.AppInfo{
		ServiceName: serviceName,
		Port:        8088,
		RegisterHandlers: func(appCtx bootstrap.AppCtx) {
			appCtx.Mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
			appCtx.Mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
				serveWs(hub, w, r)
			})
		},
		BackgroundRunners: []func(ctx context.Context) error{
			hub.run,
			consumeStockEvents(hub),
		},
	})
}
