// Package realtime retransmite as notificações do Postgres para clientes websocket.
package realtime

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	// telas internas servidas de outra origem
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// Hub mantém os clientes websocket conectados e distribui as mensagens
type Hub struct {
	nome      string
	clients   map[*websocket.Conn]bool
	broadcast chan []byte
	mutex     sync.RWMutex
	logger    *zap.Logger
}

// NewHub cria um hub; Run precisa estar rodando para as mensagens saírem
func NewHub(nome string, logger *zap.Logger) *Hub {
	return &Hub{
		nome:      nome,
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan []byte, 256),
		logger:    logger.With(zap.String("hub", nome)),
	}
}

// Run distribui as mensagens até ctx ser cancelado e então desconecta todos
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.fecharTodos()
			return
		case msg := <-h.broadcast:
			for _, conn := range h.snapshot() {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					h.RemoveClient(conn)
				}
			}
		}
	}
}

func (h *Hub) snapshot() []*websocket.Conn {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for c := range h.clients {
		conns = append(conns, c)
	}
	return conns
}

func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()
}

func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mutex.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mutex.Unlock()
}

func (h *Hub) fecharTodos() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for c := range h.clients {
		c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "servidor encerrando"),
			time.Now().Add(time.Second))
		c.Close()
		delete(h.clients, c)
	}
}

// Broadcast enfileira a mensagem; descarta se a fila estiver cheia
func (h *Hub) Broadcast(message []byte) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		h.logger.Warn("⚠️ Fila do hub cheia, mensagem descartada")
		return false
	}
}

// ClientesConectados número de conexões abertas
func (h *Hub) ClientesConectados() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// ServeHTTP faz o upgrade e mantém a conexão até o cliente sair. Mensagens
// recebidas do cliente são ignoradas.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("⚠️ Erro no upgrade do websocket", zap.Error(err))
		return
	}

	h.AddClient(conn)
	h.logger.Info("📡 Cliente conectado", zap.Int("total", h.ClientesConectados()))

	defer func() {
		h.RemoveClient(conn)
		h.logger.Info("📡 Cliente desconectado", zap.Int("total", h.ClientesConectados()))
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn("⚠️ Erro no websocket", zap.Error(err))
			}
			return
		}
	}
}
