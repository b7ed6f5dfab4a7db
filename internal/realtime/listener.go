package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	pingInterval = 90 * time.Second
)

// Mensagem enviada aos clientes; eles recarregam a tela ao recebê-la
type Mensagem struct {
	Canal   string          `json:"canal"`
	Evento  string          `json:"evento"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// MontarMensagem embrulha o payload do NOTIFY. Payload que não é JSON vira string.
func MontarMensagem(canal, evento, extra string) []byte {
	msg := Mensagem{Canal: canal, Evento: evento}
	switch {
	case extra == "":
	case json.Valid([]byte(extra)):
		msg.Payload = json.RawMessage(extra)
	default:
		msg.Payload, _ = json.Marshal(extra)
	}
	b, _ := json.Marshal(msg)
	return b
}

// Listener escuta um canal LISTEN/NOTIFY e repassa para o hub
type Listener struct {
	dsn    string
	canal  string
	hub    *Hub
	logger *zap.Logger
}

func NewListener(dsn, canal string, hub *Hub, logger *zap.Logger) *Listener {
	return &Listener{
		dsn:    dsn,
		canal:  canal,
		hub:    hub,
		logger: logger.With(zap.String("canal", canal)),
	}
}

// Run bloqueia até ctx ser cancelado. pq.Listener reconecta sozinho; depois de
// uma reconexão os clientes recebem "recarregar" porque notificações podem
// ter se perdido.
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			l.logger.Warn("⚠️ Listener desconectado", zap.Error(err))
		case pq.ListenerEventReconnected:
			l.logger.Info("🔄 Listener reconectado")
		case pq.ListenerEventConnectionAttemptFailed:
			l.logger.Warn("⚠️ Falha conectando listener", zap.Error(err))
		}
	})
	defer listener.Close()

	if err := listener.Listen(l.canal); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", l.canal, err)
	}
	l.logger.Info("👂 Escutando notificações")

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				l.hub.Broadcast(MontarMensagem(l.canal, "recarregar", ""))
				continue
			}
			l.hub.Broadcast(MontarMensagem(n.Channel, "alteracao", n.Extra))
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					l.logger.Debug("Ping do listener falhou", zap.Error(err))
				}
			}()
		}
	}
}
