package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"estoque-service/internal/models"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const source = "estoque-service"

// Evento envelope publicado no exchange de eventos
type Evento struct {
	ID            string          `json:"id"`
	Tipo          string          `json:"tipo"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Data          json.RawMessage `json:"data"`
}

// RoutingKey da movimentação: estoque.movimentacao.<tipo>
func RoutingKey(tipo models.TipoMovimentacao) string {
	return "estoque.movimentacao." + string(tipo)
}

// NovoEvento monta o envelope com ID único
func NovoEvento(tipo, correlationID string, data interface{}) (*Evento, error) {
	body, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return &Evento{
		ID:            uuid.NewString(),
		Tipo:          tipo,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          body,
	}, nil
}

// Publisher publica movimentações já confirmadas no banco
type Publisher interface {
	PublicarMovimentacao(ctx context.Context, mov *models.Movimentacao) error
	Stats() models.EventosMetrics
	Close() error
}

type rabbitPublisher struct {
	conn     *amqp.Connection
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
	logger   *zap.Logger

	publicados int64
	falhas     int64
}

// NewRabbitPublisher conecta no broker e declara o exchange topic durável
func NewRabbitPublisher(url, exchange string, logger *zap.Logger) (Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	logger.Info("✅ RabbitMQ conectado", zap.String("exchange", exchange))

	return &rabbitPublisher{
		conn:     conn,
		channel:  ch,
		exchange: exchange,
		logger:   logger.With(zap.String("component", "events")),
	}, nil
}

func (p *rabbitPublisher) PublicarMovimentacao(ctx context.Context, mov *models.Movimentacao) error {
	routingKey := RoutingKey(mov.Tipo)
	evento, err := NovoEvento(routingKey, CorrelationID(ctx), mov)
	if err != nil {
		atomic.AddInt64(&p.falhas, 1)
		return fmt.Errorf("failed to create event: %w", err)
	}

	body, err := json.Marshal(evento)
	if err != nil {
		atomic.AddInt64(&p.falhas, 1)
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// amqp.Channel não é seguro para publicação concorrente
	p.mu.Lock()
	err = p.channel.PublishWithContext(ctx,
		p.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     evento.ID,
			CorrelationId: evento.CorrelationID,
			Timestamp:     evento.Timestamp,
			Body:          body,
		},
	)
	p.mu.Unlock()
	if err != nil {
		atomic.AddInt64(&p.falhas, 1)
		return fmt.Errorf("failed to publish event: %w", err)
	}

	atomic.AddInt64(&p.publicados, 1)
	p.logger.Debug("evento publicado",
		zap.String("routing_key", routingKey),
		zap.String("event_id", evento.ID))
	return nil
}

func (p *rabbitPublisher) Stats() models.EventosMetrics {
	return models.EventosMetrics{
		Habilitado: true,
		Exchange:   p.exchange,
		Publicados: atomic.LoadInt64(&p.publicados),
		Falhas:     atomic.LoadInt64(&p.falhas),
	}
}

func (p *rabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.channel != nil {
		p.channel.Close()
	}
	return p.conn.Close()
}

// NoopPublisher usado quando RABBITMQ_URL não está configurada
type NoopPublisher struct{}

func (NoopPublisher) PublicarMovimentacao(ctx context.Context, mov *models.Movimentacao) error {
	return nil
}

func (NoopPublisher) Stats() models.EventosMetrics {
	return models.EventosMetrics{}
}

func (NoopPublisher) Close() error { return nil }

type contextKey string

const correlationIDKey contextKey = "correlation_id"

// WithCorrelationID associa o request ID ao contexto
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationID recupera o request ID do contexto
func CorrelationID(ctx context.Context) string {
	if id, ok := ctx.Value(correlationIDKey).(string); ok {
		return id
	}
	return ""
}
