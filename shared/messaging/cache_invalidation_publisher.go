package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"mapguess-server/shared/interfaces"
	"mapguess-server/shared/models"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func declareInvalidationExchange(ch *amqp091.Channel, exchangeName string) error {
	return ch.ExchangeDeclare(
		exchangeName,
		cacheInvalidationExchangeType,
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,   // arguments
	)
}

var _ interfaces.CacheInvalidationPublisher = (*RabbitMQCacheInvalidationPublisher)(nil)

// RabbitMQCacheInvalidationPublisher рассылает id измененного пазла всем репликам.
type RabbitMQCacheInvalidationPublisher struct {
	mu           sync.Mutex
	ch           *amqp091.Channel
	logger       *zap.Logger
	exchangeName string
	origin       string
}

// NewRabbitMQCacheInvalidationPublisher. origin - идентификатор этой реплики,
// по нему консьюмер пропускает собственные события.
func NewRabbitMQCacheInvalidationPublisher(conn *amqp091.Connection, origin string, logger *zap.Logger) (*RabbitMQCacheInvalidationPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("Failed to open a channel for cache invalidation", zap.Error(err))
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := declareInvalidationExchange(ch, CacheInvalidationExchange); err != nil {
		_ = ch.Close()
		logger.Error("Failed to declare cache invalidation exchange", zap.String("exchange", CacheInvalidationExchange), zap.Error(err))
		return nil, fmt.Errorf("failed to declare exchange '%s': %w", CacheInvalidationExchange, err)
	}

	logger.Info("Cache invalidation exchange declared", zap.String("exchange", CacheInvalidationExchange))
	return &RabbitMQCacheInvalidationPublisher{
		ch:           ch,
		logger:       logger.Named("CacheInvalidationPublisher"),
		exchangeName: CacheInvalidationExchange,
		origin:       origin,
	}, nil
}

func (p *RabbitMQCacheInvalidationPublisher) PublishInvalidation(ctx context.Context, puzzleID string) error {
	body, err := json.Marshal(models.CacheInvalidationEvent{PuzzleID: puzzleID, Origin: p.origin})
	if err != nil {
		return fmt.Errorf("failed to marshal cache invalidation event: %w", err)
	}

	// amqp091.Channel не рассчитан на конкурентную публикацию
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		p.exchangeName, // exchange
		"",             // routing key (не используется для fanout)
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType: contentTypeJSON,
			Body:        body,
			Timestamp:   time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish cache invalidation event: %w", err)
	}

	p.logger.Debug("Cache invalidation published", zap.String("puzzleID", puzzleID))
	return nil
}

// Close закрывает канал RabbitMQ.
func (p *RabbitMQCacheInvalidationPublisher) Close() error {
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}
