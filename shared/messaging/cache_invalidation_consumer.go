package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"mapguess-server/shared/models"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// PuzzleEvicter сбрасывает пазл из локального кэша.
type PuzzleEvicter interface {
	Evict(id string)
}

// CacheInvalidationConsumer слушает fanout exchange через временную эксклюзивную очередь.
type CacheInvalidationConsumer struct {
	conn         *amqp091.Connection
	ch           *amqp091.Channel
	evicter      PuzzleEvicter
	origin       string
	logger       *zap.Logger
	exchangeName string
	queueName    string
	consumerTag  string
	done         chan struct{}
	stopOnce     sync.Once
}

func NewCacheInvalidationConsumer(
	conn *amqp091.Connection,
	evicter PuzzleEvicter,
	origin string,
	logger *zap.Logger,
) (*CacheInvalidationConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("RabbitMQ connection is nil")
	}
	if evicter == nil {
		return nil, fmt.Errorf("PuzzleEvicter is nil")
	}

	consumerTag := fmt.Sprintf("cache_invalidation_consumer_%d", time.Now().UnixNano())
	c := &CacheInvalidationConsumer{
		conn:         conn,
		evicter:      evicter,
		origin:       origin,
		logger:       logger.Named("CacheInvalidationConsumer").With(zap.String("consumerTag", consumerTag)),
		exchangeName: CacheInvalidationExchange,
		consumerTag:  consumerTag,
		done:         make(chan struct{}),
	}
	if err := c.setupChannelAndQueue(); err != nil {
		return nil, err
	}
	c.logger.Info("CacheInvalidationConsumer инициализирован", zap.String("exchange", c.exchangeName), zap.String("queue", c.queueName))
	return c, nil
}

// setupChannelAndQueue создает канал, объявляет exchange, очередь и биндинг.
func (c *CacheInvalidationConsumer) setupChannelAndQueue() error {
	var err error
	c.ch, err = c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareInvalidationExchange(c.ch, c.exchangeName); err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to declare exchange '%s': %w", c.exchangeName, err)
	}

	// Брокер сам дает имя очереди; она удаляется вместе с соединением
	q, err := c.ch.QueueDeclare(
		"",    // name
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	c.queueName = q.Name

	if err := c.ch.QueueBind(c.queueName, "", c.exchangeName, false, nil); err != nil {
		_ = c.ch.Close()
		return fmt.Errorf("failed to bind queue '%s' to exchange '%s': %w", c.queueName, c.exchangeName, err)
	}
	return nil
}

// Start регистрирует консьюмера и обрабатывает сообщения в отдельной горутине до отмены ctx.
func (c *CacheInvalidationConsumer) Start(ctx context.Context) error {
	deliveries, err := c.ch.Consume(
		c.queueName,
		c.consumerTag,
		true,  // auto-ack: потеря события означает лишь устаревание в пределах TTL
		true,  // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}

	go func() {
		defer close(c.done)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					c.logger.Warn("Delivery channel closed")
					return
				}
				c.HandleMessage(d.Body)
			}
		}
	}()
	return nil
}

// HandleMessage разбирает событие и сбрасывает кэш. Собственные события пропускаются.
func (c *CacheInvalidationConsumer) HandleMessage(body []byte) {
	var event models.CacheInvalidationEvent
	if err := json.Unmarshal(body, &event); err != nil {
		c.logger.Error("Failed to unmarshal cache invalidation event", zap.Error(err), zap.ByteString("body", body))
		return
	}
	if event.PuzzleID == "" {
		c.logger.Warn("Cache invalidation event without puzzle id")
		return
	}
	if event.Origin != "" && event.Origin == c.origin {
		return
	}
	c.evicter.Evict(event.PuzzleID)
	c.logger.Debug("Puzzle evicted by remote event", zap.String("puzzleID", event.PuzzleID), zap.String("origin", event.Origin))
}

// Stop отменяет подписку и закрывает канал. Повторные вызовы ничего не делают.
func (c *CacheInvalidationConsumer) Stop() {
	c.stopOnce.Do(c.stop)
}

func (c *CacheInvalidationConsumer) stop() {
	c.logger.Info("Остановка CacheInvalidationConsumer...")
	if err := c.ch.Cancel(c.consumerTag, false); err != nil {
		c.logger.Warn("Failed to cancel consumer", zap.Error(err))
	}
	select {
	case <-c.done:
	case <-time.After(5 * time.Second):
		c.logger.Warn("Timed out waiting for consumer goroutine")
	}
	if err := c.ch.Close(); err != nil {
		c.logger.Warn("Failed to close channel", zap.Error(err))
	}
}
