package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/kevsands/prop-ie/internal/event"
	"github.com/kevsands/prop-ie/internal/model"
)

// ExchangeKind is the exchange type user events are published on.
const ExchangeKind = "topic"

// AMQPSource delivers frames routed to "user.<userId>" on a RabbitMQ topic
// exchange. Each subscription declares its own exclusive, auto-deleted
// queue so nothing is buffered for a signed-out user.
type AMQPSource struct {
	url      string
	exchange string
	logger   *zap.Logger
}

// NewAMQPSource returns a Source dialing url for every subscription.
func NewAMQPSource(url, exchange string, logger *zap.Logger) *AMQPSource {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AMQPSource{url: url, exchange: exchange, logger: logger}
}

// RoutingKey returns the routing key events for a user are published with.
func RoutingKey(userID string) string {
	return "user." + userID
}

// Subscribe dials the broker, binds a private queue for the user and
// starts consuming.
func (s *AMQPSource) Subscribe(ctx context.Context, identity model.Identity, deliver func(Envelope)) (Subscription, error) {
	routingKey := RoutingKey(identity.UserID)
	connID := uuid.NewString()
	logger := s.logger.With(
		zap.String("exchange", s.exchange),
		zap.String("routing_key", routingKey),
		zap.String("conn_id", connID),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	conn, err := amqp.DialConfig(s.url, amqp.Config{
		Properties: amqp.Table{"connection_name": "notifcenter-" + connID},
	})
	if err != nil {
		return nil, fmt.Errorf("dialing broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}

	closeAll := func() error {
		chErr := ch.Close()
		connErr := conn.Close()
		if chErr != nil {
			return chErr
		}
		return connErr
	}

	if err := ch.ExchangeDeclare(s.exchange, ExchangeKind, true, false, false, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("declaring exchange %s: %w", s.exchange, err)
	}

	q, err := ch.QueueDeclare(
		"",    // server-named
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false,
		nil,
	)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("declaring queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, routingKey, s.exchange, false, nil); err != nil {
		closeAll()
		return nil, fmt.Errorf("binding queue to %s: %w", routingKey, err)
	}

	deliveries, err := ch.Consume(
		q.Name,
		"notifcenter-"+connID,
		true, // auto-ack
		true, // exclusive
		false,
		false,
		nil,
	)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("registering consumer: %w", err)
	}

	sub := newSubscription(closeAll, func(err error) {
		if err != nil && err != amqp.ErrClosed {
			logger.Warn("Closing AMQP subscription", zap.Error(err))
			return
		}
		logger.Debug("AMQP subscription closed")
	})

	go func() {
		defer close(sub.done)
		for {
			select {
			case <-sub.stop:
				return
			case msg, ok := <-deliveries:
				if !ok {
					logger.Warn("AMQP delivery channel closed")
					return
				}
				env, err := envelopeFromDelivery(msg.Type, msg.Body)
				if err != nil {
					logger.Warn("Dropping undecodable frame", zap.Error(err))
					continue
				}
				deliver(env)
			}
		}
	}()

	logger.Info("AMQP consumer started", zap.String("queue", q.Name))
	return sub, nil
}

// envelopeFromDelivery accepts either a full envelope as the body, or a
// bare payload with the event name carried in the message type property.
func envelopeFromDelivery(msgType string, body []byte) (Envelope, error) {
	if msgType != "" {
		if !json.Valid(body) {
			return Envelope{}, fmt.Errorf("decoding %s payload: invalid JSON", msgType)
		}
		return Envelope{Event: event.Name(msgType), Data: body}, nil
	}
	return DecodeEnvelope(body)
}
