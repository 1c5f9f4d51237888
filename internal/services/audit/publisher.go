package audit

import (
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/insight-console/internal/lib/rabbitmq"
)

// ChannelPublisher адаптирует канал RabbitMQ к интерфейсу Publisher.
type ChannelPublisher struct {
	ch *amqp.Channel
}

// NewChannelPublisher оборачивает канал RabbitMQ.
func NewChannelPublisher(ch *amqp.Channel) *ChannelPublisher {
	return &ChannelPublisher{ch: ch}
}

// Publish публикует сообщение через канал RabbitMQ.
func (p *ChannelPublisher) Publish(exchange, routingKey string, message any) error {
	return rabbitmq.PublishMessage(p.ch, exchange, routingKey, message)
}
