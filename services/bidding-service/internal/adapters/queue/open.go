package queue

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rentrover/rentrover/services/bidding-service/internal/config"
	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// Open builds the bid queue for the configured driver. conn is only used by
// the rabbitmq driver. The returned close func is never nil.
func Open(cfg config.QueueConfig, awsCfg config.AWSConfig, conn *amqp.Connection) (bids.BidQueue, func() error, error) {
	switch cfg.Driver {
	case config.QueueDriverSQS:
		client, err := NewSQSClient(awsCfg.Region, awsCfg.Endpoint, awsCfg.AccessKeyID, awsCfg.SecretAccessKey)
		if err != nil {
			return nil, nil, err
		}
		q := NewSQSQueue(client, SQSOptions{
			QueueURL:          cfg.SQSQueueURL,
			WaitTimeSeconds:   cfg.SQSWaitTimeSeconds,
			VisibilityTimeout: int64(cfg.SQSVisibilityTimeout.Seconds()),
		})
		return q, func() error { return nil }, nil

	case config.QueueDriverRabbitMQ:
		if conn == nil {
			return nil, nil, fmt.Errorf("rabbitmq queue driver requires a connection")
		}
		q, err := NewRabbitMQQueue(conn, cfg.Name)
		if err != nil {
			return nil, nil, err
		}
		return q, q.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown queue driver %q", cfg.Driver)
	}
}
