package queue

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sqs"
	"github.com/aws/aws-sdk-go/service/sqs/sqsiface"

	"github.com/rentrover/rentrover/services/bidding-service/internal/domain/bids"
)

// SQS caps a single receive at ten messages
const sqsMaxMessages = 10

// SQSOptions configures the SQS driver
type SQSOptions struct {
	QueueURL string
	// WaitTimeSeconds enables long polling (0-20)
	WaitTimeSeconds int64
	// VisibilityTimeout is how long a received message stays hidden, in seconds
	VisibilityTimeout int64
}

// SQSQueue implements bids.BidQueue on Amazon SQS
type SQSQueue struct {
	client sqsiface.SQSAPI
	opts   SQSOptions
}

// NewSQSQueue creates an SQS-backed bid queue
func NewSQSQueue(client sqsiface.SQSAPI, opts SQSOptions) *SQSQueue {
	return &SQSQueue{client: client, opts: opts}
}

// NewSQSClient builds an SQS client. Static credentials are used when both
// keys are set, otherwise the default AWS credential chain applies. endpoint
// is for local emulators and may be empty.
func NewSQSClient(region, endpoint, accessKey, secretKey string) (*sqs.SQS, error) {
	cfg := &aws.Config{Region: aws.String(region)}
	if accessKey != "" && secretKey != "" {
		cfg.Credentials = credentials.NewStaticCredentials(accessKey, secretKey, "")
	}
	if endpoint != "" {
		cfg.Endpoint = aws.String(endpoint)
	}

	sess, err := session.NewSession(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}
	return sqs.New(sess), nil
}

// Publish sends one message
func (q *SQSQueue) Publish(ctx context.Context, body []byte) (string, error) {
	out, err := q.client.SendMessageWithContext(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.opts.QueueURL),
		MessageBody: aws.String(string(body)),
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}
	return aws.StringValue(out.MessageId), nil
}

// Receive long-polls for up to max messages
func (q *SQSQueue) Receive(ctx context.Context, max int) ([]bids.QueueMessage, error) {
	if max < 1 {
		max = 1
	}
	if max > sqsMaxMessages {
		max = sqsMaxMessages
	}

	input := &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.opts.QueueURL),
		MaxNumberOfMessages: aws.Int64(int64(max)),
		WaitTimeSeconds:     aws.Int64(q.opts.WaitTimeSeconds),
	}
	if q.opts.VisibilityTimeout > 0 {
		input.VisibilityTimeout = aws.Int64(q.opts.VisibilityTimeout)
	}

	out, err := q.client.ReceiveMessageWithContext(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to receive messages: %w", err)
	}

	msgs := make([]bids.QueueMessage, 0, len(out.Messages))
	for _, m := range out.Messages {
		msgs = append(msgs, bids.QueueMessage{
			ID:      aws.StringValue(m.MessageId),
			Body:    []byte(aws.StringValue(m.Body)),
			Receipt: aws.StringValue(m.ReceiptHandle),
		})
	}
	return msgs, nil
}

// Delete removes a processed message
func (q *SQSQueue) Delete(ctx context.Context, msg bids.QueueMessage) error {
	_, err := q.client.DeleteMessageWithContext(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.opts.QueueURL),
		ReceiptHandle: aws.String(msg.Receipt),
	})
	if err != nil {
		return fmt.Errorf("failed to delete message %s: %w", msg.ID, err)
	}
	return nil
}

// Release makes the message visible again right away
func (q *SQSQueue) Release(ctx context.Context, msg bids.QueueMessage) error {
	_, err := q.client.ChangeMessageVisibilityWithContext(ctx, &sqs.ChangeMessageVisibilityInput{
		QueueUrl:          aws.String(q.opts.QueueURL),
		ReceiptHandle:     aws.String(msg.Receipt),
		VisibilityTimeout: aws.Int64(0),
	})
	if err != nil {
		return fmt.Errorf("failed to release message %s: %w", msg.ID, err)
	}
	return nil
}
