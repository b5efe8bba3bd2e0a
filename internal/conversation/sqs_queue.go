package conversation

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue carries inbound jobs between the API and the worker. A queue
// URL ending in ".fifo" gets per-user message groups, so one user's
// messages are delivered in order, and queue-side dedupe on message id.
type SQSQueue struct {
	client   sqsAPI
	queueURL string
	fifo     bool
}

func NewSQSQueue(client sqsAPI, queueURL string) *SQSQueue {
	if client == nil {
		panic("conversation: SQS client cannot be nil")
	}
	if queueURL == "" {
		panic("conversation: SQS queueURL cannot be empty")
	}
	return &SQSQueue{client: client, queueURL: queueURL, fifo: strings.HasSuffix(queueURL, ".fifo")}
}

// Send enqueues a body without grouping. On a FIFO queue the body is its
// own group.
func (q *SQSQueue) Send(ctx context.Context, body string) error {
	return q.send(ctx, body, "", "")
}

// SendGrouped enqueues a job keyed by user and message id.
func (q *SQSQueue) SendGrouped(ctx context.Context, body, groupID, dedupeID string) error {
	return q.send(ctx, body, groupID, dedupeID)
}

func (q *SQSQueue) send(ctx context.Context, body, groupID, dedupeID string) error {
	input := &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(body),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"kind": {DataType: aws.String("String"), StringValue: aws.String(string(jobTypeInbound))},
		},
	}
	if q.fifo {
		if groupID == "" {
			groupID = "inbound"
		}
		input.MessageGroupId = aws.String(groupID)
		if dedupeID != "" {
			input.MessageDeduplicationId = aws.String(dedupeID)
		}
	}
	if _, err := q.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("conversation: sqs send: %w", err)
	}
	return nil
}

// Ordered reports whether SQS keeps each user's messages in order, which
// only FIFO queues do.
func (q *SQSQueue) Ordered() bool { return q.fifo }

func (q *SQSQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error) {
	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.queueURL),
		MaxNumberOfMessages: int32(maxMessages),
		WaitTimeSeconds:     int32(waitSeconds),
	})
	if err != nil {
		return nil, fmt.Errorf("conversation: sqs receive: %w", err)
	}

	jobs := make([]queueMessage, len(out.Messages))
	for i, m := range out.Messages {
		jobs[i] = queueMessage{
			ID:            aws.ToString(m.MessageId),
			Body:          aws.ToString(m.Body),
			ReceiptHandle: aws.ToString(m.ReceiptHandle),
		}
	}
	return jobs, nil
}

// Delete acknowledges a job. An empty receipt is ignored.
func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	if receiptHandle == "" {
		return nil
	}
	if _, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receiptHandle),
	}); err != nil {
		return fmt.Errorf("conversation: sqs delete: %w", err)
	}
	return nil
}
