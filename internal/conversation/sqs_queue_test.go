package conversation

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSQS struct {
	sent     *sqs.SendMessageInput
	received *sqs.ReceiveMessageInput
	deleted  *sqs.DeleteMessageInput
	messages []sqstypes.Message
	err      error
}

func (s *stubSQS) SendMessage(_ context.Context, in *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	s.sent = in
	return &sqs.SendMessageOutput{}, s.err
}

func (s *stubSQS) ReceiveMessage(_ context.Context, in *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	s.received = in
	if s.err != nil {
		return nil, s.err
	}
	return &sqs.ReceiveMessageOutput{Messages: s.messages}, nil
}

func (s *stubSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	s.deleted = in
	return &sqs.DeleteMessageOutput{}, s.err
}

func TestSQSQueue(t *testing.T) {
	api := &stubSQS{messages: []sqstypes.Message{{
		MessageId:     aws.String("m1"),
		Body:          aws.String(`{"id":"j1"}`),
		ReceiptHandle: aws.String("rh1"),
	}}}
	q := NewSQSQueue(api, "https://sqs.local/queue")
	ctx := context.Background()

	require.NoError(t, q.Send(ctx, "body"))
	assert.Equal(t, "body", aws.ToString(api.sent.MessageBody))
	assert.Equal(t, "https://sqs.local/queue", aws.ToString(api.sent.QueueUrl))

	msgs, err := q.Receive(ctx, 5, 10)
	require.NoError(t, err)
	assert.Equal(t, []queueMessage{{ID: "m1", Body: `{"id":"j1"}`, ReceiptHandle: "rh1"}}, msgs)
	assert.Equal(t, int32(5), api.received.MaxNumberOfMessages)
	assert.Equal(t, int32(10), api.received.WaitTimeSeconds)

	require.NoError(t, q.Delete(ctx, "rh1"))
	assert.Equal(t, "rh1", aws.ToString(api.deleted.ReceiptHandle))

	api.deleted = nil
	require.NoError(t, q.Delete(ctx, ""))
	assert.Nil(t, api.deleted)
}

func TestSQSQueue_FIFOGroupsByUser(t *testing.T) {
	api := &stubSQS{}
	q := NewSQSQueue(api, "https://sqs.local/inbound.fifo")
	ctx := context.Background()

	require.NoError(t, q.SendGrouped(ctx, "body", "593991", "wamid.1"))
	assert.Equal(t, "593991", aws.ToString(api.sent.MessageGroupId))
	assert.Equal(t, "wamid.1", aws.ToString(api.sent.MessageDeduplicationId))
	assert.Equal(t, string(jobTypeInbound), aws.ToString(api.sent.MessageAttributes["kind"].StringValue))

	require.NoError(t, q.Send(ctx, "plain"))
	assert.Equal(t, "inbound", aws.ToString(api.sent.MessageGroupId))
	assert.Nil(t, api.sent.MessageDeduplicationId)
}

func TestSQSQueue_StandardQueueIgnoresGrouping(t *testing.T) {
	api := &stubSQS{}
	q := NewSQSQueue(api, "https://sqs.local/inbound")

	require.NoError(t, q.SendGrouped(context.Background(), "body", "593991", "wamid.1"))
	assert.Nil(t, api.sent.MessageGroupId)
	assert.Nil(t, api.sent.MessageDeduplicationId)
}

func TestSQSQueue_Errors(t *testing.T) {
	q := NewSQSQueue(&stubSQS{err: errors.New("denied")}, "url")
	ctx := context.Background()
	assert.Error(t, q.Send(ctx, "x"))
	_, err := q.Receive(ctx, 1, 0)
	assert.Error(t, err)
	assert.Error(t, q.Delete(ctx, "rh"))
}

func TestMemoryQueue(t *testing.T) {
	q := NewMemoryQueue(0)
	ctx := context.Background()

	require.NoError(t, q.Send(ctx, "a"))
	require.NoError(t, q.Send(ctx, "b"))
	assert.Equal(t, 2, q.Len())

	msgs, err := q.Receive(ctx, 5, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "a", msgs[0].Body)
	assert.Equal(t, "b", msgs[1].Body)
	assert.NotEmpty(t, msgs[0].ReceiptHandle)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = q.Receive(cctx, 1, 0)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryQueue_GroupsStayInOnePartition(t *testing.T) {
	q := NewMemoryQueue(0, WithPartitions(3))
	ctx := context.Background()

	for _, body := range []string{"1", "2", "3", "4"} {
		require.NoError(t, q.SendGrouped(ctx, body, "521", "m"+body))
	}
	part := q.partitionFor("521")
	msgs, err := q.ReceiveFrom(ctx, part, 10, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 4)
	for i, m := range msgs {
		assert.Equal(t, []string{"1", "2", "3", "4"}[i], m.Body)
	}
	assert.Zero(t, q.Len())
}
