package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/premiumcar-router/internal/flow"
	"github.com/wolfman30/premiumcar-router/pkg/logging"
)

type stubQueue struct {
	sent []string
	err  error
}

func (s *stubQueue) Send(_ context.Context, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, body)
	return nil
}

func (s *stubQueue) Receive(context.Context, int, int) ([]queueMessage, error) {
	return nil, context.Canceled
}

func (s *stubQueue) Delete(context.Context, string) error { return nil }

func TestPublisher_Enqueue(t *testing.T) {
	queue := &stubQueue{}
	publisher := NewPublisher(queue, logging.Default())

	in := flow.Inbound{UserID: "521", MessageID: "wamid.1", DisplayName: "Ana", Event: flow.TextEvent{Body: "hola"}}
	require.NoError(t, publisher.Enqueue(context.Background(), in))
	require.Len(t, queue.sent, 1)

	var payload queuePayload
	require.NoError(t, json.Unmarshal([]byte(queue.sent[0]), &payload))
	assert.Equal(t, jobTypeInbound, payload.Kind)
	assert.NotEmpty(t, payload.ID)
	assert.False(t, payload.EnqueuedAt.IsZero())
	assert.Equal(t, inboundPayload{UserID: "521", MessageID: "wamid.1", DisplayName: "Ana", EventType: "text", Body: "hola"}, payload.Inbound)
}

func TestPublisher_EnqueueError(t *testing.T) {
	publisher := NewPublisher(&stubQueue{err: errors.New("sqs down")}, nil)
	err := publisher.Enqueue(context.Background(), flow.Inbound{UserID: "1", MessageID: "m", Event: flow.TextEvent{}})
	assert.Error(t, err)
}

func TestPublisher_RejectsNilEvent(t *testing.T) {
	queue := &stubQueue{}
	err := NewPublisher(queue, nil).Enqueue(context.Background(), flow.Inbound{UserID: "1", MessageID: "m"})
	assert.ErrorIs(t, err, errUnknownEvent)
	assert.Empty(t, queue.sent)
}

func TestInboundPayloadRoundTrip(t *testing.T) {
	for _, in := range []flow.Inbound{
		{UserID: "1", MessageID: "a", Event: flow.TextEvent{Body: "video"}},
		{UserID: "1", MessageID: "b", DisplayName: "Ana", Event: flow.InteractiveEvent{OptionID: "option_sell", Title: "Vender"}},
		{UserID: "1", MessageID: "c", Event: flow.UnsupportedEvent{Type: "reaction"}},
	} {
		p, err := encodeInbound(in)
		require.NoError(t, err)
		assert.Equal(t, in, p.decode())
	}
}

func TestPublisher_UsesUserGroupsWhenSupported(t *testing.T) {
	api := &stubSQS{}
	publisher := NewPublisher(NewSQSQueue(api, "https://sqs.local/inbound.fifo"), nil)

	in := flow.Inbound{UserID: "593991", MessageID: "wamid.9", Event: flow.InteractiveEvent{OptionID: flow.OptionVisit}}
	require.NoError(t, publisher.Enqueue(context.Background(), in))
	require.NotNil(t, api.sent)
	assert.Equal(t, "593991", *api.sent.MessageGroupId)
	assert.Equal(t, "wamid.9", *api.sent.MessageDeduplicationId)
}
