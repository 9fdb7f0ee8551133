package kafka

import (
	"context"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageOrdersHeaders(t *testing.T) {
	msg := message("reservation.events.v1", "res-1", []byte(`{}`), map[string]string{"b": "2", "a": "1"})

	assert.Equal(t, "reservation.events.v1", msg.Topic)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "a", string(msg.Headers[0].Key))
	assert.Equal(t, "b", string(msg.Headers[1].Key))
}

func TestPublishSendsThroughSyncProducer(t *testing.T) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	mock := mocks.NewSyncProducer(t, cfg)
	mock.ExpectSendMessageAndSucceed()
	p := &Producer{sync: mock}

	require.NoError(t, p.Publish(context.Background(), "reservation.events.v1", "res-1", []byte(`{}`), nil))
	require.NoError(t, p.Close())
}
