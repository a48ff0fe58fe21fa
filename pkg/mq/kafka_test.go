package mq

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaProducerPublish(t *testing.T) {
	w := new(mockWriter)
	p := &KafkaProducer{writer: w}

	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 || msgs[0].Topic != "marketdata.price.ticked" || string(msgs[0].Key) != "PETR4" {
			return false
		}
		var payload map[string]string
		return json.Unmarshal(msgs[0].Value, &payload) == nil && payload["ticker"] == "PETR4"
	})).Return(nil).Once()

	err := p.Publish(context.Background(), "marketdata.price.ticked", "PETR4", map[string]string{"ticker": "PETR4"})
	require.NoError(t, err)
	w.AssertExpectations(t)
}

func TestKafkaProducerPublishError(t *testing.T) {
	w := new(mockWriter)
	p := &KafkaProducer{writer: w}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(assert.AnError)

	err := p.Publish(context.Background(), "t", "k", struct{}{})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestNewPublisherWithoutBrokers(t *testing.T) {
	p, err := NewPublisher(KafkaConfig{})
	require.NoError(t, err)
	assert.IsType(t, LogPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), "t", "k", 1))
	assert.NoError(t, p.Close())

	_, err = NewProducer(KafkaConfig{})
	assert.Error(t, err)
}
