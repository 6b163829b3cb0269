package kafka

import (
	"testing"

	"image-batch/internal/broker"

	kafka "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
)

func TestMessageConversionKeepsCommitFields(t *testing.T) {
	in := kafka.Message{Topic: "image-batch-jobs", Partition: 2, Offset: 41, Key: []byte("j1"), Value: []byte(`{"jobId":"j1"}`)}

	msg := fromKafka(in)
	assert.Equal(t, &broker.Message{Topic: "image-batch-jobs", Partition: 2, Offset: 41, Key: []byte("j1"), Value: []byte(`{"jobId":"j1"}`)}, msg)

	back := toKafka(msg)
	assert.Equal(t, in.Topic, back.Topic)
	assert.Equal(t, in.Partition, back.Partition)
	assert.Equal(t, in.Offset, back.Offset)
}
