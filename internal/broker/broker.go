package broker

import (
	"context"

	"image-batch/internal/domain"

	"github.com/wb-go/wbf/retry"
)

type Message struct {
	Topic     string
	Partition int
	Key       []byte
	Value     []byte
	Offset    int64
}

type JobProducer interface {
	SendJob(ctx context.Context, msg *domain.JobMessage) error
	Close() error
}

type Consumer interface {
	Start(ctx context.Context, out chan<- *Message, strategy retry.Strategy)
	Commit(ctx context.Context, msg *Message) error
	Close() error
}
