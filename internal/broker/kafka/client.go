package kafka

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"

	"image-batch/internal/broker"
	"image-batch/internal/config"

	kafka "github.com/segmentio/kafka-go"
)

func fromKafka(msg kafka.Message) *broker.Message {
	return &broker.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Key:       msg.Key,
		Value:     msg.Value,
		Offset:    msg.Offset,
	}
}

// toKafka keeps the fields a group commit needs.
func toKafka(msg *broker.Message) kafka.Message {
	return kafka.Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Key:       msg.Key,
		Offset:    msg.Offset,
	}
}

// EnsureTopic creates the job topic through the cluster controller. An
// existing topic is not an error.
func EnsureTopic(ctx context.Context, cfg config.KafkaConfig) error {
	if len(cfg.Brokers) == 0 {
		return errors.New("no kafka brokers configured")
	}

	conn, err := kafka.DialContext(ctx, "tcp", cfg.Brokers[0])
	if err != nil {
		return fmt.Errorf("failed to dial kafka: %w", err)
	}
	defer conn.Close()

	controller, err := conn.Controller()
	if err != nil {
		return fmt.Errorf("failed to find kafka controller: %w", err)
	}

	ctrl, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	if err != nil {
		return fmt.Errorf("failed to dial kafka controller: %w", err)
	}
	defer ctrl.Close()

	err = ctrl.CreateTopics(kafka.TopicConfig{
		Topic:             cfg.JobTopic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil && !errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("failed to create topic %s: %w", cfg.JobTopic, err)
	}
	return nil
}
