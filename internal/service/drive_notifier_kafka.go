package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaDriveCreatedNotifier publishes drive-created events for an external
// mailer to consume. Messages are keyed by drive so one drive's invitations
// land on the same partition.
type KafkaDriveCreatedNotifier struct {
	writer       kafkaMessageWriter
	writeTimeout time.Duration
}

func NewKafkaDriveCreatedNotifier(brokers []string, topic string) *KafkaDriveCreatedNotifier {
	return &KafkaDriveCreatedNotifier{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
		},
		writeTimeout: 5 * time.Second,
	}
}

func (n *KafkaDriveCreatedNotifier) NotifyDriveCreated(ctx context.Context, event DriveCreatedEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode drive created event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, n.writeTimeout)
	defer cancel()
	err = n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(event.DriveID), 10)),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("drive.created")},
		},
	})
	if err != nil {
		return fmt.Errorf("publish drive created event: %w", err)
	}
	return nil
}

func (n *KafkaDriveCreatedNotifier) Close() error {
	return n.writer.Close()
}
