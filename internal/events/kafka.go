// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events as JSON messages to a Kafka topic. Messages
// are keyed by post id so events for one post stay ordered in a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
}

// KafkaOptions configures the Kafka publisher.
type KafkaOptions struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// NewKafkaPublisher creates a publisher for the given brokers and topic.
// kafka-go dials lazily, so no connection is made until the first write.
func NewKafkaPublisher(opts KafkaOptions) (*KafkaPublisher, error) {
	if len(opts.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker is required")
	}
	if opts.Topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	if opts.BatchTimeout <= 0 {
		opts.BatchTimeout = 50 * time.Millisecond
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(opts.Brokers...),
			Topic:                  opts.Topic,
			Balancer:               &kafka.Hash{},
			BatchTimeout:           opts.BatchTimeout,
			WriteTimeout:           opts.WriteTimeout,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		topic: opts.Topic,
	}, nil
}

// Publish writes all events in a single batch.
func (p *KafkaPublisher) Publish(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}

	msgs, err := encodeMessages(events)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		slog.ErrorContext(ctx, "failed to write kafka messages", "topic", p.topic, "count", len(msgs), "error", err)
		return fmt.Errorf("writing %d events to %s: %w", len(msgs), p.topic, err)
	}
	slog.DebugContext(ctx, "published events to kafka", "topic", p.topic, "count", len(msgs))
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func encodeMessages(events []Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("encoding event %s: %w", e.ID, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatInt(e.PostID, 10)),
			Value: payload,
			Time:  e.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event_type", Value: []byte(e.Type)},
				{Key: "event_id", Value: []byte(e.ID)},
			},
		})
	}
	return msgs, nil
}

var _ Publisher = (*KafkaPublisher)(nil)
