package data

import (
	"context"
	"encoding/json"
	"fmt"

	"videomod/internal/biz"
	"videomod/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/segmentio/kafka-go"
)

// verdictPublisher emits one kafka event per finished verdict, keyed by
// content id so events for the same video land on the same partition.
type verdictPublisher struct {
	writer *kafka.Writer
	log    *log.Helper
}

// NewVerdictPublisher creates the kafka verdict publisher.
func NewVerdictPublisher(conf *conf.Data, logger log.Logger) (biz.VerdictPublisher, func()) {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(conf.Kafka.Brokers...),
		Topic:    conf.Kafka.Topic,
		Balancer: &kafka.Hash{},
	}
	helper := log.NewHelper(logger)
	cleanup := func() {
		helper.Info("closing kafka writer")
		writer.Close()
	}
	return &verdictPublisher{writer: writer, log: helper}, cleanup
}

func (p *verdictPublisher) PublishVerdict(ctx context.Context, verdict *biz.Verdict) error {
	payload, err := json.Marshal(verdict)
	if err != nil {
		return fmt.Errorf("failed to marshal verdict event: %w", err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(verdict.ContentID),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("failed to publish verdict for %s: %w", verdict.ContentID, err)
	}
	return nil
}
