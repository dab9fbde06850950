package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker"

	"github.com/jwalitptl/clinic-api/pkg/messaging"
)

type Config struct {
	Brokers []string
	GroupID string
}

// KafkaBroker publishes each channel as a topic of the same name.
type KafkaBroker struct {
	config Config
	writer *kafka.Writer
	cb     *gobreaker.CircuitBreaker
	logger *zerolog.Logger

	mu      sync.Mutex
	readers []*kafka.Reader
}

func NewKafkaBroker(config Config, logger *zerolog.Logger) (messaging.Broker, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	conn, err := kafka.Dial("tcp", config.Brokers[0])
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	conn.Close()

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return &KafkaBroker{
		config: config,
		writer: writer,
		cb:     messaging.NewCircuitBreaker("kafka-broker", 10*time.Second),
		logger: logger,
	}, nil
}

func (b *KafkaBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	payload, err := messaging.Encode(message)
	if err != nil {
		return err
	}

	_, err = b.cb.Execute(func() (interface{}, error) {
		return nil, b.writer.WriteMessages(ctx, kafka.Message{
			Topic: channel,
			Value: payload,
			Time:  time.Now(),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", channel, err)
	}
	return nil
}

// Subscribe reads channel as a member of the configured consumer group.
func (b *KafkaBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.config.Brokers,
		Topic:   channel,
		GroupID: b.config.GroupID,
		MaxWait: 10 * time.Second,
	})

	b.mu.Lock()
	b.readers = append(b.readers, reader)
	b.mu.Unlock()

	msgChan := make(chan []byte, 100)
	go func() {
		defer close(msgChan)
		for {
			msg, err := reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, io.EOF) {
					return
				}
				b.logger.Error().Err(err).Str("topic", channel).Msg("kafka read error, will retry")
				time.Sleep(5 * time.Second)
				continue
			}
			select {
			case msgChan <- msg.Value:
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgChan, nil
}

func (b *KafkaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var errs []error
	for _, r := range b.readers {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	b.readers = nil
	if err := b.writer.Close(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
