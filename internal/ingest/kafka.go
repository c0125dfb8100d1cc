package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"opsintel/models"
)

// KafkaSource consumes feed text from a Kafka topic. Producers push one
// message per feed block and may attach a pais header to override the
// configured country.
type KafkaSource struct {
	name   string
	pais   string
	max    int
	reader *kafkago.Reader
	logger *zerolog.Logger
}

func NewKafkaSource(cfg SourceConfig, logger *zerolog.Logger) *KafkaSource {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.Group,
		MinBytes: 1,
		MaxBytes: maxResponseBytes,
	})
	return &KafkaSource{
		name:   cfg.Name,
		pais:   cfg.Pais,
		max:    cfg.MaxMessages,
		reader: reader,
		logger: logger,
	}
}

func (s *KafkaSource) Name() string {
	return s.name
}

// Fetch drains up to the configured number of pending messages and
// stops once the topic stays quiet for the poll window. Offsets are
// committed only after the whole batch has been collected.
func (s *KafkaSource) Fetch(ctx context.Context) ([]models.RawFeed, error) {
	var out []models.RawFeed
	var batch []kafkago.Message
	for len(batch) < s.max {
		pollCtx, cancel := context.WithTimeout(ctx, kafkaPollTimeout)
		msg, err := s.reader.FetchMessage(pollCtx)
		cancel()
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				break
			}
			return out, fmt.Errorf("failed to fetch message: %w", err)
		}
		batch = append(batch, msg)

		text := strings.TrimSpace(string(msg.Value))
		if text == "" {
			continue
		}
		pais := s.pais
		for _, header := range msg.Headers {
			if header.Key == "pais" && len(header.Value) > 0 {
				pais = string(header.Value)
			}
		}
		when := msg.Time
		if when.IsZero() {
			when = time.Now()
		}
		out = append(out, models.RawFeed{
			Source:    s.name,
			Pais:      pais,
			Channel:   "KAFKA " + msg.Topic,
			FetchedAt: when,
			Text:      text,
		})
	}

	if len(batch) > 0 {
		if err := s.reader.CommitMessages(ctx, batch...); err != nil {
			return out, fmt.Errorf("failed to commit offsets: %w", err)
		}
		s.logger.Debug().Int("messages", len(batch)).Str("source", s.name).Msg("kafka batch committed")
	}
	return out, nil
}

// Close releases the consumer group connection.
func (s *KafkaSource) Close() error {
	return s.reader.Close()
}
