// Package kafkastorage publishes every vCon as JSON to a Kafka topic, keyed by its uuid.
package kafkastorage

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/vcon-dev/conserver"
)

const Name = "kafka"

var Defaults = conserver.StageOptions{
	"brokers": []any{"localhost:9092"},
	"topic":   "vcons",
}

// Writer is the subset of *kafka.Writer used by the storage.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

func Module() conserver.StorageModule {
	return conserver.StorageModule{
		Defaults: Defaults,
		New: func(d conserver.Deps) (conserver.Storage, error) {
			return New(d.Records), nil
		},
	}
}

func New(records conserver.RecordStore) *Storage {
	return NewWithWriterFactory(records, newWriter)
}

// NewWithWriterFactory allows the Kafka writer to be replaced, which is useful in tests.
func NewWithWriterFactory(records conserver.RecordStore, factory func(brokers []string) Writer) *Storage {
	return &Storage{
		records:   records,
		newWriter: factory,
		writers:   make(map[string]Writer),
	}
}

func newWriter(brokers []string) Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
}

type Storage struct {
	records   conserver.RecordStore
	newWriter func(brokers []string) Writer

	mu      sync.Mutex
	writers map[string]Writer
}

var _ conserver.Storage = (*Storage)(nil)

func (s *Storage) Save(ctx context.Context, vconID string, opts conserver.StageOptions) error {
	v, err := s.records.Get(ctx, vconID)
	if err != nil {
		return err
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}

	w := s.writer(opts.Strings("brokers"))
	return w.WriteMessages(ctx, kafka.Message{
		Topic: opts.Str("topic", "vcons"),
		Key:   []byte(v.UUID),
		Value: b,
	})
}

// Close flushes and closes every writer.
func (s *Storage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for key, w := range s.writers {
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}

		delete(s.writers, key)
	}

	return firstErr
}

func (s *Storage) writer(brokers []string) Writer {
	key := strings.Join(brokers, ",")

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.writers[key]
	if !ok {
		w = s.newWriter(brokers)
		s.writers[key] = w
	}

	return w
}
