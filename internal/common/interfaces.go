package common

import (
	"context"
	"io"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
)

type ObjectReader interface {
	io.ReadCloser
}
type ObjectWriter interface {
	io.WriteCloser
}

// ObjectStore abstracts the GCS client so handlers can be tested against an
// in-memory store.
type ObjectStore interface {
	NewWriter(ctx context.Context, bucket, object string) ObjectWriter
	NewReader(ctx context.Context, bucket, object string) (ObjectReader, error)
}

type Publisher interface {
	Publish(ctx context.Context, topicID string, msg *pubsub.Message) (string, error)
}

// Message abstracts the Pub/Sub message for testing.
type Message interface {
	Ack()
	Nack()
	Data() []byte
}

type GCSStore struct {
	Client *storage.Client
}

func (s *GCSStore) NewWriter(ctx context.Context, bucket, object string) ObjectWriter {
	return s.Client.Bucket(bucket).Object(object).NewWriter(ctx)
}

func (s *GCSStore) NewReader(ctx context.Context, bucket, object string) (ObjectReader, error) {
	return s.Client.Bucket(bucket).Object(object).NewReader(ctx)
}

type PubSubPublisher struct {
	Client *pubsub.Client
}

func (p *PubSubPublisher) Publish(ctx context.Context, topicID string, msg *pubsub.Message) (string, error) {
	publisher := p.Client.Publisher(topicID)
	result := publisher.Publish(ctx, msg)
	return result.Get(ctx)
}

// PubSubMessage wraps the concrete pubsub.Message.
type PubSubMessage struct {
	Msg *pubsub.Message
}

func (m *PubSubMessage) Ack() {
	m.Msg.Ack()
}

func (m *PubSubMessage) Nack() {
	m.Msg.Nack()
}

func (m *PubSubMessage) Data() []byte {
	return m.Msg.Data
}

// CompressJob is the message published for each compression request. The
// frequency table rides beside the text as its own object; the payload format
// itself never carries the table.
type CompressJob struct {
	ID            string `json:"id"`
	TextPath      string `json:"text_path"`
	FreqTablePath string `json:"freq_table_path"`
}

// DecompressJob is the message published for each decompression request.
// The frequency table object must be the one produced when the payload was
// compressed, or decoding will fail.
type DecompressJob struct {
	ID            string `json:"id"`
	PayloadPath   string `json:"payload_path"`
	FreqTablePath string `json:"freq_table_path"`
}
