package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/qvhoang/huffpress/compression"
	"github.com/qvhoang/huffpress/internal/common"
	"github.com/qvhoang/huffpress/internal/registry"
)

// --- Mocks ---

// mockObjectStore satisfies common.ObjectStore with an in-memory file map.
type mockObjectStore struct {
	mu       sync.Mutex
	files    map[string]*bytes.Buffer
	failRead bool
}

func (c *mockObjectStore) NewWriter(ctx context.Context, bucket, object string) common.ObjectWriter {
	return &mockObjectWriter{
		objectPath: object,
		buffer:     new(bytes.Buffer),
		client:     c,
	}
}

func (c *mockObjectStore) NewReader(ctx context.Context, bucket, object string) (common.ObjectReader, error) {
	if c.failRead {
		return nil, errors.New("mock gcs read error")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data, ok := c.files[object]
	if !ok {
		return nil, errors.New("storage: object doesn't exist")
	}
	return &mockObjectReader{bytes.NewReader(data.Bytes())}, nil
}

func (c *mockObjectStore) SetObject(object string, content []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.files[object] = bytes.NewBuffer(content)
}

func (c *mockObjectStore) GetObjectContent(object string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.files[object]
	if !ok {
		return nil, false
	}
	return buf.Bytes(), true
}

type mockObjectWriter struct {
	objectPath string
	buffer     *bytes.Buffer
	client     *mockObjectStore
}

func (w *mockObjectWriter) Write(p []byte) (n int, err error) {
	return w.buffer.Write(p)
}

func (w *mockObjectWriter) Close() error {
	w.client.mu.Lock()
	defer w.client.mu.Unlock()
	w.client.files[w.objectPath] = w.buffer
	return nil
}

type mockObjectReader struct {
	*bytes.Reader
}

func (r *mockObjectReader) Close() error { return nil }

// mockMessage satisfies common.Message
type mockMessage struct {
	data       []byte
	ackCalled  bool
	nackCalled bool
}

func (m *mockMessage) Ack()         { m.ackCalled = true }
func (m *mockMessage) Nack()        { m.nackCalled = true }
func (m *mockMessage) Data() []byte { return m.data }

// --- Test Setup ---

func setupTestApp(t *testing.T) (*Application, *mockObjectStore, *registry.MemoryStore) {
	t.Helper()

	ctx := context.Background()
	mockGCS := &mockObjectStore{files: make(map[string]*bytes.Buffer)}
	jobStore := registry.NewMemoryStore()

	app := &Application{
		Store:      mockGCS,
		Registry:   jobStore,
		CTX:        &ctx,
		Bucket:     "test-bucket",
		GCSTimeout: 5 * time.Second,
	}
	return app, mockGCS, jobStore
}

func marshalJob(t *testing.T, job any) []byte {
	t.Helper()
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("Failed to marshal job: %v", err)
	}
	return data
}

// --- Tests ---

func TestCompressMessageHandler(t *testing.T) {
	app, mockGCS, jobStore := setupTestApp(t)
	ctx := context.Background()

	const jobID = "c0ffee00-0000-0000-0000-000000000001"
	const text = "this is a test for compression"

	ft := compression.CountFrequencies(text)
	ftBytes, err := json.Marshal(ft)
	if err != nil {
		t.Fatalf("Failed to marshal frequency table: %v", err)
	}

	textPath := fmt.Sprintf("%s/original_test.txt", jobID)
	freqPath := fmt.Sprintf("%s/frequency_table.json", jobID)
	mockGCS.SetObject(textPath, []byte(text))
	mockGCS.SetObject(freqPath, ftBytes)
	jobStore.Create(ctx, jobID, registry.KindCompress)

	msg := &mockMessage{data: marshalJob(t, common.CompressJob{
		ID:            jobID,
		TextPath:      textPath,
		FreqTablePath: freqPath,
	})}

	app.compressMessageHandler(ctx, msg)

	if !msg.ackCalled {
		t.Error("expected message to be acked")
	}
	if msg.nackCalled {
		t.Error("expected message not to be nacked")
	}

	payload, ok := mockGCS.GetObjectContent(fmt.Sprintf("%s/compressed.huff", jobID))
	if !ok {
		t.Fatal("compressed payload was not uploaded")
	}

	decoded, err := compression.Decompress(payload, ft)
	if err != nil {
		t.Fatalf("uploaded payload does not decode: %v", err)
	}
	if decoded != text {
		t.Errorf("expected %q, got %q", text, decoded)
	}

	job, err := jobStore.Get(ctx, jobID)
	if err != nil {
		t.Fatalf("job lookup failed: %v", err)
	}
	if job.State != registry.StateDone {
		t.Errorf("expected job state done, got %q", job.State)
	}
}

func TestCompressMessageHandler_MissingTable(t *testing.T) {
	app, mockGCS, jobStore := setupTestApp(t)
	ctx := context.Background()

	const jobID = "c0ffee00-0000-0000-0000-000000000002"
	textPath := fmt.Sprintf("%s/original_test.txt", jobID)
	mockGCS.SetObject(textPath, []byte("no table for this one"))
	jobStore.Create(ctx, jobID, registry.KindCompress)

	msg := &mockMessage{data: marshalJob(t, common.CompressJob{
		ID:            jobID,
		TextPath:      textPath,
		FreqTablePath: jobID + "/frequency_table.json",
	})}

	app.compressMessageHandler(ctx, msg)

	if !msg.nackCalled {
		t.Error("expected message to be nacked")
	}
	job, err := jobStore.Get(ctx, jobID)
	if err != nil {
		t.Fatalf("job lookup failed: %v", err)
	}
	if job.State != registry.StateFailed {
		t.Errorf("expected job state failed, got %q", job.State)
	}
}

func TestCompressMessageHandler_BadMessage(t *testing.T) {
	app, _, _ := setupTestApp(t)

	msg := &mockMessage{data: []byte("{not json")}
	app.compressMessageHandler(context.Background(), msg)

	if !msg.nackCalled {
		t.Error("expected message to be nacked")
	}
}

func TestDecompressMessageHandler(t *testing.T) {
	app, mockGCS, jobStore := setupTestApp(t)
	ctx := context.Background()

	const jobID = "c0ffee00-0000-0000-0000-000000000003"
	const text = "decompression test"

	payload, ft, err := compression.Compress(text)
	if err != nil {
		t.Fatalf("compress failed: %v", err)
	}
	ftBytes, err := json.Marshal(ft)
	if err != nil {
		t.Fatalf("Failed to marshal frequency table: %v", err)
	}

	payloadPath := fmt.Sprintf("%s/compressed.huff", jobID)
	freqPath := fmt.Sprintf("%s/frequency_table.json", jobID)
	mockGCS.SetObject(payloadPath, payload)
	mockGCS.SetObject(freqPath, ftBytes)
	jobStore.Create(ctx, jobID, registry.KindDecompress)

	msg := &mockMessage{data: marshalJob(t, common.DecompressJob{
		ID:            jobID,
		PayloadPath:   payloadPath,
		FreqTablePath: freqPath,
	})}

	app.decompressMessageHandler(ctx, msg)

	if !msg.ackCalled {
		t.Error("expected message to be acked")
	}

	result, ok := mockGCS.GetObjectContent(fmt.Sprintf("%s/decompressed.txt", jobID))
	if !ok {
		t.Fatal("decompressed text was not uploaded")
	}
	if string(result) != text {
		t.Errorf("expected %q, got %q", text, string(result))
	}

	job, err := jobStore.Get(ctx, jobID)
	if err != nil {
		t.Fatalf("job lookup failed: %v", err)
	}
	if job.State != registry.StateDone {
		t.Errorf("expected job state done, got %q", job.State)
	}
}

func TestDecompressMessageHandler_CorruptPayload(t *testing.T) {
	app, mockGCS, jobStore := setupTestApp(t)
	ctx := context.Background()

	const jobID = "c0ffee00-0000-0000-0000-000000000004"

	ft := compression.CountFrequencies("aaabbc")
	ftBytes, err := json.Marshal(ft)
	if err != nil {
		t.Fatalf("Failed to marshal frequency table: %v", err)
	}

	payloadPath := fmt.Sprintf("%s/compressed.huff", jobID)
	freqPath := fmt.Sprintf("%s/frequency_table.json", jobID)
	// padding header claims more bits than the payload holds
	mockGCS.SetObject(payloadPath, []byte{9, 0x00})
	mockGCS.SetObject(freqPath, ftBytes)
	jobStore.Create(ctx, jobID, registry.KindDecompress)

	msg := &mockMessage{data: marshalJob(t, common.DecompressJob{
		ID:            jobID,
		PayloadPath:   payloadPath,
		FreqTablePath: freqPath,
	})}

	app.decompressMessageHandler(ctx, msg)

	if !msg.nackCalled {
		t.Error("expected message to be nacked")
	}
	if _, ok := mockGCS.GetObjectContent(fmt.Sprintf("%s/decompressed.txt", jobID)); ok {
		t.Error("no output should be uploaded for a corrupt payload")
	}

	job, err := jobStore.Get(ctx, jobID)
	if err != nil {
		t.Fatalf("job lookup failed: %v", err)
	}
	if job.State != registry.StateFailed {
		t.Errorf("expected job state failed, got %q", job.State)
	}
}
