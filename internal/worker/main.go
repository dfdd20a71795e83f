package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"

	"github.com/qvhoang/huffpress/compression"
	"github.com/qvhoang/huffpress/internal/common"
	"github.com/qvhoang/huffpress/internal/registry"
)

type Application struct {
	Store      common.ObjectStore
	Registry   registry.Store
	CTX        *context.Context
	Bucket     string
	GCSTimeout time.Duration
}

func (app *Application) downloadObject(ctx context.Context, object string) ([]byte, error) {
	rc, err := app.Store.NewReader(ctx, app.Bucket, object)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", object, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", object, err)
	}
	return data, nil
}

func (app *Application) downloadFreqTable(ctx context.Context, object string) (compression.FrequencyTable, error) {
	data, err := app.downloadObject(ctx, object)
	if err != nil {
		return nil, err
	}
	var ft compression.FrequencyTable
	if err := json.Unmarshal(data, &ft); err != nil {
		return nil, fmt.Errorf("decode %s: %w", object, err)
	}
	return ft, nil
}

func (app *Application) uploadObject(ctx context.Context, object string, data []byte) error {
	wc := app.Store.NewWriter(ctx, app.Bucket, object)
	if _, err := wc.Write(data); err != nil {
		return fmt.Errorf("stream %s: %w", object, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close %s: %w", object, err)
	}
	return nil
}

// fail logs the error, marks the job failed and gives the message back to
// Pub/Sub for redelivery.
func (app *Application) fail(jobID, text string, err error, msg common.Message) {
	slog.Error(text, "job", jobID, "error", err)
	if jobID != "" {
		if regErr := app.Registry.SetState(*app.CTX, jobID, registry.StateFailed, err.Error()); regErr != nil {
			slog.Error("Failed to mark job failed", "job", jobID, "error", regErr)
		}
	}
	msg.Nack()
}

func (app *Application) compressMessageHandler(_ context.Context, msg common.Message) {
	var job common.CompressJob
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		app.fail("", "Failed to unmarshal body from job message", err, msg)
		return
	}

	slog.Info("Received job", "job", job.ID)
	if err := app.Registry.SetState(*app.CTX, job.ID, registry.StateWorking, ""); err != nil {
		slog.Error("Failed to mark job working", "job", job.ID, "error", err)
	}

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	freqTable, err := app.downloadFreqTable(ctx, job.FreqTablePath)
	if err != nil {
		app.fail(job.ID, "Failed to download character frequency table", err, msg)
		return
	}
	slog.Debug("Downloaded character frequency table", "job", job.ID)

	table := compression.NewCodeTable(freqTable)
	slog.Debug("Built code table", "job", job.ID, "symbols", table.Len())

	text, err := app.downloadObject(ctx, job.TextPath)
	if err != nil {
		app.fail(job.ID, "Failed to download original file content", err, msg)
		return
	}
	slog.Debug("Downloaded text data", "job", job.ID)

	payload, err := compression.Encode(string(text), table)
	if err != nil {
		app.fail(job.ID, "Failed to compress data", err, msg)
		return
	}

	payloadPath := fmt.Sprintf("%s/compressed.huff", job.ID)
	if err := app.uploadObject(ctx, payloadPath, payload); err != nil {
		app.fail(job.ID, "Failed to upload compressed data to GCS", err, msg)
		return
	}
	slog.Debug("Uploaded compressed data to GCS", "job", job.ID)

	if err := app.Registry.SetState(*app.CTX, job.ID, registry.StateDone, ""); err != nil {
		slog.Error("Failed to mark job done", "job", job.ID, "error", err)
	}
	msg.Ack()
	slog.Info("Completed processing job", "job", job.ID)
}

func (app *Application) decompressMessageHandler(_ context.Context, msg common.Message) {
	var job common.DecompressJob
	if err := json.Unmarshal(msg.Data(), &job); err != nil {
		app.fail("", "Failed to unmarshal body from job message", err, msg)
		return
	}

	slog.Info("Received job", "job", job.ID)
	if err := app.Registry.SetState(*app.CTX, job.ID, registry.StateWorking, ""); err != nil {
		slog.Error("Failed to mark job working", "job", job.ID, "error", err)
	}

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	freqTable, err := app.downloadFreqTable(ctx, job.FreqTablePath)
	if err != nil {
		app.fail(job.ID, "Failed to download character frequency table", err, msg)
		return
	}
	slog.Debug("Downloaded character frequency table", "job", job.ID)

	payload, err := app.downloadObject(ctx, job.PayloadPath)
	if err != nil {
		app.fail(job.ID, "Failed to download compressed file content", err, msg)
		return
	}
	slog.Debug("Downloaded compressed file from GCS.", "job", job.ID)

	text, err := compression.Decompress(payload, freqTable)
	if err != nil {
		app.fail(job.ID, "Failed to decompress data", err, msg)
		return
	}

	resultPath := fmt.Sprintf("%s/decompressed.txt", job.ID)
	if err := app.uploadObject(ctx, resultPath, []byte(text)); err != nil {
		app.fail(job.ID, "Failed to upload final data to GCS", err, msg)
		return
	}
	slog.Debug("Uploaded final data to GCS", "job", job.ID)

	if err := app.Registry.SetState(*app.CTX, job.ID, registry.StateDone, ""); err != nil {
		slog.Error("Failed to mark job done", "job", job.ID, "error", err)
	}
	msg.Ack()
	slog.Info("Completed processing job", "job", job.ID)
}

func main() {
	methodFlag := flag.Bool("decompress", false, "flag to indicate this instance is for decompressing.")
	flag.Parse()

	// initialize logging system
	var programLevel = new(slog.LevelVar) // Info by default
	developmentMode := os.Getenv("DEVELOPMENT_MODE")
	isDev, err := strconv.ParseBool(developmentMode)
	if err == nil && isDev {
		programLevel.Set(slog.LevelDebug)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel}))
	slog.SetDefault(logger)

	// initialize GCP services
	projectID := os.Getenv("GCP_PROJECT_ID")
	subID := os.Getenv("PUBSUB_SUB_ID")
	bucket := os.Getenv("GCS_BUCKET")
	dsn := os.Getenv("DATABASE_DSN")
	ctx := context.Background()

	GCSClient, err := storage.NewClient(ctx)
	if err != nil {
		slog.Error("Cannot create new client for GCS", "error", err)
		return
	}
	defer GCSClient.Close()
	slog.Debug("Initialized a GCS client.")

	PUBSUBClient, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		slog.Error("Cannot create new client for Pub/Sub", "error", err)
		return
	}
	defer PUBSUBClient.Close()
	slog.Debug("Initialized a Pub/Sub client.")

	jobStore, err := registry.Open(ctx, dsn)
	if err != nil {
		slog.Error("Cannot open job registry", "error", err)
		return
	}
	defer jobStore.Close()
	slog.Debug("Initialized the job registry.")

	app := Application{
		Store:      &common.GCSStore{Client: GCSClient},
		Registry:   jobStore,
		CTX:        &ctx,
		Bucket:     bucket,
		GCSTimeout: 50 * time.Second,
	}

	sub := PUBSUBClient.Subscriber(subID)
	receiveFunc := func(ctx context.Context, msg *pubsub.Message) {
		wrappedMsg := &common.PubSubMessage{Msg: msg}
		if *methodFlag {
			app.decompressMessageHandler(ctx, wrappedMsg)
		} else {
			app.compressMessageHandler(ctx, wrappedMsg)
		}
	}

	if *methodFlag {
		slog.Info("Listening for a new decompressing message...")
	} else {
		slog.Info("Listening for a new compressing message...")
	}
	err = sub.Receive(ctx, receiveFunc)
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Cannot process job", "error", err)
		return
	}
}
