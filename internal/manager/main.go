package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/storage"
	"github.com/google/uuid"

	"github.com/qvhoang/huffpress/compression"
	"github.com/qvhoang/huffpress/internal/common"
	"github.com/qvhoang/huffpress/internal/registry"
)

type Application struct {
	Store             common.ObjectStore
	Publisher         common.Publisher
	Registry          registry.Store
	CTX               *context.Context
	Bucket            string
	CompressTopicID   string
	DecompressTopicID string
	MaxUploadSize     int64
	GCSTimeout        time.Duration
}

func (app *Application) uploadObject(ctx context.Context, object string, r io.Reader) error {
	wc := app.Store.NewWriter(ctx, app.Bucket, object)
	if _, err := io.Copy(wc, r); err != nil {
		return fmt.Errorf("stream %s: %w", object, err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("close %s: %w", object, err)
	}
	return nil
}

func (app *Application) publishJob(ctx context.Context, topicID string, job any) (string, error) {
	data, err := json.Marshal(job)
	if err != nil {
		return "", fmt.Errorf("marshal job: %w", err)
	}
	return app.Publisher.Publish(ctx, topicID, &pubsub.Message{Data: data})
}

func (app *Application) compressHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		common.WriteError(w, "Only POST method allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Failed to get file from form", "error", err)
		// This error is triggered when MaxBytesReader limit is exceeded
		if strings.Contains(err.Error(), "request body too large") {
			common.WriteError(w, "File exceeds size limit", http.StatusRequestEntityTooLarge)
			return
		}
		common.WriteError(w, "Failed to read file: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer file.Close()

	slog.Info("Processing a request for compressing")

	jobID := uuid.New().String()
	slog.Debug("Creating new job", "job", jobID, "file", header.Filename)

	// count rune frequencies while the upload streams to GCS
	pr, pw := io.Pipe()

	freqTable := make(compression.FrequencyTable)
	teeReader := io.TeeReader(file, pw)

	go func() {
		defer pw.Close()
		bufReader := bufio.NewReader(teeReader)
		for {
			char, _, err := bufReader.ReadRune()
			if err != nil {
				if err == io.EOF {
					break
				}
				slog.Error("Failed to read file to build freq. table", "job", jobID, "error", err)
				pw.CloseWithError(err)
				return
			}
			freqTable[char]++
		}
	}()

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	textPath := fmt.Sprintf("%s/original_%s", jobID, header.Filename)
	if err := app.uploadObject(ctx, textPath, pr); err != nil {
		slog.Error("Failed to stream data to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug(fmt.Sprintf("Uploaded %s to GCS", header.Filename), "job", jobID)

	freqTableBytes, err := json.Marshal(freqTable)
	if err != nil {
		slog.Error("Failed to marshal frequency table", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	freqTablePath := fmt.Sprintf("%s/frequency_table.json", jobID)
	if err := app.uploadObject(ctx, freqTablePath, bytes.NewReader(freqTableBytes)); err != nil {
		slog.Error("Failed to stream frequency table to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug("Uploaded frequency table to GCS", "job", jobID)

	if err := app.Registry.Create(*app.CTX, jobID, registry.KindCompress); err != nil {
		slog.Error("Failed to record job", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	job := common.CompressJob{
		ID:            jobID,
		TextPath:      textPath,
		FreqTablePath: freqTablePath,
	}
	messageID, err := app.publishJob(*app.CTX, app.CompressTopicID, job)
	if err != nil {
		slog.Error("Failed to send MQ message", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug("Sent message to Pub/Sub", "job", jobID, "server_generated_message_id", messageID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"job_id": jobID})
}

func (app *Application) decompressHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		common.WriteError(w, "Only POST method allowed", http.StatusMethodNotAllowed)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, app.MaxUploadSize)

	payloadFile, payloadHeader, err := r.FormFile("payload")
	if err != nil {
		slog.Error("Failed to get payload from form", "error", err)
		if strings.Contains(err.Error(), "request body too large") {
			common.WriteError(w, "File exceeds size limit", http.StatusRequestEntityTooLarge)
			return
		}
		common.WriteError(w, "Failed to read payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer payloadFile.Close()

	if !strings.HasSuffix(payloadHeader.Filename, ".huff") {
		common.WriteError(w, "Wrong file format", http.StatusBadRequest)
		return
	}

	// the payload never carries the code table, so the frequency-table
	// sidecar must arrive with it
	tableFile, _, err := r.FormFile("table")
	if err != nil {
		slog.Error("Failed to get frequency table from form", "error", err)
		common.WriteError(w, "Failed to read frequency table: "+err.Error(), http.StatusBadRequest)
		return
	}
	defer tableFile.Close()

	slog.Info("Processing a request for decompressing")

	jobID := uuid.New().String()
	slog.Debug("Creating new job", "job", jobID, "file", payloadHeader.Filename)

	ctx, cancel := context.WithTimeout(*app.CTX, app.GCSTimeout)
	defer cancel()

	payloadPath := fmt.Sprintf("%s/%s", jobID, payloadHeader.Filename)
	if err := app.uploadObject(ctx, payloadPath, payloadFile); err != nil {
		slog.Error("Failed to stream compressed data to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug(fmt.Sprintf("Uploaded %s to GCS", payloadHeader.Filename), "job", jobID)

	freqTablePath := fmt.Sprintf("%s/frequency_table.json", jobID)
	if err := app.uploadObject(ctx, freqTablePath, tableFile); err != nil {
		slog.Error("Failed to stream frequency table to GCS", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug("Uploaded frequency table to GCS", "job", jobID)

	if err := app.Registry.Create(*app.CTX, jobID, registry.KindDecompress); err != nil {
		slog.Error("Failed to record job", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	job := common.DecompressJob{
		ID:            jobID,
		PayloadPath:   payloadPath,
		FreqTablePath: freqTablePath,
	}
	messageID, err := app.publishJob(*app.CTX, app.DecompressTopicID, job)
	if err != nil {
		slog.Error("Failed to send MQ message", "job", jobID, "error", err)
		common.WriteError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	slog.Debug("Sent message to Pub/Sub", "job", jobID, "server_generated_message_id", messageID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"job_id": jobID})
}

func main() {
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
	compressTopicID := os.Getenv("PUBSUB_COMPRESS_TOPIC_ID")
	decompressTopicID := os.Getenv("PUBSUB_DECOMPRESS_TOPIC_ID")
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
	if err := jobStore.Migrate(ctx); err != nil {
		slog.Error("Cannot migrate job registry", "error", err)
		return
	}
	slog.Debug("Initialized the job registry.")

	app := Application{
		Store:             &common.GCSStore{Client: GCSClient},
		Publisher:         &common.PubSubPublisher{Client: PUBSUBClient},
		Registry:          jobStore,
		CTX:               &ctx,
		Bucket:            bucket,
		CompressTopicID:   compressTopicID,
		DecompressTopicID: decompressTopicID,
		MaxUploadSize:     1 << 30, // 1GB
		GCSTimeout:        50 * time.Second,
	}

	http.HandleFunc("/compress", app.compressHandler)
	http.HandleFunc("/decompress", app.decompressHandler)
	slog.Info("Listening on localhost:8081...")
	http.ListenAndServe(":8081", nil)
}
