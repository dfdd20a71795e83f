package main

import (
	"context"
	"log/slog"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/qvhoang/huffpress/internal/registry"
)

func main() {
	// initialize logging system
	var programLevel = new(slog.LevelVar) // Info by default
	developmentMode := os.Getenv("DEVELOPMENT_MODE")
	isDev, err := strconv.ParseBool(developmentMode)
	if err == nil && isDev {
		programLevel.Set(slog.LevelDebug)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: programLevel}))
	slog.SetDefault(logger)

	dsn := os.Getenv("DATABASE_DSN")
	ctx := context.Background()

	jobStore, err := registry.Open(ctx, dsn)
	if err != nil {
		slog.Error("Cannot open job registry", "error", err)
		return
	}
	defer jobStore.Close()
	slog.Debug("Initialized the job registry.")

	r := gin.Default()
	registerRoutes(r, NewJobHandler(jobStore))

	slog.Info("Listening on localhost:8082...")
	if err := r.Run(":8082"); err != nil {
		slog.Error("Status server stopped", "error", err)
	}
}
